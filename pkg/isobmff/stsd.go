package isobmff

import (
	"github.com/jmylchreest/goremux/pkg/bitstream"
)

// AVC1Entry is the decoded content of an avc1/hev1 sample entry: dimensions
// plus the raw avcC/hvcC decoder configuration record payload.
type AVC1Entry struct {
	Width, Height uint16
	ConfigBox     bitstream.FourCC // avcC or hvcC
	Config        []byte           // raw decoder configuration record bytes
}

// MP4AEntry is the decoded content of an mp4a sample entry.
type MP4AEntry struct {
	ChannelCount uint16
	SampleSize   uint16
	SampleRate   uint32 // 16.16 fixed point
	ESDS         []byte // raw esds descriptor payload, if present
}

// STSD is the decoded content of a sample description box: at most one
// entry per spec's single-entry assumption (§4.E).
type STSD struct {
	AVC1 *AVC1Entry
	MP4A *MP4AEntry
}

// DecodeSTSD parses an stsd box payload and decodes whichever single codec
// entry it carries.
func DecodeSTSD(payload []byte) (STSD, error) {
	_, _, rest, err := FullBoxHeader(payload)
	if err != nil {
		return STSD{}, err
	}
	r := bitstream.NewReader(rest)
	if _, err := r.U32(); err != nil { // entry_count
		return STSD{}, err
	}

	entries := ReadBoxes(r.Remaining())
	var out STSD
	for _, e := range entries {
		switch e.Type {
		case bitstream.BoxAVC1, bitstream.BoxHEV1:
			avc, err := decodeVisualSampleEntry(e.Payload)
			if err != nil {
				return STSD{}, err
			}
			out.AVC1 = &avc
		case bitstream.BoxMP4A:
			mp4a, err := decodeAudioSampleEntry(e.Payload)
			if err != nil {
				return STSD{}, err
			}
			out.MP4A = &mp4a
		}
	}
	return out, nil
}

func decodeVisualSampleEntry(payload []byte) (AVC1Entry, error) {
	r := bitstream.NewReader(payload)
	// SampleEntry base: reserved(6) + data_reference_index(2) = 8 bytes.
	if err := r.Skip(8); err != nil {
		return AVC1Entry{}, err
	}
	// VisualSampleEntry: pre_defined(2)+reserved(2)+pre_defined(12)=16,
	// width(2)+height(2), then horizresolution(4)+vertresolution(4)+
	// reserved(4)+frame_count(2)+compressorname(32)+depth(2)+pre_defined(2)=50.
	if err := r.Skip(16); err != nil {
		return AVC1Entry{}, err
	}
	w, err := r.U16()
	if err != nil {
		return AVC1Entry{}, err
	}
	h, err := r.U16()
	if err != nil {
		return AVC1Entry{}, err
	}
	if err := r.Skip(50); err != nil {
		return AVC1Entry{}, err
	}

	out := AVC1Entry{Width: w, Height: h}
	for _, c := range ReadBoxes(r.Remaining()) {
		if c.Type == bitstream.BoxAVCC || c.Type == bitstream.BoxHVCC {
			out.ConfigBox = c.Type
			out.Config = c.Payload
			break
		}
	}
	return out, nil
}

func decodeAudioSampleEntry(payload []byte) (MP4AEntry, error) {
	r := bitstream.NewReader(payload)
	// SampleEntry base: reserved(6) + data_reference_index(2).
	if err := r.Skip(8); err != nil {
		return MP4AEntry{}, err
	}
	// AudioSampleEntry: reserved(8), channelcount(2), samplesize(2),
	// pre_defined(2), reserved(2), samplerate(4).
	if err := r.Skip(8); err != nil {
		return MP4AEntry{}, err
	}
	ch, err := r.U16()
	if err != nil {
		return MP4AEntry{}, err
	}
	ss, err := r.U16()
	if err != nil {
		return MP4AEntry{}, err
	}
	if err := r.Skip(4); err != nil {
		return MP4AEntry{}, err
	}
	sr, err := r.U32()
	if err != nil {
		return MP4AEntry{}, err
	}

	out := MP4AEntry{ChannelCount: ch, SampleSize: ss, SampleRate: sr}
	for _, c := range ReadBoxes(r.Remaining()) {
		if c.Type == bitstream.BoxESDS {
			out.ESDS = c.Payload
			break
		}
	}
	return out, nil
}
