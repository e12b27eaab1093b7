package mp4write

import (
	"encoding/binary"
	"math"

	"github.com/jmylchreest/goremux/pkg/bitstream"
	"github.com/jmylchreest/goremux/pkg/rmerrors"
)

const maxMDATSize = math.MaxUint32

type sttsEntry struct{ count, delta uint32 }
type cttsEntry struct {
	count  uint32
	offset int32
}

// Write emits a complete non-fragmented MP4 per §4.E: mdat is built first so
// every sample's offset within it is known, moov is built against those
// offsets, then every stco value is patched by the now-known
// mdat_content_offset (ftyp size + moov size + 8).
func Write(in Input) ([]byte, error) {
	if len(in.Tracks) == 0 {
		return nil, rmerrors.InvalidArgument("no tracks to write")
	}

	mdat, trackMDATOffset := buildMDAT(in.Tracks)
	if len(mdat) > maxMDATSize {
		return nil, rmerrors.OutOfBounds("mdat size %d exceeds the 32-bit stco limit", len(mdat))
	}

	movieTimescale := movieTimescaleFor(in.Tracks)
	nextTrackID := uint32(len(in.Tracks) + 1)

	ftyp := buildFTYP()

	trakBoxes := make([][]byte, len(in.Tracks))
	stcoRelOffsets := make([]int, len(in.Tracks))
	var movieDuration uint64
	for i, t := range in.Tracks {
		trak, stcoOff := buildTRAK(t, movieTimescale)
		trakBoxes[i] = trak
		stcoRelOffsets[i] = stcoOff

		mediaDuration := sumDurations(t.Samples)
		inMovieTS := scaleDuration(mediaDuration, t.Timescale, movieTimescale)
		if inMovieTS > movieDuration {
			movieDuration = inMovieTS
		}
	}

	mvhd := buildMVHD(movieTimescale, movieDuration, nextTrackID)
	moovPayload := concatBoxes(append([][]byte{mvhd}, trakBoxes...)...)
	moov := box(bitstream.BoxMOOV, moovPayload)

	mdatContentOffset := uint32(len(ftyp) + len(moov) + 8)

	moovHeaderLen := 8
	cursor := moovHeaderLen + len(mvhd)
	for i, trak := range trakBoxes {
		absOffset := cursor + stcoRelOffsets[i]
		finalOffset := uint32(trackMDATOffset[i]) + mdatContentOffset
		binary.BigEndian.PutUint32(moov[absOffset:absOffset+4], finalOffset)
		cursor += len(trak)
	}

	out := make([]byte, 0, len(ftyp)+len(moov)+len(mdat)+8)
	out = append(out, ftyp...)
	out = append(out, moov...)
	out = append(out, box(bitstream.BoxMDAT, mdat)...)
	return out, nil
}

// buildMDAT concatenates every track's sample payloads, tracks in moov
// order, and returns each track's starting offset within the buffer.
func buildMDAT(tracks []*Track) ([]byte, []int64) {
	var mdat []byte
	offsets := make([]int64, len(tracks))
	for i, t := range tracks {
		offsets[i] = int64(len(mdat))
		for _, s := range t.Samples {
			mdat = append(mdat, s.Payload...)
		}
	}
	return mdat, offsets
}

func sumDurations(samples []Sample) uint64 {
	var total uint64
	for _, s := range samples {
		total += uint64(s.Duration)
	}
	return total
}

func scaleDuration(duration uint64, from, to uint32) uint64 {
	if from == 0 {
		return 0
	}
	return uint64(math.Round(float64(duration) * float64(to) / float64(from)))
}

// movieTimescaleFor resolves the Open Question in §9: video timescale when a
// video track exists, otherwise the (sole) audio track's timescale.
func movieTimescaleFor(tracks []*Track) uint32 {
	for _, t := range tracks {
		if t.Kind == TrackVideo {
			return t.Timescale
		}
	}
	for _, t := range tracks {
		if t.Kind == TrackAudio {
			return t.Timescale
		}
	}
	return 90000
}

func buildTRAK(t *Track, movieTimescale uint32) (trak []byte, stcoOffset int) {
	mediaDuration := sumDurations(t.Samples)
	movieDuration := scaleDuration(mediaDuration, t.Timescale, movieTimescale)

	tkhd := buildTKHD(t.TrackID, movieDuration, videoWidthFixed(t), videoHeightFixed(t), t.Kind == TrackAudio)

	var edts []byte
	if t.EditList != nil {
		edts = buildELST(t.EditList, movieTimescale)
	}

	mdia, stcoInMdia := buildMDIA(t, mediaDuration)

	parts := [][]byte{tkhd}
	if edts != nil {
		parts = append(parts, edts)
	}
	parts = append(parts, mdia)

	payload := concatBoxes(parts...)
	trak = box(bitstream.BoxTRAK, payload)

	rel := 8 + len(tkhd)
	if edts != nil {
		rel += len(edts)
	}
	rel += stcoInMdia
	return trak, rel
}

func videoWidthFixed(t *Track) uint32 {
	if t.Kind != TrackVideo {
		return 0
	}
	return uint32(t.VideoWidth) << 16
}

func videoHeightFixed(t *Track) uint32 {
	if t.Kind != TrackVideo {
		return 0
	}
	return uint32(t.VideoHeight) << 16
}

func buildMDIA(t *Track, mediaDuration uint64) (mdia []byte, stcoOffset int) {
	mdhd := buildMDHD(t.Timescale, mediaDuration)

	handlerType := bitstream.NewFourCC("soun")
	name := "SoundHandler"
	if t.Kind == TrackVideo {
		handlerType = bitstream.NewFourCC("vide")
		name = "VideoHandler"
	}
	hdlr := buildHDLR(handlerType, name)

	minf, stcoInMinf := buildMINF(t)

	payload := concatBoxes(mdhd, hdlr, minf)
	mdia = box(bitstream.BoxMDIA, payload)

	rel := 8 + len(mdhd) + len(hdlr) + stcoInMinf
	return mdia, rel
}

func buildMINF(t *Track) (minf []byte, stcoOffset int) {
	var mediaHeader []byte
	if t.Kind == TrackVideo {
		mediaHeader = buildVMHD()
	} else {
		mediaHeader = buildSMHD()
	}
	dinf := buildDINF()
	stbl, stcoInStbl := buildSTBL(t)

	payload := concatBoxes(mediaHeader, dinf, stbl)
	minf = box(bitstream.BoxMINF, payload)

	rel := 8 + len(mediaHeader) + len(dinf) + stcoInStbl
	return minf, rel
}

func buildSTBL(t *Track) (stbl []byte, stcoOffset int) {
	stsd := buildSTSD(t)
	stts := buildSTTS(rleDurations(t.Samples))

	var ctts []byte
	if t.Kind == TrackVideo && hasNonZeroCompositionOffset(t.Samples) {
		ctts = buildCTTS(rleCompositionOffsets(t.Samples))
	}

	var stss []byte
	if t.Kind == TrackVideo {
		if indices := keyframeIndices(t.Samples); len(indices) > 0 {
			stss = buildSTSS(indices)
		}
	}

	stsc := buildSTSC(uint32(len(t.Samples)))
	stsz := buildSTSZ(sampleSizes(t.Samples))
	stco := buildSTCO(0) // placeholder, patched by caller once mdat_content_offset is known

	parts := [][]byte{stsd, stts}
	if ctts != nil {
		parts = append(parts, ctts)
	}
	if stss != nil {
		parts = append(parts, stss)
	}
	parts = append(parts, stsc, stsz, stco)

	payload := concatBoxes(parts...)
	stbl = box(bitstream.BoxSTBL, payload)

	rel := 8
	for _, p := range parts[:len(parts)-1] {
		rel += len(p)
	}
	rel += 16 // stco box header(8) + version/flags(4) + entry_count(4)
	return stbl, rel
}

func sampleSizes(samples []Sample) []uint32 {
	sizes := make([]uint32, len(samples))
	for i, s := range samples {
		sizes[i] = uint32(len(s.Payload))
	}
	return sizes
}

func hasNonZeroCompositionOffset(samples []Sample) bool {
	for _, s := range samples {
		if s.CompositionOffset != 0 {
			return true
		}
	}
	return false
}

func keyframeIndices(samples []Sample) []uint32 {
	var out []uint32
	for i, s := range samples {
		if s.IsKeyframe {
			out = append(out, uint32(i+1)) // one-based
		}
	}
	return out
}

func rleDurations(samples []Sample) []sttsEntry {
	var out []sttsEntry
	for _, s := range samples {
		if len(out) > 0 && out[len(out)-1].delta == s.Duration {
			out[len(out)-1].count++
			continue
		}
		out = append(out, sttsEntry{count: 1, delta: s.Duration})
	}
	return out
}

func rleCompositionOffsets(samples []Sample) []cttsEntry {
	var out []cttsEntry
	for _, s := range samples {
		if len(out) > 0 && out[len(out)-1].offset == s.CompositionOffset {
			out[len(out)-1].count++
			continue
		}
		out = append(out, cttsEntry{count: 1, offset: s.CompositionOffset})
	}
	return out
}
