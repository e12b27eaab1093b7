package isobmff

import "github.com/jmylchreest/goremux/pkg/bitstream"

// SttsEntry is one run-length (sample_count, sample_delta) pair.
type SttsEntry struct {
	SampleCount uint32
	SampleDelta uint32
}

// DecodeSTTS parses an stts box payload into its RLE entries.
func DecodeSTTS(payload []byte) ([]SttsEntry, error) {
	_, _, rest, err := FullBoxHeader(payload)
	if err != nil {
		return nil, err
	}
	r := bitstream.NewReader(rest)
	count, err := r.U32()
	if err != nil {
		return nil, err
	}
	entries := make([]SttsEntry, 0, count)
	for i := uint32(0); i < count; i++ {
		c, err := r.U32()
		if err != nil {
			return nil, err
		}
		d, err := r.U32()
		if err != nil {
			return nil, err
		}
		entries = append(entries, SttsEntry{SampleCount: c, SampleDelta: d})
	}
	return entries, nil
}

// CttsEntry is one run-length (sample_count, sample_offset) pair. Offset is
// signed to support version-1 negative composition offsets.
type CttsEntry struct {
	SampleCount  uint32
	SampleOffset int32
}

// DecodeCTTS parses a ctts box payload into its RLE entries.
func DecodeCTTS(payload []byte) ([]CttsEntry, error) {
	version, _, rest, err := FullBoxHeader(payload)
	if err != nil {
		return nil, err
	}
	r := bitstream.NewReader(rest)
	count, err := r.U32()
	if err != nil {
		return nil, err
	}
	entries := make([]CttsEntry, 0, count)
	for i := uint32(0); i < count; i++ {
		c, err := r.U32()
		if err != nil {
			return nil, err
		}
		var off int32
		if version == 0 {
			u, err := r.U32()
			if err != nil {
				return nil, err
			}
			off = int32(u)
		} else {
			s, err := r.I32()
			if err != nil {
				return nil, err
			}
			off = s
		}
		entries = append(entries, CttsEntry{SampleCount: c, SampleOffset: off})
	}
	return entries, nil
}

// DecodeSTSS parses an stss box payload into its one-based sample indices.
func DecodeSTSS(payload []byte) ([]uint32, error) {
	_, _, rest, err := FullBoxHeader(payload)
	if err != nil {
		return nil, err
	}
	r := bitstream.NewReader(rest)
	count, err := r.U32()
	if err != nil {
		return nil, err
	}
	indices := make([]uint32, 0, count)
	for i := uint32(0); i < count; i++ {
		v, err := r.U32()
		if err != nil {
			return nil, err
		}
		indices = append(indices, v)
	}
	return indices, nil
}

// STSZ is the decoded content of an stsz box. When SampleSize is non-zero
// every sample shares that size and EntrySizes is empty.
type STSZ struct {
	SampleSize uint32
	EntrySizes []uint32
}

// DecodeSTSZ parses an stsz box payload.
func DecodeSTSZ(payload []byte) (STSZ, error) {
	_, _, rest, err := FullBoxHeader(payload)
	if err != nil {
		return STSZ{}, err
	}
	r := bitstream.NewReader(rest)
	sampleSize, err := r.U32()
	if err != nil {
		return STSZ{}, err
	}
	count, err := r.U32()
	if err != nil {
		return STSZ{}, err
	}
	out := STSZ{SampleSize: sampleSize}
	if sampleSize != 0 {
		return out, nil
	}
	out.EntrySizes = make([]uint32, 0, count)
	for i := uint32(0); i < count; i++ {
		v, err := r.U32()
		if err != nil {
			return STSZ{}, err
		}
		out.EntrySizes = append(out.EntrySizes, v)
	}
	return out, nil
}

// StscEntry is one sample-to-chunk run.
type StscEntry struct {
	FirstChunk             uint32
	SamplesPerChunk        uint32
	SampleDescriptionIndex uint32
}

// DecodeSTSC parses an stsc box payload.
func DecodeSTSC(payload []byte) ([]StscEntry, error) {
	_, _, rest, err := FullBoxHeader(payload)
	if err != nil {
		return nil, err
	}
	r := bitstream.NewReader(rest)
	count, err := r.U32()
	if err != nil {
		return nil, err
	}
	entries := make([]StscEntry, 0, count)
	for i := uint32(0); i < count; i++ {
		first, err := r.U32()
		if err != nil {
			return nil, err
		}
		spc, err := r.U32()
		if err != nil {
			return nil, err
		}
		sdi, err := r.U32()
		if err != nil {
			return nil, err
		}
		entries = append(entries, StscEntry{FirstChunk: first, SamplesPerChunk: spc, SampleDescriptionIndex: sdi})
	}
	return entries, nil
}

// DecodeSTCO parses an stco (32-bit chunk offset) box payload.
func DecodeSTCO(payload []byte) ([]uint32, error) {
	_, _, rest, err := FullBoxHeader(payload)
	if err != nil {
		return nil, err
	}
	r := bitstream.NewReader(rest)
	count, err := r.U32()
	if err != nil {
		return nil, err
	}
	offsets := make([]uint32, 0, count)
	for i := uint32(0); i < count; i++ {
		v, err := r.U32()
		if err != nil {
			return nil, err
		}
		offsets = append(offsets, v)
	}
	return offsets, nil
}

// DecodeCO64 parses a co64 (64-bit chunk offset) box payload. Per §4.C, only
// the low 32 bits of each entry are used; rejecting offsets above 2^32-1 is
// left to the caller (writer-side OutOfBounds checks).
func DecodeCO64(payload []byte) ([]uint32, error) {
	_, _, rest, err := FullBoxHeader(payload)
	if err != nil {
		return nil, err
	}
	r := bitstream.NewReader(rest)
	count, err := r.U32()
	if err != nil {
		return nil, err
	}
	offsets := make([]uint32, 0, count)
	for i := uint32(0); i < count; i++ {
		v, err := r.U64()
		if err != nil {
			return nil, err
		}
		offsets = append(offsets, uint32(v))
	}
	return offsets, nil
}
