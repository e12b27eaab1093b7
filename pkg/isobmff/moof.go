package isobmff

import "github.com/jmylchreest/goremux/pkg/bitstream"

// tfhd optional-field flags (ISO/IEC 14496-12).
const (
	TFHDBaseDataOffsetPresent        = 0x000001
	TFHDSampleDescriptionIndexPresent = 0x000002
	TFHDDefaultSampleDurationPresent = 0x000008
	TFHDDefaultSampleSizePresent     = 0x000010
	TFHDDefaultSampleFlagsPresent    = 0x000020
	TFHDDurationIsEmpty              = 0x010000
)

// TFHD is the decoded content of a track fragment header box.
type TFHD struct {
	TrackID               uint32
	Flags                 uint32
	BaseDataOffset        uint64
	HasBaseDataOffset     bool
	DefaultSampleDuration uint32
	DefaultSampleSize     uint32
	DefaultSampleFlags    uint32
}

// DecodeTFHD parses a tfhd box payload, honoring the optional-field bitmap.
func DecodeTFHD(payload []byte) (TFHD, error) {
	_, flags, rest, err := FullBoxHeader(payload)
	if err != nil {
		return TFHD{}, err
	}
	r := bitstream.NewReader(rest)
	trackID, err := r.U32()
	if err != nil {
		return TFHD{}, err
	}
	out := TFHD{TrackID: trackID, Flags: flags}

	if flags&TFHDBaseDataOffsetPresent != 0 {
		v, err := r.U64()
		if err != nil {
			return TFHD{}, err
		}
		out.BaseDataOffset = v
		out.HasBaseDataOffset = true
	}
	if flags&TFHDSampleDescriptionIndexPresent != 0 {
		if _, err := r.U32(); err != nil {
			return TFHD{}, err
		}
	}
	if flags&TFHDDefaultSampleDurationPresent != 0 {
		v, err := r.U32()
		if err != nil {
			return TFHD{}, err
		}
		out.DefaultSampleDuration = v
	}
	if flags&TFHDDefaultSampleSizePresent != 0 {
		v, err := r.U32()
		if err != nil {
			return TFHD{}, err
		}
		out.DefaultSampleSize = v
	}
	if flags&TFHDDefaultSampleFlagsPresent != 0 {
		v, err := r.U32()
		if err != nil {
			return TFHD{}, err
		}
		out.DefaultSampleFlags = v
	}
	return out, nil
}

// TFDT is the decoded content of a track fragment decode time box. It is
// informational only per §4.D: the assembler does not use it to place
// samples, only trun + the running mdat cursor do.
type TFDT struct {
	BaseMediaDecodeTime uint64
}

// DecodeTFDT parses a tfdt box payload (version 0 or 1).
func DecodeTFDT(payload []byte) (TFDT, error) {
	version, _, rest, err := FullBoxHeader(payload)
	if err != nil {
		return TFDT{}, err
	}
	r := bitstream.NewReader(rest)
	if version == 1 {
		v, err := r.U64()
		if err != nil {
			return TFDT{}, err
		}
		return TFDT{BaseMediaDecodeTime: v}, nil
	}
	v, err := r.U32()
	if err != nil {
		return TFDT{}, err
	}
	return TFDT{BaseMediaDecodeTime: uint64(v)}, nil
}

// trun per-sample presence flags.
const (
	TrunDataOffsetPresent      = 0x000001
	TrunFirstSampleFlagsPresent = 0x000004
	TrunSampleDurationPresent  = 0x000100
	TrunSampleSizePresent      = 0x000200
	TrunSampleFlagsPresent     = 0x000400
	TrunSampleCompositionTimeOffsetPresent = 0x000800
)

// TrunSample is one sample entry from a trun box, with zero values where
// the corresponding presence flag was absent (the caller substitutes tfhd
// defaults).
type TrunSample struct {
	Duration              uint32
	Size                  uint32
	Flags                 uint32
	CompositionTimeOffset int32
}

// TRUN is the decoded content of a track run box.
type TRUN struct {
	Flags               uint32
	DataOffset          int32
	HasDataOffset       bool
	FirstSampleFlags    uint32
	HasFirstSampleFlags bool
	Samples             []TrunSample
}

// DecodeTRUN parses a trun box payload, honoring version 0/1 and the
// per-sample presence flags.
func DecodeTRUN(payload []byte) (TRUN, error) {
	version, flags, rest, err := FullBoxHeader(payload)
	if err != nil {
		return TRUN{}, err
	}
	r := bitstream.NewReader(rest)
	sampleCount, err := r.U32()
	if err != nil {
		return TRUN{}, err
	}

	out := TRUN{Flags: flags}
	if flags&TrunDataOffsetPresent != 0 {
		v, err := r.I32()
		if err != nil {
			return TRUN{}, err
		}
		out.DataOffset = v
		out.HasDataOffset = true
	}
	if flags&TrunFirstSampleFlagsPresent != 0 {
		v, err := r.U32()
		if err != nil {
			return TRUN{}, err
		}
		out.FirstSampleFlags = v
		out.HasFirstSampleFlags = true
	}

	out.Samples = make([]TrunSample, 0, sampleCount)
	for i := uint32(0); i < sampleCount; i++ {
		var s TrunSample
		if flags&TrunSampleDurationPresent != 0 {
			v, err := r.U32()
			if err != nil {
				return TRUN{}, err
			}
			s.Duration = v
		}
		if flags&TrunSampleSizePresent != 0 {
			v, err := r.U32()
			if err != nil {
				return TRUN{}, err
			}
			s.Size = v
		}
		if flags&TrunSampleFlagsPresent != 0 {
			v, err := r.U32()
			if err != nil {
				return TRUN{}, err
			}
			s.Flags = v
		}
		if flags&TrunSampleCompositionTimeOffsetPresent != 0 {
			if version == 0 {
				v, err := r.U32()
				if err != nil {
					return TRUN{}, err
				}
				s.CompositionTimeOffset = int32(v)
			} else {
				v, err := r.I32()
				if err != nil {
					return TRUN{}, err
				}
				s.CompositionTimeOffset = v
			}
		}
		out.Samples = append(out.Samples, s)
	}

	// first_sample_flags (flag 0x4) overrides default/sample flags for
	// sample 0 only.
	if out.HasFirstSampleFlags && len(out.Samples) > 0 {
		out.Samples[0].Flags = out.FirstSampleFlags
	}
	return out, nil
}

// HasMVEX reports whether a moov's children include an mvex box (the
// presence of which marks the movie as fragmented). goremux discards mvex
// in its own output per §4.D — a plain (non-fragmented) conversion never
// carries one forward.
func HasMVEX(moovChildren []Box) bool {
	_, ok := Find(moovChildren, bitstream.BoxMVEX)
	return ok
}
