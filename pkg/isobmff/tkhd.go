package isobmff

import "github.com/jmylchreest/goremux/pkg/bitstream"

// TKHD is the decoded content of a track header box.
type TKHD struct {
	TrackID  uint32
	Duration uint64
	Width    uint32 // 16.16 fixed point
	Height   uint32 // 16.16 fixed point
}

// DecodeTKHD parses a tkhd box payload (version 0 or 1).
func DecodeTKHD(payload []byte) (TKHD, error) {
	version, _, rest, err := FullBoxHeader(payload)
	if err != nil {
		return TKHD{}, err
	}
	r := bitstream.NewReader(rest)

	var tkhd TKHD
	if version == 1 {
		if _, err := r.U64(); err != nil {
			return TKHD{}, err
		}
		if _, err := r.U64(); err != nil {
			return TKHD{}, err
		}
		id, err := r.U32()
		if err != nil {
			return TKHD{}, err
		}
		if _, err := r.U32(); err != nil { // reserved
			return TKHD{}, err
		}
		dur, err := r.U64()
		if err != nil {
			return TKHD{}, err
		}
		tkhd.TrackID, tkhd.Duration = id, dur
	} else {
		if _, err := r.U32(); err != nil {
			return TKHD{}, err
		}
		if _, err := r.U32(); err != nil {
			return TKHD{}, err
		}
		id, err := r.U32()
		if err != nil {
			return TKHD{}, err
		}
		if _, err := r.U32(); err != nil {
			return TKHD{}, err
		}
		dur, err := r.U32()
		if err != nil {
			return TKHD{}, err
		}
		tkhd.TrackID, tkhd.Duration = id, uint64(dur)
	}

	// reserved(8) + layer(2) + alternate_group(2) + volume(2) + reserved(2)
	// + matrix(36) = 52 bytes before width/height.
	if err := r.Skip(52); err != nil {
		return tkhd, nil
	}
	w, err1 := r.U32()
	h, err2 := r.U32()
	if err1 == nil && err2 == nil {
		tkhd.Width, tkhd.Height = w, h
	}
	return tkhd, nil
}
