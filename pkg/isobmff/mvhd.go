package isobmff

import "github.com/jmylchreest/goremux/pkg/bitstream"

// MVHD is the decoded content of a movie header box.
type MVHD struct {
	Timescale   uint32
	Duration    uint64
	NextTrackID uint32
}

// DecodeMVHD parses an mvhd box payload (version 0 or 1).
func DecodeMVHD(payload []byte) (MVHD, error) {
	version, _, rest, err := FullBoxHeader(payload)
	if err != nil {
		return MVHD{}, err
	}
	r := bitstream.NewReader(rest)

	var mvhd MVHD
	if version == 1 {
		if _, err := r.U64(); err != nil { // creation_time
			return MVHD{}, err
		}
		if _, err := r.U64(); err != nil { // modification_time
			return MVHD{}, err
		}
		ts, err := r.U32()
		if err != nil {
			return MVHD{}, err
		}
		dur, err := r.U64()
		if err != nil {
			return MVHD{}, err
		}
		mvhd.Timescale, mvhd.Duration = ts, dur
	} else {
		if _, err := r.U32(); err != nil { // creation_time
			return MVHD{}, err
		}
		if _, err := r.U32(); err != nil { // modification_time
			return MVHD{}, err
		}
		ts, err := r.U32()
		if err != nil {
			return MVHD{}, err
		}
		dur, err := r.U32()
		if err != nil {
			return MVHD{}, err
		}
		mvhd.Timescale, mvhd.Duration = ts, uint64(dur)
	}

	// rate(4) + volume(2) + reserved(2) + reserved(8) + matrix(36) +
	// predefined(24) = 76 bytes before next_track_ID.
	if err := r.Skip(76); err != nil {
		return mvhd, nil //nolint:nilerr // next_track_ID is informational only
	}
	next, err := r.U32()
	if err == nil {
		mvhd.NextTrackID = next
	}
	return mvhd, nil
}
