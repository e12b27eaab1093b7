package isobmff

import "github.com/jmylchreest/goremux/pkg/bitstream"

// MDHD is the decoded content of a media header box.
type MDHD struct {
	Timescale uint32
	Duration  uint64
}

// DecodeMDHD parses an mdhd box payload (version 0 or 1).
func DecodeMDHD(payload []byte) (MDHD, error) {
	version, _, rest, err := FullBoxHeader(payload)
	if err != nil {
		return MDHD{}, err
	}
	r := bitstream.NewReader(rest)

	if version == 1 {
		if _, err := r.U64(); err != nil {
			return MDHD{}, err
		}
		if _, err := r.U64(); err != nil {
			return MDHD{}, err
		}
		ts, err := r.U32()
		if err != nil {
			return MDHD{}, err
		}
		dur, err := r.U64()
		if err != nil {
			return MDHD{}, err
		}
		return MDHD{Timescale: ts, Duration: dur}, nil
	}
	if _, err := r.U32(); err != nil {
		return MDHD{}, err
	}
	if _, err := r.U32(); err != nil {
		return MDHD{}, err
	}
	ts, err := r.U32()
	if err != nil {
		return MDHD{}, err
	}
	dur, err := r.U32()
	if err != nil {
		return MDHD{}, err
	}
	return MDHD{Timescale: ts, Duration: uint64(dur)}, nil
}

// HDLR is the decoded content of a handler-reference box.
type HDLR struct {
	HandlerType bitstream.FourCC // "vide" or "soun"
}

// DecodeHDLR parses an hdlr box payload.
func DecodeHDLR(payload []byte) (HDLR, error) {
	_, _, rest, err := FullBoxHeader(payload)
	if err != nil {
		return HDLR{}, err
	}
	r := bitstream.NewReader(rest)
	if _, err := r.U32(); err != nil { // pre_defined
		return HDLR{}, err
	}
	ht, err := r.U32()
	if err != nil {
		return HDLR{}, err
	}
	return HDLR{HandlerType: bitstream.FourCC(ht)}, nil
}
