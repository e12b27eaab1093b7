package mpegts

import (
	"github.com/jmylchreest/goremux/pkg/bitstream"
	"github.com/jmylchreest/goremux/pkg/rmerrors"
)

// pesHeader is the decoded result of a PES packet: its timestamps and the
// elementary payload that follows the header.
type pesHeader struct {
	PTS     int64
	DTS     int64
	HasPTS  bool
	Payload []byte
}

// decodePES parses one reassembled PES packet per §4.B: start code
//00 00 01, stream_id, pes_packet_length, then the optional header fields.
// DTS defaults to PTS when no DTS flag is set.
func decodePES(data []byte) (pesHeader, error) {
	if len(data) < 9 {
		return pesHeader{}, rmerrors.MalformedContainer("PES packet truncated")
	}
	if data[0] != 0x00 || data[1] != 0x00 || data[2] != 0x01 {
		return pesHeader{}, rmerrors.MalformedContainer("PES start code missing")
	}
	flags2 := data[7]
	headerDataLength := int(data[8])
	optionalStart := 9
	if optionalStart+headerDataLength > len(data) {
		return pesHeader{}, rmerrors.MalformedContainer("PES optional header truncated")
	}
	payloadStart := optionalStart + headerDataLength

	ptsDTSFlags := (flags2 >> 6) & 0x3
	var out pesHeader
	out.Payload = data[payloadStart:]

	off := optionalStart
	if ptsDTSFlags == 0x2 || ptsDTSFlags == 0x3 {
		if off+5 > len(data) {
			return pesHeader{}, rmerrors.MalformedContainer("PES PTS field truncated")
		}
		var b [5]byte
		copy(b[:], data[off:off+5])
		pts, err := bitstream.DecodePTS(b)
		if err != nil {
			return pesHeader{}, rmerrors.Wrap(rmerrors.KindMalformedContainer, "PES PTS field invalid", err)
		}
		out.PTS = int64(pts)
		out.HasPTS = true
		out.DTS = out.PTS
		off += 5

		if ptsDTSFlags == 0x3 {
			if off+5 > len(data) {
				return pesHeader{}, rmerrors.MalformedContainer("PES DTS field truncated")
			}
			var db [5]byte
			copy(db[:], data[off:off+5])
			dts, err := bitstream.DecodePTS(db)
			if err != nil {
				return pesHeader{}, rmerrors.Wrap(rmerrors.KindMalformedContainer, "PES DTS field invalid", err)
			}
			out.DTS = int64(dts)
		}
	}
	return out, nil
}
