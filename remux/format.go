// Package remux is the public entry point: format detection plus the
// convert/stitch/analyze operations of §6, bridging pkg/mpegts, pkg/fmp4,
// pkg/clip and pkg/mp4write into the single-call API a caller uses.
package remux

import (
	"github.com/jmylchreest/goremux/pkg/rmerrors"
)

// Format identifies which container a source buffer is encoded as.
type Format int

const (
	// FormatUnknown means DetectFormat could not classify the buffer.
	FormatUnknown Format = iota
	// FormatMPEGTS is an MPEG-2 Transport Stream (0x47 sync bytes every
	// 188 bytes).
	FormatMPEGTS
	// FormatISOBMFF is a standard (non-fragmented) ISO-BMFF file: ftyp
	// followed eventually by moov with no moof.
	FormatISOBMFF
	// FormatFragmentedISOBMFF is a fragmented ISO-BMFF stream: an init
	// segment (ftyp/styp + moov) followed by one or more moof/mdat pairs.
	FormatFragmentedISOBMFF
)

// DetectFormat classifies data per §6's format-detection contract: MPEG-TS
// is recognized by a 0x47 sync byte recurring every 188 bytes; ISO-BMFF is
// recognized by a top-level box whose type is ftyp, styp, or moof, then
// further classified as fragmented (moof present) or not (moov only).
func DetectFormat(data []byte) (Format, error) {
	if len(data) == 0 {
		return FormatUnknown, rmerrors.New(rmerrors.KindEmptyStream, "empty input")
	}

	if looksLikeMPEGTS(data) {
		return FormatMPEGTS, nil
	}
	if f, ok := detectISOBMFF(data); ok {
		return f, nil
	}
	return FormatUnknown, rmerrors.MalformedContainer("unrecognized container format")
}

// looksLikeMPEGTS reports whether data has 0x47 sync bytes at a consistent
// 188-byte stride, starting from offset 0 or any of the first 188 offsets.
func looksLikeMPEGTS(data []byte) bool {
	const packetSize = 188
	if len(data) < packetSize {
		return false
	}
	for start := 0; start < packetSize && start < len(data); start++ {
		if data[start] != 0x47 {
			continue
		}
		packets := 0
		for off := start; off < len(data); off += packetSize {
			if data[off] != 0x47 {
				break
			}
			packets++
		}
		if packets >= 2 || (packets == 1 && len(data)-start < 2*packetSize) {
			return true
		}
	}
	return false
}

// detectISOBMFF inspects the top-level box sequence's type tags to decide
// between standard and fragmented ISO-BMFF, without a full box parse.
func detectISOBMFF(data []byte) (Format, bool) {
	hasMoov, hasMoof := false, false
	offset := 0
	for offset+8 <= len(data) {
		size := int(uint32FromBytes(data[offset : offset+4]))
		typ := string(data[offset+4 : offset+8])
		switch typ {
		case "ftyp", "styp", "free", "skip", "pdin", "sidx":
			// recognized but not decisive
		case "moov":
			hasMoov = true
		case "moof":
			hasMoof = true
		default:
			if offset == 0 {
				return FormatUnknown, false
			}
		}
		if size < 8 {
			break
		}
		offset += size
	}
	if !hasMoov && !hasMoof {
		return FormatUnknown, false
	}
	if hasMoof {
		return FormatFragmentedISOBMFF, true
	}
	return FormatISOBMFF, true
}

func uint32FromBytes(b []byte) uint32 {
	return uint32(b[0])<<24 | uint32(b[1])<<16 | uint32(b[2])<<8 | uint32(b[3])
}
