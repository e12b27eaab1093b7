package bitstream

// SplitAnnexB scans data for Annex-B start codes (00 00 01 or 00 00 00 01)
// and returns the NAL payloads between them, in order. Scanning stops at
// buffer end; a trailing incomplete start code (fewer than 3 zero-prefixed
// bytes at the tail) is discarded rather than emitted as a partial NAL.
// Emulation-prevention bytes are never interpreted — callers get the raw
// payload exactly as it appears in the source, matching the remux contract
// of rewriting containers without touching sample bytes.
func SplitAnnexB(data []byte) [][]byte {
	starts := findStartCodes(data)
	if len(starts) == 0 {
		return nil
	}

	nalus := make([][]byte, 0, len(starts))
	for i, s := range starts {
		begin := s.end
		var end int
		if i+1 < len(starts) {
			end = starts[i+1].start
		} else {
			// Zero bytes at the tail are an incomplete start code, not payload.
			end = len(data)
			for end > begin && data[end-1] == 0 {
				end--
			}
		}
		if end > begin {
			nalus = append(nalus, data[begin:end])
		}
	}
	return nalus
}

type startCode struct {
	start, end int
}

// findStartCodes locates every 00 00 01 / 00 00 00 01 marker in data.
func findStartCodes(data []byte) []startCode {
	var out []startCode
	i := 0
	for i+2 < len(data) {
		if data[i] == 0 && data[i+1] == 0 && data[i+2] == 1 {
			start := i
			// Absorb a preceding zero byte to recognize the 4-byte form,
			// but only if it is not already claimed by the previous code.
			if start > 0 && data[start-1] == 0 && (len(out) == 0 || out[len(out)-1].end <= start-1) {
				start--
			}
			out = append(out, startCode{start: start, end: i + 3})
			i += 3
			continue
		}
		i++
	}
	return out
}

// IsH264IDR reports whether an Annex-B access unit contains an H.264 IDR
// slice (NAL unit type 5).
func IsH264IDR(au [][]byte) bool {
	for _, nalu := range au {
		if len(nalu) == 0 {
			continue
		}
		if nalu[0]&0x1F == 5 {
			return true
		}
	}
	return false
}

// IsH265IDR reports whether an Annex-B access unit contains an HEVC VCL NAL
// of IDR type (19 = IDR_W_RADL, 20 = IDR_N_LP).
func IsH265IDR(au [][]byte) bool {
	for _, nalu := range au {
		if len(nalu) == 0 {
			continue
		}
		naluType := (nalu[0] >> 1) & 0x3F
		if naluType == 19 || naluType == 20 {
			return true
		}
	}
	return false
}
