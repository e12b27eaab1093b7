package bitstream

// ADTSSampleRates maps the 4-bit ADTS sampling-frequency index to Hz, per
// the GLOSSARY table (index 13-15 are reserved/unused).
var ADTSSampleRates = [16]int{
	96000, 88200, 64000, 48000, 44100, 32000, 24000,
	22050, 16000, 12000, 11025, 8000, 7350, 0, 0, 0,
}

// ADTSFrame is one demuxed AAC frame: the raw payload with its ADTS header
// stripped, plus the header fields needed to configure the output track the
// first time a frame is seen.
type ADTSFrame struct {
	Payload       []byte
	ProfileType   int // MPEG-4 audio object type (ADTS profile + 1)
	SampleRateIdx int
	SampleRate    int
	ChannelConfig int
}

// ScanADTS scans data for ADTS frames (sync pattern 0xFFF). It returns the
// complete frames found in order and any trailing bytes that did not form a
// complete frame — callers prepend those to the next PES payload's audio
// data, per §4.B's "partial trailing ADTS frames are retained" rule.
func ScanADTS(data []byte) (frames []ADTSFrame, trailing []byte) {
	i := 0
	for {
		// Resync: find FFFx without requiring a full header yet, so a
		// genuine sync pattern sitting in a short tail is still recognized.
		for i+2 <= len(data) && !(data[i] == 0xFF && (data[i+1]&0xF0) == 0xF0) {
			i++
		}
		if i+2 > len(data) {
			break
		}
		if i+7 > len(data) {
			// Sync pattern found but not enough bytes for a full header yet.
			trailing = append([]byte(nil), data[i:]...)
			break
		}

		protectionAbsent := data[i+1] & 0x01
		headerLen := 7
		if protectionAbsent == 0 {
			headerLen = 9
		}

		profile := int(data[i+2] >> 6)
		sampleRateIdx := int((data[i+2] >> 2) & 0x0F)
		channelConfig := int((data[i+2]&0x01)<<2 | (data[i+3] >> 6))
		frameLength := int(data[i+3]&0x03)<<11 | int(data[i+4])<<3 | int(data[i+5]>>5)

		if frameLength < headerLen || i+frameLength > len(data) {
			// Incomplete frame at the tail; retain from the sync point on.
			trailing = append([]byte(nil), data[i:]...)
			return frames, trailing
		}

		payload := data[i+headerLen : i+frameLength]
		frames = append(frames, ADTSFrame{
			Payload:       payload,
			ProfileType:   profile + 1, // ADTS profile is objectType-1
			SampleRateIdx: sampleRateIdx,
			SampleRate:    ADTSSampleRates[sampleRateIdx&0x0F],
			ChannelConfig: channelConfig,
		})

		i += frameLength
	}
	return frames, trailing
}
