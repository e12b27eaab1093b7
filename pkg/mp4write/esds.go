package mp4write

import "github.com/jmylchreest/goremux/pkg/bitstream"

// sampleRateIndex maps a sampling frequency to its AudioSpecificConfig
// table index (GLOSSARY). 48000 is the fallback per I5 when the rate is
// not one of the canonical ADTS frequencies.
func sampleRateIndex(rate int) uint8 {
	table := []int{96000, 88200, 64000, 48000, 44100, 32000, 24000, 22050, 16000, 12000, 11025, 8000, 7350}
	for i, r := range table {
		if r == rate {
			return uint8(i)
		}
	}
	return 3 // 48000
}

// buildAudioSpecificConfig constructs the minimal 2-byte AAC-LC
// AudioSpecificConfig: audioObjectType=2 (LC), samplingFrequencyIndex,
// channelConfiguration, and a zeroed GASpecificConfig tail.
func buildAudioSpecificConfig(sampleRate, channelConfig int) []byte {
	freqIdx := sampleRateIndex(sampleRate)
	ch := uint8(channelConfig)
	b := make([]byte, 2)
	b[0] = (2 << 3) | (freqIdx >> 1)
	b[1] = (freqIdx&0x01)<<7 | (ch&0x0F)<<3
	return b
}

// writeDescrLen appends an MPEG-4 expandable-class descriptor length: every
// byte but the last has its high bit set.
func writeDescrLen(w *bitstream.Writer, n int) {
	for {
		b := byte(n & 0x7F)
		n >>= 7
		if n > 0 {
			w.U8(b | 0x80)
		} else {
			w.U8(b)
			return
		}
	}
}

// buildESDS constructs the esds descriptor chain per §4.E: ES_Descriptor
// wrapping a DecoderConfigDescriptor (object type 0x40, AAC) carrying the
// AudioSpecificConfig, plus a minimal SLConfigDescriptor.
func buildESDS(asc []byte) []byte {
	decoderSpecific := bitstream.NewWriter(2 + len(asc))
	decoderSpecific.U8(0x05)
	writeDescrLen(decoderSpecific, len(asc))
	decoderSpecific.WriteBytes(asc)

	decoderConfigBody := bitstream.NewWriter(13)
	decoderConfigBody.U8(0x40)       // objectTypeIndication: AAC
	decoderConfigBody.U8(5<<2 | 1)   // streamType=5 (audio), upStream=0, reserved=1
	decoderConfigBody.U24(0)         // bufferSizeDB
	decoderConfigBody.U32(0)         // maxBitrate
	decoderConfigBody.U32(0)         // avgBitrate
	decoderConfigBody.WriteBytes(decoderSpecific.Bytes())

	decoderConfig := bitstream.NewWriter(2 + decoderConfigBody.Len())
	decoderConfig.U8(0x04)
	writeDescrLen(decoderConfig, decoderConfigBody.Len())
	decoderConfig.WriteBytes(decoderConfigBody.Bytes())

	slConfig := bitstream.NewWriter(3)
	slConfig.U8(0x06)
	writeDescrLen(slConfig, 1)
	slConfig.U8(0x02) // predefined

	esBody := bitstream.NewWriter(3 + decoderConfig.Len() + slConfig.Len())
	esBody.U16(0) // ES_ID
	esBody.U8(0)  // flags
	esBody.WriteBytes(decoderConfig.Bytes())
	esBody.WriteBytes(slConfig.Bytes())

	es := bitstream.NewWriter(4 + esBody.Len())
	es.U8(0x03)
	writeDescrLen(es, esBody.Len())
	es.WriteBytes(esBody.Bytes())

	full := bitstream.NewWriter(4 + es.Len())
	full.U8(0) // version
	full.U24(0) // flags
	full.WriteBytes(es.Bytes())
	return full.Bytes()
}
