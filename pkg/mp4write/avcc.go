package mp4write

import "github.com/jmylchreest/goremux/pkg/bitstream"

// buildAVCC constructs an AVCDecoderConfigurationRecord per §4.E: profile,
// constraint flags and level are read straight from SPS bytes 1-3;
// length-size-minus-one is fixed at 3 so every NAL in the output mdat is
// prefixed with a 4-byte big-endian length, matching how video samples are
// packaged elsewhere in this writer.
func buildAVCC(sps, pps []byte) []byte {
	w := bitstream.NewWriter(11 + len(sps) + len(pps))
	w.U8(1) // configurationVersion
	if len(sps) >= 4 {
		w.U8(sps[1]) // AVCProfileIndication
		w.U8(sps[2]) // profile_compatibility
		w.U8(sps[3]) // AVCLevelIndication
	} else {
		w.U8(0)
		w.U8(0)
		w.U8(0)
	}
	w.U8(0xFC | 0x03) // reserved(6)=111111, lengthSizeMinusOne(2)=3
	w.U8(0xE0 | 0x01) // reserved(3)=111, numOfSequenceParameterSets(5)=1
	w.U16(uint16(len(sps)))
	w.WriteBytes(sps)
	w.U8(1) // numOfPictureParameterSets
	w.U16(uint16(len(pps)))
	w.WriteBytes(pps)
	return w.Bytes()
}
