package mp4write

import "github.com/jmylchreest/goremux/pkg/bitstream"

// identityMatrix is the unity transformation matrix used by mvhd/tkhd.
var identityMatrix = []uint32{0x00010000, 0, 0, 0, 0x00010000, 0, 0, 0, 0x40000000}

func writeMatrix(w *bitstream.Writer) {
	for _, v := range identityMatrix {
		w.U32(v)
	}
}

func box(typ bitstream.FourCC, payload []byte) []byte {
	w := bitstream.NewWriter(8 + len(payload))
	w.U32(uint32(8 + len(payload)))
	w.WriteBytes([]byte(typ.String()))
	w.WriteBytes(payload)
	return w.Bytes()
}

func fullBoxPrefix(version uint8, flags uint32) []byte {
	w := bitstream.NewWriter(4)
	w.U8(version)
	w.U24(flags)
	return w.Bytes()
}

func concatBoxes(boxes ...[]byte) []byte {
	var out []byte
	for _, b := range boxes {
		out = append(out, b...)
	}
	return out
}

func buildFTYP() []byte {
	w := bitstream.NewWriter(16)
	w.WriteBytes([]byte("isom")) // major_brand
	w.U32(1)                     // minor_version
	w.WriteBytes([]byte("isom"))
	w.WriteBytes([]byte("avc1"))
	return box(bitstream.BoxFTYP, w.Bytes())
}

func buildMVHD(timescale uint32, duration uint64, nextTrackID uint32) []byte {
	w := bitstream.NewWriter(100)
	w.WriteBytes(fullBoxPrefix(0, 0))
	w.U32(0) // creation_time
	w.U32(0) // modification_time
	w.U32(timescale)
	w.U32(uint32(duration))
	w.U32(0x00010000) // rate = 1.0
	w.U16(0x0100)     // volume = 1.0
	w.U16(0)          // reserved
	w.U32(0)          // reserved
	w.U32(0)          // reserved
	writeMatrix(w)
	w.WriteBytes(make([]byte, 24)) // pre_defined
	w.U32(nextTrackID)
	return box(bitstream.BoxMVHD, w.Bytes())
}

func buildTKHD(trackID uint32, duration uint64, width, height uint32, isAudio bool) []byte {
	w := bitstream.NewWriter(90)
	flags := uint32(0x000007) // enabled | in_movie | in_preview
	w.WriteBytes(fullBoxPrefix(0, flags))
	w.U32(0) // creation_time
	w.U32(0) // modification_time
	w.U32(trackID)
	w.U32(0) // reserved
	w.U32(uint32(duration))
	w.U32(0) // reserved
	w.U32(0) // reserved
	w.U16(0) // layer
	w.U16(0) // alternate_group
	if isAudio {
		w.U16(0x0100)
	} else {
		w.U16(0)
	}
	w.U16(0) // reserved
	writeMatrix(w)
	w.U32(width)
	w.U32(height)
	return box(bitstream.BoxTKHD, w.Bytes())
}

func buildMDHD(timescale uint32, duration uint64) []byte {
	w := bitstream.NewWriter(24)
	w.WriteBytes(fullBoxPrefix(0, 0))
	w.U32(0) // creation_time
	w.U32(0) // modification_time
	w.U32(timescale)
	w.U32(uint32(duration))
	w.U16(0x55C4) // language = "und"
	w.U16(0)      // pre_defined
	return box(bitstream.BoxMDHD, w.Bytes())
}

func buildHDLR(handlerType bitstream.FourCC, name string) []byte {
	w := bitstream.NewWriter(24 + len(name) + 1)
	w.WriteBytes(fullBoxPrefix(0, 0))
	w.U32(0) // pre_defined
	w.WriteBytes([]byte(handlerType.String()))
	w.WriteBytes(make([]byte, 12)) // reserved
	w.WriteBytes([]byte(name))
	w.U8(0) // name is null-terminated
	return box(bitstream.BoxHDLR, w.Bytes())
}

func buildVMHD() []byte {
	w := bitstream.NewWriter(8)
	w.WriteBytes(fullBoxPrefix(0, 1))
	w.U16(0) // graphicsmode
	w.U16(0) // opcolor r
	w.U16(0) // opcolor g
	w.U16(0) // opcolor b
	return box(bitstream.BoxVMHD, w.Bytes())
}

func buildSMHD() []byte {
	w := bitstream.NewWriter(4)
	w.WriteBytes(fullBoxPrefix(0, 0))
	w.U16(0) // balance
	w.U16(0) // reserved
	return box(bitstream.BoxSMHD, w.Bytes())
}

func buildDINF() []byte {
	urlBox := box(bitstream.BoxURL, fullBoxPrefix(0, 1)) // self-contained, no string
	w := bitstream.NewWriter(4 + len(urlBox))
	w.WriteBytes(fullBoxPrefix(0, 0))
	w.U32(1) // entry_count
	w.WriteBytes(urlBox)
	dref := box(bitstream.BoxDREF, w.Bytes())
	return box(bitstream.BoxDINF, dref)
}

func buildAVC1(t *Track) []byte {
	w := bitstream.NewWriter(78)
	w.WriteBytes(make([]byte, 6)) // reserved
	w.U16(1)                      // data_reference_index
	w.U16(0)                      // pre_defined
	w.U16(0)                      // reserved
	w.WriteBytes(make([]byte, 12)) // pre_defined
	w.U16(t.VideoWidth)
	w.U16(t.VideoHeight)
	w.U32(0x00480000) // horizresolution = 72 dpi
	w.U32(0x00480000) // vertresolution = 72 dpi
	w.U32(0)          // reserved
	w.U16(1)          // frame_count
	w.WriteBytes(make([]byte, 32)) // compressorname
	w.U16(0x0018)                  // depth
	w.U16(0xFFFF)                  // pre_defined

	// HEVC sample-table construction beyond passthrough is out of scope: a
	// hev1 track must arrive with a pre-built hvcC in CodecConfig (carried
	// straight through from an fMP4 source); goremux never synthesizes one
	// from VPS/SPS/PPS.
	configBox := t.CodecBox
	videoConfig := t.CodecConfig
	if videoConfig == nil {
		configBox = bitstream.BoxAVCC
		videoConfig = buildAVCC(t.VideoSPS, t.VideoPPS)
	}
	w.WriteBytes(box(configBox, videoConfig))
	w.WriteBytes(box(bitstream.BoxBTRT, buildBTRT()))
	w.WriteBytes(box(bitstream.BoxPASP, buildPASP()))

	entryBox := bitstream.BoxAVC1
	if t.CodecBox == bitstream.BoxHVCC {
		entryBox = bitstream.BoxHEV1
	}
	return box(entryBox, w.Bytes())
}

func buildBTRT() []byte {
	w := bitstream.NewWriter(12)
	w.U32(0) // bufferSizeDB
	w.U32(0) // maxBitrate
	w.U32(0) // avgBitrate
	return w.Bytes()
}

func buildPASP() []byte {
	w := bitstream.NewWriter(8)
	w.U32(1) // hSpacing
	w.U32(1) // vSpacing
	return w.Bytes()
}

func buildMP4A(t *Track) []byte {
	w := bitstream.NewWriter(28)
	w.WriteBytes(make([]byte, 6)) // reserved
	w.U16(1)                      // data_reference_index
	w.U32(0)                      // reserved
	w.U32(0)                      // reserved
	w.U16(uint16(t.ChannelConfig))
	w.U16(16) // sample size
	w.U16(0)  // pre_defined
	w.U16(0)  // reserved
	w.U32(uint32(t.SampleRate) << 16)

	esds := t.CodecConfig
	if esds == nil {
		asc := t.AudioSpecificConfig
		if asc == nil {
			asc = buildAudioSpecificConfig(t.SampleRate, t.ChannelConfig)
		}
		esds = buildESDS(asc)
	}
	w.WriteBytes(box(bitstream.BoxESDS, esds))
	return box(bitstream.BoxMP4A, w.Bytes())
}

func buildSTSD(t *Track) []byte {
	var entry []byte
	if t.Kind == TrackVideo {
		entry = buildAVC1(t)
	} else {
		entry = buildMP4A(t)
	}
	w := bitstream.NewWriter(8 + len(entry))
	w.WriteBytes(fullBoxPrefix(0, 0))
	w.U32(1) // entry_count
	w.WriteBytes(entry)
	return box(bitstream.BoxSTSD, w.Bytes())
}

func buildSTTS(entries []sttsEntry) []byte {
	w := bitstream.NewWriter(8 + 8*len(entries))
	w.WriteBytes(fullBoxPrefix(0, 0))
	w.U32(uint32(len(entries)))
	for _, e := range entries {
		w.U32(e.count)
		w.U32(e.delta)
	}
	return box(bitstream.BoxSTTS, w.Bytes())
}

func buildCTTS(entries []cttsEntry) []byte {
	w := bitstream.NewWriter(8 + 8*len(entries))
	w.WriteBytes(fullBoxPrefix(0, 0))
	w.U32(uint32(len(entries)))
	for _, e := range entries {
		w.U32(e.count)
		w.I32(e.offset)
	}
	return box(bitstream.BoxCTTS, w.Bytes())
}

func buildSTSS(indices []uint32) []byte {
	w := bitstream.NewWriter(8 + 4*len(indices))
	w.WriteBytes(fullBoxPrefix(0, 0))
	w.U32(uint32(len(indices)))
	for _, idx := range indices {
		w.U32(idx)
	}
	return box(bitstream.BoxSTSS, w.Bytes())
}

func buildSTSC(samplesPerChunk uint32) []byte {
	w := bitstream.NewWriter(20)
	w.WriteBytes(fullBoxPrefix(0, 0))
	w.U32(1) // entry_count
	w.U32(1) // first_chunk
	w.U32(samplesPerChunk)
	w.U32(1) // sample_description_index
	return box(bitstream.BoxSTSC, w.Bytes())
}

func buildSTSZ(sizes []uint32) []byte {
	w := bitstream.NewWriter(12 + 4*len(sizes))
	w.WriteBytes(fullBoxPrefix(0, 0))
	w.U32(0) // sample_size = 0 (variable)
	w.U32(uint32(len(sizes)))
	for _, s := range sizes {
		w.U32(s)
	}
	return box(bitstream.BoxSTSZ, w.Bytes())
}

func buildSTCO(offset uint32) []byte {
	w := bitstream.NewWriter(12)
	w.WriteBytes(fullBoxPrefix(0, 0))
	w.U32(1) // entry_count
	w.U32(offset)
	return box(bitstream.BoxSTCO, w.Bytes())
}

func buildELST(el *EditList, movieTimescale uint32) []byte {
	w := bitstream.NewWriter(20)
	w.WriteBytes(fullBoxPrefix(0, 0))
	w.U32(1) // entry_count
	w.U32(el.SegmentDuration)
	w.I32(int32(el.MediaTime))
	w.U32(0x00010000) // rate = 1.0
	elst := box(bitstream.BoxELST, w.Bytes())
	return box(bitstream.BoxEDTS, elst)
}
