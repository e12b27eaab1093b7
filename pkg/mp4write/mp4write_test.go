package mp4write

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmylchreest/goremux/pkg/bitstream"
	"github.com/jmylchreest/goremux/pkg/isobmff"
)

func sampleSPSPPS() ([]byte, []byte) {
	sps := []byte{0x67, 0x64, 0x00, 0x1F, 0xAA, 0xBB, 0xCC}
	pps := []byte{0x68, 0xEB}
	return sps, pps
}

func buildTestInput() Input {
	sps, pps := sampleSPSPPS()
	video := &Track{
		TrackID:     1,
		Kind:        TrackVideo,
		Timescale:   90000,
		VideoWidth:  1280,
		VideoHeight: 720,
		VideoSPS:    sps,
		VideoPPS:    pps,
		Samples: []Sample{
			{Payload: make([]byte, 10), Duration: 3000, CompositionOffset: 3000, IsKeyframe: true},
			{Payload: make([]byte, 12), Duration: 3000, CompositionOffset: 0, IsKeyframe: false},
		},
	}
	audio := &Track{
		TrackID:       2,
		Kind:          TrackAudio,
		Timescale:     48000,
		SampleRate:    48000,
		ChannelConfig: 2,
		Samples: []Sample{
			{Payload: make([]byte, 8), Duration: 1024},
		},
	}
	return Input{Tracks: []*Track{video, audio}}
}

func TestWriteBasicLayout(t *testing.T) {
	out, err := Write(buildTestInput())
	require.NoError(t, err)

	boxes := isobmff.ReadBoxes(out)
	ftyp, ok := isobmff.Find(boxes, bitstream.BoxFTYP)
	require.True(t, ok)
	moovBox, ok := isobmff.Find(boxes, bitstream.BoxMOOV)
	require.True(t, ok)
	mdatBox, ok := isobmff.Find(boxes, bitstream.BoxMDAT)
	require.True(t, ok)

	assert.Equal(t, 0, ftyp.Offset)
	mdatContentOffset := mdatBox.Offset + 8
	assert.Equal(t, len(mdatBox.Payload), 10+12+8)

	moovChildren := isobmff.Children(moovBox.Payload)
	mvhdBox, ok := isobmff.Find(moovChildren, bitstream.BoxMVHD)
	require.True(t, ok)
	mvhd, err := isobmff.DecodeMVHD(mvhdBox.Payload)
	require.NoError(t, err)
	assert.Equal(t, uint32(90000), mvhd.Timescale)
	assert.Equal(t, uint32(3), mvhd.NextTrackID)

	var traks []isobmff.Box
	for _, b := range moovChildren {
		if b.Type == bitstream.BoxTRAK {
			traks = append(traks, b)
		}
	}
	require.Len(t, traks, 2)

	videoStco := decodeTrakSTCO(t, traks[0])
	require.Len(t, videoStco, 1)
	assert.Equal(t, uint32(mdatContentOffset), videoStco[0])

	audioStco := decodeTrakSTCO(t, traks[1])
	require.Len(t, audioStco, 1)
	assert.Equal(t, uint32(mdatContentOffset+22), audioStco[0]) // 22 = 10+12 video bytes

	videoStts := decodeTrakSTTS(t, traks[0])
	require.Len(t, videoStts, 1) // both samples share delta=3000, RLE collapses to one entry
	assert.Equal(t, uint32(2), videoStts[0].SampleCount)
	assert.Equal(t, uint32(3000), videoStts[0].SampleDelta)

	videoStss := decodeTrakSTSS(t, traks[0])
	assert.Equal(t, []uint32{1}, videoStss)
}

func decodeStbl(t testing.TB, trak isobmff.Box) isobmff.Box {
	t.Helper()
	mdia, ok := isobmff.Find(isobmff.Children(trak.Payload), bitstream.BoxMDIA)
	require.True(t, ok)
	minf, ok := isobmff.Find(isobmff.Children(mdia.Payload), bitstream.BoxMINF)
	require.True(t, ok)
	stbl, ok := isobmff.Find(isobmff.Children(minf.Payload), bitstream.BoxSTBL)
	require.True(t, ok)
	return stbl
}

func decodeTrakSTCO(t testing.TB, trak isobmff.Box) []uint32 {
	stbl := decodeStbl(t, trak)
	stcoBox, ok := isobmff.Find(isobmff.Children(stbl.Payload), bitstream.BoxSTCO)
	require.True(t, ok)
	offsets, err := isobmff.DecodeSTCO(stcoBox.Payload)
	require.NoError(t, err)
	return offsets
}

func decodeTrakSTTS(t testing.TB, trak isobmff.Box) []isobmff.SttsEntry {
	stbl := decodeStbl(t, trak)
	sttsBox, ok := isobmff.Find(isobmff.Children(stbl.Payload), bitstream.BoxSTTS)
	require.True(t, ok)
	entries, err := isobmff.DecodeSTTS(sttsBox.Payload)
	require.NoError(t, err)
	return entries
}

func decodeTrakSTSS(t testing.TB, trak isobmff.Box) []uint32 {
	stbl := decodeStbl(t, trak)
	stssBox, ok := isobmff.Find(isobmff.Children(stbl.Payload), bitstream.BoxSTSS)
	require.True(t, ok)
	indices, err := isobmff.DecodeSTSS(stssBox.Payload)
	require.NoError(t, err)
	return indices
}

func TestWriteRequiresTracks(t *testing.T) {
	_, err := Write(Input{})
	assert.Error(t, err)
}
