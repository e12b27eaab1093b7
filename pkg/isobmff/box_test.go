package isobmff

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmylchreest/goremux/pkg/bitstream"
)

func makeBox(t testing.TB, typ string, payload []byte) []byte {
	t.Helper()
	w := bitstream.NewWriter(8 + len(payload))
	w.U32(uint32(8 + len(payload)))
	w.WriteBytes([]byte(typ))
	w.WriteBytes(payload)
	return w.Bytes()
}

func TestReadBoxesTopLevel(t *testing.T) {
	ftyp := makeBox(t, "ftyp", []byte("isomisom"))
	moov := makeBox(t, "moov", []byte{1, 2, 3, 4})
	buf := append(append([]byte{}, ftyp...), moov...)

	boxes := ReadBoxes(buf)
	require.Len(t, boxes, 2)
	assert.Equal(t, bitstream.BoxFTYP, boxes[0].Type)
	assert.Equal(t, 0, boxes[0].Offset)
	assert.Equal(t, bitstream.BoxMOOV, boxes[1].Type)
	assert.Equal(t, len(ftyp), boxes[1].Offset)
}

func TestReadBoxesStopsOnTruncation(t *testing.T) {
	buf := []byte{0, 0, 0, 100, 'm', 'o', 'o', 'v'} // claims size 100 but buffer is 8
	boxes := ReadBoxes(buf)
	assert.Empty(t, boxes)
}

func TestReadBoxesRejectsUndersizedHeader(t *testing.T) {
	buf := []byte{0, 0, 0, 4, 'm', 'o', 'o', 'v'} // size 4 < minimum 8
	boxes := ReadBoxes(buf)
	assert.Empty(t, boxes)
}

func TestFindPath(t *testing.T) {
	mdhd := makeBox(t, "mdhd", make([]byte, 16))
	mdia := makeBox(t, "mdia", mdhd)
	trak := makeBox(t, "trak", mdia)
	boxes := ReadBoxes(trak)

	got, ok := FindPath(boxes, bitstream.NewFourCC("mdia"), bitstream.NewFourCC("mdhd"))
	require.True(t, ok)
	assert.Equal(t, bitstream.BoxMDHD, got.Type)
}

func TestDecodeMVHD(t *testing.T) {
	// version(1)=0, flags(3)=0, creation(4), modification(4), timescale(4)=90000, duration(4)=900000
	w := bitstream.NewWriter(0)
	w.U32(0) // version+flags
	w.U32(0) // creation
	w.U32(0) // modification
	w.U32(90000)
	w.U32(900000)
	w.WriteBytes(make([]byte, 76))
	w.U32(3) // next_track_ID

	mvhd, err := DecodeMVHD(w.Bytes())
	require.NoError(t, err)
	assert.Equal(t, uint32(90000), mvhd.Timescale)
	assert.Equal(t, uint64(900000), mvhd.Duration)
	assert.Equal(t, uint32(3), mvhd.NextTrackID)
}

func TestDecodeSTTSAndSTSS(t *testing.T) {
	w := bitstream.NewWriter(0)
	w.U32(0)
	w.U32(2)
	w.U32(10)
	w.U32(3003)
	w.U32(1)
	w.U32(3000)
	entries, err := DecodeSTTS(w.Bytes())
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, SttsEntry{SampleCount: 10, SampleDelta: 3003}, entries[0])

	w2 := bitstream.NewWriter(0)
	w2.U32(0)
	w2.U32(2)
	w2.U32(1)
	w2.U32(31)
	idx, err := DecodeSTSS(w2.Bytes())
	require.NoError(t, err)
	assert.Equal(t, []uint32{1, 31}, idx)
}

func TestDecodeTRUNVersion1WithFlags(t *testing.T) {
	flags := uint32(TrunSampleDurationPresent | TrunSampleSizePresent | TrunSampleCompositionTimeOffsetPresent | TrunFirstSampleFlagsPresent)
	w := bitstream.NewWriter(0)
	w.U8(1) // version 1
	w.U24(flags)
	w.U32(2) // sample_count
	w.U32(0x02000000) // first_sample_flags
	// sample 1
	w.U32(3000)
	w.U32(512)
	w.I32(-100)
	// sample 2
	w.U32(3000)
	w.U32(480)
	w.I32(200)

	trun, err := DecodeTRUN(w.Bytes())
	require.NoError(t, err)
	require.Len(t, trun.Samples, 2)
	assert.Equal(t, uint32(0x02000000), trun.Samples[0].Flags)
	assert.Equal(t, int32(-100), trun.Samples[0].CompositionTimeOffset)
	assert.Equal(t, uint32(480), trun.Samples[1].Size)
}

func TestDecodeTFHDOptionalFields(t *testing.T) {
	flags := uint32(TFHDDefaultSampleDurationPresent | TFHDDefaultSampleSizePresent | TFHDDefaultSampleFlagsPresent)
	w := bitstream.NewWriter(0)
	w.U8(0)
	w.U24(flags)
	w.U32(1) // track_ID
	w.U32(3000)
	w.U32(1024)
	w.U32(0x01010000)

	tfhd, err := DecodeTFHD(w.Bytes())
	require.NoError(t, err)
	assert.Equal(t, uint32(1), tfhd.TrackID)
	assert.Equal(t, uint32(3000), tfhd.DefaultSampleDuration)
	assert.Equal(t, uint32(1024), tfhd.DefaultSampleSize)
	assert.False(t, tfhd.HasBaseDataOffset)
}
