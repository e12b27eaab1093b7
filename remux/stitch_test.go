package remux

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmylchreest/goremux/pkg/bitstream"
	"github.com/jmylchreest/goremux/pkg/isobmff"
)

func TestStitchTSTwoSegments(t *testing.T) {
	seg1 := buildConvertibleTS(t)
	seg2 := buildConvertibleTS(t)

	out, err := StitchTS([][]byte{seg1, seg2}, Options{})
	require.NoError(t, err)
	require.NotEmpty(t, out)

	boxes := isobmff.ReadBoxes(out)
	moov, hasMoov := isobmff.Find(boxes, bitstream.BoxMOOV)
	_, hasMdat := isobmff.Find(boxes, bitstream.BoxMDAT)
	require.True(t, hasMoov)
	require.True(t, hasMdat)

	var trakCount int
	for _, b := range isobmff.Children(moov.Payload) {
		if b.Type == bitstream.BoxTRAK {
			trakCount++
		}
	}
	assert.Equal(t, 2, trakCount)
}

func TestStitchTSNoSegments(t *testing.T) {
	_, err := StitchTS(nil, Options{})
	assert.Error(t, err)
}

func TestStitchFMP4TwoSegments(t *testing.T) {
	seg1 := buildConvertibleFMP4(t)
	seg2 := buildConvertibleFMP4(t)

	out, err := StitchFMP4([][]byte{seg1, seg2}, Options{})
	require.NoError(t, err)
	require.NotEmpty(t, out)

	boxes := isobmff.ReadBoxes(out)
	moov, hasMoov := isobmff.Find(boxes, bitstream.BoxMOOV)
	mdat, hasMdat := isobmff.Find(boxes, bitstream.BoxMDAT)
	require.True(t, hasMoov)
	require.True(t, hasMdat)
	assert.Equal(t, 2*(100+120+50), len(mdat.Payload))

	var trakCount int
	for _, b := range isobmff.Children(moov.Payload) {
		if b.Type == bitstream.BoxTRAK {
			trakCount++
		}
	}
	assert.Equal(t, 2, trakCount)
}

func TestStitchFMP4NoSegments(t *testing.T) {
	_, err := StitchFMP4(nil, Options{})
	assert.Error(t, err)
}
