package remux

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmylchreest/goremux/pkg/bitstream"
	"github.com/jmylchreest/goremux/pkg/isobmff"
)

func trakHasEditList(t *testing.T, trak isobmff.Box) bool {
	t.Helper()
	edts, ok := isobmff.Find(isobmff.Children(trak.Payload), bitstream.BoxEDTS)
	if !ok {
		return false
	}
	_, ok = isobmff.Find(isobmff.Children(edts.Payload), bitstream.BoxELST)
	return ok
}

func TestConvertTSWithClipWindow(t *testing.T) {
	data := buildConvertibleTS(t)
	start := 1.02
	out, err := ConvertTS(data, Options{StartTimeS: &start})
	require.NoError(t, err)
	require.NotEmpty(t, out)

	boxes := isobmff.ReadBoxes(out)
	moov, hasMoov := isobmff.Find(boxes, bitstream.BoxMOOV)
	require.True(t, hasMoov)

	var sawEditList bool
	for _, trak := range isobmff.Children(moov.Payload) {
		if trak.Type != bitstream.BoxTRAK {
			continue
		}
		if trakHasEditList(t, trak) {
			sawEditList = true
		}
	}
	assert.True(t, sawEditList, "expected at least one trak to carry an edit list after clipping with pre-roll")
}

func TestConvertTSWithInvalidClipWindow(t *testing.T) {
	data := buildConvertibleTS(t)
	start, end := 2.0, 1.0
	_, err := ConvertTS(data, Options{StartTimeS: &start, EndTimeS: &end})
	assert.Error(t, err)
}

func TestConvertFMP4WithClipWindow(t *testing.T) {
	data := buildConvertibleFMP4(t)
	start := 0.002 // 180 ticks at 90000Hz video timescale, between the two fragment samples
	out, err := ConvertFMP4(data, Options{StartTimeS: &start})
	require.NoError(t, err)
	require.NotEmpty(t, out)

	boxes := isobmff.ReadBoxes(out)
	_, hasMoov := isobmff.Find(boxes, bitstream.BoxMOOV)
	_, hasMdat := isobmff.Find(boxes, bitstream.BoxMDAT)
	require.True(t, hasMoov)
	require.True(t, hasMdat)
}

func TestConvertFMP4WithInvalidClipWindow(t *testing.T) {
	data := buildConvertibleFMP4(t)
	start, end := 2.0, 1.0
	_, err := ConvertFMP4(data, Options{StartTimeS: &start, EndTimeS: &end})
	assert.Error(t, err)
}
