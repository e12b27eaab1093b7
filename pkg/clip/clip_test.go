package clip

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmylchreest/goremux/pkg/mpegts"
)

func ptr(f float64) *float64 { return &f }

func buildAUs() []mpegts.AU {
	return []mpegts.AU{
		{PTS: 0, DTS: 0, IsKeyframe: true},
		{PTS: 90000, DTS: 90000, IsKeyframe: false},
		{PTS: 180000, DTS: 180000, IsKeyframe: true},
		{PTS: 270000, DTS: 270000, IsKeyframe: false},
		{PTS: 360000, DTS: 360000, IsKeyframe: false},
	}
}

func buildAudioFrames() []mpegts.AudioFrame {
	return []mpegts.AudioFrame{
		{PTS: 90000},
		{PTS: 180000},
		{PTS: 270000},
		{PTS: 360000},
	}
}

func TestClipBasicWindow(t *testing.T) {
	result, err := Clip(buildAUs(), buildAudioFrames(), Window{StartS: ptr(1.0), EndS: ptr(3.5)})
	require.NoError(t, err)

	require.Len(t, result.VideoAUs, 4)
	assert.Equal(t, int64(0), result.VideoAUs[0].PTS)
	assert.Equal(t, int64(270000), result.VideoAUs[3].PTS)
	assert.Equal(t, int64(90000), result.Preroll)
	assert.Equal(t, int64(225000), result.DurationTicks)

	require.Len(t, result.AudioFrames, 3)
	assert.Equal(t, int64(0), result.AudioFrames[0].PTS)
	assert.Equal(t, int64(180000), result.AudioFrames[2].PTS)
}

func TestClipStartBetweenKeyframes(t *testing.T) {
	// start_s lands between the keyframe at t=0 and the next one at t=2.0s.
	result, err := Clip(buildAUs(), nil, Window{StartS: ptr(1.5)})
	require.NoError(t, err)
	assert.Equal(t, int64(135000), result.Preroll) // 1.5*90000 - 0
	assert.Equal(t, int64(0), result.VideoAUs[0].PTS)
}

func TestClipNoWindowReturnsFullNormalizedStream(t *testing.T) {
	result, err := Clip(buildAUs(), nil, Window{})
	require.NoError(t, err)
	require.Len(t, result.VideoAUs, 5)
	assert.Equal(t, int64(0), result.Preroll)
	assert.Equal(t, int64(360000), result.DurationTicks)
}

func TestClipInvalidArgument(t *testing.T) {
	_, err := Clip(buildAUs(), nil, Window{StartS: ptr(5.0), EndS: ptr(1.0)})
	assert.Error(t, err)
}

func TestClipEmptyVideo(t *testing.T) {
	result, err := Clip(nil, nil, Window{})
	require.NoError(t, err)
	assert.Empty(t, result.VideoAUs)
}
