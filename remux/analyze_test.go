package remux

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAnalyzeTSBasic(t *testing.T) {
	data := buildConvertibleTS(t)
	analysis, err := AnalyzeTS(data, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, analysis.VideoFrameCount)
	assert.Equal(t, 1, analysis.AudioFrameCount)
	assert.Equal(t, "H.264", analysis.VideoCodecName)
}

func TestAnalyzeFMP4Basic(t *testing.T) {
	data := buildConvertibleFMP4(t)
	analysis, err := AnalyzeFMP4(data, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, analysis.VideoFrameCount)
	assert.Equal(t, 1, analysis.AudioFrameCount)
	assert.Equal(t, 320, analysis.VideoWidth)
	assert.Equal(t, 240, analysis.VideoHeight)
	assert.Equal(t, 44100, analysis.AudioSampleRate)
	assert.Equal(t, 2, analysis.AudioChannels)
	assert.True(t, analysis.KeyframeCount >= 1)
}
