package mpegts

// Keyframe is one entry in an analysis result's keyframe index: the
// zero-based position of a keyframe AU within the demuxed video AU list and
// its presentation time in seconds.
type Keyframe struct {
	Index int
	TimeS float64
}

// Analysis is the read-only summary §6's analyze_ts entry point returns.
type Analysis struct {
	DurationS       float64
	VideoFrameCount int
	AudioFrameCount int
	Keyframes       []Keyframe
	VideoCodecName  string
	AudioCodecName  string
	AudioSampleRate int
	AudioChannels   int
}

// Analyze demultiplexes data and summarizes it without producing any
// output bytes, per §6.4.
func Analyze(data []byte, cfg Config) (Analysis, error) {
	result, err := Demux(data, cfg)
	if err != nil {
		return Analysis{}, err
	}

	a := Analysis{
		VideoFrameCount: len(result.VideoAUs),
		AudioFrameCount: len(result.AudioFrames),
		AudioSampleRate: result.SampleRate,
		AudioChannels:   result.ChannelConfig,
	}
	switch result.VideoCodec {
	case VideoCodecH264:
		a.VideoCodecName = "H.264"
	case VideoCodecH265:
		a.VideoCodecName = "H.265"
	}
	if len(result.AudioFrames) > 0 {
		a.AudioCodecName = "AAC"
	}

	for i, au := range result.VideoAUs {
		if au.IsKeyframe {
			a.Keyframes = append(a.Keyframes, Keyframe{Index: i, TimeS: float64(au.PTS) / 90000})
		}
	}

	if n := len(result.VideoAUs); n > 1 {
		avgDelta := float64(result.VideoAUs[n-1].DTS-result.VideoAUs[0].DTS) / float64(n-1)
		a.DurationS = (float64(result.VideoAUs[n-1].DTS-result.VideoAUs[0].DTS) + avgDelta) / 90000
	}
	return a, nil
}
