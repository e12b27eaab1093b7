package remux

import (
	"log/slog"

	"github.com/jmylchreest/goremux/pkg/bitstream"
	"github.com/jmylchreest/goremux/pkg/fmp4"
	"github.com/jmylchreest/goremux/pkg/mpegts"
)

// AnalyzeTS demultiplexes a TS buffer and summarizes it without producing
// any output bytes, per §6.4.
func AnalyzeTS(data []byte, logger *slog.Logger) (mpegts.Analysis, error) {
	return mpegts.Analyze(data, mpegts.Config{Logger: logger})
}

// FMP4Analysis is the read-only summary of an assembled fMP4 buffer: a
// supplemented feature grounded in the teacher's CMAFMuxer inspection
// methods (GetInitSegment/FragmentCount), which only ever report on a
// stream's shape rather than mutate it.
type FMP4Analysis struct {
	VideoCodecName  string
	AudioCodecName  string
	VideoFrameCount int
	AudioFrameCount int
	VideoWidth      int
	VideoHeight     int
	AudioSampleRate int
	AudioChannels   int
	DurationS       float64
	KeyframeCount   int
}

// AnalyzeFMP4 assembles data and summarizes its tracks without writing an
// output MP4.
func AnalyzeFMP4(data []byte, logger *slog.Logger) (FMP4Analysis, error) {
	assembled, err := fmp4.Assemble(data, fmp4.Config{Logger: logger})
	if err != nil {
		return FMP4Analysis{}, err
	}

	var a FMP4Analysis
	for _, t := range assembled.Tracks {
		switch t.Kind {
		case fmp4.TrackVideo:
			a.VideoFrameCount = len(t.Samples)
			a.VideoWidth = int(t.VideoWidth)
			a.VideoHeight = int(t.VideoHeight)
			a.VideoCodecName = videoCodecName(t.CodecBox)
			for _, s := range t.Samples {
				if s.IsKeyframe {
					a.KeyframeCount++
				}
			}
			a.DurationS = fmp4TrackDurationS(t)
		case fmp4.TrackAudio:
			a.AudioFrameCount = len(t.Samples)
			a.AudioSampleRate = t.SampleRate
			a.AudioChannels = t.ChannelConfig
			a.AudioCodecName = "AAC"
		}
	}
	return a, nil
}

func videoCodecName(codecBox bitstream.FourCC) string {
	switch codecBox {
	case bitstream.BoxHVCC:
		return "H.265"
	case bitstream.BoxAVCC:
		return "H.264"
	default:
		return "H.264"
	}
}

func fmp4TrackDurationS(t *fmp4.Track) float64 {
	if t.Timescale == 0 || len(t.Samples) == 0 {
		return 0
	}
	var total int64
	for _, s := range t.Samples {
		total += int64(s.Duration)
	}
	return float64(total) / float64(t.Timescale)
}
