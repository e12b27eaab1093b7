package clip

import (
	"math"

	"github.com/jmylchreest/goremux/pkg/mpegts"
	"github.com/jmylchreest/goremux/pkg/rmerrors"
)

// Source is one segment's independently demuxed/normalized timeline, ready
// to be spliced onto a running combined timeline.
type Source struct {
	VideoAUs      []mpegts.AU
	AudioFrames   []mpegts.AudioFrame
	VideoCodec    mpegts.VideoCodec
	SampleRate    int
	ChannelConfig int
}

// Stitched is the concatenated, offset-adjusted timeline plus the metadata
// inherited from the first source that carried it.
type Stitched struct {
	VideoAUs      []mpegts.AU
	AudioFrames   []mpegts.AudioFrame
	VideoCodec    mpegts.VideoCodec
	SampleRate    int
	ChannelConfig int
}

// Stitch implements §4.F's stitching algorithm: each source's AUs/frames,
// already zero-based per I6, are shifted by independently running video and
// audio offsets and appended to the combined timeline.
func Stitch(sources []Source) (Stitched, error) {
	if len(sources) == 0 {
		return Stitched{}, rmerrors.InvalidArgument("stitch requires at least one source")
	}

	var out Stitched
	var runningVideoOffset, runningAudioOffset int64

	for _, src := range sources {
		if out.VideoCodec == mpegts.VideoCodecNone {
			out.VideoCodec = src.VideoCodec
		}
		if out.SampleRate == 0 {
			out.SampleRate = src.SampleRate
		}
		if out.ChannelConfig == 0 {
			out.ChannelConfig = src.ChannelConfig
		}

		for _, au := range src.VideoAUs {
			out.VideoAUs = append(out.VideoAUs, mpegts.AU{
				NALUs:      au.NALUs,
				PTS:        au.PTS + runningVideoOffset,
				DTS:        au.DTS + runningVideoOffset,
				IsKeyframe: au.IsKeyframe,
			})
		}
		for _, f := range src.AudioFrames {
			out.AudioFrames = append(out.AudioFrames, mpegts.AudioFrame{
				Payload: f.Payload,
				PTS:     f.PTS + runningAudioOffset,
			})
		}

		runningVideoOffset += videoDuration(src.VideoAUs)
		runningAudioOffset += audioDuration(src.AudioFrames)
	}

	return out, nil
}

// videoDuration estimates a source's span as last_dts - first_dts plus the
// average inter-frame delta, per §4.F/§4.E's duration-reconstruction rule.
func videoDuration(aus []mpegts.AU) int64 {
	if len(aus) == 0 {
		return 0
	}
	if len(aus) == 1 {
		return 0
	}
	first, last := aus[0].DTS, aus[len(aus)-1].DTS
	avg := float64(last-first) / float64(len(aus)-1)
	return (last - first) + int64(math.Round(avg))
}

// audioDuration is the same estimate over PTS, since audio frames carry no
// separate DTS.
func audioDuration(frames []mpegts.AudioFrame) int64 {
	if len(frames) == 0 {
		return 0
	}
	if len(frames) == 1 {
		return 0
	}
	first, last := frames[0].PTS, frames[len(frames)-1].PTS
	avg := float64(last-first) / float64(len(frames)-1)
	return (last - first) + int64(math.Round(avg))
}
