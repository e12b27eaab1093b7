package remux

import (
	"github.com/jmylchreest/goremux/pkg/clip"
	"github.com/jmylchreest/goremux/pkg/mpegts"
	"github.com/jmylchreest/goremux/pkg/rmerrors"
)

// StitchTS demultiplexes each TS segment independently, splices their
// timelines end to end per §4.F, applies opts' clip window to the combined
// result, and writes a single standard ISO-BMFF file.
func StitchTS(segments [][]byte, opts Options) ([]byte, error) {
	if len(segments) == 0 {
		return nil, rmerrors.InvalidArgument("stitch requires at least one segment")
	}

	sources := make([]clip.Source, 0, len(segments))
	for _, seg := range segments {
		result, err := mpegts.Demux(seg, mpegts.Config{Logger: opts.Logger})
		if err != nil {
			// Demux already returns a correctly classified error (e.g.
			// KindUnsupportedCodec, KindEmptyStream); propagate it as-is
			// rather than reclassifying it.
			return nil, err
		}
		if result.VideoCodec == mpegts.VideoCodecH265 {
			return nil, rmerrors.UnsupportedCodec(false, "H.265 (TS sample-table construction)")
		}
		sources = append(sources, clip.Source{
			VideoAUs:      result.VideoAUs,
			AudioFrames:   result.AudioFrames,
			VideoCodec:    result.VideoCodec,
			SampleRate:    result.SampleRate,
			ChannelConfig: result.ChannelConfig,
		})
	}

	stitched, err := clip.Stitch(sources)
	if err != nil {
		return nil, err
	}
	if len(stitched.VideoAUs) == 0 && len(stitched.AudioFrames) == 0 {
		return nil, rmerrors.EmptyStream("no video or audio samples across stitched segments")
	}

	clipped, err := clip.Clip(stitched.VideoAUs, stitched.AudioFrames, clip.Window{
		StartS: opts.StartTimeS,
		EndS:   opts.EndTimeS,
	})
	if err != nil {
		return nil, err
	}

	return writeClipResult(clipped, stitched.SampleRate, stitched.ChannelConfig)
}
