package remux

import (
	"math"

	"github.com/jmylchreest/goremux/pkg/fmp4"
	"github.com/jmylchreest/goremux/pkg/mp4write"
	"github.com/jmylchreest/goremux/pkg/rmerrors"
)

// StitchFMP4 assembles each fragmented ISO-BMFF segment independently, then
// concatenates same-kind tracks across segments: since fmp4.Sample carries
// only a relative Duration/CompositionOffset rather than an absolute
// timestamp, appending sample lists in segment order reconstructs a
// continuous timeline without any offset bookkeeping — only the backing
// mdat bytes need to be recopied into one combined buffer.
func StitchFMP4(segments [][]byte, opts Options) ([]byte, error) {
	if len(segments) == 0 {
		return nil, rmerrors.InvalidArgument("stitch requires at least one segment")
	}

	var videoTrack, audioTrack *fmp4.Track
	var videoMDAT, audioMDAT []byte

	for _, seg := range segments {
		assembled, err := fmp4.Assemble(seg, fmp4.Config{Logger: opts.Logger})
		if err != nil {
			return nil, rmerrors.Wrap(rmerrors.KindMalformedContainer, "stitch segment failed to assemble", err)
		}
		for _, t := range assembled.Tracks {
			switch t.Kind {
			case fmp4.TrackVideo:
				videoTrack, videoMDAT = appendFMP4Track(videoTrack, videoMDAT, t, assembled.MDAT)
			case fmp4.TrackAudio:
				audioTrack, audioMDAT = appendFMP4Track(audioTrack, audioMDAT, t, assembled.MDAT)
			}
		}
	}

	var merged []*fmp4.Track
	var mergedMDAT []byte
	if videoTrack != nil {
		merged = append(merged, videoTrack)
		mergedMDAT = append(mergedMDAT, videoMDAT...)
		videoTrack.Samples = rebaseSampleOffsets(videoTrack.Samples, 0)
	}
	if audioTrack != nil {
		base := int64(len(mergedMDAT))
		merged = append(merged, audioTrack)
		audioTrack.Samples = rebaseSampleOffsets(audioTrack.Samples, base)
		mergedMDAT = append(mergedMDAT, audioMDAT...)
	}
	if len(merged) == 0 {
		return nil, rmerrors.EmptyStream("no tracks across stitched fMP4 segments")
	}

	window := fmp4Window{startS: 0, endS: math.Inf(1)}
	if opts.StartTimeS != nil {
		window.startS = *opts.StartTimeS
	}
	if opts.EndTimeS != nil {
		window.endS = *opts.EndTimeS
	}
	if opts.StartTimeS != nil && opts.EndTimeS != nil && *opts.StartTimeS > *opts.EndTimeS {
		return nil, rmerrors.InvalidArgument("start_time_s (%v) > end_time_s (%v)", *opts.StartTimeS, *opts.EndTimeS)
	}

	movieTimescale := fmp4MovieTimescale(merged)
	tracks := make([]*mp4write.Track, 0, len(merged))
	for _, t := range merged {
		wt, err := clipAndConvertFMP4Track(t, mergedMDAT, window, movieTimescale)
		if err != nil {
			return nil, err
		}
		if wt != nil {
			tracks = append(tracks, wt)
		}
	}
	if len(tracks) == 0 {
		return nil, rmerrors.EmptyStream("clip window selected zero samples")
	}

	return mp4write.Write(mp4write.Input{Tracks: tracks})
}

// appendFMP4Track folds a freshly-assembled segment track into the running
// merged track: metadata is inherited from whichever segment first supplies
// the track, and its samples/mdat bytes are appended as-is (offsets get
// rebased once, after every segment has been folded in).
func appendFMP4Track(merged *fmp4.Track, mergedMDAT []byte, t *fmp4.Track, segMDAT []byte) (*fmp4.Track, []byte) {
	segmentOffset := int64(len(mergedMDAT))
	rebased := make([]fmp4.Sample, len(t.Samples))
	copy(rebased, t.Samples)
	for i := range rebased {
		rebased[i].Offset += segmentOffset
	}

	if merged == nil {
		clone := *t
		clone.Samples = rebased
		return &clone, append(mergedMDAT, segMDAT...)
	}
	merged.Samples = append(merged.Samples, rebased...)
	return merged, append(mergedMDAT, segMDAT...)
}

// rebaseSampleOffsets shifts every sample's Offset by base, used once all
// per-track mdat slices have been concatenated in final (video-then-audio)
// order.
func rebaseSampleOffsets(samples []fmp4.Sample, base int64) []fmp4.Sample {
	out := make([]fmp4.Sample, len(samples))
	for i, s := range samples {
		out[i] = s
		out[i].Offset += base
	}
	return out
}
