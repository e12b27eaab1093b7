// Package clip implements the sample-accurate clipping and segment
// stitching engine described in §4.F: keyframe-aligned window selection,
// edit-list pre-roll computation, timestamp normalization, and per-source
// offset bookkeeping for stitched timelines. It operates on the same
// AU/AudioFrame shapes pkg/mpegts produces, the way the teacher's relay
// pipeline passes typed frame structs between pipeline stages rather than
// re-decoding them.
package clip

import (
	"math"

	"github.com/jmylchreest/goremux/pkg/mpegts"
	"github.com/jmylchreest/goremux/pkg/rmerrors"
)

const videoTimescale = 90000

// Window holds the selected start/end seconds for a clip request. A nil
// field means "absent" per §6: Start defaults to 0, End defaults to +Inf.
type Window struct {
	StartS *float64
	EndS   *float64
}

// Result is the clipped, normalized timeline ready for the writer: video and
// audio samples with zero-based timestamps, plus the edit-list fields §4.E
// needs (Preroll in media ticks, DurationTicks in movie ticks).
type Result struct {
	VideoAUs      []mpegts.AU
	AudioFrames   []mpegts.AudioFrame
	Preroll       int64
	DurationTicks int64
}

// Clip implements §4.F's clipping algorithm over a single source's
// post-normalization AU/frame lists.
func Clip(videoAUs []mpegts.AU, audioFrames []mpegts.AudioFrame, w Window) (Result, error) {
	startPts := int64(0)
	if w.StartS != nil {
		startPts = int64(math.Round(*w.StartS * videoTimescale))
	}
	endPts := int64(math.MaxInt64)
	hasEnd := w.EndS != nil
	if hasEnd {
		endPts = int64(math.Round(*w.EndS * videoTimescale))
	}
	if w.StartS != nil && w.EndS != nil && startPts > endPts {
		return Result{}, rmerrors.InvalidArgument("start_time_s (%v) > end_time_s (%v)", *w.StartS, *w.EndS)
	}

	if len(videoAUs) == 0 {
		return Result{}, nil
	}

	keyframeIndex := selectKeyframeIndex(videoAUs, startPts)
	endIndex := selectEndIndex(videoAUs, endPts)
	if endIndex <= keyframeIndex {
		return Result{}, nil
	}

	window := videoAUs[keyframeIndex:endIndex]
	keyframePTS := window[0].PTS
	lastPTSRaw := window[len(window)-1].PTS

	preroll := startPts - keyframePTS
	if preroll < 0 {
		preroll = 0
	}

	normalizedVideo := make([]mpegts.AU, len(window))
	for i, au := range window {
		normalizedVideo[i] = mpegts.AU{
			NALUs:      au.NALUs,
			PTS:        au.PTS - keyframePTS,
			DTS:        au.DTS - keyframePTS,
			IsKeyframe: au.IsKeyframe,
		}
	}

	audioCeiling := endPts
	if lastPTSRaw+videoTimescale < audioCeiling {
		audioCeiling = lastPTSRaw + videoTimescale
	}
	var normalizedAudio []mpegts.AudioFrame
	for _, f := range audioFrames {
		if f.PTS >= startPts && f.PTS < audioCeiling {
			normalizedAudio = append(normalizedAudio, mpegts.AudioFrame{
				Payload: f.Payload,
				PTS:     f.PTS - startPts,
			})
		}
	}

	var durationTicks int64
	if hasEnd {
		durationTicks = endPts - startPts
	} else {
		durationTicks = lastPTSRaw - startPts
	}
	if durationTicks < 0 {
		durationTicks = 0
	}

	return Result{
		VideoAUs:      normalizedVideo,
		AudioFrames:   normalizedAudio,
		Preroll:       preroll,
		DurationTicks: durationTicks,
	}, nil
}

// selectKeyframeIndex returns the index of the last keyframe AU with
// pts <= startPts, or 0 if none qualifies.
func selectKeyframeIndex(aus []mpegts.AU, startPts int64) int {
	best := 0
	found := false
	for i, au := range aus {
		if au.IsKeyframe && au.PTS <= startPts {
			best = i
			found = true
		}
	}
	if !found {
		return 0
	}
	return best
}

// selectEndIndex returns the index of the first AU with pts >= endPts, or
// len(aus) if none qualifies.
func selectEndIndex(aus []mpegts.AU, endPts int64) int {
	for i, au := range aus {
		if au.PTS >= endPts {
			return i
		}
	}
	return len(aus)
}
