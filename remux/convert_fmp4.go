package remux

import (
	"math"

	"github.com/jmylchreest/goremux/pkg/fmp4"
	"github.com/jmylchreest/goremux/pkg/mp4write"
	"github.com/jmylchreest/goremux/pkg/rmerrors"
)

// ConvertFMP4 assembles a fragmented ISO-BMFF buffer (init moov + moof/mdat
// fragments) into one flat per-track sample table, applies opts' clip
// window if set, and writes the result out as a single standard ISO-BMFF
// file.
func ConvertFMP4(data []byte, opts Options) ([]byte, error) {
	assembled, err := fmp4.Assemble(data, fmp4.Config{Logger: opts.Logger})
	if err != nil {
		return nil, err
	}
	if len(assembled.Tracks) == 0 {
		return nil, rmerrors.EmptyStream("no tracks in assembled fMP4")
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

	movieTimescale := fmp4MovieTimescale(assembled.Tracks)

	tracks := make([]*mp4write.Track, 0, len(assembled.Tracks))
	for _, t := range assembled.Tracks {
		wt, err := clipAndConvertFMP4Track(t, assembled.MDAT, window, movieTimescale)
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

type fmp4Window struct {
	startS, endS float64
}

// fmp4MovieTimescale resolves the same Open Question mp4write.Write does
// (video timescale when a video track exists, else audio's) so edit-list
// durations computed here land in the units the writer will actually use.
func fmp4MovieTimescale(tracks []*fmp4.Track) uint32 {
	for _, t := range tracks {
		if t.Kind == fmp4.TrackVideo {
			return t.Timescale
		}
	}
	for _, t := range tracks {
		return t.Timescale
	}
	return 90000
}

// fmp4Timeline is one track's reconstructed per-sample PTS in media-timescale ticks,
// derived from the flat Duration+CompositionOffset fields fmp4.Assemble
// produces: there is no absolute timestamp to read back, only cumulative
// duration.
type fmp4Timeline struct {
	ptsTicks []int64
}

func buildFMP4Timeline(t *fmp4.Track) fmp4Timeline {
	tl := fmp4Timeline{ptsTicks: make([]int64, len(t.Samples))}
	var cursor int64
	for i, s := range t.Samples {
		tl.ptsTicks[i] = cursor + int64(s.CompositionOffset)
		cursor += int64(s.Duration)
	}
	return tl
}

// clipAndConvertFMP4Track trims t to window (keyframe-aligned for video,
// plain range for audio) and converts the surviving samples into an
// mp4write.Track, preserving the track's pre-built CodecConfig for
// passthrough per §4.D.
func clipAndConvertFMP4Track(t *fmp4.Track, mdat []byte, window fmp4Window, movieTimescale uint32) (*mp4write.Track, error) {
	if len(t.Samples) == 0 {
		return nil, nil
	}
	tl := buildFMP4Timeline(t)
	startTicks := int64(math.Round(window.startS * float64(t.Timescale)))

	startIdx := 0
	endIdx := len(t.Samples)
	if t.Kind == fmp4.TrackVideo {
		startIdx = lastKeyframeAtOrBefore(t, tl, startTicks)
		if !math.IsInf(window.endS, 1) {
			endTicks := int64(math.Round(window.endS * float64(t.Timescale)))
			endIdx = firstIndexAtOrAfter(tl.ptsTicks, endTicks, startIdx)
		}
	} else {
		startIdx = firstIndexAtOrAfter(tl.ptsTicks, startTicks, 0)
		if !math.IsInf(window.endS, 1) {
			endTicks := int64(math.Round(window.endS * float64(t.Timescale)))
			endIdx = firstIndexAtOrAfter(tl.ptsTicks, endTicks, startIdx)
		}
	}
	if endIdx <= startIdx {
		return nil, nil
	}

	// Video is normalized relative to the selected keyframe rather than the
	// requested start, so the pre-roll survives as an edit list entry.
	base := tl.ptsTicks[startIdx]

	samples := make([]mp4write.Sample, 0, endIdx-startIdx)
	for i := startIdx; i < endIdx; i++ {
		s := t.Samples[i]
		payload, err := sliceMDAT(mdat, s.Offset, s.Size)
		if err != nil {
			return nil, err
		}
		samples = append(samples, mp4write.Sample{
			Payload:           payload,
			Duration:          s.Duration,
			CompositionOffset: s.CompositionOffset,
			IsKeyframe:        s.IsKeyframe,
		})
	}

	wt := &mp4write.Track{
		TrackID:       t.TrackID,
		Timescale:     t.Timescale,
		SampleRate:    t.SampleRate,
		ChannelConfig: t.ChannelConfig,
		VideoWidth:    t.VideoWidth,
		VideoHeight:   t.VideoHeight,
		CodecBox:      t.CodecBox,
		CodecConfig:   t.CodecConfig,
		Samples:       samples,
	}
	mediaDurationTicks := tl.ptsTicks[endIdx-1] + int64(t.Samples[endIdx-1].Duration) - base
	segmentDuration := uint32(scaleTicks(mediaDurationTicks, t.Timescale, movieTimescale))

	if t.Kind == fmp4.TrackVideo {
		wt.Kind = mp4write.TrackVideo
		preroll := startTicks - base
		if preroll < 0 {
			preroll = 0
		}
		if preroll > 0 || t.HasSourceEditList {
			wt.EditList = &mp4write.EditList{MediaTime: preroll, SegmentDuration: segmentDuration}
		}
	} else {
		wt.Kind = mp4write.TrackAudio
		// Audio was trimmed exactly to the requested window, so its parallel
		// edit list always starts at media_time 0.
		if startTicks > 0 || t.HasSourceEditList {
			wt.EditList = &mp4write.EditList{MediaTime: 0, SegmentDuration: segmentDuration}
		}
	}
	return wt, nil
}

func scaleTicks(ticks int64, from, to uint32) int64 {
	if from == to || from == 0 {
		return ticks
	}
	return int64(math.Round(float64(ticks) * float64(to) / float64(from)))
}

func lastKeyframeAtOrBefore(t *fmp4.Track, tl fmp4Timeline, ticks int64) int {
	best := 0
	found := false
	for i, s := range t.Samples {
		if s.IsKeyframe && tl.ptsTicks[i] <= ticks {
			best = i
			found = true
		}
	}
	if !found {
		return 0
	}
	return best
}

func firstIndexAtOrAfter(ticks []int64, target int64, from int) int {
	for i := from; i < len(ticks); i++ {
		if ticks[i] >= target {
			return i
		}
	}
	return len(ticks)
}

func sliceMDAT(mdat []byte, offset int64, size uint32) ([]byte, error) {
	end := offset + int64(size)
	if offset < 0 || end > int64(len(mdat)) {
		return nil, rmerrors.MalformedContainer("sample offset %d+%d out of mdat bounds (%d)", offset, size, len(mdat))
	}
	return mdat[offset:end], nil
}
