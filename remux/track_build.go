package remux

import (
	"encoding/binary"
	"math"

	"github.com/jmylchreest/goremux/pkg/bitstream"
	"github.com/jmylchreest/goremux/pkg/mp4write"
	"github.com/jmylchreest/goremux/pkg/mpegts"
)

// h264NALType extracts the NAL unit type from an Annex-B NAL's first byte.
func h264NALType(nalu []byte) uint8 {
	if len(nalu) == 0 {
		return 0
	}
	return nalu[0] & 0x1F
}

const (
	nalTypeSPS = 7
	nalTypePPS = 8
	nalTypeAUD = 9

	videoTimescale = 90000
)

// firstSPSPPS scans AUs in order for the first SPS and PPS NAL units,
// whether carried in-band before every IDR or only on the first one.
func firstSPSPPS(aus []mpegts.AU) (sps, pps []byte) {
	for _, au := range aus {
		for _, nalu := range au.NALUs {
			switch h264NALType(nalu) {
			case nalTypeSPS:
				if sps == nil {
					sps = nalu
				}
			case nalTypePPS:
				if pps == nil {
					pps = nalu
				}
			}
		}
		if sps != nil && pps != nil {
			return sps, pps
		}
	}
	return sps, pps
}

// avccPayload concatenates an AU's NAL units (parameter sets and AUD
// delimiters stripped, since those live in avcC/stsd instead) each prefixed
// with a 4-byte big-endian length, per §4.E's length-size-minus-one=3.
func avccPayload(au mpegts.AU) []byte {
	size := 0
	for _, nalu := range au.NALUs {
		switch h264NALType(nalu) {
		case nalTypeSPS, nalTypePPS, nalTypeAUD:
			continue
		}
		size += 4 + len(nalu)
	}
	out := make([]byte, 0, size)
	var lenBuf [4]byte
	for _, nalu := range au.NALUs {
		switch h264NALType(nalu) {
		case nalTypeSPS, nalTypePPS, nalTypeAUD:
			continue
		}
		binary.BigEndian.PutUint32(lenBuf[:], uint32(len(nalu)))
		out = append(out, lenBuf[:]...)
		out = append(out, nalu...)
	}
	return out
}

// buildVideoTrack converts a clipped/normalized AU list into the video
// mp4write.Track, computing per-sample durations from DTS deltas: the final
// sample (which has no following DTS to difference against) reuses the
// average of the preceding deltas, per the writer's duration-reconstruction
// convention.
func buildVideoTrack(trackID uint32, aus []mpegts.AU) *mp4write.Track {
	if len(aus) == 0 {
		return nil
	}

	sps, pps := firstSPSPPS(aus)
	width, height, err := bitstream.ParseSPSDimensions(sps)
	if err != nil {
		width, height = 0, 0
	}

	samples := make([]mp4write.Sample, len(aus))
	for i, au := range aus {
		samples[i] = mp4write.Sample{
			Payload:           avccPayload(au),
			CompositionOffset: clampInt32(au.PTS - au.DTS),
			IsKeyframe:        au.IsKeyframe,
		}
	}

	if len(aus) == 1 {
		samples[0].Duration = videoTimescale / 30 // single-sample stream: arbitrary nominal duration
	} else {
		var totalDelta int64
		for i := 0; i < len(aus)-1; i++ {
			delta := aus[i+1].DTS - aus[i].DTS
			samples[i].Duration = uint32(delta)
			totalDelta += delta
		}
		avg := uint32(math.Round(float64(totalDelta) / float64(len(aus)-1)))
		samples[len(aus)-1].Duration = avg
	}

	return &mp4write.Track{
		TrackID:     trackID,
		Kind:        mp4write.TrackVideo,
		Timescale:   videoTimescale,
		VideoWidth:  width,
		VideoHeight: height,
		VideoSPS:    sps,
		VideoPPS:    pps,
		Samples:     samples,
	}
}

// buildAudioTrack converts a clipped/normalized AAC frame list into the
// audio mp4write.Track. Per-sample durations are derived from PTS deltas
// scaled into the audio's own sample-rate timescale, clamped to (0, 2*1024]
// with the nominal 1024 falling back whenever a delta is unusable.
func buildAudioTrack(trackID uint32, frames []mpegts.AudioFrame, sampleRate, channelConfig int) *mp4write.Track {
	if len(frames) == 0 {
		return nil
	}
	if sampleRate == 0 {
		sampleRate = 48000
	}

	samples := make([]mp4write.Sample, len(frames))
	for i, f := range frames {
		samples[i] = mp4write.Sample{Payload: f.Payload}
	}

	const nominal = 1024
	for i := 0; i < len(frames); i++ {
		duration := uint32(nominal)
		if i < len(frames)-1 {
			deltaTicks := frames[i+1].PTS - frames[i].PTS
			scaled := int64(math.Round(float64(deltaTicks) * float64(sampleRate) / videoTimescale))
			if scaled > 0 && scaled <= 2*nominal {
				duration = uint32(scaled)
			}
		}
		samples[i].Duration = duration
	}

	return &mp4write.Track{
		TrackID:       trackID,
		Kind:          mp4write.TrackAudio,
		Timescale:     uint32(sampleRate),
		SampleRate:    sampleRate,
		ChannelConfig: channelConfig,
		Samples:       samples,
	}
}

func clampInt32(v int64) int32 {
	if v > math.MaxInt32 {
		return math.MaxInt32
	}
	if v < math.MinInt32 {
		return math.MinInt32
	}
	return int32(v)
}
