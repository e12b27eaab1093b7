package remux

import (
	"github.com/jmylchreest/goremux/pkg/clip"
	"github.com/jmylchreest/goremux/pkg/mp4write"
	"github.com/jmylchreest/goremux/pkg/mpegts"
	"github.com/jmylchreest/goremux/pkg/rmerrors"
)

// ConvertTS demultiplexes an MPEG-TS buffer and writes it out as a single
// standard ISO-BMFF file, applying opts' clip window if set. H.265 video is
// rejected: building an hvcC sample table from raw TS NAL units is out of
// scope (HEVC is only ever passed through from an existing fMP4 hvcC via
// ConvertFMP4).
func ConvertTS(data []byte, opts Options) ([]byte, error) {
	result, err := mpegts.Demux(data, mpegts.Config{Logger: opts.Logger})
	if err != nil {
		return nil, err
	}
	if result.VideoCodec == mpegts.VideoCodecH265 {
		return nil, rmerrors.UnsupportedCodec(false, "H.265 (TS sample-table construction)")
	}
	if len(result.VideoAUs) == 0 && len(result.AudioFrames) == 0 {
		return nil, rmerrors.EmptyStream("no video or audio samples demultiplexed")
	}

	clipped, err := clip.Clip(result.VideoAUs, result.AudioFrames, clip.Window{
		StartS: opts.StartTimeS,
		EndS:   opts.EndTimeS,
	})
	if err != nil {
		return nil, err
	}

	return writeClipResult(clipped, result.SampleRate, result.ChannelConfig)
}

// writeClipResult builds the mp4write.Input from a clip.Result plus audio
// track metadata and writes the final MP4.
func writeClipResult(clipped clip.Result, sampleRate, channelConfig int) ([]byte, error) {
	var tracks []*mp4write.Track
	nextTrackID := uint32(256) // §4.E: track_ID 256 video, 257 audio, etc.

	videoTrack := buildVideoTrack(nextTrackID, clipped.VideoAUs)
	if videoTrack != nil {
		if clipped.Preroll > 0 {
			videoTrack.EditList = &mp4write.EditList{
				MediaTime:       clipped.Preroll,
				SegmentDuration: uint32(clipped.DurationTicks),
			}
		}
		tracks = append(tracks, videoTrack)
		nextTrackID++
	}

	audioTrack := buildAudioTrack(nextTrackID, clipped.AudioFrames, sampleRate, channelConfig)
	if audioTrack != nil {
		if clipped.Preroll > 0 {
			// Audio was trimmed exactly to the requested window, so its
			// parallel edit list always starts at media_time 0.
			audioTrack.EditList = &mp4write.EditList{
				MediaTime:       0,
				SegmentDuration: uint32(clipped.DurationTicks),
			}
		}
		tracks = append(tracks, audioTrack)
	}

	if len(tracks) == 0 {
		return nil, rmerrors.EmptyStream("clip window selected zero samples")
	}

	out, err := mp4write.Write(mp4write.Input{Tracks: tracks})
	if err != nil {
		return nil, err
	}
	return out, nil
}
