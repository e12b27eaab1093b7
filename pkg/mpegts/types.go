// Package mpegts demultiplexes an MPEG-2 Transport Stream into ordered
// elementary-stream access units with 90 kHz presentation/decode timestamps.
// It is grounded in the teacher's internal/daemon/ts_demuxer.go config/logging
// idiom (Config.Logger defaulting to slog.Default(), OnVideoSample/OnAudioSample
// style callbacks turned into plain return values here since there is no
// pipe/goroutine boundary to cross) but parses PAT/PMT/PES by hand rather
// than delegating to mediacommon/go-astits.
package mpegts

import "github.com/jmylchreest/goremux/pkg/bitstream"

// Packet layout constants.
const (
	PacketSize = 188
	SyncByte   = 0x47
)

// Elementary stream types carried in a PMT entry (ISO/IEC 13818-1 Table 2-34).
const (
	StreamTypeMPEG1Video = 0x01
	StreamTypeMPEG2Video = 0x02
	StreamTypeMPEG1Audio = 0x03
	StreamTypeMPEG2Audio = 0x04
	StreamTypeAACADTS    = 0x0F
	StreamTypeH264       = 0x1B
	StreamTypeAACLATM    = 0x11
	StreamTypeH265       = 0x24
	StreamTypeAC3        = 0x81
	StreamTypeEAC3       = 0x87
)

// VideoCodec identifies which video codec a demuxed track carries.
type VideoCodec int

const (
	VideoCodecNone VideoCodec = iota
	VideoCodecH264
	VideoCodecH265
)

// codecName returns the human-readable name for a PMT stream_type, used both
// for UnsupportedCodec messages and for the analysis entry point.
func codecName(streamType uint8) string {
	switch streamType {
	case StreamTypeMPEG1Video:
		return "MPEG-1 Video"
	case StreamTypeMPEG2Video:
		return "MPEG-2 Video"
	case StreamTypeMPEG1Audio:
		return "MPEG-1 Audio"
	case StreamTypeMPEG2Audio:
		return "MPEG-2 Audio"
	case StreamTypeAC3:
		return "AC-3"
	case StreamTypeEAC3:
		return "E-AC-3"
	case StreamTypeH264:
		return "H.264"
	case StreamTypeH265:
		return "H.265"
	case StreamTypeAACADTS, StreamTypeAACLATM:
		return "AAC"
	default:
		return "unknown"
	}
}

// isSupportedVideo reports whether streamType is a video codec this
// remuxer can carry.
func isSupportedVideo(streamType uint8) bool {
	return streamType == StreamTypeH264 || streamType == StreamTypeH265
}

// isSupportedAudio reports whether streamType is an audio codec this
// remuxer can carry.
func isSupportedAudio(streamType uint8) bool {
	return streamType == StreamTypeAACADTS || streamType == StreamTypeAACLATM
}

// isKnownVideo reports whether streamType is a recognized (but possibly
// unsupported) video stream type, used to decide which PMT entry "is video"
// for the purposes of choosing the first video-typed entry per §4.B.
func isKnownVideo(streamType uint8) bool {
	switch streamType {
	case StreamTypeMPEG1Video, StreamTypeMPEG2Video, StreamTypeH264, StreamTypeH265:
		return true
	}
	return false
}

// isKnownAudio reports whether streamType is a recognized (but possibly
// unsupported) audio stream type.
func isKnownAudio(streamType uint8) bool {
	switch streamType {
	case StreamTypeMPEG1Audio, StreamTypeMPEG2Audio, StreamTypeAACADTS, StreamTypeAACLATM, StreamTypeAC3, StreamTypeEAC3:
		return true
	}
	return false
}

// AU is one demultiplexed video access unit: the NAL units of exactly one
// coded picture, plus its timestamps.
type AU struct {
	NALUs      [][]byte
	PTS        int64
	DTS        int64
	IsKeyframe bool
}

// AudioFrame is one demultiplexed AAC frame: the ADTS header stripped, plus
// its 90 kHz PTS.
type AudioFrame struct {
	Payload []byte
	PTS     int64
}

// Result is the output of demultiplexing a TS byte stream: ordered AUs and
// audio frames with normalized timestamps (I6), plus the track metadata the
// writer needs.
type Result struct {
	VideoCodec    VideoCodec
	VideoAUs      []AU
	AudioFrames   []AudioFrame
	SampleRate    int
	ChannelConfig int
}

func isIDR(codec VideoCodec, au [][]byte) bool {
	switch codec {
	case VideoCodecH264:
		return bitstream.IsH264IDR(au)
	case VideoCodecH265:
		return bitstream.IsH265IDR(au)
	default:
		return false
	}
}
