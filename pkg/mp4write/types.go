// Package mp4write emits a single non-fragmented ISO-BMFF file (ftyp/moov/
// mdat) from a flat, already-demuxed/assembled set of per-track samples, per
// §4.E. It mirrors the teacher's box-construction style in
// internal/relay/cmaf_muxer.go (explicit BoxHeader + byte-level assembly)
// but runs in the opposite direction: building boxes rather than parsing
// them, and in two passes rather than one pass over a live stream.
package mp4write

import "github.com/jmylchreest/goremux/pkg/bitstream"

// TrackKind is the closed {video, audio} variant a Track belongs to.
type TrackKind int

const (
	TrackVideo TrackKind = iota
	TrackAudio
)

// Sample is one sample ready for the output mdat: its raw bytes (for video,
// already NAL-length-prefixed per §4.E's avcC length-size-minus-one=3;
// for audio, the raw AAC payload) plus the per-sample table fields.
type Sample struct {
	Payload           []byte
	Duration          uint32 // media timescale ticks
	CompositionOffset int32  // PTS - DTS, video only
	IsKeyframe        bool
}

// EditList is a single elst entry: segment_duration in movie timescale,
// media_time in the track's media timescale, rate fixed at 1.0.
type EditList struct {
	SegmentDuration uint32
	MediaTime       int64
}

// Track is one track's complete, ready-to-emit state. Exactly one of
// CodecConfig (a pre-built avcC/esds payload, used for fMP4 passthrough) or
// the SPS/PPS/AudioSpecificConfig fields (used when muxing straight from TS)
// is expected to be set; CodecConfig wins when both are present.
type Track struct {
	TrackID       uint32
	Kind          TrackKind
	Timescale     uint32
	VideoWidth    uint16
	VideoHeight   uint16
	SampleRate    int
	ChannelConfig int

	CodecBox            bitstream.FourCC // avcC or hvcC, set when CodecConfig is a passthrough payload
	CodecConfig         []byte           // pre-built avcC/hvcC or esds payload
	VideoSPS            []byte
	VideoPPS            []byte
	AudioSpecificConfig []byte

	EditList *EditList
	Samples  []Sample
}

// Input is the complete set of tracks to emit as one MP4.
type Input struct {
	Tracks []*Track
}
