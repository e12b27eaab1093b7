// Package fmp4 assembles a sequence of fragmented ISO-BMFF (moof+mdat)
// fragments into one flat per-track sample table with a single combined
// mdat, per §4.D. It builds on pkg/isobmff's box reader and typed fragment
// decoders the same way the teacher's CMAFMuxer (internal/relay/cmaf_muxer.go)
// builds on its own hand-rolled box scanner — but assembles full output
// sample tables rather than just classifying fragments for relay.
package fmp4

import "github.com/jmylchreest/goremux/pkg/bitstream"

// TrackKind is the closed {video, audio} variant every track belongs to.
type TrackKind int

const (
	TrackVideo TrackKind = iota
	TrackAudio
)

// Sample is one assembled sample: its position in the combined mdat buffer
// (relative, before the writer's mdat_content_offset is added) plus the
// per-sample fields the writer needs for stts/ctts/stsz/stss.
type Sample struct {
	Offset            int64
	Size              uint32
	Duration          uint32
	CompositionOffset int32
	IsKeyframe        bool
}

// Track is one canonical track's flattened sample list plus the codec
// metadata read from the first moov.
type Track struct {
	TrackID           uint32
	Kind              TrackKind
	Timescale         uint32
	VideoWidth        uint16
	VideoHeight       uint16
	SampleRate        int
	ChannelConfig     int
	CodecBox          bitstream.FourCC // avcC or hvcC, video only
	CodecConfig       []byte           // raw avcC/hvcC or esds payload
	HasSourceEditList bool
	Samples           []Sample
}

// Result is the output of Assemble: the canonical tracks in moov order and
// the combined mdat payload every Sample.Offset indexes into.
type Result struct {
	Tracks []*Track
	MDAT   []byte
}
