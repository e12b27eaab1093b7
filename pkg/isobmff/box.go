// Package isobmff provides a lazy, single-pass reader over the ISO-BMFF
// (MP4) box tree, plus typed decoders for the boxes the remuxer needs to
// inspect: mvhd, tkhd, mdhd, hdlr, stsd and its codec entries, the sample
// tables, and the fragment boxes tfhd/tfdt/trun/mvex.
//
// The scanning style is grounded in the teacher's hand-rolled
// BoxHeader/peekBoxHeader approach (internal/relay/cmaf_muxer.go), extended
// to a full offset/size/payload box list rather than a fragment-only
// classifier.
package isobmff

import (
	"errors"
	"fmt"

	"github.com/jmylchreest/goremux/pkg/bitstream"
)

// ErrBoxTooShort is wrapped by FullBoxHeader when a payload is too short to
// hold the 4-byte version/flags header. ReadBoxes does not return it: it
// stops scanning at a box whose declared size is below the header length.
var ErrBoxTooShort = errors.New("isobmff: box size below minimum header length")

// Box is one parsed top-level (or child) box: its type, its absolute byte
// range within the buffer it was read from, and its raw payload (the bytes
// after the size+type header, and after the extended-size field when
// present).
type Box struct {
	Type    bitstream.FourCC
	Offset  int // absolute offset of the box header's first byte
	Size    int // total box size including header
	Payload []byte
}

// HeaderLen returns the number of bytes occupied by this box's header
// (8 normally, 16 when a 64-bit extended size was used).
func (b Box) HeaderLen() int {
	return b.Size - len(b.Payload)
}

// ReadBoxes performs a single linear pass over buf, returning every
// top-level box found. A size of 0 means "box extends to end of buffer"; a
// size of 1 introduces a 64-bit extended size field. Scanning stops (without
// error) the moment a header claims size < 8 or a size that would exceed
// the remaining bytes — per spec this is a rejection-by-truncation, not a
// hard error, since callers (format detection, MalformedContainer checks)
// decide what a short scan means.
func ReadBoxes(buf []byte) []Box {
	var boxes []Box
	off := 0
	for off+8 <= len(buf) {
		b, ok := readOneBox(buf, off)
		if !ok {
			break
		}
		boxes = append(boxes, b)
		off += b.Size
	}
	return boxes
}

func readOneBox(buf []byte, off int) (Box, bool) {
	r := bitstream.NewReader(buf[off:])
	size32, err := r.U32()
	if err != nil {
		return Box{}, false
	}
	typ4, err := r.U32()
	if err != nil {
		return Box{}, false
	}
	typ := bitstream.FourCC(typ4)

	size := int(size32)
	headerLen := 8
	switch size32 {
	case 0:
		size = len(buf) - off
	case 1:
		ext, err := r.U64()
		if err != nil {
			return Box{}, false
		}
		size = int(ext)
		headerLen = 16
	}

	if size < headerLen || off+size > len(buf) {
		return Box{}, false
	}

	return Box{
		Type:    typ,
		Offset:  off,
		Size:    size,
		Payload: buf[off+headerLen : off+size],
	}, true
}

// Children parses the payload of a container box as a nested list of boxes.
// It is the same single-pass scanner applied to a sub-slice, matching the
// teacher's recursive peekBoxHeader usage inside parseMoov/findHandler.
func Children(payload []byte) []Box {
	return ReadBoxes(payload)
}

// Find returns the first child box of the given type, or false if absent.
func Find(boxes []Box, t bitstream.FourCC) (Box, bool) {
	for _, b := range boxes {
		if b.Type == t {
			return b, true
		}
	}
	return Box{}, false
}

// FindPath descends through nested container boxes by type, e.g.
// FindPath(top, trak, mdia, mdhd).
func FindPath(boxes []Box, path ...bitstream.FourCC) (Box, bool) {
	cur := boxes
	var last Box
	for i, t := range path {
		b, ok := Find(cur, t)
		if !ok {
			return Box{}, false
		}
		last = b
		if i < len(path)-1 {
			cur = Children(b.Payload)
		}
	}
	return last, true
}

// FullBoxHeader splits a full-box payload's 8-bit version + 24-bit flags
// prefix from the remainder.
func FullBoxHeader(payload []byte) (version uint8, flags uint32, rest []byte, err error) {
	if len(payload) < 4 {
		return 0, 0, nil, fmt.Errorf("isobmff: full box header truncated: %w", ErrBoxTooShort)
	}
	version = payload[0]
	flags = uint32(payload[1])<<16 | uint32(payload[2])<<8 | uint32(payload[3])
	return version, flags, payload[4:], nil
}
