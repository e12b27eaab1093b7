package fmp4

import (
	"log/slog"
	"sort"

	"github.com/jmylchreest/goremux/pkg/bitstream"
	"github.com/jmylchreest/goremux/pkg/isobmff"
	"github.com/jmylchreest/goremux/pkg/rmerrors"
)

// Config configures a single Assemble call. Logger defaults to
// slog.Default() when nil, matching the ambient logging idiom used across
// every package in this module.
type Config struct {
	Logger *slog.Logger
}

// Assemble reads an ISO-BMFF buffer containing one init moov followed by
// any number of moof+mdat fragment pairs and flattens it into one sample
// table per canonical track plus a single combined mdat, per §4.D.
func Assemble(data []byte, cfg Config) (Result, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	boxes := isobmff.ReadBoxes(data)
	if len(boxes) == 0 {
		return Result{}, rmerrors.MalformedContainer("empty or unparsable ISO-BMFF input")
	}
	moovBox, ok := isobmff.Find(boxes, bitstream.BoxMOOV)
	if !ok {
		return Result{}, rmerrors.MalformedContainer("moov box not found")
	}
	moovChildren := isobmff.Children(moovBox.Payload)

	tracks, canonicalIDs, err := parseCanonicalTracks(moovChildren)
	if err != nil {
		return Result{}, err
	}
	if len(tracks) == 0 {
		return Result{}, rmerrors.MalformedContainer("moov declares no trak boxes")
	}
	trackByID := make(map[uint32]*Track, len(tracks))
	for _, t := range tracks {
		trackByID[t.TrackID] = t
	}

	idMap := buildTrackIDMap(canonicalIDs, collectFragmentTrackIDs(boxes))

	var combinedMDAT []byte
	var cursor int64

	for i := 0; i < len(boxes); i++ {
		moof := boxes[i]
		if moof.Type != bitstream.BoxMOOF {
			continue
		}
		if i+1 >= len(boxes) || boxes[i+1].Type != bitstream.BoxMDAT {
			return Result{}, rmerrors.MalformedContainer("moof not immediately followed by mdat")
		}
		mdat := boxes[i+1]
		moofStart := int64(moof.Offset)
		mdatStart := int64(mdat.Offset)

		for _, child := range isobmff.Children(moof.Payload) {
			if child.Type != bitstream.BoxTRAF {
				continue
			}
			if err := processTraf(child, moofStart, mdatStart, cursor, idMap, trackByID); err != nil {
				return Result{}, err
			}
		}

		combinedMDAT = append(combinedMDAT, mdat.Payload...)
		cursor += int64(len(mdat.Payload))
		logger.Debug("fmp4: fragment assembled", slog.Int("moof_offset", moof.Offset), slog.Int("mdat_size", len(mdat.Payload)))
	}

	return Result{Tracks: tracks, MDAT: combinedMDAT}, nil
}

func processTraf(traf isobmff.Box, moofStart, mdatStart, cursor int64, idMap map[uint32]uint32, trackByID map[uint32]*Track) error {
	trafChildren := isobmff.Children(traf.Payload)

	tfhdBox, ok := isobmff.Find(trafChildren, bitstream.BoxTFHD)
	if !ok {
		return rmerrors.MalformedContainer("traf missing tfhd")
	}
	tfhd, err := isobmff.DecodeTFHD(tfhdBox.Payload)
	if err != nil {
		return rmerrors.Wrap(rmerrors.KindMalformedContainer, "invalid tfhd", err)
	}

	trunBox, ok := isobmff.Find(trafChildren, bitstream.BoxTRUN)
	if !ok {
		return nil // a traf with no trun carries no samples
	}
	trun, err := isobmff.DecodeTRUN(trunBox.Payload)
	if err != nil {
		return rmerrors.Wrap(rmerrors.KindMalformedContainer, "invalid trun", err)
	}

	canonicalID, ok := idMap[tfhd.TrackID]
	if !ok {
		return nil // fragment references a track absent from the init moov
	}
	track, ok := trackByID[canonicalID]
	if !ok {
		return nil
	}

	var dataOffset int64
	if trun.HasDataOffset {
		dataOffset = int64(trun.DataOffset)
	}
	// combined_offset = combined_mdat_cursor + (moof_start + data_offset) - (mdat_start + 8)
	offset := cursor + (moofStart + dataOffset) - (mdatStart + 8)

	for i, s := range trun.Samples {
		duration := s.Duration
		if trun.Flags&isobmff.TrunSampleDurationPresent == 0 {
			duration = tfhd.DefaultSampleDuration
		}
		size := s.Size
		if trun.Flags&isobmff.TrunSampleSizePresent == 0 {
			size = tfhd.DefaultSampleSize
		}
		flags := s.Flags
		if trun.Flags&isobmff.TrunSampleFlagsPresent == 0 && !(i == 0 && trun.HasFirstSampleFlags) {
			flags = tfhd.DefaultSampleFlags
		}

		track.Samples = append(track.Samples, Sample{
			Offset:            offset,
			Size:              size,
			Duration:          duration,
			CompositionOffset: s.CompositionTimeOffset,
			IsKeyframe:        flags&0x00010000 == 0, // sample_is_non_sync_sample bit clear
		})
		offset += int64(size)
	}
	return nil
}

// parseCanonicalTracks reads the first moov's trak boxes into the canonical
// track list and metadata, in moov order.
func parseCanonicalTracks(moovChildren []isobmff.Box) ([]*Track, []uint32, error) {
	var tracks []*Track
	var ids []uint32

	for _, trak := range moovChildren {
		if trak.Type != bitstream.BoxTRAK {
			continue
		}
		trakChildren := isobmff.Children(trak.Payload)

		tkhdBox, ok := isobmff.Find(trakChildren, bitstream.BoxTKHD)
		if !ok {
			return nil, nil, rmerrors.MalformedContainer("trak missing tkhd")
		}
		tkhd, err := isobmff.DecodeTKHD(tkhdBox.Payload)
		if err != nil {
			return nil, nil, rmerrors.Wrap(rmerrors.KindMalformedContainer, "invalid tkhd", err)
		}

		mdhd, hdlr, stsd, err := decodeMediaInfo(trakChildren)
		if err != nil {
			return nil, nil, err
		}

		var kind TrackKind
		switch hdlr.HandlerType {
		case bitstream.NewFourCC("vide"):
			kind = TrackVideo
		case bitstream.NewFourCC("soun"):
			kind = TrackAudio
		default:
			continue // unrecognized handler type; not a track this remuxer carries
		}

		track := &Track{
			TrackID:           tkhd.TrackID,
			Kind:              kind,
			Timescale:         mdhd.Timescale,
			HasSourceEditList: hasEditList(trakChildren),
		}
		if kind == TrackVideo && stsd.AVC1 != nil {
			track.VideoWidth = stsd.AVC1.Width
			track.VideoHeight = stsd.AVC1.Height
			track.CodecBox = stsd.AVC1.ConfigBox
			track.CodecConfig = stsd.AVC1.Config
		}
		if kind == TrackAudio && stsd.MP4A != nil {
			track.SampleRate = int(stsd.MP4A.SampleRate >> 16)
			track.ChannelConfig = int(stsd.MP4A.ChannelCount)
			track.CodecConfig = stsd.MP4A.ESDS
		}

		tracks = append(tracks, track)
		ids = append(ids, tkhd.TrackID)
	}
	return tracks, ids, nil
}

func decodeMediaInfo(trakChildren []isobmff.Box) (isobmff.MDHD, isobmff.HDLR, isobmff.STSD, error) {
	mdiaBox, ok := isobmff.Find(trakChildren, bitstream.BoxMDIA)
	if !ok {
		return isobmff.MDHD{}, isobmff.HDLR{}, isobmff.STSD{}, rmerrors.MalformedContainer("trak missing mdia")
	}
	mdiaChildren := isobmff.Children(mdiaBox.Payload)

	mdhdBox, ok := isobmff.Find(mdiaChildren, bitstream.BoxMDHD)
	if !ok {
		return isobmff.MDHD{}, isobmff.HDLR{}, isobmff.STSD{}, rmerrors.MalformedContainer("mdia missing mdhd")
	}
	mdhd, err := isobmff.DecodeMDHD(mdhdBox.Payload)
	if err != nil {
		return isobmff.MDHD{}, isobmff.HDLR{}, isobmff.STSD{}, rmerrors.Wrap(rmerrors.KindMalformedContainer, "invalid mdhd", err)
	}

	hdlrBox, ok := isobmff.Find(mdiaChildren, bitstream.BoxHDLR)
	if !ok {
		return isobmff.MDHD{}, isobmff.HDLR{}, isobmff.STSD{}, rmerrors.MalformedContainer("mdia missing hdlr")
	}
	hdlr, err := isobmff.DecodeHDLR(hdlrBox.Payload)
	if err != nil {
		return isobmff.MDHD{}, isobmff.HDLR{}, isobmff.STSD{}, rmerrors.Wrap(rmerrors.KindMalformedContainer, "invalid hdlr", err)
	}

	minfBox, ok := isobmff.Find(mdiaChildren, bitstream.BoxMINF)
	if !ok {
		return mdhd, hdlr, isobmff.STSD{}, rmerrors.MalformedContainer("mdia missing minf")
	}
	minfChildren := isobmff.Children(minfBox.Payload)
	stblBox, ok := isobmff.Find(minfChildren, bitstream.BoxSTBL)
	if !ok {
		return mdhd, hdlr, isobmff.STSD{}, rmerrors.MalformedContainer("minf missing stbl")
	}
	stsdBox, ok := isobmff.Find(isobmff.Children(stblBox.Payload), bitstream.BoxSTSD)
	if !ok {
		return mdhd, hdlr, isobmff.STSD{}, rmerrors.MalformedContainer("stbl missing stsd")
	}
	stsd, err := isobmff.DecodeSTSD(stsdBox.Payload)
	if err != nil {
		return mdhd, hdlr, isobmff.STSD{}, rmerrors.Wrap(rmerrors.KindMalformedContainer, "invalid stsd", err)
	}
	return mdhd, hdlr, stsd, nil
}

func hasEditList(trakChildren []isobmff.Box) bool {
	edts, ok := isobmff.Find(trakChildren, bitstream.BoxEDTS)
	if !ok {
		return false
	}
	_, ok = isobmff.Find(isobmff.Children(edts.Payload), bitstream.BoxELST)
	return ok
}

// collectFragmentTrackIDs returns the distinct tfhd track_IDs seen across
// every moof, in first-seen order.
func collectFragmentTrackIDs(boxes []isobmff.Box) []uint32 {
	seen := make(map[uint32]bool)
	var ids []uint32
	for _, b := range boxes {
		if b.Type != bitstream.BoxMOOF {
			continue
		}
		for _, traf := range isobmff.Children(b.Payload) {
			if traf.Type != bitstream.BoxTRAF {
				continue
			}
			tfhdBox, ok := isobmff.Find(isobmff.Children(traf.Payload), bitstream.BoxTFHD)
			if !ok {
				continue
			}
			tfhd, err := isobmff.DecodeTFHD(tfhdBox.Payload)
			if err != nil {
				continue
			}
			if !seen[tfhd.TrackID] {
				seen[tfhd.TrackID] = true
				ids = append(ids, tfhd.TrackID)
			}
		}
	}
	return ids
}

// buildTrackIDMap maps each fragment track_ID to the canonical moov
// track_ID at the same rank in sorted numerical order, per §4.D.
func buildTrackIDMap(canonicalIDs, fragmentIDs []uint32) map[uint32]uint32 {
	sortedCanonical := append([]uint32(nil), canonicalIDs...)
	sort.Slice(sortedCanonical, func(i, j int) bool { return sortedCanonical[i] < sortedCanonical[j] })
	sortedFragment := append([]uint32(nil), fragmentIDs...)
	sort.Slice(sortedFragment, func(i, j int) bool { return sortedFragment[i] < sortedFragment[j] })

	m := make(map[uint32]uint32, len(sortedFragment))
	for i, fid := range sortedFragment {
		if i < len(sortedCanonical) {
			m[fid] = sortedCanonical[i]
		}
	}
	return m
}
