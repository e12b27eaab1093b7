package mpegts

import "github.com/jmylchreest/goremux/pkg/rmerrors"

// patEntry is one (program_number, pmt_pid) pair from a PAT section.
type patEntry struct {
	ProgramNumber uint16
	PMTPid        uint16
}

// parsePAT reads a PAT section per §4.B: skip the pointer byte, then the
// 8-byte fixed section header, then 4-byte (program_number, pmt_pid) entries
// up to the CRC region.
func parsePAT(payload []byte) ([]patEntry, error) {
	if len(payload) < 1 {
		return nil, rmerrors.MalformedContainer("PAT payload empty")
	}
	pointer := int(payload[0])
	start := 1 + pointer
	if start+8 > len(payload) {
		return nil, rmerrors.MalformedContainer("PAT section header truncated")
	}
	sectionLength := int(payload[start+1]&0x0F)<<8 | int(payload[start+2])
	sectionEnd := start + 3 + sectionLength
	if sectionEnd > len(payload) {
		sectionEnd = len(payload)
	}
	entriesEnd := sectionEnd - 4 // exclude CRC32
	off := start + 8

	var entries []patEntry
	for off+4 <= entriesEnd {
		programNumber := uint16(payload[off])<<8 | uint16(payload[off+1])
		pmtPid := uint16(payload[off+2]&0x1F)<<8 | uint16(payload[off+3])
		entries = append(entries, patEntry{ProgramNumber: programNumber, PMTPid: pmtPid})
		off += 4
	}
	return entries, nil
}

// firstProgram returns the first PAT entry with both fields non-zero, per
// §4.B.
func firstProgram(entries []patEntry) (patEntry, bool) {
	for _, e := range entries {
		if e.ProgramNumber != 0 && e.PMTPid != 0 {
			return e, true
		}
	}
	return patEntry{}, false
}

// pmtEntry is one elementary stream entry from a PMT section.
type pmtEntry struct {
	StreamType    uint8
	ElementaryPID uint16
}

// parsePMT reads a PMT section per §4.B: program_info_length, then
// (stream_type, elementary_pid, es_info_length) entries up to the CRC
// region.
func parsePMT(payload []byte) ([]pmtEntry, error) {
	if len(payload) < 1 {
		return nil, rmerrors.MalformedContainer("PMT payload empty")
	}
	pointer := int(payload[0])
	start := 1 + pointer
	if start+12 > len(payload) {
		return nil, rmerrors.MalformedContainer("PMT section header truncated")
	}
	sectionLength := int(payload[start+1]&0x0F)<<8 | int(payload[start+2])
	sectionEnd := start + 3 + sectionLength
	if sectionEnd > len(payload) {
		sectionEnd = len(payload)
	}
	entriesEnd := sectionEnd - 4 // exclude CRC32

	programInfoLength := int(payload[start+10]&0x0F)<<8 | int(payload[start+11])
	off := start + 12 + programInfoLength

	var entries []pmtEntry
	for off+5 <= entriesEnd {
		streamType := payload[off]
		elementaryPID := uint16(payload[off+1]&0x1F)<<8 | uint16(payload[off+2])
		esInfoLength := int(payload[off+3]&0x0F)<<8 | int(payload[off+4])
		entries = append(entries, pmtEntry{StreamType: streamType, ElementaryPID: elementaryPID})
		off += 5 + esInfoLength
	}
	return entries, nil
}

// selectStreams picks the first video-typed and first audio-typed PMT
// entries per §4.B, rejecting unsupported codecs with a classified error.
func selectStreams(entries []pmtEntry) (video, audio *pmtEntry, err error) {
	for i := range entries {
		e := &entries[i]
		switch {
		case video == nil && isKnownVideo(e.StreamType):
			if !isSupportedVideo(e.StreamType) {
				return nil, nil, rmerrors.UnsupportedCodec(false, codecName(e.StreamType))
			}
			video = e
		case audio == nil && isKnownAudio(e.StreamType):
			if !isSupportedAudio(e.StreamType) {
				return nil, nil, rmerrors.UnsupportedCodec(true, codecName(e.StreamType))
			}
			audio = e
		}
	}
	return video, audio, nil
}
