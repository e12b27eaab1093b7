package mpegts

import (
	"log/slog"

	"github.com/jmylchreest/goremux/pkg/bitstream"
	"github.com/jmylchreest/goremux/pkg/rmerrors"
)

// Config configures a single Demux call. Logger defaults to slog.Default()
// when nil, matching TSDemuxerConfig's idiom; the library only ever logs
// diagnostic detail here, never the fatal errors it returns.
type Config struct {
	Logger *slog.Logger
}

// demuxState accumulates per-PID buffers and running state across the
// packet loop. It exists only for the duration of one Demux call — there is
// no state shared across calls.
type demuxState struct {
	log *slog.Logger

	patFound bool
	pmtPID   uint16
	pmtFound bool

	videoPID    uint16
	audioPID    uint16
	videoCodec  VideoCodec

	videoBuf []byte
	audioBuf []byte

	videoAUs    []AU
	audioFrames []AudioFrame

	runningAudioPTS    int64
	haveRunningAudio   bool
	audioTrailing      []byte
	sampleRateCached   bool
	sampleRate         int
	channelConfig      int
}

// Demux parses a complete MPEG-TS byte stream into ordered video AUs and
// audio frames per §4.B, normalizing timestamps per invariant I6.
func Demux(data []byte, cfg Config) (Result, error) {
	if len(data) == 0 {
		return Result{}, rmerrors.MalformedContainer("empty input")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	st := &demuxState{log: logger}

	pos := findSync(data, 0)
	if pos < 0 {
		return Result{}, rmerrors.MalformedContainer("no TS sync byte found")
	}

	for pos+PacketSize <= len(data) {
		if data[pos] != SyncByte {
			next := findSync(data, pos+1)
			if next < 0 {
				break
			}
			logger.Debug("mpegts: resynchronizing to next sync byte", slog.Int("from", pos), slog.Int("to", next))
			pos = next
			continue
		}
		pkt := data[pos : pos+PacketSize]
		hdr := parsePacketHeader(pkt)
		pos += PacketSize

		if !hdr.HasPayload {
			continue
		}
		payload := pkt[hdr.PayloadOff:]

		switch {
		case hdr.PID == 0x0000:
			if err := st.handlePAT(payload, hdr.PayloadStart); err != nil {
				return Result{}, err
			}
		case st.pmtPID != 0 && hdr.PID == st.pmtPID:
			if err := st.handlePMT(payload, hdr.PayloadStart); err != nil {
				return Result{}, err
			}
		case st.videoPID != 0 && hdr.PID == st.videoPID:
			st.feedVideo(payload, hdr.PayloadStart)
		case st.audioPID != 0 && hdr.PID == st.audioPID:
			st.feedAudio(payload, hdr.PayloadStart)
		}
	}

	// Finalization: flush any buffered PES data.
	if len(st.videoBuf) > 0 {
		st.flushVideo()
	}
	if len(st.audioBuf) > 0 {
		st.flushAudio()
	}

	if !st.patFound {
		return Result{}, rmerrors.MalformedContainer("PAT not found")
	}
	if !st.pmtFound {
		return Result{}, rmerrors.MalformedContainer("PMT not found")
	}

	normalize(st)

	if len(st.videoAUs) == 0 {
		return Result{}, rmerrors.EmptyStream("video stream produced zero access units")
	}

	sampleRate := st.sampleRate
	if sampleRate == 0 {
		sampleRate = 48000
	}

	return Result{
		VideoCodec:    st.videoCodec,
		VideoAUs:      st.videoAUs,
		AudioFrames:   st.audioFrames,
		SampleRate:    sampleRate,
		ChannelConfig: st.channelConfig,
	}, nil
}

func (st *demuxState) handlePAT(payload []byte, start bool) error {
	if !start {
		return nil // continuation of a multi-packet PAT section; unsupported, ignored.
	}
	entries, err := parsePAT(payload)
	if err != nil {
		return err
	}
	st.patFound = true
	if st.pmtPID != 0 {
		return nil // already resolved from an earlier PAT occurrence
	}
	prog, ok := firstProgram(entries)
	if !ok {
		return nil
	}
	st.pmtPID = prog.PMTPid
	st.log.Debug("mpegts: PAT parsed", slog.Int("pmt_pid", int(st.pmtPID)))
	return nil
}

func (st *demuxState) handlePMT(payload []byte, start bool) error {
	if !start {
		return nil
	}
	if st.pmtFound {
		return nil
	}
	entries, err := parsePMT(payload)
	if err != nil {
		return err
	}
	video, audio, err := selectStreams(entries)
	if err != nil {
		return err
	}
	st.pmtFound = true
	if video != nil {
		st.videoPID = video.ElementaryPID
		if video.StreamType == StreamTypeH265 {
			st.videoCodec = VideoCodecH265
		} else {
			st.videoCodec = VideoCodecH264
		}
		st.log.Debug("mpegts: video track located", slog.Int("pid", int(st.videoPID)), slog.String("codec", codecName(video.StreamType)))
	}
	if audio != nil {
		st.audioPID = audio.ElementaryPID
		st.log.Debug("mpegts: audio track located", slog.Int("pid", int(st.audioPID)), slog.String("codec", codecName(audio.StreamType)))
	}
	return nil
}

func (st *demuxState) feedVideo(payload []byte, start bool) {
	if start {
		if len(st.videoBuf) > 0 {
			st.flushVideo()
		}
		st.videoBuf = append([]byte(nil), payload...)
	} else if st.videoBuf != nil {
		st.videoBuf = append(st.videoBuf, payload...)
	}
}

func (st *demuxState) feedAudio(payload []byte, start bool) {
	if start {
		if len(st.audioBuf) > 0 {
			st.flushAudio()
		}
		st.audioBuf = append([]byte(nil), payload...)
	} else if st.audioBuf != nil {
		st.audioBuf = append(st.audioBuf, payload...)
	}
}

func (st *demuxState) flushVideo() {
	data := st.videoBuf
	st.videoBuf = nil
	pes, err := decodePES(data)
	if err != nil {
		st.log.Debug("mpegts: dropping malformed video PES", slog.String("error", err.Error()))
		return
	}
	if !pes.HasPTS {
		st.log.Debug("mpegts: dropping video PES without PTS")
		return
	}
	nalus := bitstream.SplitAnnexB(pes.Payload)
	if len(nalus) == 0 {
		return
	}
	st.videoAUs = append(st.videoAUs, AU{
		NALUs:      nalus,
		PTS:        pes.PTS,
		DTS:        pes.DTS,
		IsKeyframe: isIDR(st.videoCodec, nalus),
	})
}

func (st *demuxState) flushAudio() {
	data := st.audioBuf
	st.audioBuf = nil
	pes, err := decodePES(data)
	if err != nil {
		st.log.Debug("mpegts: dropping malformed audio PES", slog.String("error", err.Error()))
		return
	}

	payload := pes.Payload
	if len(st.audioTrailing) > 0 {
		payload = append(append([]byte(nil), st.audioTrailing...), payload...)
		st.audioTrailing = nil
	}
	frames, trailing := bitstream.ScanADTS(payload)
	st.audioTrailing = trailing

	haveTimestamp := pes.HasPTS || st.haveRunningAudio
	pts := pes.PTS
	if !pes.HasPTS {
		pts = st.runningAudioPTS
	}

	for _, f := range frames {
		if !st.sampleRateCached {
			st.sampleRate = f.SampleRate
			st.channelConfig = f.ChannelConfig
			st.sampleRateCached = true
		}
		if haveTimestamp {
			st.audioFrames = append(st.audioFrames, AudioFrame{Payload: f.Payload, PTS: pts})
		} else {
			st.log.Debug("mpegts: dropping audio frame with no available PTS")
		}

		sr := f.SampleRate
		if sr == 0 {
			sr = 48000
		}
		// round(1024 * 90000 / sr) via integer arithmetic.
		increment := int64((1024*90000 + sr/2) / sr)
		pts += increment
	}
	if haveTimestamp && len(frames) > 0 {
		st.runningAudioPTS = pts
		st.haveRunningAudio = true
	}
}

// normalize applies invariant I6: subtract min(first_video_pts,
// first_audio_pts) from every sample's PTS/DTS so the earliest sample
// starts at 0.
func normalize(st *demuxState) {
	if len(st.videoAUs) == 0 && len(st.audioFrames) == 0 {
		return
	}
	minPTS := int64(1) << 62
	hasAny := false
	if len(st.videoAUs) > 0 {
		minPTS = st.videoAUs[0].PTS
		hasAny = true
	}
	if len(st.audioFrames) > 0 {
		if !hasAny || st.audioFrames[0].PTS < minPTS {
			minPTS = st.audioFrames[0].PTS
		}
	}
	if minPTS == 0 {
		return
	}
	for i := range st.videoAUs {
		st.videoAUs[i].PTS -= minPTS
		st.videoAUs[i].DTS -= minPTS
	}
	for i := range st.audioFrames {
		st.audioFrames[i].PTS -= minPTS
	}
}
