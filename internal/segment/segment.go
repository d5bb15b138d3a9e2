package segment

import (
	"log/slog"
	"math"
	"time"

	"github.com/eldercare/triage-core/internal/domain"
	"github.com/eldercare/triage-core/internal/telemetry"
)

type state int

const (
	stateIdle state = iota
	stateSpeaking
)

// Segmenter frames raw PCM, computes per-frame RMS energy, and runs the
// Idle/Speaking voice-activity state machine described in §4.1. It is not
// safe for concurrent use — the concurrency model (§5) confines one
// Segmenter to a single long-lived worker goroutine.
type Segmenter struct {
	cfg   Config
	state state

	residue []float32 // unprocessed tail samples, always < frameLen

	// pending holds the last minSpeechFrames hop-chunks observed while
	// Idle, so that the moment of transition to Speaking already carries
	// min_speech_ms worth of audio.
	pending      []float32
	voicedStreak int

	segBuf        []float32
	silenceStreak int

	// base is the instant sample 0 was processed; segment timestamps are
	// derived from sample counts rather than wall-clock reads so that
	// behavior is deterministic and independent of processing speed.
	base           time.Time
	processedSamps int64
	segStartSamps  int64
}

// New constructs a Segmenter. cfg zero-fields fall back to DefaultConfig.
func New(cfg Config) *Segmenter {
	return &Segmenter{cfg: cfg.withDefaults(), base: time.Now()}
}

func (s *Segmenter) sampleTime(n int64) time.Time {
	return s.base.Add(time.Duration(n) * time.Second / time.Duration(targetSampleRate))
}

// PushPCM decodes a raw byte buffer (little-endian float32, declared
// sampleRate/channels), advances the state machine, and returns zero or
// more completed SpeechSegment values. Malformed input (byte count not a
// multiple of 4*channels) is logged and dropped: PushPCM returns nil,
// never an error, per §4.1 "Failure" and §7 "Malformed input ... no retries."
// An empty buffer is a no-op.
func (s *Segmenter) PushPCM(data []byte, sampleRate, channels int) []domain.SpeechSegment {
	if len(data) == 0 {
		return nil
	}
	samples, err := decodeFloat32LE(data, channels)
	if err != nil {
		slog.Warn("segment: dropping malformed PCM buffer", "error", err, "bytes", len(data))
		telemetry.MalformedPCMFrames.Inc()
		return nil
	}
	if len(samples) == 0 {
		return nil
	}
	resampled, sr := resampleIfNeeded(samples, sampleRate, s.cfg.ResampleTo16k)
	return s.process(resampled, sr)
}

func (s *Segmenter) process(samples []float32, sr int) []domain.SpeechSegment {
	frameLen := s.cfg.frameLen(sr)
	hopLen := s.cfg.hopLen(sr)
	if frameLen < 1 || hopLen < 1 {
		slog.Warn("segment: degenerate frame/hop sizing, dropping buffer", "frame_len", frameLen, "hop_len", hopLen)
		return nil
	}

	buf := append(s.residue, samples...)

	var out []domain.SpeechSegment
	pos := 0
	for pos+frameLen <= len(buf) {
		frame := buf[pos : pos+frameLen]
		if seg, ok := s.stepFrame(frame, sr, hopLen); ok {
			out = append(out, seg)
		}
		s.processedSamps += int64(hopLen)
		pos += hopLen
	}

	s.residue = append([]float32(nil), buf[pos:]...)
	return out
}

// stepFrame evaluates one analysis frame and advances the state machine by
// one hop. It returns a completed segment if one was emitted this step.
func (s *Segmenter) stepFrame(frame []float32, sr, hopLen int) (domain.SpeechSegment, bool) {
	voiced := rms(frame) >= s.cfg.EnergyThreshold
	hop := frame[:min(hopLen, len(frame))]

	switch s.state {
	case stateIdle:
		return s.stepIdle(voiced, hop)
	default:
		return s.stepSpeaking(voiced, hop, sr)
	}
}

func (s *Segmenter) stepIdle(voiced bool, hop []float32) (domain.SpeechSegment, bool) {
	if !voiced {
		s.voicedStreak = 0
		s.pending = nil
		return domain.SpeechSegment{}, false
	}

	s.voicedStreak++
	s.pending = append(s.pending, hop...)
	maxPending := s.cfg.minSpeechFrames() * len(hop)
	if maxPending > 0 && len(s.pending) > maxPending {
		s.pending = s.pending[len(s.pending)-maxPending:]
	}

	if s.voicedStreak < s.cfg.minSpeechFrames() {
		return domain.SpeechSegment{}, false
	}

	// Transition Idle -> Speaking: the transition frame's run of audio is
	// already in s.pending, which becomes the fresh per-segment buffer.
	s.state = stateSpeaking
	s.segStartSamps = s.processedSamps + int64(len(hop)) - int64(len(s.pending))
	if s.segStartSamps < 0 {
		s.segStartSamps = 0
	}
	s.segBuf = append([]float32(nil), s.pending...)
	s.pending = nil
	s.silenceStreak = 0
	return domain.SpeechSegment{}, false
}

func (s *Segmenter) stepSpeaking(voiced bool, hop []float32, sr int) (domain.SpeechSegment, bool) {
	s.segBuf = append(s.segBuf, hop...)
	if voiced {
		s.silenceStreak = 0
	} else {
		s.silenceStreak++
	}

	if s.silenceStreak >= s.cfg.maxSilenceFrames() {
		seg := s.emit(sr)
		s.resetToIdle()
		telemetry.SpeechSegments.Inc()
		return seg, true
	}

	if s.segmentDuration(sr) >= s.cfg.maxSegmentDuration() {
		seg := s.emit(sr)
		// Hard cap: re-enter Speaking with a fresh buffer, starting now.
		s.segBuf = nil
		s.segStartSamps = s.processedSamps + int64(len(hop))
		telemetry.SpeechSegments.Inc()
		return seg, true
	}

	return domain.SpeechSegment{}, false
}

func (s *Segmenter) segmentDuration(sr int) time.Duration {
	return time.Duration(len(s.segBuf)) * time.Second / time.Duration(sr)
}

func (s *Segmenter) emit(sr int) domain.SpeechSegment {
	endSamps := s.processedSamps + int64(s.cfg.hopLen(sr))
	return domain.SpeechSegment{
		Samples:    s.segBuf,
		SampleRate: sr,
		StartedAt:  s.sampleTime(s.segStartSamps),
		EndedAt:    s.sampleTime(endSamps),
	}
}

func (s *Segmenter) resetToIdle() {
	s.state = stateIdle
	s.segBuf = nil
	s.voicedStreak = 0
	s.silenceStreak = 0
	s.pending = nil
}

// Flush emits whatever is currently accumulated as a final segment, if it
// meets the minimum speech duration, and resets the segmenter to Idle. Use
// at stream end (e.g. capture-worker shutdown).
func (s *Segmenter) Flush() (domain.SpeechSegment, bool) {
	if s.state != stateSpeaking || len(s.segBuf) == 0 {
		s.resetToIdle()
		return domain.SpeechSegment{}, false
	}
	seg := domain.SpeechSegment{
		Samples:    s.segBuf,
		SampleRate: targetSampleRate,
		StartedAt:  s.sampleTime(s.segStartSamps),
		EndedAt:    s.sampleTime(s.processedSamps),
	}
	s.resetToIdle()
	if seg.DurationMs() < int64(s.cfg.MinSpeechMs) {
		return domain.SpeechSegment{}, false
	}
	telemetry.SpeechSegments.Inc()
	return seg, true
}

func rms(samples []float32) float64 {
	if len(samples) == 0 {
		return 0
	}
	var sum float64
	for _, v := range samples {
		sum += float64(v) * float64(v)
	}
	return math.Sqrt(sum / float64(len(samples)))
}
