// Package segment implements C1, the stream segmenter: it turns raw PCM
// byte buffers into bounded SpeechSegment values using an energy-based
// voice-activity state machine.
package segment

import "time"

// Config controls frame/hop sizing, the energy threshold, and the
// state-machine timing parameters. Zero-valued numeric fields are replaced
// by DefaultConfig's defaults via Config.withDefaults; ResampleTo16k is
// used as given.
type Config struct {
	// SampleRate is the rate audio is delivered at. If it differs from
	// 16000 and ResampleTo16k is true, frames are resampled before framing.
	SampleRate int
	Channels   int

	FrameMs int
	HopMs   int

	// EnergyThreshold is the linear RMS threshold; a frame is voiced iff
	// rms >= EnergyThreshold (inclusive).
	EnergyThreshold float64

	MinSpeechMs   int
	MaxSilenceMs  int
	MaxSegmentMs  int
	ResampleTo16k bool
}

// DefaultConfig returns the canonical defaults from §4.1/§6.
func DefaultConfig() Config {
	return Config{
		SampleRate:      16000,
		Channels:        1,
		FrameMs:         20,
		HopMs:           10,
		EnergyThreshold: 0.015,
		MinSpeechMs:     200,
		MaxSilenceMs:    300,
		MaxSegmentMs:    10000,
		ResampleTo16k:   true,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.SampleRate == 0 {
		c.SampleRate = d.SampleRate
	}
	if c.Channels == 0 {
		c.Channels = d.Channels
	}
	if c.FrameMs == 0 {
		c.FrameMs = d.FrameMs
	}
	if c.HopMs == 0 {
		c.HopMs = d.HopMs
	}
	if c.EnergyThreshold == 0 {
		c.EnergyThreshold = d.EnergyThreshold
	}
	if c.MinSpeechMs == 0 {
		c.MinSpeechMs = d.MinSpeechMs
	}
	if c.MaxSilenceMs == 0 {
		c.MaxSilenceMs = d.MaxSilenceMs
	}
	if c.MaxSegmentMs == 0 {
		c.MaxSegmentMs = d.MaxSegmentMs
	}
	return c
}

const targetSampleRate = 16000

// frameLen returns the number of output-rate samples per analysis frame.
func (c Config) frameLen(sr int) int { return sr * c.FrameMs / 1000 }

// hopLen returns the number of output-rate samples the window advances by.
func (c Config) hopLen(sr int) int { return sr * c.HopMs / 1000 }

func (c Config) minSpeechFrames() int {
	n := c.MinSpeechMs / c.HopMs
	if n < 1 {
		n = 1
	}
	return n
}

func (c Config) maxSilenceFrames() int {
	n := c.MaxSilenceMs / c.HopMs
	if n < 1 {
		n = 1
	}
	return n
}

func (c Config) maxSegmentDuration() time.Duration {
	return time.Duration(c.MaxSegmentMs) * time.Millisecond
}
