package segment

import (
	"encoding/binary"
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

func floatsToLE(samples []float32) []byte {
	buf := make([]byte, len(samples)*4)
	for i, s := range samples {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(s))
	}
	return buf
}

func toneAt(n int, amplitude float32) []float32 {
	out := make([]float32, n)
	for i := range out {
		out[i] = amplitude
	}
	return out
}

func testConfig() Config {
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

func TestPushPCM_EmptyBufferIsNoOp(t *testing.T) {
	s := New(testConfig())
	segs := s.PushPCM(nil, 16000, 1)
	require.Nil(t, segs)
}

func TestPushPCM_MalformedByteCountDropped(t *testing.T) {
	s := New(testConfig())
	// 3 bytes is not a multiple of 4.
	segs := s.PushPCM([]byte{1, 2, 3}, 16000, 1)
	require.Nil(t, segs)
}

func TestPushPCM_SilenceOnlyProducesNoSegments(t *testing.T) {
	s := New(testConfig())
	silence := toneAt(16000*2, 0.0) // 2s of silence
	segs := s.PushPCM(floatsToLE(silence), 16000, 1)
	require.Empty(t, segs)
}

func TestPushPCM_SpeechProducesSegmentMeetingMinDuration(t *testing.T) {
	s := New(testConfig())
	// 800ms loud tone followed by 500ms silence (> max_silence_ms=300).
	loud := toneAt(16000*800/1000, 0.5)
	silence := toneAt(16000*500/1000, 0.0)
	all := append(append([]float32{}, loud...), silence...)

	segs := s.PushPCM(floatsToLE(all), 16000, 1)
	require.Len(t, segs, 1)
	require.GreaterOrEqual(t, segs[0].DurationMs(), int64(200))
}

func TestRMS_ExactlyAtThreshold_IsVoiced(t *testing.T) {
	// Construct a frame whose RMS is exactly the threshold.
	threshold := 0.015
	frame := toneAt(320, float32(threshold))
	got := rms(frame)
	require.InDelta(t, threshold, got, 1e-9)
	require.True(t, got >= threshold, "RMS exactly at threshold must be classified voiced (inclusive)")
}

func TestPushPCM_HardCapReSegments(t *testing.T) {
	cfg := testConfig()
	cfg.MaxSegmentMs = 500
	s := New(cfg)
	// 2s of continuous loud tone, never going silent: should re-segment at
	// the hard cap repeatedly rather than accumulate one giant segment.
	loud := toneAt(16000*2, 0.5)
	segs := s.PushPCM(floatsToLE(loud), 16000, 1)
	require.NotEmpty(t, segs)
	for _, seg := range segs {
		require.LessOrEqual(t, seg.DurationMs(), int64(cfg.MaxSegmentMs)+int64(cfg.HopMs))
	}
}

func TestPushPCM_ResampleSkippedWhenAlready16k(t *testing.T) {
	s := New(testConfig())
	samples := toneAt(1600, 0.5)
	before := len(samples)
	out, sr := resampleIfNeeded(samples, 16000, true)
	require.Equal(t, 16000, sr)
	require.Len(t, out, before)
}

func TestDecodeFloat32LE_Downmixes(t *testing.T) {
	// Two channels: left=1.0, right=-1.0 -> mean 0.0
	data := floatsToLE([]float32{1.0, -1.0})
	out, err := decodeFloat32LE(data, 2)
	require.NoError(t, err)
	require.Len(t, out, 1)
	require.InDelta(t, 0.0, out[0], 1e-6)
}
