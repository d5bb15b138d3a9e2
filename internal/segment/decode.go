package segment

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/eldercare/triage-core/internal/audio"
)

const bytesPerFloat32Sample = 4

// decodeFloat32LE decodes a little-endian float32 PCM byte buffer into
// samples, downmixing interleaved multi-channel audio to mono by
// channel-mean. Returns an error if the byte count is not a whole number
// of channel-frames — callers must log and drop per §4.1, never propagate.
func decodeFloat32LE(data []byte, channels int) ([]float32, error) {
	if channels < 1 {
		channels = 1
	}
	frameBytes := bytesPerFloat32Sample * channels
	if len(data)%frameBytes != 0 {
		return nil, fmt.Errorf("malformed PCM: %d bytes not a multiple of %d (channels=%d)", len(data), frameBytes, channels)
	}
	frames := len(data) / frameBytes
	out := make([]float32, frames)
	for i := 0; i < frames; i++ {
		var sum float32
		for ch := 0; ch < channels; ch++ {
			off := i*frameBytes + ch*bytesPerFloat32Sample
			bits := binary.LittleEndian.Uint32(data[off : off+4])
			sum += math.Float32frombits(bits)
		}
		out[i] = sum / float32(channels)
	}
	return out, nil
}

// resampleIfNeeded resamples mono samples from srcRate to 16 kHz, skipping
// the work entirely if the rates already match (§4.1 step 2/"Edge policies").
func resampleIfNeeded(samples []float32, srcRate int, enabled bool) ([]float32, int) {
	if !enabled || srcRate == targetSampleRate {
		return samples, srcRate
	}
	return audio.Resample(samples, srcRate, targetSampleRate), targetSampleRate
}

