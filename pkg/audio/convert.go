// Package audio provides the sample-level building blocks of the detection
// pipeline: PCM format conversion, biquad filtering, RMS normalization and
// the shared capture buffer.
//
// All functions operate on little-endian signed 16-bit PCM represented as
// []int16 (capture/recognition) or interleaved []float32 (playback).
package audio

import (
	"encoding/binary"
	"log/slog"
	"sync"
)

// Format describes the sample rate and channel count of an audio stream.
type Format struct {
	SampleRate int
	Channels   int
}

// Downmix averages all channels of interleaved samples into mono. The sum is
// carried in an int64 and divided by the channel count with truncation.
// Trailing samples that do not fill a whole frame are dropped.
func Downmix(interleaved []int16, channels int) []int16 {
	if channels <= 1 {
		return interleaved
	}
	frames := len(interleaved) / channels
	out := make([]int16, frames)
	for i := range frames {
		var sum int64
		for c := range channels {
			sum += int64(interleaved[i*channels+c])
		}
		out[i] = int16(sum / int64(channels))
	}
	return out
}

// DownmixResample converts interleaved multi-channel PCM at srcRate into mono
// PCM at dstRate. Channels are averaged per frame, then the mono signal is
// decimated by the integer ratio srcRate/dstRate. A Butterworth low-pass at
// 90% of the destination Nyquist frequency runs before decimation; without it,
// energy above Nyquist aliases into the speech band and corrupts recognition.
//
// When the integer ratio is ≤ 1 the mono signal is returned unchanged.
// Output length is floor(frames/ratio).
func DownmixResample(interleaved []int16, channels, srcRate, dstRate int) []int16 {
	mono := Downmix(interleaved, channels)

	ratio := srcRate / dstRate
	if ratio <= 1 {
		return mono
	}

	cutoff := float64(dstRate) / 2 * 0.9
	lp := NewLowpass(float64(srcRate), cutoff)

	out := make([]int16, len(mono)/ratio)
	for i := range mono {
		y := lp.RunInt16(mono[i])
		if i%ratio == 0 && i/ratio < len(out) {
			out[i/ratio] = y
		}
	}
	return out
}

// SamplesToBytes converts int16 samples to little-endian PCM bytes.
func SamplesToBytes(samples []int16) []byte {
	buf := make([]byte, len(samples)*2)
	for i, s := range samples {
		binary.LittleEndian.PutUint16(buf[i*2:], uint16(s))
	}
	return buf
}

// BytesToSamples converts little-endian PCM bytes to int16 samples.
// A trailing odd byte is dropped.
func BytesToSamples(b []byte) []int16 {
	samples := make([]int16, len(b)/2)
	for i := range samples {
		samples[i] = int16(binary.LittleEndian.Uint16(b[i*2:]))
	}
	return samples
}

// CaptureBuffer is the raw PCM hand-off between the transport's capture
// callback and the detector's processing tick. The callback appends under a
// mutex; the processing side drains wholesale with a swap so the lock is never
// held while the samples are processed.
//
// Safe for concurrent use.
type CaptureBuffer struct {
	mu      sync.Mutex
	samples []int16

	warnedEmpty sync.Once
}

// Push appends interleaved samples from the capture callback.
func (b *CaptureBuffer) Push(samples []int16) {
	if len(samples) == 0 {
		b.warnedEmpty.Do(func() {
			slog.Warn("capture buffer: empty frame from transport")
		})
		return
	}
	b.mu.Lock()
	b.samples = append(b.samples, samples...)
	b.mu.Unlock()
}

// Drain swaps out and returns everything accumulated since the previous
// drain. Returns nil when no audio arrived.
func (b *CaptureBuffer) Drain() []int16 {
	b.mu.Lock()
	out := b.samples
	b.samples = nil
	b.mu.Unlock()
	return out
}

// Len reports the number of buffered samples. Intended for diagnostics.
func (b *CaptureBuffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.samples)
}
