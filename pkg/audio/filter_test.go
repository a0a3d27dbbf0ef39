package audio_test

import (
	"math"
	"testing"

	"github.com/mjibson/go-dsp/fft"

	"github.com/sayboard/sayboard/pkg/audio"
)

// sine generates n samples of a sine wave at freq Hz with the given amplitude.
func sine(n int, freq, amplitude, sampleRate float64) []int16 {
	out := make([]int16, n)
	for i := range out {
		out[i] = int16(amplitude * math.Sin(2*math.Pi*freq*float64(i)/sampleRate))
	}
	return out
}

// magnitudeAt runs an FFT over samples and returns the spectral magnitude of
// the bin closest to freq Hz.
func magnitudeAt(samples []int16, freq, sampleRate float64) float64 {
	in := make([]float64, len(samples))
	for i, s := range samples {
		in[i] = float64(s)
	}
	spectrum := fft.FFTReal(in)
	bin := int(freq / sampleRate * float64(len(samples)))
	return cmplxAbs(spectrum[bin])
}

func cmplxAbs(c complex128) float64 {
	return math.Hypot(real(c), imag(c))
}

func TestHighpassRemovesDCOffset(t *testing.T) {
	// Constant DC signal should decay towards zero.
	samples := make([]int16, 4096)
	for i := range samples {
		samples[i] = 5000
	}
	out := audio.HighpassFilter(samples, 16000)
	if len(out) != len(samples) {
		t.Fatalf("length changed: got %d, want %d", len(out), len(samples))
	}
	// After the transient, output should be near zero.
	tail := out[len(out)/2:]
	if rms := audio.RMS(tail); rms > 50 {
		t.Errorf("DC not removed: tail RMS = %.1f, want < 50", rms)
	}
}

func TestHighpassPassesSpeechBand(t *testing.T) {
	// A 1kHz tone is well above the 80Hz cutoff and must pass ~unattenuated.
	samples := sine(8192, 1000, 10000, 16000)
	out := audio.HighpassFilter(samples, 16000)

	inMag := magnitudeAt(samples, 1000, 16000)
	outMag := magnitudeAt(out, 1000, 16000)
	if ratio := outMag / inMag; ratio < 0.9 {
		t.Errorf("1kHz attenuated by highpass: ratio %.3f, want >= 0.9", ratio)
	}
}

func TestHighpassAttenuatesRumble(t *testing.T) {
	// 30Hz rumble sits below the cutoff and must be strongly attenuated.
	samples := sine(8192, 30, 10000, 16000)
	out := audio.HighpassFilter(samples, 16000)

	inMag := magnitudeAt(samples, 30, 16000)
	outMag := magnitudeAt(out, 30, 16000)
	if ratio := outMag / inMag; ratio > 0.3 {
		t.Errorf("30Hz rumble not attenuated: ratio %.3f, want <= 0.3", ratio)
	}
}

func TestLowpassAttenuatesAboveCutoff(t *testing.T) {
	// The anti-aliasing filter at 7.2kHz (90% of 16kHz Nyquist) over a 48kHz
	// signal must attenuate a 20kHz tone far more than a 1kHz tone.
	const srcRate = 48000
	highTone := sine(8192, 20000, 10000, srcRate)
	lowTone := sine(8192, 1000, 10000, srcRate)

	filter := func(in []int16) []int16 {
		lp := audio.NewLowpass(srcRate, 7200)
		out := make([]int16, len(in))
		for i, s := range in {
			out[i] = lp.RunInt16(s)
		}
		return out
	}

	highRatio := magnitudeAt(filter(highTone), 20000, srcRate) / magnitudeAt(highTone, 20000, srcRate)
	lowRatio := magnitudeAt(filter(lowTone), 1000, srcRate) / magnitudeAt(lowTone, 1000, srcRate)

	if highRatio > 0.2 {
		t.Errorf("20kHz not attenuated: ratio %.3f, want <= 0.2", highRatio)
	}
	if lowRatio < 0.9 {
		t.Errorf("1kHz attenuated: ratio %.3f, want >= 0.9", lowRatio)
	}
}

func TestBiquadClampsToInt16(t *testing.T) {
	// A Butterworth lowpass overshoots on a full-scale step. Without
	// clamping, the float result above 32767 would wrap negative in the
	// int16 conversion.
	lp := audio.NewLowpass(16000, 7200)
	for i := range 256 {
		got := lp.RunInt16(math.MaxInt16)
		if i > 4 && got < 0 {
			t.Fatalf("sample %d wrapped negative: %d", i, got)
		}
	}
}
