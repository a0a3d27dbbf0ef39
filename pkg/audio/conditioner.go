package audio

import "math"

const (
	// highpassCutoffHz removes DC offset and low-frequency rumble before
	// recognition. Speech carries no useful energy below this.
	highpassCutoffHz = 80.0

	// targetRMS is the level Normalize drives a chunk towards.
	targetRMS = 3000.0

	// silenceRMS is the floor below which a chunk is considered silence and
	// left untouched, so background noise is not amplified.
	silenceRMS = 100.0

	// maxGain caps normalization gain for very quiet (but non-silent) chunks.
	maxGain = 10.0
)

// HighpassFilter applies an 80 Hz Butterworth high-pass to samples at the
// given rate and returns the filtered copy, clamped to int16 range. Filter
// state is chunk-local: each call starts from a zeroed biquad.
func HighpassFilter(samples []int16, sampleRate int) []int16 {
	f := NewHighpass(float64(sampleRate), highpassCutoffHz)
	out := make([]int16, len(samples))
	for i, s := range samples {
		out[i] = f.RunInt16(s)
	}
	return out
}

// RMS returns the root mean square level of samples, or 0 for an empty slice.
func RMS(samples []int16) float64 {
	if len(samples) == 0 {
		return 0
	}
	var sumSq float64
	for _, s := range samples {
		sumSq += float64(s) * float64(s)
	}
	return math.Sqrt(sumSq / float64(len(samples)))
}

// Normalize scales samples in place towards a target RMS of 3000 so that
// quiet and loud speech reach the recognizer at a consistent level. Near-
// silent chunks (RMS < 100) are left untouched. Gain is capped at 10x and
// every sample is clamped to int16 range.
func Normalize(samples []int16) {
	rms := RMS(samples)
	if rms < silenceRMS {
		return
	}
	gain := math.Min(targetRMS/rms, maxGain)
	for i, s := range samples {
		v := float64(s) * gain
		if v > math.MaxInt16 {
			v = math.MaxInt16
		} else if v < math.MinInt16 {
			v = math.MinInt16
		}
		samples[i] = int16(v)
	}
}
