package audio

import "math"

// butterworthQ is the quality factor of a second-order Butterworth section
// (maximally flat passband).
var butterworthQ = 1.0 / math.Sqrt2

// Biquad is a second-order IIR filter section in direct form II transposed.
// Coefficients follow the audio EQ cookbook formulas; the filter keeps its
// internal state across Run calls, so a single Biquad processes one
// contiguous signal. Create a fresh Biquad per chunk when chunk-local
// filtering is required.
//
// Not safe for concurrent use.
type Biquad struct {
	b0, b1, b2 float64
	a1, a2     float64
	z1, z2     float64
}

// NewHighpass returns a Butterworth high-pass biquad with the given cutoff
// frequency at the given sample rate.
func NewHighpass(sampleRate, cutoff float64) *Biquad {
	w0 := 2 * math.Pi * cutoff / sampleRate
	cosw0 := math.Cos(w0)
	alpha := math.Sin(w0) / (2 * butterworthQ)

	a0 := 1 + alpha
	f := &Biquad{
		b0: (1 + cosw0) / 2 / a0,
		b1: -(1 + cosw0) / a0,
		b2: (1 + cosw0) / 2 / a0,
		a1: -2 * cosw0 / a0,
		a2: (1 - alpha) / a0,
	}
	return f
}

// NewLowpass returns a Butterworth low-pass biquad with the given cutoff
// frequency at the given sample rate.
func NewLowpass(sampleRate, cutoff float64) *Biquad {
	w0 := 2 * math.Pi * cutoff / sampleRate
	cosw0 := math.Cos(w0)
	alpha := math.Sin(w0) / (2 * butterworthQ)

	a0 := 1 + alpha
	f := &Biquad{
		b0: (1 - cosw0) / 2 / a0,
		b1: (1 - cosw0) / a0,
		b2: (1 - cosw0) / 2 / a0,
		a1: -2 * cosw0 / a0,
		a2: (1 - alpha) / a0,
	}
	return f
}

// Run filters a single sample.
func (f *Biquad) Run(x float64) float64 {
	y := f.b0*x + f.z1
	f.z1 = f.b1*x - f.a1*y + f.z2
	f.z2 = f.b2*x - f.a2*y
	return y
}

// RunInt16 filters a single int16 sample and clamps the result to the valid
// int16 range.
func (f *Biquad) RunInt16(s int16) int16 {
	y := f.Run(float64(s))
	if y > math.MaxInt16 {
		return math.MaxInt16
	}
	if y < math.MinInt16 {
		return math.MinInt16
	}
	return int16(y)
}
