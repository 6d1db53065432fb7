package testutil

import (
	"math"
	"math/rand"
)

// DeterministicSine generates a deterministic sine wave.
func DeterministicSine(freqHz, sampleRate, amplitude float64, length int) []float64 {
	out := make([]float64, length)
	step := 2 * math.Pi * freqHz / sampleRate
	for i := range out {
		out[i] = amplitude * math.Sin(step*float64(i))
	}
	return out
}

// DeterministicNoise generates white noise with a fixed seed for reproducibility.
func DeterministicNoise(seed int64, amplitude float64, length int) []float64 {
	out := make([]float64, length)
	rng := rand.New(rand.NewSource(seed))
	for i := range out {
		out[i] = (rng.Float64()*2 - 1) * amplitude
	}
	return out
}

// Impulse generates a unit impulse at the given position.
func Impulse(length, pos int) []float64 {
	out := make([]float64, length)
	if pos >= 0 && pos < length {
		out[pos] = 1
	}
	return out
}

// DC generates a constant-valued signal.
func DC(value float64, length int) []float64 {
	out := make([]float64, length)
	for i := range out {
		out[i] = value
	}
	return out
}

// Ones returns a slice of length n filled with 1.0.
func Ones(n int) []float64 {
	return DC(1.0, n)
}

// Ricker generates a Ricker wavelet with peak frequency freqHz centered at
// sample position center. The classic zero-phase pulse shape for synthetic
// correlation tests.
func Ricker(freqHz, sampleRate float64, length, center int) []float64 {
	out := make([]float64, length)
	for i := range out {
		t := float64(i-center) / sampleRate
		a := math.Pi * freqHz * t
		a *= a
		out[i] = (1 - 2*a) * math.Exp(-a)
	}
	return out
}

// LaggedPair returns a correlation-like row of the given length with a
// Ricker arrival at +lagSamples from the center and another at -lagSamples,
// mimicking causal and acausal surface-wave arrivals.
func LaggedPair(freqHz, sampleRate float64, length, lagSamples int) []float64 {
	center := length / 2
	pos := Ricker(freqHz, sampleRate, length, center+lagSamples)
	neg := Ricker(freqHz, sampleRate, length, center-lagSamples)

	out := make([]float64, length)
	for i := range out {
		out[i] = pos[i] + neg[i]
	}
	return out
}
