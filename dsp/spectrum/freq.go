package spectrum

import "fmt"

// FFTFreq returns the sample frequencies for an n-point FFT with sample
// spacing dt, in standard FFT bin order: 0, positive frequencies ascending,
// then negative frequencies ascending toward zero.
func FFTFreq(n int, dt float64) ([]float64, error) {
	if n <= 0 {
		return nil, fmt.Errorf("spectrum: fft length must be > 0: %d", n)
	}
	if dt <= 0 {
		return nil, fmt.Errorf("spectrum: sample spacing must be > 0: %g", dt)
	}

	out := make([]float64, n)
	scale := 1 / (float64(n) * dt)

	half := (n - 1) / 2
	for i := 0; i <= half; i++ {
		out[i] = float64(i) * scale
	}
	for i := half + 1; i < n; i++ {
		out[i] = float64(i-n) * scale
	}
	return out, nil
}

// PositiveFreqs returns the first n/2 FFT bin frequencies (DC included,
// Nyquist excluded) for an n-point FFT with sample spacing dt.
func PositiveFreqs(n int, dt float64) ([]float64, error) {
	full, err := FFTFreq(n, dt)
	if err != nil {
		return nil, err
	}
	return full[:n/2], nil
}

// NextPow2 returns the next power of 2 >= n. Transforms are padded to such
// lengths before planning an FFT.
func NextPow2(n int) int {
	if n <= 1 {
		return 1
	}
	p := 1
	for p < n {
		p *= 2
	}
	return p
}
