// Package obs estimates auto- and cross-spectra for four-component
// ocean-bottom records, the two horizontals, the vertical, and the
// pressure channel, and scans horizontal azimuths for the tilt direction
// that couples most coherently into the vertical.
package obs

import (
	"fmt"

	algofft "github.com/MeKo-Christian/algo-fft"
	"gonum.org/v1/gonum/floats"

	"github.com/noisexc/noisexc/dsp/spectrum"
	"github.com/noisexc/noisexc/dsp/window"
)

// Config controls the Welch segmentation for spectral estimation.
type Config struct {
	// WindowSecs is the segment length in seconds.
	WindowSecs float64
	// Overlap is the fraction of a segment shared with its neighbor.
	// Zero or negative selects the default 0.3.
	Overlap float64
}

func normalizeConfig(cfg Config) Config {
	if cfg.Overlap <= 0 {
		cfg.Overlap = 0.3
	}
	return cfg
}

// Power holds one-sided power spectral densities for the four channels.
// Component 1 and 2 are the horizontals, Z the vertical, P pressure.
type Power struct {
	C11, C22, CZZ, CPP []float64

	WindowSecs float64
	Overlap    float64
	Freq       []float64 // Hz
}

// Cross holds one-sided cross-spectral densities between channel pairs,
// conj(first) times second.
type Cross struct {
	C12, C1Z, C1P, C2Z, C2P, CZP []complex128

	WindowSecs float64
	Overlap    float64
	Freq       []float64
}

// Spectra estimates the power and cross-spectra of the four channels with
// Welch averaging: Hann-tapered, demeaned segments of cfg.WindowSecs
// seconds, overlapped by cfg.Overlap, averaged over all segments. The
// densities are one-sided and normalized so that summing a power spectrum
// times the bin width recovers the channel variance.
func Spectra(c1, c2, cz, cp []float64, dt float64, cfg Config) (*Power, *Cross, error) {
	cfg = normalizeConfig(cfg)
	if dt <= 0 {
		return nil, nil, fmt.Errorf("obs: sample interval must be positive, got %v", dt)
	}
	if cfg.Overlap >= 1 {
		return nil, nil, fmt.Errorf("obs: overlap fraction %v must be below 1", cfg.Overlap)
	}
	n := len(c1)
	if len(c2) != n || len(cz) != n || len(cp) != n {
		return nil, nil, fmt.Errorf("obs: channel lengths differ: %d, %d, %d, %d",
			n, len(c2), len(cz), len(cp))
	}

	ws := int(cfg.WindowSecs / dt)
	if ws < 2 {
		return nil, nil, fmt.Errorf("obs: window of %v s spans under two samples", cfg.WindowSecs)
	}
	if ws > n {
		return nil, nil, fmt.Errorf("obs: window of %d samples exceeds record length %d", ws, n)
	}
	ss := int(float64(ws) * (1 - cfg.Overlap))
	if ss < 1 {
		ss = 1
	}
	nwin := (n-ws)/ss + 1

	nfft := spectrum.NextPow2(ws)
	half := nfft / 2
	freq, err := spectrum.PositiveFreqs(nfft, dt)
	if err != nil {
		return nil, nil, fmt.Errorf("obs: %w", err)
	}
	plan, err := algofft.NewPlan64(nfft)
	if err != nil {
		return nil, nil, fmt.Errorf("obs: fft plan for %d: %w", nfft, err)
	}

	taper := window.Generate(window.TypeHann, ws)
	// Density normalization. One-sided bins double, except DC.
	norm := dt / (window.SumSquares(taper) * float64(nwin))

	pw := &Power{
		C11: make([]float64, half), C22: make([]float64, half),
		CZZ: make([]float64, half), CPP: make([]float64, half),
		WindowSecs: cfg.WindowSecs, Overlap: cfg.Overlap, Freq: freq,
	}
	cr := &Cross{
		C12: make([]complex128, half), C1Z: make([]complex128, half),
		C1P: make([]complex128, half), C2Z: make([]complex128, half),
		C2P: make([]complex128, half), CZP: make([]complex128, half),
		WindowSecs: cfg.WindowSecs, Overlap: cfg.Overlap, Freq: freq,
	}

	src := make([]complex128, nfft)
	f1 := make([]complex128, nfft)
	f2 := make([]complex128, nfft)
	fz := make([]complex128, nfft)
	fp := make([]complex128, nfft)
	for w := 0; w < nwin; w++ {
		lo, hi := w*ss, w*ss+ws
		if err := segmentFFT(plan, f1, src, c1[lo:hi], taper); err != nil {
			return nil, nil, err
		}
		if err := segmentFFT(plan, f2, src, c2[lo:hi], taper); err != nil {
			return nil, nil, err
		}
		if err := segmentFFT(plan, fz, src, cz[lo:hi], taper); err != nil {
			return nil, nil, err
		}
		if err := segmentFFT(plan, fp, src, cp[lo:hi], taper); err != nil {
			return nil, nil, err
		}
		for k := 0; k < half; k++ {
			pw.C11[k] += absSq(f1[k])
			pw.C22[k] += absSq(f2[k])
			pw.CZZ[k] += absSq(fz[k])
			pw.CPP[k] += absSq(fp[k])

			cr.C12[k] += conjProd(f1[k], f2[k])
			cr.C1Z[k] += conjProd(f1[k], fz[k])
			cr.C1P[k] += conjProd(f1[k], fp[k])
			cr.C2Z[k] += conjProd(f2[k], fz[k])
			cr.C2P[k] += conjProd(f2[k], fp[k])
			cr.CZP[k] += conjProd(fz[k], fp[k])
		}
	}

	for k := 0; k < half; k++ {
		scale := 2 * norm
		if k == 0 {
			scale = norm
		}
		pw.C11[k] *= scale
		pw.C22[k] *= scale
		pw.CZZ[k] *= scale
		pw.CPP[k] *= scale

		cs := complex(scale, 0)
		cr.C12[k] *= cs
		cr.C1Z[k] *= cs
		cr.C1P[k] *= cs
		cr.C2Z[k] *= cs
		cr.C2P[k] *= cs
		cr.CZP[k] *= cs
	}
	return pw, cr, nil
}

func segmentFFT(plan *algofft.Plan[complex128], dst, src []complex128, seg, taper []float64) error {
	mean := floats.Sum(seg) / float64(len(seg))
	for i := range src {
		src[i] = 0
	}
	for i, v := range seg {
		src[i] = complex((v-mean)*taper[i], 0)
	}
	if err := plan.Forward(dst, src); err != nil {
		return fmt.Errorf("obs: forward fft: %w", err)
	}
	return nil
}

func absSq(v complex128) float64 {
	re, im := real(v), imag(v)
	return re*re + im*im
}

func conjProd(a, b complex128) complex128 {
	return complex(real(a), -imag(a)) * b
}
