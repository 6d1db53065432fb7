package stack

import (
	"fmt"
	"math"
	"math/cmplx"

	algofft "github.com/MeKo-Christian/algo-fft"

	"github.com/noisexc/noisexc/dsp/spectrum"
)

// PhaseWeighted stacks rows by weighting the linear mean with the
// instantaneous phase coherence: the magnitude of the mean unit phasor of
// the analytic signal across rows, raised to power. Samples where the
// windows agree in phase keep their amplitude, incoherent samples are
// suppressed.
func PhaseWeighted(rows [][]float64, power float64) ([]float64, error) {
	if err := checkRows(rows); err != nil {
		return nil, err
	}
	if len(rows) == 1 {
		out := make([]float64, len(rows[0]))
		copy(out, rows[0])
		return out, nil
	}

	n := len(rows[0])
	nfft := spectrum.NextPow2(n)
	plan, err := algofft.NewPlan64(nfft)
	if err != nil {
		return nil, fmt.Errorf("stack: fft plan for %d: %w", nfft, err)
	}

	src := make([]complex128, nfft)
	freq := make([]complex128, nfft)
	analytic := make([]complex128, nfft)
	phasorSum := make([]complex128, n)

	half := nfft / 2
	for _, row := range rows {
		for j := range src {
			src[j] = 0
		}
		for j, v := range row {
			src[j] = complex(v, 0)
		}
		if err := plan.Forward(freq, src); err != nil {
			return nil, fmt.Errorf("stack: forward fft: %w", err)
		}

		// Analytic signal multiplier: keep DC and the bin at nfft/2,
		// double the positive frequencies, zero the negative ones.
		for k := 1; k < half; k++ {
			freq[k] *= 2
		}
		for k := half + 1; k < nfft; k++ {
			freq[k] = 0
		}

		if err := plan.Inverse(analytic, freq); err != nil {
			return nil, fmt.Errorf("stack: inverse fft: %w", err)
		}

		for j := range phasorSum {
			phasorSum[j] += cmplx.Rect(1, cmplx.Phase(analytic[j]))
		}
	}

	out, err := Linear(rows)
	if err != nil {
		return nil, err
	}

	scale := complex(float64(len(rows)), 0)
	for j := range out {
		coh := cmplx.Abs(phasorSum[j] / scale)
		out[j] *= math.Pow(coh, power)
	}
	return out, nil
}
