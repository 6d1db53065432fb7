package fftdata

import (
	"fmt"
	"math/cmplx"

	"github.com/noisexc/noisexc/dsp/spectrum"
	"github.com/noisexc/noisexc/dsp/window"
)

// taperBins is the number of bins in each cosine apodization ramp flanking
// the whitening passband.
const taperBins = 100

// Whiten normalizes every spectrum row inside the [FreqMin, FreqMax] band
// and zeroes everything outside it. The passband is flanked by squared
// cosine ramps of up to taperBins bins, bins below the lower ramp and
// between the upper ramp and NFFT/2 are zeroed, and the negative
// frequencies are rebuilt by Hermitian symmetry so the inverse transform
// stays real.
//
// With FreqNormPhaseOnly in-band bins keep only their phase. With
// FreqNormRunningMean they are divided by a running mean of the spectral
// amplitude with half width SmoothN. With FreqNormNone the passband is
// left as is and only the ramps and zeroing apply.
//
// A zero FreqMax defaults to 0.499 times the sample rate. FreqMin must be
// positive.
func (f *FFTData) Whiten() error {
	if len(f.Data) == 0 {
		return nil
	}
	if f.FreqMin <= 0 {
		return fmt.Errorf("fftdata: whitening needs a positive FreqMin, got %v", f.FreqMin)
	}
	if f.FreqMax <= 0 {
		f.FreqMax = 0.499 * f.SampleRate()
	}

	half := f.NFFT / 2
	freqs, err := spectrum.PositiveFreqs(f.NFFT, f.Dt)
	if err != nil {
		return fmt.Errorf("fftdata: %w", err)
	}

	left, right := -1, -1
	for i, fr := range freqs {
		if fr < f.FreqMin || fr > f.FreqMax {
			continue
		}
		if left < 0 {
			left = i
		}
		right = i
	}
	if left < 0 {
		return fmt.Errorf("fftdata: no frequency bins between %v and %v Hz", f.FreqMin, f.FreqMax)
	}

	low := left - taperBins
	if low <= 0 {
		low = 1
	}
	high := right + taperBins
	if high > half {
		high = half
	}

	var rise, fall []float64
	if left > low {
		rise = window.Generate(window.TypeHann, left-low, window.WithSlope(window.SlopeLeft))
	}
	if high > right {
		fall = window.Generate(window.TypeHann, high-right, window.WithSlope(window.SlopeRight))
	}

	for _, row := range f.Data {
		for k := 0; k < low; k++ {
			row[k] = 0
		}
		for i, w := range rise {
			k := low + i
			row[k] = cmplx.Rect(w, cmplx.Phase(row[k]))
		}

		switch f.FreqNorm {
		case FreqNormPhaseOnly:
			for k := left; k < right; k++ {
				row[k] = cmplx.Rect(1, cmplx.Phase(row[k]))
			}
		case FreqNormRunningMean:
			band := make([]float64, right-left)
			for i := range band {
				band[i] = cmplx.Abs(row[left+i])
			}
			ave := MovingAverage(band, f.SmoothN)
			for i, a := range ave {
				row[left+i] /= complex(a, 0)
			}
		}

		for i, w := range fall {
			k := right + i
			row[k] = cmplx.Rect(w, cmplx.Phase(row[k]))
		}
		for k := high; k < half; k++ {
			row[k] = 0
		}

		// Mirror onto the negative frequencies; the bin at NFFT/2 is
		// left as produced by the forward transform.
		start := f.NFFT - half + 1
		for i := 0; i < half-1; i++ {
			row[start+i] = cmplx.Conj(row[half-1-i])
		}
	}

	return nil
}
