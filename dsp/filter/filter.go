// Package filter applies zero-phase Butterworth filters to float64 slices.
//
// Filtering runs the designed cascade forward over the data, then backward,
// which cancels the phase response at the cost of squaring the magnitude
// response. The effective order is therefore twice the design order.
package filter

import (
	"fmt"

	"github.com/noisexc/noisexc/dsp/filter/biquad"
	"github.com/noisexc/noisexc/dsp/filter/design"
)

// Bandpass filters buf in-place to the [freqMin, freqMax] band using
// highpass and lowpass Butterworth cascades of the given order, applied
// forward and backward.
//
// If freqMax reaches or exceeds the Nyquist frequency the lowpass half is
// skipped and only the highpass is applied.
func Bandpass(buf []float64, freqMin, freqMax, sampleRate float64, order int) error {
	if err := validate(sampleRate, order); err != nil {
		return err
	}
	if freqMin <= 0 {
		return fmt.Errorf("filter: low corner must be > 0: %g", freqMin)
	}
	if freqMin >= freqMax {
		return fmt.Errorf("filter: corner frequencies out of order: %g >= %g", freqMin, freqMax)
	}

	nyquist := sampleRate / 2

	sections := design.ButterworthHP(freqMin, order, sampleRate)
	if freqMax < nyquist {
		sections = append(sections, design.ButterworthLP(freqMax, order, sampleRate)...)
	}

	zeroPhase(biquad.NewChain(sections), buf)
	return nil
}

// Lowpass filters buf in-place with a zero-phase Butterworth lowpass.
func Lowpass(buf []float64, freq, sampleRate float64, order int) error {
	if err := validate(sampleRate, order); err != nil {
		return err
	}
	if freq <= 0 || freq >= sampleRate/2 {
		return fmt.Errorf("filter: corner must be in (0, nyquist): %g", freq)
	}

	zeroPhase(biquad.NewChain(design.ButterworthLP(freq, order, sampleRate)), buf)
	return nil
}

// Highpass filters buf in-place with a zero-phase Butterworth highpass.
func Highpass(buf []float64, freq, sampleRate float64, order int) error {
	if err := validate(sampleRate, order); err != nil {
		return err
	}
	if freq <= 0 || freq >= sampleRate/2 {
		return fmt.Errorf("filter: corner must be in (0, nyquist): %g", freq)
	}

	zeroPhase(biquad.NewChain(design.ButterworthHP(freq, order, sampleRate)), buf)
	return nil
}

func validate(sampleRate float64, order int) error {
	if sampleRate <= 0 {
		return fmt.Errorf("filter: sample rate must be > 0: %g", sampleRate)
	}
	if order <= 0 {
		return fmt.Errorf("filter: order must be > 0: %d", order)
	}
	return nil
}

// zeroPhase runs the cascade forward, then backward over reversed data.
func zeroPhase(chain *biquad.Chain, buf []float64) {
	chain.ProcessBlock(buf)
	reverse(buf)
	chain.Reset()
	chain.ProcessBlock(buf)
	reverse(buf)
}

func reverse(buf []float64) {
	for i, j := 0, len(buf)-1; i < j; i, j = i+1, j-1 {
		buf[i], buf[j] = buf[j], buf[i]
	}
}
