// Package trace holds continuous single-channel waveforms and the
// preprocessing applied before spectral estimation: demean, detrend,
// edge tapering, and slicing into overlapping windows with per-window
// quality ratios.
package trace

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/noisexc/noisexc/dsp/window"
	"github.com/noisexc/noisexc/seis/station"
)

// Trace is a continuous, evenly sampled single-channel waveform.
// Start is the time of the first sample in epoch seconds (UTC).
type Trace struct {
	Sta   station.Station
	Dt    float64
	Start float64
	Data  []float64
}

// Segment is one windowed slice of a trace. StdRatio is the window's peak
// amplitude divided by the whole-trace standard deviation, used to reject
// windows contaminated by transient events.
type Segment struct {
	Start    float64
	StdRatio float64
	Data     []float64
}

// SampleRate returns samples per second.
func (tr *Trace) SampleRate() float64 {
	if tr.Dt <= 0 {
		return 0
	}
	return 1 / tr.Dt
}

// Duration returns the trace length in seconds.
func (tr *Trace) Duration() float64 {
	return float64(len(tr.Data)) * tr.Dt
}

// Demean subtracts the mean in-place.
func (tr *Trace) Demean() {
	if len(tr.Data) == 0 {
		return
	}
	floats.AddConst(-stat.Mean(tr.Data, nil), tr.Data)
}

// Detrend removes the least-squares linear trend in-place.
func (tr *Trace) Detrend() {
	n := len(tr.Data)
	if n < 2 {
		return
	}

	xs := make([]float64, n)
	for i := range xs {
		xs[i] = float64(i)
	}

	alpha, beta := stat.LinearRegression(xs, tr.Data, nil, false)
	for i := range tr.Data {
		tr.Data[i] -= alpha + beta*float64(i)
	}
}

// Taper applies a cosine taper over the given fraction of each end of the
// trace. fraction is clamped to [0, 0.5].
func (tr *Trace) Taper(fraction float64) {
	if len(tr.Data) == 0 || fraction <= 0 {
		return
	}

	if fraction > 0.5 {
		fraction = 0.5
	}

	window.Apply(window.TypeTukey, tr.Data, window.WithAlpha(2*fraction))
}

// Std returns the population standard deviation of the trace.
func (tr *Trace) Std() float64 {
	if len(tr.Data) == 0 {
		return 0
	}
	return stat.PopStdDev(tr.Data, nil)
}

// MaxAbs returns the maximum absolute amplitude.
func (tr *Trace) MaxAbs() float64 {
	m := 0.0
	for _, v := range tr.Data {
		if a := math.Abs(v); a > m {
			m = a
		}
	}
	return m
}

// Slice cuts the trace into windows of windowSecs length advancing by
// stepSecs. Windows are copies; mutating a segment does not affect the
// trace. A trace shorter than one window yields no segments.
//
// The per-segment StdRatio is max|segment| / std(trace). Degenerate traces
// with zero or non-finite standard deviation are rejected.
func (tr *Trace) Slice(windowSecs, stepSecs float64) ([]Segment, error) {
	if tr.Dt <= 0 {
		return nil, fmt.Errorf("trace: sample interval must be > 0: %g", tr.Dt)
	}
	if windowSecs <= 0 || stepSecs <= 0 {
		return nil, fmt.Errorf("trace: window and step must be > 0: %g, %g", windowSecs, stepSecs)
	}

	winN := int(math.Round(windowSecs / tr.Dt))
	stepN := int(math.Round(stepSecs / tr.Dt))
	if winN <= 0 || stepN <= 0 {
		return nil, fmt.Errorf("trace: window %gs and step %gs too short for dt=%g", windowSecs, stepSecs, tr.Dt)
	}

	if len(tr.Data) < winN {
		return nil, nil
	}

	std := tr.Std()
	if std == 0 || math.IsNaN(std) || math.IsInf(std, 0) {
		return nil, fmt.Errorf("trace: degenerate standard deviation %g for %s", std, tr.Sta.SEED())
	}

	nseg := (len(tr.Data)-winN)/stepN + 1
	segments := make([]Segment, 0, nseg)

	for i := range nseg {
		lo := i * stepN
		seg := make([]float64, winN)
		copy(seg, tr.Data[lo:lo+winN])

		peak := 0.0
		for _, v := range seg {
			if a := math.Abs(v); a > peak {
				peak = a
			}
		}

		segments = append(segments, Segment{
			Start:    tr.Start + float64(lo)*tr.Dt,
			StdRatio: peak / std,
			Data:     seg,
		})
	}

	return segments, nil
}
