// Package fftdata builds the frequency-domain representation of one
// station-channel used for ambient-noise cross-correlation: a continuous
// trace is sliced into overlapping windows, optionally normalized in time,
// transformed with a padded FFT, and optionally spectrally whitened.
package fftdata

import (
	"fmt"
	"math"

	algofft "github.com/MeKo-Christian/algo-fft"

	"github.com/noisexc/noisexc/dsp/spectrum"
	"github.com/noisexc/noisexc/seis/station"
	"github.com/noisexc/noisexc/seis/trace"
)

// TimeNorm selects the temporal normalization applied to each window
// before the FFT.
type TimeNorm int

const (
	TimeNormNone TimeNorm = iota
	// TimeNormOneBit keeps only the sign of each sample.
	TimeNormOneBit
	// TimeNormRunningMean divides each sample by a running mean of the
	// absolute amplitude.
	TimeNormRunningMean
)

func (t TimeNorm) String() string {
	switch t {
	case TimeNormOneBit:
		return "one-bit"
	case TimeNormRunningMean:
		return "running-mean"
	default:
		return "no"
	}
}

// ParseTimeNorm maps a config string to a TimeNorm.
func ParseTimeNorm(s string) (TimeNorm, error) {
	switch s {
	case "", "no", "none":
		return TimeNormNone, nil
	case "one-bit", "one_bit", "onebit":
		return TimeNormOneBit, nil
	case "running-mean", "rma":
		return TimeNormRunningMean, nil
	}
	return TimeNormNone, fmt.Errorf("fftdata: unknown time normalization %q", s)
}

// FreqNorm selects the spectral whitening mode.
type FreqNorm int

const (
	FreqNormNone FreqNorm = iota
	// FreqNormPhaseOnly flattens in-band amplitudes to unity, keeping phase.
	FreqNormPhaseOnly
	// FreqNormRunningMean divides in-band bins by a running mean of the
	// spectral amplitude.
	FreqNormRunningMean
)

func (f FreqNorm) String() string {
	switch f {
	case FreqNormPhaseOnly:
		return "phase-only"
	case FreqNormRunningMean:
		return "running-mean"
	default:
		return "no"
	}
}

// ParseFreqNorm maps a config string to a FreqNorm.
func ParseFreqNorm(s string) (FreqNorm, error) {
	switch s {
	case "", "no", "none":
		return FreqNormNone, nil
	case "phase-only", "phase_only":
		return FreqNormPhaseOnly, nil
	case "running-mean", "rma":
		return FreqNormRunningMean, nil
	}
	return FreqNormNone, fmt.Errorf("fftdata: unknown frequency normalization %q", s)
}

// Config controls windowing and normalization.
type Config struct {
	// WindowSecs is the correlation window length, StepSecs its advance.
	WindowSecs float64
	StepSecs   float64

	TimeNorm TimeNorm
	FreqNorm FreqNorm

	// FreqMin and FreqMax bound the whitening passband in Hz. FreqMax of
	// zero defaults to 0.499 times the sample rate when whitening runs.
	FreqMin float64
	FreqMax float64

	// SmoothN is the running-mean half width used by the running-mean
	// normalizations.
	SmoothN int
}

func normalizeConfig(cfg Config) Config {
	if cfg.SmoothN <= 0 {
		cfg.SmoothN = 20
	}
	return cfg
}

// FFTData holds the windowed, normalized frequency-domain representation of
// one station-channel. Each Data row is the full NFFT-length spectrum of
// one window.
type FFTData struct {
	Sta station.Station
	Dt  float64

	WindowSecs float64
	StepSecs   float64

	TimeNorm TimeNorm
	FreqNorm FreqNorm
	FreqMin  float64
	FreqMax  float64
	SmoothN  int

	NFFT int

	// Std, Time and Data are aligned per window.
	Std  []float64
	Time []float64
	Data [][]complex128

	Misc map[string]string
}

// New slices tr into windows per cfg, applies the configured time
// normalization, transforms each window with an FFT padded to the next
// power of two, and whitens if a frequency normalization and FreqMin are
// configured.
//
// A trace shorter than one window produces an FFTData with no rows.
func New(tr *trace.Trace, cfg Config) (*FFTData, error) {
	cfg = normalizeConfig(cfg)

	f := &FFTData{
		Sta:        tr.Sta,
		Dt:         tr.Dt,
		WindowSecs: cfg.WindowSecs,
		StepSecs:   cfg.StepSecs,
		TimeNorm:   cfg.TimeNorm,
		FreqNorm:   cfg.FreqNorm,
		FreqMin:    cfg.FreqMin,
		FreqMax:    cfg.FreqMax,
		SmoothN:    cfg.SmoothN,
		Misc:       map[string]string{},
	}

	segments, err := tr.Slice(cfg.WindowSecs, cfg.StepSecs)
	if err != nil {
		return nil, fmt.Errorf("fftdata: slicing %s: %w", tr.Sta.SEED(), err)
	}
	if len(segments) == 0 {
		return f, nil
	}

	winN := len(segments[0].Data)
	f.NFFT = spectrum.NextPow2(winN)

	plan, err := algofft.NewPlan64(f.NFFT)
	if err != nil {
		return nil, fmt.Errorf("fftdata: fft plan for %d: %w", f.NFFT, err)
	}

	f.Std = make([]float64, len(segments))
	f.Time = make([]float64, len(segments))
	f.Data = make([][]complex128, len(segments))

	src := make([]complex128, f.NFFT)

	for i, seg := range segments {
		f.Std[i] = seg.StdRatio
		f.Time[i] = seg.Start

		normalizeWindow(seg.Data, cfg)

		for j := range src {
			src[j] = 0
		}
		for j, v := range seg.Data {
			src[j] = complex(v, 0)
		}

		row := make([]complex128, f.NFFT)
		if err := plan.Forward(row, src); err != nil {
			return nil, fmt.Errorf("fftdata: forward fft: %w", err)
		}
		f.Data[i] = row
	}

	if cfg.FreqNorm != FreqNormNone && cfg.FreqMin > 0 {
		if err := f.Whiten(); err != nil {
			return nil, err
		}
	}

	return f, nil
}

// SampleRate returns samples per second.
func (f *FFTData) SampleRate() float64 {
	if f.Dt <= 0 {
		return 0
	}
	return 1 / f.Dt
}

// NumWindows returns the number of windowed spectra.
func (f *FFTData) NumWindows() int {
	return len(f.Data)
}

func normalizeWindow(buf []float64, cfg Config) {
	switch cfg.TimeNorm {
	case TimeNormOneBit:
		for i, v := range buf {
			switch {
			case v > 0:
				buf[i] = 1
			case v < 0:
				buf[i] = -1
			default:
				buf[i] = 0
			}
		}
	case TimeNormRunningMean:
		abs := make([]float64, len(buf))
		for i, v := range buf {
			abs[i] = math.Abs(v)
		}

		ave := MovingAverage(abs, cfg.SmoothN)
		for i := range buf {
			buf[i] /= ave[i]
		}
	}
}

// MovingAverage returns the centered running mean of a with half width n
// (window 2n+1). The ends are padded with the first and last n values, and
// zero means are replaced by 1 so the result is safe as a divisor.
func MovingAverage(a []float64, n int) []float64 {
	if len(a) == 0 {
		return nil
	}
	if n < 1 {
		n = 1
	}

	padded := make([]float64, 0, len(a)+2*n)
	if n <= len(a) {
		padded = append(padded, a[:n]...)
		padded = append(padded, a...)
		padded = append(padded, a[len(a)-n:]...)
	} else {
		// Shorter than the pad width: repeat what is there.
		for len(padded) < n {
			padded = append(padded, a[0])
		}
		padded = append(padded, a...)
		for len(padded) < len(a)+2*n {
			padded = append(padded, a[len(a)-1])
		}
	}

	out := make([]float64, len(a))
	width := float64(2*n + 1)

	sum := 0.0
	for i := 0; i <= 2*n; i++ {
		sum += padded[i]
	}

	for i := range out {
		if i > 0 {
			sum += padded[i+2*n] - padded[i-1]
		}

		v := sum / width
		if v == 0 {
			v = 1
		}
		out[i] = v
	}

	return out
}
