package corrdata

import (
	"fmt"
	"math"

	algofft "github.com/MeKo-Christian/algo-fft"

	"github.com/noisexc/noisexc/dsp/filter"
	"github.com/noisexc/noisexc/dsp/spectrum"
)

// filterOrder is the Butterworth order used to band-limit display rows.
const filterOrder = 4

// Display is a band-limited, lag-trimmed, per-row normalized view of a
// CorrData prepared for rendering. Rows carry each window divided by its
// own peak amplitude; Stack averages the normalized rows.
type Display struct {
	Lags  []float64   // lag axis in seconds, -LagSecs..LagSecs
	Times []float64   // epoch seconds per row
	Rows  [][]float64 // normalized correlation rows
	Amax  []float64   // peak absolute amplitude removed from each row
	Stack []float64
}

// Display band-limits every row to [freqMin, freqMax] Hz, cuts the lag axis
// down to +-lagSecs, and normalizes each row by its peak amplitude. Pass
// lagSecs <= 0 to keep the full +-MaxLag range.
func (c *CorrData) Display(freqMin, freqMax, lagSecs float64) (*Display, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	if freqMin <= 0 || freqMax <= freqMin {
		return nil, fmt.Errorf("corrdata: bad display band [%v, %v] Hz", freqMin, freqMax)
	}

	indx1, indx2, err := c.lagSlice(lagSecs)
	if err != nil {
		return nil, err
	}
	npts := indx2 - indx1

	d := &Display{
		Lags:  make([]float64, npts),
		Times: append([]float64(nil), c.Time...),
		Rows:  make([][]float64, c.NumRows()),
		Amax:  make([]float64, c.NumRows()),
		Stack: make([]float64, npts),
	}
	for i := range d.Lags {
		d.Lags[i] = float64(i-npts/2) * c.Dt
	}

	sps := 1.0 / c.Dt
	for i, row := range c.Data {
		cut := append([]float64(nil), row[indx1:indx2]...)
		if err := filter.Bandpass(cut, freqMin, freqMax, sps, filterOrder); err != nil {
			return nil, fmt.Errorf("corrdata: display bandpass: %w", err)
		}
		amax := maxAbs(cut)
		if amax > 0 {
			for j := range cut {
				cut[j] /= amax
			}
		}
		d.Rows[i] = cut
		d.Amax[i] = amax
		for j, v := range cut {
			d.Stack[j] += v
		}
	}
	for j := range d.Stack {
		d.Stack[j] /= float64(len(d.Rows))
	}
	return d, nil
}

// SpectraMatrix returns the amplitude spectra of the lag-trimmed raw rows,
// each normalized to unit peak, along with the positive frequency axis.
// Rows are not band-limited first, so the spectra show the whole stored
// band. Pass lagSecs <= 0 to keep the full +-MaxLag range.
func (c *CorrData) SpectraMatrix(lagSecs float64) (freqs []float64, amp [][]float64, err error) {
	if err := c.Validate(); err != nil {
		return nil, nil, err
	}
	indx1, indx2, err := c.lagSlice(lagSecs)
	if err != nil {
		return nil, nil, err
	}

	nfft := spectrum.NextPow2(indx2 - indx1)
	plan, err := algofft.NewPlan64(nfft)
	if err != nil {
		return nil, nil, fmt.Errorf("corrdata: spectra fft plan: %w", err)
	}
	freqs, err = spectrum.PositiveFreqs(nfft, c.Dt)
	if err != nil {
		return nil, nil, fmt.Errorf("corrdata: spectra frequency axis: %w", err)
	}

	amp = make([][]float64, c.NumRows())
	src := make([]complex128, nfft)
	dst := make([]complex128, nfft)
	for i, row := range c.Data {
		for j := range src {
			src[j] = 0
		}
		for j, v := range row[indx1:indx2] {
			src[j] = complex(v, 0)
		}
		if err := plan.Forward(dst, src); err != nil {
			return nil, nil, fmt.Errorf("corrdata: spectra fft: %w", err)
		}
		m := spectrum.Magnitude(dst[:nfft/2])
		if peak := maxAbs(m); peak > 0 {
			for j := range m {
				m[j] /= peak
			}
		}
		amp[i] = m
	}
	return freqs, amp, nil
}

// lagSlice returns the row index range covering +-lagSecs around zero
// lag. lagSecs <= 0 selects the full stored range.
func (c *CorrData) lagSlice(lagSecs float64) (lo, hi int, err error) {
	if lagSecs <= 0 {
		lagSecs = c.MaxLag
	}
	if lagSecs > c.MaxLag {
		return 0, 0, fmt.Errorf("corrdata: display lag %v s exceeds stored max lag %v s",
			lagSecs, c.MaxLag)
	}
	lo = int((c.MaxLag - lagSecs) / c.Dt)
	hi = lo + 2*int(lagSecs/c.Dt) + 1
	if hi > len(c.Data[0]) {
		hi = len(c.Data[0])
	}
	return lo, hi, nil
}

func maxAbs(a []float64) float64 {
	var m float64
	for _, v := range a {
		if av := math.Abs(v); av > m {
			m = av
		}
	}
	return m
}
