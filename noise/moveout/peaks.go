package moveout

import (
	"fmt"
	"math"

	"github.com/noisexc/noisexc/dsp/filter"
)

// Peak is the per-receiver amplitude pick for both lag sides. The signal
// windows follow the group velocity range, so a pick exists only where the
// expected arrival fits inside the lag window. Amplitude and time are NaN
// when a side held no interior peak.
type Peak struct {
	Source   string // "NET.STA"
	Receiver string
	Comp     string
	Flipped  bool

	LonS, LatS, EleS float64
	LonR, LatR, EleR float64
	Dist             float64 // kilometers
	Az, Baz          float64

	AmpNeg, AmpPos   float64
	TimeNeg, TimePos float64 // seconds on the lag axis
	SNRNeg, SNRPos   float64
}

// PeakAmplitudes band-limits each trace and picks the strongest arrival
// inside the velocity window dist/vmax..dist/vmin seconds on both lag
// sides. The per-side SNR compares the window peak against the mean
// absolute amplitude of that whole side. Traces whose window falls beyond
// the lag range, or whose best side stays under minSNR, are skipped.
func PeakAmplitudes(traces []*Trace, cfg Config, vmin, vmax, minSNR float64) ([]Peak, error) {
	if err := checkGather(traces); err != nil {
		return nil, err
	}
	if vmin <= 0 || vmax <= vmin {
		return nil, fmt.Errorf("moveout: bad velocity window [%v, %v] km/s", vmin, vmax)
	}

	dt := traces[0].Dt
	w, err := cutWindow(traces[0].MaxLag, cfg.LagSecs, dt)
	if err != nil {
		return nil, err
	}
	tt := w.lagAxis(dt)
	// Zero lag in cut-row coordinates, consistent with the lag axis.
	mid := w.npts / 2

	var peaks []Peak
	for _, t := range traces {
		if t.Dist/vmin > w.lag {
			continue
		}

		row := append([]float64(nil), t.Data[w.indx1:w.indx1+w.npts]...)
		if err := filter.Bandpass(row, cfg.FreqMin, cfg.FreqMax, 1/dt, bandpassOrder); err != nil {
			return nil, fmt.Errorf("moveout: bandpass: %w", err)
		}

		nSlow := int(t.Dist / vmin / dt)
		nFast := int(t.Dist / vmax / dt)
		dn := row[mid-nSlow : mid-nFast]
		dp := row[mid+nFast : mid+nSlow]

		p := Peak{
			Source:   t.Source.NetSta(),
			Receiver: t.Receiver.NetSta(),
			Comp:     t.Comp,
			Flipped:  t.Flipped,
			LonS:     t.Source.Lon, LatS: t.Source.Lat, EleS: t.Source.Ele,
			LonR: t.Receiver.Lon, LatR: t.Receiver.Lat, EleR: t.Receiver.Ele,
			Dist: t.Dist, Az: t.Az, Baz: t.Baz,
			AmpNeg: math.NaN(), AmpPos: math.NaN(),
			TimeNeg: math.NaN(), TimePos: math.NaN(),
			SNRNeg: math.NaN(), SNRPos: math.NaN(),
		}

		if len(dn) > 0 {
			if noise := meanAbs(row[:mid-1]); noise > 0 {
				p.SNRNeg = maxAbs(dn) / noise
			}
		}
		if len(dp) > 0 {
			if noise := meanAbs(row[mid+1 : len(row)-1]); noise > 0 {
				p.SNRPos = maxAbs(dp) / noise
			}
		}
		if minSNR > 0 {
			best := math.Max(nanToZero(p.SNRNeg), nanToZero(p.SNRPos))
			if best > 0 && best < minSNR {
				continue
			}
		}

		if idx := argMaxAbs(dn); idx > 0 && idx < len(dn)-1 {
			p.AmpNeg = math.Abs(dn[idx])
			p.TimeNeg = tt[idx+mid-nSlow]
		}
		if idx := argMaxAbs(dp); idx > 0 && idx < len(dp)-1 {
			p.AmpPos = math.Abs(dp[idx])
			p.TimePos = tt[idx+mid+nFast]
		}
		peaks = append(peaks, p)
	}
	return peaks, nil
}

func argMaxAbs(a []float64) int {
	best, bestAbs := 0, -1.0
	for i, v := range a {
		if av := math.Abs(v); av > bestAbs {
			best, bestAbs = i, av
		}
	}
	return best
}

func nanToZero(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return v
}
