package moveout

import (
	"fmt"
	"math"

	"github.com/noisexc/noisexc/dsp/filter"
)

// RecordSection is a wiggle gather: one band-limited, peak-normalized
// trace per receiver, ordered as given, with the receiver distances for
// offset plotting.
type RecordSection struct {
	Dists     []float64
	Receivers []string // "NET.STA" per kept trace
	SNRs      []float64
	Rows      [][]float64
	Lags      []float64
	Dropped   int // traces rejected by the SNR cutoff
}

// NewRecordSection band-limits and peak-normalizes every trace in the
// gather. With minSNR > 0 each trace must reach that pseudo
// signal-to-noise ratio, max absolute over mean absolute amplitude, on at
// least one lag side of the unfiltered correlation.
func NewRecordSection(traces []*Trace, cfg Config, minSNR float64) (*RecordSection, error) {
	if err := checkGather(traces); err != nil {
		return nil, err
	}

	dt := traces[0].Dt
	w, err := cutWindow(traces[0].MaxLag, cfg.LagSecs, dt)
	if err != nil {
		return nil, err
	}

	sec := &RecordSection{Lags: w.lagAxis(dt)}
	for _, t := range traces {
		snr := sideSNR(t.Data, w)
		if minSNR > 0 && snr < minSNR {
			sec.Dropped++
			continue
		}

		row := append([]float64(nil), t.Data[w.indx1:w.indx1+w.npts]...)
		if err := filter.Bandpass(row, cfg.FreqMin, cfg.FreqMax, 1/dt, bandpassOrder); err != nil {
			return nil, fmt.Errorf("moveout: bandpass: %w", err)
		}
		if peak := maxAbs(row); peak > 0 {
			for j := range row {
				row[j] /= peak
			}
		}

		sec.Dists = append(sec.Dists, t.Dist)
		sec.Receivers = append(sec.Receivers, t.Receiver.NetSta())
		sec.SNRs = append(sec.SNRs, snr)
		sec.Rows = append(sec.Rows, row)
	}
	if len(sec.Rows) == 0 {
		return nil, fmt.Errorf("moveout: no trace passed the SNR cutoff %v", minSNR)
	}
	return sec, nil
}

// sideSNR returns the better of the two per-side pseudo SNRs, measured on
// the raw correlation inside the lag window but excluding zero lag.
func sideSNR(raw []float64, w cut) float64 {
	neg := raw[w.indx1 : w.indx0-1]
	pos := raw[w.indx0+1 : w.indx1+w.npts]

	snr := func(d []float64) float64 {
		mean := meanAbs(d)
		if mean == 0 {
			return 0
		}
		return maxAbs(d) / mean
	}
	return math.Max(snr(neg), snr(pos))
}
