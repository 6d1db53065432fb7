package moveout

import (
	"fmt"
	"sort"

	"github.com/noisexc/noisexc/dsp/filter"
)

// bandpassOrder is the Butterworth order for gather filtering.
const bandpassOrder = 4

// DistanceBins is a gather averaged into regular distance bins, each bin
// normalized to its own peak amplitude. Rows are ordered by distance.
type DistanceBins struct {
	Dists []float64   // bin centers, kilometers
	Rows  [][]float64 // averaged and peak-normalized
	Count []int       // traces averaged into each bin
	Lags  []float64   // seconds
}

// BinByDistance band-limits every trace, averages traces falling into the
// same distInc-wide distance bin, and normalizes each bin by its peak
// amplitude. Empty bins are dropped.
func BinByDistance(traces []*Trace, cfg Config, distInc float64) (*DistanceBins, error) {
	if err := checkGather(traces); err != nil {
		return nil, err
	}
	if distInc <= 0 {
		return nil, fmt.Errorf("moveout: distance bin width must be positive, got %v", distInc)
	}

	dt := traces[0].Dt
	w, err := cutWindow(traces[0].MaxLag, cfg.LagSecs, dt)
	if err != nil {
		return nil, err
	}

	sums := make(map[int][]float64)
	counts := make(map[int]int)
	for _, t := range traces {
		row := append([]float64(nil), t.Data[w.indx1:w.indx1+w.npts]...)
		if err := filter.Bandpass(row, cfg.FreqMin, cfg.FreqMax, 1/dt, bandpassOrder); err != nil {
			return nil, fmt.Errorf("moveout: bandpass: %w", err)
		}

		td := int(t.Dist / distInc)
		sum, ok := sums[td]
		if !ok {
			sum = make([]float64, w.npts)
			sums[td] = sum
		}
		for j, v := range row {
			sum[j] += v
		}
		counts[td]++
	}

	bins := make([]int, 0, len(sums))
	for td := range sums {
		bins = append(bins, td)
	}
	sort.Ints(bins)

	out := &DistanceBins{
		Dists: make([]float64, len(bins)),
		Rows:  make([][]float64, len(bins)),
		Count: make([]int, len(bins)),
		Lags:  w.lagAxis(dt),
	}
	for i, td := range bins {
		row := sums[td]
		n := float64(counts[td])
		for j := range row {
			row[j] /= n
		}
		if peak := maxAbs(row); peak > 0 {
			for j := range row {
				row[j] /= peak
			}
		}
		out.Dists[i] = (float64(td) + 0.5) * distInc
		out.Rows[i] = row
		out.Count[i] = counts[td]
	}
	return out, nil
}
