// Package corrdata holds station-pair cross-correlation results: the
// correlation matrix with per-window bookkeeping, merging of time chunks,
// stacking, pseudo-SNR quality measures, and SAC export.
package corrdata

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/noisexc/noisexc/noise/stack"
	"github.com/noisexc/noisexc/seis/station"
)

// CorrData is one cross-correlation result between two station-channels.
// Index 0 of the pair arrays is the virtual source, index 1 the receiver.
// Data rows, Ngood and Time are aligned per correlation window; without
// Substack there is exactly one row.
type CorrData struct {
	Net  [2]string
	Sta  [2]string
	Loc  [2]string
	Chan [2]string
	Lon  [2]float64
	Lat  [2]float64
	Ele  [2]float64

	// Comp pairs the component letters, e.g. "ZZ" or "ZN".
	Comp string

	MaxLag float64 // seconds
	Dt     float64
	Dist   float64 // kilometers
	Az     float64
	Baz    float64

	Ngood []int64
	Time  []float64 // epoch seconds of each window start
	Data  [][]float64

	Substack bool
	Misc     map[string]string
}

// PairID returns the "NET1.STA1_NET2.STA2" pair key.
func (c *CorrData) PairID() string {
	return c.Net[0] + "." + c.Sta[0] + "_" + c.Net[1] + "." + c.Sta[1]
}

// ChanPair returns the "CHAN1_CHAN2" channel key.
func (c *CorrData) ChanPair() string {
	return c.Chan[0] + "_" + c.Chan[1]
}

// NumRows returns the number of correlation rows.
func (c *CorrData) NumRows() int {
	return len(c.Data)
}

// Station rebuilds the station identity for side i, 0 for the virtual
// source and 1 for the receiver.
func (c *CorrData) Station(i int) station.Station {
	return station.Station{
		Net: c.Net[i], Sta: c.Sta[i], Loc: c.Loc[i], Chan: c.Chan[i],
		Lon: c.Lon[i], Lat: c.Lat[i], Ele: c.Ele[i],
	}
}

// LagTimes returns the lag axis in seconds, -MaxLag..MaxLag at Dt spacing.
func (c *CorrData) LagTimes() []float64 {
	n := int(c.MaxLag / c.Dt)
	out := make([]float64, 2*n+1)
	for i := range out {
		out[i] = float64(i-n) * c.Dt
	}
	return out
}

// Validate checks the row bookkeeping invariants.
func (c *CorrData) Validate() error {
	if c.Dt <= 0 {
		return fmt.Errorf("corrdata: sample interval must be positive, got %v", c.Dt)
	}
	if len(c.Data) == 0 {
		return fmt.Errorf("corrdata: %s has no correlation rows", c.PairID())
	}
	if !c.Substack && len(c.Data) != 1 {
		return fmt.Errorf("corrdata: %s has %d rows but substack is not set", c.PairID(), len(c.Data))
	}
	if len(c.Ngood) != len(c.Data) || len(c.Time) != len(c.Data) {
		return fmt.Errorf("corrdata: %s rows out of step: %d data, %d ngood, %d time",
			c.PairID(), len(c.Data), len(c.Ngood), len(c.Time))
	}
	for i, row := range c.Data {
		if len(row) != len(c.Data[0]) {
			return fmt.Errorf("corrdata: %s row %d has %d samples, want %d",
				c.PairID(), i, len(row), len(c.Data[0]))
		}
	}
	return nil
}

// Append merges another time chunk's rows into c. Only Ngood, Time and
// Data merge; pair metadata stays as in c. Substack is forced afterwards
// regardless of either input.
func (c *CorrData) Append(o *CorrData) error {
	if err := c.Validate(); err != nil {
		return err
	}
	if err := o.Validate(); err != nil {
		return err
	}
	if c.Dt != o.Dt {
		return fmt.Errorf("corrdata: sample interval mismatch %v vs %v", c.Dt, o.Dt)
	}
	if len(c.Data[0]) != len(o.Data[0]) {
		return fmt.Errorf("corrdata: lag window mismatch: %d vs %d samples",
			len(c.Data[0]), len(o.Data[0]))
	}

	c.Ngood = append(c.Ngood, o.Ngood...)
	c.Time = append(c.Time, o.Time...)
	for _, row := range o.Data {
		c.Data = append(c.Data, append([]float64(nil), row...))
	}
	c.Substack = true
	return nil
}

// Stack collapses the substack rows into a single correlation function
// with the given stacking configuration. The result keeps the pair
// metadata, sums Ngood, takes the first window time, and clears Substack.
func (c *CorrData) Stack(cfg stack.Config) (*CorrData, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}

	stacked, err := stack.Stack(c.Data, cfg)
	if err != nil {
		return nil, fmt.Errorf("corrdata: stacking %s: %w", c.PairID(), err)
	}

	var total int64
	for _, g := range c.Ngood {
		total += g
	}

	out := c.cloneMeta()
	out.Data = [][]float64{stacked}
	out.Ngood = []int64{total}
	out.Time = []float64{c.Time[0]}
	out.Substack = false
	out.Misc["stack_method"] = cfg.Method.String()
	return out, nil
}

// SNR returns the pseudo signal-to-noise ratio max|x|/mean|x| for the
// negative and positive lag halves of every row.
func (c *CorrData) SNR() (neg, pos []float64, err error) {
	if err := c.Validate(); err != nil {
		return nil, nil, err
	}

	neg = make([]float64, len(c.Data))
	pos = make([]float64, len(c.Data))
	for i, row := range c.Data {
		mid := len(row) / 2
		neg[i] = pseudoSNR(row[:mid])
		pos[i] = pseudoSNR(row[mid+1:])
	}
	return neg, pos, nil
}

func pseudoSNR(x []float64) float64 {
	if len(x) == 0 {
		return 0
	}
	var peak, sum float64
	for _, v := range x {
		a := math.Abs(v)
		if a > peak {
			peak = a
		}
		sum += a
	}
	if sum == 0 {
		return 0
	}
	return peak * float64(len(x)) / sum
}

// TimeAt returns row i's window start as UTC wall time.
func (c *CorrData) TimeAt(i int) time.Time {
	sec := int64(c.Time[i])
	nsec := int64((c.Time[i] - float64(sec)) * 1e9)
	return time.Unix(sec, nsec).UTC()
}

func (c *CorrData) cloneMeta() *CorrData {
	out := &CorrData{
		Net: c.Net, Sta: c.Sta, Loc: c.Loc, Chan: c.Chan,
		Lon: c.Lon, Lat: c.Lat, Ele: c.Ele,
		Comp: c.Comp, MaxLag: c.MaxLag, Dt: c.Dt,
		Dist: c.Dist, Az: c.Az, Baz: c.Baz,
		Misc: map[string]string{},
	}
	for k, v := range c.Misc {
		out.Misc[k] = v
	}
	return out
}

func (c *CorrData) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "pair       : %s (%s)\n", c.PairID(), c.Comp)
	fmt.Fprintf(&b, "channels   : %s\n", c.ChanPair())
	fmt.Fprintf(&b, "locations  : (%.4f, %.4f) -> (%.4f, %.4f)\n",
		c.Lon[0], c.Lat[0], c.Lon[1], c.Lat[1])
	fmt.Fprintf(&b, "dist (km)  : %.3f  az %.1f  baz %.1f\n", c.Dist, c.Az, c.Baz)
	fmt.Fprintf(&b, "maxlag     : %g s at dt %g s\n", c.MaxLag, c.Dt)
	fmt.Fprintf(&b, "substack   : %v\n", c.Substack)
	if len(c.Time) > 0 {
		fmt.Fprintf(&b, "windows    : %d, %s .. %s\n", len(c.Data),
			c.TimeAt(0).Format(time.RFC3339), c.TimeAt(len(c.Time)-1).Format(time.RFC3339))
	}
	return b.String()
}
