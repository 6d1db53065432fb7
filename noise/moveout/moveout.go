// Package moveout arranges stacked cross-correlations that share one
// virtual source into distance-ordered gathers: averaged distance bins,
// record sections, and per-receiver peak amplitude picks.
//
// Every correlation is first oriented so positive lags travel from the
// virtual source to the receiver. When the source is the pair's second
// station the lag axis flips and the azimuth roles swap.
package moveout

import (
	"fmt"
	"math"

	"github.com/noisexc/noisexc/noise/corrdata"
	"github.com/noisexc/noisexc/seis/station"
)

// Trace is one stacked cross-correlation oriented away from a common
// virtual source.
type Trace struct {
	Source   station.Station
	Receiver station.Station
	Comp     string
	Flipped  bool

	Dist float64 // kilometers
	Az   float64 // degrees, source to receiver
	Baz  float64

	MaxLag float64 // seconds
	Dt     float64
	Ngood  int64
	Data   []float64
}

// NewTrace orients a stacked correlation relative to the virtual source
// named "NET.STA". Substacked data must be stacked down to one row first.
func NewTrace(c *corrdata.CorrData, source string) (*Trace, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	if c.NumRows() != 1 {
		return nil, fmt.Errorf("moveout: %s has %d rows, stack before building a gather",
			c.PairID(), c.NumRows())
	}

	t := &Trace{
		Comp:   c.Comp,
		Dist:   c.Dist,
		MaxLag: c.MaxLag,
		Dt:     c.Dt,
		Ngood:  c.Ngood[0],
	}

	srcSta, rcvSta := c.Station(0), c.Station(1)
	switch source {
	case srcSta.NetSta():
		t.Source, t.Receiver = srcSta, rcvSta
		t.Az, t.Baz = c.Az, c.Baz
		t.Data = append([]float64(nil), c.Data[0]...)
	case rcvSta.NetSta():
		t.Source, t.Receiver = rcvSta, srcSta
		t.Az, t.Baz = c.Baz, c.Az
		t.Flipped = true
		t.Data = reversed(c.Data[0])
	default:
		return nil, fmt.Errorf("moveout: %s does not involve source %s", c.PairID(), source)
	}
	return t, nil
}

// Gather builds oriented traces for every correlation that involves the
// virtual source, silently skipping pairs that do not.
func Gather(corrs []*corrdata.CorrData, source string) ([]*Trace, error) {
	var traces []*Trace
	for _, c := range corrs {
		if c.Station(0).NetSta() != source && c.Station(1).NetSta() != source {
			continue
		}
		t, err := NewTrace(c, source)
		if err != nil {
			return nil, err
		}
		traces = append(traces, t)
	}
	if len(traces) == 0 {
		return nil, fmt.Errorf("moveout: no correlations involve source %s", source)
	}
	return traces, nil
}

// Config carries the display band and lag window shared by the gather
// operations.
type Config struct {
	FreqMin float64 // Hz
	FreqMax float64
	LagSecs float64 // 0 keeps the full stored lag range
}

// cut locates the +-lagSecs window on a trace's lag axis. indx0 is the
// zero-lag index of the full row, indx1 the first kept sample.
type cut struct {
	lag          float64
	indx0, indx1 int
	npts         int
}

func cutWindow(maxLag, lagSecs, dt float64) (cut, error) {
	if lagSecs <= 0 {
		lagSecs = maxLag
	}
	if lagSecs > maxLag {
		return cut{}, fmt.Errorf("moveout: lag %v s exceeds stored max lag %v s", lagSecs, maxLag)
	}
	w := cut{
		lag:   lagSecs,
		indx0: int(maxLag / dt),
		indx1: int((maxLag - lagSecs) / dt),
		npts:  2*int(lagSecs/dt) + 1,
	}
	if w.npts < 3 {
		return cut{}, fmt.Errorf("moveout: lag window %v s spans under one sample per side", lagSecs)
	}
	return w, nil
}

// lagAxis returns the lag times of the cut window, -lag..lag at dt.
func (w cut) lagAxis(dt float64) []float64 {
	out := make([]float64, w.npts)
	for i := range out {
		out[i] = float64(i-w.npts/2) * dt
	}
	return out
}

// checkGather verifies the traces agree on geometry of the lag axis.
func checkGather(traces []*Trace) error {
	if len(traces) == 0 {
		return fmt.Errorf("moveout: empty gather")
	}
	first := traces[0]
	if first.Dt <= 0 {
		return fmt.Errorf("moveout: sample interval must be positive, got %v", first.Dt)
	}
	for _, t := range traces[1:] {
		if t.Dt != first.Dt {
			return fmt.Errorf("moveout: mixed sample intervals %v and %v in gather",
				first.Dt, t.Dt)
		}
		if t.MaxLag != first.MaxLag {
			return fmt.Errorf("moveout: mixed max lags %v and %v in gather",
				first.MaxLag, t.MaxLag)
		}
		if len(t.Data) != len(first.Data) {
			return fmt.Errorf("moveout: mixed row lengths %d and %d in gather",
				len(first.Data), len(t.Data))
		}
	}
	return nil
}

func reversed(a []float64) []float64 {
	out := make([]float64, len(a))
	for i, v := range a {
		out[len(a)-1-i] = v
	}
	return out
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

func meanAbs(a []float64) float64 {
	if len(a) == 0 {
		return 0
	}
	var sum float64
	for _, v := range a {
		sum += math.Abs(v)
	}
	return sum / float64(len(a))
}
