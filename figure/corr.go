package figure

import (
	"fmt"
	"time"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/vg"

	"github.com/noisexc/noisexc/noise/corrdata"
)

// WaveformPanel is one labeled, band-limited component trace.
type WaveformPanel struct {
	Label string
	Data  []float64
}

// Waveform draws stacked single-channel panels sharing a time axis, one
// per component.
func Waveform(title string, dt float64, panels []WaveformPanel, file string) error {
	if dt <= 0 {
		return fmt.Errorf("figure: sample interval must be positive, got %v", dt)
	}
	if len(panels) == 0 {
		return fmt.Errorf("figure: no waveform panels")
	}

	rows := make([][]*plot.Plot, len(panels))
	for i, pn := range panels {
		p := plot.New()
		if i == 0 {
			p.Title.Text = title
		}
		if i == len(panels)-1 {
			p.X.Label.Text = "time [s]"
		}

		tt := make([]float64, len(pn.Data))
		for j := range tt {
			tt[j] = float64(j) * dt
		}
		ln, err := xyLine(tt, pn.Data, lineBlack, vg.Points(1))
		if err != nil {
			return err
		}
		p.Add(ln)
		p.Legend.Add(pn.Label, ln)
		p.Legend.Top = true
		p.Legend.Left = true

		rows[i] = []*plot.Plot{p}
	}
	return savePanels(rows, 9*vg.Inch, vg.Inch*vg.Length(2*len(panels)), file)
}

// Substack draws the windowed correlation matrix, the stack of the
// normalized rows, and the per-window relative amplitude / good-window
// counts.
func Substack(c *corrdata.CorrData, d *corrdata.Display, freqMin, freqMax float64, file string) error {
	if len(d.Rows) < 2 {
		return fmt.Errorf("figure: substack figure needs multiple windows, got %d", len(d.Rows))
	}

	mat, err := substackMatrix(c, d)
	if err != nil {
		return err
	}

	stk := plot.New()
	stk.Title.Text = fmt.Sprintf("stacked and filtered at %.2f-%.2f Hz", freqMin, freqMax)
	ln, err := xyLine(d.Lags, d.Stack, lineBlack, vg.Points(1))
	if err != nil {
		return err
	}
	stk.Add(ln)

	qc, err := windowQuality(c, d)
	if err != nil {
		return err
	}

	return savePanels([][]*plot.Plot{{mat}, {stk}, {qc}}, 10*vg.Inch, 9*vg.Inch, file)
}

// SubstackSpectra draws the windowed correlation matrix, the per-window
// amplitude spectra, and the window quality panel. freqs and amp come
// from CorrData.SpectraMatrix over the same lag window as d.
func SubstackSpectra(c *corrdata.CorrData, d *corrdata.Display, freqs []float64, amp [][]float64, file string) error {
	if len(d.Rows) < 2 {
		return fmt.Errorf("figure: substack figure needs multiple windows, got %d", len(d.Rows))
	}
	if len(amp) != len(d.Rows) {
		return fmt.Errorf("figure: %d spectra rows for %d windows", len(amp), len(d.Rows))
	}

	mat, err := substackMatrix(c, d)
	if err != nil {
		return err
	}

	spec := plot.New()
	spec.X.Label.Text = "freq [Hz]"
	spec.Y.Label.Text = "window"
	spec.Add(heatmap(matrixGrid{x: freqs, rows: amp}))

	qc, err := windowQuality(c, d)
	if err != nil {
		return err
	}

	return savePanels([][]*plot.Plot{{mat}, {spec}, {qc}}, 10*vg.Inch, 9*vg.Inch, file)
}

// substackMatrix builds the correlation matrix panel with window start
// timestamps on the y axis.
func substackMatrix(c *corrdata.CorrData, d *corrdata.Display) (*plot.Plot, error) {
	p := plot.New()
	p.Title.Text = fmt.Sprintf("%s.%s.%s  %s.%s.%s  dist:%.2f km",
		c.Net[0], c.Sta[0], c.Chan[0], c.Net[1], c.Sta[1], c.Chan[1], c.Dist)
	p.X.Label.Text = "time [s]"
	p.Add(heatmap(matrixGrid{x: d.Lags, rows: d.Rows}))

	times := d.Times
	step := tickStep(len(d.Rows))
	p.Y.Tick.Marker = plot.TickerFunc(func(min, max float64) []plot.Tick {
		var ticks []plot.Tick
		for r := 0; r < len(times); r += step {
			if v := float64(r); v >= min && v <= max {
				label := time.Unix(int64(times[r]), 0).UTC().Format("15:04:05")
				ticks = append(ticks, plot.Tick{Value: v, Label: label})
			}
		}
		return ticks
	})
	return p, nil
}

// windowQuality builds the per-window relative amplitude and good-window
// count panel.
func windowQuality(c *corrdata.CorrData, d *corrdata.Display) (*plot.Plot, error) {
	p := plot.New()
	p.X.Label.Text = "waveform number"

	var peak float64
	for _, a := range d.Amax {
		if a > peak {
			peak = a
		}
	}
	if peak == 0 {
		peak = 1
	}
	rel := make([]float64, len(d.Amax))
	for i, a := range d.Amax {
		rel[i] = a / peak
	}
	relLn, err := xyLine(nil, rel, lineRed, vg.Points(1))
	if err != nil {
		return nil, err
	}

	counts := make([]float64, len(c.Ngood))
	for i, g := range c.Ngood {
		counts[i] = float64(g)
	}
	goodLn, err := xyLine(nil, counts, lineBlue, vg.Points(1))
	if err != nil {
		return nil, err
	}

	p.Add(relLn, goodLn)
	p.Legend.Add("relative amp", relLn)
	p.Legend.Add("ngood", goodLn)
	p.Legend.Top = true
	return p, nil
}

func tickStep(nwin int) int {
	if nwin > 10 {
		return nwin / 5
	}
	return 2
}
