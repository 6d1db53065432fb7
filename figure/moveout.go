package figure

import (
	"fmt"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/vg"

	"github.com/noisexc/noisexc/noise/moveout"
)

// Heatmap draws distance-binned moveout rows as a single matrix panel
// with distance on the vertical axis.
func Heatmap(b *moveout.DistanceBins, title, file string) error {
	if len(b.Rows) == 0 {
		return fmt.Errorf("figure: empty distance bins")
	}

	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "time [s]"
	p.Y.Label.Text = "distance [km]"
	p.Add(heatmap(matrixGrid{x: b.Lags, y: b.Dists, rows: b.Rows}))

	if err := p.Save(10*vg.Inch, 6*vg.Inch, file); err != nil {
		return fmt.Errorf("figure: saving %s: %w", file, err)
	}
	return nil
}

// WiggleSection pairs a component code with its record section.
type WiggleSection struct {
	Comp    string
	Section *moveout.RecordSection
}

// Wiggles draws one record-section panel per component, each trace
// offset by its interstation distance, on a grid sized for up to nine
// components.
func Wiggles(title string, scale float64, sections []WiggleSection, file string) error {
	nrow, ncol, err := gridShape(len(sections))
	if err != nil {
		return err
	}
	if scale <= 0 {
		scale = 1
	}

	rows := make([][]*plot.Plot, nrow)
	for i := range rows {
		rows[i] = make([]*plot.Plot, ncol)
	}
	for i, ws := range sections {
		p, err := wigglePanel(title, scale, ws)
		if err != nil {
			return err
		}
		rows[i/ncol][i%ncol] = p
	}
	w := vg.Length(ncol) * 4.5 * vg.Inch
	h := vg.Length(nrow) * 3.5 * vg.Inch
	return savePanels(rows, w, h, file)
}

func wigglePanel(title string, scale float64, ws WiggleSection) (*plot.Plot, error) {
	sec := ws.Section
	if len(sec.Rows) == 0 {
		return nil, fmt.Errorf("figure: record section %s has no traces", ws.Comp)
	}

	p := plot.New()
	p.Title.Text = title + " " + ws.Comp
	p.X.Label.Text = "time (s)"
	p.Y.Label.Text = "offset (km)"
	p.Y.Min = 0

	var maxDist float64
	for i, row := range sec.Rows {
		tr := make([]float64, len(row))
		for j, v := range row {
			tr[j] = scale*v + sec.Dists[i]
		}
		ln, err := xyLine(sec.Lags, tr, lineBlack, vg.Points(0.8))
		if err != nil {
			return nil, err
		}
		p.Add(ln)
		if sec.Dists[i] > maxDist {
			maxDist = sec.Dists[i]
		}
	}

	zero, err := xyLine([]float64{0, 0}, []float64{0, maxDist + scale}, lineBlue, vg.Points(1))
	if err != nil {
		return nil, err
	}
	zero.Dashes = []vg.Length{vg.Points(4), vg.Points(2)}
	p.Add(zero)
	return p, nil
}

// gridShape mirrors the panel layouts used for component record
// sections: 3x3 for all nine components, compact grids below that.
func gridShape(n int) (nrow, ncol int, err error) {
	switch {
	case n > 9:
		return 0, 0, fmt.Errorf("figure: cannot lay out %d record sections", n)
	case n == 9:
		return 3, 3, nil
	case n >= 7:
		return 2, 4, nil
	case n >= 5:
		return 2, 3, nil
	case n == 4:
		return 2, 2, nil
	case n >= 1:
		return 1, n, nil
	}
	return 0, 0, fmt.Errorf("figure: cannot lay out %d record sections", n)
}
