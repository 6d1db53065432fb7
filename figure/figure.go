// Package figure renders the diagnostic figures of the correlation
// workflow with gonum/plot: substack matrices and stack panels, spectra
// matrices, moveout heatmaps and wiggle gathers, geographic amplitude
// maps, and waveform panels. Every function draws from already computed
// containers and writes a PNG file.
package figure

import (
	"fmt"
	"image/color"
	"os"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/palette/moreland"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgimg"
)

var (
	lineBlack = color.RGBA{A: 255}
	lineRed   = color.RGBA{R: 220, A: 255}
	lineBlue  = color.RGBA{B: 200, A: 255}
)

// matrixGrid adapts a row-major matrix to the heat map data interface.
// Column c sits at x[c] on the lag or frequency axis. Rows draw at their
// y values when set, otherwise at the row index.
type matrixGrid struct {
	x    []float64
	y    []float64
	rows [][]float64
}

func (g matrixGrid) Dims() (cols, rows int) { return len(g.x), len(g.rows) }

func (g matrixGrid) Z(c, r int) float64 { return g.rows[r][c] }

func (g matrixGrid) X(c int) float64 { return g.x[c] }

func (g matrixGrid) Y(r int) float64 {
	if g.y == nil {
		return float64(r)
	}
	return g.y[r]
}

// heatmap colors a matrix with the blue-white-red diverging palette over
// the data range, so zero-mean wiggle matrices read blue-through-red.
func heatmap(g matrixGrid) *plotter.HeatMap {
	return plotter.NewHeatMap(g, moreland.SmoothBlueRed().Palette(255))
}

func xyLine(xs, ys []float64, c color.Color, w vg.Length) (*plotter.Line, error) {
	pts := make(plotter.XYs, len(ys))
	for i := range pts {
		if xs == nil {
			pts[i].X = float64(i)
		} else {
			pts[i].X = xs[i]
		}
		pts[i].Y = ys[i]
	}
	ln, err := plotter.NewLine(pts)
	if err != nil {
		return nil, fmt.Errorf("figure: building line: %w", err)
	}
	ln.LineStyle.Color = c
	ln.LineStyle.Width = w
	return ln, nil
}

// savePanels lays plots out on a tile grid and writes the canvas as PNG.
// Nil entries leave their tile empty.
func savePanels(plots [][]*plot.Plot, w, h vg.Length, file string) error {
	img := vgimg.New(w, h)
	dc := draw.New(img)
	tiles := draw.Tiles{
		Rows: len(plots), Cols: len(plots[0]),
		PadX: vg.Millimeter * 2, PadY: vg.Millimeter * 2,
		PadTop: vg.Millimeter * 2, PadBottom: vg.Millimeter * 2,
		PadLeft: vg.Millimeter * 2, PadRight: vg.Millimeter * 2,
	}

	canvases := plot.Align(plots, tiles, dc)
	for i, row := range plots {
		for j, p := range row {
			if p != nil {
				p.Draw(canvases[i][j])
			}
		}
	}

	f, err := os.Create(file)
	if err != nil {
		return fmt.Errorf("figure: %w", err)
	}
	png := vgimg.PngCanvas{Canvas: img}
	if _, err := png.WriteTo(f); err != nil {
		f.Close()
		return fmt.Errorf("figure: writing %s: %w", file, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("figure: closing %s: %w", file, err)
	}
	return nil
}
