package figure

import (
	"fmt"
	"image/color"
	"math"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/palette/moreland"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"

	"github.com/noisexc/noisexc/noise/moveout"
)

// AmplitudeMaps renders per-component receiver maps of the picked peak
// amplitudes and travel times, one panel per lag side. Amplitudes are
// scaled by interstation distance and negative-lag times are negated so
// both sides read as positive delay from the source. Returns the
// written file names.
func AmplitudeMaps(base string, peaks []moveout.Peak) ([]string, error) {
	if len(peaks) == 0 {
		return nil, nil
	}

	comps := make([]string, 0, 4)
	byComp := make(map[string][]moveout.Peak)
	for _, pk := range peaks {
		if _, ok := byComp[pk.Comp]; !ok {
			comps = append(comps, pk.Comp)
		}
		byComp[pk.Comp] = append(byComp[pk.Comp], pk)
	}

	var files []string
	for _, comp := range comps {
		group := byComp[comp]

		ampNeg := make([]float64, len(group))
		ampPos := make([]float64, len(group))
		ttNeg := make([]float64, len(group))
		ttPos := make([]float64, len(group))
		for i, pk := range group {
			ampNeg[i] = pk.AmpNeg * pk.Dist
			ampPos[i] = pk.AmpPos * pk.Dist
			ttNeg[i] = -pk.TimeNeg
			ttPos[i] = pk.TimePos
		}

		name := fmt.Sprintf("%s_%s_peakamplitude_map.png", base, comp)
		if err := lagSideMap(group, ampNeg, ampPos, name); err != nil {
			return files, err
		}
		files = append(files, name)

		name = fmt.Sprintf("%s_%s_peaktt_map.png", base, comp)
		if err := lagSideMap(group, ttNeg, ttPos, name); err != nil {
			return files, err
		}
		files = append(files, name)
	}
	return files, nil
}

func lagSideMap(peaks []moveout.Peak, neg, pos []float64, file string) error {
	pn, err := scatterPanel("(a) negative lag", peaks, neg)
	if err != nil {
		return err
	}
	pp, err := scatterPanel("(b) positive lag", peaks, pos)
	if err != nil {
		return err
	}
	return savePanels([][]*plot.Plot{{pn, pp}}, 12*vg.Inch, 5*vg.Inch, file)
}

// scatterPanel draws the receivers colored by value, skipping entries
// whose pick is NaN, plus the virtual source as a black triangle.
func scatterPanel(title string, peaks []moveout.Peak, vals []float64) (*plot.Plot, error) {
	pts := make(plotter.XYs, 0, len(peaks))
	kept := make([]float64, 0, len(vals))
	for i, pk := range peaks {
		if math.IsNaN(vals[i]) {
			continue
		}
		pts = append(pts, plotter.XY{X: pk.LonR, Y: pk.LatR})
		kept = append(kept, vals[i])
	}

	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "longitude"
	p.Y.Label.Text = "latitude"

	if len(pts) > 0 {
		lo, hi := kept[0], kept[0]
		for _, v := range kept[1:] {
			lo = math.Min(lo, v)
			hi = math.Max(hi, v)
		}
		if hi == lo {
			hi = lo + 1
		}
		cm := moreland.Kindlmann()
		cm.SetMin(lo)
		cm.SetMax(hi)

		sc, err := plotter.NewScatter(pts)
		if err != nil {
			return nil, fmt.Errorf("figure: receiver scatter: %w", err)
		}
		sc.GlyphStyleFunc = func(i int) draw.GlyphStyle {
			c, err := cm.At(kept[i])
			if err != nil {
				c = color.Black
			}
			return draw.GlyphStyle{Color: c, Radius: vg.Points(3), Shape: draw.CircleGlyph{}}
		}
		p.Add(sc)
	}

	src, err := plotter.NewScatter(plotter.XYs{{X: peaks[0].LonS, Y: peaks[0].LatS}})
	if err != nil {
		return nil, fmt.Errorf("figure: source marker: %w", err)
	}
	src.GlyphStyle = draw.GlyphStyle{Color: color.Black, Radius: vg.Points(6), Shape: draw.PyramidGlyph{}}
	p.Add(src)
	return p, nil
}
