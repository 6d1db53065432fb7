// Package export writes peak-amplitude tables to CSV and Parquet. The
// column layout matches the tables downstream tomography tooling consumes:
// one row per receiver with source/receiver coordinates, pair geometry and
// the per-lag-side peak amplitudes and travel times.
package export

import (
	"encoding/csv"
	"fmt"
	"math"
	"os"
	"strconv"

	parquet "github.com/parquet-go/parquet-go"

	"github.com/noisexc/noisexc/noise/moveout"
)

var csvColumns = []string{
	"source", "lonS", "latS", "eleS",
	"receiver", "lonR", "latR", "eleR",
	"az", "baz", "dist",
	"peakamp_neg", "peakamp_pos", "peaktt_neg", "peaktt_pos",
	"comp",
}

// WriteCSV writes one CSV file per component pair, named
// "<base>_<comp>_peakamp.txt", and returns the paths written. Absent
// picks (NaN) become empty fields. No peaks, no files.
func WriteCSV(base string, peaks []moveout.Peak) ([]string, error) {
	var order []string
	groups := map[string][]moveout.Peak{}
	for _, p := range peaks {
		if _, ok := groups[p.Comp]; !ok {
			order = append(order, p.Comp)
		}
		groups[p.Comp] = append(groups[p.Comp], p)
	}

	var written []string
	for _, comp := range order {
		name := fmt.Sprintf("%s_%s_peakamp.txt", base, comp)
		if err := writeComponentCSV(name, groups[comp]); err != nil {
			return written, err
		}
		written = append(written, name)
	}
	return written, nil
}

func writeComponentCSV(name string, peaks []moveout.Peak) error {
	f, err := os.Create(name)
	if err != nil {
		return fmt.Errorf("export: %w", err)
	}

	cw := csv.NewWriter(f)
	record := func(p moveout.Peak) []string {
		return []string{
			p.Source, num(p.LonS), num(p.LatS), num(p.EleS),
			p.Receiver, num(p.LonR), num(p.LatR), num(p.EleR),
			num(p.Az), num(p.Baz), num(p.Dist),
			num(p.AmpNeg), num(p.AmpPos), num(p.TimeNeg), num(p.TimePos),
			p.Comp,
		}
	}

	rows := make([][]string, 0, len(peaks)+1)
	rows = append(rows, csvColumns)
	for _, p := range peaks {
		rows = append(rows, record(p))
	}
	if err := cw.WriteAll(rows); err != nil {
		f.Close()
		return fmt.Errorf("export: writing %s: %w", name, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("export: closing %s: %w", name, err)
	}
	return nil
}

// num formats a table value; NaN marks an absent pick and becomes an
// empty field.
func num(v float64) string {
	if math.IsNaN(v) {
		return ""
	}
	return strconv.FormatFloat(v, 'g', -1, 64)
}

// peakRow mirrors the CSV column layout for Parquet output.
type peakRow struct {
	Source     string  `parquet:"source"`
	LonS       float64 `parquet:"lonS"`
	LatS       float64 `parquet:"latS"`
	EleS       float64 `parquet:"eleS"`
	Receiver   string  `parquet:"receiver"`
	LonR       float64 `parquet:"lonR"`
	LatR       float64 `parquet:"latR"`
	EleR       float64 `parquet:"eleR"`
	Az         float64 `parquet:"az"`
	Baz        float64 `parquet:"baz"`
	Dist       float64 `parquet:"dist"`
	PeakAmpNeg float64 `parquet:"peakamp_neg"`
	PeakAmpPos float64 `parquet:"peakamp_pos"`
	PeakTTNeg  float64 `parquet:"peaktt_neg"`
	PeakTTPos  float64 `parquet:"peaktt_pos"`
	Comp       string  `parquet:"comp"`
}

// WriteParquet writes all peaks, every component together, to one
// zstd-compressed Parquet file. Absent picks stay NaN.
func WriteParquet(name string, peaks []moveout.Peak) error {
	f, err := os.Create(name)
	if err != nil {
		return fmt.Errorf("export: %w", err)
	}

	pw := parquet.NewGenericWriter[peakRow](f, parquet.Compression(&parquet.Zstd))
	rows := make([]peakRow, len(peaks))
	for i, p := range peaks {
		rows[i] = peakRow{
			Source: p.Source, LonS: p.LonS, LatS: p.LatS, EleS: p.EleS,
			Receiver: p.Receiver, LonR: p.LonR, LatR: p.LatR, EleR: p.EleR,
			Az: p.Az, Baz: p.Baz, Dist: p.Dist,
			PeakAmpNeg: p.AmpNeg, PeakAmpPos: p.AmpPos,
			PeakTTNeg: p.TimeNeg, PeakTTPos: p.TimePos,
			Comp: p.Comp,
		}
	}
	if len(rows) > 0 {
		if _, err := pw.Write(rows); err != nil {
			f.Close()
			return fmt.Errorf("export: writing %s: %w", name, err)
		}
	}
	if err := pw.Close(); err != nil {
		f.Close()
		return fmt.Errorf("export: writing %s: %w", name, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("export: closing %s: %w", name, err)
	}
	return nil
}
