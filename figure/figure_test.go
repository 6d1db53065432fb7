package figure

import (
	"bytes"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/noisexc/noisexc/internal/testutil"
	"github.com/noisexc/noisexc/noise/corrdata"
	"github.com/noisexc/noisexc/noise/moveout"
)

var pngMagic = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n'}

func assertPNG(t *testing.T, file string) {
	t.Helper()
	b, err := os.ReadFile(file)
	if err != nil {
		t.Fatalf("reading %s: %v", file, err)
	}
	if len(b) < len(pngMagic) || !bytes.Equal(b[:len(pngMagic)], pngMagic) {
		t.Errorf("%s is not a PNG file", file)
	}
}

func substackFixture() *corrdata.CorrData {
	const (
		dt     = 1.0 / 32
		maxLag = 4.0
	)
	width := 2*int(maxLag/dt) + 1
	rows := make([][]float64, 4)
	for i := range rows {
		rows[i] = testutil.Ricker(4, 1/dt, width, width/2+4*i)
	}
	return &corrdata.CorrData{
		Net:      [2]string{"XX", "YY"},
		Sta:      [2]string{"SRC1", "RCV1"},
		Chan:     [2]string{"BHZ", "BHZ"},
		Comp:     "ZZ",
		MaxLag:   maxLag,
		Dt:       dt,
		Dist:     12.5,
		Ngood:    []int64{1, 1, 1, 1},
		Time:     []float64{1462161906, 1462161936, 1462161966, 1462161996},
		Data:     rows,
		Substack: true,
	}
}

func TestWaveformWritesFile(t *testing.T) {
	file := filepath.Join(t.TempDir(), "waveform.png")
	panels := []WaveformPanel{
		{Label: "XX.SRC1..BHZ", Data: testutil.DeterministicSine(2, 32, 1, 256)},
		{Label: "XX.SRC1..BHN", Data: testutil.DeterministicSine(3, 32, 0.5, 256)},
	}
	if err := Waveform("XX.SRC1 2016-05-02", 1.0/32, panels, file); err != nil {
		t.Fatalf("Waveform: %v", err)
	}
	assertPNG(t, file)
}

func TestWaveformValidation(t *testing.T) {
	file := filepath.Join(t.TempDir(), "waveform.png")
	panels := []WaveformPanel{{Label: "Z", Data: testutil.Ones(64)}}

	if err := Waveform("t", 0, panels, file); err == nil {
		t.Error("expected error for zero sample interval")
	}
	if err := Waveform("t", 1.0/32, nil, file); err == nil {
		t.Error("expected error for empty panel list")
	}
}

func TestSubstackWritesFile(t *testing.T) {
	c := substackFixture()
	d, err := c.Display(1, 8, 0)
	if err != nil {
		t.Fatalf("Display: %v", err)
	}

	file := filepath.Join(t.TempDir(), "substack.png")
	if err := Substack(c, d, 1, 8, file); err != nil {
		t.Fatalf("Substack: %v", err)
	}
	assertPNG(t, file)
}

func TestSubstackNeedsMultipleWindows(t *testing.T) {
	c := substackFixture()
	c.Data = c.Data[:1]
	c.Ngood = c.Ngood[:1]
	c.Time = c.Time[:1]
	c.Substack = false

	d, err := c.Display(1, 8, 0)
	if err != nil {
		t.Fatalf("Display: %v", err)
	}
	file := filepath.Join(t.TempDir(), "substack.png")
	if err := Substack(c, d, 1, 8, file); err == nil {
		t.Error("expected error for single-window data")
	}
}

func TestSubstackSpectraWritesFile(t *testing.T) {
	c := substackFixture()
	d, err := c.Display(1, 8, 0)
	if err != nil {
		t.Fatalf("Display: %v", err)
	}
	freqs, amp, err := c.SpectraMatrix(0)
	if err != nil {
		t.Fatalf("SpectraMatrix: %v", err)
	}

	file := filepath.Join(t.TempDir(), "spectra.png")
	if err := SubstackSpectra(c, d, freqs, amp, file); err != nil {
		t.Fatalf("SubstackSpectra: %v", err)
	}
	assertPNG(t, file)

	if err := SubstackSpectra(c, d, freqs, amp[:1], file); err == nil {
		t.Error("expected error for mismatched spectra rows")
	}
}

func TestHeatmapWritesFile(t *testing.T) {
	lags := make([]float64, 65)
	for i := range lags {
		lags[i] = (float64(i) - 32) * 0.25
	}
	bins := &moveout.DistanceBins{
		Dists: []float64{2.5, 7.5},
		Rows: [][]float64{
			testutil.Ricker(2, 4, 65, 36),
			testutil.Ricker(2, 4, 65, 44),
		},
		Count: []int{3, 1},
		Lags:  lags,
	}

	file := filepath.Join(t.TempDir(), "heatmap.png")
	if err := Heatmap(bins, "ZZ moveout", file); err != nil {
		t.Fatalf("Heatmap: %v", err)
	}
	assertPNG(t, file)

	if err := Heatmap(&moveout.DistanceBins{}, "empty", file); err == nil {
		t.Error("expected error for empty bins")
	}
}

func sectionFixture() *moveout.RecordSection {
	lags := make([]float64, 65)
	for i := range lags {
		lags[i] = (float64(i) - 32) * 0.25
	}
	return &moveout.RecordSection{
		Dists:     []float64{5, 11},
		Receivers: []string{"YY.RCV1", "YY.RCV2"},
		SNRs:      []float64{12, 9},
		Rows: [][]float64{
			testutil.Ricker(2, 4, 65, 40),
			testutil.Ricker(2, 4, 65, 48),
		},
		Lags: lags,
	}
}

func TestWigglesWritesFile(t *testing.T) {
	sections := []WiggleSection{
		{Comp: "ZZ", Section: sectionFixture()},
		{Comp: "ZR", Section: sectionFixture()},
	}
	file := filepath.Join(t.TempDir(), "wiggles.png")
	if err := Wiggles("XX.SRC1", 2, sections, file); err != nil {
		t.Fatalf("Wiggles: %v", err)
	}
	assertPNG(t, file)
}

func TestWigglesValidation(t *testing.T) {
	file := filepath.Join(t.TempDir(), "wiggles.png")
	if err := Wiggles("t", 1, nil, file); err == nil {
		t.Error("expected error for no sections")
	}
	empty := []WiggleSection{{Comp: "ZZ", Section: &moveout.RecordSection{}}}
	if err := Wiggles("t", 1, empty, file); err == nil {
		t.Error("expected error for empty record section")
	}
}

func TestGridShape(t *testing.T) {
	cases := []struct {
		n, nrow, ncol int
	}{
		{1, 1, 1},
		{3, 1, 3},
		{4, 2, 2},
		{5, 2, 3},
		{6, 2, 3},
		{7, 2, 4},
		{8, 2, 4},
		{9, 3, 3},
	}
	for _, tc := range cases {
		nrow, ncol, err := gridShape(tc.n)
		if err != nil {
			t.Errorf("gridShape(%d): %v", tc.n, err)
			continue
		}
		if nrow != tc.nrow || ncol != tc.ncol {
			t.Errorf("gridShape(%d) = %dx%d, want %dx%d", tc.n, nrow, ncol, tc.nrow, tc.ncol)
		}
	}
	for _, n := range []int{0, 10} {
		if _, _, err := gridShape(n); err == nil {
			t.Errorf("gridShape(%d): expected error", n)
		}
	}
}

func mapPeaks() []moveout.Peak {
	return []moveout.Peak{
		{
			Source: "XX.SRC1", Receiver: "YY.RCV1", Comp: "ZZ",
			LonS: -122.5, LatS: 37.9, LonR: -122.1, LatR: 38.2,
			Dist: 41.5, AmpNeg: math.NaN(), AmpPos: 0.82,
			TimeNeg: math.NaN(), TimePos: 13.5,
		},
		{
			Source: "XX.SRC1", Receiver: "YY.RCV2", Comp: "ZZ",
			LonS: -122.5, LatS: 37.9, LonR: -122.8, LatR: 37.6,
			Dist: 44.1, AmpNeg: 0.4, AmpPos: 0.55,
			TimeNeg: -14.25, TimePos: 14.75,
		},
		{
			Source: "XX.SRC1", Receiver: "YY.RCV1", Comp: "ZR",
			LonS: -122.5, LatS: 37.9, LonR: -122.1, LatR: 38.2,
			Dist: 41.5, AmpNeg: 0.2, AmpPos: 0.3,
			TimeNeg: -13.75, TimePos: 13.25,
		},
	}
}

func TestAmplitudeMapsWritesFiles(t *testing.T) {
	base := filepath.Join(t.TempDir(), "stack")
	files, err := AmplitudeMaps(base, mapPeaks())
	if err != nil {
		t.Fatalf("AmplitudeMaps: %v", err)
	}

	want := []string{
		base + "_ZZ_peakamplitude_map.png",
		base + "_ZZ_peaktt_map.png",
		base + "_ZR_peakamplitude_map.png",
		base + "_ZR_peaktt_map.png",
	}
	if len(files) != len(want) {
		t.Fatalf("got %d files, want %d", len(files), len(want))
	}
	for i, f := range files {
		if f != want[i] {
			t.Errorf("file %d = %s, want %s", i, f, want[i])
		}
		assertPNG(t, f)
	}
}

func TestAmplitudeMapsNoPeaks(t *testing.T) {
	files, err := AmplitudeMaps(filepath.Join(t.TempDir(), "stack"), nil)
	if err != nil {
		t.Fatalf("AmplitudeMaps: %v", err)
	}
	if len(files) != 0 {
		t.Errorf("expected no files, got %v", files)
	}
}
