package corrdata

import (
	"math"
	"math/cmplx"
	"path/filepath"
	"testing"
	"time"

	"github.com/noisexc/noisexc/internal/testutil"
	"github.com/noisexc/noisexc/noise/fftdata"
	"github.com/noisexc/noisexc/noise/stack"
	"github.com/noisexc/noisexc/seis/sacio"
	"github.com/noisexc/noisexc/seis/station"
)

const eps = 1e-9

// delaySpectra builds full-length spectra whose inverse transform is a unit
// impulse delayed by lagSamples, scaled by amp. Closed-form rows keep the
// correlation tests independent of the forward transform.
func delaySpectra(nfft, nwin, lagSamples int, amp float64) [][]complex128 {
	rows := make([][]complex128, nwin)
	for w := range rows {
		row := make([]complex128, nfft)
		for k := range row {
			phase := -2 * math.Pi * float64(k*lagSamples) / float64(nfft)
			row[k] = cmplx.Rect(amp, phase)
		}
		rows[w] = row
	}
	return rows
}

func fftPair(nfft, nwin, lagSamples int, ampS, ampR float64) (*fftdata.FFTData, *fftdata.FFTData) {
	const dt = 1.0 / 32
	start := float64(time.Date(2016, 5, 2, 4, 5, 6, 0, time.UTC).Unix())
	times := make([]float64, nwin)
	for i := range times {
		times[i] = start + float64(i)*30
	}

	src := &fftdata.FFTData{
		Sta: station.Station{
			Net: "XX", Sta: "SRC1", Chan: "BHZ",
			Lon: -120.0, Lat: 36.0, Ele: 150,
		},
		Dt:   dt,
		NFFT: nfft,
		Time: append([]float64(nil), times...),
		Data: delaySpectra(nfft, nwin, 0, ampS),
	}
	rcv := &fftdata.FFTData{
		Sta: station.Station{
			Net: "YY", Sta: "RCV1", Chan: "BHZ",
			Lon: -119.5, Lat: 36.5, Ele: 420,
		},
		Dt:   dt,
		NFFT: nfft,
		Time: append([]float64(nil), times...),
		Data: delaySpectra(nfft, nwin, lagSamples, ampR),
	}
	return src, rcv
}

func argMaxAbs(a []float64) int {
	best, bestAbs := 0, 0.0
	for i, v := range a {
		if av := math.Abs(v); av > bestAbs {
			best, bestAbs = i, av
		}
	}
	return best
}

func TestCorrelateXCorrPeakAtLag(t *testing.T) {
	const (
		nfft = 256
		lagS = 10
	)
	src, rcv := fftPair(nfft, 1, lagS, 1, 1)

	c, err := Correlate(src, rcv, Config{MaxLag: 2.0})
	if err != nil {
		t.Fatal(err)
	}

	lagN := int(2.0 / src.Dt)
	if got, want := len(c.Data[0]), 2*lagN+1; got != want {
		t.Fatalf("row length = %d, want %d", got, want)
	}
	if got, want := argMaxAbs(c.Data[0]), lagN+lagS; got != want {
		t.Errorf("peak index = %d, want %d", got, want)
	}
	// Zeroing the bin at nfft/2 while mirroring leaks 1/nfft into every
	// sample, so the impulse lands at 1 - 1/nfft.
	if got, want := c.Data[0][lagN+lagS], 1.0-1.0/nfft; math.Abs(got-want) > eps {
		t.Errorf("peak amplitude = %v, want %v", got, want)
	}

	if got, want := c.PairID(), "XX.SRC1_YY.RCV1"; got != want {
		t.Errorf("PairID = %q, want %q", got, want)
	}
	if got, want := c.Comp, "ZZ"; got != want {
		t.Errorf("Comp = %q, want %q", got, want)
	}
	if got, want := c.Misc["cc_method"], "xcorr"; got != want {
		t.Errorf("cc_method = %q, want %q", got, want)
	}
	if c.Dist <= 0 || c.Dist > 100 {
		t.Errorf("Dist = %v km, want a short positive pair distance", c.Dist)
	}
	if c.Substack {
		t.Error("averaged correlation marked as substack")
	}
	if got, want := c.Ngood[0], int64(1); got != want {
		t.Errorf("Ngood = %d, want %d", got, want)
	}
}

func TestCorrelateAdvancedReceiverPeaksAcausal(t *testing.T) {
	src, rcv := fftPair(256, 1, -8, 1, 1)

	c, err := Correlate(src, rcv, Config{MaxLag: 2.0})
	if err != nil {
		t.Fatal(err)
	}
	lagN := int(2.0 / src.Dt)
	if got, want := argMaxAbs(c.Data[0]), lagN-8; got != want {
		t.Errorf("peak index = %d, want %d", got, want)
	}
}

func TestCorrelateSubstackKeepsWindows(t *testing.T) {
	src, rcv := fftPair(256, 3, 5, 1, 1)

	c, err := Correlate(src, rcv, Config{MaxLag: 2.0, Substack: true})
	if err != nil {
		t.Fatal(err)
	}
	if got, want := c.NumRows(), 3; got != want {
		t.Fatalf("NumRows = %d, want %d", got, want)
	}
	if !c.Substack {
		t.Error("Substack = false, want true")
	}
	lagN := int(2.0 / src.Dt)
	for i, row := range c.Data {
		if got, want := argMaxAbs(row), lagN+5; got != want {
			t.Errorf("row %d peak index = %d, want %d", i, got, want)
		}
		if got, want := c.Ngood[i], int64(1); got != want {
			t.Errorf("row %d Ngood = %d, want %d", i, got, want)
		}
	}
	testutil.RequireSliceNearlyEqual(t, c.Time, src.Time, eps)
}

func TestCorrelateAveragesWindows(t *testing.T) {
	src, rcv := fftPair(256, 4, 5, 1, 1)

	avg, err := Correlate(src, rcv, Config{MaxLag: 2.0})
	if err != nil {
		t.Fatal(err)
	}
	one, err := Correlate(src, rcv, Config{MaxLag: 2.0, Substack: true})
	if err != nil {
		t.Fatal(err)
	}

	if got, want := avg.NumRows(), 1; got != want {
		t.Fatalf("NumRows = %d, want %d", got, want)
	}
	if got, want := avg.Ngood[0], int64(4); got != want {
		t.Errorf("Ngood = %d, want %d", got, want)
	}
	if got, want := avg.Time[0], src.Time[0]; got != want {
		t.Errorf("Time = %v, want %v", got, want)
	}
	// Identical windows: the averaged spectrum equals any single window.
	testutil.RequireSliceNearlyEqual(t, avg.Data[0], one.Data[0], eps)
}

func TestCorrelateNormalizationScaling(t *testing.T) {
	const nfft = 256
	peakAt := func(m Method) float64 {
		src, rcv := fftPair(nfft, 1, 10, 2, 3)
		c, err := Correlate(src, rcv, Config{MaxLag: 2.0, Method: m})
		if err != nil {
			t.Fatal(err)
		}
		lagN := int(2.0 / src.Dt)
		return c.Data[0][lagN+10]
	}

	base := 1.0 - 1.0/nfft
	// Flat amplitude spectra make the running means exact: deconv divides
	// by |S|^2 = 4 and coherency by |S||R| = 6.
	if got, want := peakAt(MethodXCorr), 6*base; math.Abs(got-want) > 1e-6 {
		t.Errorf("xcorr peak = %v, want %v", got, want)
	}
	if got, want := peakAt(MethodDeconv), 6*base/4; math.Abs(got-want) > 1e-6 {
		t.Errorf("deconv peak = %v, want %v", got, want)
	}
	if got, want := peakAt(MethodCoherency), base; math.Abs(got-want) > 1e-6 {
		t.Errorf("coherency peak = %v, want %v", got, want)
	}
}

func TestCorrelateValidation(t *testing.T) {
	src, rcv := fftPair(256, 2, 5, 1, 1)

	if _, err := Correlate(src, rcv, Config{MaxLag: 0}); err == nil {
		t.Error("expected error for non-positive max lag")
	}
	if _, err := Correlate(src, rcv, Config{MaxLag: 10}); err == nil {
		t.Error("expected error when max lag exceeds the fft window")
	}

	short, _ := fftPair(256, 1, 5, 1, 1)
	if _, err := Correlate(short, rcv, Config{MaxLag: 2}); err == nil {
		t.Error("expected error for window count mismatch")
	}

	other, _ := fftPair(512, 2, 5, 1, 1)
	if _, err := Correlate(other, rcv, Config{MaxLag: 2}); err == nil {
		t.Error("expected error for fft length mismatch")
	}

	skewed, rcv2 := fftPair(256, 2, 5, 1, 1)
	skewed.Time[1] += 7
	if _, err := Correlate(skewed, rcv2, Config{MaxLag: 2}); err == nil {
		t.Error("expected error for misaligned window times")
	}
}

func sampleCorr(rows [][]float64, maxLag, dt float64, substack bool) *CorrData {
	start := float64(time.Date(2016, 5, 2, 4, 5, 6, 0, time.UTC).Unix())
	c := &CorrData{
		Net:  [2]string{"XX", "YY"},
		Sta:  [2]string{"SRC1", "RCV1"},
		Loc:  [2]string{"", "00"},
		Chan: [2]string{"BHZ", "BHZ"},
		Lon:  [2]float64{-120.0, -119.5},
		Lat:  [2]float64{36.0, 36.5},
		Ele:  [2]float64{150, 420},
		Comp: "ZZ",

		MaxLag: maxLag,
		Dt:     dt,
		Dist:   71.25,
		Az:     38.5,
		Baz:    218.75,

		Substack: substack,
		Misc:     map[string]string{"cc_method": "xcorr"},
	}
	for i, row := range rows {
		c.Data = append(c.Data, append([]float64(nil), row...))
		c.Ngood = append(c.Ngood, 1)
		c.Time = append(c.Time, start+float64(i)*30)
	}
	return c
}

func TestAppendMergesRows(t *testing.T) {
	a := sampleCorr([][]float64{{1, 2, 3, 2, 1}}, 2, 1, false)
	b := sampleCorr([][]float64{{2, 4, 6, 4, 2}}, 2, 1, false)
	b.Time[0] += 30
	b.Ngood[0] = 3

	if err := a.Append(b); err != nil {
		t.Fatal(err)
	}
	if got, want := a.NumRows(), 2; got != want {
		t.Fatalf("NumRows = %d, want %d", got, want)
	}
	if !a.Substack {
		t.Error("Substack = false after append, want true")
	}
	if got, want := a.Ngood[1], int64(3); got != want {
		t.Errorf("Ngood[1] = %d, want %d", got, want)
	}
	if got, want := a.Time[1], b.Time[0]; got != want {
		t.Errorf("Time[1] = %v, want %v", got, want)
	}

	// Rows are deep copies, not aliases of the appended data.
	b.Data[0][0] = 99
	if got, want := a.Data[1][0], 2.0; got != want {
		t.Errorf("appended row aliases source: got %v, want %v", got, want)
	}
}

func TestAppendRejectsMismatch(t *testing.T) {
	a := sampleCorr([][]float64{{1, 2, 3, 2, 1}}, 2, 1, false)

	other := sampleCorr([][]float64{{1, 2, 3, 2, 1}}, 2, 0.5, false)
	if err := a.Append(other); err == nil {
		t.Error("expected error for sample interval mismatch")
	}

	wide := sampleCorr([][]float64{{1, 2, 3, 2, 1, 0, 0}}, 3, 1, false)
	wide.MaxLag = 2
	if err := a.Append(wide); err == nil {
		t.Error("expected error for row width mismatch")
	}
}

func TestStackReducesSubstack(t *testing.T) {
	rows := [][]float64{
		{1, 2, 3, 2, 1},
		{3, 2, 1, 2, 3},
		{2, 2, 2, 2, 2},
	}
	c := sampleCorr(rows, 2, 1, true)
	c.Ngood = []int64{2, 3, 4}

	s, err := c.Stack(stack.Config{Method: stack.MethodLinear})
	if err != nil {
		t.Fatal(err)
	}
	if got, want := s.NumRows(), 1; got != want {
		t.Fatalf("NumRows = %d, want %d", got, want)
	}
	testutil.RequireSliceNearlyEqual(t, s.Data[0], []float64{2, 2, 2, 2, 2}, eps)
	if got, want := s.Ngood[0], int64(9); got != want {
		t.Errorf("Ngood = %d, want %d", got, want)
	}
	if got, want := s.Time[0], c.Time[0]; got != want {
		t.Errorf("Time = %v, want %v", got, want)
	}
	if s.Substack {
		t.Error("stacked result still marked substack")
	}
	if got, want := s.Misc["stack_method"], "linear"; got != want {
		t.Errorf("stack_method = %q, want %q", got, want)
	}
	if got, want := s.PairID(), c.PairID(); got != want {
		t.Errorf("PairID = %q, want %q", got, want)
	}

	// Metadata is cloned, not shared.
	s.Misc["stack_method"] = "changed"
	if got, want := c.Misc["cc_method"], "xcorr"; got != want {
		t.Errorf("source Misc mutated: got %q, want %q", got, want)
	}
}

func TestSNRPerSide(t *testing.T) {
	c := sampleCorr([][]float64{{4, -1, 9, 1, 2}}, 2, 1, false)

	neg, pos, err := c.SNR()
	if err != nil {
		t.Fatal(err)
	}
	// Negative side [4 -1]: peak 4, mean 2.5. Positive side [1 2]: peak 2,
	// mean 1.5.
	if got, want := neg[0], 1.6; math.Abs(got-want) > eps {
		t.Errorf("negative-side SNR = %v, want %v", got, want)
	}
	if got, want := pos[0], 2.0/1.5; math.Abs(got-want) > eps {
		t.Errorf("positive-side SNR = %v, want %v", got, want)
	}
}

func TestLagTimes(t *testing.T) {
	c := sampleCorr([][]float64{{1, 2, 3, 2, 1}}, 2, 1, false)
	testutil.RequireSliceNearlyEqual(t, c.LagTimes(), []float64{-2, -1, 0, 1, 2}, eps)
}

func TestDisplayTrimsAndNormalizes(t *testing.T) {
	const (
		dt     = 1.0 / 32
		maxLag = 4.0
	)
	width := 2*int(maxLag/dt) + 1
	base := testutil.LaggedPair(2, 32, width, 32)
	rows := make([][]float64, 2)
	for i, scale := range []float64{3, 7} {
		row := make([]float64, width)
		for j, v := range base {
			row[j] = scale * v
		}
		rows[i] = row
	}

	c := sampleCorr(rows, maxLag, dt, true)
	d, err := c.Display(1, 5, 2)
	if err != nil {
		t.Fatal(err)
	}

	npts := 2*int(2/dt) + 1
	if got, want := len(d.Lags), npts; got != want {
		t.Fatalf("lag axis length = %d, want %d", got, want)
	}
	if got, want := d.Lags[0], -2.0; math.Abs(got-want) > eps {
		t.Errorf("Lags[0] = %v, want %v", got, want)
	}
	if got, want := d.Lags[npts-1], 2.0; math.Abs(got-want) > eps {
		t.Errorf("Lags[last] = %v, want %v", got, want)
	}

	for i, row := range d.Rows {
		if got := maxAbs(row); math.Abs(got-1) > eps {
			t.Errorf("row %d peak after normalization = %v, want 1", i, got)
		}
	}
	// The bandpass is linear, so the scale factor survives into Amax.
	if got, want := d.Amax[1]/d.Amax[0], 7.0/3.0; math.Abs(got-want) > 1e-6 {
		t.Errorf("Amax ratio = %v, want %v", got, want)
	}
	// Proportional rows normalize to the same shape, so the stack matches.
	testutil.RequireSliceNearlyEqual(t, d.Stack, d.Rows[0], 1e-6)
}

func TestDisplayDefaultsToFullLag(t *testing.T) {
	const (
		dt     = 1.0 / 32
		maxLag = 2.0
	)
	width := 2*int(maxLag/dt) + 1
	c := sampleCorr([][]float64{testutil.LaggedPair(2, 32, width, 16)}, maxLag, dt, false)

	d, err := c.Display(1, 5, 0)
	if err != nil {
		t.Fatal(err)
	}
	if got, want := len(d.Rows[0]), width; got != want {
		t.Errorf("full-lag row length = %d, want %d", got, want)
	}
}

func TestDisplayValidation(t *testing.T) {
	width := 2*int(2.0/(1.0/32)) + 1
	c := sampleCorr([][]float64{testutil.LaggedPair(2, 32, width, 16)}, 2, 1.0/32, false)

	if _, err := c.Display(5, 1, 0); err == nil {
		t.Error("expected error for inverted band")
	}
	if _, err := c.Display(1, 5, 10); err == nil {
		t.Error("expected error for lag beyond stored range")
	}
}

func TestSpectraMatrixPeaksAtSignalFrequency(t *testing.T) {
	const (
		dt     = 1.0 / 32
		maxLag = 4.0
	)
	width := 2*int(maxLag/dt) + 1
	row := testutil.DeterministicSine(4, 32, 1, width)
	c := sampleCorr([][]float64{row, row}, maxLag, dt, true)

	freqs, amp, err := c.SpectraMatrix(0)
	if err != nil {
		t.Fatal(err)
	}
	// 257 samples pad to a 512-point transform, 256 positive bins.
	if got, want := len(freqs), 256; got != want {
		t.Fatalf("frequency bins = %d, want %d", got, want)
	}
	if got, want := len(amp), 2; got != want {
		t.Fatalf("spectra rows = %d, want %d", got, want)
	}

	peak := argMaxAbs(amp[0])
	if got, want := freqs[peak], 4.0; got != want {
		t.Errorf("peak at %v Hz, want %v", got, want)
	}
	if got := amp[0][peak]; got != 1 {
		t.Errorf("normalized peak = %v, want 1", got)
	}

	freqs2, amp2, err := c.SpectraMatrix(2)
	if err != nil {
		t.Fatal(err)
	}
	if got, want := len(freqs2), 128; got != want {
		t.Fatalf("trimmed frequency bins = %d, want %d", got, want)
	}
	if got, want := len(amp2[0]), 128; got != want {
		t.Fatalf("trimmed spectra bins = %d, want %d", got, want)
	}

	if _, _, err := c.SpectraMatrix(maxLag + 1); err == nil {
		t.Error("expected error for lag beyond stored range")
	}
}

func TestToSACRoundTrip(t *testing.T) {
	const dt = 1.0 / 32
	row := []float64{0.5, -1.25, 2, 0.125, -0.375}
	c := sampleCorr([][]float64{row}, 2*dt, dt, false)

	dir := t.TempDir()
	paths, err := c.ToSAC(dir)
	if err != nil {
		t.Fatal(err)
	}
	if got, want := len(paths), 1; got != want {
		t.Fatalf("wrote %d files, want %d", got, want)
	}
	wantName := "XX.SRC1_YY.RCV1_BHZ_BHZ_20160502T040506Z.sac"
	if got := filepath.Base(paths[0]); got != wantName {
		t.Errorf("file name = %q, want %q", got, wantName)
	}

	hdr, data, err := sacio.ReadFile(paths[0])
	if err != nil {
		t.Fatal(err)
	}
	testutil.RequireSliceNearlyEqual(t, data, row, eps)

	const tol = 1e-4
	if math.Abs(hdr.Delta-dt) > tol {
		t.Errorf("Delta = %v, want %v", hdr.Delta, dt)
	}
	if math.Abs(hdr.B-(-2*dt)) > tol {
		t.Errorf("B = %v, want %v", hdr.B, -2*dt)
	}
	if math.Abs(hdr.Stla-36.5) > tol || math.Abs(hdr.Stlo-(-119.5)) > tol {
		t.Errorf("receiver coordinates = (%v, %v), want (36.5, -119.5)", hdr.Stla, hdr.Stlo)
	}
	if math.Abs(hdr.Evla-36.0) > tol || math.Abs(hdr.Evlo-(-120.0)) > tol {
		t.Errorf("source coordinates = (%v, %v), want (36, -120)", hdr.Evla, hdr.Evlo)
	}
	if math.Abs(hdr.Dist-71.25) > tol {
		t.Errorf("Dist = %v, want 71.25", hdr.Dist)
	}
	if got, want := hdr.Kstnm, "RCV1"; got != want {
		t.Errorf("Kstnm = %q, want %q", got, want)
	}
	if got, want := hdr.Knetwk, "YY"; got != want {
		t.Errorf("Knetwk = %q, want %q", got, want)
	}
	if got, want := hdr.Kevnm, "XX.SRC1"; got != want {
		t.Errorf("Kevnm = %q, want %q", got, want)
	}
	if got, want := hdr.Nzyear, 2016; got != want {
		t.Errorf("Nzyear = %d, want %d", got, want)
	}
	if got, want := hdr.Nzhour, 4; got != want {
		t.Errorf("Nzhour = %d, want %d", got, want)
	}
}

func TestToSACSubstackWritesPerWindow(t *testing.T) {
	rows := [][]float64{
		{0.5, 1, 0.5},
		{0.25, 2, 0.25},
	}
	c := sampleCorr(rows, 1, 1, true)

	paths, err := c.ToSAC(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	if got, want := len(paths), 2; got != want {
		t.Fatalf("wrote %d files, want %d", got, want)
	}
	if paths[0] == paths[1] {
		t.Error("per-window files share a name")
	}
	for i, p := range paths {
		_, data, err := sacio.ReadFile(p)
		if err != nil {
			t.Fatal(err)
		}
		testutil.RequireSliceNearlyEqual(t, data, rows[i], eps)
	}
}

func TestParseCorrelationMethod(t *testing.T) {
	cases := []struct {
		in   string
		want Method
	}{
		{"", MethodXCorr},
		{"xcorr", MethodXCorr},
		{"cc", MethodXCorr},
		{"deconv", MethodDeconv},
		{"coherency", MethodCoherency},
	}
	for _, tc := range cases {
		got, err := ParseMethod(tc.in)
		if err != nil {
			t.Errorf("ParseMethod(%q) error: %v", tc.in, err)
			continue
		}
		if got != tc.want {
			t.Errorf("ParseMethod(%q) = %v, want %v", tc.in, got, tc.want)
		}
	}
	if _, err := ParseMethod("bogus"); err == nil {
		t.Error("expected error for unknown method")
	}
}

func BenchmarkCorrelate(b *testing.B) {
	src, rcv := fftPair(2048, 16, 25, 1, 1)
	cfg := Config{MaxLag: 10, Method: MethodDeconv, Substack: true}

	b.ReportAllocs()
	for b.Loop() {
		if _, err := Correlate(src, rcv, cfg); err != nil {
			b.Fatal(err)
		}
	}
}
