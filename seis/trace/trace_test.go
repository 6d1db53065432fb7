package trace

import (
	"math"
	"testing"

	"github.com/noisexc/noisexc/internal/testutil"
	"github.com/noisexc/noisexc/seis/station"
)

func newTestTrace(data []float64) *Trace {
	return &Trace{
		Sta:   station.Station{Net: "XX", Sta: "TST", Chan: "BHZ"},
		Dt:    0.05,
		Start: 1500000000,
		Data:  data,
	}
}

func TestSampleRateAndDuration(t *testing.T) {
	tr := newTestTrace(make([]float64, 1200))

	if got := tr.SampleRate(); got != 20 {
		t.Errorf("SampleRate: got %v, want 20", got)
	}

	if got := tr.Duration(); got != 60 {
		t.Errorf("Duration: got %v, want 60", got)
	}
}

func TestDemean(t *testing.T) {
	tr := newTestTrace([]float64{1, 2, 3, 4, 5})
	tr.Demean()

	sum := 0.0
	for _, v := range tr.Data {
		sum += v
	}

	if math.Abs(sum) > 1e-12 {
		t.Errorf("mean after demean: got %v, want 0", sum/5)
	}
}

func TestDetrendRemovesLine(t *testing.T) {
	data := make([]float64, 100)
	for i := range data {
		data[i] = 3 + 0.5*float64(i)
	}

	tr := newTestTrace(data)
	tr.Detrend()

	for i, v := range tr.Data {
		if math.Abs(v) > 1e-9 {
			t.Fatalf("sample %d: got %v, want 0", i, v)
		}
	}
}

func TestDetrendPreservesResidual(t *testing.T) {
	// Line plus sine: detrend keeps the sine nearly intact.
	n := 1000
	data := make([]float64, n)
	for i := range data {
		data[i] = -2 + 0.1*float64(i) + math.Sin(2*math.Pi*float64(i)/50)
	}

	tr := newTestTrace(data)
	tr.Detrend()

	for i := range n {
		want := math.Sin(2 * math.Pi * float64(i) / 50)
		if math.Abs(tr.Data[i]-want) > 0.01 {
			t.Fatalf("sample %d: got %v, want ~%v", i, tr.Data[i], want)
		}
	}
}

func TestTaperRollsOffEnds(t *testing.T) {
	tr := newTestTrace(testutil.Ones(1000))
	tr.Taper(0.05)

	if math.Abs(tr.Data[0]) > 1e-12 {
		t.Errorf("first sample: got %v, want 0", tr.Data[0])
	}

	if math.Abs(tr.Data[999]) > 1e-12 {
		t.Errorf("last sample: got %v, want 0", tr.Data[999])
	}

	// Middle stays untouched.
	for i := 100; i < 900; i++ {
		if tr.Data[i] != 1 {
			t.Fatalf("sample %d: got %v, want 1", i, tr.Data[i])
		}
	}
}

func TestTaperZeroFractionNoop(t *testing.T) {
	tr := newTestTrace([]float64{1, 2, 3})
	tr.Taper(0)

	if tr.Data[0] != 1 || tr.Data[1] != 2 || tr.Data[2] != 3 {
		t.Errorf("taper(0) modified data: %v", tr.Data)
	}
}

func TestSliceCountsAndTimes(t *testing.T) {
	// 60 s of data, 10 s windows advancing 5 s: 11 segments.
	tr := newTestTrace(testutil.DeterministicNoise(42, 1, 1200))

	segs, err := tr.Slice(10, 5)
	if err != nil {
		t.Fatalf("Slice: %v", err)
	}

	if len(segs) != 11 {
		t.Fatalf("segments: got %d, want 11", len(segs))
	}

	for i, seg := range segs {
		if len(seg.Data) != 200 {
			t.Errorf("segment %d length: got %d, want 200", i, len(seg.Data))
		}

		wantStart := tr.Start + 5*float64(i)
		if math.Abs(seg.Start-wantStart) > 1e-9 {
			t.Errorf("segment %d start: got %v, want %v", i, seg.Start, wantStart)
		}
	}
}

func TestSliceNonOverlapping(t *testing.T) {
	tr := newTestTrace(testutil.DeterministicNoise(1, 1, 1200))

	segs, err := tr.Slice(10, 10)
	if err != nil {
		t.Fatalf("Slice: %v", err)
	}

	if len(segs) != 6 {
		t.Fatalf("segments: got %d, want 6", len(segs))
	}
}

func TestSliceShortTraceYieldsNothing(t *testing.T) {
	tr := newTestTrace(testutil.DeterministicNoise(7, 1, 100))

	segs, err := tr.Slice(10, 5)
	if err != nil {
		t.Fatalf("Slice: %v", err)
	}

	if len(segs) != 0 {
		t.Fatalf("segments: got %d, want 0", len(segs))
	}
}

func TestSliceSegmentsAreCopies(t *testing.T) {
	tr := newTestTrace(testutil.DeterministicNoise(3, 1, 400))

	segs, err := tr.Slice(10, 10)
	if err != nil {
		t.Fatalf("Slice: %v", err)
	}

	orig := tr.Data[0]
	segs[0].Data[0] = 12345

	if tr.Data[0] != orig {
		t.Error("mutating a segment changed the trace")
	}
}

func TestSliceStdRatioFlagsSpikes(t *testing.T) {
	data := testutil.DeterministicNoise(9, 1, 1200)
	data[250] = 100 // spike inside the second non-overlapping window

	tr := newTestTrace(data)

	segs, err := tr.Slice(10, 10)
	if err != nil {
		t.Fatalf("Slice: %v", err)
	}

	if segs[1].StdRatio < 10*segs[0].StdRatio {
		t.Errorf("spiked window ratio %v not well above clean window ratio %v",
			segs[1].StdRatio, segs[0].StdRatio)
	}
}

func TestSliceDegenerateTrace(t *testing.T) {
	tr := newTestTrace(testutil.DC(3, 400))

	if _, err := tr.Slice(10, 10); err == nil {
		t.Error("flat trace: expected error")
	}
}

func TestSliceValidation(t *testing.T) {
	tr := newTestTrace(testutil.Ones(400))

	if _, err := tr.Slice(0, 5); err == nil {
		t.Error("zero window: expected error")
	}

	if _, err := tr.Slice(10, 0); err == nil {
		t.Error("zero step: expected error")
	}

	tr.Dt = 0
	if _, err := tr.Slice(10, 5); err == nil {
		t.Error("zero dt: expected error")
	}
}
