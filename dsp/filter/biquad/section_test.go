package biquad

import (
	"math"
	"testing"
)

// tolerance for floating-point comparisons.
const eps = 1e-12

func almostEqual(a, b, tol float64) bool {
	return math.Abs(a-b) <= tol
}

// passthrough returns coefficients for a unity gain passthrough (B0=1, all else 0).
func passthrough() Coefficients {
	return Coefficients{B0: 1}
}

// twoTapAverage returns H(z) = 0.5*(1 + z^-1), a simple FIR-like biquad.
func twoTapAverage() Coefficients {
	return Coefficients{B0: 0.5, B1: 0.5}
}

func TestNewSection(t *testing.T) {
	c := Coefficients{B0: 1, B1: 2, B2: 3, A1: 4, A2: 5}

	s := NewSection(c)
	if s.Coefficients != c {
		t.Fatalf("coefficients mismatch: got %v, want %v", s.Coefficients, c)
	}

	st := s.State()
	if st != [2]float64{0, 0} {
		t.Fatalf("initial state not zero: %v", st)
	}
}

func TestProcessSamplePassthrough(t *testing.T) {
	s := NewSection(passthrough())

	input := []float64{1, 0, -1, 0.5, 0.25}
	for i, x := range input {
		y := s.ProcessSample(x)
		if !almostEqual(y, x, eps) {
			t.Errorf("sample %d: got %v, want %v", i, y, x)
		}
	}
}

func TestProcessSampleTwoTapAverage(t *testing.T) {
	s := NewSection(twoTapAverage())

	input := []float64{1, 1, 0, 0}
	want := []float64{0.5, 1, 0.5, 0}

	for i, x := range input {
		y := s.ProcessSample(x)
		if !almostEqual(y, want[i], eps) {
			t.Errorf("sample %d: got %v, want %v", i, y, want[i])
		}
	}
}

func TestProcessSampleHandTraced(t *testing.T) {
	// DF-II-T recurrence traced by hand for an impulse:
	//   y0 = B0*1 + 0          = 0.2
	//   d0 = B1*1 - A1*y0 + d1 = 0.3 - 0.5*0.2 = 0.2
	//   d1 = B2*1 - A2*y0      = 0.1 - 0.25*0.2 = 0.05
	//   y1 = B0*0 + d0         = 0.2
	//   ...
	s := NewSection(Coefficients{B0: 0.2, B1: 0.3, B2: 0.1, A1: 0.5, A2: 0.25})

	y0 := s.ProcessSample(1)
	if !almostEqual(y0, 0.2, eps) {
		t.Fatalf("y0: got %v, want 0.2", y0)
	}

	y1 := s.ProcessSample(0)
	if !almostEqual(y1, 0.2, eps) {
		t.Fatalf("y1: got %v, want 0.2", y1)
	}

	// y2 = d0' = B1*0 - A1*y1 + d1 = -0.5*0.2 + 0.05 = -0.05
	y2 := s.ProcessSample(0)
	if !almostEqual(y2, -0.05, eps) {
		t.Fatalf("y2: got %v, want -0.05", y2)
	}
}

func TestProcessBlockMatchesProcessSample(t *testing.T) {
	c := Coefficients{B0: 0.25, B1: 0.5, B2: 0.25, A1: -0.2, A2: 0.04}

	input := make([]float64, 257) // odd length exercises the tail sample
	for i := range input {
		input[i] = math.Sin(0.1 * float64(i))
	}

	ref := NewSection(c)
	want := make([]float64, len(input))
	for i, x := range input {
		want[i] = ref.ProcessSample(x)
	}

	s := NewSection(c)
	block := make([]float64, len(input))
	copy(block, input)
	s.ProcessBlock(block)

	for i := range block {
		if !almostEqual(block[i], want[i], eps) {
			t.Errorf("sample %d: block=%v, sample=%v", i, block[i], want[i])
		}
	}

	if s.State() != ref.State() {
		t.Errorf("state mismatch: block=%v, sample=%v", s.State(), ref.State())
	}
}

func TestProcessBlockToMatchesInPlace(t *testing.T) {
	c := Coefficients{B0: 0.25, B1: 0.5, B2: 0.25, A1: -0.2, A2: 0.04}

	input := []float64{1, 0.5, -0.3, 0.7, 0, -1, 0.2, 0.8}

	s1 := NewSection(c)
	inPlace := make([]float64, len(input))
	copy(inPlace, input)
	s1.ProcessBlock(inPlace)

	s2 := NewSection(c)
	dst := make([]float64, len(input))
	s2.ProcessBlockTo(dst, input)

	for i := range dst {
		if !almostEqual(dst[i], inPlace[i], eps) {
			t.Errorf("sample %d: to=%v, inplace=%v", i, dst[i], inPlace[i])
		}
	}
}

func TestResetClearsState(t *testing.T) {
	s := NewSection(twoTapAverage())
	s.ProcessSample(1)
	s.ProcessSample(1)

	s.Reset()

	if st := s.State(); st != [2]float64{0, 0} {
		t.Fatalf("state after reset: %v", st)
	}

	if y := s.ProcessSample(0); y != 0 {
		t.Fatalf("output after reset: got %v, want 0", y)
	}
}

func TestStateSaveRestore(t *testing.T) {
	s := NewSection(Coefficients{B0: 0.25, B1: 0.5, B2: 0.25, A1: -0.2, A2: 0.04})
	s.ProcessSample(1)
	s.ProcessSample(0.5)
	saved := s.State()

	y1 := s.ProcessSample(-0.3)

	s.SetState(saved)

	y2 := s.ProcessSample(-0.3)
	if !almostEqual(y1, y2, eps) {
		t.Fatalf("replay after restore: got %v, want %v", y2, y1)
	}
}

func BenchmarkProcessBlock(b *testing.B) {
	s := NewSection(Coefficients{B0: 0.25, B1: 0.5, B2: 0.25, A1: -0.2, A2: 0.04})

	buf := make([]float64, 4096)
	for i := range buf {
		buf[i] = float64(i) * 0.001
	}

	b.SetBytes(4096 * 8)

	for b.Loop() {
		s.ProcessBlock(buf)
	}
}
