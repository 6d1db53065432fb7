// Package stack combines windowed cross-correlation rows into a single
// function. Linear averaging treats every window equally, the robust
// method iteratively downweights windows that disagree with the stack,
// and the phase-weighted method scales the average by the instantaneous
// phase coherence across windows.
package stack

import (
	"fmt"
	"math"
	"slices"

	"gonum.org/v1/gonum/floats"
)

// Method selects a stacking algorithm.
type Method int

const (
	MethodLinear Method = iota
	MethodRobust
	MethodPWS
)

func (m Method) String() string {
	switch m {
	case MethodRobust:
		return "robust"
	case MethodPWS:
		return "pws"
	default:
		return "linear"
	}
}

// ParseMethod maps a config string to a Method.
func ParseMethod(s string) (Method, error) {
	switch s {
	case "", "linear", "mean":
		return MethodLinear, nil
	case "robust":
		return MethodRobust, nil
	case "pws", "phase-weighted", "phase_weighted":
		return MethodPWS, nil
	}
	return MethodLinear, fmt.Errorf("stack: unknown method %q", s)
}

// Config bundles the per-method tuning knobs.
type Config struct {
	Method Method

	// Epsilon and MaxIter bound the robust iteration.
	Epsilon float64
	MaxIter int

	// Power is the phase-weighted coherence exponent.
	Power float64
}

func normalizeConfig(cfg Config) Config {
	if cfg.Epsilon <= 0 {
		cfg.Epsilon = 1e-5
	}
	if cfg.MaxIter <= 0 {
		cfg.MaxIter = 10
	}
	if cfg.Power <= 0 {
		cfg.Power = 2
	}
	return cfg
}

// Stack combines rows with the configured method.
func Stack(rows [][]float64, cfg Config) ([]float64, error) {
	cfg = normalizeConfig(cfg)

	switch cfg.Method {
	case MethodLinear:
		return Linear(rows)
	case MethodRobust:
		s, _, err := Robust(rows, cfg.Epsilon, cfg.MaxIter)
		return s, err
	case MethodPWS:
		return PhaseWeighted(rows, cfg.Power)
	}
	return nil, fmt.Errorf("stack: unknown method %d", cfg.Method)
}

func checkRows(rows [][]float64) error {
	if len(rows) == 0 || len(rows[0]) == 0 {
		return fmt.Errorf("stack: no data to stack")
	}
	for i, row := range rows {
		if len(row) != len(rows[0]) {
			return fmt.Errorf("stack: row %d has %d samples, want %d", i, len(row), len(rows[0]))
		}
	}
	return nil
}

// Linear returns the per-sample mean across rows.
func Linear(rows [][]float64) ([]float64, error) {
	if err := checkRows(rows); err != nil {
		return nil, err
	}

	out := make([]float64, len(rows[0]))
	for _, row := range rows {
		floats.Add(out, row)
	}
	floats.Scale(1/float64(len(rows)), out)
	return out, nil
}

// Robust stacks rows by iteratively reweighting them. Each window's weight
// is |d.s| / (|d| |d - (d.s)s|) against the current stack s, so windows
// dominated by energy the stack does not share get small weights. The
// iteration seeds with the per-sample median and stops when the L1 change
// per row drops below epsilon or after maxIter rounds.
//
// The returned weights are normalized to sum to one.
func Robust(rows [][]float64, epsilon float64, maxIter int) ([]float64, []float64, error) {
	if err := checkRows(rows); err != nil {
		return nil, nil, err
	}
	if len(rows) == 1 {
		out := make([]float64, len(rows[0]))
		copy(out, rows[0])
		return out, []float64{1}, nil
	}

	cur := columnMedian(rows)
	w := make([]float64, len(rows))
	resid := make([]float64, len(rows[0]))
	next := make([]float64, len(rows[0]))

	for step := 0; step < maxIter; step++ {
		for i, row := range rows {
			dot := floats.Dot(cur, row)
			copy(resid, row)
			floats.AddScaled(resid, -dot, cur)

			denom := floats.Norm(row, 2) * floats.Norm(resid, 2)
			if denom < 1e-30 {
				// Window indistinguishable from the stack itself.
				w[i] = 1e12
				continue
			}
			w[i] = math.Abs(dot) / denom
		}

		sum := floats.Sum(w)
		if sum == 0 {
			return nil, nil, fmt.Errorf("stack: robust weights degenerated to zero")
		}
		floats.Scale(1/sum, w)

		for j := range next {
			next[j] = 0
		}
		for i, row := range rows {
			floats.AddScaled(next, w[i], row)
		}

		norm := floats.Norm(next, 2)
		res := math.Inf(1)
		if norm > 0 {
			res = floats.Distance(next, cur, 1) / norm / float64(len(rows))
		}
		copy(cur, next)
		if res <= epsilon {
			break
		}
	}

	return cur, w, nil
}

func columnMedian(rows [][]float64) []float64 {
	out := make([]float64, len(rows[0]))
	col := make([]float64, len(rows))

	for j := range out {
		for i, row := range rows {
			col[i] = row[j]
		}
		out[j] = median(col)
	}
	return out
}

func median(x []float64) float64 {
	slices.Sort(x)
	n := len(x)
	if n%2 == 1 {
		return x[n/2]
	}
	return 0.5 * (x[n/2-1] + x[n/2])
}
