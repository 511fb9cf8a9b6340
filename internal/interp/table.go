// Package interp provides the piecewise-linear lookup tables used for
// distance-dependent thresholds.
//
// Both extrapolation policies are exposed as separate methods because the
// checks consuming them each commit to one; they must not be unified.
//
// Breakpoints and values are stored as float32 and widened to float64 for
// evaluation; each lookup rounds once back to float32. A lookup at a
// breakpoint returns its value exactly. Between breakpoints the result can
// differ from evaluating the segment in float32 steps by float32 rounding
// error, which only matters for inputs within a few ulps of a threshold.
package interp

import (
	"fmt"

	"gonum.org/v1/gonum/interp"
)

// Table is an immutable piecewise-linear lookup table.
type Table struct {
	xs, ys []float64
	pl     interp.PiecewiseLinear
}

// NewTable fits a table through the given breakpoints. xs must be strictly
// increasing and have the same length as ys, with at least two points.
func NewTable(xs, ys []float32) (*Table, error) {
	if len(xs) != len(ys) {
		return nil, fmt.Errorf("table has %d breakpoints but %d values", len(xs), len(ys))
	}
	t := &Table{
		xs: make([]float64, len(xs)),
		ys: make([]float64, len(ys)),
	}
	for i := range xs {
		t.xs[i] = float64(xs[i])
		t.ys[i] = float64(ys[i])
	}
	if err := t.pl.Fit(t.xs, t.ys); err != nil {
		return nil, fmt.Errorf("failed to fit table: %w", err)
	}
	return t, nil
}

// MustTable is NewTable for fixed tables known at compile time.
func MustTable(xs, ys []float32) *Table {
	t, err := NewTable(xs, ys)
	if err != nil {
		panic(err)
	}
	return t
}

// ConstantExtrapolate interpolates inside the table and holds the first or last
// value outside it.
func (t *Table) ConstantExtrapolate(x float32) float32 {
	return float32(t.pl.Predict(float64(x)))
}

// LinearExtrapolate interpolates inside the table and extends the first or last
// segment outside it.
func (t *Table) LinearExtrapolate(x float32) float32 {
	xf := float64(x)
	n := len(t.xs)
	switch {
	case xf < t.xs[0]:
		return float32(t.ys[0] + slope(t.xs[0], t.ys[0], t.xs[1], t.ys[1])*(xf-t.xs[0]))
	case xf > t.xs[n-1]:
		return float32(t.ys[n-1] + slope(t.xs[n-2], t.ys[n-2], t.xs[n-1], t.ys[n-1])*(xf-t.xs[n-1]))
	default:
		return float32(t.pl.Predict(xf))
	}
}

// Domain returns the first and last breakpoint.
func (t *Table) Domain() (lo, hi float32) {
	return float32(t.xs[0]), float32(t.xs[len(t.xs)-1])
}

func slope(x0, y0, x1, y1 float64) float64 {
	return (y1 - y0) / (x1 - x0)
}
