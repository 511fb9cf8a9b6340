package interp

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewTableErrors(t *testing.T) {
	t.Parallel()

	_, err := NewTable([]float32{0, 1}, []float32{1})
	require.Error(t, err)

	_, err = NewTable([]float32{0}, []float32{1})
	require.Error(t, err)

	_, err = NewTable([]float32{1, 0}, []float32{1, 2})
	require.Error(t, err)

	assert.Panics(t, func() { MustTable([]float32{2, 2}, []float32{1, 2}) })
}

func TestInsideDomain(t *testing.T) {
	t.Parallel()

	tbl := MustTable([]float32{0, 40}, []float32{2, 3})
	for _, x := range []float32{0, 10, 20, 40} {
		want := 2 + x/40
		assert.InDelta(t, want, tbl.ConstantExtrapolate(x), 1e-6, "x=%v", x)
		assert.InDelta(t, want, tbl.LinearExtrapolate(x), 1e-6, "x=%v", x)
	}

	lo, hi := tbl.Domain()
	assert.Equal(t, float32(0), lo)
	assert.Equal(t, float32(40), hi)
}

func TestExtrapolationPoliciesDiverge(t *testing.T) {
	t.Parallel()

	tbl := MustTable([]float32{0, 40}, []float32{2, 3})

	// beyond the last breakpoint
	assert.InDelta(t, 3, tbl.ConstantExtrapolate(80), 1e-6)
	assert.InDelta(t, 4, tbl.LinearExtrapolate(80), 1e-6)

	// before the first breakpoint
	assert.InDelta(t, 2, tbl.ConstantExtrapolate(-40), 1e-6)
	assert.InDelta(t, 1, tbl.LinearExtrapolate(-40), 1e-6)

	assert.NotEqual(t, tbl.ConstantExtrapolate(120), tbl.LinearExtrapolate(120))
}

func TestMultiSegment(t *testing.T) {
	t.Parallel()

	tbl := MustTable([]float32{0, 10, 20}, []float32{0, 10, 0})
	assert.InDelta(t, 5, tbl.ConstantExtrapolate(5), 1e-6)
	assert.InDelta(t, 5, tbl.ConstantExtrapolate(15), 1e-6)
	assert.InDelta(t, -10, tbl.LinearExtrapolate(30), 1e-6)
	assert.InDelta(t, -5, tbl.LinearExtrapolate(-5), 1e-6)
}

func TestBreakpointsAreExact(t *testing.T) {
	t.Parallel()

	xs := []float32{0, 12.5, 37.3, 100}
	ys := []float32{2, 2.35, 2.71, 3}
	tbl := MustTable(xs, ys)
	for i, x := range xs {
		assert.Equal(t, ys[i], tbl.ConstantExtrapolate(x), "x=%v", x)
		assert.Equal(t, ys[i], tbl.LinearExtrapolate(x), "x=%v", x)
	}
}

func TestMatchesFloat32Segments(t *testing.T) {
	t.Parallel()

	// The default elevation limits.
	var x0, x1, y0, y1 float32 = 0, 100, 2, 3
	tbl := MustTable([]float32{x0, x1}, []float32{y0, y1})
	for x := float32(0.05); x < x1; x += 0.731 {
		want := y0 + (y1-y0)/(x1-x0)*(x-x0)
		assert.InDelta(t, want, tbl.ConstantExtrapolate(x), 1e-6, "x=%v", x)
	}
}
