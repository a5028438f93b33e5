package testutil

import (
	"errors"
	"math"
	"testing"

	"gonum.org/v1/gonum/mat"
)

func TestAssertNoError(t *testing.T) {
	t.Parallel()

	AssertNoError(t, nil)
}

func TestAssertError(t *testing.T) {
	t.Parallel()

	AssertError(t, errors.New("boom"))
}

func TestFloatEqual(t *testing.T) {
	t.Parallel()

	nan := math.NaN()
	cases := []struct {
		name      string
		got, want float64
		tol       float64
		equal     bool
	}{
		{"exact", 1.5, 1.5, 0, true},
		{"within tolerance", 1.5, 1.5004, 1e-3, true},
		{"outside tolerance", 1.5, 1.6, 1e-3, false},
		{"both nan", nan, nan, 1e-9, true},
		{"got nan only", nan, 1.5, 1e-9, false},
		{"want nan only", 1.5, nan, 1e-9, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := FloatEqual(tc.got, tc.want, tc.tol); got != tc.equal {
				t.Errorf("FloatEqual(%v, %v, %v) = %v, want %v", tc.got, tc.want, tc.tol, got, tc.equal)
			}
		})
	}
}

func TestAssertFloatsEqual(t *testing.T) {
	t.Parallel()

	nan := math.NaN()
	AssertFloatsEqual(t, []float64{1, nan, 3}, []float64{1, nan, 3 + 1e-12}, 1e-9)
}

func TestAssertMatEqual(t *testing.T) {
	t.Parallel()

	nan := math.NaN()
	a := mat.NewDense(2, 2, []float64{1, nan, 3, 4})
	b := mat.NewDense(2, 2, []float64{1, nan, 3, 4})
	AssertMatEqual(t, a, b, 1e-12)
}

func TestNaNCount(t *testing.T) {
	t.Parallel()

	nan := math.NaN()
	m := mat.NewDense(3, 2, []float64{1, nan, nan, nan, 2, 0})
	if got := NaNCount(m, 0); got != 1 {
		t.Errorf("NaNCount col 0 = %d, want 1", got)
	}
	if got := NaNCount(m, 1); got != 2 {
		t.Errorf("NaNCount col 1 = %d, want 2", got)
	}
}
