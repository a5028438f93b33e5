// Package testutil provides shared test utilities and fixtures.
//
// This package centralises common numeric test helpers to reduce code
// duplication across test files and improve test maintainability. All
// comparisons treat NaN as equal to NaN so that missing-value sentinels can
// be asserted directly.
package testutil

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/mat"
)

// AssertNoError fails the test if err is not nil.
func AssertNoError(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

// AssertError fails the test if err is nil.
func AssertError(t *testing.T, err error) {
	t.Helper()
	if err == nil {
		t.Fatal("expected error, got nil")
	}
}

// FloatEqual reports whether two values agree within tol, with NaN matching
// NaN.
func FloatEqual(got, want, tol float64) bool {
	if math.IsNaN(want) {
		return math.IsNaN(got)
	}
	if math.IsNaN(got) {
		return false
	}
	return math.Abs(got-want) <= tol
}

// AssertFloatsEqual checks two slices elementwise within tol.
func AssertFloatsEqual(t *testing.T, got, want []float64, tol float64) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("length = %d, want %d", len(got), len(want))
	}
	for i := range want {
		if !FloatEqual(got[i], want[i], tol) {
			t.Errorf("element %d = %v, want %v (tol %g)", i, got[i], want[i], tol)
		}
	}
}

// AssertMatEqual checks two dense matrices elementwise within tol.
func AssertMatEqual(t *testing.T, got, want *mat.Dense, tol float64) {
	t.Helper()
	gr, gc := got.Dims()
	wr, wc := want.Dims()
	if gr != wr || gc != wc {
		t.Fatalf("dims = %dx%d, want %dx%d", gr, gc, wr, wc)
	}
	for i := 0; i < wr; i++ {
		for j := 0; j < wc; j++ {
			if !FloatEqual(got.At(i, j), want.At(i, j), tol) {
				t.Errorf("element (%d,%d) = %v, want %v (tol %g)", i, j, got.At(i, j), want.At(i, j), tol)
			}
		}
	}
}

// NaNCount returns the number of NaN entries in column j of m.
func NaNCount(m *mat.Dense, j int) int {
	r, _ := m.Dims()
	n := 0
	for i := 0; i < r; i++ {
		if math.IsNaN(m.At(i, j)) {
			n++
		}
	}
	return n
}
