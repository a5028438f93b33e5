// Package screen removes contaminated observations from reflectance series
// before they reach the stability fit. Screeners never modify their inputs;
// they return masked copies with rejected observations set to NaN.
package screen

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/groundtruth-data/change.report/internal/fit"
)

func checkShape(what string, m *mat.Dense, wantRows, wantCols int) error {
	r, c := m.Dims()
	if r != wantRows || c != wantCols {
		return fmt.Errorf("screen: %s is %dx%d, want %dx%d: %w", what, r, c, wantRows, wantCols, fit.ErrDimensionMismatch)
	}
	return nil
}
