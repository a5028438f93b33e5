package fit

import (
	"fmt"
	"math"
	"time"

	"gonum.org/v1/gonum/mat"
)

// hoursPerYear converts date offsets to fractional years for the trend and
// harmonic regressors.
const hoursPerYear = 24 * 365.25

// HarmonicDesign builds the shared design matrix used by the command line
// tools: an intercept column, a linear trend in fractional years since the
// first date, and cos/sin pairs for annual harmonics 1..order. The slope
// coefficient consumed by the stability test is therefore always column 1.
func HarmonicDesign(dates []time.Time, order int) (*mat.Dense, error) {
	if len(dates) == 0 {
		return nil, fmt.Errorf("fit: harmonic design requires at least one date")
	}
	if order < 0 {
		return nil, fmt.Errorf("fit: harmonic order must be non-negative, got %d", order)
	}

	p := 2 + 2*order
	X := mat.NewDense(len(dates), p, nil)
	for i, d := range dates {
		t := d.Sub(dates[0]).Hours() / hoursPerYear
		X.Set(i, 0, 1)
		X.Set(i, 1, t)
		for h := 1; h <= order; h++ {
			phase := 2 * math.Pi * float64(h) * t
			X.Set(i, 2*h, math.Cos(phase))
			X.Set(i, 2*h+1, math.Sin(phase))
		}
	}
	return X, nil
}
