package fit

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// madScaleConstant normalizes the median absolute residual so the scale
// estimate is consistent with the standard deviation under Gaussian noise.
const madScaleConstant = 0.6745

// RobustConfig configures the iteratively reweighted least squares fit.
type RobustConfig struct {
	MaxIter int     // maximum reweighting passes
	Tol     float64 // stop when the largest coefficient change falls below this
	Tune    float64 // bisquare tuning constant, in scale units
}

// DefaultRobustConfig returns the tuning used by the outlier screeners.
func DefaultRobustConfig() RobustConfig {
	return RobustConfig{
		MaxIter: 50,
		Tol:     1e-8,
		Tune:    4.685,
	}
}

// normalized fills unset fields with their defaults so the zero value is
// usable.
func (c RobustConfig) normalized() RobustConfig {
	def := DefaultRobustConfig()
	if c.MaxIter <= 0 {
		c.MaxIter = def.MaxIter
	}
	if c.Tol <= 0 {
		c.Tol = def.Tol
	}
	if c.Tune <= 0 {
		c.Tune = def.Tune
	}
	return c
}

// Robust fits each column of Y by iteratively reweighted least squares with
// Tukey bisquare weights, starting from the exact OLS solution. Shape and
// masking behaviour match OLS. The residual scale is re-estimated each pass
// from the median absolute residual. Inputs are not modified.
func Robust(X, Y *mat.Dense, cfg RobustConfig) (*mat.Dense, *mat.Dense, error) {
	n, p := X.Dims()
	yn, k := Y.Dims()
	if yn != n {
		return nil, nil, fmt.Errorf("%w: X has %d rows, Y has %d", ErrDimensionMismatch, n, yn)
	}
	if err := checkFullRank(X); err != nil {
		return nil, nil, err
	}
	cfg = cfg.normalized()

	beta := NaNDense(p, k)
	residuals := NaNDense(n, k)
	rows := make([]int, 0, n)
	for j := 0; j < k; j++ {
		rows = validRows(Y, j, rows[:0])
		if len(rows) < p {
			continue
		}
		coef, ok := solveWLS(X, Y, j, rows, nil)
		if !ok {
			continue
		}

		resid := make([]float64, len(rows))
		weights := make([]float64, len(rows))
		for iter := 0; iter < cfg.MaxIter; iter++ {
			residualsOn(resid, X, Y, j, rows, coef)
			scale := madScale(resid)
			if scale == 0 {
				break
			}
			for i, r := range resid {
				weights[i] = bisquare(r / (cfg.Tune * scale))
			}
			next, ok := solveWLS(X, Y, j, rows, weights)
			if !ok {
				break
			}
			delta := 0.0
			for c := range coef {
				if d := math.Abs(next[c] - coef[c]); d > delta {
					delta = d
				}
			}
			coef = next
			if delta < cfg.Tol {
				break
			}
		}

		beta.SetCol(j, coef)
		writeResiduals(residuals, X, Y, j, rows, coef)
	}
	return beta, residuals, nil
}

// residualsOn computes observed minus fitted into dst for the given rows.
func residualsOn(dst []float64, X, Y *mat.Dense, j int, rows []int, coef []float64) {
	for i, r := range rows {
		dst[i] = Y.At(r, j) - floats.Dot(X.RawRowView(r), coef)
	}
}

// bisquare is the Tukey biweight: observations beyond one tuning unit get
// zero weight and drop out of the next pass.
func bisquare(u float64) float64 {
	if math.Abs(u) >= 1 {
		return 0
	}
	v := 1 - u*u
	return v * v
}

// madScale estimates the residual scale from the median absolute residual.
// A zero result means the fit is already (numerically) exact.
func madScale(resid []float64) float64 {
	abs := make([]float64, len(resid))
	for i, r := range resid {
		abs[i] = math.Abs(r)
	}
	sort.Float64s(abs)
	var med float64
	m := len(abs)
	if m%2 == 1 {
		med = abs[m/2]
	} else {
		med = (abs[m/2-1] + abs[m/2]) / 2
	}
	return med / madScaleConstant
}
