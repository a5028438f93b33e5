package stability

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

// IsStable evaluates the three-part stability test for every column of a
// fitted window. slopes holds the per-column trend coefficients and residuals
// the w×k window residuals, NaN where an observation is missing.
//
// A column is stable when the slope, the first observed residual and the last
// observed residual are all strictly below threshold after normalization by
// the column's RMSE, in absolute value. Columns without usable residuals are
// never stable. The test is monotone in threshold for fixed inputs.
//
// IsStable panics if len(slopes) differs from the column count of residuals.
func IsStable(slopes []float64, residuals *mat.Dense, threshold float64) []bool {
	w, k := residuals.Dims()
	if len(slopes) != k {
		panic("stability: slopes length does not match residual columns")
	}

	stable := make([]bool, k)
	for j := 0; j < k; j++ {
		var sum float64
		count := 0
		first, last := math.NaN(), math.NaN()
		for i := 0; i < w; i++ {
			v := residuals.At(i, j)
			if math.IsNaN(v) {
				continue
			}
			if count == 0 {
				first = v
			}
			last = v
			sum += v * v
			count++
		}
		if count == 0 {
			continue
		}
		rmse := math.Sqrt(sum / float64(count))

		// NaN slopes and zero RMSE fall through as unstable: the comparisons
		// below are false for NaN and Inf ratios.
		stable[j] = math.Abs(slopes[j])/rmse < threshold &&
			math.Abs(first)/rmse < threshold &&
			math.Abs(last)/rmse < threshold
	}
	return stable
}
