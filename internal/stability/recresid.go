package stability

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/groundtruth-data/change.report/internal/fit"
)

// RecursiveResiduals computes standardized one-step-ahead recursive residuals
// for a single series y against the design matrix X. The seed coefficients
// come from an exact fit on the first span rows; every later row costs one
// rank-one update of the inverse Gram matrix instead of a refit.
//
// The returned slice has length n. Entries before row span-1 are NaN. The
// entry at span-1 is the standardized in-sample residual of the seed fit at
// that row; the entry at row j >= span is the standardized prediction
// residual of the fit on rows [0, j).
//
// X and y must be fully observed: a NaN anywhere poisons every later update.
// Callers screen and compact their series first.
//
// span must satisfy p <= span < n. A singular seed Gram matrix is fatal and
// reported via fit.ErrSingularDesign.
func RecursiveResiduals(X *mat.Dense, y []float64, span int) ([]float64, error) {
	n, p := X.Dims()
	if len(y) != n {
		return nil, fmt.Errorf("stability: X has %d rows but y has %d values", n, len(y))
	}
	if span < p || span >= n {
		return nil, fmt.Errorf("stability: span %d outside valid range [%d, %d)", span, p, n)
	}

	// Seed: M = (X0'X0)^-1 over rows [0, span), owned and mutated in place
	// for the rest of the sweep; beta = M X0' y0.
	X0 := X.Slice(0, span, 0, p)
	var gram mat.Dense
	gram.Mul(X0.T(), X0)
	var M mat.Dense
	if err := M.Inverse(&gram); err != nil {
		return nil, fmt.Errorf("stability: seed window [0,%d): %w", span, fit.ErrSingularDesign)
	}

	var xty mat.VecDense
	xty.MulVec(X0.T(), mat.NewVecDense(span, y[:span]))
	beta := mat.NewVecDense(p, nil)
	beta.MulVec(&M, &xty)

	resid := make([]float64, n)
	fvar := make([]float64, n)

	// In-sample record at the last seed row.
	{
		x := mat.NewVecDense(p, X.RawRowView(span-1))
		g := mat.NewVecDense(p, nil)
		g.MulVec(&M, x)
		resid[span-1] = y[span-1] - mat.Dot(x, beta)
		fvar[span-1] = 1 + mat.Dot(x, g)
	}

	g := mat.NewVecDense(p, nil)
	var outer mat.Dense
	for j := span; j < n; j++ {
		x := mat.NewVecDense(p, X.RawRowView(j))

		// Prediction with the previous coefficients.
		resid[j] = y[j] - mat.Dot(x, beta)
		g.MulVec(&M, x)
		f := 1 + mat.Dot(x, g)
		fvar[j] = f

		// Rank-one update of the inverse Gram matrix and the coefficients,
		// absorbing row j.
		outer.Outer(1/f, g, g)
		M.Sub(&M, &outer)
		beta.AddScaledVec(beta, resid[j]/f, g)
	}

	out := make([]float64, n)
	for i := 0; i < span-1; i++ {
		out[i] = math.NaN()
	}
	for i := span - 1; i < n; i++ {
		out[i] = resid[i] / math.Sqrt(fvar[i])
	}
	return out, nil
}
