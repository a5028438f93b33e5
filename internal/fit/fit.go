// Package fit provides the regression providers used across the change
// detection pipeline: an exact per-column masked ordinary least squares fit,
// a robust iteratively reweighted variant, and the harmonic design-matrix
// builder used by the command line tools.
//
// All fits share one shape contract: a fully observed design matrix X (n×p)
// and a dependent matrix Y (n×k) whose missing values are NaN. Each column of
// Y is solved independently over the rows where that column is observed.
// Columns with too few observations, or whose masked row subset turns out
// rank deficient, recover locally: their coefficient and residual columns are
// left NaN and no error is returned. A design matrix that is itself singular
// fails the whole call, since no column could ever be fit against it.
package fit

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

var (
	// ErrDimensionMismatch reports inputs whose shapes do not line up.
	ErrDimensionMismatch = errors.New("fit: dimension mismatch")

	// ErrSingularDesign reports a design matrix whose Gram matrix cannot be
	// inverted.
	ErrSingularDesign = errors.New("fit: singular design matrix")
)

// NaNDense returns an r×c dense matrix with every entry set to NaN.
func NaNDense(r, c int) *mat.Dense {
	d := mat.NewDense(r, c, nil)
	data := d.RawMatrix().Data
	for i := range data {
		data[i] = math.NaN()
	}
	return d
}

// OLS fits an ordinary least squares model independently to every column of
// Y. It returns the p×k coefficient matrix and the n×k residual matrix
// (observed minus fitted). Residual entries are NaN wherever the observation
// is missing. Inputs are not modified.
func OLS(X, Y *mat.Dense) (*mat.Dense, *mat.Dense, error) {
	n, p := X.Dims()
	yn, k := Y.Dims()
	if yn != n {
		return nil, nil, fmt.Errorf("%w: X has %d rows, Y has %d", ErrDimensionMismatch, n, yn)
	}
	if err := checkFullRank(X); err != nil {
		return nil, nil, err
	}

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
		beta.SetCol(j, coef)
		writeResiduals(residuals, X, Y, j, rows, coef)
	}
	return beta, residuals, nil
}

// checkFullRank verifies the normal equations of the full design are
// invertible. Deficiencies introduced by masked row subsets are handled per
// column instead.
func checkFullRank(X *mat.Dense) error {
	var gram, inv mat.Dense
	gram.Mul(X.T(), X)
	if err := inv.Inverse(&gram); err != nil {
		return fmt.Errorf("%w: design columns are linearly dependent", ErrSingularDesign)
	}
	return nil
}

// validRows appends to dst the indices of rows where column j of Y is
// observed.
func validRows(Y *mat.Dense, j int, dst []int) []int {
	n, _ := Y.Dims()
	for i := 0; i < n; i++ {
		if !math.IsNaN(Y.At(i, j)) {
			dst = append(dst, i)
		}
	}
	return dst
}

// solveWLS solves the least squares system for column j of Y restricted to
// the given rows. When w is non-nil it must align with rows, and each row of
// the system is scaled by the square root of its weight. The second return is
// false when the masked system is rank deficient.
func solveWLS(X, Y *mat.Dense, j int, rows []int, w []float64) ([]float64, bool) {
	_, p := X.Dims()
	m := len(rows)
	xm := mat.NewDense(m, p, nil)
	yv := mat.NewVecDense(m, nil)
	for i, r := range rows {
		scale := 1.0
		if w != nil {
			scale = math.Sqrt(w[i])
		}
		for c := 0; c < p; c++ {
			xm.Set(i, c, scale*X.At(r, c))
		}
		yv.SetVec(i, scale*Y.At(r, j))
	}

	var qr mat.QR
	qr.Factorize(xm)
	var sol mat.VecDense
	if err := qr.SolveVecTo(&sol, false, yv); err != nil {
		return nil, false
	}
	coef := make([]float64, p)
	for c := 0; c < p; c++ {
		coef[c] = sol.AtVec(c)
	}
	return coef, true
}

// writeResiduals fills column j of dst with observed minus fitted values on
// the given rows.
func writeResiduals(dst, X, Y *mat.Dense, j int, rows []int, coef []float64) {
	for _, r := range rows {
		fitted := floats.Dot(X.RawRowView(r), coef)
		dst.Set(r, j, Y.At(r, j)-fitted)
	}
}
