// Package stability finds stable trailing-window regression fits for batches
// of per-pixel spectral time series, following the iterative shrink-and-refit
// scheme of continuous change detection. It also provides the standardized
// recursive residuals used downstream for break detection.
//
// All operations are synchronous and single threaded; one call works on one
// batch. Inputs are never retained or modified and every output is freshly
// allocated, so callers may run batches concurrently as long as each batch
// has its own call.
package stability

import (
	"errors"
	"fmt"
	"math"
	"time"

	"gonum.org/v1/gonum/mat"

	"github.com/groundtruth-data/change.report/internal/fit"
)

// ErrInsufficientCoverage reports a date vector that does not span the full
// calendar year the stable fit requires.
var ErrInsufficientCoverage = errors.New("stability: insufficient temporal coverage")

// PixelState classifies one pixel column of a batch during and after the
// stable-fit loop.
type PixelState uint8

const (
	// PixelStateIterating marks a column still being refit on shrinking
	// windows.
	PixelStateIterating PixelState = iota
	// PixelStateStable marks a column that passed the stability test; its
	// outputs are frozen.
	PixelStateStable
	// PixelStateInsufficientData marks a column with too few observations to
	// fit, either from the start or after the window shrank past its data.
	PixelStateInsufficientData
)

func (s PixelState) String() string {
	switch s {
	case PixelStateIterating:
		return "iterating"
	case PixelStateStable:
		return "stable"
	case PixelStateInsufficientData:
		return "insufficient_data"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(s))
	}
}

// Config tunes the iterative stable fit.
type Config struct {
	// Threshold bounds the three normalized stability statistics. A fit is
	// stable only while all of them stay strictly below it.
	Threshold float64

	// ShrinkStep is the number of oldest rows discarded after each pass.
	ShrinkStep int

	// MinObsFactor times the regressor count is the observation count a
	// column must exceed to keep participating in fits.
	MinObsFactor float64

	// OnIteration, when set, receives one IterationStats after each pass.
	// Callbacks run synchronously on the calling goroutine.
	OnIteration func(IterationStats)
}

// DefaultConfig returns the standard stable-fit tuning.
func DefaultConfig() Config {
	return Config{
		Threshold:    3,
		ShrinkStep:   2,
		MinObsFactor: 1.5,
	}
}

// normalized fills unset fields with their defaults so the zero value is
// usable.
func (c Config) normalized() Config {
	def := DefaultConfig()
	if c.Threshold <= 0 {
		c.Threshold = def.Threshold
	}
	if c.ShrinkStep <= 0 {
		c.ShrinkStep = def.ShrinkStep
	}
	if c.MinObsFactor <= 0 {
		c.MinObsFactor = def.MinObsFactor
	}
	return c
}

// IterationStats describes one pass of the stable-fit loop.
type IterationStats struct {
	Iteration    int `json:"iteration"`     // zero-based pass index
	WindowStart  int `json:"window_start"`  // first original row of the fitted window
	WindowRows   int `json:"window_rows"`   // rows in the fitted window
	Iterating    int `json:"iterating"`     // columns fitted this pass
	NewlyStable  int `json:"newly_stable"`  // columns that passed the stability test
	Insufficient int `json:"insufficient"`  // columns that ran out of data after the shrink
}

// Result holds the outputs of Fit.
type Result struct {
	// Beta is the p×k coefficient matrix of each column's final window fit,
	// NaN where a column was never fitted.
	Beta *mat.Dense
	// Residuals is the n×k observed-minus-fitted matrix. Rows outside a
	// column's final window, and missing observations inside it, are NaN.
	Residuals *mat.Dense
	// States is the final per-column classification.
	States []PixelState
}

// Stable returns the per-column stable flags derived from States.
func (r *Result) Stable() []bool {
	stable := make([]bool, len(r.States))
	for j, s := range r.States {
		stable[j] = s == PixelStateStable
	}
	return stable
}

// Fit runs the iterative stable fit over a batch. X is the shared n×p design
// matrix (fully observed, trend coefficient in column 1), Y the n×k dependent
// matrix with NaN for missing values, dates the n acquisition times in
// ascending order.
//
// Each pass fits every iterating column on the current trailing window by
// exact OLS, freezes the columns that pass the stability test, then discards
// the oldest ShrinkStep rows and retires columns whose remaining observations
// fall to MinObsFactor×p or below. The loop stops when no column is left
// iterating or the remaining dates no longer span a full year; columns still
// iterating at that point are classified insufficient.
//
// Fatal conditions abort the whole batch: dates spanning less than one full
// year (ErrInsufficientCoverage) and malformed shapes. A column both stable
// and newly data-poor in the same pass counts as stable, because stability is
// evaluated before the post-shrink data check.
func Fit(X, Y *mat.Dense, dates []time.Time, cfg Config) (*Result, error) {
	n, p := X.Dims()
	yn, k := Y.Dims()
	if yn != n {
		return nil, fmt.Errorf("stability: X has %d rows but Y has %d", n, yn)
	}
	if len(dates) != n {
		return nil, fmt.Errorf("stability: X has %d rows but dates has %d entries", n, len(dates))
	}
	if p < 2 {
		return nil, fmt.Errorf("stability: design matrix needs an intercept and a trend column, got %d columns", p)
	}
	if !spansFullYear(dates) {
		return nil, fmt.Errorf("%w: dates must span at least one full year", ErrInsufficientCoverage)
	}
	cfg = cfg.normalized()

	minObs := cfg.MinObsFactor * float64(p)
	states := make([]PixelState, k)
	active := 0
	for j := 0; j < k; j++ {
		if float64(countObserved(Y, j, 0)) > minObs {
			states[j] = PixelStateIterating
			active++
		} else {
			states[j] = PixelStateInsufficientData
		}
	}

	beta := fit.NaNDense(p, k)
	residuals := fit.NaNDense(n, k)

	offset := 0
	for iter := 0; active > 0; iter++ {
		windowStart := offset
		cols := iteratingColumns(states)
		Xw := X.Slice(offset, n, 0, p).(*mat.Dense)
		Yw := gatherColumns(Y, cols, offset)

		wBeta, wResid, err := fit.OLS(Xw, Yw)
		if err != nil {
			return nil, err
		}

		// Step 1: write the window fit back at the original column
		// positions. Residual columns are cleared first so rows that left
		// the window revert to NaN.
		for c, j := range cols {
			for r := 0; r < p; r++ {
				beta.Set(r, j, wBeta.At(r, c))
			}
			for i := 0; i < offset; i++ {
				residuals.Set(i, j, math.NaN())
			}
			for i := offset; i < n; i++ {
				residuals.Set(i, j, wResid.At(i-offset, c))
			}
		}

		// Step 2: freeze columns that pass the stability test.
		slopes := make([]float64, len(cols))
		for c := range cols {
			slopes[c] = wBeta.At(1, c)
		}
		stableNow := IsStable(slopes, wResid, cfg.Threshold)
		newlyStable := 0
		for c, j := range cols {
			if stableNow[c] {
				states[j] = PixelStateStable
				active--
				newlyStable++
			}
		}

		// Step 3: shrink the window and retire columns that ran out of
		// observations, unless the remaining dates end the loop anyway.
		offset += cfg.ShrinkStep
		windowDone := offset >= n || !spansFullYear(dates[offset:])
		insufficient := 0
		if !windowDone {
			for _, j := range iteratingColumns(states) {
				if float64(countObserved(Y, j, offset)) <= minObs {
					states[j] = PixelStateInsufficientData
					active--
					insufficient++
				}
			}
		}

		if cfg.OnIteration != nil {
			cfg.OnIteration(IterationStats{
				Iteration:    iter,
				WindowStart:  windowStart,
				WindowRows:   n - windowStart,
				Iterating:    len(cols),
				NewlyStable:  newlyStable,
				Insufficient: insufficient,
			})
		}

		if windowDone {
			break
		}
	}

	// The window ran out of years before these columns settled; their last
	// written fit stands but they are not stable.
	for j, s := range states {
		if s == PixelStateIterating {
			states[j] = PixelStateInsufficientData
		}
	}

	return &Result{Beta: beta, Residuals: residuals, States: states}, nil
}

// spansFullYear reports whether the first and last dates are at least one
// calendar year apart.
func spansFullYear(dates []time.Time) bool {
	return !dates[len(dates)-1].Before(dates[0].AddDate(1, 0, 0))
}

// countObserved counts non-NaN entries of column j from row start on.
func countObserved(Y *mat.Dense, j, start int) int {
	n, _ := Y.Dims()
	count := 0
	for i := start; i < n; i++ {
		if !math.IsNaN(Y.At(i, j)) {
			count++
		}
	}
	return count
}

// iteratingColumns returns the original indices of columns still iterating.
func iteratingColumns(states []PixelState) []int {
	var cols []int
	for j, s := range states {
		if s == PixelStateIterating {
			cols = append(cols, j)
		}
	}
	return cols
}

// gatherColumns copies the given columns of Y, rows start..n, into a compact
// matrix.
func gatherColumns(Y *mat.Dense, cols []int, start int) *mat.Dense {
	n, _ := Y.Dims()
	out := mat.NewDense(n-start, len(cols), nil)
	for c, j := range cols {
		for i := start; i < n; i++ {
			out.Set(i-start, c, Y.At(i, j))
		}
	}
	return out
}
