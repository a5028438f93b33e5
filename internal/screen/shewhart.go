package screen

import (
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/groundtruth-data/change.report/internal/fit"
	"github.com/groundtruth-data/change.report/internal/monitoring"
)

// Shewhart masks observations whose residual against an ordinary
// least-squares fit exceeds L standard deviations of that column's
// residuals. Columns whose fit could not be computed pass through
// untouched.
func Shewhart(X, vals *mat.Dense, L float64) (*mat.Dense, error) {
	_, resid, err := fit.OLS(X, vals)
	if err != nil {
		return nil, err
	}

	n, k := vals.Dims()
	out := mat.DenseCopyOf(vals)
	removed, total := 0, 0
	buf := make([]float64, 0, n)
	for j := 0; j < k; j++ {
		buf = buf[:0]
		for i := 0; i < n; i++ {
			if r := resid.At(i, j); !math.IsNaN(r) {
				buf = append(buf, r)
			}
		}
		if len(buf) == 0 {
			continue
		}
		total += len(buf)
		cut := L * stat.PopStdDev(buf, nil)
		for i := 0; i < n; i++ {
			if r := resid.At(i, j); !math.IsNaN(r) && math.Abs(r) > cut {
				out.Set(i, j, math.NaN())
				removed++
			}
		}
	}
	if total > 0 {
		monitoring.Debugf("screen: shewhart masked %d of %d observations (%.1f%%)",
			removed, total, 100*float64(removed)/float64(total))
	}
	return out, nil
}
