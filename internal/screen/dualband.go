package screen

import (
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/groundtruth-data/change.report/internal/fit"
	"github.com/groundtruth-data/change.report/internal/monitoring"
)

// DualBandConfig tunes the cloud and shadow screen.
type DualBandConfig struct {
	// ScalingFactor is the multiplier the sensor applies to surface
	// reflectance. The rejection cutoffs sit at 0.04 of it in either band.
	ScalingFactor float64
	Robust        fit.RobustConfig
}

// DefaultDualBandConfig matches Landsat collection scaling.
func DefaultDualBandConfig() DualBandConfig {
	return DualBandConfig{
		ScalingFactor: 10000,
		Robust:        fit.DefaultRobustConfig(),
	}
}

func (c DualBandConfig) normalized() DualBandConfig {
	if c.ScalingFactor == 0 {
		c.ScalingFactor = 10000
	}
	return c
}

// DualBand flags clouds and shadows using companion green and short-wave
// infrared series observed alongside vals. Clouds brighten green well above
// its robust seasonal fit; shadows darken the infrared well below it. Only
// those two directions reject: a dark green or a bright infrared reading is
// kept. It returns a masked copy of vals together with the kept mask in
// row-major order.
func DualBand(X, vals, green, swir *mat.Dense, cfg DualBandConfig) (*mat.Dense, []bool, error) {
	n, k := vals.Dims()
	if err := checkShape("green band", green, n, k); err != nil {
		return nil, nil, err
	}
	if err := checkShape("swir band", swir, n, k); err != nil {
		return nil, nil, err
	}
	cfg = cfg.normalized()

	_, gResid, err := fit.Robust(X, green, cfg.Robust)
	if err != nil {
		return nil, nil, err
	}
	_, sResid, err := fit.Robust(X, swir, cfg.Robust)
	if err != nil {
		return nil, nil, err
	}

	cut := 0.04 * cfg.ScalingFactor
	out := mat.DenseCopyOf(vals)
	keep := make([]bool, n*k)
	removed := 0
	for i := 0; i < n; i++ {
		for j := 0; j < k; j++ {
			// NaN residuals compare false on both sides and are kept.
			outlier := gResid.At(i, j) > cut || sResid.At(i, j) < -cut
			keep[i*k+j] = !outlier
			if outlier {
				out.Set(i, j, math.NaN())
				removed++
			}
		}
	}
	monitoring.Debugf("screen: dual band masked %d of %d observations (%.1f%%)",
		removed, n*k, 100*float64(removed)/float64(n*k))
	return out, keep, nil
}
