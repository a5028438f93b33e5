// Package main provides a batch stable fit tool for reflectance time series.
// It reads a CSV batch, optionally screens outliers, and refits each pixel's
// trailing window until the history qualifies as stable.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"math"
	"os"
	"time"

	"github.com/google/uuid"
	"gonum.org/v1/gonum/mat"

	"github.com/groundtruth-data/change.report/internal/config"
	"github.com/groundtruth-data/change.report/internal/fit"
	"github.com/groundtruth-data/change.report/internal/monitoring"
	"github.com/groundtruth-data/change.report/internal/screen"
	"github.com/groundtruth-data/change.report/internal/series"
	"github.com/groundtruth-data/change.report/internal/stability"
	"github.com/groundtruth-data/change.report/internal/version"
)

// Config holds configuration for a stable fit run.
type Config struct {
	SeriesFile  string
	GreenFile   string
	SwirFile    string
	TuningFile  string
	OutputJSON  string
	Shewhart    bool
	Verbose     bool
	ShowVersion bool
}

// PixelReport holds one pixel's outcome.
type PixelReport struct {
	Name         string     `json:"name"`
	State        string     `json:"state"`
	Coefficients []*float64 `json:"coefficients,omitempty"`
	RMSE         *float64   `json:"rmse,omitempty"`
}

// RunReport holds the results of a batch run.
type RunReport struct {
	RunID        string        `json:"run_id"`
	SeriesFile   string        `json:"series_file"`
	Pixels       int           `json:"pixels"`
	Observations int           `json:"observations"`
	Screened     int           `json:"screened_observations"`
	Iterations   int           `json:"iterations"`
	Stable       int           `json:"stable"`
	Insufficient int           `json:"insufficient"`
	DurationSecs float64       `json:"duration_secs"`
	PerPixel     []PixelReport `json:"per_pixel"`
}

func main() {
	cfg := parseFlags()

	if cfg.ShowVersion {
		fmt.Println("stablefit " + version.String())
		return
	}
	if cfg.SeriesFile == "" {
		log.Fatal("series file is required (-series)")
	}
	if (cfg.GreenFile == "") != (cfg.SwirFile == "") {
		log.Fatal("dual band screening needs both -green and -swir")
	}
	monitoring.SetDebug(cfg.Verbose)

	result, err := run(cfg)
	if err != nil {
		log.Fatalf("Stable fit failed: %v", err)
	}

	printResults(result)

	if cfg.OutputJSON != "" {
		if err := exportJSON(result, cfg.OutputJSON); err != nil {
			log.Printf("Warning: failed to export JSON: %v", err)
		} else {
			log.Printf("Results exported to: %s", cfg.OutputJSON)
		}
	}
}

func parseFlags() Config {
	cfg := Config{}

	flag.StringVar(&cfg.SeriesFile, "series", "", "Path to the reflectance batch CSV")
	flag.StringVar(&cfg.GreenFile, "green", "", "Green band CSV for dual band screening")
	flag.StringVar(&cfg.SwirFile, "swir", "", "Short-wave infrared CSV for dual band screening")
	flag.StringVar(&cfg.TuningFile, "config", "", "Tuning config JSON (defaults apply when omitted)")
	flag.StringVar(&cfg.OutputJSON, "json", "", "Output JSON path (e.g. report.json)")
	flag.BoolVar(&cfg.Shewhart, "shewhart", false, "Screen outliers against the Shewhart control limit")
	flag.BoolVar(&cfg.Verbose, "verbose", false, "Enable verbose logging")
	flag.BoolVar(&cfg.ShowVersion, "version", false, "Print version and exit")

	flag.Parse()

	return cfg
}

func run(cfg Config) (*RunReport, error) {
	runID := uuid.New().String()
	monitoring.Logf("Starting stable fit run %s on %s", runID, cfg.SeriesFile)

	tuning := config.EmptyTuningConfig()
	if cfg.TuningFile != "" {
		var err error
		tuning, err = config.LoadTuningConfig(cfg.TuningFile)
		if err != nil {
			return nil, err
		}
	}

	batch, err := series.Load(cfg.SeriesFile)
	if err != nil {
		return nil, err
	}
	n, k := batch.Dims()
	monitoring.Logf("Loaded %d observations for %d pixels", n, k)

	X, err := fit.HarmonicDesign(batch.Dates, tuning.GetHarmonicOrder())
	if err != nil {
		return nil, err
	}

	vals := batch.Values
	before := nanCount(vals)
	if cfg.GreenFile != "" {
		green, err := loadBand(cfg.GreenFile, batch)
		if err != nil {
			return nil, err
		}
		swir, err := loadBand(cfg.SwirFile, batch)
		if err != nil {
			return nil, err
		}
		robust := fit.RobustConfig{
			MaxIter: tuning.GetRobustMaxIter(),
			Tol:     tuning.GetRobustTol(),
			Tune:    tuning.GetRobustTune(),
		}
		masked, _, err := screen.DualBand(X, vals, green, swir, screen.DualBandConfig{
			ScalingFactor: tuning.GetScreenScalingFactor(),
			Robust:        robust,
		})
		if err != nil {
			return nil, err
		}
		vals = masked
	}
	if cfg.Shewhart {
		masked, err := screen.Shewhart(X, vals, tuning.GetControlLimit())
		if err != nil {
			return nil, err
		}
		vals = masked
	}
	screened := nanCount(vals) - before

	startTime := time.Now()
	iterations := 0
	fitCfg := stability.Config{
		Threshold:    tuning.GetStabilityThreshold(),
		ShrinkStep:   tuning.GetShrinkStep(),
		MinObsFactor: tuning.GetMinObsFactor(),
		OnIteration: func(ev stability.IterationStats) {
			iterations++
			monitoring.Debugf("iteration %d: window %d..%d, %d iterating, %d newly stable, %d retired",
				ev.Iteration, ev.WindowStart, ev.WindowStart+ev.WindowRows,
				ev.Iterating, ev.NewlyStable, ev.Insufficient)
		},
	}
	res, err := stability.Fit(X, vals, batch.Dates, fitCfg)
	if err != nil {
		return nil, err
	}
	elapsed := time.Since(startTime)

	_, p := X.Dims()
	perPixel := make([]PixelReport, k)
	stableCount, insufficientCount := 0, 0
	for j := 0; j < k; j++ {
		state := res.States[j]
		switch state {
		case stability.PixelStateStable:
			stableCount++
		case stability.PixelStateInsufficientData:
			insufficientCount++
		}
		pr := PixelReport{Name: batch.Names[j], State: state.String()}
		if !math.IsNaN(res.Beta.At(0, j)) {
			coefs := make([]*float64, p)
			for r := 0; r < p; r++ {
				v := res.Beta.At(r, j)
				coefs[r] = &v
			}
			pr.Coefficients = coefs
			if rmse := columnRMSE(res.Residuals, j); !math.IsNaN(rmse) {
				pr.RMSE = &rmse
			}
		}
		perPixel[j] = pr
	}

	return &RunReport{
		RunID:        runID,
		SeriesFile:   cfg.SeriesFile,
		Pixels:       k,
		Observations: n,
		Screened:     screened,
		Iterations:   iterations,
		Stable:       stableCount,
		Insufficient: insufficientCount,
		DurationSecs: elapsed.Seconds(),
		PerPixel:     perPixel,
	}, nil
}

// loadBand loads a companion band batch and checks it is aligned with the
// series batch, row for row.
func loadBand(path string, ref *series.Batch) (*mat.Dense, error) {
	band, err := series.Load(path)
	if err != nil {
		return nil, err
	}
	if len(band.Dates) != len(ref.Dates) {
		return nil, fmt.Errorf("band %s has %d rows, series has %d", path, len(band.Dates), len(ref.Dates))
	}
	for i := range band.Dates {
		if !band.Dates[i].Equal(ref.Dates[i]) {
			return nil, fmt.Errorf("band %s date %s does not match series date %s",
				path, band.Dates[i].Format(series.DateLayout), ref.Dates[i].Format(series.DateLayout))
		}
	}
	return band.Values, nil
}

func nanCount(m *mat.Dense) int {
	n, k := m.Dims()
	count := 0
	for i := 0; i < n; i++ {
		for j := 0; j < k; j++ {
			if math.IsNaN(m.At(i, j)) {
				count++
			}
		}
	}
	return count
}

// columnRMSE is the root mean square of the observed residuals in column j,
// or NaN when the column has none.
func columnRMSE(resid *mat.Dense, j int) float64 {
	n, _ := resid.Dims()
	var sum float64
	count := 0
	for i := 0; i < n; i++ {
		if r := resid.At(i, j); !math.IsNaN(r) {
			sum += r * r
			count++
		}
	}
	if count == 0 {
		return math.NaN()
	}
	return math.Sqrt(sum / float64(count))
}

func printResults(result *RunReport) {
	fmt.Println("\n=== Stable Fit Results ===")
	fmt.Printf("Run ID: %s\n", result.RunID)
	fmt.Printf("Series File: %s\n", result.SeriesFile)
	fmt.Printf("Pixels: %d\n", result.Pixels)
	fmt.Printf("Observations: %d (%d screened out)\n", result.Observations, result.Screened)
	fmt.Printf("Iterations: %d\n", result.Iterations)
	fmt.Printf("Processing Time: %.3fs\n", result.DurationSecs)

	fmt.Println("\n--- Pixel Outcomes ---")
	fmt.Printf("Stable: %d of %d\n", result.Stable, result.Pixels)
	fmt.Printf("Insufficient Data: %d of %d\n", result.Insufficient, result.Pixels)
	for _, pr := range result.PerPixel {
		if pr.RMSE != nil {
			fmt.Printf("  %s: %s (rmse %.3f)\n", pr.Name, pr.State, *pr.RMSE)
		} else {
			fmt.Printf("  %s: %s\n", pr.Name, pr.State)
		}
	}
}

func exportJSON(result *RunReport, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	encoder := json.NewEncoder(f)
	encoder.SetIndent("", "  ")
	return encoder.Encode(result)
}
