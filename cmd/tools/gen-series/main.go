// Command gen-series generates sample reflectance batch CSVs for testing
// the stable fit tools.
package main

import (
	"flag"
	"fmt"
	"log"
	"time"

	"github.com/groundtruth-data/change.report/internal/series"
	"github.com/groundtruth-data/change.report/internal/version"
)

func main() {
	output := flag.String("o", "sample.csv", "output path")
	pixels := flag.Int("pixels", 4, "number of pixel columns")
	steps := flag.Int("n", 46, "number of acquisitions")
	stepDays := flag.Int("step-days", 16, "days between acquisitions")
	start := flag.String("start", "2020-01-01", "first acquisition date")
	level := flag.Float64("level", 4000, "base reflectance level")
	amplitude := flag.Float64("amplitude", 600, "annual harmonic amplitude")
	trend := flag.Float64("trend", 0, "drift per year")
	noise := flag.Float64("noise", 50, "gaussian noise sigma")
	spikeEvery := flag.Int("spike-every", 0, "add a spike every nth observation")
	spikeSize := flag.Float64("spike-size", 2000, "spike magnitude")
	dropout := flag.Float64("dropout", 0, "fraction of observations dropped")
	breakAt := flag.Float64("break-at", 0, "fraction of the record where a level shift lands")
	breakSize := flag.Float64("break-size", 0, "level shift magnitude")
	seed := flag.Uint64("seed", 1, "random seed")
	showVersion := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Println("gen-series " + version.String())
		return
	}

	startDate, err := time.Parse(series.DateLayout, *start)
	if err != nil {
		log.Fatalf("invalid -start date: %v", err)
	}

	batch := series.Synthetic(series.SyntheticConfig{
		Pixels:     *pixels,
		Steps:      *steps,
		StepDays:   *stepDays,
		Start:      startDate,
		Level:      *level,
		Amplitude:  *amplitude,
		Trend:      *trend,
		Noise:      *noise,
		SpikeEvery: *spikeEvery,
		SpikeSize:  *spikeSize,
		Dropout:    *dropout,
		BreakAt:    *breakAt,
		BreakSize:  *breakSize,
		Seed:       *seed,
	})
	if err := series.Write(*output, batch); err != nil {
		log.Fatalf("write failed: %v", err)
	}
	n, k := batch.Dims()
	log.Printf("✓ Created: %s (%d observations, %d pixels)", *output, n, k)
}
