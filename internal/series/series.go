// Package series reads and writes reflectance batches as CSV. The first
// column holds acquisition dates, each further column one pixel's series.
// Missing observations are empty cells on disk and NaN in memory.
package series

import (
	"encoding/csv"
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	"gonum.org/v1/gonum/mat"
)

// DateLayout is the acquisition date format used in batch files.
const DateLayout = "2006-01-02"

// Batch is an in-memory reflectance batch. Values is observations by
// pixels, aligned with Dates by row and Names by column.
type Batch struct {
	Dates  []time.Time
	Names  []string
	Values *mat.Dense
}

// Dims returns the observation and pixel counts.
func (b *Batch) Dims() (n, k int) {
	return b.Values.Dims()
}

// Load reads a batch file. Rows must be in chronological order; repeated
// dates are allowed so overlapping acquisitions can coexist.
func Load(path string) (*Batch, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("series: open %s: %w", path, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("series: read %s: %w", path, err)
	}
	if len(records) < 2 {
		return nil, fmt.Errorf("series: %s has no data rows", path)
	}

	header := records[0]
	if len(header) < 2 || !strings.EqualFold(header[0], "date") {
		return nil, fmt.Errorf("series: %s: first header column must be \"date\"", path)
	}
	names := append([]string(nil), header[1:]...)

	k := len(names)
	n := len(records) - 1
	dates := make([]time.Time, n)
	vals := mat.NewDense(n, k, nil)
	for i, rec := range records[1:] {
		line := i + 2
		date, err := time.Parse(DateLayout, rec[0])
		if err != nil {
			return nil, fmt.Errorf("series: %s line %d: %w", path, line, err)
		}
		if i > 0 && date.Before(dates[i-1]) {
			return nil, fmt.Errorf("series: %s line %d: dates out of order", path, line)
		}
		dates[i] = date
		for j, cell := range rec[1:] {
			v, err := parseCell(cell)
			if err != nil {
				return nil, fmt.Errorf("series: %s line %d column %s: %w", path, line, names[j], err)
			}
			vals.Set(i, j, v)
		}
	}

	return &Batch{Dates: dates, Names: names, Values: vals}, nil
}

func parseCell(cell string) (float64, error) {
	s := strings.TrimSpace(cell)
	if s == "" || strings.EqualFold(s, "nan") {
		return math.NaN(), nil
	}
	return strconv.ParseFloat(s, 64)
}

// Write stores a batch. Missing observations become empty cells.
func Write(path string, b *Batch) error {
	n, k := b.Values.Dims()
	if len(b.Dates) != n {
		return fmt.Errorf("series: %d dates for %d rows", len(b.Dates), n)
	}
	if len(b.Names) != k {
		return fmt.Errorf("series: %d names for %d columns", len(b.Names), k)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("series: create %s: %w", path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	header := append([]string{"date"}, b.Names...)
	if err := w.Write(header); err != nil {
		return err
	}
	row := make([]string, k+1)
	for i := 0; i < n; i++ {
		row[0] = b.Dates[i].Format(DateLayout)
		for j := 0; j < k; j++ {
			v := b.Values.At(i, j)
			if math.IsNaN(v) {
				row[j+1] = ""
			} else {
				row[j+1] = strconv.FormatFloat(v, 'g', -1, 64)
			}
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("series: write %s: %w", path, err)
	}
	return nil
}
