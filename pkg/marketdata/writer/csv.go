package writer

import (
	"os"
	"path/filepath"
	"sort"

	"github.com/gocarina/gocsv"

	"github.com/sirily11/quant-research-go/internal/types"
	"github.com/sirily11/quant-research-go/pkg/errors"
)

// priceRow is the on-disk row format of the per-symbol price cache,
// matching what the CSV data source reads back.
type priceRow struct {
	Date   string  `csv:"Date"`
	Open   float64 `csv:"Open"`
	High   float64 `csv:"High"`
	Low    float64 `csv:"Low"`
	Close  float64 `csv:"Close"`
	Volume float64 `csv:"Volume"`
}

// CSVWriter buffers bars per symbol and writes one <SYMBOL>.csv file per
// symbol into the cache directory on Finalize.
type CSVWriter struct {
	dir  string
	bars map[string][]types.PricePoint
}

func NewCSVWriter(dir string) PriceWriter {
	return &CSVWriter{dir: dir}
}

// Initialize implements PriceWriter.
func (w *CSVWriter) Initialize() error {
	if err := os.MkdirAll(w.dir, 0755); err != nil {
		return errors.Wrapf(errors.ErrCodeMarketDataWriteFailed, err, "failed to create cache directory %s", w.dir)
	}

	w.bars = make(map[string][]types.PricePoint)

	return nil
}

// Write implements PriceWriter.
func (w *CSVWriter) Write(symbol string, point types.PricePoint) error {
	if w.bars == nil {
		return errors.New(errors.ErrCodeMarketDataWriteFailed, "writer not initialized")
	}

	w.bars[symbol] = append(w.bars[symbol], point)

	return nil
}

// Finalize implements PriceWriter. Bars are sorted by date before writing
// so the cache files are always replay-ready.
func (w *CSVWriter) Finalize() (string, error) {
	if w.bars == nil {
		return "", errors.New(errors.ErrCodeMarketDataWriteFailed, "writer not initialized")
	}

	for symbol, bars := range w.bars {
		sort.SliceStable(bars, func(i, j int) bool {
			return bars[i].Date.Before(bars[j].Date)
		})

		rows := make([]*priceRow, len(bars))
		for i, bar := range bars {
			rows[i] = &priceRow{
				Date:   types.Day(bar.Date).Format(types.DateLayout),
				Open:   bar.Open,
				High:   bar.High,
				Low:    bar.Low,
				Close:  bar.Close,
				Volume: bar.Volume,
			}
		}

		path := filepath.Join(w.dir, symbol+".csv")

		file, err := os.Create(path)
		if err != nil {
			return "", errors.Wrapf(errors.ErrCodeMarketDataWriteFailed, err, "failed to create cache file %s", path)
		}

		if err := gocsv.MarshalFile(&rows, file); err != nil {
			file.Close()

			return "", errors.Wrapf(errors.ErrCodeMarketDataWriteFailed, err, "failed to write cache file %s", path)
		}

		if err := file.Close(); err != nil {
			return "", errors.Wrapf(errors.ErrCodeMarketDataWriteFailed, err, "failed to close cache file %s", path)
		}
	}

	return w.dir, nil
}

// Close implements PriceWriter.
func (w *CSVWriter) Close() error {
	w.bars = nil

	return nil
}

// OutputPath implements PriceWriter.
func (w *CSVWriter) OutputPath() string {
	return w.dir
}
