// Package csv implements a DataSource backed by a directory of per-symbol
// CSV files, one file per symbol named <SYMBOL>.csv.
package csv

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/gocarina/gocsv"
	"github.com/moznion/go-optional"
	"go.uber.org/zap"

	"github.com/sirily11/quant-research-go/internal/datasource"
	"github.com/sirily11/quant-research-go/internal/logger"
	"github.com/sirily11/quant-research-go/internal/types"
	"github.com/sirily11/quant-research-go/pkg/errors"
)

// priceRecord mirrors one row of a price file:
// Date,Open,High,Low,Close,Volume with a required header row.
type priceRecord struct {
	Date   string  `csv:"Date"`
	Open   float64 `csv:"Open"`
	High   float64 `csv:"High"`
	Low    float64 `csv:"Low"`
	Close  float64 `csv:"Close"`
	Volume float64 `csv:"Volume"`
}

type CSVDataSource struct {
	root   string
	logger *logger.Logger

	mu    sync.RWMutex
	cache map[string]types.PriceSeries
}

// NewDataSource creates a data source that reads per-symbol CSV files from
// the given directory. Files are loaded lazily and cached for the lifetime
// of the source.
func NewDataSource(root string, logger *logger.Logger) (datasource.DataSource, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, errors.Wrapf(errors.ErrCodeDataSourceUnavailable, err, "price directory %s is not readable", root)
	}

	if !info.IsDir() {
		return nil, errors.Newf(errors.ErrCodeDataSourceUnavailable, "price path %s is not a directory", root)
	}

	return &CSVDataSource{
		root:   root,
		logger: logger,
		cache:  make(map[string]types.PriceSeries),
	}, nil
}

// GetPrices implements datasource.DataSource.
func (c *CSVDataSource) GetPrices(symbol string, start optional.Option[time.Time], end optional.Option[time.Time]) (types.PriceSeries, error) {
	prices, err := c.load(symbol)
	if err != nil {
		return nil, err
	}

	return clip(prices, start, end), nil
}

// Symbols implements datasource.DataSource.
func (c *CSVDataSource) Symbols() ([]string, error) {
	entries, err := os.ReadDir(c.root)
	if err != nil {
		return nil, errors.Wrapf(errors.ErrCodeDataSourceUnavailable, err, "failed to list price directory %s", c.root)
	}

	symbols := make([]string, 0, len(entries))

	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ".csv") {
			continue
		}

		symbols = append(symbols, strings.TrimSuffix(name, ".csv"))
	}

	sort.Strings(symbols)

	return symbols, nil
}

// Close implements datasource.DataSource.
func (c *CSVDataSource) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.cache = make(map[string]types.PriceSeries)

	return nil
}

func (c *CSVDataSource) load(symbol string) (types.PriceSeries, error) {
	c.mu.RLock()
	cached, ok := c.cache[symbol]
	c.mu.RUnlock()

	if ok {
		return cached, nil
	}

	path := filepath.Join(c.root, symbol+".csv")

	file, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(errors.ErrCodeDataSourceUnavailable, err, "no price file for symbol %s", symbol)
	}
	defer file.Close()

	var records []*priceRecord
	if err := gocsv.UnmarshalFile(file, &records); err != nil {
		return nil, errors.Wrapf(errors.ErrCodeMalformedData, err, "failed to parse price file %s", path)
	}

	prices := make(types.PriceSeries, 0, len(records))

	for i, record := range records {
		date, err := time.Parse(types.DateLayout, record.Date)
		if err != nil {
			return nil, errors.Wrapf(errors.ErrCodeMalformedData, err,
				"invalid date %q in price file %s row %d", record.Date, path, i+1)
		}

		prices = append(prices, types.PricePoint{
			Date:   date,
			Open:   record.Open,
			High:   record.High,
			Low:    record.Low,
			Close:  record.Close,
			Volume: record.Volume,
		})
	}

	sort.SliceStable(prices, func(i, j int) bool {
		return prices[i].Date.Before(prices[j].Date)
	})

	c.logger.Debug("loaded price file",
		zap.String("symbol", symbol),
		zap.Int("rows", len(prices)))

	c.mu.Lock()
	c.cache[symbol] = prices
	c.mu.Unlock()

	return prices, nil
}

func clip(prices types.PriceSeries, start optional.Option[time.Time], end optional.Option[time.Time]) types.PriceSeries {
	clipped := make(types.PriceSeries, 0, len(prices))

	for _, p := range prices {
		day := types.Day(p.Date)
		if start.IsSome() && day.Before(types.Day(start.Unwrap())) {
			continue
		}

		if end.IsSome() && day.After(types.Day(end.Unwrap())) {
			continue
		}

		clipped = append(clipped, p)
	}

	return clipped
}
