// Package marketdata downloads daily price history from external
// providers into the local caches the research tools read.
package marketdata

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/schollz/progressbar/v3"
	"go.uber.org/zap"

	"github.com/sirily11/quant-research-go/internal/logger"
	"github.com/sirily11/quant-research-go/internal/types"
	"github.com/sirily11/quant-research-go/pkg/errors"
	"github.com/sirily11/quant-research-go/pkg/marketdata/provider"
	"github.com/sirily11/quant-research-go/pkg/marketdata/writer"
)

// WriterType selects where downloaded bars land.
type WriterType string

const (
	// WriterCSV writes one <SYMBOL>.csv cache file per symbol.
	WriterCSV WriterType = "csv"
	// WriterDuckDB writes a single Parquet file holding all symbols.
	WriterDuckDB WriterType = "duckdb"
)

// ClientConfig holds the configuration for the download client.
type ClientConfig struct {
	ProviderType  provider.Type `validate:"required,oneof=polygon binance"`
	WriterType    WriterType    `validate:"required,oneof=csv duckdb"`
	DataPath      string        `validate:"required"`
	PolygonAPIKey string        `validate:"required_if=ProviderType polygon"`
}

// Client downloads daily bars for a symbol universe and persists them
// through the configured writer.
type Client struct {
	provider provider.Provider
	config   ClientConfig
	validate *validator.Validate
	logger   *logger.Logger
}

// NewClient validates the configuration and builds the provider.
func NewClient(config ClientConfig, log *logger.Logger) (*Client, error) {
	validate := validator.New()
	if err := validate.Struct(config); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidConfiguration, "invalid market data client config", err)
	}

	marketProvider, err := provider.New(config.ProviderType, config.PolygonAPIKey)
	if err != nil {
		return nil, err
	}

	return &Client{
		provider: marketProvider,
		config:   config,
		validate: validate,
		logger:   log,
	}, nil
}

// DownloadParams holds the parameters for one download batch.
type DownloadParams struct {
	Symbols   []string  `validate:"required,min=1,dive,required"`
	StartDate time.Time `validate:"required"`
	EndDate   time.Time `validate:"required,gtfield=StartDate"`
}

// Download fetches daily bars for every symbol and writes them through
// the configured writer. A symbol with no data fails the batch; cancel
// the context to stop between symbols.
func (c *Client) Download(ctx context.Context, params DownloadParams) (string, error) {
	if err := c.validate.Struct(params); err != nil {
		return "", errors.Wrap(errors.ErrCodeInvalidParameter, "invalid download parameters", err)
	}

	priceWriter, err := c.newWriter(params)
	if err != nil {
		return "", err
	}
	defer priceWriter.Close()

	if err := priceWriter.Initialize(); err != nil {
		return "", err
	}

	bar := progressbar.NewOptions(len(params.Symbols),
		progressbar.OptionSetDescription("Downloading daily bars"),
		progressbar.OptionShowCount())

	for _, symbol := range params.Symbols {
		if err := ctx.Err(); err != nil {
			return "", errors.Wrap(errors.ErrCodeMarketDataFetchFailed, "download canceled", err)
		}

		prices, err := c.provider.DailyBars(ctx, symbol, params.StartDate, params.EndDate, nil)
		if err != nil {
			return "", err
		}

		for _, point := range prices {
			if err := priceWriter.Write(symbol, point); err != nil {
				return "", err
			}
		}

		c.logger.Info("downloaded symbol",
			zap.String("symbol", symbol),
			zap.Int("bars", len(prices)))

		bar.Add(1)
	}

	bar.Finish()

	return priceWriter.Finalize()
}

func (c *Client) newWriter(params DownloadParams) (writer.PriceWriter, error) {
	switch c.config.WriterType {
	case WriterCSV:
		return writer.NewCSVWriter(c.config.DataPath), nil
	case WriterDuckDB:
		if err := os.MkdirAll(c.config.DataPath, 0755); err != nil {
			return nil, errors.Wrapf(errors.ErrCodeMarketDataWriteFailed, err, "failed to create data directory %s", c.config.DataPath)
		}

		name := fmt.Sprintf("prices_%s_%s.parquet",
			params.StartDate.Format(types.DateLayout),
			params.EndDate.Format(types.DateLayout))

		return writer.NewDuckDBWriter(filepath.Join(c.config.DataPath, name)), nil
	default:
		return nil, errors.Newf(errors.ErrCodeInvalidWriter, "unsupported writer type %q", c.config.WriterType)
	}
}
