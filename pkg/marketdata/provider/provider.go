// Package provider fetches daily OHLCV history from external market data
// APIs. Providers return normalized PriceSeries; persistence is the
// writer package's job.
package provider

import (
	"context"
	"time"

	"github.com/sirily11/quant-research-go/internal/types"
	"github.com/sirily11/quant-research-go/pkg/errors"
)

// Type identifies a market data provider implementation.
type Type string

const (
	TypePolygon Type = "polygon"
	TypeBinance Type = "binance"
)

// OnDownloadProgress is invoked as a download advances. current and total
// are provider-specific units (bars, time range) and message is a short
// human-readable status.
type OnDownloadProgress = func(current float64, total float64, message string)

// Provider fetches daily bars for one symbol at a time.
type Provider interface {
	// DailyBars fetches the daily OHLCV history of a symbol over
	// [start, end] inclusive, sorted by date. Cancel the context to stop
	// a long fetch.
	DailyBars(ctx context.Context, symbol string, start time.Time, end time.Time, onProgress OnDownloadProgress) (types.PriceSeries, error)
}

// New creates a provider of the given type. The API key is required for
// Polygon and ignored for Binance, whose public kline endpoint needs none.
func New(providerType Type, apiKey string) (Provider, error) {
	switch providerType {
	case TypePolygon:
		return NewPolygonProvider(apiKey)
	case TypeBinance:
		return NewBinanceProvider()
	default:
		return nil, errors.Newf(errors.ErrCodeInvalidProvider, "unsupported market data provider %q", providerType)
	}
}
