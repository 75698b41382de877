package provider

import (
	"context"
	"fmt"
	"time"

	polygon "github.com/polygon-io/client-go/rest"
	"github.com/polygon-io/client-go/rest/models"

	"github.com/sirily11/quant-research-go/internal/types"
	"github.com/sirily11/quant-research-go/pkg/errors"
)

type PolygonProvider struct {
	client *polygon.Client
}

func NewPolygonProvider(apiKey string) (Provider, error) {
	if apiKey == "" {
		return nil, errors.New(errors.ErrCodeInvalidProvider, "polygon provider requires an API key")
	}

	return &PolygonProvider{client: polygon.New(apiKey)}, nil
}

// DailyBars implements Provider using the Polygon aggregates endpoint
// with a one-day timespan.
func (p *PolygonProvider) DailyBars(ctx context.Context, symbol string, start time.Time, end time.Time, onProgress OnDownloadProgress) (types.PriceSeries, error) {
	totalDays := int(end.Sub(start).Hours()/24) + 1

	//nolint:exhaustruct // third-party struct with many optional fields
	params := models.ListAggsParams{
		Ticker:     symbol,
		Multiplier: 1,
		Timespan:   models.TimespanDay,
		From:       models.Millis(start),
		To:         models.Millis(end),
	}.WithLimit(50000)

	iter := p.client.ListAggs(ctx, params)

	var prices types.PriceSeries

	for iter.Next() {
		agg := iter.Item()

		prices = append(prices, types.PricePoint{
			Date:   types.Day(time.Time(agg.Timestamp)),
			Open:   agg.Open,
			High:   agg.High,
			Low:    agg.Low,
			Close:  agg.Close,
			Volume: agg.Volume,
		})

		if onProgress != nil && len(prices)%100 == 0 {
			onProgress(float64(len(prices)), float64(totalDays), fmt.Sprintf("Downloading %s", symbol))
		}
	}

	if err := iter.Err(); err != nil {
		return nil, errors.Wrapf(errors.ErrCodeMarketDataFetchFailed, err, "polygon download failed for %s", symbol)
	}

	if len(prices) == 0 {
		return nil, errors.Newf(errors.ErrCodeDataNotFound, "polygon returned no daily bars for %s", symbol)
	}

	return prices, nil
}
