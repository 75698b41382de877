package provider

import (
	"context"
	"fmt"
	"strconv"
	"time"

	binance "github.com/adshao/go-binance/v2"

	"github.com/sirily11/quant-research-go/internal/types"
	"github.com/sirily11/quant-research-go/pkg/errors"
)

// binancePageLimit is the maximum kline count Binance returns per request.
const binancePageLimit = 500

type BinanceProvider struct {
	client *binance.Client
}

// NewBinanceProvider creates a provider against the public Binance kline
// endpoint, which requires no credentials.
func NewBinanceProvider() (Provider, error) {
	return &BinanceProvider{client: binance.NewClient("", "")}, nil
}

// DailyBars implements Provider. Binance caps each response at 500
// klines, so the range is paged by restarting after the last close time.
func (p *BinanceProvider) DailyBars(ctx context.Context, symbol string, start time.Time, end time.Time, onProgress OnDownloadProgress) (types.PriceSeries, error) {
	startMillis := start.UnixMilli()
	endMillis := end.UnixMilli()
	current := startMillis

	var prices types.PriceSeries

	for {
		klines, err := p.client.NewKlinesService().
			Symbol(symbol).
			Interval("1d").
			StartTime(current).
			EndTime(endMillis).
			Do(ctx)
		if err != nil {
			return nil, errors.Wrapf(errors.ErrCodeMarketDataFetchFailed, err, "binance kline fetch failed for %s", symbol)
		}

		page, err := convertKlines(symbol, klines)
		if err != nil {
			return nil, err
		}

		prices = append(prices, page...)

		if onProgress != nil {
			onProgress(float64(current-startMillis), float64(endMillis-startMillis),
				fmt.Sprintf("Downloading %s klines from Binance", symbol))
		}

		if len(klines) < binancePageLimit {
			break
		}

		// next page starts just after the last close to avoid duplicates
		current = klines[len(klines)-1].CloseTime + 1
		if current > endMillis {
			break
		}
	}

	if len(prices) == 0 {
		return nil, errors.Newf(errors.ErrCodeDataNotFound, "binance returned no daily klines for %s", symbol)
	}

	return prices, nil
}

func convertKlines(symbol string, klines []*binance.Kline) (types.PriceSeries, error) {
	prices := make(types.PriceSeries, 0, len(klines))

	for _, k := range klines {
		open, err := strconv.ParseFloat(k.Open, 64)
		if err != nil {
			return nil, errors.Wrapf(errors.ErrCodeMalformedData, err, "invalid open price %q for %s", k.Open, symbol)
		}

		high, err := strconv.ParseFloat(k.High, 64)
		if err != nil {
			return nil, errors.Wrapf(errors.ErrCodeMalformedData, err, "invalid high price %q for %s", k.High, symbol)
		}

		low, err := strconv.ParseFloat(k.Low, 64)
		if err != nil {
			return nil, errors.Wrapf(errors.ErrCodeMalformedData, err, "invalid low price %q for %s", k.Low, symbol)
		}

		closePrice, err := strconv.ParseFloat(k.Close, 64)
		if err != nil {
			return nil, errors.Wrapf(errors.ErrCodeMalformedData, err, "invalid close price %q for %s", k.Close, symbol)
		}

		volume, err := strconv.ParseFloat(k.Volume, 64)
		if err != nil {
			return nil, errors.Wrapf(errors.ErrCodeMalformedData, err, "invalid volume %q for %s", k.Volume, symbol)
		}

		prices = append(prices, types.PricePoint{
			Date:   types.Day(time.UnixMilli(k.OpenTime).UTC()),
			Open:   open,
			High:   high,
			Low:    low,
			Close:  closePrice,
			Volume: volume,
		})
	}

	return prices, nil
}
