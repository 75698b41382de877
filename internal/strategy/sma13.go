package strategy

import (
	"math"

	"github.com/sirily11/quant-research-go/internal/indicator"
	"github.com/sirily11/quant-research-go/internal/types"
)

// SMA13Name is the registry name of the SMA13/MACD crossover strategy.
const SMA13Name = "sma13"

func init() {
	if err := Register(SMA13Name, NewSMA13); err != nil {
		panic(err)
	}
}

// SMA13 is a long-only trend-following strategy: enter when the 5-day
// average crosses above a rising 13-day average with the close above both
// and the MACD signal line positive; exit when the close falls back under
// the 5-day average.
type SMA13 struct {
	config Config
}

// NewSMA13 creates the SMA13/MACD strategy.
func NewSMA13(config Config) Strategy {
	return &SMA13{config: config}
}

// Name implements Strategy.
func (s *SMA13) Name() string {
	return SMA13Name
}

// GenerateOrders implements Strategy.
func (s *SMA13) GenerateOrders(prices types.PriceSeries, symbol string) ([]types.Order, error) {
	closes := prices.Closes()

	sma5, err := indicator.SMA(closes, 5)
	if err != nil {
		return nil, err
	}

	sma13, err := indicator.SMA(closes, 13)
	if err != nil {
		return nil, err
	}

	_, signal, _, err := indicator.MACD(closes)
	if err != nil {
		return nil, err
	}

	cash := s.config.InitialCapital
	longShares := int64(0)
	prevMA5 := math.NaN()
	prevMA13 := math.NaN()

	var orders []types.Order

	for i, point := range prices {
		lastMA5, lastMA13 := prevMA5, prevMA13
		close := closes[i]
		ma5, ma13 := sma5[i], sma13[i]
		prevMA5, prevMA13 = ma5, ma13

		if math.IsNaN(lastMA13) || signal[i] < 0 {
			continue
		}

		if longShares == 0 && ma5 > lastMA5 && ma13 > lastMA13 && ma5 > ma13 && close > ma5 {
			shares := int64(math.Floor(cash / close))
			if shares <= 0 {
				continue
			}

			longShares = shares
			cash -= float64(shares) * close
			orders = append(orders, types.Order{
				Date: point.Date, Symbol: symbol, Side: types.SideBuy, Shares: shares,
			})

			continue
		}

		if longShares > 0 && close < ma5 {
			cash += float64(longShares) * close
			orders = append(orders, types.Order{
				Date: point.Date, Symbol: symbol, Side: types.SideSell, Shares: longShares,
			})
			longShares = 0
		}
	}

	return orders, nil
}
