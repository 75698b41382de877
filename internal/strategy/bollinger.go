package strategy

import (
	"math"

	"github.com/sirily11/quant-research-go/internal/indicator"
	"github.com/sirily11/quant-research-go/internal/types"
)

// BollingerName is the registry name of the Bollinger-band reversion
// strategy.
const BollingerName = "bollinger"

// bollingerWindow is the band lookback.
const bollingerWindow = 20

func init() {
	if err := Register(BollingerName, NewBollinger); err != nil {
		panic(err)
	}
}

// Bollinger trades mean reversion off the Bollinger bands. Long entry when
// the close crosses back up through the lower band, long exit when it
// crosses up through the middle band. The short side mirrors it: entry on
// a cross down through the upper band, cover on a cross down through the
// middle band. The short leg is disabled when shorting is disallowed.
type Bollinger struct {
	config Config
}

// NewBollinger creates the Bollinger-band strategy.
func NewBollinger(config Config) Strategy {
	return &Bollinger{config: config}
}

// Name implements Strategy.
func (b *Bollinger) Name() string {
	return BollingerName
}

// GenerateOrders implements Strategy.
func (b *Bollinger) GenerateOrders(prices types.PriceSeries, symbol string) ([]types.Order, error) {
	closes := prices.Closes()

	middle, upper, lower, err := indicator.Bollinger(closes, bollingerWindow)
	if err != nil {
		return nil, err
	}

	cash := b.config.InitialCapital
	longShares := int64(0)
	shortShares := int64(0)

	var orders []types.Order

	for i := 1; i < len(prices); i++ {
		if math.IsNaN(middle[i]) {
			continue
		}

		close := closes[i]
		prevClose := closes[i-1]
		date := prices[i].Date

		if longShares == 0 && prevClose < lower[i] && close > lower[i] {
			shares := int64(math.Floor(cash / close))
			if shares > 0 {
				longShares = shares
				cash -= float64(shares) * close
				orders = append(orders, types.Order{
					Date: date, Symbol: symbol, Side: types.SideBuy, Shares: shares,
				})
			}
		} else if longShares > 0 && prevClose < middle[i] && close > middle[i] {
			cash += float64(longShares) * close
			orders = append(orders, types.Order{
				Date: date, Symbol: symbol, Side: types.SideSell, Shares: longShares,
			})
			longShares = 0
		}

		if !b.config.AllowShort {
			continue
		}

		if shortShares == 0 && prevClose > upper[i] && close < upper[i] {
			shares := int64(math.Floor(cash / close))
			if shares > 0 {
				shortShares = shares
				cash += float64(shares) * close
				orders = append(orders, types.Order{
					Date: date, Symbol: symbol, Side: types.SideSell, Shares: shares,
				})
			}
		} else if shortShares > 0 && prevClose > middle[i] && close < middle[i] {
			cash -= float64(shortShares) * close
			orders = append(orders, types.Order{
				Date: date, Symbol: symbol, Side: types.SideBuy, Shares: shortShares,
			})
			shortShares = 0
		}
	}

	return orders, nil
}
