// Package simulator replays an ordered stream of buy/sell orders against a
// cash and share ledger, producing the daily mark-to-market portfolio value
// series consumed by the stats package.
package simulator

import (
	"sort"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/sirily11/quant-research-go/internal/logger"
	"github.com/sirily11/quant-research-go/internal/types"
	"github.com/sirily11/quant-research-go/pkg/errors"
)

// Config holds the risk-control parameters of a simulation run.
type Config struct {
	// InitialCapital is the starting cash balance.
	InitialCapital float64 `yaml:"initial_capital" validate:"required,gt=0"`
	// MaxLeverage is the maximum gross exposure to net equity ratio an
	// order may produce. Orders that would exceed it are skipped.
	MaxLeverage float64 `yaml:"max_leverage" validate:"required,gt=0"`
	// AllowShort permits SELL orders to drive a position negative.
	AllowShort bool `yaml:"allow_short"`
}

// DefaultConfig returns the simulation defaults used by the CLI and the
// evaluation harness. Callers receive a fresh value each time; there is no
// shared mutable default.
func DefaultConfig() Config {
	return Config{
		InitialCapital: 1_000_000,
		MaxLeverage:    2.0,
		AllowShort:     true,
	}
}

// Validate validates the Config struct.
func (c *Config) Validate() error {
	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidConfiguration, "invalid simulation config", err)
	}

	return nil
}

// Simulator replays orders against a position ledger. A Simulator is safe
// to reuse across runs; each Run starts from a fresh ledger.
type Simulator struct {
	config   Config
	logger   *logger.Logger
	recorder *Recorder
}

// NewSimulator creates a simulator with the given config.
func NewSimulator(config Config, log *logger.Logger) (*Simulator, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &Simulator{
		config:   config,
		logger:   log,
		recorder: nil,
	}, nil
}

// SetRecorder attaches an order decision recorder. Every order processed by
// subsequent runs is logged with its outcome.
func (s *Simulator) SetRecorder(r *Recorder) {
	s.recorder = r
}

// Run simulates the orders against the given per-symbol price series and
// returns the daily portfolio value series over the trading calendar.
//
// The trading calendar is the union of price dates across the symbols
// referenced by the orders (or across all supplied series when the order
// list is empty, in which case the series is constant at the initial
// capital). Orders are sorted by date defensively; orders sharing a date
// apply in their given sequence, each re-checked against the state left by
// the previous one. An order whose date has no price for its symbol fails
// the run with ErrCodeMissingPriceData. Orders that would exceed the
// leverage limit, or that would open a short position when shorting is
// disallowed, are skipped silently: that is the risk-control policy, not
// an error.
func (s *Simulator) Run(prices map[string]types.PriceSeries, orders []types.Order) (types.ValueSeries, error) {
	for i := range orders {
		if err := orders[i].Validate(); err != nil {
			return nil, err
		}

		if _, ok := prices[orders[i].Symbol]; !ok {
			return nil, errors.Newf(errors.ErrCodeInvalidOrder,
				"order references symbol %q with no price series", orders[i].Symbol)
		}
	}

	sorted := make([]types.Order, len(orders))
	copy(sorted, orders)
	sort.SliceStable(sorted, func(i, j int) bool {
		return types.Day(sorted[i].Date).Before(types.Day(sorted[j].Date))
	})

	calendar := tradingCalendar(prices, sorted)

	shares := make(map[string]int64)
	for _, order := range sorted {
		shares[order.Symbol] = 0
	}

	cash := decimal.NewFromFloat(s.config.InitialCapital)
	maxLeverage := decimal.NewFromFloat(s.config.MaxLeverage)

	// Ledger marks, keyed by day. Days without a mark are forward-filled
	// when the value series is assembled.
	shareMarks := make(map[time.Time]map[string]int64)
	cashMarks := make(map[time.Time]decimal.Decimal)

	for _, order := range sorted {
		day := types.Day(order.Date)

		price, ok := prices[order.Symbol].CloseOn(day)
		if !ok {
			return nil, errors.Newf(errors.ErrCodeMissingPriceData,
				"no price for %s on %s", order.Symbol, day.Format(types.DateLayout))
		}

		leverage, undefined := s.prospectiveLeverage(prices, shares, cash, order, day)
		if undefined || leverage.GreaterThan(maxLeverage) {
			if s.logger != nil {
				s.logger.Debug("order skipped: leverage exceeded",
					zap.String("symbol", order.Symbol),
					zap.String("side", string(order.Side)),
					zap.Int64("shares", order.Shares),
					zap.String("date", day.Format(types.DateLayout)),
				)
			}

			if err := s.record(order, OrderStatusSkipped, SkipReasonLeverageExceeded, cash); err != nil {
				return nil, err
			}

			continue
		}

		if order.Side == types.SideSell && !s.config.AllowShort && shares[order.Symbol]-order.Shares < 0 {
			if s.logger != nil {
				s.logger.Debug("order skipped: short sale disallowed",
					zap.String("symbol", order.Symbol),
					zap.Int64("shares", order.Shares),
					zap.String("date", day.Format(types.DateLayout)),
				)
			}

			if err := s.record(order, OrderStatusSkipped, SkipReasonShortSaleDisallowed, cash); err != nil {
				return nil, err
			}

			continue
		}

		amount := decimal.NewFromInt(order.Shares).Mul(decimal.NewFromFloat(price))

		if order.Side == types.SideBuy {
			shares[order.Symbol] += order.Shares
			cash = cash.Sub(amount)
		} else {
			shares[order.Symbol] -= order.Shares
			cash = cash.Add(amount)
		}

		if _, ok := shareMarks[day]; !ok {
			shareMarks[day] = make(map[string]int64)
		}

		shareMarks[day][order.Symbol] = shares[order.Symbol]
		cashMarks[day] = cash

		if err := s.record(order, OrderStatusApplied, "", cash); err != nil {
			return nil, err
		}
	}

	return s.assembleValues(prices, calendar, shareMarks, cashMarks), nil
}

// prospectiveLeverage computes the leverage that would result from applying
// the order: (longs + shorts) / (longs - shorts + cash) over the entire
// portfolio, priced at the order's day. The second return value is true
// when the leverage is undefined (zero net equity), which callers treat as
// a limit violation.
func (s *Simulator) prospectiveLeverage(
	prices map[string]types.PriceSeries,
	shares map[string]int64,
	cash decimal.Decimal,
	order types.Order,
	day time.Time,
) (decimal.Decimal, bool) {
	tentative := make(map[string]int64, len(shares))
	for symbol, n := range shares {
		tentative[symbol] = n
	}

	price, _ := prices[order.Symbol].CloseOn(day)
	amount := decimal.NewFromInt(order.Shares).Mul(decimal.NewFromFloat(price))

	if order.Side == types.SideBuy {
		tentative[order.Symbol] += order.Shares
		cash = cash.Sub(amount)
	} else {
		tentative[order.Symbol] -= order.Shares
		cash = cash.Add(amount)
	}

	longs := decimal.Zero
	shorts := decimal.Zero

	for symbol, n := range tentative {
		if n == 0 {
			continue
		}

		close, ok := prices[symbol].LastCloseBefore(day)
		if !ok {
			continue
		}

		value := decimal.NewFromInt(n).Mul(decimal.NewFromFloat(close))
		if n > 0 {
			longs = longs.Add(value)
		} else {
			shorts = shorts.Sub(value)
		}
	}

	denominator := longs.Sub(shorts).Add(cash)
	if denominator.IsZero() {
		return decimal.Zero, true
	}

	return longs.Add(shorts).Div(denominator), false
}

// assembleValues forward-fills the ledger marks across the calendar and
// marks the portfolio to market: value = cash + sum(shares * close).
func (s *Simulator) assembleValues(
	prices map[string]types.PriceSeries,
	calendar []time.Time,
	shareMarks map[time.Time]map[string]int64,
	cashMarks map[time.Time]decimal.Decimal,
) types.ValueSeries {
	lastShares := make(map[string]int64)
	lastCash := decimal.NewFromFloat(s.config.InitialCapital)

	values := make(types.ValueSeries, 0, len(calendar))

	for _, day := range calendar {
		if marks, ok := shareMarks[day]; ok {
			for symbol, n := range marks {
				lastShares[symbol] = n
			}
		}

		if cash, ok := cashMarks[day]; ok {
			lastCash = cash
		}

		total := lastCash

		for symbol, n := range lastShares {
			if n == 0 {
				continue
			}

			close, ok := prices[symbol].LastCloseBefore(day)
			if !ok {
				continue
			}

			total = total.Add(decimal.NewFromInt(n).Mul(decimal.NewFromFloat(close)))
		}

		values = append(values, types.ValuePoint{
			Date:  day,
			Value: total.InexactFloat64(),
		})
	}

	return values
}

func (s *Simulator) record(order types.Order, status OrderStatus, reason string, cash decimal.Decimal) error {
	if s.recorder == nil {
		return nil
	}

	return s.recorder.Record(Decision{
		Order:     order,
		Status:    status,
		Reason:    reason,
		CashAfter: cash.InexactFloat64(),
	})
}

// tradingCalendar returns the sorted union of price dates across the
// symbols referenced by the orders. With no orders, the union spans every
// supplied series so a simulation without trades still yields a constant
// value series over the full calendar.
func tradingCalendar(prices map[string]types.PriceSeries, orders []types.Order) []time.Time {
	symbols := make(map[string]struct{})
	for _, order := range orders {
		symbols[order.Symbol] = struct{}{}
	}

	if len(symbols) == 0 {
		for symbol := range prices {
			symbols[symbol] = struct{}{}
		}
	}

	days := make(map[time.Time]struct{})

	for symbol := range symbols {
		for _, day := range prices[symbol].Dates() {
			days[day] = struct{}{}
		}
	}

	calendar := make([]time.Time, 0, len(days))
	for day := range days {
		calendar = append(calendar, day)
	}

	sort.Slice(calendar, func(i, j int) bool { return calendar[i].Before(calendar[j]) })

	return calendar
}
