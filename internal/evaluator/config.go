package evaluator

import (
	"os"
	"runtime"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v2"

	"github.com/sirily11/quant-research-go/internal/types"
	"github.com/sirily11/quant-research-go/pkg/errors"
)

// Config controls an evaluation batch. Zero-value fields are invalid;
// start from DefaultConfig or a YAML file and override.
type Config struct {
	// Workers is the number of concurrent evaluation workers.
	Workers int `yaml:"workers" validate:"required,gte=1"`
	// ThrottleMs is the pause in milliseconds after each evaluated symbol,
	// keeping burst load on the data source bounded.
	ThrottleMs int `yaml:"throttle_ms" validate:"gte=0"`
	// StartDate and EndDate bound the evaluated price history, inclusive,
	// in 2006-01-02 format.
	StartDate string `yaml:"start_date" validate:"required"`
	EndDate   string `yaml:"end_date" validate:"required"`
	// InitialCapital is the starting cash for each per-symbol simulation.
	InitialCapital float64 `yaml:"initial_capital" validate:"required,gt=0"`
	// MaxLeverage caps gross exposure to net equity per simulated order.
	MaxLeverage float64 `yaml:"max_leverage" validate:"required,gt=0"`
	// AllowShort permits simulated short positions.
	AllowShort bool `yaml:"allow_short"`
	// DailyRiskFree is the daily risk-free rate used in the Sharpe ratio.
	DailyRiskFree float64 `yaml:"daily_risk_free"`
}

// DefaultConfig mirrors the defaults of an interactive research session:
// one worker per CPU, a 100ms per-symbol throttle, one year of 2015 data,
// and the standard simulator account settings.
func DefaultConfig() Config {
	return Config{
		Workers:        runtime.NumCPU(),
		ThrottleMs:     100,
		StartDate:      "2015-01-01",
		EndDate:        "2015-12-30",
		InitialCapital: 1_000_000,
		MaxLeverage:    2.0,
		AllowShort:     true,
		DailyRiskFree:  0,
	}
}

// LoadConfig reads a YAML evaluation config, filling unset fields from
// DefaultConfig.
func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, errors.Wrapf(errors.ErrCodeDataNotFound, err, "failed to read config file %s", path)
	}

	config := DefaultConfig()
	if err := yaml.Unmarshal(data, &config); err != nil {
		return Config{}, errors.Wrapf(errors.ErrCodeInvalidConfiguration, err, "failed to parse config file %s", path)
	}

	if err := config.Validate(); err != nil {
		return Config{}, err
	}

	return config, nil
}

// Validate checks structural constraints and the date range.
func (c *Config) Validate() error {
	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidConfiguration, "invalid evaluation config", err)
	}

	start, end, err := c.dateRange()
	if err != nil {
		return err
	}

	if end.Before(start) {
		return errors.Newf(errors.ErrCodeInvalidDateRange, "end date %s precedes start date %s", c.EndDate, c.StartDate)
	}

	return nil
}

// Throttle returns the per-symbol pause as a duration.
func (c *Config) Throttle() time.Duration {
	return time.Duration(c.ThrottleMs) * time.Millisecond
}

func (c *Config) dateRange() (time.Time, time.Time, error) {
	start, err := time.Parse(types.DateLayout, c.StartDate)
	if err != nil {
		return time.Time{}, time.Time{}, errors.Wrapf(errors.ErrCodeInvalidDateRange, err, "invalid start date %q", c.StartDate)
	}

	end, err := time.Parse(types.DateLayout, c.EndDate)
	if err != nil {
		return time.Time{}, time.Time{}, errors.Wrapf(errors.ErrCodeInvalidDateRange, err, "invalid end date %q", c.EndDate)
	}

	return start, end, nil
}
