// Package strategy contains the rule-based order generators and the
// registry the evaluation harness uses to look them up by name. Strategies
// form a closed set chosen at call time; there is no dynamic loading.
package strategy

import (
	"sort"
	"sync"

	"github.com/sirily11/quant-research-go/internal/types"
	"github.com/sirily11/quant-research-go/pkg/errors"
)

// Config carries the sizing parameters a strategy uses when converting
// signals into share counts. Callers pass a fresh value per call; there is
// no shared default object.
type Config struct {
	// InitialCapital is the notional cash the strategy sizes against.
	InitialCapital float64
	// AllowShort enables the short legs of strategies that have them.
	AllowShort bool
}

// DefaultConfig returns the sizing defaults used by the CLI.
func DefaultConfig() Config {
	return Config{
		InitialCapital: 1_000_000,
		AllowShort:     true,
	}
}

// Strategy generates an ordered list of orders from a price series.
// Implementations must be safe for concurrent use: the evaluation harness
// calls GenerateOrders from multiple workers.
type Strategy interface {
	// Name returns the registry name of the strategy.
	Name() string
	// GenerateOrders produces date-ordered orders for the symbol.
	GenerateOrders(prices types.PriceSeries, symbol string) ([]types.Order, error)
}

// Factory constructs a strategy with the given sizing config.
type Factory func(config Config) Strategy

var (
	registryMu sync.RWMutex
	registry   = make(map[string]Factory)
)

// Register adds a strategy factory under the given name. Registering the
// same name twice is a programmer error.
func Register(name string, factory Factory) error {
	registryMu.Lock()
	defer registryMu.Unlock()

	if _, exists := registry[name]; exists {
		return errors.Newf(errors.ErrCodeStrategyExists, "strategy %q already registered", name)
	}

	registry[name] = factory

	return nil
}

// Get constructs the named strategy with the given config.
func Get(name string, config Config) (Strategy, error) {
	registryMu.RLock()
	factory, ok := registry[name]
	registryMu.RUnlock()

	if !ok {
		return nil, errors.Newf(errors.ErrCodeStrategyNotFound, "unknown strategy %q", name)
	}

	return factory(config), nil
}

// Names returns the registered strategy names in sorted order.
func Names() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()

	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}

	sort.Strings(names)

	return names
}
