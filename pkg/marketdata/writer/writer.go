// Package writer persists downloaded daily bars into the price caches
// the research tools read: per-symbol CSV files or a single Parquet file.
package writer

import "github.com/sirily11/quant-research-go/internal/types"

// PriceWriter persists the daily bars of one download batch.
type PriceWriter interface {
	// Initialize sets up the writer, creating tables or files as needed.
	Initialize() error
	// Write persists a single daily bar for a symbol.
	Write(symbol string, point types.PricePoint) error
	// Finalize completes the batch and returns the path written.
	Finalize() (outputPath string, err error)
	// Close releases any resources held by the writer.
	Close() error
	// OutputPath returns the configured output location.
	OutputPath() string
}
