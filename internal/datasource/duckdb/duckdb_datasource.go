// Package duckdb implements a DataSource backed by an in-process DuckDB
// database reading a CSV or Parquet price file with columns
// symbol, date, open, high, low, close, volume.
package duckdb

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/Masterminds/squirrel"
	_ "github.com/marcboeker/go-duckdb"
	"github.com/moznion/go-optional"
	"go.uber.org/zap"

	"github.com/sirily11/quant-research-go/internal/datasource"
	"github.com/sirily11/quant-research-go/internal/logger"
	"github.com/sirily11/quant-research-go/internal/types"
	"github.com/sirily11/quant-research-go/pkg/errors"
)

type DuckDBDataSource struct {
	db     *sql.DB
	logger *logger.Logger
	sq     squirrel.StatementBuilderType
}

// NewDataSource opens an in-memory DuckDB database and exposes the price
// file at path through a prices view. Parquet files are read with
// read_parquet, anything else with read_csv_auto.
func NewDataSource(path string, logger *logger.Logger) (datasource.DataSource, error) {
	db, err := sql.Open("duckdb", ":memory:")
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeDataSourceUnavailable, "failed to open DuckDB", err)
	}

	reader := "read_csv_auto"
	if strings.HasSuffix(path, ".parquet") {
		reader = "read_parquet"
	}

	// Squirrel does not support CREATE VIEW, so this is raw SQL.
	query := fmt.Sprintf(`CREATE VIEW prices AS SELECT * FROM %s('%s');`, reader, path)

	if _, err := db.Exec(query); err != nil {
		db.Close()

		return nil, errors.Wrapf(errors.ErrCodeDataSourceUnavailable, err, "failed to load price file %s", path)
	}

	logger.Debug("initialized DuckDB price source", zap.String("path", path))

	return &DuckDBDataSource{
		db:     db,
		logger: logger,
		sq:     squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}, nil
}

// GetPrices implements datasource.DataSource.
func (d *DuckDBDataSource) GetPrices(symbol string, start optional.Option[time.Time], end optional.Option[time.Time]) (types.PriceSeries, error) {
	builder := d.sq.
		Select("date", "open", "high", "low", "close", "volume").
		From("prices").
		Where(squirrel.Eq{"symbol": symbol}).
		OrderBy("date ASC")

	if start.IsSome() {
		builder = builder.Where(squirrel.GtOrEq{"date": types.Day(start.Unwrap())})
	}

	if end.IsSome() {
		builder = builder.Where(squirrel.LtOrEq{"date": types.Day(end.Unwrap())})
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeQueryFailed, "failed to build price query", err)
	}

	rows, err := d.db.Query(query, args...)
	if err != nil {
		return nil, errors.Wrapf(errors.ErrCodeQueryFailed, err, "price query failed for symbol %s", symbol)
	}
	defer rows.Close()

	var prices types.PriceSeries

	for rows.Next() {
		var p types.PricePoint
		if err := rows.Scan(&p.Date, &p.Open, &p.High, &p.Low, &p.Close, &p.Volume); err != nil {
			return nil, errors.Wrapf(errors.ErrCodeMalformedData, err, "failed to scan price row for symbol %s", symbol)
		}

		prices = append(prices, p)
	}

	if err := rows.Err(); err != nil {
		return nil, errors.Wrapf(errors.ErrCodeQueryFailed, err, "price query failed for symbol %s", symbol)
	}

	if len(prices) == 0 {
		return nil, errors.Newf(errors.ErrCodeDataSourceUnavailable, "no price data for symbol %s", symbol)
	}

	return prices, nil
}

// Symbols implements datasource.DataSource.
func (d *DuckDBDataSource) Symbols() ([]string, error) {
	query, args, err := d.sq.
		Select("DISTINCT symbol").
		From("prices").
		OrderBy("symbol ASC").
		ToSql()
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeQueryFailed, "failed to build symbol query", err)
	}

	rows, err := d.db.Query(query, args...)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeQueryFailed, "symbol query failed", err)
	}
	defer rows.Close()

	var symbols []string

	for rows.Next() {
		var symbol string
		if err := rows.Scan(&symbol); err != nil {
			return nil, errors.Wrap(errors.ErrCodeMalformedData, "failed to scan symbol row", err)
		}

		symbols = append(symbols, symbol)
	}

	return symbols, rows.Err()
}

// Close implements datasource.DataSource.
func (d *DuckDBDataSource) Close() error {
	return d.db.Close()
}
