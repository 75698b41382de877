package writer

import (
	"database/sql"
	"fmt"

	_ "github.com/marcboeker/go-duckdb"

	"github.com/sirily11/quant-research-go/internal/types"
	"github.com/sirily11/quant-research-go/pkg/errors"
)

// DuckDBWriter stages bars in an in-memory DuckDB table inside one
// transaction and exports everything to a Parquet file on Finalize. The
// output is readable by the DuckDB data source.
type DuckDBWriter struct {
	db         *sql.DB
	tx         *sql.Tx
	stmt       *sql.Stmt
	outputPath string
}

// NewDuckDBWriter creates a writer targeting the given Parquet file path.
func NewDuckDBWriter(outputPath string) PriceWriter {
	return &DuckDBWriter{outputPath: outputPath}
}

// Initialize implements PriceWriter. It opens the database, creates the
// staging table, begins the batch transaction, and prepares the insert.
func (w *DuckDBWriter) Initialize() (err error) {
	w.db, err = sql.Open("duckdb", ":memory:")
	if err != nil {
		return errors.Wrap(errors.ErrCodeMarketDataWriteFailed, "failed to open DuckDB connection", err)
	}

	_, err = w.db.Exec(`
		CREATE TABLE IF NOT EXISTS prices (
			symbol TEXT,
			date DATE,
			open DOUBLE,
			high DOUBLE,
			low DOUBLE,
			close DOUBLE,
			volume DOUBLE
		)
	`)
	if err != nil {
		w.db.Close()

		return errors.Wrap(errors.ErrCodeMarketDataWriteFailed, "failed to create staging table", err)
	}

	w.tx, err = w.db.Begin()
	if err != nil {
		w.db.Close()

		return errors.Wrap(errors.ErrCodeMarketDataWriteFailed, "failed to begin transaction", err)
	}

	w.stmt, err = w.tx.Prepare(`
		INSERT INTO prices (symbol, date, open, high, low, close, volume)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		w.tx.Rollback()
		w.db.Close()

		return errors.Wrap(errors.ErrCodeMarketDataWriteFailed, "failed to prepare insert statement", err)
	}

	return nil
}

// Write implements PriceWriter.
func (w *DuckDBWriter) Write(symbol string, point types.PricePoint) error {
	if w.stmt == nil {
		return errors.New(errors.ErrCodeMarketDataWriteFailed, "writer not initialized")
	}

	_, err := w.stmt.Exec(
		symbol,
		types.Day(point.Date),
		point.Open,
		point.High,
		point.Low,
		point.Close,
		point.Volume,
	)
	if err != nil {
		return errors.Wrapf(errors.ErrCodeMarketDataWriteFailed, err, "failed to insert bar for %s", symbol)
	}

	return nil
}

// Finalize implements PriceWriter. It commits the batch and exports the
// staging table to Parquet.
func (w *DuckDBWriter) Finalize() (string, error) {
	if w.tx == nil {
		return "", errors.New(errors.ErrCodeMarketDataWriteFailed, "writer not initialized")
	}

	if err := w.tx.Commit(); err != nil {
		w.tx.Rollback()

		return "", errors.Wrap(errors.ErrCodeMarketDataWriteFailed, "failed to commit batch", err)
	}

	w.tx = nil
	w.stmt = nil

	query := fmt.Sprintf(`COPY (SELECT * FROM prices ORDER BY symbol, date) TO '%s' (FORMAT PARQUET)`, w.outputPath)
	if _, err := w.db.Exec(query); err != nil {
		return "", errors.Wrapf(errors.ErrCodeMarketDataWriteFailed, err, "failed to export Parquet file %s", w.outputPath)
	}

	return w.outputPath, nil
}

// Close implements PriceWriter.
func (w *DuckDBWriter) Close() error {
	if w.tx != nil {
		w.tx.Rollback()
		w.tx = nil
	}

	if w.db != nil {
		return w.db.Close()
	}

	return nil
}

// OutputPath implements PriceWriter.
func (w *DuckDBWriter) OutputPath() string {
	return w.outputPath
}
