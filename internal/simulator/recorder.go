package simulator

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	"github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	_ "github.com/marcboeker/go-duckdb"
	"go.uber.org/zap"

	"github.com/sirily11/quant-research-go/internal/logger"
	"github.com/sirily11/quant-research-go/internal/types"
	"github.com/sirily11/quant-research-go/pkg/errors"
)

// OrderStatus is the outcome of one order in the replay loop.
type OrderStatus string

const (
	OrderStatusApplied OrderStatus = "APPLIED"
	OrderStatusSkipped OrderStatus = "SKIPPED"
)

// Skip reasons recorded alongside skipped orders. These are control-flow
// outcomes of the risk policy, distinguishable in the log from real errors.
const (
	SkipReasonLeverageExceeded    = "leverage_exceeded"
	SkipReasonShortSaleDisallowed = "short_sale_disallowed"
)

// Decision is one order together with its replay outcome.
type Decision struct {
	Order     types.Order
	Status    OrderStatus
	Reason    string
	CashAfter float64
}

// Recorder keeps an auditable log of every order decision in an in-memory
// DuckDB table and can export it to Parquet for offline inspection.
type Recorder struct {
	db     *sql.DB
	logger *logger.Logger
	sq     squirrel.StatementBuilderType
	runID  string
	seq    int
}

// NewRecorder creates a recorder backed by an in-memory DuckDB database.
func NewRecorder(log *logger.Logger) (*Recorder, error) {
	db, err := sql.Open("duckdb", ":memory:")
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeRecorderFailed, "failed to open database", err)
	}

	return &Recorder{
		db:     db,
		logger: log,
		sq:     squirrel.StatementBuilder.PlaceholderFormat(squirrel.Question),
		runID:  uuid.New().String(),
		seq:    0,
	}, nil
}

// RunID returns the identifier attached to every row of this recorder.
func (r *Recorder) RunID() string {
	return r.runID
}

// Initialize creates the order log table.
func (r *Recorder) Initialize() error {
	_, err := r.db.Exec(`
		CREATE TABLE IF NOT EXISTS order_log (
			run_id TEXT,
			seq INTEGER,
			order_date TIMESTAMP,
			symbol TEXT,
			side TEXT,
			shares BIGINT,
			status TEXT,
			reason TEXT,
			cash_after DOUBLE
		)
	`)
	if err != nil {
		return errors.Wrap(errors.ErrCodeRecorderFailed, "failed to create order_log table", err)
	}

	return nil
}

// Record appends one order decision to the log.
func (r *Recorder) Record(decision Decision) error {
	r.seq++

	insert := r.sq.
		Insert("order_log").
		Columns(
			"run_id", "seq", "order_date", "symbol", "side", "shares",
			"status", "reason", "cash_after",
		).
		Values(
			r.runID, r.seq, decision.Order.Date, decision.Order.Symbol,
			decision.Order.Side, decision.Order.Shares,
			decision.Status, decision.Reason, decision.CashAfter,
		).
		RunWith(r.db)

	if _, err := insert.Exec(); err != nil {
		return errors.Wrap(errors.ErrCodeRecorderFailed, "failed to insert order decision", err)
	}

	return nil
}

// Decisions returns all recorded decisions in replay order.
func (r *Recorder) Decisions() ([]Decision, error) {
	query := r.sq.
		Select("order_date", "symbol", "side", "shares", "status", "reason", "cash_after").
		From("order_log").
		OrderBy("seq ASC").
		RunWith(r.db)

	rows, err := query.Query()
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeQueryFailed, "failed to query order log", err)
	}
	defer rows.Close()

	var decisions []Decision

	for rows.Next() {
		var d Decision

		err := rows.Scan(
			&d.Order.Date,
			&d.Order.Symbol,
			&d.Order.Side,
			&d.Order.Shares,
			&d.Status,
			&d.Reason,
			&d.CashAfter,
		)
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeQueryFailed, "failed to scan order decision", err)
		}

		decisions = append(decisions, d)
	}

	if err = rows.Err(); err != nil {
		return nil, errors.Wrap(errors.ErrCodeQueryFailed, "error iterating order log", err)
	}

	return decisions, nil
}

// SkippedCount returns the number of skipped orders, optionally filtered by
// reason (empty reason counts every skip).
func (r *Recorder) SkippedCount(reason string) (int, error) {
	where := squirrel.Eq{"status": string(OrderStatusSkipped)}

	query := r.sq.
		Select("COUNT(*)").
		From("order_log").
		Where(where)

	if reason != "" {
		query = query.Where(squirrel.Eq{"reason": reason})
	}

	var count int
	if err := query.RunWith(r.db).QueryRow().Scan(&count); err != nil {
		return 0, errors.Wrap(errors.ErrCodeQueryFailed, "failed to count skipped orders", err)
	}

	return count, nil
}

// Export writes the order log to a Parquet file in the given directory.
func (r *Recorder) Export(dir string) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return errors.Wrap(errors.ErrCodeRecorderFailed, "failed to create results directory", err)
	}

	path := filepath.Join(dir, "orders.parquet")

	// COPY does not support placeholders
	if _, err := r.db.Exec(fmt.Sprintf(`COPY order_log TO '%s' (FORMAT PARQUET)`, path)); err != nil {
		return errors.Wrap(errors.ErrCodeRecorderFailed, "failed to export order log to Parquet", err)
	}

	if r.logger != nil {
		r.logger.Info("Exported order log",
			zap.String("path", path),
			zap.String("run_id", r.runID),
		)
	}

	return nil
}

// Cleanup drops and recreates the order log so the recorder can serve
// another run.
func (r *Recorder) Cleanup() error {
	if _, err := r.db.Exec(`DROP TABLE IF EXISTS order_log`); err != nil {
		return errors.Wrap(errors.ErrCodeRecorderFailed, "failed to drop order_log table", err)
	}

	r.seq = 0
	r.runID = uuid.New().String()

	return r.Initialize()
}

// Close releases the underlying database.
func (r *Recorder) Close() error {
	return r.db.Close()
}
