package repository

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/xenking/order-pricer/internal/batch"
)

const (
	insertPricedOrderSQL = `INSERT INTO priced_orders (
		run_id, seq, order_id, customer_name, product_id, status, reason,
		quantity, unit_price, discount_rate, subtotal, discounted_total, tax, shipping, final_total)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`

	countByStatusSQL = `SELECT status, count(*) FROM priced_orders
		WHERE run_id = $1 GROUP BY status ORDER BY status`
)

// DB is the subset of pgxpool.Pool used by LedgerRepository.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

var _ batch.Sink = (*LedgerRepository)(nil)

// LedgerRepository stores batch outcomes in PostgreSQL, one row per order,
// keyed by run id and sequence number.
type LedgerRepository struct {
	db    DB
	runID uuid.UUID
}

// NewLedgerRepository returns a LedgerRepository that records outcomes under
// runID.
func NewLedgerRepository(db DB, runID uuid.UUID) *LedgerRepository {
	return &LedgerRepository{db: db, runID: runID}
}

// RunID returns the run the repository writes to.
func (r *LedgerRepository) RunID() uuid.UUID {
	return r.runID
}

// Record inserts o. Pricing columns are NULL for skipped orders.
func (r *LedgerRepository) Record(ctx context.Context, o batch.Outcome) error {
	args := []any{
		r.runID, o.Seq, o.Record.OrderID, o.Record.CustomerName, o.Record.ProductID,
		o.Status(), string(o.Reason),
		nil, nil, nil, nil, nil, nil, nil, nil,
	}
	if o.OK {
		res := o.Result
		args[7] = o.Record.Quantity
		args[8] = o.Record.UnitPrice
		args[9] = res.DiscountRate
		args[10] = res.Subtotal
		args[11] = res.DiscountedTotal
		args[12] = res.Tax
		args[13] = res.Shipping
		args[14] = res.FinalTotal
	}

	if _, err := r.db.Exec(ctx, insertPricedOrderSQL, args...); err != nil {
		return errors.Wrapf(err, "record order %q (seq %d)", o.Record.OrderID, o.Seq)
	}
	return nil
}

// CountByStatus returns how many orders of the current run were stored per
// status.
func (r *LedgerRepository) CountByStatus(ctx context.Context) (map[string]int, error) {
	rows, err := r.db.Query(ctx, countByStatusSQL, r.runID)
	if err != nil {
		return nil, errors.Wrapf(err, "count run %s", r.runID)
	}

	type statusCount struct {
		Status string
		Count  int
	}
	counts, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (statusCount, error) {
		var c statusCount
		err := row.Scan(&c.Status, &c.Count)
		return c, err
	})
	if err != nil {
		return nil, errors.Wrapf(err, "count run %s", r.runID)
	}

	out := make(map[string]int, len(counts))
	for _, c := range counts {
		out[c.Status] = c.Count
	}
	return out, nil
}
