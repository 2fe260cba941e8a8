package database

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

const orderColumns = `id, table_id, created_by, status, order_type, subtotal, tax, total,
	payment_method, discount, tip, notes, created_at, updated_at`

type CreateOrderParams struct {
	TableID   pgtype.UUID
	CreatedBy uuid.UUID
	Status    string
	OrderType string
	Subtotal  pgtype.Numeric
	Tax       pgtype.Numeric
	Total     pgtype.Numeric
	Notes     pgtype.Text
}

const createOrder = `
INSERT INTO orders (table_id, created_by, status, order_type, subtotal, tax, total, notes)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
RETURNING ` + orderColumns + `
`

func (q *Queries) CreateOrder(ctx context.Context, arg CreateOrderParams) (Order, error) {
	row := q.db.QueryRow(ctx, createOrder,
		arg.TableID, arg.CreatedBy, arg.Status, arg.OrderType,
		arg.Subtotal, arg.Tax, arg.Total, arg.Notes)
	return scanOrder(row)
}

const getOrder = `
SELECT ` + orderColumns + `
FROM orders
WHERE id = $1
`

func (q *Queries) GetOrder(ctx context.Context, id uuid.UUID) (Order, error) {
	return scanOrder(q.db.QueryRow(ctx, getOrder, id))
}

const getOpenOrderByTable = `
SELECT ` + orderColumns + `
FROM orders
WHERE table_id = $1
  AND status IN ('open', 'in_progress')
  AND payment_method IS NULL
ORDER BY created_at DESC
LIMIT 1
`

// GetOpenOrderByTable finds the order a new round of items for the same
// visit should be appended to. Returns pgx.ErrNoRows when the table has no
// open unpaid order.
func (q *Queries) GetOpenOrderByTable(ctx context.Context, tableID uuid.UUID) (Order, error) {
	return scanOrder(q.db.QueryRow(ctx, getOpenOrderByTable, tableID))
}

type ListOrdersParams struct {
	Status    pgtype.Text
	OrderType pgtype.Text
	StartDate pgtype.Timestamptz
	EndDate   pgtype.Timestamptz
	Limit     int32
	Offset    int32
}

const listOrders = `
SELECT ` + orderColumns + `
FROM orders
WHERE ($1::text IS NULL OR status = $1)
  AND ($2::text IS NULL OR order_type = $2)
  AND ($3::timestamptz IS NULL OR created_at >= $3)
  AND ($4::timestamptz IS NULL OR created_at < $4)
ORDER BY created_at DESC
LIMIT $5 OFFSET $6
`

func (q *Queries) ListOrders(ctx context.Context, arg ListOrdersParams) ([]Order, error) {
	rows, err := q.db.Query(ctx, listOrders,
		arg.Status, arg.OrderType, arg.StartDate, arg.EndDate, arg.Limit, arg.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanOrders(rows)
}

const listOrdersByIDs = `
SELECT ` + orderColumns + `
FROM orders
WHERE id = ANY($1::uuid[])
`

func (q *Queries) ListOrdersByIDs(ctx context.Context, ids []uuid.UUID) ([]Order, error) {
	rows, err := q.db.Query(ctx, listOrdersByIDs, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanOrders(rows)
}

type UpdateOrderStatusParams struct {
	ID     uuid.UUID
	Status string
}

const updateOrderStatus = `
UPDATE orders
SET status = $2, updated_at = now()
WHERE id = $1
RETURNING ` + orderColumns + `
`

func (q *Queries) UpdateOrderStatus(ctx context.Context, arg UpdateOrderStatusParams) (Order, error) {
	return scanOrder(q.db.QueryRow(ctx, updateOrderStatus, arg.ID, arg.Status))
}

const cancelOrder = `
UPDATE orders
SET status = 'cancelled', updated_at = now()
WHERE id = $1 AND status NOT IN ('completed', 'cancelled')
RETURNING ` + orderColumns + `
`

// CancelOrder cancels atomically; pgx.ErrNoRows means the order is missing
// or already terminal.
func (q *Queries) CancelOrder(ctx context.Context, id uuid.UUID) (Order, error) {
	return scanOrder(q.db.QueryRow(ctx, cancelOrder, id))
}

const completeOrder = `
UPDATE orders
SET status = 'completed', updated_at = now()
WHERE id = $1
RETURNING ` + orderColumns + `
`

func (q *Queries) CompleteOrder(ctx context.Context, id uuid.UUID) (Order, error) {
	return scanOrder(q.db.QueryRow(ctx, completeOrder, id))
}

type UpdateOrderTotalsParams struct {
	ID       uuid.UUID
	Subtotal pgtype.Numeric
	Tax      pgtype.Numeric
	Total    pgtype.Numeric
	// SeenUpdatedAt is the updated_at read before computing the new totals.
	// The write only applies if the row is unchanged since then.
	SeenUpdatedAt time.Time
}

const updateOrderTotals = `
UPDATE orders
SET subtotal = $2, tax = $3, total = $4, updated_at = now()
WHERE id = $1 AND updated_at = $5
RETURNING ` + orderColumns + `
`

// UpdateOrderTotals is a compare-and-swap on updated_at: concurrent appends
// to the same order cannot silently overwrite each other's totals. Returns
// pgx.ErrNoRows when the row changed since it was read.
func (q *Queries) UpdateOrderTotals(ctx context.Context, arg UpdateOrderTotalsParams) (Order, error) {
	return scanOrder(q.db.QueryRow(ctx, updateOrderTotals,
		arg.ID, arg.Subtotal, arg.Tax, arg.Total, arg.SeenUpdatedAt))
}

type SettleOrdersParams struct {
	IDs           []uuid.UUID
	PaymentMethod string
	Discount      pgtype.Numeric
	Tip           pgtype.Numeric
}

const settleOrders = `
UPDATE orders
SET payment_method = $2, discount = $3, tip = $4, updated_at = now()
WHERE id = ANY($1::uuid[])
`

// SettleOrders marks every order in a tab as paid in one statement.
func (q *Queries) SettleOrders(ctx context.Context, arg SettleOrdersParams) (int64, error) {
	tag, err := q.db.Exec(ctx, settleOrders, arg.IDs, arg.PaymentMethod, arg.Discount, arg.Tip)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// OpenTabOrderRow is an unpaid, non-cancelled order with its table name
// resolved, as consumed by the tab aggregate builder.
type OpenTabOrderRow struct {
	Order
	TableName pgtype.Text
}

const listOpenTabOrders = `
SELECT o.id, o.table_id, o.created_by, o.status, o.order_type, o.subtotal, o.tax, o.total,
       o.payment_method, o.discount, o.tip, o.notes, o.created_at, o.updated_at,
       t.name
FROM orders o
LEFT JOIN tables t ON t.id = o.table_id
WHERE o.payment_method IS NULL
  AND o.status <> 'cancelled'
ORDER BY o.created_at
`

func (q *Queries) ListOpenTabOrders(ctx context.Context) ([]OpenTabOrderRow, error) {
	rows, err := q.db.Query(ctx, listOpenTabOrders)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []OpenTabOrderRow
	for rows.Next() {
		var r OpenTabOrderRow
		if err := rows.Scan(
			&r.ID, &r.TableID, &r.CreatedBy, &r.Status, &r.OrderType,
			&r.Subtotal, &r.Tax, &r.Total, &r.PaymentMethod, &r.Discount,
			&r.Tip, &r.Notes, &r.CreatedAt, &r.UpdatedAt, &r.TableName,
		); err != nil {
			return nil, err
		}
		result = append(result, r)
	}
	return result, rows.Err()
}

const listKitchenOrders = `
SELECT ` + orderColumns + `
FROM orders
WHERE status IN ('open', 'in_progress')
ORDER BY created_at
`

// ListKitchenOrders returns the active kitchen queue, oldest first.
// Cancelled orders never reach the kitchen view.
func (q *Queries) ListKitchenOrders(ctx context.Context) ([]Order, error) {
	rows, err := q.db.Query(ctx, listKitchenOrders)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanOrders(rows)
}

func scanOrder(row pgx.Row) (Order, error) {
	var o Order
	err := row.Scan(
		&o.ID, &o.TableID, &o.CreatedBy, &o.Status, &o.OrderType,
		&o.Subtotal, &o.Tax, &o.Total, &o.PaymentMethod, &o.Discount,
		&o.Tip, &o.Notes, &o.CreatedAt, &o.UpdatedAt,
	)
	return o, err
}

func scanOrders(rows pgx.Rows) ([]Order, error) {
	var result []Order
	for rows.Next() {
		var o Order
		if err := rows.Scan(
			&o.ID, &o.TableID, &o.CreatedBy, &o.Status, &o.OrderType,
			&o.Subtotal, &o.Tax, &o.Total, &o.PaymentMethod, &o.Discount,
			&o.Tip, &o.Notes, &o.CreatedAt, &o.UpdatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, o)
	}
	return result, rows.Err()
}
