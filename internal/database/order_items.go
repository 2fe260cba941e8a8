package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

const orderItemColumns = `id, order_id, product_id, quantity, unit_price, subtotal, status,
	notes, sent_to_kitchen_at, created_at, updated_at`

type CreateOrderItemParams struct {
	OrderID         uuid.UUID
	ProductID       uuid.UUID
	Quantity        int32
	UnitPrice       pgtype.Numeric
	Subtotal        pgtype.Numeric
	Status          string
	Notes           pgtype.Text
	SentToKitchenAt pgtype.Timestamptz
}

const createOrderItem = `
INSERT INTO order_items (order_id, product_id, quantity, unit_price, subtotal, status, notes, sent_to_kitchen_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
RETURNING ` + orderItemColumns + `
`

func (q *Queries) CreateOrderItem(ctx context.Context, arg CreateOrderItemParams) (OrderItem, error) {
	var i OrderItem
	err := q.db.QueryRow(ctx, createOrderItem,
		arg.OrderID, arg.ProductID, arg.Quantity, arg.UnitPrice,
		arg.Subtotal, arg.Status, arg.Notes, arg.SentToKitchenAt).
		Scan(&i.ID, &i.OrderID, &i.ProductID, &i.Quantity, &i.UnitPrice,
			&i.Subtotal, &i.Status, &i.Notes, &i.SentToKitchenAt, &i.CreatedAt, &i.UpdatedAt)
	return i, err
}

const listOrderItemsByOrder = `
SELECT ` + orderItemColumns + `
FROM order_items
WHERE order_id = $1
ORDER BY created_at
`

func (q *Queries) ListOrderItemsByOrder(ctx context.Context, orderID uuid.UUID) ([]OrderItem, error) {
	rows, err := q.db.Query(ctx, listOrderItemsByOrder, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []OrderItem
	for rows.Next() {
		var i OrderItem
		if err := rows.Scan(&i.ID, &i.OrderID, &i.ProductID, &i.Quantity, &i.UnitPrice,
			&i.Subtotal, &i.Status, &i.Notes, &i.SentToKitchenAt, &i.CreatedAt, &i.UpdatedAt); err != nil {
			return nil, err
		}
		result = append(result, i)
	}
	return result, rows.Err()
}

type AdvanceOrderItemsParams struct {
	OrderID    uuid.UUID
	FromStatus string
	ToStatus   string
}

const advanceOrderItems = `
UPDATE order_items
SET status = $3, updated_at = now()
WHERE order_id = $1 AND status = $2
`

// AdvanceOrderItems moves every item of an order currently in FromStatus to
// ToStatus in one statement. Items already past FromStatus are untouched, so
// a repeated advance is a no-op rather than an error.
func (q *Queries) AdvanceOrderItems(ctx context.Context, arg AdvanceOrderItemsParams) (int64, error) {
	tag, err := q.db.Exec(ctx, advanceOrderItems, arg.OrderID, arg.FromStatus, arg.ToStatus)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

type CreateOrderItemModifierParams struct {
	OrderItemID   uuid.UUID
	ModifierID    uuid.UUID
	ModifierName  string
	PriceOverride pgtype.Numeric
}

const createOrderItemModifier = `
INSERT INTO order_item_modifiers (order_item_id, modifier_id, modifier_name, price_override)
VALUES ($1, $2, $3, $4)
RETURNING id, order_item_id, modifier_id, modifier_name, price_override, created_at
`

func (q *Queries) CreateOrderItemModifier(ctx context.Context, arg CreateOrderItemModifierParams) (OrderItemModifier, error) {
	var m OrderItemModifier
	err := q.db.QueryRow(ctx, createOrderItemModifier,
		arg.OrderItemID, arg.ModifierID, arg.ModifierName, arg.PriceOverride).
		Scan(&m.ID, &m.OrderItemID, &m.ModifierID, &m.ModifierName, &m.PriceOverride, &m.CreatedAt)
	return m, err
}

const listOrderItemModifiersByItems = `
SELECT id, order_item_id, modifier_id, modifier_name, price_override, created_at
FROM order_item_modifiers
WHERE order_item_id = ANY($1::uuid[])
ORDER BY created_at
`

func (q *Queries) ListOrderItemModifiersByItems(ctx context.Context, itemIDs []uuid.UUID) ([]OrderItemModifier, error) {
	rows, err := q.db.Query(ctx, listOrderItemModifiersByItems, itemIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []OrderItemModifier
	for rows.Next() {
		var m OrderItemModifier
		if err := rows.Scan(&m.ID, &m.OrderItemID, &m.ModifierID, &m.ModifierName, &m.PriceOverride, &m.CreatedAt); err != nil {
			return nil, err
		}
		result = append(result, m)
	}
	return result, rows.Err()
}

// TabItemRow is an order item with its product name resolved, scoped to the
// open-tab view (cancelled items are filtered out in SQL).
type TabItemRow struct {
	OrderID     uuid.UUID
	ProductName string
	Quantity    int32
	UnitPrice   pgtype.Numeric
	Subtotal    pgtype.Numeric
}

const listTabItemsByOrders = `
SELECT oi.order_id, p.name, oi.quantity, oi.unit_price, oi.subtotal
FROM order_items oi
JOIN products p ON p.id = oi.product_id
WHERE oi.order_id = ANY($1::uuid[])
  AND oi.status <> 'cancelled'
ORDER BY oi.created_at
`

func (q *Queries) ListTabItemsByOrders(ctx context.Context, orderIDs []uuid.UUID) ([]TabItemRow, error) {
	rows, err := q.db.Query(ctx, listTabItemsByOrders, orderIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []TabItemRow
	for rows.Next() {
		var r TabItemRow
		if err := rows.Scan(&r.OrderID, &r.ProductName, &r.Quantity, &r.UnitPrice, &r.Subtotal); err != nil {
			return nil, err
		}
		result = append(result, r)
	}
	return result, rows.Err()
}

// KitchenItemRow is an order item with its product name, as shown on the
// kitchen display. Cancelled items are kept out of phase computation by the
// service, not the query, so the display can still show them struck through.
type KitchenItemRow struct {
	ID              uuid.UUID
	OrderID         uuid.UUID
	ProductName     string
	Quantity        int32
	Status          string
	Notes           pgtype.Text
	SentToKitchenAt pgtype.Timestamptz
}

const listKitchenItemsByOrders = `
SELECT oi.id, oi.order_id, p.name, oi.quantity, oi.status, oi.notes, oi.sent_to_kitchen_at
FROM order_items oi
JOIN products p ON p.id = oi.product_id
WHERE oi.order_id = ANY($1::uuid[])
ORDER BY oi.created_at
`

func (q *Queries) ListKitchenItemsByOrders(ctx context.Context, orderIDs []uuid.UUID) ([]KitchenItemRow, error) {
	rows, err := q.db.Query(ctx, listKitchenItemsByOrders, orderIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []KitchenItemRow
	for rows.Next() {
		var r KitchenItemRow
		if err := rows.Scan(&r.ID, &r.OrderID, &r.ProductName, &r.Quantity, &r.Status, &r.Notes, &r.SentToKitchenAt); err != nil {
			return nil, err
		}
		result = append(result, r)
	}
	return result, rows.Err()
}
