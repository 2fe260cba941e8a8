package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/andaluza-pos/api/internal/database"
	"github.com/andaluza-pos/api/internal/enum"
	"github.com/andaluza-pos/api/internal/money"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
)

// Concurrent appends to the same order race on the totals row; the CAS write
// detects the conflict and the whole transaction is retried.
const maxAppendRetries = 3

// Errors returned by the order service.
var (
	ErrEmptyItems        = errors.New("items are required")
	ErrInvalidOrderType  = errors.New("invalid order_type")
	ErrInvalidQuantity   = errors.New("quantity must be > 0")
	ErrInvalidProductID  = errors.New("invalid product_id")
	ErrInvalidModifierID = errors.New("invalid modifier_id")
	ErrInvalidTableID    = errors.New("invalid table_id")
	ErrProductNotFound   = errors.New("product not found")
	ErrModifierNotFound  = errors.New("modifier not found")

	// errTotalsConflict is internal: the append CAS lost a race.
	errTotalsConflict = errors.New("order totals changed concurrently")
)

// TxBeginner starts a new database transaction.
type TxBeginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// OrderStore defines the DB methods needed to create or append orders.
// Satisfied by *database.Queries (and its WithTx variant).
type OrderStore interface {
	GetProductsByIDs(ctx context.Context, ids []uuid.UUID) ([]database.Product, error)
	GetModifiersByIDs(ctx context.Context, ids []uuid.UUID) ([]database.Modifier, error)
	GetOpenOrderByTable(ctx context.Context, tableID uuid.UUID) (database.Order, error)
	CreateOrder(ctx context.Context, arg database.CreateOrderParams) (database.Order, error)
	CreateOrderItem(ctx context.Context, arg database.CreateOrderItemParams) (database.OrderItem, error)
	CreateOrderItemModifier(ctx context.Context, arg database.CreateOrderItemModifierParams) (database.OrderItemModifier, error)
	UpdateOrderTotals(ctx context.Context, arg database.UpdateOrderTotalsParams) (database.Order, error)
}

// NewOrderStore creates an OrderStore from a DBTX (pool or tx).
type NewOrderStore func(db database.DBTX) OrderStore

// CreateOrderRequest is the validated input for order capture.
type CreateOrderRequest struct {
	CreatedBy uuid.UUID
	OrderType string
	TableID   string
	Notes     string
	Items     []CreateOrderItemRequest
}

// CreateOrderItemRequest is a single line in the cart.
type CreateOrderItemRequest struct {
	ProductID string
	Quantity  int32
	Notes     string
	Modifiers []string // modifier IDs
}

// CreateOrderResult is the created (or appended-to) order with the items
// added by this call. Appended reports whether the items joined an existing
// open order for the same table instead of opening a new one.
type CreateOrderResult struct {
	Order    database.Order
	Items    []OrderItemResult
	Appended bool
}

// OrderItemResult is an inserted item with its modifier snapshots.
type OrderItemResult struct {
	Item      database.OrderItem
	Modifiers []database.OrderItemModifier
}

// OrderService handles order capture and lifecycle.
type OrderService struct {
	pool     TxBeginner
	newStore NewOrderStore
}

func NewOrderService(pool TxBeginner, newStore NewOrderStore) *OrderService {
	return &OrderService{pool: pool, newStore: newStore}
}

// preparedItem is a cart line with prices resolved.
type preparedItem struct {
	productID uuid.UUID
	quantity  int32
	unitPrice pgtype.Numeric
	subtotal  pgtype.Numeric
	notes     pgtype.Text
	modifiers []preparedModifier
	// lineTotal is the decimal form of subtotal, kept for accumulation.
	lineTotal decimal.Decimal
}

type preparedModifier struct {
	modifierID    uuid.UUID
	modifierName  string
	priceOverride pgtype.Numeric
}

// CreateOrder creates a new order, or appends the items to an existing open
// order when the table already has an unpaid open/in_progress one (tables act
// as the continuation key for a single visit). The whole write runs in one
// transaction; the append path retries on totals-row races.
func (s *OrderService) CreateOrder(ctx context.Context, req CreateOrderRequest) (*CreateOrderResult, error) {
	if !enum.IsValidOrderType(req.OrderType) {
		return nil, ErrInvalidOrderType
	}
	if len(req.Items) == 0 {
		return nil, ErrEmptyItems
	}
	for i, item := range req.Items {
		if item.Quantity <= 0 {
			return nil, fmt.Errorf("items[%d]: %w", i, ErrInvalidQuantity)
		}
	}

	var tableID pgtype.UUID
	if req.TableID != "" {
		tid, err := uuid.Parse(req.TableID)
		if err != nil {
			return nil, ErrInvalidTableID
		}
		tableID = pgtype.UUID{Bytes: tid, Valid: true}
	}

	var lastErr error
	for attempt := 0; attempt < maxAppendRetries; attempt++ {
		result, err := s.createOrderTx(ctx, req, tableID)
		if err == nil {
			return result, nil
		}
		if errors.Is(err, errTotalsConflict) {
			lastErr = err
			continue
		}
		return nil, err
	}
	return nil, lastErr
}

func (s *OrderService) createOrderTx(ctx context.Context, req CreateOrderRequest, tableID pgtype.UUID) (*CreateOrderResult, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)

	items, err := s.prepareItems(ctx, store, req.Items)
	if err != nil {
		return nil, err
	}

	// Append path: the table already has an open unpaid order.
	if tableID.Valid {
		existing, err := store.GetOpenOrderByTable(ctx, uuid.UUID(tableID.Bytes))
		switch {
		case err == nil:
			result, err := s.appendToOrder(ctx, store, existing, items)
			if err != nil {
				return nil, err
			}
			if err := tx.Commit(ctx); err != nil {
				return nil, fmt.Errorf("commit tx: %w", err)
			}
			return result, nil
		case errors.Is(err, pgx.ErrNoRows):
			// No open order for this table; fall through to create one.
		default:
			return nil, fmt.Errorf("get open order by table: %w", err)
		}
	}

	result, err := s.insertNewOrder(ctx, store, req, tableID, items)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}
	return result, nil
}

// prepareItems resolves products and modifiers and computes per-line prices.
// unit_price = product price + sum of modifier overrides, line subtotal is
// rounded to cents.
func (s *OrderService) prepareItems(ctx context.Context, store OrderStore, reqs []CreateOrderItemRequest) ([]preparedItem, error) {
	productIDs := make([]uuid.UUID, 0, len(reqs))
	var modifierIDs []uuid.UUID
	for i, item := range reqs {
		pid, err := uuid.Parse(item.ProductID)
		if err != nil {
			return nil, fmt.Errorf("items[%d]: %w", i, ErrInvalidProductID)
		}
		productIDs = append(productIDs, pid)
		for j, mid := range item.Modifiers {
			id, err := uuid.Parse(mid)
			if err != nil {
				return nil, fmt.Errorf("items[%d].modifiers[%d]: %w", i, j, ErrInvalidModifierID)
			}
			modifierIDs = append(modifierIDs, id)
		}
	}

	products, err := store.GetProductsByIDs(ctx, productIDs)
	if err != nil {
		return nil, fmt.Errorf("get products: %w", err)
	}
	productByID := make(map[uuid.UUID]database.Product, len(products))
	for _, p := range products {
		productByID[p.ID] = p
	}

	modifierByID := make(map[uuid.UUID]database.Modifier)
	if len(modifierIDs) > 0 {
		modifiers, err := store.GetModifiersByIDs(ctx, modifierIDs)
		if err != nil {
			return nil, fmt.Errorf("get modifiers: %w", err)
		}
		for _, m := range modifiers {
			modifierByID[m.ID] = m
		}
	}

	prepared := make([]preparedItem, 0, len(reqs))
	for i, item := range reqs {
		pid, _ := uuid.Parse(item.ProductID)
		product, ok := productByID[pid]
		if !ok {
			return nil, fmt.Errorf("items[%d]: %w", i, ErrProductNotFound)
		}

		unitPrice := database.NumericToDecimal(product.Price)
		var mods []preparedModifier
		for j, midStr := range item.Modifiers {
			mid, _ := uuid.Parse(midStr)
			modifier, ok := modifierByID[mid]
			if !ok {
				return nil, fmt.Errorf("items[%d].modifiers[%d]: %w", i, j, ErrModifierNotFound)
			}
			unitPrice = unitPrice.Add(database.NumericToDecimal(modifier.PriceOverride))
			mods = append(mods, preparedModifier{
				modifierID:    modifier.ID,
				modifierName:  modifier.Name,
				priceOverride: modifier.PriceOverride,
			})
		}
		unitPrice = money.Round2(unitPrice)
		lineTotal := money.LineTotal(unitPrice, item.Quantity)

		notes := pgtype.Text{}
		if item.Notes != "" {
			notes = pgtype.Text{String: item.Notes, Valid: true}
		}

		prepared = append(prepared, preparedItem{
			productID: pid,
			quantity:  item.Quantity,
			unitPrice: database.DecimalToNumeric(unitPrice),
			subtotal:  database.DecimalToNumeric(lineTotal),
			notes:     notes,
			modifiers: mods,
			lineTotal: lineTotal,
		})
	}
	return prepared, nil
}

func (s *OrderService) insertNewOrder(ctx context.Context, store OrderStore, req CreateOrderRequest, tableID pgtype.UUID, items []preparedItem) (*CreateOrderResult, error) {
	// Running totals, rounded at each step so later appends stay consistent.
	subtotal := decimal.Zero
	for _, item := range items {
		subtotal = money.Round2(subtotal.Add(item.lineTotal))
	}
	tax := money.Tax(subtotal)
	total := money.Total(subtotal, tax)

	notes := pgtype.Text{}
	if req.Notes != "" {
		notes = pgtype.Text{String: req.Notes, Valid: true}
	}

	order, err := store.CreateOrder(ctx, database.CreateOrderParams{
		TableID:   tableID,
		CreatedBy: req.CreatedBy,
		Status:    enum.OrderStatusOpen,
		OrderType: req.OrderType,
		Subtotal:  database.DecimalToNumeric(subtotal),
		Tax:       database.DecimalToNumeric(tax),
		Total:     database.DecimalToNumeric(total),
		Notes:     notes,
	})
	if err != nil {
		return nil, fmt.Errorf("create order: %w", err)
	}

	itemResults, err := s.insertItems(ctx, store, order.ID, items)
	if err != nil {
		return nil, err
	}

	return &CreateOrderResult{Order: order, Items: itemResults, Appended: false}, nil
}

func (s *OrderService) appendToOrder(ctx context.Context, store OrderStore, existing database.Order, items []preparedItem) (*CreateOrderResult, error) {
	itemResults, err := s.insertItems(ctx, store, existing.ID, items)
	if err != nil {
		return nil, err
	}

	// Incremental totals: add the new items' contribution to the stored
	// subtotal, then recompute tax and total from the new subtotal.
	subtotal := database.NumericToDecimal(existing.Subtotal)
	for _, item := range items {
		subtotal = money.Round2(subtotal.Add(item.lineTotal))
	}
	tax := money.Tax(subtotal)
	total := money.Total(subtotal, tax)

	updated, err := store.UpdateOrderTotals(ctx, database.UpdateOrderTotalsParams{
		ID:            existing.ID,
		Subtotal:      database.DecimalToNumeric(subtotal),
		Tax:           database.DecimalToNumeric(tax),
		Total:         database.DecimalToNumeric(total),
		SeenUpdatedAt: existing.UpdatedAt,
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errTotalsConflict
		}
		return nil, fmt.Errorf("update order totals: %w", err)
	}

	return &CreateOrderResult{Order: updated, Items: itemResults, Appended: true}, nil
}

func (s *OrderService) insertItems(ctx context.Context, store OrderStore, orderID uuid.UUID, items []preparedItem) ([]OrderItemResult, error) {
	sentAt := pgtype.Timestamptz{Time: time.Now(), Valid: true}

	var results []OrderItemResult
	for _, pi := range items {
		item, err := store.CreateOrderItem(ctx, database.CreateOrderItemParams{
			OrderID:         orderID,
			ProductID:       pi.productID,
			Quantity:        pi.quantity,
			UnitPrice:       pi.unitPrice,
			Subtotal:        pi.subtotal,
			Status:          enum.OrderItemStatusPending,
			Notes:           pi.notes,
			SentToKitchenAt: sentAt,
		})
		if err != nil {
			return nil, fmt.Errorf("create order item: %w", err)
		}

		var modResults []database.OrderItemModifier
		for _, mod := range pi.modifiers {
			oim, err := store.CreateOrderItemModifier(ctx, database.CreateOrderItemModifierParams{
				OrderItemID:   item.ID,
				ModifierID:    mod.modifierID,
				ModifierName:  mod.modifierName,
				PriceOverride: mod.priceOverride,
			})
			if err != nil {
				return nil, fmt.Errorf("create order item modifier: %w", err)
			}
			modResults = append(modResults, oim)
		}

		results = append(results, OrderItemResult{Item: item, Modifiers: modResults})
	}
	return results, nil
}
