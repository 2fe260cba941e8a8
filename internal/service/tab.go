package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/andaluza-pos/api/internal/database"
	"github.com/andaluza-pos/api/internal/enum"
	"github.com/andaluza-pos/api/internal/money"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
)

var (
	ErrEmptyTab             = errors.New("tab has no orders")
	ErrInvalidPaymentMethod = errors.New("invalid payment_method")
	ErrNegativeDiscount     = errors.New("discount cannot be negative")
	ErrNegativeTip          = errors.New("tip cannot be negative")
)

// Tab is the derived, never-persisted bill for a table or takeout ticket:
// every unpaid non-cancelled order under one grouping key, with duplicate
// lines merged. It is rebuilt from source rows on every fetch.
type Tab struct {
	Key         string
	Label       string
	TableID     *uuid.UUID
	OrderType   string
	OrderIDs    []uuid.UUID
	Items       []TabLine
	Subtotal    decimal.Decimal
	Tax         decimal.Decimal
	Total       decimal.Decimal
	OldestOrder time.Time
}

// TabLine is one merged line: same product name and unit price collapsed
// into a single row with summed quantity and subtotal.
type TabLine struct {
	ProductName string
	Quantity    int32
	UnitPrice   decimal.Decimal
	Subtotal    decimal.Decimal
}

// ShortID is the human-facing order reference: first 6 characters of the id,
// uppercased. Shared with the kitchen ticket.
func ShortID(id uuid.UUID) string {
	return strings.ToUpper(id.String()[:6])
}

// BuildTabs groups unpaid orders into tabs. Dine-in orders with a table share
// the table's tab; every takeout (or table-less) order is its own tab. The
// output is deterministic for a given input: grouping, merge order and
// totals are all derived from row order and values alone.
func BuildTabs(orders []database.OpenTabOrderRow, items []database.TabItemRow) []Tab {
	itemsByOrder := make(map[uuid.UUID][]database.TabItemRow)
	for _, it := range items {
		itemsByOrder[it.OrderID] = append(itemsByOrder[it.OrderID], it)
	}

	tabByKey := make(map[string]*Tab)
	var keys []string // insertion order, for deterministic output

	for _, order := range orders {
		var key, label string
		if order.OrderType == enum.OrderTypeTakeout || !order.TableID.Valid {
			key = "takeout-" + order.ID.String()
			if order.Notes.Valid && order.Notes.String != "" {
				label = order.Notes.String
			} else {
				label = "Para Llevar #" + ShortID(order.ID)
			}
		} else {
			key = uuid.UUID(order.TableID.Bytes).String()
			switch {
			case order.TableName.Valid && order.TableName.String != "":
				label = order.TableName.String
			case order.Notes.Valid && order.Notes.String != "":
				label = order.Notes.String
			default:
				label = "Mesa"
			}
		}

		tab, ok := tabByKey[key]
		if !ok {
			tab = &Tab{
				Key:         key,
				Label:       label,
				OrderType:   order.OrderType,
				Subtotal:    decimal.Zero,
				Tax:         decimal.Zero,
				Total:       decimal.Zero,
				OldestOrder: order.CreatedAt,
			}
			if order.TableID.Valid {
				tid := uuid.UUID(order.TableID.Bytes)
				tab.TableID = &tid
			}
			tabByKey[key] = tab
			keys = append(keys, key)
		}

		tab.OrderIDs = append(tab.OrderIDs, order.ID)
		tab.Subtotal = tab.Subtotal.Add(database.NumericToDecimal(order.Subtotal))
		tab.Tax = tab.Tax.Add(database.NumericToDecimal(order.Tax))
		tab.Total = tab.Total.Add(database.NumericToDecimal(order.Total))
		if order.CreatedAt.Before(tab.OldestOrder) {
			tab.OldestOrder = order.CreatedAt
		}

		for _, it := range itemsByOrder[order.ID] {
			unitPrice := database.NumericToDecimal(it.UnitPrice)
			lineSubtotal := database.NumericToDecimal(it.Subtotal)

			merged := false
			for i := range tab.Items {
				if tab.Items[i].ProductName == it.ProductName && tab.Items[i].UnitPrice.Equal(unitPrice) {
					tab.Items[i].Quantity += it.Quantity
					tab.Items[i].Subtotal = tab.Items[i].Subtotal.Add(lineSubtotal)
					merged = true
					break
				}
			}
			if !merged {
				tab.Items = append(tab.Items, TabLine{
					ProductName: it.ProductName,
					Quantity:    it.Quantity,
					UnitPrice:   unitPrice,
					Subtotal:    lineSubtotal,
				})
			}
		}
	}

	result := make([]Tab, 0, len(keys))
	for _, key := range keys {
		result = append(result, *tabByKey[key])
	}
	sort.SliceStable(result, func(i, j int) bool {
		if !result[i].OldestOrder.Equal(result[j].OldestOrder) {
			return result[i].OldestOrder.Before(result[j].OldestOrder)
		}
		return result[i].Key < result[j].Key
	})
	return result
}

// TabStore defines the DB methods needed to list and settle tabs.
// Satisfied by *database.Queries (and its WithTx variant).
type TabStore interface {
	ListOpenTabOrders(ctx context.Context) ([]database.OpenTabOrderRow, error)
	ListTabItemsByOrders(ctx context.Context, orderIDs []uuid.UUID) ([]database.TabItemRow, error)
	ListOrdersByIDs(ctx context.Context, ids []uuid.UUID) ([]database.Order, error)
	SettleOrders(ctx context.Context, arg database.SettleOrdersParams) (int64, error)
	UpdateTableStatus(ctx context.Context, arg database.UpdateTableStatusParams) (database.Table, error)
	GetActiveCashSession(ctx context.Context) (database.CashRegisterSession, error)
	CreateCashMovement(ctx context.Context, arg database.CreateCashMovementParams) (database.CashRegisterMovement, error)
}

// NewTabStore creates a TabStore from a DBTX (pool or tx).
type NewTabStore func(db database.DBTX) TabStore

// TabService builds the open-tabs view and settles tabs.
type TabService struct {
	store    TabStore
	pool     TxBeginner
	newStore NewTabStore
}

func NewTabService(store TabStore, pool TxBeginner, newStore NewTabStore) *TabService {
	return &TabService{store: store, pool: pool, newStore: newStore}
}

// ListOpen rebuilds all open tabs from the current unpaid orders.
func (s *TabService) ListOpen(ctx context.Context) ([]Tab, error) {
	orders, err := s.store.ListOpenTabOrders(ctx)
	if err != nil {
		return nil, fmt.Errorf("list open tab orders: %w", err)
	}
	if len(orders) == 0 {
		return []Tab{}, nil
	}

	ids := make([]uuid.UUID, len(orders))
	for i, o := range orders {
		ids[i] = o.ID
	}
	items, err := s.store.ListTabItemsByOrders(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("list tab items: %w", err)
	}

	return BuildTabs(orders, items), nil
}

// CloseTabRequest settles one tab.
type CloseTabRequest struct {
	OrderIDs      []uuid.UUID
	TableID       *uuid.UUID
	Label         string
	PaymentMethod string
	Discount      decimal.Decimal
	Tip           decimal.Decimal
	ClosedBy      uuid.UUID
}

// CloseTabResult reports the settlement outcome.
type CloseTabResult struct {
	OrdersSettled int64
	SaleRecorded  bool
	TipRecorded   bool
	AmountPaid    decimal.Decimal
}

// CloseTab marks every order in the tab paid, frees the table, and records
// the session movements, all in one transaction. A tip goes to the active
// cash session when one exists (silently skipped otherwise); a cash payment
// additionally records a sale of total - discount + tip when positive.
func (s *TabService) CloseTab(ctx context.Context, req CloseTabRequest) (*CloseTabResult, error) {
	if len(req.OrderIDs) == 0 {
		return nil, ErrEmptyTab
	}
	if !enum.IsValidPaymentMethod(req.PaymentMethod) {
		return nil, ErrInvalidPaymentMethod
	}
	if req.Discount.IsNegative() {
		return nil, ErrNegativeDiscount
	}
	if req.Tip.IsNegative() {
		return nil, ErrNegativeTip
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)

	// The tab totals are recomputed from the rows being settled, not trusted
	// from the client.
	orders, err := store.ListOrdersByIDs(ctx, req.OrderIDs)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	if len(orders) == 0 {
		return nil, ErrEmptyTab
	}
	subtotal := decimal.Zero
	total := decimal.Zero
	for _, o := range orders {
		subtotal = subtotal.Add(database.NumericToDecimal(o.Subtotal))
		total = total.Add(database.NumericToDecimal(o.Total))
	}

	// A discount can never exceed the tab subtotal, so the payable amount
	// stays non-negative.
	discount := money.FixedDiscount(req.Discount, subtotal)

	settled, err := store.SettleOrders(ctx, database.SettleOrdersParams{
		IDs:           req.OrderIDs,
		PaymentMethod: req.PaymentMethod,
		Discount:      database.DecimalToNumeric(discount),
		Tip:           database.DecimalToNumeric(req.Tip),
	})
	if err != nil {
		return nil, fmt.Errorf("settle orders: %w", err)
	}

	if req.TableID != nil {
		if _, err := store.UpdateTableStatus(ctx, database.UpdateTableStatusParams{
			ID:     *req.TableID,
			Status: enum.TableStatusAvailable,
		}); err != nil {
			return nil, fmt.Errorf("free table: %w", err)
		}
	}

	result := &CloseTabResult{
		OrdersSettled: settled,
		AmountPaid:    money.FinalPayable(total, discount, req.Tip),
	}

	session, err := store.GetActiveCashSession(ctx)
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		// No drawer open; movements are skipped, not an error.
		return result, tx.Commit(ctx)
	case err != nil:
		return nil, fmt.Errorf("get active session: %w", err)
	}

	if req.Tip.IsPositive() {
		if _, err := store.CreateCashMovement(ctx, database.CreateCashMovementParams{
			SessionID:   session.ID,
			Type:        enum.MovementTypeTip,
			Amount:      database.DecimalToNumeric(req.Tip),
			Description: pgtype.Text{String: "Propina - " + req.Label, Valid: true},
			CreatedBy:   req.ClosedBy,
		}); err != nil {
			return nil, fmt.Errorf("record tip movement: %w", err)
		}
		result.TipRecorded = true
	}

	if req.PaymentMethod == enum.PaymentMethodCash && result.AmountPaid.IsPositive() {
		if _, err := store.CreateCashMovement(ctx, database.CreateCashMovementParams{
			SessionID:   session.ID,
			Type:        enum.MovementTypeSale,
			Amount:      database.DecimalToNumeric(result.AmountPaid),
			Description: pgtype.Text{String: "Venta - " + req.Label, Valid: true},
			OrderID:     pgtype.UUID{Bytes: req.OrderIDs[0], Valid: true},
			CreatedBy:   req.ClosedBy,
		}); err != nil {
			return nil, fmt.Errorf("record sale movement: %w", err)
		}
		result.SaleRecorded = true
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}
	return result, nil
}
