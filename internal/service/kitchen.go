package service

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/andaluza-pos/api/internal/database"
	"github.com/andaluza-pos/api/internal/enum"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// Kitchen phases derived from item statuses.
const (
	PhasePending   = "pending"
	PhasePreparing = "preparing"
	PhaseReady     = "ready"
	PhaseDone      = "done"
)

var ErrOrderNotFound = errors.New("order not found")

// statusRank orders item statuses along the kitchen pipeline. Cancelled items
// carry no rank; they are excluded from phase computation entirely.
var statusRank = map[string]int{
	enum.OrderItemStatusPending:   0,
	enum.OrderItemStatusPreparing: 1,
	enum.OrderItemStatusReady:     2,
	enum.OrderItemStatusDelivered: 3,
}

// Phase derives an order's kitchen phase from its item statuses: the minimum
// rank among non-cancelled items wins, so an order is only as ready as its
// slowest item. An order with no active items is done.
func Phase(itemStatuses []string) string {
	minRank := -1
	for _, s := range itemStatuses {
		if s == enum.OrderItemStatusCancelled {
			continue
		}
		rank, ok := statusRank[s]
		if !ok {
			rank = 0
		}
		if minRank < 0 || rank < minRank {
			minRank = rank
		}
	}
	switch minRank {
	case 0:
		return PhasePending
	case 1:
		return PhasePreparing
	case 2:
		return PhaseReady
	default:
		return PhaseDone
	}
}

// KitchenStore defines the DB methods the kitchen engine needs.
// Satisfied by *database.Queries (and its WithTx variant).
type KitchenStore interface {
	GetOrder(ctx context.Context, id uuid.UUID) (database.Order, error)
	ListOrderItemsByOrder(ctx context.Context, orderID uuid.UUID) ([]database.OrderItem, error)
	AdvanceOrderItems(ctx context.Context, arg database.AdvanceOrderItemsParams) (int64, error)
	CompleteOrder(ctx context.Context, id uuid.UUID) (database.Order, error)
	ListKitchenOrders(ctx context.Context) ([]database.Order, error)
	ListKitchenItemsByOrders(ctx context.Context, orderIDs []uuid.UUID) ([]database.KitchenItemRow, error)
}

// NewKitchenStore creates a KitchenStore from a DBTX (pool or tx).
type NewKitchenStore func(db database.DBTX) KitchenStore

// KitchenService drives the kitchen display: active queue and the
// one-button phase advance. Reads go through store; Advance runs in its own
// transaction via pool + newStore.
type KitchenService struct {
	store    KitchenStore
	pool     TxBeginner
	newStore NewKitchenStore
}

func NewKitchenService(store KitchenStore, pool TxBeginner, newStore NewKitchenStore) *KitchenService {
	return &KitchenService{store: store, pool: pool, newStore: newStore}
}

// KitchenOrder is an active order with its items and derived phase.
type KitchenOrder struct {
	Order database.Order
	Items []database.KitchenItemRow
	Phase string
}

// ListActive returns the kitchen queue: open and in_progress orders with
// their items, oldest first. Cancelled orders never appear here.
func (s *KitchenService) ListActive(ctx context.Context) ([]KitchenOrder, error) {
	orders, err := s.store.ListKitchenOrders(ctx)
	if err != nil {
		return nil, fmt.Errorf("list kitchen orders: %w", err)
	}
	if len(orders) == 0 {
		return []KitchenOrder{}, nil
	}

	ids := make([]uuid.UUID, len(orders))
	for i, o := range orders {
		ids[i] = o.ID
	}
	items, err := s.store.ListKitchenItemsByOrders(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("list kitchen items: %w", err)
	}

	itemsByOrder := make(map[uuid.UUID][]database.KitchenItemRow)
	for _, item := range items {
		itemsByOrder[item.OrderID] = append(itemsByOrder[item.OrderID], item)
	}

	result := make([]KitchenOrder, len(orders))
	for i, o := range orders {
		orderItems := itemsByOrder[o.ID]
		statuses := make([]string, len(orderItems))
		for j, it := range orderItems {
			statuses[j] = it.Status
		}
		result[i] = KitchenOrder{Order: o, Items: orderItems, Phase: Phase(statuses)}
	}
	return result, nil
}

// AdvanceResult reports what a single advance action did.
type AdvanceResult struct {
	OrderID     uuid.UUID
	PhaseBefore string
	PhaseAfter  string
	ItemsMoved  int64
	OrderClosed bool
}

// Advance moves every item currently at the order's minimum rank to the next
// status, in one transaction. The batch update is keyed on the current
// status, so items another terminal already advanced are skipped and a
// re-click is a no-op rather than a double advance. The ready phase also
// completes the order itself; done is a fixed point.
func (s *KitchenService) Advance(ctx context.Context, orderID uuid.UUID) (*AdvanceResult, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)

	if _, err := store.GetOrder(ctx, orderID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("get order: %w", err)
	}

	items, err := store.ListOrderItemsByOrder(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("list order items: %w", err)
	}

	statuses := make([]string, len(items))
	for i, it := range items {
		statuses[i] = it.Status
	}
	phase := Phase(statuses)

	result := &AdvanceResult{OrderID: orderID, PhaseBefore: phase, PhaseAfter: phase}

	var from, to string
	switch phase {
	case PhasePending:
		from, to = enum.OrderItemStatusPending, enum.OrderItemStatusPreparing
		result.PhaseAfter = PhasePreparing
	case PhasePreparing:
		from, to = enum.OrderItemStatusPreparing, enum.OrderItemStatusReady
		result.PhaseAfter = PhaseReady
	case PhaseReady:
		from, to = enum.OrderItemStatusReady, enum.OrderItemStatusDelivered
		result.PhaseAfter = PhaseDone
	case PhaseDone:
		// Nothing left to move.
		return result, tx.Commit(ctx)
	}

	moved, err := store.AdvanceOrderItems(ctx, database.AdvanceOrderItemsParams{
		OrderID:    orderID,
		FromStatus: from,
		ToStatus:   to,
	})
	if err != nil {
		return nil, fmt.Errorf("advance order items: %w", err)
	}
	result.ItemsMoved = moved

	// Delivering the last wave is the only kitchen path that completes an
	// order; payment state is tracked separately on the tab.
	if phase == PhaseReady {
		if _, err := store.CompleteOrder(ctx, orderID); err != nil {
			return nil, fmt.Errorf("complete order: %w", err)
		}
		result.OrderClosed = true
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}
	return result, nil
}

// Tracker remembers which order ids the kitchen display has already seen, so
// a refresh can ring the new-order chime at most once per cycle no matter
// how many orders arrived in the burst. The first observation only seeds the
// snapshot.
type Tracker struct {
	mu    sync.Mutex
	seen  map[uuid.UUID]bool
	ready bool
}

func NewTracker() *Tracker {
	return &Tracker{seen: make(map[uuid.UUID]bool)}
}

// Observe records the current active-order snapshot and reports whether any
// order in it was not present in the previous one.
func (t *Tracker) Observe(ids []uuid.UUID) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	next := make(map[uuid.UUID]bool, len(ids))
	hasNew := false
	for _, id := range ids {
		next[id] = true
		if !t.seen[id] {
			hasNew = true
		}
	}

	first := !t.ready
	t.seen = next
	t.ready = true
	if first {
		return false
	}
	return hasNew
}
