package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/andaluza-pos/api/internal/database"
	"github.com/andaluza-pos/api/internal/enum"
	"github.com/andaluza-pos/api/internal/middleware"
	"github.com/andaluza-pos/api/internal/service"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

// OrderServicer defines the service methods needed by order handlers.
// Satisfied by *service.OrderService; narrow interface for testability.
type OrderServicer interface {
	CreateOrder(ctx context.Context, req service.CreateOrderRequest) (*service.CreateOrderResult, error)
}

// OrderStore defines the database methods needed by order read/update handlers.
// Satisfied by *database.Queries; narrow interface for testability.
type OrderStore interface {
	GetOrder(ctx context.Context, id uuid.UUID) (database.Order, error)
	ListOrders(ctx context.Context, arg database.ListOrdersParams) ([]database.Order, error)
	ListOrderItemsByOrder(ctx context.Context, orderID uuid.UUID) ([]database.OrderItem, error)
	ListOrderItemModifiersByItems(ctx context.Context, itemIDs []uuid.UUID) ([]database.OrderItemModifier, error)
	UpdateOrderStatus(ctx context.Context, arg database.UpdateOrderStatusParams) (database.Order, error)
	CancelOrder(ctx context.Context, id uuid.UUID) (database.Order, error)
	UpdateTableStatus(ctx context.Context, arg database.UpdateTableStatusParams) (database.Table, error)
}

// OrderHandler handles order endpoints.
type OrderHandler struct {
	svc       OrderServicer
	store     OrderStore
	broadcast Broadcaster
}

// NewOrderHandler creates a new OrderHandler.
func NewOrderHandler(svc OrderServicer, store OrderStore, broadcast Broadcaster) *OrderHandler {
	return &OrderHandler{svc: svc, store: store, broadcast: broadcast}
}

// RegisterRoutes registers order endpoints on the given Chi router.
func (h *OrderHandler) RegisterRoutes(r chi.Router) {
	r.Post("/", h.Create)
	r.Get("/", h.List)
	r.Get("/{id}", h.Get)
	r.Patch("/{id}/status", h.UpdateStatus)
	r.Delete("/{id}", h.Cancel)
}

// --- Request / Response types ---

type createOrderRequest struct {
	OrderType string                   `json:"order_type"`
	TableID   string                   `json:"table_id"`
	Notes     string                   `json:"notes"`
	Items     []createOrderItemRequest `json:"items"`
}

type createOrderItemRequest struct {
	ProductID string   `json:"product_id"`
	Quantity  int32    `json:"quantity"`
	Notes     string   `json:"notes"`
	Modifiers []string `json:"modifiers"`
}

type orderResponse struct {
	ID            uuid.UUID           `json:"id"`
	TableID       *string             `json:"table_id"`
	Status        string              `json:"status"`
	OrderType     string              `json:"order_type"`
	Subtotal      string              `json:"subtotal"`
	Tax           string              `json:"tax"`
	Total         string              `json:"total"`
	PaymentMethod *string             `json:"payment_method"`
	Discount      string              `json:"discount"`
	Tip           string              `json:"tip"`
	Notes         *string             `json:"notes"`
	CreatedBy     uuid.UUID           `json:"created_by"`
	CreatedAt     time.Time           `json:"created_at"`
	UpdatedAt     time.Time           `json:"updated_at"`
	Items         []orderItemResponse `json:"items,omitempty"`
}

type orderItemResponse struct {
	ID              uuid.UUID                   `json:"id"`
	ProductID       uuid.UUID                   `json:"product_id"`
	Quantity        int32                       `json:"quantity"`
	UnitPrice       string                      `json:"unit_price"`
	Subtotal        string                      `json:"subtotal"`
	Status          string                      `json:"status"`
	Notes           *string                     `json:"notes"`
	SentToKitchenAt *time.Time                  `json:"sent_to_kitchen_at"`
	Modifiers       []orderItemModifierResponse `json:"modifiers,omitempty"`
}

type orderItemModifierResponse struct {
	ID            uuid.UUID `json:"id"`
	ModifierID    uuid.UUID `json:"modifier_id"`
	ModifierName  string    `json:"modifier_name"`
	PriceOverride string    `json:"price_override"`
}

type createOrderResponse struct {
	orderResponse
	Appended bool `json:"appended"`
}

type updateStatusRequest struct {
	Status string `json:"status"`
}

func dbOrderToResponse(o database.Order) orderResponse {
	return orderResponse{
		ID:            o.ID,
		TableID:       uuidPtr(o.TableID),
		Status:        o.Status,
		OrderType:     o.OrderType,
		Subtotal:      amount(o.Subtotal),
		Tax:           amount(o.Tax),
		Total:         amount(o.Total),
		PaymentMethod: textPtr(o.PaymentMethod),
		Discount:      amount(o.Discount),
		Tip:           amount(o.Tip),
		Notes:         textPtr(o.Notes),
		CreatedBy:     o.CreatedBy,
		CreatedAt:     o.CreatedAt,
		UpdatedAt:     o.UpdatedAt,
	}
}

func dbOrderItemToResponse(item database.OrderItem, mods []database.OrderItemModifier) orderItemResponse {
	resp := orderItemResponse{
		ID:        item.ID,
		ProductID: item.ProductID,
		Quantity:  item.Quantity,
		UnitPrice: amount(item.UnitPrice),
		Subtotal:  amount(item.Subtotal),
		Status:    item.Status,
		Notes:     textPtr(item.Notes),
	}
	if item.SentToKitchenAt.Valid {
		t := item.SentToKitchenAt.Time
		resp.SentToKitchenAt = &t
	}
	for _, m := range mods {
		resp.Modifiers = append(resp.Modifiers, orderItemModifierResponse{
			ID:            m.ID,
			ModifierID:    m.ModifierID,
			ModifierName:  m.ModifierName,
			PriceOverride: amount(m.PriceOverride),
		})
	}
	return resp
}

// --- Handlers ---

// Create handles POST /orders. Items for a table that already has an open
// unpaid order are appended to it; the response reports which path was taken.
func (h *OrderHandler) Create(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "not authenticated"})
		return
	}

	var req createOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	if req.OrderType == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "order_type is required"})
		return
	}
	if len(req.Items) == 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "items are required"})
		return
	}
	for i, item := range req.Items {
		if item.ProductID == "" {
			writeJSON(w, http.StatusBadRequest, map[string]string{
				"error": fmt.Sprintf("items[%d]: product_id is required", i),
			})
			return
		}
		if item.Quantity <= 0 {
			writeJSON(w, http.StatusBadRequest, map[string]string{
				"error": fmt.Sprintf("items[%d]: quantity must be > 0", i),
			})
			return
		}
	}

	svcItems := make([]service.CreateOrderItemRequest, len(req.Items))
	for i, item := range req.Items {
		svcItems[i] = service.CreateOrderItemRequest{
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
			Notes:     item.Notes,
			Modifiers: item.Modifiers,
		}
	}

	result, err := h.svc.CreateOrder(r.Context(), service.CreateOrderRequest{
		CreatedBy: claims.UserID,
		OrderType: req.OrderType,
		TableID:   req.TableID,
		Notes:     req.Notes,
		Items:     svcItems,
	})
	if err != nil {
		if isValidationError(err) {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
			return
		}
		log.Printf("ERROR: create order: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	// Seating a dine-in party marks the table occupied.
	if !result.Appended && result.Order.TableID.Valid {
		if _, err := h.store.UpdateTableStatus(r.Context(), database.UpdateTableStatusParams{
			ID:     uuid.UUID(result.Order.TableID.Bytes),
			Status: enum.TableStatusOccupied,
		}); err != nil {
			log.Printf("ERROR: mark table occupied: %v", err)
		} else {
			h.broadcast.Notify("tables", "UPDATE", map[string]string{"id": pgUUIDString(result.Order.TableID)})
		}
	}

	resp := toCreateOrderResponse(result)
	// Appending to an existing tab order updates it rather than creating one.
	status := http.StatusCreated
	event := "INSERT"
	if result.Appended {
		status = http.StatusOK
		event = "UPDATE"
	}
	h.broadcast.Notify("orders", event, resp.orderResponse)
	h.broadcast.Notify("order_items", "INSERT", map[string]string{"order_id": result.Order.ID.String()})

	writeJSON(w, status, resp)
}

func toCreateOrderResponse(result *service.CreateOrderResult) createOrderResponse {
	resp := createOrderResponse{
		orderResponse: dbOrderToResponse(result.Order),
		Appended:      result.Appended,
	}
	for _, ir := range result.Items {
		resp.Items = append(resp.Items, dbOrderItemToResponse(ir.Item, ir.Modifiers))
	}
	return resp
}

// List handles GET /orders with optional status, type and date filters.
func (h *OrderHandler) List(w http.ResponseWriter, r *http.Request) {
	limit := 20
	if s := r.URL.Query().Get("limit"); s != "" {
		if v, err := strconv.Atoi(s); err == nil && v > 0 {
			limit = v
		}
	}
	if limit > 100 {
		limit = 100
	}

	offset := 0
	if s := r.URL.Query().Get("offset"); s != "" {
		if v, err := strconv.Atoi(s); err == nil && v >= 0 {
			offset = v
		}
	}

	params := database.ListOrdersParams{
		Limit:  int32(limit),
		Offset: int32(offset),
	}
	if s := r.URL.Query().Get("status"); s != "" {
		if !enum.IsValidOrderStatus(s) {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid status filter"})
			return
		}
		params.Status = pgtype.Text{String: s, Valid: true}
	}
	if s := r.URL.Query().Get("type"); s != "" {
		if !enum.IsValidOrderType(s) {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid type filter"})
			return
		}
		params.OrderType = pgtype.Text{String: s, Valid: true}
	}
	if s := r.URL.Query().Get("start_date"); s != "" {
		t, err := time.Parse("2006-01-02", s)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid start_date format, use YYYY-MM-DD"})
			return
		}
		params.StartDate = pgtype.Timestamptz{Time: t, Valid: true}
	}
	if s := r.URL.Query().Get("end_date"); s != "" {
		t, err := time.Parse("2006-01-02", s)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid end_date format, use YYYY-MM-DD"})
			return
		}
		params.EndDate = pgtype.Timestamptz{Time: t.AddDate(0, 0, 1), Valid: true}
	}

	orders, err := h.store.ListOrders(r.Context(), params)
	if err != nil {
		log.Printf("ERROR: list orders: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	resp := make([]orderResponse, len(orders))
	for i, o := range orders {
		resp[i] = dbOrderToResponse(o)
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"orders": resp,
		"limit":  limit,
		"offset": offset,
	})
}

// Get handles GET /orders/{id}.
func (h *OrderHandler) Get(w http.ResponseWriter, r *http.Request) {
	orderID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid order ID"})
		return
	}

	order, err := h.store.GetOrder(r.Context(), orderID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "order not found"})
			return
		}
		log.Printf("ERROR: get order: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	items, err := h.store.ListOrderItemsByOrder(r.Context(), orderID)
	if err != nil {
		log.Printf("ERROR: list order items: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	itemIDs := make([]uuid.UUID, len(items))
	for i, item := range items {
		itemIDs[i] = item.ID
	}
	var mods []database.OrderItemModifier
	if len(itemIDs) > 0 {
		mods, err = h.store.ListOrderItemModifiersByItems(r.Context(), itemIDs)
		if err != nil {
			log.Printf("ERROR: list order item modifiers: %v", err)
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
			return
		}
	}
	modsByItem := make(map[uuid.UUID][]database.OrderItemModifier)
	for _, m := range mods {
		modsByItem[m.OrderItemID] = append(modsByItem[m.OrderItemID], m)
	}

	resp := dbOrderToResponse(order)
	for _, item := range items {
		resp.Items = append(resp.Items, dbOrderItemToResponse(item, modsByItem[item.ID]))
	}
	writeJSON(w, http.StatusOK, resp)
}

// UpdateStatus handles PATCH /orders/{id}/status.
func (h *OrderHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	orderID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid order ID"})
		return
	}

	var req updateStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if !enum.IsValidOrderStatus(req.Status) {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid status"})
		return
	}

	order, err := h.store.UpdateOrderStatus(r.Context(), database.UpdateOrderStatusParams{
		ID:     orderID,
		Status: req.Status,
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "order not found"})
			return
		}
		log.Printf("ERROR: update order status: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	h.broadcast.Notify("orders", "UPDATE", dbOrderToResponse(order))
	writeJSON(w, http.StatusOK, dbOrderToResponse(order))
}

// Cancel handles DELETE /orders/{id}. Completed and already-cancelled orders
// cannot be cancelled.
func (h *OrderHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	orderID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid order ID"})
		return
	}

	order, err := h.store.CancelOrder(r.Context(), orderID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusConflict, map[string]string{"error": "order not found or already finalized"})
			return
		}
		log.Printf("ERROR: cancel order: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	h.broadcast.Notify("orders", "UPDATE", dbOrderToResponse(order))
	writeJSON(w, http.StatusOK, dbOrderToResponse(order))
}

// isValidationError reports whether err is a client-input error from the
// order service.
func isValidationError(err error) bool {
	return errors.Is(err, service.ErrEmptyItems) ||
		errors.Is(err, service.ErrInvalidOrderType) ||
		errors.Is(err, service.ErrInvalidQuantity) ||
		errors.Is(err, service.ErrInvalidProductID) ||
		errors.Is(err, service.ErrInvalidModifierID) ||
		errors.Is(err, service.ErrInvalidTableID) ||
		errors.Is(err, service.ErrProductNotFound) ||
		errors.Is(err, service.ErrModifierNotFound)
}
