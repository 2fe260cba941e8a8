package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/andaluza-pos/api/internal/middleware"
	"github.com/andaluza-pos/api/internal/service"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// TabServicer defines the service methods needed by tab handlers.
// Satisfied by *service.TabService; narrow interface for testability.
type TabServicer interface {
	ListOpen(ctx context.Context) ([]service.Tab, error)
	CloseTab(ctx context.Context, req service.CloseTabRequest) (*service.CloseTabResult, error)
}

// TabHandler handles the open-tabs board and settlement.
type TabHandler struct {
	svc       TabServicer
	broadcast Broadcaster
}

// NewTabHandler creates a new TabHandler.
func NewTabHandler(svc TabServicer, broadcast Broadcaster) *TabHandler {
	return &TabHandler{svc: svc, broadcast: broadcast}
}

// RegisterRoutes registers tab endpoints on the given Chi router.
func (h *TabHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.List)
	r.Post("/close", h.Close)
}

// --- Request / Response types ---

type tabLineResponse struct {
	ProductName string `json:"product_name"`
	Quantity    int32  `json:"quantity"`
	UnitPrice   string `json:"unit_price"`
	Subtotal    string `json:"subtotal"`
}

type tabResponse struct {
	Key         string            `json:"key"`
	Label       string            `json:"label"`
	TableID     *uuid.UUID        `json:"table_id"`
	OrderType   string            `json:"order_type"`
	OrderIDs    []uuid.UUID       `json:"order_ids"`
	Items       []tabLineResponse `json:"items"`
	Subtotal    string            `json:"subtotal"`
	Tax         string            `json:"tax"`
	Total       string            `json:"total"`
	OldestOrder time.Time         `json:"oldest_order"`
}

type closeTabRequest struct {
	OrderIDs      []string `json:"order_ids"`
	TableID       string   `json:"table_id"`
	Label         string   `json:"label"`
	PaymentMethod string   `json:"payment_method"`
	Discount      string   `json:"discount"`
	Tip           string   `json:"tip"`
}

type closeTabResponse struct {
	OrdersSettled int64  `json:"orders_settled"`
	AmountPaid    string `json:"amount_paid"`
	SaleRecorded  bool   `json:"sale_recorded"`
	TipRecorded   bool   `json:"tip_recorded"`
}

func toTabResponse(t service.Tab) tabResponse {
	resp := tabResponse{
		Key:         t.Key,
		Label:       t.Label,
		TableID:     t.TableID,
		OrderType:   t.OrderType,
		OrderIDs:    t.OrderIDs,
		Items:       []tabLineResponse{},
		Subtotal:    t.Subtotal.StringFixed(2),
		Tax:         t.Tax.StringFixed(2),
		Total:       t.Total.StringFixed(2),
		OldestOrder: t.OldestOrder,
	}
	for _, line := range t.Items {
		resp.Items = append(resp.Items, tabLineResponse{
			ProductName: line.ProductName,
			Quantity:    line.Quantity,
			UnitPrice:   line.UnitPrice.StringFixed(2),
			Subtotal:    line.Subtotal.StringFixed(2),
		})
	}
	return resp
}

// --- Handlers ---

// List handles GET /tabs: every unpaid order grouped into tabs.
func (h *TabHandler) List(w http.ResponseWriter, r *http.Request) {
	tabs, err := h.svc.ListOpen(r.Context())
	if err != nil {
		log.Printf("ERROR: list open tabs: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	resp := make([]tabResponse, len(tabs))
	for i, t := range tabs {
		resp[i] = toTabResponse(t)
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"tabs": resp})
}

// Close handles POST /tabs/close: settles all orders of one tab.
func (h *TabHandler) Close(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "not authenticated"})
		return
	}

	var req closeTabRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if len(req.OrderIDs) == 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "order_ids are required"})
		return
	}
	if req.PaymentMethod == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "payment_method is required"})
		return
	}

	orderIDs := make([]uuid.UUID, len(req.OrderIDs))
	for i, s := range req.OrderIDs {
		id, err := uuid.Parse(s)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid order ID: " + s})
			return
		}
		orderIDs[i] = id
	}

	var tableID *uuid.UUID
	if req.TableID != "" {
		id, err := uuid.Parse(req.TableID)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid table ID"})
			return
		}
		tableID = &id
	}

	discount, err := parseAmount(req.Discount)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid discount"})
		return
	}
	tip, err := parseAmount(req.Tip)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid tip"})
		return
	}

	result, err := h.svc.CloseTab(r.Context(), service.CloseTabRequest{
		OrderIDs:      orderIDs,
		TableID:       tableID,
		Label:         req.Label,
		PaymentMethod: req.PaymentMethod,
		Discount:      discount,
		Tip:           tip,
		ClosedBy:      claims.UserID,
	})
	if err != nil {
		switch {
		case errors.Is(err, service.ErrEmptyTab),
			errors.Is(err, service.ErrInvalidPaymentMethod),
			errors.Is(err, service.ErrNegativeDiscount),
			errors.Is(err, service.ErrNegativeTip):
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
			return
		}
		log.Printf("ERROR: close tab: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	h.broadcast.Notify("orders", "UPDATE", map[string]interface{}{"order_ids": req.OrderIDs})
	if tableID != nil {
		h.broadcast.Notify("tables", "UPDATE", map[string]string{"id": tableID.String()})
	}
	if result.SaleRecorded || result.TipRecorded {
		h.broadcast.Notify("cash_register_movements", "INSERT", nil)
	}

	writeJSON(w, http.StatusOK, closeTabResponse{
		OrdersSettled: result.OrdersSettled,
		AmountPaid:    result.AmountPaid.StringFixed(2),
		SaleRecorded:  result.SaleRecorded,
		TipRecorded:   result.TipRecorded,
	})
}

// parseAmount parses an optional decimal string, treating empty as zero.
func parseAmount(s string) (decimal.Decimal, error) {
	if s == "" {
		return decimal.Zero, nil
	}
	return decimal.NewFromString(s)
}
