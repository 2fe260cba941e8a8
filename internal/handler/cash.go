package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/andaluza-pos/api/internal/database"
	"github.com/andaluza-pos/api/internal/middleware"
	"github.com/andaluza-pos/api/internal/service"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CashServicer defines the service methods needed by cash register handlers.
// Satisfied by *service.CashService; narrow interface for testability.
type CashServicer interface {
	OpenSession(ctx context.Context, openedBy uuid.UUID, openingAmount decimal.Decimal) (*database.CashRegisterSession, error)
	CloseSession(ctx context.Context, closedBy uuid.UUID, closingAmount decimal.Decimal, notes string) (*service.CloseSessionResult, error)
	AddMovement(ctx context.Context, createdBy uuid.UUID, movementType string, amount decimal.Decimal, description string) (*database.CashRegisterMovement, error)
	Summary(ctx context.Context) (*service.SessionSummary, error)
	History(ctx context.Context, limit int32) ([]database.CashRegisterSession, error)
}

// CashHandler handles cash register session endpoints.
type CashHandler struct {
	svc       CashServicer
	broadcast Broadcaster
}

// NewCashHandler creates a new CashHandler.
func NewCashHandler(svc CashServicer, broadcast Broadcaster) *CashHandler {
	return &CashHandler{svc: svc, broadcast: broadcast}
}

// RegisterRoutes registers cash register endpoints on the given Chi router.
func (h *CashHandler) RegisterRoutes(r chi.Router) {
	r.Post("/sessions", h.Open)
	r.Post("/sessions/close", h.Close)
	r.Get("/sessions/current", h.Summary)
	r.Get("/sessions/history", h.History)
	r.Post("/movements", h.AddMovement)
}

// --- Request / Response types ---

type openSessionRequest struct {
	OpeningAmount string `json:"opening_amount"`
}

type closeSessionRequest struct {
	ClosingAmount string `json:"closing_amount"`
	Notes         string `json:"notes"`
}

type addMovementRequest struct {
	Type        string `json:"type"`
	Amount      string `json:"amount"`
	Description string `json:"description"`
}

type sessionResponse struct {
	ID             uuid.UUID  `json:"id"`
	OpenedBy       uuid.UUID  `json:"opened_by"`
	ClosedBy       *string    `json:"closed_by"`
	OpeningAmount  string     `json:"opening_amount"`
	ClosingAmount  *string    `json:"closing_amount"`
	ExpectedAmount *string    `json:"expected_amount"`
	Difference     *string    `json:"difference"`
	OpenedAt       time.Time  `json:"opened_at"`
	ClosedAt       *time.Time `json:"closed_at"`
	Notes          *string    `json:"notes"`
}

type movementResponse struct {
	ID          uuid.UUID `json:"id"`
	Type        string    `json:"type"`
	Amount      string    `json:"amount"`
	Description *string   `json:"description"`
	OrderID     *string   `json:"order_id"`
	CreatedBy   uuid.UUID `json:"created_by"`
	CreatedAt   time.Time `json:"created_at"`
}

type summaryResponse struct {
	Session   sessionResponse    `json:"session"`
	Movements []movementResponse `json:"movements"`
	Expected  string             `json:"expected"`
	Sales     string             `json:"sales"`
	Deposits  string             `json:"deposits"`
	Tips      string             `json:"tips"`
	Withdrawn string             `json:"withdrawn"`
}

type closeSessionResponse struct {
	Session    sessionResponse `json:"session"`
	Expected   string          `json:"expected"`
	Difference string          `json:"difference"`
}

func toSessionResponse(s database.CashRegisterSession) sessionResponse {
	resp := sessionResponse{
		ID:            s.ID,
		OpenedBy:      s.OpenedBy,
		ClosedBy:      uuidPtr(s.ClosedBy),
		OpeningAmount: amount(s.OpeningAmount),
		OpenedAt:      s.OpenedAt,
		Notes:         textPtr(s.Notes),
	}
	if s.ClosingAmount.Valid {
		v := amount(s.ClosingAmount)
		resp.ClosingAmount = &v
	}
	if s.ExpectedAmount.Valid {
		v := amount(s.ExpectedAmount)
		resp.ExpectedAmount = &v
	}
	if s.Difference.Valid {
		v := amount(s.Difference)
		resp.Difference = &v
	}
	if s.ClosedAt.Valid {
		t := s.ClosedAt.Time
		resp.ClosedAt = &t
	}
	return resp
}

func toMovementResponse(m database.CashRegisterMovement) movementResponse {
	return movementResponse{
		ID:          m.ID,
		Type:        m.Type,
		Amount:      amount(m.Amount),
		Description: textPtr(m.Description),
		OrderID:     uuidPtr(m.OrderID),
		CreatedBy:   m.CreatedBy,
		CreatedAt:   m.CreatedAt,
	}
}

// --- Handlers ---

// Open handles POST /cash/sessions: opens the drawer with a counted float.
func (h *CashHandler) Open(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "not authenticated"})
		return
	}

	var req openSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	opening, err := parseAmount(req.OpeningAmount)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid opening_amount"})
		return
	}

	session, err := h.svc.OpenSession(r.Context(), claims.UserID, opening)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrSessionAlreadyOpen):
			writeJSON(w, http.StatusConflict, map[string]string{"error": err.Error()})
			return
		case errors.Is(err, service.ErrNegativeAmount):
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
			return
		}
		log.Printf("ERROR: open cash session: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	h.broadcast.Notify("cash_register_sessions", "INSERT", toSessionResponse(*session))
	writeJSON(w, http.StatusCreated, toSessionResponse(*session))
}

// Close handles POST /cash/sessions/close: reconciles against the counted
// drawer and closes the session.
func (h *CashHandler) Close(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "not authenticated"})
		return
	}

	var req closeSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	closing, err := parseAmount(req.ClosingAmount)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid closing_amount"})
		return
	}

	result, err := h.svc.CloseSession(r.Context(), claims.UserID, closing, req.Notes)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrNoActiveSession):
			writeJSON(w, http.StatusConflict, map[string]string{"error": err.Error()})
			return
		case errors.Is(err, service.ErrNegativeAmount):
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
			return
		}
		log.Printf("ERROR: close cash session: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	h.broadcast.Notify("cash_register_sessions", "UPDATE", toSessionResponse(result.Session))
	writeJSON(w, http.StatusOK, closeSessionResponse{
		Session:    toSessionResponse(result.Session),
		Expected:   result.Expected.StringFixed(2),
		Difference: result.Difference.StringFixed(2),
	})
}

// Summary handles GET /cash/sessions/current: the open drawer with its
// movements and running expected amount.
func (h *CashHandler) Summary(w http.ResponseWriter, r *http.Request) {
	summary, err := h.svc.Summary(r.Context())
	if err != nil {
		if errors.Is(err, service.ErrNoActiveSession) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": err.Error()})
			return
		}
		log.Printf("ERROR: cash session summary: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	movements := make([]movementResponse, len(summary.Movements))
	for i, m := range summary.Movements {
		movements[i] = toMovementResponse(m)
	}
	writeJSON(w, http.StatusOK, summaryResponse{
		Session:   toSessionResponse(summary.Session),
		Movements: movements,
		Expected:  summary.Expected.StringFixed(2),
		Sales:     summary.Sales.StringFixed(2),
		Deposits:  summary.Deposits.StringFixed(2),
		Tips:      summary.Tips.StringFixed(2),
		Withdrawn: summary.Withdrawn.StringFixed(2),
	})
}

// History handles GET /cash/sessions/history: recent closed sessions.
func (h *CashHandler) History(w http.ResponseWriter, r *http.Request) {
	limit := int32(30)
	if s := r.URL.Query().Get("limit"); s != "" {
		if v, err := strconv.Atoi(s); err == nil && v > 0 {
			limit = int32(v)
		}
	}

	sessions, err := h.svc.History(r.Context(), limit)
	if err != nil {
		log.Printf("ERROR: cash session history: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	resp := make([]sessionResponse, len(sessions))
	for i, s := range sessions {
		resp[i] = toSessionResponse(s)
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"sessions": resp})
}

// AddMovement handles POST /cash/movements: manual deposits and withdrawals.
func (h *CashHandler) AddMovement(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "not authenticated"})
		return
	}

	var req addMovementRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	amt, err := parseAmount(req.Amount)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid amount"})
		return
	}

	movement, err := h.svc.AddMovement(r.Context(), claims.UserID, req.Type, amt, req.Description)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidMovementType),
			errors.Is(err, service.ErrNegativeAmount):
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
			return
		case errors.Is(err, service.ErrNoActiveSession):
			writeJSON(w, http.StatusConflict, map[string]string{"error": err.Error()})
			return
		}
		log.Printf("ERROR: add cash movement: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	h.broadcast.Notify("cash_register_movements", "INSERT", toMovementResponse(*movement))
	writeJSON(w, http.StatusCreated, toMovementResponse(*movement))
}
