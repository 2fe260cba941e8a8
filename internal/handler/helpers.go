package handler

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/andaluza-pos/api/internal/database"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

// Broadcaster pushes change events to subscribed WebSocket clients.
// Satisfied by *ws.Hub; narrow interface for testability.
type Broadcaster interface {
	Notify(table, event string, payload any)
}

// nopBroadcaster is used when no hub is wired (tests, CLI tools).
type nopBroadcaster struct{}

func (nopBroadcaster) Notify(table, event string, payload any) {}

// NopBroadcaster returns a Broadcaster that discards all events.
func NopBroadcaster() Broadcaster { return nopBroadcaster{} }

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("ERROR: encode response: %v", err)
	}
}

// amount renders a pgtype.Numeric as a fixed two-decimal string for JSON.
func amount(n pgtype.Numeric) string {
	return database.NumericToDecimal(n).StringFixed(2)
}

// textPtr converts a nullable text column to *string for JSON.
func textPtr(t pgtype.Text) *string {
	if !t.Valid {
		return nil
	}
	s := t.String
	return &s
}

// uuidPtr converts a nullable uuid column to *string for JSON.
func uuidPtr(u pgtype.UUID) *string {
	if !u.Valid {
		return nil
	}
	s := pgUUIDString(u)
	return &s
}

func pgUUIDString(u pgtype.UUID) string {
	return uuid.UUID(u.Bytes).String()
}
