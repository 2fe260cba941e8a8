package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

const cashSessionColumns = `id, opened_by, closed_by, opening_amount, closing_amount,
	expected_amount, difference, opened_at, closed_at, notes`

type CreateCashSessionParams struct {
	OpenedBy      uuid.UUID
	OpeningAmount pgtype.Numeric
}

const createCashSession = `
INSERT INTO cash_register_sessions (opened_by, opening_amount)
VALUES ($1, $2)
RETURNING ` + cashSessionColumns + `
`

// CreateCashSession inserts a new open session. The partial unique index
// cash_register_sessions_one_open_idx rejects a second open session with a
// 23505, which the service maps to ErrSessionAlreadyOpen.
func (q *Queries) CreateCashSession(ctx context.Context, arg CreateCashSessionParams) (CashRegisterSession, error) {
	return scanCashSession(q.db.QueryRow(ctx, createCashSession, arg.OpenedBy, arg.OpeningAmount))
}

const getActiveCashSession = `
SELECT ` + cashSessionColumns + `
FROM cash_register_sessions
WHERE closed_at IS NULL
ORDER BY opened_at DESC
LIMIT 1
`

// GetActiveCashSession returns the most recently opened session that is
// still open, or pgx.ErrNoRows.
func (q *Queries) GetActiveCashSession(ctx context.Context) (CashRegisterSession, error) {
	return scanCashSession(q.db.QueryRow(ctx, getActiveCashSession))
}

type CloseCashSessionParams struct {
	ID             uuid.UUID
	ClosedBy       uuid.UUID
	ClosingAmount  pgtype.Numeric
	ExpectedAmount pgtype.Numeric
	Difference     pgtype.Numeric
	Notes          pgtype.Text
}

const closeCashSession = `
UPDATE cash_register_sessions
SET closed_by = $2, closing_amount = $3, expected_amount = $4,
    difference = $5, notes = $6, closed_at = now()
WHERE id = $1 AND closed_at IS NULL
RETURNING ` + cashSessionColumns + `
`

// CloseCashSession only applies to a still-open session; pgx.ErrNoRows means
// someone else closed it first.
func (q *Queries) CloseCashSession(ctx context.Context, arg CloseCashSessionParams) (CashRegisterSession, error) {
	return scanCashSession(q.db.QueryRow(ctx, closeCashSession,
		arg.ID, arg.ClosedBy, arg.ClosingAmount, arg.ExpectedAmount, arg.Difference, arg.Notes))
}

const listClosedCashSessions = `
SELECT ` + cashSessionColumns + `
FROM cash_register_sessions
WHERE closed_at IS NOT NULL
ORDER BY closed_at DESC
LIMIT $1
`

func (q *Queries) ListClosedCashSessions(ctx context.Context, limit int32) ([]CashRegisterSession, error) {
	rows, err := q.db.Query(ctx, listClosedCashSessions, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []CashRegisterSession
	for rows.Next() {
		var s CashRegisterSession
		if err := rows.Scan(&s.ID, &s.OpenedBy, &s.ClosedBy, &s.OpeningAmount, &s.ClosingAmount,
			&s.ExpectedAmount, &s.Difference, &s.OpenedAt, &s.ClosedAt, &s.Notes); err != nil {
			return nil, err
		}
		result = append(result, s)
	}
	return result, rows.Err()
}

type CreateCashMovementParams struct {
	SessionID   uuid.UUID
	Type        string
	Amount      pgtype.Numeric
	Description pgtype.Text
	OrderID     pgtype.UUID
	CreatedBy   uuid.UUID
}

const createCashMovement = `
INSERT INTO cash_register_movements (session_id, type, amount, description, order_id, created_by)
VALUES ($1, $2, $3, $4, $5, $6)
RETURNING id, session_id, type, amount, description, order_id, created_by, created_at
`

func (q *Queries) CreateCashMovement(ctx context.Context, arg CreateCashMovementParams) (CashRegisterMovement, error) {
	var m CashRegisterMovement
	err := q.db.QueryRow(ctx, createCashMovement,
		arg.SessionID, arg.Type, arg.Amount, arg.Description, arg.OrderID, arg.CreatedBy).
		Scan(&m.ID, &m.SessionID, &m.Type, &m.Amount, &m.Description, &m.OrderID, &m.CreatedBy, &m.CreatedAt)
	return m, err
}

const listCashMovementsBySession = `
SELECT id, session_id, type, amount, description, order_id, created_by, created_at
FROM cash_register_movements
WHERE session_id = $1
ORDER BY created_at DESC
`

func (q *Queries) ListCashMovementsBySession(ctx context.Context, sessionID uuid.UUID) ([]CashRegisterMovement, error) {
	rows, err := q.db.Query(ctx, listCashMovementsBySession, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []CashRegisterMovement
	for rows.Next() {
		var m CashRegisterMovement
		if err := rows.Scan(&m.ID, &m.SessionID, &m.Type, &m.Amount, &m.Description,
			&m.OrderID, &m.CreatedBy, &m.CreatedAt); err != nil {
			return nil, err
		}
		result = append(result, m)
	}
	return result, rows.Err()
}

// MovementSumRow is the per-type movement total for one session.
type MovementSumRow struct {
	Type  string
	Total pgtype.Numeric
}

const sumCashMovementsBySession = `
SELECT type, COALESCE(SUM(amount), 0)
FROM cash_register_movements
WHERE session_id = $1
GROUP BY type
`

func (q *Queries) SumCashMovementsBySession(ctx context.Context, sessionID uuid.UUID) ([]MovementSumRow, error) {
	rows, err := q.db.Query(ctx, sumCashMovementsBySession, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []MovementSumRow
	for rows.Next() {
		var r MovementSumRow
		if err := rows.Scan(&r.Type, &r.Total); err != nil {
			return nil, err
		}
		result = append(result, r)
	}
	return result, rows.Err()
}

func scanCashSession(row interface{ Scan(dest ...any) error }) (CashRegisterSession, error) {
	var s CashRegisterSession
	err := row.Scan(&s.ID, &s.OpenedBy, &s.ClosedBy, &s.OpeningAmount, &s.ClosingAmount,
		&s.ExpectedAmount, &s.Difference, &s.OpenedAt, &s.ClosedAt, &s.Notes)
	return s, err
}
