package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/andaluza-pos/api/internal/database"
	"github.com/andaluza-pos/api/internal/enum"
	"github.com/andaluza-pos/api/internal/money"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
)

var (
	ErrNoActiveSession     = errors.New("no active cash session")
	ErrSessionAlreadyOpen  = errors.New("a cash session is already open")
	ErrNegativeAmount      = errors.New("amount must be positive")
	ErrInvalidMovementType = errors.New("invalid movement type")
)

// CashStore defines the DB methods for the cash register ledger.
// Satisfied by *database.Queries.
type CashStore interface {
	CreateCashSession(ctx context.Context, arg database.CreateCashSessionParams) (database.CashRegisterSession, error)
	GetActiveCashSession(ctx context.Context) (database.CashRegisterSession, error)
	CloseCashSession(ctx context.Context, arg database.CloseCashSessionParams) (database.CashRegisterSession, error)
	ListClosedCashSessions(ctx context.Context, limit int32) ([]database.CashRegisterSession, error)
	CreateCashMovement(ctx context.Context, arg database.CreateCashMovementParams) (database.CashRegisterMovement, error)
	ListCashMovementsBySession(ctx context.Context, sessionID uuid.UUID) ([]database.CashRegisterMovement, error)
	SumCashMovementsBySession(ctx context.Context, sessionID uuid.UUID) ([]database.MovementSumRow, error)
}

// CashService manages drawer sessions and their movement ledger.
type CashService struct {
	store CashStore
}

func NewCashService(store CashStore) *CashService {
	return &CashService{store: store}
}

// OpenSession opens the drawer with a counted starting float. Only one
// session may be open at a time; the database enforces this with a partial
// unique index and the violation surfaces as ErrSessionAlreadyOpen.
func (s *CashService) OpenSession(ctx context.Context, openedBy uuid.UUID, openingAmount decimal.Decimal) (*database.CashRegisterSession, error) {
	if openingAmount.IsNegative() {
		return nil, ErrNegativeAmount
	}

	session, err := s.store.CreateCashSession(ctx, database.CreateCashSessionParams{
		OpenedBy:      openedBy,
		OpeningAmount: database.DecimalToNumeric(openingAmount),
	})
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, ErrSessionAlreadyOpen
		}
		return nil, fmt.Errorf("create cash session: %w", err)
	}
	return &session, nil
}

// ActiveSession returns the open session, or ErrNoActiveSession.
func (s *CashService) ActiveSession(ctx context.Context) (*database.CashRegisterSession, error) {
	session, err := s.store.GetActiveCashSession(ctx)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNoActiveSession
		}
		return nil, fmt.Errorf("get active session: %w", err)
	}
	return &session, nil
}

// AddMovement records a manual deposit or withdrawal against the open
// session. Sales and tips enter the ledger through tab settlement, not here.
func (s *CashService) AddMovement(ctx context.Context, createdBy uuid.UUID, movementType string, amount decimal.Decimal, description string) (*database.CashRegisterMovement, error) {
	if movementType != enum.MovementTypeDeposit && movementType != enum.MovementTypeWithdrawal {
		return nil, ErrInvalidMovementType
	}
	if !amount.IsPositive() {
		return nil, ErrNegativeAmount
	}

	session, err := s.ActiveSession(ctx)
	if err != nil {
		return nil, err
	}

	movement, err := s.store.CreateCashMovement(ctx, database.CreateCashMovementParams{
		SessionID:   session.ID,
		Type:        movementType,
		Amount:      database.DecimalToNumeric(amount),
		Description: pgtype.Text{String: description, Valid: description != ""},
		CreatedBy:   createdBy,
	})
	if err != nil {
		return nil, fmt.Errorf("create cash movement: %w", err)
	}
	return &movement, nil
}

// ExpectedAmount computes what the drawer should hold: the opening float
// plus sales, deposits and tips, minus withdrawals.
func ExpectedAmount(opening decimal.Decimal, sums []database.MovementSumRow) decimal.Decimal {
	expected := opening
	for _, row := range sums {
		total := database.NumericToDecimal(row.Total)
		switch row.Type {
		case enum.MovementTypeSale, enum.MovementTypeDeposit, enum.MovementTypeTip:
			expected = expected.Add(total)
		case enum.MovementTypeWithdrawal:
			expected = expected.Sub(total)
		}
	}
	return money.Round2(expected)
}

// SessionSummary is the live view of the open drawer.
type SessionSummary struct {
	Session   database.CashRegisterSession
	Movements []database.CashRegisterMovement
	Expected  decimal.Decimal
	Sales     decimal.Decimal
	Deposits  decimal.Decimal
	Tips      decimal.Decimal
	Withdrawn decimal.Decimal
}

// Summary returns the open session with its movements and running expected
// amount, for the drawer screen.
func (s *CashService) Summary(ctx context.Context) (*SessionSummary, error) {
	session, err := s.ActiveSession(ctx)
	if err != nil {
		return nil, err
	}

	movements, err := s.store.ListCashMovementsBySession(ctx, session.ID)
	if err != nil {
		return nil, fmt.Errorf("list movements: %w", err)
	}
	sums, err := s.store.SumCashMovementsBySession(ctx, session.ID)
	if err != nil {
		return nil, fmt.Errorf("sum movements: %w", err)
	}

	summary := &SessionSummary{
		Session:   *session,
		Movements: movements,
		Expected:  ExpectedAmount(database.NumericToDecimal(session.OpeningAmount), sums),
		Sales:     decimal.Zero,
		Deposits:  decimal.Zero,
		Tips:      decimal.Zero,
		Withdrawn: decimal.Zero,
	}
	for _, row := range sums {
		total := database.NumericToDecimal(row.Total)
		switch row.Type {
		case enum.MovementTypeSale:
			summary.Sales = total
		case enum.MovementTypeDeposit:
			summary.Deposits = total
		case enum.MovementTypeTip:
			summary.Tips = total
		case enum.MovementTypeWithdrawal:
			summary.Withdrawn = total
		}
	}
	return summary, nil
}

// CloseSessionResult is the reconciliation outcome of a drawer close.
type CloseSessionResult struct {
	Session    database.CashRegisterSession
	Expected   decimal.Decimal
	Difference decimal.Decimal
}

// CloseSession reconciles and closes the open drawer. The caller supplies
// the physically counted amount; expected and difference are computed here
// and stored with the session. A negative difference means the drawer is
// short, positive means over.
func (s *CashService) CloseSession(ctx context.Context, closedBy uuid.UUID, closingAmount decimal.Decimal, notes string) (*CloseSessionResult, error) {
	if closingAmount.IsNegative() {
		return nil, ErrNegativeAmount
	}

	session, err := s.ActiveSession(ctx)
	if err != nil {
		return nil, err
	}

	sums, err := s.store.SumCashMovementsBySession(ctx, session.ID)
	if err != nil {
		return nil, fmt.Errorf("sum movements: %w", err)
	}

	expected := ExpectedAmount(database.NumericToDecimal(session.OpeningAmount), sums)
	difference := money.Round2(closingAmount.Sub(expected))

	closed, err := s.store.CloseCashSession(ctx, database.CloseCashSessionParams{
		ID:             session.ID,
		ClosedBy:       closedBy,
		ClosingAmount:  database.DecimalToNumeric(closingAmount),
		ExpectedAmount: database.DecimalToNumeric(expected),
		Difference:     database.DecimalToNumeric(difference),
		Notes:          pgtype.Text{String: notes, Valid: notes != ""},
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNoActiveSession
		}
		return nil, fmt.Errorf("close cash session: %w", err)
	}

	return &CloseSessionResult{Session: closed, Expected: expected, Difference: difference}, nil
}

// History returns recent closed sessions, newest first.
func (s *CashService) History(ctx context.Context, limit int32) ([]database.CashRegisterSession, error) {
	if limit <= 0 || limit > 100 {
		limit = 30
	}
	sessions, err := s.store.ListClosedCashSessions(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("list closed sessions: %w", err)
	}
	return sessions, nil
}
