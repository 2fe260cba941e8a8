package database

import (
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

// Profile is an operator account (admin, cashier or kitchen staff).
type Profile struct {
	ID             uuid.UUID
	FullName       string
	Email          string
	HashedPassword string
	Role           string
	IsActive       bool
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Table is a physical dining table.
type Table struct {
	ID        uuid.UUID
	Name      string
	Capacity  int32
	Status    string
	IsActive  bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

type Category struct {
	ID        uuid.UUID
	Name      string
	SortOrder int32
	IsActive  bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

type Product struct {
	ID         uuid.UUID
	CategoryID uuid.UUID
	Name       string
	Price      pgtype.Numeric
	IsActive   bool
	SortOrder  int32
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

type Modifier struct {
	ID            uuid.UUID
	Name          string
	PriceOverride pgtype.Numeric
	IsActive      bool
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Order is a single kitchen ticket. payment_method stays NULL until the tab
// containing the order is settled; order status and payment state are
// independent axes.
type Order struct {
	ID            uuid.UUID
	TableID       pgtype.UUID
	CreatedBy     uuid.UUID
	Status        string
	OrderType     string
	Subtotal      pgtype.Numeric
	Tax           pgtype.Numeric
	Total         pgtype.Numeric
	PaymentMethod pgtype.Text
	Discount      pgtype.Numeric
	Tip           pgtype.Numeric
	Notes         pgtype.Text
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

type OrderItem struct {
	ID              uuid.UUID
	OrderID         uuid.UUID
	ProductID       uuid.UUID
	Quantity        int32
	UnitPrice       pgtype.Numeric
	Subtotal        pgtype.Numeric
	Status          string
	Notes           pgtype.Text
	SentToKitchenAt pgtype.Timestamptz
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// OrderItemModifier snapshots the modifier name and price at order time, so
// later catalog edits never change a placed order.
type OrderItemModifier struct {
	ID            uuid.UUID
	OrderItemID   uuid.UUID
	ModifierID    uuid.UUID
	ModifierName  string
	PriceOverride pgtype.Numeric
	CreatedAt     time.Time
}

type CashRegisterSession struct {
	ID             uuid.UUID
	OpenedBy       uuid.UUID
	ClosedBy       pgtype.UUID
	OpeningAmount  pgtype.Numeric
	ClosingAmount  pgtype.Numeric
	ExpectedAmount pgtype.Numeric
	Difference     pgtype.Numeric
	OpenedAt       time.Time
	ClosedAt       pgtype.Timestamptz
	Notes          pgtype.Text
}

type CashRegisterMovement struct {
	ID          uuid.UUID
	SessionID   uuid.UUID
	Type        string
	Amount      pgtype.Numeric
	Description pgtype.Text
	OrderID     pgtype.UUID
	CreatedBy   uuid.UUID
	CreatedAt   time.Time
}
