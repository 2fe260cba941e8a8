package enum

// Closed enumerations mirrored by CHECK constraints in the schema.
// Unknown values are rejected at the API boundary.

const (
	OrderStatusOpen       = "open"
	OrderStatusInProgress = "in_progress"
	OrderStatusCompleted  = "completed"
	OrderStatusCancelled  = "cancelled"
)

const (
	OrderItemStatusPending   = "pending"
	OrderItemStatusPreparing = "preparing"
	OrderItemStatusReady     = "ready"
	OrderItemStatusDelivered = "delivered"
	OrderItemStatusCancelled = "cancelled"
)

const (
	OrderTypeDineIn  = "dine_in"
	OrderTypeTakeout = "takeout"
)

const (
	PaymentMethodCash = "cash"
	PaymentMethodCard = "card"
)

const (
	MovementTypeSale       = "sale"
	MovementTypeWithdrawal = "withdrawal"
	MovementTypeDeposit    = "deposit"
	MovementTypeTip        = "tip"
)

const (
	TableStatusAvailable = "available"
	TableStatusOccupied  = "occupied"
	TableStatusReserved  = "reserved"
)

const (
	UserRoleAdmin   = "admin"
	UserRoleCashier = "cashier"
	UserRoleKitchen = "kitchen"
)

func IsValidOrderStatus(s string) bool {
	switch s {
	case OrderStatusOpen, OrderStatusInProgress, OrderStatusCompleted, OrderStatusCancelled:
		return true
	}
	return false
}

func IsValidOrderItemStatus(s string) bool {
	switch s {
	case OrderItemStatusPending, OrderItemStatusPreparing, OrderItemStatusReady,
		OrderItemStatusDelivered, OrderItemStatusCancelled:
		return true
	}
	return false
}

func IsValidOrderType(s string) bool {
	return s == OrderTypeDineIn || s == OrderTypeTakeout
}

func IsValidPaymentMethod(s string) bool {
	return s == PaymentMethodCash || s == PaymentMethodCard
}

func IsValidMovementType(s string) bool {
	switch s {
	case MovementTypeSale, MovementTypeWithdrawal, MovementTypeDeposit, MovementTypeTip:
		return true
	}
	return false
}

func IsValidTableStatus(s string) bool {
	switch s {
	case TableStatusAvailable, TableStatusOccupied, TableStatusReserved:
		return true
	}
	return false
}

func IsValidUserRole(s string) bool {
	switch s {
	case UserRoleAdmin, UserRoleCashier, UserRoleKitchen:
		return true
	}
	return false
}
