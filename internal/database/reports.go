package database

import (
	"context"

	"github.com/jackc/pgx/v5/pgtype"
)

// Report queries aggregate over paid, non-cancelled orders only.

type ReportRangeParams struct {
	StartDate pgtype.Timestamptz
	EndDate   pgtype.Timestamptz
}

type DailySalesRow struct {
	SaleDate   pgtype.Date
	OrderCount int64
	Total      pgtype.Numeric
}

const getDailySales = `
SELECT created_at::date AS sale_date, COUNT(*), COALESCE(SUM(total), 0)
FROM orders
WHERE status <> 'cancelled'
  AND payment_method IS NOT NULL
  AND created_at >= $1 AND created_at < $2
GROUP BY sale_date
ORDER BY sale_date
`

func (q *Queries) GetDailySales(ctx context.Context, arg ReportRangeParams) ([]DailySalesRow, error) {
	rows, err := q.db.Query(ctx, getDailySales, arg.StartDate, arg.EndDate)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []DailySalesRow
	for rows.Next() {
		var r DailySalesRow
		if err := rows.Scan(&r.SaleDate, &r.OrderCount, &r.Total); err != nil {
			return nil, err
		}
		result = append(result, r)
	}
	return result, rows.Err()
}

type ProductSalesRow struct {
	ProductName  string
	QuantitySold int64
	Revenue      pgtype.Numeric
}

const getProductSales = `
SELECT p.name, COALESCE(SUM(oi.quantity), 0), COALESCE(SUM(oi.subtotal), 0)
FROM order_items oi
JOIN products p ON p.id = oi.product_id
JOIN orders o ON o.id = oi.order_id
WHERE o.status <> 'cancelled'
  AND o.payment_method IS NOT NULL
  AND oi.status <> 'cancelled'
  AND o.created_at >= $1 AND o.created_at < $2
GROUP BY p.name
ORDER BY SUM(oi.quantity) DESC
`

func (q *Queries) GetProductSales(ctx context.Context, arg ReportRangeParams) ([]ProductSalesRow, error) {
	rows, err := q.db.Query(ctx, getProductSales, arg.StartDate, arg.EndDate)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []ProductSalesRow
	for rows.Next() {
		var r ProductSalesRow
		if err := rows.Scan(&r.ProductName, &r.QuantitySold, &r.Revenue); err != nil {
			return nil, err
		}
		result = append(result, r)
	}
	return result, rows.Err()
}

type PaymentSummaryRow struct {
	PaymentMethod string
	OrderCount    int64
	Total         pgtype.Numeric
}

const getPaymentSummary = `
SELECT payment_method, COUNT(*), COALESCE(SUM(total), 0)
FROM orders
WHERE status <> 'cancelled'
  AND payment_method IS NOT NULL
  AND created_at >= $1 AND created_at < $2
GROUP BY payment_method
ORDER BY payment_method
`

func (q *Queries) GetPaymentSummary(ctx context.Context, arg ReportRangeParams) ([]PaymentSummaryRow, error) {
	rows, err := q.db.Query(ctx, getPaymentSummary, arg.StartDate, arg.EndDate)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []PaymentSummaryRow
	for rows.Next() {
		var r PaymentSummaryRow
		if err := rows.Scan(&r.PaymentMethod, &r.OrderCount, &r.Total); err != nil {
			return nil, err
		}
		result = append(result, r)
	}
	return result, rows.Err()
}

// CashCutRow is one closed cash session with the opener's name, for the
// end-of-shift report.
type CashCutRow struct {
	CashRegisterSession
	OpenerName string
}

const getCashCuts = `
SELECT s.id, s.opened_by, s.closed_by, s.opening_amount, s.closing_amount,
       s.expected_amount, s.difference, s.opened_at, s.closed_at, s.notes,
       p.full_name
FROM cash_register_sessions s
JOIN profiles p ON p.id = s.opened_by
WHERE s.closed_at IS NOT NULL
  AND s.closed_at >= $1 AND s.closed_at < $2
ORDER BY s.closed_at DESC
`

func (q *Queries) GetCashCuts(ctx context.Context, arg ReportRangeParams) ([]CashCutRow, error) {
	rows, err := q.db.Query(ctx, getCashCuts, arg.StartDate, arg.EndDate)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []CashCutRow
	for rows.Next() {
		var r CashCutRow
		if err := rows.Scan(&r.ID, &r.OpenedBy, &r.ClosedBy, &r.OpeningAmount, &r.ClosingAmount,
			&r.ExpectedAmount, &r.Difference, &r.OpenedAt, &r.ClosedAt, &r.Notes, &r.OpenerName); err != nil {
			return nil, err
		}
		result = append(result, r)
	}
	return result, rows.Err()
}
