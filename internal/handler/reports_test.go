package handler_test

import (
	"context"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/andaluza-pos/api/internal/database"
	"github.com/andaluza-pos/api/internal/handler"
	"github.com/andaluza-pos/api/internal/middleware"
	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

// --- Mock ReportStore ---

type mockReportStore struct {
	dailySalesFn     func(ctx context.Context, arg database.ReportRangeParams) ([]database.DailySalesRow, error)
	productSalesFn   func(ctx context.Context, arg database.ReportRangeParams) ([]database.ProductSalesRow, error)
	paymentSummaryFn func(ctx context.Context, arg database.ReportRangeParams) ([]database.PaymentSummaryRow, error)
	cashCutsFn       func(ctx context.Context, arg database.ReportRangeParams) ([]database.CashCutRow, error)
}

func (m *mockReportStore) GetDailySales(ctx context.Context, arg database.ReportRangeParams) ([]database.DailySalesRow, error) {
	if m.dailySalesFn != nil {
		return m.dailySalesFn(ctx, arg)
	}
	return []database.DailySalesRow{}, nil
}

func (m *mockReportStore) GetProductSales(ctx context.Context, arg database.ReportRangeParams) ([]database.ProductSalesRow, error) {
	if m.productSalesFn != nil {
		return m.productSalesFn(ctx, arg)
	}
	return []database.ProductSalesRow{}, nil
}

func (m *mockReportStore) GetPaymentSummary(ctx context.Context, arg database.ReportRangeParams) ([]database.PaymentSummaryRow, error) {
	if m.paymentSummaryFn != nil {
		return m.paymentSummaryFn(ctx, arg)
	}
	return []database.PaymentSummaryRow{}, nil
}

func (m *mockReportStore) GetCashCuts(ctx context.Context, arg database.ReportRangeParams) ([]database.CashCutRow, error) {
	if m.cashCutsFn != nil {
		return m.cashCutsFn(ctx, arg)
	}
	return []database.CashCutRow{}, nil
}

func setupReportRouter(store *mockReportStore) *chi.Mux {
	h := handler.NewReportHandler(store)
	r := chi.NewRouter()
	r.Use(middleware.Authenticate(testJWTSecret))
	r.Route("/reports", h.RegisterRoutes)
	return r
}

// --- Tests ---

func TestDailySales_JSON(t *testing.T) {
	claims := testClaims("admin")

	store := &mockReportStore{
		dailySalesFn: func(ctx context.Context, arg database.ReportRangeParams) ([]database.DailySalesRow, error) {
			start := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
			if !arg.StartDate.Time.Equal(start) {
				t.Errorf("start_date: got %v, want %v", arg.StartDate.Time, start)
			}
			// end_date is inclusive, so the bound is the next day
			end := time.Date(2026, 8, 8, 0, 0, 0, 0, time.UTC)
			if !arg.EndDate.Time.Equal(end) {
				t.Errorf("end_date: got %v, want %v", arg.EndDate.Time, end)
			}
			return []database.DailySalesRow{
				{
					SaleDate:   pgtype.Date{Time: time.Date(2026, 8, 3, 0, 0, 0, 0, time.UTC), Valid: true},
					OrderCount: 12,
					Total:      testNumeric(t, "431.50"),
				},
			}, nil
		},
	}

	router := setupReportRouter(store)
	rr := doAuthRequest(t, router, "GET", "/reports/daily-sales?start_date=2026-08-01&end_date=2026-08-07", nil, claims)

	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want %d; body: %s", rr.Code, http.StatusOK, rr.Body.String())
	}

	resp := decodeResponse(t, rr)
	rows := resp["daily_sales"].([]interface{})
	if len(rows) != 1 {
		t.Fatalf("rows count: got %d, want 1", len(rows))
	}
	row := rows[0].(map[string]interface{})
	if row["date"] != "2026-08-03" {
		t.Errorf("date: got %v, want 2026-08-03", row["date"])
	}
	if row["order_count"] != float64(12) {
		t.Errorf("order_count: got %v, want 12", row["order_count"])
	}
	if row["total"] != "431.50" {
		t.Errorf("total: got %v, want 431.50", row["total"])
	}
}

func TestDailySales_CSV(t *testing.T) {
	claims := testClaims("admin")

	store := &mockReportStore{
		dailySalesFn: func(ctx context.Context, arg database.ReportRangeParams) ([]database.DailySalesRow, error) {
			return []database.DailySalesRow{
				{
					SaleDate:   pgtype.Date{Time: time.Date(2026, 8, 3, 0, 0, 0, 0, time.UTC), Valid: true},
					OrderCount: 12,
					Total:      testNumeric(t, "431.50"),
				},
			}, nil
		},
	}

	router := setupReportRouter(store)
	rr := doAuthRequest(t, router, "GET", "/reports/daily-sales?format=csv", nil, claims)

	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want %d; body: %s", rr.Code, http.StatusOK, rr.Body.String())
	}
	if ct := rr.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/csv") {
		t.Errorf("content type: got %v, want text/csv", ct)
	}
	if cd := rr.Header().Get("Content-Disposition"); !strings.Contains(cd, "ventas-diarias.csv") {
		t.Errorf("content disposition: got %v, want attachment ventas-diarias.csv", cd)
	}

	body := rr.Body.Bytes()
	// UTF-8 BOM keeps Excel happy with accented product names.
	if len(body) < 3 || body[0] != 0xEF || body[1] != 0xBB || body[2] != 0xBF {
		t.Error("csv output missing UTF-8 BOM")
	}
	text := string(body[3:])
	if !strings.HasPrefix(text, "fecha,ordenes,total\n") {
		t.Errorf("csv header: got %q", text)
	}
	if !strings.Contains(text, "2026-08-03,12,431.50") {
		t.Errorf("csv row missing:\n%s", text)
	}
}

func TestProductSales_JSON(t *testing.T) {
	claims := testClaims("admin")

	store := &mockReportStore{
		productSalesFn: func(ctx context.Context, arg database.ReportRangeParams) ([]database.ProductSalesRow, error) {
			return []database.ProductSalesRow{
				{ProductName: "Taco al Pastor", QuantitySold: 48, Revenue: testNumeric(t, "168.00")},
				{ProductName: "Quesadilla", QuantitySold: 10, Revenue: testNumeric(t, "75.00")},
			}, nil
		},
	}

	router := setupReportRouter(store)
	rr := doAuthRequest(t, router, "GET", "/reports/product-sales", nil, claims)

	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want %d; body: %s", rr.Code, http.StatusOK, rr.Body.String())
	}

	resp := decodeResponse(t, rr)
	rows := resp["product_sales"].([]interface{})
	if len(rows) != 2 {
		t.Fatalf("rows count: got %d, want 2", len(rows))
	}
	top := rows[0].(map[string]interface{})
	if top["product_name"] != "Taco al Pastor" {
		t.Errorf("product_name: got %v, want Taco al Pastor", top["product_name"])
	}
	if top["quantity_sold"] != float64(48) {
		t.Errorf("quantity_sold: got %v, want 48", top["quantity_sold"])
	}
}

func TestPaymentSummary_JSON(t *testing.T) {
	claims := testClaims("admin")

	store := &mockReportStore{
		paymentSummaryFn: func(ctx context.Context, arg database.ReportRangeParams) ([]database.PaymentSummaryRow, error) {
			return []database.PaymentSummaryRow{
				{PaymentMethod: "cash", OrderCount: 20, Total: testNumeric(t, "520.00")},
				{PaymentMethod: "card", OrderCount: 5, Total: testNumeric(t, "180.00")},
			}, nil
		},
	}

	router := setupReportRouter(store)
	rr := doAuthRequest(t, router, "GET", "/reports/payment-summary", nil, claims)

	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want %d; body: %s", rr.Code, http.StatusOK, rr.Body.String())
	}

	resp := decodeResponse(t, rr)
	rows := resp["payment_summary"].([]interface{})
	if len(rows) != 2 {
		t.Fatalf("rows count: got %d, want 2", len(rows))
	}
	cash := rows[0].(map[string]interface{})
	if cash["payment_method"] != "cash" {
		t.Errorf("payment_method: got %v, want cash", cash["payment_method"])
	}
	if cash["total"] != "520.00" {
		t.Errorf("total: got %v, want 520.00", cash["total"])
	}
}

func TestCashCuts_CSV(t *testing.T) {
	claims := testClaims("admin")
	opened := time.Date(2026, 8, 3, 9, 0, 0, 0, time.UTC)

	store := &mockReportStore{
		cashCutsFn: func(ctx context.Context, arg database.ReportRangeParams) ([]database.CashCutRow, error) {
			session := testSession(t, claims.UserID)
			session.OpenedAt = opened
			session.ClosingAmount = testNumeric(t, "340.00")
			session.ExpectedAmount = testNumeric(t, "350.00")
			session.Difference = testNumeric(t, "-10.00")
			return []database.CashCutRow{
				{CashRegisterSession: session, OpenerName: "Maria Lopez"},
			}, nil
		},
	}

	router := setupReportRouter(store)
	rr := doAuthRequest(t, router, "GET", "/reports/cash-cuts?format=csv", nil, claims)

	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want %d; body: %s", rr.Code, http.StatusOK, rr.Body.String())
	}
	if cd := rr.Header().Get("Content-Disposition"); !strings.Contains(cd, "cortes-caja.csv") {
		t.Errorf("content disposition: got %v, want cortes-caja.csv", cd)
	}

	text := rr.Body.String()
	if !strings.Contains(text, "apertura,cajero,fondo,contado,esperado,diferencia") {
		t.Errorf("csv header missing:\n%s", text)
	}
	if !strings.Contains(text, "2026-08-03 09:00,Maria Lopez,100.00,340.00,350.00,-10.00") {
		t.Errorf("csv row missing:\n%s", text)
	}
}

func TestReports_InvalidDate(t *testing.T) {
	claims := testClaims("admin")
	router := setupReportRouter(&mockReportStore{})

	rr := doAuthRequest(t, router, "GET", "/reports/daily-sales?start_date=bogus", nil, claims)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status: got %d, want %d; body: %s", rr.Code, http.StatusBadRequest, rr.Body.String())
	}
}
