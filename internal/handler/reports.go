package handler

import (
	"context"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/andaluza-pos/api/internal/database"
	"github.com/andaluza-pos/api/internal/export"
	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

// ReportStore defines the database methods needed by report handlers.
// Satisfied by *database.Queries; narrow interface for testability.
type ReportStore interface {
	GetDailySales(ctx context.Context, arg database.ReportRangeParams) ([]database.DailySalesRow, error)
	GetProductSales(ctx context.Context, arg database.ReportRangeParams) ([]database.ProductSalesRow, error)
	GetPaymentSummary(ctx context.Context, arg database.ReportRangeParams) ([]database.PaymentSummaryRow, error)
	GetCashCuts(ctx context.Context, arg database.ReportRangeParams) ([]database.CashCutRow, error)
}

// ReportHandler handles sales report endpoints.
type ReportHandler struct {
	store ReportStore
}

// NewReportHandler creates a new ReportHandler.
func NewReportHandler(store ReportStore) *ReportHandler {
	return &ReportHandler{store: store}
}

// RegisterRoutes registers report endpoints on the given Chi router.
func (h *ReportHandler) RegisterRoutes(r chi.Router) {
	r.Get("/daily-sales", h.DailySales)
	r.Get("/product-sales", h.ProductSales)
	r.Get("/payment-summary", h.PaymentSummary)
	r.Get("/cash-cuts", h.CashCuts)
}

// parseRange reads start_date / end_date query params (YYYY-MM-DD). The
// default window is the last 30 days; end_date is inclusive.
func parseRange(r *http.Request) (database.ReportRangeParams, bool) {
	end := time.Now().Truncate(24 * time.Hour).AddDate(0, 0, 1)
	start := end.AddDate(0, 0, -30)

	if s := r.URL.Query().Get("start_date"); s != "" {
		t, err := time.Parse("2006-01-02", s)
		if err != nil {
			return database.ReportRangeParams{}, false
		}
		start = t
	}
	if s := r.URL.Query().Get("end_date"); s != "" {
		t, err := time.Parse("2006-01-02", s)
		if err != nil {
			return database.ReportRangeParams{}, false
		}
		end = t.AddDate(0, 0, 1)
	}

	return database.ReportRangeParams{
		StartDate: pgtype.Timestamptz{Time: start, Valid: true},
		EndDate:   pgtype.Timestamptz{Time: end, Valid: true},
	}, true
}

func wantsCSV(r *http.Request) bool {
	return r.URL.Query().Get("format") == "csv"
}

func writeCSV(w http.ResponseWriter, filename string, header []string, rows [][]string) {
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
	if err := export.WriteCSV(w, header, rows); err != nil {
		log.Printf("ERROR: write csv: %v", err)
	}
}

// DailySales handles GET /reports/daily-sales.
func (h *ReportHandler) DailySales(w http.ResponseWriter, r *http.Request) {
	params, ok := parseRange(r)
	if !ok {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid date format, use YYYY-MM-DD"})
		return
	}

	rows, err := h.store.GetDailySales(r.Context(), params)
	if err != nil {
		log.Printf("ERROR: daily sales report: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	if wantsCSV(r) {
		csvRows := make([][]string, len(rows))
		for i, row := range rows {
			csvRows[i] = []string{
				row.SaleDate.Time.Format("2006-01-02"),
				strconv.FormatInt(row.OrderCount, 10),
				amount(row.Total),
			}
		}
		writeCSV(w, "ventas-diarias.csv", []string{"fecha", "ordenes", "total"}, csvRows)
		return
	}

	type dailyRow struct {
		Date       string `json:"date"`
		OrderCount int64  `json:"order_count"`
		Total      string `json:"total"`
	}
	resp := make([]dailyRow, len(rows))
	for i, row := range rows {
		resp[i] = dailyRow{
			Date:       row.SaleDate.Time.Format("2006-01-02"),
			OrderCount: row.OrderCount,
			Total:      amount(row.Total),
		}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"daily_sales": resp})
}

// ProductSales handles GET /reports/product-sales.
func (h *ReportHandler) ProductSales(w http.ResponseWriter, r *http.Request) {
	params, ok := parseRange(r)
	if !ok {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid date format, use YYYY-MM-DD"})
		return
	}

	rows, err := h.store.GetProductSales(r.Context(), params)
	if err != nil {
		log.Printf("ERROR: product sales report: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	if wantsCSV(r) {
		csvRows := make([][]string, len(rows))
		for i, row := range rows {
			csvRows[i] = []string{
				row.ProductName,
				strconv.FormatInt(row.QuantitySold, 10),
				amount(row.Revenue),
			}
		}
		writeCSV(w, "ventas-productos.csv", []string{"producto", "cantidad", "ingreso"}, csvRows)
		return
	}

	type productRow struct {
		ProductName  string `json:"product_name"`
		QuantitySold int64  `json:"quantity_sold"`
		Revenue      string `json:"revenue"`
	}
	resp := make([]productRow, len(rows))
	for i, row := range rows {
		resp[i] = productRow{
			ProductName:  row.ProductName,
			QuantitySold: row.QuantitySold,
			Revenue:      amount(row.Revenue),
		}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"product_sales": resp})
}

// PaymentSummary handles GET /reports/payment-summary.
func (h *ReportHandler) PaymentSummary(w http.ResponseWriter, r *http.Request) {
	params, ok := parseRange(r)
	if !ok {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid date format, use YYYY-MM-DD"})
		return
	}

	rows, err := h.store.GetPaymentSummary(r.Context(), params)
	if err != nil {
		log.Printf("ERROR: payment summary report: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	type paymentRow struct {
		PaymentMethod string `json:"payment_method"`
		OrderCount    int64  `json:"order_count"`
		Total         string `json:"total"`
	}
	resp := make([]paymentRow, len(rows))
	for i, row := range rows {
		resp[i] = paymentRow{
			PaymentMethod: row.PaymentMethod,
			OrderCount:    row.OrderCount,
			Total:         amount(row.Total),
		}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"payment_summary": resp})
}

// CashCuts handles GET /reports/cash-cuts: closed drawer sessions with
// reconciliation results.
func (h *ReportHandler) CashCuts(w http.ResponseWriter, r *http.Request) {
	params, ok := parseRange(r)
	if !ok {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid date format, use YYYY-MM-DD"})
		return
	}

	rows, err := h.store.GetCashCuts(r.Context(), params)
	if err != nil {
		log.Printf("ERROR: cash cuts report: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	if wantsCSV(r) {
		csvRows := make([][]string, len(rows))
		for i, row := range rows {
			csvRows[i] = []string{
				row.OpenedAt.Format("2006-01-02 15:04"),
				row.OpenerName,
				amount(row.OpeningAmount),
				amount(row.ClosingAmount),
				amount(row.ExpectedAmount),
				amount(row.Difference),
			}
		}
		writeCSV(w, "cortes-caja.csv",
			[]string{"apertura", "cajero", "fondo", "contado", "esperado", "diferencia"}, csvRows)
		return
	}

	type cashCutRow struct {
		sessionResponse
		OpenerName string `json:"opener_name"`
	}
	resp := make([]cashCutRow, len(rows))
	for i, row := range rows {
		resp[i] = cashCutRow{
			sessionResponse: toSessionResponse(row.CashRegisterSession),
			OpenerName:      row.OpenerName,
		}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"cash_cuts": resp})
}
