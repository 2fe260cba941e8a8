package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/andaluza-pos/api/internal/auth"
	"github.com/andaluza-pos/api/internal/database"
	"github.com/andaluza-pos/api/internal/handler"
	"github.com/andaluza-pos/api/internal/middleware"
	"github.com/andaluza-pos/api/internal/service"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

// --- Shared test helpers ---

const testJWTSecret = "test-secret-for-handlers"

func testNumeric(t *testing.T, s string) pgtype.Numeric {
	t.Helper()
	var n pgtype.Numeric
	if err := n.Scan(s); err != nil {
		t.Fatalf("scan numeric %q: %v", s, err)
	}
	return n
}

func testClaims(role string) *auth.Claims {
	return &auth.Claims{
		UserID:   uuid.New(),
		FullName: "Test Cashier",
		Role:     role,
	}
}

func newJSONRequest(t *testing.T, method, path string, body interface{}) *http.Request {
	t.Helper()
	if body == nil {
		return httptest.NewRequest(method, path, nil)
	}
	b, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal request: %v", err)
	}
	req := httptest.NewRequest(method, path, bytes.NewReader(b))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func doRequest(t *testing.T, router http.Handler, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	req := newJSONRequest(t, method, path, body)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	return rr
}

func doAuthRequest(t *testing.T, router http.Handler, method, path string, body interface{}, claims *auth.Claims) *httptest.ResponseRecorder {
	t.Helper()

	token, err := auth.GenerateToken(testJWTSecret, claims.UserID, claims.FullName, claims.Role)
	if err != nil {
		t.Fatalf("generate token: %v", err)
	}

	req := newJSONRequest(t, method, path, body)
	req.Header.Set("Authorization", "Bearer "+token)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	return rr
}

func decodeResponse(t *testing.T, rr *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var resp map[string]interface{}
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return resp
}

// recordingBroadcaster captures hub notifications for assertions.
type recordingBroadcaster struct {
	events []broadcastEvent
}

type broadcastEvent struct {
	table string
	event string
}

func (b *recordingBroadcaster) Notify(table, event string, payload any) {
	b.events = append(b.events, broadcastEvent{table: table, event: event})
}

func (b *recordingBroadcaster) has(table, event string) bool {
	for _, e := range b.events {
		if e.table == table && e.event == event {
			return true
		}
	}
	return false
}

// --- Mock OrderServicer ---

type mockOrderService struct {
	createFn func(ctx context.Context, req service.CreateOrderRequest) (*service.CreateOrderResult, error)
}

func (m *mockOrderService) CreateOrder(ctx context.Context, req service.CreateOrderRequest) (*service.CreateOrderResult, error) {
	return m.createFn(ctx, req)
}

// --- Mock OrderStore ---

type mockOrderHandlerStore struct {
	getOrderFn              func(ctx context.Context, id uuid.UUID) (database.Order, error)
	listOrdersFn            func(ctx context.Context, arg database.ListOrdersParams) ([]database.Order, error)
	listOrderItemsByOrderFn func(ctx context.Context, orderID uuid.UUID) ([]database.OrderItem, error)
	listItemModifiersFn     func(ctx context.Context, itemIDs []uuid.UUID) ([]database.OrderItemModifier, error)
	updateOrderStatusFn     func(ctx context.Context, arg database.UpdateOrderStatusParams) (database.Order, error)
	cancelOrderFn           func(ctx context.Context, id uuid.UUID) (database.Order, error)
	updateTableStatusFn     func(ctx context.Context, arg database.UpdateTableStatusParams) (database.Table, error)
}

func (m *mockOrderHandlerStore) GetOrder(ctx context.Context, id uuid.UUID) (database.Order, error) {
	if m.getOrderFn != nil {
		return m.getOrderFn(ctx, id)
	}
	return database.Order{}, pgx.ErrNoRows
}

func (m *mockOrderHandlerStore) ListOrders(ctx context.Context, arg database.ListOrdersParams) ([]database.Order, error) {
	if m.listOrdersFn != nil {
		return m.listOrdersFn(ctx, arg)
	}
	return []database.Order{}, nil
}

func (m *mockOrderHandlerStore) ListOrderItemsByOrder(ctx context.Context, orderID uuid.UUID) ([]database.OrderItem, error) {
	if m.listOrderItemsByOrderFn != nil {
		return m.listOrderItemsByOrderFn(ctx, orderID)
	}
	return []database.OrderItem{}, nil
}

func (m *mockOrderHandlerStore) ListOrderItemModifiersByItems(ctx context.Context, itemIDs []uuid.UUID) ([]database.OrderItemModifier, error) {
	if m.listItemModifiersFn != nil {
		return m.listItemModifiersFn(ctx, itemIDs)
	}
	return []database.OrderItemModifier{}, nil
}

func (m *mockOrderHandlerStore) UpdateOrderStatus(ctx context.Context, arg database.UpdateOrderStatusParams) (database.Order, error) {
	if m.updateOrderStatusFn != nil {
		return m.updateOrderStatusFn(ctx, arg)
	}
	return database.Order{}, pgx.ErrNoRows
}

func (m *mockOrderHandlerStore) CancelOrder(ctx context.Context, id uuid.UUID) (database.Order, error) {
	if m.cancelOrderFn != nil {
		return m.cancelOrderFn(ctx, id)
	}
	return database.Order{}, pgx.ErrNoRows
}

func (m *mockOrderHandlerStore) UpdateTableStatus(ctx context.Context, arg database.UpdateTableStatusParams) (database.Table, error) {
	if m.updateTableStatusFn != nil {
		return m.updateTableStatusFn(ctx, arg)
	}
	return database.Table{ID: arg.ID, Status: arg.Status}, nil
}

func setupOrderRouter(svc *mockOrderService, store *mockOrderHandlerStore, broadcast handler.Broadcaster) *chi.Mux {
	if store == nil {
		store = &mockOrderHandlerStore{}
	}
	if broadcast == nil {
		broadcast = handler.NopBroadcaster()
	}
	h := handler.NewOrderHandler(svc, store, broadcast)
	r := chi.NewRouter()
	r.Use(middleware.Authenticate(testJWTSecret))
	r.Route("/orders", h.RegisterRoutes)
	return r
}

// --- Test data helpers ---

func testDBOrder(t *testing.T) database.Order {
	now := time.Now()
	return database.Order{
		ID:        uuid.New(),
		CreatedBy: uuid.New(),
		Status:    "open",
		OrderType: "dine_in",
		Subtotal:  testNumeric(t, "14.00"),
		Tax:       testNumeric(t, "2.24"),
		Total:     testNumeric(t, "16.24"),
		Discount:  testNumeric(t, "0.00"),
		Tip:       testNumeric(t, "0.00"),
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func testOrderResult(t *testing.T, createdBy uuid.UUID, appended bool) *service.CreateOrderResult {
	order := testDBOrder(t)
	order.CreatedBy = createdBy
	item := database.OrderItem{
		ID:              uuid.New(),
		OrderID:         order.ID,
		ProductID:       uuid.New(),
		Quantity:        2,
		UnitPrice:       testNumeric(t, "3.50"),
		Subtotal:        testNumeric(t, "7.00"),
		Status:          "pending",
		SentToKitchenAt: pgtype.Timestamptz{Time: time.Now(), Valid: true},
	}
	return &service.CreateOrderResult{
		Order:    order,
		Items:    []service.OrderItemResult{{Item: item}},
		Appended: appended,
	}
}

// --- Create tests ---

func TestOrderCreate_HappyPath(t *testing.T) {
	claims := testClaims("cashier")

	svc := &mockOrderService{
		createFn: func(ctx context.Context, req service.CreateOrderRequest) (*service.CreateOrderResult, error) {
			if req.CreatedBy != claims.UserID {
				t.Errorf("created_by: got %v, want %v", req.CreatedBy, claims.UserID)
			}
			if req.OrderType != "dine_in" {
				t.Errorf("order_type: got %v, want dine_in", req.OrderType)
			}
			if len(req.Items) != 1 {
				t.Errorf("items count: got %d, want 1", len(req.Items))
			}
			return testOrderResult(t, claims.UserID, false), nil
		},
	}

	broadcast := &recordingBroadcaster{}
	router := setupOrderRouter(svc, nil, broadcast)
	rr := doAuthRequest(t, router, "POST", "/orders", map[string]interface{}{
		"order_type": "dine_in",
		"items": []map[string]interface{}{
			{"product_id": uuid.New().String(), "quantity": 2},
		},
	}, claims)

	if rr.Code != http.StatusCreated {
		t.Fatalf("status: got %d, want %d; body: %s", rr.Code, http.StatusCreated, rr.Body.String())
	}

	resp := decodeResponse(t, rr)
	if resp["status"] != "open" {
		t.Errorf("status: got %v, want open", resp["status"])
	}
	if resp["total"] != "16.24" {
		t.Errorf("total: got %v, want 16.24", resp["total"])
	}
	if resp["appended"] != false {
		t.Errorf("appended: got %v, want false", resp["appended"])
	}

	items, ok := resp["items"].([]interface{})
	if !ok || len(items) != 1 {
		t.Fatalf("items: got %v, want 1 item", resp["items"])
	}
	item := items[0].(map[string]interface{})
	if item["unit_price"] != "3.50" {
		t.Errorf("item unit_price: got %v, want 3.50", item["unit_price"])
	}
	if item["status"] != "pending" {
		t.Errorf("item status: got %v, want pending", item["status"])
	}

	if !broadcast.has("orders", "INSERT") {
		t.Error("expected orders INSERT broadcast")
	}
	if !broadcast.has("order_items", "INSERT") {
		t.Error("expected order_items INSERT broadcast")
	}
}

func TestOrderCreate_AppendedBroadcastsUpdate(t *testing.T) {
	claims := testClaims("cashier")

	svc := &mockOrderService{
		createFn: func(ctx context.Context, req service.CreateOrderRequest) (*service.CreateOrderResult, error) {
			return testOrderResult(t, claims.UserID, true), nil
		},
	}

	broadcast := &recordingBroadcaster{}
	router := setupOrderRouter(svc, nil, broadcast)
	rr := doAuthRequest(t, router, "POST", "/orders", map[string]interface{}{
		"order_type": "dine_in",
		"table_id":   uuid.New().String(),
		"items": []map[string]interface{}{
			{"product_id": uuid.New().String(), "quantity": 1},
		},
	}, claims)

	// Appending returns 200: no new order was created.
	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want %d; body: %s", rr.Code, http.StatusOK, rr.Body.String())
	}

	resp := decodeResponse(t, rr)
	if resp["appended"] != true {
		t.Errorf("appended: got %v, want true", resp["appended"])
	}
	if !broadcast.has("orders", "UPDATE") {
		t.Error("expected orders UPDATE broadcast for appended order")
	}
	if broadcast.has("orders", "INSERT") {
		t.Error("appended order must not broadcast orders INSERT")
	}
}

func TestOrderCreate_NewDineInMarksTableOccupied(t *testing.T) {
	claims := testClaims("cashier")
	tableID := uuid.New()

	svc := &mockOrderService{
		createFn: func(ctx context.Context, req service.CreateOrderRequest) (*service.CreateOrderResult, error) {
			result := testOrderResult(t, claims.UserID, false)
			result.Order.TableID = pgtype.UUID{Bytes: tableID, Valid: true}
			return result, nil
		},
	}

	var gotTableUpdate database.UpdateTableStatusParams
	store := &mockOrderHandlerStore{
		updateTableStatusFn: func(ctx context.Context, arg database.UpdateTableStatusParams) (database.Table, error) {
			gotTableUpdate = arg
			return database.Table{ID: arg.ID, Status: arg.Status}, nil
		},
	}

	broadcast := &recordingBroadcaster{}
	router := setupOrderRouter(svc, store, broadcast)
	rr := doAuthRequest(t, router, "POST", "/orders", map[string]interface{}{
		"order_type": "dine_in",
		"table_id":   tableID.String(),
		"items": []map[string]interface{}{
			{"product_id": uuid.New().String(), "quantity": 1},
		},
	}, claims)

	if rr.Code != http.StatusCreated {
		t.Fatalf("status: got %d, want %d; body: %s", rr.Code, http.StatusCreated, rr.Body.String())
	}
	if gotTableUpdate.ID != tableID {
		t.Errorf("table id: got %v, want %v", gotTableUpdate.ID, tableID)
	}
	if gotTableUpdate.Status != "occupied" {
		t.Errorf("table status: got %v, want occupied", gotTableUpdate.Status)
	}
	if !broadcast.has("tables", "UPDATE") {
		t.Error("expected tables UPDATE broadcast")
	}
}

func TestOrderCreate_MissingOrderType(t *testing.T) {
	claims := testClaims("cashier")
	router := setupOrderRouter(&mockOrderService{}, nil, nil)

	rr := doAuthRequest(t, router, "POST", "/orders", map[string]interface{}{
		"items": []map[string]interface{}{
			{"product_id": uuid.New().String(), "quantity": 1},
		},
	}, claims)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status: got %d, want %d; body: %s", rr.Code, http.StatusBadRequest, rr.Body.String())
	}
	resp := decodeResponse(t, rr)
	if resp["error"] != "order_type is required" {
		t.Errorf("error: got %v, want 'order_type is required'", resp["error"])
	}
}

func TestOrderCreate_EmptyItems(t *testing.T) {
	claims := testClaims("cashier")
	router := setupOrderRouter(&mockOrderService{}, nil, nil)

	rr := doAuthRequest(t, router, "POST", "/orders", map[string]interface{}{
		"order_type": "dine_in",
		"items":      []map[string]interface{}{},
	}, claims)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status: got %d, want %d; body: %s", rr.Code, http.StatusBadRequest, rr.Body.String())
	}
	resp := decodeResponse(t, rr)
	if resp["error"] != "items are required" {
		t.Errorf("error: got %v, want 'items are required'", resp["error"])
	}
}

func TestOrderCreate_ZeroQuantity(t *testing.T) {
	claims := testClaims("cashier")
	router := setupOrderRouter(&mockOrderService{}, nil, nil)

	rr := doAuthRequest(t, router, "POST", "/orders", map[string]interface{}{
		"order_type": "dine_in",
		"items": []map[string]interface{}{
			{"product_id": uuid.New().String(), "quantity": 0},
		},
	}, claims)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status: got %d, want %d; body: %s", rr.Code, http.StatusBadRequest, rr.Body.String())
	}
	resp := decodeResponse(t, rr)
	if resp["error"] != "items[0]: quantity must be > 0" {
		t.Errorf("error: got %v, want 'items[0]: quantity must be > 0'", resp["error"])
	}
}

func TestOrderCreate_ServiceValidationError(t *testing.T) {
	claims := testClaims("cashier")

	svc := &mockOrderService{
		createFn: func(ctx context.Context, req service.CreateOrderRequest) (*service.CreateOrderResult, error) {
			return nil, service.ErrProductNotFound
		},
	}

	router := setupOrderRouter(svc, nil, nil)
	rr := doAuthRequest(t, router, "POST", "/orders", map[string]interface{}{
		"order_type": "dine_in",
		"items": []map[string]interface{}{
			{"product_id": uuid.New().String(), "quantity": 1},
		},
	}, claims)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status: got %d, want %d; body: %s", rr.Code, http.StatusBadRequest, rr.Body.String())
	}
}

func TestOrderCreate_ServiceInternalError(t *testing.T) {
	claims := testClaims("cashier")

	svc := &mockOrderService{
		createFn: func(ctx context.Context, req service.CreateOrderRequest) (*service.CreateOrderResult, error) {
			return nil, context.DeadlineExceeded
		},
	}

	router := setupOrderRouter(svc, nil, nil)
	rr := doAuthRequest(t, router, "POST", "/orders", map[string]interface{}{
		"order_type": "dine_in",
		"items": []map[string]interface{}{
			{"product_id": uuid.New().String(), "quantity": 1},
		},
	}, claims)

	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("status: got %d, want %d; body: %s", rr.Code, http.StatusInternalServerError, rr.Body.String())
	}
}

func TestOrderCreate_NoAuth(t *testing.T) {
	router := setupOrderRouter(&mockOrderService{}, nil, nil)

	req := httptest.NewRequest("POST", "/orders", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("status: got %d, want %d; body: %s", rr.Code, http.StatusUnauthorized, rr.Body.String())
	}
}

// --- List tests ---

func TestOrderList_HappyPath(t *testing.T) {
	claims := testClaims("cashier")

	store := &mockOrderHandlerStore{
		listOrdersFn: func(ctx context.Context, arg database.ListOrdersParams) ([]database.Order, error) {
			if arg.Limit != 20 {
				t.Errorf("limit: got %d, want 20", arg.Limit)
			}
			if arg.Offset != 0 {
				t.Errorf("offset: got %d, want 0", arg.Offset)
			}
			return []database.Order{testDBOrder(t), testDBOrder(t)}, nil
		},
	}

	router := setupOrderRouter(&mockOrderService{}, store, nil)
	rr := doAuthRequest(t, router, "GET", "/orders", nil, claims)

	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want %d; body: %s", rr.Code, http.StatusOK, rr.Body.String())
	}

	resp := decodeResponse(t, rr)
	orders, ok := resp["orders"].([]interface{})
	if !ok {
		t.Fatal("orders not present in response")
	}
	if len(orders) != 2 {
		t.Fatalf("orders count: got %d, want 2", len(orders))
	}
}

func TestOrderList_LimitCappedAt100(t *testing.T) {
	claims := testClaims("cashier")

	store := &mockOrderHandlerStore{
		listOrdersFn: func(ctx context.Context, arg database.ListOrdersParams) ([]database.Order, error) {
			if arg.Limit != 100 {
				t.Errorf("limit: got %d, want 100 (should be capped)", arg.Limit)
			}
			return []database.Order{}, nil
		},
	}

	router := setupOrderRouter(&mockOrderService{}, store, nil)
	rr := doAuthRequest(t, router, "GET", "/orders?limit=999", nil, claims)

	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want %d; body: %s", rr.Code, http.StatusOK, rr.Body.String())
	}
}

func TestOrderList_WithFilters(t *testing.T) {
	claims := testClaims("cashier")

	store := &mockOrderHandlerStore{
		listOrdersFn: func(ctx context.Context, arg database.ListOrdersParams) ([]database.Order, error) {
			if !arg.Status.Valid || arg.Status.String != "open" {
				t.Errorf("status filter: got %v, want open", arg.Status)
			}
			if !arg.OrderType.Valid || arg.OrderType.String != "takeout" {
				t.Errorf("type filter: got %v, want takeout", arg.OrderType)
			}
			start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
			if !arg.StartDate.Valid || !arg.StartDate.Time.Equal(start) {
				t.Errorf("start_date: got %v, want %v", arg.StartDate.Time, start)
			}
			// end_date is inclusive, so the query bound is the next day
			end := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
			if !arg.EndDate.Valid || !arg.EndDate.Time.Equal(end) {
				t.Errorf("end_date: got %v, want %v", arg.EndDate.Time, end)
			}
			return []database.Order{}, nil
		},
	}

	router := setupOrderRouter(&mockOrderService{}, store, nil)
	rr := doAuthRequest(t, router, "GET", "/orders?status=open&type=takeout&start_date=2026-01-01&end_date=2026-01-31", nil, claims)

	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want %d; body: %s", rr.Code, http.StatusOK, rr.Body.String())
	}
}

func TestOrderList_InvalidStatusFilter(t *testing.T) {
	claims := testClaims("cashier")
	router := setupOrderRouter(&mockOrderService{}, &mockOrderHandlerStore{}, nil)

	rr := doAuthRequest(t, router, "GET", "/orders?status=bogus", nil, claims)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status: got %d, want %d; body: %s", rr.Code, http.StatusBadRequest, rr.Body.String())
	}
}

func TestOrderList_InvalidDateFormat(t *testing.T) {
	claims := testClaims("cashier")
	router := setupOrderRouter(&mockOrderService{}, &mockOrderHandlerStore{}, nil)

	rr := doAuthRequest(t, router, "GET", "/orders?start_date=not-a-date", nil, claims)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status: got %d, want %d; body: %s", rr.Code, http.StatusBadRequest, rr.Body.String())
	}
}

// --- Get tests ---

func TestOrderGet_HappyPath(t *testing.T) {
	claims := testClaims("cashier")
	order := testDBOrder(t)
	itemID := uuid.New()
	modifierID := uuid.New()

	store := &mockOrderHandlerStore{
		getOrderFn: func(ctx context.Context, id uuid.UUID) (database.Order, error) {
			if id != order.ID {
				t.Errorf("order id: got %v, want %v", id, order.ID)
			}
			return order, nil
		},
		listOrderItemsByOrderFn: func(ctx context.Context, orderID uuid.UUID) ([]database.OrderItem, error) {
			return []database.OrderItem{
				{
					ID:        itemID,
					OrderID:   order.ID,
					ProductID: uuid.New(),
					Quantity:  2,
					UnitPrice: testNumeric(t, "3.50"),
					Subtotal:  testNumeric(t, "7.00"),
					Status:    "pending",
				},
			}, nil
		},
		listItemModifiersFn: func(ctx context.Context, itemIDs []uuid.UUID) ([]database.OrderItemModifier, error) {
			if len(itemIDs) != 1 || itemIDs[0] != itemID {
				t.Errorf("item ids: got %v, want [%v]", itemIDs, itemID)
			}
			return []database.OrderItemModifier{
				{
					ID:            uuid.New(),
					OrderItemID:   itemID,
					ModifierID:    modifierID,
					ModifierName:  "Extra Queso",
					PriceOverride: testNumeric(t, "0.50"),
				},
			}, nil
		},
	}

	router := setupOrderRouter(&mockOrderService{}, store, nil)
	rr := doAuthRequest(t, router, "GET", "/orders/"+order.ID.String(), nil, claims)

	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want %d; body: %s", rr.Code, http.StatusOK, rr.Body.String())
	}

	resp := decodeResponse(t, rr)
	items := resp["items"].([]interface{})
	if len(items) != 1 {
		t.Fatalf("items count: got %d, want 1", len(items))
	}
	mods := items[0].(map[string]interface{})["modifiers"].([]interface{})
	if len(mods) != 1 {
		t.Fatalf("modifiers count: got %d, want 1", len(mods))
	}
	mod := mods[0].(map[string]interface{})
	if mod["modifier_name"] != "Extra Queso" {
		t.Errorf("modifier_name: got %v, want Extra Queso", mod["modifier_name"])
	}
	if mod["price_override"] != "0.50" {
		t.Errorf("price_override: got %v, want 0.50", mod["price_override"])
	}
}

func TestOrderGet_NotFound(t *testing.T) {
	claims := testClaims("cashier")
	router := setupOrderRouter(&mockOrderService{}, &mockOrderHandlerStore{}, nil)

	rr := doAuthRequest(t, router, "GET", "/orders/"+uuid.New().String(), nil, claims)

	if rr.Code != http.StatusNotFound {
		t.Fatalf("status: got %d, want %d; body: %s", rr.Code, http.StatusNotFound, rr.Body.String())
	}
}

func TestOrderGet_InvalidID(t *testing.T) {
	claims := testClaims("cashier")
	router := setupOrderRouter(&mockOrderService{}, &mockOrderHandlerStore{}, nil)

	rr := doAuthRequest(t, router, "GET", "/orders/not-a-uuid", nil, claims)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status: got %d, want %d; body: %s", rr.Code, http.StatusBadRequest, rr.Body.String())
	}
}

// --- UpdateStatus tests ---

func TestOrderUpdateStatus_HappyPath(t *testing.T) {
	claims := testClaims("cashier")
	order := testDBOrder(t)

	store := &mockOrderHandlerStore{
		updateOrderStatusFn: func(ctx context.Context, arg database.UpdateOrderStatusParams) (database.Order, error) {
			if arg.Status != "in_progress" {
				t.Errorf("status: got %v, want in_progress", arg.Status)
			}
			order.Status = arg.Status
			return order, nil
		},
	}

	broadcast := &recordingBroadcaster{}
	router := setupOrderRouter(&mockOrderService{}, store, broadcast)
	rr := doAuthRequest(t, router, "PATCH", "/orders/"+order.ID.String()+"/status", map[string]interface{}{
		"status": "in_progress",
	}, claims)

	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want %d; body: %s", rr.Code, http.StatusOK, rr.Body.String())
	}
	resp := decodeResponse(t, rr)
	if resp["status"] != "in_progress" {
		t.Errorf("status: got %v, want in_progress", resp["status"])
	}
	if !broadcast.has("orders", "UPDATE") {
		t.Error("expected orders UPDATE broadcast")
	}
}

func TestOrderUpdateStatus_InvalidStatus(t *testing.T) {
	claims := testClaims("cashier")
	router := setupOrderRouter(&mockOrderService{}, &mockOrderHandlerStore{}, nil)

	rr := doAuthRequest(t, router, "PATCH", "/orders/"+uuid.New().String()+"/status", map[string]interface{}{
		"status": "bogus",
	}, claims)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status: got %d, want %d; body: %s", rr.Code, http.StatusBadRequest, rr.Body.String())
	}
}

// --- Cancel tests ---

func TestOrderCancel_HappyPath(t *testing.T) {
	claims := testClaims("cashier")
	order := testDBOrder(t)

	store := &mockOrderHandlerStore{
		cancelOrderFn: func(ctx context.Context, id uuid.UUID) (database.Order, error) {
			order.Status = "cancelled"
			return order, nil
		},
	}

	router := setupOrderRouter(&mockOrderService{}, store, nil)
	rr := doAuthRequest(t, router, "DELETE", "/orders/"+order.ID.String(), nil, claims)

	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want %d; body: %s", rr.Code, http.StatusOK, rr.Body.String())
	}
	resp := decodeResponse(t, rr)
	if resp["status"] != "cancelled" {
		t.Errorf("status: got %v, want cancelled", resp["status"])
	}
}

func TestOrderCancel_AlreadyFinalized(t *testing.T) {
	claims := testClaims("cashier")
	router := setupOrderRouter(&mockOrderService{}, &mockOrderHandlerStore{}, nil)

	rr := doAuthRequest(t, router, "DELETE", "/orders/"+uuid.New().String(), nil, claims)

	if rr.Code != http.StatusConflict {
		t.Fatalf("status: got %d, want %d; body: %s", rr.Code, http.StatusConflict, rr.Body.String())
	}
}
