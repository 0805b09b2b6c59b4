package httpx

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/lib/pq"
	"github.com/rs/zerolog"
	"github.com/safar/merch-store/internal/models"
	"github.com/safar/merch-store/internal/orders"
	"github.com/safar/merch-store/internal/store"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeService struct {
	placeErr error
	placed   []orders.LineItem
	meta     models.CustomerMeta

	order    *models.Order
	orderErr error

	listFilter orders.ListOrdersFilter

	status models.OrderStatus

	updatedTo models.OrderStatus
	deleted   int64
	marked    int64
	readerAdm bool
}

func (f *fakeService) PlaceOrder(_ context.Context, meta models.CustomerMeta, lines []orders.LineItem) (*models.Order, error) {
	f.meta = meta
	f.placed = lines
	if f.placeErr != nil {
		return nil, f.placeErr
	}
	return f.order, nil
}

func (f *fakeService) GetOrderByID(context.Context, int64) (*models.Order, error) {
	return f.order, f.orderErr
}

func (f *fakeService) ListOrders(_ context.Context, filter orders.ListOrdersFilter) (*store.CursorPage[models.Order], error) {
	f.listFilter = filter
	return &store.CursorPage[models.Order]{Items: []models.Order{*f.order}, NextCursor: "next", HasMore: true}, nil
}

func (f *fakeService) GetOrderStatus(context.Context, int64) (models.OrderStatus, error) {
	return f.status, f.orderErr
}

func (f *fakeService) CancelOrder(context.Context, int64) (*models.Order, error) {
	return f.order, f.orderErr
}

func (f *fakeService) UpdateOrderStatus(_ context.Context, _ int64, status models.OrderStatus) (*models.Order, error) {
	f.updatedTo = status
	return f.order, f.orderErr
}

func (f *fakeService) DeleteOrder(_ context.Context, id int64) error {
	f.deleted = id
	return f.orderErr
}

func (f *fakeService) AddOrderMessage(_ context.Context, id int64, content string, fromAdmin bool) (*models.OrderMessage, error) {
	if f.orderErr != nil {
		return nil, f.orderErr
	}
	return &models.OrderMessage{ID: 1, OrderID: id, Content: content, IsFromAdmin: fromAdmin}, nil
}

func (f *fakeService) GetOrderMessages(context.Context, int64) ([]models.OrderMessage, error) {
	return []models.OrderMessage{{ID: 1, Content: "hi"}}, f.orderErr
}

func (f *fakeService) MarkMessagesRead(_ context.Context, _ int64, readerIsAdmin bool) (int64, error) {
	f.readerAdm = readerIsAdmin
	return f.marked, f.orderErr
}

func sampleOrder() *models.Order {
	return &models.Order{
		ID:          7,
		OrderDate:   time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC),
		TotalAmount: decimal.RequireFromString("35.00"),
		Status:      models.OrderStatusCreated,
		CustomerMeta: models.CustomerMeta{
			Name: "Ada", Email: "ada@example.com", Address: "1 Main St",
		},
	}
}

const validOrderBody = `{
	"customer_name": "Ada",
	"customer_email": "ada@example.com",
	"customer_address": "1 Main St",
	"items": [{"merchandise_id": 1, "size": "M", "quantity": 2}]
}`

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func newTestRouter(svc OrderService) http.Handler {
	return NewRouter(svc, RouterConfig{Logger: zerolog.Nop()})
}

func TestCreateOrder(t *testing.T) {
	svc := &fakeService{order: sampleOrder()}
	rec := do(t, newTestRouter(svc), http.MethodPost, "/orders", validOrderBody)

	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "ada@example.com", svc.meta.Email)
	require.Len(t, svc.placed, 1)
	assert.Equal(t, orders.LineItem{MerchandiseID: 1, Size: "M", Quantity: 2}, svc.placed[0])

	var got models.Order
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, int64(7), got.ID)
	assert.True(t, got.TotalAmount.Equal(decimal.NewFromInt(35)))
}

func TestCreateOrderRejectsBadCustomer(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"invalid json", `{`},
		{"missing name", `{"customer_email":"a@b.c","customer_address":"x","items":[]}`},
		{"bad email", `{"customer_name":"A","customer_email":"nope","customer_address":"x","items":[]}`},
		{"missing address", `{"customer_name":"A","customer_email":"a@b.c","items":[]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &fakeService{}
			rec := do(t, newTestRouter(svc), http.MethodPost, "/orders", tt.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Nil(t, svc.placed)
		})
	}
}

func TestCreateOrderErrorMapping(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"validation", &orders.ValidationError{Index: 0, Field: "quantity", Reason: "must be positive"}, http.StatusBadRequest, "validation"},
		{"stock", &orders.StockError{MerchandiseID: 1, Name: "Tee", Size: "M", Requested: 3, Available: 2}, http.StatusConflict, "stock"},
		{"failure", &orders.FailureError{Op: "place order", Err: errors.New("boom")}, http.StatusInternalServerError, "failure"},
		{"unclassified", errors.New("boom"), http.StatusInternalServerError, "failure"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &fakeService{placeErr: tt.err}
			rec := do(t, newTestRouter(svc), http.MethodPost, "/orders", validOrderBody)

			require.Equal(t, tt.status, rec.Code)
			assert.Equal(t, tt.code, decodeError(t, rec)["code"])
		})
	}
}

func TestStockErrorBody(t *testing.T) {
	svc := &fakeService{placeErr: &orders.StockError{MerchandiseID: 1, Name: "Tee", Size: "M", Requested: 3, Available: 2}}
	rec := do(t, newTestRouter(svc), http.MethodPost, "/orders", validOrderBody)

	require.Equal(t, http.StatusConflict, rec.Code)
	detail, ok := decodeError(t, rec)["detail"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "Tee", detail["name"])
	assert.Equal(t, "M", detail["size"])
	assert.EqualValues(t, 3, detail["requested"])
	assert.EqualValues(t, 2, detail["available"])
}

func TestFailureResponseIsOpaque(t *testing.T) {
	svc := &fakeService{placeErr: &orders.FailureError{Op: "place order", Err: errors.New("password=hunter2")}}
	rec := do(t, newTestRouter(svc), http.MethodPost, "/orders", validOrderBody)

	require.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "hunter2")
	assert.Empty(t, rec.Header().Get("Retry-After"))
}

func TestRetryableFailureSetsRetryAfter(t *testing.T) {
	svc := &fakeService{placeErr: &orders.FailureError{Op: "place order", Err: &pq.Error{Code: "40P01"}}}
	rec := do(t, newTestRouter(svc), http.MethodPost, "/orders", validOrderBody)

	require.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "1", rec.Header().Get("Retry-After"))
}

func TestOrderRateLimit(t *testing.T) {
	svc := &fakeService{order: sampleOrder()}
	router := NewRouter(svc, RouterConfig{Logger: zerolog.Nop(), OrderRateLimit: 0.001, OrderRateBurst: 1})

	first := do(t, router, http.MethodPost, "/orders", validOrderBody)
	second := do(t, router, http.MethodPost, "/orders", validOrderBody)

	assert.Equal(t, http.StatusCreated, first.Code)
	assert.Equal(t, http.StatusTooManyRequests, second.Code)

	// reads are not limited
	list := do(t, router, http.MethodGet, "/orders", "")
	assert.Equal(t, http.StatusOK, list.Code)
}

func TestGetOrder(t *testing.T) {
	t.Run("found", func(t *testing.T) {
		rec := do(t, newTestRouter(&fakeService{order: sampleOrder()}), http.MethodGet, "/orders/7", "")
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("not found", func(t *testing.T) {
		svc := &fakeService{orderErr: fmt.Errorf("order 7: %w", orders.ErrNotFound)}
		rec := do(t, newTestRouter(svc), http.MethodGet, "/orders/7", "")
		assert.Equal(t, http.StatusNotFound, rec.Code)
		assert.Equal(t, "not_found", decodeError(t, rec)["code"])
	})

	t.Run("bad id", func(t *testing.T) {
		rec := do(t, newTestRouter(&fakeService{}), http.MethodGet, "/orders/abc", "")
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestListOrdersPassesFilter(t *testing.T) {
	svc := &fakeService{order: sampleOrder()}
	rec := do(t, newTestRouter(svc), http.MethodGet, "/orders?status=created&email=ada@example.com&cursor=abc&limit=5", "")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, orders.ListOrdersFilter{
		Status: "created", CustomerEmail: "ada@example.com", Cursor: "abc", Limit: 5,
	}, svc.listFilter)

	var page store.CursorPage[models.Order]
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &page))
	assert.True(t, page.HasMore)
	assert.Equal(t, "next", page.NextCursor)
}

func TestListOrdersRejectsBadLimit(t *testing.T) {
	rec := do(t, newTestRouter(&fakeService{order: sampleOrder()}), http.MethodGet, "/orders?limit=zero", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetOrderStatus(t *testing.T) {
	svc := &fakeService{status: models.OrderStatusShipped}
	rec := do(t, newTestRouter(svc), http.MethodGet, "/orders/7/status", "")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "shipped", decodeError(t, rec)["status"])
}

func TestCancelOrderInvalidTransition(t *testing.T) {
	svc := &fakeService{orderErr: &orders.InvalidTransitionError{
		OrderID: 7, From: models.OrderStatusShipped, To: models.OrderStatusCancelled,
	}}
	rec := do(t, newTestRouter(svc), http.MethodPost, "/orders/7/cancel", "")

	require.Equal(t, http.StatusConflict, rec.Code)
	body := decodeError(t, rec)
	assert.Equal(t, "invalid_transition", body["code"])
}

func TestUpdateOrderStatus(t *testing.T) {
	t.Run("known status", func(t *testing.T) {
		svc := &fakeService{order: sampleOrder()}
		rec := do(t, newTestRouter(svc), http.MethodPut, "/orders/7/status", `{"status":"delivered"}`)
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, models.OrderStatusDelivered, svc.updatedTo)
	})

	t.Run("unknown status", func(t *testing.T) {
		svc := &fakeService{order: sampleOrder()}
		rec := do(t, newTestRouter(svc), http.MethodPut, "/orders/7/status", `{"status":"lost"}`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Empty(t, svc.updatedTo)
	})
}

func TestDeleteOrder(t *testing.T) {
	svc := &fakeService{}
	rec := do(t, newTestRouter(svc), http.MethodDelete, "/orders/9", "")

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, int64(9), svc.deleted)
}

func TestMessages(t *testing.T) {
	svc := &fakeService{marked: 2}
	router := newTestRouter(svc)

	rec := do(t, router, http.MethodPost, "/orders/7/messages", `{"content":"where is it?"}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	var msg models.OrderMessage
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &msg))
	assert.Equal(t, "where is it?", msg.Content)
	assert.False(t, msg.IsFromAdmin)

	rec = do(t, router, http.MethodGet, "/orders/7/messages", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, router, http.MethodPost, "/orders/7/messages/read", `{"reader_is_admin":true}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, svc.readerAdm)
	assert.EqualValues(t, 2, decodeError(t, rec)["marked"])
}

func TestHealthz(t *testing.T) {
	rec := do(t, newTestRouter(&fakeService{}), http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	router := NewRouter(&fakeService{}, RouterConfig{
		Logger: zerolog.Nop(),
		Ready:  func(context.Context) error { return errors.New("db down") },
	})
	rec = do(t, router, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
