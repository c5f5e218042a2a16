package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/fjod/go_cart/session-cart/internal/domain"
	"github.com/fjod/go_cart/session-cart/internal/identity"
	"github.com/fjod/go_cart/session-cart/internal/service"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type reconcilerMock struct {
	result service.Result
	cart   *domain.Cart

	gotID        domain.SessionIdentity
	gotItem      domain.LineItem
	gotProductID string
}

func (m *reconcilerMock) AddItem(_ context.Context, id domain.SessionIdentity, item domain.LineItem) service.Result {
	m.gotID, m.gotItem = id, item
	return m.result
}

func (m *reconcilerMock) RemoveItem(_ context.Context, id domain.SessionIdentity, productID string) service.Result {
	m.gotID, m.gotProductID = id, productID
	return m.result
}

func (m *reconcilerMock) GetCart(_ context.Context, id domain.SessionIdentity) *domain.Cart {
	m.gotID = id
	return m.cart
}

func newTestRouter(m *reconcilerMock) http.Handler {
	resolver := identity.NewResolver(identity.ContextSource{}, identity.ContextSource{})
	handler := NewCartHandler(m, resolver, 5*time.Second, zap.NewNop())
	return NewRouter(handler, RouterOptions{
		RequestTimeout: 5 * time.Second,
		Metrics: http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte("# metrics"))
		}),
		Logger: zap.NewNop(),
	})
}

func withSession(req *http.Request, token string) *http.Request {
	req.AddCookie(&http.Cookie{Name: SessionCookieName, Value: token})
	return req
}

func decodeResult(t *testing.T, rec *httptest.ResponseRecorder) service.Result {
	t.Helper()
	var res service.Result
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&res))
	return res
}

func TestAddItem_Created(t *testing.T) {
	m := &reconcilerMock{result: service.Result{Success: true, Created: true, Message: "mug added to cart"}}
	body := `{"product_id":"p1","name":"mug","price":"12.50","qty":1,"slug":"mug"}`

	req := withSession(httptest.NewRequest(http.MethodPost, "/api/v1/cart/items", bytes.NewBufferString(body)), "sess-1")
	req.Header.Set(UserIDHeader, "user-7")
	rec := httptest.NewRecorder()
	newTestRouter(m).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusCreated, rec.Code)
	res := decodeResult(t, rec)
	assert.True(t, res.Success)
	assert.Equal(t, "mug added to cart", res.Message)

	assert.Equal(t, domain.SessionIdentity{SessionToken: "sess-1", UserID: "user-7"}, m.gotID)
	assert.Equal(t, "p1", m.gotItem.ProductID)
	assert.Equal(t, "12.50", m.gotItem.Price.StringFixed(2))
	assert.Equal(t, 1, m.gotItem.Qty)
}

func TestAddItem_Updated(t *testing.T) {
	m := &reconcilerMock{result: service.Result{Success: true, Message: "mug updated in cart"}}
	body := `{"product_id":"p1","name":"mug","price":12.5,"qty":1,"slug":"mug"}`

	req := withSession(httptest.NewRequest(http.MethodPost, "/api/v1/cart/items", bytes.NewBufferString(body)), "sess-1")
	rec := httptest.NewRecorder()
	newTestRouter(m).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, m.gotID.UserID)
}

func TestAddItem_InvalidJSON(t *testing.T) {
	m := &reconcilerMock{}

	req := withSession(httptest.NewRequest(http.MethodPost, "/api/v1/cart/items", bytes.NewBufferString(`{"product_id":`)), "sess-1")
	rec := httptest.NewRecorder()
	newTestRouter(m).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	res := decodeResult(t, rec)
	assert.False(t, res.Success)
	assert.Equal(t, "invalid JSON body", res.Message)
	assert.Empty(t, m.gotItem.ProductID)
}

func TestAddItem_FailureStatus(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{service.ErrSessionMissing, http.StatusUnauthorized},
		{fmt.Errorf("%w: qty must be at least 1", service.ErrValidation), http.StatusBadRequest},
		{service.ErrProductNotFound, http.StatusNotFound},
		{service.ErrCartNotFound, http.StatusNotFound},
		{service.ErrItemNotFound, http.StatusNotFound},
		{service.ErrInsufficientStock, http.StatusConflict},
		{fmt.Errorf("%w: %w", service.ErrStorage, context.DeadlineExceeded), http.StatusGatewayTimeout},
		{fmt.Errorf("%w: %w", service.ErrStorage, errors.New("boom")), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			m := &reconcilerMock{result: service.Result{Message: tt.err.Error(), Err: tt.err}}
			body := `{"product_id":"p1","name":"mug","price":"1.00","qty":1,"slug":"mug"}`

			req := withSession(httptest.NewRequest(http.MethodPost, "/api/v1/cart/items", bytes.NewBufferString(body)), "sess-1")
			rec := httptest.NewRecorder()
			newTestRouter(m).ServeHTTP(rec, req)

			assert.Equal(t, tt.want, rec.Code)
			res := decodeResult(t, rec)
			assert.False(t, res.Success)
			assert.Equal(t, tt.err.Error(), res.Message)
		})
	}
}

func TestRemoveItem_Success(t *testing.T) {
	m := &reconcilerMock{result: service.Result{Success: true, Message: "mug removed from cart"}}

	req := withSession(httptest.NewRequest(http.MethodDelete, "/api/v1/cart/items/p1", nil), "sess-1")
	rec := httptest.NewRecorder()
	newTestRouter(m).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "p1", m.gotProductID)
	assert.Equal(t, "sess-1", m.gotID.SessionToken)
	assert.Equal(t, "mug removed from cart", decodeResult(t, rec).Message)
}

func TestRemoveItem_ItemNotFound(t *testing.T) {
	m := &reconcilerMock{result: service.Result{Message: "Item not found in cart", Err: service.ErrItemNotFound}}

	req := withSession(httptest.NewRequest(http.MethodDelete, "/api/v1/cart/items/p9", nil), "sess-1")
	rec := httptest.NewRecorder()
	newTestRouter(m).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Item not found in cart", decodeResult(t, rec).Message)
}

func TestGetCart_Success(t *testing.T) {
	m := &reconcilerMock{cart: &domain.Cart{
		ID:           "cart-1",
		SessionToken: "sess-1",
		Items: []domain.LineItem{
			{ProductID: "p1", Name: "mug", Price: decimal.RequireFromString("10"), Qty: 2, Slug: "mug"},
		},
		PriceBreakdown: domain.PriceBreakdown{
			ItemsPrice: "20.00", ShippingPrice: "100.00", TaxPrice: "3.00", TotalPrice: "123.00",
		},
	}}

	req := withSession(httptest.NewRequest(http.MethodGet, "/api/v1/cart", nil), "sess-1")
	rec := httptest.NewRecorder()
	newTestRouter(m).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.NotContains(t, body, "session_token")
	assert.NotContains(t, body, "sess-1")

	var got CartResponseDTO
	require.NoError(t, json.Unmarshal([]byte(body), &got))
	assert.Equal(t, "cart-1", got.ID)
	assert.Equal(t, "123.00", got.TotalPrice)
	require.Len(t, got.Items, 1)
	assert.Equal(t, 2, got.Items[0].Qty)
	assert.Equal(t, "10.00", got.Items[0].Price)
}

func TestGetCart_NotFound(t *testing.T) {
	m := &reconcilerMock{}

	req := withSession(httptest.NewRequest(http.MethodGet, "/api/v1/cart", nil), "sess-1")
	rec := httptest.NewRecorder()
	newTestRouter(m).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
	res := decodeResult(t, rec)
	assert.False(t, res.Success)
	assert.Equal(t, "Cart not found", res.Message)
}

func TestSessionMiddleware_IssuesCookie(t *testing.T) {
	m := &reconcilerMock{}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/cart", nil)
	rec := httptest.NewRecorder()
	newTestRouter(m).ServeHTTP(rec, req)

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, SessionCookieName, cookies[0].Name)
	assert.NotEmpty(t, cookies[0].Value)
	assert.True(t, cookies[0].HttpOnly)
	assert.Equal(t, cookies[0].Value, m.gotID.SessionToken)
}

func TestSessionMiddleware_KeepsExistingCookie(t *testing.T) {
	m := &reconcilerMock{}

	req := withSession(httptest.NewRequest(http.MethodGet, "/api/v1/cart", nil), "sess-1")
	rec := httptest.NewRecorder()
	newTestRouter(m).ServeHTTP(rec, req)

	assert.Empty(t, rec.Result().Cookies())
	assert.Equal(t, "sess-1", m.gotID.SessionToken)
}

func TestHealthAndMetrics(t *testing.T) {
	router := newTestRouter(&reconcilerMock{})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "# metrics", rec.Body.String())
}

func TestGetCart_HandlerWithoutSession(t *testing.T) {
	m := &reconcilerMock{}
	resolver := identity.NewResolver(identity.ContextSource{}, identity.ContextSource{})
	handler := NewCartHandler(m, resolver, time.Second, zap.NewNop())

	rec := httptest.NewRecorder()
	handler.GetCart(rec, httptest.NewRequest(http.MethodGet, "/api/v1/cart", nil))

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Cart session not found", decodeResult(t, rec).Message)
}
