package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/fjod/go_cart/session-cart/internal/domain"
	"github.com/fjod/go_cart/session-cart/internal/identity"
	"github.com/fjod/go_cart/session-cart/internal/money"
	"github.com/fjod/go_cart/session-cart/internal/service"
	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// CartReconciler is the part of service.CartService the handlers call.
type CartReconciler interface {
	AddItem(ctx context.Context, id domain.SessionIdentity, item domain.LineItem) service.Result
	RemoveItem(ctx context.Context, id domain.SessionIdentity, productID string) service.Result
	GetCart(ctx context.Context, id domain.SessionIdentity) *domain.Cart
}

type CartHandler struct {
	carts    CartReconciler
	resolver *identity.Resolver
	timeout  time.Duration
	logger   *zap.Logger
}

func NewCartHandler(carts CartReconciler, resolver *identity.Resolver, timeout time.Duration, logger *zap.Logger) *CartHandler {
	return &CartHandler{
		carts:    carts,
		resolver: resolver,
		timeout:  timeout,
		logger:   logger,
	}
}

type AddItemRequestDTO struct {
	ProductID string          `json:"product_id"`
	Name      string          `json:"name"`
	Price     decimal.Decimal `json:"price"`
	Qty       int             `json:"qty"`
	Slug      string          `json:"slug"`
}

type CartItemDTO struct {
	ProductID string `json:"product_id"`
	Name      string `json:"name"`
	Price     string `json:"price"`
	Qty       int    `json:"qty"`
	Slug      string `json:"slug"`
}

// CartResponseDTO is the cart as shown to the browser. The session token
// stays in its HttpOnly cookie.
type CartResponseDTO struct {
	ID            string        `json:"id"`
	UserID        string        `json:"user_id,omitempty"`
	Items         []CartItemDTO `json:"items"`
	ItemsPrice    string        `json:"items_price"`
	ShippingPrice string        `json:"shipping_price"`
	TaxPrice      string        `json:"tax_price"`
	TotalPrice    string        `json:"total_price"`
	UpdatedAt     time.Time     `json:"updated_at"`
}

func toCartResponse(cart *domain.Cart) CartResponseDTO {
	items := make([]CartItemDTO, 0, len(cart.Items))
	for _, item := range cart.Items {
		items = append(items, CartItemDTO{
			ProductID: item.ProductID,
			Name:      item.Name,
			Price:     money.Format(item.Price),
			Qty:       item.Qty,
			Slug:      item.Slug,
		})
	}

	return CartResponseDTO{
		ID:            cart.ID,
		UserID:        cart.UserID,
		Items:         items,
		ItemsPrice:    cart.ItemsPrice,
		ShippingPrice: cart.ShippingPrice,
		TaxPrice:      cart.TaxPrice,
		TotalPrice:    cart.TotalPrice,
		UpdatedAt:     cart.UpdatedAt,
	}
}

func (h *CartHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var req AddItemRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondJSON(w, http.StatusBadRequest, service.Result{Message: "invalid JSON body"})
		return
	}

	// a missing session is reported by the reconciler like any other failure
	id, _ := h.resolver.Resolve(ctx)

	res := h.carts.AddItem(ctx, id, domain.LineItem{
		ProductID: req.ProductID,
		Name:      req.Name,
		Price:     req.Price,
		Qty:       req.Qty,
		Slug:      req.Slug,
	})
	if !res.Success {
		h.respondJSON(w, statusFor(res.Err), res)
		return
	}

	status := http.StatusOK
	if res.Created {
		status = http.StatusCreated
	}
	h.respondJSON(w, status, res)
}

func (h *CartHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	productID := chi.URLParam(r, "product_id")
	if productID == "" {
		h.respondJSON(w, http.StatusBadRequest, service.Result{Message: "product_id is required"})
		return
	}

	id, _ := h.resolver.Resolve(ctx)

	res := h.carts.RemoveItem(ctx, id, productID)
	if !res.Success {
		h.respondJSON(w, statusFor(res.Err), res)
		return
	}
	h.respondJSON(w, http.StatusOK, res)
}

func (h *CartHandler) GetCart(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	id, err := h.resolver.Resolve(ctx)
	if err != nil {
		h.respondJSON(w, http.StatusUnauthorized, service.Result{Message: err.Error()})
		return
	}

	cart := h.carts.GetCart(ctx, id)
	if cart == nil {
		h.respondJSON(w, http.StatusNotFound, service.Result{Message: service.ErrCartNotFound.Error()})
		return
	}
	h.respondJSON(w, http.StatusOK, toCartResponse(cart))
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, service.ErrSessionMissing):
		return http.StatusUnauthorized
	case errors.Is(err, service.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, service.ErrProductNotFound),
		errors.Is(err, service.ErrCartNotFound),
		errors.Is(err, service.ErrItemNotFound):
		return http.StatusNotFound
	case errors.Is(err, service.ErrInsufficientStock):
		return http.StatusConflict
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

func (h *CartHandler) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Warn("failed to encode response", zap.Error(err))
	}
}
