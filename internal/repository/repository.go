package repository

import (
	"context"
	"errors"

	"github.com/fjod/go_cart/session-cart/internal/domain"
)

var (
	ErrCartNotFound = errors.New("Cart not found")
	// ErrVersionConflict means another request changed or created the cart
	// between our read and our write.
	ErrVersionConflict = errors.New("cart was modified concurrently")
)

// CartRepository defines the cart storage operations the reconciler needs.
type CartRepository interface {
	GetByUserID(ctx context.Context, userID string) (*domain.Cart, error)
	GetBySessionToken(ctx context.Context, token string) (*domain.Cart, error)
	// Create inserts a new cart and fills in its ID, Version and timestamps.
	Create(ctx context.Context, cart *domain.Cart) error
	// UpdateItemsAndTotals writes items and totals in one call, only if the
	// stored cart still has the given version.
	UpdateItemsAndTotals(ctx context.Context, cartID string, version int64, items []domain.LineItem, totals domain.PriceBreakdown) (*domain.Cart, error)
}
