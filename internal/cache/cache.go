package cache

import (
	"context"
	"errors"

	"github.com/fjod/go_cart/session-cart/internal/domain"
)

// CartCache is a read view of carts. The repository stays authoritative.
type CartCache interface {
	Get(ctx context.Context, key domain.LookupKey) (*domain.Cart, error)
	// Set stores cart unless a newer version has been invalidated since it
	// was read. Skipping is not an error.
	Set(ctx context.Context, key domain.LookupKey, cart *domain.Cart) error
	// Invalidate drops the cached cart and refuses later fills older than
	// version.
	Invalidate(ctx context.Context, key domain.LookupKey, version int64) error
}

var ErrCacheMiss = errors.New("cache miss")
