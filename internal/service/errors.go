package service

import (
	"errors"
	"fmt"

	"github.com/fjod/go_cart/session-cart/internal/catalog"
	"github.com/fjod/go_cart/session-cart/internal/identity"
	"github.com/fjod/go_cart/session-cart/internal/repository"
	"github.com/fjod/go_cart/session-cart/internal/stock"
)

var (
	ErrSessionMissing    = identity.ErrSessionMissing
	ErrValidation        = errors.New("invalid cart item")
	ErrProductNotFound   = catalog.ErrProductNotFound
	ErrCartNotFound      = repository.ErrCartNotFound
	ErrItemNotFound      = errors.New("Item not found in cart")
	ErrInsufficientStock = stock.ErrInsufficientStock
	ErrStorage           = errors.New("storage failure")
)

// storageErr tags a persistence failure. Version conflicts stay untagged so
// the retry loop can still see them.
func storageErr(err error) error {
	if errors.Is(err, repository.ErrVersionConflict) {
		return err
	}
	return fmt.Errorf("%w: %w", ErrStorage, err)
}

// ErrorKind names the error family, for metrics and logs.
func ErrorKind(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, ErrSessionMissing):
		return "session_missing"
	case errors.Is(err, ErrValidation):
		return "validation"
	case errors.Is(err, ErrProductNotFound):
		return "product_not_found"
	case errors.Is(err, ErrCartNotFound):
		return "cart_not_found"
	case errors.Is(err, ErrItemNotFound):
		return "item_not_found"
	case errors.Is(err, ErrInsufficientStock):
		return "insufficient_stock"
	default:
		return "storage"
	}
}
