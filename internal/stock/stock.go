package stock

import "errors"

var ErrInsufficientStock = errors.New("Not enough stock")

// CheckAvailability rejects a request for more units than are available.
// requested must be the full quantity the cart would hold afterwards.
func CheckAvailability(available, requested int) error {
	if available < requested {
		return ErrInsufficientStock
	}
	return nil
}
