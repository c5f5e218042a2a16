package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// LineItem is a product reference with the unit price captured when it was
// put into the cart.
type LineItem struct {
	ProductID string          `json:"product_id" validate:"notblank"`
	Name      string          `json:"name" validate:"notblank"`
	Price     decimal.Decimal `json:"price" validate:"money"`
	Qty       int             `json:"qty" validate:"min=1"`
	Slug      string          `json:"slug" validate:"notblank"`
}

// PriceBreakdown holds the derived totals as 2-decimal strings.
type PriceBreakdown struct {
	ItemsPrice    string `json:"items_price"`
	ShippingPrice string `json:"shipping_price"`
	TaxPrice      string `json:"tax_price"`
	TotalPrice    string `json:"total_price"`
}

type Cart struct {
	ID           string     `json:"id"`
	SessionToken string     `json:"session_token"`
	UserID       string     `json:"user_id,omitempty"`
	Items        []LineItem `json:"items"`
	PriceBreakdown
	Version   int64     `json:"version"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// FindItem returns the index of the item with the given product id or -1.
func (c *Cart) FindItem(productID string) int {
	for i := range c.Items {
		if c.Items[i].ProductID == productID {
			return i
		}
	}
	return -1
}

// CloneItems copies the item list so a mutation never aliases the loaded cart.
func (c *Cart) CloneItems() []LineItem {
	items := make([]LineItem, len(c.Items))
	copy(items, c.Items)
	return items
}

// OwnerKey is the binding key the cart is stored and looked up under.
func (c *Cart) OwnerKey() LookupKey {
	if c.UserID != "" {
		return LookupKey{Kind: LookupByUser, Value: c.UserID}
	}
	return LookupKey{Kind: LookupBySession, Value: c.SessionToken}
}
