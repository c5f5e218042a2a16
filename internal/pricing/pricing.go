// Package pricing derives the cart totals from its line items.
package pricing

import (
	"github.com/fjod/go_cart/session-cart/internal/domain"
	"github.com/fjod/go_cart/session-cart/internal/money"
	"github.com/shopspring/decimal"
)

// Policy holds the business constants used by the calculator.
type Policy struct {
	// Shipping is free only when the items price is strictly greater than this.
	FreeShippingThreshold decimal.Decimal
	ShippingFee           decimal.Decimal
	TaxRate               decimal.Decimal
}

func DefaultPolicy() Policy {
	return Policy{
		FreeShippingThreshold: decimal.NewFromInt(100),
		ShippingFee:           decimal.NewFromInt(100),
		TaxRate:               decimal.RequireFromString("0.15"),
	}
}

type Calculator struct {
	policy Policy
}

func NewCalculator(policy Policy) *Calculator {
	return &Calculator{policy: policy}
}

// ComputeTotals is pure. An empty list still pays the shipping fee.
func (c *Calculator) ComputeTotals(items []domain.LineItem) domain.PriceBreakdown {
	sum := decimal.Zero
	for _, item := range items {
		sum = sum.Add(item.Price.Mul(decimal.NewFromInt(int64(item.Qty))))
	}
	itemsPrice := money.Round2(sum)

	shipping := c.policy.ShippingFee
	if itemsPrice.GreaterThan(c.policy.FreeShippingThreshold) {
		shipping = decimal.Zero
	}
	shippingPrice := money.Round2(shipping)

	taxPrice := money.Round2(itemsPrice.Mul(c.policy.TaxRate))
	totalPrice := money.Round2(itemsPrice.Add(shippingPrice).Add(taxPrice))

	return domain.PriceBreakdown{
		ItemsPrice:    money.Format(itemsPrice),
		ShippingPrice: money.Format(shippingPrice),
		TaxPrice:      money.Format(taxPrice),
		TotalPrice:    money.Format(totalPrice),
	}
}

var defaultCalculator = NewCalculator(DefaultPolicy())

// ComputeTotals prices items with DefaultPolicy.
func ComputeTotals(items []domain.LineItem) domain.PriceBreakdown {
	return defaultCalculator.ComputeTotals(items)
}
