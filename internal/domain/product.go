package domain

import "github.com/shopspring/decimal"

type Product struct {
	ID    string
	Name  string
	Slug  string
	Price decimal.Decimal
	Stock int
}
