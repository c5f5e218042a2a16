package repository

import (
	"fmt"
	"time"

	"github.com/fjod/go_cart/session-cart/internal/domain"
	"github.com/fjod/go_cart/session-cart/internal/money"
)

// cartDocument is the stored layout of a cart. Prices are kept as strings so
// persisted totals never pass through binary floats.
type cartDocument struct {
	ID            string         `bson:"_id"`
	OwnerKey      string         `bson:"owner_key"`
	SessionToken  string         `bson:"session_token"`
	UserID        string         `bson:"user_id,omitempty"`
	Items         []itemDocument `bson:"items"`
	ItemsPrice    string         `bson:"items_price"`
	ShippingPrice string         `bson:"shipping_price"`
	TaxPrice      string         `bson:"tax_price"`
	TotalPrice    string         `bson:"total_price"`
	Version       int64          `bson:"version"`
	CreatedAt     time.Time      `bson:"created_at"`
	UpdatedAt     time.Time      `bson:"updated_at"`
}

type itemDocument struct {
	ProductID string `bson:"product_id"`
	Name      string `bson:"name"`
	Price     string `bson:"price"`
	Qty       int    `bson:"qty"`
	Slug      string `bson:"slug"`
}

func toItemDocuments(items []domain.LineItem) []itemDocument {
	docs := make([]itemDocument, 0, len(items))
	for _, item := range items {
		docs = append(docs, itemDocument{
			ProductID: item.ProductID,
			Name:      item.Name,
			Price:     money.Format(item.Price),
			Qty:       item.Qty,
			Slug:      item.Slug,
		})
	}
	return docs
}

func toDocument(cart *domain.Cart) cartDocument {
	return cartDocument{
		ID:            cart.ID,
		OwnerKey:      cart.OwnerKey().String(),
		SessionToken:  cart.SessionToken,
		UserID:        cart.UserID,
		Items:         toItemDocuments(cart.Items),
		ItemsPrice:    cart.ItemsPrice,
		ShippingPrice: cart.ShippingPrice,
		TaxPrice:      cart.TaxPrice,
		TotalPrice:    cart.TotalPrice,
		Version:       cart.Version,
		CreatedAt:     cart.CreatedAt,
		UpdatedAt:     cart.UpdatedAt,
	}
}

func (d cartDocument) toDomain() (*domain.Cart, error) {
	items := make([]domain.LineItem, 0, len(d.Items))
	for _, doc := range d.Items {
		price, err := money.Parse(doc.Price)
		if err != nil {
			return nil, fmt.Errorf("cart %s item %s: %w", d.ID, doc.ProductID, err)
		}
		if doc.Qty < 1 {
			return nil, fmt.Errorf("cart %s item %s: stored qty %d", d.ID, doc.ProductID, doc.Qty)
		}
		items = append(items, domain.LineItem{
			ProductID: doc.ProductID,
			Name:      doc.Name,
			Price:     price,
			Qty:       doc.Qty,
			Slug:      doc.Slug,
		})
	}

	return &domain.Cart{
		ID:           d.ID,
		SessionToken: d.SessionToken,
		UserID:       d.UserID,
		Items:        items,
		PriceBreakdown: domain.PriceBreakdown{
			ItemsPrice:    d.ItemsPrice,
			ShippingPrice: d.ShippingPrice,
			TaxPrice:      d.TaxPrice,
			TotalPrice:    d.TotalPrice,
		},
		Version:   d.Version,
		CreatedAt: d.CreatedAt,
		UpdatedAt: d.UpdatedAt,
	}, nil
}
