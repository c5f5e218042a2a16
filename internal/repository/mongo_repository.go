package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/fjod/go_cart/session-cart/internal/domain"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type MongoRepository struct {
	collection *mongo.Collection
}

func NewMongoRepository(db *mongo.Database) *MongoRepository {
	return &MongoRepository{
		collection: db.Collection("carts"),
	}
}

// GetByUserID finds the cart bound to an authenticated user.
func (m *MongoRepository) GetByUserID(ctx context.Context, userID string) (*domain.Cart, error) {
	return m.findOne(ctx, domain.LookupKey{Kind: domain.LookupByUser, Value: userID})
}

// GetBySessionToken finds the anonymous cart of a session. A cart already
// bound to a user is not returned here even if it carries the same token.
func (m *MongoRepository) GetBySessionToken(ctx context.Context, token string) (*domain.Cart, error) {
	return m.findOne(ctx, domain.LookupKey{Kind: domain.LookupBySession, Value: token})
}

func (m *MongoRepository) findOne(ctx context.Context, key domain.LookupKey) (*domain.Cart, error) {
	var doc cartDocument
	err := m.collection.FindOne(ctx, bson.M{"owner_key": key.String()}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrCartNotFound
		}
		return nil, fmt.Errorf("failed to get cart: %w", err)
	}

	return doc.toDomain()
}

func (m *MongoRepository) Create(ctx context.Context, cart *domain.Cart) error {
	now := time.Now().UTC()
	cart.ID = uuid.NewString()
	cart.Version = 1
	cart.CreatedAt = now
	cart.UpdatedAt = now

	_, err := m.collection.InsertOne(ctx, toDocument(cart))
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return fmt.Errorf("failed to create cart: %w", ErrVersionConflict)
		}
		return fmt.Errorf("failed to create cart: %w", err)
	}

	return nil
}

func (m *MongoRepository) UpdateItemsAndTotals(
	ctx context.Context,
	cartID string,
	version int64,
	items []domain.LineItem,
	totals domain.PriceBreakdown) (*domain.Cart, error) {

	filter := bson.M{"_id": cartID, "version": version}
	update := bson.M{
		"$set": bson.M{
			"items":          toItemDocuments(items),
			"items_price":    totals.ItemsPrice,
			"shipping_price": totals.ShippingPrice,
			"tax_price":      totals.TaxPrice,
			"total_price":    totals.TotalPrice,
			"updated_at":     time.Now().UTC(),
		},
		"$inc": bson.M{"version": 1},
	}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var doc cartDocument
	err := m.collection.FindOneAndUpdate(ctx, filter, update, opts).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrVersionConflict
		}
		return nil, fmt.Errorf("failed to update cart: %w", err)
	}

	return doc.toDomain()
}

func (m *MongoRepository) CreateIndexes(ctx context.Context) error {
	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "owner_key", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys: bson.D{{Key: "session_token", Value: 1}},
		},
	}

	_, err := m.collection.Indexes().CreateMany(ctx, indexes)
	if err != nil {
		return fmt.Errorf("failed to create indexes: %w", err)
	}

	return nil
}
