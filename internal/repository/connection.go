package repository

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ConnectOptions tunes the cart store's client pool. Zero fields fall back
// to the defaults below.
type ConnectOptions struct {
	ConnectTimeout         time.Duration
	ServerSelectionTimeout time.Duration
	MaxPoolSize            uint64
	MinPoolSize            uint64
}

const (
	defaultConnectTimeout         = 10 * time.Second
	defaultServerSelectionTimeout = 5 * time.Second
	defaultMaxPoolSize            = 100
	defaultMinPoolSize            = 10
)

func (o ConnectOptions) withDefaults() ConnectOptions {
	if o.ConnectTimeout <= 0 {
		o.ConnectTimeout = defaultConnectTimeout
	}
	if o.ServerSelectionTimeout <= 0 {
		o.ServerSelectionTimeout = defaultServerSelectionTimeout
	}
	if o.MaxPoolSize == 0 {
		o.MaxPoolSize = defaultMaxPoolSize
	}
	if o.MinPoolSize > o.MaxPoolSize {
		o.MinPoolSize = o.MaxPoolSize
	}
	return o
}

func clientOptions(uri string, opts ConnectOptions) *options.ClientOptions {
	opts = opts.withDefaults()
	return options.Client().
		ApplyURI(uri).
		SetConnectTimeout(opts.ConnectTimeout).
		SetServerSelectionTimeout(opts.ServerSelectionTimeout).
		SetMaxPoolSize(opts.MaxPoolSize).
		SetMinPoolSize(opts.MinPoolSize)
}

// ConnectMongoDB opens a pooled client and pings it before handing back the
// database used for carts.
func ConnectMongoDB(ctx context.Context, uri, database string, opts ConnectOptions) (*mongo.Database, error) {
	client, err := mongo.Connect(ctx, clientOptions(uri, opts))
	if err != nil {
		return nil, fmt.Errorf("connect cart store: %w", err)
	}

	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("ping cart store: %w", err)
	}

	return client.Database(database), nil
}
