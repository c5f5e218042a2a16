// Package poller keeps the local product catalog's stock levels in step with
// the inventory system by consuming its stock events.
package poller

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/fjod/go_cart/session-cart/internal/catalog"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

const (
	DefaultTopic   = "inventory-stock"
	DefaultGroupID = "session-cart-stock"
)

// StockEvent is published by inventory whenever a product's level changes.
type StockEvent struct {
	ProductID string `json:"product_id"`
	Stock     int    `json:"stock"`
}

// StockWriter is the catalog side the poller writes to.
type StockWriter interface {
	SetStock(ctx context.Context, productID string, stock int) error
}

type messageReader interface {
	ReadMessage(ctx context.Context) (kafka.Message, error)
	Close() error
}

type Poller struct {
	catalog StockWriter
	reader  messageReader
	logger  *zap.Logger
}

func NewPoller(stock StockWriter, logger *zap.Logger, topic string, brokers ...string) *Poller {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  brokers,
		Topic:    topic,
		GroupID:  DefaultGroupID,
		MaxBytes: 10e6, // 10MB
	})
	return &Poller{catalog: stock, reader: reader, logger: logger}
}

// Run consumes until ctx is cancelled.
func (p *Poller) Run(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}
		if err := p.applyNext(ctx); err != nil && ctx.Err() == nil {
			p.logger.Warn("stock event skipped", zap.Error(err))
		}
	}
}

func (p *Poller) Close() {
	if err := p.reader.Close(); err != nil {
		p.logger.Warn("error closing reader", zap.Error(err))
	}
}

func (p *Poller) applyNext(ctx context.Context) error {
	m, err := p.reader.ReadMessage(ctx)
	if err != nil {
		return fmt.Errorf("read message: %w", err)
	}

	var event StockEvent
	if err := json.Unmarshal(m.Value, &event); err != nil {
		return fmt.Errorf("parse message at offset %d: %w", m.Offset, err)
	}
	if event.ProductID == "" || event.Stock < 0 {
		return fmt.Errorf("invalid stock event at offset %d: %+v", m.Offset, event)
	}

	err = p.catalog.SetStock(ctx, event.ProductID, event.Stock)
	if errors.Is(err, catalog.ErrProductNotFound) {
		p.logger.Debug("stock event for unknown product", zap.String("product_id", event.ProductID))
		return nil
	}
	if err != nil {
		return fmt.Errorf("set stock for %s: %w", event.ProductID, err)
	}

	p.logger.Debug("stock updated",
		zap.String("product_id", event.ProductID),
		zap.Int("stock", event.Stock))
	return nil
}
