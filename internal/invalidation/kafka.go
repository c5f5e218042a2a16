package invalidation

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/fjod/go_cart/session-cart/pkg/circuitbreaker"
	"github.com/segmentio/kafka-go"
	"github.com/sony/gobreaker/v2"
	"go.uber.org/zap"
)

const DefaultTopic = "product-invalidations"

// Event is the payload written for each invalidated path.
type Event struct {
	Path       string    `json:"path"`
	OccurredAt time.Time `json:"occurred_at"`
}

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type KafkaNotifier struct {
	writer  messageWriter
	breaker *gobreaker.CircuitBreaker[struct{}]
	timeout time.Duration
	logger  *zap.Logger
}

func NewKafkaNotifier(logger *zap.Logger, topic string, brokers ...string) *KafkaNotifier {
	w := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		AllowAutoTopicCreation: true,
		RequiredAcks:           kafka.RequireOne,
	}
	return newKafkaNotifier(w, logger)
}

func newKafkaNotifier(w messageWriter, logger *zap.Logger) *KafkaNotifier {
	return &KafkaNotifier{
		writer: w,
		breaker: circuitbreaker.New[struct{}](circuitbreaker.Options{
			Name:   "invalidation-kafka",
			Logger: logger,
		}),
		timeout: 5 * time.Second,
		logger:  logger,
	}
}

// Invalidate publishes one event keyed by path. It ignores caller
// cancellation since the cart write has already committed, and is bounded by
// its own timeout instead.
func (n *KafkaNotifier) Invalidate(ctx context.Context, path string) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), n.timeout)
	defer cancel()

	_, err := n.breaker.Execute(func() (struct{}, error) {
		return struct{}{}, n.publish(ctx, path)
	})
	if err != nil {
		n.logger.Warn("failed to publish invalidation",
			zap.String("path", path),
			zap.Error(err))
	}
}

func (n *KafkaNotifier) publish(ctx context.Context, path string) error {
	payload, err := json.Marshal(Event{Path: path, OccurredAt: time.Now().UTC()})
	if err != nil {
		return fmt.Errorf("marshal invalidation event: %w", err)
	}

	err = n.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(path),
		Value: payload,
	})
	if err != nil {
		return fmt.Errorf("write invalidation event: %w", err)
	}
	return nil
}

func (n *KafkaNotifier) Close() error {
	return n.writer.Close()
}
