// Package kafka provides Kafka producer and consumer clients backed by
// segmentio/kafka-go. Document token batches travel as JSON; the consumer
// hands each message to a MessageHandler and commits it once handled.
package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/Adithya-Monish-Kumar-K/Search-Engine-PageRank/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/Search-Engine-PageRank/pkg/resilience"
)

// MessageHandler processes one message. Returning ErrStop commits the
// message and ends Run; any other error is logged and the message skipped.
type MessageHandler func(ctx context.Context, key []byte, value []byte) error

// ErrStop tells the consumer that the stream is complete.
var ErrStop = errors.New("kafka: stop consuming")

// fetchBackoff spaces out fetches while the brokers are unreachable.
var fetchBackoff = resilience.Backoff{Attempts: 8, Initial: 250 * time.Millisecond, Max: 15 * time.Second}

// Consumer reads one topic as a member of the configured consumer group,
// starting from the oldest retained message.
type Consumer struct {
	reader  *kafka.Reader
	handler MessageHandler
	logger  *slog.Logger
	handled int
	skipped int
}

func NewConsumer(cfg config.KafkaConfig, topic string, handler MessageHandler) *Consumer {
	return &Consumer{
		reader: kafka.NewReader(kafka.ReaderConfig{
			Brokers:     cfg.Brokers,
			Topic:       topic,
			GroupID:     cfg.ConsumerGroup,
			MinBytes:    1e3,
			MaxBytes:    16e6,
			StartOffset: kafka.FirstOffset,
		}),
		handler: handler,
		logger:  slog.Default().With("component", "kafka-consumer", "topic", topic),
	}
}

// Run handles messages one at a time in fetch order until the handler
// returns ErrStop or ctx is cancelled; both end Run with a nil error. It
// fails when the brokers stay unreachable through the fetch backoff.
func (c *Consumer) Run(ctx context.Context) error {
	c.logger.Info("consumer started")
	for {
		var msg kafka.Message
		err := resilience.Retry(ctx, "kafka-fetch", fetchBackoff, func(ctx context.Context) error {
			var err error
			msg, err = c.reader.FetchMessage(ctx)
			if ctx.Err() != nil {
				return resilience.Permanent(ctx.Err())
			}
			return err
		})
		if ctx.Err() != nil {
			c.logger.Info("consumer stopping", "reason", ctx.Err(), "handled", c.handled, "skipped", c.skipped)
			return nil
		}
		if err != nil {
			return err
		}

		err = c.handler(ctx, msg.Key, msg.Value)
		stop := errors.Is(err, ErrStop)
		switch {
		case stop:
			c.handled++
		case err != nil:
			c.skipped++
			c.logger.Error("message skipped",
				"partition", msg.Partition,
				"offset", msg.Offset,
				"error", err,
			)
		default:
			c.handled++
		}
		if err := c.reader.CommitMessages(ctx, msg); err != nil {
			c.logger.Warn("commit failed", "partition", msg.Partition, "offset", msg.Offset, "error", err)
		}
		if stop {
			c.logger.Info("end of stream", "offset", msg.Offset, "handled", c.handled, "skipped", c.skipped)
			return nil
		}
	}
}

// Lag is the number of messages behind the partition head at the last fetch.
func (c *Consumer) Lag() int64 {
	return c.reader.Stats().Lag
}

func (c *Consumer) Close() error {
	return c.reader.Close()
}

// DecodeJSON unmarshals a message value into T.
func DecodeJSON[T any](value []byte) (T, error) {
	var v T
	if err := json.Unmarshal(value, &v); err != nil {
		return v, fmt.Errorf("decoding kafka message: %w", err)
	}
	return v, nil
}
