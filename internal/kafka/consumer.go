package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"

	"ms-registration/internal/logger"
	"ms-registration/internal/models"
)

// messageReader is the part of *kafka.Reader the consumer uses.
type messageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// EventHandler applies one catalog message. An error leaves the message
// uncommitted so it is delivered again.
type EventHandler func(ctx context.Context, msg models.EventMessage) error

// Consumer reads catalog updates published by the event-management flow.
type Consumer struct {
	reader messageReader
	topic  string
	logger *logger.Logger
	retry  time.Duration
}

// NewConsumer creates a new Kafka consumer for the given topic and group
func NewConsumer(brokers []string, topic, groupID string, log *logger.Logger) *Consumer {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  brokers,
		Topic:    topic,
		GroupID:  groupID,
		MinBytes: 1,
		MaxBytes: 10e6, // 10MB
	})
	return newConsumer(reader, topic, log)
}

func newConsumer(r messageReader, topic string, log *logger.Logger) *Consumer {
	return &Consumer{reader: r, topic: topic, logger: log, retry: time.Second}
}

// Start consumes until ctx is cancelled. Malformed messages are logged and
// committed; handler failures are retried.
func (c *Consumer) Start(ctx context.Context, handle EventHandler) error {
	c.logger.LogKafka("CONSUME", c.topic, "consumer started")

	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, context.Canceled) {
				return nil
			}
			c.logger.Error("KAFKA", fmt.Sprintf("Error reading message from %s: %v", c.topic, err))
			if !c.sleep(ctx) {
				return nil
			}
			continue
		}

		var event models.EventMessage
		if err := json.Unmarshal(msg.Value, &event); err != nil {
			c.logger.Warn("KAFKA", fmt.Sprintf("Skipping malformed message at offset %d: %v", msg.Offset, err))
			c.commit(ctx, msg)
			continue
		}

		for {
			err := handle(ctx, event)
			if err == nil {
				break
			}
			c.logger.Error("KAFKA", fmt.Sprintf("Handling event %d failed: %v", event.Event.ID, err))
			if !c.sleep(ctx) {
				return nil
			}
		}
		c.commit(ctx, msg)
	}
}

func (c *Consumer) commit(ctx context.Context, msg kafka.Message) {
	if err := c.reader.CommitMessages(ctx, msg); err != nil {
		c.logger.Error("KAFKA", fmt.Sprintf("Commit offset %d failed: %v", msg.Offset, err))
	}
}

func (c *Consumer) sleep(ctx context.Context) bool {
	select {
	case <-ctx.Done():
		return false
	case <-time.After(c.retry):
		return true
	}
}

// Close gracefully shuts down the Kafka reader
func (c *Consumer) Close() error {
	return c.reader.Close()
}
