package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/segmentio/kafka-go"

	"ms-registration/internal/config"
	"ms-registration/internal/logger"
	"ms-registration/internal/models"
)

// messageWriter is the part of *kafka.Writer the producer uses.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Producer publishes ledger events after commit. Messages are keyed by event
// id so every change of one event lands on the same partition, in order.
type Producer struct {
	Writer messageWriter
	Topics config.TopicConfig
	Logger *logger.Logger
	now    func() time.Time
}

func NewProducer(brokers []string, topics config.TopicConfig, log *logger.Logger) *Producer {
	writer := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireAll,
		AllowAutoTopicCreation: true,
		BatchTimeout:           10 * time.Millisecond,
	}
	return newProducer(writer, topics, log)
}

func newProducer(w messageWriter, topics config.TopicConfig, log *logger.Logger) *Producer {
	return &Producer{Writer: w, Topics: topics, Logger: log, now: time.Now}
}

// PublishRegistrationCreated streams an admitted registration to Kafka
func (p *Producer) PublishRegistrationCreated(ctx context.Context, reg models.Registration) error {
	return p.publish(ctx, p.Topics.RegistrationCreated, reg.EventID, models.RegistrationMessage{
		Type:         models.UpdateRegistrationCreated,
		Registration: reg,
		OccurredAt:   p.now().UTC(),
	})
}

// PublishRegistrationRemoved streams an administrative removal to Kafka
func (p *Producer) PublishRegistrationRemoved(ctx context.Context, reg models.Registration) error {
	return p.publish(ctx, p.Topics.RegistrationRemoved, reg.EventID, models.RegistrationMessage{
		Type:         models.UpdateRegistrationRemoved,
		Registration: reg,
		OccurredAt:   p.now().UTC(),
	})
}

// PublishEventDeleted streams a guarded event deletion to Kafka
func (p *Producer) PublishEventDeleted(ctx context.Context, eventID int64) error {
	return p.publish(ctx, p.Topics.EventDeleted, eventID, models.EventDeletedMessage{
		Type:       models.UpdateEventDeleted,
		EventID:    eventID,
		OccurredAt: p.now().UTC(),
	})
}

func (p *Producer) publish(ctx context.Context, topic string, eventID int64, payload interface{}) error {
	msgBytes, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal %s message: %w", topic, err)
	}

	p.Logger.LogKafka("PUBLISH", topic, fmt.Sprintf("event=%d %d bytes", eventID, len(msgBytes)))

	return p.Writer.WriteMessages(ctx, kafka.Message{
		Topic: topic,
		Key:   []byte(strconv.FormatInt(eventID, 10)),
		Value: msgBytes,
	})
}

func (p *Producer) Close() error {
	return p.Writer.Close()
}
