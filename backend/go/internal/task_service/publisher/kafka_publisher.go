package publisher

import (
	"AIBoss/backend/go/internal/models"
	"AIBoss/backend/go/pkg/logger"
	"context"
	"encoding/json"
	"time"

	"github.com/segmentio/kafka-go"
)

// messageWriter 是 kafka.Writer 中被使用的部分，测试中可以替换。
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// EventPublisher is responsible for publishing task events to Kafka.
type EventPublisher struct {
	writer messageWriter
	topic  string
	logger *logger.Logger
}

// NewEventPublisher creates a new EventPublisher.
func NewEventPublisher(brokers []string, topic string, logger *logger.Logger) *EventPublisher {
	writer := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.LeastBytes{},
		BatchTimeout:           10 * time.Millisecond,
		MaxAttempts:            3,
		WriteTimeout:           2 * time.Second,
		AllowAutoTopicCreation: true,
	}
	return &EventPublisher{
		writer: writer,
		topic:  topic,
		logger: logger,
	}
}

// Publish sends a task event to the Kafka topic, keyed by task id.
func (p *EventPublisher) Publish(ctx context.Context, evt models.TaskEvent) error {
	msgBytes, err := json.Marshal(evt)
	if err != nil {
		p.logger.WithError(models.ErrorInfo{Message: err.Error()}).Error("Failed to marshal task event for Kafka")
		return err
	}

	err = p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(evt.TaskID),
		Value: msgBytes,
	})
	if err != nil {
		p.logger.WithError(models.ErrorInfo{Message: err.Error()}).WithPayload(map[string]interface{}{"topic": p.topic, "task_id": evt.TaskID}).Error("Failed to write message to Kafka")
		return err
	}
	return nil
}

// Close closes the underlying Kafka writer.
func (p *EventPublisher) Close() error {
	return p.writer.Close()
}
