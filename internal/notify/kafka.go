package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"
)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// NotificationEvent is the record published for each in-app notification.
type NotificationEvent struct {
	Recipient string    `json:"recipient"`
	Message   string    `json:"message"`
	Link      string    `json:"link,omitempty"`
	SentAt    time.Time `json:"sentAt"`
}

// KafkaNotifier publishes notifications to a Kafka topic keyed by recipient,
// so each recipient's notifications stay ordered within a partition.
type KafkaNotifier struct {
	writer messageWriter
	now    func() time.Time
	logger zerolog.Logger
}

// NewKafkaNotifier creates a producer for topic on brokers.
func NewKafkaNotifier(brokers []string, topic string, logger zerolog.Logger) *KafkaNotifier {
	writer := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		BatchTimeout: 50 * time.Millisecond,
		RequiredAcks: kafka.RequireOne,
	}
	return &KafkaNotifier{
		writer: writer,
		now:    time.Now,
		logger: logger.With().Str("component", "kafka-notifier").Str("topic", topic).Logger(),
	}
}

// Notify publishes one notification event.
func (n *KafkaNotifier) Notify(ctx context.Context, recipient, message, link string) error {
	event := NotificationEvent{
		Recipient: recipient,
		Message:   message,
		Link:      link,
		SentAt:    n.now().UTC(),
	}
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal notification: %w", err)
	}

	if err := n.writer.WriteMessages(ctx, kafka.Message{Key: []byte(recipient), Value: data}); err != nil {
		return fmt.Errorf("failed to write message to Kafka: %w", err)
	}

	n.logger.Debug().Str("recipient", recipient).Msg("notification published")
	return nil
}

// Close flushes and closes the underlying writer.
func (n *KafkaNotifier) Close() error {
	return n.writer.Close()
}
