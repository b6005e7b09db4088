package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"

	"github.com/99minutos/user-service/internal/core/ports"
)

const writeTimeout = 5 * time.Second

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaNotifier publishes rendered notices as JSON, keyed by recipient.
type KafkaNotifier struct {
	writer messageWriter
	log    zerolog.Logger
}

var _ ports.Notifier = (*KafkaNotifier)(nil)

// NewKafkaNotifier creates a notifier writing to topic on brokers.
func NewKafkaNotifier(brokers []string, topic string, log zerolog.Logger) *KafkaNotifier {
	w := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireOne,
		AllowAutoTopicCreation: true,
		WriteTimeout:           writeTimeout,
	}
	return &KafkaNotifier{writer: w, log: log}
}

func (n *KafkaNotifier) SendPasswordReset(ctx context.Context, notice ports.PasswordResetNotice) error {
	msg, err := RenderPasswordReset(notice)
	if err != nil {
		return err
	}

	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("kafka: marshal notice: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()

	if err := n.writer.WriteMessages(ctx, kafka.Message{Key: []byte(msg.To), Value: data}); err != nil {
		return fmt.Errorf("kafka: publish notice: %w", err)
	}

	n.log.Debug().Str("type", msg.Type).Msg("notification published")
	return nil
}

// Close flushes pending writes.
func (n *KafkaNotifier) Close() error {
	return n.writer.Close()
}
