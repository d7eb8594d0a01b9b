package fanout

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/frahmantamala/teamspace/internal"
	"github.com/segmentio/kafka-go"
)

// KafkaTransport writes envelopes to one topic keyed by organization slug,
// so a consumer sees each organization's events in order.
type KafkaTransport struct {
	writer *kafka.Writer
}

func NewKafkaTransport(cfg internal.KafkaConfig, logger *slog.Logger) *KafkaTransport {
	var brokers []string
	for _, b := range strings.Split(cfg.Brokers, ",") {
		if b = strings.TrimSpace(b); b != "" {
			brokers = append(brokers, b)
		}
	}

	return &KafkaTransport{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        cfg.Topic,
			Balancer:     &kafka.Hash{},
			BatchTimeout: 10 * time.Millisecond,
			RequiredAcks: kafka.RequireOne,
			ErrorLogger: kafka.LoggerFunc(func(msg string, args ...interface{}) {
				logger.Warn("kafka writer", "message", fmt.Sprintf(msg, args...))
			}),
		},
	}
}

func (t *KafkaTransport) Deliver(ctx context.Context, orgSlug string, payload []byte) error {
	err := t.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(orgSlug),
		Value: payload,
	})
	if err != nil {
		return fmt.Errorf("kafka write: %w", err)
	}
	return nil
}

func (t *KafkaTransport) Close() error {
	return t.writer.Close()
}
