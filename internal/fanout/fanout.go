// Package fanout pushes workspace events to an external real-time delivery
// endpoint. Delivery is best effort: at most once, no retries, and failures
// never reach the operation that produced the event.
package fanout

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/frahmantamala/teamspace/internal"
	"github.com/frahmantamala/teamspace/internal/core/events"
)

// Transport delivers one serialized envelope for an organization.
type Transport interface {
	Deliver(ctx context.Context, orgSlug string, payload []byte) error
	Close() error
}

// Envelope is the wire shape every transport sends.
type Envelope struct {
	Organization string      `json:"organization"`
	ID           string      `json:"id"`
	Type         string      `json:"type"`
	OccurredAt   time.Time   `json:"occurred_at"`
	Data         interface{} `json:"data"`
}

func Encode(orgSlug string, event events.Event) ([]byte, error) {
	payload, err := json.Marshal(Envelope{
		Organization: orgSlug,
		ID:           event.EventID(),
		Type:         event.EventType(),
		OccurredAt:   event.OccurredAt(),
		Data:         event.Payload(),
	})
	if err != nil {
		return nil, fmt.Errorf("encode event %s: %w", event.EventType(), err)
	}
	return payload, nil
}

// NewTransport builds the transport named by cfg.Driver. An empty driver
// returns a nil transport, which the notifier treats as unconfigured.
func NewTransport(cfg internal.FanoutConfig, logger *slog.Logger) (Transport, error) {
	switch strings.ToLower(cfg.Driver) {
	case "":
		return nil, nil
	case "http":
		return NewHTTPTransport(cfg.Endpoint, cfg.SigningSecret, cfg.Timeout), nil
	case "redis":
		return NewRedisTransport(cfg.Redis), nil
	case "kafka":
		return NewKafkaTransport(cfg.Kafka, logger), nil
	default:
		return nil, fmt.Errorf("unknown fanout driver %q", cfg.Driver)
	}
}
