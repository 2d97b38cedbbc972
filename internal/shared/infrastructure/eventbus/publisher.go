// Package eventbus ships domain events to a message broker after the
// transaction that produced them has committed.
package eventbus

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/felixgeelhaar/tempo/internal/shared/domain"
)

// Publisher delivers a payload under a routing key.
type Publisher interface {
	Publish(ctx context.Context, routingKey string, payload []byte) error
	Close() error
}

// Envelope is the wire format for every published event.
type Envelope struct {
	EventID       uuid.UUID       `json:"event_id"`
	AggregateID   uuid.UUID       `json:"aggregate_id"`
	AggregateType string          `json:"aggregate_type"`
	RoutingKey    string          `json:"routing_key"`
	OccurredAt    time.Time       `json:"occurred_at"`
	Payload       json.RawMessage `json:"payload"`
}

// NewEnvelope marshals event into an Envelope.
func NewEnvelope(event domain.DomainEvent) (Envelope, error) {
	payload, err := json.Marshal(event)
	if err != nil {
		return Envelope{}, err
	}
	return Envelope{
		EventID:       event.EventID(),
		AggregateID:   event.AggregateID(),
		AggregateType: event.AggregateType(),
		RoutingKey:    event.RoutingKey(),
		OccurredAt:    event.OccurredAt(),
		Payload:       payload,
	}, nil
}

// Dispatcher publishes aggregate events best-effort: failures are logged and
// never returned, since the state change they describe is already committed.
type Dispatcher struct {
	publisher Publisher
	logger    *slog.Logger
}

// NewDispatcher wraps publisher. A nil publisher behaves like NoopPublisher.
func NewDispatcher(publisher Publisher, logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	if publisher == nil {
		publisher = NewNoopPublisher(logger)
	}
	return &Dispatcher{publisher: publisher, logger: logger}
}

// Dispatch publishes and then clears the aggregate's pending events.
func (d *Dispatcher) Dispatch(ctx context.Context, aggregate domain.AggregateRoot) {
	for _, event := range aggregate.DomainEvents() {
		env, err := NewEnvelope(event)
		if err != nil {
			d.logger.Error("failed to encode domain event", "routing_key", event.RoutingKey(), "error", err)
			continue
		}
		body, err := json.Marshal(env)
		if err != nil {
			d.logger.Error("failed to encode envelope", "routing_key", event.RoutingKey(), "error", err)
			continue
		}
		if err := d.publisher.Publish(ctx, event.RoutingKey(), body); err != nil {
			d.logger.Warn("domain event not published",
				"routing_key", event.RoutingKey(),
				"event_id", event.EventID(),
				"error", err,
			)
		}
	}
	aggregate.ClearDomainEvents()
}
