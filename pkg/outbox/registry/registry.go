// Package registry maps outbox event types to their Pub/Sub topic and
// payload schema.
package registry

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"github.com/google/uuid"

	"github.com/angelmondragon/liftbooks-backend/pkg/config"
	"github.com/angelmondragon/liftbooks-backend/pkg/db/models"
	"github.com/angelmondragon/liftbooks-backend/pkg/enums"
	"github.com/angelmondragon/liftbooks-backend/pkg/outbox"
	"github.com/angelmondragon/liftbooks-backend/pkg/outbox/payloads"
)

// EventDescriptor binds an event type to its aggregate, topic and payload.
type EventDescriptor struct {
	EventType     enums.OutboxEventType
	AggregateType enums.OutboxAggregateType
	Topic         string
	decode        func(json.RawMessage) (any, error)
}

// ResolvedEvent is an outbox row that passed every check and is ready to publish.
type ResolvedEvent struct {
	Descriptor EventDescriptor
	Envelope   outbox.PayloadEnvelope
	Payload    any
}

// NonRetryableError marks a failure that will not go away on retry, such as
// a malformed row or an unknown topic.
type NonRetryableError struct {
	Err error
}

func (e NonRetryableError) Error() string {
	if e.Err == nil {
		return "non-retryable"
	}
	return e.Err.Error()
}

func (e NonRetryableError) Unwrap() error { return e.Err }

func NewNonRetryableError(err error) NonRetryableError {
	return NonRetryableError{Err: err}
}

// IsNonRetryable reports whether err, or anything it wraps, is a NonRetryableError.
func IsNonRetryable(err error) bool {
	var target NonRetryableError
	return errors.As(err, &target)
}

type EventRegistry struct {
	byType map[enums.OutboxEventType]EventDescriptor
}

func NewEventRegistry(cfg config.PubSubConfig) (*EventRegistry, error) {
	if cfg.BillingTopic == "" {
		return nil, errors.New("registry: billing topic is empty")
	}
	billing := cfg.BillingTopic
	return newEventRegistry(
		describe[payloads.RecurringInvoiceGeneratedEvent](enums.EventRecurringInvoiceGenerated, enums.AggregateRecurringProfile, billing),
		describe[payloads.RecurringProfileCompletedEvent](enums.EventRecurringProfileCompleted, enums.AggregateRecurringProfile, billing),
		describe[payloads.RecurringProfileCancelledEvent](enums.EventRecurringProfileCancelled, enums.AggregateRecurringProfile, billing),
	), nil
}

func newEventRegistry(descs ...EventDescriptor) *EventRegistry {
	r := &EventRegistry{byType: make(map[enums.OutboxEventType]EventDescriptor, len(descs))}
	for _, d := range descs {
		r.byType[d.EventType] = d
	}
	return r
}

// describe builds a descriptor whose payload decodes into a *T and must pass
// payloads.Validate.
func describe[T any](eventType enums.OutboxEventType, aggregate enums.OutboxAggregateType, topic string) EventDescriptor {
	return EventDescriptor{
		EventType:     eventType,
		AggregateType: aggregate,
		Topic:         topic,
		decode: func(raw json.RawMessage) (any, error) {
			v := new(T)
			if err := json.Unmarshal(raw, v); err != nil {
				return nil, err
			}
			if err := payloads.Validate(v); err != nil {
				return nil, err
			}
			return v, nil
		},
	}
}

// Topics lists the distinct topics in sorted order.
func (r *EventRegistry) Topics() []string {
	seen := make(map[string]bool, 1)
	out := make([]string, 0, 1)
	for _, d := range r.byType {
		if !seen[d.Topic] {
			seen[d.Topic] = true
			out = append(out, d.Topic)
		}
	}
	sort.Strings(out)
	return out
}

// Resolve checks the row against its descriptor and decodes the typed
// payload. Every error it returns is a NonRetryableError.
func (r *EventRegistry) Resolve(event models.OutboxEvent) (*ResolvedEvent, error) {
	desc, ok := r.byType[event.EventType]
	switch {
	case !ok:
		return nil, nonRetryable("unsupported event type %q", event.EventType)
	case desc.AggregateType != event.AggregateType:
		return nil, nonRetryable("%s: aggregate type %q, want %q", event.EventType, event.AggregateType, desc.AggregateType)
	case event.AggregateID == uuid.Nil:
		return nil, nonRetryable("%s: aggregate id is empty", event.EventType)
	}

	env, err := outbox.DecodeEnvelope(event.Payload)
	if err != nil {
		return nil, nonRetryable("%s: %w", event.EventType, err)
	}
	payload, err := desc.decode(env.Data)
	if err != nil {
		return nil, nonRetryable("%s payload: %w", event.EventType, err)
	}
	return &ResolvedEvent{Descriptor: desc, Envelope: env, Payload: payload}, nil
}

func nonRetryable(format string, args ...any) error {
	return NewNonRetryableError(fmt.Errorf(format, args...))
}
