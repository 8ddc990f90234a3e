// Package events implements the order outbox. Events are written with Record inside the order
// transaction and fanned out with Bus.Dispatch only after that transaction commits.
package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/jackc/pgx/v5/pgtype"

	dbgen "github.com/noah-isme/storefront-checkout/internal/db/gen"
)

// ErrUnknownTopic rejects events nobody consumes.
var ErrUnknownTopic = errors.New("events: unknown topic")

// EventStore is satisfied by a transaction-bound querier.
type EventStore interface {
	InsertDomainEvent(ctx context.Context, arg dbgen.InsertDomainEventParams) (dbgen.DomainEvent, error)
}

// Notifier reacts to a committed event.
type Notifier interface {
	Notify(ctx context.Context, event dbgen.DomainEvent) error
}

// Bus fans committed events out to its notifiers. A nil Bus drops events.
type Bus struct {
	Notifiers []Notifier
}

// Record appends an event to the outbox through store without notifying anyone.
func Record(ctx context.Context, store EventStore, topic string, aggregateID pgtype.UUID, payload any) (dbgen.DomainEvent, error) {
	if store == nil {
		return dbgen.DomainEvent{}, errors.New("events: store not configured")
	}
	topic = strings.TrimSpace(topic)
	if !slices.Contains(Topics, topic) {
		return dbgen.DomainEvent{}, fmt.Errorf("%w: %q", ErrUnknownTopic, topic)
	}
	if !aggregateID.Valid {
		return dbgen.DomainEvent{}, errors.New("events: aggregate id is required")
	}
	encoded, err := encodePayload(payload)
	if err != nil {
		return dbgen.DomainEvent{}, err
	}
	ev, err := store.InsertDomainEvent(ctx, dbgen.InsertDomainEventParams{
		Topic:       topic,
		AggregateID: aggregateID,
		Payload:     encoded,
	})
	if err != nil {
		return dbgen.DomainEvent{}, fmt.Errorf("events: persist %s: %w", topic, err)
	}
	return ev, nil
}

// Dispatch hands ev to every notifier and joins their failures. One failing notifier does not
// stop the rest.
func (b *Bus) Dispatch(ctx context.Context, ev dbgen.DomainEvent) error {
	if b == nil {
		return nil
	}
	var errs []error
	for _, n := range b.Notifiers {
		if n == nil {
			continue
		}
		if err := n.Notify(ctx, ev); err != nil {
			errs = append(errs, fmt.Errorf("events: notify %s: %w", ev.Topic, err))
		}
	}
	return errors.Join(errs...)
}

// encodePayload marshals typed payloads and validates pre-encoded JSON. Empty payloads are
// stored as {}.
func encodePayload(payload any) ([]byte, error) {
	var raw []byte
	switch v := payload.(type) {
	case nil:
	case json.RawMessage:
		raw = v
	case []byte:
		raw = v
	case string:
		raw = []byte(strings.TrimSpace(v))
	default:
		b, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("events: encode payload: %w", err)
		}
		return b, nil
	}
	if len(raw) == 0 {
		return []byte("{}"), nil
	}
	if !json.Valid(raw) {
		return nil, errors.New("events: payload is not valid json")
	}
	return slices.Clone(raw), nil
}
