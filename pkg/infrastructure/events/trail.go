package events

import (
	"context"
	"errors"
	"fmt"
)

// Trail records audit events into a Store and notifies subscribers
// synchronously, in subscription order, after each event is stored
type Trail struct {
	store       Store
	subscribers map[string][]Handler
}

func NewTrail(store Store) *Trail {
	return &Trail{
		store:       store,
		subscribers: make(map[string][]Handler),
	}
}

// Subscribe registers handler for the given event types
func (t *Trail) Subscribe(handler Handler, eventTypes ...string) {
	for _, eventType := range eventTypes {
		t.subscribers[eventType] = append(t.subscribers[eventType], handler)
	}
}

// Record encodes payload, stores the event and returns the joined errors of
// any handler that failed. A handler error does not undo the store.
func (t *Trail) Record(ctx context.Context, eventType, stream, runID string, payload any) error {
	event, err := NewEvent(eventType, stream, runID, payload)
	if err != nil {
		return err
	}
	stored, err := t.store.AppendEvent(ctx, event)
	if err != nil {
		return fmt.Errorf("failed to store %s event: %w", eventType, err)
	}

	var errs []error
	for _, handler := range t.subscribers[stored.Type] {
		if err := handler.Handle(stored); err != nil {
			errs = append(errs, fmt.Errorf("handling %s: %w", stored.Type, err))
		}
	}
	return errors.Join(errs...)
}
