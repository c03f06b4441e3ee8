package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// Event is one entry of the audit trail. Override events are streamed by
// product key and run events by run id. Seq orders the whole trail and
// Version orders a single stream; both are assigned by the Store.
type Event struct {
	Seq      int64           `json:"seq"`
	Type     string          `json:"type"`
	Stream   string          `json:"stream"`
	Version  int             `json:"version"`
	RunID    string          `json:"run_id"`
	Recorded time.Time       `json:"recorded"`
	Data     json.RawMessage `json:"data"`
}

// NewEvent encodes payload as the data of an event that is not yet stored
func NewEvent(eventType, stream, runID string, payload any) (Event, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return Event{}, fmt.Errorf("failed to encode %s event: %w", eventType, err)
	}
	return Event{
		Type:     eventType,
		Stream:   stream,
		RunID:    runID,
		Recorded: time.Now().UTC(),
		Data:     data,
	}, nil
}

// Store keeps the audit trail. AppendEvent returns the event with Seq and
// Version filled in.
type Store interface {
	AppendEvent(ctx context.Context, event Event) (Event, error)
	ReadEvents(ctx context.Context, stream string, fromVersion int) ([]Event, error)
	ReadAllEvents(ctx context.Context, afterSeq int64) ([]Event, error)
}

// Handler reacts to events once they are stored
type Handler interface {
	Handle(event Event) error
}
