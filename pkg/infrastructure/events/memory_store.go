package events

import (
	"context"
	"sync"
)

// InMemoryEventStore keeps the audit trail of a process that has no
// override database
type InMemoryEventStore struct {
	mutex     sync.RWMutex
	streams   map[string][]Event
	allEvents []Event
}

func NewInMemoryEventStore() *InMemoryEventStore {
	return &InMemoryEventStore{
		streams:   make(map[string][]Event),
		allEvents: make([]Event, 0),
	}
}

// Verify interface compliance
var _ Store = (*InMemoryEventStore)(nil)

func (s *InMemoryEventStore) AppendEvent(ctx context.Context, event Event) (Event, error) {
	if err := ctx.Err(); err != nil {
		return Event{}, err
	}

	s.mutex.Lock()
	defer s.mutex.Unlock()

	event.Seq = int64(len(s.allEvents) + 1)
	event.Version = len(s.streams[event.Stream]) + 1
	s.streams[event.Stream] = append(s.streams[event.Stream], event)
	s.allEvents = append(s.allEvents, event)
	return event, nil
}

func (s *InMemoryEventStore) ReadEvents(ctx context.Context, stream string, fromVersion int) ([]Event, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	events := s.streams[stream]
	if fromVersion < 1 {
		fromVersion = 1
	}
	if fromVersion > len(events) {
		return []Event{}, nil
	}
	return append([]Event(nil), events[fromVersion-1:]...), nil
}

func (s *InMemoryEventStore) ReadAllEvents(ctx context.Context, afterSeq int64) ([]Event, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	if afterSeq < 0 {
		afterSeq = 0
	}
	if afterSeq >= int64(len(s.allEvents)) {
		return []Event{}, nil
	}
	return append([]Event(nil), s.allEvents[afterSeq:]...), nil
}
