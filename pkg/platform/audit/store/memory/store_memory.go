package memory

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/google/uuid"

	id "newsletter/pkg/domain"
	audit "newsletter/pkg/platform/audit"
)

// InMemoryStore keeps events per subscriber and doubles as an outbox for
// relay tests.
type InMemoryStore struct {
	mu        sync.RWMutex
	events    map[id.SubscriberID][]audit.Event
	outbox    []audit.OutboxEntry
	published map[string]bool
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		events:    make(map[id.SubscriberID][]audit.Event),
		published: make(map[string]bool),
	}
}

func (s *InMemoryStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = make(map[id.SubscriberID][]audit.Event)
	s.outbox = nil
	s.published = make(map[string]bool)
}

func (s *InMemoryStore) Append(_ context.Context, event audit.Event) error {
	if event.Category == "" {
		event.Category = audit.AuditEvent(event.Action).Category()
	}
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.events[event.SubscriberID] = append(s.events[event.SubscriberID], event)
	s.outbox = append(s.outbox, audit.OutboxEntry{
		ID:          uuid.NewString(),
		AggregateID: event.SubscriberID.String(),
		EventType:   event.Action,
		Payload:     payload,
		CreatedAt:   event.Timestamp,
	})
	return nil
}

func (s *InMemoryStore) ListBySubscriber(_ context.Context, subscriberID id.SubscriberID) ([]audit.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]audit.Event{}, s.events[subscriberID]...), nil
}

// ListAll returns every event across subscribers, in no particular order.
func (s *InMemoryStore) ListAll(_ context.Context) ([]audit.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var all []audit.Event
	for _, events := range s.events {
		all = append(all, events...)
	}
	return all, nil
}

func (s *InMemoryStore) ClaimPending(_ context.Context, limit int) ([]audit.OutboxEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var pending []audit.OutboxEntry
	for _, e := range s.outbox {
		if len(pending) == limit {
			break
		}
		if !s.published[e.ID] {
			pending = append(pending, e)
		}
	}
	return pending, nil
}

func (s *InMemoryStore) MarkPublished(_ context.Context, ids []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, entryID := range ids {
		s.published[entryID] = true
	}
	return nil
}
