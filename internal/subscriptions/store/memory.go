package store

import (
	"context"
	"fmt"
	"sync"
	"time"

	"newsletter/internal/subscriptions/models"
	id "newsletter/pkg/domain"
	"newsletter/pkg/platform/sentinel"
)

// InMemory mirrors PostgresStore semantics, including email uniqueness, for
// service and handler tests.
type InMemory struct {
	mu          sync.RWMutex
	subscribers map[id.SubscriberID]*models.Subscriber
	emails      map[string]id.SubscriberID
	tokens      map[string]id.SubscriberID
}

func NewInMemory() *InMemory {
	return &InMemory{
		subscribers: make(map[id.SubscriberID]*models.Subscriber),
		emails:      make(map[string]id.SubscriberID),
		tokens:      make(map[string]id.SubscriberID),
	}
}

func (s *InMemory) InsertPending(_ context.Context, sub models.NewSubscriber, now time.Time) (id.SubscriberID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	email := sub.Email.String()
	if _, exists := s.emails[email]; exists {
		return id.SubscriberID{}, fmt.Errorf("insert subscriber: %w", sentinel.ErrConflict)
	}
	subscriberID := id.NewSubscriberID()
	s.subscribers[subscriberID] = &models.Subscriber{
		ID:           subscriberID,
		Email:        email,
		Name:         sub.Name.String(),
		SubscribedAt: now,
		Status:       models.StatusPendingConfirmation,
	}
	s.emails[email] = subscriberID
	return subscriberID, nil
}

func (s *InMemory) InsertToken(_ context.Context, subscriberID id.SubscriberID, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.subscribers[subscriberID]; !ok {
		return fmt.Errorf("insert subscription token: unknown subscriber %s", subscriberID)
	}
	if _, exists := s.tokens[token]; exists {
		return fmt.Errorf("insert subscription token: %w", sentinel.ErrConflict)
	}
	s.tokens[token] = subscriberID
	return nil
}

func (s *InMemory) FindSubscriberIDByToken(_ context.Context, token string) (id.SubscriberID, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	subscriberID, ok := s.tokens[token]
	return subscriberID, ok, nil
}

func (s *InMemory) MarkConfirmed(_ context.Context, subscriberID id.SubscriberID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sub, ok := s.subscribers[subscriberID]
	if !ok {
		return sentinel.ErrNotFound
	}
	sub.Status = models.StatusConfirmed
	return nil
}

func (s *InMemory) FindByID(_ context.Context, subscriberID id.SubscriberID) (*models.Subscriber, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sub, ok := s.subscribers[subscriberID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	cp := *sub
	return &cp, nil
}

func (s *InMemory) FindByEmail(ctx context.Context, email string) (*models.Subscriber, error) {
	s.mu.RLock()
	subscriberID, ok := s.emails[email]
	s.mu.RUnlock()
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return s.FindByID(ctx, subscriberID)
}

// TokenFor returns the token issued to subscriberID. Tests use it to follow
// the confirmation flow without parsing emails.
func (s *InMemory) TokenFor(subscriberID id.SubscriberID) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for token, owner := range s.tokens {
		if owner == subscriberID {
			return token, true
		}
	}
	return "", false
}
