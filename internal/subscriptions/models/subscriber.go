package models

import (
	"time"

	id "newsletter/pkg/domain"
)

// Status is the lifecycle state of a subscriber.
type Status string

const (
	StatusPendingConfirmation Status = "pending_confirmation"
	StatusConfirmed           Status = "confirmed"
)

func (s Status) IsValid() bool {
	return s == StatusPendingConfirmation || s == StatusConfirmed
}

// CanTransitionTo reports whether moving from s to next is allowed.
// Confirmation is one-way; staying in the same state is always allowed so
// repeated confirmations are no-ops.
func (s Status) CanTransitionTo(next Status) bool {
	switch s {
	case StatusPendingConfirmation:
		return next == StatusPendingConfirmation || next == StatusConfirmed
	case StatusConfirmed:
		return next == StatusConfirmed
	default:
		return false
	}
}

// NewSubscriber is validated form input that has not been persisted yet.
type NewSubscriber struct {
	Email SubscriberEmail
	Name  SubscriberName
}

// NewSubscriberFromForm validates both fields. Name errors are reported first.
func NewSubscriberFromForm(name, email string) (NewSubscriber, error) {
	parsedName, err := ParseSubscriberName(name)
	if err != nil {
		return NewSubscriber{}, err
	}
	parsedEmail, err := ParseSubscriberEmail(email)
	if err != nil {
		return NewSubscriber{}, err
	}
	return NewSubscriber{Email: parsedEmail, Name: parsedName}, nil
}

// Subscriber is a persisted subscription.
//
// Invariants:
//   - Email is unique across subscribers
//   - Status only moves pending_confirmation -> confirmed
//   - SubscribedAt is set once at registration
type Subscriber struct {
	ID           id.SubscriberID `json:"id"`
	Email        string          `json:"email"`
	Name         string          `json:"name"`
	SubscribedAt time.Time       `json:"subscribed_at"`
	Status       Status          `json:"status"`
}

func (s *Subscriber) IsConfirmed() bool {
	return s.Status == StatusConfirmed
}
