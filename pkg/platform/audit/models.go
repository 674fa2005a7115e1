package audit

import (
	"context"
	"time"

	id "newsletter/pkg/domain"
)

// EventCategory classifies audit events by their primary purpose.
// Downstream consumers route on it.
type EventCategory string

const (
	// CategoryCompliance covers changes to a subscriber's consent to receive mail.
	CategoryCompliance EventCategory = "compliance"

	// CategoryOperations covers events useful for debugging delivery problems.
	CategoryOperations EventCategory = "operations"
)

// Event is emitted from the subscription workflow to capture lifecycle
// actions. It is transport-agnostic; the outbox relay publishes it to Kafka.
type Event struct {
	Category     EventCategory
	Timestamp    time.Time
	SubscriberID id.SubscriberID
	Action       string
	Reason       string
	// Email is stored redacted.
	Email     string
	RequestID string
}

type AuditEvent string

const (
	EventSubscriberRegistered    AuditEvent = "subscriber_registered"
	EventSubscriptionConfirmed   AuditEvent = "subscription_confirmed"
	EventConfirmationEmailFailed AuditEvent = "confirmation_email_failed"
)

var eventCategories = map[AuditEvent]EventCategory{
	EventSubscriberRegistered:  CategoryCompliance,
	EventSubscriptionConfirmed: CategoryCompliance,

	EventConfirmationEmailFailed: CategoryOperations,
}

// Category returns the EventCategory for this audit event.
// Unknown events default to CategoryOperations.
func (e AuditEvent) Category() EventCategory {
	if cat, ok := eventCategories[e]; ok {
		return cat
	}
	return CategoryOperations
}

// Store persists audit events. Postgres implementations write to the outbox
// and join any transaction carried in ctx.
type Store interface {
	Append(ctx context.Context, event Event) error
}

// OutboxEntry is an event waiting to be relayed.
type OutboxEntry struct {
	ID          string
	AggregateID string
	EventType   string
	Payload     []byte
	CreatedAt   time.Time
}

// Outbox is the relay's view of pending entries. ClaimPending locks the
// returned rows for the lifetime of the transaction in ctx.
type Outbox interface {
	ClaimPending(ctx context.Context, limit int) ([]OutboxEntry, error)
	MarkPublished(ctx context.Context, ids []string) error
}
