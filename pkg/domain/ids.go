package domain

import (
	"github.com/google/uuid"

	dErrors "newsletter/pkg/domain-errors"
)

// SubscriberID identifies a persisted subscriber. It is a distinct type so that
// arbitrary UUIDs cannot be passed where a subscriber reference is expected.
type SubscriberID uuid.UUID

// NewSubscriberID returns a fresh random subscriber identifier.
func NewSubscriberID() SubscriberID {
	return SubscriberID(uuid.New())
}

// ParseSubscriberID parses s at a trust boundary. Empty, malformed and nil UUIDs
// are rejected with CodeValidation.
func ParseSubscriberID(s string) (SubscriberID, error) {
	u, err := parseUUID(s, "subscriber ID")
	if err != nil {
		return SubscriberID{}, err
	}
	return SubscriberID(u), nil
}

func (id SubscriberID) String() string {
	return uuid.UUID(id).String()
}

// MarshalText encodes the canonical UUID form so IDs render as strings in JSON.
func (id SubscriberID) MarshalText() ([]byte, error) {
	return []byte(id.String()), nil
}

// IsNil reports whether id is the zero UUID.
func (id SubscriberID) IsNil() bool {
	return uuid.UUID(id) == uuid.Nil
}

func parseUUID(s, label string) (uuid.UUID, error) {
	if s == "" {
		return uuid.Nil, dErrors.New(dErrors.CodeValidation, label+" is required")
	}
	u, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, dErrors.Wrap(err, dErrors.CodeValidation, "invalid "+label)
	}
	if u == uuid.Nil {
		return uuid.Nil, dErrors.New(dErrors.CodeValidation, label+" cannot be nil")
	}
	return u, nil
}
