package models

import (
	"log/slog"

	"github.com/asaskevich/govalidator"

	"newsletter/pkg/platform/secret"
)

// SubscriberEmail is a syntactically valid email address.
type SubscriberEmail struct {
	value string
}

// ParseSubscriberEmail accepts raw input iff it is a syntactically valid
// address. Deliverability is not checked.
func ParseSubscriberEmail(raw string) (SubscriberEmail, error) {
	if raw == "" {
		return SubscriberEmail{}, invalid("email", raw, "must not be empty")
	}
	if !isStorableText(raw) {
		return SubscriberEmail{}, invalid("email", raw, "is not valid UTF-8 text")
	}
	if !govalidator.IsEmail(raw) {
		return SubscriberEmail{}, invalid("email", raw, "is not a valid email address")
	}
	return SubscriberEmail{value: raw}, nil
}

func (e SubscriberEmail) String() string {
	return e.value
}

// LogValue masks the local part so addresses do not leak into logs.
func (e SubscriberEmail) LogValue() slog.Value {
	return slog.StringValue(secret.RedactEmail(e.value))
}
