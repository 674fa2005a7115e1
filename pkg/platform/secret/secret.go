// Package secret wraps credentials (provider tokens, database passwords, DSNs)
// so they never show up in default formatting, JSON output or structured logs.
// The only way to read the value is Expose.
package secret

import (
	"encoding/json"
	"log/slog"
	"strings"
)

const redacted = "[REDACTED]"

// String is a secret string value.
type String struct {
	value string
}

// New wraps s.
func New(s string) String {
	return String{value: s}
}

// Expose returns the underlying value. Call it only at the point of use.
func (s String) Expose() string {
	return s.value
}

// IsEmpty reports whether no value has been set.
func (s String) IsEmpty() bool {
	return s.value == ""
}

func (s String) String() string {
	return redacted
}

func (s String) GoString() string {
	return "secret.String(" + redacted + ")"
}

// LogValue implements slog.LogValuer.
func (s String) LogValue() slog.Value {
	return slog.StringValue(redacted)
}

func (s String) MarshalJSON() ([]byte, error) {
	return json.Marshal(redacted)
}

// UnmarshalText lets config decoders (YAML, env) populate the secret from plain text.
func (s *String) UnmarshalText(text []byte) error {
	s.value = string(text)
	return nil
}

// RedactEmail masks the local part of an address, keeping at most its first
// two characters and the domain.
func RedactEmail(email string) string {
	parts := strings.Split(email, "@")
	if len(parts) != 2 {
		return "***@***"
	}
	name := parts[0]
	if len(name) > 2 {
		return name[:2] + "***@" + parts[1]
	}
	return "***@" + parts[1]
}
