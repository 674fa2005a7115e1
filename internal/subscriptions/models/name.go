package models

import (
	"strings"
	"unicode/utf8"

	"github.com/rivo/uniseg"
)

const (
	maxNameGraphemes   = 256
	forbiddenNameRunes = `/()"<>\{}`
)

// SubscriberName is a display name that has passed validation.
// The zero value is not a valid name; construct with ParseSubscriberName.
type SubscriberName struct {
	value string
}

// ParseSubscriberName validates raw input as a subscriber name.
//
// A name is rejected when it is empty or whitespace-only, longer than 256
// user-perceived characters (grapheme clusters), contains any of
// / ( ) " < > \ { }, or is not storable text (invalid UTF-8 or a NUL byte).
// The stored value is the input as given, not trimmed.
func ParseSubscriberName(raw string) (SubscriberName, error) {
	emptyOrBlank := strings.TrimSpace(raw) == ""
	tooLong := uniseg.GraphemeClusterCount(raw) > maxNameGraphemes
	hasForbidden := strings.ContainsAny(raw, forbiddenNameRunes)
	unstorable := !isStorableText(raw)

	switch {
	case emptyOrBlank:
		return SubscriberName{}, invalid("name", raw, "must not be empty")
	case tooLong:
		return SubscriberName{}, invalid("name", raw, "must be at most 256 characters")
	case hasForbidden:
		return SubscriberName{}, invalid("name", raw, "contains forbidden characters")
	case unstorable:
		return SubscriberName{}, invalid("name", raw, "is not valid UTF-8 text")
	}
	return SubscriberName{value: raw}, nil
}

func (n SubscriberName) String() string {
	return n.value
}

// isStorableText rejects input Postgres text columns cannot hold.
func isStorableText(s string) bool {
	return utf8.ValidString(s) && !strings.ContainsRune(s, 0)
}
