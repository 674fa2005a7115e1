package models

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"

	id "newsletter/pkg/domain"
)

const (
	tokenBytes     = 32
	maxTokenLength = 256
)

// ConfirmationToken links an opaque token to the subscriber it confirms.
type ConfirmationToken struct {
	Token        string
	SubscriberID id.SubscriberID
}

// GenerateConfirmationToken returns 32 random bytes encoded as unpadded base64url.
func GenerateConfirmationToken() (string, error) {
	buf := make([]byte, tokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("read random bytes: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// ParseConfirmationToken checks the shape of a token from a query string.
// It does not check that the token exists.
func ParseConfirmationToken(raw string) (string, error) {
	if raw == "" {
		return "", invalid("subscription_token", raw, "is required")
	}
	if len(raw) > maxTokenLength {
		return "", invalid("subscription_token", raw, "is too long")
	}
	for i := 0; i < len(raw); i++ {
		if !isBase64URL(raw[i]) {
			return "", invalid("subscription_token", raw, "contains invalid characters")
		}
	}
	return raw, nil
}

func isBase64URL(c byte) bool {
	return c >= 'A' && c <= 'Z' ||
		c >= 'a' && c <= 'z' ||
		c >= '0' && c <= '9' ||
		c == '-' || c == '_'
}
