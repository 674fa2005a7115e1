package email

import (
	"errors"
	"fmt"
)

// DispatchError is returned when the provider did not accept a message.
// StatusCode is zero when no response was received.
type DispatchError struct {
	StatusCode int
	Err        error
}

func (e *DispatchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("email dispatch rejected with status %d", e.StatusCode)
	}
	return fmt.Sprintf("email dispatch failed: %v", e.Err)
}

func (e *DispatchError) Unwrap() error {
	return e.Err
}

// IsDispatchError reports whether err carries a *DispatchError.
func IsDispatchError(err error) bool {
	var de *DispatchError
	return errors.As(err, &de)
}
