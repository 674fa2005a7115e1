// Package httputil maps domain errors onto HTTP responses.
package httputil

import (
	"net/http"

	dErrors "newsletter/pkg/domain-errors"
)

// StatusFor returns the HTTP status for a domain error code.
func StatusFor(code dErrors.Code) int {
	switch code {
	case dErrors.CodeValidation, dErrors.CodeBadRequest:
		return http.StatusBadRequest
	case dErrors.CodeUnauthorized:
		return http.StatusUnauthorized
	case dErrors.CodeNotFound:
		return http.StatusNotFound
	case dErrors.CodeConflict:
		return http.StatusConflict
	case dErrors.CodeTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// WriteError writes only the status line. Error details stay in the logs.
func WriteError(w http.ResponseWriter, err error) {
	w.WriteHeader(StatusFor(dErrors.CodeOf(err)))
}
