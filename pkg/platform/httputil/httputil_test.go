package httputil

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	dErrors "newsletter/pkg/domain-errors"
)

func TestWriteError(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
	}{
		{"validation", dErrors.New(dErrors.CodeValidation, "name is required"), http.StatusBadRequest},
		{"bad request", dErrors.New(dErrors.CodeBadRequest, "invalid form"), http.StatusBadRequest},
		{"unauthorized", dErrors.New(dErrors.CodeUnauthorized, "unknown token"), http.StatusUnauthorized},
		{"timeout", dErrors.New(dErrors.CodeTimeout, "deadline"), http.StatusGatewayTimeout},
		{"internal", dErrors.New(dErrors.CodeInternal, "db failed"), http.StatusInternalServerError},
		{"wrapped domain error", fmt.Errorf("register: %w", dErrors.New(dErrors.CodeValidation, "bad")), http.StatusBadRequest},
		{"plain error", errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			WriteError(w, tt.err)

			if w.Code != tt.status {
				t.Fatalf("expected status %d, got %d", tt.status, w.Code)
			}
			if w.Body.Len() != 0 {
				t.Fatalf("expected empty body, got %q", w.Body.String())
			}
		})
	}
}
