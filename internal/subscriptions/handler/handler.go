package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	dErrors "newsletter/pkg/domain-errors"
	"newsletter/pkg/platform/httputil"
	"newsletter/pkg/requestcontext"
)

// maxFormBytes bounds the /subscribe body.
const maxFormBytes = 64 << 10

// Service defines the subscription workflow operations.
type Service interface {
	Register(ctx context.Context, rawName, rawEmail string) error
	Confirm(ctx context.Context, rawToken string) error
}

// Handler serves the subscribe and confirm endpoints.
type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts the subscription routes on r.
func (h *Handler) Register(r chi.Router) {
	r.Post("/subscribe", h.handleSubscribe)
	r.Get("/subscriptions/confirm", h.handleConfirm)
}

// handleSubscribe accepts an urlencoded form with name and email.
func (h *Handler) handleSubscribe(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	r.Body = http.MaxBytesReader(w, r.Body, maxFormBytes)
	if err := r.ParseForm(); err != nil {
		h.writeError(ctx, w, "invalid subscription form", dErrors.Wrap(err, dErrors.CodeBadRequest, "unreadable form"))
		return
	}

	if err := h.service.Register(ctx, r.PostForm.Get("name"), r.PostForm.Get("email")); err != nil {
		h.writeError(ctx, w, "subscribe failed", err)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (h *Handler) handleConfirm(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if err := h.service.Confirm(ctx, r.URL.Query().Get("subscription_token")); err != nil {
		h.writeError(ctx, w, "confirm failed", err)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (h *Handler) writeError(ctx context.Context, w http.ResponseWriter, msg string, err error) {
	status := httputil.StatusFor(dErrors.CodeOf(err))
	level := slog.LevelWarn
	if status >= http.StatusInternalServerError {
		level = slog.LevelError
	}
	h.logger.Log(ctx, level, msg,
		"request_id", requestcontext.RequestID(ctx),
		"status", status,
		"error", err.Error(),
	)
	httputil.WriteError(w, err)
}
