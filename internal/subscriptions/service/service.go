package service

//go:generate mockgen -source=service.go -destination=mocks/mocks.go -package=mocks Store,Dispatcher,AuditStore

import (
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"newsletter/internal/platform/metrics"
	"newsletter/internal/subscriptions/models"
	id "newsletter/pkg/domain"
	"newsletter/pkg/platform/audit"
	"newsletter/pkg/platform/tx"
)

const tracerName = "newsletter/internal/subscriptions/service"

// Store persists subscribers and their confirmation tokens. Implementations
// join the transaction carried in ctx when there is one.
type Store interface {
	InsertPending(ctx context.Context, sub models.NewSubscriber, now time.Time) (id.SubscriberID, error)
	InsertToken(ctx context.Context, subscriberID id.SubscriberID, token string) error
	FindSubscriberIDByToken(ctx context.Context, token string) (id.SubscriberID, bool, error)
	MarkConfirmed(ctx context.Context, subscriberID id.SubscriberID) error
}

// Dispatcher delivers a single email.
type Dispatcher interface {
	Send(ctx context.Context, recipient models.SubscriberEmail, subject, htmlBody, textBody string) error
}

// AuditStore records lifecycle events.
type AuditStore interface {
	Append(ctx context.Context, event audit.Event) error
}

// Service runs the double opt-in workflow: register a pending subscriber,
// email a confirmation link, then confirm on click.
type Service struct {
	store      Store
	dispatcher Dispatcher
	audit      AuditStore
	tx         tx.Runner
	baseURL    string

	logger  *slog.Logger
	metrics *metrics.Metrics
	tracer  trace.Tracer
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(s *Service) {
		if tp != nil {
			s.tracer = tp.Tracer(tracerName)
		}
	}
}

// WithAuditStore records lifecycle events. Without it events are dropped.
func WithAuditStore(store AuditStore) Option {
	return func(s *Service) {
		s.audit = store
	}
}

// WithTxRunner groups writes into one unit of work. Defaults to tx.NoopRunner.
func WithTxRunner(runner tx.Runner) Option {
	return func(s *Service) {
		if runner != nil {
			s.tx = runner
		}
	}
}

// New constructs a Service. baseURL is the public origin confirmation links
// point at.
func New(store Store, dispatcher Dispatcher, baseURL string, opts ...Option) *Service {
	s := &Service{
		store:      store,
		dispatcher: dispatcher,
		baseURL:    baseURL,
		tx:         tx.NoopRunner{},
		logger:     slog.New(slog.DiscardHandler),
		tracer:     noop.NewTracerProvider().Tracer(tracerName),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) appendAudit(ctx context.Context, event audit.Event) error {
	if s.audit == nil {
		return nil
	}
	return s.audit.Append(ctx, event)
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
