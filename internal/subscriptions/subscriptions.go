// Package subscriptions wires the double opt-in workflow: a Postgres store,
// the workflow service and its HTTP handler.
package subscriptions

import (
	"database/sql"
	"log/slog"

	"go.opentelemetry.io/otel/trace"

	"newsletter/internal/platform/metrics"
	"newsletter/internal/subscriptions/handler"
	"newsletter/internal/subscriptions/service"
	"newsletter/internal/subscriptions/store"
	auditpostgres "newsletter/pkg/platform/audit/store/postgres"
	"newsletter/pkg/platform/tx"
)

// Deps are the collaborators the module needs from main.
type Deps struct {
	DB             *sql.DB
	Dispatcher     service.Dispatcher
	BaseURL        string
	Logger         *slog.Logger
	Metrics        *metrics.Metrics
	TracerProvider trace.TracerProvider
}

// Module bundles the subscription components.
type Module struct {
	Store   *store.PostgresStore
	Audit   *auditpostgres.Store
	Service *service.Service
	Handler *handler.Handler
}

func New(deps Deps) *Module {
	subscribers := store.NewPostgres(deps.DB)
	auditStore := auditpostgres.New(deps.DB)
	svc := service.New(subscribers, deps.Dispatcher, deps.BaseURL,
		service.WithLogger(deps.Logger),
		service.WithMetrics(deps.Metrics),
		service.WithTracerProvider(deps.TracerProvider),
		service.WithAuditStore(auditStore),
		service.WithTxRunner(tx.NewPostgresRunner(deps.DB)),
	)
	return &Module{
		Store:   subscribers,
		Audit:   auditStore,
		Service: svc,
		Handler: handler.New(svc, deps.Logger),
	}
}
