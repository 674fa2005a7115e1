// Package app assembles the newsletter service from its settings. main and
// the end-to-end tests both build through here so they run the same wiring.
package app

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/twmb/franz-go/pkg/kgo"
	"go.opentelemetry.io/otel"

	"newsletter/internal/platform/config"
	"newsletter/internal/platform/metrics"
	"newsletter/internal/platform/postgres"
	"newsletter/internal/subscriptions"
	httptransport "newsletter/internal/transport/http"
	"newsletter/migrations"
	"newsletter/pkg/email"
	"newsletter/pkg/platform/audit/relay"
	"newsletter/pkg/platform/tx"
)

// App is a fully wired service ready to serve.
type App struct {
	Handler       http.Handler
	Subscriptions *subscriptions.Module
	// Relay is nil when no Kafka brokers are configured.
	Relay *relay.Relay
	DB    *sql.DB

	kafka *kgo.Client
}

// Build opens Postgres, applies migrations and wires every component.
func Build(ctx context.Context, cfg *config.Settings, logger *slog.Logger) (*App, error) {
	db, err := postgres.Open(ctx, cfg.Database)
	if err != nil {
		return nil, err
	}
	if err := postgres.Migrate(ctx, db, migrations.FS, logger); err != nil {
		db.Close()
		return nil, err
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		collectors.NewDBStatsCollector(db, cfg.Database.DatabaseName),
	)
	m := metrics.New(registry)

	sender, err := cfg.EmailClient.Sender()
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("invalid sender email: %w", err)
	}
	mailer := email.NewClient(cfg.EmailClient.BaseURL, sender,
		cfg.EmailClient.AuthorizationToken, cfg.EmailClient.Timeout(),
		email.WithObserver(m))

	module := subscriptions.New(subscriptions.Deps{
		DB:             db,
		Dispatcher:     mailer,
		BaseURL:        cfg.Application.BaseURL,
		Logger:         logger,
		Metrics:        m,
		TracerProvider: otel.GetTracerProvider(),
	})

	a := &App{
		Handler: httptransport.NewRouter(httptransport.Config{
			Logger:         logger,
			Metrics:        m,
			Gatherer:       registry,
			AllowedOrigins: cfg.Application.CORSAllowedOrigins,
		}, module.Handler),
		Subscriptions: module,
		DB:            db,
	}

	if cfg.Kafka.Enabled() {
		client, err := kgo.NewClient(
			kgo.SeedBrokers(cfg.Kafka.Brokers...),
			kgo.ClientID("newsletter"),
			kgo.RequiredAcks(kgo.AllISRAcks()),
		)
		if err != nil {
			db.Close()
			return nil, fmt.Errorf("create kafka client: %w", err)
		}
		a.kafka = client
		a.Relay = relay.New(module.Audit, tx.NewPostgresRunner(db), client, cfg.Kafka.Topic,
			relay.WithBatchSize(cfg.Kafka.BatchSize),
			relay.WithPollInterval(cfg.Kafka.PollInterval()),
			relay.WithLogger(logger),
		)
	}
	return a, nil
}

// Close releases the Kafka client and the database pool.
func (a *App) Close() error {
	if a.kafka != nil {
		a.kafka.Close()
	}
	return a.DB.Close()
}
