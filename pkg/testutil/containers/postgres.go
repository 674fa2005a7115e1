//go:build integration

package containers

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"newsletter/internal/platform/config"
	"newsletter/internal/platform/postgres"
	"newsletter/migrations"
	"newsletter/pkg/platform/secret"
)

// PostgresContainer wraps a testcontainers Postgres instance.
type PostgresContainer struct {
	Container testcontainers.Container
	Settings  config.DatabaseSettings
	// DB is connected to Settings.DatabaseName with all migrations applied.
	DB *sql.DB
}

// NewPostgresContainer starts Postgres and migrates the default database.
func NewPostgresContainer(t *testing.T) *PostgresContainer {
	t.Helper()
	ctx := context.Background()

	container, err := tcpostgres.Run(ctx, "postgres:16-alpine",
		tcpostgres.WithDatabase("newsletter"),
		tcpostgres.WithUsername("postgres"),
		tcpostgres.WithPassword("password"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	if err != nil {
		t.Fatalf("failed to start postgres container: %v", err)
	}

	host, err := container.Host(ctx)
	if err != nil {
		_ = container.Terminate(ctx)
		t.Fatalf("failed to get postgres host: %v", err)
	}
	port, err := container.MappedPort(ctx, "5432/tcp")
	if err != nil {
		_ = container.Terminate(ctx)
		t.Fatalf("failed to get postgres port: %v", err)
	}

	settings := config.DatabaseSettings{
		Host:         host,
		Port:         port.Int(),
		Username:     "postgres",
		Password:     secret.New("password"),
		DatabaseName: "newsletter",
	}

	db, err := openAndMigrate(ctx, settings)
	if err != nil {
		_ = container.Terminate(ctx)
		t.Fatalf("failed to prepare postgres: %v", err)
	}

	// The container is shared through the Manager; Ryuk handles cleanup.
	return &PostgresContainer{Container: container, Settings: settings, DB: db}
}

// NewDatabase creates a fresh, migrated database on the shared instance and
// drops it when the test ends. Use it when tests must not see each other's rows.
func (p *PostgresContainer) NewDatabase(t *testing.T) (*sql.DB, config.DatabaseSettings) {
	t.Helper()
	ctx := context.Background()

	settings := p.Settings
	settings.DatabaseName = "test_" + strings.ReplaceAll(uuid.NewString(), "-", "")

	if _, err := p.DB.ExecContext(ctx, "CREATE DATABASE "+pq.QuoteIdentifier(settings.DatabaseName)); err != nil {
		t.Fatalf("create database: %v", err)
	}

	db, err := openAndMigrate(ctx, settings)
	if err != nil {
		t.Fatalf("prepare database %s: %v", settings.DatabaseName, err)
	}

	t.Cleanup(func() {
		_ = db.Close()
		_, _ = p.DB.ExecContext(context.Background(),
			"DROP DATABASE IF EXISTS "+pq.QuoteIdentifier(settings.DatabaseName)+" WITH (FORCE)")
	})
	return db, settings
}

// TruncateTables removes all rows from tables. Use between tests that share DB.
func (p *PostgresContainer) TruncateTables(ctx context.Context, tables ...string) error {
	quoted := make([]string, len(tables))
	for i, table := range tables {
		quoted[i] = pq.QuoteIdentifier(table)
	}
	_, err := p.DB.ExecContext(ctx, fmt.Sprintf("TRUNCATE %s CASCADE", strings.Join(quoted, ", ")))
	return err
}

func openAndMigrate(ctx context.Context, settings config.DatabaseSettings) (*sql.DB, error) {
	db, err := postgres.Open(ctx, settings)
	if err != nil {
		return nil, err
	}
	quiet := slog.New(slog.NewTextHandler(io.Discard, nil))
	if err := postgres.Migrate(ctx, db, migrations.FS, quiet); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}
