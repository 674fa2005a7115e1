// Package postgres opens the shared *sql.DB pool and applies migrations.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"time"

	_ "github.com/lib/pq"
	"github.com/pressly/goose/v3"

	"newsletter/internal/platform/config"
)

var (
	ErrOpen            = errors.New("postgres: failed to open connection")
	ErrSetDialect      = errors.New("postgres migrator: failed to set dialect")
	ErrApplyMigrations = errors.New("postgres migrator: failed to apply migrations")
)

const pingTimeout = 5 * time.Second

// Open connects with the lib/pq driver and verifies the connection.
func Open(ctx context.Context, cfg config.DatabaseSettings) (*sql.DB, error) {
	dsn := cfg.ConnectionString()
	db, err := sql.Open("postgres", dsn.Expose())
	if err != nil {
		return nil, errors.Join(ErrOpen, err)
	}
	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
		db.SetMaxIdleConns(cfg.MaxOpenConns)
	}
	db.SetConnMaxIdleTime(5 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, errors.Join(ErrOpen, fmt.Errorf("ping: %w", err))
	}
	return db, nil
}

// Migrate applies every pending migration in migrations.
func Migrate(ctx context.Context, db *sql.DB, migrations fs.FS, logger *slog.Logger) error {
	goose.SetBaseFS(migrations)
	goose.SetLogger(&gooseLoggerAdapter{logger})

	if err := goose.SetDialect("postgres"); err != nil {
		return errors.Join(ErrSetDialect, err)
	}
	if err := goose.UpContext(ctx, db, "."); err != nil {
		return errors.Join(ErrApplyMigrations, err)
	}
	return nil
}

type gooseLoggerAdapter struct {
	log *slog.Logger
}

func (g *gooseLoggerAdapter) Printf(format string, args ...any) {
	g.log.Info(fmt.Sprintf(format, args...))
}

// Fatalf only logs. goose returns the error so shutdown can run normally.
func (g *gooseLoggerAdapter) Fatalf(format string, args ...any) {
	g.log.Error(fmt.Sprintf(format, args...))
}
