// Package store persists subscribers and their confirmation tokens.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"newsletter/internal/subscriptions/models"
	id "newsletter/pkg/domain"
	"newsletter/pkg/platform/sentinel"
	txcontext "newsletter/pkg/platform/tx"
)

const uniqueViolation = "23505"

// PostgresStore persists subscribers in PostgreSQL. Every method joins the
// transaction carried in ctx when there is one.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgres constructs a PostgreSQL-backed subscriber store.
func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) execer(ctx context.Context) txcontext.Executor {
	return txcontext.ExecutorFor(ctx, s.db)
}

// InsertPending stores a new subscriber awaiting confirmation and returns its ID.
// A duplicate email surfaces as sentinel.ErrConflict.
func (s *PostgresStore) InsertPending(ctx context.Context, sub models.NewSubscriber, now time.Time) (id.SubscriberID, error) {
	subscriberID := id.NewSubscriberID()
	query := `
		INSERT INTO subscriptions (id, email, name, subscribed_at, status)
		VALUES ($1, $2, $3, $4, $5)
	`
	_, err := s.execer(ctx).ExecContext(ctx, query,
		uuid.UUID(subscriberID),
		sub.Email.String(),
		sub.Name.String(),
		now,
		string(models.StatusPendingConfirmation),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return id.SubscriberID{}, fmt.Errorf("insert subscriber: %w", errors.Join(sentinel.ErrConflict, err))
		}
		return id.SubscriberID{}, fmt.Errorf("insert subscriber: %w", err)
	}
	return subscriberID, nil
}

// InsertToken associates token with subscriberID.
func (s *PostgresStore) InsertToken(ctx context.Context, subscriberID id.SubscriberID, token string) error {
	query := `
		INSERT INTO subscription_tokens (subscription_token, subscriber_id)
		VALUES ($1, $2)
	`
	if _, err := s.execer(ctx).ExecContext(ctx, query, token, uuid.UUID(subscriberID)); err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("insert subscription token: %w", errors.Join(sentinel.ErrConflict, err))
		}
		return fmt.Errorf("insert subscription token: %w", err)
	}
	return nil
}

// FindSubscriberIDByToken resolves a token. An unknown token is not an error:
// it returns found=false.
func (s *PostgresStore) FindSubscriberIDByToken(ctx context.Context, token string) (id.SubscriberID, bool, error) {
	var subscriberID uuid.UUID
	err := s.execer(ctx).QueryRowContext(ctx,
		`SELECT subscriber_id FROM subscription_tokens WHERE subscription_token = $1`,
		token,
	).Scan(&subscriberID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return id.SubscriberID{}, false, nil
		}
		return id.SubscriberID{}, false, fmt.Errorf("find subscriber by token: %w", err)
	}
	return id.SubscriberID(subscriberID), true, nil
}

// MarkConfirmed sets the subscriber's status to confirmed. Confirming an
// already confirmed subscriber succeeds.
func (s *PostgresStore) MarkConfirmed(ctx context.Context, subscriberID id.SubscriberID) error {
	res, err := s.execer(ctx).ExecContext(ctx,
		`UPDATE subscriptions SET status = $1 WHERE id = $2`,
		string(models.StatusConfirmed),
		uuid.UUID(subscriberID),
	)
	if err != nil {
		return fmt.Errorf("mark subscriber confirmed: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("mark subscriber confirmed: %w", err)
	}
	if n == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

// FindByID loads a subscriber.
func (s *PostgresStore) FindByID(ctx context.Context, subscriberID id.SubscriberID) (*models.Subscriber, error) {
	var (
		rowID  uuid.UUID
		status string
		sub    models.Subscriber
	)
	err := s.execer(ctx).QueryRowContext(ctx,
		`SELECT id, email, name, subscribed_at, status FROM subscriptions WHERE id = $1`,
		uuid.UUID(subscriberID),
	).Scan(&rowID, &sub.Email, &sub.Name, &sub.SubscribedAt, &status)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find subscriber by id: %w", err)
	}
	sub.ID = id.SubscriberID(rowID)
	sub.Status = models.Status(status)
	return &sub, nil
}

// FindByEmail loads a subscriber by exact email.
func (s *PostgresStore) FindByEmail(ctx context.Context, email string) (*models.Subscriber, error) {
	var (
		rowID  uuid.UUID
		status string
		sub    models.Subscriber
	)
	err := s.execer(ctx).QueryRowContext(ctx,
		`SELECT id, email, name, subscribed_at, status FROM subscriptions WHERE email = $1`,
		email,
	).Scan(&rowID, &sub.Email, &sub.Name, &sub.SubscribedAt, &status)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find subscriber by email: %w", err)
	}
	sub.ID = id.SubscriberID(rowID)
	sub.Status = models.Status(status)
	return &sub, nil
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == uniqueViolation
}
