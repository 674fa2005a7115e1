package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/stretchr/testify/suite"

	"newsletter/internal/subscriptions/models"
	id "newsletter/pkg/domain"
	"newsletter/pkg/platform/sentinel"
)

type PostgresUnitSuite struct {
	suite.Suite
	mock  sqlmock.Sqlmock
	store *PostgresStore
	ctx   context.Context
}

func TestPostgresUnitSuite(t *testing.T) {
	suite.Run(t, new(PostgresUnitSuite))
}

func (s *PostgresUnitSuite) SetupTest() {
	db, mock, err := sqlmock.New()
	s.Require().NoError(err)
	s.T().Cleanup(func() { _ = db.Close() })
	s.mock = mock
	s.store = NewPostgres(db)
	s.ctx = context.Background()
}

func (s *PostgresUnitSuite) TearDownTest() {
	s.NoError(s.mock.ExpectationsWereMet())
}

func (s *PostgresUnitSuite) newSubscriber() models.NewSubscriber {
	sub, err := models.NewSubscriberFromForm("le guin", "ursula_le_guin@gmail.com")
	s.Require().NoError(err)
	return sub
}

func (s *PostgresUnitSuite) TestInsertPending() {
	now := time.Date(2026, 2, 1, 10, 0, 0, 0, time.UTC)

	s.Run("inserts a pending row", func() {
		s.mock.ExpectExec("INSERT INTO subscriptions").
			WithArgs(sqlmock.AnyArg(), "ursula_le_guin@gmail.com", "le guin", now, "pending_confirmation").
			WillReturnResult(sqlmock.NewResult(0, 1))

		subscriberID, err := s.store.InsertPending(s.ctx, s.newSubscriber(), now)
		s.Require().NoError(err)
		s.False(subscriberID.IsNil())
	})

	s.Run("maps unique violation to conflict", func() {
		s.mock.ExpectExec("INSERT INTO subscriptions").
			WillReturnError(&pq.Error{Code: "23505", Constraint: "subscriptions_email_key"})

		_, err := s.store.InsertPending(s.ctx, s.newSubscriber(), now)
		s.Require().ErrorIs(err, sentinel.ErrConflict)
	})

	s.Run("wraps other failures", func() {
		s.mock.ExpectExec("INSERT INTO subscriptions").WillReturnError(errors.New("connection reset"))

		_, err := s.store.InsertPending(s.ctx, s.newSubscriber(), now)
		s.Require().Error(err)
		s.NotErrorIs(err, sentinel.ErrConflict)
		s.Contains(err.Error(), "insert subscriber")
	})
}

func (s *PostgresUnitSuite) TestTokenLookup() {
	subscriberID := id.NewSubscriberID()

	s.Run("finds known token", func() {
		s.mock.ExpectQuery("SELECT subscriber_id FROM subscription_tokens").
			WithArgs("known").
			WillReturnRows(sqlmock.NewRows([]string{"subscriber_id"}).AddRow(uuid.UUID(subscriberID).String()))

		got, found, err := s.store.FindSubscriberIDByToken(s.ctx, "known")
		s.Require().NoError(err)
		s.True(found)
		s.Equal(subscriberID, got)
	})

	s.Run("unknown token is not an error", func() {
		s.mock.ExpectQuery("SELECT subscriber_id FROM subscription_tokens").
			WithArgs("unknown").
			WillReturnRows(sqlmock.NewRows([]string{"subscriber_id"}))

		_, found, err := s.store.FindSubscriberIDByToken(s.ctx, "unknown")
		s.Require().NoError(err)
		s.False(found)
	})

	s.Run("query failure is an error", func() {
		s.mock.ExpectQuery("SELECT subscriber_id FROM subscription_tokens").
			WillReturnError(errors.New("db down"))

		_, found, err := s.store.FindSubscriberIDByToken(s.ctx, "x")
		s.Require().Error(err)
		s.False(found)
	})
}

func (s *PostgresUnitSuite) TestMarkConfirmed() {
	subscriberID := id.NewSubscriberID()

	s.Run("updates status", func() {
		s.mock.ExpectExec("UPDATE subscriptions SET status").
			WithArgs("confirmed", sqlmock.AnyArg()).
			WillReturnResult(sqlmock.NewResult(0, 1))

		s.Require().NoError(s.store.MarkConfirmed(s.ctx, subscriberID))
	})

	s.Run("missing row is not found", func() {
		s.mock.ExpectExec("UPDATE subscriptions SET status").
			WillReturnResult(sqlmock.NewResult(0, 0))

		s.Require().ErrorIs(s.store.MarkConfirmed(s.ctx, subscriberID), sentinel.ErrNotFound)
	})
}

func (s *PostgresUnitSuite) TestFindByID() {
	subscriberID := id.NewSubscriberID()
	now := time.Date(2026, 2, 1, 10, 0, 0, 0, time.UTC)

	s.Run("scans row", func() {
		s.mock.ExpectQuery("SELECT id, email, name, subscribed_at, status FROM subscriptions WHERE id").
			WillReturnRows(sqlmock.NewRows([]string{"id", "email", "name", "subscribed_at", "status"}).
				AddRow(uuid.UUID(subscriberID).String(), "a@b.com", "A", now, "confirmed"))

		sub, err := s.store.FindByID(s.ctx, subscriberID)
		s.Require().NoError(err)
		s.Equal(subscriberID, sub.ID)
		s.Equal(models.StatusConfirmed, sub.Status)
		s.Equal(now, sub.SubscribedAt)
	})

	s.Run("missing row is not found", func() {
		s.mock.ExpectQuery("SELECT id, email, name, subscribed_at, status FROM subscriptions WHERE id").
			WillReturnRows(sqlmock.NewRows([]string{"id", "email", "name", "subscribed_at", "status"}))

		_, err := s.store.FindByID(s.ctx, subscriberID)
		s.Require().ErrorIs(err, sentinel.ErrNotFound)
	})
}
