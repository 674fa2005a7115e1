package postgres

import (
	"context"
	"database/sql/driver"
	"encoding/json"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	id "newsletter/pkg/domain"
	audit "newsletter/pkg/platform/audit"
	txcontext "newsletter/pkg/platform/tx"
)

type payloadArg struct {
	got *outboxPayload
}

func (p payloadArg) Match(v driver.Value) bool {
	b, ok := v.([]byte)
	if !ok {
		return false
	}
	return json.Unmarshal(b, p.got) == nil
}

func TestAppendWritesOutboxRowInContextTransaction(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	subscriberID := id.NewSubscriberID()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	var payload outboxPayload

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO outbox").
		WithArgs(sqlmock.AnyArg(), "subscriber", subscriberID.String(), "subscriber_registered", payloadArg{got: &payload}, now).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	store := New(db)
	err = txcontext.NewPostgresRunner(db).RunInTx(context.Background(), func(ctx context.Context) error {
		return store.Append(ctx, audit.Event{
			Timestamp:    now,
			SubscriberID: subscriberID,
			Action:       string(audit.EventSubscriberRegistered),
			Email:        "ur***@gmail.com",
			RequestID:    "req-1",
		})
	})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())

	assert.Equal(t, "compliance", payload.Category)
	assert.Equal(t, subscriberID.String(), payload.SubscriberID)
	assert.Equal(t, "req-1", payload.RequestID)
	assert.Equal(t, "2026-03-01T12:00:00Z", payload.Timestamp)
}

func TestClaimPendingAndMarkPublished(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	created := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	rows := sqlmock.NewRows([]string{"id", "aggregate_id", "event_type", "payload", "created_at"}).
		AddRow("0d9e2c4e-4b53-4c8c-9d0e-0d2f3a1b2c3d", "agg-1", "subscriber_registered", []byte(`{"action":"subscriber_registered"}`), created)

	mock.ExpectQuery("SELECT id, aggregate_id, event_type, payload, created_at\\s+FROM outbox").
		WithArgs(10).
		WillReturnRows(rows)
	mock.ExpectExec("UPDATE outbox SET published_at").
		WithArgs(sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	store := New(db)
	entries, err := store.ClaimPending(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "subscriber_registered", entries[0].EventType)
	assert.Equal(t, created, entries[0].CreatedAt)

	require.NoError(t, store.MarkPublished(context.Background(), []string{entries[0].ID}))
	require.NoError(t, store.MarkPublished(context.Background(), nil))
	require.NoError(t, mock.ExpectationsWereMet())
}
