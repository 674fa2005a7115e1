package relay

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twmb/franz-go/pkg/kgo"

	id "newsletter/pkg/domain"
	audit "newsletter/pkg/platform/audit"
	"newsletter/pkg/platform/audit/store/memory"
	"newsletter/pkg/platform/tx"
)

type fakeProducer struct {
	mu      sync.Mutex
	records []*kgo.Record
	err     error
}

func (p *fakeProducer) ProduceSync(_ context.Context, rs ...*kgo.Record) kgo.ProduceResults {
	p.mu.Lock()
	defer p.mu.Unlock()
	results := make(kgo.ProduceResults, 0, len(rs))
	for _, r := range rs {
		if p.err == nil {
			p.records = append(p.records, r)
		}
		results = append(results, kgo.ProduceResult{Record: r, Err: p.err})
	}
	return results
}

func (p *fakeProducer) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.records)
}

func seed(t *testing.T, store *memory.InMemoryStore, n int) id.SubscriberID {
	t.Helper()
	subscriberID := id.NewSubscriberID()
	for i := 0; i < n; i++ {
		require.NoError(t, store.Append(context.Background(), audit.Event{
			Timestamp:    time.Now(),
			SubscriberID: subscriberID,
			Action:       string(audit.EventSubscriberRegistered),
		}))
	}
	return subscriberID
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestFlushOncePublishesAndMarks(t *testing.T) {
	store := memory.NewInMemoryStore()
	subscriberID := seed(t, store, 3)
	producer := &fakeProducer{}

	r := New(store, tx.NoopRunner{}, producer, "subscriptions.audit", WithBatchSize(2), WithLogger(quietLogger()))

	n, err := r.FlushOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	n, err = r.FlushOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	n, err = r.FlushOnce(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)

	require.Equal(t, 3, producer.count())
	rec := producer.records[0]
	assert.Equal(t, "subscriptions.audit", rec.Topic)
	assert.Equal(t, subscriberID.String(), string(rec.Key))
	assert.Equal(t, "event_type", rec.Headers[0].Key)
	assert.Equal(t, "subscriber_registered", string(rec.Headers[0].Value))
}

func TestFlushOnceLeavesEntriesPendingOnProduceError(t *testing.T) {
	store := memory.NewInMemoryStore()
	seed(t, store, 1)
	producer := &fakeProducer{err: errors.New("broker unavailable")}

	r := New(store, tx.NoopRunner{}, producer, "t", WithLogger(quietLogger()))

	_, err := r.FlushOnce(context.Background())
	require.Error(t, err)

	pending, err := store.ClaimPending(context.Background(), 10)
	require.NoError(t, err)
	assert.Len(t, pending, 1)

	producer.err = nil
	n, err := r.FlushOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestRunStopsOnCancel(t *testing.T) {
	store := memory.NewInMemoryStore()
	seed(t, store, 1)
	producer := &fakeProducer{}

	r := New(store, tx.NoopRunner{}, producer, "t", WithPollInterval(5*time.Millisecond), WithLogger(quietLogger()))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- r.Run(ctx) }()

	require.Eventually(t, func() bool { return producer.count() == 1 }, time.Second, 5*time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("relay did not stop")
	}
}
