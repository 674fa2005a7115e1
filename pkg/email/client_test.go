package email

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"newsletter/internal/subscriptions/models"
	"newsletter/pkg/platform/secret"
	"newsletter/pkg/platform/sentinel"
)

type recordingObserver struct {
	mu    sync.Mutex
	calls []error
}

func (o *recordingObserver) ObserveDispatch(_ time.Duration, err error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.calls = append(o.calls, err)
}

func mustEmail(t *testing.T, raw string) models.SubscriberEmail {
	t.Helper()
	e, err := models.ParseSubscriberEmail(raw)
	require.NoError(t, err)
	return e
}

func newTestClient(t *testing.T, url string, timeout time.Duration, opts ...Option) *Client {
	t.Helper()
	return NewClient(url, mustEmail(t, "newsletter@example.com"), secret.New("provider-token"), timeout, opts...)
}

func TestSendBuildsProviderRequest(t *testing.T) {
	var (
		gotPath   string
		gotMethod string
		gotHeader http.Header
		gotBody   map[string]string
	)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotMethod = r.Method
		gotHeader = r.Header.Clone()
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	obs := &recordingObserver{}
	client := newTestClient(t, server.URL+"/", time.Second, WithObserver(obs))

	err := client.Send(context.Background(), mustEmail(t, "ursula_le_guin@gmail.com"), "Welcome!", "<p>hi</p>", "hi")
	require.NoError(t, err)

	assert.Equal(t, "/email", gotPath)
	assert.Equal(t, http.MethodPost, gotMethod)
	assert.Equal(t, "provider-token", gotHeader.Get("X-Provider-Token"))
	assert.Equal(t, "application/json", gotHeader.Get("Content-Type"))
	assert.Equal(t, map[string]string{
		"from":      "newsletter@example.com",
		"to":        "ursula_le_guin@gmail.com",
		"subject":   "Welcome!",
		"html_body": "<p>hi</p>",
		"text_body": "hi",
	}, gotBody)
	require.Len(t, obs.calls, 1)
	assert.NoError(t, obs.calls[0])
}

func TestSendNon2xxIsDispatchError(t *testing.T) {
	for _, status := range []int{http.StatusBadRequest, http.StatusUnauthorized, http.StatusInternalServerError} {
		t.Run(fmt.Sprintf("status %d", status), func(t *testing.T) {
			calls := 0
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				calls++
				w.WriteHeader(status)
			}))
			defer server.Close()

			err := newTestClient(t, server.URL, time.Second).
				Send(context.Background(), mustEmail(t, "a@b.com"), "s", "h", "t")

			var de *DispatchError
			require.ErrorAs(t, err, &de)
			assert.Equal(t, status, de.StatusCode)
			assert.Equal(t, 1, calls, "no retries")
		})
	}
}

func TestSendTimesOut(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		<-release
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()
	defer close(release)

	start := time.Now()
	err := newTestClient(t, server.URL, 50*time.Millisecond).
		Send(context.Background(), mustEmail(t, "a@b.com"), "s", "h", "t")

	require.Error(t, err)
	assert.True(t, IsDispatchError(err))
	assert.ErrorIs(t, err, sentinel.ErrUnavailable)
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestSendUnreachableProvider(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()

	err := newTestClient(t, url, time.Second).
		Send(context.Background(), mustEmail(t, "a@b.com"), "s", "h", "t")

	var de *DispatchError
	require.ErrorAs(t, err, &de)
	assert.Zero(t, de.StatusCode)
	assert.ErrorIs(t, err, sentinel.ErrUnavailable)
}
