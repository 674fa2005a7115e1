package testutil

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"regexp"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

// SentEmail is one request received by MailProvider.
type SentEmail struct {
	Token    string `json:"-"`
	From     string `json:"from"`
	To       string `json:"to"`
	Subject  string `json:"subject"`
	HTMLBody string `json:"html_body"`
	TextBody string `json:"text_body"`
}

// MailProvider is a fake email provider API that records what it is sent.
type MailProvider struct {
	Server *httptest.Server

	mu     sync.Mutex
	sent   []SentEmail
	status int
}

// NewMailProvider starts a provider that answers 200 to POST /email. It is
// closed when the test ends.
func NewMailProvider(t *testing.T) *MailProvider {
	t.Helper()
	p := &MailProvider{status: http.StatusOK}
	p.Server = httptest.NewServer(http.HandlerFunc(p.serve))
	t.Cleanup(p.Server.Close)
	return p
}

// URL is the base URL to configure the email client with.
func (p *MailProvider) URL() string {
	return p.Server.URL
}

// RespondWith makes subsequent requests answer with status.
func (p *MailProvider) RespondWith(status int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.status = status
}

// Sent returns a copy of every recorded request.
func (p *MailProvider) Sent() []SentEmail {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]SentEmail(nil), p.sent...)
}

func (p *MailProvider) serve(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost || r.URL.Path != "/email" {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	body, err := io.ReadAll(r.Body)
	if err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	var sent SentEmail
	if err := json.Unmarshal(body, &sent); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	sent.Token = r.Header.Get("X-Provider-Token")

	p.mu.Lock()
	p.sent = append(p.sent, sent)
	status := p.status
	p.mu.Unlock()

	w.WriteHeader(status)
}

var linkPattern = regexp.MustCompile(`https?://[^\s"<>]+`)

// ConfirmationLinks holds the link found in each body of a confirmation email.
type ConfirmationLinks struct {
	HTML  *url.URL
	Plain *url.URL
}

// ExtractConfirmationLinks requires exactly one link in each body and returns
// them parsed.
func ExtractConfirmationLinks(t *testing.T, sent SentEmail) ConfirmationLinks {
	t.Helper()
	return ConfirmationLinks{
		HTML:  extractSingleLink(t, sent.HTMLBody),
		Plain: extractSingleLink(t, sent.TextBody),
	}
}

func extractSingleLink(t *testing.T, body string) *url.URL {
	t.Helper()
	links := linkPattern.FindAllString(body, -1)
	require.Len(t, links, 1, "expected exactly one link in %q", body)
	u, err := url.Parse(links[0])
	require.NoError(t, err)
	return u
}
