// Package email sends transactional mail through the provider's REST API.
package email

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"newsletter/internal/subscriptions/models"
	"newsletter/pkg/platform/secret"
	"newsletter/pkg/platform/sentinel"
)

const tokenHeader = "X-Provider-Token"

// Observer receives the duration and outcome of every dispatch attempt.
type Observer interface {
	ObserveDispatch(elapsed time.Duration, err error)
}

// Client delivers email via the provider. One Client is shared across requests.
type Client struct {
	httpClient *http.Client
	baseURL    string
	sender     models.SubscriberEmail
	token      secret.String
	observer   Observer
}

// Option configures a Client.
type Option func(*Client)

// WithObserver records dispatch latency.
func WithObserver(o Observer) Option {
	return func(c *Client) {
		c.observer = o
	}
}

// WithHTTPClient replaces the default client. Its Timeout is overwritten.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// NewClient builds a Client. Every request is bounded by timeout, covering
// connect, send and reading the response.
func NewClient(baseURL string, sender models.SubscriberEmail, token secret.String, timeout time.Duration, opts ...Option) *Client {
	c := &Client{
		httpClient: &http.Client{},
		baseURL:    strings.TrimRight(baseURL, "/"),
		sender:     sender,
		token:      token,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.httpClient.Timeout = timeout
	return c
}

type sendEmailRequest struct {
	From     string `json:"from"`
	To       string `json:"to"`
	Subject  string `json:"subject"`
	HTMLBody string `json:"html_body"`
	TextBody string `json:"text_body"`
}

// Send issues a single POST to {base_url}/email. Any transport failure,
// timeout or non-2xx response is returned as a *DispatchError. There are no
// retries.
func (c *Client) Send(ctx context.Context, recipient models.SubscriberEmail, subject, htmlBody, textBody string) (err error) {
	start := time.Now()
	defer func() {
		if c.observer != nil {
			c.observer.ObserveDispatch(time.Since(start), err)
		}
	}()

	payload, err := json.Marshal(sendEmailRequest{
		From:     c.sender.String(),
		To:       recipient.String(),
		Subject:  subject,
		HTMLBody: htmlBody,
		TextBody: textBody,
	})
	if err != nil {
		return &DispatchError{Err: fmt.Errorf("encode request: %w", err)}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/email", bytes.NewReader(payload))
	if err != nil {
		return &DispatchError{Err: fmt.Errorf("build request: %w", err)}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(tokenHeader, c.token.Expose())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &DispatchError{Err: errors.Join(sentinel.ErrUnavailable, err)}
	}
	defer resp.Body.Close()
	// drain so the connection can be reused
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &DispatchError{StatusCode: resp.StatusCode}
	}
	return nil
}
