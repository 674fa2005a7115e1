package e2e

import (
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// TestContext carries HTTP state between the steps of one scenario.
type TestContext struct {
	BaseURL string
	Client  *http.Client
	Mailbox *Mailbox

	lastStatus int
	lastBody   []byte
}

func NewTestContext(baseURL string, mailbox *Mailbox) *TestContext {
	return &TestContext{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Client:  &http.Client{Timeout: 10 * time.Second},
		Mailbox: mailbox,
	}
}

// Reset clears the previous response before a new scenario.
func (tc *TestContext) Reset() {
	tc.lastStatus = 0
	tc.lastBody = nil
}

// POSTForm submits an urlencoded form to path.
func (tc *TestContext) POSTForm(path string, form url.Values) error {
	resp, err := tc.Client.PostForm(tc.BaseURL+path, form)
	if err != nil {
		return fmt.Errorf("POST %s: %w", path, err)
	}
	return tc.record(resp)
}

// GET requests path, or an absolute URL as found in an email.
func (tc *TestContext) GET(pathOrURL string) error {
	target := pathOrURL
	if strings.HasPrefix(pathOrURL, "/") {
		target = tc.BaseURL + pathOrURL
	}
	resp, err := tc.Client.Get(target)
	if err != nil {
		return fmt.Errorf("GET %s: %w", pathOrURL, err)
	}
	return tc.record(resp)
}

func (tc *TestContext) LastStatus() int {
	return tc.lastStatus
}

func (tc *TestContext) LastBody() []byte {
	return tc.lastBody
}

func (tc *TestContext) HasMailbox() bool {
	return tc.Mailbox != nil
}

// LastEmailTo returns the bodies of the newest message sent to recipient.
func (tc *TestContext) LastEmailTo(recipient string) (htmlBody, textBody string, ok bool) {
	if tc.Mailbox == nil {
		return "", "", false
	}
	e, ok := tc.Mailbox.LastTo(recipient)
	return e.HTMLBody, e.TextBody, ok
}

func (tc *TestContext) record(resp *http.Response) error {
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	tc.lastStatus = resp.StatusCode
	tc.lastBody = body
	return nil
}
