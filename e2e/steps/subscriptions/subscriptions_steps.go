package subscriptions

import (
	"context"
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/cucumber/godog"
)

// TestContext interface defines the methods needed from the main test context
type TestContext interface {
	POSTForm(path string, form url.Values) error
	GET(pathOrURL string) error
	LastStatus() int
	LastBody() []byte
	HasMailbox() bool
	LastEmailTo(recipient string) (htmlBody, textBody string, ok bool)
}

var linkPattern = regexp.MustCompile(`https?://[^\s"<>]+`)

// RegisterSteps registers subscription step definitions
func RegisterSteps(ctx *godog.ScenarioContext, tc TestContext) {
	steps := &subscriptionSteps{tc: tc}

	ctx.Step(`^I request "([^"]*)"$`, steps.request)
	ctx.Step(`^I subscribe with name "([^"]*)" and email "([^"]*)"$`, steps.subscribe)
	ctx.Step(`^I submit the subscription form "([^"]*)"$`, steps.submitRawForm)
	ctx.Step(`^a confirmation email should be sent to me$`, steps.confirmationEmailSent)
	ctx.Step(`^I follow the confirmation link$`, steps.followConfirmationLink)

	ctx.Step(`^the response status should be (\d+)$`, steps.responseStatusShouldBe)
	ctx.Step(`^the response body should be empty$`, steps.responseBodyShouldBeEmpty)
}

type subscriptionSteps struct {
	tc    TestContext
	email string
	link  string
}

// unique keeps addresses distinct across runs against a long-lived database.
func unique(s string) string {
	return strings.ReplaceAll(s, "{unique}", strconv.FormatInt(time.Now().UnixNano(), 36))
}

func (s *subscriptionSteps) request(ctx context.Context, path string) error {
	return s.tc.GET(path)
}

func (s *subscriptionSteps) subscribe(ctx context.Context, name, email string) error {
	s.email = unique(email)
	return s.tc.POSTForm("/subscribe", url.Values{"name": {name}, "email": {s.email}})
}

func (s *subscriptionSteps) submitRawForm(ctx context.Context, raw string) error {
	form, err := url.ParseQuery(unique(raw))
	if err != nil {
		return fmt.Errorf("parse form %q: %w", raw, err)
	}
	return s.tc.POSTForm("/subscribe", form)
}

func (s *subscriptionSteps) confirmationEmailSent(ctx context.Context) error {
	if !s.tc.HasMailbox() {
		return godog.ErrPending
	}
	var htmlBody, textBody string
	var ok bool
	// delivery is synchronous with the request, but allow for slow networks
	for range 20 {
		if htmlBody, textBody, ok = s.tc.LastEmailTo(s.email); ok {
			break
		}
		time.Sleep(100 * time.Millisecond)
	}
	if !ok {
		return fmt.Errorf("no email received for %s", s.email)
	}

	htmlLinks := linkPattern.FindAllString(htmlBody, -1)
	textLinks := linkPattern.FindAllString(textBody, -1)
	if len(htmlLinks) != 1 || len(textLinks) != 1 {
		return fmt.Errorf("expected one link per body, got %d html and %d text", len(htmlLinks), len(textLinks))
	}
	if htmlLinks[0] != textLinks[0] {
		return fmt.Errorf("html link %q differs from text link %q", htmlLinks[0], textLinks[0])
	}
	s.link = textLinks[0]
	return nil
}

func (s *subscriptionSteps) followConfirmationLink(ctx context.Context) error {
	if s.link == "" {
		return fmt.Errorf("no confirmation link captured")
	}
	return s.tc.GET(s.link)
}

func (s *subscriptionSteps) responseStatusShouldBe(ctx context.Context, status int) error {
	if got := s.tc.LastStatus(); got != status {
		return fmt.Errorf("expected status %d, got %d", status, got)
	}
	return nil
}

func (s *subscriptionSteps) responseBodyShouldBeEmpty(ctx context.Context) error {
	if body := s.tc.LastBody(); len(body) != 0 {
		return fmt.Errorf("expected empty body, got %q", body)
	}
	return nil
}
