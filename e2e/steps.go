// Package e2e runs Gherkin scenarios against a deployed newsletter service.
//
// E2E_BASE_URL points at the service. When E2E_MAIL_PROVIDER_ADDR is set the
// suite listens there as the mail provider, so scenarios can follow
// confirmation links; configure the service's email_client.base_url to match.
package e2e

import (
	"github.com/cucumber/godog"

	"newsletter/e2e/steps/subscriptions"
)

// RegisterSteps registers all step definitions from modular packages
func RegisterSteps(ctx *godog.ScenarioContext, tc *TestContext) {
	subscriptions.RegisterSteps(ctx, tc)
}
