package service

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"

	"newsletter/internal/platform/metrics"
	"newsletter/internal/subscriptions/models"
	dErrors "newsletter/pkg/domain-errors"
	"newsletter/pkg/platform/audit"
	"newsletter/pkg/requestcontext"
)

// Confirm marks the subscriber owning rawToken as confirmed. Confirming an
// already confirmed subscriber succeeds.
func (s *Service) Confirm(ctx context.Context, rawToken string) (err error) {
	ctx, span := s.tracer.Start(ctx, "subscriptions.Confirm")
	defer func() { endSpan(span, err) }()

	token, err := models.ParseConfirmationToken(rawToken)
	if err != nil {
		s.metrics.IncrementFailure(metrics.StageValidation)
		return dErrors.Wrap(err, dErrors.CodeValidation, "invalid confirmation token")
	}

	subscriberID, found, err := s.store.FindSubscriberIDByToken(ctx, token)
	if err != nil {
		s.metrics.IncrementFailure(metrics.StageLookup)
		s.logger.ErrorContext(ctx, "failed to look up confirmation token",
			"request_id", requestcontext.RequestID(ctx),
			"error", err)
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to look up confirmation token")
	}
	if !found {
		// unknown tokens are logged and counted, never written to the outbox
		s.metrics.IncrementFailure(metrics.StageLookup)
		s.logger.WarnContext(ctx, "unknown confirmation token",
			"request_id", requestcontext.RequestID(ctx))
		return dErrors.New(dErrors.CodeUnauthorized, "unknown confirmation token")
	}
	span.SetAttributes(attribute.String("subscriber.id", subscriberID.String()))

	err = s.tx.RunInTx(ctx, func(ctx context.Context) error {
		if confirmErr := s.store.MarkConfirmed(ctx, subscriberID); confirmErr != nil {
			return fmt.Errorf("mark confirmed: %w", confirmErr)
		}
		auditErr := s.appendAudit(ctx, audit.Event{
			Category:     audit.EventSubscriptionConfirmed.Category(),
			Timestamp:    requestcontext.Now(ctx),
			SubscriberID: subscriberID,
			Action:       string(audit.EventSubscriptionConfirmed),
			RequestID:    requestcontext.RequestID(ctx),
		})
		if auditErr != nil {
			return fmt.Errorf("append audit event: %w", auditErr)
		}
		return nil
	})
	if err != nil {
		s.metrics.IncrementFailure(metrics.StageConfirm)
		s.logger.ErrorContext(ctx, "failed to confirm subscriber",
			"request_id", requestcontext.RequestID(ctx),
			"subscriber_id", subscriberID,
			"error", err)
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to confirm subscriber")
	}

	s.metrics.IncrementConfirmed()
	s.logger.InfoContext(ctx, "subscription confirmed",
		"request_id", requestcontext.RequestID(ctx),
		"subscriber_id", subscriberID)
	return nil
}
