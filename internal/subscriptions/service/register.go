package service

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"go.opentelemetry.io/otel/attribute"

	"newsletter/internal/platform/metrics"
	"newsletter/internal/subscriptions/models"
	id "newsletter/pkg/domain"
	dErrors "newsletter/pkg/domain-errors"
	"newsletter/pkg/platform/audit"
	"newsletter/pkg/platform/secret"
	"newsletter/pkg/requestcontext"
)

const confirmationSubject = "Welcome!"

// Register validates the form input, stores a pending subscriber with a fresh
// confirmation token and emails the confirmation link.
//
// The subscriber, token and audit event are written in one transaction. A
// dispatch failure after commit leaves the subscriber pending with a usable
// token.
func (s *Service) Register(ctx context.Context, rawName, rawEmail string) (err error) {
	ctx, span := s.tracer.Start(ctx, "subscriptions.Register")
	defer func() { endSpan(span, err) }()

	sub, err := models.NewSubscriberFromForm(rawName, rawEmail)
	if err != nil {
		s.metrics.IncrementFailure(metrics.StageValidation)
		s.logger.InfoContext(ctx, "rejected subscription form",
			"request_id", requestcontext.RequestID(ctx),
			"error", err)
		return dErrors.Wrap(err, dErrors.CodeValidation, "invalid subscription form")
	}

	var (
		subscriberID id.SubscriberID
		token        string
	)
	err = s.tx.RunInTx(ctx, func(ctx context.Context) error {
		now := requestcontext.Now(ctx)
		newID, insertErr := s.store.InsertPending(ctx, sub, now)
		if insertErr != nil {
			return fmt.Errorf("insert subscriber: %w", insertErr)
		}
		generated, genErr := models.GenerateConfirmationToken()
		if genErr != nil {
			return fmt.Errorf("generate token: %w", genErr)
		}
		if tokenErr := s.store.InsertToken(ctx, newID, generated); tokenErr != nil {
			return fmt.Errorf("insert token: %w", tokenErr)
		}
		auditErr := s.appendAudit(ctx, audit.Event{
			Category:     audit.EventSubscriberRegistered.Category(),
			Timestamp:    now,
			SubscriberID: newID,
			Action:       string(audit.EventSubscriberRegistered),
			Email:        secret.RedactEmail(sub.Email.String()),
			RequestID:    requestcontext.RequestID(ctx),
		})
		if auditErr != nil {
			return fmt.Errorf("append audit event: %w", auditErr)
		}
		subscriberID, token = newID, generated
		return nil
	})
	if err != nil {
		s.metrics.IncrementFailure(metrics.StagePersist)
		s.logger.ErrorContext(ctx, "failed to store new subscriber",
			"request_id", requestcontext.RequestID(ctx),
			"email", sub.Email,
			"error", err)
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to store new subscriber")
	}
	span.SetAttributes(attribute.String("subscriber.id", subscriberID.String()))

	if err = s.sendConfirmation(ctx, sub.Email, token); err != nil {
		s.metrics.IncrementFailure(metrics.StageDispatch)
		s.logger.ErrorContext(ctx, "failed to send confirmation email",
			"request_id", requestcontext.RequestID(ctx),
			"subscriber_id", subscriberID,
			"email", sub.Email,
			"error", err)
		s.recordDispatchFailure(ctx, subscriberID, sub.Email, err)
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to send confirmation email")
	}

	s.metrics.IncrementRegistered()
	s.logger.InfoContext(ctx, "subscriber registered",
		"request_id", requestcontext.RequestID(ctx),
		"subscriber_id", subscriberID,
		"email", sub.Email)
	return nil
}

func (s *Service) sendConfirmation(ctx context.Context, recipient models.SubscriberEmail, token string) error {
	link := s.confirmationLink(token)
	htmlBody := fmt.Sprintf(
		"Welcome to our newsletter!<br />Click <a href=\"%s\">here</a> to confirm your subscription.", link)
	textBody := fmt.Sprintf(
		"Welcome to our newsletter!\nVisit %s to confirm your subscription.", link)
	return s.dispatcher.Send(ctx, recipient, confirmationSubject, htmlBody, textBody)
}

func (s *Service) confirmationLink(token string) string {
	return strings.TrimRight(s.baseURL, "/") +
		"/subscriptions/confirm?subscription_token=" + url.QueryEscape(token)
}

// recordDispatchFailure is best effort; the caller already fails the request.
func (s *Service) recordDispatchFailure(ctx context.Context, subscriberID id.SubscriberID, email models.SubscriberEmail, cause error) {
	err := s.appendAudit(ctx, audit.Event{
		Category:     audit.EventConfirmationEmailFailed.Category(),
		Timestamp:    requestcontext.Now(ctx),
		SubscriberID: subscriberID,
		Action:       string(audit.EventConfirmationEmailFailed),
		Reason:       cause.Error(),
		Email:        secret.RedactEmail(email.String()),
		RequestID:    requestcontext.RequestID(ctx),
	})
	if err != nil {
		s.logger.WarnContext(ctx, "failed to record dispatch failure",
			"request_id", requestcontext.RequestID(ctx),
			"subscriber_id", subscriberID,
			"error", err)
	}
}
