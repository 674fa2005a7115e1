package models_test

import (
	"encoding/base64"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/suite"

	"newsletter/internal/subscriptions/models"
)

type IdentitySuite struct {
	suite.Suite
}

func TestIdentitySuite(t *testing.T) {
	suite.Run(t, new(IdentitySuite))
}

func (s *IdentitySuite) TestSubscriberName() {
	s.Run("accepts a 256 grapheme name", func() {
		raw := strings.Repeat("ё", 256)
		name, err := models.ParseSubscriberName(raw)
		s.Require().NoError(err)
		s.Equal(raw, name.String())
	})

	s.Run("counts graphemes rather than bytes", func() {
		// each family emoji is several code points but one grapheme
		raw := strings.Repeat("👨‍👩‍👧", 256)
		_, err := models.ParseSubscriberName(raw)
		s.NoError(err)
	})

	s.Run("rejects names longer than 256 graphemes", func() {
		_, err := models.ParseSubscriberName(strings.Repeat("a", 257))
		s.assertValidation(err, "name")
	})

	s.Run("rejects whitespace-only names", func() {
		_, err := models.ParseSubscriberName(" \t\n ")
		s.assertValidation(err, "name")
	})

	s.Run("rejects empty names", func() {
		_, err := models.ParseSubscriberName("")
		s.assertValidation(err, "name")
	})

	s.Run("rejects each forbidden character", func() {
		for _, c := range []string{"/", "(", ")", `"`, "<", ">", `\`, "{", "}"} {
			_, err := models.ParseSubscriberName("ursula" + c)
			s.assertValidation(err, "name")
		}
	})

	s.Run("rejects names Postgres cannot store", func() {
		for _, raw := range []string{"\xff", "le\xffguin", "a\x00b"} {
			_, err := models.ParseSubscriberName(raw)
			s.assertValidation(err, "name")
		}
	})

	s.Run("keeps surrounding whitespace as given", func() {
		name, err := models.ParseSubscriberName("  le guin ")
		s.Require().NoError(err)
		s.Equal("  le guin ", name.String())
	})
}

func (s *IdentitySuite) TestSubscriberEmail() {
	s.Run("accepts valid addresses", func() {
		for _, raw := range []string{"a@b.com", "ursula_le_guin@gmail.com"} {
			email, err := models.ParseSubscriberEmail(raw)
			s.Require().NoError(err, raw)
			s.Equal(raw, email.String())
		}
	})

	s.Run("rejects empty string", func() {
		_, err := models.ParseSubscriberEmail("")
		s.assertValidation(err, "email")
	})

	s.Run("rejects missing at symbol", func() {
		_, err := models.ParseSubscriberEmail("ursuladomain.com")
		s.assertValidation(err, "email")
	})

	s.Run("rejects missing local part", func() {
		_, err := models.ParseSubscriberEmail("@domain.com")
		s.assertValidation(err, "email")
	})

	s.Run("rejects invalid UTF-8 and NUL bytes", func() {
		for _, raw := range []string{"urs\xffla@gmail.com", "ursula\x00@gmail.com"} {
			_, err := models.ParseSubscriberEmail(raw)
			s.assertValidation(err, "email")
		}
	})

	s.Run("log value hides the local part", func() {
		email, err := models.ParseSubscriberEmail("ursula_le_guin@gmail.com")
		s.Require().NoError(err)
		s.Equal("ur***@gmail.com", email.LogValue().String())
	})
}

func (s *IdentitySuite) TestNewSubscriberFromForm() {
	s.Run("builds a subscriber from valid input", func() {
		sub, err := models.NewSubscriberFromForm("le guin", "ursula_le_guin@gmail.com")
		s.Require().NoError(err)
		s.Equal("le guin", sub.Name.String())
		s.Equal("ursula_le_guin@gmail.com", sub.Email.String())
	})

	s.Run("reports name first when both are invalid", func() {
		_, err := models.NewSubscriberFromForm("", "")
		s.assertValidation(err, "name")
	})

	s.Run("rejects invalid email", func() {
		_, err := models.NewSubscriberFromForm("le guin", "definitely-not-an-email")
		s.assertValidation(err, "email")
	})
}

func (s *IdentitySuite) TestStatusTransitions() {
	s.True(models.StatusPendingConfirmation.CanTransitionTo(models.StatusConfirmed))
	s.True(models.StatusConfirmed.CanTransitionTo(models.StatusConfirmed))
	s.False(models.StatusConfirmed.CanTransitionTo(models.StatusPendingConfirmation))
	s.False(models.Status("deleted").CanTransitionTo(models.StatusConfirmed))
	s.False(models.Status("deleted").IsValid())
}

func (s *IdentitySuite) TestConfirmationToken() {
	s.Run("generated tokens are unique base64url strings", func() {
		a, err := models.GenerateConfirmationToken()
		s.Require().NoError(err)
		b, err := models.GenerateConfirmationToken()
		s.Require().NoError(err)
		s.NotEqual(a, b)

		decoded, err := base64.RawURLEncoding.DecodeString(a)
		s.Require().NoError(err)
		s.Len(decoded, 32)

		parsed, err := models.ParseConfirmationToken(a)
		s.Require().NoError(err)
		s.Equal(a, parsed)
	})

	s.Run("rejects empty token", func() {
		_, err := models.ParseConfirmationToken("")
		s.assertValidation(err, "subscription_token")
	})

	s.Run("rejects characters outside the base64url alphabet", func() {
		for _, raw := range []string{"abc+def", "abc/def", "abc=", "abc def", "abc%20"} {
			_, err := models.ParseConfirmationToken(raw)
			s.assertValidation(err, "subscription_token")
		}
	})

	s.Run("rejects overlong tokens", func() {
		_, err := models.ParseConfirmationToken(strings.Repeat("a", 257))
		s.assertValidation(err, "subscription_token")
	})
}

func (s *IdentitySuite) assertValidation(err error, field string) {
	s.T().Helper()
	s.Require().Error(err)
	var vErr *models.ValidationError
	s.Require().True(errors.As(err, &vErr), "expected ValidationError, got %T", err)
	s.Equal(field, vErr.Field)
}
