package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/resend/resend-go/v2"
)

// EmailService delivers transactional auth emails via Resend. In development
// (or when no API key is configured) it logs the link instead of sending and
// reports sent=false, which lets callers surface the link as a dev
// convenience.
type EmailService struct {
	client    *resend.Client
	fromEmail string
	appName   string
	isDev     bool
}

func NewEmailService(apiKey, fromEmail, appName string, isDev bool) *EmailService {
	var client *resend.Client
	if apiKey != "" && !isDev {
		client = resend.NewClient(apiKey)
	}

	return &EmailService{
		client:    client,
		fromEmail: fromEmail,
		appName:   appName,
		isDev:     isDev,
	}
}

// SendMagicLink emails a sign-in link. The bool reports transport-level
// success, not delivery.
func (s *EmailService) SendMagicLink(email, url string) (bool, error) {
	subject, body := magicLinkEmailTemplate(url, s.appName)
	return s.send("magic_link", email, subject, body, url)
}

func (s *EmailService) SendPasswordReset(email, url string) (bool, error) {
	subject, body := passwordResetEmailTemplate(url, s.appName)
	return s.send("password_reset", email, subject, body, url)
}

func (s *EmailService) SendVerification(email, url, name string) (bool, error) {
	subject, body := verificationEmailTemplate(url, name, s.appName)
	return s.send("email_verify", email, subject, body, url)
}

func (s *EmailService) send(kind, email, subject, body, url string) (bool, error) {
	if s.client == nil {
		if s.isDev {
			slog.Info("email logged (dev mode)", "type", kind, "to", email, "subject", subject, "url", url)
			return false, nil
		}
		return false, fmt.Errorf("email service not configured (missing RESEND_API_KEY)")
	}

	params := &resend.SendEmailRequest{
		From:    s.fromEmail,
		To:      []string{email},
		Subject: subject,
		Text:    body,
	}

	_, err := s.client.Emails.SendWithContext(context.Background(), params)
	if err != nil {
		return false, err
	}

	slog.Info("email sent", "type", kind, "to", email)
	return true, nil
}
