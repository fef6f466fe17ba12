package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/resend/resend-go/v2"
	"github.com/templui/formdesk/internal/model"
)

// EmailService notifies the operator about new submissions.
type EmailService struct {
	client      *resend.Client
	fromEmail   string
	notifyEmail string
	appName     string
	isDev       bool
}

func NewEmailService(apiKey, fromEmail, notifyEmail, appName string, isDev bool) *EmailService {
	var client *resend.Client
	if apiKey != "" && !isDev {
		client = resend.NewClient(apiKey)
	}

	return &EmailService{
		client:      client,
		fromEmail:   fromEmail,
		notifyEmail: notifyEmail,
		appName:     appName,
		isDev:       isDev,
	}
}

// Enabled reports whether a notification recipient is configured.
func (s *EmailService) Enabled() bool {
	return s.notifyEmail != ""
}

func (s *EmailService) SubmissionReceived(ctx context.Context, sub *model.Submission) error {
	if !s.Enabled() {
		return nil
	}

	subject, body := submissionReceivedEmailTemplate(sub, s.appName)

	if s.isDev {
		slog.Info("email sent (dev mode)", "type", "submission_received", "to", s.notifyEmail, "subject", subject, "id", sub.ID)
		return nil
	}

	if s.client == nil {
		return fmt.Errorf("email service not configured (missing RESEND_API_KEY)")
	}

	params := &resend.SendEmailRequest{
		From:    s.fromEmail,
		To:      []string{s.notifyEmail},
		Subject: subject,
		Text:    body,
	}

	_, err := s.client.Emails.SendWithContext(ctx, params)
	if err == nil {
		slog.Info("email sent", "type", "submission_received", "to", s.notifyEmail, "id", sub.ID)
	}
	return err
}
