package service

import (
	"context"
	"fmt"
	"html"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sesv2/types"
	"github.com/sirupsen/logrus"
)

const appName = "Arabic Vocab"

// sesAPI is the part of the SES client the service uses
type sesAPI interface {
	SendEmail(ctx context.Context, params *sesv2.SendEmailInput, optFns ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error)
}

// EmailService handles sending emails via Amazon SES
type EmailService struct {
	client     sesAPI
	fromEmail  string
	fromName   string
	appBaseURL string
	enabled    bool
	logger     *logrus.Entry
}

// NewEmailService creates a new email service. An empty fromEmail yields a
// disabled service that logs and skips every send.
func NewEmailService(ctx context.Context, awsRegion, fromEmail, fromName, appBaseURL string, logger *logrus.Logger) (*EmailService, error) {
	entry := logger.WithField("service", "email")

	if fromEmail == "" {
		entry.Info("Email service disabled: SES_FROM_EMAIL not configured")
		return &EmailService{logger: entry}, nil
	}

	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(awsRegion))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	entry.WithFields(logrus.Fields{"from": fromEmail, "region": awsRegion}).Info("Email service enabled")
	return newEmailService(sesv2.NewFromConfig(cfg), fromEmail, fromName, appBaseURL, entry), nil
}

func newEmailService(client sesAPI, fromEmail, fromName, appBaseURL string, logger *logrus.Entry) *EmailService {
	return &EmailService{
		client:     client,
		fromEmail:  fromEmail,
		fromName:   fromName,
		appBaseURL: appBaseURL,
		enabled:    true,
		logger:     logger,
	}
}

// IsEnabled returns whether the email service is enabled
func (s *EmailService) IsEnabled() bool {
	return s.enabled
}

// SendWelcomeEmail sends a welcome email to new users
func (s *EmailService) SendWelcomeEmail(ctx context.Context, toEmail string) error {
	if !s.enabled {
		s.logger.WithField("to", toEmail).Debug("Skipping welcome email (service disabled)")
		return nil
	}

	subject := fmt.Sprintf("Welcome to %s!", appName)
	htmlBody := fmt.Sprintf(`<!DOCTYPE html>
<html>
<body style="font-family: Arial, sans-serif; color: #333; max-width: 560px; margin: 0 auto;">
	<h2 style="color: #2e7d5b;">Welcome to %[1]s!</h2>
	<p>Hi %[2]s,</p>
	<p>Your account is ready. Each quiz shows an Arabic word and four English meanings; pick the right one and the word comes round less often, miss it and you will see it again soon.</p>
	<p>Open the Progress view any time to see which words are strong and which still need work.</p>
	<p><a href="%[3]s" style="color: #2e7d5b; font-weight: bold;">Start practising</a></p>
	<p style="font-size: 12px; color: #666;">Sent automatically by %[1]s.</p>
</body>
</html>
`, appName, html.EscapeString(toEmail), html.EscapeString(s.appBaseURL))

	textBody := fmt.Sprintf(`Hi %[2]s,

Your account is ready. Each quiz shows an Arabic word and four English meanings; pick the right one and the word comes round less often, miss it and you will see it again soon.

Open the Progress view any time to see which words are strong and which still need work.

Start practising: %[3]s

--
Sent automatically by %[1]s.
`, appName, toEmail, s.appBaseURL)

	return s.sendEmail(ctx, toEmail, subject, htmlBody, textBody)
}

// sendEmail sends an email using Amazon SES
func (s *EmailService) sendEmail(ctx context.Context, toEmail, subject, htmlBody, textBody string) error {
	fromAddress := s.fromEmail
	if s.fromName != "" {
		fromAddress = fmt.Sprintf("%s <%s>", s.fromName, s.fromEmail)
	}

	input := &sesv2.SendEmailInput{
		FromEmailAddress: aws.String(fromAddress),
		Destination: &types.Destination{
			ToAddresses: []string{toEmail},
		},
		Content: &types.EmailContent{
			Simple: &types.Message{
				Subject: &types.Content{
					Data:    aws.String(subject),
					Charset: aws.String("UTF-8"),
				},
				Body: &types.Body{
					Html: &types.Content{
						Data:    aws.String(htmlBody),
						Charset: aws.String("UTF-8"),
					},
					Text: &types.Content{
						Data:    aws.String(textBody),
						Charset: aws.String("UTF-8"),
					},
				},
			},
		},
	}

	result, err := s.client.SendEmail(ctx, input)
	if err != nil {
		return fmt.Errorf("failed to send email to %s: %w", toEmail, err)
	}

	fields := logrus.Fields{"to": toEmail, "subject": subject}
	if result != nil && result.MessageId != nil {
		fields["message_id"] = *result.MessageId
	}
	s.logger.WithFields(fields).Info("Email sent successfully")
	return nil
}
