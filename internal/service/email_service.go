package service

import (
	"context"
	"fmt"
	"html"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sesv2/types"
	"go.uber.org/zap"
)

// Mailer sends the transactional emails of the sign-in and invitation flows
type Mailer interface {
	SendLoginLink(ctx context.Context, toEmail, link string, ttl time.Duration) error
	SendInvitation(ctx context.Context, toEmail, inviterName, link string, ttl time.Duration) error
}

// sesAPI is the part of the SES client used here
type sesAPI interface {
	SendEmail(ctx context.Context, params *sesv2.SendEmailInput, optFns ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error)
}

// EmailService handles sending emails via Amazon SES
type EmailService struct {
	client    sesAPI
	fromEmail string
	fromName  string
	enabled   bool
	logger    *zap.Logger
}

// NewEmailService creates a new email service. Without a sender address the
// service is created disabled and every send is skipped.
func NewEmailService(ctx context.Context, awsRegion, fromEmail, fromName string, logger *zap.Logger) (*EmailService, error) {
	if fromEmail == "" {
		logger.Info("email service disabled: SES_FROM_EMAIL not configured")
		return &EmailService{enabled: false, logger: logger}, nil
	}

	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(awsRegion))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	logger.Info("email service enabled", zap.String("from", fromEmail), zap.String("region", awsRegion))
	return newEmailService(sesv2.NewFromConfig(cfg), fromEmail, fromName, logger), nil
}

func newEmailService(client sesAPI, fromEmail, fromName string, logger *zap.Logger) *EmailService {
	return &EmailService{
		client:    client,
		fromEmail: fromEmail,
		fromName:  fromName,
		enabled:   true,
		logger:    logger,
	}
}

// IsEnabled returns whether the email service is enabled
func (s *EmailService) IsEnabled() bool {
	return s.enabled
}

// SendLoginLink emails a one-time sign-in link
func (s *EmailService) SendLoginLink(ctx context.Context, toEmail, link string, ttl time.Duration) error {
	if !s.enabled {
		s.logger.Info("skipping email send (service disabled)", zap.String("kind", "login_link"), zap.String("to", toEmail))
		return nil
	}

	subject := "Your sign-in link for Family Photos"
	htmlBody := fmt.Sprintf(`
<!DOCTYPE html>
<html>
<head>
	<meta charset="UTF-8">
	<style>
		body { font-family: Arial, sans-serif; line-height: 1.6; color: #333; }
		.container { max-width: 600px; margin: 0 auto; padding: 20px; }
		.content { background-color: #f9f9f9; padding: 30px; border-radius: 5px; }
		.button { display: inline-block; padding: 12px 30px; background-color: #d9775c; color: white; text-decoration: none; border-radius: 5px; margin: 20px 0; }
		.footer { text-align: center; margin-top: 20px; font-size: 12px; color: #666; }
	</style>
</head>
<body>
	<div class="container">
		<div class="content">
			<p>Hi,</p>
			<p>Use the button below to sign in to Family Photos.</p>
			<p style="text-align: center;">
				<a href="%s" class="button">Sign in</a>
			</p>
			<p>This link can be used once and expires in %s.</p>
			<p>If you didn't ask to sign in, you can safely ignore this email.</p>
		</div>
		<div class="footer">
			<p>This is an automated email from Family Photos. Please do not reply.</p>
		</div>
	</div>
</body>
</html>
`, html.EscapeString(link), humanDuration(ttl))

	textBody := fmt.Sprintf(`Hi,

Use this link to sign in to Family Photos:

%s

This link can be used once and expires in %s.

If you didn't ask to sign in, you can safely ignore this email.

---
This is an automated email from Family Photos. Please do not reply.
`, link, humanDuration(ttl))

	return s.sendEmail(ctx, toEmail, subject, htmlBody, textBody)
}

// SendInvitation emails an invitation that doubles as the first sign-in link
func (s *EmailService) SendInvitation(ctx context.Context, toEmail, inviterName, link string, ttl time.Duration) error {
	if !s.enabled {
		s.logger.Info("skipping email send (service disabled)", zap.String("kind", "invitation"), zap.String("to", toEmail))
		return nil
	}

	if inviterName == "" {
		inviterName = "A family member"
	}

	subject := fmt.Sprintf("%s invited you to Family Photos", inviterName)
	htmlBody := fmt.Sprintf(`
<!DOCTYPE html>
<html>
<head>
	<meta charset="UTF-8">
	<style>
		body { font-family: Arial, sans-serif; line-height: 1.6; color: #333; }
		.container { max-width: 600px; margin: 0 auto; padding: 20px; }
		.header { background-color: #d9775c; color: white; padding: 20px; text-align: center; border-radius: 5px 5px 0 0; }
		.content { background-color: #f9f9f9; padding: 30px; border-radius: 0 0 5px 5px; }
		.button { display: inline-block; padding: 12px 30px; background-color: #d9775c; color: white; text-decoration: none; border-radius: 5px; margin: 20px 0; }
		.footer { text-align: center; margin-top: 20px; font-size: 12px; color: #666; }
	</style>
</head>
<body>
	<div class="container">
		<div class="header">
			<h1>You're invited!</h1>
		</div>
		<div class="content">
			<p>%s invited you to share photos with the family.</p>
			<p style="text-align: center;">
				<a href="%s" class="button">Join the family</a>
			</p>
			<p>This link expires in %s. After that you can still sign in from the app with this email address.</p>
		</div>
		<div class="footer">
			<p>This is an automated email from Family Photos. Please do not reply.</p>
		</div>
	</div>
</body>
</html>
`, html.EscapeString(inviterName), html.EscapeString(link), humanDuration(ttl))

	textBody := fmt.Sprintf(`%s invited you to share photos with the family.

Join here: %s

This link expires in %s. After that you can still sign in from the app with this email address.

---
This is an automated email from Family Photos. Please do not reply.
`, inviterName, link, humanDuration(ttl))

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

	fields := []zap.Field{zap.String("to", toEmail), zap.String("subject", subject)}
	if result != nil && result.MessageId != nil {
		fields = append(fields, zap.String("message_id", *result.MessageId))
	}
	s.logger.Info("email sent", fields...)
	return nil
}

func humanDuration(d time.Duration) string {
	switch {
	case d >= 48*time.Hour:
		return fmt.Sprintf("%d days", int(d.Hours()/24))
	case d >= 2*time.Hour:
		return fmt.Sprintf("%d hours", int(d.Hours()))
	case d >= time.Hour:
		return "1 hour"
	case d >= 2*time.Minute:
		return fmt.Sprintf("%d minutes", int(d.Minutes()))
	default:
		return "a few minutes"
	}
}
