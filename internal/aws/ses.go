package aws

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"
	"github.com/vendora/vendora-backend/internal/config"
)

type EmailService struct {
	client    *ses.Client
	fromEmail string
}

func NewEmailService(ctx context.Context, cfg config.AWSConfig) (*EmailService, error) {
	awsCfg, err := LoadAWSConfig(ctx, cfg)
	if err != nil {
		return nil, err
	}

	client := ses.NewFromConfig(awsCfg, func(o *ses.Options) {
		if cfg.EndpointURL != "" {
			o.BaseEndpoint = aws.String(cfg.EndpointURL)
		}
	})

	return &EmailService{
		client:    client,
		fromEmail: cfg.FromEmail,
	}, nil
}

// SendEmail sends an HTML message with a plain text alternative.
func (s *EmailService) SendEmail(ctx context.Context, to, subject, htmlBody, textBody string) error {
	body := &types.Body{
		Html: &types.Content{Data: aws.String(htmlBody), Charset: aws.String("UTF-8")},
	}
	if textBody != "" {
		body.Text = &types.Content{Data: aws.String(textBody), Charset: aws.String("UTF-8")}
	}

	_, err := s.client.SendEmail(ctx, &ses.SendEmailInput{
		Destination: &types.Destination{ToAddresses: []string{to}},
		Message: &types.Message{
			Body:    body,
			Subject: &types.Content{Data: aws.String(subject), Charset: aws.String("UTF-8")},
		},
		Source: aws.String(s.fromEmail),
	})
	if err != nil {
		return fmt.Errorf("failed to send email via SES: %w", err)
	}
	return nil
}

// VerifyEmailIdentity registers the sender address. localstack refuses to
// send from unverified identities.
func (s *EmailService) VerifyEmailIdentity(ctx context.Context) error {
	_, err := s.client.VerifyEmailIdentity(ctx, &ses.VerifyEmailIdentityInput{
		EmailAddress: aws.String(s.fromEmail),
	})
	if err != nil {
		return fmt.Errorf("failed to verify %s: %w", s.fromEmail, err)
	}
	return nil
}
