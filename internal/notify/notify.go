// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

// Package notify sends an optional job-completion email once C8 reaches
// State.Complete or State.Failed (SPEC_FULL.md §11). It is additive: a job
// that never configures a provider runs exactly as before. Grounded on the
// teacher's own mail stack — its go.mod carries both
// github.com/aws/aws-sdk-go-v2/service/ses and github.com/sendgrid/sendgrid-go,
// and its integration-api config already has a SendgridApiKey field — so
// both are wired here as interchangeable Notifier implementations rather
// than inventing a third channel.
package notify

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	sestypes "github.com/aws/aws-sdk-go-v2/service/ses/types"
	"github.com/rapidaai/langtrack/pkg/commons"
	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
)

// Notification summarizes one finished job for the notifier.
type Notification struct {
	JobID    string
	Prefix   string
	Succeeded bool
	WAVPath  string
	SRTPath  string
	Warnings []string
	Err      error
}

// Notifier delivers a job-completion notification. Implementations must
// not block the job result on delivery failure; callers log and move on.
type Notifier interface {
	Notify(ctx context.Context, n Notification) error
}

// Noop is the default Notifier: it does nothing. Used when
// config.NotifyConfig.Provider is "none" or unset.
type Noop struct{}

func (Noop) Notify(context.Context, Notification) error { return nil }

// New resolves the configured Notifier, defaulting to Noop for an unknown
// or empty provider (spec.md §9 prefers fail-soft over fatal for
// optional/ambient concerns).
func New(logger commons.Logger, provider, sesRegion, sender, recipient, sendgridAPIKey string) (Notifier, error) {
	switch provider {
	case "", "none":
		return Noop{}, nil
	case "ses":
		return newSESNotifier(sesRegion, sender, recipient)
	case "sendgrid":
		return newSendgridNotifier(sendgridAPIKey, sender, recipient), nil
	default:
		logger.Warnf("notify: unknown provider %q, falling back to no-op", provider)
		return Noop{}, nil
	}
}

type sesNotifier struct {
	client    *ses.Client
	sender    string
	recipient string
}

func newSESNotifier(region, sender, recipient string) (Notifier, error) {
	cfg, err := awsconfig.LoadDefaultConfig(context.Background(), awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("loading aws config for ses: %w", err)
	}
	return &sesNotifier{client: ses.NewFromConfig(cfg), sender: sender, recipient: recipient}, nil
}

func (s *sesNotifier) Notify(ctx context.Context, n Notification) error {
	subject, body := renderMessage(n)
	_, err := s.client.SendEmail(ctx, &ses.SendEmailInput{
		Source: aws.String(s.sender),
		Destination: &sestypes.Destination{
			ToAddresses: []string{s.recipient},
		},
		Message: &sestypes.Message{
			Subject: &sestypes.Content{Data: aws.String(subject)},
			Body: &sestypes.Body{
				Text: &sestypes.Content{Data: aws.String(body)},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("ses send: %w", err)
	}
	return nil
}

type sendgridNotifier struct {
	client    *sendgrid.Client
	sender    string
	recipient string
}

func newSendgridNotifier(apiKey, sender, recipient string) Notifier {
	return &sendgridNotifier{
		client:    sendgrid.NewSendClient(apiKey),
		sender:    sender,
		recipient: recipient,
	}
}

func (s *sendgridNotifier) Notify(ctx context.Context, n Notification) error {
	subject, body := renderMessage(n)
	from := mail.NewEmail("langtrack", s.sender)
	to := mail.NewEmail("", s.recipient)
	msg := mail.NewSingleEmail(from, subject, to, body, "")
	resp, err := s.client.SendWithContext(ctx, msg)
	if err != nil {
		return fmt.Errorf("sendgrid send: %w", err)
	}
	if resp.StatusCode >= 300 {
		return fmt.Errorf("sendgrid send: unexpected status %d: %s", resp.StatusCode, resp.Body)
	}
	return nil
}

func renderMessage(n Notification) (subject, body string) {
	if n.Succeeded {
		subject = fmt.Sprintf("langtrack job %s complete", n.Prefix)
		body = fmt.Sprintf("job %s finished\nwav: %s\nsrt: %s\nwarnings: %d", n.JobID, n.WAVPath, n.SRTPath, len(n.Warnings))
		return subject, body
	}
	subject = fmt.Sprintf("langtrack job %s failed", n.Prefix)
	body = fmt.Sprintf("job %s failed: %v", n.JobID, n.Err)
	return subject, body
}
