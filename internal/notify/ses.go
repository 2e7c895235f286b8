package notify

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sesv2/types"
	"github.com/wolfman30/carefront-intake/pkg/logging"
)

type sesAPI interface {
	SendEmail(ctx context.Context, params *sesv2.SendEmailInput, optFns ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error)
}

// SESMailer delivers alerts through SES v2. Kind and urgency travel as
// message tags.
type SESMailer struct {
	client sesAPI
	from   Sender
	logger *logging.Logger
}

// NewSESMailer returns nil when client is nil.
func NewSESMailer(client *sesv2.Client, from Sender, logger *logging.Logger) *SESMailer {
	if client == nil {
		return nil
	}
	return newSESMailer(client, from, logger)
}

func newSESMailer(client sesAPI, from Sender, logger *logging.Logger) *SESMailer {
	if logger == nil {
		logger = logging.Default()
	}
	return &SESMailer{client: client, from: from, logger: logger}
}

func (m *SESMailer) Deliver(ctx context.Context, a Alert) error {
	if err := a.validate(); err != nil {
		return err
	}
	out, err := m.client.SendEmail(ctx, buildSESInput(m.from, a))
	if err != nil {
		m.logger.Error("ses delivery failed", "kind", string(a.Kind), "error", err)
		return fmt.Errorf("notify: ses: %w", err)
	}
	m.logger.Info("clinic alert sent", "provider", "ses", "kind", string(a.Kind), "message_id", aws.ToString(out.MessageId))
	return nil
}

func buildSESInput(from Sender, a Alert) *sesv2.SendEmailInput {
	in := &sesv2.SendEmailInput{
		FromEmailAddress: aws.String(from.address()),
		Destination:      &types.Destination{ToAddresses: []string{a.To}},
		Content: &types.EmailContent{
			Simple: &types.Message{
				Subject: sesText(a.Subject),
				Body:    &types.Body{Text: sesText(a.Text)},
			},
		},
	}
	if a.Kind != "" {
		in.EmailTags = append(in.EmailTags, types.MessageTag{Name: aws.String("kind"), Value: aws.String(string(a.Kind))})
	}
	if a.Urgent {
		in.EmailTags = append(in.EmailTags, types.MessageTag{Name: aws.String("priority"), Value: aws.String("high")})
	}
	return in
}

func sesText(s string) *types.Content {
	return &types.Content{Data: aws.String(s), Charset: aws.String("UTF-8")}
}
