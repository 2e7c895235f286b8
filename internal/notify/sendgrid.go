package notify

import (
	"context"
	"fmt"
	"strings"

	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
	"github.com/wolfman30/carefront-intake/pkg/logging"
)

// sendFunc posts a v3 mail and reports the HTTP status.
type sendFunc func(ctx context.Context, m *mail.SGMailV3) (int, error)

// SendGridMailer delivers alerts through the SendGrid v3 API.
type SendGridMailer struct {
	send   sendFunc
	from   Sender
	logger *logging.Logger
}

// NewSendGridMailer returns nil when apiKey is empty.
func NewSendGridMailer(apiKey string, from Sender, logger *logging.Logger) *SendGridMailer {
	if strings.TrimSpace(apiKey) == "" {
		return nil
	}
	client := sendgrid.NewSendClient(apiKey)
	return newSendGridMailer(func(ctx context.Context, m *mail.SGMailV3) (int, error) {
		resp, err := client.SendWithContext(ctx, m)
		if err != nil {
			return 0, err
		}
		return resp.StatusCode, nil
	}, from, logger)
}

func newSendGridMailer(send sendFunc, from Sender, logger *logging.Logger) *SendGridMailer {
	if logger == nil {
		logger = logging.Default()
	}
	return &SendGridMailer{send: send, from: from, logger: logger}
}

func (m *SendGridMailer) Deliver(ctx context.Context, a Alert) error {
	if err := a.validate(); err != nil {
		return err
	}
	status, err := m.send(ctx, buildSendGridMail(m.from, a))
	if err != nil {
		m.logger.Error("sendgrid delivery failed", "kind", string(a.Kind), "error", err)
		return fmt.Errorf("notify: sendgrid: %w", err)
	}
	if status/100 != 2 {
		m.logger.Error("sendgrid rejected alert", "kind", string(a.Kind), "status", status)
		return fmt.Errorf("notify: sendgrid returned status %d", status)
	}
	m.logger.Info("clinic alert sent", "provider", "sendgrid", "kind", string(a.Kind), "status", status)
	return nil
}

// buildSendGridMail tags the alert with its kind as a category and marks
// urgent alerts high priority.
func buildSendGridMail(from Sender, a Alert) *mail.SGMailV3 {
	m := mail.NewV3Mail()
	m.SetFrom(mail.NewEmail(from.displayName(), from.Email))
	m.Subject = a.Subject

	p := mail.NewPersonalization()
	p.AddTos(mail.NewEmail("", a.To))
	m.AddPersonalizations(p)
	m.AddContent(mail.NewContent("text/plain", a.Text))

	if a.Kind != "" {
		m.AddCategories(string(a.Kind))
	}
	if a.Urgent {
		m.SetHeader("X-Priority", "1")
		m.SetHeader("Importance", "high")
	}
	return m
}
