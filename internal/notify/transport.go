package notify

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/wolfman30/carefront-intake/pkg/logging"
)

// DefaultSenderName is used when no display name is configured.
const DefaultSenderName = "CareFront Intake"

// Kind labels an alert for provider-side routing and filtering.
type Kind string

const (
	KindEmergency   Kind = "intake-emergency"
	KindAppointment Kind = "appointment-request"
)

// Alert is one plain-text message to the clinic inbox.
type Alert struct {
	To      string
	Subject string
	Text    string
	Kind    Kind
	Urgent  bool
}

func (a Alert) validate() error {
	if strings.TrimSpace(a.To) == "" {
		return errors.New("notify: alert has no recipient")
	}
	if strings.TrimSpace(a.Subject) == "" {
		return errors.New("notify: alert has no subject")
	}
	return nil
}

// Mailer delivers alerts.
type Mailer interface {
	Deliver(ctx context.Context, a Alert) error
}

// Sender is the From identity shared by every provider.
type Sender struct {
	Email string
	Name  string
}

func (s Sender) displayName() string {
	if n := strings.TrimSpace(s.Name); n != "" {
		return n
	}
	return DefaultSenderName
}

func (s Sender) address() string {
	return fmt.Sprintf("%s <%s>", s.displayName(), s.Email)
}

// LogMailer records that an alert would have been sent. Only identifiers
// reach the log.
type LogMailer struct {
	logger *logging.Logger
}

func NewLogMailer(logger *logging.Logger) *LogMailer {
	if logger == nil {
		logger = logging.Default()
	}
	return &LogMailer{logger: logger}
}

func (m *LogMailer) Deliver(_ context.Context, a Alert) error {
	if err := a.validate(); err != nil {
		return err
	}
	m.logger.Info("clinic alert not delivered: no mail provider", "kind", string(a.Kind), "urgent", a.Urgent)
	return nil
}
