package notify

import (
	"context"
	"errors"
	"testing"

	"github.com/sendgrid/sendgrid-go/helpers/mail"
)

func TestNewSendGridMailerNilWithoutAPIKey(t *testing.T) {
	if m := NewSendGridMailer("  ", Sender{Email: "intake@clinic.example"}, nil); m != nil {
		t.Fatal("expected nil mailer when API key is empty")
	}
}

func TestBuildSendGridMail(t *testing.T) {
	m := buildSendGridMail(Sender{Email: "intake@clinic.example"}, Alert{
		To:      "triage@clinic.example",
		Subject: "[EMERGENCY] Intake report",
		Text:    "body",
		Kind:    KindEmergency,
		Urgent:  true,
	})

	if m.From.Name != DefaultSenderName || m.From.Address != "intake@clinic.example" {
		t.Errorf("unexpected from %+v", m.From)
	}
	if len(m.Personalizations) != 1 || len(m.Personalizations[0].To) != 1 || m.Personalizations[0].To[0].Address != "triage@clinic.example" {
		t.Fatalf("unexpected personalizations %+v", m.Personalizations)
	}
	if len(m.Content) != 1 || m.Content[0].Type != "text/plain" || m.Content[0].Value != "body" {
		t.Errorf("unexpected content %+v", m.Content)
	}
	if len(m.Categories) != 1 || m.Categories[0] != string(KindEmergency) {
		t.Errorf("unexpected categories %v", m.Categories)
	}
	if m.Headers["X-Priority"] != "1" {
		t.Errorf("urgent alert should carry X-Priority, got %v", m.Headers)
	}

	plain := buildSendGridMail(Sender{Email: "intake@clinic.example", Name: "Front Desk"}, Alert{To: "desk@clinic.example", Subject: "s", Kind: KindAppointment})
	if plain.From.Name != "Front Desk" {
		t.Errorf("unexpected from name %q", plain.From.Name)
	}
	if _, ok := plain.Headers["X-Priority"]; ok {
		t.Error("non-urgent alert should not set priority")
	}
}

func TestSendGridMailerDeliver(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		err     error
		alert   Alert
		wantErr bool
		calls   int
	}{
		{name: "accepted", status: 202, alert: Alert{To: "a@clinic.example", Subject: "s"}, calls: 1},
		{name: "rejected", status: 400, alert: Alert{To: "a@clinic.example", Subject: "s"}, wantErr: true, calls: 1},
		{name: "transport", err: errors.New("dial tcp: timeout"), alert: Alert{To: "a@clinic.example", Subject: "s"}, wantErr: true, calls: 1},
		{name: "no recipient", alert: Alert{Subject: "s"}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			calls := 0
			m := newSendGridMailer(func(_ context.Context, _ *mail.SGMailV3) (int, error) {
				calls++
				return tt.status, tt.err
			}, Sender{Email: "intake@clinic.example"}, nil)

			err := m.Deliver(context.Background(), tt.alert)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Deliver() error = %v, wantErr %v", err, tt.wantErr)
			}
			if calls != tt.calls {
				t.Errorf("expected %d sends, got %d", tt.calls, calls)
			}
		})
	}
}

func TestLogMailerDeliver(t *testing.T) {
	m := NewLogMailer(nil)
	if err := m.Deliver(context.Background(), Alert{To: "desk@clinic.example", Subject: "Test"}); err != nil {
		t.Errorf("log mailer should not fail, got %v", err)
	}
	if err := m.Deliver(context.Background(), Alert{To: "desk@clinic.example"}); err == nil {
		t.Error("expected error for alert without subject")
	}
}
