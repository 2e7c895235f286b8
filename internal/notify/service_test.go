package notify

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"
)

type recordingMailer struct {
	mu   sync.Mutex
	msgs []Alert
	err  error
}

func (r *recordingMailer) Deliver(_ context.Context, a Alert) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.msgs = append(r.msgs, a)
	return r.err
}

func TestNotifyEmergency(t *testing.T) {
	sender := &recordingMailer{}
	svc := NewService(sender, "triage@clinic.example", nil)

	err := svc.NotifyEmergency(context.Background(), EmergencyNotice{
		SessionID:        "sess-1",
		VisitID:          "visit-1",
		MedicalCardID:    "123-456-789",
		UrgencyLevel:     "Emergency",
		RedFlagCount:     2,
		AssignedDoctorID: "d2",
		At:               time.Date(2025, 3, 4, 10, 0, 0, 0, time.UTC),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(sender.msgs) != 1 {
		t.Fatalf("expected 1 email, got %d", len(sender.msgs))
	}
	msg := sender.msgs[0]
	if msg.To != "triage@clinic.example" {
		t.Errorf("unexpected recipient %q", msg.To)
	}
	if msg.Subject != "[EMERGENCY] Intake report for 123-456-789" {
		t.Errorf("unexpected subject %q", msg.Subject)
	}
	if msg.Kind != KindEmergency || !msg.Urgent {
		t.Errorf("expected urgent emergency alert, got kind=%q urgent=%v", msg.Kind, msg.Urgent)
	}
	for _, want := range []string{"Red flags reported: 2", "Suggested doctor: d2", "visit-1"} {
		if !strings.Contains(msg.Text, want) {
			t.Errorf("body missing %q:\n%s", want, msg.Text)
		}
	}
}

func TestNotifyEmergencyAnonymousEscalated(t *testing.T) {
	sender := &recordingMailer{}
	svc := NewService(sender, "triage@clinic.example", nil)

	if err := svc.NotifyEmergency(context.Background(), EmergencyNotice{UrgencyLevel: "Urgent", Escalated: true}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(sender.msgs[0].Subject, "an anonymous patient") {
		t.Errorf("unexpected subject %q", sender.msgs[0].Subject)
	}
	if !strings.Contains(sender.msgs[0].Text, "raised automatically") {
		t.Errorf("expected escalation note in body")
	}
	if sender.msgs[0].Urgent {
		t.Errorf("only Emergency alerts are marked urgent")
	}
}

func TestNotifySkippedWithoutInbox(t *testing.T) {
	sender := &recordingMailer{}
	svc := NewService(sender, "  ", nil)

	_ = svc.NotifyEmergency(context.Background(), EmergencyNotice{UrgencyLevel: "Emergency"})
	_ = svc.NotifyAppointmentRequested(context.Background(), AppointmentNotice{AppointmentID: "a1"})
	if len(sender.msgs) != 0 {
		t.Fatalf("expected no emails, got %d", len(sender.msgs))
	}

	var nilSvc *Service
	if err := nilSvc.NotifyEmergency(context.Background(), EmergencyNotice{}); err != nil {
		t.Fatalf("nil service should be a no-op, got %v", err)
	}
}

func TestNotifyAppointmentRequested(t *testing.T) {
	sender := &recordingMailer{}
	svc := NewService(sender, "desk@clinic.example", nil)

	err := svc.NotifyAppointmentRequested(context.Background(), AppointmentNotice{
		AppointmentID: "a1",
		MedicalCardID: "123-456-789",
		DoctorName:    "Dr. Sarah Chen",
		Date:          "2025-03-10",
		Time:          "09:30",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := sender.msgs[0].Subject; got != "Appointment request: Dr. Sarah Chen on 2025-03-10 09:30" {
		t.Errorf("unexpected subject %q", got)
	}
	if sender.msgs[0].Kind != KindAppointment || sender.msgs[0].Urgent {
		t.Errorf("unexpected alert tagging: %+v", sender.msgs[0])
	}

	sender.err = errors.New("smtp down")
	if err := svc.NotifyAppointmentRequested(context.Background(), AppointmentNotice{AppointmentID: "a2"}); err == nil {
		t.Fatal("expected send error to surface")
	}
}
