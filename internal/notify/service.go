package notify

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/wolfman30/carefront-intake/pkg/logging"
)

// EmergencyNotice describes a finalized report that needs immediate attention.
// It carries identifiers and triage results only.
type EmergencyNotice struct {
	SessionID        string
	VisitID          string
	MedicalCardID    string
	UrgencyLevel     string
	RedFlagCount     int
	AssignedDoctorID string
	Escalated        bool
	At               time.Time
}

// AppointmentNotice describes a newly requested appointment.
type AppointmentNotice struct {
	AppointmentID string
	MedicalCardID string
	DoctorName    string
	Date          string
	Time          string
}

// Service emails the clinic inbox about intake events.
type Service struct {
	mailer Mailer
	inbox  string
	logger *logging.Logger
}

// NewService returns a Service; with no inbox configured every notification is skipped.
func NewService(mailer Mailer, clinicInbox string, logger *logging.Logger) *Service {
	if logger == nil {
		logger = logging.Default()
	}
	return &Service{
		mailer: mailer,
		inbox:  strings.TrimSpace(clinicInbox),
		logger: logger.WithComponent("notify"),
	}
}

func (s *Service) enabled() bool {
	return s != nil && s.mailer != nil && s.inbox != ""
}

// NotifyEmergency alerts the clinic that a report was finalized at high urgency.
func (s *Service) NotifyEmergency(ctx context.Context, n EmergencyNotice) error {
	if !s.enabled() {
		return nil
	}
	patient := n.MedicalCardID
	if patient == "" {
		patient = "an anonymous patient"
	}
	subject := fmt.Sprintf("[%s] Intake report for %s", strings.ToUpper(n.UrgencyLevel), patient)

	var body strings.Builder
	fmt.Fprintf(&body, "An intake session was finalized with urgency %s.\n\n", n.UrgencyLevel)
	fmt.Fprintf(&body, "Patient: %s\n", patient)
	fmt.Fprintf(&body, "Visit: %s\n", n.VisitID)
	fmt.Fprintf(&body, "Red flags reported: %d\n", n.RedFlagCount)
	if n.AssignedDoctorID != "" {
		fmt.Fprintf(&body, "Suggested doctor: %s\n", n.AssignedDoctorID)
	}
	if n.Escalated {
		body.WriteString("Urgency was raised automatically because red flags were reported.\n")
	}
	if !n.At.IsZero() {
		fmt.Fprintf(&body, "Finalized at: %s\n", n.At.UTC().Format(time.RFC1123))
	}
	body.WriteString("\nOpen the CareFront dashboard to review the full report.\n")

	alert := Alert{
		To:      s.inbox,
		Subject: subject,
		Text:    body.String(),
		Kind:    KindEmergency,
		Urgent:  strings.EqualFold(n.UrgencyLevel, "Emergency"),
	}
	if err := s.mailer.Deliver(ctx, alert); err != nil {
		s.logger.Error("emergency notification failed", "session_id", n.SessionID, "error", err)
		return fmt.Errorf("notify: emergency: %w", err)
	}
	s.logger.Info("emergency notification sent", "session_id", n.SessionID, "urgency", n.UrgencyLevel)
	return nil
}

// NotifyAppointmentRequested tells the front desk a patient asked for a slot.
func (s *Service) NotifyAppointmentRequested(ctx context.Context, n AppointmentNotice) error {
	if !s.enabled() {
		return nil
	}
	subject := fmt.Sprintf("Appointment request: %s on %s %s", n.DoctorName, n.Date, n.Time)
	body := fmt.Sprintf("Patient %s requested an appointment with %s on %s at %s.\n\nAppointment ID: %s\nConfirm or cancel it from the admin queue.\n",
		n.MedicalCardID, n.DoctorName, n.Date, n.Time, n.AppointmentID)

	if err := s.mailer.Deliver(ctx, Alert{To: s.inbox, Subject: subject, Text: body, Kind: KindAppointment}); err != nil {
		s.logger.Error("appointment notification failed", "appointment_id", n.AppointmentID, "error", err)
		return fmt.Errorf("notify: appointment: %w", err)
	}
	return nil
}
