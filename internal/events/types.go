// Package events publishes intake domain events to downstream consumers.
package events

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Event types double as routing keys on the topic exchange.
const (
	TypeVisitRecorded            = "intake.visit_recorded"
	TypeEmergencyReported        = "intake.emergency_reported"
	TypeAppointmentRequested     = "appointment.requested"
	TypeAppointmentStatusChanged = "appointment.status_changed"
)

// Envelope wraps every payload with an id and type so consumers can dedupe.
type Envelope struct {
	ID         string          `json:"id"`
	Type       string          `json:"type"`
	OccurredAt time.Time       `json:"occurred_at"`
	Payload    json.RawMessage `json:"payload"`
}

// NewEnvelope marshals payload into a fresh envelope.
func NewEnvelope(eventType string, payload any, at time.Time) (Envelope, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return Envelope{}, fmt.Errorf("events: marshal payload: %w", err)
	}
	return Envelope{
		ID:         uuid.NewString(),
		Type:       eventType,
		OccurredAt: at.UTC(),
		Payload:    data,
	}, nil
}

// VisitRecordedV1 carries identifiers and triage results, never transcript text.
type VisitRecordedV1 struct {
	VisitID          string   `json:"visit_id"`
	SessionID        string   `json:"session_id"`
	MedicalCardID    string   `json:"medical_card_id,omitempty"`
	UrgencyLevel     string   `json:"urgency_level"`
	RedFlagCount     int      `json:"red_flag_count"`
	AssignedDoctorID string   `json:"assigned_doctor_id,omitempty"`
	Escalated        bool     `json:"escalated"`
	Persisted        bool     `json:"persisted"`
	Warnings         []string `json:"warnings,omitempty"`
}

type AppointmentRequestedV1 struct {
	AppointmentID string `json:"appointment_id"`
	MedicalCardID string `json:"medical_card_id"`
	DoctorID      string `json:"doctor_id"`
	Date          string `json:"date"`
	Time          string `json:"time"`
}

type AppointmentStatusChangedV1 struct {
	AppointmentID string `json:"appointment_id"`
	MedicalCardID string `json:"medical_card_id"`
	Status        string `json:"status"`
	ChangedBy     string `json:"changed_by"`
}
