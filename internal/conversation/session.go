package conversation

import (
	"time"
)

// SessionState is a conversation session's lifecycle position.
type SessionState string

const (
	StateUninitialized SessionState = "uninitialized"
	StateActive        SessionState = "active"
	StateCompleted     SessionState = "completed"
)

// Speaker identifies who produced a turn.
type Speaker string

const (
	SpeakerPatient   Speaker = "patient"
	SpeakerAssistant Speaker = "assistant"
	SpeakerSystem    Speaker = "system"
)

// ChatTurn is one immutable utterance. Patient text is stored sanitized.
type ChatTurn struct {
	Speaker Speaker      `json:"speaker"`
	Text    string       `json:"text"`
	Image   *InlineImage `json:"image,omitempty"`
	SentAt  time.Time    `json:"sentAt"`
}

// PatientContext is the known-patient snapshot a session is started with.
type PatientContext struct {
	MedicalCardID  string `json:"medicalCardId"`
	Name           string `json:"name"`
	HistorySummary string `json:"historySummary"`
}

// Session is the caller-owned handle for one intake dialogue.
type Session struct {
	ID        string          `json:"id"`
	State     SessionState    `json:"state"`
	Turns     []ChatTurn      `json:"turns"`
	Patient   *PatientContext `json:"patient,omitempty"`
	VisitID   string          `json:"visitId,omitempty"`
	CreatedAt time.Time       `json:"createdAt"`
	UpdatedAt time.Time       `json:"updatedAt"`
	// InjectionFlags counts admitted messages the prompt guard flagged.
	InjectionFlags int `json:"injectionFlags,omitempty"`
}

// NewSession returns an uninitialized session.
func NewSession(id string, patient *PatientContext, now time.Time) *Session {
	return &Session{
		ID:        id,
		State:     StateUninitialized,
		Patient:   patient,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// IsComplete reports whether the assistant has signalled the end of intake.
func (s *Session) IsComplete() bool {
	return s.State == StateCompleted
}

// ActorID is the audit actor for this session.
func (s *Session) ActorID() string {
	if s.Patient != nil && s.Patient.MedicalCardID != "" {
		return s.Patient.MedicalCardID
	}
	return "anonymous"
}

// PatientTurns counts turns authored by the patient.
func (s *Session) PatientTurns() int {
	n := 0
	for _, t := range s.Turns {
		if t.Speaker == SpeakerPatient {
			n++
		}
	}
	return n
}

// Transcript returns a copy of the turn history.
func (s *Session) Transcript() []ChatTurn {
	out := make([]ChatTurn, len(s.Turns))
	copy(out, s.Turns)
	return out
}

// Reopen returns a completed session to Active so the patient can keep
// talking after a failed extraction.
func (s *Session) Reopen(now time.Time) {
	if s.State == StateCompleted {
		s.State = StateActive
		s.UpdatedAt = now
	}
}

func (s *Session) append(now time.Time, turns ...ChatTurn) {
	s.Turns = append(s.Turns, turns...)
	s.UpdatedAt = now
}
