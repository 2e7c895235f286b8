package patients

import (
	"errors"
	"fmt"
	"time"

	"github.com/wolfman30/carefront-intake/internal/report"
)

var (
	// ErrNotFound is returned for an unknown medical card id.
	ErrNotFound = errors.New("patients: patient not found")
	// ErrConflict is returned when a write lost an optimistic concurrency race.
	ErrConflict = errors.New("patients: concurrent update conflict")
	// ErrIllegalTransition is returned for appointment status changes out of a terminal state.
	ErrIllegalTransition = errors.New("patients: illegal appointment transition")

	ErrAppointmentNotFound = errors.New("patients: appointment not found")

	// ErrInvalidInput matches every *FieldError.
	ErrInvalidInput = errors.New("patients: invalid input")
)

// FieldError is a user-facing input rejection.
type FieldError struct {
	Field   string
	Message string
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (e *FieldError) Is(target error) bool { return target == ErrInvalidInput }

// NewPatientHistory is the digest a freshly registered patient starts with.
const NewPatientHistory = "No previous records in this system."

// VisitRecord pairs one generated report with the visit it came from.
type VisitRecord struct {
	ID     string                `json:"id"`
	Date   string                `json:"date"`
	At     time.Time             `json:"at"`
	Report report.ClinicalReport `json:"report"`
}

// AppointmentStatus is a one-way state machine: Pending resolves once.
type AppointmentStatus string

const (
	AppointmentPending   AppointmentStatus = "Pending"
	AppointmentConfirmed AppointmentStatus = "Confirmed"
	AppointmentCancelled AppointmentStatus = "Cancelled"
)

func (s AppointmentStatus) Terminal() bool {
	return s == AppointmentConfirmed || s == AppointmentCancelled
}

type Appointment struct {
	ID          string            `json:"id"`
	DoctorID    string            `json:"doctorId"`
	DoctorName  string            `json:"doctorName"`
	Date        string            `json:"date"`
	Time        string            `json:"time"`
	Status      AppointmentStatus `json:"status"`
	RequestedAt time.Time         `json:"requestedAt"`
	UpdatedAt   time.Time         `json:"updatedAt"`
}

// Patient is the aggregate owned by the record store.
type Patient struct {
	MedicalCardID  string        `json:"medicalCardId"`
	Name           string        `json:"name"`
	HistorySummary string        `json:"history"`
	Visits         []VisitRecord `json:"visits"`
	Appointments   []Appointment `json:"appointments"`
	// Version is the optimistic concurrency token; 0 means never stored.
	Version   int64     `json:"version"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Clone deep-copies the aggregate so stores never share mutable state with callers.
func (p *Patient) Clone() *Patient {
	if p == nil {
		return nil
	}
	out := *p
	out.Visits = make([]VisitRecord, len(p.Visits))
	for i, v := range p.Visits {
		v.Report = v.Report.Clone()
		out.Visits[i] = v
	}
	out.Appointments = make([]Appointment, len(p.Appointments))
	copy(out.Appointments, p.Appointments)
	return &out
}

// HasVisit reports whether a visit with the given id is already recorded.
func (p *Patient) HasVisit(id string) bool {
	for _, v := range p.Visits {
		if v.ID == id {
			return true
		}
	}
	return false
}
