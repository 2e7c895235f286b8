package patients

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/wolfman30/carefront-intake/internal/doctors"
)

const (
	appointmentDateLayout = "2006-01-02"
	appointmentTimeLayout = "15:04"
)

// BookingRequest is a patient's request to see a doctor.
type BookingRequest struct {
	DoctorID string `json:"doctorId"`
	Date     string `json:"date"`
	Time     string `json:"time"`
}

func (r BookingRequest) Validate() error {
	if strings.TrimSpace(r.DoctorID) == "" {
		return &FieldError{Field: "doctorId", Message: "Doctor is required"}
	}
	if _, err := time.Parse(appointmentDateLayout, r.Date); err != nil {
		return &FieldError{Field: "date", Message: "Date must be YYYY-MM-DD"}
	}
	if _, err := time.Parse(appointmentTimeLayout, r.Time); err != nil {
		return &FieldError{Field: "time", Message: "Time must be HH:MM"}
	}
	return nil
}

// AddAppointment appends a Pending appointment with the doctor's name
// snapshotted at request time.
func AddAppointment(p *Patient, doctor doctors.Doctor, req BookingRequest, now time.Time) (Appointment, error) {
	if err := req.Validate(); err != nil {
		return Appointment{}, err
	}
	appt := Appointment{
		ID:          uuid.NewString(),
		DoctorID:    doctor.ID,
		DoctorName:  doctor.Name,
		Date:        req.Date,
		Time:        req.Time,
		Status:      AppointmentPending,
		RequestedAt: now,
		UpdatedAt:   now,
	}
	p.Appointments = append(p.Appointments, appt)
	p.UpdatedAt = now
	return appt, nil
}

// TransitionAppointment resolves a Pending appointment to Confirmed or
// Cancelled. Resolved appointments never change again.
func TransitionAppointment(p *Patient, appointmentID string, to AppointmentStatus, now time.Time) (Appointment, error) {
	if to != AppointmentConfirmed && to != AppointmentCancelled {
		return Appointment{}, fmt.Errorf("%w: target status %q", ErrIllegalTransition, to)
	}
	for i := range p.Appointments {
		appt := &p.Appointments[i]
		if appt.ID != appointmentID {
			continue
		}
		if appt.Status != AppointmentPending {
			return Appointment{}, fmt.Errorf("%w: %s -> %s", ErrIllegalTransition, appt.Status, to)
		}
		appt.Status = to
		appt.UpdatedAt = now
		p.UpdatedAt = now
		return *appt, nil
	}
	return Appointment{}, fmt.Errorf("%w: %s", ErrAppointmentNotFound, appointmentID)
}

// ParseAppointmentStatus accepts the three status names case-insensitively.
func ParseAppointmentStatus(raw string) (AppointmentStatus, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "pending":
		return AppointmentPending, nil
	case "confirmed":
		return AppointmentConfirmed, nil
	case "cancelled", "canceled":
		return AppointmentCancelled, nil
	}
	return "", &FieldError{Field: "status", Message: fmt.Sprintf("unknown status %q", raw)}
}

// AppointmentView flattens an appointment with its patient for the admin queue.
type AppointmentView struct {
	Appointment
	MedicalCardID string `json:"medicalCardId"`
	PatientName   string `json:"patientName"`
}

// ListAppointments collects appointments across patients, optionally
// filtered by status, oldest request first.
func ListAppointments(all []*Patient, status AppointmentStatus) []AppointmentView {
	var out []AppointmentView
	for _, p := range all {
		for _, appt := range p.Appointments {
			if status != "" && appt.Status != status {
				continue
			}
			out = append(out, AppointmentView{Appointment: appt, MedicalCardID: p.MedicalCardID, PatientName: p.Name})
		}
	}
	sortAppointments(out)
	return out
}

func sortAppointments(views []AppointmentView) {
	sort.SliceStable(views, func(i, j int) bool {
		if !views[i].RequestedAt.Equal(views[j].RequestedAt) {
			return views[i].RequestedAt.Before(views[j].RequestedAt)
		}
		return views[i].ID < views[j].ID
	})
}
