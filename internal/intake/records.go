package intake

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/wolfman30/carefront-intake/internal/compliance"
	"github.com/wolfman30/carefront-intake/internal/events"
	"github.com/wolfman30/carefront-intake/internal/notify"
	"github.com/wolfman30/carefront-intake/internal/patients"
)

// Identify logs a patient in by name and card id, registering unknown ids.
func (o *Orchestrator) Identify(ctx context.Context, name, medicalCardID string) (*patients.Patient, bool, error) {
	p, created, err := patients.Identify(ctx, o.patients, name, medicalCardID, o.now())
	if err != nil {
		return nil, false, asValidation(err)
	}
	if created {
		o.audit.Log(p.MedicalCardID, compliance.ActionRegister, "New patient registration", compliance.OutcomeSuccess)
	} else {
		o.audit.Log(p.MedicalCardID, compliance.ActionAccessRecord, "Patient record retrieved for ID: "+p.MedicalCardID, compliance.OutcomeSuccess)
	}
	return p, created, nil
}

// GetPatient returns a patient by card id.
func (o *Orchestrator) GetPatient(ctx context.Context, medicalCardID string) (*patients.Patient, error) {
	return o.lookupPatient(ctx, strings.TrimSpace(medicalCardID))
}

// RequestAppointment attaches a Pending appointment with the chosen doctor.
func (o *Orchestrator) RequestAppointment(ctx context.Context, medicalCardID string, req patients.BookingRequest) (patients.Appointment, error) {
	medicalCardID = strings.TrimSpace(medicalCardID)
	if err := patients.ValidateCardID(medicalCardID); err != nil {
		return patients.Appointment{}, asValidation(err)
	}
	if err := req.Validate(); err != nil {
		return patients.Appointment{}, asValidation(err)
	}
	doctor, err := o.roster.Get(req.DoctorID)
	if err != nil {
		return patients.Appointment{}, asValidation(err)
	}

	var appt patients.Appointment
	_, err = patients.Update(ctx, o.patients, medicalCardID, func(p *patients.Patient) (bool, error) {
		added, err := patients.AddAppointment(p, doctor, req, o.now())
		if err != nil {
			return false, err
		}
		appt = added
		return true, nil
	})
	if err != nil {
		o.audit.Log(medicalCardID, compliance.ActionAppointmentRequest, "Appointment request failed", compliance.OutcomeFailure)
		return patients.Appointment{}, asValidation(err)
	}

	o.audit.Log(medicalCardID, compliance.ActionAppointmentRequest,
		fmt.Sprintf("Requested %s on %s %s", doctor.Name, appt.Date, appt.Time), compliance.OutcomeSuccess)
	o.metrics.ObserveAppointment(string(patients.AppointmentPending))
	o.publish(ctx, events.TypeAppointmentRequested, events.AppointmentRequestedV1{
		AppointmentID: appt.ID,
		MedicalCardID: medicalCardID,
		DoctorID:      appt.DoctorID,
		Date:          appt.Date,
		Time:          appt.Time,
	})
	if o.notifier != nil {
		notice := notify.AppointmentNotice{
			AppointmentID: appt.ID,
			MedicalCardID: medicalCardID,
			DoctorName:    appt.DoctorName,
			Date:          appt.Date,
			Time:          appt.Time,
		}
		o.runBackground(ctx, "notify_appointment", func(ctx context.Context) error {
			return o.notifier.NotifyAppointmentRequested(ctx, notice)
		})
	}
	return appt, nil
}

// UpdateAppointmentStatus resolves a Pending appointment. actor is the
// administrator performing the change.
func (o *Orchestrator) UpdateAppointmentStatus(ctx context.Context, actor, medicalCardID, appointmentID string, status patients.AppointmentStatus) (patients.Appointment, error) {
	var appt patients.Appointment
	_, err := patients.Update(ctx, o.patients, medicalCardID, func(p *patients.Patient) (bool, error) {
		changed, err := patients.TransitionAppointment(p, appointmentID, status, o.now())
		if err != nil {
			return false, err
		}
		appt = changed
		return true, nil
	})
	if err != nil {
		o.audit.Log(actor, compliance.ActionAppointmentStatusChange,
			fmt.Sprintf("Rejected change of appointment %s to %s", appointmentID, status), compliance.OutcomeFailure)
		return patients.Appointment{}, asValidation(err)
	}

	o.audit.Log(actor, compliance.ActionAppointmentStatusChange,
		fmt.Sprintf("Appointment %s for %s set to %s", appt.ID, medicalCardID, appt.Status), compliance.OutcomeSuccess)
	o.metrics.ObserveAppointment(string(appt.Status))
	o.publish(ctx, events.TypeAppointmentStatusChanged, events.AppointmentStatusChangedV1{
		AppointmentID: appt.ID,
		MedicalCardID: medicalCardID,
		Status:        string(appt.Status),
		ChangedBy:     actor,
	})
	return appt, nil
}

// ListAppointments is the admin queue across every patient.
func (o *Orchestrator) ListAppointments(ctx context.Context, actor string, status patients.AppointmentStatus) ([]patients.AppointmentView, error) {
	all, err := o.patients.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("intake: list patients: %w", err)
	}
	o.audit.Log(actor, compliance.ActionBulkExport, "Accessed all patient records for appointment scan", compliance.OutcomeSuccess)
	return patients.ListAppointments(all, status), nil
}

// ExportPatients writes every patient, visit and appointment as a workbook.
func (o *Orchestrator) ExportPatients(ctx context.Context, actor string, w io.Writer) error {
	all, err := o.patients.ListAll(ctx)
	if err != nil {
		return fmt.Errorf("intake: list patients: %w", err)
	}
	if err := patients.ExportWorkbook(w, all); err != nil {
		o.audit.Log(actor, compliance.ActionBulkExport, "Patient export failed", compliance.OutcomeFailure)
		return err
	}
	o.audit.Log(actor, compliance.ActionBulkExport, fmt.Sprintf("Exported %d patient records", len(all)), compliance.OutcomeSuccess)
	return nil
}
