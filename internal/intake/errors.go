package intake

import (
	"errors"

	"github.com/wolfman30/carefront-intake/internal/config"
	"github.com/wolfman30/carefront-intake/internal/conversation"
	"github.com/wolfman30/carefront-intake/internal/doctors"
	"github.com/wolfman30/carefront-intake/internal/patients"
	"github.com/wolfman30/carefront-intake/internal/report"
)

// Error kinds surfaced by the orchestrator. Callers match with errors.Is.
var (
	ErrValidation          = conversation.ErrValidation
	ErrBackendUnavailable  = conversation.ErrBackendUnavailable
	ErrRateLimited         = conversation.ErrRateLimited
	ErrExtractionParse     = report.ErrExtractionParse
	ErrExtractionFailed    = report.ErrExtractionFailed
	ErrNotFound            = patients.ErrNotFound
	ErrAppointmentNotFound = patients.ErrAppointmentNotFound
	ErrSessionNotFound     = conversation.ErrSessionNotFound
	ErrConfiguration       = config.ErrConfiguration
	ErrIllegalTransition   = patients.ErrIllegalTransition
	ErrSessionState        = conversation.ErrSessionState
	ErrConflict            = patients.ErrConflict
)

// ValidationError carries the user-facing message for a rejected input.
type ValidationError = conversation.ValidationError

const provideInformationMessage = "Please provide some information first."

// asValidation folds record-level field errors into the intake validation
// kind so callers see a single taxonomy.
func asValidation(err error) error {
	var fe *patients.FieldError
	if errors.As(err, &fe) {
		return &ValidationError{Field: fe.Field, Message: fe.Message}
	}
	if errors.Is(err, doctors.ErrDoctorNotFound) {
		return &ValidationError{Field: "doctorId", Message: "Unknown doctor"}
	}
	return err
}

// UserMessage renders err as text that is safe to show a patient.
func UserMessage(err error) string {
	var ve *ValidationError
	var be *conversation.BackendError
	switch {
	case err == nil:
		return ""
	case errors.As(err, &ve):
		return ve.Message
	case errors.Is(err, ErrExtractionFailed):
		return report.FailureMessage
	case errors.As(err, &be):
		if be.Kind == conversation.BackendRateLimited {
			return report.QuotaFailureMessage
		}
		return be.UserMessage()
	case errors.Is(err, ErrSessionNotFound):
		return "Session expired. Please start a new intake."
	case errors.Is(err, ErrNotFound):
		return "Patient record not found."
	case errors.Is(err, ErrAppointmentNotFound):
		return "Appointment not found."
	case errors.Is(err, ErrIllegalTransition):
		return "Appointment has already been resolved."
	case errors.Is(err, ErrSessionState):
		return "This intake session cannot accept that request."
	}
	return "Something went wrong. Please try again."
}

// Retryable reports whether repeating the same request later may succeed.
func Retryable(err error) bool {
	var be *conversation.BackendError
	if errors.Is(err, ErrExtractionFailed) {
		return false
	}
	if errors.As(err, &be) {
		return be.Retryable()
	}
	return errors.Is(err, ErrConflict)
}
