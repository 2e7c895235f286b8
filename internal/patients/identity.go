package patients

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"
)

var (
	cardIDPattern = regexp.MustCompile(`^\d{3}-\d{3}-\d{3}$`)
	namePattern   = regexp.MustCompile(`^[a-zA-Z\s\-\.]+$`)
)

// ValidateCardID checks the NNN-NNN-NNN medical card format.
func ValidateCardID(id string) error {
	if !cardIDPattern.MatchString(id) {
		return &FieldError{Field: "medicalCardId", Message: "Invalid ID format. Required: 000-000-000"}
	}
	return nil
}

func ValidateName(name string) error {
	n := utf8.RuneCountInString(name)
	switch {
	case n < 2:
		return &FieldError{Field: "name", Message: "Name too short"}
	case n > 50:
		return &FieldError{Field: "name", Message: "Name too long"}
	case !namePattern.MatchString(name):
		return &FieldError{Field: "name", Message: "Name contains invalid characters (letters only)"}
	}
	return nil
}

// Identify looks a patient up by card id and registers a new one when the
// id is unknown. created reports whether a record was written.
func Identify(ctx context.Context, repo Repository, name, cardID string, now time.Time) (*Patient, bool, error) {
	name = strings.TrimSpace(name)
	cardID = strings.TrimSpace(cardID)
	if err := ValidateName(name); err != nil {
		return nil, false, err
	}
	if err := ValidateCardID(cardID); err != nil {
		return nil, false, err
	}

	existing, err := repo.Find(ctx, cardID)
	if err == nil {
		return existing, false, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, false, err
	}

	patient := &Patient{
		MedicalCardID:  cardID,
		Name:           name,
		HistorySummary: NewPatientHistory,
		Visits:         []VisitRecord{},
		Appointments:   []Appointment{},
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := repo.Upsert(ctx, patient); err != nil {
		if errors.Is(err, ErrConflict) {
			// Registered concurrently; use the winner.
			winner, findErr := repo.Find(ctx, cardID)
			return winner, false, findErr
		}
		return nil, false, err
	}
	return patient, true, nil
}
