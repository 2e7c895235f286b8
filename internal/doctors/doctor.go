package doctors

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrDoctorNotFound = errors.New("doctors: doctor not found")
	ErrDuplicateID    = errors.New("doctors: doctor id already exists")
	ErrInvalidDoctor  = errors.New("doctors: invalid doctor")
)

// Status is a doctor's current availability.
type Status string

const (
	StatusAvailable Status = "Available"
	StatusInSurgery Status = "In Surgery"
	StatusOnCall    Status = "On Call"
)

// ParseStatus accepts the display strings and their unspaced forms.
func ParseStatus(raw string) (Status, error) {
	switch strings.ToLower(strings.ReplaceAll(strings.TrimSpace(raw), " ", "")) {
	case "available":
		return StatusAvailable, nil
	case "insurgery":
		return StatusInSurgery, nil
	case "oncall":
		return StatusOnCall, nil
	}
	return "", fmt.Errorf("%w: unknown status %q", ErrInvalidDoctor, raw)
}

// Doctor is one roster entry used as matching input for report extraction.
type Doctor struct {
	ID         string `json:"id" yaml:"id"`
	Name       string `json:"name" yaml:"name"`
	Specialty  string `json:"specialty" yaml:"specialty"`
	Experience string `json:"experience" yaml:"experience"`
	Status     Status `json:"status" yaml:"status"`
}

// Validate checks the fields an administrator must supply.
func (d Doctor) Validate() error {
	if strings.TrimSpace(d.Name) == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidDoctor)
	}
	if strings.TrimSpace(d.Specialty) == "" {
		return fmt.Errorf("%w: specialty is required", ErrInvalidDoctor)
	}
	if _, err := ParseStatus(string(d.Status)); err != nil {
		return err
	}
	return nil
}

// IsAvailable reports whether the doctor can take a new patient now.
func (d Doctor) IsAvailable() bool {
	return d.Status == StatusAvailable
}

// RosterLine is the single-line description sent to the extraction backend.
func (d Doctor) RosterLine() string {
	return fmt.Sprintf("ID: %s, Name: %s, Specialty: %s, Experience: %s, Status: %s",
		d.ID, d.Name, d.Specialty, d.Experience, d.Status)
}
