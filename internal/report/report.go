package report

import (
	"fmt"
	"strings"
)

// UrgencyLevel is totally ordered by severity in declaration order.
type UrgencyLevel string

const (
	UrgencyRoutine   UrgencyLevel = "Routine"
	UrgencyNonUrgent UrgencyLevel = "Non-Urgent"
	UrgencyUrgent    UrgencyLevel = "Urgent"
	UrgencyEmergency UrgencyLevel = "Emergency"
)

// UrgencyLevels lists every level from least to most severe.
var UrgencyLevels = []UrgencyLevel{UrgencyRoutine, UrgencyNonUrgent, UrgencyUrgent, UrgencyEmergency}

// Severity returns 0..3 for known levels and -1 otherwise.
func (u UrgencyLevel) Severity() int {
	for i, level := range UrgencyLevels {
		if u == level {
			return i
		}
	}
	return -1
}

func (u UrgencyLevel) Valid() bool { return u.Severity() >= 0 }

// AtLeast reports whether u is as severe as other.
func (u UrgencyLevel) AtLeast(other UrgencyLevel) bool {
	return u.Severity() >= other.Severity()
}

// ClinicalReport is the structured result of one extraction. It is a value:
// once attached to a visit it is never mutated.
type ClinicalReport struct {
	ID                 string       `json:"id,omitempty"`
	Date               string       `json:"date,omitempty"`
	ChiefComplaint     string       `json:"chiefComplaint"`
	HPI                string       `json:"hpi"`
	Medications        []string     `json:"medications"`
	Allergies          []string     `json:"allergies"`
	RedFlags           []string     `json:"redFlags"`
	ReviewOfSystems    []string     `json:"ros"`
	PatientSummary     string       `json:"patientSummary"`
	SuggestedQuestions []string     `json:"suggestedQuestions"`
	UrgencyLevel       UrgencyLevel `json:"urgencyLevel"`
	AssignedDoctorID   string       `json:"assignedDoctorId,omitempty"`
	AssignmentReason   string       `json:"assignmentReason,omitempty"`
}

// HasRedFlags reports whether any immediate-danger symptom was recorded.
func (r ClinicalReport) HasRedFlags() bool {
	return len(r.RedFlags) > 0
}

// NeedsEscalation is true when red flags are present but the urgency is
// below Urgent.
func (r ClinicalReport) NeedsEscalation() bool {
	return r.HasRedFlags() && !r.UrgencyLevel.AtLeast(UrgencyUrgent)
}

// Escalated returns a copy with urgency raised to Urgent when NeedsEscalation.
func (r ClinicalReport) Escalated() (ClinicalReport, bool) {
	if !r.NeedsEscalation() {
		return r, false
	}
	out := r.Clone()
	out.UrgencyLevel = UrgencyUrgent
	return out, true
}

// Clone deep-copies the slice fields.
func (r ClinicalReport) Clone() ClinicalReport {
	out := r
	out.Medications = cloneStrings(r.Medications)
	out.Allergies = cloneStrings(r.Allergies)
	out.RedFlags = cloneStrings(r.RedFlags)
	out.ReviewOfSystems = cloneStrings(r.ReviewOfSystems)
	out.SuggestedQuestions = cloneStrings(r.SuggestedQuestions)
	return out
}

// Digest is the one-line visit summary appended to a patient's history.
func (r ClinicalReport) Digest(visitDate string) string {
	return fmt.Sprintf("Last visit on %s for %s. Findings: %s urgency.", visitDate, strings.TrimSpace(r.ChiefComplaint), r.UrgencyLevel)
}

func cloneStrings(in []string) []string {
	if in == nil {
		return nil
	}
	out := make([]string, len(in))
	copy(out, in)
	return out
}

// dedupe trims entries and drops blanks and case-insensitive repeats,
// keeping first occurrence order.
func dedupe(in []string) []string {
	out := make([]string, 0, len(in))
	seen := make(map[string]struct{}, len(in))
	for _, item := range in {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		key := strings.ToLower(item)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, item)
	}
	return out
}

func trimAll(in []string) []string {
	out := make([]string, 0, len(in))
	for _, item := range in {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
