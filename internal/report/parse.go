package report

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/wolfman30/carefront-intake/internal/doctors"
)

var (
	// ErrExtractionFailed matches every non-retryable extraction failure.
	ErrExtractionFailed = errors.New("report: extraction failed")
	// ErrExtractionParse matches responses that do not conform to the report schema.
	ErrExtractionParse = errors.New("report: response did not match schema")
)

// User-facing extraction failure messages.
const (
	FailureMessage      = "Failed to generate report."
	QuotaFailureMessage = "Quota exceeded. Please wait 1 minute and try again."
)

// ParseError describes why a backend response was rejected.
type ParseError struct {
	Reason string
	Err    error
}

func (e *ParseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("report: unparseable response: %s: %v", e.Reason, e.Err)
	}
	return "report: unparseable response: " + e.Reason
}

func (e *ParseError) Unwrap() error { return e.Err }

func (e *ParseError) Is(target error) bool {
	return target == ErrExtractionParse || target == ErrExtractionFailed
}

// wireReport mirrors the schema with pointers so absent required fields
// can be told apart from zero values.
type wireReport struct {
	ChiefComplaint     *string   `json:"chiefComplaint"`
	HPI                *string   `json:"hpi"`
	Medications        []string  `json:"medications"`
	Allergies          []string  `json:"allergies"`
	RedFlags           *[]string `json:"redFlags"`
	ReviewOfSystems    []string  `json:"ros"`
	PatientSummary     *string   `json:"patientSummary"`
	SuggestedQuestions []string  `json:"suggestedQuestions"`
	UrgencyLevel       *string   `json:"urgencyLevel"`
	AssignedDoctorID   *string   `json:"assignedDoctorId"`
	AssignmentReason   *string   `json:"assignmentReason"`
}

// ParseReport validates a raw backend response against the report schema.
// Any non-conforming payload is rejected whole. When roster is non-empty
// the assigned doctor must be one of its IDs.
func ParseReport(raw string, roster []doctors.Doctor) (ClinicalReport, error) {
	body := stripCodeFence(raw)
	if body == "" {
		return ClinicalReport{}, &ParseError{Reason: "empty response"}
	}

	var wire wireReport
	dec := json.NewDecoder(bytes.NewReader([]byte(body)))
	if err := dec.Decode(&wire); err != nil {
		return ClinicalReport{}, &ParseError{Reason: "invalid json", Err: err}
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return ClinicalReport{}, &ParseError{Reason: "trailing data after report object"}
	}

	missing := []string{}
	requireText := func(name string, v *string) string {
		if v == nil || strings.TrimSpace(*v) == "" {
			missing = append(missing, name)
			return ""
		}
		return strings.TrimSpace(*v)
	}
	out := ClinicalReport{
		ChiefComplaint: requireText("chiefComplaint", wire.ChiefComplaint),
		HPI:            requireText("hpi", wire.HPI),
		PatientSummary: requireText("patientSummary", wire.PatientSummary),
	}
	if wire.RedFlags == nil {
		missing = append(missing, "redFlags")
	} else {
		out.RedFlags = trimAll(*wire.RedFlags)
	}
	if wire.UrgencyLevel == nil {
		missing = append(missing, "urgencyLevel")
	}
	if wire.AssignedDoctorID == nil {
		missing = append(missing, "assignedDoctorId")
	}
	if len(missing) > 0 {
		return ClinicalReport{}, &ParseError{Reason: "missing required fields: " + strings.Join(missing, ", ")}
	}

	urgency := UrgencyLevel(strings.TrimSpace(*wire.UrgencyLevel))
	if !urgency.Valid() {
		return ClinicalReport{}, &ParseError{Reason: fmt.Sprintf("unknown urgencyLevel %q", *wire.UrgencyLevel)}
	}
	out.UrgencyLevel = urgency

	out.AssignedDoctorID = strings.TrimSpace(*wire.AssignedDoctorID)
	if len(roster) > 0 && !onRoster(roster, out.AssignedDoctorID) {
		return ClinicalReport{}, &ParseError{Reason: fmt.Sprintf("assignedDoctorId %q is not on the roster", out.AssignedDoctorID)}
	}
	if wire.AssignmentReason != nil {
		out.AssignmentReason = strings.TrimSpace(*wire.AssignmentReason)
	}

	out.Medications = dedupe(wire.Medications)
	out.Allergies = dedupe(wire.Allergies)
	out.ReviewOfSystems = trimAll(wire.ReviewOfSystems)
	out.SuggestedQuestions = trimAll(wire.SuggestedQuestions)
	return out, nil
}

func onRoster(roster []doctors.Doctor, id string) bool {
	for _, d := range roster {
		if d.ID == id {
			return true
		}
	}
	return false
}

// stripCodeFence removes a ```json fence some models wrap JSON output in.
func stripCodeFence(raw string) string {
	s := strings.TrimSpace(raw)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if nl := strings.IndexByte(s, '\n'); nl >= 0 {
		s = s[nl+1:]
	} else {
		s = strings.TrimPrefix(s, "json")
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
