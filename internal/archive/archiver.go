package archive

import (
	"context"
	"encoding/json"

	"github.com/wolfman30/carefront-intake/internal/conversation"
	"github.com/wolfman30/carefront-intake/internal/report"
	"github.com/wolfman30/carefront-intake/pkg/logging"
)

// Outcome values recorded on an archived session.
const (
	OutcomeReportSaved     = "report_saved"
	OutcomeReportUnsaved   = "report_unsaved"
	OutcomeReportAnonymous = "report_anonymous"
)

// SessionArchiver turns a finished session into a SessionRecord. Failures
// are logged and never reach the caller.
type SessionArchiver struct {
	store  *Store
	logger *logging.Logger
}

// NewSessionArchiver returns nil when the store is not enabled; a nil
// archiver is safe to call.
func NewSessionArchiver(store *Store, logger *logging.Logger) *SessionArchiver {
	if !store.Enabled() {
		return nil
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &SessionArchiver{store: store, logger: logger.WithComponent("archive")}
}

// ArchiveInput is everything the archiver needs about a finished session.
type ArchiveInput struct {
	Session          *conversation.Session
	Report           report.ClinicalReport
	Outcome          string
	Escalated        bool
	InjectionFlagged bool
}

// BuildRecord converts the input to its archived form, scrubbing PII from
// turn text and dropping image bytes.
func BuildRecord(in ArchiveInput) *SessionRecord {
	s := in.Session
	record := &SessionRecord{
		Version:   RecordVersion,
		SessionID: s.ID,
		VisitID:   s.VisitID,
		StartedAt: s.CreatedAt,
		Outcome:   in.Outcome,
		Labels: Labels{
			UrgencyLevel:     string(in.Report.UrgencyLevel),
			RedFlagCount:     len(in.Report.RedFlags),
			Escalated:        in.Escalated,
			InjectionFlagged: in.InjectionFlagged,
		},
	}
	if s.Patient != nil {
		record.PatientHash = HashIdentifier(s.Patient.MedicalCardID)
	}
	for _, turn := range s.Turns {
		t := Turn{Speaker: string(turn.Speaker), Text: turn.Text, SentAt: turn.SentAt}
		if turn.Image != nil {
			t.HasImage = true
			record.Labels.ImageCount++
		}
		record.Turns = append(record.Turns, t)
	}
	record.TurnCount = len(record.Turns)
	record.Labels.ContainsPII = ScrubTurns(record.Turns)
	if data, err := json.Marshal(in.Report); err == nil {
		record.Report = data
	}
	return record
}

// Archive writes the session. It never returns an error.
func (a *SessionArchiver) Archive(ctx context.Context, in ArchiveInput) {
	if a == nil || in.Session == nil {
		return
	}
	record := BuildRecord(in)
	if _, err := a.store.ArchiveSession(ctx, record); err != nil {
		a.logger.Error("session archive failed", "session_id", record.SessionID, "error", err)
	}
}
