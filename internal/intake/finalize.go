package intake

import (
	"context"
	"errors"
	"fmt"

	"github.com/wolfman30/carefront-intake/internal/archive"
	"github.com/wolfman30/carefront-intake/internal/compliance"
	"github.com/wolfman30/carefront-intake/internal/conversation"
	"github.com/wolfman30/carefront-intake/internal/events"
	"github.com/wolfman30/carefront-intake/internal/notify"
	"github.com/wolfman30/carefront-intake/internal/observability/metrics"
	"github.com/wolfman30/carefront-intake/internal/patients"
	"github.com/wolfman30/carefront-intake/internal/report"
)

// FinalizeResult is a successfully generated report and what became of it.
type FinalizeResult struct {
	SessionID string                `json:"sessionId"`
	VisitID   string                `json:"visitId"`
	Report    report.ClinicalReport `json:"report"`
	Escalated bool                  `json:"escalated"`
	Persisted bool                  `json:"persisted"`
	Patient   *patients.Patient     `json:"patient,omitempty"`
}

// finalize extracts a report from the session transcript and, for a known
// patient, attaches it as one visit. On any failure the patient record is
// untouched and the session is returned to Active.
func (o *Orchestrator) finalize(ctx context.Context, session *conversation.Session) (*FinalizeResult, error) {
	actor := session.ActorID()
	if session.VisitID == "" {
		session.VisitID = o.newID()
	}
	log := o.logger.WithSession(session.ID, actor)
	o.audit.Log(actor, compliance.ActionReportGeneration, "Generating clinical report", compliance.OutcomeSuccess)

	started := o.now()
	rep, err := o.extractor.Extract(ctx, session.Transcript(), o.roster.List())
	o.metrics.ObserveExtraction(extractionResult(err), o.now().Sub(started).Seconds())
	if err != nil {
		log.Warn("report extraction failed", "visit_id", session.VisitID, "error", err)
		o.audit.Log(actor, compliance.ActionReportFailure, "Failed to generate clinical report", compliance.OutcomeFailure)
		o.reopen(ctx, session)
		return nil, err
	}

	rep, escalated := rep.Escalated()
	if escalated {
		o.metrics.ObserveEscalation()
		o.audit.Log(actor, compliance.ActionReportEscalated,
			fmt.Sprintf("Urgency raised to %s for %d red flags", rep.UrgencyLevel, len(rep.RedFlags)), compliance.OutcomeWarning)
		log.Warn("report escalated", "visit_id", session.VisitID, "red_flags", len(rep.RedFlags))
	}

	result := &FinalizeResult{
		SessionID: session.ID,
		VisitID:   session.VisitID,
		Report:    rep,
		Escalated: escalated,
	}

	if session.Patient != nil {
		visit := patients.NewVisit(session.VisitID, rep, o.now())
		updated, err := patients.Update(ctx, o.patients, session.Patient.MedicalCardID, func(p *patients.Patient) (bool, error) {
			return patients.AttachVisit(p, visit), nil
		})
		if err != nil {
			log.Error("failed to persist visit", "visit_id", session.VisitID, "error", err)
			o.audit.Log(actor, compliance.ActionReportFailure, "Failed to save clinical report", compliance.OutcomeFailure)
			o.reopen(ctx, session)
			return nil, fmt.Errorf("intake: persist visit: %w", err)
		}
		result.Report = visit.Report
		result.Persisted = true
		result.Patient = updated
		o.audit.Log(actor, compliance.ActionClinicalReportSaved, "Visit "+visit.ID+" added to patient record", compliance.OutcomeSuccess)
	} else {
		o.audit.Log(actor, compliance.ActionReportGeneration, "Report generated for anonymous session; not saved", compliance.OutcomeSuccess)
	}

	o.afterFinalize(ctx, session, result)

	if err := o.sessions.Delete(ctx, session.ID); err != nil {
		log.Warn("failed to delete finished session", "error", err)
	}
	log.Info("intake finalized", "visit_id", result.VisitID, "urgency", string(rep.UrgencyLevel), "persisted", result.Persisted)
	return result, nil
}

func (o *Orchestrator) afterFinalize(ctx context.Context, session *conversation.Session, result *FinalizeResult) {
	rep := result.Report
	cardID := ""
	if session.Patient != nil {
		cardID = session.Patient.MedicalCardID
	}

	recorded := events.VisitRecordedV1{
		VisitID:          result.VisitID,
		SessionID:        session.ID,
		MedicalCardID:    cardID,
		UrgencyLevel:     string(rep.UrgencyLevel),
		RedFlagCount:     len(rep.RedFlags),
		AssignedDoctorID: rep.AssignedDoctorID,
		Escalated:        result.Escalated,
		Persisted:        result.Persisted,
	}
	o.publish(ctx, events.TypeVisitRecorded, recorded)

	if rep.UrgencyLevel == report.UrgencyEmergency {
		o.publish(ctx, events.TypeEmergencyReported, recorded)
		if o.notifier != nil {
			notice := notify.EmergencyNotice{
				SessionID:        session.ID,
				VisitID:          result.VisitID,
				MedicalCardID:    cardID,
				UrgencyLevel:     string(rep.UrgencyLevel),
				RedFlagCount:     len(rep.RedFlags),
				AssignedDoctorID: rep.AssignedDoctorID,
				Escalated:        result.Escalated,
				At:               o.now(),
			}
			o.runBackground(ctx, "notify_emergency", func(ctx context.Context) error {
				return o.notifier.NotifyEmergency(ctx, notice)
			})
		}
	}

	if o.archiver != nil {
		outcome := archive.OutcomeReportAnonymous
		if result.Persisted {
			outcome = archive.OutcomeReportSaved
		}
		in := archive.ArchiveInput{
			Session:          session,
			Report:           rep,
			Outcome:          outcome,
			Escalated:        result.Escalated,
			InjectionFlagged: session.InjectionFlags > 0,
		}
		o.runBackground(ctx, "archive_session", func(ctx context.Context) error {
			o.archiver.Archive(ctx, in)
			return nil
		})
	}
}

// reopen returns the session to Active and stores it so the patient can
// keep talking or retry the extraction.
func (o *Orchestrator) reopen(ctx context.Context, session *conversation.Session) {
	session.Reopen(o.now())
	if err := o.sessions.Save(ctx, session); err != nil {
		o.logger.Warn("failed to save reopened session", "session_id", session.ID, "error", err)
	}
}

func extractionResult(err error) string {
	switch {
	case err == nil:
		return metrics.ExtractionSuccess
	case errors.Is(err, ErrRateLimited):
		return metrics.ExtractionRateLimited
	case errors.Is(err, ErrExtractionParse):
		return metrics.ExtractionParseError
	}
	return metrics.ExtractionUnavailable
}
