package patients

import (
	"strings"
	"time"

	"github.com/wolfman30/carefront-intake/internal/report"
)

// VisitDateLayout renders the human-readable visit date (M/D/YYYY).
const VisitDateLayout = "1/2/2006"

// NewVisit wraps a report in a VisitRecord stamped with at.
func NewVisit(id string, r report.ClinicalReport, at time.Time) VisitRecord {
	date := at.Format(VisitDateLayout)
	r = r.Clone()
	r.ID = id
	r.Date = date
	return VisitRecord{ID: id, Date: date, At: at, Report: r}
}

// AttachVisit appends the visit and its digest to the patient's history as
// one merge. A visit whose id is already recorded is ignored so a retried
// persist does not duplicate it. It reports whether p changed.
func AttachVisit(p *Patient, visit VisitRecord) bool {
	if visit.ID != "" && p.HasVisit(visit.ID) {
		return false
	}
	p.Visits = append(p.Visits, visit)
	p.HistorySummary = AppendDigest(p.HistorySummary, visit.Report.Digest(visit.Date))
	p.UpdatedAt = visit.At
	return true
}

// AppendDigest concatenates a digest onto an existing summary. The summary
// is never restructured or pruned.
func AppendDigest(history, digest string) string {
	history = strings.TrimSpace(history)
	if history == "" {
		return digest
	}
	return history + ". " + digest
}
