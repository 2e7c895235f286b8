// Package compliance records the append-only audit trail for intake activity.
package compliance

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Action names one audited operation.
type Action string

const (
	ActionAccessRecord            Action = "ACCESS_RECORD"
	ActionAccessAttemptFailed     Action = "ACCESS_ATTEMPT_FAILED"
	ActionRegister                Action = "REGISTER"
	ActionChatSessionStart        Action = "CHAT_SESSION_START"
	ActionMessageRejected         Action = "MESSAGE_REJECTED"
	ActionReportGeneration        Action = "REPORT_GENERATION"
	ActionReportFailure           Action = "REPORT_FAILURE"
	ActionReportEscalated         Action = "REPORT_ESCALATED"
	ActionClinicalReportSaved     Action = "CLINICAL_REPORT_SAVED"
	ActionAppointmentRequest      Action = "APPOINTMENT_REQUEST"
	ActionAppointmentStatusChange Action = "APPOINTMENT_STATUS_CHANGE"
	ActionRosterChange            Action = "ROSTER_CHANGE"
	ActionBulkExport              Action = "BULK_EXPORT"
	ActionUnauthorizedAccess      Action = "UNAUTHORIZED_ACCESS_ATTEMPT"
)

// Outcome is the result recorded with an audit event.
type Outcome string

const (
	OutcomeSuccess Outcome = "SUCCESS"
	OutcomeFailure Outcome = "FAILURE"
	OutcomeWarning Outcome = "WARNING"
)

// AuditEvent is an immutable audit record. Details never carry patient free text.
type AuditEvent struct {
	ID        string          `json:"id"`
	Timestamp time.Time       `json:"timestamp"`
	Actor     string          `json:"actor"`
	Action    Action          `json:"action"`
	Details   string          `json:"details"`
	Outcome   Outcome         `json:"outcome"`
	Metadata  json.RawMessage `json:"metadata,omitempty"`
}

// Normalize fills the generated fields.
func (e AuditEvent) Normalize(now time.Time) AuditEvent {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = now.UTC()
	}
	if e.Actor == "" {
		e.Actor = "anonymous"
	}
	if e.Outcome == "" {
		e.Outcome = OutcomeSuccess
	}
	return e
}

// Sink persists audit events. Implementations must be safe for concurrent use.
type Sink interface {
	Record(ctx context.Context, event AuditEvent) error
}

// ErrInvalidEvent is returned for events missing an action.
var ErrInvalidEvent = errors.New("compliance: audit event requires an action")

// AuditService writes audit events to Postgres.
type AuditService struct {
	db *sql.DB
}

func NewAuditService(db *sql.DB) *AuditService {
	if db == nil {
		panic("compliance: db cannot be nil")
	}
	return &AuditService{db: db}
}

func (s *AuditService) Record(ctx context.Context, event AuditEvent) error {
	if event.Action == "" {
		return ErrInvalidEvent
	}
	event = event.Normalize(time.Now())

	query := `
		INSERT INTO audit_events (
			id, occurred_at, actor, action, details, outcome, metadata
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err := s.db.ExecContext(ctx, query,
		event.ID,
		event.Timestamp,
		event.Actor,
		event.Action,
		event.Details,
		event.Outcome,
		nullJSON(event.Metadata),
	)
	if err != nil {
		return fmt.Errorf("compliance: failed to record audit event: %w", err)
	}
	return nil
}

// AuditFilter specifies criteria for querying audit events.
type AuditFilter struct {
	Actor     string
	Action    Action
	StartTime time.Time
	EndTime   time.Time
	Limit     int
	Offset    int
}

// QueryEvents returns matching events newest first.
func (s *AuditService) QueryEvents(ctx context.Context, filter AuditFilter) ([]AuditEvent, error) {
	query := `
		SELECT id, occurred_at, actor, action, details, outcome, metadata
		FROM audit_events
		WHERE 1 = 1
	`
	var args []any
	argIdx := 1

	if filter.Actor != "" {
		query += fmt.Sprintf(" AND actor = $%d", argIdx)
		args = append(args, filter.Actor)
		argIdx++
	}
	if filter.Action != "" {
		query += fmt.Sprintf(" AND action = $%d", argIdx)
		args = append(args, filter.Action)
		argIdx++
	}
	if !filter.StartTime.IsZero() {
		query += fmt.Sprintf(" AND occurred_at >= $%d", argIdx)
		args = append(args, filter.StartTime)
		argIdx++
	}
	if !filter.EndTime.IsZero() {
		query += fmt.Sprintf(" AND occurred_at <= $%d", argIdx)
		args = append(args, filter.EndTime)
		argIdx++
	}

	query += " ORDER BY occurred_at DESC"

	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", filter.Limit)
	}
	if filter.Offset > 0 {
		query += fmt.Sprintf(" OFFSET %d", filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("compliance: failed to query audit events: %w", err)
	}
	defer rows.Close()

	var events []AuditEvent
	for rows.Next() {
		var (
			e        AuditEvent
			metadata []byte
		)
		if err := rows.Scan(&e.ID, &e.Timestamp, &e.Actor, &e.Action, &e.Details, &e.Outcome, &metadata); err != nil {
			return nil, fmt.Errorf("compliance: failed to scan audit event: %w", err)
		}
		if len(metadata) > 0 {
			e.Metadata = json.RawMessage(metadata)
		}
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("compliance: failed to read audit events: %w", err)
	}
	return events, nil
}

func nullJSON(raw json.RawMessage) any {
	if len(raw) == 0 {
		return nil
	}
	return []byte(raw)
}
