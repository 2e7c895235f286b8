// Package intake ties the conversation engine, report extraction and the
// patient record store into the intake-to-report workflow.
package intake

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/wolfman30/carefront-intake/internal/archive"
	"github.com/wolfman30/carefront-intake/internal/compliance"
	"github.com/wolfman30/carefront-intake/internal/conversation"
	"github.com/wolfman30/carefront-intake/internal/doctors"
	"github.com/wolfman30/carefront-intake/internal/events"
	"github.com/wolfman30/carefront-intake/internal/notify"
	"github.com/wolfman30/carefront-intake/internal/observability/metrics"
	"github.com/wolfman30/carefront-intake/internal/patients"
	"github.com/wolfman30/carefront-intake/internal/report"
	"github.com/wolfman30/carefront-intake/pkg/logging"
)

// Extractor produces a report from a finished transcript.
type Extractor interface {
	Extract(ctx context.Context, transcript []conversation.ChatTurn, roster []doctors.Doctor) (report.ClinicalReport, error)
}

// Auditor accepts fire-and-forget audit events. compliance.Recorder
// satisfies it.
type Auditor interface {
	Log(actor string, action compliance.Action, details string, outcome compliance.Outcome)
}

// Notifier emails the clinic. notify.Service satisfies it.
type Notifier interface {
	NotifyEmergency(ctx context.Context, n notify.EmergencyNotice) error
	NotifyAppointmentRequested(ctx context.Context, n notify.AppointmentNotice) error
}

// Archiver stores finished transcripts. *archive.SessionArchiver satisfies it.
type Archiver interface {
	Archive(ctx context.Context, in archive.ArchiveInput)
}

type discardAuditor struct{}

func (discardAuditor) Log(string, compliance.Action, string, compliance.Outcome) {}

// Orchestrator is the only component allowed to persist intake results.
// Session handles live in the SessionStore; callers serialize requests for
// the same session.
type Orchestrator struct {
	engine    *conversation.Engine
	extractor Extractor
	sessions  conversation.SessionStore
	patients  patients.Repository
	roster    *doctors.Directory

	audit     Auditor
	publisher events.Publisher
	notifier  Notifier
	archiver  Archiver
	metrics   *metrics.IntakeMetrics
	logger    *logging.Logger
	now       func() time.Time
	newID     func() string

	background sync.WaitGroup
}

type Option func(*Orchestrator)

func WithAuditor(a Auditor) Option {
	return func(o *Orchestrator) {
		if a != nil {
			o.audit = a
		}
	}
}

func WithPublisher(p events.Publisher) Option {
	return func(o *Orchestrator) {
		if p != nil {
			o.publisher = p
		}
	}
}

func WithNotifier(n Notifier) Option {
	return func(o *Orchestrator) { o.notifier = n }
}

func WithArchiver(a Archiver) Option {
	return func(o *Orchestrator) { o.archiver = a }
}

func WithMetrics(m *metrics.IntakeMetrics) Option {
	return func(o *Orchestrator) { o.metrics = m }
}

func WithLogger(logger *logging.Logger) Option {
	return func(o *Orchestrator) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithClock pins timestamps in tests.
func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) {
		if now != nil {
			o.now = now
		}
	}
}

// WithIDGenerator replaces uuid generation for session and visit ids.
func WithIDGenerator(gen func() string) Option {
	return func(o *Orchestrator) {
		if gen != nil {
			o.newID = gen
		}
	}
}

func NewOrchestrator(engine *conversation.Engine, extractor Extractor, sessions conversation.SessionStore, repo patients.Repository, roster *doctors.Directory, opts ...Option) *Orchestrator {
	if engine == nil {
		panic("intake: conversation engine cannot be nil")
	}
	if extractor == nil {
		panic("intake: report extractor cannot be nil")
	}
	if sessions == nil {
		panic("intake: session store cannot be nil")
	}
	if repo == nil {
		panic("intake: patient repository cannot be nil")
	}
	if roster == nil {
		panic("intake: doctor directory cannot be nil")
	}
	o := &Orchestrator{
		engine:    engine,
		extractor: extractor,
		sessions:  sessions,
		patients:  repo,
		roster:    roster,
		audit:     discardAuditor{},
		publisher: events.NoopPublisher{},
		logger:    logging.Default(),
		now:       time.Now,
		newID:     uuid.NewString,
	}
	for _, opt := range opts {
		opt(o)
	}
	o.logger = o.logger.WithComponent("intake")
	return o
}

// StartResult is returned by StartIntake. A degraded start carries the
// user-facing text in Greeting and no session.
type StartResult struct {
	Session  *conversation.Session
	Greeting string
	Degraded bool
	Patient  *patients.Patient
}

// StartIntake resolves the optional patient context and opens a session.
func (o *Orchestrator) StartIntake(ctx context.Context, medicalCardID string) (*StartResult, error) {
	medicalCardID = strings.TrimSpace(medicalCardID)

	var (
		patient *patients.Patient
		pctx    *conversation.PatientContext
	)
	if medicalCardID != "" {
		p, err := o.lookupPatient(ctx, medicalCardID)
		if err != nil {
			return nil, err
		}
		patient = p
		pctx = &conversation.PatientContext{
			MedicalCardID:  p.MedicalCardID,
			Name:           p.Name,
			HistorySummary: p.HistorySummary,
		}
	}

	session := conversation.NewSession(o.newID(), pctx, o.now())
	reply, err := o.engine.Start(ctx, session)
	if err != nil {
		return nil, err
	}
	o.metrics.ObserveSessionStarted(patient != nil, reply.Degraded)
	if reply.Degraded {
		o.audit.Log(session.ActorID(), compliance.ActionChatSessionStart, "Intake session failed to start", compliance.OutcomeFailure)
		return &StartResult{Greeting: reply.Text, Degraded: true, Patient: patient}, nil
	}

	if err := o.sessions.Save(ctx, session); err != nil {
		return nil, fmt.Errorf("intake: save session: %w", err)
	}
	o.audit.Log(session.ActorID(), compliance.ActionChatSessionStart, "Intake chat session started", compliance.OutcomeSuccess)
	o.logger.Info("intake session started", "session_id", session.ID, "identified", patient != nil)
	return &StartResult{Session: session, Greeting: reply.Text, Patient: patient}, nil
}

// SubmitResult is the outcome of one patient message. When the assistant
// completed the intake, Finalized or FinalizeErr reports the extraction.
type SubmitResult struct {
	Reply       conversation.Reply
	Session     *conversation.Session
	Finalized   *FinalizeResult
	FinalizeErr error
}

// Submit routes one patient message through the session. Validation errors
// are returned as errors; backend trouble comes back as a degraded reply.
func (o *Orchestrator) Submit(ctx context.Context, sessionID, text string, image *conversation.InlineImage) (*SubmitResult, error) {
	session, err := o.sessions.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	reply, err := o.engine.Submit(ctx, session, text, image)
	if err != nil {
		if errors.Is(err, ErrValidation) {
			o.metrics.ObserveMessage(metrics.MessageRejected)
			o.audit.Log(session.ActorID(), compliance.ActionMessageRejected, UserMessage(err), compliance.OutcomeFailure)
		}
		return nil, err
	}
	if reply.Degraded {
		o.metrics.ObserveMessage(metrics.MessageDegraded)
		return &SubmitResult{Reply: reply, Session: session}, nil
	}

	o.metrics.ObserveMessage(metrics.MessageAccepted)
	if reply.Guard.Flagged {
		o.logger.Warn("prompt injection signals in patient message",
			"session_id", session.ID, "score", reply.Guard.Score, "reasons", reply.Guard.Reasons)
	}
	if err := o.sessions.Save(ctx, session); err != nil {
		return nil, fmt.Errorf("intake: save session: %w", err)
	}

	result := &SubmitResult{Reply: reply, Session: session}
	if reply.Completed {
		o.metrics.ObserveCompletion(metrics.CompletionAuto)
		result.Finalized, result.FinalizeErr = o.finalize(ctx, session)
	}
	return result, nil
}

// EndAssessment finalizes a session on the patient's request. Without force
// at least one patient message is required.
func (o *Orchestrator) EndAssessment(ctx context.Context, sessionID string, force bool) (*FinalizeResult, error) {
	session, err := o.sessions.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if session.State == conversation.StateUninitialized {
		return nil, fmt.Errorf("%w: session %s was never started", ErrSessionState, session.ID)
	}
	if !force && session.PatientTurns() == 0 {
		return nil, &ValidationError{Message: provideInformationMessage}
	}
	o.metrics.ObserveCompletion(metrics.CompletionManual)
	return o.finalize(ctx, session)
}

// GetSession returns the live handle for a session id.
func (o *Orchestrator) GetSession(ctx context.Context, sessionID string) (*conversation.Session, error) {
	return o.sessions.Get(ctx, sessionID)
}

// Close waits for background notifications and archive writes.
func (o *Orchestrator) Close(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		o.background.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (o *Orchestrator) lookupPatient(ctx context.Context, medicalCardID string) (*patients.Patient, error) {
	if err := patients.ValidateCardID(medicalCardID); err != nil {
		return nil, asValidation(err)
	}
	p, err := o.patients.Find(ctx, medicalCardID)
	if err != nil {
		if errors.Is(err, patients.ErrNotFound) {
			o.audit.Log("system", compliance.ActionAccessAttemptFailed, "Failed lookup for ID: "+medicalCardID, compliance.OutcomeWarning)
		}
		return nil, err
	}
	o.audit.Log(medicalCardID, compliance.ActionAccessRecord, "Patient record retrieved for ID: "+medicalCardID, compliance.OutcomeSuccess)
	return p, nil
}

// runBackground detaches fn from the request so best-effort side effects
// finish after the response is written.
func (o *Orchestrator) runBackground(ctx context.Context, name string, fn func(context.Context) error) {
	ctx = context.WithoutCancel(ctx)
	o.background.Add(1)
	go func() {
		defer o.background.Done()
		if err := fn(ctx); err != nil {
			o.logger.Warn("background task failed", "task", name, "error", err)
		}
	}()
}

func (o *Orchestrator) publish(ctx context.Context, eventType string, payload any) {
	if err := o.publisher.Publish(ctx, eventType, payload); err != nil {
		o.logger.Warn("event publish failed", "type", eventType, "error", err)
	}
}
