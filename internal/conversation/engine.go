package conversation

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/wolfman30/carefront-intake/pkg/logging"
)

const (
	intakeTemperature = 0.5
	emptyReplyText    = "Repeat that?"
	closingText       = "Thank you. I have all the info."
)

// Reply is what the caller renders after Start or Submit. A degraded reply
// carries user guidance in Text and the classified failure in Cause; the
// session is left exactly as it was.
type Reply struct {
	Text      string
	Completed bool
	Degraded  bool
	Cause     *BackendError
	Guard     GuardResult
	ImageUsed bool
}

// Engine runs the intake dialogue against a model backend. It holds no
// per-session state; every call operates on the handle it is given.
type Engine struct {
	llm         LLMClient
	rule        CompletionRule
	maxChars    int
	temperature float32
	logger      *logging.Logger
	now         func() time.Time
}

type EngineOption func(*Engine)

// WithCompletionRule swaps the completion predicate.
func WithCompletionRule(rule CompletionRule) EngineOption {
	return func(e *Engine) {
		if rule != nil {
			e.rule = rule
		}
	}
}

// WithMaxMessageChars overrides the admission length limit.
func WithMaxMessageChars(n int) EngineOption {
	return func(e *Engine) {
		if n > 0 {
			e.maxChars = n
		}
	}
}

func WithEngineLogger(logger *logging.Logger) EngineOption {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithClock is used by tests to pin turn timestamps.
func WithClock(now func() time.Time) EngineOption {
	return func(e *Engine) {
		if now != nil {
			e.now = now
		}
	}
}

func NewEngine(llm LLMClient, opts ...EngineOption) *Engine {
	if llm == nil {
		panic("conversation: llm client cannot be nil")
	}
	e := &Engine{
		llm:         llm,
		rule:        SentinelRule{Token: CompletionSentinel},
		maxChars:    DefaultMaxMessageChars,
		temperature: intakeTemperature,
		logger:      logging.Default(),
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Start issues the greeting and moves the session to Active. On backend
// failure the session stays Uninitialized and Start may be called again.
func (e *Engine) Start(ctx context.Context, s *Session) (Reply, error) {
	if s == nil {
		return Reply{}, fmt.Errorf("%w: session is nil", ErrSessionState)
	}
	if s.State != StateUninitialized {
		return Reply{}, fmt.Errorf("%w: start requires an uninitialized session, got %s", ErrSessionState, s.State)
	}

	resp, err := e.llm.Complete(ctx, LLMRequest{
		System:      []string{IntakeInstructions(s.Patient)},
		Messages:    []ChatMessage{{Role: ChatRoleUser, Content: BootstrapPrompt}},
		Temperature: e.temperature,
	})
	if err != nil {
		cause := ClassifyBackendError(err)
		e.logger.Warn("intake start failed", "session_id", s.ID, "kind", string(cause.Kind), "error", err)
		text := StartFailureMessage
		if cause.Kind == BackendRateLimited {
			text = QuotaExceededMessage
		}
		return Reply{Text: text, Degraded: true, Cause: cause}, nil
	}

	greeting, _ := e.rule.Detect(resp.Text)
	greeting = Sanitize(strings.TrimSpace(greeting))
	if greeting == "" {
		greeting = fallbackGreeting(s.Patient)
	}

	now := e.now()
	s.append(now,
		ChatTurn{Speaker: SpeakerSystem, Text: welcomeNotice(s.Patient), SentAt: now},
		ChatTurn{Speaker: SpeakerAssistant, Text: greeting, SentAt: now},
	)
	s.State = StateActive
	return Reply{Text: greeting}, nil
}

// Submit forwards one patient message. Validation failures return a
// *ValidationError and leave no trace in the transcript. Backend failures
// produce a degraded Reply with a nil error; the session is unchanged and
// stays Active so the patient may retry.
func (e *Engine) Submit(ctx context.Context, s *Session, text string, image *InlineImage) (Reply, error) {
	if s == nil {
		return Reply{}, fmt.Errorf("%w: session is nil", ErrSessionState)
	}
	if s.State != StateActive {
		return Reply{}, fmt.Errorf("%w: submit requires an active session, got %s", ErrSessionState, s.State)
	}
	if err := ValidateMessage(text, e.maxChars); err != nil {
		return Reply{}, err
	}

	guard := ScanForInjection(text)
	safe := Sanitize(strings.TrimSpace(text))

	if image != nil && !usableImage(image) {
		e.logger.Warn("dropping undecodable image", "session_id", s.ID, "mime_type", image.MIMEType)
		image = nil
	}

	messages := e.modelMessages(s)
	messages = append(messages, ChatMessage{Role: ChatRoleUser, Content: safe, Image: image})

	resp, err := e.llm.Complete(ctx, LLMRequest{
		System:      []string{IntakeInstructions(s.Patient)},
		Messages:    messages,
		Temperature: e.temperature,
	})
	if err != nil {
		cause := ClassifyBackendError(err)
		e.logger.Warn("intake turn failed", "session_id", s.ID, "kind", string(cause.Kind), "error", err)
		return Reply{Text: cause.UserMessage(), Degraded: true, Cause: cause, Guard: guard}, nil
	}

	raw := strings.TrimSpace(resp.Text)
	display := emptyReplyText
	complete := false
	if raw != "" {
		display, complete = e.rule.Detect(raw)
		display = Sanitize(display)
		if complete && display == "" {
			display = closingText
		}
	}

	now := e.now()
	s.append(now,
		ChatTurn{Speaker: SpeakerPatient, Text: safe, Image: image, SentAt: now},
		ChatTurn{Speaker: SpeakerAssistant, Text: display, SentAt: now},
	)
	if guard.Flagged {
		s.InjectionFlags++
	}
	if complete {
		s.State = StateCompleted
	}

	return Reply{
		Text:      display,
		Completed: complete,
		Guard:     guard,
		ImageUsed: image != nil,
	}, nil
}

// modelMessages replays the transcript for a stateless backend call. System
// notices are UI-only and never sent.
func (e *Engine) modelMessages(s *Session) []ChatMessage {
	out := make([]ChatMessage, 0, len(s.Turns)+2)
	out = append(out, ChatMessage{Role: ChatRoleUser, Content: BootstrapPrompt})
	for _, turn := range s.Turns {
		switch turn.Speaker {
		case SpeakerPatient:
			out = append(out, ChatMessage{Role: ChatRoleUser, Content: turn.Text, Image: turn.Image})
		case SpeakerAssistant:
			out = append(out, ChatMessage{Role: ChatRoleAssistant, Content: turn.Text})
		}
	}
	return out
}
