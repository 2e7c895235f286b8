package compliance

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/aws/aws-sdk-go-v2/service/sqs/types"
	"github.com/wolfman30/carefront-intake/pkg/logging"
)

// LogSink writes audit events to the structured log.
type LogSink struct {
	logger *logging.Logger
}

func NewLogSink(logger *logging.Logger) *LogSink {
	if logger == nil {
		logger = logging.Default()
	}
	return &LogSink{logger: logger.WithComponent("audit")}
}

func (s *LogSink) Record(ctx context.Context, event AuditEvent) error {
	if event.Action == "" {
		return ErrInvalidEvent
	}
	event = event.Normalize(time.Now())
	s.logger.InfoContext(ctx, "audit event",
		"audit_id", event.ID,
		"actor", event.Actor,
		"action", string(event.Action),
		"outcome", string(event.Outcome),
		"details", event.Details,
	)
	return nil
}

type sqsAPI interface {
	SendMessage(ctx context.Context, params *sqs.SendMessageInput, optFns ...func(*sqs.Options)) (*sqs.SendMessageOutput, error)
}

// SQSSink forwards audit events to a queue consumed by the compliance archive.
type SQSSink struct {
	client   sqsAPI
	queueURL string
}

func NewSQSSink(client sqsAPI, queueURL string) *SQSSink {
	if client == nil {
		panic("compliance: SQS client cannot be nil")
	}
	if queueURL == "" {
		panic("compliance: SQS queueURL cannot be empty")
	}
	return &SQSSink{client: client, queueURL: queueURL}
}

func (s *SQSSink) Record(ctx context.Context, event AuditEvent) error {
	if event.Action == "" {
		return ErrInvalidEvent
	}
	event = event.Normalize(time.Now())
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("compliance: marshal audit event: %w", err)
	}
	_, err = s.client.SendMessage(ctx, &sqs.SendMessageInput{
		QueueUrl:    aws.String(s.queueURL),
		MessageBody: aws.String(string(body)),
		MessageAttributes: map[string]types.MessageAttributeValue{
			"action": {DataType: aws.String("String"), StringValue: aws.String(string(event.Action))},
		},
	})
	if err != nil {
		return fmt.Errorf("compliance: failed to send audit event: %w", err)
	}
	return nil
}

// MemorySink keeps events in process. Used by tests and local runs.
type MemorySink struct {
	mu     sync.Mutex
	events []AuditEvent
}

func NewMemorySink() *MemorySink {
	return &MemorySink{}
}

func (s *MemorySink) Record(_ context.Context, event AuditEvent) error {
	if event.Action == "" {
		return ErrInvalidEvent
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event.Normalize(time.Now()))
	return nil
}

// Events returns a copy of everything recorded so far.
func (s *MemorySink) Events() []AuditEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]AuditEvent, len(s.events))
	copy(out, s.events)
	return out
}

// Actions lists the recorded actions in order.
func (s *MemorySink) Actions() []Action {
	events := s.Events()
	out := make([]Action, len(events))
	for i, e := range events {
		out[i] = e.Action
	}
	return out
}

// QueryEvents applies filter to the in-memory trail, newest first.
func (s *MemorySink) QueryEvents(_ context.Context, filter AuditFilter) ([]AuditEvent, error) {
	events := s.Events()
	var out []AuditEvent
	for i := len(events) - 1; i >= 0; i-- {
		e := events[i]
		if filter.Actor != "" && e.Actor != filter.Actor {
			continue
		}
		if filter.Action != "" && e.Action != filter.Action {
			continue
		}
		if !filter.StartTime.IsZero() && e.Timestamp.Before(filter.StartTime) {
			continue
		}
		if !filter.EndTime.IsZero() && e.Timestamp.After(filter.EndTime) {
			continue
		}
		out = append(out, e)
	}
	if filter.Offset > 0 {
		if filter.Offset >= len(out) {
			return nil, nil
		}
		out = out[filter.Offset:]
	}
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}
