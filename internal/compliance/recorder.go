package compliance

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/wolfman30/carefront-intake/pkg/logging"
)

const defaultRecorderBuffer = 256

// Recorder hands audit events to a Sink on a background goroutine so audit
// writes never block an intake operation. Events are dropped, with a log
// line, when the buffer is full.
type Recorder struct {
	sink    Sink
	logger  *logging.Logger
	events  chan AuditEvent
	done    chan struct{}
	once    sync.Once
	now     func() time.Time
	mu      sync.RWMutex
	closed  bool
	dropped atomic.Int64
}

type RecorderOption func(*Recorder)

func WithRecorderBuffer(n int) RecorderOption {
	return func(r *Recorder) {
		if n > 0 {
			r.events = make(chan AuditEvent, n)
		}
	}
}

func WithRecorderClock(now func() time.Time) RecorderOption {
	return func(r *Recorder) {
		if now != nil {
			r.now = now
		}
	}
}

func NewRecorder(sink Sink, logger *logging.Logger, opts ...RecorderOption) *Recorder {
	if sink == nil {
		panic("compliance: sink cannot be nil")
	}
	if logger == nil {
		logger = logging.Default()
	}
	r := &Recorder{
		sink:   sink,
		logger: logger.WithComponent("audit_recorder"),
		events: make(chan AuditEvent, defaultRecorderBuffer),
		done:   make(chan struct{}),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	go r.run()
	return r
}

// Log queues an event. It is safe to call after Close; the event is dropped.
func (r *Recorder) Log(actor string, action Action, details string, outcome Outcome) {
	r.Enqueue(AuditEvent{Actor: actor, Action: action, Details: details, Outcome: outcome})
}

func (r *Recorder) Enqueue(event AuditEvent) {
	event = event.Normalize(r.now())

	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.closed {
		r.logger.Warn("audit event after close", "action", string(event.Action))
		return
	}
	select {
	case r.events <- event:
	default:
		r.dropped.Add(1)
		r.logger.Error("audit buffer full, event dropped", "action", string(event.Action), "audit_id", event.ID)
	}
}

// Dropped reports how many events were discarded because the buffer was full.
func (r *Recorder) Dropped() int64 {
	return r.dropped.Load()
}

func (r *Recorder) run() {
	defer close(r.done)
	for event := range r.events {
		if err := r.sink.Record(context.Background(), event); err != nil {
			r.logger.Error("audit sink failed", "action", string(event.Action), "audit_id", event.ID, "error", err)
		}
	}
}

// Close stops accepting events and waits for the queue to drain or ctx to end.
func (r *Recorder) Close(ctx context.Context) error {
	r.once.Do(func() {
		r.mu.Lock()
		r.closed = true
		close(r.events)
		r.mu.Unlock()
	})
	select {
	case <-r.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
