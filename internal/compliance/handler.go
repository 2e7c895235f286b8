package compliance

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/wolfman30/carefront-intake/pkg/logging"
)

const (
	defaultQueryLimit = 100
	maxQueryLimit     = 1000
)

// Querier reads back the audit trail.
type Querier interface {
	QueryEvents(ctx context.Context, filter AuditFilter) ([]AuditEvent, error)
}

// Handler serves GET /admin/audit.
type Handler struct {
	store  Querier
	logger *logging.Logger
}

func NewHandler(store Querier, logger *logging.Logger) *Handler {
	if store == nil {
		panic("compliance: querier cannot be nil")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{store: store, logger: logger}
}

// List accepts actor, action, since, until (RFC 3339), limit and offset.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	filter, err := parseFilter(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	events, err := h.store.QueryEvents(r.Context(), filter)
	if err != nil {
		h.logger.Error("audit query failed", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	if events == nil {
		events = []AuditEvent{}
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(map[string]any{"events": events})
}

type filterError string

func (e filterError) Error() string { return string(e) }

func parseFilter(r *http.Request) (AuditFilter, error) {
	q := r.URL.Query()
	filter := AuditFilter{
		Actor:  q.Get("actor"),
		Action: Action(q.Get("action")),
		Limit:  defaultQueryLimit,
	}
	if v := q.Get("since"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return filter, filterError("invalid since")
		}
		filter.StartTime = t
	}
	if v := q.Get("until"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return filter, filterError("invalid until")
		}
		filter.EndTime = t
	}
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return filter, filterError("invalid limit")
		}
		filter.Limit = min(n, maxQueryLimit)
	}
	if v := q.Get("offset"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return filter, filterError("invalid offset")
		}
		filter.Offset = n
	}
	return filter, nil
}
