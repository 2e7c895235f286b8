package compliance

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHandlerListFiltersMemoryTrail(t *testing.T) {
	sink := NewMemorySink()
	ctx := context.Background()
	base := time.Date(2025, 3, 4, 9, 0, 0, 0, time.UTC)
	require.NoError(t, sink.Record(ctx, AuditEvent{Actor: "123-456-789", Action: ActionRegister, Timestamp: base}))
	require.NoError(t, sink.Record(ctx, AuditEvent{Actor: "admin", Action: ActionBulkExport, Timestamp: base.Add(time.Minute)}))
	require.NoError(t, sink.Record(ctx, AuditEvent{Actor: "123-456-789", Action: ActionChatSessionStart, Timestamp: base.Add(2 * time.Minute)}))

	h := NewHandler(sink, nil)

	rec := httptest.NewRecorder()
	h.List(rec, httptest.NewRequest(http.MethodGet, "/admin/audit?actor=123-456-789", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Events []AuditEvent `json:"events"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Events, 2)
	assert.Equal(t, ActionChatSessionStart, body.Events[0].Action)

	rec = httptest.NewRecorder()
	h.List(rec, httptest.NewRequest(http.MethodGet, "/admin/audit?since=2025-03-04T09:00:30Z&limit=1", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Events, 1)
	assert.Equal(t, ActionChatSessionStart, body.Events[0].Action)

	rec = httptest.NewRecorder()
	h.List(rec, httptest.NewRequest(http.MethodGet, "/admin/audit?action=NOPE", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"events":[]}`, rec.Body.String())
}

func TestHandlerListRejectsBadParams(t *testing.T) {
	h := NewHandler(NewMemorySink(), nil)
	for _, q := range []string{"since=yesterday", "until=x", "limit=0", "limit=abc", "offset=-1"} {
		rec := httptest.NewRecorder()
		h.List(rec, httptest.NewRequest(http.MethodGet, "/admin/audit?"+q, nil))
		assert.Equal(t, http.StatusBadRequest, rec.Code, q)
	}
}
