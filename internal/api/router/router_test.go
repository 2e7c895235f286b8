package router

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/wolfman30/carefront-intake/internal/auth"
	"github.com/wolfman30/carefront-intake/internal/compliance"
	"github.com/wolfman30/carefront-intake/internal/conversation"
	"github.com/wolfman30/carefront-intake/internal/doctors"
	httpmiddleware "github.com/wolfman30/carefront-intake/internal/http/middleware"
	"github.com/wolfman30/carefront-intake/internal/intake"
	"github.com/wolfman30/carefront-intake/internal/patients"
	"github.com/wolfman30/carefront-intake/internal/report"
	"github.com/wolfman30/carefront-intake/pkg/logging"
)

type echoLLM struct{}

func (echoLLM) Complete(_ context.Context, _ conversation.LLMRequest) (conversation.LLMResponse, error) {
	return conversation.LLMResponse{Text: "Hello, what brings you in?"}, nil
}

type noExtractor struct{}

func (noExtractor) Extract(_ context.Context, _ []conversation.ChatTurn, _ []doctors.Doctor) (report.ClinicalReport, error) {
	return report.ClinicalReport{}, &report.ParseError{Reason: "unused"}
}

type auditLog struct {
	mu      sync.Mutex
	actions []compliance.Action
}

func (a *auditLog) Log(_ string, action compliance.Action, _ string, _ compliance.Outcome) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.actions = append(a.actions, action)
}

func (a *auditLog) has(action compliance.Action) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	for _, got := range a.actions {
		if got == action {
			return true
		}
	}
	return false
}

const testSecret = "router-test-secret"

func newTestRouter(t *testing.T, limiter *httpmiddleware.RateLimiter) (http.Handler, *auditLog) {
	t.Helper()

	logger := logging.Default()
	roster, err := doctors.NewDirectory(doctors.DefaultRoster())
	if err != nil {
		t.Fatalf("roster: %v", err)
	}
	audit := &auditLog{}
	orch := intake.NewOrchestrator(
		conversation.NewEngine(echoLLM{}),
		noExtractor{},
		conversation.NewMemorySessionStore(time.Hour),
		patients.NewInMemoryRepository(),
		roster,
		intake.WithAuditor(audit),
	)
	t.Cleanup(func() { _ = orch.Close(context.Background()) })

	cfg := &Config{
		Logger:         logger,
		IntakeHandler:  intake.NewHandler(orch, logger),
		DoctorsHandler: doctors.NewHandler(roster, logger),
		AuditHandler:   compliance.NewHandler(compliance.NewMemorySink(), logger),
		Authenticator:  auth.NewJWTAuthenticator(testSecret, ""),
		Auditor:        audit,
		MessageLimiter: limiter,
	}
	return New(cfg), audit
}

func TestRouterHealthEndpoint(t *testing.T) {
	router, _ := newTestRouter(t, nil)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rr := httptest.NewRecorder()

	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, rr.Code)
	}

	var resp map[string]string
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode health response: %v", err)
	}

	if resp["status"] != "ok" {
		t.Errorf("expected status 'ok', got %q", resp["status"])
	}
}

func TestRouterStartsAnonymousSession(t *testing.T) {
	router, audit := newTestRouter(t, nil)

	req := httptest.NewRequest(http.MethodPost, "/intake/sessions", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rr.Code, rr.Body.String())
	}
	var resp struct {
		SessionID string `json:"sessionId"`
		Greeting  string `json:"greeting"`
	}
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.SessionID == "" || resp.Greeting != "Hello, what brings you in?" {
		t.Fatalf("unexpected start response %+v", resp)
	}
	if !audit.has(compliance.ActionChatSessionStart) {
		t.Fatalf("expected session start to be audited, got %v", audit.actions)
	}
}

func TestRouterListsDoctorsPublicly(t *testing.T) {
	router, _ := newTestRouter(t, nil)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/doctors", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
}

func TestRouterAdminRequiresToken(t *testing.T) {
	router, audit := newTestRouter(t, nil)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/admin/appointments", nil))
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rr.Code)
	}
	if !audit.has(compliance.ActionUnauthorizedAccess) {
		t.Fatalf("expected denial to be audited, got %v", audit.actions)
	}
}

func TestRouterAdminRosterChangeIsAudited(t *testing.T) {
	router, audit := newTestRouter(t, nil)
	token, err := auth.NewJWTAuthenticator(testSecret, "").Issue("ops@clinic", time.Minute)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	req := httptest.NewRequest(http.MethodPut, "/admin/doctors/d1/status", bytes.NewBufferString(`{"status":"On Call"}`))
	req.Header.Set("Authorization", "Bearer "+token)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	if !audit.has(compliance.ActionRosterChange) {
		t.Fatalf("expected roster change audit, got %v", audit.actions)
	}

	req = httptest.NewRequest(http.MethodGet, "/admin/audit", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected audit listing, got %d", rr.Code)
	}
}

func TestRouterThrottlesMessages(t *testing.T) {
	limiter := httpmiddleware.NewRateLimiter(0.001, 1)
	defer limiter.Stop()
	router, _ := newTestRouter(t, limiter)

	codes := make([]int, 0, 2)
	for i := 0; i < 2; i++ {
		req := httptest.NewRequest(http.MethodPost, "/intake/sessions/missing/messages", bytes.NewBufferString(`{"text":"hi"}`))
		req.RemoteAddr = "10.0.0.1:5555"
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)
		codes = append(codes, rr.Code)
	}
	if codes[0] != http.StatusNotFound || codes[1] != http.StatusTooManyRequests {
		t.Fatalf("expected [404 429], got %v", codes)
	}
}
