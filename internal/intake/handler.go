package intake

import (
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/wolfman30/carefront-intake/internal/auth"
	"github.com/wolfman30/carefront-intake/internal/conversation"
	"github.com/wolfman30/carefront-intake/internal/patients"
	"github.com/wolfman30/carefront-intake/pkg/logging"
)

// Handler exposes the orchestrator over HTTP.
type Handler struct {
	orch   *Orchestrator
	logger *logging.Logger

	mu       sync.Mutex
	inflight map[string]struct{}
}

func NewHandler(orch *Orchestrator, logger *logging.Logger) *Handler {
	if orch == nil {
		panic("intake: orchestrator cannot be nil")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{orch: orch, logger: logger, inflight: make(map[string]struct{})}
}

type identifyRequest struct {
	Name          string `json:"name"`
	MedicalCardID string `json:"medicalCardId"`
}

type startRequest struct {
	MedicalCardID string `json:"medicalCardId"`
}

// ImagePayload is a base64 image attached to a message.
type ImagePayload struct {
	MIMEType string `json:"mimeType"`
	Data     string `json:"data"`
}

type messageRequest struct {
	Text  string        `json:"text"`
	Image *ImagePayload `json:"image,omitempty"`
}

type endRequest struct {
	Force bool `json:"force"`
}

type appointmentStatusRequest struct {
	Status string `json:"status"`
}

// SessionView is the client-facing shape of a session.
type SessionView struct {
	SessionID string                       `json:"sessionId"`
	State     string                       `json:"state"`
	Turns     []conversation.ChatTurn      `json:"turns"`
	Patient   *conversation.PatientContext `json:"patient,omitempty"`
}

// MessageResponse answers a patient message.
type MessageResponse struct {
	Reply        string          `json:"reply"`
	Completed    bool            `json:"completed"`
	Degraded     bool            `json:"degraded,omitempty"`
	Retryable    bool            `json:"retryable,omitempty"`
	ImageDropped bool            `json:"imageDropped,omitempty"`
	Report       *FinalizeResult `json:"report,omitempty"`
	Error        string          `json:"error,omitempty"`
}

type errorResponse struct {
	Error     string `json:"error"`
	Field     string `json:"field,omitempty"`
	Retryable bool   `json:"retryable,omitempty"`
}

// Identify handles POST /patients/identify.
func (h *Handler) Identify(w http.ResponseWriter, r *http.Request) {
	var req identifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	p, created, err := h.orch.Identify(r.Context(), req.Name, req.MedicalCardID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	writeJSON(w, status, p)
}

// GetPatient handles GET /patients/{cardID}.
func (h *Handler) GetPatient(w http.ResponseWriter, r *http.Request) {
	p, err := h.orch.GetPatient(r.Context(), chi.URLParam(r, "cardID"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// StartSession handles POST /intake/sessions.
func (h *Handler) StartSession(w http.ResponseWriter, r *http.Request) {
	var req startRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "Invalid request body", http.StatusBadRequest)
			return
		}
	}
	res, err := h.orch.StartIntake(r.Context(), req.MedicalCardID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	if res.Degraded {
		writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: res.Greeting, Retryable: true})
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"sessionId": res.Session.ID,
		"greeting":  res.Greeting,
		"turns":     res.Session.Turns,
	})
}

// GetSession handles GET /intake/sessions/{sessionID}.
func (h *Handler) GetSession(w http.ResponseWriter, r *http.Request) {
	s, err := h.orch.GetSession(r.Context(), chi.URLParam(r, "sessionID"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, viewSession(s))
}

// Message handles POST /intake/sessions/{sessionID}/messages.
func (h *Handler) Message(w http.ResponseWriter, r *http.Request) {
	var req messageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	sessionID := chi.URLParam(r, "sessionID")
	release, ok := h.acquire(sessionID)
	if !ok {
		writeJSON(w, http.StatusConflict, errorResponse{Error: "A message for this session is already being processed.", Retryable: true})
		return
	}
	defer release()

	resp, err := h.submit(r, sessionID, req)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) submit(r *http.Request, sessionID string, req messageRequest) (*MessageResponse, error) {
	image, dropped := h.decodeImage(sessionID, req.Image)
	res, err := h.orch.Submit(r.Context(), sessionID, req.Text, image)
	if err != nil {
		return nil, err
	}
	resp := &MessageResponse{
		Reply:        res.Reply.Text,
		Completed:    res.Reply.Completed,
		Degraded:     res.Reply.Degraded,
		ImageDropped: dropped,
		Report:       res.Finalized,
	}
	if res.Reply.Cause != nil {
		resp.Retryable = res.Reply.Cause.Retryable()
	}
	if res.FinalizeErr != nil {
		resp.Error = UserMessage(res.FinalizeErr)
		resp.Retryable = Retryable(res.FinalizeErr)
		resp.Completed = false
	}
	return resp, nil
}

// End handles POST /intake/sessions/{sessionID}/end.
func (h *Handler) End(w http.ResponseWriter, r *http.Request) {
	var req endRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "Invalid request body", http.StatusBadRequest)
			return
		}
	}
	sessionID := chi.URLParam(r, "sessionID")
	release, ok := h.acquire(sessionID)
	if !ok {
		writeJSON(w, http.StatusConflict, errorResponse{Error: "A message for this session is already being processed.", Retryable: true})
		return
	}
	defer release()

	res, err := h.orch.EndAssessment(r.Context(), sessionID, req.Force)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// RequestAppointment handles POST /patients/{cardID}/appointments.
func (h *Handler) RequestAppointment(w http.ResponseWriter, r *http.Request) {
	var req patients.BookingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	appt, err := h.orch.RequestAppointment(r.Context(), chi.URLParam(r, "cardID"), req)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, appt)
}

// ListAppointments handles GET /admin/appointments?status=.
func (h *Handler) ListAppointments(w http.ResponseWriter, r *http.Request) {
	var status patients.AppointmentStatus
	if raw := r.URL.Query().Get("status"); raw != "" {
		parsed, err := patients.ParseAppointmentStatus(raw)
		if err != nil {
			h.writeError(w, asValidation(err))
			return
		}
		status = parsed
	}
	views, err := h.orch.ListAppointments(r.Context(), adminActor(r), status)
	if err != nil {
		h.writeError(w, err)
		return
	}
	if views == nil {
		views = []patients.AppointmentView{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"appointments": views})
}

// UpdateAppointmentStatus handles PUT /admin/patients/{cardID}/appointments/{appointmentID}.
func (h *Handler) UpdateAppointmentStatus(w http.ResponseWriter, r *http.Request) {
	var req appointmentStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	status, err := patients.ParseAppointmentStatus(req.Status)
	if err != nil {
		h.writeError(w, asValidation(err))
		return
	}
	appt, err := h.orch.UpdateAppointmentStatus(r.Context(), adminActor(r), chi.URLParam(r, "cardID"), chi.URLParam(r, "appointmentID"), status)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, appt)
}

// ExportPatients handles GET /admin/patients/export.xlsx.
func (h *Handler) ExportPatients(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="patients-`+time.Now().UTC().Format("20060102")+`.xlsx"`)
	if err := h.orch.ExportPatients(r.Context(), adminActor(r), w); err != nil {
		h.logger.Error("patient export failed", "error", err)
		w.Header().Del("Content-Disposition")
		h.writeError(w, err)
	}
}

func (h *Handler) acquire(sessionID string) (func(), bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, busy := h.inflight[sessionID]; busy {
		return nil, false
	}
	h.inflight[sessionID] = struct{}{}
	return func() {
		h.mu.Lock()
		delete(h.inflight, sessionID)
		h.mu.Unlock()
	}, true
}

// decodeImage degrades to text-only when the payload cannot be decoded.
func (h *Handler) decodeImage(sessionID string, payload *ImagePayload) (*conversation.InlineImage, bool) {
	if payload == nil || (payload.MIMEType == "" && payload.Data == "") {
		return nil, false
	}
	img, err := conversation.DecodeImage(payload.MIMEType, payload.Data)
	if err != nil {
		h.logger.Warn("image dropped", "session_id", sessionID, "error", err)
		return nil, true
	}
	return img, false
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	status := StatusFor(err)
	if status >= http.StatusInternalServerError && status != http.StatusServiceUnavailable {
		h.logger.Error("intake request failed", "error", err)
	}
	resp := errorResponse{Error: UserMessage(err), Retryable: Retryable(err)}
	var ve *ValidationError
	if errors.As(err, &ve) {
		resp.Field = ve.Field
	}
	writeJSON(w, status, resp)
}

// StatusFor maps an orchestrator error to an HTTP status.
func StatusFor(err error) int {
	switch {
	case errors.Is(err, ErrValidation):
		return http.StatusUnprocessableEntity
	case errors.Is(err, ErrRateLimited):
		return http.StatusTooManyRequests
	case errors.Is(err, ErrExtractionFailed):
		return http.StatusBadGateway
	case errors.Is(err, ErrBackendUnavailable):
		return http.StatusServiceUnavailable
	case errors.Is(err, ErrNotFound), errors.Is(err, ErrSessionNotFound), errors.Is(err, ErrAppointmentNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrIllegalTransition), errors.Is(err, ErrSessionState), errors.Is(err, ErrConflict):
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}

func viewSession(s *conversation.Session) SessionView {
	return SessionView{SessionID: s.ID, State: string(s.State), Turns: s.Turns, Patient: s.Patient}
}

func adminActor(r *http.Request) string {
	if p, ok := auth.PrincipalFrom(r.Context()); ok && p.Subject != "" {
		return p.Subject
	}
	return "admin"
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
