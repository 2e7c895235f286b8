package doctors

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/wolfman30/carefront-intake/pkg/logging"
)

// Handler exposes the roster over HTTP. Mutating routes are mounted behind
// admin authorization by the router.
type Handler struct {
	dir      *Directory
	logger   *logging.Logger
	onChange ChangeFunc
}

// ChangeFunc is told about every roster mutation that succeeded.
type ChangeFunc func(r *http.Request, summary string)

func NewHandler(dir *Directory, logger *logging.Logger) *Handler {
	if dir == nil {
		panic("doctors: directory cannot be nil")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{dir: dir, logger: logger}
}

// WithChangeHook registers fn to observe successful roster mutations.
func (h *Handler) WithChangeHook(fn ChangeFunc) *Handler {
	h.onChange = fn
	return h
}

func (h *Handler) changed(r *http.Request, summary string) {
	if h.onChange != nil {
		h.onChange(r, summary)
	}
}

// List handles GET /doctors.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"doctors": h.dir.List()})
}

// Create handles POST /admin/doctors.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var doc Doctor
	if err := json.NewDecoder(r.Body).Decode(&doc); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if doc.Status == "" {
		doc.Status = StatusAvailable
	}
	created, err := h.dir.Add(doc)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.logger.Info("doctor added", "doctor_id", created.ID, "specialty", created.Specialty)
	h.changed(r, "Added doctor "+created.ID)
	writeJSON(w, http.StatusCreated, created)
}

// Delete handles DELETE /admin/doctors/{doctorID}.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "doctorID")
	if err := h.dir.Remove(id); err != nil {
		h.writeError(w, err)
		return
	}
	h.logger.Info("doctor removed", "doctor_id", id)
	h.changed(r, "Removed doctor "+id)
	w.WriteHeader(http.StatusNoContent)
}

type statusRequest struct {
	Status string `json:"status"`
}

// SetStatus handles PUT /admin/doctors/{doctorID}/status.
func (h *Handler) SetStatus(w http.ResponseWriter, r *http.Request) {
	var req statusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	id := chi.URLParam(r, "doctorID")
	updated, err := h.dir.SetStatus(id, Status(req.Status))
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.logger.Info("doctor status changed", "doctor_id", id, "status", string(updated.Status))
	h.changed(r, "Set doctor "+id+" to "+string(updated.Status))
	writeJSON(w, http.StatusOK, updated)
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrDoctorNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, ErrDuplicateID):
		http.Error(w, err.Error(), http.StatusConflict)
	case errors.Is(err, ErrInvalidDoctor):
		http.Error(w, err.Error(), http.StatusBadRequest)
	default:
		h.logger.Error("roster operation failed", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
