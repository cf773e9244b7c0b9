package importer

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/dmoran/clinica-backend/internal/http/middleware"
	"github.com/dmoran/clinica-backend/pkg/logging"
)

// Handler exposes the import pipeline over HTTP. The staging grid lives
// server-side in the session manager; the UI mirrors it.
type Handler struct {
	manager *Manager
	logger  *logging.Logger
}

// NewHandler creates a new import HTTP handler.
func NewHandler(manager *Manager, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{manager: manager, logger: logger}
}

// Routes returns a chi router with import routes.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Post("/sessions", h.CreateSession)
	r.Route("/sessions/{sessionID}", func(r chi.Router) {
		r.Get("/", h.GetSession)
		r.Post("/upload", h.Upload)
		r.Patch("/cells", h.EditCell)
		r.Post("/rows", h.AddRow)
		r.Delete("/rows/{rowIndex}", h.DeleteRow)
		r.Post("/reset-edits", h.ResetEdits)
		r.Post("/import", h.StartImport)
		r.Post("/reset", h.Reset)
		r.Get("/progress", h.Progress)
		r.Get("/result", h.Result)
	})
	r.Get("/templates/{entity}", h.Template)
	r.Get("/runs/{runID}", h.Run)
	return r
}

type createSessionRequest struct {
	Entity  string `json:"entity"`
	Content string `json:"content,omitempty"`
}

type gridResponse struct {
	SessionID string            `json:"session_id"`
	State     State             `json:"state"`
	Grid      *Grid             `json:"grid,omitempty"`
	Findings  []ValidationError `json:"validation_errors"`
}

// CreateSession opens a session and, when file content is included, stages
// it immediately.
// POST /import/sessions
func (h *Handler) CreateSession(w http.ResponseWriter, r *http.Request) {
	var req createSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error": "invalid JSON body"}`, http.StatusBadRequest)
		return
	}
	entity, err := ParseEntity(req.Entity)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "entity must be one of patients, payments, appointments, services"})
		return
	}

	s := h.manager.Create(entity)
	resp := gridResponse{SessionID: s.ID, State: s.State()}

	if req.Content != "" {
		grid, findings, err := h.manager.Upload(s.ID, req.Content)
		if err != nil {
			h.writeParseError(w, err)
			return
		}
		resp.State = StateEdit
		resp.Grid = grid
		resp.Findings = findings
	}

	writeJSON(w, http.StatusCreated, resp)
}

// GetSession returns the staging grid, findings and state.
// GET /import/sessions/{sessionID}
func (h *Handler) GetSession(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "sessionID")
	grid, findings, state, err := h.manager.Grid(id)
	if err != nil {
		h.writeSessionError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, gridResponse{SessionID: id, State: state, Grid: grid, Findings: findings})
}

type uploadRequest struct {
	Content string `json:"content"`
}

// Upload stages file content into an upload-state session.
// POST /import/sessions/{sessionID}/upload
func (h *Handler) Upload(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "sessionID")
	var req uploadRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error": "invalid JSON body"}`, http.StatusBadRequest)
		return
	}

	grid, findings, err := h.manager.Upload(id, req.Content)
	if err != nil {
		if errors.Is(err, ErrSessionNotFound) || errors.Is(err, ErrInvalidState) {
			h.writeSessionError(w, err)
			return
		}
		h.writeParseError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, gridResponse{SessionID: id, State: StateEdit, Grid: grid, Findings: findings})
}

type editCellRequest struct {
	Row   int    `json:"row"`
	Col   int    `json:"col"`
	Value string `json:"value"`
}

// EditCell applies a single cell edit.
// PATCH /import/sessions/{sessionID}/cells
func (h *Handler) EditCell(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "sessionID")
	var req editCellRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error": "invalid JSON body"}`, http.StatusBadRequest)
		return
	}

	findings, err := h.manager.EditCell(id, req.Row, req.Col, req.Value)
	if err != nil {
		h.writeSessionError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"validation_errors": findings})
}

// AddRow appends an empty row to the staging grid.
// POST /import/sessions/{sessionID}/rows
func (h *Handler) AddRow(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "sessionID")
	findings, err := h.manager.AddRow(id)
	if err != nil {
		h.writeSessionError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"validation_errors": findings})
}

// DeleteRow removes one staging row.
// DELETE /import/sessions/{sessionID}/rows/{rowIndex}
func (h *Handler) DeleteRow(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "sessionID")
	idx, err := strconv.Atoi(chi.URLParam(r, "rowIndex"))
	if err != nil {
		http.Error(w, `{"error": "invalid row index"}`, http.StatusBadRequest)
		return
	}

	findings, err := h.manager.DeleteRow(id, idx)
	if err != nil {
		h.writeSessionError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"validation_errors": findings})
}

// ResetEdits restores every cell to its parsed value.
// POST /import/sessions/{sessionID}/reset-edits
func (h *Handler) ResetEdits(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "sessionID")
	findings, err := h.manager.ResetEdits(id)
	if err != nil {
		h.writeSessionError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"validation_errors": findings})
}

// StartImport launches the run for the logged-in operator.
// POST /import/sessions/{sessionID}/import
func (h *Handler) StartImport(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "sessionID")
	claims, ok := middleware.OperatorFromContext(r.Context())
	if !ok {
		http.Error(w, `{"error": "operator identity required"}`, http.StatusUnauthorized)
		return
	}

	op := Operator{ID: claims.Subject, Name: claims.Name}
	if err := h.manager.StartImport(id, op); err != nil {
		if errors.Is(err, ErrValidationBlocked) {
			writeJSON(w, http.StatusConflict, map[string]string{"error": err.Error()})
			return
		}
		h.writeSessionError(w, err)
		return
	}

	h.logger.Info("import started", "session_id", id, "operator", op.ID)
	writeJSON(w, http.StatusAccepted, map[string]string{"session_id": id, "state": string(StateImporting)})
}

// Reset returns a session to the upload state, discarding staged edits and
// any finished run.
// POST /import/sessions/{sessionID}/reset
func (h *Handler) Reset(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "sessionID")
	if err := h.manager.Reset(id); err != nil {
		h.writeSessionError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"session_id": id, "state": string(StateUpload)})
}

// Progress returns the run's current progress record and log.
// GET /import/sessions/{sessionID}/progress
func (h *Handler) Progress(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "sessionID")
	progress, log, state, err := h.manager.Progress(id)
	if err != nil {
		h.writeSessionError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"state":    state,
		"progress": progress,
		"log":      log,
	})
}

// Result returns the final accounting once the run completes.
// GET /import/sessions/{sessionID}/result
func (h *Handler) Result(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "sessionID")
	result, state, err := h.manager.Result(id)
	if err != nil {
		h.writeSessionError(w, err)
		return
	}
	if result == nil {
		writeJSON(w, http.StatusOK, map[string]any{"state": state})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"state": state, "result": result})
}

// Template serves the CSV template for an entity.
// GET /import/templates/{entity}
func (h *Handler) Template(w http.ResponseWriter, r *http.Request) {
	entity, err := ParseEntity(chi.URLParam(r, "entity"))
	if err != nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "unknown entity"})
		return
	}

	filename, content := Template(entity)
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	_, _ = w.Write([]byte(content))
}

// Run serves run records from the run store.
// GET /import/runs/{runID}
func (h *Handler) Run(w http.ResponseWriter, r *http.Request) {
	rec, err := h.manager.LoadRun(r.Context(), chi.URLParam(r, "runID"))
	if err != nil {
		if errors.Is(err, ErrRunNotFound) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "run not found"})
			return
		}
		h.logger.Error("failed to load run record", "error", err)
		http.Error(w, `{"error": "internal server error"}`, http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (h *Handler) writeSessionError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrSessionNotFound):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "import session not found"})
	case errors.Is(err, ErrInvalidState):
		writeJSON(w, http.StatusConflict, map[string]string{"error": err.Error()})
	case errors.Is(err, ErrRowOutOfRange):
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
	default:
		h.logger.Error("import session error", "error", err)
		http.Error(w, `{"error": "internal server error"}`, http.StatusInternalServerError)
	}
}

func (h *Handler) writeParseError(w http.ResponseWriter, err error) {
	if errors.Is(err, ErrEmptyFile) || errors.Is(err, ErrNoDataRows) {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"error": err.Error()})
		return
	}
	h.logger.Error("file parse error", "error", err)
	http.Error(w, `{"error": "internal server error"}`, http.StatusInternalServerError)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
