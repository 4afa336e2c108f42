package handler

import (
	"log/slog"
	"net/http"

	wikiSvc "lorebook/internal/domain/services/wiki"
	"lorebook/internal/httputil"
)

// LockHandler handles advisory edit lock HTTP requests
type LockHandler struct {
	lockService wikiSvc.EditLockService
	logger      *slog.Logger
}

// NewLockHandler creates a new edit lock handler
func NewLockHandler(lockService wikiSvc.EditLockService, logger *slog.Logger) *LockHandler {
	return &LockHandler{
		lockService: lockService,
		logger:      logger,
	}
}

// acquireLockBody is the request body for lock acquisition
type acquireLockBody struct {
	Steal bool `json:"steal,omitempty"`
}

// AcquirePageLock takes the edit lock on a page
// POST /api/pages/{id}/lock
func (h *LockHandler) AcquirePageLock(w http.ResponseWriter, r *http.Request) {
	principal := httputil.GetPrincipal(r)

	id := r.PathValue("id")
	if id == "" {
		httputil.RespondError(w, http.StatusBadRequest, "Page ID is required")
		return
	}

	var body acquireLockBody
	if r.ContentLength > 0 {
		if err := httputil.ParseJSON(w, r, &body); err != nil {
			httputil.RespondError(w, http.StatusBadRequest, "Invalid request body")
			return
		}
	}

	lock, err := h.lockService.AcquirePageLock(r.Context(), principal, id, body.Steal)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusCreated, lock)
}

// ReleasePageLock drops the locks on a page
// DELETE /api/pages/{id}/lock
func (h *LockHandler) ReleasePageLock(w http.ResponseWriter, r *http.Request) {
	principal := httputil.GetPrincipal(r)

	id := r.PathValue("id")
	if id == "" {
		httputil.RespondError(w, http.StatusBadRequest, "Page ID is required")
		return
	}

	if err := h.lockService.ReleasePageLock(r.Context(), principal, id); err != nil {
		handleError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// AcquireDirectoryLock takes the edit lock on a directory
// POST /api/directories/{id}/lock
func (h *LockHandler) AcquireDirectoryLock(w http.ResponseWriter, r *http.Request) {
	principal := httputil.GetPrincipal(r)

	id := r.PathValue("id")
	if id == "" {
		httputil.RespondError(w, http.StatusBadRequest, "Directory ID is required")
		return
	}

	var body acquireLockBody
	if r.ContentLength > 0 {
		if err := httputil.ParseJSON(w, r, &body); err != nil {
			httputil.RespondError(w, http.StatusBadRequest, "Invalid request body")
			return
		}
	}

	lock, err := h.lockService.AcquireDirectoryLock(r.Context(), principal, id, body.Steal)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusCreated, lock)
}

// ReleaseDirectoryLock drops the locks on a directory
// DELETE /api/directories/{id}/lock
func (h *LockHandler) ReleaseDirectoryLock(w http.ResponseWriter, r *http.Request) {
	principal := httputil.GetPrincipal(r)

	id := r.PathValue("id")
	if id == "" {
		httputil.RespondError(w, http.StatusBadRequest, "Directory ID is required")
		return
	}

	if err := h.lockService.ReleaseDirectoryLock(r.Context(), principal, id); err != nil {
		handleError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
