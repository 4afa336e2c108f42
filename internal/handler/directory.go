package handler

import (
	"log/slog"
	"net/http"

	"lorebook/internal/domain/models/wiki"
	wikiSvc "lorebook/internal/domain/services/wiki"
	"lorebook/internal/httputil"
)

// DirectoryHandler handles directory HTTP requests
type DirectoryHandler struct {
	dirService wikiSvc.DirectoryService
	logger     *slog.Logger
}

// NewDirectoryHandler creates a new directory handler
func NewDirectoryHandler(dirService wikiSvc.DirectoryService, logger *slog.Logger) *DirectoryHandler {
	return &DirectoryHandler{
		dirService: dirService,
		logger:     logger,
	}
}

// CreateDirectory creates a new directory
// POST /api/directories
func (h *DirectoryHandler) CreateDirectory(w http.ResponseWriter, r *http.Request) {
	principal := httputil.GetPrincipal(r)

	var req wikiSvc.CreateDirectoryRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	dir, err := h.dirService.CreateDirectory(r.Context(), principal, &req)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusCreated, dir)
}

// GetDirectory retrieves a directory by ID
// GET /api/directories/{id}
func (h *DirectoryHandler) GetDirectory(w http.ResponseWriter, r *http.Request) {
	principal := httputil.GetPrincipal(r)

	id := r.PathValue("id")
	if id == "" {
		httputil.RespondError(w, http.StatusBadRequest, "Directory ID is required")
		return
	}

	dir, err := h.dirService.GetDirectory(r.Context(), principal, id)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, dir)
}

// GetDirectoryByPath retrieves a directory by its materialized path.
// The root has the empty path.
// GET /api/directories/by-path?path={path}
func (h *DirectoryHandler) GetDirectoryByPath(w http.ResponseWriter, r *http.Request) {
	principal := httputil.GetPrincipal(r)

	path := r.URL.Query().Get("path")

	dir, err := h.dirService.GetDirectoryByPath(r.Context(), principal, path)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, dir)
}

// UpdateDirectory updates a directory's metadata or settings
// PATCH /api/directories/{id}
func (h *DirectoryHandler) UpdateDirectory(w http.ResponseWriter, r *http.Request) {
	principal := httputil.GetPrincipal(r)

	id := r.PathValue("id")
	if id == "" {
		httputil.RespondError(w, http.StatusBadRequest, "Directory ID is required")
		return
	}

	var req wikiSvc.UpdateDirectoryRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	dir, err := h.dirService.UpdateDirectory(r.Context(), principal, id, &req)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, dir)
}

// moveDirectoryBody distinguishes "parent_id": null (move under the
// root) from an absent field, which is rejected.
type moveDirectoryBody struct {
	ParentID httputil.OptionalString `json:"parent_id"`
}

// MoveDirectory reparents a directory
// POST /api/directories/{id}/move
func (h *DirectoryHandler) MoveDirectory(w http.ResponseWriter, r *http.Request) {
	principal := httputil.GetPrincipal(r)

	id := r.PathValue("id")
	if id == "" {
		httputil.RespondError(w, http.StatusBadRequest, "Directory ID is required")
		return
	}

	var body moveDirectoryBody
	if err := httputil.ParseJSON(w, r, &body); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if !body.ParentID.Present {
		httputil.RespondError(w, http.StatusBadRequest, "parent_id is required (null moves under the root)")
		return
	}

	dir, err := h.dirService.MoveDirectory(r.Context(), principal, id, &wikiSvc.MoveDirectoryRequest{
		ParentID: body.ParentID.Value,
	})
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, dir)
}

// DeleteDirectory deletes an empty directory
// DELETE /api/directories/{id}
func (h *DirectoryHandler) DeleteDirectory(w http.ResponseWriter, r *http.Request) {
	principal := httputil.GetPrincipal(r)

	id := r.PathValue("id")
	if id == "" {
		httputil.RespondError(w, http.StatusBadRequest, "Directory ID is required")
		return
	}

	if err := h.dirService.DeleteDirectory(r.Context(), principal, id); err != nil {
		handleError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// ListChildren lists viewable child directories
// GET /api/directories?parent_id={id}
func (h *DirectoryHandler) ListChildren(w http.ResponseWriter, r *http.Request) {
	principal := httputil.GetPrincipal(r)

	var parentID *string
	if v := r.URL.Query().Get("parent_id"); v != "" {
		parentID = &v
	}

	dirs, err := h.dirService.ListChildren(r.Context(), principal, parentID)
	if err != nil {
		handleError(w, err)
		return
	}
	if dirs == nil {
		dirs = []wiki.Directory{}
	}

	httputil.RespondJSON(w, http.StatusOK, dirs)
}

// Breadcrumbs returns the viewable ancestor chain, root first
// GET /api/directories/{id}/breadcrumbs
func (h *DirectoryHandler) Breadcrumbs(w http.ResponseWriter, r *http.Request) {
	principal := httputil.GetPrincipal(r)

	id := r.PathValue("id")
	if id == "" {
		httputil.RespondError(w, http.StatusBadRequest, "Directory ID is required")
		return
	}

	crumbs, err := h.dirService.Breadcrumbs(r.Context(), principal, id)
	if err != nil {
		handleError(w, err)
		return
	}
	if crumbs == nil {
		crumbs = []wiki.Directory{}
	}

	httputil.RespondJSON(w, http.StatusOK, crumbs)
}

// ApplyPermissions pushes the directory's settings and grants onto its
// contents
// POST /api/directories/{id}/apply-permissions
func (h *DirectoryHandler) ApplyPermissions(w http.ResponseWriter, r *http.Request) {
	principal := httputil.GetPrincipal(r)

	id := r.PathValue("id")
	if id == "" {
		httputil.RespondError(w, http.StatusBadRequest, "Directory ID is required")
		return
	}

	var req wikiSvc.ApplyPermissionsRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	result, err := h.dirService.ApplyPermissions(r.Context(), principal, id, &req)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, result)
}
