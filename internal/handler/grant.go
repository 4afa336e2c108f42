package handler

import (
	"log/slog"
	"net/http"

	"lorebook/internal/domain/models/wiki"
	wikiSvc "lorebook/internal/domain/services/wiki"
	"lorebook/internal/httputil"
)

// GrantHandler handles permission grant HTTP requests. Grants are
// exposed as a subresource of pages and directories.
type GrantHandler struct {
	grantService wikiSvc.GrantService
	logger       *slog.Logger
}

// NewGrantHandler creates a new grant handler
func NewGrantHandler(grantService wikiSvc.GrantService, logger *slog.Logger) *GrantHandler {
	return &GrantHandler{
		grantService: grantService,
		logger:       logger,
	}
}

// ListPageGrants lists the grants on a page
// GET /api/pages/{id}/grants
func (h *GrantHandler) ListPageGrants(w http.ResponseWriter, r *http.Request) {
	h.listGrants(w, r, wiki.TargetPage)
}

// ListDirectoryGrants lists the grants on a directory
// GET /api/directories/{id}/grants
func (h *GrantHandler) ListDirectoryGrants(w http.ResponseWriter, r *http.Request) {
	h.listGrants(w, r, wiki.TargetDirectory)
}

func (h *GrantHandler) listGrants(w http.ResponseWriter, r *http.Request, targetType wiki.TargetType) {
	principal := httputil.GetPrincipal(r)

	id := r.PathValue("id")
	if id == "" {
		httputil.RespondError(w, http.StatusBadRequest, "Target ID is required")
		return
	}

	grants, err := h.grantService.ListGrants(r.Context(), principal, targetType, id)
	if err != nil {
		handleError(w, err)
		return
	}
	if grants == nil {
		grants = []wiki.Grant{}
	}

	httputil.RespondJSON(w, http.StatusOK, grants)
}

// addGrantBody is the request body for grant creation; the target comes
// from the URL.
type addGrantBody struct {
	PrincipalKind wiki.PrincipalKind  `json:"principal_kind"`
	PrincipalID   string              `json:"principal_id"`
	Permission    wiki.PermissionType `json:"permission"`
}

// AddPageGrant adds a grant on a page
// POST /api/pages/{id}/grants
func (h *GrantHandler) AddPageGrant(w http.ResponseWriter, r *http.Request) {
	h.addGrant(w, r, wiki.TargetPage)
}

// AddDirectoryGrant adds a grant on a directory
// POST /api/directories/{id}/grants
func (h *GrantHandler) AddDirectoryGrant(w http.ResponseWriter, r *http.Request) {
	h.addGrant(w, r, wiki.TargetDirectory)
}

func (h *GrantHandler) addGrant(w http.ResponseWriter, r *http.Request, targetType wiki.TargetType) {
	principal := httputil.GetPrincipal(r)

	id := r.PathValue("id")
	if id == "" {
		httputil.RespondError(w, http.StatusBadRequest, "Target ID is required")
		return
	}

	var body addGrantBody
	if err := httputil.ParseJSON(w, r, &body); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	grant, err := h.grantService.AddGrant(r.Context(), principal, &wikiSvc.AddGrantRequest{
		TargetType:    targetType,
		TargetID:      id,
		PrincipalKind: body.PrincipalKind,
		PrincipalID:   body.PrincipalID,
		Permission:    body.Permission,
	})
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusCreated, grant)
}

// RemoveGrant deletes a grant by ID
// DELETE /api/grants/{id}
func (h *GrantHandler) RemoveGrant(w http.ResponseWriter, r *http.Request) {
	principal := httputil.GetPrincipal(r)

	id := r.PathValue("id")
	if id == "" {
		httputil.RespondError(w, http.StatusBadRequest, "Grant ID is required")
		return
	}

	if err := h.grantService.RemoveGrant(r.Context(), principal, id); err != nil {
		handleError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
