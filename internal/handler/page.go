package handler

import (
	"log/slog"
	"net/http"
	"strconv"

	"lorebook/internal/config"
	"lorebook/internal/domain/models/wiki"
	wikiSvc "lorebook/internal/domain/services/wiki"
	"lorebook/internal/httputil"
)

// PageHandler handles page HTTP requests
type PageHandler struct {
	pageService wikiSvc.PageService
	logger      *slog.Logger
}

// NewPageHandler creates a new page handler
func NewPageHandler(pageService wikiSvc.PageService, logger *slog.Logger) *PageHandler {
	return &PageHandler{
		pageService: pageService,
		logger:      logger,
	}
}

// CreatePage creates a new page
// POST /api/pages
func (h *PageHandler) CreatePage(w http.ResponseWriter, r *http.Request) {
	principal := httputil.GetPrincipal(r)

	var req wikiSvc.CreatePageRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	page, err := h.pageService.CreatePage(r.Context(), principal, &req)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusCreated, page)
}

// GetPage retrieves a page by ID
// GET /api/pages/{id}
func (h *PageHandler) GetPage(w http.ResponseWriter, r *http.Request) {
	principal := httputil.GetPrincipal(r)

	id := r.PathValue("id")
	if id == "" {
		httputil.RespondError(w, http.StatusBadRequest, "Page ID is required")
		return
	}

	page, err := h.pageService.GetPage(r.Context(), principal, id)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, page)
}

// GetPageBySlug retrieves a page by slug
// GET /api/pages/slug/{slug}
func (h *PageHandler) GetPageBySlug(w http.ResponseWriter, r *http.Request) {
	principal := httputil.GetPrincipal(r)

	slug := r.PathValue("slug")
	if slug == "" {
		httputil.RespondError(w, http.StatusBadRequest, "Page slug is required")
		return
	}

	page, err := h.pageService.GetPageBySlug(r.Context(), principal, slug)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, page)
}

// RenderPage renders a page's markdown to HTML with wiki links resolved
// GET /api/pages/{id}/rendered
func (h *PageHandler) RenderPage(w http.ResponseWriter, r *http.Request) {
	principal := httputil.GetPrincipal(r)

	id := r.PathValue("id")
	if id == "" {
		httputil.RespondError(w, http.StatusBadRequest, "Page ID is required")
		return
	}

	html, err := h.pageService.RenderPage(r.Context(), principal, id)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, map[string]string{"html": html})
}

// UpdatePage updates a page
// PATCH /api/pages/{id}
func (h *PageHandler) UpdatePage(w http.ResponseWriter, r *http.Request) {
	principal := httputil.GetPrincipal(r)

	id := r.PathValue("id")
	if id == "" {
		httputil.RespondError(w, http.StatusBadRequest, "Page ID is required")
		return
	}

	var req wikiSvc.UpdatePageRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	page, err := h.pageService.UpdatePage(r.Context(), principal, id, &req)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, page)
}

// movePageBody distinguishes "directory_id": null (move to root) from
// an absent field, which is rejected.
type movePageBody struct {
	DirectoryID httputil.OptionalString `json:"directory_id"`
}

// MovePage moves a page to another directory
// POST /api/pages/{id}/move
func (h *PageHandler) MovePage(w http.ResponseWriter, r *http.Request) {
	principal := httputil.GetPrincipal(r)

	id := r.PathValue("id")
	if id == "" {
		httputil.RespondError(w, http.StatusBadRequest, "Page ID is required")
		return
	}

	var body movePageBody
	if err := httputil.ParseJSON(w, r, &body); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if !body.DirectoryID.Present {
		httputil.RespondError(w, http.StatusBadRequest, "directory_id is required (null moves to the root)")
		return
	}

	page, err := h.pageService.MovePage(r.Context(), principal, id, &wikiSvc.MovePageRequest{
		DirectoryID: body.DirectoryID.Value,
	})
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, page)
}

// DeletePage deletes a page
// DELETE /api/pages/{id}
func (h *PageHandler) DeletePage(w http.ResponseWriter, r *http.Request) {
	principal := httputil.GetPrincipal(r)

	id := r.PathValue("id")
	if id == "" {
		httputil.RespondError(w, http.StatusBadRequest, "Page ID is required")
		return
	}

	if err := h.pageService.DeletePage(r.Context(), principal, id); err != nil {
		handleError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// ListPages lists pages in a directory (no directory_id = root pages)
// GET /api/pages?directory_id={id}
func (h *PageHandler) ListPages(w http.ResponseWriter, r *http.Request) {
	principal := httputil.GetPrincipal(r)

	var directoryID *string
	if v := r.URL.Query().Get("directory_id"); v != "" {
		directoryID = &v
	}

	pages, err := h.pageService.ListPages(r.Context(), principal, directoryID)
	if err != nil {
		handleError(w, err)
		return
	}
	if pages == nil {
		pages = []wiki.Page{}
	}

	httputil.RespondJSON(w, http.StatusOK, pages)
}

// SearchPages runs a full-text search over viewable pages
// GET /api/pages/search?q={query}&directory_id={id}&limit={n}&offset={n}
func (h *PageHandler) SearchPages(w http.ResponseWriter, r *http.Request) {
	principal := httputil.GetPrincipal(r)

	query := r.URL.Query()
	req := wikiSvc.SearchPagesRequest{
		Query:  query.Get("q"),
		Limit:  parseIntParam(query.Get("limit"), 0),
		Offset: parseIntParam(query.Get("offset"), 0),
	}
	if v := query.Get("directory_id"); v != "" {
		req.DirectoryID = &v
	}

	results, err := h.pageService.SearchPages(r.Context(), principal, &req)
	if err != nil {
		handleError(w, err)
		return
	}
	if results == nil {
		results = []wiki.SearchResult{}
	}

	httputil.RespondJSON(w, http.StatusOK, results)
}

// ListRevisions lists a page's revision history, newest first
// GET /api/pages/{id}/revisions?limit={n}
func (h *PageHandler) ListRevisions(w http.ResponseWriter, r *http.Request) {
	principal := httputil.GetPrincipal(r)

	id := r.PathValue("id")
	if id == "" {
		httputil.RespondError(w, http.StatusBadRequest, "Page ID is required")
		return
	}

	limit := parseIntParam(r.URL.Query().Get("limit"), config.DefaultRevisionLimit)

	revisions, err := h.pageService.ListRevisions(r.Context(), principal, id, limit)
	if err != nil {
		handleError(w, err)
		return
	}
	if revisions == nil {
		revisions = []wiki.PageRevision{}
	}

	httputil.RespondJSON(w, http.StatusOK, revisions)
}

// ListBacklinks lists viewable pages linking to this page
// GET /api/pages/{id}/backlinks
func (h *PageHandler) ListBacklinks(w http.ResponseWriter, r *http.Request) {
	principal := httputil.GetPrincipal(r)

	id := r.PathValue("id")
	if id == "" {
		httputil.RespondError(w, http.StatusBadRequest, "Page ID is required")
		return
	}

	pages, err := h.pageService.ListBacklinks(r.Context(), principal, id)
	if err != nil {
		handleError(w, err)
		return
	}
	if pages == nil {
		pages = []wiki.Page{}
	}

	httputil.RespondJSON(w, http.StatusOK, pages)
}

// parseIntParam parses a query parameter, falling back on empty or
// malformed input
func parseIntParam(value string, fallback int) int {
	if value == "" {
		return fallback
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return n
}
