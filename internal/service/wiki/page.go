package wiki

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/google/uuid"

	"lorebook/internal/config"
	"lorebook/internal/domain"
	"lorebook/internal/domain/models/wiki"
	"lorebook/internal/domain/repositories"
	wikiRepo "lorebook/internal/domain/repositories/wiki"
	wikiSvc "lorebook/internal/domain/services/wiki"
	"lorebook/internal/service/markdown"
	"lorebook/internal/service/policy"
)

// pageService implements the PageService interface
type pageService struct {
	pages       wikiRepo.PageRepository
	directories wikiRepo.DirectoryRepository
	grants      wikiRepo.GrantRepository
	revisions   wikiRepo.RevisionRepository
	links       wikiRepo.PageLinkRepository
	locks       wikiRepo.EditLockRepository
	evaluator   *policy.Evaluator
	renderer    *markdown.Service
	txManager   repositories.TransactionManager
	logger      *slog.Logger
}

// NewPageService creates a new page service
func NewPageService(
	pages wikiRepo.PageRepository,
	directories wikiRepo.DirectoryRepository,
	grants wikiRepo.GrantRepository,
	revisions wikiRepo.RevisionRepository,
	links wikiRepo.PageLinkRepository,
	locks wikiRepo.EditLockRepository,
	evaluator *policy.Evaluator,
	renderer *markdown.Service,
	txManager repositories.TransactionManager,
	logger *slog.Logger,
) wikiSvc.PageService {
	return &pageService{
		pages:       pages,
		directories: directories,
		grants:      grants,
		revisions:   revisions,
		links:       links,
		locks:       locks,
		evaluator:   evaluator,
		renderer:    renderer,
		txManager:   txManager,
		logger:      logger,
	}
}

// CreatePage creates a page inside a directory the principal may edit.
// Visibility defaults to the directory's own visibility (internal for
// root pages) so new pages never silently widen access.
func (s *pageService) CreatePage(ctx context.Context, principal wiki.Principal, req *wikiSvc.CreatePageRequest) (*wiki.Page, error) {
	if !principal.IsAuthenticated() {
		return nil, &domain.UnauthorizedError{Message: "authentication required to create pages"}
	}
	if err := s.validateCreateRequest(req); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}

	ec := policy.NewContext(principal)

	// Resolve the target directory and gate on edit rights. Root pages
	// only need an authenticated principal.
	var dir *wiki.Directory
	if req.DirectoryID != nil {
		var err error
		dir, err = s.directories.GetByID(ctx, *req.DirectoryID)
		if err != nil {
			return nil, fmt.Errorf("load target directory: %w", err)
		}
		ok, err := s.evaluator.CanEditDirectory(ctx, ec, dir)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, &domain.ForbiddenError{Message: "no edit permission on the target directory"}
		}
	}

	visibility, editability := resolvePageSettings(req.Visibility, req.Editability, dir)
	if err := policy.ValidateVisibilityEditability(visibility, editability, directoryVisibility(dir)); err != nil {
		return nil, err
	}

	slug, err := uniqueSlug(ctx, s.pages, req.Title, "")
	if err != nil {
		return nil, err
	}

	now := time.Now()
	page := &wiki.Page{
		ID:            uuid.NewString(),
		Slug:          slug,
		Title:         req.Title,
		Content:       req.Content,
		DirectoryID:   req.DirectoryID,
		OwnerID:       &principal.ID,
		Visibility:    visibility,
		Editability:   editability,
		ChangeMessage: req.ChangeMessage,
		CreatedBy:     &principal.ID,
		UpdatedBy:     &principal.ID,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	err = s.txManager.ExecTx(ctx, func(txCtx context.Context) error {
		if err := s.pages.Create(txCtx, page); err != nil {
			return err
		}
		if err := s.writeRevision(txCtx, page); err != nil {
			return err
		}
		return s.rebuildLinks(txCtx, page)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("page created",
		"id", page.ID,
		"slug", page.Slug,
		"directory_id", req.DirectoryID,
		"visibility", page.Visibility,
		"user_id", principal.ID,
	)

	return page, nil
}

// GetPage retrieves a page the principal may view. Denied access reports
// not-found so hidden pages stay indistinguishable from missing ones.
func (s *pageService) GetPage(ctx context.Context, principal wiki.Principal, id string) (*wiki.Page, error) {
	page, err := s.pages.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.gateView(ctx, principal, page)
}

// GetPageBySlug retrieves a page by its slug
func (s *pageService) GetPageBySlug(ctx context.Context, principal wiki.Principal, slug string) (*wiki.Page, error) {
	page, err := s.pages.GetBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}
	return s.gateView(ctx, principal, page)
}

// RenderPage renders a page's markdown to HTML with wiki links resolved
func (s *pageService) RenderPage(ctx context.Context, principal wiki.Principal, id string) (string, error) {
	page, err := s.GetPage(ctx, principal, id)
	if err != nil {
		return "", err
	}
	rendered, err := s.renderer.Render(ctx, page.Content)
	if err != nil {
		return "", err
	}
	return rendered.HTML, nil
}

// UpdatePage updates a page's content or settings, writes a revision and
// rebuilds its outgoing wiki links. A successful save releases any edit
// lock on the page.
func (s *pageService) UpdatePage(ctx context.Context, principal wiki.Principal, id string, req *wikiSvc.UpdatePageRequest) (*wiki.Page, error) {
	if err := s.validateUpdateRequest(req); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}

	page, err := s.pages.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	ec := policy.NewContext(principal)
	if err := s.gateEdit(ctx, ec, page); err != nil {
		return nil, err
	}

	contentChanged := false
	if req.Title != nil {
		page.Title = *req.Title
	}
	if req.Content != nil && *req.Content != page.Content {
		page.Content = *req.Content
		contentChanged = true
	}
	if req.Visibility != nil {
		page.Visibility = *req.Visibility
	}
	if req.Editability != nil {
		page.Editability = *req.Editability
	}
	page.ChangeMessage = req.ChangeMessage
	page.UpdatedBy = &principal.ID
	page.UpdatedAt = time.Now()

	dir, err := s.pageDirectory(ctx, page)
	if err != nil {
		return nil, err
	}
	if err := policy.ValidateVisibilityEditability(page.Visibility, page.Editability, directoryVisibility(dir)); err != nil {
		return nil, err
	}

	err = s.txManager.ExecTx(ctx, func(txCtx context.Context) error {
		if err := s.pages.Update(txCtx, page); err != nil {
			return err
		}
		if err := s.writeRevision(txCtx, page); err != nil {
			return err
		}
		if contentChanged {
			if err := s.rebuildLinks(txCtx, page); err != nil {
				return err
			}
		}
		return s.locks.ReleaseForPage(txCtx, page.ID)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("page updated",
		"id", page.ID,
		"slug", page.Slug,
		"content_changed", contentChanged,
		"user_id", principal.ID,
	)

	return page, nil
}

// MovePage moves a page to another directory. The principal needs edit
// rights on the page and on the destination, and the page's visibility
// must not exceed the destination's.
func (s *pageService) MovePage(ctx context.Context, principal wiki.Principal, id string, req *wikiSvc.MovePageRequest) (*wiki.Page, error) {
	page, err := s.pages.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	ec := policy.NewContext(principal)
	if err := s.gateEdit(ctx, ec, page); err != nil {
		return nil, err
	}

	var dest *wiki.Directory
	if req.DirectoryID != nil {
		dest, err = s.directories.GetByID(ctx, *req.DirectoryID)
		if err != nil {
			return nil, fmt.Errorf("load destination directory: %w", err)
		}
		ok, err := s.evaluator.CanEditDirectory(ctx, ec, dest)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, &domain.ForbiddenError{Message: "no edit permission on the destination directory"}
		}
	}

	if err := policy.ValidateVisibilityEditability(page.Visibility, page.Editability, directoryVisibility(dest)); err != nil {
		return nil, err
	}

	page.DirectoryID = req.DirectoryID
	page.ChangeMessage = "moved"
	page.UpdatedBy = &principal.ID
	page.UpdatedAt = time.Now()

	err = s.txManager.ExecTx(ctx, func(txCtx context.Context) error {
		if err := s.pages.Update(txCtx, page); err != nil {
			return err
		}
		return s.writeRevision(txCtx, page)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("page moved",
		"id", page.ID,
		"directory_id", req.DirectoryID,
		"user_id", principal.ID,
	)

	return page, nil
}

// DeletePage deletes a page. Only the page owner or the system owner may;
// an edit grant is not enough.
func (s *pageService) DeletePage(ctx context.Context, principal wiki.Principal, id string) error {
	page, err := s.pages.GetByID(ctx, id)
	if err != nil {
		return err
	}

	ec := policy.NewContext(principal)
	if _, err := s.gateView(ctx, principal, page); err != nil {
		return err
	}
	allowed, err := s.isOwnerOrSystemOwner(ctx, ec, page.OwnerID)
	if err != nil {
		return err
	}
	if !allowed {
		return &domain.ForbiddenError{Message: "only the page owner may delete it"}
	}

	err = s.txManager.ExecTx(ctx, func(txCtx context.Context) error {
		if err := s.grants.DeleteForTarget(txCtx, wiki.TargetPage, page.ID); err != nil {
			return err
		}
		if err := s.links.Replace(txCtx, page.ID, nil); err != nil {
			return err
		}
		if err := s.locks.ReleaseForPage(txCtx, page.ID); err != nil {
			return err
		}
		return s.pages.Delete(txCtx, page.ID)
	})
	if err != nil {
		return err
	}

	s.logger.Info("page deleted", "id", page.ID, "slug", page.Slug, "user_id", principal.ID)
	return nil
}

// ListPages lists the pages in a directory the principal may view
func (s *pageService) ListPages(ctx context.Context, principal wiki.Principal, directoryID *string) ([]wiki.Page, error) {
	pages, err := s.pages.ListByDirectory(ctx, directoryID)
	if err != nil {
		return nil, err
	}
	return s.filterViewable(ctx, principal, pages)
}

// SearchPages runs a full-text search and drops hits the principal may
// not view. Pagination applies before filtering, so a result page can
// come back shorter than the limit.
func (s *pageService) SearchPages(ctx context.Context, principal wiki.Principal, req *wikiSvc.SearchPagesRequest) ([]wiki.SearchResult, error) {
	if err := validation.ValidateStruct(req,
		validation.Field(&req.Query, validation.Required, validation.Length(1, 500)),
		validation.Field(&req.Limit, validation.Min(0), validation.Max(config.MaxSearchLimit)),
		validation.Field(&req.Offset, validation.Min(0)),
	); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}

	limit := req.Limit
	if limit == 0 {
		limit = config.DefaultSearchLimit
	}

	results, err := s.pages.Search(ctx, &wikiRepo.SearchOptions{
		Query:       req.Query,
		DirectoryID: req.DirectoryID,
		Limit:       limit,
		Offset:      req.Offset,
	})
	if err != nil {
		return nil, err
	}

	ec := policy.NewContext(principal)
	visible := make([]wiki.SearchResult, 0, len(results))
	for i := range results {
		ok, err := s.evaluator.CanViewPage(ctx, ec, &results[i].Page)
		if err != nil {
			return nil, err
		}
		if ok {
			visible = append(visible, results[i])
		}
	}

	return visible, nil
}

// ListRevisions lists a page's snapshots, newest first
func (s *pageService) ListRevisions(ctx context.Context, principal wiki.Principal, pageID string, limit int) ([]wiki.PageRevision, error) {
	if _, err := s.GetPage(ctx, principal, pageID); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = config.DefaultRevisionLimit
	}
	return s.revisions.ListPageRevisions(ctx, pageID, limit)
}

// ListBacklinks lists the viewable pages that link to pageID
func (s *pageService) ListBacklinks(ctx context.Context, principal wiki.Principal, pageID string) ([]wiki.Page, error) {
	if _, err := s.GetPage(ctx, principal, pageID); err != nil {
		return nil, err
	}

	incoming, err := s.links.ListIncoming(ctx, pageID)
	if err != nil {
		return nil, err
	}

	ec := policy.NewContext(principal)
	var sources []wiki.Page
	for _, link := range incoming {
		page, err := s.pages.GetByID(ctx, link.FromPageID)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				continue
			}
			return nil, err
		}
		ok, err := s.evaluator.CanViewPage(ctx, ec, page)
		if err != nil {
			return nil, err
		}
		if ok {
			sources = append(sources, *page)
		}
	}

	return sources, nil
}

// gateView maps a view denial to not-found.
func (s *pageService) gateView(ctx context.Context, principal wiki.Principal, page *wiki.Page) (*wiki.Page, error) {
	ec := policy.NewContext(principal)
	ok, err := s.evaluator.CanViewPage(ctx, ec, page)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, &domain.NotFoundError{Message: "page not found"}
	}
	return page, nil
}

// gateEdit hides unviewable pages as not-found and rejects viewable but
// uneditable ones as forbidden.
func (s *pageService) gateEdit(ctx context.Context, ec *policy.Context, page *wiki.Page) error {
	canView, err := s.evaluator.CanViewPage(ctx, ec, page)
	if err != nil {
		return err
	}
	if !canView {
		return &domain.NotFoundError{Message: "page not found"}
	}
	canEdit, err := s.evaluator.CanEditPage(ctx, ec, page)
	if err != nil {
		return err
	}
	if !canEdit {
		return &domain.ForbiddenError{Message: "no edit permission on this page"}
	}
	return nil
}

// filterViewable keeps the pages the principal may view, sharing one
// evaluation context across the batch.
func (s *pageService) filterViewable(ctx context.Context, principal wiki.Principal, pages []wiki.Page) ([]wiki.Page, error) {
	ec := policy.NewContext(principal)
	visible := make([]wiki.Page, 0, len(pages))
	for i := range pages {
		ok, err := s.evaluator.CanViewPage(ctx, ec, &pages[i])
		if err != nil {
			return nil, err
		}
		if ok {
			visible = append(visible, pages[i])
		}
	}
	return visible, nil
}

// isOwnerOrSystemOwner checks the delete privilege.
func (s *pageService) isOwnerOrSystemOwner(ctx context.Context, ec *policy.Context, ownerID *string) (bool, error) {
	if ec.Principal.IsAuthenticated() && ownerID != nil && *ownerID == ec.Principal.ID {
		return true, nil
	}
	return s.evaluator.IsSystemOwner(ctx, ec)
}

// pageDirectory loads the page's directory, nil for root pages.
func (s *pageService) pageDirectory(ctx context.Context, page *wiki.Page) (*wiki.Directory, error) {
	if page.DirectoryID == nil {
		return nil, nil
	}
	dir, err := s.directories.GetByID(ctx, *page.DirectoryID)
	if err != nil {
		return nil, fmt.Errorf("load page directory: %w", err)
	}
	return dir, nil
}

// writeRevision snapshots the page's current state.
func (s *pageService) writeRevision(ctx context.Context, page *wiki.Page) error {
	return s.revisions.CreatePageRevision(ctx, &wiki.PageRevision{
		ID:            uuid.NewString(),
		PageID:        page.ID,
		Title:         page.Title,
		Content:       page.Content,
		Visibility:    page.Visibility,
		Editability:   page.Editability,
		ChangeMessage: page.ChangeMessage,
		CreatedBy:     page.UpdatedBy,
		CreatedAt:     page.UpdatedAt,
	})
}

// rebuildLinks rewrites the page's outgoing wiki links from its content.
// Unknown slugs resolve to nothing; they become links when the target
// page is created and this page is next saved.
func (s *pageService) rebuildLinks(ctx context.Context, page *wiki.Page) error {
	slugs := markdown.ExtractSlugs(page.Content)
	if len(slugs) == 0 {
		return s.links.Replace(ctx, page.ID, nil)
	}

	targets, err := s.pages.GetBySlugs(ctx, slugs)
	if err != nil {
		return fmt.Errorf("resolve wiki links: %w", err)
	}
	ids := make([]string, 0, len(targets))
	for i := range targets {
		if targets[i].ID == page.ID {
			continue // self links are not tracked
		}
		ids = append(ids, targets[i].ID)
	}

	return s.links.Replace(ctx, page.ID, ids)
}

// resolvePageSettings fills unset visibility and editability from the
// directory: pages inherit their directory's visibility (internal at the
// root) and default to restricted editing.
func resolvePageSettings(visibility *wiki.Visibility, editability *wiki.Editability, dir *wiki.Directory) (wiki.Visibility, wiki.Editability) {
	vis := wiki.VisibilityInternal
	if dir != nil {
		vis = dir.Visibility
	}
	if visibility != nil {
		vis = *visibility
	}

	edit := wiki.EditabilityRestricted
	if editability != nil {
		edit = *editability
	}

	return vis, edit
}

// directoryVisibility is the openness bound for a page's directory, nil
// at the root.
func directoryVisibility(dir *wiki.Directory) *wiki.Visibility {
	if dir == nil {
		return nil
	}
	vis := dir.Visibility
	return &vis
}

func (s *pageService) validateCreateRequest(req *wikiSvc.CreatePageRequest) error {
	if err := validateSettings(req.Visibility, req.Editability); err != nil {
		return err
	}
	return validation.ValidateStruct(req,
		validation.Field(&req.Title,
			validation.Required,
			validation.Length(1, config.MaxPageTitleLength),
		),
		validation.Field(&req.Content, validation.Length(0, config.MaxPageContentLength)),
		validation.Field(&req.ChangeMessage, validation.Length(0, config.MaxChangeMessageLength)),
	)
}

func (s *pageService) validateUpdateRequest(req *wikiSvc.UpdatePageRequest) error {
	if err := validateSettings(req.Visibility, req.Editability); err != nil {
		return err
	}
	return validation.ValidateStruct(req,
		validation.Field(&req.Title, validation.NilOrNotEmpty, validation.Length(1, config.MaxPageTitleLength)),
		validation.Field(&req.Content, validation.Length(0, config.MaxPageContentLength)),
		validation.Field(&req.ChangeMessage, validation.Length(0, config.MaxChangeMessageLength)),
	)
}

// validateSettings rejects unknown visibility or editability values.
func validateSettings(visibility *wiki.Visibility, editability *wiki.Editability) error {
	if visibility != nil && !visibility.Valid() {
		return fmt.Errorf("unknown visibility %q", *visibility)
	}
	if editability != nil && !editability.Valid() {
		return fmt.Errorf("unknown editability %q", *editability)
	}
	return nil
}
