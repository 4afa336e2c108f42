package wiki

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/google/uuid"

	"lorebook/internal/config"
	"lorebook/internal/domain"
	"lorebook/internal/domain/models/wiki"
	"lorebook/internal/domain/repositories"
	wikiRepo "lorebook/internal/domain/repositories/wiki"
	wikiSvc "lorebook/internal/domain/services/wiki"
	"lorebook/internal/service/policy"
)

// directoryService implements the DirectoryService interface
type directoryService struct {
	directories wikiRepo.DirectoryRepository
	grants      wikiRepo.GrantRepository
	revisions   wikiRepo.RevisionRepository
	locks       wikiRepo.EditLockRepository
	evaluator   *policy.Evaluator
	propagator  *policy.Propagator
	txManager   repositories.TransactionManager
	logger      *slog.Logger
}

// NewDirectoryService creates a new directory service
func NewDirectoryService(
	directories wikiRepo.DirectoryRepository,
	grants wikiRepo.GrantRepository,
	revisions wikiRepo.RevisionRepository,
	locks wikiRepo.EditLockRepository,
	evaluator *policy.Evaluator,
	propagator *policy.Propagator,
	txManager repositories.TransactionManager,
	logger *slog.Logger,
) wikiSvc.DirectoryService {
	return &directoryService{
		directories: directories,
		grants:      grants,
		revisions:   revisions,
		locks:       locks,
		evaluator:   evaluator,
		propagator:  propagator,
		txManager:   txManager,
		logger:      logger,
	}
}

// CreateDirectory creates a directory under a parent the principal may
// edit. Visibility defaults to the parent's so new directories never
// silently widen access.
func (s *directoryService) CreateDirectory(ctx context.Context, principal wiki.Principal, req *wikiSvc.CreateDirectoryRequest) (*wiki.Directory, error) {
	if !principal.IsAuthenticated() {
		return nil, &domain.UnauthorizedError{Message: "authentication required to create directories"}
	}
	if err := s.validateCreateRequest(req); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}

	parent, err := s.resolveParent(ctx, req.ParentID)
	if err != nil {
		return nil, err
	}

	ec := policy.NewContext(principal)
	ok, err := s.evaluator.CanEditDirectory(ctx, ec, parent)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, &domain.ForbiddenError{Message: "no edit permission on the parent directory"}
	}

	visibility := parent.Visibility
	if req.Visibility != nil {
		visibility = *req.Visibility
	}
	editability := wiki.EditabilityRestricted
	if req.Editability != nil {
		editability = *req.Editability
	}
	if err := policy.ValidateVisibilityEditability(visibility, editability, nil); err != nil {
		return nil, err
	}

	now := time.Now()
	dir := &wiki.Directory{
		ID:          uuid.NewString(),
		ParentID:    &parent.ID,
		Path:        childPath(parent, req.Title),
		Title:       req.Title,
		Description: req.Description,
		OwnerID:     &principal.ID,
		Visibility:  visibility,
		Editability: editability,
		CreatedBy:   &principal.ID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	err = s.txManager.ExecTx(ctx, func(txCtx context.Context) error {
		if err := s.directories.Create(txCtx, dir); err != nil {
			return err
		}
		return s.writeRevision(txCtx, dir, "created")
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("directory created",
		"id", dir.ID,
		"path", dir.Path,
		"visibility", dir.Visibility,
		"user_id", principal.ID,
	)

	return dir, nil
}

// GetDirectory retrieves a directory the principal may view. Denied
// access reports not-found.
func (s *directoryService) GetDirectory(ctx context.Context, principal wiki.Principal, id string) (*wiki.Directory, error) {
	dir, err := s.directories.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.gateView(ctx, principal, dir)
}

// GetDirectoryByPath retrieves a directory by its materialized path
func (s *directoryService) GetDirectoryByPath(ctx context.Context, principal wiki.Principal, path string) (*wiki.Directory, error) {
	dir, err := s.directories.GetByPath(ctx, strings.Trim(path, "/"))
	if err != nil {
		return nil, err
	}
	return s.gateView(ctx, principal, dir)
}

// UpdateDirectory updates a directory's metadata or settings. Renames
// rewrite the paths of the whole subtree. Lowering visibility does not
// re-validate pages underneath; previously valid public pages keep their
// read-time public access.
func (s *directoryService) UpdateDirectory(ctx context.Context, principal wiki.Principal, id string, req *wikiSvc.UpdateDirectoryRequest) (*wiki.Directory, error) {
	if err := s.validateUpdateRequest(req); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}

	dir, err := s.directories.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	ec := policy.NewContext(principal)
	if err := s.gateEdit(ctx, ec, dir); err != nil {
		return nil, err
	}

	oldPath := dir.Path
	if req.Title != nil && *req.Title != dir.Title {
		if dir.IsRoot() {
			return nil, fmt.Errorf("%w: the root directory cannot be renamed", domain.ErrValidation)
		}
		dir.Title = *req.Title
		parent, err := s.directories.GetByID(ctx, *dir.ParentID)
		if err != nil {
			return nil, fmt.Errorf("load parent directory: %w", err)
		}
		dir.Path = childPath(parent, dir.Title)
	}
	if req.Description != nil {
		dir.Description = *req.Description
	}
	if req.Visibility != nil {
		dir.Visibility = *req.Visibility
	}
	if req.Editability != nil {
		dir.Editability = *req.Editability
	}
	if err := policy.ValidateVisibilityEditability(dir.Visibility, dir.Editability, nil); err != nil {
		return nil, err
	}
	dir.UpdatedAt = time.Now()

	err = s.txManager.ExecTx(ctx, func(txCtx context.Context) error {
		if err := s.directories.Update(txCtx, dir); err != nil {
			return err
		}
		if dir.Path != oldPath {
			if err := s.directories.UpdateSubtreePaths(txCtx, oldPath+"/", dir.Path+"/"); err != nil {
				return err
			}
		}
		if err := s.writeRevision(txCtx, dir, "updated"); err != nil {
			return err
		}
		return s.locks.ReleaseForDirectory(txCtx, dir.ID)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("directory updated", "id", dir.ID, "path", dir.Path, "user_id", principal.ID)
	return dir, nil
}

// MoveDirectory reparents a directory. Moving a directory into itself or
// its own subtree is rejected; this is the structural gate that keeps
// the tree acyclic.
func (s *directoryService) MoveDirectory(ctx context.Context, principal wiki.Principal, id string, req *wikiSvc.MoveDirectoryRequest) (*wiki.Directory, error) {
	dir, err := s.directories.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if dir.IsRoot() {
		return nil, fmt.Errorf("%w: the root directory cannot be moved", domain.ErrValidation)
	}

	ec := policy.NewContext(principal)
	if err := s.gateEdit(ctx, ec, dir); err != nil {
		return nil, err
	}

	parent, err := s.resolveParent(ctx, req.ParentID)
	if err != nil {
		return nil, err
	}
	ok, err := s.evaluator.CanEditDirectory(ctx, ec, parent)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, &domain.ForbiddenError{Message: "no edit permission on the destination directory"}
	}

	if err := s.checkNotDescendant(ctx, dir.ID, parent); err != nil {
		return nil, err
	}

	oldPath := dir.Path
	dir.ParentID = &parent.ID
	dir.Path = childPath(parent, dir.Title)
	dir.UpdatedAt = time.Now()

	err = s.txManager.ExecTx(ctx, func(txCtx context.Context) error {
		if err := s.directories.Update(txCtx, dir); err != nil {
			return err
		}
		if err := s.directories.UpdateSubtreePaths(txCtx, oldPath+"/", dir.Path+"/"); err != nil {
			return err
		}
		return s.writeRevision(txCtx, dir, "moved")
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("directory moved", "id", dir.ID, "path", dir.Path, "user_id", principal.ID)
	return dir, nil
}

// DeleteDirectory deletes an empty directory. Only the directory owner
// or the system owner may.
func (s *directoryService) DeleteDirectory(ctx context.Context, principal wiki.Principal, id string) error {
	dir, err := s.directories.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if dir.IsRoot() {
		return fmt.Errorf("%w: the root directory cannot be deleted", domain.ErrValidation)
	}

	ec := policy.NewContext(principal)
	if _, err := s.gateView(ctx, principal, dir); err != nil {
		return err
	}
	allowed := ec.Principal.IsAuthenticated() && dir.OwnerID != nil && *dir.OwnerID == ec.Principal.ID
	if !allowed {
		var err error
		allowed, err = s.evaluator.IsSystemOwner(ctx, ec)
		if err != nil {
			return err
		}
	}
	if !allowed {
		return &domain.ForbiddenError{Message: "only the directory owner may delete it"}
	}

	hasChildren, err := s.directories.HasChildren(ctx, dir.ID)
	if err != nil {
		return err
	}
	if hasChildren {
		return &domain.ConflictError{
			Message:      "directory is not empty",
			ResourceType: "directory",
			ResourceID:   dir.ID,
		}
	}

	err = s.txManager.ExecTx(ctx, func(txCtx context.Context) error {
		if err := s.grants.DeleteForTarget(txCtx, wiki.TargetDirectory, dir.ID); err != nil {
			return err
		}
		if err := s.locks.ReleaseForDirectory(txCtx, dir.ID); err != nil {
			return err
		}
		return s.directories.Delete(txCtx, dir.ID)
	})
	if err != nil {
		return err
	}

	s.logger.Info("directory deleted", "id", dir.ID, "path", dir.Path, "user_id", principal.ID)
	return nil
}

// ListChildren lists the child directories the principal may view
func (s *directoryService) ListChildren(ctx context.Context, principal wiki.Principal, parentID *string) ([]wiki.Directory, error) {
	children, err := s.directories.ListChildren(ctx, parentID)
	if err != nil {
		return nil, err
	}

	ec := policy.NewContext(principal)
	visible := make([]wiki.Directory, 0, len(children))
	for i := range children {
		ok, err := s.evaluator.CanViewDirectory(ctx, ec, &children[i])
		if err != nil {
			return nil, err
		}
		if ok {
			visible = append(visible, children[i])
		}
	}

	return visible, nil
}

// Breadcrumbs returns the root-to-directory chain, keeping only the
// ancestors the principal may view.
func (s *directoryService) Breadcrumbs(ctx context.Context, principal wiki.Principal, id string) ([]wiki.Directory, error) {
	dir, err := s.GetDirectory(ctx, principal, id)
	if err != nil {
		return nil, err
	}

	ec := policy.NewContext(principal)
	chain := []wiki.Directory{*dir}
	current := dir.ParentID
	seen := map[string]struct{}{dir.ID: {}}
	for current != nil {
		if _, dup := seen[*current]; dup {
			break
		}
		seen[*current] = struct{}{}

		ancestor, err := s.directories.GetByID(ctx, *current)
		if err != nil {
			return nil, err
		}
		ok, err := s.evaluator.CanViewDirectory(ctx, ec, ancestor)
		if err != nil {
			return nil, err
		}
		if ok {
			chain = append(chain, *ancestor)
		}
		current = ancestor.ParentID
	}

	// Reverse into root-first order
	for i, j := 0, len(chain)-1; i < j; i, j = i+1, j-1 {
		chain[i], chain[j] = chain[j], chain[i]
	}
	return chain, nil
}

// ApplyPermissions copies the directory's settings and grants onto its
// contents via the propagation engine.
func (s *directoryService) ApplyPermissions(ctx context.Context, principal wiki.Principal, id string, req *wikiSvc.ApplyPermissionsRequest) (*wikiSvc.ApplyPermissionsResult, error) {
	scope := policy.Scope(req.Scope)
	if !scope.Valid() {
		return nil, fmt.Errorf("%w: scope must be %q or %q", domain.ErrValidation, policy.ScopeDirect, policy.ScopeRecursive)
	}

	dir, err := s.directories.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	ec := policy.NewContext(principal)
	if err := s.gateEdit(ctx, ec, dir); err != nil {
		return nil, err
	}

	result, err := s.propagator.ApplyPermissions(ctx, dir.ID, scope)
	if err != nil {
		return nil, err
	}

	return &wikiSvc.ApplyPermissionsResult{
		PagesUpdated:       result.PagesUpdated,
		DirectoriesUpdated: result.DirectoriesUpdated,
	}, nil
}

// resolveParent loads the requested parent, falling back to the root.
func (s *directoryService) resolveParent(ctx context.Context, parentID *string) (*wiki.Directory, error) {
	if parentID == nil {
		root, err := s.directories.GetRoot(ctx)
		if err != nil {
			return nil, fmt.Errorf("load root directory: %w", err)
		}
		return root, nil
	}
	parent, err := s.directories.GetByID(ctx, *parentID)
	if err != nil {
		return nil, fmt.Errorf("load parent directory: %w", err)
	}
	return parent, nil
}

// checkNotDescendant rejects a move whose destination sits inside the
// moved directory's own subtree.
func (s *directoryService) checkNotDescendant(ctx context.Context, dirID string, dest *wiki.Directory) error {
	current := dest
	seen := make(map[string]struct{})
	for {
		if current.ID == dirID {
			return fmt.Errorf("%w: cannot move a directory into its own subtree", domain.ErrValidation)
		}
		if current.ParentID == nil {
			return nil
		}
		if _, dup := seen[current.ID]; dup {
			return fmt.Errorf("%w: cannot move a directory into its own subtree", domain.ErrValidation)
		}
		seen[current.ID] = struct{}{}

		parent, err := s.directories.GetByID(ctx, *current.ParentID)
		if err != nil {
			return err
		}
		current = parent
	}
}

// gateView maps a view denial to not-found.
func (s *directoryService) gateView(ctx context.Context, principal wiki.Principal, dir *wiki.Directory) (*wiki.Directory, error) {
	ec := policy.NewContext(principal)
	ok, err := s.evaluator.CanViewDirectory(ctx, ec, dir)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, &domain.NotFoundError{Message: "directory not found"}
	}
	return dir, nil
}

// gateEdit hides unviewable directories as not-found and rejects
// viewable but uneditable ones as forbidden.
func (s *directoryService) gateEdit(ctx context.Context, ec *policy.Context, dir *wiki.Directory) error {
	canView, err := s.evaluator.CanViewDirectory(ctx, ec, dir)
	if err != nil {
		return err
	}
	if !canView {
		return &domain.NotFoundError{Message: "directory not found"}
	}
	canEdit, err := s.evaluator.CanEditDirectory(ctx, ec, dir)
	if err != nil {
		return err
	}
	if !canEdit {
		return &domain.ForbiddenError{Message: "no edit permission on this directory"}
	}
	return nil
}

// writeRevision snapshots the directory's current state.
func (s *directoryService) writeRevision(ctx context.Context, dir *wiki.Directory, message string) error {
	return s.revisions.CreateDirectoryRevision(ctx, &wiki.DirectoryRevision{
		ID:            uuid.NewString(),
		DirectoryID:   dir.ID,
		Title:         dir.Title,
		Description:   dir.Description,
		Visibility:    dir.Visibility,
		Editability:   dir.Editability,
		ChangeMessage: message,
		CreatedBy:     dir.CreatedBy,
		CreatedAt:     dir.UpdatedAt,
	})
}

// childPath builds a directory path from its parent's. Children of the
// root have bare slugs; the root itself has path "".
func childPath(parent *wiki.Directory, title string) string {
	segment := Slugify(title)
	if segment == "" {
		segment = "untitled"
	}
	if parent.Path == "" {
		return segment
	}
	return parent.Path + "/" + segment
}

func (s *directoryService) validateCreateRequest(req *wikiSvc.CreateDirectoryRequest) error {
	if err := validateSettings(req.Visibility, req.Editability); err != nil {
		return err
	}
	return validation.ValidateStruct(req,
		validation.Field(&req.Title,
			validation.Required,
			validation.Length(1, config.MaxDirectoryTitleLength),
		),
		validation.Field(&req.Description, validation.Length(0, config.MaxDescriptionLength)),
	)
}

func (s *directoryService) validateUpdateRequest(req *wikiSvc.UpdateDirectoryRequest) error {
	if err := validateSettings(req.Visibility, req.Editability); err != nil {
		return err
	}
	return validation.ValidateStruct(req,
		validation.Field(&req.Title, validation.NilOrNotEmpty, validation.Length(1, config.MaxDirectoryTitleLength)),
		validation.Field(&req.Description, validation.Length(0, config.MaxDescriptionLength)),
	)
}
