// Package policy decides who may view or edit directories and pages.
//
// Permission hierarchy:
//   - System owner: full access to everything
//   - Owner: full access to their directory or page
//   - Grants: per-user/group view/edit/owner records, inherited down the
//     directory tree
//   - Visibility: public viewable by anyone, internal by any authenticated
//     user, private by explicit permission only
//
// Decision functions are read-only and total: lack of permission is a
// false result, never an error. Errors are reserved for store failures.
package policy

import (
	"context"
	"log/slog"

	"lorebook/internal/domain/models/wiki"
)

// maxTreeDepth caps ancestor walks and propagation recursion. The move
// validator is the only structural gate against cycles, so walks defend
// themselves and fail closed.
const maxTreeDepth = 64

// Evaluator answers view/edit questions against the tree and grant stores.
type Evaluator struct {
	directories DirectoryStore
	grants      GrantStore
	identity    IdentityStore
	logger      *slog.Logger
}

// NewEvaluator creates a policy evaluator.
func NewEvaluator(directories DirectoryStore, grants GrantStore, identity IdentityStore, logger *slog.Logger) *Evaluator {
	return &Evaluator{
		directories: directories,
		grants:      grants,
		identity:    identity,
		logger:      logger,
	}
}

// CanViewDirectory checks if the principal can view a directory.
//
// Public directories are viewable by anyone, internal ones by any
// authenticated user. Private directories require the system owner, the
// directory owner, a grant on the directory, or a grant/ownership on any
// ancestor - access to a parent grants access to children.
func (e *Evaluator) CanViewDirectory(ctx context.Context, ec *Context, dir *wiki.Directory) (bool, error) {
	// The root directory is always accessible
	if dir.IsRoot() {
		return true, nil
	}

	if dir.Visibility == wiki.VisibilityPublic {
		return true, nil
	}

	if !ec.Principal.IsAuthenticated() {
		return false, nil
	}

	if dir.Visibility == wiki.VisibilityInternal {
		return true, nil
	}

	if ok, err := e.IsSystemOwner(ctx, ec); err != nil || ok {
		return ok, err
	}

	if isOwner(ec, dir.OwnerID) {
		return true, nil
	}

	// Grants on this directory (user or group, any permission type)
	if ok, err := e.matchTargetGrants(ctx, ec, wiki.TargetDirectory, dir.ID, false); err != nil || ok {
		return ok, err
	}

	// Walk up ancestors; a grant or ownership at any level grants view.
	// Ancestor visibility is not rechecked: reaching an ancestor here
	// means explicit permission, not visibility-based access.
	return e.walkAncestors(ctx, ec, dir.ParentID, func(ancestor *wiki.Directory) (bool, error) {
		if isOwner(ec, ancestor.OwnerID) {
			return true, nil
		}
		return e.matchTargetGrants(ctx, ec, wiki.TargetDirectory, ancestor.ID, false)
	})
}

// CanViewPage checks if the principal can view a page.
//
// A public page is viewable unconditionally, even when its directory is
// private: the write-time consistency validator is what keeps that pair
// from being created, so page visibility is authoritative here. Non-public
// pages are gated by their directory first.
func (e *Evaluator) CanViewPage(ctx context.Context, ec *Context, page *wiki.Page) (bool, error) {
	if page.Visibility == wiki.VisibilityPublic {
		return true, nil
	}

	if !ec.Principal.IsAuthenticated() {
		return false, nil
	}

	// Directory gate: a non-public page nested in a directory the
	// principal cannot see stays hidden regardless of its own settings
	if page.DirectoryID != nil {
		dir, err := e.directory(ctx, ec, *page.DirectoryID)
		if err != nil {
			return false, err
		}
		ok, err := e.CanViewDirectory(ctx, ec, dir)
		if err != nil {
			return false, err
		}
		if !ok {
			return false, nil
		}
	}

	if page.Visibility == wiki.VisibilityInternal {
		return true, nil
	}

	if ok, err := e.IsSystemOwner(ctx, ec); err != nil || ok {
		return ok, err
	}

	if isOwner(ec, page.OwnerID) {
		return true, nil
	}

	// Page-level grants (user or group, any permission type)
	if ok, err := e.matchTargetGrants(ctx, ec, wiki.TargetPage, page.ID, false); err != nil || ok {
		return ok, err
	}

	// Walk the directory chain; a grant at any level grants view
	return e.walkAncestors(ctx, ec, page.DirectoryID, func(dir *wiki.Directory) (bool, error) {
		return e.matchTargetGrants(ctx, ec, wiki.TargetDirectory, dir.ID, false)
	})
}

// CanEditPage checks if the principal can edit a page.
//
// Internal editability lets any authenticated user edit regardless of
// grants. Otherwise the system owner, the page owner, or an edit/owner
// grant on the page or any ancestor directory is required.
func (e *Evaluator) CanEditPage(ctx context.Context, ec *Context, page *wiki.Page) (bool, error) {
	if !ec.Principal.IsAuthenticated() {
		return false, nil
	}

	if page.Editability == wiki.EditabilityInternal {
		return true, nil
	}

	if ok, err := e.IsSystemOwner(ctx, ec); err != nil || ok {
		return ok, err
	}

	if isOwner(ec, page.OwnerID) {
		return true, nil
	}

	if ok, err := e.matchTargetGrants(ctx, ec, wiki.TargetPage, page.ID, true); err != nil || ok {
		return ok, err
	}

	// Directory permissions cascade down to pages
	return e.walkAncestors(ctx, ec, page.DirectoryID, func(dir *wiki.Directory) (bool, error) {
		return e.matchTargetGrants(ctx, ec, wiki.TargetDirectory, dir.ID, true)
	})
}

// CanEditDirectory checks if the principal can edit a directory.
func (e *Evaluator) CanEditDirectory(ctx context.Context, ec *Context, dir *wiki.Directory) (bool, error) {
	if !ec.Principal.IsAuthenticated() {
		return false, nil
	}

	if dir.Editability == wiki.EditabilityInternal {
		return true, nil
	}

	if ok, err := e.IsSystemOwner(ctx, ec); err != nil || ok {
		return ok, err
	}

	if isOwner(ec, dir.OwnerID) {
		return true, nil
	}

	// Edit/owner grants on this directory, then up the ancestor chain
	if ok, err := e.matchTargetGrants(ctx, ec, wiki.TargetDirectory, dir.ID, true); err != nil || ok {
		return ok, err
	}

	return e.walkAncestors(ctx, ec, dir.ParentID, func(ancestor *wiki.Directory) (bool, error) {
		return e.matchTargetGrants(ctx, ec, wiki.TargetDirectory, ancestor.ID, true)
	})
}

// matchTargetGrants lists a target's grants and reports whether any
// matches the principal directly or through group membership. When
// editOnly is set, only edit and owner grants count.
func (e *Evaluator) matchTargetGrants(ctx context.Context, ec *Context, targetType wiki.TargetType, targetID string, editOnly bool) (bool, error) {
	grants, err := e.grants.ListForTarget(ctx, targetType, targetID)
	if err != nil {
		return false, err
	}
	if len(grants) == 0 {
		return false, nil
	}

	groups, err := e.groupIDs(ctx, ec)
	if err != nil {
		return false, err
	}

	for _, g := range grants {
		if editOnly && !g.PermissionType.GrantsEdit() {
			continue
		}
		switch g.Principal.Kind {
		case wiki.PrincipalUser:
			if ec.Principal.IsAuthenticated() && g.Principal.ID == ec.Principal.ID {
				return true, nil
			}
		case wiki.PrincipalGroup:
			if _, member := groups[g.Principal.ID]; member {
				return true, nil
			}
		}
	}

	return false, nil
}

// walkAncestors iterates the parent chain starting at fromID, calling
// visit at each level until it returns true. A cycle or a chain deeper
// than maxTreeDepth denies access instead of looping.
func (e *Evaluator) walkAncestors(ctx context.Context, ec *Context, fromID *string, visit func(*wiki.Directory) (bool, error)) (bool, error) {
	visited := make(map[string]struct{})

	current := fromID
	for depth := 0; current != nil; depth++ {
		if depth >= maxTreeDepth {
			e.logger.Warn("ancestor walk exceeded depth cap, denying access", "directory_id", *current)
			return false, nil
		}
		if _, seen := visited[*current]; seen {
			e.logger.Warn("cycle detected in directory tree, denying access", "directory_id", *current)
			return false, nil
		}
		visited[*current] = struct{}{}

		dir, err := e.directory(ctx, ec, *current)
		if err != nil {
			return false, err
		}

		ok, err := visit(dir)
		if err != nil || ok {
			return ok, err
		}

		current = dir.ParentID
	}

	return false, nil
}

// isOwner reports whether the principal is the given owner.
func isOwner(ec *Context, ownerID *string) bool {
	return ec.Principal.IsAuthenticated() && ownerID != nil && *ownerID == ec.Principal.ID
}
