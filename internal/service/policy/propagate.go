package policy

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"lorebook/internal/domain/models/wiki"
	"lorebook/internal/domain/repositories"
)

// Scope selects how far ApplyPermissions reaches.
type Scope string

const (
	// ScopeDirect applies to pages directly inside the directory.
	ScopeDirect Scope = "direct"

	// ScopeRecursive also overwrites every descendant directory and its
	// pages with the top-level directory's settings and grants.
	ScopeRecursive Scope = "recursive"
)

// Valid reports whether s is a known scope.
func (s Scope) Valid() bool {
	return s == ScopeDirect || s == ScopeRecursive
}

// Result counts what a propagation run touched, for caller reporting.
type Result struct {
	PagesUpdated       int `json:"pages_updated"`
	DirectoriesUpdated int `json:"directories_updated"`
}

// Propagator copies a directory's visibility, editability and grants onto
// its contents. Settings are overwritten; grants are strictly additive
// (get-or-create, never deleted), which makes the operation idempotent.
type Propagator struct {
	directories TreeStore
	pages       PageStore
	grants      GrantStore
	txManager   repositories.TransactionManager
	logger      *slog.Logger
}

// NewPropagator creates a propagation engine.
func NewPropagator(directories TreeStore, pages PageStore, grants GrantStore, txManager repositories.TransactionManager, logger *slog.Logger) *Propagator {
	return &Propagator{
		directories: directories,
		pages:       pages,
		grants:      grants,
		txManager:   txManager,
		logger:      logger,
	}
}

// ApplyPermissions runs one propagation from the given directory. The
// whole subtree commits or none of it does: every write happens inside a
// single transaction, so a store failure mid-walk aborts the operation
// without partial updates. Recursive propagation always copies from the
// top-level source directory, not level-by-level copies of copies.
func (p *Propagator) ApplyPermissions(ctx context.Context, directoryID string, scope Scope) (*Result, error) {
	if !scope.Valid() {
		return nil, fmt.Errorf("unknown propagation scope %q", scope)
	}

	var result Result
	err := p.txManager.ExecTx(ctx, func(ctx context.Context) error {
		source, err := p.directories.GetByID(ctx, directoryID)
		if err != nil {
			return fmt.Errorf("load source directory: %w", err)
		}

		sourceGrants, err := p.grants.ListForTarget(ctx, wiki.TargetDirectory, source.ID)
		if err != nil {
			return fmt.Errorf("load source grants: %w", err)
		}

		run := &propagation{
			Propagator:   p,
			source:       source,
			sourceGrants: sourceGrants,
			result:       &result,
			visited:      map[string]struct{}{source.ID: {}},
		}

		if err := run.applyToPages(ctx, pageScopeID(source)); err != nil {
			return err
		}

		if scope == ScopeRecursive {
			return run.applyToChildren(ctx, source, 0)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	p.logger.Info("permissions applied",
		"directory_id", directoryID,
		"scope", scope,
		"pages_updated", result.PagesUpdated,
		"directories_updated", result.DirectoriesUpdated,
	)

	return &result, nil
}

// propagation is the per-run state of one ApplyPermissions call.
type propagation struct {
	*Propagator
	source       *wiki.Directory
	sourceGrants []wiki.Grant
	result       *Result
	visited      map[string]struct{}
}

// applyToPages overwrites settings of every page directly inside a
// directory and ensures each source grant exists on the page.
func (r *propagation) applyToPages(ctx context.Context, directoryID *string) error {
	pages, err := r.pages.ListByDirectory(ctx, directoryID)
	if err != nil {
		return fmt.Errorf("list pages: %w", err)
	}

	for _, page := range pages {
		if err := r.pages.UpdateSettings(ctx, page.ID, r.source.Visibility, r.source.Editability); err != nil {
			return fmt.Errorf("update page %s settings: %w", page.ID, err)
		}
		for _, sg := range r.sourceGrants {
			grant := &wiki.Grant{
				ID:             uuid.NewString(),
				TargetType:     wiki.TargetPage,
				TargetID:       page.ID,
				Principal:      sg.Principal,
				PermissionType: sg.PermissionType,
			}
			if _, err := r.grants.Ensure(ctx, grant); err != nil {
				return fmt.Errorf("ensure grant on page %s: %w", page.ID, err)
			}
		}
		r.result.PagesUpdated++
	}

	return nil
}

// applyToChildren recursively overwrites child directories and their
// pages with the top-level source's settings and grants.
func (r *propagation) applyToChildren(ctx context.Context, parent *wiki.Directory, depth int) error {
	if depth >= maxTreeDepth {
		return fmt.Errorf("propagation exceeded depth cap %d under directory %s", maxTreeDepth, parent.ID)
	}

	children, err := r.directories.ListChildren(ctx, &parent.ID)
	if err != nil {
		return fmt.Errorf("list child directories: %w", err)
	}

	for i := range children {
		child := &children[i]
		if _, seen := r.visited[child.ID]; seen {
			return fmt.Errorf("cycle detected at directory %s", child.ID)
		}
		r.visited[child.ID] = struct{}{}

		if err := r.directories.UpdateSettings(ctx, child.ID, r.source.Visibility, r.source.Editability); err != nil {
			return fmt.Errorf("update directory %s settings: %w", child.ID, err)
		}
		for _, sg := range r.sourceGrants {
			grant := &wiki.Grant{
				ID:             uuid.NewString(),
				TargetType:     wiki.TargetDirectory,
				TargetID:       child.ID,
				Principal:      sg.Principal,
				PermissionType: sg.PermissionType,
			}
			if _, err := r.grants.Ensure(ctx, grant); err != nil {
				return fmt.Errorf("ensure grant on directory %s: %w", child.ID, err)
			}
		}
		r.result.DirectoriesUpdated++

		if err := r.applyToPages(ctx, &child.ID); err != nil {
			return err
		}
		if err := r.applyToChildren(ctx, child, depth+1); err != nil {
			return err
		}
	}

	return nil
}

// pageScopeID maps a directory to the page listing key: pages directly
// under the root carry a nil directory ID.
func pageScopeID(dir *wiki.Directory) *string {
	if dir.IsRoot() {
		return nil
	}
	id := dir.ID
	return &id
}
