package wiki

import (
	"context"

	"lorebook/internal/domain/models/wiki"
)

// DirectoryService handles directory business logic
type DirectoryService interface {
	// CreateDirectory creates a directory under a parent the principal
	// may edit
	CreateDirectory(ctx context.Context, principal wiki.Principal, req *CreateDirectoryRequest) (*wiki.Directory, error)

	// GetDirectory retrieves a directory the principal may view
	GetDirectory(ctx context.Context, principal wiki.Principal, id string) (*wiki.Directory, error)

	// GetDirectoryByPath retrieves a directory by its materialized path
	GetDirectoryByPath(ctx context.Context, principal wiki.Principal, path string) (*wiki.Directory, error)

	// UpdateDirectory updates a directory's metadata or settings
	UpdateDirectory(ctx context.Context, principal wiki.Principal, id string, req *UpdateDirectoryRequest) (*wiki.Directory, error)

	// MoveDirectory reparents a directory, rejecting cycles
	MoveDirectory(ctx context.Context, principal wiki.Principal, id string, req *MoveDirectoryRequest) (*wiki.Directory, error)

	// DeleteDirectory deletes an empty directory
	DeleteDirectory(ctx context.Context, principal wiki.Principal, id string) error

	// ListChildren lists the viewable child directories
	ListChildren(ctx context.Context, principal wiki.Principal, parentID *string) ([]wiki.Directory, error)

	// Breadcrumbs returns the chain from the root down to a directory,
	// trimmed to what the principal may view
	Breadcrumbs(ctx context.Context, principal wiki.Principal, id string) ([]wiki.Directory, error)

	// ApplyPermissions copies the directory's settings and grants onto
	// its contents; the principal needs edit rights on the directory
	ApplyPermissions(ctx context.Context, principal wiki.Principal, id string, req *ApplyPermissionsRequest) (*ApplyPermissionsResult, error)
}

// CreateDirectoryRequest represents a directory creation request
type CreateDirectoryRequest struct {
	ParentID    *string `json:"parent_id,omitempty"` // nil = under the root
	Title       string  `json:"title"`
	Description string  `json:"description,omitempty"`

	// Visibility defaults to the parent's visibility when unset
	Visibility  *wiki.Visibility  `json:"visibility,omitempty"`
	Editability *wiki.Editability `json:"editability,omitempty"`
}

// UpdateDirectoryRequest represents a directory update request
type UpdateDirectoryRequest struct {
	Title       *string           `json:"title,omitempty"`
	Description *string           `json:"description,omitempty"`
	Visibility  *wiki.Visibility  `json:"visibility,omitempty"`
	Editability *wiki.Editability `json:"editability,omitempty"`
}

// MoveDirectoryRequest represents a directory move request
type MoveDirectoryRequest struct {
	ParentID *string `json:"parent_id"` // nil = move under the root
}

// ApplyPermissionsRequest selects the propagation scope
type ApplyPermissionsRequest struct {
	// Scope is "direct" (pages in this directory) or "recursive"
	// (the whole subtree)
	Scope string `json:"scope"`
}

// ApplyPermissionsResult reports what a propagation run touched
type ApplyPermissionsResult struct {
	PagesUpdated       int `json:"pages_updated"`
	DirectoriesUpdated int `json:"directories_updated"`
}
