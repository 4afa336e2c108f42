package wiki

import (
	"context"

	"lorebook/internal/domain/models/wiki"
)

// DirectoryRepository defines data access operations for directories
type DirectoryRepository interface {
	// Create creates a new directory
	Create(ctx context.Context, directory *wiki.Directory) error

	// GetByID retrieves a directory by ID
	GetByID(ctx context.Context, id string) (*wiki.Directory, error)

	// GetByPath retrieves a directory by its full path ("" = root)
	GetByPath(ctx context.Context, path string) (*wiki.Directory, error)

	// GetRoot retrieves the single root directory
	GetRoot(ctx context.Context) (*wiki.Directory, error)

	// Update updates a directory's metadata and placement
	Update(ctx context.Context, directory *wiki.Directory) error

	// UpdateSettings overwrites only visibility and editability
	UpdateSettings(ctx context.Context, id string, visibility wiki.Visibility, editability wiki.Editability) error

	// UpdateSubtreePaths rewrites the path prefix of every descendant
	// after a move or rename
	UpdateSubtreePaths(ctx context.Context, oldPrefix, newPrefix string) error

	// Delete deletes a directory; fails if it still has children or pages
	Delete(ctx context.Context, id string) error

	// ListChildren lists immediate child directories (nil = root level)
	ListChildren(ctx context.Context, parentID *string) ([]wiki.Directory, error)

	// HasChildren reports whether the directory contains subdirectories or pages
	HasChildren(ctx context.Context, id string) (bool, error)
}
