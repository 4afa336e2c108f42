package wiki

import (
	"context"

	"lorebook/internal/domain/models/wiki"
)

// SearchOptions controls full-text page search.
type SearchOptions struct {
	Query       string
	DirectoryID *string // restrict to a directory, nil = whole wiki
	Limit       int
	Offset      int
}

// PageRepository defines data access operations for pages
type PageRepository interface {
	// Create creates a new page
	Create(ctx context.Context, page *wiki.Page) error

	// GetByID retrieves a page by ID
	GetByID(ctx context.Context, id string) (*wiki.Page, error)

	// GetBySlug retrieves a page by its unique slug
	GetBySlug(ctx context.Context, slug string) (*wiki.Page, error)

	// GetBySlugs retrieves pages for a set of slugs (wiki link resolution)
	GetBySlugs(ctx context.Context, slugs []string) ([]wiki.Page, error)

	// SlugExists reports whether a slug is taken, excluding one page ID
	SlugExists(ctx context.Context, slug, excludePageID string) (bool, error)

	// Update updates a page
	Update(ctx context.Context, page *wiki.Page) error

	// UpdateSettings overwrites only visibility and editability
	UpdateSettings(ctx context.Context, id string, visibility wiki.Visibility, editability wiki.Editability) error

	// Delete deletes a page; grants on it cascade
	Delete(ctx context.Context, id string) error

	// ListByDirectory lists pages directly inside a directory (nil = root)
	ListByDirectory(ctx context.Context, directoryID *string) ([]wiki.Page, error)

	// Search performs Postgres full-text search over title and content
	Search(ctx context.Context, opts *SearchOptions) ([]wiki.SearchResult, error)
}
