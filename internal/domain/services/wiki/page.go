package wiki

import (
	"context"

	"lorebook/internal/domain/models/wiki"
)

// PageService handles page business logic. Every operation takes the
// acting principal; read operations return ErrNotFound when the
// principal may not view the page, so hidden pages are indistinguishable
// from missing ones.
type PageService interface {
	// CreatePage creates a page; the principal needs edit rights on the
	// target directory (any authenticated user for root pages)
	CreatePage(ctx context.Context, principal wiki.Principal, req *CreatePageRequest) (*wiki.Page, error)

	// GetPage retrieves a page the principal may view
	GetPage(ctx context.Context, principal wiki.Principal, id string) (*wiki.Page, error)

	// GetPageBySlug retrieves a page by its slug
	GetPageBySlug(ctx context.Context, principal wiki.Principal, slug string) (*wiki.Page, error)

	// RenderPage renders a page's content to HTML with wiki links resolved
	RenderPage(ctx context.Context, principal wiki.Principal, id string) (string, error)

	// UpdatePage updates a page's content or settings
	UpdatePage(ctx context.Context, principal wiki.Principal, id string, req *UpdatePageRequest) (*wiki.Page, error)

	// MovePage moves a page to another directory
	MovePage(ctx context.Context, principal wiki.Principal, id string, req *MovePageRequest) (*wiki.Page, error)

	// DeletePage deletes a page; only the page owner or the system owner may
	DeletePage(ctx context.Context, principal wiki.Principal, id string) error

	// ListPages lists the pages in a directory (nil for root pages)
	// that the principal may view
	ListPages(ctx context.Context, principal wiki.Principal, directoryID *string) ([]wiki.Page, error)

	// SearchPages runs a full-text search, filtered to viewable pages
	SearchPages(ctx context.Context, principal wiki.Principal, req *SearchPagesRequest) ([]wiki.SearchResult, error)

	// ListRevisions lists a page's snapshots, newest first
	ListRevisions(ctx context.Context, principal wiki.Principal, pageID string, limit int) ([]wiki.PageRevision, error)

	// ListBacklinks lists viewable pages whose content links to pageID
	ListBacklinks(ctx context.Context, principal wiki.Principal, pageID string) ([]wiki.Page, error)
}

// CreatePageRequest represents a page creation request
type CreatePageRequest struct {
	Title       string  `json:"title"`
	Content     string  `json:"content"`
	DirectoryID *string `json:"directory_id,omitempty"` // nil = root page

	// Visibility defaults to the directory's visibility when unset
	Visibility  *wiki.Visibility  `json:"visibility,omitempty"`
	Editability *wiki.Editability `json:"editability,omitempty"`

	ChangeMessage string `json:"change_message,omitempty"`
}

// UpdatePageRequest represents a page update request
type UpdatePageRequest struct {
	Title       *string           `json:"title,omitempty"`
	Content     *string           `json:"content,omitempty"`
	Visibility  *wiki.Visibility  `json:"visibility,omitempty"`
	Editability *wiki.Editability `json:"editability,omitempty"`

	ChangeMessage string `json:"change_message,omitempty"`
}

// MovePageRequest represents a page move request
type MovePageRequest struct {
	DirectoryID *string `json:"directory_id"` // nil = move to root
}

// SearchPagesRequest represents a full-text search request
type SearchPagesRequest struct {
	Query       string  `json:"query"`
	DirectoryID *string `json:"directory_id,omitempty"`
	Limit       int     `json:"limit,omitempty"`
	Offset      int     `json:"offset,omitempty"`
}
