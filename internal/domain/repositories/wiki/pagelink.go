package wiki

import (
	"context"

	"lorebook/internal/domain/models/wiki"
)

// PageLinkRepository tracks #slug wiki links between pages
type PageLinkRepository interface {
	// Replace rewrites the outgoing link set of a page
	Replace(ctx context.Context, fromPageID string, toPageIDs []string) error

	// ListIncoming lists links pointing at a page (backlinks)
	ListIncoming(ctx context.Context, toPageID string) ([]wiki.PageLink, error)
}
