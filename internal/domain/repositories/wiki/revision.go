package wiki

import (
	"context"

	"lorebook/internal/domain/models/wiki"
)

// RevisionRepository persists page and directory snapshots
type RevisionRepository interface {
	// CreatePageRevision writes the next page snapshot, numbering it
	// one past the current highest revision
	CreatePageRevision(ctx context.Context, rev *wiki.PageRevision) error

	// ListPageRevisions lists snapshots newest first
	ListPageRevisions(ctx context.Context, pageID string, limit int) ([]wiki.PageRevision, error)

	// CreateDirectoryRevision writes the next directory snapshot
	CreateDirectoryRevision(ctx context.Context, rev *wiki.DirectoryRevision) error

	// ListDirectoryRevisions lists snapshots newest first
	ListDirectoryRevisions(ctx context.Context, directoryID string, limit int) ([]wiki.DirectoryRevision, error)
}
