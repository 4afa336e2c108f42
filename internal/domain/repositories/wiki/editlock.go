package wiki

import (
	"context"
	"time"

	"lorebook/internal/domain/models/wiki"
)

// EditLockRepository persists advisory edit locks
type EditLockRepository interface {
	// GetActiveForPage returns the unexpired lock on a page held by a
	// user other than excludeUserID, or nil
	GetActiveForPage(ctx context.Context, pageID, excludeUserID string, now time.Time) (*wiki.EditLock, error)

	// GetActiveForDirectory returns the unexpired lock on a directory
	// held by a user other than excludeUserID, or nil
	GetActiveForDirectory(ctx context.Context, directoryID, excludeUserID string, now time.Time) (*wiki.EditLock, error)

	// ReplaceForPage deletes existing locks on the page and inserts lock
	ReplaceForPage(ctx context.Context, lock *wiki.EditLock) error

	// ReplaceForDirectory deletes existing locks on the directory and inserts lock
	ReplaceForDirectory(ctx context.Context, lock *wiki.EditLock) error

	// ReleaseForPage deletes all locks on a page
	ReleaseForPage(ctx context.Context, pageID string) error

	// ReleaseForDirectory deletes all locks on a directory
	ReleaseForDirectory(ctx context.Context, directoryID string) error

	// DeleteExpired removes expired locks, returning the number deleted
	DeleteExpired(ctx context.Context, now time.Time) (int, error)
}
