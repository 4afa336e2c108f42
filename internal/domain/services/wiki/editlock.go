package wiki

import (
	"context"

	"lorebook/internal/domain/models/wiki"
)

// EditLockService manages advisory edit locks. Locks are cooperative:
// they warn concurrent editors, they do not block writes.
type EditLockService interface {
	// AcquirePageLock takes the lock on a page for the principal.
	// Another user's active lock blocks acquisition unless steal is set.
	AcquirePageLock(ctx context.Context, principal wiki.Principal, pageID string, steal bool) (*wiki.EditLock, error)

	// AcquireDirectoryLock takes the lock on a directory
	AcquireDirectoryLock(ctx context.Context, principal wiki.Principal, directoryID string, steal bool) (*wiki.EditLock, error)

	// ReleasePageLock drops all locks on a page
	ReleasePageLock(ctx context.Context, principal wiki.Principal, pageID string) error

	// ReleaseDirectoryLock drops all locks on a directory
	ReleaseDirectoryLock(ctx context.Context, principal wiki.Principal, directoryID string) error

	// CleanupExpired deletes expired locks, returning the number removed
	CleanupExpired(ctx context.Context) (int, error)
}
