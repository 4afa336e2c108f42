package wiki

import (
	"context"
	"errors"
	"testing"
	"time"

	"lorebook/internal/domain"
	"lorebook/internal/domain/models/wiki"
)

func TestAcquirePageLock_ConflictAndSteal(t *testing.T) {
	e := newEnv()
	e.repo.addPage("doc", nil, wiki.VisibilityInternal, wiki.EditabilityInternal, strptr("alice"))

	alice := wiki.UserPrincipal("alice")
	bob := wiki.UserPrincipal("bob")

	lock, err := e.locks.AcquirePageLock(context.Background(), alice, "doc", false)
	if err != nil {
		t.Fatalf("AcquirePageLock failed: %v", err)
	}
	if lock.ExpiresAt.Sub(lock.CreatedAt) != wiki.LockDuration {
		t.Errorf("lock should expire after %s, got %s", wiki.LockDuration, lock.ExpiresAt.Sub(lock.CreatedAt))
	}

	_, err = e.locks.AcquirePageLock(context.Background(), bob, "doc", false)
	if !errors.Is(err, domain.ErrConflict) {
		t.Fatalf("second editor should conflict, got %v", err)
	}

	stolen, err := e.locks.AcquirePageLock(context.Background(), bob, "doc", true)
	if err != nil {
		t.Fatalf("steal failed: %v", err)
	}
	if stolen.UserID != "bob" {
		t.Errorf("stolen lock should belong to bob, got %s", stolen.UserID)
	}
	if len(e.repo.locks) != 1 {
		t.Errorf("stealing should replace the old lock, %d locks held", len(e.repo.locks))
	}
}

func TestAcquirePageLock_RefreshesOwnLock(t *testing.T) {
	e := newEnv()
	e.repo.addPage("doc", nil, wiki.VisibilityInternal, wiki.EditabilityInternal, strptr("alice"))
	alice := wiki.UserPrincipal("alice")

	if _, err := e.locks.AcquirePageLock(context.Background(), alice, "doc", false); err != nil {
		t.Fatalf("AcquirePageLock failed: %v", err)
	}
	// Re-acquiring one's own lock is not a conflict; it refreshes expiry
	if _, err := e.locks.AcquirePageLock(context.Background(), alice, "doc", false); err != nil {
		t.Fatalf("re-acquire failed: %v", err)
	}
	if len(e.repo.locks) != 1 {
		t.Errorf("re-acquire should replace, %d locks held", len(e.repo.locks))
	}
}

func TestAcquirePageLock_RequiresEditRights(t *testing.T) {
	e := newEnv()
	e.repo.addPage("doc", nil, wiki.VisibilityInternal, wiki.EditabilityRestricted, strptr("alice"))

	_, err := e.locks.AcquirePageLock(context.Background(), wiki.UserPrincipal("bob"), "doc", false)
	var forbErr *domain.ForbiddenError
	if !errors.As(err, &forbErr) {
		t.Errorf("locking without edit rights should be forbidden, got %v", err)
	}

	_, err = e.locks.AcquirePageLock(context.Background(), wiki.Anonymous(), "doc", false)
	var unauthErr *domain.UnauthorizedError
	if !errors.As(err, &unauthErr) {
		t.Errorf("anonymous locking should be unauthorized, got %v", err)
	}
}

func TestAcquireDirectoryLock(t *testing.T) {
	e := newEnv()
	e.repo.addDirectory("eng", strptr("root"), wiki.VisibilityInternal, wiki.EditabilityRestricted, strptr("alice"))

	lock, err := e.locks.AcquireDirectoryLock(context.Background(), wiki.UserPrincipal("alice"), "eng", false)
	if err != nil {
		t.Fatalf("AcquireDirectoryLock failed: %v", err)
	}
	if lock.DirectoryID == nil || *lock.DirectoryID != "eng" {
		t.Errorf("lock should reference the directory, got %+v", lock)
	}

	_, err = e.locks.AcquireDirectoryLock(context.Background(), wiki.UserPrincipal("bob"), "eng", false)
	var forbErr *domain.ForbiddenError
	if !errors.As(err, &forbErr) {
		t.Errorf("expected forbidden before any lock check, got %v", err)
	}
}

func TestCleanupExpired(t *testing.T) {
	e := newEnv()
	e.repo.addPage("doc", nil, wiki.VisibilityInternal, wiki.EditabilityInternal, strptr("alice"))

	if _, err := e.locks.AcquirePageLock(context.Background(), wiki.UserPrincipal("alice"), "doc", false); err != nil {
		t.Fatalf("AcquirePageLock failed: %v", err)
	}

	// Nothing has expired yet
	n, err := e.locks.CleanupExpired(context.Background())
	if err != nil {
		t.Fatalf("CleanupExpired failed: %v", err)
	}
	if n != 0 {
		t.Errorf("expected no expired locks, removed %d", n)
	}

	// Jump past the lock lifetime
	e.locks.now = func() time.Time { return time.Now().Add(wiki.LockDuration + time.Minute) }
	n, err = e.locks.CleanupExpired(context.Background())
	if err != nil {
		t.Fatalf("CleanupExpired failed: %v", err)
	}
	if n != 1 {
		t.Errorf("expected one expired lock removed, got %d", n)
	}
	if len(e.repo.locks) != 0 {
		t.Error("expired lock still held")
	}
}
