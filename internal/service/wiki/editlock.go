package wiki

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"lorebook/internal/domain"
	"lorebook/internal/domain/models/wiki"
	wikiRepo "lorebook/internal/domain/repositories/wiki"
	wikiSvc "lorebook/internal/domain/services/wiki"
	"lorebook/internal/service/policy"
)

// editLockService implements the EditLockService interface
type editLockService struct {
	locks       wikiRepo.EditLockRepository
	pages       wikiRepo.PageRepository
	directories wikiRepo.DirectoryRepository
	evaluator   *policy.Evaluator
	logger      *slog.Logger

	// now is swappable for tests
	now func() time.Time
}

// NewEditLockService creates a new edit lock service
func NewEditLockService(
	locks wikiRepo.EditLockRepository,
	pages wikiRepo.PageRepository,
	directories wikiRepo.DirectoryRepository,
	evaluator *policy.Evaluator,
	logger *slog.Logger,
) wikiSvc.EditLockService {
	return &editLockService{
		locks:       locks,
		pages:       pages,
		directories: directories,
		evaluator:   evaluator,
		logger:      logger,
		now:         time.Now,
	}
}

// AcquirePageLock takes the edit lock on a page. Acquiring replaces any
// lock already held (including the caller's own, which refreshes the
// expiry). Another user's active lock blocks the acquisition unless
// steal is set.
func (s *editLockService) AcquirePageLock(ctx context.Context, principal wiki.Principal, pageID string, steal bool) (*wiki.EditLock, error) {
	if !principal.IsAuthenticated() {
		return nil, &domain.UnauthorizedError{Message: "authentication required to lock pages"}
	}

	page, err := s.pages.GetByID(ctx, pageID)
	if err != nil {
		return nil, err
	}
	ec := policy.NewContext(principal)
	canEdit, err := s.evaluator.CanEditPage(ctx, ec, page)
	if err != nil {
		return nil, err
	}
	if !canEdit {
		return nil, &domain.ForbiddenError{Message: "no edit permission on this page"}
	}

	now := s.now()
	if !steal {
		held, err := s.locks.GetActiveForPage(ctx, pageID, principal.ID, now)
		if err != nil {
			return nil, err
		}
		if held != nil {
			return nil, &domain.ConflictError{
				Message:      fmt.Sprintf("page is being edited by another user until %s", held.ExpiresAt.Format(time.RFC3339)),
				ResourceType: "lock",
				ResourceID:   held.ID,
			}
		}
	}

	lock := &wiki.EditLock{
		ID:        uuid.NewString(),
		PageID:    &pageID,
		UserID:    principal.ID,
		CreatedAt: now,
		ExpiresAt: now.Add(wiki.LockDuration),
	}
	if err := s.locks.ReplaceForPage(ctx, lock); err != nil {
		return nil, err
	}

	s.logger.Info("page lock acquired", "page_id", pageID, "user_id", principal.ID, "stolen", steal)
	return lock, nil
}

// AcquireDirectoryLock takes the edit lock on a directory
func (s *editLockService) AcquireDirectoryLock(ctx context.Context, principal wiki.Principal, directoryID string, steal bool) (*wiki.EditLock, error) {
	if !principal.IsAuthenticated() {
		return nil, &domain.UnauthorizedError{Message: "authentication required to lock directories"}
	}

	dir, err := s.directories.GetByID(ctx, directoryID)
	if err != nil {
		return nil, err
	}
	ec := policy.NewContext(principal)
	canEdit, err := s.evaluator.CanEditDirectory(ctx, ec, dir)
	if err != nil {
		return nil, err
	}
	if !canEdit {
		return nil, &domain.ForbiddenError{Message: "no edit permission on this directory"}
	}

	now := s.now()
	if !steal {
		held, err := s.locks.GetActiveForDirectory(ctx, directoryID, principal.ID, now)
		if err != nil {
			return nil, err
		}
		if held != nil {
			return nil, &domain.ConflictError{
				Message:      fmt.Sprintf("directory is being edited by another user until %s", held.ExpiresAt.Format(time.RFC3339)),
				ResourceType: "lock",
				ResourceID:   held.ID,
			}
		}
	}

	lock := &wiki.EditLock{
		ID:          uuid.NewString(),
		DirectoryID: &directoryID,
		UserID:      principal.ID,
		CreatedAt:   now,
		ExpiresAt:   now.Add(wiki.LockDuration),
	}
	if err := s.locks.ReplaceForDirectory(ctx, lock); err != nil {
		return nil, err
	}

	s.logger.Info("directory lock acquired", "directory_id", directoryID, "user_id", principal.ID, "stolen", steal)
	return lock, nil
}

// ReleasePageLock drops all locks on a page
func (s *editLockService) ReleasePageLock(ctx context.Context, principal wiki.Principal, pageID string) error {
	if !principal.IsAuthenticated() {
		return &domain.UnauthorizedError{Message: "authentication required"}
	}
	return s.locks.ReleaseForPage(ctx, pageID)
}

// ReleaseDirectoryLock drops all locks on a directory
func (s *editLockService) ReleaseDirectoryLock(ctx context.Context, principal wiki.Principal, directoryID string) error {
	if !principal.IsAuthenticated() {
		return &domain.UnauthorizedError{Message: "authentication required"}
	}
	return s.locks.ReleaseForDirectory(ctx, directoryID)
}

// CleanupExpired deletes expired locks. Run periodically from the server.
func (s *editLockService) CleanupExpired(ctx context.Context) (int, error) {
	n, err := s.locks.DeleteExpired(ctx, s.now())
	if err != nil {
		return 0, err
	}
	if n > 0 {
		s.logger.Info("expired edit locks removed", "count", n)
	}
	return n, nil
}
