package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"lorebook/internal/domain/models/wiki"
	"lorebook/internal/domain/repositories"
	wikiRepo "lorebook/internal/domain/repositories/wiki"
)

// PostgresEditLockRepository implements the EditLockRepository interface
type PostgresEditLockRepository struct {
	pool   *pgxpool.Pool
	tables *TableNames
}

// NewEditLockRepository creates a new edit lock repository
func NewEditLockRepository(config *RepositoryConfig) wikiRepo.EditLockRepository {
	return &PostgresEditLockRepository{
		pool:   config.Pool,
		tables: config.Tables,
	}
}

func (r *PostgresEditLockRepository) db(ctx context.Context) repositories.DBTX {
	return GetExecutor(ctx, r.pool)
}

const editLockColumns = `id, page_id, directory_id, user_id, created_at, expires_at`

func scanEditLock(row interface{ Scan(...any) error }) (*wiki.EditLock, error) {
	var lock wiki.EditLock
	err := row.Scan(
		&lock.ID,
		&lock.PageID,
		&lock.DirectoryID,
		&lock.UserID,
		&lock.CreatedAt,
		&lock.ExpiresAt,
	)
	if err != nil {
		return nil, err
	}
	return &lock, nil
}

// GetActiveForPage returns the unexpired lock on a page held by a user
// other than excludeUserID, or nil
func (r *PostgresEditLockRepository) GetActiveForPage(ctx context.Context, pageID, excludeUserID string, now time.Time) (*wiki.EditLock, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM %s
		WHERE page_id = $1 AND user_id <> $2 AND expires_at > $3
		LIMIT 1
	`, editLockColumns, r.tables.EditLocks)

	lock, err := scanEditLock(r.db(ctx).QueryRow(ctx, query, pageID, excludeUserID, now))
	if err != nil {
		if isPgNoRowsError(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get page lock: %w", err)
	}
	return lock, nil
}

// GetActiveForDirectory returns the unexpired lock on a directory held
// by a user other than excludeUserID, or nil
func (r *PostgresEditLockRepository) GetActiveForDirectory(ctx context.Context, directoryID, excludeUserID string, now time.Time) (*wiki.EditLock, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM %s
		WHERE directory_id = $1 AND user_id <> $2 AND expires_at > $3
		LIMIT 1
	`, editLockColumns, r.tables.EditLocks)

	lock, err := scanEditLock(r.db(ctx).QueryRow(ctx, query, directoryID, excludeUserID, now))
	if err != nil {
		if isPgNoRowsError(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get directory lock: %w", err)
	}
	return lock, nil
}

// ReplaceForPage deletes existing locks on the page and inserts lock
func (r *PostgresEditLockRepository) ReplaceForPage(ctx context.Context, lock *wiki.EditLock) error {
	del := fmt.Sprintf(`DELETE FROM %s WHERE page_id = $1`, r.tables.EditLocks)
	if _, err := r.db(ctx).Exec(ctx, del, *lock.PageID); err != nil {
		return fmt.Errorf("clear page locks: %w", err)
	}

	ins := fmt.Sprintf(`
		INSERT INTO %s (%s) VALUES ($1, $2, $3, $4, $5, $6)
	`, r.tables.EditLocks, editLockColumns)
	_, err := r.db(ctx).Exec(ctx, ins,
		lock.ID, lock.PageID, lock.DirectoryID, lock.UserID, lock.CreatedAt, lock.ExpiresAt)
	if err != nil {
		return fmt.Errorf("insert page lock: %w", err)
	}
	return nil
}

// ReplaceForDirectory deletes existing locks on the directory and inserts lock
func (r *PostgresEditLockRepository) ReplaceForDirectory(ctx context.Context, lock *wiki.EditLock) error {
	del := fmt.Sprintf(`DELETE FROM %s WHERE directory_id = $1`, r.tables.EditLocks)
	if _, err := r.db(ctx).Exec(ctx, del, *lock.DirectoryID); err != nil {
		return fmt.Errorf("clear directory locks: %w", err)
	}

	ins := fmt.Sprintf(`
		INSERT INTO %s (%s) VALUES ($1, $2, $3, $4, $5, $6)
	`, r.tables.EditLocks, editLockColumns)
	_, err := r.db(ctx).Exec(ctx, ins,
		lock.ID, lock.PageID, lock.DirectoryID, lock.UserID, lock.CreatedAt, lock.ExpiresAt)
	if err != nil {
		return fmt.Errorf("insert directory lock: %w", err)
	}
	return nil
}

// ReleaseForPage deletes all locks on a page
func (r *PostgresEditLockRepository) ReleaseForPage(ctx context.Context, pageID string) error {
	query := fmt.Sprintf(`DELETE FROM %s WHERE page_id = $1`, r.tables.EditLocks)
	if _, err := r.db(ctx).Exec(ctx, query, pageID); err != nil {
		return fmt.Errorf("release page locks: %w", err)
	}
	return nil
}

// ReleaseForDirectory deletes all locks on a directory
func (r *PostgresEditLockRepository) ReleaseForDirectory(ctx context.Context, directoryID string) error {
	query := fmt.Sprintf(`DELETE FROM %s WHERE directory_id = $1`, r.tables.EditLocks)
	if _, err := r.db(ctx).Exec(ctx, query, directoryID); err != nil {
		return fmt.Errorf("release directory locks: %w", err)
	}
	return nil
}

// DeleteExpired removes expired locks, returning the number deleted
func (r *PostgresEditLockRepository) DeleteExpired(ctx context.Context, now time.Time) (int, error) {
	query := fmt.Sprintf(`DELETE FROM %s WHERE expires_at <= $1`, r.tables.EditLocks)

	result, err := r.db(ctx).Exec(ctx, query, now)
	if err != nil {
		return 0, fmt.Errorf("delete expired locks: %w", err)
	}
	return int(result.RowsAffected()), nil
}
