package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"lorebook/internal/domain/models/wiki"
	"lorebook/internal/domain/repositories"
	wikiRepo "lorebook/internal/domain/repositories/wiki"
)

// PostgresRevisionRepository implements the RevisionRepository interface
type PostgresRevisionRepository struct {
	pool   *pgxpool.Pool
	tables *TableNames
}

// NewRevisionRepository creates a new revision repository
func NewRevisionRepository(config *RepositoryConfig) wikiRepo.RevisionRepository {
	return &PostgresRevisionRepository{
		pool:   config.Pool,
		tables: config.Tables,
	}
}

func (r *PostgresRevisionRepository) db(ctx context.Context) repositories.DBTX {
	return GetExecutor(ctx, r.pool)
}

// CreatePageRevision writes the next page snapshot. The revision number
// is computed in the insert itself so concurrent saves inside their
// transactions cannot pick the same number.
func (r *PostgresRevisionRepository) CreatePageRevision(ctx context.Context, rev *wiki.PageRevision) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (id, page_id, title, content, visibility, editability,
		                change_message, revision_number, created_by, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7,
		        (SELECT COALESCE(MAX(revision_number), 0) + 1 FROM %s WHERE page_id = $2),
		        $8, $9)
		RETURNING revision_number
	`, r.tables.PageRevisions, r.tables.PageRevisions)

	err := r.db(ctx).QueryRow(ctx, query,
		rev.ID,
		rev.PageID,
		rev.Title,
		rev.Content,
		rev.Visibility,
		rev.Editability,
		rev.ChangeMessage,
		rev.CreatedBy,
		rev.CreatedAt,
	).Scan(&rev.RevisionNumber)
	if err != nil {
		return fmt.Errorf("create page revision: %w", err)
	}

	return nil
}

// ListPageRevisions lists snapshots newest first
func (r *PostgresRevisionRepository) ListPageRevisions(ctx context.Context, pageID string, limit int) ([]wiki.PageRevision, error) {
	query := fmt.Sprintf(`
		SELECT id, page_id, title, content, visibility, editability,
		       change_message, revision_number, created_by, created_at
		FROM %s
		WHERE page_id = $1
		ORDER BY revision_number DESC
		LIMIT $2
	`, r.tables.PageRevisions)

	rows, err := r.db(ctx).Query(ctx, query, pageID, limit)
	if err != nil {
		return nil, fmt.Errorf("list page revisions: %w", err)
	}
	defer rows.Close()

	var revs []wiki.PageRevision
	for rows.Next() {
		var rev wiki.PageRevision
		err := rows.Scan(
			&rev.ID,
			&rev.PageID,
			&rev.Title,
			&rev.Content,
			&rev.Visibility,
			&rev.Editability,
			&rev.ChangeMessage,
			&rev.RevisionNumber,
			&rev.CreatedBy,
			&rev.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan page revision: %w", err)
		}
		revs = append(revs, rev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list page revisions: %w", err)
	}

	return revs, nil
}

// CreateDirectoryRevision writes the next directory snapshot
func (r *PostgresRevisionRepository) CreateDirectoryRevision(ctx context.Context, rev *wiki.DirectoryRevision) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (id, directory_id, title, description, visibility, editability,
		                change_message, revision_number, created_by, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7,
		        (SELECT COALESCE(MAX(revision_number), 0) + 1 FROM %s WHERE directory_id = $2),
		        $8, $9)
		RETURNING revision_number
	`, r.tables.DirectoryRevisions, r.tables.DirectoryRevisions)

	err := r.db(ctx).QueryRow(ctx, query,
		rev.ID,
		rev.DirectoryID,
		rev.Title,
		rev.Description,
		rev.Visibility,
		rev.Editability,
		rev.ChangeMessage,
		rev.CreatedBy,
		rev.CreatedAt,
	).Scan(&rev.RevisionNumber)
	if err != nil {
		return fmt.Errorf("create directory revision: %w", err)
	}

	return nil
}

// ListDirectoryRevisions lists snapshots newest first
func (r *PostgresRevisionRepository) ListDirectoryRevisions(ctx context.Context, directoryID string, limit int) ([]wiki.DirectoryRevision, error) {
	query := fmt.Sprintf(`
		SELECT id, directory_id, title, description, visibility, editability,
		       change_message, revision_number, created_by, created_at
		FROM %s
		WHERE directory_id = $1
		ORDER BY revision_number DESC
		LIMIT $2
	`, r.tables.DirectoryRevisions)

	rows, err := r.db(ctx).Query(ctx, query, directoryID, limit)
	if err != nil {
		return nil, fmt.Errorf("list directory revisions: %w", err)
	}
	defer rows.Close()

	var revs []wiki.DirectoryRevision
	for rows.Next() {
		var rev wiki.DirectoryRevision
		err := rows.Scan(
			&rev.ID,
			&rev.DirectoryID,
			&rev.Title,
			&rev.Description,
			&rev.Visibility,
			&rev.Editability,
			&rev.ChangeMessage,
			&rev.RevisionNumber,
			&rev.CreatedBy,
			&rev.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan directory revision: %w", err)
		}
		revs = append(revs, rev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list directory revisions: %w", err)
	}

	return revs, nil
}
