package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"lorebook/internal/domain"
	"lorebook/internal/domain/models/wiki"
	"lorebook/internal/domain/repositories"
	wikiRepo "lorebook/internal/domain/repositories/wiki"
)

// PostgresDirectoryRepository implements the DirectoryRepository interface
type PostgresDirectoryRepository struct {
	pool   *pgxpool.Pool
	tables *TableNames
}

// NewDirectoryRepository creates a new directory repository
func NewDirectoryRepository(config *RepositoryConfig) wikiRepo.DirectoryRepository {
	return &PostgresDirectoryRepository{
		pool:   config.Pool,
		tables: config.Tables,
	}
}

func (r *PostgresDirectoryRepository) db(ctx context.Context) repositories.DBTX {
	return GetExecutor(ctx, r.pool)
}

const directoryColumns = `id, parent_id, path, title, description, owner_id, visibility, editability, created_by, created_at, updated_at`

func scanDirectory(row interface{ Scan(...any) error }) (*wiki.Directory, error) {
	var dir wiki.Directory
	err := row.Scan(
		&dir.ID,
		&dir.ParentID,
		&dir.Path,
		&dir.Title,
		&dir.Description,
		&dir.OwnerID,
		&dir.Visibility,
		&dir.Editability,
		&dir.CreatedBy,
		&dir.CreatedAt,
		&dir.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &dir, nil
}

// Create creates a new directory
func (r *PostgresDirectoryRepository) Create(ctx context.Context, directory *wiki.Directory) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (%s)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`, r.tables.Directories, directoryColumns)

	_, err := r.db(ctx).Exec(ctx, query,
		directory.ID,
		directory.ParentID,
		directory.Path,
		directory.Title,
		directory.Description,
		directory.OwnerID,
		directory.Visibility,
		directory.Editability,
		directory.CreatedBy,
		directory.CreatedAt,
		directory.UpdatedAt,
	)
	if err != nil {
		if isPgDuplicateError(err) {
			return fmt.Errorf("directory path '%s': %w", directory.Path, domain.ErrConflict)
		}
		return fmt.Errorf("create directory: %w", err)
	}

	return nil
}

// GetByID retrieves a directory by ID
func (r *PostgresDirectoryRepository) GetByID(ctx context.Context, id string) (*wiki.Directory, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE id = $1`, directoryColumns, r.tables.Directories)

	dir, err := scanDirectory(r.db(ctx).QueryRow(ctx, query, id))
	if err != nil {
		if isPgNoRowsError(err) {
			return nil, fmt.Errorf("directory %s: %w", id, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("get directory: %w", err)
	}
	return dir, nil
}

// GetByPath retrieves a directory by its full path ("" = root)
func (r *PostgresDirectoryRepository) GetByPath(ctx context.Context, path string) (*wiki.Directory, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE path = $1`, directoryColumns, r.tables.Directories)

	dir, err := scanDirectory(r.db(ctx).QueryRow(ctx, query, path))
	if err != nil {
		if isPgNoRowsError(err) {
			return nil, fmt.Errorf("directory path '%s': %w", path, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("get directory by path: %w", err)
	}
	return dir, nil
}

// GetRoot retrieves the single root directory
func (r *PostgresDirectoryRepository) GetRoot(ctx context.Context) (*wiki.Directory, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE parent_id IS NULL`, directoryColumns, r.tables.Directories)

	dir, err := scanDirectory(r.db(ctx).QueryRow(ctx, query))
	if err != nil {
		if isPgNoRowsError(err) {
			return nil, fmt.Errorf("root directory: %w", domain.ErrNotFound)
		}
		return nil, fmt.Errorf("get root directory: %w", err)
	}
	return dir, nil
}

// Update updates a directory's metadata and placement
func (r *PostgresDirectoryRepository) Update(ctx context.Context, directory *wiki.Directory) error {
	query := fmt.Sprintf(`
		UPDATE %s
		SET parent_id = $1, path = $2, title = $3, description = $4,
		    visibility = $5, editability = $6, updated_at = $7
		WHERE id = $8
	`, r.tables.Directories)

	result, err := r.db(ctx).Exec(ctx, query,
		directory.ParentID,
		directory.Path,
		directory.Title,
		directory.Description,
		directory.Visibility,
		directory.Editability,
		directory.UpdatedAt,
		directory.ID,
	)
	if err != nil {
		if isPgDuplicateError(err) {
			return fmt.Errorf("directory path '%s': %w", directory.Path, domain.ErrConflict)
		}
		return fmt.Errorf("update directory: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("directory %s: %w", directory.ID, domain.ErrNotFound)
	}

	return nil
}

// UpdateSettings overwrites only visibility and editability
func (r *PostgresDirectoryRepository) UpdateSettings(ctx context.Context, id string, visibility wiki.Visibility, editability wiki.Editability) error {
	query := fmt.Sprintf(`
		UPDATE %s SET visibility = $1, editability = $2, updated_at = now()
		WHERE id = $3
	`, r.tables.Directories)

	result, err := r.db(ctx).Exec(ctx, query, visibility, editability, id)
	if err != nil {
		return fmt.Errorf("update directory settings: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("directory %s: %w", id, domain.ErrNotFound)
	}
	return nil
}

// UpdateSubtreePaths rewrites the path prefix of every descendant after
// a move or rename
func (r *PostgresDirectoryRepository) UpdateSubtreePaths(ctx context.Context, oldPrefix, newPrefix string) error {
	query := fmt.Sprintf(`
		UPDATE %s
		SET path = $2 || substring(path from char_length($1::text) + 1), updated_at = now()
		WHERE path LIKE $1 || '%%'
	`, r.tables.Directories)

	if _, err := r.db(ctx).Exec(ctx, query, oldPrefix, newPrefix); err != nil {
		return fmt.Errorf("update subtree paths: %w", err)
	}
	return nil
}

// Delete deletes a directory. Foreign keys restrict the delete while
// children or pages remain.
func (r *PostgresDirectoryRepository) Delete(ctx context.Context, id string) error {
	query := fmt.Sprintf(`DELETE FROM %s WHERE id = $1`, r.tables.Directories)

	result, err := r.db(ctx).Exec(ctx, query, id)
	if err != nil {
		if isPgForeignKeyError(err) {
			return fmt.Errorf("directory %s is not empty: %w", id, domain.ErrConflict)
		}
		return fmt.Errorf("delete directory: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("directory %s: %w", id, domain.ErrNotFound)
	}
	return nil
}

// ListChildren lists immediate child directories ordered by title
func (r *PostgresDirectoryRepository) ListChildren(ctx context.Context, parentID *string) ([]wiki.Directory, error) {
	var query string
	var args []any
	if parentID == nil {
		query = fmt.Sprintf(`
			SELECT %s FROM %s
			WHERE parent_id IS NULL
			ORDER BY title
		`, directoryColumns, r.tables.Directories)
	} else {
		query = fmt.Sprintf(`
			SELECT %s FROM %s
			WHERE parent_id = $1
			ORDER BY title
		`, directoryColumns, r.tables.Directories)
		args = append(args, *parentID)
	}

	rows, err := r.db(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list child directories: %w", err)
	}
	defer rows.Close()

	var children []wiki.Directory
	for rows.Next() {
		dir, err := scanDirectory(rows)
		if err != nil {
			return nil, fmt.Errorf("scan directory: %w", err)
		}
		children = append(children, *dir)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list child directories: %w", err)
	}

	return children, nil
}

// HasChildren reports whether the directory contains subdirectories or pages
func (r *PostgresDirectoryRepository) HasChildren(ctx context.Context, id string) (bool, error) {
	query := fmt.Sprintf(`
		SELECT EXISTS (SELECT 1 FROM %s WHERE parent_id = $1)
		    OR EXISTS (SELECT 1 FROM %s WHERE directory_id = $1)
	`, r.tables.Directories, r.tables.Pages)

	var has bool
	if err := r.db(ctx).QueryRow(ctx, query, id).Scan(&has); err != nil {
		return false, fmt.Errorf("check directory contents: %w", err)
	}
	return has, nil
}
