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

// searchLanguage is the text search configuration for page search.
const searchLanguage = "english"

// PostgresPageRepository implements the PageRepository interface
type PostgresPageRepository struct {
	pool   *pgxpool.Pool
	tables *TableNames
}

// NewPageRepository creates a new page repository
func NewPageRepository(config *RepositoryConfig) wikiRepo.PageRepository {
	return &PostgresPageRepository{
		pool:   config.Pool,
		tables: config.Tables,
	}
}

func (r *PostgresPageRepository) db(ctx context.Context) repositories.DBTX {
	return GetExecutor(ctx, r.pool)
}

const pageColumns = `id, slug, title, content, directory_id, owner_id, visibility, editability, change_message, created_by, updated_by, created_at, updated_at`

func scanPage(row interface{ Scan(...any) error }) (*wiki.Page, error) {
	var page wiki.Page
	err := row.Scan(
		&page.ID,
		&page.Slug,
		&page.Title,
		&page.Content,
		&page.DirectoryID,
		&page.OwnerID,
		&page.Visibility,
		&page.Editability,
		&page.ChangeMessage,
		&page.CreatedBy,
		&page.UpdatedBy,
		&page.CreatedAt,
		&page.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &page, nil
}

// Create creates a new page
func (r *PostgresPageRepository) Create(ctx context.Context, page *wiki.Page) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (%s)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`, r.tables.Pages, pageColumns)

	_, err := r.db(ctx).Exec(ctx, query,
		page.ID,
		page.Slug,
		page.Title,
		page.Content,
		page.DirectoryID,
		page.OwnerID,
		page.Visibility,
		page.Editability,
		page.ChangeMessage,
		page.CreatedBy,
		page.UpdatedBy,
		page.CreatedAt,
		page.UpdatedAt,
	)
	if err != nil {
		if isPgDuplicateError(err) {
			return fmt.Errorf("page slug '%s': %w", page.Slug, domain.ErrConflict)
		}
		return fmt.Errorf("create page: %w", err)
	}

	return nil
}

// GetByID retrieves a page by ID
func (r *PostgresPageRepository) GetByID(ctx context.Context, id string) (*wiki.Page, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE id = $1`, pageColumns, r.tables.Pages)

	page, err := scanPage(r.db(ctx).QueryRow(ctx, query, id))
	if err != nil {
		if isPgNoRowsError(err) {
			return nil, fmt.Errorf("page %s: %w", id, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("get page: %w", err)
	}
	return page, nil
}

// GetBySlug retrieves a page by its unique slug
func (r *PostgresPageRepository) GetBySlug(ctx context.Context, slug string) (*wiki.Page, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE slug = $1`, pageColumns, r.tables.Pages)

	page, err := scanPage(r.db(ctx).QueryRow(ctx, query, slug))
	if err != nil {
		if isPgNoRowsError(err) {
			return nil, fmt.Errorf("page slug '%s': %w", slug, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("get page by slug: %w", err)
	}
	return page, nil
}

// GetBySlugs retrieves pages for a set of slugs. Missing slugs are simply
// absent from the result.
func (r *PostgresPageRepository) GetBySlugs(ctx context.Context, slugs []string) ([]wiki.Page, error) {
	if len(slugs) == 0 {
		return nil, nil
	}

	query := fmt.Sprintf(`SELECT %s FROM %s WHERE slug = ANY($1)`, pageColumns, r.tables.Pages)

	rows, err := r.db(ctx).Query(ctx, query, slugs)
	if err != nil {
		return nil, fmt.Errorf("get pages by slugs: %w", err)
	}
	defer rows.Close()

	var pages []wiki.Page
	for rows.Next() {
		page, err := scanPage(rows)
		if err != nil {
			return nil, fmt.Errorf("scan page: %w", err)
		}
		pages = append(pages, *page)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("get pages by slugs: %w", err)
	}

	return pages, nil
}

// SlugExists reports whether a slug is taken, excluding one page ID
func (r *PostgresPageRepository) SlugExists(ctx context.Context, slug, excludePageID string) (bool, error) {
	query := fmt.Sprintf(`
		SELECT EXISTS (SELECT 1 FROM %s WHERE slug = $1 AND id <> $2)
	`, r.tables.Pages)

	var exists bool
	if err := r.db(ctx).QueryRow(ctx, query, slug, excludePageID).Scan(&exists); err != nil {
		return false, fmt.Errorf("check slug: %w", err)
	}
	return exists, nil
}

// Update updates a page
func (r *PostgresPageRepository) Update(ctx context.Context, page *wiki.Page) error {
	query := fmt.Sprintf(`
		UPDATE %s
		SET slug = $1, title = $2, content = $3, directory_id = $4,
		    visibility = $5, editability = $6, change_message = $7,
		    updated_by = $8, updated_at = $9
		WHERE id = $10
	`, r.tables.Pages)

	result, err := r.db(ctx).Exec(ctx, query,
		page.Slug,
		page.Title,
		page.Content,
		page.DirectoryID,
		page.Visibility,
		page.Editability,
		page.ChangeMessage,
		page.UpdatedBy,
		page.UpdatedAt,
		page.ID,
	)
	if err != nil {
		if isPgDuplicateError(err) {
			return fmt.Errorf("page slug '%s': %w", page.Slug, domain.ErrConflict)
		}
		return fmt.Errorf("update page: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("page %s: %w", page.ID, domain.ErrNotFound)
	}

	return nil
}

// UpdateSettings overwrites only visibility and editability
func (r *PostgresPageRepository) UpdateSettings(ctx context.Context, id string, visibility wiki.Visibility, editability wiki.Editability) error {
	query := fmt.Sprintf(`
		UPDATE %s SET visibility = $1, editability = $2, updated_at = now()
		WHERE id = $3
	`, r.tables.Pages)

	result, err := r.db(ctx).Exec(ctx, query, visibility, editability, id)
	if err != nil {
		return fmt.Errorf("update page settings: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("page %s: %w", id, domain.ErrNotFound)
	}
	return nil
}

// Delete deletes a page; dependent rows (grants, revisions, links, locks)
// cascade via foreign keys
func (r *PostgresPageRepository) Delete(ctx context.Context, id string) error {
	query := fmt.Sprintf(`DELETE FROM %s WHERE id = $1`, r.tables.Pages)

	result, err := r.db(ctx).Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("delete page: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("page %s: %w", id, domain.ErrNotFound)
	}
	return nil
}

// ListByDirectory lists pages directly inside a directory ordered by title
func (r *PostgresPageRepository) ListByDirectory(ctx context.Context, directoryID *string) ([]wiki.Page, error) {
	var query string
	var args []any
	if directoryID == nil {
		query = fmt.Sprintf(`
			SELECT %s FROM %s
			WHERE directory_id IS NULL
			ORDER BY title
		`, pageColumns, r.tables.Pages)
	} else {
		query = fmt.Sprintf(`
			SELECT %s FROM %s
			WHERE directory_id = $1
			ORDER BY title
		`, pageColumns, r.tables.Pages)
		args = append(args, *directoryID)
	}

	rows, err := r.db(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list pages: %w", err)
	}
	defer rows.Close()

	var pages []wiki.Page
	for rows.Next() {
		page, err := scanPage(rows)
		if err != nil {
			return nil, fmt.Errorf("scan page: %w", err)
		}
		pages = append(pages, *page)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list pages: %w", err)
	}

	return pages, nil
}

// Search performs full-text search over title and content.
//
// PostgreSQL full-text components:
//   - to_tsvector(language, field): converts a field to searchable tokens
//   - websearch_to_tsquery(language, query): parses Google-like syntax
//     (quoted phrases, OR, -exclusion)
//   - ts_rank: relevance score, with title matches weighted 2x
//   - ts_headline: highlighted snippet from the content
func (r *PostgresPageRepository) Search(ctx context.Context, opts *wikiRepo.SearchOptions) ([]wiki.SearchResult, error) {
	where := `(to_tsvector($1, title) @@ websearch_to_tsquery($1, $2)
	        OR to_tsvector($1, content) @@ websearch_to_tsquery($1, $2))`
	args := []any{searchLanguage, opts.Query}

	if opts.DirectoryID != nil {
		args = append(args, *opts.DirectoryID)
		where += fmt.Sprintf(" AND directory_id = $%d", len(args))
	}

	args = append(args, opts.Limit)
	limitParam := len(args)
	args = append(args, opts.Offset)
	offsetParam := len(args)

	query := fmt.Sprintf(`
		SELECT %s,
		       ts_headline($1, content, websearch_to_tsquery($1, $2),
		                   'MaxWords=50, MinWords=20, MaxFragments=1') AS snippet,
		       (ts_rank(to_tsvector($1, title), websearch_to_tsquery($1, $2)) * 2.0
		        + ts_rank(to_tsvector($1, content), websearch_to_tsquery($1, $2))) AS rank
		FROM %s
		WHERE %s
		ORDER BY rank DESC, updated_at DESC
		LIMIT $%d OFFSET $%d
	`, pageColumns, r.tables.Pages, where, limitParam, offsetParam)

	rows, err := r.db(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("search pages: %w", err)
	}
	defer rows.Close()

	var results []wiki.SearchResult
	for rows.Next() {
		var res wiki.SearchResult
		err := rows.Scan(
			&res.Page.ID,
			&res.Page.Slug,
			&res.Page.Title,
			&res.Page.Content,
			&res.Page.DirectoryID,
			&res.Page.OwnerID,
			&res.Page.Visibility,
			&res.Page.Editability,
			&res.Page.ChangeMessage,
			&res.Page.CreatedBy,
			&res.Page.UpdatedBy,
			&res.Page.CreatedAt,
			&res.Page.UpdatedAt,
			&res.Snippet,
			&res.Rank,
		)
		if err != nil {
			return nil, fmt.Errorf("scan search result: %w", err)
		}
		results = append(results, res)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("search pages: %w", err)
	}

	return results, nil
}
