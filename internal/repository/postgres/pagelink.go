package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"lorebook/internal/domain/models/wiki"
	"lorebook/internal/domain/repositories"
	wikiRepo "lorebook/internal/domain/repositories/wiki"
)

// PostgresPageLinkRepository implements the PageLinkRepository interface
type PostgresPageLinkRepository struct {
	pool   *pgxpool.Pool
	tables *TableNames
}

// NewPageLinkRepository creates a new page link repository
func NewPageLinkRepository(config *RepositoryConfig) wikiRepo.PageLinkRepository {
	return &PostgresPageLinkRepository{
		pool:   config.Pool,
		tables: config.Tables,
	}
}

func (r *PostgresPageLinkRepository) db(ctx context.Context) repositories.DBTX {
	return GetExecutor(ctx, r.pool)
}

// Replace rewrites the outgoing link set of a page
func (r *PostgresPageLinkRepository) Replace(ctx context.Context, fromPageID string, toPageIDs []string) error {
	del := fmt.Sprintf(`DELETE FROM %s WHERE from_page_id = $1`, r.tables.PageLinks)
	if _, err := r.db(ctx).Exec(ctx, del, fromPageID); err != nil {
		return fmt.Errorf("clear page links: %w", err)
	}

	if len(toPageIDs) == 0 {
		return nil
	}

	ins := fmt.Sprintf(`
		INSERT INTO %s (from_page_id, to_page_id)
		SELECT $1, unnest($2::text[])
		ON CONFLICT DO NOTHING
	`, r.tables.PageLinks)
	if _, err := r.db(ctx).Exec(ctx, ins, fromPageID, toPageIDs); err != nil {
		return fmt.Errorf("insert page links: %w", err)
	}
	return nil
}

// ListIncoming lists links pointing at a page (backlinks)
func (r *PostgresPageLinkRepository) ListIncoming(ctx context.Context, toPageID string) ([]wiki.PageLink, error) {
	query := fmt.Sprintf(`
		SELECT from_page_id, to_page_id FROM %s WHERE to_page_id = $1
	`, r.tables.PageLinks)

	rows, err := r.db(ctx).Query(ctx, query, toPageID)
	if err != nil {
		return nil, fmt.Errorf("list incoming links: %w", err)
	}
	defer rows.Close()

	var links []wiki.PageLink
	for rows.Next() {
		var link wiki.PageLink
		if err := rows.Scan(&link.FromPageID, &link.ToPageID); err != nil {
			return nil, fmt.Errorf("scan page link: %w", err)
		}
		links = append(links, link)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list incoming links: %w", err)
	}

	return links, nil
}
