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

// PostgresGrantRepository implements the GrantRepository interface.
// Principals are stored as (kind, id) column pairs.
type PostgresGrantRepository struct {
	pool   *pgxpool.Pool
	tables *TableNames
}

// NewGrantRepository creates a new grant repository
func NewGrantRepository(config *RepositoryConfig) wikiRepo.GrantRepository {
	return &PostgresGrantRepository{
		pool:   config.Pool,
		tables: config.Tables,
	}
}

func (r *PostgresGrantRepository) db(ctx context.Context) repositories.DBTX {
	return GetExecutor(ctx, r.pool)
}

func scanGrant(row interface{ Scan(...any) error }) (*wiki.Grant, error) {
	var grant wiki.Grant
	err := row.Scan(
		&grant.ID,
		&grant.TargetType,
		&grant.TargetID,
		&grant.Principal.Kind,
		&grant.Principal.ID,
		&grant.PermissionType,
	)
	if err != nil {
		return nil, err
	}
	return &grant, nil
}

// ListForTarget lists every grant on a directory or page
func (r *PostgresGrantRepository) ListForTarget(ctx context.Context, targetType wiki.TargetType, targetID string) ([]wiki.Grant, error) {
	query := fmt.Sprintf(`
		SELECT id, target_type, target_id, principal_kind, principal_id, permission_type
		FROM %s
		WHERE target_type = $1 AND target_id = $2
		ORDER BY principal_kind, principal_id, permission_type
	`, r.tables.Grants)

	rows, err := r.db(ctx).Query(ctx, query, targetType, targetID)
	if err != nil {
		return nil, fmt.Errorf("list grants: %w", err)
	}
	defer rows.Close()

	var grants []wiki.Grant
	for rows.Next() {
		grant, err := scanGrant(rows)
		if err != nil {
			return nil, fmt.Errorf("scan grant: %w", err)
		}
		grants = append(grants, *grant)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list grants: %w", err)
	}

	return grants, nil
}

// Ensure creates the grant unless an identical one exists. The unique
// index on (target_type, target_id, principal_kind, principal_id,
// permission_type) makes this race-safe; ON CONFLICT DO NOTHING reports
// zero rows affected for the duplicate case.
func (r *PostgresGrantRepository) Ensure(ctx context.Context, grant *wiki.Grant) (bool, error) {
	query := fmt.Sprintf(`
		INSERT INTO %s (id, target_type, target_id, principal_kind, principal_id, permission_type)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (target_type, target_id, principal_kind, principal_id, permission_type) DO NOTHING
	`, r.tables.Grants)

	result, err := r.db(ctx).Exec(ctx, query,
		grant.ID,
		grant.TargetType,
		grant.TargetID,
		grant.Principal.Kind,
		grant.Principal.ID,
		grant.PermissionType,
	)
	if err != nil {
		return false, fmt.Errorf("ensure grant: %w", err)
	}

	return result.RowsAffected() > 0, nil
}

// Delete removes a single grant by ID
func (r *PostgresGrantRepository) Delete(ctx context.Context, id string) error {
	query := fmt.Sprintf(`DELETE FROM %s WHERE id = $1`, r.tables.Grants)

	result, err := r.db(ctx).Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("delete grant: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("grant %s: %w", id, domain.ErrNotFound)
	}
	return nil
}

// GetByID retrieves a grant by ID
func (r *PostgresGrantRepository) GetByID(ctx context.Context, id string) (*wiki.Grant, error) {
	query := fmt.Sprintf(`
		SELECT id, target_type, target_id, principal_kind, principal_id, permission_type
		FROM %s WHERE id = $1
	`, r.tables.Grants)

	grant, err := scanGrant(r.db(ctx).QueryRow(ctx, query, id))
	if err != nil {
		if isPgNoRowsError(err) {
			return nil, fmt.Errorf("grant %s: %w", id, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("get grant: %w", err)
	}
	return grant, nil
}

// DeleteForTarget removes all grants on a target
func (r *PostgresGrantRepository) DeleteForTarget(ctx context.Context, targetType wiki.TargetType, targetID string) error {
	query := fmt.Sprintf(`DELETE FROM %s WHERE target_type = $1 AND target_id = $2`, r.tables.Grants)

	if _, err := r.db(ctx).Exec(ctx, query, targetType, targetID); err != nil {
		return fmt.Errorf("delete grants for target: %w", err)
	}
	return nil
}
