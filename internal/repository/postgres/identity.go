package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"lorebook/internal/domain/repositories"
	wikiRepo "lorebook/internal/domain/repositories/wiki"
)

// PostgresIdentityRepository implements the IdentityRepository interface.
// The system owner lives in a single-row config table; the first
// authenticated user claims it.
type PostgresIdentityRepository struct {
	pool   *pgxpool.Pool
	tables *TableNames
}

// NewIdentityRepository creates a new identity repository
func NewIdentityRepository(config *RepositoryConfig) wikiRepo.IdentityRepository {
	return &PostgresIdentityRepository{
		pool:   config.Pool,
		tables: config.Tables,
	}
}

func (r *PostgresIdentityRepository) db(ctx context.Context) repositories.DBTX {
	return GetExecutor(ctx, r.pool)
}

// GroupIDsForUser returns the IDs of every group the user belongs to
func (r *PostgresIdentityRepository) GroupIDsForUser(ctx context.Context, userID string) ([]string, error) {
	query := fmt.Sprintf(`SELECT group_id FROM %s WHERE user_id = $1`, r.tables.GroupMembers)

	rows, err := r.db(ctx).Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("list user groups: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan group id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list user groups: %w", err)
	}

	return ids, nil
}

// SystemOwnerID returns the system owner's user ID, or "" when no owner
// has been bootstrapped yet
func (r *PostgresIdentityRepository) SystemOwnerID(ctx context.Context) (string, error) {
	query := fmt.Sprintf(`SELECT owner_id FROM %s WHERE id = 1`, r.tables.SystemConfig)

	var ownerID *string
	err := r.db(ctx).QueryRow(ctx, query).Scan(&ownerID)
	if err != nil {
		if isPgNoRowsError(err) {
			return "", nil
		}
		return "", fmt.Errorf("get system owner: %w", err)
	}
	if ownerID == nil {
		return "", nil
	}
	return *ownerID, nil
}

// SetSystemOwnerIfUnset records the first user as system owner. The
// single-row upsert only writes when owner_id is still NULL, so
// concurrent first requests elect exactly one owner.
func (r *PostgresIdentityRepository) SetSystemOwnerIfUnset(ctx context.Context, userID string) (bool, error) {
	query := fmt.Sprintf(`
		INSERT INTO %s (id, owner_id) VALUES (1, $1)
		ON CONFLICT (id) DO UPDATE SET owner_id = EXCLUDED.owner_id
		WHERE %s.owner_id IS NULL
	`, r.tables.SystemConfig, r.tables.SystemConfig)

	result, err := r.db(ctx).Exec(ctx, query, userID)
	if err != nil {
		return false, fmt.Errorf("set system owner: %w", err)
	}
	return result.RowsAffected() > 0, nil
}

// EnsureUser upserts a user row, refreshing the email on conflict
func (r *PostgresIdentityRepository) EnsureUser(ctx context.Context, userID, email string) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (id, email, created_at) VALUES ($1, $2, now())
		ON CONFLICT (id) DO UPDATE SET email = EXCLUDED.email
	`, r.tables.Users)

	if _, err := r.db(ctx).Exec(ctx, query, userID, email); err != nil {
		return fmt.Errorf("ensure user: %w", err)
	}
	return nil
}

// EnsureGroup upserts a group by name and returns its ID
func (r *PostgresIdentityRepository) EnsureGroup(ctx context.Context, name string) (string, error) {
	query := fmt.Sprintf(`
		INSERT INTO %s (id, name, created_at) VALUES (gen_random_uuid(), $1, now())
		ON CONFLICT (name) DO UPDATE SET name = EXCLUDED.name
		RETURNING id
	`, r.tables.Groups)

	var id string
	if err := r.db(ctx).QueryRow(ctx, query, name).Scan(&id); err != nil {
		return "", fmt.Errorf("ensure group: %w", err)
	}
	return id, nil
}

// AddUserToGroup adds a membership row if absent
func (r *PostgresIdentityRepository) AddUserToGroup(ctx context.Context, userID, groupID string) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (user_id, group_id) VALUES ($1, $2)
		ON CONFLICT (user_id, group_id) DO NOTHING
	`, r.tables.GroupMembers)

	if _, err := r.db(ctx).Exec(ctx, query, userID, groupID); err != nil {
		return fmt.Errorf("add group member: %w", err)
	}
	return nil
}

// RemoveUserFromGroup removes a membership row
func (r *PostgresIdentityRepository) RemoveUserFromGroup(ctx context.Context, userID, groupID string) error {
	query := fmt.Sprintf(`DELETE FROM %s WHERE user_id = $1 AND group_id = $2`, r.tables.GroupMembers)

	if _, err := r.db(ctx).Exec(ctx, query, userID, groupID); err != nil {
		return fmt.Errorf("remove group member: %w", err)
	}
	return nil
}
