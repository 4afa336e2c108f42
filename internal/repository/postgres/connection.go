package postgres

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"

	"lorebook/internal/domain/repositories"
)

// RepositoryConfig holds configuration for repository implementations
type RepositoryConfig struct {
	Pool   *pgxpool.Pool
	Tables *TableNames
	Logger *slog.Logger
}

// TableNames holds dynamically prefixed table names
type TableNames struct {
	Directories        string
	Pages              string
	Grants             string
	Users              string
	Groups             string
	GroupMembers       string
	SystemConfig       string
	PageRevisions      string
	DirectoryRevisions string
	EditLocks          string
	PageLinks          string
}

// NewTableNames creates table names with the given prefix. Prefixes keep
// dev/test/prod data apart inside one database.
func NewTableNames(prefix string) *TableNames {
	return &TableNames{
		Directories:        fmt.Sprintf("%sdirectories", prefix),
		Pages:              fmt.Sprintf("%spages", prefix),
		Grants:             fmt.Sprintf("%sgrants", prefix),
		Users:              fmt.Sprintf("%susers", prefix),
		Groups:             fmt.Sprintf("%sgroups", prefix),
		GroupMembers:       fmt.Sprintf("%sgroup_members", prefix),
		SystemConfig:       fmt.Sprintf("%ssystem_config", prefix),
		PageRevisions:      fmt.Sprintf("%spage_revisions", prefix),
		DirectoryRevisions: fmt.Sprintf("%sdirectory_revisions", prefix),
		EditLocks:          fmt.Sprintf("%sedit_locks", prefix),
		PageLinks:          fmt.Sprintf("%spage_links", prefix),
	}
}

// CreateConnectionPool creates a new pgx connection pool.
//
// Dynamic table names are interpolated into the SQL string before it is
// sent to the database, so each prefix gets its own prepared statements;
// this stays safe with pgx's statement caching.
func CreateConnectionPool(ctx context.Context, databaseURL string) (*pgxpool.Pool, error) {
	config, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse connection string: %w", err)
	}

	config.MaxConns = 25
	config.MinConns = 5

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return pool, nil
}

// GetExecutor returns the appropriate query executor for the context.
// If a transaction is present in the context, it returns the transaction;
// otherwise the pool. This lets repositories automatically participate in
// transactions opened by the TransactionManager.
func GetExecutor(ctx context.Context, pool *pgxpool.Pool) repositories.DBTX {
	if tx := repositories.GetTx(ctx); tx != nil {
		return tx
	}
	return pool
}
