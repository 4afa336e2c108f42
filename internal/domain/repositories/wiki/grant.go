package wiki

import (
	"context"

	"lorebook/internal/domain/models/wiki"
)

// GrantRepository defines data access operations for permission grants
type GrantRepository interface {
	// ListForTarget lists every grant on a directory or page; the policy
	// evaluator filters by principal and permission type
	ListForTarget(ctx context.Context, targetType wiki.TargetType, targetID string) ([]wiki.Grant, error)

	// Ensure creates the grant if no grant exists for the same
	// (target, principal, permission type) tuple. Returns true if created.
	Ensure(ctx context.Context, grant *wiki.Grant) (bool, error)

	// Delete removes a single grant by ID
	Delete(ctx context.Context, id string) error

	// GetByID retrieves a grant by ID
	GetByID(ctx context.Context, id string) (*wiki.Grant, error)

	// DeleteForTarget removes all grants on a target (delete cascade)
	DeleteForTarget(ctx context.Context, targetType wiki.TargetType, targetID string) error
}
