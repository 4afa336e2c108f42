package policy

import (
	"context"

	"lorebook/internal/domain/models/wiki"
)

// The policy engine consumes a narrow slice of the persistence layer.
// The postgres repositories satisfy these interfaces; tests supply
// in-memory fakes.

// DirectoryStore loads directories by ID.
type DirectoryStore interface {
	GetByID(ctx context.Context, id string) (*wiki.Directory, error)
}

// TreeStore adds the tree reads and settings writes propagation needs.
type TreeStore interface {
	DirectoryStore
	ListChildren(ctx context.Context, parentID *string) ([]wiki.Directory, error)
	UpdateSettings(ctx context.Context, id string, visibility wiki.Visibility, editability wiki.Editability) error
}

// PageStore is the page access propagation needs.
type PageStore interface {
	ListByDirectory(ctx context.Context, directoryID *string) ([]wiki.Page, error)
	UpdateSettings(ctx context.Context, id string, visibility wiki.Visibility, editability wiki.Editability) error
}

// GrantStore lists and idempotently creates grants.
type GrantStore interface {
	ListForTarget(ctx context.Context, targetType wiki.TargetType, targetID string) ([]wiki.Grant, error)
	Ensure(ctx context.Context, grant *wiki.Grant) (bool, error)
}

// IdentityStore resolves group membership and the system owner.
type IdentityStore interface {
	GroupIDsForUser(ctx context.Context, userID string) ([]string, error)
	SystemOwnerID(ctx context.Context) (string, error)
}
