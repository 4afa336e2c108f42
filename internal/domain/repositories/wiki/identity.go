package wiki

import (
	"context"
)

// IdentityRepository reads users, group membership and the system owner
// from the identity store. The wiki core never writes group membership;
// AddUserToGroup/RemoveUserFromGroup exist for seeding and administration.
type IdentityRepository interface {
	// GroupIDsForUser returns the IDs of every group the user belongs to
	GroupIDsForUser(ctx context.Context, userID string) ([]string, error)

	// SystemOwnerID returns the system owner's user ID, or "" when no
	// owner has been bootstrapped yet
	SystemOwnerID(ctx context.Context) (string, error)

	// SetSystemOwnerIfUnset records the first user as system owner.
	// Returns true if this call set the owner.
	SetSystemOwnerIfUnset(ctx context.Context, userID string) (bool, error)

	// EnsureUser upserts a user row (called on first authenticated request)
	EnsureUser(ctx context.Context, userID, email string) error

	// EnsureGroup upserts a group by name and returns its ID
	EnsureGroup(ctx context.Context, name string) (string, error)

	// AddUserToGroup adds a membership row if absent
	AddUserToGroup(ctx context.Context, userID, groupID string) error

	// RemoveUserFromGroup removes a membership row
	RemoveUserFromGroup(ctx context.Context, userID, groupID string) error
}
