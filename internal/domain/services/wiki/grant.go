package wiki

import (
	"context"

	"lorebook/internal/domain/models/wiki"
)

// GrantService manages explicit permission grants on pages and
// directories. Mutating a target's grants requires edit rights on it.
type GrantService interface {
	// ListGrants lists the grants on a target the principal may view
	ListGrants(ctx context.Context, principal wiki.Principal, targetType wiki.TargetType, targetID string) ([]wiki.Grant, error)

	// AddGrant adds a grant, returning the existing one unchanged if an
	// identical grant is already present
	AddGrant(ctx context.Context, principal wiki.Principal, req *AddGrantRequest) (*wiki.Grant, error)

	// RemoveGrant deletes a grant by ID
	RemoveGrant(ctx context.Context, principal wiki.Principal, grantID string) error
}

// AddGrantRequest represents a grant creation request
type AddGrantRequest struct {
	TargetType    wiki.TargetType     `json:"target_type"`
	TargetID      string              `json:"target_id"`
	PrincipalKind wiki.PrincipalKind  `json:"principal_kind"` // user or group
	PrincipalID   string              `json:"principal_id"`
	Permission    wiki.PermissionType `json:"permission"`
}
