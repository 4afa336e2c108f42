package wiki

// TargetType identifies what kind of node a grant is attached to.
type TargetType string

const (
	TargetDirectory TargetType = "directory"
	TargetPage      TargetType = "page"
)

// PermissionType is the level of access a grant confers.
type PermissionType string

const (
	PermissionView  PermissionType = "view"
	PermissionEdit  PermissionType = "edit"
	PermissionOwner PermissionType = "owner"
)

// GrantsEdit reports whether this permission type confers edit access.
func (p PermissionType) GrantsEdit() bool {
	return p == PermissionEdit || p == PermissionOwner
}

// PrincipalKind discriminates the Principal union.
type PrincipalKind string

const (
	PrincipalUser      PrincipalKind = "user"
	PrincipalGroup     PrincipalKind = "group"
	PrincipalAnonymous PrincipalKind = "anonymous"
)

// Principal is a user or a group; an anonymous principal has no ID.
// Grants name a user or a group principal, never an anonymous one.
type Principal struct {
	Kind PrincipalKind `json:"kind"`
	ID   string        `json:"id,omitempty"`
}

// UserPrincipal returns a principal for an authenticated user.
func UserPrincipal(userID string) Principal {
	return Principal{Kind: PrincipalUser, ID: userID}
}

// GroupPrincipal returns a principal for a group.
func GroupPrincipal(groupID string) Principal {
	return Principal{Kind: PrincipalGroup, ID: groupID}
}

// Anonymous returns the unauthenticated principal.
func Anonymous() Principal {
	return Principal{Kind: PrincipalAnonymous}
}

// IsAuthenticated reports whether the principal is a signed-in user.
func (p Principal) IsAuthenticated() bool {
	return p.Kind == PrincipalUser && p.ID != ""
}

// Grant binds a principal to a directory or page with a permission type.
// At most one grant exists per (target, principal, permission type).
type Grant struct {
	ID             string         `json:"id" db:"id"`
	TargetType     TargetType     `json:"target_type" db:"target_type"`
	TargetID       string         `json:"target_id" db:"target_id"`
	Principal      Principal      `json:"principal"`
	PermissionType PermissionType `json:"permission_type" db:"permission_type"`
}
