package wiki

// Visibility controls who may view a directory or page.
type Visibility string

const (
	VisibilityPublic   Visibility = "public"   // viewable by anyone, including anonymous
	VisibilityInternal Visibility = "internal" // viewable by any authenticated user
	VisibilityPrivate  Visibility = "private"  // owner, system owner, or explicit grant only
)

// Editability controls who may edit, independent of visibility and grants.
type Editability string

const (
	EditabilityRestricted Editability = "restricted" // grant-only editing
	EditabilityInternal   Editability = "internal"   // any authenticated user may edit
)

// opennessRank orders visibilities from most closed to most open.
// Unknown values rank as private so malformed data fails closed.
var opennessRank = map[Visibility]int{
	VisibilityPrivate:  0,
	VisibilityInternal: 1,
	VisibilityPublic:   2,
}

// IsMoreOpenThan reports whether v is strictly more open than other.
func (v Visibility) IsMoreOpenThan(other Visibility) bool {
	return opennessRank[v] > opennessRank[other]
}

// Valid reports whether v is one of the known visibility values.
func (v Visibility) Valid() bool {
	_, ok := opennessRank[v]
	return ok
}

// Valid reports whether e is one of the known editability values.
func (e Editability) Valid() bool {
	return e == EditabilityRestricted || e == EditabilityInternal
}
