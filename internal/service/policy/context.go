package policy

import (
	"context"

	"lorebook/internal/domain/models/wiki"
)

// Context carries the memoized state of one policy evaluation: the
// principal, their group IDs, the system owner, and directories already
// loaded during ancestor walks. A Context is scoped to a single logical
// request and must never be shared across evaluations for different
// principals. Stale group membership is invalidated by constructing a
// new Context, never by mutating an existing one.
type Context struct {
	Principal wiki.Principal

	groupIDs     map[string]struct{}
	groupsLoaded bool

	systemOwnerID     string
	systemOwnerLoaded bool

	directories map[string]*wiki.Directory
}

// NewContext creates a fresh evaluation context for a principal.
func NewContext(principal wiki.Principal) *Context {
	return &Context{
		Principal:   principal,
		directories: make(map[string]*wiki.Directory),
	}
}

// groupIDs returns the principal's group IDs, fetching them at most once
// per context. Anonymous and group principals resolve to no groups.
func (e *Evaluator) groupIDs(ctx context.Context, ec *Context) (map[string]struct{}, error) {
	if ec.groupsLoaded {
		return ec.groupIDs, nil
	}

	ids := make(map[string]struct{})
	if ec.Principal.IsAuthenticated() {
		fetched, err := e.identity.GroupIDsForUser(ctx, ec.Principal.ID)
		if err != nil {
			return nil, err
		}
		for _, id := range fetched {
			ids[id] = struct{}{}
		}
	}

	ec.groupIDs = ids
	ec.groupsLoaded = true
	return ids, nil
}

// IsSystemOwner reports whether the principal is the bootstrapped system
// owner. The owner ID is fetched at most once per context.
func (e *Evaluator) IsSystemOwner(ctx context.Context, ec *Context) (bool, error) {
	if !ec.Principal.IsAuthenticated() {
		return false, nil
	}

	if !ec.systemOwnerLoaded {
		ownerID, err := e.identity.SystemOwnerID(ctx)
		if err != nil {
			return false, err
		}
		ec.systemOwnerID = ownerID
		ec.systemOwnerLoaded = true
	}

	return ec.systemOwnerID != "" && ec.systemOwnerID == ec.Principal.ID, nil
}

// directory loads a directory through the context cache.
func (e *Evaluator) directory(ctx context.Context, ec *Context, id string) (*wiki.Directory, error) {
	if dir, ok := ec.directories[id]; ok {
		return dir, nil
	}

	dir, err := e.directories.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	ec.directories[id] = dir
	return dir, nil
}
