package policy

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"lorebook/internal/domain/models/wiki"
	"lorebook/internal/domain/repositories"
)

// fakeStore is an in-memory tree/grant/identity store backing the policy
// tests. It satisfies TreeStore, PageStore, GrantStore and IdentityStore.
type fakeStore struct {
	directories map[string]*wiki.Directory
	pages       map[string]*wiki.Page
	grants      []wiki.Grant
	groups      map[string][]string // userID -> group IDs
	systemOwner string

	grantSeq     int
	groupFetches int // GroupIDsForUser call count, for memoization tests
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		directories: make(map[string]*wiki.Directory),
		pages:       make(map[string]*wiki.Page),
		groups:      make(map[string][]string),
	}
}

func (f *fakeStore) addDirectory(id string, parentID *string, visibility wiki.Visibility, editability wiki.Editability, ownerID *string) *wiki.Directory {
	dir := &wiki.Directory{
		ID:          id,
		ParentID:    parentID,
		Title:       id,
		Visibility:  visibility,
		Editability: editability,
		OwnerID:     ownerID,
	}
	f.directories[id] = dir
	return dir
}

func (f *fakeStore) addPage(id string, directoryID *string, visibility wiki.Visibility, editability wiki.Editability, ownerID *string) *wiki.Page {
	page := &wiki.Page{
		ID:          id,
		Slug:        id,
		Title:       id,
		DirectoryID: directoryID,
		Visibility:  visibility,
		Editability: editability,
		OwnerID:     ownerID,
	}
	f.pages[id] = page
	return page
}

func (f *fakeStore) addGrant(targetType wiki.TargetType, targetID string, principal wiki.Principal, permission wiki.PermissionType) {
	f.grantSeq++
	f.grants = append(f.grants, wiki.Grant{
		ID:             fmt.Sprintf("grant-%d", f.grantSeq),
		TargetType:     targetType,
		TargetID:       targetID,
		Principal:      principal,
		PermissionType: permission,
	})
}

func (f *fakeStore) GetByID(ctx context.Context, id string) (*wiki.Directory, error) {
	dir, ok := f.directories[id]
	if !ok {
		return nil, fmt.Errorf("directory %s not in fake store", id)
	}
	return dir, nil
}

func (f *fakeStore) ListChildren(ctx context.Context, parentID *string) ([]wiki.Directory, error) {
	var children []wiki.Directory
	for _, dir := range f.directories {
		if parentID == nil {
			if dir.ParentID == nil {
				children = append(children, *dir)
			}
		} else if dir.ParentID != nil && *dir.ParentID == *parentID {
			children = append(children, *dir)
		}
	}
	return children, nil
}

func (f *fakeStore) UpdateSettings(ctx context.Context, id string, visibility wiki.Visibility, editability wiki.Editability) error {
	dir, ok := f.directories[id]
	if !ok {
		return fmt.Errorf("directory %s not in fake store", id)
	}
	dir.Visibility = visibility
	dir.Editability = editability
	return nil
}

func (f *fakeStore) ListByDirectory(ctx context.Context, directoryID *string) ([]wiki.Page, error) {
	var pages []wiki.Page
	for _, page := range f.pages {
		if directoryID == nil {
			if page.DirectoryID == nil {
				pages = append(pages, *page)
			}
		} else if page.DirectoryID != nil && *page.DirectoryID == *directoryID {
			pages = append(pages, *page)
		}
	}
	return pages, nil
}

// pageStore adapts fakeStore so its page UpdateSettings does not collide
// with the directory method of the same name.
type fakePageStore struct {
	*fakeStore
}

func (f fakePageStore) UpdateSettings(ctx context.Context, id string, visibility wiki.Visibility, editability wiki.Editability) error {
	page, ok := f.pages[id]
	if !ok {
		return fmt.Errorf("page %s not in fake store", id)
	}
	page.Visibility = visibility
	page.Editability = editability
	return nil
}

func (f *fakeStore) ListForTarget(ctx context.Context, targetType wiki.TargetType, targetID string) ([]wiki.Grant, error) {
	var out []wiki.Grant
	for _, g := range f.grants {
		if g.TargetType == targetType && g.TargetID == targetID {
			out = append(out, g)
		}
	}
	return out, nil
}

// Ensure mirrors the Postgres store: the caller supplies the ID, and only
// the (target, principal, permission) tuple deduplicates.
func (f *fakeStore) Ensure(ctx context.Context, grant *wiki.Grant) (bool, error) {
	if grant.ID == "" {
		return false, fmt.Errorf("grant for %s %s has no id", grant.TargetType, grant.TargetID)
	}
	for _, g := range f.grants {
		if g.ID == grant.ID {
			return false, fmt.Errorf("duplicate grant id %s", grant.ID)
		}
	}
	for _, g := range f.grants {
		if g.TargetType == grant.TargetType && g.TargetID == grant.TargetID &&
			g.Principal == grant.Principal && g.PermissionType == grant.PermissionType {
			return false, nil
		}
	}
	f.grants = append(f.grants, *grant)
	return true, nil
}

func (f *fakeStore) GroupIDsForUser(ctx context.Context, userID string) ([]string, error) {
	f.groupFetches++
	return f.groups[userID], nil
}

func (f *fakeStore) SystemOwnerID(ctx context.Context) (string, error) {
	return f.systemOwner, nil
}

// fakeTxManager runs the function directly; the fake store has no
// transaction semantics.
type fakeTxManager struct{}

func (fakeTxManager) ExecTx(ctx context.Context, fn repositories.TxFn) error {
	return fn(ctx)
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func newTestEvaluator(store *fakeStore) *Evaluator {
	return NewEvaluator(store, store, store, testLogger())
}

func newTestPropagator(store *fakeStore) *Propagator {
	return NewPropagator(store, fakePageStore{store}, store, fakeTxManager{}, testLogger())
}

func strptr(s string) *string {
	return &s
}
