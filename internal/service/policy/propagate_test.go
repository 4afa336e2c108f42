package policy

import (
	"context"
	"testing"

	"lorebook/internal/domain/models/wiki"
)

// buildTree sets up root -> eng -> devops with pages at each level and a
// couple of grants on eng, returning the store.
func buildTree() *fakeStore {
	store := newFakeStore()
	root := store.addDirectory("root", nil, wiki.VisibilityPublic, wiki.EditabilityRestricted, nil)
	eng := store.addDirectory("eng", &root.ID, wiki.VisibilityInternal, wiki.EditabilityRestricted, nil)
	devops := store.addDirectory("devops", &eng.ID, wiki.VisibilityPublic, wiki.EditabilityInternal, nil)
	store.addPage("eng-page", &eng.ID, wiki.VisibilityPublic, wiki.EditabilityInternal, nil)
	store.addPage("devops-page", &devops.ID, wiki.VisibilityPublic, wiki.EditabilityInternal, nil)
	store.addGrant(wiki.TargetDirectory, eng.ID, wiki.UserPrincipal("bob"), wiki.PermissionEdit)
	store.addGrant(wiki.TargetDirectory, eng.ID, wiki.GroupPrincipal("sre"), wiki.PermissionView)
	return store
}

func grantCount(store *fakeStore, targetType wiki.TargetType, targetID string) int {
	n := 0
	for _, g := range store.grants {
		if g.TargetType == targetType && g.TargetID == targetID {
			n++
		}
	}
	return n
}

func TestApplyPermissions_Direct(t *testing.T) {
	store := buildTree()
	p := newTestPropagator(store)

	result, err := p.ApplyPermissions(context.Background(), "eng", ScopeDirect)
	if err != nil {
		t.Fatalf("ApplyPermissions failed: %v", err)
	}
	if result.PagesUpdated != 1 {
		t.Errorf("expected 1 page updated, got %d", result.PagesUpdated)
	}
	if result.DirectoriesUpdated != 0 {
		t.Errorf("direct scope should not touch directories, got %d", result.DirectoriesUpdated)
	}

	// Direct page takes eng's settings and grants
	page := store.pages["eng-page"]
	if page.Visibility != wiki.VisibilityInternal || page.Editability != wiki.EditabilityRestricted {
		t.Errorf("page settings not overwritten: %s/%s", page.Visibility, page.Editability)
	}
	if got := grantCount(store, wiki.TargetPage, "eng-page"); got != 2 {
		t.Errorf("expected 2 grants copied to page, got %d", got)
	}

	// Nested directory and its page untouched
	if store.directories["devops"].Visibility != wiki.VisibilityPublic {
		t.Error("direct scope must not touch child directories")
	}
	if store.pages["devops-page"].Visibility != wiki.VisibilityPublic {
		t.Error("direct scope must not touch nested pages")
	}
}

func TestApplyPermissions_Recursive(t *testing.T) {
	store := buildTree()
	p := newTestPropagator(store)

	result, err := p.ApplyPermissions(context.Background(), "eng", ScopeRecursive)
	if err != nil {
		t.Fatalf("ApplyPermissions failed: %v", err)
	}
	if result.PagesUpdated != 2 {
		t.Errorf("expected 2 pages updated, got %d", result.PagesUpdated)
	}
	if result.DirectoriesUpdated != 1 {
		t.Errorf("expected 1 directory updated, got %d", result.DirectoriesUpdated)
	}

	// Child directory takes the top-level source's values, and the nested
	// page gets those same values (copied from the source, not from the
	// already-overwritten child)
	devops := store.directories["devops"]
	if devops.Visibility != wiki.VisibilityInternal || devops.Editability != wiki.EditabilityRestricted {
		t.Errorf("child directory not overwritten from source: %s/%s", devops.Visibility, devops.Editability)
	}
	nested := store.pages["devops-page"]
	if nested.Visibility != wiki.VisibilityInternal || nested.Editability != wiki.EditabilityRestricted {
		t.Errorf("nested page not overwritten from source: %s/%s", nested.Visibility, nested.Editability)
	}
	if got := grantCount(store, wiki.TargetDirectory, "devops"); got != 2 {
		t.Errorf("expected 2 grants copied to child directory, got %d", got)
	}
	if got := grantCount(store, wiki.TargetPage, "devops-page"); got != 2 {
		t.Errorf("expected 2 grants copied to nested page, got %d", got)
	}
}

func TestApplyPermissions_AdditiveAndIdempotent(t *testing.T) {
	store := buildTree()
	// A pre-existing unrelated grant on a page must survive propagation
	store.addGrant(wiki.TargetPage, "devops-page", wiki.UserPrincipal("carol"), wiki.PermissionOwner)
	p := newTestPropagator(store)

	if _, err := p.ApplyPermissions(context.Background(), "eng", ScopeRecursive); err != nil {
		t.Fatalf("first run failed: %v", err)
	}
	afterFirst := len(store.grants)

	result, err := p.ApplyPermissions(context.Background(), "eng", ScopeRecursive)
	if err != nil {
		t.Fatalf("second run failed: %v", err)
	}
	if len(store.grants) != afterFirst {
		t.Errorf("second run changed grant count: %d -> %d", afterFirst, len(store.grants))
	}
	if result.PagesUpdated != 2 || result.DirectoriesUpdated != 1 {
		t.Errorf("second run should still report touched rows, got %+v", result)
	}

	// carol's grant is still there
	found := false
	for _, g := range store.grants {
		if g.TargetID == "devops-page" && g.Principal == wiki.UserPrincipal("carol") {
			found = true
		}
	}
	if !found {
		t.Error("propagation removed a pre-existing unrelated grant")
	}
}

func TestApplyPermissions_CopiedGrantsGetFreshIDs(t *testing.T) {
	store := buildTree()
	p := newTestPropagator(store)

	if _, err := p.ApplyPermissions(context.Background(), "eng", ScopeRecursive); err != nil {
		t.Fatalf("ApplyPermissions failed: %v", err)
	}

	// The grants table keys rows by ID, so every copied grant must arrive
	// at the store with its own ID, not the source grant's and not empty.
	seen := make(map[string]string)
	for _, g := range store.grants {
		if g.ID == "" {
			t.Fatalf("grant on %s %s stored without an id", g.TargetType, g.TargetID)
		}
		if prev, ok := seen[g.ID]; ok {
			t.Fatalf("grant id %s reused (targets %s and %s)", g.ID, prev, g.TargetID)
		}
		seen[g.ID] = g.TargetID
	}
}

func TestApplyPermissions_CycleAborts(t *testing.T) {
	store := newFakeStore()
	a := store.addDirectory("a", nil, wiki.VisibilityPublic, wiki.EditabilityRestricted, nil)
	b := store.addDirectory("b", &a.ID, wiki.VisibilityPublic, wiki.EditabilityRestricted, nil)
	// corrupt the tree: a's parent is b
	a.ParentID = &b.ID
	p := newTestPropagator(store)

	if _, err := p.ApplyPermissions(context.Background(), "a", ScopeRecursive); err == nil {
		t.Fatal("expected cycle to abort propagation")
	}
}

func TestApplyPermissions_UnknownScope(t *testing.T) {
	store := buildTree()
	p := newTestPropagator(store)

	if _, err := p.ApplyPermissions(context.Background(), "eng", Scope("everything")); err == nil {
		t.Fatal("expected unknown scope to be rejected")
	}
}
