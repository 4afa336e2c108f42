package wiki

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"strings"
	"time"

	"lorebook/internal/domain"
	"lorebook/internal/domain/models/wiki"
	"lorebook/internal/domain/repositories"
	wikiRepo "lorebook/internal/domain/repositories/wiki"
	"lorebook/internal/service/markdown"
	"lorebook/internal/service/policy"
)

// fakeRepo is a single in-memory backing store implementing every
// repository interface the services consume.
type fakeRepo struct {
	directories map[string]*wiki.Directory
	pages       map[string]*wiki.Page
	grants      []wiki.Grant
	revisions   []wiki.PageRevision
	dirRevs     []wiki.DirectoryRevision
	locks       []wiki.EditLock
	links       map[string][]string // fromPageID -> toPageIDs
	groups      map[string][]string // userID -> group IDs
	systemOwner string

	seq int
}

func newFakeRepo() *fakeRepo {
	f := &fakeRepo{
		directories: make(map[string]*wiki.Directory),
		pages:       make(map[string]*wiki.Page),
		links:       make(map[string][]string),
		groups:      make(map[string][]string),
	}
	// Every tree has the single root
	f.directories["root"] = &wiki.Directory{
		ID:          "root",
		Path:        "",
		Title:       "Wiki",
		Visibility:  wiki.VisibilityPublic,
		Editability: wiki.EditabilityRestricted,
	}
	return f
}

func (f *fakeRepo) nextID(prefix string) string {
	f.seq++
	return fmt.Sprintf("%s-%d", prefix, f.seq)
}

func (f *fakeRepo) addDirectory(id string, parentID *string, visibility wiki.Visibility, editability wiki.Editability, ownerID *string) *wiki.Directory {
	path := id
	if parentID != nil && *parentID != "root" {
		path = f.directories[*parentID].Path + "/" + id
	}
	dir := &wiki.Directory{
		ID:          id,
		ParentID:    parentID,
		Path:        path,
		Title:       id,
		Visibility:  visibility,
		Editability: editability,
		OwnerID:     ownerID,
	}
	f.directories[id] = dir
	return dir
}

func (f *fakeRepo) addPage(id string, directoryID *string, visibility wiki.Visibility, editability wiki.Editability, ownerID *string) *wiki.Page {
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

func (f *fakeRepo) addGrant(targetType wiki.TargetType, targetID string, principal wiki.Principal, permission wiki.PermissionType) {
	f.grants = append(f.grants, wiki.Grant{
		ID:             f.nextID("grant"),
		TargetType:     targetType,
		TargetID:       targetID,
		Principal:      principal,
		PermissionType: permission,
	})
}

// DirectoryRepository

func (f *fakeRepo) Create(ctx context.Context, dir *wiki.Directory) error {
	f.directories[dir.ID] = dir
	return nil
}

func (f *fakeRepo) GetByID(ctx context.Context, id string) (*wiki.Directory, error) {
	dir, ok := f.directories[id]
	if !ok {
		return nil, fmt.Errorf("directory %s: %w", id, domain.ErrNotFound)
	}
	return dir, nil
}

func (f *fakeRepo) GetByPath(ctx context.Context, path string) (*wiki.Directory, error) {
	for _, dir := range f.directories {
		if dir.Path == path {
			return dir, nil
		}
	}
	return nil, fmt.Errorf("directory path %q: %w", path, domain.ErrNotFound)
}

func (f *fakeRepo) GetRoot(ctx context.Context) (*wiki.Directory, error) {
	return f.directories["root"], nil
}

func (f *fakeRepo) Update(ctx context.Context, dir *wiki.Directory) error {
	if _, ok := f.directories[dir.ID]; !ok {
		return fmt.Errorf("directory %s: %w", dir.ID, domain.ErrNotFound)
	}
	f.directories[dir.ID] = dir
	return nil
}

func (f *fakeRepo) UpdateSettings(ctx context.Context, id string, visibility wiki.Visibility, editability wiki.Editability) error {
	dir, ok := f.directories[id]
	if !ok {
		return fmt.Errorf("directory %s: %w", id, domain.ErrNotFound)
	}
	dir.Visibility = visibility
	dir.Editability = editability
	return nil
}

func (f *fakeRepo) UpdateSubtreePaths(ctx context.Context, oldPrefix, newPrefix string) error {
	for _, dir := range f.directories {
		if strings.HasPrefix(dir.Path, oldPrefix) {
			dir.Path = newPrefix + strings.TrimPrefix(dir.Path, oldPrefix)
		}
	}
	return nil
}

func (f *fakeRepo) Delete(ctx context.Context, id string) error {
	delete(f.directories, id)
	return nil
}

func (f *fakeRepo) ListChildren(ctx context.Context, parentID *string) ([]wiki.Directory, error) {
	var children []wiki.Directory
	for _, dir := range f.directories {
		if parentID == nil {
			if dir.ParentID == nil && dir.ID != "root" {
				children = append(children, *dir)
			}
		} else if dir.ParentID != nil && *dir.ParentID == *parentID {
			children = append(children, *dir)
		}
	}
	sort.Slice(children, func(i, j int) bool { return children[i].ID < children[j].ID })
	return children, nil
}

func (f *fakeRepo) HasChildren(ctx context.Context, id string) (bool, error) {
	for _, dir := range f.directories {
		if dir.ParentID != nil && *dir.ParentID == id {
			return true, nil
		}
	}
	for _, page := range f.pages {
		if page.DirectoryID != nil && *page.DirectoryID == id {
			return true, nil
		}
	}
	return false, nil
}

// PageRepository (wrapped to dodge method collisions with the directory side)

type fakePages struct{ *fakeRepo }

func (f fakePages) Create(ctx context.Context, page *wiki.Page) error {
	f.pages[page.ID] = page
	return nil
}

func (f fakePages) GetByID(ctx context.Context, id string) (*wiki.Page, error) {
	page, ok := f.pages[id]
	if !ok {
		return nil, fmt.Errorf("page %s: %w", id, domain.ErrNotFound)
	}
	return page, nil
}

func (f fakePages) GetBySlug(ctx context.Context, slug string) (*wiki.Page, error) {
	for _, page := range f.pages {
		if page.Slug == slug {
			return page, nil
		}
	}
	return nil, fmt.Errorf("page slug %q: %w", slug, domain.ErrNotFound)
}

func (f fakePages) GetBySlugs(ctx context.Context, slugs []string) ([]wiki.Page, error) {
	var out []wiki.Page
	for _, slug := range slugs {
		for _, page := range f.pages {
			if page.Slug == slug {
				out = append(out, *page)
			}
		}
	}
	return out, nil
}

func (f fakePages) SlugExists(ctx context.Context, slug, excludePageID string) (bool, error) {
	for _, page := range f.pages {
		if page.Slug == slug && page.ID != excludePageID {
			return true, nil
		}
	}
	return false, nil
}

func (f fakePages) Update(ctx context.Context, page *wiki.Page) error {
	if _, ok := f.pages[page.ID]; !ok {
		return fmt.Errorf("page %s: %w", page.ID, domain.ErrNotFound)
	}
	f.pages[page.ID] = page
	return nil
}

func (f fakePages) UpdateSettings(ctx context.Context, id string, visibility wiki.Visibility, editability wiki.Editability) error {
	page, ok := f.pages[id]
	if !ok {
		return fmt.Errorf("page %s: %w", id, domain.ErrNotFound)
	}
	page.Visibility = visibility
	page.Editability = editability
	return nil
}

func (f fakePages) Delete(ctx context.Context, id string) error {
	delete(f.pages, id)
	return nil
}

func (f fakePages) ListByDirectory(ctx context.Context, directoryID *string) ([]wiki.Page, error) {
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
	sort.Slice(pages, func(i, j int) bool { return pages[i].ID < pages[j].ID })
	return pages, nil
}

// Search matches on naive substring; ranking is not under test here.
func (f fakePages) Search(ctx context.Context, opts *wikiRepo.SearchOptions) ([]wiki.SearchResult, error) {
	var results []wiki.SearchResult
	for _, page := range f.pages {
		if opts.DirectoryID != nil {
			if page.DirectoryID == nil || *page.DirectoryID != *opts.DirectoryID {
				continue
			}
		}
		if strings.Contains(strings.ToLower(page.Title+" "+page.Content), strings.ToLower(opts.Query)) {
			results = append(results, wiki.SearchResult{Page: *page, Snippet: page.Title, Rank: 1})
		}
	}
	sort.Slice(results, func(i, j int) bool { return results[i].Page.ID < results[j].Page.ID })
	if opts.Offset < len(results) {
		results = results[opts.Offset:]
	} else {
		results = nil
	}
	if opts.Limit > 0 && len(results) > opts.Limit {
		results = results[:opts.Limit]
	}
	return results, nil
}

// GrantRepository

type fakeGrants struct{ *fakeRepo }

func (f fakeGrants) ListForTarget(ctx context.Context, targetType wiki.TargetType, targetID string) ([]wiki.Grant, error) {
	var out []wiki.Grant
	for _, g := range f.grants {
		if g.TargetType == targetType && g.TargetID == targetID {
			out = append(out, g)
		}
	}
	return out, nil
}

func (f fakeGrants) Ensure(ctx context.Context, grant *wiki.Grant) (bool, error) {
	for _, g := range f.grants {
		if g.TargetType == grant.TargetType && g.TargetID == grant.TargetID &&
			g.Principal == grant.Principal && g.PermissionType == grant.PermissionType {
			return false, nil
		}
	}
	f.fakeRepo.grants = append(f.fakeRepo.grants, *grant)
	return true, nil
}

func (f fakeGrants) Delete(ctx context.Context, id string) error {
	for i, g := range f.grants {
		if g.ID == id {
			f.fakeRepo.grants = append(f.grants[:i], f.grants[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("grant %s: %w", id, domain.ErrNotFound)
}

func (f fakeGrants) GetByID(ctx context.Context, id string) (*wiki.Grant, error) {
	for i := range f.grants {
		if f.grants[i].ID == id {
			return &f.grants[i], nil
		}
	}
	return nil, fmt.Errorf("grant %s: %w", id, domain.ErrNotFound)
}

func (f fakeGrants) DeleteForTarget(ctx context.Context, targetType wiki.TargetType, targetID string) error {
	var kept []wiki.Grant
	for _, g := range f.grants {
		if !(g.TargetType == targetType && g.TargetID == targetID) {
			kept = append(kept, g)
		}
	}
	f.fakeRepo.grants = kept
	return nil
}

// RevisionRepository

func (f *fakeRepo) CreatePageRevision(ctx context.Context, rev *wiki.PageRevision) error {
	rev.RevisionNumber = 1
	for _, r := range f.revisions {
		if r.PageID == rev.PageID && r.RevisionNumber >= rev.RevisionNumber {
			rev.RevisionNumber = r.RevisionNumber + 1
		}
	}
	f.revisions = append(f.revisions, *rev)
	return nil
}

func (f *fakeRepo) ListPageRevisions(ctx context.Context, pageID string, limit int) ([]wiki.PageRevision, error) {
	var out []wiki.PageRevision
	for _, r := range f.revisions {
		if r.PageID == pageID {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].RevisionNumber > out[j].RevisionNumber })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (f *fakeRepo) CreateDirectoryRevision(ctx context.Context, rev *wiki.DirectoryRevision) error {
	rev.RevisionNumber = 1
	for _, r := range f.dirRevs {
		if r.DirectoryID == rev.DirectoryID && r.RevisionNumber >= rev.RevisionNumber {
			rev.RevisionNumber = r.RevisionNumber + 1
		}
	}
	f.dirRevs = append(f.dirRevs, *rev)
	return nil
}

func (f *fakeRepo) ListDirectoryRevisions(ctx context.Context, directoryID string, limit int) ([]wiki.DirectoryRevision, error) {
	var out []wiki.DirectoryRevision
	for _, r := range f.dirRevs {
		if r.DirectoryID == directoryID {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].RevisionNumber > out[j].RevisionNumber })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// EditLockRepository

func (f *fakeRepo) GetActiveForPage(ctx context.Context, pageID, excludeUserID string, now time.Time) (*wiki.EditLock, error) {
	for i := range f.locks {
		l := &f.locks[i]
		if l.PageID != nil && *l.PageID == pageID && l.UserID != excludeUserID && l.Active(now) {
			return l, nil
		}
	}
	return nil, nil
}

func (f *fakeRepo) GetActiveForDirectory(ctx context.Context, directoryID, excludeUserID string, now time.Time) (*wiki.EditLock, error) {
	for i := range f.locks {
		l := &f.locks[i]
		if l.DirectoryID != nil && *l.DirectoryID == directoryID && l.UserID != excludeUserID && l.Active(now) {
			return l, nil
		}
	}
	return nil, nil
}

func (f *fakeRepo) ReplaceForPage(ctx context.Context, lock *wiki.EditLock) error {
	if err := f.ReleaseForPage(ctx, *lock.PageID); err != nil {
		return err
	}
	f.locks = append(f.locks, *lock)
	return nil
}

func (f *fakeRepo) ReplaceForDirectory(ctx context.Context, lock *wiki.EditLock) error {
	if err := f.ReleaseForDirectory(ctx, *lock.DirectoryID); err != nil {
		return err
	}
	f.locks = append(f.locks, *lock)
	return nil
}

func (f *fakeRepo) ReleaseForPage(ctx context.Context, pageID string) error {
	var kept []wiki.EditLock
	for _, l := range f.locks {
		if l.PageID == nil || *l.PageID != pageID {
			kept = append(kept, l)
		}
	}
	f.locks = kept
	return nil
}

func (f *fakeRepo) ReleaseForDirectory(ctx context.Context, directoryID string) error {
	var kept []wiki.EditLock
	for _, l := range f.locks {
		if l.DirectoryID == nil || *l.DirectoryID != directoryID {
			kept = append(kept, l)
		}
	}
	f.locks = kept
	return nil
}

func (f *fakeRepo) DeleteExpired(ctx context.Context, now time.Time) (int, error) {
	var kept []wiki.EditLock
	removed := 0
	for _, l := range f.locks {
		if l.Active(now) {
			kept = append(kept, l)
		} else {
			removed++
		}
	}
	f.locks = kept
	return removed, nil
}

// PageLinkRepository

func (f *fakeRepo) Replace(ctx context.Context, fromPageID string, toPageIDs []string) error {
	if len(toPageIDs) == 0 {
		delete(f.links, fromPageID)
		return nil
	}
	f.links[fromPageID] = toPageIDs
	return nil
}

func (f *fakeRepo) ListIncoming(ctx context.Context, toPageID string) ([]wiki.PageLink, error) {
	var out []wiki.PageLink
	for from, targets := range f.links {
		for _, to := range targets {
			if to == toPageID {
				out = append(out, wiki.PageLink{FromPageID: from, ToPageID: to})
			}
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].FromPageID < out[j].FromPageID })
	return out, nil
}

// IdentityStore (policy)

func (f *fakeRepo) GroupIDsForUser(ctx context.Context, userID string) ([]string, error) {
	return f.groups[userID], nil
}

func (f *fakeRepo) SystemOwnerID(ctx context.Context) (string, error) {
	return f.systemOwner, nil
}

type fakeTxManager struct{}

func (fakeTxManager) ExecTx(ctx context.Context, fn repositories.TxFn) error {
	return fn(ctx)
}

// env bundles the wired services over one fake repo.
type env struct {
	repo *fakeRepo

	pages   *pageService
	dirs    *directoryService
	grants  *grantService
	locks   *editLockService
	render  *markdown.Service
	evaluat *policy.Evaluator
}

func newEnv() *env {
	repo := newFakeRepo()
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	evaluator := policy.NewEvaluator(repo, fakeGrants{repo}, repo, logger)
	propagator := policy.NewPropagator(repo, fakePages{repo}, fakeGrants{repo}, fakeTxManager{}, logger)
	renderer := markdown.NewService(fakePages{repo}, logger)

	pages := NewPageService(fakePages{repo}, repo, fakeGrants{repo}, repo, repo, repo, evaluator, renderer, fakeTxManager{}, logger).(*pageService)
	dirs := NewDirectoryService(repo, fakeGrants{repo}, repo, repo, evaluator, propagator, fakeTxManager{}, logger).(*directoryService)
	grants := NewGrantService(fakeGrants{repo}, fakePages{repo}, repo, evaluator, logger).(*grantService)
	locks := NewEditLockService(repo, fakePages{repo}, repo, evaluator, logger).(*editLockService)

	return &env{
		repo:    repo,
		pages:   pages,
		dirs:    dirs,
		grants:  grants,
		locks:   locks,
		render:  renderer,
		evaluat: evaluator,
	}
}

func strptr(s string) *string { return &s }

func visptr(v wiki.Visibility) *wiki.Visibility { return &v }

func editptr(e wiki.Editability) *wiki.Editability { return &e }
