package wiki

import (
	"context"
	"errors"
	"testing"

	"lorebook/internal/domain"
	"lorebook/internal/domain/models/wiki"
	wikiSvc "lorebook/internal/domain/services/wiki"
)

func TestAddGrant_RequiresEditOnTarget(t *testing.T) {
	e := newEnv()
	e.repo.addDirectory("eng", strptr("root"), wiki.VisibilityInternal, wiki.EditabilityRestricted, strptr("alice"))

	req := &wikiSvc.AddGrantRequest{
		TargetType:    wiki.TargetDirectory,
		TargetID:      "eng",
		PrincipalKind: wiki.PrincipalUser,
		PrincipalID:   "carol",
		Permission:    wiki.PermissionView,
	}

	_, err := e.grants.AddGrant(context.Background(), wiki.UserPrincipal("bob"), req)
	var forbErr *domain.ForbiddenError
	if !errors.As(err, &forbErr) {
		t.Fatalf("grant without edit rights should be forbidden, got %v", err)
	}

	grant, err := e.grants.AddGrant(context.Background(), wiki.UserPrincipal("alice"), req)
	if err != nil {
		t.Fatalf("AddGrant failed: %v", err)
	}
	if grant.Principal != wiki.UserPrincipal("carol") {
		t.Errorf("unexpected grant principal: %+v", grant.Principal)
	}
}

func TestAddGrant_Idempotent(t *testing.T) {
	e := newEnv()
	e.repo.addDirectory("eng", strptr("root"), wiki.VisibilityInternal, wiki.EditabilityRestricted, strptr("alice"))

	req := &wikiSvc.AddGrantRequest{
		TargetType:    wiki.TargetDirectory,
		TargetID:      "eng",
		PrincipalKind: wiki.PrincipalGroup,
		PrincipalID:   "sre",
		Permission:    wiki.PermissionEdit,
	}
	alice := wiki.UserPrincipal("alice")

	if _, err := e.grants.AddGrant(context.Background(), alice, req); err != nil {
		t.Fatalf("first AddGrant failed: %v", err)
	}
	if _, err := e.grants.AddGrant(context.Background(), alice, req); err != nil {
		t.Fatalf("repeated AddGrant failed: %v", err)
	}
	if n := len(e.repo.grants); n != 1 {
		t.Errorf("duplicate grant created, %d rows", n)
	}
}

func TestAddGrant_RejectsBadPrincipals(t *testing.T) {
	e := newEnv()
	e.repo.addDirectory("eng", strptr("root"), wiki.VisibilityInternal, wiki.EditabilityRestricted, strptr("alice"))

	_, err := e.grants.AddGrant(context.Background(), wiki.UserPrincipal("alice"), &wikiSvc.AddGrantRequest{
		TargetType:    wiki.TargetDirectory,
		TargetID:      "eng",
		PrincipalKind: wiki.PrincipalAnonymous,
		PrincipalID:   "",
		Permission:    wiki.PermissionView,
	})
	if !errors.Is(err, domain.ErrValidation) {
		t.Errorf("anonymous grant principal should fail validation, got %v", err)
	}
}

func TestRemoveGrant(t *testing.T) {
	e := newEnv()
	e.repo.addDirectory("eng", strptr("root"), wiki.VisibilityInternal, wiki.EditabilityRestricted, strptr("alice"))
	e.repo.addGrant(wiki.TargetDirectory, "eng", wiki.UserPrincipal("carol"), wiki.PermissionView)
	grantID := e.repo.grants[0].ID

	err := e.grants.RemoveGrant(context.Background(), wiki.UserPrincipal("bob"), grantID)
	var forbErr *domain.ForbiddenError
	if !errors.As(err, &forbErr) {
		t.Fatalf("remove without edit rights should be forbidden, got %v", err)
	}

	if err := e.grants.RemoveGrant(context.Background(), wiki.UserPrincipal("alice"), grantID); err != nil {
		t.Fatalf("RemoveGrant failed: %v", err)
	}
	if len(e.repo.grants) != 0 {
		t.Error("grant still present after removal")
	}
}

func TestListGrants_HiddenTargetIsNotFound(t *testing.T) {
	e := newEnv()
	e.repo.addPage("secret", nil, wiki.VisibilityPrivate, wiki.EditabilityRestricted, strptr("alice"))
	e.repo.addGrant(wiki.TargetPage, "secret", wiki.UserPrincipal("carol"), wiki.PermissionView)

	_, err := e.grants.ListGrants(context.Background(), wiki.UserPrincipal("bob"), wiki.TargetPage, "secret")
	var nfErr *domain.NotFoundError
	if !errors.As(err, &nfErr) {
		t.Errorf("grants on a hidden page should be not-found, got %v", err)
	}

	grants, err := e.grants.ListGrants(context.Background(), wiki.UserPrincipal("alice"), wiki.TargetPage, "secret")
	if err != nil {
		t.Fatalf("ListGrants failed: %v", err)
	}
	if len(grants) != 1 {
		t.Errorf("expected one grant, got %d", len(grants))
	}
}
