package wiki

import (
	"context"
	"fmt"
	"log/slog"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/google/uuid"

	"lorebook/internal/domain"
	"lorebook/internal/domain/models/wiki"
	wikiRepo "lorebook/internal/domain/repositories/wiki"
	wikiSvc "lorebook/internal/domain/services/wiki"
	"lorebook/internal/service/policy"
)

// grantService implements the GrantService interface
type grantService struct {
	grants      wikiRepo.GrantRepository
	pages       wikiRepo.PageRepository
	directories wikiRepo.DirectoryRepository
	evaluator   *policy.Evaluator
	logger      *slog.Logger
}

// NewGrantService creates a new grant service
func NewGrantService(
	grants wikiRepo.GrantRepository,
	pages wikiRepo.PageRepository,
	directories wikiRepo.DirectoryRepository,
	evaluator *policy.Evaluator,
	logger *slog.Logger,
) wikiSvc.GrantService {
	return &grantService{
		grants:      grants,
		pages:       pages,
		directories: directories,
		evaluator:   evaluator,
		logger:      logger,
	}
}

// ListGrants lists the grants on a target the principal may view
func (s *grantService) ListGrants(ctx context.Context, principal wiki.Principal, targetType wiki.TargetType, targetID string) ([]wiki.Grant, error) {
	if err := s.gateTarget(ctx, principal, targetType, targetID, false); err != nil {
		return nil, err
	}
	return s.grants.ListForTarget(ctx, targetType, targetID)
}

// AddGrant adds a grant to a target the principal may edit. Adding an
// already-present grant is a no-op returning the request's shape, which
// keeps the operation idempotent for retries.
func (s *grantService) AddGrant(ctx context.Context, principal wiki.Principal, req *wikiSvc.AddGrantRequest) (*wiki.Grant, error) {
	if !principal.IsAuthenticated() {
		return nil, &domain.UnauthorizedError{Message: "authentication required to manage grants"}
	}
	if err := s.validateAddRequest(req); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}
	if err := s.gateTarget(ctx, principal, req.TargetType, req.TargetID, true); err != nil {
		return nil, err
	}

	grant := &wiki.Grant{
		ID:             uuid.NewString(),
		TargetType:     req.TargetType,
		TargetID:       req.TargetID,
		Principal:      wiki.Principal{Kind: req.PrincipalKind, ID: req.PrincipalID},
		PermissionType: req.Permission,
	}
	created, err := s.grants.Ensure(ctx, grant)
	if err != nil {
		return nil, err
	}

	if created {
		s.logger.Info("grant added",
			"target_type", req.TargetType,
			"target_id", req.TargetID,
			"principal_kind", req.PrincipalKind,
			"principal_id", req.PrincipalID,
			"permission", req.Permission,
			"user_id", principal.ID,
		)
	}

	return grant, nil
}

// RemoveGrant deletes a grant. The principal needs edit rights on the
// grant's target.
func (s *grantService) RemoveGrant(ctx context.Context, principal wiki.Principal, grantID string) error {
	if !principal.IsAuthenticated() {
		return &domain.UnauthorizedError{Message: "authentication required to manage grants"}
	}

	grant, err := s.grants.GetByID(ctx, grantID)
	if err != nil {
		return err
	}
	if err := s.gateTarget(ctx, principal, grant.TargetType, grant.TargetID, true); err != nil {
		return err
	}

	if err := s.grants.Delete(ctx, grant.ID); err != nil {
		return err
	}

	s.logger.Info("grant removed",
		"grant_id", grant.ID,
		"target_type", grant.TargetType,
		"target_id", grant.TargetID,
		"user_id", principal.ID,
	)
	return nil
}

// gateTarget checks view (and optionally edit) rights on a grant target.
// Unviewable targets report not-found.
func (s *grantService) gateTarget(ctx context.Context, principal wiki.Principal, targetType wiki.TargetType, targetID string, requireEdit bool) error {
	ec := policy.NewContext(principal)

	switch targetType {
	case wiki.TargetPage:
		page, err := s.pages.GetByID(ctx, targetID)
		if err != nil {
			return err
		}
		canView, err := s.evaluator.CanViewPage(ctx, ec, page)
		if err != nil {
			return err
		}
		if !canView {
			return &domain.NotFoundError{Message: "page not found"}
		}
		if !requireEdit {
			return nil
		}
		canEdit, err := s.evaluator.CanEditPage(ctx, ec, page)
		if err != nil {
			return err
		}
		if !canEdit {
			return &domain.ForbiddenError{Message: "no edit permission on this page"}
		}
		return nil

	case wiki.TargetDirectory:
		dir, err := s.directories.GetByID(ctx, targetID)
		if err != nil {
			return err
		}
		canView, err := s.evaluator.CanViewDirectory(ctx, ec, dir)
		if err != nil {
			return err
		}
		if !canView {
			return &domain.NotFoundError{Message: "directory not found"}
		}
		if !requireEdit {
			return nil
		}
		canEdit, err := s.evaluator.CanEditDirectory(ctx, ec, dir)
		if err != nil {
			return err
		}
		if !canEdit {
			return &domain.ForbiddenError{Message: "no edit permission on this directory"}
		}
		return nil

	default:
		return fmt.Errorf("%w: unknown target type %q", domain.ErrValidation, targetType)
	}
}

func (s *grantService) validateAddRequest(req *wikiSvc.AddGrantRequest) error {
	if req.PrincipalKind != wiki.PrincipalUser && req.PrincipalKind != wiki.PrincipalGroup {
		return fmt.Errorf("grants require a user or group principal, got %q", req.PrincipalKind)
	}
	if req.Permission != wiki.PermissionView && req.Permission != wiki.PermissionEdit && req.Permission != wiki.PermissionOwner {
		return fmt.Errorf("unknown permission type %q", req.Permission)
	}
	return validation.ValidateStruct(req,
		validation.Field(&req.TargetID, validation.Required),
		validation.Field(&req.PrincipalID, validation.Required),
	)
}
