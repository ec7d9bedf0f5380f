package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/scholarship-api/internal/dto"
	"github.com/noah-isme/scholarship-api/internal/models"
	"github.com/noah-isme/scholarship-api/internal/repository"
	appErrors "github.com/noah-isme/scholarship-api/pkg/errors"
	"github.com/noah-isme/scholarship-api/pkg/wallet"
)

type identityStore interface {
	Get(ctx context.Context, address string) (*models.Identity, error)
	List(ctx context.Context) ([]models.Identity, error)
	Upsert(ctx context.Context, address string, role models.Role, assignedBy string) (*models.Identity, error)
	RegisterStudent(ctx context.Context, address string) (*models.Identity, error)
	Deactivate(ctx context.Context, address, by string) (*models.Identity, error)
	Owner(ctx context.Context) (*models.Ownership, error)
	SeedOwner(ctx context.Context, address string) (bool, error)
	TransferOwnership(ctx context.Context, current, next string) (*models.Ownership, error)
}

type capabilityInvalidator interface {
	Invalidate(ctx context.Context, addresses ...string)
}

// IdentityService manages role records and the owner address.
type IdentityService struct {
	repo        identityStore
	gate        *Gate
	runner      operationExecutor
	invalidator capabilityInvalidator
	events      eventPublisher
	audit       auditLogger
	validator   *validator.Validate
	logger      *zap.Logger
}

// NewIdentityService constructs an IdentityService.
func NewIdentityService(repo identityStore, gate *Gate, runner operationExecutor, invalidator capabilityInvalidator, events eventPublisher, audit auditLogger, validate *validator.Validate, logger *zap.Logger) *IdentityService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &IdentityService{
		repo:        repo,
		gate:        gate,
		runner:      runner,
		invalidator: invalidator,
		events:      events,
		audit:       audit,
		validator:   validate,
		logger:      logger,
	}
}

// RegisterStudent registers the caller as an active Student.
func (s *IdentityService) RegisterStudent(ctx context.Context, caller string) (*models.Identity, *models.Operation, error) {
	capability, err := s.gate.Resolve(ctx, caller)
	if err != nil {
		return nil, nil, err
	}
	if capability.IsOwner {
		return nil, nil, appErrors.Clone(appErrors.ErrConflict, "the owner cannot register as a student")
	}

	op := models.Operation{Kind: models.OperationRegisterStudent, ActorAddress: capability.Address}
	return s.run(ctx, op, func(runCtx context.Context) (*models.Identity, error) {
		identity, err := s.repo.RegisterStudent(runCtx, capability.Address)
		if err != nil {
			if errors.Is(err, repository.ErrConflictingRole) {
				return nil, appErrors.Clone(appErrors.ErrConflict, fmt.Sprintf("%s already holds another active role", capability.Address))
			}
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to register student")
		}
		s.afterRoleChange(runCtx, models.AuditActionRegisterStudent, capability.Address, identity)
		return identity, nil
	})
}

// AssignRole grants role to address. Allowed for the owner and active admins.
func (s *IdentityService) AssignRole(ctx context.Context, caller, address string, req dto.AssignRoleRequest) (*models.Identity, *models.Operation, error) {
	capability, err := s.gate.Require(ctx, caller, models.RoleAdmin)
	if err != nil {
		return nil, nil, err
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid role payload")
	}
	role, err := models.ParseRole(req.Role)
	if err != nil {
		return nil, nil, appErrors.Clone(appErrors.ErrValidation, err.Error())
	}
	target, err := wallet.Normalize(address)
	if err != nil {
		return nil, nil, appErrors.Clone(appErrors.ErrValidation, "invalid wallet address")
	}

	op := models.Operation{Kind: models.OperationAssignRole, ActorAddress: capability.Address}
	return s.run(ctx, op, func(runCtx context.Context) (*models.Identity, error) {
		identity, err := s.repo.Upsert(runCtx, target, role, capability.Address)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to assign role")
		}
		s.afterRoleChange(runCtx, models.AuditActionRoleAssign, capability.Address, identity)
		return identity, nil
	})
}

// RevokeRole deactivates the role record of address.
func (s *IdentityService) RevokeRole(ctx context.Context, caller, address string) (*models.Identity, *models.Operation, error) {
	capability, err := s.gate.Require(ctx, caller, models.RoleAdmin)
	if err != nil {
		return nil, nil, err
	}
	target, err := wallet.Normalize(address)
	if err != nil {
		return nil, nil, appErrors.Clone(appErrors.ErrValidation, "invalid wallet address")
	}

	op := models.Operation{Kind: models.OperationRevokeRole, ActorAddress: capability.Address}
	return s.run(ctx, op, func(runCtx context.Context) (*models.Identity, error) {
		identity, err := s.repo.Deactivate(runCtx, target, capability.Address)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("%s has no active role", target))
			}
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to revoke role")
		}
		s.afterRoleChange(runCtx, models.AuditActionRoleRevoke, capability.Address, identity)
		return identity, nil
	})
}

// TransferOwnership hands the owner capability to another address.
func (s *IdentityService) TransferOwnership(ctx context.Context, caller string, req dto.TransferOwnershipRequest) (*models.Ownership, *models.Operation, error) {
	capability, err := s.gate.RequireOwner(ctx, caller)
	if err != nil {
		return nil, nil, err
	}
	next, err := wallet.Normalize(req.NewOwner)
	if err != nil {
		return nil, nil, appErrors.Clone(appErrors.ErrValidation, "invalid wallet address")
	}

	op := models.Operation{Kind: models.OperationTransferOwnership, ActorAddress: capability.Address}
	finished, err := s.runner.Execute(ctx, op, func(runCtx context.Context) (interface{}, error) {
		owner, err := s.repo.TransferOwnership(runCtx, capability.Address, next)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, appErrors.Clone(appErrors.ErrConflict, "caller is no longer the owner")
			}
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to transfer ownership")
		}
		if s.invalidator != nil {
			s.invalidator.Invalidate(runCtx, capability.Address, next)
		}
		s.publish(runCtx, capability.Address, next)
		s.emitAudit(runCtx, models.AuditActionOwnershipTransfer, capability.Address, next, owner)
		return owner, nil
	})
	if err != nil {
		return nil, finished, err
	}
	owner, _ := finished.Result.(*models.Ownership)
	return owner, finished, nil
}

// GetUserRole returns the role record of address; unknown addresses hold no role.
func (s *IdentityService) GetUserRole(ctx context.Context, address string) (*dto.UserRoleResponse, error) {
	normalized, err := wallet.Normalize(address)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "invalid wallet address")
	}
	identity, err := s.repo.Get(ctx, normalized)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return &dto.UserRoleResponse{Address: normalized, Role: string(models.RoleNone)}, nil
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load role")
	}
	return &dto.UserRoleResponse{Address: identity.Address, Role: string(identity.Role), IsActive: identity.IsActive}, nil
}

// Owner returns the current owner.
func (s *IdentityService) Owner(ctx context.Context) (*models.Ownership, error) {
	owner, err := s.repo.Owner(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "owner not configured")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load owner")
	}
	return owner, nil
}

// List returns every role record for the manage-roles view.
func (s *IdentityService) List(ctx context.Context, caller string) ([]models.Identity, error) {
	if _, err := s.gate.Require(ctx, caller, models.RoleAdmin); err != nil {
		return nil, err
	}
	identities, err := s.repo.List(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list roles")
	}
	return identities, nil
}

// SeedOwner installs the configured owner when none exists.
func (s *IdentityService) SeedOwner(ctx context.Context, address string) error {
	if address == "" {
		return nil
	}
	normalized, err := wallet.Normalize(address)
	if err != nil {
		return fmt.Errorf("owner address: %w", err)
	}
	seeded, err := s.repo.SeedOwner(ctx, normalized)
	if err != nil {
		return err
	}
	if seeded {
		s.logger.Info("owner seeded", zap.String("owner", normalized))
	}
	return nil
}

func (s *IdentityService) run(ctx context.Context, op models.Operation, fn func(context.Context) (*models.Identity, error)) (*models.Identity, *models.Operation, error) {
	finished, err := s.runner.Execute(ctx, op, func(runCtx context.Context) (interface{}, error) {
		return fn(runCtx)
	})
	if err != nil {
		return nil, finished, err
	}
	identity, _ := finished.Result.(*models.Identity)
	return identity, finished, nil
}

func (s *IdentityService) afterRoleChange(ctx context.Context, action, actor string, identity *models.Identity) {
	if s.invalidator != nil {
		s.invalidator.Invalidate(ctx, identity.Address)
	}
	s.publish(ctx, actor, identity.Address)
	s.emitAudit(ctx, action, actor, identity.Address, identity)
}

func (s *IdentityService) publish(ctx context.Context, actor, subject string) {
	if s.events == nil {
		return
	}
	s.events.Publish(ctx, models.Event{Type: models.EventRoleChanged, Actor: actor, Subject: subject})
}

func (s *IdentityService) emitAudit(ctx context.Context, action, actor, subject string, value interface{}) {
	if s.audit == nil {
		return
	}
	newValues, _ := json.Marshal(value)
	entry := &models.AuditLog{
		ActorAddress: &actor,
		Action:       action,
		Resource:     "identity",
		ResourceID:   &subject,
		NewValues:    newValues,
		IPAddress:    "system",
		UserAgent:    "identity-service",
	}
	if err := s.audit.CreateAuditLog(ctx, entry); err != nil {
		s.logger.Warn("failed to persist audit log", zap.String("action", action), zap.Error(err))
	}
}
