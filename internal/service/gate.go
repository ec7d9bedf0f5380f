package service

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/noah-isme/scholarship-api/internal/models"
	"github.com/noah-isme/scholarship-api/internal/workflow"
	appErrors "github.com/noah-isme/scholarship-api/pkg/errors"
)

type auditLogger interface {
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

type capabilityProvider interface {
	Capability(ctx context.Context, address string) (models.Capability, error)
}

// Gate resolves the caller's capability once per action and rejects callers lacking the required role.
type Gate struct {
	capabilities capabilityProvider
	logger       *zap.Logger
}

// NewGate constructs a Gate.
func NewGate(capabilities capabilityProvider, logger *zap.Logger) *Gate {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Gate{capabilities: capabilities, logger: logger}
}

// Resolve returns the capability of caller without checking any role.
func (g *Gate) Resolve(ctx context.Context, caller string) (models.Capability, error) {
	if strings.TrimSpace(caller) == "" {
		return models.Capability{}, appErrors.ErrUnauthorized
	}
	capability, err := g.capabilities.Capability(ctx, caller)
	if err != nil {
		return models.Capability{}, err
	}
	return capability, nil
}

// Require resolves the capability and checks it may act as role.
func (g *Gate) Require(ctx context.Context, caller string, role models.Role) (models.Capability, error) {
	capability, err := g.Resolve(ctx, caller)
	if err != nil {
		return capability, err
	}
	if err := workflow.Authorize(capability, role); err != nil {
		g.logger.Debug("gate rejected caller", zap.String("caller", caller), zap.String("role", string(role)), zap.Error(err))
		return capability, err
	}
	return capability, nil
}

// RequireAny resolves the capability and checks it may act as one of roles.
func (g *Gate) RequireAny(ctx context.Context, caller string, roles ...models.Role) (models.Capability, error) {
	capability, err := g.Resolve(ctx, caller)
	if err != nil {
		return capability, err
	}
	if err := workflow.AuthorizeAny(capability, roles...); err != nil {
		return capability, err
	}
	return capability, nil
}

// RequireOwner resolves the capability and checks the caller is the owner.
func (g *Gate) RequireOwner(ctx context.Context, caller string) (models.Capability, error) {
	capability, err := g.Resolve(ctx, caller)
	if err != nil {
		return capability, err
	}
	if !capability.IsOwner {
		return capability, appErrors.Clone(appErrors.ErrRoleRequired, "owner required")
	}
	return capability, nil
}
