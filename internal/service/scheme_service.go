package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/scholarship-api/internal/dto"
	"github.com/noah-isme/scholarship-api/internal/models"
	"github.com/noah-isme/scholarship-api/internal/repository"
	appErrors "github.com/noah-isme/scholarship-api/pkg/errors"
)

type schemeStore interface {
	Create(ctx context.Context, scheme *models.Scheme) error
	UpsertByName(ctx context.Context, scheme *models.Scheme) (bool, error)
	GetByID(ctx context.Context, id string) (*models.Scheme, error)
	List(ctx context.Context, filter models.SchemeFilter) ([]models.Scheme, error)
	Deactivate(ctx context.Context, id string) (*models.Scheme, error)
	Register(ctx context.Context, schemeID, user string, now time.Time) (*models.SchemeRegistration, error)
	RegistrationsByUser(ctx context.Context, user string) ([]models.SchemeRegistration, error)
}

// SchemeService manages the scheme catalogue and student registrations.
type SchemeService struct {
	repo      schemeStore
	gate      *Gate
	audit     auditLogger
	validator *validator.Validate
	logger    *zap.Logger
	now       func() time.Time
}

// NewSchemeService constructs a SchemeService.
func NewSchemeService(repo schemeStore, gate *Gate, audit auditLogger, validate *validator.Validate, logger *zap.Logger) *SchemeService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &SchemeService{repo: repo, gate: gate, audit: audit, validator: validate, logger: logger, now: time.Now}
}

// Create adds a scheme. Allowed for the owner and active admins.
func (s *SchemeService) Create(ctx context.Context, caller string, req dto.CreateSchemeRequest) (*models.Scheme, error) {
	capability, err := s.gate.Require(ctx, caller, models.RoleAdmin)
	if err != nil {
		return nil, err
	}
	scheme, err := s.buildScheme(req)
	if err != nil {
		return nil, err
	}
	scheme.CreatedBy = capability.Address
	scheme.AvailableSlots = scheme.TotalSlots
	if err := s.repo.Create(ctx, scheme); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "a scheme with this name already exists")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create scheme")
	}
	s.emitAudit(ctx, models.AuditActionSchemeCreate, capability.Address, scheme)
	return scheme, nil
}

// Seed upserts a catalogue entry by name. Used by the seeding command without a caller.
func (s *SchemeService) Seed(ctx context.Context, createdBy string, req dto.CreateSchemeRequest) (bool, error) {
	scheme, err := s.buildScheme(req)
	if err != nil {
		return false, err
	}
	scheme.CreatedBy = createdBy
	inserted, err := s.repo.UpsertByName(ctx, scheme)
	if err != nil {
		return false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to seed scheme")
	}
	return inserted, nil
}

// List returns schemes matching the query.
func (s *SchemeService) List(ctx context.Context, query dto.SchemeQuery) ([]models.Scheme, error) {
	schemes, err := s.repo.List(ctx, models.SchemeFilter{ActiveOnly: query.ActiveOnly, Search: strings.TrimSpace(query.Search)})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list schemes")
	}
	return schemes, nil
}

// Get returns one scheme.
func (s *SchemeService) Get(ctx context.Context, id string) (*models.Scheme, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "invalid scheme id")
	}
	scheme, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, schemeError(err)
	}
	return scheme, nil
}

// Deactivate closes a scheme for new registrations.
func (s *SchemeService) Deactivate(ctx context.Context, caller, id string) (*models.Scheme, error) {
	capability, err := s.gate.Require(ctx, caller, models.RoleAdmin)
	if err != nil {
		return nil, err
	}
	if _, err := uuid.Parse(id); err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "invalid scheme id")
	}
	scheme, err := s.repo.Deactivate(ctx, id)
	if err != nil {
		return nil, schemeError(err)
	}
	s.emitAudit(ctx, models.AuditActionSchemeDeactivate, capability.Address, scheme)
	return scheme, nil
}

// Register records the caller against a scheme and consumes one slot.
func (s *SchemeService) Register(ctx context.Context, caller, id string) (*models.SchemeRegistration, error) {
	capability, err := s.gate.Resolve(ctx, caller)
	if err != nil {
		return nil, err
	}
	if _, err := uuid.Parse(id); err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "invalid scheme id")
	}
	reg, err := s.repo.Register(ctx, id, capability.Address, s.now().UTC())
	if err != nil {
		return nil, schemeError(err)
	}
	s.logger.Info("scheme registration recorded", zap.String("scheme_id", id), zap.String("user", capability.Address))
	return reg, nil
}

// Registrations lists the schemes the caller registered for.
func (s *SchemeService) Registrations(ctx context.Context, caller string) ([]models.SchemeRegistration, error) {
	capability, err := s.gate.Resolve(ctx, caller)
	if err != nil {
		return nil, err
	}
	regs, err := s.repo.RegistrationsByUser(ctx, capability.Address)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list registrations")
	}
	return regs, nil
}

func (s *SchemeService) buildScheme(req dto.CreateSchemeRequest) (*models.Scheme, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid scheme payload")
	}
	docs := make([]string, 0, len(req.RequiredDocuments))
	for _, doc := range req.RequiredDocuments {
		if trimmed := strings.TrimSpace(doc); trimmed != "" {
			docs = append(docs, trimmed)
		}
	}
	return &models.Scheme{
		Name:              strings.TrimSpace(req.Name),
		Description:       req.Description,
		Eligibility:       req.Eligibility,
		AwardAmount:       req.AwardAmount,
		TotalSlots:        req.TotalSlots,
		StartDate:         req.StartDate.UTC(),
		EndDate:           req.EndDate.UTC(),
		RequiredDocuments: docs,
		IsActive:          true,
	}, nil
}

func (s *SchemeService) emitAudit(ctx context.Context, action, actor string, scheme *models.Scheme) {
	if s.audit == nil {
		return
	}
	newValues, _ := json.Marshal(scheme)
	entry := &models.AuditLog{
		ActorAddress: &actor,
		Action:       action,
		Resource:     "scheme",
		ResourceID:   &scheme.ID,
		NewValues:    newValues,
		IPAddress:    "system",
		UserAgent:    "scheme-service",
	}
	if err := s.audit.CreateAuditLog(ctx, entry); err != nil {
		s.logger.Warn("failed to create scheme audit", zap.Error(err))
	}
}

func schemeError(err error) error {
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return appErrors.Clone(appErrors.ErrNotFound, "scheme not found")
	case errors.Is(err, repository.ErrDuplicate):
		return appErrors.Clone(appErrors.ErrConflict, "already registered for this scheme")
	case errors.Is(err, repository.ErrSchemeClosed):
		return appErrors.Clone(appErrors.ErrConflict, "scheme is not accepting registrations")
	case errors.Is(err, repository.ErrNoSlots):
		return appErrors.Clone(appErrors.ErrConflict, "scheme has no available slots")
	default:
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "scheme store failure")
	}
}
