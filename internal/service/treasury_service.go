package service

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/scholarship-api/internal/dto"
	"github.com/noah-isme/scholarship-api/internal/models"
	appErrors "github.com/noah-isme/scholarship-api/pkg/errors"
)

type poolStore interface {
	Balance(ctx context.Context) (*models.PoolBalance, error)
	Deposit(ctx context.Context, actor string, amount int64) (*models.LedgerEntry, error)
	Ledger(ctx context.Context, limit int) ([]models.LedgerEntry, error)
}

// TreasuryService manages the pooled funds disbursements are paid from.
type TreasuryService struct {
	repo      poolStore
	gate      *Gate
	runner    operationExecutor
	events    eventPublisher
	cache     keyValueCache
	audit     auditLogger
	validator *validator.Validate
	logger    *zap.Logger
}

// NewTreasuryService constructs a TreasuryService.
func NewTreasuryService(repo poolStore, gate *Gate, runner operationExecutor, events eventPublisher, cache keyValueCache, audit auditLogger, validate *validator.Validate, logger *zap.Logger) *TreasuryService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &TreasuryService{repo: repo, gate: gate, runner: runner, events: events, cache: cache, audit: audit, validator: validate, logger: logger}
}

// Deposit credits the pool. Allowed for the owner, admins and the finance bureau.
func (s *TreasuryService) Deposit(ctx context.Context, caller string, req dto.DepositRequest) (*models.LedgerEntry, *models.Operation, error) {
	capability, err := s.gate.RequireAny(ctx, caller, models.RoleAdmin, models.RoleFinanceBureau)
	if err != nil {
		return nil, nil, err
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, nil, appErrors.Clone(appErrors.ErrValidation, "amount must be greater than zero")
	}

	op := models.Operation{Kind: models.OperationDeposit, ActorAddress: capability.Address}
	finished, err := s.runner.Execute(ctx, op, func(runCtx context.Context) (interface{}, error) {
		entry, err := s.repo.Deposit(runCtx, capability.Address, req.Amount)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to deposit")
		}
		if s.cache != nil {
			_ = s.cache.Delete(runCtx, dashboardCacheKey)
		}
		if s.events != nil {
			s.events.Publish(runCtx, models.Event{Type: models.EventPoolDeposited, Actor: capability.Address, Amount: entry.Amount})
		}
		s.emitAudit(runCtx, capability.Address, entry)
		return entry, nil
	})
	if err != nil {
		return nil, finished, err
	}
	entry, _ := finished.Result.(*models.LedgerEntry)
	return entry, finished, nil
}

// Balance returns the pooled balance.
func (s *TreasuryService) Balance(ctx context.Context) (*models.PoolBalance, error) {
	balance, err := s.repo.Balance(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to read pool balance")
	}
	return balance, nil
}

// Ledger lists deposits and payouts, newest first.
func (s *TreasuryService) Ledger(ctx context.Context, caller string, limit int) ([]models.LedgerEntry, error) {
	if _, err := s.gate.RequireAny(ctx, caller, models.RoleAdmin, models.RoleFinanceBureau); err != nil {
		return nil, err
	}
	entries, err := s.repo.Ledger(ctx, limit)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list ledger")
	}
	return entries, nil
}

func (s *TreasuryService) emitAudit(ctx context.Context, actor string, entry *models.LedgerEntry) {
	if s.audit == nil {
		return
	}
	newValues, _ := json.Marshal(entry)
	resourceID := fmt.Sprintf("%d", entry.ID)
	log := &models.AuditLog{
		ActorAddress: &actor,
		Action:       models.AuditActionPoolDeposit,
		Resource:     "pool",
		ResourceID:   &resourceID,
		NewValues:    newValues,
		IPAddress:    "system",
		UserAgent:    "treasury-service",
	}
	if err := s.audit.CreateAuditLog(ctx, log); err != nil {
		s.logger.Warn("failed to persist audit log", zap.Error(err))
	}
}
