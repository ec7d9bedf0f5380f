package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/scholarship-api/internal/dto"
	"github.com/noah-isme/scholarship-api/internal/models"
	"github.com/noah-isme/scholarship-api/internal/repository"
	"github.com/noah-isme/scholarship-api/internal/workflow"
	appErrors "github.com/noah-isme/scholarship-api/pkg/errors"
	"github.com/noah-isme/scholarship-api/pkg/wallet"
)

const dashboardCacheKey = "dashboard:summary"

type applicationStore interface {
	Create(ctx context.Context, app *models.Application) error
	GetByID(ctx context.Context, id int64) (*models.Application, error)
	ListByStudent(ctx context.Context, address string) ([]models.Application, error)
	ListByStatus(ctx context.Context, status models.ApplicationStatus) ([]models.Application, error)
	ListAll(ctx context.Context) ([]models.Application, error)
	HasVoted(ctx context.Context, id int64, stage models.VoteStage, address string) (bool, error)
	Votes(ctx context.Context, id int64, stage models.VoteStage) ([]models.ApplicationVote, error)
	CountByStatus(ctx context.Context) ([]models.StatusCount, error)
	ApplyVote(ctx context.Context, id int64, stage models.VoteStage, voter string, decide repository.VoteDecider) (*models.Application, error)
	Disburse(ctx context.Context, id int64, actor string, decide repository.DisburseDecider) (*models.Disbursement, error)
	DisbursedTotal(ctx context.Context) (int64, error)
}

type poolBalanceReader interface {
	Balance(ctx context.Context) (*models.PoolBalance, error)
}

type operationExecutor interface {
	Execute(ctx context.Context, op models.Operation, fn OperationFunc) (*models.Operation, error)
}

type eventPublisher interface {
	Publish(ctx context.Context, event models.Event)
}

type registerRenderer interface {
	ApplicationRegister(apps []models.Application, format dto.ExportFormat) (*dto.ExportFile, error)
}

// ApplicationServiceConfig tunes the workflow service.
type ApplicationServiceConfig struct {
	Rules          workflow.Rules
	StandardAmount int64
	DashboardTTL   time.Duration
}

// ApplicationService runs the scholarship application workflow.
type ApplicationService struct {
	repo      applicationStore
	pool      poolBalanceReader
	gate      *Gate
	runner    operationExecutor
	events    eventPublisher
	cache     keyValueCache
	exporter  registerRenderer
	audit     auditLogger
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
	cfg       ApplicationServiceConfig
	now       func() time.Time
}

// NewApplicationService constructs the workflow service.
func NewApplicationService(repo applicationStore, pool poolBalanceReader, gate *Gate, runner operationExecutor, events eventPublisher, cache keyValueCache, exporter registerRenderer, audit auditLogger, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger, cfg ApplicationServiceConfig) *ApplicationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	if exporter == nil {
		exporter = NewExportService(nil, nil)
	}
	cfg.Rules = cfg.Rules.Normalize()
	if cfg.StandardAmount <= 0 {
		cfg.StandardAmount = 50000
	}
	if cfg.DashboardTTL <= 0 {
		cfg.DashboardTTL = time.Minute
	}
	return &ApplicationService{
		repo:      repo,
		pool:      pool,
		gate:      gate,
		runner:    runner,
		events:    events,
		cache:     cache,
		exporter:  exporter,
		audit:     audit,
		metrics:   metrics,
		validator: validate,
		logger:    logger,
		cfg:       cfg,
		now:       time.Now,
	}
}

// Submit creates a new application for the calling student.
func (s *ApplicationService) Submit(ctx context.Context, caller string, req dto.SubmitApplicationRequest) (*models.Application, *models.Operation, error) {
	capability, err := s.gate.Require(ctx, caller, models.RoleStudent)
	if err != nil {
		return nil, nil, err
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid application payload")
	}
	submission := workflow.Submission{
		Name:         strings.TrimSpace(req.Name),
		Email:        strings.TrimSpace(req.Email),
		Phone:        strings.TrimSpace(req.Phone),
		AadharNumber: strings.TrimSpace(req.AadharNumber),
		Income:       strings.TrimSpace(req.Income),
		Documents:    req.Documents,
	}
	if err := workflow.CheckSubmit(capability, submission); err != nil {
		return nil, nil, err
	}

	op := models.Operation{Kind: models.OperationSubmitApplication, ActorAddress: capability.Address}
	return s.run(ctx, op, func(runCtx context.Context) (*models.Application, error) {
		app := &models.Application{
			StudentAddress:     capability.Address,
			Name:               submission.Name,
			Email:              submission.Email,
			Phone:              submission.Phone,
			AadharNumber:       submission.AadharNumber,
			Income:             submission.Income,
			DocumentsReference: submission.JoinedDocuments(),
			Status:             models.StatusApplied,
			DisbursementAmount: s.cfg.StandardAmount,
		}
		if err := s.repo.Create(runCtx, app); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store application")
		}
		s.afterTransition(runCtx, models.EventApplicationSubmitted, models.AuditActionSubmit, capability.Address, app, 0)
		return app, nil
	})
}

// Verify records a SAG bureau vote.
func (s *ApplicationService) Verify(ctx context.Context, caller string, id int64) (*models.Application, *models.Operation, error) {
	return s.vote(ctx, caller, id, workflow.ActionVerify)
}

// Approve records an admin vote.
func (s *ApplicationService) Approve(ctx context.Context, caller string, id int64) (*models.Application, *models.Operation, error) {
	return s.vote(ctx, caller, id, workflow.ActionApprove)
}

func (s *ApplicationService) vote(ctx context.Context, caller string, id int64, action workflow.Action) (*models.Application, *models.Operation, error) {
	transition, err := s.cfg.Rules.Transition(action)
	if err != nil {
		return nil, nil, appErrors.Clone(appErrors.ErrValidation, err.Error())
	}
	capability, err := s.gate.Require(ctx, caller, transition.Role)
	if err != nil {
		return nil, nil, err
	}

	kind, eventType, auditAction := models.OperationVerify, models.EventVerificationOccurred, models.AuditActionVerify
	if action == workflow.ActionApprove {
		kind, eventType, auditAction = models.OperationApprove, models.EventApprovalOccurred, models.AuditActionApprove
	}

	op := models.Operation{Kind: kind, ActorAddress: capability.Address, ApplicationID: &id}
	return s.run(ctx, op, func(runCtx context.Context) (*models.Application, error) {
		decide := func(current models.Application, alreadyVoted bool) (models.Application, error) {
			if err := s.cfg.Rules.CheckVote(capability, action, current, alreadyVoted); err != nil {
				return current, err
			}
			return s.cfg.Rules.ApplyVote(current, action)
		}
		app, err := s.repo.ApplyVote(runCtx, id, transition.Stage, capability.Address, decide)
		if err != nil {
			return nil, storeError(err, id, appErrors.ErrDuplicateVote)
		}
		s.afterTransition(runCtx, eventType, auditAction, capability.Address, app, 0)
		return app, nil
	})
}

// Disburse pays an approved application out of the pool.
func (s *ApplicationService) Disburse(ctx context.Context, caller string, id int64) (*models.Application, *models.Operation, error) {
	capability, err := s.gate.Require(ctx, caller, models.RoleFinanceBureau)
	if err != nil {
		return nil, nil, err
	}

	op := models.Operation{Kind: models.OperationDisburse, ActorAddress: capability.Address, ApplicationID: &id}
	return s.run(ctx, op, func(runCtx context.Context) (*models.Application, error) {
		decide := func(current models.Application, poolBalance int64) (models.Application, error) {
			if err := workflow.CheckDisburse(capability, current, poolBalance); err != nil {
				return current, err
			}
			return workflow.ApplyDisburse(current), nil
		}
		result, err := s.repo.Disburse(runCtx, id, capability.Address, decide)
		if err != nil {
			return nil, storeError(err, id, appErrors.ErrAlreadyDisbursed)
		}
		s.metrics.AddDisbursed(result.Entry.Amount)
		s.afterTransition(runCtx, models.EventFundsDisbursed, models.AuditActionDisburse, capability.Address, result.Application, result.Entry.Amount)
		return result.Application, nil
	})
}

// HasVoted reports whether address has voted on the stage of application id.
func (s *ApplicationService) HasVoted(ctx context.Context, caller string, id int64, stage models.VoteStage, address string) (*dto.VoteStatusResponse, error) {
	if _, err := s.gate.RequireAny(ctx, caller, models.RoleSagBureau, models.RoleAdmin, models.RoleFinanceBureau); err != nil {
		return nil, err
	}
	voter, err := wallet.Normalize(address)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, err.Error())
	}
	if _, err := s.load(ctx, id); err != nil {
		return nil, err
	}
	voted, err := s.repo.HasVoted(ctx, id, stage, voter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to read votes")
	}
	return &dto.VoteStatusResponse{ApplicationID: id, Stage: string(stage), Address: voter, Voted: voted}, nil
}

// Votes lists the voters of one stage together with the caller's own vote state.
func (s *ApplicationService) Votes(ctx context.Context, caller string, id int64, stage models.VoteStage) (*dto.ApplicationVotesResponse, error) {
	if _, err := s.gate.RequireAny(ctx, caller, models.RoleSagBureau, models.RoleAdmin, models.RoleFinanceBureau); err != nil {
		return nil, err
	}
	if _, err := s.load(ctx, id); err != nil {
		return nil, err
	}
	votes, err := s.repo.Votes(ctx, id, stage)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to read votes")
	}
	resp := &dto.ApplicationVotesResponse{ApplicationID: id, Stage: string(stage), Voters: make([]string, 0, len(votes))}
	for _, v := range votes {
		resp.Voters = append(resp.Voters, v.VoterAddress)
		if wallet.Equal(v.VoterAddress, caller) {
			resp.CallerVoted = true
		}
	}
	return resp, nil
}

// Get returns one application. Students may only read their own.
func (s *ApplicationService) Get(ctx context.Context, caller string, id int64) (*models.Application, error) {
	capability, err := s.gate.Resolve(ctx, caller)
	if err != nil {
		return nil, err
	}
	app, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !canReadAll(capability) && !wallet.Equal(app.StudentAddress, capability.Address) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "applications of other students are not visible")
	}
	return app, nil
}

// Mine lists the caller's applications ordered by id.
func (s *ApplicationService) Mine(ctx context.Context, caller string) ([]models.Application, error) {
	capability, err := s.gate.Resolve(ctx, caller)
	if err != nil {
		return nil, err
	}
	apps, err := s.repo.ListByStudent(ctx, capability.Address)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list applications")
	}
	return apps, nil
}

// ByStatus lists applications currently in status.
func (s *ApplicationService) ByStatus(ctx context.Context, caller string, status models.ApplicationStatus) ([]models.Application, error) {
	if _, err := s.gate.RequireAny(ctx, caller, models.RoleSagBureau, models.RoleAdmin, models.RoleFinanceBureau); err != nil {
		return nil, err
	}
	apps, err := s.repo.ListByStatus(ctx, status)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list applications")
	}
	return apps, nil
}

// All lists every application ordered by id.
func (s *ApplicationService) All(ctx context.Context, caller string) ([]models.Application, error) {
	if _, err := s.gate.RequireAny(ctx, caller, models.RoleSagBureau, models.RoleAdmin, models.RoleFinanceBureau); err != nil {
		return nil, err
	}
	apps, err := s.repo.ListAll(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list applications")
	}
	return apps, nil
}

// Export renders the application register.
func (s *ApplicationService) Export(ctx context.Context, caller string, format dto.ExportFormat) (*dto.ExportFile, error) {
	if _, err := s.gate.RequireAny(ctx, caller, models.RoleAdmin, models.RoleFinanceBureau); err != nil {
		return nil, err
	}
	apps, err := s.repo.ListAll(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list applications")
	}
	return s.exporter.ApplicationRegister(apps, format)
}

// Dashboard returns the aggregate counts, served from cache when warm.
func (s *ApplicationService) Dashboard(ctx context.Context, caller string) (*models.DashboardSummary, error) {
	if _, err := s.gate.RequireAny(ctx, caller, models.RoleSagBureau, models.RoleAdmin, models.RoleFinanceBureau); err != nil {
		return nil, err
	}
	if s.cache != nil {
		var cached models.DashboardSummary
		if hit, err := s.cache.Get(ctx, dashboardCacheKey, &cached); err == nil && hit {
			return &cached, nil
		}
	}
	return s.WarmDashboard(ctx)
}

// WarmDashboard recomputes the aggregate and refreshes the cache.
func (s *ApplicationService) WarmDashboard(ctx context.Context) (*models.DashboardSummary, error) {
	counts, err := s.repo.CountByStatus(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to aggregate applications")
	}
	summary := &models.DashboardSummary{ByStatus: make(map[string]int, 4), GeneratedAt: s.now().UTC()}
	for _, status := range []models.ApplicationStatus{models.StatusApplied, models.StatusSagVerified, models.StatusAdminApproved, models.StatusDisbursed} {
		summary.ByStatus[status.String()] = 0
	}
	for _, c := range counts {
		summary.ByStatus[c.Status.String()] += c.Count
		summary.Total += c.Count
	}
	if summary.DisbursedTotal, err = s.repo.DisbursedTotal(ctx); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to aggregate payouts")
	}
	if s.pool != nil {
		balance, err := s.pool.Balance(ctx)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to read pool balance")
		}
		summary.PoolBalance = balance.Balance
	}
	if s.cache != nil {
		if err := s.cache.Set(ctx, dashboardCacheKey, summary, s.cfg.DashboardTTL); err != nil {
			s.logger.Warn("failed to cache dashboard", zap.Error(err))
		}
	}
	return summary, nil
}

func (s *ApplicationService) load(ctx context.Context, id int64) (*models.Application, error) {
	app, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, storeError(err, id, appErrors.ErrConflict)
	}
	return app, nil
}

func (s *ApplicationService) run(ctx context.Context, op models.Operation, fn func(context.Context) (*models.Application, error)) (*models.Application, *models.Operation, error) {
	finished, err := s.runner.Execute(ctx, op, func(runCtx context.Context) (interface{}, error) {
		return fn(runCtx)
	})
	if err != nil {
		return nil, finished, err
	}
	app, _ := finished.Result.(*models.Application)
	return app, finished, nil
}

func (s *ApplicationService) afterTransition(ctx context.Context, eventType models.EventType, action, actor string, app *models.Application, amount int64) {
	if s.cache != nil {
		if err := s.cache.Delete(ctx, dashboardCacheKey); err != nil {
			s.logger.Warn("failed to invalidate dashboard cache", zap.Error(err))
		}
	}
	if s.events != nil {
		id := app.ID
		s.events.Publish(ctx, models.Event{Type: eventType, ApplicationID: &id, Actor: actor, Subject: app.StudentAddress, Amount: amount})
	}
	if s.audit == nil {
		return
	}
	newValues, _ := json.Marshal(map[string]interface{}{
		"status":             app.Status,
		"sagVerifiedCount":   app.SagVerifiedCount,
		"adminApprovedCount": app.AdminApprovedCount,
		"isDisbursed":        app.IsDisbursed,
	})
	resourceID := fmt.Sprintf("%d", app.ID)
	entry := &models.AuditLog{
		ActorAddress: &actor,
		Action:       action,
		Resource:     "application",
		ResourceID:   &resourceID,
		NewValues:    newValues,
		IPAddress:    "system",
		UserAgent:    "application-service",
	}
	if err := s.audit.CreateAuditLog(ctx, entry); err != nil {
		s.logger.Warn("failed to persist audit log", zap.String("action", action), zap.Error(err))
	}
}

func canReadAll(capability models.Capability) bool {
	return capability.AllowsAny(models.RoleSagBureau, models.RoleAdmin, models.RoleFinanceBureau)
}

// storeError maps repository failures onto the error taxonomy. duplicate is returned for unique violations.
func storeError(err error, id int64, duplicate *appErrors.Error) error {
	var typed *appErrors.Error
	switch {
	case errors.As(err, &typed):
		return typed
	case errors.Is(err, sql.ErrNoRows):
		return appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("application #%d not found", id))
	case errors.Is(err, repository.ErrDuplicate):
		return appErrors.Clone(duplicate, "")
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return err
	default:
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "application store failure")
	}
}
