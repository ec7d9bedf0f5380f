package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/scholarship-api/internal/models"
	appErrors "github.com/noah-isme/scholarship-api/pkg/errors"
	"github.com/noah-isme/scholarship-api/pkg/jobs"
	"github.com/noah-isme/scholarship-api/pkg/middleware/requestid"
)

type operationStore interface {
	Create(ctx context.Context, op *models.Operation) error
	GetByID(ctx context.Context, id string) (*models.Operation, error)
	Finish(ctx context.Context, id string, status models.OperationStatus, code, message *string) error
	ExpirePending(ctx context.Context, cutoff time.Time, reason string) (int64, error)
}

// OperationFunc performs the mutating work of an operation and returns the re-read result.
type OperationFunc func(ctx context.Context) (interface{}, error)

// OperationRunnerConfig tunes how long callers wait and how long work may run.
type OperationRunnerConfig struct {
	Workers        int
	BufferSize     int
	ConfirmTimeout time.Duration
	PendingTTL     time.Duration
}

const (
	taskQueued int32 = iota
	taskRunning
	taskCancelled
)

type runnerTask struct {
	op        models.Operation
	fn        OperationFunc
	key       string
	requestID string
	state     int32
	done      chan *models.Operation
	err       error
}

// OperationRunner executes mutating actions on a worker queue so callers can stop waiting without losing the result.
type OperationRunner struct {
	store   operationStore
	metrics *MetricsService
	logger  *zap.Logger
	cfg     OperationRunnerConfig
	queue   *jobs.Queue
	now     func() time.Time

	mu       sync.Mutex
	inFlight map[string]struct{}
}

// NewOperationRunner constructs the runner and its queue. Call Start before Execute.
func NewOperationRunner(store operationStore, metrics *MetricsService, logger *zap.Logger, cfg OperationRunnerConfig) *OperationRunner {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 4
	}
	if cfg.ConfirmTimeout <= 0 {
		cfg.ConfirmTimeout = 10 * time.Second
	}
	if cfg.PendingTTL <= 0 {
		cfg.PendingTTL = 15 * time.Minute
	}
	r := &OperationRunner{
		store:    store,
		metrics:  metrics,
		logger:   logger,
		cfg:      cfg,
		now:      time.Now,
		inFlight: make(map[string]struct{}),
	}
	r.queue = jobs.NewQueue("operations", r.handle, jobs.QueueConfig{
		Workers:        cfg.Workers,
		BufferSize:     cfg.BufferSize,
		DisableRetries: true,
		Logger:         logger,
	})
	return r
}

// Start launches the workers.
func (r *OperationRunner) Start(ctx context.Context) {
	r.queue.Start(ctx)
}

// Stop cancels running work and waits for the workers.
func (r *OperationRunner) Stop() {
	r.queue.Stop()
}

// Execute records op, runs fn on the queue and waits for the outcome, the caller, or the confirm timeout.
// The confirm timeout also bounds the wait for queue space. A caller that goes away before fn starts
// cancels the operation; afterwards the work completes in the background and the pending operation is
// returned with ErrPending.
func (r *OperationRunner) Execute(ctx context.Context, op models.Operation, fn OperationFunc) (*models.Operation, error) {
	if ctx.Err() != nil {
		return nil, appErrors.Clone(appErrors.ErrCancelled, "")
	}

	key := inFlightKey(op)
	if !r.acquire(key) {
		return nil, appErrors.Clone(appErrors.ErrInFlight, fmt.Sprintf("%s is already in progress for %s", op.Kind, op.ActorAddress))
	}

	op.ID = uuid.NewString()
	op.Status = models.OperationPending
	op.CreatedAt = r.now().UTC()
	detached := context.WithoutCancel(ctx)
	if err := r.store.Create(detached, &op); err != nil {
		r.release(key)
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to record operation")
	}
	r.metrics.OperationStarted()

	task := &runnerTask{op: op, fn: fn, key: key, requestID: requestid.FromContext(ctx), done: make(chan *models.Operation, 1)}

	waitCtx, cancel := context.WithTimeout(ctx, r.cfg.ConfirmTimeout)
	defer cancel()

	if err := r.queue.EnqueueContext(waitCtx, jobs.Job{ID: op.ID, Type: string(op.Kind), Payload: task}); err != nil {
		var cause error
		switch {
		case ctx.Err() != nil:
			cause = appErrors.Clone(appErrors.ErrCancelled, "")
		case waitCtx.Err() != nil:
			cause = &appErrors.Error{
				Code:    appErrors.ErrUpstreamDown.Code,
				Status:  appErrors.ErrUpstreamDown.Status,
				Message: "operation queue is full",
				Hint:    appErrors.ErrUpstreamDown.Hint,
				Err:     err,
			}
		default:
			cause = appErrors.Wrap(err, appErrors.ErrUpstreamDown.Code, appErrors.ErrUpstreamDown.Status, "operation queue unavailable")
		}
		return r.finish(detached, task, nil, cause), cause
	}

	select {
	case finished := <-task.done:
		return finished, task.err
	case <-waitCtx.Done():
		if ctx.Err() == nil {
			return r.pending(task)
		}
		if atomic.CompareAndSwapInt32(&task.state, taskQueued, taskCancelled) {
			cancelled := appErrors.Clone(appErrors.ErrCancelled, "")
			return r.finish(detached, task, nil, cancelled), cancelled
		}
		return r.pending(task)
	}
}

// Get returns the recorded state of an operation.
func (r *OperationRunner) Get(ctx context.Context, id string) (*models.Operation, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "invalid operation id")
	}
	op, err := r.store.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "operation not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load operation")
	}
	return op, nil
}

// Sweep fails operations left pending longer than the pending TTL.
func (r *OperationRunner) Sweep(ctx context.Context) (int64, error) {
	cutoff := r.now().UTC().Add(-r.cfg.PendingTTL)
	count, err := r.store.ExpirePending(ctx, cutoff, "operation abandoned")
	if err != nil {
		return 0, err
	}
	if count > 0 {
		r.logger.Info("expired abandoned operations", zap.Int64("count", count))
	}
	return count, nil
}

func (r *OperationRunner) handle(ctx context.Context, job jobs.Job) error {
	task, ok := job.Payload.(*runnerTask)
	if !ok {
		return fmt.Errorf("unexpected payload %T", job.Payload)
	}
	if !atomic.CompareAndSwapInt32(&task.state, taskQueued, taskRunning) {
		return nil
	}

	runCtx, cancel := context.WithTimeout(ctx, r.cfg.PendingTTL)
	defer cancel()

	result, err := task.fn(runCtx)
	finished := r.finish(context.WithoutCancel(ctx), task, result, err)
	task.err = err
	task.done <- finished
	return nil
}

func (r *OperationRunner) finish(ctx context.Context, task *runnerTask, result interface{}, cause error) *models.Operation {
	op := task.op
	op.Status = models.OperationConfirmed
	if cause != nil {
		op.Status = models.OperationFailed
		if appErrors.IsBenign(cause) {
			op.Status = models.OperationCancelled
		}
		e := appErrors.FromError(cause)
		code, message := e.Code, e.Message
		op.ErrorCode = &code
		op.ErrorMessage = &message
	}
	finishedAt := r.now().UTC()
	op.FinishedAt = &finishedAt
	op.Result = result

	if err := r.store.Finish(ctx, op.ID, op.Status, op.ErrorCode, op.ErrorMessage); err != nil {
		r.logger.Warn("failed to record operation outcome", zap.String("operation_id", op.ID), zap.Error(err))
	}

	r.release(task.key)
	r.metrics.OperationFinished()
	r.metrics.ObserveOperation(op.Kind, op.Status)

	fields := []zap.Field{zap.String("operation_id", op.ID), zap.String("kind", string(op.Kind)), zap.String("actor", op.ActorAddress)}
	if task.requestID != "" {
		fields = append(fields, zap.String("request_id", task.requestID))
	}
	switch op.Status {
	case models.OperationConfirmed:
		r.logger.Debug("operation confirmed", fields...)
	case models.OperationCancelled:
		r.logger.Info("operation cancelled", fields...)
	default:
		if e := appErrors.FromError(cause); e.Status >= 500 {
			r.logger.Error("operation failed", append(fields, zap.Error(cause))...)
		} else {
			r.logger.Info("operation rejected", append(fields, zap.String("code", e.Code))...)
		}
	}
	return &op
}

func (r *OperationRunner) pending(task *runnerTask) (*models.Operation, error) {
	op := task.op
	return &op, appErrors.Clone(appErrors.ErrPending, fmt.Sprintf("operation %s is still pending", op.ID))
}

func (r *OperationRunner) acquire(key string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, busy := r.inFlight[key]; busy {
		return false
	}
	r.inFlight[key] = struct{}{}
	return true
}

func (r *OperationRunner) release(key string) {
	r.mu.Lock()
	delete(r.inFlight, key)
	r.mu.Unlock()
}

func inFlightKey(op models.Operation) string {
	target := "-"
	if op.ApplicationID != nil {
		target = strconv.FormatInt(*op.ApplicationID, 10)
	}
	return strings.Join([]string{string(op.Kind), strings.ToLower(op.ActorAddress), target}, "|")
}
