package service

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/tidwall/gjson"
	"go.uber.org/zap"

	"github.com/noah-isme/scholarship-api/internal/models"
	appErrors "github.com/noah-isme/scholarship-api/pkg/errors"
	"github.com/noah-isme/scholarship-api/pkg/jobs"
	"github.com/noah-isme/scholarship-api/pkg/pinning"
)

const verifyJobType = "verify-application-documents"

type verificationStore interface {
	Create(ctx context.Context, v *models.DocumentVerification) error
	ListByApplication(ctx context.Context, applicationID int64) ([]models.DocumentVerification, error)
}

type documentFetcher interface {
	Fetch(ctx context.Context, contentID string) (io.ReadCloser, error)
}

type applicationReader interface {
	GetByID(ctx context.Context, id int64) (*models.Application, error)
}

// VerifierServiceConfig tunes the authenticity checker client.
type VerifierServiceConfig struct {
	Endpoint     string
	Timeout      time.Duration
	Retries      int
	RetryDelay   time.Duration
	Workers      int
	MaxFileSize  int64
	EnqueueLimit time.Duration
}

// VerifierService calls the document authenticity checker and stores verdicts for applications.
type VerifierService struct {
	store   verificationStore
	docs    documentFetcher
	apps    applicationReader
	gate    *Gate
	client  *http.Client
	metrics *MetricsService
	logger  *zap.Logger
	cfg     VerifierServiceConfig
	queue   *jobs.Queue
	sleep   func(ctx context.Context, d time.Duration) error
}

// NewVerifierService constructs a VerifierService and its background queue.
func NewVerifierService(store verificationStore, docs documentFetcher, apps applicationReader, gate *Gate, metrics *MetricsService, logger *zap.Logger, cfg VerifierServiceConfig) *VerifierService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.Retries <= 0 {
		cfg.Retries = 3
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = 500 * time.Millisecond
	}
	if cfg.MaxFileSize <= 0 {
		cfg.MaxFileSize = 10 << 20
	}
	if cfg.EnqueueLimit <= 0 {
		cfg.EnqueueLimit = 5 * time.Second
	}
	s := &VerifierService{
		store:   store,
		docs:    docs,
		apps:    apps,
		gate:    gate,
		client:  &http.Client{Timeout: cfg.Timeout},
		metrics: metrics,
		logger:  logger,
		cfg:     cfg,
		sleep:   sleepContext,
	}
	s.queue = jobs.NewQueue("document-verification", s.handleJob, jobs.QueueConfig{
		Workers:        cfg.Workers,
		DisableRetries: true,
		Logger:         logger,
	})
	return s
}

// Start launches the background workers.
func (s *VerifierService) Start(ctx context.Context) {
	s.queue.Start(ctx)
}

// Stop waits for the background workers.
func (s *VerifierService) Stop() {
	s.queue.Stop()
}

// Check sends one document to the checker, retrying transport failures and 5xx answers with growing delays.
func (s *VerifierService) Check(ctx context.Context, filename string, r io.Reader) (*models.Verdict, error) {
	data, err := io.ReadAll(io.LimitReader(r, s.cfg.MaxFileSize+1))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "failed to read document")
	}
	if len(data) == 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "document is empty")
	}
	if int64(len(data)) > s.cfg.MaxFileSize {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("document exceeds %d bytes", s.cfg.MaxFileSize))
	}

	var lastErr error
	for attempt := 1; attempt <= s.cfg.Retries; attempt++ {
		verdict, err := s.post(ctx, filename, data)
		s.metrics.ObserveUpstream("verifier", err)
		if err == nil {
			return verdict, nil
		}
		lastErr = err
		if !retryable(err) {
			return nil, upstreamError(err, "document verifier")
		}
		if attempt == s.cfg.Retries {
			break
		}
		delay := s.backoff(attempt)
		s.logger.Warn("verifier call failed, retrying", zap.Int("attempt", attempt), zap.Duration("delay", delay), zap.Error(err))
		if err := s.sleep(ctx, delay); err != nil {
			return nil, err
		}
	}
	return nil, &appErrors.Error{
		Code:    appErrors.ErrUpstreamDown.Code,
		Status:  appErrors.ErrUpstreamDown.Status,
		Message: fmt.Sprintf("document verifier unavailable after %d attempts", s.cfg.Retries),
		Hint:    appErrors.ErrUpstreamDown.Hint,
		Err:     lastErr,
	}
}

// QueueApplicationCheck schedules verification of every document of an application.
func (s *VerifierService) QueueApplicationCheck(ctx context.Context, caller string, id int64) error {
	if _, err := s.gate.RequireAny(ctx, caller, models.RoleSagBureau, models.RoleAdmin); err != nil {
		return err
	}
	if _, err := s.apps.GetByID(ctx, id); err != nil {
		return storeError(err, id, appErrors.ErrConflict)
	}
	enqueueCtx, cancel := context.WithTimeout(ctx, s.cfg.EnqueueLimit)
	defer cancel()
	if err := s.queue.EnqueueContext(enqueueCtx, jobs.Job{ID: strconv.FormatInt(id, 10), Type: verifyJobType, Payload: id}); err != nil {
		if ctx.Err() != nil {
			return appErrors.Clone(appErrors.ErrCancelled, "")
		}
		return &appErrors.Error{
			Code:    appErrors.ErrUpstreamDown.Code,
			Status:  appErrors.ErrUpstreamDown.Status,
			Message: "verification queue unavailable",
			Hint:    appErrors.ErrUpstreamDown.Hint,
			Err:     err,
		}
	}
	return nil
}

// Verdicts lists stored verdicts for an application.
func (s *VerifierService) Verdicts(ctx context.Context, caller string, id int64) ([]models.DocumentVerification, error) {
	if _, err := s.gate.RequireAny(ctx, caller, models.RoleSagBureau, models.RoleAdmin, models.RoleFinanceBureau); err != nil {
		return nil, err
	}
	list, err := s.store.ListByApplication(ctx, id)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list verifications")
	}
	return list, nil
}

func (s *VerifierService) handleJob(ctx context.Context, job jobs.Job) error {
	id, ok := job.Payload.(int64)
	if !ok {
		return fmt.Errorf("unexpected payload %T", job.Payload)
	}
	app, err := s.apps.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil
		}
		return err
	}
	for _, ref := range app.DocumentReferences() {
		record := models.DocumentVerification{ApplicationID: id, ContentID: ref}
		verdict, err := s.checkStored(ctx, ref)
		if err != nil {
			msg := appErrors.FromError(err).Message
			record.Status = models.VerificationFailed
			record.ErrorMessage = &msg
		} else {
			applyVerdict(&record, verdict)
		}
		if err := s.store.Create(ctx, &record); err != nil {
			s.logger.Error("failed to store verification", zap.Int64("application_id", id), zap.String("content_id", ref), zap.Error(err))
		}
	}
	s.logger.Info("application documents verified", zap.Int64("application_id", id))
	return nil
}

func (s *VerifierService) checkStored(ctx context.Context, contentID string) (*models.Verdict, error) {
	body, err := s.docs.Fetch(ctx, contentID)
	if err != nil {
		return nil, err
	}
	defer body.Close()
	return s.Check(ctx, path.Base(contentID), body)
}

func (s *VerifierService) post(ctx context.Context, filename string, data []byte) (*models.Verdict, error) {
	if s.cfg.Endpoint == "" {
		return nil, &pinning.StatusError{Code: http.StatusNotImplemented, Body: "verifier endpoint not configured"}
	}
	buf := &bytes.Buffer{}
	form := multipart.NewWriter(buf)
	part, err := form.CreateFormFile("file", filename)
	if err != nil {
		return nil, err
	}
	if _, err := part.Write(data); err != nil {
		return nil, err
	}
	if err := form.Close(); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.cfg.Endpoint, buf)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", form.FormDataContentType())

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &pinning.StatusError{Code: resp.StatusCode, Body: strings.TrimSpace(string(payload))}
	}
	return parseVerdict(payload)
}

func (s *VerifierService) backoff(attempt int) time.Duration {
	return s.cfg.RetryDelay * time.Duration(1<<uint(attempt-1))
}

func parseVerdict(payload []byte) (*models.Verdict, error) {
	if !gjson.ValidBytes(payload) {
		return nil, fmt.Errorf("verifier returned malformed json")
	}
	result := gjson.ParseBytes(payload)
	verdict := &models.Verdict{
		AuthenticityScore: result.Get("authenticity_score").Float(),
		ConfidenceScore:   result.Get("confidence_score").Float(),
		TamperingDetected: result.Get("tampering_detected").Bool(),
		ExtractedFields:   map[string]string{},
		Recommendations:   []string{},
	}
	result.Get("extracted_fields").ForEach(func(key, value gjson.Result) bool {
		verdict.ExtractedFields[key.String()] = value.String()
		return true
	})
	for _, rec := range result.Get("recommendations").Array() {
		verdict.Recommendations = append(verdict.Recommendations, rec.String())
	}
	return verdict, nil
}

func applyVerdict(record *models.DocumentVerification, verdict *models.Verdict) {
	authenticity, confidence, tampering := verdict.AuthenticityScore, verdict.ConfidenceScore, verdict.TamperingDetected
	record.Status = models.VerificationCompleted
	record.AuthenticityScore = &authenticity
	record.ConfidenceScore = &confidence
	record.TamperingDetected = &tampering
	record.ExtractedFields, _ = json.Marshal(verdict.ExtractedFields)
	record.Recommendations, _ = json.Marshal(verdict.Recommendations)
}

func retryable(err error) bool {
	var statusErr *pinning.StatusError
	if errors.As(err, &statusErr) {
		return statusErr.Temporary()
	}
	return !errors.Is(err, context.Canceled)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
