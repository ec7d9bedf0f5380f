package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/tidwall/gjson"
	"go.uber.org/zap"

	"github.com/noah-isme/scholarship-api/internal/dto"
	"github.com/noah-isme/scholarship-api/internal/models"
	appErrors "github.com/noah-isme/scholarship-api/pkg/errors"
)

const assistantApology = "Sorry, the assistant is unavailable right now. Please try again in a moment."

// AssistantService relays chat messages to the conversational assistant.
type AssistantService struct {
	endpoint  string
	client    *http.Client
	validator *validator.Validate
	metrics   *MetricsService
	logger    *zap.Logger
}

// NewAssistantService constructs an AssistantService for endpoint.
func NewAssistantService(endpoint string, timeout time.Duration, validate *validator.Validate, metrics *MetricsService, logger *zap.Logger) *AssistantService {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AssistantService{
		endpoint:  endpoint,
		client:    &http.Client{Timeout: timeout},
		validator: validate,
		metrics:   metrics,
		logger:    logger,
	}
}

// Ask sends one message. Upstream failures degrade to a canned apology instead of an error.
func (s *AssistantService) Ask(ctx context.Context, req dto.AssistantMessageRequest) (*models.AssistantReply, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "message is required")
	}
	reply, err := s.call(ctx, strings.TrimSpace(req.Message))
	s.metrics.ObserveUpstream("assistant", err)
	if err != nil {
		s.logger.Warn("assistant call failed", zap.Error(err))
		return &models.AssistantReply{Reply: assistantApology, Degraded: true}, nil
	}
	return reply, nil
}

func (s *AssistantService) call(ctx context.Context, message string) (*models.AssistantReply, error) {
	if s.endpoint == "" {
		return nil, fmt.Errorf("assistant endpoint not configured")
	}
	body, err := json.Marshal(map[string]string{"message": message})
	if err != nil {
		return nil, err
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("assistant returned %d", resp.StatusCode)
	}

	result := gjson.ParseBytes(payload)
	text := result.Get("response").String()
	if text == "" {
		text = result.Get("reply").String()
	}
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("assistant response has no reply text")
	}
	return &models.AssistantReply{Reply: text, AudioURL: result.Get("audio_url").String()}, nil
}
