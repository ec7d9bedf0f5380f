package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/scholarship-api/internal/dto"
	"github.com/noah-isme/scholarship-api/internal/models"
	"github.com/noah-isme/scholarship-api/pkg/response"
)

type assistantService interface {
	Ask(ctx context.Context, req dto.AssistantMessageRequest) (*models.AssistantReply, error)
}

// AssistantHandler proxies chat messages to the conversational assistant.
type AssistantHandler struct {
	service assistantService
}

// NewAssistantHandler constructs the handler. A nil service disables the endpoint.
func NewAssistantHandler(service assistantService) *AssistantHandler {
	return &AssistantHandler{service: service}
}

// Message godoc
// @Summary Ask the assistant
// @Description Upstream failures degrade to a canned reply with degraded=true
// @Tags Assistant
// @Accept json
// @Produce json
// @Param payload body dto.AssistantMessageRequest true "Message"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /assistant/messages [post]
func (h *AssistantHandler) Message(c *gin.Context) {
	if h.service == nil {
		featureDisabled(c, "assistant")
		return
	}
	var req dto.AssistantMessageRequest
	if !bindJSON(c, &req, "invalid message payload") {
		return
	}
	reply, err := h.service.Ask(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, reply)
}
