package dto

// AssistantMessageRequest is one chat turn.
type AssistantMessageRequest struct {
	Message string `json:"message" validate:"required,max=2000"`
}
