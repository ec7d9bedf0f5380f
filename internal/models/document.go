package models

// StoredDocument is the result of an upload.
type StoredDocument struct {
	ContentID   string `json:"contentId"`
	Size        int64  `json:"size"`
	ContentType string `json:"contentType"`
	URL         string `json:"url"`
	Backend     string `json:"backend"`
}

// ResolvedDocument is the per-document outcome of resolving a reference list.
type ResolvedDocument struct {
	Position  int    `json:"position"`
	ContentID string `json:"contentId"`
	URL       string `json:"url,omitempty"`
	Error     string `json:"error,omitempty"`
}

// AssistantReply is the chat assistant answer.
type AssistantReply struct {
	Reply    string `json:"reply"`
	AudioURL string `json:"audioUrl,omitempty"`
	Degraded bool   `json:"degraded"`
}
