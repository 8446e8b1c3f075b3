package llm

import (
	"context"
	"encoding/json"
	"net/http"
)

// Message roles and content part types of the chat/completions wire format.
const (
	RoleUser = "user"

	PartText = "text"
	PartFile = "file"
)

// Finish reasons that mean the completion was cut short by the token budget.
var truncatedFinishReasons = map[string]struct{}{
	"length":     {},
	"max_tokens": {},
	"MAX_TOKENS": {},
}

// IsTruncated reports whether a finish reason indicates a length cut-off.
func IsTruncated(finishReason string) bool {
	_, ok := truncatedFinishReasons[finishReason]
	return ok
}

// FilePart embeds a document as a data URL.
type FilePart struct {
	Filename string `json:"filename"`
	FileData string `json:"file_data"`
}

// ContentPart is one element of a multi-part user message.
type ContentPart struct {
	Type string    `json:"type"`
	Text string    `json:"text,omitempty"`
	File *FilePart `json:"file,omitempty"`
}

type Message struct {
	Role    string        `json:"role"`
	Content []ContentPart `json:"content"`
}

// CompletionRequest is provider-neutral; transports map it to their wire body.
// A nil ResponseSchema means the shape-constrained response mode is not used.
type CompletionRequest struct {
	Model           string         `json:"model"`
	Messages        []Message      `json:"messages"`
	Temperature     float64        `json:"temperature"`
	MaxTokens       int            `json:"max_tokens"`
	ResponseSchema  map[string]any `json:"response_schema,omitempty"`
	ReasoningEffort string         `json:"reasoning_effort,omitempty"`
}

type Usage struct {
	PromptTokens     int     `json:"prompt_tokens"`
	CompletionTokens int     `json:"completion_tokens"`
	TotalTokens      int     `json:"total_tokens"`
	Cost             float64 `json:"cost,omitempty"`
}

// Completion is what a transport returns for a 2xx response. Content and
// FinishReason come from the first choice; Choices is the number received.
type Completion struct {
	Content      string
	FinishReason string
	Choices      int
	Model        string
	Usage        Usage
	RateLimit    map[string]string
	Header       http.Header
	Raw          json.RawMessage
}

// Transport sends one completion request. Implementations retry transient
// network failures themselves and return *TransportError once exhausted.
type Transport interface {
	Complete(ctx context.Context, req CompletionRequest) (Completion, error)
}
