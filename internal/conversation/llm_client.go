package conversation

import "context"

const (
	ChatRoleSystem    = "system"
	ChatRoleUser      = "user"
	ChatRoleAssistant = "assistant"
)

// InlineImage is an already-decoded image payload forwarded to the model.
type InlineImage struct {
	MIMEType string `json:"mimeType"`
	Data     []byte `json:"data"`
}

// ChatMessage is an internal message representation that can include system prompts.
type ChatMessage struct {
	Role    string       `json:"role"`
	Content string       `json:"content"`
	Image   *InlineImage `json:"image,omitempty"`
}

type TokenUsage struct {
	InputTokens  int32
	OutputTokens int32
	TotalTokens  int32
}

// SchemaType names a JSON schema node type understood by every backend.
type SchemaType string

const (
	SchemaObject SchemaType = "object"
	SchemaString SchemaType = "string"
	SchemaArray  SchemaType = "array"
)

// Schema is a provider-neutral response schema. Backends that support
// constrained decoding map it natively; the rest embed it in the prompt.
type Schema struct {
	Type        SchemaType         `json:"type"`
	Description string             `json:"description,omitempty"`
	Properties  map[string]*Schema `json:"properties,omitempty"`
	Items       *Schema            `json:"items,omitempty"`
	Enum        []string           `json:"enum,omitempty"`
	Required    []string           `json:"required,omitempty"`
}

type LLMRequest struct {
	Model          string
	System         []string
	Messages       []ChatMessage
	MaxTokens      int32
	Temperature    float32
	TopP           float32
	ResponseSchema *Schema
}

type LLMResponse struct {
	Text       string
	Usage      TokenUsage
	StopReason string
}

type LLMClient interface {
	Complete(ctx context.Context, req LLMRequest) (LLMResponse, error)
}
