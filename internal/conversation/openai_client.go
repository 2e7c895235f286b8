package conversation

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"
)

type openAIChatAPI interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// OpenAILLMClient implements LLMClient on the OpenAI chat completions API.
type OpenAILLMClient struct {
	api   openAIChatAPI
	model string
}

// NewOpenAILLMClient constructs an OpenAI-backed client. model defaults to gpt-4o-mini.
func NewOpenAILLMClient(apiKey, model string) (*OpenAILLMClient, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, fmt.Errorf("%w: openai api key is required", ErrMissingCredentials)
	}
	return newOpenAILLMClientWithAPI(openai.NewClient(apiKey), model), nil
}

func newOpenAILLMClientWithAPI(api openAIChatAPI, model string) *OpenAILLMClient {
	if api == nil {
		panic("conversation: openai client cannot be nil")
	}
	if strings.TrimSpace(model) == "" {
		model = "gpt-4o-mini"
	}
	return &OpenAILLMClient{api: api, model: model}
}

// Complete converts the request into a chat completion call. Images are
// sent as data URLs; a ResponseSchema selects JSON object output and is
// appended to the system prompt.
func (c *OpenAILLMClient) Complete(ctx context.Context, req LLMRequest) (LLMResponse, error) {
	model := c.model
	if strings.TrimSpace(req.Model) != "" {
		model = req.Model
	}

	system := make([]string, 0, len(req.System)+1)
	for _, block := range req.System {
		if strings.TrimSpace(block) != "" {
			system = append(system, block)
		}
	}
	if req.ResponseSchema != nil {
		schemaJSON, err := json.Marshal(req.ResponseSchema)
		if err != nil {
			return LLMResponse{}, fmt.Errorf("conversation: marshal response schema: %w", err)
		}
		system = append(system, "Respond with a single JSON object matching this JSON schema:\n"+string(schemaJSON))
	}

	messages := make([]openai.ChatCompletionMessage, 0, len(req.Messages)+1)
	if len(system) > 0 {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: strings.Join(system, "\n\n"),
		})
	}
	for _, msg := range req.Messages {
		content := strings.TrimSpace(msg.Content)
		switch msg.Role {
		case ChatRoleSystem:
			if content != "" {
				messages = append(messages, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleSystem, Content: content})
			}
		case ChatRoleUser:
			if msg.Image != nil {
				if content == "" {
					content = imageOnlyPrompt
				}
				messages = append(messages, openai.ChatCompletionMessage{
					Role: openai.ChatMessageRoleUser,
					MultiContent: []openai.ChatMessagePart{
						{Type: openai.ChatMessagePartTypeText, Text: content},
						{Type: openai.ChatMessagePartTypeImageURL, ImageURL: &openai.ChatMessageImageURL{URL: imageDataURL(msg.Image)}},
					},
				})
				continue
			}
			if content != "" {
				messages = append(messages, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: content})
			}
		case ChatRoleAssistant:
			if content != "" {
				messages = append(messages, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleAssistant, Content: content})
			}
		default:
			return LLMResponse{}, fmt.Errorf("conversation: unsupported role %q", msg.Role)
		}
	}

	call := openai.ChatCompletionRequest{
		Model:    model,
		Messages: messages,
	}
	if req.Temperature >= 0 {
		call.Temperature = req.Temperature
	}
	if req.TopP > 0 {
		call.TopP = req.TopP
	}
	if req.MaxTokens > 0 {
		call.MaxTokens = int(req.MaxTokens)
	}
	if req.ResponseSchema != nil {
		call.ResponseFormat = &openai.ChatCompletionResponseFormat{Type: openai.ChatCompletionResponseFormatTypeJSONObject}
	}

	resp, err := c.api.CreateChatCompletion(ctx, call)
	if err != nil {
		return LLMResponse{}, fmt.Errorf("conversation: openai completion failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return LLMResponse{}, errors.New("conversation: openai returned no choices")
	}

	choice := resp.Choices[0]
	return LLMResponse{
		Text:       strings.TrimSpace(choice.Message.Content),
		StopReason: string(choice.FinishReason),
		Usage: TokenUsage{
			InputTokens:  int32(resp.Usage.PromptTokens),
			OutputTokens: int32(resp.Usage.CompletionTokens),
			TotalTokens:  int32(resp.Usage.TotalTokens),
		},
	}, nil
}

func imageDataURL(img *InlineImage) string {
	return "data:" + img.MIMEType + ";base64," + base64.StdEncoding.EncodeToString(img.Data)
}
