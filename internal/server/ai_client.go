package server

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"babyprep/backend/internal/config"
)

type AIUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

type AIModelRequest struct {
	Model        string
	SystemPrompt string
	UserPrompt   string
	JSONOutput   bool
}

type AIModelResponse struct {
	Answer string
	Model  string
	Usage  AIUsage
}

type AIClient interface {
	Query(ctx context.Context, req AIModelRequest) (AIModelResponse, error)
}

type OpenAIChatClient struct {
	client          *openai.Client
	model           string
	maxOutputTokens int
	timeout         time.Duration
}

// MockAIClient answers with a fixed payload, or Err when set.
type MockAIClient struct {
	Model  string
	Answer string
	Err    error
}

func (m MockAIClient) Query(_ context.Context, req AIModelRequest) (AIModelResponse, error) {
	if m.Err != nil {
		return AIModelResponse{}, m.Err
	}
	answer := m.Answer
	if strings.TrimSpace(answer) == "" {
		answer = "Mock response: " + strings.TrimSpace(req.UserPrompt)
	}
	model := strings.TrimSpace(req.Model)
	if model == "" {
		model = strings.TrimSpace(m.Model)
	}
	if model == "" {
		model = "gpt-4o-mini"
	}
	return AIModelResponse{
		Answer: answer,
		Model:  model,
		Usage:  AIUsage{PromptTokens: 120, CompletionTokens: 80, TotalTokens: 200},
	}, nil
}

func NewOpenAIChatClient(cfg config.Config) *OpenAIChatClient {
	clientConfig := openai.DefaultConfig(strings.TrimSpace(cfg.OpenAIAPIKey))
	if baseURL := strings.TrimRight(strings.TrimSpace(cfg.OpenAIBaseURL), "/"); baseURL != "" {
		clientConfig.BaseURL = baseURL
	}
	return &OpenAIChatClient{
		client:          openai.NewClientWithConfig(clientConfig),
		model:           strings.TrimSpace(cfg.OpenAIModel),
		maxOutputTokens: cfg.AIMaxOutputTokens,
		timeout:         cfg.AITimeout(),
	}
}

func (c *OpenAIChatClient) Query(ctx context.Context, req AIModelRequest) (AIModelResponse, error) {
	model := strings.TrimSpace(req.Model)
	if model == "" {
		model = c.model
	}
	if model == "" {
		return AIModelResponse{}, errors.New("OPENAI_MODEL is not configured")
	}
	userPrompt := strings.TrimSpace(req.UserPrompt)
	if userPrompt == "" {
		return AIModelResponse{}, errors.New("AI request input is empty")
	}

	messages := make([]openai.ChatCompletionMessage, 0, 2)
	if system := strings.TrimSpace(req.SystemPrompt); system != "" {
		messages = append(messages, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleSystem, Content: system})
	}
	messages = append(messages, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: userPrompt})

	request := openai.ChatCompletionRequest{
		Model:       model,
		Messages:    messages,
		MaxTokens:   c.maxOutputTokens,
		Temperature: 0.3,
	}
	if req.JSONOutput {
		request.ResponseFormat = &openai.ChatCompletionResponseFormat{Type: openai.ChatCompletionResponseFormatTypeJSONObject}
	}

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}
	resp, err := c.client.CreateChatCompletion(ctx, request)
	if err != nil {
		return AIModelResponse{}, fmt.Errorf("openai chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return AIModelResponse{}, errors.New("openai response has no choices")
	}
	answer := stripCodeFence(resp.Choices[0].Message.Content)
	if answer == "" {
		return AIModelResponse{}, errors.New("openai response answer is empty")
	}

	modelName := strings.TrimSpace(resp.Model)
	if modelName == "" {
		modelName = model
	}
	return AIModelResponse{
		Answer: answer,
		Model:  modelName,
		Usage: AIUsage{
			PromptTokens:     resp.Usage.PromptTokens,
			CompletionTokens: resp.Usage.CompletionTokens,
			TotalTokens:      resp.Usage.TotalTokens,
		},
	}, nil
}

// stripCodeFence removes a surrounding ``` or ```json fence some models add around JSON.
func stripCodeFence(content string) string {
	trimmed := strings.TrimSpace(content)
	if !strings.HasPrefix(trimmed, "```") {
		return trimmed
	}
	trimmed = strings.TrimPrefix(trimmed, "```")
	trimmed = strings.TrimPrefix(trimmed, "json")
	trimmed = strings.TrimSuffix(strings.TrimSpace(trimmed), "```")
	return strings.TrimSpace(trimmed)
}

func truncateForLog(value string, limit int) string {
	trimmed := strings.TrimSpace(value)
	if limit <= 0 || len(trimmed) <= limit {
		return trimmed
	}
	return trimmed[:limit] + "...(truncated)"
}
