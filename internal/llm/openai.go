package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"unicode/utf8"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/spigell/freelance-advisor/internal/logger"
)

const maxLogLength = 200

// NewOpenAIClient builds a client for any OpenAI-compatible endpoint.
func NewOpenAIClient(apiKey string, cfg Config) *openai.Client {
	conf := openai.DefaultConfig(strings.TrimSpace(apiKey))
	baseURL := strings.TrimSpace(cfg.BaseURL)
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	conf.BaseURL = strings.TrimRight(baseURL, "/")

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	conf.HTTPClient = &http.Client{Timeout: timeout}

	return openai.NewClientWithConfig(conf)
}

// OpenAICompleter runs plain completions through a ChatClient.
type OpenAICompleter struct {
	client    ChatClient
	model     string
	maxTokens int
	logger    *zap.Logger
}

func NewOpenAICompleter(client ChatClient, model string, maxTokens int, log *zap.Logger) *OpenAICompleter {
	if model = strings.TrimSpace(model); model == "" {
		model = DefaultModel
	}
	if maxTokens <= 0 {
		maxTokens = DefaultMaxTokens
	}

	return &OpenAICompleter{
		client:    client,
		model:     model,
		maxTokens: maxTokens,
		logger:    logger.WithCommonFields(log, ProviderOpenAI, model),
	}
}

func (c *OpenAICompleter) Complete(ctx context.Context, req CompletionRequest) (string, error) {
	if c == nil || c.client == nil {
		return "", errors.New("openai completer is not initialized")
	}

	messages := make([]openai.ChatCompletionMessage, 0, len(req.Messages)+1)
	if system := strings.TrimSpace(req.System); system != "" {
		messages = append(messages, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleSystem, Content: system})
	}
	for _, m := range req.Messages {
		messages = append(messages, openai.ChatCompletionMessage{Role: string(m.Role), Content: m.Content})
	}
	if len(messages) == 0 {
		return "", errors.New("prompt must not be empty")
	}

	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = c.maxTokens
	}

	c.logger.Debug("chat completion request",
		zap.Int("messages", len(messages)),
		zap.Float32("temperature", req.Temperature),
	)

	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       c.model,
		Messages:    messages,
		Temperature: req.Temperature,
		MaxTokens:   maxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}

	if len(resp.Choices) == 0 {
		return "", errors.New("chat completion returned no choices")
	}

	output := strings.TrimSpace(resp.Choices[0].Message.Content)
	if output == "" {
		return "", errors.New("chat completion returned empty content")
	}

	c.logger.Debug("chat completion response",
		zap.Int("response_length", utf8.RuneCountInString(output)),
		zap.String("response_preview", logger.TruncateForLog(output, maxLogLength)),
	)

	return output, nil
}

func (c *OpenAICompleter) Model() string {
	if c == nil {
		return ""
	}
	return c.model
}
