// Package llm holds the chat-completion plumbing shared by the orchestrator and
// the chat assistant tool.
package llm

import (
	"context"
	"time"

	openai "github.com/sashabaranov/go-openai"
)

const (
	ProviderOpenAI = "openai"
	ProviderGemini = "gemini"

	DefaultBaseURL   = "https://api.asi1.ai/v1"
	DefaultModel     = "asi1-mini"
	DefaultMaxTokens = 1024
	DefaultTimeout   = 60 * time.Second
)

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

type Message struct {
	Role    Role
	Content string
}

// CompletionRequest is a plain text completion: no tools, one answer.
type CompletionRequest struct {
	System      string
	Messages    []Message
	Temperature float32
	MaxTokens   int
}

// Completer produces one text answer for a prompt. The chat assistant
// sub-operations depend only on this.
type Completer interface {
	Complete(ctx context.Context, req CompletionRequest) (string, error)
}

// ChatClient is the part of the OpenAI-compatible client the tool-calling loop
// needs. *openai.Client satisfies it.
type ChatClient interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

type Config struct {
	// Provider backs the chat assistant sub-operations. Tool calling always goes
	// through the OpenAI-compatible endpoint.
	Provider      string        `mapstructure:"provider" validate:"omitempty,oneof=openai gemini"`
	BaseURL       string        `mapstructure:"base-url" validate:"omitempty,url"`
	Model         string        `mapstructure:"model"`
	APIKey        string        `mapstructure:"api-key"`
	APIKeyFile    string        `mapstructure:"api-key-file"`
	Timeout       time.Duration `mapstructure:"timeout" validate:"gte=0"`
	MaxTokens     int           `mapstructure:"max-tokens" validate:"gte=0"`
	ParallelTools int           `mapstructure:"parallel-tools" validate:"gte=0"`
	Gemini        GeminiConfig  `mapstructure:"gemini"`
}

type GeminiConfig struct {
	Model      string `mapstructure:"model"`
	APIKey     string `mapstructure:"api-key"`
	APIKeyFile string `mapstructure:"api-key-file"`
	MaxRetries int    `mapstructure:"max-retries" validate:"gte=0"`
}
