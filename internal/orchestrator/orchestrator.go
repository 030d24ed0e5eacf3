// Package orchestrator answers a free-text query by letting the model pick tools,
// running them and asking the model to phrase the final answer.
package orchestrator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/spigell/freelance-advisor/internal/advisor"
	"github.com/spigell/freelance-advisor/internal/llm"
	"github.com/spigell/freelance-advisor/internal/logger"
	"github.com/spigell/freelance-advisor/internal/metrics"
	"github.com/spigell/freelance-advisor/internal/record"
)

const (
	PhaseToolSelection = "tool_selection"
	PhaseFinalAnswer   = "final_answer"

	selectionTemperature = 0.5
	answerTemperature    = 0.6

	// NoToolsAnswer is returned when the model neither calls a tool nor answers.
	NoToolsAnswer = "No function needs to run. Please describe what you need (skills, scope, or a job ID)."

	SystemPrompt = "You are an AI Freelance Assistant and you MUST use the available tools. " +
		"Always use tools for: 1) financial summary - call get_financial_summary, " +
		"2) project reminders - call get_project_reminders, " +
		"3) job recommendations - call jobRecommendation, " +
		"4) searching jobs - call getAllJobs, " +
		"5) finding talent - call find_talent, " +
		"6) chat assistance - call chat_assistant. " +
		"ALWAYS call the tool that matches the user's request!"
)

// Tools is the tool surface the orchestrator drives. *advisor.Toolset implements it.
type Tools interface {
	OpenAITools() []openai.Tool
	Execute(ctx context.Context, call advisor.Call) advisor.Result
	ChatAssistant(ctx context.Context, args map[string]any) (any, error)
}

type Options struct {
	Model     string
	MaxTokens int
	// ParallelTools bounds how many tool calls of one answer run at once.
	ParallelTools int
}

type Orchestrator struct {
	client   llm.ChatClient
	tools    Tools
	model    string
	tokens   int
	parallel int

	logger  *zap.Logger
	metrics *metrics.Collector
}

func New(client llm.ChatClient, tools Tools, opts Options, log *zap.Logger, m *metrics.Collector) *Orchestrator {
	model := strings.TrimSpace(opts.Model)
	if model == "" {
		model = llm.DefaultModel
	}
	tokens := opts.MaxTokens
	if tokens <= 0 {
		tokens = llm.DefaultMaxTokens
	}
	parallel := opts.ParallelTools
	if parallel <= 0 {
		parallel = 1
	}

	return &Orchestrator{
		client:   client,
		tools:    tools,
		model:    model,
		tokens:   tokens,
		parallel: parallel,
		logger:   logger.WithCommonFields(logger.WithFields(log, zap.String("component", "orchestrator")), llm.ProviderOpenAI, model),
		metrics:  m,
	}
}

// Respond is Process for callers that only show text: any failure is rendered
// into the answer.
func (o *Orchestrator) Respond(ctx context.Context, query, userID string) string {
	answer, err := o.Process(ctx, query, userID)
	if err != nil {
		return "An error occurred: " + err.Error()
	}
	return answer
}

// Process answers query on behalf of userID, which may be empty for anonymous
// sessions.
func (o *Orchestrator) Process(ctx context.Context, query, userID string) (string, error) {
	ctx = advisor.WithUserID(ctx, userID)
	log := o.logger.With(zap.Bool("authenticated", userID != ""))
	log.Info("processing query", zap.String("query", logger.TruncateForLog(query, 200)))

	if args, ok := advisor.ParseChatAction(query); ok {
		log.Info("query addresses the chat assistant directly")
		return o.directChat(ctx, args)
	}

	history := []openai.ChatCompletionMessage{
		{Role: openai.ChatMessageRoleSystem, Content: SystemPrompt},
		{Role: openai.ChatMessageRoleUser, Content: query},
	}

	reply, err := o.complete(ctx, PhaseToolSelection, openai.ChatCompletionRequest{
		Model:       o.model,
		Messages:    history,
		Tools:       o.tools.OpenAITools(),
		Temperature: selectionTemperature,
		MaxTokens:   o.tokens,
	})
	if err != nil {
		return "", err
	}

	if len(reply.ToolCalls) == 0 {
		log.Warn("model requested no tool calls")
		if content := strings.TrimSpace(reply.Content); content != "" {
			return content, nil
		}
		return NoToolsAnswer, nil
	}

	log.Info("executing tool calls", zap.Int("count", len(reply.ToolCalls)))
	history = append(history, reply)
	for _, res := range o.runTools(ctx, reply.ToolCalls) {
		history = append(history, openai.ChatCompletionMessage{
			Role:       openai.ChatMessageRoleTool,
			Content:    res.Content,
			ToolCallID: res.CallID,
		})
	}

	final, err := o.complete(ctx, PhaseFinalAnswer, openai.ChatCompletionRequest{
		Model:       o.model,
		Messages:    history,
		Temperature: answerTemperature,
		MaxTokens:   o.tokens,
	})
	if err != nil {
		return "", err
	}

	log.Info("final answer received")
	return final.Content, nil
}

func (o *Orchestrator) complete(ctx context.Context, phase string, req openai.ChatCompletionRequest) (openai.ChatCompletionMessage, error) {
	o.logger.Debug("sending chat completion", zap.String("phase", phase), zap.Int("messages", len(req.Messages)))

	resp, err := o.client.CreateChatCompletion(ctx, req)
	if err != nil {
		o.metrics.LLMRequest(phase, "error")
		return openai.ChatCompletionMessage{}, &UpstreamError{Phase: phase, Err: err}
	}
	if len(resp.Choices) == 0 {
		o.metrics.LLMRequest(phase, "error")
		return openai.ChatCompletionMessage{}, &UpstreamError{Phase: phase, Err: errNoChoices}
	}

	o.metrics.LLMRequest(phase, "ok")
	msg := resp.Choices[0].Message
	o.logger.Debug("chat completion received",
		zap.String("phase", phase),
		zap.Int("tool_calls", len(msg.ToolCalls)),
		zap.String("content_preview", logger.TruncateForLog(msg.Content, 250)),
	)
	return msg, nil
}

// runTools executes calls at most o.parallel at a time. The results keep call
// order; a failing tool never stops the others.
func (o *Orchestrator) runTools(ctx context.Context, calls []openai.ToolCall) []advisor.Result {
	results := make([]advisor.Result, len(calls))

	var g errgroup.Group
	g.SetLimit(o.parallel)
	for i, call := range calls {
		g.Go(func() error {
			results[i] = o.runTool(ctx, call)
			return nil
		})
	}
	_ = g.Wait()

	return results
}

func (o *Orchestrator) runTool(ctx context.Context, call openai.ToolCall) advisor.Result {
	args, err := parseArguments(call.Function.Arguments)
	if err != nil {
		o.logger.Warn("tool call arguments are not a JSON object",
			append(logger.ToolFields(call.Function.Name, call.ID), zap.Error(err))...)
		content, _ := json.Marshal(map[string]string{"error": fmt.Sprintf("Tool execution failed: %v", err)})
		return advisor.Result{CallID: call.ID, Name: call.Function.Name, Content: string(content), Err: err}
	}

	return o.tools.Execute(ctx, advisor.Call{ID: call.ID, Name: call.Function.Name, Arguments: args})
}

func parseArguments(raw string) (map[string]any, error) {
	if strings.TrimSpace(raw) == "" {
		return map[string]any{}, nil
	}
	args, err := record.DecodeObject([]byte(raw))
	if err != nil {
		return nil, fmt.Errorf("decode tool arguments: %w", err)
	}
	if args == nil {
		return map[string]any{}, nil
	}
	return args, nil
}

func (o *Orchestrator) directChat(ctx context.Context, args map[string]any) (string, error) {
	out, err := o.tools.ChatAssistant(ctx, args)
	if err != nil {
		return "", fmt.Errorf("chat assistant: %w", err)
	}
	data, err := json.Marshal(out)
	if err != nil {
		return "", fmt.Errorf("encode chat assistant result: %w", err)
	}
	return string(data), nil
}

var errNoChoices = errors.New("chat completion returned no choices")

// UpstreamError is a failed exchange with the model.
type UpstreamError struct {
	Phase string
	Err   error
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("llm %s request failed: %v", e.Phase, e.Err)
}

func (e *UpstreamError) Unwrap() error {
	return e.Err
}
