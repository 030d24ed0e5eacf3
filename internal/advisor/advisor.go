// Package advisor implements the tools the model may call. Every tool reads the
// cached backend records and returns a JSON-serialisable value.
package advisor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/spigell/freelance-advisor/internal/backend"
	"github.com/spigell/freelance-advisor/internal/llm"
	"github.com/spigell/freelance-advisor/internal/logger"
	"github.com/spigell/freelance-advisor/internal/metrics"
	"github.com/spigell/freelance-advisor/internal/record"
)

type ToolName string

const (
	ToolChatAssistant     ToolName = "chat_assistant"
	ToolGetAllJobs        ToolName = "getAllJobs"
	ToolGetAllUsers       ToolName = "getAllUsers"
	ToolRecommendBySkills ToolName = "recommend_jobs_by_skills"
	ToolBudgetAdvice      ToolName = "budget_advice"
	ToolFindTalent        ToolName = "find_talent"
	ToolProposalTemplate  ToolName = "proposal_template"
	ToolProjectReminders  ToolName = "get_project_reminders"
	ToolFinancialSummary  ToolName = "get_financial_summary"
	ToolJobRecommendation ToolName = "jobRecommendation"
)

// Handler runs one tool. A *DomainError result is reported to the model as a
// regular answer; any other error means the tool itself failed.
type Handler func(ctx context.Context, args map[string]any) (any, error)

// Source returns the current records of a resource. *cache.Cache implements it.
type Source interface {
	GetOrFetch(ctx context.Context, resource string) ([]record.Record, error)
}

// Call is a tool invocation requested by the model.
type Call struct {
	ID        string
	Name      string
	Arguments map[string]any
}

// Result is the tool message fed back to the model. Content is always valid JSON.
type Result struct {
	CallID  string
	Name    string
	Content string
	// Err is the failure behind an error Content, kept for logging.
	Err error
}

type Toolset struct {
	source    Source
	completer llm.Completer
	catalogue *Catalogue
	handlers  map[ToolName]Handler

	now     func() time.Time
	logger  *zap.Logger
	metrics *metrics.Collector
}

// New wires every tool of the catalogue to its handler. completer backs the chat
// assistant sub-operations and may be nil when that tool is not needed.
func New(source Source, completer llm.Completer, log *zap.Logger, m *metrics.Collector) (*Toolset, error) {
	catalogue, err := LoadCatalogue()
	if err != nil {
		return nil, err
	}

	t := &Toolset{
		source:    source,
		completer: completer,
		catalogue: catalogue,
		now:       time.Now,
		logger:    logger.WithFields(log, zap.String("component", "advisor")),
		metrics:   m,
	}

	t.handlers = map[ToolName]Handler{
		ToolChatAssistant:     t.chatAssistant,
		ToolGetAllJobs:        t.getAllJobs,
		ToolGetAllUsers:       t.getAllUsers,
		ToolRecommendBySkills: t.recommendJobsBySkills,
		ToolBudgetAdvice:      t.budgetAdvice,
		ToolFindTalent:        t.findTalent,
		ToolProposalTemplate:  t.proposalTemplate,
		ToolProjectReminders:  t.projectReminders,
		ToolFinancialSummary:  t.financialSummary,
		ToolJobRecommendation: t.jobRecommendation,
	}

	for _, name := range catalogue.Names() {
		if _, ok := t.handlers[name]; !ok {
			return nil, fmt.Errorf("tool %q is declared but has no handler", name)
		}
	}

	return t, nil
}

func (t *Toolset) Catalogue() *Catalogue {
	return t.catalogue
}

// OpenAITools returns the tool definitions offered to the model.
func (t *Toolset) OpenAITools() []openai.Tool {
	return t.catalogue.OpenAITools()
}

// Names lists the tools with a handler, sorted.
func (t *Toolset) Names() []ToolName {
	out := make([]ToolName, 0, len(t.handlers))
	for name := range t.handlers {
		out = append(out, name)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Execute runs one call and renders its outcome. It never fails: unknown tools,
// invalid arguments and tool errors all become an {"error": ...} document.
func (t *Toolset) Execute(ctx context.Context, call Call) Result {
	log := t.logger.With(logger.ToolFields(call.Name, call.ID)...)
	res := Result{CallID: call.ID, Name: call.Name}

	value, err := t.run(ctx, call)
	outcome := "ok"

	var domainErr *DomainError
	switch {
	case err == nil:
	case errors.As(err, &domainErr):
		outcome = "domain_error"
		log.Info("tool reported a domain error", zap.String("reason", domainErr.Message))
		value = errorDocument(domainErr.Message)
	default:
		outcome = "error"
		log.Warn("tool execution failed", zap.Error(err))
		value = errorDocument(fmt.Sprintf("Tool execution failed: %v", err))
	}
	res.Err = err

	label := call.Name
	if _, known := t.handlers[ToolName(call.Name)]; !known {
		label = "unknown"
	}
	t.metrics.ToolCall(label, outcome)

	content, mErr := json.Marshal(value)
	if mErr != nil {
		log.Error("failed to encode tool result", zap.Error(mErr))
		content, _ = json.Marshal(errorDocument(fmt.Sprintf("Tool execution failed: encode result: %v", mErr)))
		if res.Err == nil {
			res.Err = mErr
		}
	}
	res.Content = string(content)

	log.Debug("tool executed",
		zap.String("outcome", outcome),
		zap.String("result_preview", logger.TruncateForLog(res.Content, 250)),
	)

	return res
}

func (t *Toolset) run(ctx context.Context, call Call) (any, error) {
	name := ToolName(call.Name)
	handler, ok := t.handlers[name]
	if !ok {
		return nil, &ToolDispatchError{Name: call.Name}
	}

	args := call.Arguments
	if args == nil {
		args = map[string]any{}
	}
	if err := t.catalogue.Validate(name, args); err != nil {
		return nil, err
	}

	return handler(ctx, args)
}

// ChatAssistant runs the chat assistant tool directly, bypassing the model.
func (t *Toolset) ChatAssistant(ctx context.Context, args map[string]any) (any, error) {
	return t.chatAssistant(ctx, args)
}

func (t *Toolset) jobs(ctx context.Context) ([]record.Record, error) {
	return t.source.GetOrFetch(ctx, backend.ResourceJobs)
}

func (t *Toolset) users(ctx context.Context) ([]record.Record, error) {
	return t.source.GetOrFetch(ctx, backend.ResourceUsers)
}

func errorDocument(msg string) map[string]string {
	return map[string]string{"error": msg}
}
