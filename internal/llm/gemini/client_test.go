package gemini

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"
	"google.golang.org/genai"

	"github.com/spigell/freelance-advisor/internal/llm"
)

type generateCall struct {
	model    string
	contents []*genai.Content
	config   *genai.GenerateContentConfig
}

type fakeResponse struct {
	resp *genai.GenerateContentResponse
	err  error
}

type fakeModels struct {
	mu    sync.Mutex
	calls []generateCall
	queue []fakeResponse
}

func (f *fakeModels) enqueue(resp *genai.GenerateContentResponse, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queue = append(f.queue, fakeResponse{resp: resp, err: err})
}

func (f *fakeModels) GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, generateCall{model: model, contents: contents, config: config})
	if len(f.queue) == 0 {
		return nil, errors.New("unexpected call")
	}
	res := f.queue[0]
	f.queue = f.queue[1:]
	return res.resp, res.err
}

func textResponse(parts ...string) *genai.GenerateContentResponse {
	content := &genai.Content{}
	for _, p := range parts {
		content.Parts = append(content.Parts, &genai.Part{Text: p})
	}
	return &genai.GenerateContentResponse{Candidates: []*genai.Candidate{{Content: content}}}
}

func noWait(t *testing.T) *[]time.Duration {
	t.Helper()
	var waits []time.Duration
	original := wait
	wait = func(_ context.Context, d time.Duration) error {
		waits = append(waits, d)
		return nil
	}
	t.Cleanup(func() { wait = original })
	return &waits
}

func prompt() llm.CompletionRequest {
	return llm.CompletionRequest{
		System:      "system",
		Temperature: 0.3,
		Messages: []llm.Message{
			{Role: llm.RoleUser, Content: "hello"},
			{Role: llm.RoleAssistant, Content: "hi"},
			{Role: llm.RoleUser, Content: "translate this"},
		},
	}
}

func TestCompleterRetriesOnTemporaryError(t *testing.T) {
	waits := noWait(t)

	models := &fakeModels{}
	models.enqueue(nil, genai.APIError{Code: http.StatusInternalServerError, Status: "INTERNAL"})
	models.enqueue(textResponse("retry", "ok"), nil)

	c := &Completer{models: models, model: "gemini-pro", maxRetries: 2, logger: zap.NewNop()}

	output, err := c.Complete(context.Background(), prompt())
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if output != "retry\nok" {
		t.Fatalf("unexpected output: %q", output)
	}
	if len(models.calls) != 2 {
		t.Fatalf("expected 2 calls, got %d", len(models.calls))
	}
	if len(*waits) != 1 || (*waits)[0] != baseBackoff {
		t.Fatalf("unexpected waits: %v", *waits)
	}

	call := models.calls[0]
	if call.config == nil || call.config.SystemInstruction == nil {
		t.Fatalf("expected system instruction to be set")
	}
	if got := call.config.SystemInstruction.Parts[0].Text; got != "system" {
		t.Fatalf("unexpected system instruction: %q", got)
	}
	if call.config.Temperature == nil || *call.config.Temperature != 0.3 {
		t.Fatalf("unexpected temperature: %v", call.config.Temperature)
	}
	if len(call.contents) != 3 {
		t.Fatalf("expected 3 contents, got %d", len(call.contents))
	}
	if call.contents[1].Role != genai.RoleModel {
		t.Fatalf("expected assistant turn to map to model role, got %q", call.contents[1].Role)
	}
}

func TestCompleterStopsAfterRetriesExhausted(t *testing.T) {
	noWait(t)

	models := &fakeModels{}
	tempErr := genai.APIError{Code: http.StatusServiceUnavailable, Status: "UNAVAILABLE"}
	models.enqueue(nil, tempErr)
	models.enqueue(nil, tempErr)

	c := &Completer{models: models, model: "gemini-pro", maxRetries: 2, logger: zap.NewNop()}

	_, err := c.Complete(context.Background(), prompt())
	if err == nil {
		t.Fatal("expected error after retries exhausted")
	}
	if len(models.calls) != 2 {
		t.Fatalf("expected 2 calls, got %d", len(models.calls))
	}
}

func TestCompleterDoesNotRetryOnLongQuotaDelay(t *testing.T) {
	waits := noWait(t)

	models := &fakeModels{}
	models.enqueue(nil, genai.APIError{
		Code:    http.StatusTooManyRequests,
		Status:  "RESOURCE_EXHAUSTED",
		Message: "quota exhausted, retry after 60 seconds",
	})

	c := &Completer{models: models, model: "gemini-pro", maxRetries: 3, logger: zap.NewNop()}

	if _, err := c.Complete(context.Background(), prompt()); err == nil {
		t.Fatal("expected error when quota delay too long")
	}
	if len(models.calls) != 1 {
		t.Fatalf("expected single call, got %d", len(models.calls))
	}
	if len(*waits) != 0 {
		t.Fatalf("expected no waits, got %v", *waits)
	}
}

func TestCompleterDoesNotRetryClientErrors(t *testing.T) {
	noWait(t)

	models := &fakeModels{}
	models.enqueue(nil, genai.APIError{Code: http.StatusBadRequest, Status: "INVALID_ARGUMENT"})

	c := &Completer{models: models, model: "gemini-pro", maxRetries: 3, logger: zap.NewNop()}

	if _, err := c.Complete(context.Background(), prompt()); err == nil {
		t.Fatal("expected error")
	}
	if len(models.calls) != 1 {
		t.Fatalf("expected single call, got %d", len(models.calls))
	}
}

func TestCompleterRejectsEmptyOutput(t *testing.T) {
	models := &fakeModels{}
	models.enqueue(textResponse("  "), nil)

	c := &Completer{models: models, model: "gemini-pro", maxRetries: 1, logger: zap.NewNop()}

	if _, err := c.Complete(context.Background(), prompt()); err == nil {
		t.Fatal("expected error for empty response")
	}
}

func TestCompleterRejectsEmptyPrompt(t *testing.T) {
	c := &Completer{models: &fakeModels{}, model: "gemini-pro", logger: zap.NewNop()}

	if _, err := c.Complete(context.Background(), llm.CompletionRequest{System: "only system"}); err == nil {
		t.Fatal("expected error for empty prompt")
	}
}

func TestNewRequiresAPIKey(t *testing.T) {
	if _, err := New(context.Background(), " ", "", 0, nil); err == nil {
		t.Fatal("expected error without api key")
	}
}
