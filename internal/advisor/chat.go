package advisor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"unicode"

	"go.uber.org/zap"

	"github.com/spigell/freelance-advisor/internal/llm"
	"github.com/spigell/freelance-advisor/internal/record"
)

// Assistance types accepted by the chat assistant.
const (
	AssistSuggestReply            = "suggest_reply"
	AssistTranslate               = "translate"
	AssistOptimizeTone            = "optimize_tone"
	AssistExplainTechnical        = "explain_technical"
	AssistPreventMisunderstanding = "prevent_misunderstanding"
)

const (
	Formal  = "formal"
	Neutral = "neutral"
	Casual  = "casual"
)

const (
	replyHistoryWindow   = 10
	reviewHistoryWindow  = 5
	maxSuggestions       = 3
	suggestionPreviewLen = 30
	maxTopics            = 5
	topicCandidates      = 10
)

type ChatMessage struct {
	SenderID    string `json:"sender_id"`
	Message     string `json:"message"`
	Timestamp   string `json:"timestamp"`
	IsRead      bool   `json:"is_read"`
	MessageType string `json:"message_type"`
}

type JobContext struct {
	JobID     string `json:"job_id"`
	JobName   string `json:"job_name"`
	JobStatus string `json:"job_status"`
	Deadline  string `json:"deadline"`
	ClientID  string `json:"client_id"`
}

type chatArgs struct {
	ChatHistory    []ChatMessage `json:"chat_history"`
	CurrentDraft   string        `json:"current_draft"`
	UserID         string        `json:"user_id"`
	RecipientID    string        `json:"recipient_id"`
	JobContext     *JobContext   `json:"job_context"`
	AssistanceType string        `json:"assistance_type"`
	SourceLanguage string        `json:"source_language"`
	TargetLanguage string        `json:"target_language"`
}

// Suggestion is one proposed message shown to the user.
type Suggestion struct {
	Preview  string `json:"preview"`
	Text     string `json:"text"`
	Original string `json:"original,omitempty"`
}

func (t *Toolset) chatAssistant(ctx context.Context, raw map[string]any) (any, error) {
	var args chatArgs
	if err := decodeArgs(raw, &args); err != nil {
		return nil, err
	}
	if args.AssistanceType == "" {
		args.AssistanceType = AssistSuggestReply
	}
	if args.SourceLanguage == "" {
		args.SourceLanguage = "auto"
	}
	if args.TargetLanguage == "" {
		args.TargetLanguage = "en"
	}

	log := t.logger.With(
		zap.String("assistance_type", args.AssistanceType),
		zap.Int("history_length", len(args.ChatHistory)),
	)

	users, err := t.users(ctx)
	if err != nil {
		log.Warn("chat assistant could not load users", zap.Error(err))
		return errorDocument(fmt.Sprintf("Error processing chat assistant request: %v", err)), nil
	}
	user, _ := record.FindByID(users, args.UserID)
	recipient, _ := record.FindByID(users, args.RecipientID)

	analysis := AnalyzeConversation(args.ChatHistory)
	brief := conversationBrief(user, recipient, args.UserID, args.JobContext, analysis)

	switch args.AssistanceType {
	case AssistSuggestReply:
		return t.suggestReplies(ctx, log, args.ChatHistory, args.CurrentDraft, user, brief), nil
	case AssistTranslate:
		return t.translate(ctx, log, args.CurrentDraft, args.SourceLanguage, args.TargetLanguage), nil
	case AssistOptimizeTone:
		tone := analysis.Formality
		if tone == "" {
			tone = Neutral
		}
		return t.optimizeTone(ctx, log, args.CurrentDraft, tone), nil
	case AssistExplainTechnical:
		return t.explainTechnical(ctx, log, args.CurrentDraft), nil
	case AssistPreventMisunderstanding:
		return t.preventMisunderstanding(ctx, log, args.CurrentDraft, args.ChatHistory), nil
	default:
		return errorDocument("Unknown assistance type: " + args.AssistanceType), nil
	}
}

// Conversation summarises a chat history for the assistant prompt. It is zero
// for an empty history.
type Conversation struct {
	Languages []string
	Formality string
	Topics    []string
}

func AnalyzeConversation(history []ChatMessage) Conversation {
	if len(history) == 0 {
		return Conversation{}
	}
	return Conversation{
		Languages: DetectLanguages(history),
		Formality: AnalyzeFormality(history),
		Topics:    ExtractTopics(history),
	}
}

func conversationBrief(user, recipient record.Record, userID string, job *JobContext, conv Conversation) string {
	var lines []string

	if user != nil && recipient != nil && job != nil {
		userRole, recipientRole := "freelancer", "client"
		if job.ClientID == userID {
			userRole, recipientRole = "client", "freelancer"
		}
		lines = append(lines,
			fmt.Sprintf("You are assisting %s who is the %s.", nameOr(user, "a user"), userRole),
			fmt.Sprintf("They are talking to %s who is the %s.", nameOr(recipient, "another user"), recipientRole),
		)
	}

	if job != nil {
		lines = append(lines,
			fmt.Sprintf("They are discussing a job: %s.", job.JobName),
			fmt.Sprintf("The job status is %s.", job.JobStatus),
		)
		if job.Deadline != "" {
			lines = append(lines, fmt.Sprintf("The deadline is %s.", job.Deadline))
		}
	}

	if conv.Formality != "" {
		if len(conv.Languages) > 0 {
			lines = append(lines, fmt.Sprintf("The conversation is primarily in %s.", conv.Languages[0]))
		}
		lines = append(lines, fmt.Sprintf("The conversation tone is %s.", conv.Formality))
		if len(conv.Topics) > 0 {
			lines = append(lines, fmt.Sprintf("Main topics discussed: %s.", strings.Join(conv.Topics, ", ")))
		}
	}

	return strings.Join(lines, "\n")
}

func nameOr(user record.Record, def string) string {
	if name := user.Username(); name != "" {
		return name
	}
	return def
}

var languageMarkers = []struct {
	name    string
	markers []string
}{
	{"English", []string{"the", "is", "and", "to", "of", "a", "in", "that", "have", "for"}},
	{"Indonesian", []string{"yang", "dan", "ini", "itu", "dengan", "untuk", "tidak", "akan", "pada", "saya"}},
	{"Spanish", []string{"el", "la", "de", "que", "y", "en", "un", "ser", "se", "no"}},
	{"French", []string{"le", "la", "de", "et", "un", "être", "que", "à", "avoir", "ne"}},
}

// DetectLanguages counts marker words per language and returns the languages
// seen, most frequent first.
func DetectLanguages(history []ChatMessage) []string {
	counts := make([]int, len(languageMarkers))
	for _, msg := range history {
		for _, word := range strings.Fields(strings.ToLower(msg.Message)) {
			for i, lang := range languageMarkers {
				for _, m := range lang.markers {
					if word == m {
						counts[i]++
					}
				}
			}
		}
	}

	order := make([]int, len(languageMarkers))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool { return counts[order[a]] > counts[order[b]] })

	var out []string
	for _, i := range order {
		if counts[i] > 0 {
			out = append(out, languageMarkers[i].name)
		}
	}
	return out
}

var (
	formalMarkers = []string{"would", "could", "may", "kindly", "please", "thank you", "regards", "sincerely", "dear"}
	casualMarkers = []string{"hey", "hi", "yeah", "cool", "sure", "ok", "lol", "haha", "btw", "gonna", "wanna"}
)

// AnalyzeFormality compares how many messages contain formal and casual markers.
// Markers match anywhere in a message, so "hi" also counts inside "this".
func AnalyzeFormality(history []ChatMessage) string {
	var formal, casual int
	for _, msg := range history {
		text := strings.ToLower(msg.Message)
		for _, m := range formalMarkers {
			if strings.Contains(text, m) {
				formal++
			}
		}
		for _, m := range casualMarkers {
			if strings.Contains(text, m) {
				casual++
			}
		}
	}

	switch {
	case formal > casual*2:
		return Formal
	case casual > formal*2:
		return Casual
	default:
		return Neutral
	}
}

var topicStopwords = map[string]struct{}{
	"the": {}, "and": {}, "to": {}, "of": {}, "a": {}, "in": {}, "is": {}, "that": {}, "it": {}, "for": {},
	"yang": {}, "dan": {}, "ini": {}, "itu": {}, "dengan": {}, "untuk": {}, "tidak": {}, "akan": {},
}

// ExtractTopics returns up to five frequent words of the conversation. Only the
// ten most frequent words are considered; stopwords and words of three letters
// or fewer are dropped from those.
func ExtractTopics(history []ChatMessage) []string {
	counts := make(map[string]int)
	var order []string
	for _, msg := range history {
		for _, word := range strings.Fields(strings.ToLower(msg.Message)) {
			if _, seen := counts[word]; !seen {
				order = append(order, word)
			}
			counts[word]++
		}
	}

	sort.SliceStable(order, func(a, b int) bool { return counts[order[a]] > counts[order[b]] })
	if len(order) > topicCandidates {
		order = order[:topicCandidates]
	}

	var topics []string
	for _, word := range order {
		if _, stop := topicStopwords[word]; stop || len([]rune(word)) <= 3 {
			continue
		}
		topics = append(topics, word)
		if len(topics) == maxTopics {
			break
		}
	}
	return topics
}

const suggestInstruction = "Please suggest 3 different ways I could respond or complete my message. " +
	"Vary the tone and approach. Make each suggestion brief and to the point. " +
	"Do NOT include labels or descriptions in your suggestions."

func suggestSystemPrompt(brief string) string {
	return "You are an AI assistant helping with communication between a freelancer and client.\n" +
		brief + "\n" +
		"Your task is to suggest helpful, professional, and contextually appropriate responses.\n" +
		"Generate 3 different response options with varying tones and approaches.\n" +
		"Keep suggestions concise, helpful, and professional.\n" +
		"IMPORTANT: Do NOT include labels, notes, or descriptions in your suggestions like \"(Direct Approach)\" or \"(Formal Style)\".\n" +
		"Only include the actual message content that the user would send.\n"
}

func (t *Toolset) suggestReplies(ctx context.Context, log *zap.Logger, history []ChatMessage, draft string, user record.Record, brief string) []Suggestion {
	if len(history) > replyHistoryWindow {
		history = history[len(history)-replyHistoryWindow:]
	}

	userID := ""
	if user != nil {
		userID = user.ID()
	}

	messages := make([]llm.Message, 0, len(history)+2)
	for _, msg := range history {
		role := llm.RoleAssistant
		if userID != "" && msg.SenderID == userID {
			role = llm.RoleUser
		}
		messages = append(messages, llm.Message{Role: role, Content: msg.Message})
	}
	if draft != "" {
		messages = append(messages, llm.Message{Role: llm.RoleUser, Content: "I'm drafting this message: " + draft})
	}
	messages = append(messages, llm.Message{Role: llm.RoleUser, Content: suggestInstruction})

	text, err := t.complete(ctx, llm.CompletionRequest{
		System:      suggestSystemPrompt(brief),
		Messages:    messages,
		Temperature: 0.7,
	})
	if err != nil {
		log.Warn("failed to generate reply suggestions", zap.Error(err))
		return []Suggestion{{Preview: "Error generating suggestions", Text: "Sorry, I couldn't generate suggestions at this time."}}
	}

	return FormatSuggestions(ParseSuggestions(text))
}

var numberedItemRe = regexp.MustCompile(`^\s*\d+\.\s*(.*)$`)

// ParseSuggestions splits a model answer into at most three suggestions. A
// numbered list wins when it has at least two items, then blank-line separated
// paragraphs, then the whole answer.
func ParseSuggestions(text string) []string {
	var items []string
	current := -1
	for _, line := range strings.Split(text, "\n") {
		if m := numberedItemRe.FindStringSubmatch(line); m != nil && m[1] != "" {
			items = append(items, m[1])
			current = len(items) - 1
			continue
		}
		if strings.TrimSpace(line) == "" {
			current = -1
			continue
		}
		if current >= 0 {
			items[current] += "\n" + line
		}
	}
	if len(items) >= 2 {
		return capSuggestions(items)
	}

	if parts := strings.Split(text, "\n\n"); len(parts) >= 2 {
		return capSuggestions(parts)
	}

	return []string{text}
}

func capSuggestions(items []string) []string {
	if len(items) > maxSuggestions {
		return items[:maxSuggestions]
	}
	return items
}

var (
	suggestionLabelRe = regexp.MustCompile(`^(Option \d+: |\d+\.\s+)`)
	parentheticalRe   = regexp.MustCompile(`\([^)]*\)\*?\*?`)
	boldRe            = regexp.MustCompile(`\*\*[^*]*\*\*`)
)

// CleanSuggestion strips list labels, parenthesised notes and bold labels.
func CleanSuggestion(s string) string {
	s = suggestionLabelRe.ReplaceAllString(s, "")
	s = parentheticalRe.ReplaceAllString(s, "")
	s = boldRe.ReplaceAllString(s, "")
	return strings.TrimSpace(s)
}

// FormatSuggestions cleans suggestions and attaches a preview. Suggestions that
// clean to nothing are dropped but keep their option number.
func FormatSuggestions(raw []string) []Suggestion {
	out := make([]Suggestion, 0, len(raw))
	for i, s := range capSuggestions(raw) {
		text := CleanSuggestion(s)
		if text == "" {
			continue
		}
		out = append(out, Suggestion{
			Preview: fmt.Sprintf("Opsi %d: %s", i+1, suggestionPreview(text)),
			Text:    text,
		})
	}
	return out
}

func suggestionPreview(text string) string {
	if len([]rune(text)) <= suggestionPreviewLen {
		return text
	}
	first := []rune(strings.SplitN(text, "\n", 2)[0])
	if len(first) > suggestionPreviewLen {
		first = first[:suggestionPreviewLen]
	}
	return string(first) + "..."
}

func (t *Toolset) translate(ctx context.Context, log *zap.Logger, draft, source, target string) []Suggestion {
	text, err := t.complete(ctx, llm.CompletionRequest{
		System: fmt.Sprintf("You are a professional translator. Translate the following text from %s to %s. "+
			"Maintain the tone and meaning of the original text.", source, target),
		Messages:    []llm.Message{{Role: llm.RoleUser, Content: draft}},
		Temperature: 0.3,
	})
	if err != nil {
		log.Warn("failed to translate message", zap.Error(err))
		return []Suggestion{{Preview: "Error translating", Text: "Sorry, I couldn't translate this message."}}
	}

	return []Suggestion{{
		Preview:  "Translation to " + target,
		Text:     strings.TrimSpace(text),
		Original: draft,
	}}
}

func (t *Toolset) optimizeTone(ctx context.Context, log *zap.Logger, draft, tone string) []Suggestion {
	text, err := t.complete(ctx, llm.CompletionRequest{
		System: fmt.Sprintf("You are a communication expert. Rewrite the following message to make it more %s in tone. "+
			"Maintain the core message and meaning.", tone),
		Messages:    []llm.Message{{Role: llm.RoleUser, Content: draft}},
		Temperature: 0.5,
	})
	if err != nil {
		log.Warn("failed to optimize message tone", zap.Error(err))
		return []Suggestion{{Preview: "Error optimizing tone", Text: "Sorry, I couldn't optimize this message."}}
	}

	return []Suggestion{{
		Preview:  capitalize(tone) + " version",
		Text:     strings.TrimSpace(text),
		Original: draft,
	}}
}

func (t *Toolset) explainTechnical(ctx context.Context, log *zap.Logger, draft string) any {
	text, err := t.complete(ctx, llm.CompletionRequest{
		System: "You are a technical expert. Identify technical terms in the following message and provide simple " +
			"explanations for each term. Format your response as a JSON object with term as key and explanation as value.",
		Messages:    []llm.Message{{Role: llm.RoleUser, Content: draft}},
		Temperature: 0.3,
	})
	if err != nil {
		log.Warn("failed to explain technical terms", zap.Error(err))
		return errorDocument("Sorry, I couldn't explain the technical terms.")
	}

	if explanations, err := llm.ParseObject(text); err == nil {
		return map[string]any{"message": draft, "explanations": explanations}
	}
	return map[string]any{"message": draft, "explanation": text}
}

func (t *Toolset) preventMisunderstanding(ctx context.Context, log *zap.Logger, draft string, history []ChatMessage) any {
	if len(history) > reviewHistoryWindow {
		history = history[len(history)-reviewHistoryWindow:]
	}
	lines := make([]string, 0, len(history))
	for _, msg := range history {
		lines = append(lines, "Message: "+msg.Message)
	}

	text, err := t.complete(ctx, llm.CompletionRequest{
		System: "You are a communication expert. Review the draft message in the context of the conversation history " +
			"and identify any potential misunderstandings, ambiguities, or phrases that could be interpreted negatively. " +
			"Suggest clearer alternatives.",
		Messages: []llm.Message{{
			Role:    llm.RoleUser,
			Content: fmt.Sprintf("Conversation history:\n%s\n\nDraft message:\n%s", strings.Join(lines, "\n"), draft),
		}},
		Temperature: 0.3,
	})
	if err != nil {
		log.Warn("failed to review message for misunderstandings", zap.Error(err))
		return errorDocument("Sorry, I couldn't analyze for potential misunderstandings.")
	}

	return map[string]any{"message": draft, "analysis": text}
}

var errNoCompleter = errors.New("no language model configured for the chat assistant")

func (t *Toolset) complete(ctx context.Context, req llm.CompletionRequest) (string, error) {
	if t.completer == nil {
		return "", errNoCompleter
	}
	return t.completer.Complete(ctx, req)
}

func capitalize(s string) string {
	r := []rune(strings.ToLower(s))
	if len(r) == 0 {
		return s
	}
	r[0] = unicode.ToUpper(r[0])
	return string(r)
}

// chatAction is the shape of a query that asks for the chat assistant directly.
type chatAction struct {
	Action string `json:"action"`
}

// ParseChatAction reports whether query is a JSON object naming the chat
// assistant as its action, returning the object as tool arguments.
func ParseChatAction(query string) (map[string]any, bool) {
	trimmed := strings.TrimSpace(query)
	if !strings.HasPrefix(trimmed, "{") {
		return nil, false
	}

	var action chatAction
	if err := json.Unmarshal([]byte(trimmed), &action); err != nil || action.Action != string(ToolChatAssistant) {
		return nil, false
	}

	args, err := record.DecodeObject([]byte(trimmed))
	if err != nil {
		return nil, false
	}
	return args, true
}
