package logger

import (
	"strings"

	"go.uber.org/zap"
)

// Field keys shared by every component.
const (
	FieldProvider  = "llm_provider"
	FieldModel     = "llm_model"
	FieldResource  = "resource"
	FieldVerb      = "verb"
	FieldStage     = "stage"
	FieldTool      = "tool"
	FieldCallID    = "call_id"
	FieldRequestID = "request_id"
)

// nonEmpty turns alternating key/value pairs into string fields. Pairs with a
// blank key or value are left out.
func nonEmpty(pairs ...string) []zap.Field {
	out := make([]zap.Field, 0, len(pairs)/2)
	for i := 0; i+1 < len(pairs); i += 2 {
		key, value := strings.TrimSpace(pairs[i]), strings.TrimSpace(pairs[i+1])
		if key == "" || value == "" {
			continue
		}
		out = append(out, zap.String(key, value))
	}
	return out
}

// WithFields attaches fields to log. A nil log becomes a no-op logger.
func WithFields(log *zap.Logger, fields ...zap.Field) *zap.Logger {
	if log == nil {
		log = zap.NewNop()
	}
	if len(fields) == 0 {
		return log
	}
	return log.With(fields...)
}

func CommonFields(provider, model string) []zap.Field {
	return nonEmpty(FieldProvider, provider, FieldModel, model)
}

// WithCommonFields tags log with the LLM provider and model.
func WithCommonFields(log *zap.Logger, provider, model string) *zap.Logger {
	return WithFields(log, CommonFields(provider, model)...)
}

// ToolFields describes a single tool invocation requested by the model.
func ToolFields(tool, callID string) []zap.Field {
	return nonEmpty(FieldTool, tool, FieldCallID, callID)
}

// FetchFields describes one backend attempt. Stage is empty until a decode
// stage has run.
func FetchFields(resource, verb, stage string) []zap.Field {
	return nonEmpty(FieldResource, resource, FieldVerb, verb, FieldStage, stage)
}
