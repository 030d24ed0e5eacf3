package logger

import (
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestNonEmptyDropsBlankPairs(t *testing.T) {
	fields := nonEmpty("  provider  ", "  openai  ", "ignored", "   ", "   ", "empty key", "dangling")

	if len(fields) != 1 {
		t.Fatalf("expected 1 field, got %d", len(fields))
	}

	if fields[0].Key != "provider" || fields[0].String != "openai" {
		t.Fatalf("unexpected provider field: %+v", fields[0])
	}

	if empty := nonEmpty(); len(empty) != 0 {
		t.Fatalf("expected empty fields, got %d", len(empty))
	}
}

func TestWithFieldsAndCommonFields(t *testing.T) {
	core, observed := observer.New(zapcore.InfoLevel)
	base := zap.New(core)

	WithFields(base, zap.String("component", "cache")).Info("plain")
	WithCommonFields(base, "  openai ", "asi1-mini").Info("llm")
	WithCommonFields(base, "", "").Info("untagged")

	got := observed.AllUntimed()
	if len(got) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(got))
	}
	if got[0].ContextMap()["component"] != "cache" {
		t.Fatalf("unexpected context %v", got[0].ContextMap())
	}
	if ctx := got[1].ContextMap(); ctx[FieldProvider] != "openai" || ctx[FieldModel] != "asi1-mini" {
		t.Fatalf("unexpected llm context %v", ctx)
	}
	if len(got[2].Context) != 0 {
		t.Fatalf("expected blank provider and model to be dropped, got %v", got[2].ContextMap())
	}

	// nil loggers fall back to a no-op logger
	WithFields(nil, zap.String("baz", "qux")).Info("dropped")
	WithCommonFields(nil, "gemini", "gemini-2.5-flash").Info("dropped")
}

func TestToolFields(t *testing.T) {
	fields := ToolFields("budget_advice", " call_1 ")
	if len(fields) != 2 {
		t.Fatalf("expected 2 fields, got %d", len(fields))
	}

	if fields[0].Key != FieldTool || fields[0].String != "budget_advice" {
		t.Fatalf("unexpected tool field: %+v", fields[0])
	}

	if fields[1].Key != FieldCallID || fields[1].String != "call_1" {
		t.Fatalf("unexpected call id field: %+v", fields[1])
	}

	if len(ToolFields("getAllJobs", "")) != 1 {
		t.Fatalf("expected empty call id to be dropped")
	}
}

func TestFetchFields(t *testing.T) {
	fields := FetchFields("jobs", "POST", "")
	if len(fields) != 2 {
		t.Fatalf("expected stage to be dropped, got %d fields", len(fields))
	}
	if fields[0].Key != FieldResource || fields[1].Key != FieldVerb || fields[1].String != "POST" {
		t.Fatalf("unexpected fields: %+v", fields)
	}

	if got := FetchFields("jobs", "GET", "salvage"); got[2].Key != FieldStage || got[2].String != "salvage" {
		t.Fatalf("unexpected stage field: %+v", got)
	}
}
