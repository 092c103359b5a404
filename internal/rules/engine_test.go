package rules

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"reflect"
	"testing"

	"aimas-backend/services/recommendation-service/internal/event"
)

type stubClassifier struct {
	advisories []string
	err        error
	calls      int
}

func (s *stubClassifier) Advise(ctx context.Context, evt event.MetricEvent) ([]string, error) {
	s.calls++
	return s.advisories, s.err
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

func TestClassifyRulePath(t *testing.T) {
	engine := NewEngine(DefaultRegistry(), nil, testLogger())
	evt := event.MetricEvent{
		Type:      "system.cpu",
		UserID:    "user-001",
		ProjectID: "proj-001",
		Metrics:   map[string]any{"usage_pct": 97.0},
	}
	rec := engine.Classify(context.Background(), evt)
	if rec.Source != SourceRules {
		t.Fatalf("expected source %q, got %q", SourceRules, rec.Source)
	}
	if len(rec.Advisories) != 2 {
		t.Fatalf("expected two advisories, got %v", rec.Advisories)
	}
	if rec.UserID != "user-001" || rec.ProjectID != "proj-001" {
		t.Fatalf("tenant fields not copied: %+v", rec)
	}
	if rec.RecoID == "" {
		t.Fatal("expected a reco_id")
	}
	if rec.EventType != "system.cpu" {
		t.Fatalf("expected event_type system.cpu, got %q", rec.EventType)
	}
}

func TestClassifyUnknownTypeEmptyAdvisories(t *testing.T) {
	engine := NewEngine(DefaultRegistry(), nil, testLogger())
	rec := engine.Classify(context.Background(), event.MetricEvent{Type: "custom.metric"})
	if rec.Source != SourceRules {
		t.Fatalf("expected source %q, got %q", SourceRules, rec.Source)
	}
	if rec.Advisories == nil || len(rec.Advisories) != 0 {
		t.Fatalf("expected empty non-nil advisories, got %#v", rec.Advisories)
	}
}

func TestClassifyUsesAlternateClassifier(t *testing.T) {
	alt := &stubClassifier{advisories: []string{"scale out the worker pool"}}
	engine := NewEngine(DefaultRegistry(), alt, testLogger())
	rec := engine.Classify(context.Background(), event.MetricEvent{Type: "system.cpu", Metrics: map[string]any{"usage_pct": 97.0}})
	if rec.Source != SourceLLM {
		t.Fatalf("expected source %q, got %q", SourceLLM, rec.Source)
	}
	if !reflect.DeepEqual(rec.Advisories, []string{"scale out the worker pool"}) {
		t.Fatalf("got %v", rec.Advisories)
	}
	if alt.calls != 1 {
		t.Fatalf("expected one alternate call, got %d", alt.calls)
	}
}

func TestClassifyFallsBackWhenAlternateFails(t *testing.T) {
	alt := &stubClassifier{err: errors.New("upstream timeout")}
	engine := NewEngine(DefaultRegistry(), alt, testLogger())
	rec := engine.Classify(context.Background(), event.MetricEvent{Type: "system.cpu", Metrics: map[string]any{"usage_pct": 97.0}})
	if rec.Source != SourceRules {
		t.Fatalf("expected fallback to source %q, got %q", SourceRules, rec.Source)
	}
	if len(rec.Advisories) != 2 {
		t.Fatalf("expected rule advisories after fallback, got %v", rec.Advisories)
	}
}
