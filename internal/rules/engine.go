package rules

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"aimas-backend/services/recommendation-service/internal/event"
)

const (
	SourceRules = "rules"
	SourceLLM   = "llm"
)

// Classifier is the alternate reasoning path. It shares the rule path's
// contract: advisories for one event, or an error the engine absorbs.
type Classifier interface {
	Advise(ctx context.Context, evt event.MetricEvent) ([]string, error)
}

// Engine turns MetricEvents into Recommendations. Whether the alternate
// classifier is used is decided once, at construction; a runtime failure
// on that path is logged and downgraded to the deterministic rule path,
// so Classify always produces a result and never returns an error.
type Engine struct {
	registry *Registry
	alt      Classifier
	logger   *slog.Logger
	now      func() time.Time
}

func NewEngine(registry *Registry, alt Classifier, logger *slog.Logger) *Engine {
	return &Engine{registry: registry, alt: alt, logger: logger, now: time.Now}
}

func (e *Engine) Classify(ctx context.Context, evt event.MetricEvent) event.Recommendation {
	rec := event.Recommendation{
		RecoID:    uuid.NewString(),
		Timestamp: e.now().UTC(),
		EventType: evt.Type,
		UserID:    evt.UserID,
		ProjectID: evt.ProjectID,
		RawInput:  evt,
	}

	if e.alt != nil {
		advisories, err := e.alt.Advise(ctx, evt)
		if err == nil {
			rec.Source = SourceLLM
			rec.Advisories = advisories
			return rec
		}
		e.logger.Warn("alternate classifier failed, falling back to rules",
			slog.String("event_type", evt.Type), slog.String("error", err.Error()))
	}

	pack := e.registry.Lookup(evt.Type)
	rec.Source = SourceRules
	rec.Advisories = dedup(pack.Evaluate(evt.Metrics, evt.Labels))
	if rec.Advisories == nil {
		rec.Advisories = []string{}
	}
	return rec
}
