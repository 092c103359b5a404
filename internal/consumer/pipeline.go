package consumer

import (
	"context"
	"log/slog"
	"time"

	"aimas-backend/services/recommendation-service/internal/event"
	"aimas-backend/services/recommendation-service/internal/metrics"
	"aimas-backend/services/recommendation-service/internal/storage"
)

// Disposition tells the bus loop what to do with the inbound delivery.
type Disposition int

const (
	// Ack: fully processed, persisted and republished.
	Ack Disposition = iota
	// Discard: acknowledged without persistence (malformed or tenantless
	// message) so it never loops as a poison message.
	Discard
	// Redeliver: left unacknowledged; the broker redelivers after its
	// ack deadline. Only persistence failures take this path.
	Redeliver
)

func (d Disposition) String() string {
	switch d {
	case Ack:
		return "ack"
	case Discard:
		return "discard"
	case Redeliver:
		return "redeliver"
	}
	return "unknown"
}

type Classifier interface {
	Classify(ctx context.Context, evt event.MetricEvent) event.Recommendation
}

type Store interface {
	Insert(ctx context.Context, rec storage.Record) error
}

type Publisher interface {
	PublishRecommendation(ctx context.Context, rec event.Recommendation) error
}

// Pipeline runs one inbound message through
// validate -> classify -> persist -> republish. Persistence strictly
// precedes republish: a crash in between loses at most the downstream
// notification, never the stored record.
type Pipeline struct {
	Engine    Classifier
	Store     Store
	Publisher Publisher
	Logger    *slog.Logger
	Now       func() time.Time
}

func (p *Pipeline) now() time.Time {
	if p.Now != nil {
		return p.Now()
	}
	return time.Now()
}

func (p *Pipeline) Process(ctx context.Context, body []byte) Disposition {
	evt, err := event.Parse(body, p.now())
	if err != nil {
		p.Logger.Warn("discarding malformed event", slog.String("error", err.Error()))
		metrics.EventsConsumed.WithLabelValues("malformed").Inc()
		return Discard
	}

	rec := p.Engine.Classify(ctx, evt)

	if !evt.HasTenant() {
		// Classified for diagnostic visibility, but a misconfigured
		// producer must not enter the tenant-partitioned store.
		p.Logger.Warn("event missing tenant identifiers, skipping persist and republish",
			slog.String("event_type", evt.Type),
			slog.String("resource", evt.Resource),
			slog.Int("advisories", len(rec.Advisories)))
		metrics.EventsConsumed.WithLabelValues("no_tenant").Inc()
		return Discard
	}

	record, err := storage.NewRecord(rec)
	if err != nil {
		p.Logger.Error("failed to encode recommendation", slog.String("error", err.Error()))
		metrics.EventsConsumed.WithLabelValues("encode_error").Inc()
		return Discard
	}
	if err := p.Store.Insert(ctx, record); err != nil {
		p.Logger.Error("persist failed, leaving message for redelivery",
			slog.String("event_type", evt.Type), slog.String("error", err.Error()))
		metrics.PersistFailures.Inc()
		metrics.EventsConsumed.WithLabelValues("persist_error").Inc()
		return Redeliver
	}

	if err := p.Publisher.PublishRecommendation(ctx, rec); err != nil {
		// The record is durable; a missing downstream notification is
		// the accepted failure mode, so the message is still acked.
		p.Logger.Error("republish failed after persist",
			slog.String("event_type", evt.Type), slog.String("error", err.Error()))
		metrics.EventsConsumed.WithLabelValues("publish_error").Inc()
		return Ack
	}

	metrics.EventsConsumed.WithLabelValues("processed").Inc()
	metrics.RecommendationsPublished.Inc()
	p.Logger.Info("event processed",
		slog.String("event_type", evt.Type),
		slog.String("source", rec.Source),
		slog.String("user_id", evt.UserID),
		slog.String("project_id", evt.ProjectID),
		slog.Int("advisories", len(rec.Advisories)))
	return Ack
}
