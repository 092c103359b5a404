package storage

import (
	"encoding/json"
	"time"

	"aimas-backend/services/recommendation-service/internal/event"
)

// Record is the persisted projection of a Recommendation. ID is the
// append sequence, used only as a pagination tie-break; it carries no
// external key guarantee beyond ordering within one query.
type Record struct {
	ID        int64     `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	EventType string    `json:"event_type"`
	Source    string    `json:"source"`
	UserID    string    `json:"user_id"`
	ProjectID string    `json:"project_id"`
	Payload   []byte    `json:"payload"`
}

// NewRecord projects a Recommendation onto its stored form. The payload
// keeps the full recommendation, original event included, for audit.
func NewRecord(rec event.Recommendation) (Record, error) {
	payload, err := json.Marshal(rec)
	if err != nil {
		return Record{}, err
	}
	return Record{
		Timestamp: rec.Timestamp,
		EventType: rec.EventType,
		Source:    rec.Source,
		UserID:    rec.UserID,
		ProjectID: rec.ProjectID,
		Payload:   payload,
	}, nil
}

// ProjectSummary is one row of the per-tenant project aggregation.
type ProjectSummary struct {
	ProjectID           string    `json:"project_id"`
	RecommendationCount int64     `json:"recommendation_count"`
	LatestTimestamp     time.Time `json:"latest_timestamp"`
}

// QueryParams are the optional filters of a tenant-scoped query. The
// tenant itself is never part of this struct: it is a mandatory argument
// on every read path, so no call shape can omit it.
type QueryParams struct {
	ProjectID string
	EventType string
	Since     *time.Time
	Page      int
	PageSize  int
}

const (
	DefaultPageSize = 50
	MaxPageSize     = 200
)

// Clamp normalizes page and page_size; page is 1-indexed and page_size is
// capped so one request cannot drag an unbounded result set.
func (p QueryParams) Clamp(maxPageSize int) QueryParams {
	if maxPageSize <= 0 {
		maxPageSize = MaxPageSize
	}
	if p.Page < 1 {
		p.Page = 1
	}
	if p.PageSize <= 0 {
		p.PageSize = DefaultPageSize
	}
	if p.PageSize > maxPageSize {
		p.PageSize = maxPageSize
	}
	return p
}
