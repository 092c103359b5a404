package event

import (
	"encoding/json"
	"errors"
	"time"
)

var (
	ErrMissingType   = errors.New("event type is required")
	ErrMissingTenant = errors.New("user_id and project_id are required")
)

// MetricEvent is one observation arriving on the inbound stream.
// It is constructed at the stream boundary and immutable afterwards.
// Metrics values are kept loosely typed: producers occasionally send
// strings or nulls, and a rule confronted with a non-numeric value must
// treat it as "does not apply" rather than fail the whole event.
type MetricEvent struct {
	Type      string            `json:"type"`
	Timestamp time.Time         `json:"timestamp,omitempty"`
	Resource  string            `json:"resource,omitempty"`
	Labels    map[string]string `json:"labels,omitempty"`
	Metrics   map[string]any    `json:"metrics,omitempty"`
	UserID    string            `json:"user_id,omitempty"`
	ProjectID string            `json:"project_id,omitempty"`
}

// Recommendation is the engine's verdict on one MetricEvent. The tenant
// fields are copied from the event at creation and never rewritten.
type Recommendation struct {
	RecoID     string      `json:"reco_id"`
	Timestamp  time.Time   `json:"timestamp"`
	EventType  string      `json:"event_type"`
	Source     string      `json:"source"`
	UserID     string      `json:"user_id,omitempty"`
	ProjectID  string      `json:"project_id,omitempty"`
	Advisories []string    `json:"recommendations"`
	RawInput   MetricEvent `json:"input_event"`
}

// Parse decodes an inbound message body into a MetricEvent. A missing
// type is a validation failure; a missing timestamp defaults to now.
func Parse(body []byte, now time.Time) (MetricEvent, error) {
	var evt MetricEvent
	if err := json.Unmarshal(body, &evt); err != nil {
		return MetricEvent{}, err
	}
	if evt.Type == "" {
		return MetricEvent{}, ErrMissingType
	}
	if evt.Timestamp.IsZero() {
		evt.Timestamp = now.UTC()
	}
	return Normalize(evt), nil
}

// HasTenant reports whether the event carries both identifiers the store
// requires. Events without them are classified for diagnostics but never
// persisted.
func (e MetricEvent) HasTenant() bool {
	return e.UserID != "" && e.ProjectID != ""
}

// ValidateForPersist returns an error when the event cannot enter the store.
func (e MetricEvent) ValidateForPersist() error {
	if e.Type == "" {
		return ErrMissingType
	}
	if !e.HasTenant() {
		return ErrMissingTenant
	}
	return nil
}

// MetricValue extracts a numeric metric. Missing keys and non-numeric
// values report ok=false and never fail.
func MetricValue(m map[string]any, key string) (float64, bool) {
	v, ok := m[key]
	if !ok || v == nil {
		return 0, false
	}
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		if err != nil {
			return 0, false
		}
		return f, true
	}
	return 0, false
}

// Normalize maps legacy metric names onto their current shapes. Producers
// still emit used_pct for CPU events; the rule packs only read usage_pct.
func Normalize(evt MetricEvent) MetricEvent {
	if evt.Type != "system.cpu" && evt.Type != "host.cpu" {
		return evt
	}
	if evt.Metrics == nil {
		return evt
	}
	if _, ok := evt.Metrics["usage_pct"]; ok {
		return evt
	}
	used, ok := MetricValue(evt.Metrics, "used_pct")
	if !ok {
		return evt
	}
	m := make(map[string]any, len(evt.Metrics)+1)
	for k, v := range evt.Metrics {
		m[k] = v
	}
	m["usage_pct"] = used
	evt.Metrics = m
	return evt
}
