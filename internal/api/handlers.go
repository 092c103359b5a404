package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"aimas-backend/services/recommendation-service/internal/auth"
	"aimas-backend/services/recommendation-service/internal/event"
	"aimas-backend/services/recommendation-service/internal/metrics"
	"aimas-backend/services/recommendation-service/internal/storage"
)

// RecommendationStore is the read/write surface the gateway needs. Both
// the Postgres repository and the memory store satisfy it.
type RecommendationStore interface {
	Insert(ctx context.Context, rec storage.Record) error
	ListProjects(ctx context.Context, userID string) ([]storage.ProjectSummary, error)
	Query(ctx context.Context, userID string, params storage.QueryParams) ([]storage.Record, int64, error)
}

type Classifier interface {
	Classify(ctx context.Context, evt event.MetricEvent) event.Recommendation
}

// ReadyCheck reports dependency health for the readiness endpoint:
// "ok", "degraded" (up, but a collaborator is not configured) or
// "not_ready", plus per-component detail.
type ReadyCheck func(ctx context.Context) (string, map[string]any)

type Handler struct {
	Repo        RecommendationStore
	Engine      Classifier
	Timeout     time.Duration
	ServiceName string
	Version     string
	Ready       ReadyCheck
	MaxPageSize int
}

func (h *Handler) RegisterRoutes(r chi.Router, verifier *auth.Verifier) {
	r.Get("/health/live", h.handleLive)
	r.Get("/health/ready", h.handleReady)
	r.Group(func(r chi.Router) {
		r.Use(verifier.Middleware)
		r.Get("/recommendations", h.handleQuery)
		r.Get("/recommendations/projects", h.handleProjects)
		r.Post("/recommendations/analyze", h.handleAnalyze)
	})
}

type recommendationItem struct {
	ID        int64           `json:"id"`
	Timestamp time.Time       `json:"timestamp"`
	EventType string          `json:"event_type"`
	Source    string          `json:"source"`
	ProjectID string          `json:"project_id"`
	Payload   json.RawMessage `json:"payload"`
}

func (h *Handler) handleQuery(w http.ResponseWriter, r *http.Request) {
	id, ok := auth.FromContext(r.Context())
	if !ok {
		h.count("query", http.StatusUnauthorized)
		writeJSON(w, http.StatusUnauthorized, map[string]any{"ok": false, "message": "missing tenant identity"})
		return
	}
	params, err := parseQueryParams(r)
	if err != nil {
		h.count("query", http.StatusBadRequest)
		writeJSON(w, http.StatusBadRequest, map[string]any{"ok": false, "message": err.Error()})
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), h.Timeout)
	defer cancel()
	records, total, err := h.Repo.Query(ctx, id.UserID, params)
	if err != nil {
		h.count("query", http.StatusInternalServerError)
		writeJSON(w, http.StatusInternalServerError, map[string]any{"ok": false, "message": "failed to query recommendations"})
		return
	}

	params = params.Clamp(h.maxPageSize())
	items := make([]recommendationItem, 0, len(records))
	for _, rec := range records {
		items = append(items, recommendationItem{
			ID:        rec.ID,
			Timestamp: rec.Timestamp,
			EventType: rec.EventType,
			Source:    rec.Source,
			ProjectID: rec.ProjectID,
			Payload:   json.RawMessage(rec.Payload),
		})
	}
	h.count("query", http.StatusOK)
	writeJSON(w, http.StatusOK, map[string]any{
		"items":     items,
		"total":     total,
		"page":      params.Page,
		"page_size": params.PageSize,
		"pages":     pageCount(total, params.PageSize),
	})
}

func (h *Handler) handleProjects(w http.ResponseWriter, r *http.Request) {
	id, ok := auth.FromContext(r.Context())
	if !ok {
		h.count("projects", http.StatusUnauthorized)
		writeJSON(w, http.StatusUnauthorized, map[string]any{"ok": false, "message": "missing tenant identity"})
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), h.Timeout)
	defer cancel()
	projects, err := h.Repo.ListProjects(ctx, id.UserID)
	if err != nil {
		h.count("projects", http.StatusInternalServerError)
		writeJSON(w, http.StatusInternalServerError, map[string]any{"ok": false, "message": "failed to list projects"})
		return
	}
	h.count("projects", http.StatusOK)
	writeJSON(w, http.StatusOK, map[string]any{
		"projects":       projects,
		"total_projects": len(projects),
	})
}

// handleAnalyze classifies an event synchronously. The authenticated
// identity always replaces whatever user_id the body asserts; the result
// is persisted only when a project_id makes the row storable.
func (h *Handler) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	id, ok := auth.FromContext(r.Context())
	if !ok {
		h.count("analyze", http.StatusUnauthorized)
		writeJSON(w, http.StatusUnauthorized, map[string]any{"ok": false, "message": "missing tenant identity"})
		return
	}
	var evt event.MetricEvent
	if err := decodeJSON(r, &evt); err != nil {
		h.count("analyze", http.StatusBadRequest)
		writeJSON(w, http.StatusBadRequest, map[string]any{"ok": false, "message": err.Error()})
		return
	}
	if evt.Type == "" {
		h.count("analyze", http.StatusBadRequest)
		writeJSON(w, http.StatusBadRequest, map[string]any{"ok": false, "message": "event type is required"})
		return
	}
	evt.UserID = id.UserID
	if evt.Timestamp.IsZero() {
		evt.Timestamp = time.Now().UTC()
	}
	evt = event.Normalize(evt)

	ctx, cancel := context.WithTimeout(r.Context(), h.Timeout)
	defer cancel()
	rec := h.Engine.Classify(ctx, evt)

	persisted := false
	if evt.HasTenant() {
		record, err := storage.NewRecord(rec)
		if err == nil {
			if err := h.Repo.Insert(ctx, record); err != nil {
				h.count("analyze", http.StatusInternalServerError)
				writeJSON(w, http.StatusInternalServerError, map[string]any{"ok": false, "message": "failed to persist recommendation"})
				return
			}
			persisted = true
		}
	}
	h.count("analyze", http.StatusOK)
	writeJSON(w, http.StatusOK, map[string]any{
		"recommendation": rec,
		"persisted":      persisted,
	})
}

func (h *Handler) handleLive(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"service": h.ServiceName,
		"version": h.Version,
		"time":    time.Now().UTC(),
	})
}

func (h *Handler) handleReady(w http.ResponseWriter, r *http.Request) {
	status := "ok"
	detail := map[string]any{}
	if h.Ready != nil {
		ctx, cancel := context.WithTimeout(r.Context(), h.Timeout)
		defer cancel()
		status, detail = h.Ready(ctx)
	}
	code := http.StatusOK
	if status == "not_ready" {
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, code, map[string]any{
		"status":     status,
		"service":    h.ServiceName,
		"version":    h.Version,
		"time":       time.Now().UTC(),
		"components": detail,
	})
}

func (h *Handler) maxPageSize() int {
	if h.MaxPageSize > 0 {
		return h.MaxPageSize
	}
	return storage.MaxPageSize
}

func (h *Handler) count(endpoint string, status int) {
	metrics.QueryRequests.WithLabelValues(endpoint, strconv.Itoa(status)).Inc()
}

func parseQueryParams(r *http.Request) (storage.QueryParams, error) {
	q := r.URL.Query()
	params := storage.QueryParams{
		ProjectID: q.Get("project_id"),
		EventType: q.Get("event_type"),
		Page:      1,
	}
	if raw := q.Get("page"); raw != "" {
		page, err := strconv.Atoi(raw)
		if err != nil || page < 1 {
			return storage.QueryParams{}, errInvalidParam("page", raw)
		}
		params.Page = page
	}
	if raw := q.Get("page_size"); raw != "" {
		size, err := strconv.Atoi(raw)
		if err != nil || size < 1 {
			return storage.QueryParams{}, errInvalidParam("page_size", raw)
		}
		params.PageSize = size
	}
	if raw := q.Get("since"); raw != "" {
		since, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return storage.QueryParams{}, errInvalidParam("since", raw)
		}
		params.Since = &since
	}
	return params, nil
}

type paramError struct {
	name  string
	value string
}

func errInvalidParam(name, value string) error {
	return paramError{name: name, value: value}
}

func (e paramError) Error() string {
	return "invalid " + e.name + " parameter: " + e.value
}

func pageCount(total int64, pageSize int) int64 {
	if total == 0 || pageSize <= 0 {
		return 0
	}
	return (total + int64(pageSize) - 1) / int64(pageSize)
}

func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	return dec.Decode(v)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
