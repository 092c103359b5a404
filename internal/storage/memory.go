package storage

import (
	"context"
	"sort"
	"sync"
)

// Memory is an in-process store with the same contract and filter
// semantics as Repository. It backs unit tests and serves as the dev
// fallback when no DATABASE_URL is configured.
type Memory struct {
	mu          sync.RWMutex
	records     []Record
	nextID      int64
	MaxPageSize int
}

func NewMemory() *Memory {
	return &Memory{nextID: 1, MaxPageSize: MaxPageSize}
}

func (m *Memory) Insert(ctx context.Context, rec Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec.ID = m.nextID
	m.nextID++
	m.records = append(m.records, rec)
	return nil
}

func (m *Memory) ListProjects(ctx context.Context, userID string) ([]ProjectSummary, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	byProject := map[string]*ProjectSummary{}
	for _, rec := range m.records {
		if rec.UserID != userID {
			continue
		}
		s, ok := byProject[rec.ProjectID]
		if !ok {
			s = &ProjectSummary{ProjectID: rec.ProjectID}
			byProject[rec.ProjectID] = s
		}
		s.RecommendationCount++
		if rec.Timestamp.After(s.LatestTimestamp) {
			s.LatestTimestamp = rec.Timestamp
		}
	}
	results := []ProjectSummary{}
	for _, s := range byProject {
		results = append(results, *s)
	}
	sort.Slice(results, func(i, j int) bool {
		return results[i].LatestTimestamp.After(results[j].LatestTimestamp)
	})
	return results, nil
}

func (m *Memory) Query(ctx context.Context, userID string, params QueryParams) ([]Record, int64, error) {
	params = params.Clamp(m.MaxPageSize)
	m.mu.RLock()
	defer m.mu.RUnlock()

	matched := []Record{}
	for _, rec := range m.records {
		if rec.UserID != userID {
			continue
		}
		if params.ProjectID != "" && rec.ProjectID != params.ProjectID {
			continue
		}
		if params.EventType != "" && rec.EventType != params.EventType {
			continue
		}
		if params.Since != nil && rec.Timestamp.Before(*params.Since) {
			continue
		}
		matched = append(matched, rec)
	}
	sort.Slice(matched, func(i, j int) bool {
		if !matched[i].Timestamp.Equal(matched[j].Timestamp) {
			return matched[i].Timestamp.After(matched[j].Timestamp)
		}
		return matched[i].ID > matched[j].ID
	})

	total := int64(len(matched))
	offset := (params.Page - 1) * params.PageSize
	if offset >= len(matched) {
		return []Record{}, total, nil
	}
	end := offset + params.PageSize
	if end > len(matched) {
		end = len(matched)
	}
	page := make([]Record, end-offset)
	copy(page, matched[offset:end])
	return page, total, nil
}
