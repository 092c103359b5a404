package storage

import (
	"context"
	"testing"
	"time"
)

func seedMemory(t *testing.T) *Memory {
	t.Helper()
	m := NewMemory()
	base := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	rows := []struct {
		user, project, eventType string
		offset                   time.Duration
	}{
		{"user-001", "proj-001", "system.cpu", 0},
		{"user-001", "proj-001", "system.memory", time.Hour},
		{"user-001", "proj-002", "system.cpu", 2 * time.Hour},
		{"user-001", "proj-003", "net.http", 3 * time.Hour},
		{"user-002", "proj-002", "system.cpu", 4 * time.Hour},
		{"user-002", "proj-004", "api.payment", 5 * time.Hour},
		{"user-002", "proj-004", "api.payment", 6 * time.Hour},
	}
	for _, row := range rows {
		rec := Record{
			Timestamp: base.Add(row.offset),
			EventType: row.eventType,
			Source:    "rules",
			UserID:    row.user,
			ProjectID: row.project,
			Payload:   []byte(`{}`),
		}
		if err := m.Insert(context.Background(), rec); err != nil {
			t.Fatalf("insert failed: %v", err)
		}
	}
	return m
}

func TestQueryScopedToTenant(t *testing.T) {
	m := seedMemory(t)
	ctx := context.Background()

	records, total, err := m.Query(ctx, "user-001", QueryParams{})
	if err != nil {
		t.Fatalf("query failed: %v", err)
	}
	if total != 4 || len(records) != 4 {
		t.Fatalf("expected 4 rows for user-001, got total=%d len=%d", total, len(records))
	}
	for _, rec := range records {
		if rec.UserID != "user-001" {
			t.Fatalf("leaked foreign row: %+v", rec)
		}
	}

	records, total, err = m.Query(ctx, "user-002", QueryParams{ProjectID: "proj-002"})
	if err != nil {
		t.Fatalf("query failed: %v", err)
	}
	if total != 1 || len(records) != 1 {
		t.Fatalf("expected 1 row for user-002/proj-002, got total=%d len=%d", total, len(records))
	}
}

func TestQueryForeignProjectReturnsNothing(t *testing.T) {
	m := seedMemory(t)
	// proj-004 belongs to user-002 only.
	records, total, err := m.Query(context.Background(), "user-001", QueryParams{ProjectID: "proj-004"})
	if err != nil {
		t.Fatalf("query failed: %v", err)
	}
	if total != 0 || len(records) != 0 {
		t.Fatalf("expected empty result, got total=%d len=%d", total, len(records))
	}
}

func TestQueryUnknownUser(t *testing.T) {
	m := seedMemory(t)
	records, total, err := m.Query(context.Background(), "user-999", QueryParams{})
	if err != nil {
		t.Fatalf("query failed: %v", err)
	}
	if total != 0 || len(records) != 0 {
		t.Fatalf("expected empty result for unknown user, got total=%d len=%d", total, len(records))
	}
}

func TestQueryOrdering(t *testing.T) {
	m := seedMemory(t)
	records, _, err := m.Query(context.Background(), "user-001", QueryParams{})
	if err != nil {
		t.Fatalf("query failed: %v", err)
	}
	for i := 1; i < len(records); i++ {
		prev, cur := records[i-1], records[i]
		if cur.Timestamp.After(prev.Timestamp) {
			t.Fatalf("rows not in ts DESC order: %v before %v", prev.Timestamp, cur.Timestamp)
		}
		if cur.Timestamp.Equal(prev.Timestamp) && cur.ID > prev.ID {
			t.Fatalf("tie not broken by id DESC: %d before %d", prev.ID, cur.ID)
		}
	}
}

func TestQueryTimestampTieBrokenByID(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	ts := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		rec := Record{Timestamp: ts, EventType: "system.cpu", Source: "rules", UserID: "user-001", ProjectID: "proj-001", Payload: []byte(`{}`)}
		if err := m.Insert(ctx, rec); err != nil {
			t.Fatalf("insert failed: %v", err)
		}
	}
	records, _, err := m.Query(ctx, "user-001", QueryParams{})
	if err != nil {
		t.Fatalf("query failed: %v", err)
	}
	if records[0].ID != 3 || records[1].ID != 2 || records[2].ID != 1 {
		t.Fatalf("expected ids 3,2,1, got %d,%d,%d", records[0].ID, records[1].ID, records[2].ID)
	}
}

func TestQueryPagination(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 7; i++ {
		rec := Record{Timestamp: base.Add(time.Duration(i) * time.Minute), EventType: "system.cpu", Source: "rules", UserID: "user-001", ProjectID: "proj-001", Payload: []byte(`{}`)}
		if err := m.Insert(ctx, rec); err != nil {
			t.Fatalf("insert failed: %v", err)
		}
	}

	records, total, err := m.Query(ctx, "user-001", QueryParams{Page: 2, PageSize: 3})
	if err != nil {
		t.Fatalf("query failed: %v", err)
	}
	if total != 7 {
		t.Fatalf("total must count the whole filtered set, got %d", total)
	}
	if len(records) != 3 {
		t.Fatalf("expected 3 rows on page 2, got %d", len(records))
	}

	records, total, err = m.Query(ctx, "user-001", QueryParams{Page: 3, PageSize: 3})
	if err != nil {
		t.Fatalf("query failed: %v", err)
	}
	if total != 7 || len(records) != 1 {
		t.Fatalf("expected 1 row on last page, got total=%d len=%d", total, len(records))
	}

	records, total, err = m.Query(ctx, "user-001", QueryParams{Page: 9, PageSize: 3})
	if err != nil {
		t.Fatalf("query failed: %v", err)
	}
	if total != 7 || len(records) != 0 {
		t.Fatalf("page beyond the window must be empty with full total, got total=%d len=%d", total, len(records))
	}
}

func TestQueryFilters(t *testing.T) {
	m := seedMemory(t)
	ctx := context.Background()

	records, total, err := m.Query(ctx, "user-001", QueryParams{EventType: "system.cpu"})
	if err != nil {
		t.Fatalf("query failed: %v", err)
	}
	if total != 2 || len(records) != 2 {
		t.Fatalf("expected 2 system.cpu rows, got total=%d len=%d", total, len(records))
	}

	since := time.Date(2026, 3, 1, 2, 0, 0, 0, time.UTC)
	records, total, err = m.Query(ctx, "user-001", QueryParams{Since: &since})
	if err != nil {
		t.Fatalf("query failed: %v", err)
	}
	if total != 2 || len(records) != 2 {
		t.Fatalf("expected 2 rows at or after %v, got total=%d len=%d", since, total, len(records))
	}
}

func TestListProjects(t *testing.T) {
	m := seedMemory(t)
	projects, err := m.ListProjects(context.Background(), "user-001")
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(projects) != 3 {
		t.Fatalf("expected 3 projects for user-001, got %d", len(projects))
	}
	counts := map[string]int64{}
	for _, p := range projects {
		counts[p.ProjectID] = p.RecommendationCount
	}
	if counts["proj-001"] != 2 || counts["proj-002"] != 1 || counts["proj-003"] != 1 {
		t.Fatalf("unexpected counts: %v", counts)
	}
	// Ordered by latest activity, newest first.
	if projects[0].ProjectID != "proj-003" {
		t.Fatalf("expected proj-003 first, got %s", projects[0].ProjectID)
	}

	projects, err = m.ListProjects(context.Background(), "user-002")
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(projects) != 2 {
		t.Fatalf("expected 2 projects for user-002, got %d", len(projects))
	}
}

func TestClamp(t *testing.T) {
	cases := []struct {
		name     string
		in       QueryParams
		wantPage int
		wantSize int
	}{
		{"defaults", QueryParams{}, 1, DefaultPageSize},
		{"oversized page_size capped", QueryParams{Page: 2, PageSize: 10000}, 2, MaxPageSize},
		{"negative page normalized", QueryParams{Page: -4, PageSize: 10}, 1, 10},
	}
	for _, tc := range cases {
		got := tc.in.Clamp(MaxPageSize)
		if got.Page != tc.wantPage || got.PageSize != tc.wantSize {
			t.Fatalf("%s: got page=%d size=%d, want page=%d size=%d", tc.name, got.Page, got.PageSize, tc.wantPage, tc.wantSize)
		}
	}
}
