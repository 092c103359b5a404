package storage

import (
	"context"
	"fmt"
)

// Repository is the Postgres access layer. Every read is scoped by
// user_id inside the SQL itself; there is no post-filtering code path
// that could leak cross-tenant rows.
type Repository struct {
	Store       *Store
	MaxPageSize int
}

func NewRepository(store *Store) *Repository {
	return &Repository{Store: store, MaxPageSize: MaxPageSize}
}

// Insert appends one record. There is no update or delete path.
func (r *Repository) Insert(ctx context.Context, rec Record) error {
	_, err := r.Store.Pool.Exec(ctx, `
		INSERT INTO recommendations (ts, event_type, source, user_id, project_id, payload)
		VALUES ($1,$2,$3,$4,$5,$6)`,
		rec.Timestamp, rec.EventType, rec.Source, rec.UserID, rec.ProjectID, rec.Payload,
	)
	return err
}

// ListProjects aggregates the caller's rows by project.
func (r *Repository) ListProjects(ctx context.Context, userID string) ([]ProjectSummary, error) {
	rows, err := r.Store.Pool.Query(ctx, `
		SELECT project_id, COUNT(*), MAX(ts)
		FROM recommendations
		WHERE user_id=$1
		GROUP BY project_id
		ORDER BY MAX(ts) DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	results := []ProjectSummary{}
	for rows.Next() {
		var s ProjectSummary
		if err := rows.Scan(&s.ProjectID, &s.RecommendationCount, &s.LatestTimestamp); err != nil {
			return nil, err
		}
		results = append(results, s)
	}
	return results, rows.Err()
}

// Query returns one page of the caller's rows plus the total count of the
// filtered set. Filters are conjunctive; ordering is ts DESC with the
// sequence id as tie-break.
func (r *Repository) Query(ctx context.Context, userID string, params QueryParams) ([]Record, int64, error) {
	params = params.Clamp(r.MaxPageSize)

	where := "WHERE user_id=$1"
	args := []any{userID}
	if params.ProjectID != "" {
		args = append(args, params.ProjectID)
		where += fmt.Sprintf(" AND project_id=$%d", len(args))
	}
	if params.EventType != "" {
		args = append(args, params.EventType)
		where += fmt.Sprintf(" AND event_type=$%d", len(args))
	}
	if params.Since != nil {
		args = append(args, *params.Since)
		where += fmt.Sprintf(" AND ts>=$%d", len(args))
	}

	var total int64
	if err := r.Store.Pool.QueryRow(ctx, "SELECT COUNT(*) FROM recommendations "+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	args = append(args, params.PageSize, (params.Page-1)*params.PageSize)
	query := fmt.Sprintf(`
		SELECT id, ts, event_type, source, user_id, project_id, payload
		FROM recommendations %s
		ORDER BY ts DESC, id DESC
		LIMIT $%d OFFSET $%d`, where, len(args)-1, len(args))

	rows, err := r.Store.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	items := []Record{}
	for rows.Next() {
		var rec Record
		if err := rows.Scan(&rec.ID, &rec.Timestamp, &rec.EventType, &rec.Source, &rec.UserID, &rec.ProjectID, &rec.Payload); err != nil {
			return nil, 0, err
		}
		items = append(items, rec)
	}
	return items, total, rows.Err()
}
