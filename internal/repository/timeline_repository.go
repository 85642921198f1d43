package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/civicworks/issue-service/internal/domain"
)

// TimelineRepository stores append-only issue audit entries.
type TimelineRepository interface {
	Append(ctx context.Context, entry *domain.TimelineEntry) error
	ListByIssue(ctx context.Context, issueID string) ([]domain.TimelineEntry, error)
}

type timelineRepository struct {
	pool *pgxpool.Pool
}

// NewTimelineRepository builds repository.
func NewTimelineRepository(pool *pgxpool.Pool) TimelineRepository {
	return &timelineRepository{pool: pool}
}

// Append persists the entry with its timestamp clamped to the issue's
// latest existing entry, so timestamps are non-decreasing in append order
// regardless of clock adjustments between requests.
func (r *timelineRepository) Append(ctx context.Context, entry *domain.TimelineEntry) error {
	const query = `
        INSERT INTO issue_timeline (issue_id, status, message, actor_email, actor_role, created_at)
        SELECT $1, $2, $3, $4, $5, GREATEST($6::timestamptz, COALESCE(MAX(created_at), $6::timestamptz))
        FROM issue_timeline WHERE issue_id=$1
        RETURNING id, created_at`
	return r.pool.QueryRow(ctx, query,
		entry.IssueID,
		entry.Status,
		entry.Message,
		entry.ActorEmail,
		entry.ActorRole,
		entry.CreatedAt,
	).Scan(&entry.ID, &entry.CreatedAt)
}

func (r *timelineRepository) ListByIssue(ctx context.Context, issueID string) ([]domain.TimelineEntry, error) {
	const query = `
        SELECT id, issue_id, status, message, actor_email, actor_role, created_at
        FROM issue_timeline WHERE issue_id=$1 ORDER BY created_at ASC, id ASC`
	rows, err := r.pool.Query(ctx, query, issueID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.TimelineEntry
	for rows.Next() {
		var entry domain.TimelineEntry
		if err := rows.Scan(
			&entry.ID,
			&entry.IssueID,
			&entry.Status,
			&entry.Message,
			&entry.ActorEmail,
			&entry.ActorRole,
			&entry.CreatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, entry)
	}
	return result, rows.Err()
}
