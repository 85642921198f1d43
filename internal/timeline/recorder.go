package timeline

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/civicworks/issue-service/internal/domain"
	"github.com/civicworks/issue-service/internal/repository"
	"github.com/civicworks/issue-service/pkg/util"
)

// Entry is what a caller may specify about a timeline event. The timestamp
// is deliberately absent: the recorder assigns it.
type Entry struct {
	Status     *domain.IssueStatus
	Message    string
	ActorEmail string
	ActorRole  domain.Role
}

// Recorder is the only mutation path for issue timelines. Every component
// that changes issue state appends through it, so the audit trail is
// reconstructable in append order with no gaps.
type Recorder struct {
	issues  repository.IssueRepository
	entries repository.TimelineRepository
	now     func() time.Time
}

// NewRecorder constructs the recorder.
func NewRecorder(issues repository.IssueRepository, entries repository.TimelineRepository) *Recorder {
	return &Recorder{issues: issues, entries: entries, now: time.Now}
}

// WithClock overrides the timestamp source, for tests.
func (r *Recorder) WithClock(now func() time.Time) *Recorder {
	r.now = now
	return r
}

// Append validates the issue exists, stamps the entry with the recorder's
// clock and persists it. The store clamps the timestamp so it is never
// earlier than the issue's latest entry.
func (r *Recorder) Append(ctx context.Context, issueID string, entry Entry) (*domain.TimelineEntry, error) {
	if _, err := r.issues.GetByID(ctx, issueID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, util.NewNotFound("issue", map[string]any{"issue_id": issueID})
		}
		return nil, util.MapError(err)
	}

	record := &domain.TimelineEntry{
		IssueID:    issueID,
		Status:     entry.Status,
		Message:    entry.Message,
		ActorEmail: entry.ActorEmail,
		ActorRole:  entry.ActorRole,
		CreatedAt:  r.now(),
	}
	if err := r.entries.Append(ctx, record); err != nil {
		return nil, util.MapError(err)
	}
	return record, nil
}

// List returns the issue's timeline in append order.
func (r *Recorder) List(ctx context.Context, issueID string) ([]domain.TimelineEntry, error) {
	entries, err := r.entries.ListByIssue(ctx, issueID)
	if err != nil {
		return nil, util.MapError(err)
	}
	return entries, nil
}
