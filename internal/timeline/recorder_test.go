package timeline

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/civicworks/issue-service/internal/domain"
	"github.com/civicworks/issue-service/pkg/util"
)

type stubIssueStore struct {
	known map[string]bool
}

func (s *stubIssueStore) GetByID(_ context.Context, id string) (*domain.Issue, error) {
	if !s.known[id] {
		return nil, pgx.ErrNoRows
	}
	return &domain.Issue{ID: id}, nil
}

func (s *stubIssueStore) Create(context.Context, *domain.Issue) error { return nil }
func (s *stubIssueStore) ListByOwner(context.Context, string, int, int) ([]domain.Issue, error) {
	return nil, nil
}
func (s *stubIssueStore) ListWorkQueue(context.Context, string, string, int, int) ([]domain.Issue, error) {
	return nil, nil
}
func (s *stubIssueStore) CountByStatusForOwner(context.Context, string) (map[domain.IssueStatus]int, error) {
	return nil, nil
}
func (s *stubIssueStore) UpdateStatus(context.Context, string, domain.IssueStatus, domain.IssueStatus) error {
	return nil
}
func (s *stubIssueStore) Assign(context.Context, string, string, string) error { return nil }
func (s *stubIssueStore) AddVoter(context.Context, string, string) (int, error) {
	return 0, nil
}
func (s *stubIssueStore) SetPriority(context.Context, string, domain.IssuePriority) error {
	return nil
}
func (s *stubIssueStore) DeletePending(context.Context, string) error { return nil }

type stubTimelineStore struct {
	entries []domain.TimelineEntry
}

func (s *stubTimelineStore) Append(_ context.Context, entry *domain.TimelineEntry) error {
	if n := len(s.entries); n > 0 && entry.CreatedAt.Before(s.entries[n-1].CreatedAt) {
		entry.CreatedAt = s.entries[n-1].CreatedAt
	}
	entry.ID = uuid.NewString()
	s.entries = append(s.entries, *entry)
	return nil
}

func (s *stubTimelineStore) ListByIssue(_ context.Context, _ string) ([]domain.TimelineEntry, error) {
	return append([]domain.TimelineEntry{}, s.entries...), nil
}

func TestAppendStampsWithRecorderClock(t *testing.T) {
	store := &stubTimelineStore{}
	stamp := time.Date(2026, 5, 10, 9, 0, 0, 0, time.UTC)
	recorder := NewRecorder(&stubIssueStore{known: map[string]bool{"issue-1": true}}, store).
		WithClock(func() time.Time { return stamp })

	entry, err := recorder.Append(context.Background(), "issue-1", Entry{
		Message:    "Issue reported",
		ActorEmail: "alice@example.com",
		ActorRole:  domain.RoleCitizen,
	})
	require.NoError(t, err)
	assert.Equal(t, stamp, entry.CreatedAt)
	assert.NotEmpty(t, entry.ID)
}

func TestAppendUnknownIssue(t *testing.T) {
	recorder := NewRecorder(&stubIssueStore{known: map[string]bool{}}, &stubTimelineStore{})

	_, err := recorder.Append(context.Background(), "missing", Entry{Message: "x"})
	assert.Equal(t, "NOT_FOUND", util.CodeOf(err))
}

func TestAppendClampsBackwardClock(t *testing.T) {
	store := &stubTimelineStore{}
	times := []time.Time{
		time.Date(2026, 5, 10, 9, 0, 0, 0, time.UTC),
		time.Date(2026, 5, 10, 8, 0, 0, 0, time.UTC),
	}
	idx := 0
	recorder := NewRecorder(&stubIssueStore{known: map[string]bool{"issue-1": true}}, store).
		WithClock(func() time.Time {
			ts := times[idx]
			idx++
			return ts
		})

	first, err := recorder.Append(context.Background(), "issue-1", Entry{Message: "first"})
	require.NoError(t, err)
	second, err := recorder.Append(context.Background(), "issue-1", Entry{Message: "second"})
	require.NoError(t, err)

	assert.False(t, second.CreatedAt.Before(first.CreatedAt))
}
