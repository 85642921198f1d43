package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/civicworks/issue-service/internal/cache"
	"github.com/civicworks/issue-service/internal/domain"
	"github.com/civicworks/issue-service/internal/timeline"
	"github.com/civicworks/issue-service/pkg/util"
)

type issueFixture struct {
	svc      *IssueService
	issues   *fakeIssueRepo
	entries  *fakeTimelineRepo
	recorder *timeline.Recorder
}

func newIssueFixture(t *testing.T) *issueFixture {
	t.Helper()
	issues := newFakeIssueRepo()
	entries := newFakeTimelineRepo()
	recorder := timeline.NewRecorder(issues, entries)
	svc := NewIssueService(IssueDependencies{
		IssueRepo: issues,
		Recorder:  recorder,
		Cache:     cache.NewIssueCache(nil),
	})
	return &issueFixture{svc: svc, issues: issues, entries: entries, recorder: recorder}
}

func citizen(email string) domain.Identity {
	return domain.Identity{Email: email, Role: domain.RoleCitizen}
}

func staff(email, district string) domain.Identity {
	return domain.Identity{Email: email, Role: domain.RoleStaff, District: &district}
}

func admin(email string) domain.Identity {
	return domain.Identity{Email: email, Role: domain.RoleAdmin}
}

func (f *issueFixture) reportIssue(t *testing.T, owner domain.Identity) *domain.Issue {
	t.Helper()
	issue, err := f.svc.CreateIssue(context.Background(), owner, IssueCreateInput{
		Title:       "Broken streetlight",
		Description: "The light on the corner has been out for a week",
		Category:    "lighting",
		Region:      "north",
		District:    "district-7",
	})
	require.NoError(t, err)
	return issue
}

func (f *issueFixture) assignTo(t *testing.T, issueID, email, name string) {
	t.Helper()
	require.NoError(t, f.issues.Assign(context.Background(), issueID, email, name))
}

func TestCreateIssueSeedsTimeline(t *testing.T) {
	f := newIssueFixture(t)
	owner := citizen("alice@example.com")

	issue := f.reportIssue(t, owner)

	assert.Equal(t, domain.IssueStatusPending, issue.Status)
	assert.Equal(t, domain.IssuePriorityNormal, issue.Priority)
	assert.Equal(t, owner.Email, issue.OwnerEmail)

	entries, err := f.recorder.List(context.Background(), issue.ID)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "Issue reported", entries[0].Message)
	require.NotNil(t, entries[0].Status)
	assert.Equal(t, domain.IssueStatusPending, *entries[0].Status)
}

func TestTransitionLadder(t *testing.T) {
	f := newIssueFixture(t)
	owner := citizen("alice@example.com")
	worker := staff("bob@staff.example.com", "district-7")

	issue := f.reportIssue(t, owner)
	f.assignTo(t, issue.ID, worker.Email, "Bob")

	ctx := context.Background()
	updated, err := f.svc.RequestTransition(ctx, worker, issue.ID, domain.IssueStatusWorking, "on site")
	require.NoError(t, err)
	assert.Equal(t, domain.IssueStatusWorking, updated.Status)

	updated, err = f.svc.RequestTransition(ctx, worker, issue.ID, domain.IssueStatusResolved, "")
	require.NoError(t, err)
	assert.Equal(t, domain.IssueStatusResolved, updated.Status)

	updated, err = f.svc.RequestTransition(ctx, worker, issue.ID, domain.IssueStatusClosed, "")
	require.NoError(t, err)
	assert.Equal(t, domain.IssueStatusClosed, updated.Status)

	entries, err := f.recorder.List(ctx, issue.ID)
	require.NoError(t, err)
	require.Len(t, entries, 4)
	assert.Equal(t, "on site", entries[1].Message)
	assert.Equal(t, "Status changed to RESOLVED", entries[2].Message)
}

func TestTransitionRejectsSkips(t *testing.T) {
	f := newIssueFixture(t)
	worker := staff("bob@staff.example.com", "district-7")

	issue := f.reportIssue(t, citizen("alice@example.com"))
	f.assignTo(t, issue.ID, worker.Email, "Bob")

	ctx := context.Background()
	for _, target := range []domain.IssueStatus{
		domain.IssueStatusResolved,
		domain.IssueStatusClosed,
		domain.IssueStatusPending,
	} {
		_, err := f.svc.RequestTransition(ctx, worker, issue.ID, target, "")
		assert.Equal(t, "INVALID_TRANSITION", util.CodeOf(err), "target %s", target)
	}

	stored, err := f.issues.GetByID(ctx, issue.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.IssueStatusInProgress, stored.Status)
}

func TestTransitionFromPendingOnlyViaAssignmentOrReject(t *testing.T) {
	f := newIssueFixture(t)
	issue := f.reportIssue(t, citizen("alice@example.com"))
	ctx := context.Background()
	root := admin("root@example.com")

	// IN_PROGRESS is only reachable through assignment, RESOLVED never
	// directly from PENDING.
	_, err := f.svc.RequestTransition(ctx, root, issue.ID, domain.IssueStatusInProgress, "")
	assert.Equal(t, "INVALID_TRANSITION", util.CodeOf(err))

	_, err = f.svc.RequestTransition(ctx, root, issue.ID, domain.IssueStatusResolved, "")
	assert.Equal(t, "INVALID_TRANSITION", util.CodeOf(err))

	stored, err := f.issues.GetByID(ctx, issue.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.IssueStatusPending, stored.Status)

	entries, err := f.recorder.List(ctx, issue.ID)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestTransitionRequiresAssignment(t *testing.T) {
	f := newIssueFixture(t)
	worker := staff("bob@staff.example.com", "district-7")
	other := staff("carol@staff.example.com", "district-7")

	issue := f.reportIssue(t, citizen("alice@example.com"))
	f.assignTo(t, issue.ID, worker.Email, "Bob")

	ctx := context.Background()
	_, err := f.svc.RequestTransition(ctx, other, issue.ID, domain.IssueStatusWorking, "")
	assert.Equal(t, "FORBIDDEN", util.CodeOf(err))

	_, err = f.svc.RequestTransition(ctx, citizen("alice@example.com"), issue.ID, domain.IssueStatusWorking, "")
	assert.Equal(t, "FORBIDDEN", util.CodeOf(err))
}

func TestResolvedToClosedByAdminOrAssignee(t *testing.T) {
	f := newIssueFixture(t)
	worker := staff("bob@staff.example.com", "district-7")
	ctx := context.Background()

	prepare := func() *domain.Issue {
		issue := f.reportIssue(t, citizen("alice@example.com"))
		f.assignTo(t, issue.ID, worker.Email, "Bob")
		_, err := f.svc.RequestTransition(ctx, worker, issue.ID, domain.IssueStatusWorking, "")
		require.NoError(t, err)
		_, err = f.svc.RequestTransition(ctx, worker, issue.ID, domain.IssueStatusResolved, "")
		require.NoError(t, err)
		return issue
	}

	issue := prepare()
	_, err := f.svc.RequestTransition(ctx, admin("root@example.com"), issue.ID, domain.IssueStatusClosed, "")
	assert.NoError(t, err)

	issue = prepare()
	_, err = f.svc.RequestTransition(ctx, worker, issue.ID, domain.IssueStatusClosed, "")
	assert.NoError(t, err)
}

func TestRejectIssueByAdmin(t *testing.T) {
	f := newIssueFixture(t)
	ctx := context.Background()

	issue := f.reportIssue(t, citizen("alice@example.com"))
	closed, err := f.svc.RejectIssue(ctx, admin("root@example.com"), issue.ID, "duplicate of an existing report")
	require.NoError(t, err)
	assert.Equal(t, domain.IssueStatusClosed, closed.Status)

	entries, err := f.recorder.List(ctx, issue.ID)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Contains(t, entries[1].Message, "duplicate")
	assert.Equal(t, domain.RoleAdmin, entries[1].ActorRole)
}

func TestRejectIssueForbiddenForOthers(t *testing.T) {
	f := newIssueFixture(t)
	issue := f.reportIssue(t, citizen("alice@example.com"))

	_, err := f.svc.RejectIssue(context.Background(), citizen("alice@example.com"), issue.ID, "tired of waiting")
	assert.Equal(t, "FORBIDDEN", util.CodeOf(err))

	_, err = f.svc.RejectIssue(context.Background(), staff("bob@staff.example.com", "district-7"), issue.ID, "noise")
	assert.Equal(t, "FORBIDDEN", util.CodeOf(err))
}

func TestRejectIssueAlreadyClosed(t *testing.T) {
	f := newIssueFixture(t)
	ctx := context.Background()
	root := admin("root@example.com")

	issue := f.reportIssue(t, citizen("alice@example.com"))
	_, err := f.svc.RejectIssue(ctx, root, issue.ID, "duplicate")
	require.NoError(t, err)

	_, err = f.svc.RejectIssue(ctx, root, issue.ID, "again")
	assert.Equal(t, "INVALID_TRANSITION", util.CodeOf(err))
}

func TestUpvoteRules(t *testing.T) {
	f := newIssueFixture(t)
	ctx := context.Background()
	owner := citizen("alice@example.com")
	issue := f.reportIssue(t, owner)

	_, err := f.svc.Upvote(ctx, owner, issue.ID)
	assert.Equal(t, "SELF_VOTE", util.CodeOf(err))

	count, err := f.svc.Upvote(ctx, citizen("dave@example.com"), issue.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	_, err = f.svc.Upvote(ctx, citizen("dave@example.com"), issue.ID)
	assert.Equal(t, "DUPLICATE_VOTE", util.CodeOf(err))

	_, err = f.svc.Upvote(ctx, citizen("dave@example.com"), "missing-id")
	assert.Equal(t, "NOT_FOUND", util.CodeOf(err))
}

func TestUpvoteConcurrentVotersAllCount(t *testing.T) {
	f := newIssueFixture(t)
	ctx := context.Background()
	issue := f.reportIssue(t, citizen("alice@example.com"))

	voters := []string{"v1@example.com", "v2@example.com", "v3@example.com", "v4@example.com"}
	var wg sync.WaitGroup
	for _, voter := range voters {
		wg.Add(1)
		go func(email string) {
			defer wg.Done()
			_, err := f.svc.Upvote(ctx, citizen(email), issue.ID)
			assert.NoError(t, err)
		}(voter)
	}
	wg.Wait()

	stored, err := f.issues.GetByID(ctx, issue.ID)
	require.NoError(t, err)
	assert.Equal(t, len(voters), stored.Upvotes)
	assert.Len(t, stored.VoterEmails, len(voters))
}

func TestUpvoteConcurrentSameVoterCountsOnce(t *testing.T) {
	f := newIssueFixture(t)
	ctx := context.Background()
	issue := f.reportIssue(t, citizen("alice@example.com"))

	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = f.svc.Upvote(ctx, citizen("dave@example.com"), issue.ID)
		}()
	}
	wg.Wait()

	stored, err := f.issues.GetByID(ctx, issue.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, stored.Upvotes)
}

func TestDeleteIssueOnlyWhilePending(t *testing.T) {
	f := newIssueFixture(t)
	ctx := context.Background()
	owner := citizen("alice@example.com")

	issue := f.reportIssue(t, owner)
	require.NoError(t, f.svc.DeleteIssue(ctx, owner, issue.ID))
	_, err := f.issues.GetByID(ctx, issue.ID)
	assert.Error(t, err)

	issue = f.reportIssue(t, owner)
	f.assignTo(t, issue.ID, "bob@staff.example.com", "Bob")
	err = f.svc.DeleteIssue(ctx, owner, issue.ID)
	assert.Equal(t, "INVALID_STATE", util.CodeOf(err))
}

func TestDeleteIssueOwnershipIsExact(t *testing.T) {
	f := newIssueFixture(t)
	issue := f.reportIssue(t, citizen("alice@example.com"))

	err := f.svc.DeleteIssue(context.Background(), citizen("Alice@example.com"), issue.ID)
	assert.Equal(t, "FORBIDDEN", util.CodeOf(err))

	require.NoError(t, f.svc.DeleteIssue(context.Background(), admin("root@example.com"), issue.ID))
}

func TestGetIssueVisibility(t *testing.T) {
	f := newIssueFixture(t)
	ctx := context.Background()
	owner := citizen("alice@example.com")
	issue := f.reportIssue(t, owner)

	_, _, err := f.svc.GetIssue(ctx, owner, issue.ID)
	assert.NoError(t, err)

	_, _, err = f.svc.GetIssue(ctx, staff("bob@staff.example.com", "district-7"), issue.ID)
	assert.NoError(t, err)

	_, _, err = f.svc.GetIssue(ctx, staff("eve@staff.example.com", "district-9"), issue.ID)
	assert.Equal(t, "FORBIDDEN", util.CodeOf(err))

	_, _, err = f.svc.GetIssue(ctx, citizen("dave@example.com"), issue.ID)
	assert.Equal(t, "FORBIDDEN", util.CodeOf(err))

	_, _, err = f.svc.GetIssue(ctx, admin("root@example.com"), issue.ID)
	assert.NoError(t, err)
}

func TestDashboardCounts(t *testing.T) {
	f := newIssueFixture(t)
	ctx := context.Background()
	owner := citizen("alice@example.com")

	first := f.reportIssue(t, owner)
	f.reportIssue(t, owner)
	f.assignTo(t, first.ID, "bob@staff.example.com", "Bob")

	dashboard, err := f.svc.GetDashboard(ctx, owner)
	require.NoError(t, err)
	assert.Len(t, dashboard.Issues, 2)
	assert.Equal(t, 1, dashboard.Counts[domain.IssueStatusPending])
	assert.Equal(t, 1, dashboard.Counts[domain.IssueStatusInProgress])
}

func TestTimelineTimestampsNeverDecrease(t *testing.T) {
	f := newIssueFixture(t)
	ctx := context.Background()

	// Clock that jumps backwards between appends.
	times := []time.Time{
		time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
		time.Date(2026, 3, 1, 11, 0, 0, 0, time.UTC),
		time.Date(2026, 3, 1, 13, 0, 0, 0, time.UTC),
	}
	idx := 0
	f.recorder.WithClock(func() time.Time {
		ts := times[idx%len(times)]
		idx++
		return ts
	})

	issue := f.reportIssue(t, citizen("alice@example.com"))
	for _, voter := range []string{"v1@example.com", "v2@example.com"} {
		_, err := f.svc.Upvote(ctx, citizen(voter), issue.ID)
		require.NoError(t, err)
	}

	entries, err := f.recorder.List(ctx, issue.ID)
	require.NoError(t, err)
	require.Len(t, entries, 3)
	for i := 1; i < len(entries); i++ {
		assert.False(t, entries[i].CreatedAt.Before(entries[i-1].CreatedAt),
			"entry %d is earlier than entry %d", i, i-1)
	}
}
