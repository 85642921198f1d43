package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/civicworks/issue-service/internal/authz"
	"github.com/civicworks/issue-service/internal/cache"
	"github.com/civicworks/issue-service/internal/domain"
	"github.com/civicworks/issue-service/internal/events"
	"github.com/civicworks/issue-service/internal/repository"
	"github.com/civicworks/issue-service/internal/timeline"
	"github.com/civicworks/issue-service/pkg/util"
)

// allowedTransitions is the authoritative staff-driven lifecycle table.
// PENDING -> IN_PROGRESS is deliberately absent: it only happens through
// assignment, which applies the assignee and the status change together.
// Admin rejection to CLOSED from any non-terminal state goes through
// RejectIssue.
var allowedTransitions = map[domain.IssueStatus][]domain.IssueStatus{
	domain.IssueStatusPending:    {domain.IssueStatusClosed},
	domain.IssueStatusInProgress: {domain.IssueStatusWorking},
	domain.IssueStatusWorking:    {domain.IssueStatusResolved},
	domain.IssueStatusResolved:   {domain.IssueStatusClosed},
	domain.IssueStatusClosed:     {},
}

func isValidTransition(current, next domain.IssueStatus) bool {
	for _, candidate := range allowedTransitions[current] {
		if candidate == next {
			return true
		}
	}
	return false
}

// IssueService coordinates the issue lifecycle: creation, the status state
// machine, the upvote ledger and deletion.
type IssueService struct {
	issues     repository.IssueRepository
	recorder   *timeline.Recorder
	cache      *cache.IssueCache
	dispatcher events.Dispatcher
}

// IssueDependencies bundles collaborators for the issue service.
type IssueDependencies struct {
	IssueRepo  repository.IssueRepository
	Recorder   *timeline.Recorder
	Cache      *cache.IssueCache
	Dispatcher events.Dispatcher
}

// IssueCreateInput describes issue creation payload.
type IssueCreateInput struct {
	Title       string
	Description string
	Category    string
	Region      string
	District    string
}

// Dashboard aggregates a citizen's own issues with simple per-status counts.
type Dashboard struct {
	Issues []domain.Issue
	Counts map[domain.IssueStatus]int
}

// NewIssueService constructs the service.
func NewIssueService(deps IssueDependencies) *IssueService {
	return &IssueService{
		issues:     deps.IssueRepo,
		recorder:   deps.Recorder,
		cache:      deps.Cache,
		dispatcher: deps.Dispatcher,
	}
}

// CreateIssue registers a new PENDING issue owned by the reporting citizen
// and seeds its timeline, so the timeline is never empty once created.
func (s *IssueService) CreateIssue(ctx context.Context, actor domain.Identity, input IssueCreateInput) (*domain.Issue, error) {
	if actor.Email == "" {
		return nil, util.NewUnauthenticated("identity required")
	}
	issue := &domain.Issue{
		Title:       strings.TrimSpace(input.Title),
		Description: strings.TrimSpace(input.Description),
		Category:    strings.TrimSpace(input.Category),
		Region:      strings.TrimSpace(input.Region),
		District:    strings.TrimSpace(input.District),
		OwnerEmail:  actor.Email,
		Status:      domain.IssueStatusPending,
		Priority:    domain.IssuePriorityNormal,
	}
	if issue.Title == "" || issue.Description == "" || issue.District == "" {
		return nil, util.NewValidationError("title, description, district required", nil)
	}

	if err := s.issues.Create(ctx, issue); err != nil {
		return nil, util.MapError(err)
	}
	if _, err := s.recorder.Append(ctx, issue.ID, timeline.Entry{
		Status:     &issue.Status,
		Message:    "Issue reported",
		ActorEmail: actor.Email,
		ActorRole:  actor.Role,
	}); err != nil {
		return nil, err
	}
	s.publishEvent(ctx, events.Event{
		Type:    events.EventIssueCreated,
		IssueID: issue.ID,
		Actor:   events.Actor{Email: actor.Email, Role: actor.Role},
		Payload: events.IssueCreatedPayload{
			Title:    issue.Title,
			Category: issue.Category,
			District: issue.District,
		},
	})
	return issue, nil
}

// GetIssue returns an issue with its timeline for callers allowed to see
// it: the owner, staff working its district or assignment, and admins.
func (s *IssueService) GetIssue(ctx context.Context, actor domain.Identity, issueID string) (*domain.Issue, []domain.TimelineEntry, error) {
	issue := s.cache.Get(ctx, issueID)
	if issue == nil {
		fetched, err := s.fetchIssue(ctx, issueID)
		if err != nil {
			return nil, nil, err
		}
		issue = fetched
		s.cache.Set(ctx, issue)
	}
	if !canViewIssue(actor, issue) {
		return nil, nil, util.NewForbidden("not allowed to view this issue")
	}
	entries, err := s.recorder.List(ctx, issueID)
	if err != nil {
		return nil, nil, err
	}
	return issue, entries, nil
}

// ListOwnIssues returns the caller's reported issues.
func (s *IssueService) ListOwnIssues(ctx context.Context, actor domain.Identity, limit, offset int) ([]domain.Issue, error) {
	issues, err := s.issues.ListByOwner(ctx, actor.Email, limit, offset)
	if err != nil {
		return nil, util.MapError(err)
	}
	return issues, nil
}

// GetDashboard returns the caller's issues and per-status counts.
func (s *IssueService) GetDashboard(ctx context.Context, actor domain.Identity) (*Dashboard, error) {
	if err := authz.Authorize(actor, authz.ActionViewDashboard, authz.Resource{OwnerEmail: actor.Email}); err != nil {
		return nil, err
	}
	issues, err := s.issues.ListByOwner(ctx, actor.Email, 100, 0)
	if err != nil {
		return nil, util.MapError(err)
	}
	counts, err := s.issues.CountByStatusForOwner(ctx, actor.Email)
	if err != nil {
		return nil, util.MapError(err)
	}
	return &Dashboard{Issues: issues, Counts: counts}, nil
}

// RequestTransition drives the status state machine: fetch, authorize,
// validate against the transition table, then compare-and-set persist and
// append the timeline entry. Status never skips or reverses outside the
// table.
func (s *IssueService) RequestTransition(ctx context.Context, actor domain.Identity, issueID string, target domain.IssueStatus, note string) (*domain.Issue, error) {
	if !domain.ValidStatus(target) {
		return nil, util.NewValidationError("unknown target status", map[string]any{"target_status": target})
	}
	issue, err := s.fetchIssue(ctx, issueID)
	if err != nil {
		return nil, err
	}
	if err := authz.Authorize(actor, authz.ActionChangeStatus, issueResource(issue)); err != nil {
		return nil, err
	}
	if !isValidTransition(issue.Status, target) {
		return nil, util.NewInvalidTransition(string(issue.Status), string(target))
	}

	current := issue.Status
	if err := s.issues.UpdateStatus(ctx, issueID, current, target); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, s.transitionConflict(ctx, issueID, target)
		}
		return nil, util.MapError(err)
	}
	s.cache.Invalidate(ctx, issueID)

	message := strings.TrimSpace(note)
	if message == "" {
		message = fmt.Sprintf("Status changed to %s", target)
	}
	if _, err := s.recorder.Append(ctx, issueID, timeline.Entry{
		Status:     &target,
		Message:    message,
		ActorEmail: actor.Email,
		ActorRole:  actor.Role,
	}); err != nil {
		return nil, err
	}

	issue.Status = target
	s.publishEvent(ctx, events.Event{
		Type:    events.EventIssueStatusChanged,
		IssueID: issueID,
		Actor:   events.Actor{Email: actor.Email, Role: actor.Role},
		Payload: events.IssueStatusChangedPayload{
			OldStatus: current,
			NewStatus: target,
			Note:      note,
		},
	})
	return issue, nil
}

// RejectIssue is the admin shortcut: force CLOSED from any non-terminal
// state, with a reason recorded on the timeline.
func (s *IssueService) RejectIssue(ctx context.Context, actor domain.Identity, issueID, reason string) (*domain.Issue, error) {
	issue, err := s.fetchIssue(ctx, issueID)
	if err != nil {
		return nil, err
	}
	if err := authz.Authorize(actor, authz.ActionRejectIssue, issueResource(issue)); err != nil {
		return nil, err
	}
	if issue.Status == domain.IssueStatusClosed {
		return nil, util.NewInvalidTransition(string(issue.Status), string(domain.IssueStatusClosed))
	}

	current := issue.Status
	if err := s.issues.UpdateStatus(ctx, issueID, current, domain.IssueStatusClosed); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, s.transitionConflict(ctx, issueID, domain.IssueStatusClosed)
		}
		return nil, util.MapError(err)
	}
	s.cache.Invalidate(ctx, issueID)

	closed := domain.IssueStatusClosed
	if _, err := s.recorder.Append(ctx, issueID, timeline.Entry{
		Status:     &closed,
		Message:    fmt.Sprintf("Rejected: %s", strings.TrimSpace(reason)),
		ActorEmail: actor.Email,
		ActorRole:  actor.Role,
	}); err != nil {
		return nil, err
	}

	issue.Status = closed
	s.publishEvent(ctx, events.Event{
		Type:    events.EventIssueStatusChanged,
		IssueID: issueID,
		Actor:   events.Actor{Email: actor.Email, Role: actor.Role},
		Payload: events.IssueStatusChangedPayload{
			OldStatus: current,
			NewStatus: closed,
			Note:      reason,
		},
	})
	return issue, nil
}

// Upvote applies one vote: never from the owner, never twice from the same
// voter. The counter increment and the voter-set insertion are one atomic
// update, so racing votes cannot lose an increment.
func (s *IssueService) Upvote(ctx context.Context, actor domain.Identity, issueID string) (int, error) {
	issue, err := s.fetchIssue(ctx, issueID)
	if err != nil {
		return 0, err
	}
	if issue.OwnerEmail == actor.Email {
		return 0, util.NewSelfVote()
	}
	if issue.HasVoter(actor.Email) {
		return 0, util.NewDuplicateVote()
	}

	count, err := s.issues.AddVoter(ctx, issueID, actor.Email)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, s.voteConflict(ctx, issueID, actor.Email)
		}
		return 0, util.MapError(err)
	}
	s.cache.Invalidate(ctx, issueID)

	if _, err := s.recorder.Append(ctx, issueID, timeline.Entry{
		Message:    fmt.Sprintf("Upvoted by %s", actor.Email),
		ActorEmail: actor.Email,
		ActorRole:  domain.RoleCitizen,
	}); err != nil {
		return 0, err
	}
	s.publishEvent(ctx, events.Event{
		Type:    events.EventIssueUpvoted,
		IssueID: issueID,
		Actor:   events.Actor{Email: actor.Email, Role: actor.Role},
		Payload: events.IssueUpvotedPayload{VoterEmail: actor.Email, Upvotes: count},
	})
	return count, nil
}

// DeleteIssue removes an issue that has not progressed past PENDING; only
// the owning citizen (or an admin) may delete.
func (s *IssueService) DeleteIssue(ctx context.Context, actor domain.Identity, issueID string) error {
	issue, err := s.fetchIssue(ctx, issueID)
	if err != nil {
		return err
	}
	if err := authz.Authorize(actor, authz.ActionDeleteIssue, issueResource(issue)); err != nil {
		return err
	}
	if issue.Status != domain.IssueStatusPending {
		return util.NewInvalidState("issue can only be deleted while pending",
			map[string]any{"status": issue.Status})
	}

	if err := s.issues.DeletePending(ctx, issueID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			// Either gone or progressed concurrently.
			if _, fetchErr := s.issues.GetByID(ctx, issueID); fetchErr != nil {
				return util.NewNotFound("issue", map[string]any{"issue_id": issueID})
			}
			return util.NewInvalidState("issue can only be deleted while pending", nil)
		}
		return util.MapError(err)
	}
	s.cache.Invalidate(ctx, issueID)
	return nil
}

func (s *IssueService) fetchIssue(ctx context.Context, issueID string) (*domain.Issue, error) {
	issue, err := s.issues.GetByID(ctx, issueID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, util.NewNotFound("issue", map[string]any{"issue_id": issueID})
		}
		return nil, util.MapError(err)
	}
	return issue, nil
}

// transitionConflict re-reads after a failed compare-and-set to report the
// precise cause: the issue vanished or its status moved concurrently.
func (s *IssueService) transitionConflict(ctx context.Context, issueID string, target domain.IssueStatus) error {
	issue, err := s.issues.GetByID(ctx, issueID)
	if err != nil {
		return util.NewNotFound("issue", map[string]any{"issue_id": issueID})
	}
	return util.NewInvalidTransition(string(issue.Status), string(target))
}

func (s *IssueService) voteConflict(ctx context.Context, issueID, voterEmail string) error {
	issue, err := s.issues.GetByID(ctx, issueID)
	if err != nil {
		return util.NewNotFound("issue", map[string]any{"issue_id": issueID})
	}
	if issue.OwnerEmail == voterEmail {
		return util.NewSelfVote()
	}
	if issue.HasVoter(voterEmail) {
		return util.NewDuplicateVote()
	}
	return util.NewConflict("vote could not be applied", map[string]any{"issue_id": issueID})
}

func canViewIssue(actor domain.Identity, issue *domain.Issue) bool {
	if actor.Role == domain.RoleAdmin {
		return true
	}
	if issue.OwnerEmail == actor.Email {
		return true
	}
	if actor.Role == domain.RoleStaff {
		if issue.Assigned() && *issue.AssigneeEmail == actor.Email {
			return true
		}
		if issue.District == actor.DistrictValue() {
			return true
		}
	}
	return false
}

func issueResource(issue *domain.Issue) authz.Resource {
	return authz.Resource{
		OwnerEmail:    issue.OwnerEmail,
		AssigneeEmail: issue.AssigneeEmail,
		District:      issue.District,
		Status:        issue.Status,
	}
}

func (s *IssueService) publishEvent(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	_ = s.dispatcher.Publish(ctx, event)
}
