package service

import (
	"context"
	"errors"
	"fmt"
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

// AssignmentService handles claiming and assigning issues. Assignment is a
// compound operation: the assignee and the PENDING -> IN_PROGRESS transition
// are applied together, never separately.
type AssignmentService struct {
	issues     repository.IssueRepository
	users      repository.UserRepository
	recorder   *timeline.Recorder
	cache      *cache.IssueCache
	dispatcher events.Dispatcher
}

// NewAssignmentService constructs the service.
func NewAssignmentService(
	issues repository.IssueRepository,
	users repository.UserRepository,
	recorder *timeline.Recorder,
	issueCache *cache.IssueCache,
	dispatcher events.Dispatcher,
) *AssignmentService {
	return &AssignmentService{
		issues:     issues,
		users:      users,
		recorder:   recorder,
		cache:      issueCache,
		dispatcher: dispatcher,
	}
}

// ClaimIssue lets a staff member take an unassigned pending issue in their
// own district.
func (s *AssignmentService) ClaimIssue(ctx context.Context, actor domain.Identity, issueID string) (*domain.Issue, error) {
	issue, err := s.loadIssue(ctx, issueID)
	if err != nil {
		return nil, err
	}
	if issue.Assigned() {
		return nil, util.NewAlreadyAssigned(issueID)
	}
	if err := authz.Authorize(actor, authz.ActionClaimIssue, issueResource(issue)); err != nil {
		return nil, err
	}

	staff, err := s.users.GetByEmail(ctx, actor.Email)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, util.NewUnauthenticated("user not found")
		}
		return nil, util.MapError(err)
	}

	return s.assign(ctx, actor, issue, staff)
}

// AssignIssue lets an admin hand a pending issue to any staff member,
// regardless of district.
func (s *AssignmentService) AssignIssue(ctx context.Context, actor domain.Identity, issueID, staffEmail string) (*domain.Issue, error) {
	issue, err := s.loadIssue(ctx, issueID)
	if err != nil {
		return nil, err
	}
	if err := authz.Authorize(actor, authz.ActionAssignIssue, issueResource(issue)); err != nil {
		return nil, err
	}
	if issue.Assigned() {
		return nil, util.NewAlreadyAssigned(issueID)
	}

	staff, err := s.users.GetByEmail(ctx, staffEmail)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, util.NewNotFound("staff user", map[string]any{"email": staffEmail})
		}
		return nil, util.MapError(err)
	}
	if staff.Role != domain.RoleStaff {
		return nil, util.NewValidationError("assignee must be a staff member",
			map[string]any{"email": staffEmail, "role": staff.Role})
	}

	return s.assign(ctx, actor, issue, staff)
}

// ListWorkQueue returns the staff member's queue: their assigned issues plus
// unclaimed pending issues in their district, boosted issues first.
func (s *AssignmentService) ListWorkQueue(ctx context.Context, actor domain.Identity, limit, offset int) ([]domain.Issue, error) {
	if actor.Role != domain.RoleStaff && actor.Role != domain.RoleAdmin {
		return nil, util.NewForbidden("staff role required")
	}
	issues, err := s.issues.ListWorkQueue(ctx, actor.Email, actor.DistrictValue(), limit, offset)
	if err != nil {
		return nil, util.MapError(err)
	}
	return issues, nil
}

func (s *AssignmentService) assign(ctx context.Context, actor domain.Identity, issue *domain.Issue, staff *domain.User) (*domain.Issue, error) {
	if err := s.issues.Assign(ctx, issue.ID, staff.Email, staff.Name); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, s.assignConflict(ctx, issue.ID)
		}
		return nil, util.MapError(err)
	}
	s.cache.Invalidate(ctx, issue.ID)

	inProgress := domain.IssueStatusInProgress
	if _, err := s.recorder.Append(ctx, issue.ID, timeline.Entry{
		Status:     &inProgress,
		Message:    fmt.Sprintf("Assigned to %s", staff.Name),
		ActorEmail: actor.Email,
		ActorRole:  actor.Role,
	}); err != nil {
		return nil, err
	}

	issue.Status = inProgress
	issue.AssigneeEmail = &staff.Email
	issue.AssigneeName = &staff.Name

	s.publish(ctx, events.Event{
		Type:    events.EventIssueAssigned,
		IssueID: issue.ID,
		Actor:   events.Actor{Email: actor.Email, Role: actor.Role},
		Payload: events.IssueAssignedPayload{
			AssigneeEmail: staff.Email,
			AssigneeName:  staff.Name,
		},
	})
	return issue, nil
}

// assignConflict re-reads after a failed guarded update: a racing claim won,
// the issue progressed, or it was deleted.
func (s *AssignmentService) assignConflict(ctx context.Context, issueID string) error {
	issue, err := s.issues.GetByID(ctx, issueID)
	if err != nil {
		return util.NewNotFound("issue", map[string]any{"issue_id": issueID})
	}
	if issue.Assigned() {
		return util.NewAlreadyAssigned(issueID)
	}
	return util.NewInvalidTransition(string(issue.Status), string(domain.IssueStatusInProgress))
}

func (s *AssignmentService) loadIssue(ctx context.Context, issueID string) (*domain.Issue, error) {
	issue, err := s.issues.GetByID(ctx, issueID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, util.NewNotFound("issue", map[string]any{"issue_id": issueID})
		}
		return nil, util.MapError(err)
	}
	return issue, nil
}

func (s *AssignmentService) publish(ctx context.Context, event events.Event) {
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
