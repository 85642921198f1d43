package service

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/civicworks/issue-service/internal/domain"
	"github.com/civicworks/issue-service/internal/repository"
	"github.com/civicworks/issue-service/pkg/util"
)

// ApplicationService manages staff applications: a citizen applies for a
// district, an admin accepts or rejects. Accepting promotes the user to
// STAFF for that district.
type ApplicationService struct {
	applications repository.ApplicationRepository
	users        repository.UserRepository
}

// NewApplicationService constructs the service.
func NewApplicationService(applications repository.ApplicationRepository, users repository.UserRepository) *ApplicationService {
	return &ApplicationService{applications: applications, users: users}
}

// Submit files a staff application for the caller.
func (s *ApplicationService) Submit(ctx context.Context, actor domain.Identity, name, district string) (*domain.StaffApplication, error) {
	name = strings.TrimSpace(name)
	district = strings.TrimSpace(district)
	if name == "" || district == "" {
		return nil, util.NewValidationError("name and district required", nil)
	}
	if actor.Role != domain.RoleCitizen {
		return nil, util.NewConflict("only citizens can apply for staff", nil)
	}

	app := &domain.StaffApplication{
		Name:     name,
		Email:    actor.Email,
		District: district,
		Status:   domain.ApplicationStatusPending,
	}
	if err := s.applications.Create(ctx, app); err != nil {
		return nil, util.MapError(err)
	}
	if err := s.applications.AppendEvent(ctx, &domain.ApplicationEvent{
		ApplicationID: app.ID,
		Status:        app.Status,
		Message:       "Application submitted",
		ActorEmail:    actor.Email,
		ActorRole:     actor.Role,
	}); err != nil {
		return nil, util.MapError(err)
	}
	return app, nil
}

// List returns applications, optionally filtered by status. Admin only.
func (s *ApplicationService) List(ctx context.Context, status *domain.ApplicationStatus, limit, offset int) ([]domain.StaffApplication, error) {
	apps, err := s.applications.List(ctx, status, limit, offset)
	if err != nil {
		return nil, util.MapError(err)
	}
	return apps, nil
}

// Get returns one application with its audit events.
func (s *ApplicationService) Get(ctx context.Context, id string) (*domain.StaffApplication, []domain.ApplicationEvent, error) {
	app, err := s.loadApplication(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	appEvents, err := s.applications.ListEvents(ctx, id)
	if err != nil {
		return nil, nil, util.MapError(err)
	}
	return app, appEvents, nil
}

// Accept resolves a pending application and promotes the applicant to STAFF
// for the applied district.
func (s *ApplicationService) Accept(ctx context.Context, actor domain.Identity, id string) (*domain.StaffApplication, error) {
	app, err := s.resolve(ctx, actor, id, domain.ApplicationStatusAccepted, "Application accepted")
	if err != nil {
		return nil, err
	}
	district := app.District
	if err := s.users.SetRole(ctx, app.Email, domain.RoleStaff, &district); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, util.NewNotFound("user", map[string]any{"email": app.Email})
		}
		return nil, util.MapError(err)
	}
	return app, nil
}

// Reject resolves a pending application without promotion.
func (s *ApplicationService) Reject(ctx context.Context, actor domain.Identity, id, reason string) (*domain.StaffApplication, error) {
	message := "Application rejected"
	if reason = strings.TrimSpace(reason); reason != "" {
		message = "Application rejected: " + reason
	}
	return s.resolve(ctx, actor, id, domain.ApplicationStatusRejected, message)
}

func (s *ApplicationService) resolve(ctx context.Context, actor domain.Identity, id string, target domain.ApplicationStatus, message string) (*domain.StaffApplication, error) {
	app, err := s.loadApplication(ctx, id)
	if err != nil {
		return nil, err
	}
	if app.Status != domain.ApplicationStatusPending {
		return nil, util.NewInvalidState("application already resolved",
			map[string]any{"status": app.Status})
	}

	if err := s.applications.UpdateStatus(ctx, id, domain.ApplicationStatusPending, target); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			// Resolved or removed concurrently.
			if current, fetchErr := s.applications.GetByID(ctx, id); fetchErr == nil {
				return nil, util.NewInvalidState("application already resolved",
					map[string]any{"status": current.Status})
			}
			return nil, util.NewNotFound("application", map[string]any{"application_id": id})
		}
		return nil, util.MapError(err)
	}

	app.Status = target
	if err := s.applications.AppendEvent(ctx, &domain.ApplicationEvent{
		ApplicationID: id,
		Status:        target,
		Message:       message,
		ActorEmail:    actor.Email,
		ActorRole:     actor.Role,
	}); err != nil {
		return nil, util.MapError(err)
	}
	return app, nil
}

func (s *ApplicationService) loadApplication(ctx context.Context, id string) (*domain.StaffApplication, error) {
	app, err := s.applications.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, util.NewNotFound("application", map[string]any{"application_id": id})
		}
		return nil, util.MapError(err)
	}
	return app, nil
}
