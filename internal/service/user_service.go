package service

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/civicworks/issue-service/internal/authz"
	"github.com/civicworks/issue-service/internal/domain"
	"github.com/civicworks/issue-service/internal/repository"
	"github.com/civicworks/issue-service/pkg/util"
)

// UserService covers profile reads and admin user management.
type UserService struct {
	users repository.UserRepository
}

// NewUserService constructs the service.
func NewUserService(users repository.UserRepository) *UserService {
	return &UserService{users: users}
}

// GetProfile returns the stored user for the caller.
func (s *UserService) GetProfile(ctx context.Context, actor domain.Identity) (*domain.User, error) {
	return s.loadUser(ctx, actor.Email)
}

// UpdateProfile changes the caller's display name.
func (s *UserService) UpdateProfile(ctx context.Context, actor domain.Identity, name string) (*domain.User, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, util.NewValidationError("name required", nil)
	}
	if err := authz.Authorize(actor, authz.ActionEditProfile, authz.Resource{OwnerEmail: actor.Email}); err != nil {
		return nil, err
	}

	user, err := s.loadUser(ctx, actor.Email)
	if err != nil {
		return nil, err
	}
	user.Name = name
	if err := s.users.Update(ctx, user); err != nil {
		return nil, util.MapError(err)
	}
	return user, nil
}

// UpdateRole lets an admin change a user's role; staff require a district.
func (s *UserService) UpdateRole(ctx context.Context, actor domain.Identity, email string, role domain.Role, district *string) (*domain.User, error) {
	if actor.Role != domain.RoleAdmin {
		return nil, util.NewForbidden("admin role required")
	}
	switch role {
	case domain.RoleCitizen, domain.RoleStaff, domain.RoleAdmin:
	default:
		return nil, util.NewValidationError("unknown role", map[string]any{"role": role})
	}
	if role == domain.RoleStaff && (district == nil || strings.TrimSpace(*district) == "") {
		return nil, util.NewValidationError("staff role requires a district", nil)
	}
	if role != domain.RoleStaff {
		district = nil
	}

	if err := s.users.SetRole(ctx, email, role, district); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, util.NewNotFound("user", map[string]any{"email": email})
		}
		return nil, util.MapError(err)
	}
	return s.loadUser(ctx, email)
}

// SetBlocked toggles a user's blocked flag; blocked users fail
// authentication on the next request.
func (s *UserService) SetBlocked(ctx context.Context, actor domain.Identity, email string, blocked bool) (*domain.User, error) {
	if actor.Role != domain.RoleAdmin {
		return nil, util.NewForbidden("admin role required")
	}
	user, err := s.loadUser(ctx, email)
	if err != nil {
		return nil, err
	}
	user.IsBlocked = blocked
	if err := s.users.Update(ctx, user); err != nil {
		return nil, util.MapError(err)
	}
	return user, nil
}

func (s *UserService) loadUser(ctx context.Context, email string) (*domain.User, error) {
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, util.NewNotFound("user", map[string]any{"email": email})
		}
		return nil, util.MapError(err)
	}
	return user, nil
}
