package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/civicworks/issue-service/internal/domain"
	"github.com/civicworks/issue-service/pkg/util"
)

func newUserFixture(t *testing.T) (*UserService, *fakeUserRepo) {
	t.Helper()
	users := newFakeUserRepo()
	users.put(domain.User{Email: "alice@example.com", Name: "Alice", Role: domain.RoleCitizen})
	return NewUserService(users), users
}

func TestUpdateProfile(t *testing.T) {
	svc, _ := newUserFixture(t)

	user, err := svc.UpdateProfile(context.Background(), citizen("alice@example.com"), "Alice B.")
	require.NoError(t, err)
	assert.Equal(t, "Alice B.", user.Name)

	_, err = svc.UpdateProfile(context.Background(), citizen("alice@example.com"), "  ")
	assert.Equal(t, "VALIDATION_FAILED", util.CodeOf(err))
}

func TestUpdateRoleAdminOnly(t *testing.T) {
	svc, _ := newUserFixture(t)
	ctx := context.Background()

	_, err := svc.UpdateRole(ctx, citizen("alice@example.com"), "alice@example.com", domain.RoleAdmin, nil)
	assert.Equal(t, "FORBIDDEN", util.CodeOf(err))

	district := "district-7"
	user, err := svc.UpdateRole(ctx, admin("root@example.com"), "alice@example.com", domain.RoleStaff, &district)
	require.NoError(t, err)
	assert.Equal(t, domain.RoleStaff, user.Role)
	require.NotNil(t, user.District)
	assert.Equal(t, "district-7", *user.District)
}

func TestUpdateRoleStaffNeedsDistrict(t *testing.T) {
	svc, _ := newUserFixture(t)

	_, err := svc.UpdateRole(context.Background(), admin("root@example.com"), "alice@example.com", domain.RoleStaff, nil)
	assert.Equal(t, "VALIDATION_FAILED", util.CodeOf(err))
}

func TestSetBlocked(t *testing.T) {
	svc, users := newUserFixture(t)
	ctx := context.Background()

	user, err := svc.SetBlocked(ctx, admin("root@example.com"), "alice@example.com", true)
	require.NoError(t, err)
	assert.True(t, user.IsBlocked)

	stored, err := users.GetByEmail(ctx, "alice@example.com")
	require.NoError(t, err)
	assert.True(t, stored.IsBlocked)

	_, err = svc.SetBlocked(ctx, staff("bob@staff.example.com", "district-7"), "alice@example.com", true)
	assert.Equal(t, "FORBIDDEN", util.CodeOf(err))
}
