package authz

import (
	"github.com/civicworks/issue-service/internal/domain"
	"github.com/civicworks/issue-service/pkg/util"
)

// Action identifies an engine operation being authorized.
type Action string

const (
	ActionChangeStatus  Action = "change-status"
	ActionDeleteIssue   Action = "delete-issue"
	ActionClaimIssue    Action = "claim-issue"
	ActionAssignIssue   Action = "assign-issue"
	ActionRejectIssue   Action = "reject-issue"
	ActionEditProfile   Action = "edit-profile"
	ActionViewDashboard Action = "view-dashboard"
)

// Resource carries the attributes of the target an action is evaluated
// against. Fields irrelevant to an action are left zero.
type Resource struct {
	OwnerEmail    string
	AssigneeEmail *string
	District      string
	Status        domain.IssueStatus
}

// Authorize decides whether the actor may perform action on resource. It is
// a pure decision function: no side effects, fail-closed. Rules apply in
// priority order: admin passes everything; ownership actions require an
// exact case-sensitive match on the stored email; staff actions require the
// current assignment to name the actor, or, for claiming, a district match
// on a pending issue.
func Authorize(actor domain.Identity, action Action, res Resource) error {
	if actor.Email == "" {
		return util.NewUnauthenticated("no verified identity")
	}
	if actor.Role == domain.RoleAdmin {
		return nil
	}

	switch action {
	case ActionDeleteIssue, ActionEditProfile, ActionViewDashboard:
		if actor.Email == res.OwnerEmail {
			return nil
		}
		return util.NewForbidden("not the owner")

	case ActionChangeStatus:
		if actor.Role == domain.RoleStaff && assignedTo(res, actor.Email) {
			return nil
		}
		return util.NewForbidden("not assigned to this issue")

	case ActionClaimIssue:
		if actor.Role != domain.RoleStaff {
			return util.NewForbidden("staff role required")
		}
		if assignedTo(res, actor.Email) {
			return nil
		}
		if res.Status == domain.IssueStatusPending && res.District == actor.DistrictValue() {
			return nil
		}
		return util.NewForbidden("issue outside registered district")
	}

	// Unknown or admin-only actions are denied by default.
	return util.NewForbidden("action not permitted")
}

func assignedTo(res Resource, email string) bool {
	return res.AssigneeEmail != nil && *res.AssigneeEmail == email
}
