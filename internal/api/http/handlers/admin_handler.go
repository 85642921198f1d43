package handlers

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/civicworks/issue-service/internal/api/dto"
	"github.com/civicworks/issue-service/internal/service"
	"github.com/civicworks/issue-service/pkg/util"
)

// AdminHandler manages administrative issue and user operations.
type AdminHandler struct {
	issues      *service.IssueService
	assignments *service.AssignmentService
	users       *service.UserService
}

// NewAdminHandler constructs handler.
func NewAdminHandler(issues *service.IssueService, assignments *service.AssignmentService, users *service.UserService) *AdminHandler {
	return &AdminHandler{issues: issues, assignments: assignments, users: users}
}

// AssignIssue POST /admin/issues/:id/assign.
func (h *AdminHandler) AssignIssue(c *fiber.Ctx) error {
	identity, err := requireIdentity(c)
	if err != nil {
		return err
	}
	var req dto.AssignIssueRequest
	if err := c.BodyParser(&req); err != nil {
		return util.NewValidationError("invalid payload", nil)
	}
	if req.StaffEmail == "" {
		return util.NewValidationError("staff_email required", nil)
	}

	issue, err := h.assignments.AssignIssue(c.Context(), identity, c.Params("id"), req.StaffEmail)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": issueSummary(issue)})
}

// RejectIssue POST /admin/issues/:id/reject.
func (h *AdminHandler) RejectIssue(c *fiber.Ctx) error {
	identity, err := requireIdentity(c)
	if err != nil {
		return err
	}
	var req dto.RejectIssueRequest
	if err := c.BodyParser(&req); err != nil {
		return util.NewValidationError("invalid payload", nil)
	}
	if strings.TrimSpace(req.Reason) == "" {
		return util.NewValidationError("reason required", nil)
	}

	issue, err := h.issues.RejectIssue(c.Context(), identity, c.Params("id"), req.Reason)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": issueSummary(issue)})
}

// UpdateRole PATCH /admin/users/:email/role.
func (h *AdminHandler) UpdateRole(c *fiber.Ctx) error {
	identity, err := requireIdentity(c)
	if err != nil {
		return err
	}
	var req dto.UpdateRoleRequest
	if err := c.BodyParser(&req); err != nil {
		return util.NewValidationError("invalid payload", nil)
	}

	user, err := h.users.UpdateRole(c.Context(), identity, c.Params("email"), req.Role, req.District)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": userResponse(user)})
}

// SetBlocked PATCH /admin/users/:email/block.
func (h *AdminHandler) SetBlocked(c *fiber.Ctx) error {
	identity, err := requireIdentity(c)
	if err != nil {
		return err
	}
	var req dto.SetBlockedRequest
	if err := c.BodyParser(&req); err != nil {
		return util.NewValidationError("invalid payload", nil)
	}

	user, err := h.users.SetBlocked(c.Context(), identity, c.Params("email"), req.Blocked)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": userResponse(user)})
}
