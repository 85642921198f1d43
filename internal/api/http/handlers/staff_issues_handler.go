package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/civicworks/issue-service/internal/service"
)

// StaffIssuesHandler manages the staff work queue and claiming.
type StaffIssuesHandler struct {
	assignments *service.AssignmentService
}

// NewStaffIssuesHandler constructs handler.
func NewStaffIssuesHandler(assignments *service.AssignmentService) *StaffIssuesHandler {
	return &StaffIssuesHandler{assignments: assignments}
}

// ListWorkQueue GET /staff/issues.
func (h *StaffIssuesHandler) ListWorkQueue(c *fiber.Ctx) error {
	identity, err := requireIdentity(c)
	if err != nil {
		return err
	}
	limit, offset := parsePagination(c)
	issues, err := h.assignments.ListWorkQueue(c.Context(), identity, limit, offset)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": issueSummaries(issues)})
}

// ClaimIssue POST /staff/issues/:id/claim.
func (h *StaffIssuesHandler) ClaimIssue(c *fiber.Ctx) error {
	identity, err := requireIdentity(c)
	if err != nil {
		return err
	}
	issue, err := h.assignments.ClaimIssue(c.Context(), identity, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": issueSummary(issue)})
}
