package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/civicworks/issue-service/internal/api/dto"
	"github.com/civicworks/issue-service/internal/service"
	"github.com/civicworks/issue-service/pkg/util"
)

// IssuesHandler manages citizen-facing issue endpoints.
type IssuesHandler struct {
	service *service.IssueService
}

// NewIssuesHandler constructs handler.
func NewIssuesHandler(issueService *service.IssueService) *IssuesHandler {
	return &IssuesHandler{service: issueService}
}

// CreateIssue POST /issues.
func (h *IssuesHandler) CreateIssue(c *fiber.Ctx) error {
	identity, err := requireIdentity(c)
	if err != nil {
		return err
	}
	var req dto.CreateIssueRequest
	if err := c.BodyParser(&req); err != nil {
		return util.NewValidationError("invalid payload", nil)
	}

	issue, err := h.service.CreateIssue(c.Context(), identity, service.IssueCreateInput{
		Title:       req.Title,
		Description: req.Description,
		Category:    req.Category,
		Region:      req.Region,
		District:    req.District,
	})
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": issueSummary(issue)})
}

// ListIssues GET /issues.
func (h *IssuesHandler) ListIssues(c *fiber.Ctx) error {
	identity, err := requireIdentity(c)
	if err != nil {
		return err
	}
	limit, offset := parsePagination(c)
	issues, err := h.service.ListOwnIssues(c.Context(), identity, limit, offset)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": issueSummaries(issues)})
}

// Dashboard GET /issues/dashboard.
func (h *IssuesHandler) Dashboard(c *fiber.Ctx) error {
	identity, err := requireIdentity(c)
	if err != nil {
		return err
	}
	dashboard, err := h.service.GetDashboard(c.Context(), identity)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.DashboardResponse{
		Issues: issueSummaries(dashboard.Issues),
		Counts: dashboard.Counts,
	}})
}

// GetIssue GET /issues/:id.
func (h *IssuesHandler) GetIssue(c *fiber.Ctx) error {
	identity, err := requireIdentity(c)
	if err != nil {
		return err
	}
	issue, entries, err := h.service.GetIssue(c.Context(), identity, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": issueDetail(issue, entries)})
}

// DeleteIssue DELETE /issues/:id.
func (h *IssuesHandler) DeleteIssue(c *fiber.Ctx) error {
	identity, err := requireIdentity(c)
	if err != nil {
		return err
	}
	if err := h.service.DeleteIssue(c.Context(), identity, c.Params("id")); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// Upvote POST /issues/:id/upvote.
func (h *IssuesHandler) Upvote(c *fiber.Ctx) error {
	identity, err := requireIdentity(c)
	if err != nil {
		return err
	}
	count, err := h.service.Upvote(c.Context(), identity, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.UpvoteResponse{
		IssueID: c.Params("id"),
		Upvotes: count,
	}})
}

// Transition POST /issues/:id/status.
func (h *IssuesHandler) Transition(c *fiber.Ctx) error {
	identity, err := requireIdentity(c)
	if err != nil {
		return err
	}
	var req dto.TransitionRequest
	if err := c.BodyParser(&req); err != nil {
		return util.NewValidationError("invalid payload", nil)
	}
	if req.TargetStatus == "" {
		return util.NewValidationError("target_status required", nil)
	}

	issue, err := h.service.RequestTransition(c.Context(), identity, c.Params("id"), req.TargetStatus, req.Note)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": issueSummary(issue)})
}
