package handlers

import (
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/civicworks/issue-service/internal/api/dto"
	"github.com/civicworks/issue-service/internal/auth"
	"github.com/civicworks/issue-service/internal/domain"
	"github.com/civicworks/issue-service/pkg/util"
)

func requireIdentity(c *fiber.Ctx) (domain.Identity, error) {
	identity, ok := auth.IdentityFromContext(c)
	if !ok {
		return domain.Identity{}, util.NewUnauthenticated("authentication required")
	}
	return identity, nil
}

func parsePagination(c *fiber.Ctx) (limit, offset int) {
	page := parseInt(c.Query("page"), 1)
	pageSize := parseInt(c.Query("page_size"), 20)
	return pageSize, (page - 1) * pageSize
}

func parseInt(val string, def int) int {
	if val == "" {
		return def
	}
	parsed, err := strconv.Atoi(val)
	if err != nil || parsed <= 0 {
		return def
	}
	return parsed
}

func issueSummary(issue *domain.Issue) dto.IssueSummary {
	return dto.IssueSummary{
		ID:            issue.ID,
		Title:         issue.Title,
		Category:      issue.Category,
		Region:        issue.Region,
		District:      issue.District,
		OwnerEmail:    issue.OwnerEmail,
		Status:        issue.Status,
		Priority:      issue.Priority,
		Upvotes:       issue.Upvotes,
		AssigneeEmail: issue.AssigneeEmail,
		AssigneeName:  issue.AssigneeName,
		CreatedAt:     issue.CreatedAt,
		UpdatedAt:     issue.UpdatedAt,
	}
}

func issueSummaries(issues []domain.Issue) []dto.IssueSummary {
	items := make([]dto.IssueSummary, 0, len(issues))
	for i := range issues {
		items = append(items, issueSummary(&issues[i]))
	}
	return items
}

func issueDetail(issue *domain.Issue, entries []domain.TimelineEntry) dto.IssueDetailResponse {
	timelineResp := make([]dto.TimelineEntryResponse, 0, len(entries))
	for _, entry := range entries {
		timelineResp = append(timelineResp, dto.TimelineEntryResponse{
			ID:         entry.ID,
			Status:     entry.Status,
			Message:    entry.Message,
			ActorEmail: entry.ActorEmail,
			ActorRole:  entry.ActorRole,
			CreatedAt:  entry.CreatedAt,
		})
	}
	return dto.IssueDetailResponse{
		IssueSummary: issueSummary(issue),
		Description:  issue.Description,
		Timeline:     timelineResp,
	}
}

func userResponse(user *domain.User) dto.UserResponse {
	return dto.UserResponse{
		Email:     user.Email,
		Name:      user.Name,
		Role:      user.Role,
		District:  user.District,
		IsPremium: user.IsPremium,
		IsBlocked: user.IsBlocked,
		CreatedAt: user.CreatedAt,
	}
}

func applicationResponse(app *domain.StaffApplication) dto.ApplicationResponse {
	return dto.ApplicationResponse{
		ID:        app.ID,
		Name:      app.Name,
		Email:     app.Email,
		District:  app.District,
		Status:    app.Status,
		CreatedAt: app.CreatedAt,
		UpdatedAt: app.UpdatedAt,
	}
}
