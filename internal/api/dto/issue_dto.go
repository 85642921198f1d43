package dto

import (
	"time"

	"github.com/civicworks/issue-service/internal/domain"
)

// CreateIssueRequest payload.
type CreateIssueRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Category    string `json:"category"`
	Region      string `json:"region"`
	District    string `json:"district"`
}

// TransitionRequest payload for status changes.
type TransitionRequest struct {
	TargetStatus domain.IssueStatus `json:"target_status"`
	Note         string             `json:"note"`
}

// RejectIssueRequest payload.
type RejectIssueRequest struct {
	Reason string `json:"reason"`
}

// AssignIssueRequest payload.
type AssignIssueRequest struct {
	StaffEmail string `json:"staff_email"`
}

// IssueSummary response.
type IssueSummary struct {
	ID            string              `json:"id"`
	Title         string              `json:"title"`
	Category      string              `json:"category"`
	Region        string              `json:"region"`
	District      string              `json:"district"`
	OwnerEmail    string              `json:"owner_email"`
	Status        domain.IssueStatus  `json:"status"`
	Priority      domain.IssuePriority `json:"priority"`
	Upvotes       int                 `json:"upvotes"`
	AssigneeEmail *string             `json:"assignee_email,omitempty"`
	AssigneeName  *string             `json:"assignee_name,omitempty"`
	CreatedAt     time.Time           `json:"created_at"`
	UpdatedAt     time.Time           `json:"updated_at"`
}

// IssueDetailResponse provides full issue info with its timeline.
type IssueDetailResponse struct {
	IssueSummary
	Description string                  `json:"description"`
	Timeline    []TimelineEntryResponse `json:"timeline"`
}

// TimelineEntryResponse is one audit entry.
type TimelineEntryResponse struct {
	ID         string              `json:"id"`
	Status     *domain.IssueStatus `json:"status,omitempty"`
	Message    string              `json:"message"`
	ActorEmail string              `json:"actor_email"`
	ActorRole  domain.Role         `json:"actor_role"`
	CreatedAt  time.Time           `json:"created_at"`
}

// UpvoteResponse reports the new counter value.
type UpvoteResponse struct {
	IssueID string `json:"issue_id"`
	Upvotes int    `json:"upvotes"`
}

// DashboardResponse aggregates a citizen's issues.
type DashboardResponse struct {
	Issues []IssueSummary             `json:"issues"`
	Counts map[domain.IssueStatus]int `json:"counts"`
}
