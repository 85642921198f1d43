package events

import (
	"time"

	"github.com/civicworks/issue-service/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventIssueCreated       EventType = "issue_created"
	EventIssueStatusChanged EventType = "issue_status_changed"
	EventIssueAssigned      EventType = "issue_assigned"
	EventIssueUpvoted       EventType = "issue_upvoted"
	EventIssueBoosted       EventType = "issue_boosted"
	EventPaymentReconciled  EventType = "payment_reconciled"
)

// Actor encapsulates actor metadata for an event.
type Actor struct {
	Email string      `json:"email"`
	Role  domain.Role `json:"role"`
}

// Event represents a domain event emitted by services.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	IssueID   string      `json:"issue_id,omitempty"`
	Actor     Actor       `json:"actor"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// IssueCreatedPayload payload.
type IssueCreatedPayload struct {
	Title    string `json:"title"`
	Category string `json:"category"`
	District string `json:"district"`
}

// IssueStatusChangedPayload payload.
type IssueStatusChangedPayload struct {
	OldStatus domain.IssueStatus `json:"old_status"`
	NewStatus domain.IssueStatus `json:"new_status"`
	Note      string             `json:"note,omitempty"`
}

// IssueAssignedPayload payload.
type IssueAssignedPayload struct {
	AssigneeEmail string `json:"assignee_email"`
	AssigneeName  string `json:"assignee_name,omitempty"`
}

// IssueUpvotedPayload payload.
type IssueUpvotedPayload struct {
	VoterEmail string `json:"voter_email"`
	Upvotes    int    `json:"upvotes"`
}

// PaymentReconciledPayload payload.
type PaymentReconciledPayload struct {
	TransactionID  string             `json:"transaction_id"`
	Kind           domain.PaymentKind `json:"kind"`
	AlreadyApplied bool               `json:"already_applied"`
}
