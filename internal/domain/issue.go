package domain

import "time"

// IssueStatus enumerates lifecycle states for reported issues.
type IssueStatus string

const (
	IssueStatusPending    IssueStatus = "PENDING"
	IssueStatusInProgress IssueStatus = "IN_PROGRESS"
	IssueStatusWorking    IssueStatus = "WORKING"
	IssueStatusResolved   IssueStatus = "RESOLVED"
	IssueStatusClosed     IssueStatus = "CLOSED"
)

// ValidStatus reports whether s is a member of the status enumeration.
func ValidStatus(s IssueStatus) bool {
	switch s {
	case IssueStatusPending, IssueStatusInProgress, IssueStatusWorking,
		IssueStatusResolved, IssueStatusClosed:
		return true
	}
	return false
}

// IssuePriority enumerates visibility tiers; HIGH is reached by a paid boost.
type IssuePriority string

const (
	IssuePriorityNormal IssuePriority = "NORMAL"
	IssuePriorityHigh   IssuePriority = "HIGH"
)

// Issue is the aggregate for a reported infrastructure problem.
type Issue struct {
	ID            string
	Title         string
	Description   string
	Category      string
	Region        string
	District      string
	OwnerEmail    string
	Status        IssueStatus
	Priority      IssuePriority
	Upvotes       int
	VoterEmails   []string
	AssigneeEmail *string
	AssigneeName  *string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Assigned reports whether the issue carries a non-null assignment.
func (i *Issue) Assigned() bool {
	return i.AssigneeEmail != nil && *i.AssigneeEmail != ""
}

// HasVoter reports membership of email in the voter set.
func (i *Issue) HasVoter(email string) bool {
	for _, v := range i.VoterEmails {
		if v == email {
			return true
		}
	}
	return false
}
