package domain

import "time"

// TimelineEntry is an immutable audit record owned by its parent issue.
// Status is nil for non-status events such as an upvote or a boost.
type TimelineEntry struct {
	ID         string
	IssueID    string
	Status     *IssueStatus
	Message    string
	ActorEmail string
	ActorRole  Role
	CreatedAt  time.Time
}
