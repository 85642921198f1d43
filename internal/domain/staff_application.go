package domain

import "time"

// ApplicationStatus enumerates the simplified application lifecycle:
// submit, then accept or reject, both terminal.
type ApplicationStatus string

const (
	ApplicationStatusPending  ApplicationStatus = "PENDING"
	ApplicationStatusAccepted ApplicationStatus = "ACCEPTED"
	ApplicationStatusRejected ApplicationStatus = "REJECTED"
)

// StaffApplication is a citizen's request to become staff for a district.
type StaffApplication struct {
	ID        string
	Name      string
	Email     string
	District  string
	Status    ApplicationStatus
	CreatedAt time.Time
	UpdatedAt time.Time
}

// ApplicationEvent is an audit entry on a staff application.
type ApplicationEvent struct {
	ID            string
	ApplicationID string
	Status        ApplicationStatus
	Message       string
	ActorEmail    string
	ActorRole     Role
	CreatedAt     time.Time
}
