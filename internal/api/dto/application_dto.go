package dto

import (
	"time"

	"github.com/civicworks/issue-service/internal/domain"
)

// SubmitApplicationRequest payload.
type SubmitApplicationRequest struct {
	Name     string `json:"name"`
	District string `json:"district"`
}

// RejectApplicationRequest payload.
type RejectApplicationRequest struct {
	Reason string `json:"reason"`
}

// ApplicationResponse is the public view of a staff application.
type ApplicationResponse struct {
	ID        string                   `json:"id"`
	Name      string                   `json:"name"`
	Email     string                   `json:"email"`
	District  string                   `json:"district"`
	Status    domain.ApplicationStatus `json:"status"`
	CreatedAt time.Time                `json:"created_at"`
	UpdatedAt time.Time                `json:"updated_at"`
}

// ApplicationDetailResponse includes audit events.
type ApplicationDetailResponse struct {
	ApplicationResponse
	Events []ApplicationEventResponse `json:"events"`
}

// ApplicationEventResponse is one audit entry on an application.
type ApplicationEventResponse struct {
	ID         string                   `json:"id"`
	Status     domain.ApplicationStatus `json:"status"`
	Message    string                   `json:"message"`
	ActorEmail string                   `json:"actor_email"`
	ActorRole  domain.Role              `json:"actor_role"`
	CreatedAt  time.Time                `json:"created_at"`
}
