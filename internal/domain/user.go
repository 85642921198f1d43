package domain

import "time"

// Role enumerates caller roles.
type Role string

const (
	RoleCitizen Role = "CITIZEN"
	RoleStaff   Role = "STAFF"
	RoleAdmin   Role = "ADMIN"
)

// User is keyed by email; the stored email is the canonical lowercase form
// assigned at registration.
type User struct {
	Email        string
	Name         string
	PasswordHash string
	Role         Role
	IsBlocked    bool
	IsPremium    bool
	District     *string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
