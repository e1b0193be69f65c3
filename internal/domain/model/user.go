package model

import (
	"time"
)

const (
	RoleContestant = "contestant"
	RoleOrganiser  = "organiser"
	RoleAdmin      = "admin"
)

type User struct {
	ID              string    `json:"id"`
	Username        string    `json:"username"`
	Email           string    `json:"email"`
	HashedPassword  string    `json:"-"` // Not exposed
	Name            string    `json:"name"`
	Surname         string    `json:"surname"`
	Role            string    `json:"role"`
	IsVerified      bool      `json:"is_verified"`
	ApprovedByAdmin bool      `json:"approved_by_admin"`
	Image           []byte    `json:"image,omitempty"` // base64 in JSON
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// VerificationToken is the one-time token mailed to a user after registration.
type VerificationToken struct {
	Token     string    `json:"-"`
	UserID    string    `json:"user_id"`
	ExpiresAt time.Time `json:"expires_at"`
}

// UserStatistics summarises a user's practice and contest activity.
type UserStatistics struct {
	UserID          string `json:"user_id"`
	TotalAttempted  int    `json:"total_attempted"`
	TotalSolved     int    `json:"total_solved"`
	CompetitionsRun int    `json:"competitions_participated"`
}
