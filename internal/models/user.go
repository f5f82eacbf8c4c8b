package models

import (
	"strings"
	"time"
)

// UserRole represents the available roles for the RBAC system.
type UserRole string

const (
	RoleAdmin   UserRole = "ADMIN"
	RoleTrainer UserRole = "TRAINER"
	RoleClient  UserRole = "CLIENT"
)

const (
	DefaultWeeklyWorkoutLimit = 3
	DefaultWorkoutCredits     = 10
)

// User represents an account stored in the users table.
type User struct {
	ID                 int64     `db:"id" json:"id"`
	Email              string    `db:"email" json:"email"`
	PasswordHash       string    `db:"password_hash" json:"-"`
	FirstName          string    `db:"first_name" json:"first_name"`
	LastName           string    `db:"last_name" json:"last_name"`
	PhoneNumber        string    `db:"phone_number" json:"phone_number,omitempty"`
	Role               UserRole  `db:"role" json:"role"`
	WeeklyWorkoutLimit int       `db:"weekly_workout_limit" json:"weekly_workout_limit"`
	WorkoutCredits     int       `db:"workout_credits" json:"workout_credits"`
	CreatedAt          time.Time `db:"created_at" json:"created_at"`
}

// DisplayName is "First Last", falling back to the local part of the e-mail.
func (u User) DisplayName() string {
	name := strings.TrimSpace(strings.TrimSpace(u.FirstName) + " " + strings.TrimSpace(u.LastName))
	if name != "" {
		return name
	}
	if at := strings.Index(u.Email, "@"); at > 0 {
		return u.Email[:at]
	}
	return u.Email
}
