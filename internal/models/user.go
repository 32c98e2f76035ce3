package models

import "time"

// Role is a user's permission level
type Role string

const (
	RoleStudent Role = "student"
	RoleTeacher Role = "teacher"
	RoleAdmin   Role = "admin"
)

// ParseRole returns the role named by s, or RoleStudent for anything unknown
func ParseRole(s string) Role {
	switch r := Role(s); r {
	case RoleStudent, RoleTeacher, RoleAdmin:
		return r
	default:
		return RoleStudent
	}
}

// User represents a learner, teacher or administrator account
type User struct {
	ID           int64      `json:"id"`
	Username     string     `json:"username"`
	Email        string     `json:"email"`
	PasswordHash string     `json:"-"`
	Role         Role       `json:"role"`
	SchoolID     *int64     `json:"school_id,omitempty"`
	XP           int        `json:"xp"`
	Streak       int        `json:"streak"`
	LastActive   *time.Time `json:"last_active,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// School is an institution users may belong to
type School struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Address   string    `json:"address,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}
