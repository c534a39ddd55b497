package models

import (
	"time"
)

// Roles
const (
	RoleAdmin = "admin"
	RoleUser  = "user"
)

// User is an account that owns boards and authors cards
type User struct {
	ID             string     `gorm:"primaryKey;size:36" json:"id"`
	Email          string     `gorm:"uniqueIndex;size:255;not null" json:"email"`
	Name           string     `gorm:"size:255" json:"name"`
	Role           string     `gorm:"size:16;not null" json:"role"`
	AvatarURL      string     `gorm:"size:1024" json:"avatar_url,omitempty"`
	LastLoginAt    *time.Time `json:"last_login_at,omitempty"`
	LastLogoutAt   *time.Time `json:"last_logout_at,omitempty"`
	// SessionVersion bumps on every logout; tokens carry the value they were issued under
	SessionVersion int64      `gorm:"not null;default:0" json:"session_version"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// TableName overrides the table name for User
func (User) TableName() string {
	return "users"
}

// IsAdmin reports whether the user carries the admin role
func (u *User) IsAdmin() bool {
	return u != nil && u.Role == RoleAdmin
}

// DisplayName falls back to the email when no name is set
func (u *User) DisplayName() string {
	if u.Name != "" {
		return u.Name
	}
	return u.Email
}
