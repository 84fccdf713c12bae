package model

import "time"

// User is an operator account for the dashboard.
type User struct {
	ID           int64      `gorm:"primaryKey;autoIncrement" json:"id"`
	Username     string     `gorm:"size:50;uniqueIndex;not null" json:"username"`
	PasswordHash string     `gorm:"size:100;not null" json:"-"`
	Role         string     `gorm:"size:20;not null;default:'viewer'" json:"role"`
	CreatedAt    time.Time  `gorm:"not null" json:"created_at"`
	LastLogin    *time.Time `json:"last_login"`
}

// Known user roles.
const (
	RoleAdmin  = "admin"
	RoleViewer = "viewer"
)
