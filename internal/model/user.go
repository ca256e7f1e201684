package model

import (
	"time"

	"github.com/google/uuid"
)

// User stores ledger operators with role-based access.
// Role: "clerk" | "manager" | "admin"
type User struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	Username     string    `gorm:"uniqueIndex;not null"`
	Name         string    `gorm:"not null"`
	Email        *string
	PasswordHash string `gorm:"not null"`
	Role         string `gorm:"type:varchar(20);not null"`
	// BranchID restricts a clerk to one branch; nil = all branches
	BranchID  *uuid.UUID `gorm:"type:uuid"`
	Active    bool       `gorm:"not null;default:true"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

const (
	RoleClerk   = "clerk"
	RoleManager = "manager"
	RoleAdmin   = "admin"
)
