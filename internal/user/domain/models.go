package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

type UserStatus string

const (
	UserStatusActive    UserStatus = "active"
	UserStatusSuspended UserStatus = "suspended"
)

type UserRole string

const (
	UserRoleMember UserRole = "member"
	UserRoleAdmin  UserRole = "admin"
)

// User is the owning entity for balances, loans, and scores. Its identity
// lifecycle lives outside this service; the engine only ever reads it.
type User struct {
	ID            snowflake.ID `json:"id" gorm:"primaryKey"`
	WalletAddress string       `json:"wallet_address" gorm:"type:text;not null;uniqueIndex:ux_users_wallet"`
	Status        UserStatus   `json:"status" gorm:"type:text;not null;default:'active'"`
	Role          UserRole     `json:"role" gorm:"type:text;not null;default:'member'"`
	CreatedAt     time.Time    `json:"created_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt     time.Time    `json:"updated_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (User) TableName() string { return "users" }
