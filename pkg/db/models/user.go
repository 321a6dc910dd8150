package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/orbitcart/orbitcart-backend/pkg/enums"
)

// User represents the canonical identity entity. Admins receive the
// new-order fanout; customers own orders.
type User struct {
	ID         uuid.UUID      `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	Email      string         `gorm:"type:text;not null;uniqueIndex"`
	Name       string         `gorm:"column:name;not null"`
	Phone      *string        `gorm:"column:phone"`
	Role       enums.UserRole `gorm:"column:role;type:text;not null;default:'customer'"`
	IsActive   bool           `gorm:"column:is_active;not null;default:true"`
	LastSeenAt *time.Time     `gorm:"column:last_seen_at"`
	CreatedAt  time.Time      `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt  time.Time      `gorm:"column:updated_at;autoUpdateTime"`
}
