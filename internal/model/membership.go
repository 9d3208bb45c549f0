package model

import (
	"time"

	"gorm.io/gorm"
)

// Membership roles within a group.
const (
	MembershipRoleCustomer         = "customer"
	MembershipRoleFoodieGroupAdmin = "foodie_group_admin"
)

// GroupMembership associates users with foodie groups. The partial unique
// index enforces at most one active (non-soft-deleted) row per (user, group)
// pair while soft-deleted history is preserved.
type GroupMembership struct {
	ID        uint           `json:"id" gorm:"primaryKey"`
	UserID    uint           `json:"user_id" gorm:"not null;uniqueIndex:ux_group_memberships_active,priority:1,where:deleted_at IS NULL"`
	GroupID   uint           `json:"group_id" gorm:"not null;uniqueIndex:ux_group_memberships_active,priority:2"`
	Role      string         `json:"role" gorm:"type:varchar(50);not null;default:'customer'"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`

	// Relations
	User  User        `json:"user,omitempty" gorm:"foreignKey:UserID"`
	Group FoodieGroup `json:"group,omitempty" gorm:"foreignKey:GroupID"`
}
