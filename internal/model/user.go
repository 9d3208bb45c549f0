package model

import (
	"time"

	"gorm.io/gorm"
)

// User roles. RoleFoodieGroupAdmin as a global role only marks intent; actual
// group-admin rights come from a GroupMembership row with that role.
const (
	RoleAdmin            = "admin"
	RoleMerchant         = "merchant"
	RoleCustomer         = "customer"
	RoleFoodieGroupAdmin = "foodie_group_admin"
	RoleSuperAdmin       = "super_admin"
)

// ValidRoles lists the accepted values for User.Role.
var ValidRoles = []string{RoleAdmin, RoleMerchant, RoleCustomer, RoleFoodieGroupAdmin, RoleSuperAdmin}

// User represents the user model stored in the database. Subject is the
// stable external identity reference from the auth token.
type User struct {
	ID           uint           `json:"id" gorm:"primaryKey"`
	Subject      string         `json:"-" gorm:"type:varchar(191);uniqueIndex;not null"`
	Email        string         `json:"email" gorm:"type:varchar(191);uniqueIndex"`
	Name         string         `json:"name" gorm:"type:varchar(191)"`
	Role         string         `json:"role" gorm:"type:varchar(50);not null;default:'customer'"`
	Anonymized   bool           `json:"anonymized" gorm:"default:false"`
	PasswordHash string         `json:"-" gorm:"type:varchar(255)"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
	DeletedAt    gorm.DeletedAt `json:"-" gorm:"index"`
}

// IsValidRole reports whether the given string is an accepted user role.
func IsValidRole(role string) bool {
	for _, r := range ValidRoles {
		if r == role {
			return true
		}
	}
	return false
}
