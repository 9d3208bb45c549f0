package model

import (
	"time"

	"gorm.io/gorm"
)

// Merchant represents a merchant business owned by a user. Ownership is the
// primary authorization anchor for merchant-scoped actions.
type Merchant struct {
	ID        uint           `json:"id" gorm:"primaryKey"`
	Name      string         `json:"name" gorm:"type:varchar(191);not null"`
	LogoURL   string         `json:"logo_url" gorm:"type:varchar(500)"`
	OwnerID   uint           `json:"owner_id" gorm:"index;not null"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`

	// Relations
	Owner User `json:"owner,omitempty" gorm:"foreignKey:OwnerID"`
}
