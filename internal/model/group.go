package model

import (
	"time"

	"gorm.io/gorm"
)

// FoodieGroup represents a regional tenant. Most resources (coupons, events,
// memberships, purchases) reference exactly one group.
type FoodieGroup struct {
	ID          uint           `json:"id" gorm:"primaryKey"`
	Slug        string         `json:"slug" gorm:"type:varchar(100);uniqueIndex;not null"`
	Name        string         `json:"name" gorm:"type:varchar(191);not null"`
	Description string         `json:"description" gorm:"type:text"`
	City        string         `json:"city" gorm:"type:varchar(100)"`
	Archived    bool           `json:"archived" gorm:"default:false"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   gorm.DeletedAt `json:"-" gorm:"index"`
}
