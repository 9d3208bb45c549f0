package model

import (
	"time"

	"gorm.io/gorm"
)

// Coupon types.
const (
	CouponTypePercent  = "percent"
	CouponTypeAmount   = "amount"
	CouponTypeBogo     = "bogo"
	CouponTypeFreeItem = "free_item"
)

// ValidCouponTypes lists the accepted values for Coupon.CouponType.
var ValidCouponTypes = []string{CouponTypePercent, CouponTypeAmount, CouponTypeBogo, CouponTypeFreeItem}

// Coupon represents a merchant-issued offer within a group. Coupons are never
// hard-deleted so redemption history stays intact.
type Coupon struct {
	ID            uint           `json:"id" gorm:"primaryKey"`
	GroupID       uint           `json:"group_id" gorm:"index;not null"`
	MerchantID    uint           `json:"merchant_id" gorm:"index;not null"`
	Title         string         `json:"title" gorm:"type:varchar(191);not null"`
	Description   string         `json:"description" gorm:"type:text"`
	CouponType    string         `json:"coupon_type" gorm:"type:varchar(20);not null"`
	DiscountValue int            `json:"discount_value" gorm:"default:0"`
	Cuisine       string         `json:"cuisine" gorm:"type:varchar(100)"`
	ValidFrom     time.Time      `json:"valid_from"`
	ExpiresAt     time.Time      `json:"expires_at"`
	Locked        bool           `json:"locked" gorm:"default:true"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
	DeletedAt     gorm.DeletedAt `json:"-" gorm:"index"`

	// Relations
	Group    FoodieGroup `json:"group,omitempty" gorm:"foreignKey:GroupID"`
	Merchant Merchant    `json:"merchant,omitempty" gorm:"foreignKey:MerchantID"`
}

// IsValidCouponType reports whether the given string is an accepted coupon type.
func IsValidCouponType(t string) bool {
	for _, v := range ValidCouponTypes {
		if v == t {
			return true
		}
	}
	return false
}
