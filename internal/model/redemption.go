package model

import "time"

// CouponRedemption is an append-only fact: a user redeemed a coupon. The
// unique index on (coupon_id, user_id) is the final authority on at-most-once
// redemption, including under concurrent attempts.
type CouponRedemption struct {
	ID         uint      `json:"id" gorm:"primaryKey"`
	CouponID   uint      `json:"coupon_id" gorm:"not null;uniqueIndex:ux_coupon_redemptions_coupon_user,priority:1"`
	UserID     uint      `json:"user_id" gorm:"not null;uniqueIndex:ux_coupon_redemptions_coupon_user,priority:2"`
	RedeemedAt time.Time `json:"redeemed_at"`
	Location   string    `json:"location,omitempty" gorm:"type:varchar(191)"`
	CreatedAt  time.Time `json:"created_at"`
}
