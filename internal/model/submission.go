package model

import (
	"time"

	"gorm.io/gorm"
)

// Submission states. Approved and rejected are terminal.
const (
	SubmissionStatePending  = "pending"
	SubmissionStateApproved = "approved"
	SubmissionStateRejected = "rejected"
)

// CouponSubmission is a merchant-submitted coupon proposal awaiting review.
// Payload holds the validated draft as JSON; approval promotes it to a live
// Coupon.
type CouponSubmission struct {
	ID               uint           `json:"id" gorm:"primaryKey"`
	GroupID          uint           `json:"group_id" gorm:"index;not null"`
	MerchantID       uint           `json:"merchant_id" gorm:"index;not null"`
	SubmitterID      uint           `json:"submitter_id" gorm:"index;not null"`
	State            string         `json:"state" gorm:"type:varchar(20);not null;default:'pending'"`
	Payload          string         `json:"payload" gorm:"type:text;not null"`
	RejectionMessage string         `json:"rejection_message,omitempty" gorm:"type:text"`
	CouponID         *uint          `json:"coupon_id,omitempty" gorm:"index"`
	CreatedAt        time.Time      `json:"created_at"`
	UpdatedAt        time.Time      `json:"updated_at"`
	DeletedAt        gorm.DeletedAt `json:"-" gorm:"index"`

	// Relations
	Group    FoodieGroup `json:"group,omitempty" gorm:"foreignKey:GroupID"`
	Merchant Merchant    `json:"merchant,omitempty" gorm:"foreignKey:MerchantID"`
}

// EventSubmission is a proposed group event awaiting review. Events have no
// promoted record; approval just makes the submission visible.
type EventSubmission struct {
	ID               uint           `json:"id" gorm:"primaryKey"`
	GroupID          uint           `json:"group_id" gorm:"index;not null"`
	MerchantID       *uint          `json:"merchant_id,omitempty" gorm:"index"`
	SubmitterID      uint           `json:"submitter_id" gorm:"index;not null"`
	State            string         `json:"state" gorm:"type:varchar(20);not null;default:'pending'"`
	Payload          string         `json:"payload" gorm:"type:text;not null"`
	RejectionMessage string         `json:"rejection_message,omitempty" gorm:"type:text"`
	CreatedAt        time.Time      `json:"created_at"`
	UpdatedAt        time.Time      `json:"updated_at"`
	DeletedAt        gorm.DeletedAt `json:"-" gorm:"index"`
}
