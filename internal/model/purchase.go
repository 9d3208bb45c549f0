package model

import (
	"time"

	"gorm.io/gorm"
)

// Purchase statuses. Expired and refunded are terminal.
const (
	PurchaseStatusCreated  = "created"
	PurchaseStatusPending  = "pending"
	PurchaseStatusPaid     = "paid"
	PurchaseStatusExpired  = "expired"
	PurchaseStatusRefunded = "refunded"
)

// Payment providers.
const (
	ProviderStripe = "stripe"
	ProviderTest   = "test"
)

// Purchase tracks a user's payment for access to a group's coupon book.
// CheckoutSessionID is nullable but unique when present, which prevents
// duplicate purchase rows per provider checkout session.
type Purchase struct {
	ID                uint           `json:"id" gorm:"primaryKey"`
	UserID            uint           `json:"user_id" gorm:"index;not null"`
	GroupID           uint           `json:"group_id" gorm:"index;not null"`
	Provider          string         `json:"provider" gorm:"type:varchar(20);not null;default:'stripe'"`
	CheckoutSessionID *string        `json:"checkout_session_id,omitempty" gorm:"type:varchar(191);uniqueIndex"`
	CustomerID        string         `json:"customer_id,omitempty" gorm:"type:varchar(191)"`
	PaymentIntentID   string         `json:"payment_intent_id,omitempty" gorm:"type:varchar(191);index"`
	ChargeID          string         `json:"charge_id,omitempty" gorm:"type:varchar(191);index"`
	AmountCents       int            `json:"amount_cents"`
	Currency          string         `json:"currency" gorm:"type:varchar(10)"`
	Status            string         `json:"status" gorm:"type:varchar(20);not null;default:'created'"`
	PurchasedAt       *time.Time     `json:"purchased_at,omitempty"`
	ExpiredAt         *time.Time     `json:"expired_at,omitempty"`
	RefundedAt        *time.Time     `json:"refunded_at,omitempty"`
	Metadata          string         `json:"metadata,omitempty" gorm:"type:text"`
	PriceSnapshot     string         `json:"price_snapshot,omitempty" gorm:"type:text"`
	CreatedAt         time.Time      `json:"created_at"`
	UpdatedAt         time.Time      `json:"updated_at"`
	DeletedAt         gorm.DeletedAt `json:"-" gorm:"index"`

	// Relations
	User  User        `json:"user,omitempty" gorm:"foreignKey:UserID"`
	Group FoodieGroup `json:"group,omitempty" gorm:"foreignKey:GroupID"`
}
