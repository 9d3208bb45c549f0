// Package redemption enforces at-most-once coupon redemption per (coupon,
// user) and records redemption facts.
package redemption

import (
	"errors"
	"time"

	"github.com/tastecircle/tastecircle/internal/model"
	"github.com/tastecircle/tastecircle/internal/policy"
	"github.com/tastecircle/tastecircle/prometheus"
	"gorm.io/gorm"
)

// Redemption outcomes surfaced to the handler. The handler maps these onto
// HTTP statuses; LOCKED gets its own machine-readable code so clients can
// distinguish entitlement denial from a generic forbidden.
var (
	ErrCouponNotFound  = errors.New("coupon not found")
	ErrNotYetValid     = errors.New("coupon is not yet valid")
	ErrExpired         = errors.New("coupon has expired")
	ErrLocked          = errors.New("coupon is locked")
	ErrAlreadyRedeemed = errors.New("coupon already redeemed")
)

// Redeem validates and records a redemption. Validation order: the coupon
// must exist, be inside its validity window, and if locked the principal must
// hold an entitlement for its group. The unique constraint on (coupon_id,
// user_id) is the final authority under concurrent attempts: a losing insert
// is reported as ErrAlreadyRedeemed, same as a pre-existing redemption.
func Redeem(db *gorm.DB, principal *model.User, couponID uint, location string) (*model.CouponRedemption, error) {
	var coupon model.Coupon
	if err := db.First(&coupon, couponID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			prometheus.RecordRedemption("not_found")
			return nil, ErrCouponNotFound
		}
		return nil, err
	}

	now := time.Now()
	if now.Before(coupon.ValidFrom) {
		prometheus.RecordRedemption("not_yet_valid")
		return nil, ErrNotYetValid
	}
	if now.After(coupon.ExpiresAt) {
		prometheus.RecordRedemption("expired")
		return nil, ErrExpired
	}

	if coupon.Locked && !policy.HasEntitlement(db, principal, coupon.GroupID) {
		prometheus.RecordRedemption("locked")
		return nil, ErrLocked
	}

	redemption := model.CouponRedemption{
		CouponID:   coupon.ID,
		UserID:     principal.ID,
		RedeemedAt: now,
		Location:   location,
	}
	if err := db.Create(&redemption).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			prometheus.RecordRedemption("duplicate")
			return nil, ErrAlreadyRedeemed
		}
		return nil, err
	}

	prometheus.RecordRedemption("success")
	return &redemption, nil
}
