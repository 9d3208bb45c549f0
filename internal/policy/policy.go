// Package policy implements the authorization predicates gating mutating
// endpoints. Every predicate is a pure read: it answers allow/deny and never
// mutates state. Soft-deleted rows behave as absent because gorm's default
// scope filters deleted_at.
package policy

import (
	"errors"

	"github.com/tastecircle/tastecircle/internal/model"
	"gorm.io/gorm"
)

// IsSuperAdmin reports whether the principal holds the super_admin role.
func IsSuperAdmin(principal *model.User) bool {
	return principal != nil && principal.Role == model.RoleSuperAdmin
}

// IsAdmin reports whether the principal holds a platform-wide admin role.
func IsAdmin(principal *model.User) bool {
	return principal != nil && (principal.Role == model.RoleAdmin || principal.Role == model.RoleSuperAdmin)
}

// CanManageMerchant reports whether the principal may mutate the given
// merchant: super-admin, or the merchant's owner.
func CanManageMerchant(db *gorm.DB, principal *model.User, merchantID uint) bool {
	if principal == nil {
		return false
	}
	if IsSuperAdmin(principal) {
		return true
	}

	var merchant model.Merchant
	if err := db.First(&merchant, merchantID).Error; err != nil {
		return false
	}
	return merchant.OwnerID == principal.ID
}

// CanManageCoupon reports whether the principal may mutate the given coupon:
// super-admin, or the owner of the coupon's merchant.
func CanManageCoupon(db *gorm.DB, principal *model.User, couponID uint) bool {
	if principal == nil {
		return false
	}
	if IsSuperAdmin(principal) {
		return true
	}

	var coupon model.Coupon
	if err := db.First(&coupon, couponID).Error; err != nil {
		return false
	}
	return CanManageMerchant(db, principal, coupon.MerchantID)
}

// CanManageGroup reports whether the principal may mutate the given group:
// super-admin, or holder of an active foodie_group_admin membership scoped to
// exactly that group. Group-admin rights never cross tenant boundaries.
func CanManageGroup(db *gorm.DB, principal *model.User, groupID uint) bool {
	if principal == nil {
		return false
	}
	if IsSuperAdmin(principal) {
		return true
	}

	var membership model.GroupMembership
	err := db.Where("user_id = ? AND group_id = ? AND role = ?",
		principal.ID, groupID, model.MembershipRoleFoodieGroupAdmin).
		First(&membership).Error
	return err == nil
}

// HasEntitlement reports whether the principal may redeem the group's locked
// coupons. Checked in order, short-circuiting on first match: super-admin, a
// paid purchase for the group, an active group-admin membership.
func HasEntitlement(db *gorm.DB, principal *model.User, groupID uint) bool {
	if principal == nil {
		return false
	}
	if IsSuperAdmin(principal) {
		return true
	}

	var purchase model.Purchase
	err := db.Where("user_id = ? AND group_id = ? AND status = ?",
		principal.ID, groupID, model.PurchaseStatusPaid).
		First(&purchase).Error
	if err == nil {
		return true
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return false
	}

	return CanManageGroup(db, principal, groupID)
}
