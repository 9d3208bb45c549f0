package submission

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/tastecircle/tastecircle/internal/model"
)

// CouponDraft is the validated intermediate form of a submitted coupon
// payload. Shape-checking happens at intake so approval never has to deal
// with malformed data.
type CouponDraft struct {
	Title         string `json:"title"`
	Description   string `json:"description,omitempty"`
	CouponType    string `json:"couponType"`
	DiscountValue int    `json:"discountValue,omitempty"`
	Cuisine       string `json:"cuisine,omitempty"`
	ValidFrom     string `json:"validFrom,omitempty"`
	ExpiresAt     string `json:"expiresAt,omitempty"`
	Locked        *bool  `json:"locked,omitempty"`

	validFrom time.Time
	expiresAt time.Time
}

// FieldError is a validation failure naming the offending field.
type FieldError struct {
	Field   string
	Message string
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ParseDraft decodes and validates a submission payload into a CouponDraft.
func ParseDraft(payload []byte) (*CouponDraft, error) {
	var draft CouponDraft
	if err := json.Unmarshal(payload, &draft); err != nil {
		return nil, &FieldError{Field: "payload", Message: "invalid JSON"}
	}

	if draft.Title == "" {
		return nil, &FieldError{Field: "title", Message: "is required"}
	}
	if !model.IsValidCouponType(draft.CouponType) {
		return nil, &FieldError{Field: "couponType", Message: "must be one of percent, amount, bogo, free_item"}
	}
	if draft.CouponType == model.CouponTypePercent && (draft.DiscountValue < 1 || draft.DiscountValue > 100) {
		return nil, &FieldError{Field: "discountValue", Message: "must be between 1 and 100 for percent coupons"}
	}
	if draft.CouponType == model.CouponTypeAmount && draft.DiscountValue < 1 {
		return nil, &FieldError{Field: "discountValue", Message: "must be positive for amount coupons"}
	}

	var err error
	draft.validFrom, err = parseOptionalTime(draft.ValidFrom, time.Now())
	if err != nil {
		return nil, &FieldError{Field: "validFrom", Message: "must be an RFC 3339 timestamp"}
	}
	draft.expiresAt, err = parseOptionalTime(draft.ExpiresAt, draft.validFrom.AddDate(1, 0, 0))
	if err != nil {
		return nil, &FieldError{Field: "expiresAt", Message: "must be an RFC 3339 timestamp"}
	}
	if !draft.expiresAt.After(draft.validFrom) {
		return nil, &FieldError{Field: "expiresAt", Message: "must be after validFrom"}
	}

	return &draft, nil
}

// ToCoupon materializes the draft as a live Coupon for the given group and
// merchant. Defaults: locked is true when absent; discount value stays 0 for
// types that do not use it (bogo, free_item).
func (d *CouponDraft) ToCoupon(groupID, merchantID uint) model.Coupon {
	locked := true
	if d.Locked != nil {
		locked = *d.Locked
	}

	discount := d.DiscountValue
	if d.CouponType == model.CouponTypeBogo || d.CouponType == model.CouponTypeFreeItem {
		discount = 0
	}

	return model.Coupon{
		GroupID:       groupID,
		MerchantID:    merchantID,
		Title:         d.Title,
		Description:   d.Description,
		CouponType:    d.CouponType,
		DiscountValue: discount,
		Cuisine:       d.Cuisine,
		ValidFrom:     d.validFrom,
		ExpiresAt:     d.expiresAt,
		Locked:        locked,
	}
}

func parseOptionalTime(value string, fallback time.Time) (time.Time, error) {
	if value == "" {
		return fallback, nil
	}
	return time.Parse(time.RFC3339, value)
}
