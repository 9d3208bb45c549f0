package submission

import (
	"testing"
	"time"

	"github.com/tastecircle/tastecircle/internal/model"
)

func TestParseDraftValid(t *testing.T) {
	payload := []byte(`{
		"title": "Two-for-one tacos",
		"description": "Tuesday only",
		"couponType": "bogo",
		"cuisine": "mexican",
		"validFrom": "2026-01-01T00:00:00Z",
		"expiresAt": "2026-06-30T23:59:59Z"
	}`)

	draft, err := ParseDraft(payload)
	if err != nil {
		t.Fatalf("expected valid draft, got %v", err)
	}
	if draft.Title != "Two-for-one tacos" {
		t.Errorf("unexpected title %q", draft.Title)
	}
	if draft.CouponType != model.CouponTypeBogo {
		t.Errorf("unexpected type %q", draft.CouponType)
	}
}

func TestParseDraftFieldErrors(t *testing.T) {
	tests := []struct {
		name    string
		payload string
		field   string
	}{
		{"not json", `{{`, "payload"},
		{"missing title", `{"couponType":"percent","discountValue":10}`, "title"},
		{"bad type", `{"title":"x","couponType":"mystery"}`, "couponType"},
		{"percent too high", `{"title":"x","couponType":"percent","discountValue":150}`, "discountValue"},
		{"percent zero", `{"title":"x","couponType":"percent","discountValue":0}`, "discountValue"},
		{"amount zero", `{"title":"x","couponType":"amount","discountValue":0}`, "discountValue"},
		{"bad validFrom", `{"title":"x","couponType":"bogo","validFrom":"yesterday"}`, "validFrom"},
		{"bad expiresAt", `{"title":"x","couponType":"bogo","expiresAt":"soon"}`, "expiresAt"},
		{"window inverted", `{"title":"x","couponType":"bogo","validFrom":"2026-06-01T00:00:00Z","expiresAt":"2026-01-01T00:00:00Z"}`, "expiresAt"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseDraft([]byte(tt.payload))
			if err == nil {
				t.Fatal("expected validation error")
			}
			fieldErr, ok := err.(*FieldError)
			if !ok {
				t.Fatalf("expected *FieldError, got %T", err)
			}
			if fieldErr.Field != tt.field {
				t.Errorf("expected error on field %q, got %q", tt.field, fieldErr.Field)
			}
		})
	}
}

func TestParseDraftWindowDefaults(t *testing.T) {
	before := time.Now()
	draft, err := ParseDraft([]byte(`{"title":"x","couponType":"free_item"}`))
	if err != nil {
		t.Fatalf("expected valid draft, got %v", err)
	}

	coupon := draft.ToCoupon(1, 2)
	if coupon.ValidFrom.Before(before.Add(-time.Second)) {
		t.Error("default validFrom should be about now")
	}
	wantExpiry := coupon.ValidFrom.AddDate(1, 0, 0)
	if !coupon.ExpiresAt.Equal(wantExpiry) {
		t.Errorf("default expiry should be one year after validFrom, got %v", coupon.ExpiresAt)
	}
}

func TestToCouponDefaults(t *testing.T) {
	draft, err := ParseDraft([]byte(`{"title":"Free dessert","couponType":"free_item","discountValue":55}`))
	if err != nil {
		t.Fatalf("expected valid draft, got %v", err)
	}

	coupon := draft.ToCoupon(7, 9)
	if coupon.GroupID != 7 || coupon.MerchantID != 9 {
		t.Error("group/merchant attribution mismatch")
	}
	if !coupon.Locked {
		t.Error("coupons default to locked")
	}
	if coupon.DiscountValue != 0 {
		t.Errorf("discount value must be zeroed for free_item, got %d", coupon.DiscountValue)
	}
}

func TestToCouponExplicitUnlocked(t *testing.T) {
	draft, err := ParseDraft([]byte(`{"title":"Teaser","couponType":"percent","discountValue":10,"locked":false}`))
	if err != nil {
		t.Fatalf("expected valid draft, got %v", err)
	}
	if coupon := draft.ToCoupon(1, 1); coupon.Locked {
		t.Error("explicit locked=false must be honored")
	}
}
