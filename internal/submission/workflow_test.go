package submission

import (
	"errors"
	"testing"

	"github.com/tastecircle/tastecircle/internal/model"
	"github.com/tastecircle/tastecircle/internal/testutil"
	"gorm.io/gorm"
)

// recordingNotifier captures notifications for assertions.
type recordingNotifier struct {
	events   []string
	payloads []map[string]interface{}
}

func (n *recordingNotifier) Notify(event string, payload map[string]interface{}) {
	n.events = append(n.events, event)
	n.payloads = append(n.payloads, payload)
}

func seedCouponSubmission(t *testing.T, db *gorm.DB, payload string) *model.CouponSubmission {
	t.Helper()

	submitter := &model.User{Subject: "submitter", Role: model.RoleMerchant}
	if err := db.Create(submitter).Error; err != nil {
		t.Fatalf("failed to create submitter: %v", err)
	}
	group := &model.FoodieGroup{Slug: "sub-group", Name: "Sub Group"}
	if err := db.Create(group).Error; err != nil {
		t.Fatalf("failed to create group: %v", err)
	}
	merchant := &model.Merchant{Name: "Sub Merchant", OwnerID: submitter.ID}
	if err := db.Create(merchant).Error; err != nil {
		t.Fatalf("failed to create merchant: %v", err)
	}

	sub := &model.CouponSubmission{
		GroupID:     group.ID,
		MerchantID:  merchant.ID,
		SubmitterID: submitter.ID,
		State:       model.SubmissionStatePending,
		Payload:     payload,
	}
	if err := db.Create(sub).Error; err != nil {
		t.Fatalf("failed to create submission: %v", err)
	}
	return sub
}

const validPayload = `{"title":"Lunch special","couponType":"percent","discountValue":15}`

func TestApproveCouponPromotesDraft(t *testing.T) {
	db := testutil.OpenDB(t)
	notifier := &recordingNotifier{}
	sub := seedCouponSubmission(t, db, validPayload)

	coupon, err := ApproveCoupon(db, sub.ID, notifier)
	if err != nil {
		t.Fatalf("approval failed: %v", err)
	}
	if coupon.Title != "Lunch special" {
		t.Errorf("unexpected coupon title %q", coupon.Title)
	}
	if coupon.GroupID != sub.GroupID || coupon.MerchantID != sub.MerchantID {
		t.Error("coupon attribution must come from the submission")
	}
	if !coupon.Locked {
		t.Error("promoted coupons default to locked")
	}

	var got model.CouponSubmission
	if err := db.First(&got, sub.ID).Error; err != nil {
		t.Fatalf("failed to reload submission: %v", err)
	}
	if got.State != model.SubmissionStateApproved {
		t.Errorf("expected approved state, got %q", got.State)
	}
	if got.CouponID == nil || *got.CouponID != coupon.ID {
		t.Error("submission should reference the promoted coupon")
	}

	if len(notifier.events) != 1 || notifier.events[0] != "submission.approved" {
		t.Errorf("expected one approval notification, got %v", notifier.events)
	}
}

func TestApproveCouponIsTerminal(t *testing.T) {
	db := testutil.OpenDB(t)
	sub := seedCouponSubmission(t, db, validPayload)

	if _, err := ApproveCoupon(db, sub.ID, nil); err != nil {
		t.Fatalf("first approval failed: %v", err)
	}

	_, err := ApproveCoupon(db, sub.ID, nil)
	if !errors.Is(err, ErrAlreadyDecided) {
		t.Fatalf("expected ErrAlreadyDecided on second approval, got %v", err)
	}

	// Only one coupon may exist.
	var coupons int64
	db.Model(&model.Coupon{}).Count(&coupons)
	if coupons != 1 {
		t.Errorf("expected exactly one promoted coupon, got %d", coupons)
	}
}

func TestRejectCouponRecordsMessage(t *testing.T) {
	db := testutil.OpenDB(t)
	notifier := &recordingNotifier{}
	sub := seedCouponSubmission(t, db, validPayload)

	rejected, err := RejectCoupon(db, sub.ID, "discount too steep", notifier)
	if err != nil {
		t.Fatalf("rejection failed: %v", err)
	}
	if rejected.State != model.SubmissionStateRejected {
		t.Errorf("expected rejected state, got %q", rejected.State)
	}
	if rejected.RejectionMessage != "discount too steep" {
		t.Errorf("expected rejection message recorded, got %q", rejected.RejectionMessage)
	}

	var coupons int64
	db.Model(&model.Coupon{}).Count(&coupons)
	if coupons != 0 {
		t.Error("rejection must not create a coupon")
	}

	if len(notifier.events) != 1 || notifier.events[0] != "submission.rejected" {
		t.Errorf("expected one rejection notification, got %v", notifier.events)
	}
}

func TestApproveAfterRejectFails(t *testing.T) {
	db := testutil.OpenDB(t)
	sub := seedCouponSubmission(t, db, validPayload)

	if _, err := RejectCoupon(db, sub.ID, "no", nil); err != nil {
		t.Fatalf("rejection failed: %v", err)
	}
	if _, err := ApproveCoupon(db, sub.ID, nil); !errors.Is(err, ErrAlreadyDecided) {
		t.Fatalf("expected ErrAlreadyDecided after rejection, got %v", err)
	}
}

func TestApproveCouponWithCorruptPayloadLeavesSubmissionPending(t *testing.T) {
	db := testutil.OpenDB(t)
	sub := seedCouponSubmission(t, db, `{"title":"","couponType":"percent"}`)

	_, err := ApproveCoupon(db, sub.ID, nil)
	if err == nil {
		t.Fatal("expected approval of invalid draft to fail")
	}

	// The transaction rolled back; the submission stays pending and can be
	// rejected instead.
	var got model.CouponSubmission
	if err := db.First(&got, sub.ID).Error; err != nil {
		t.Fatalf("failed to reload submission: %v", err)
	}
	if got.State != model.SubmissionStatePending {
		t.Errorf("expected submission still pending, got %q", got.State)
	}
}

func TestApproveCouponNotFound(t *testing.T) {
	db := testutil.OpenDB(t)

	if _, err := ApproveCoupon(db, 12345, nil); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, err := RejectCoupon(db, 12345, "", nil); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestEventSubmissionLifecycle(t *testing.T) {
	db := testutil.OpenDB(t)
	notifier := &recordingNotifier{}

	submitter := &model.User{Subject: "event-submitter", Role: model.RoleMerchant}
	if err := db.Create(submitter).Error; err != nil {
		t.Fatalf("failed to create submitter: %v", err)
	}
	group := &model.FoodieGroup{Slug: "event-group", Name: "Event Group"}
	if err := db.Create(group).Error; err != nil {
		t.Fatalf("failed to create group: %v", err)
	}

	approve := &model.EventSubmission{
		GroupID:     group.ID,
		SubmitterID: submitter.ID,
		State:       model.SubmissionStatePending,
		Payload:     `{"title":"Taco crawl"}`,
	}
	if err := db.Create(approve).Error; err != nil {
		t.Fatalf("failed to create event submission: %v", err)
	}

	approved, err := ApproveEvent(db, approve.ID, notifier)
	if err != nil {
		t.Fatalf("event approval failed: %v", err)
	}
	if approved.State != model.SubmissionStateApproved {
		t.Errorf("expected approved state, got %q", approved.State)
	}
	if _, err := RejectEvent(db, approve.ID, "late", nil); !errors.Is(err, ErrAlreadyDecided) {
		t.Fatalf("expected ErrAlreadyDecided after approval, got %v", err)
	}

	reject := &model.EventSubmission{
		GroupID:     group.ID,
		SubmitterID: submitter.ID,
		State:       model.SubmissionStatePending,
		Payload:     `{"title":"Wine night"}`,
	}
	if err := db.Create(reject).Error; err != nil {
		t.Fatalf("failed to create event submission: %v", err)
	}

	rejected, err := RejectEvent(db, reject.ID, "out of season", notifier)
	if err != nil {
		t.Fatalf("event rejection failed: %v", err)
	}
	if rejected.RejectionMessage != "out of season" {
		t.Errorf("expected rejection message recorded, got %q", rejected.RejectionMessage)
	}

	want := []string{"event_submission.approved", "event_submission.rejected"}
	if len(notifier.events) != 2 || notifier.events[0] != want[0] || notifier.events[1] != want[1] {
		t.Errorf("expected notifications %v, got %v", want, notifier.events)
	}
}
