// Package submission implements the coupon/event submission workflow:
// pending proposals move to approved or rejected, both terminal. Approval is
// the only transition with a side effect (promoting the draft to a live
// Coupon).
package submission

import (
	"errors"

	"github.com/tastecircle/tastecircle/internal/model"
	"github.com/tastecircle/tastecircle/prometheus"
	"gorm.io/gorm"
)

// Workflow errors.
var (
	ErrNotFound       = errors.New("submission not found")
	ErrAlreadyDecided = errors.New("submission is no longer pending")
)

// Notifier is the best-effort outbound side channel for decision
// notifications. Implementations must never block the caller; failures are
// logged by the implementation and never affect the committed transition.
type Notifier interface {
	Notify(event string, payload map[string]interface{})
}

// ApproveCoupon transitions a pending coupon submission to approved and
// promotes its draft to a live Coupon inside a single transaction. Terminal
// submissions are rejected with ErrAlreadyDecided.
func ApproveCoupon(db *gorm.DB, submissionID uint, notifier Notifier) (*model.Coupon, error) {
	var coupon model.Coupon
	var sub model.CouponSubmission

	err := db.Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&sub, submissionID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}
		if sub.State != model.SubmissionStatePending {
			return ErrAlreadyDecided
		}

		draft, err := ParseDraft([]byte(sub.Payload))
		if err != nil {
			return err
		}

		coupon = draft.ToCoupon(sub.GroupID, sub.MerchantID)
		if err := tx.Create(&coupon).Error; err != nil {
			return err
		}

		// Status-guarded update so two concurrent approvals cannot both win.
		result := tx.Model(&model.CouponSubmission{}).
			Where("id = ? AND state = ?", sub.ID, model.SubmissionStatePending).
			Updates(map[string]interface{}{
				"state":     model.SubmissionStateApproved,
				"coupon_id": coupon.ID,
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return ErrAlreadyDecided
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	prometheus.RecordSubmissionOperation("approve")
	if notifier != nil {
		notifier.Notify("submission.approved", map[string]interface{}{
			"submission_id": sub.ID,
			"coupon_id":     coupon.ID,
			"group_id":      sub.GroupID,
			"merchant_id":   sub.MerchantID,
		})
	}
	return &coupon, nil
}

// RejectCoupon transitions a pending coupon submission to rejected with an
// optional human-readable reason.
func RejectCoupon(db *gorm.DB, submissionID uint, message string, notifier Notifier) (*model.CouponSubmission, error) {
	var sub model.CouponSubmission
	if err := db.First(&sub, submissionID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if sub.State != model.SubmissionStatePending {
		return nil, ErrAlreadyDecided
	}

	result := db.Model(&model.CouponSubmission{}).
		Where("id = ? AND state = ?", sub.ID, model.SubmissionStatePending).
		Updates(map[string]interface{}{
			"state":             model.SubmissionStateRejected,
			"rejection_message": message,
		})
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		return nil, ErrAlreadyDecided
	}

	sub.State = model.SubmissionStateRejected
	sub.RejectionMessage = message

	prometheus.RecordSubmissionOperation("reject")
	if notifier != nil {
		notifier.Notify("submission.rejected", map[string]interface{}{
			"submission_id": sub.ID,
			"group_id":      sub.GroupID,
			"merchant_id":   sub.MerchantID,
			"message":       message,
		})
	}
	return &sub, nil
}

// RejectEvent transitions a pending event submission to rejected.
func RejectEvent(db *gorm.DB, submissionID uint, message string, notifier Notifier) (*model.EventSubmission, error) {
	var sub model.EventSubmission
	if err := db.First(&sub, submissionID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if sub.State != model.SubmissionStatePending {
		return nil, ErrAlreadyDecided
	}

	result := db.Model(&model.EventSubmission{}).
		Where("id = ? AND state = ?", sub.ID, model.SubmissionStatePending).
		Updates(map[string]interface{}{
			"state":             model.SubmissionStateRejected,
			"rejection_message": message,
		})
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		return nil, ErrAlreadyDecided
	}

	sub.State = model.SubmissionStateRejected
	sub.RejectionMessage = message

	prometheus.RecordSubmissionOperation("reject")
	if notifier != nil {
		notifier.Notify("event_submission.rejected", map[string]interface{}{
			"submission_id": sub.ID,
			"group_id":      sub.GroupID,
			"message":       message,
		})
	}
	return &sub, nil
}

// ApproveEvent transitions a pending event submission to approved. Events
// have no promoted record; approval makes the submission publicly visible.
func ApproveEvent(db *gorm.DB, submissionID uint, notifier Notifier) (*model.EventSubmission, error) {
	var sub model.EventSubmission
	if err := db.First(&sub, submissionID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if sub.State != model.SubmissionStatePending {
		return nil, ErrAlreadyDecided
	}

	result := db.Model(&model.EventSubmission{}).
		Where("id = ? AND state = ?", sub.ID, model.SubmissionStatePending).
		Update("state", model.SubmissionStateApproved)
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		return nil, ErrAlreadyDecided
	}

	sub.State = model.SubmissionStateApproved

	prometheus.RecordSubmissionOperation("approve")
	if notifier != nil {
		notifier.Notify("event_submission.approved", map[string]interface{}{
			"submission_id": sub.ID,
			"group_id":      sub.GroupID,
		})
	}
	return &sub, nil
}
