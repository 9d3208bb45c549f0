// Package payment implements the webhook ingestion pipeline and the purchase
// state machine. The provider delivers events at-least-once and in no
// guaranteed order; every handler here is idempotent and ordering-safe, with
// all exclusion pushed to the database via unique constraints and
// status-guarded updates.
package payment

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/tastecircle/tastecircle/internal/model"
	"github.com/tastecircle/tastecircle/prometheus"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Processor verifies, records, and applies payment provider webhook events.
// It is constructed once in main and injected into the webhook handler; the
// signing secret and clock live here rather than in package state.
type Processor struct {
	db        *gorm.DB
	secret    string
	tolerance time.Duration
	now       func() time.Time
	log       *zap.Logger
}

// NewProcessor creates a webhook processor.
func NewProcessor(db *gorm.DB, secret string, tolerance time.Duration, log *zap.Logger) *Processor {
	if log == nil {
		log = zap.NewNop()
	}
	return &Processor{
		db:        db,
		secret:    secret,
		tolerance: tolerance,
		now:       time.Now,
		log:       log,
	}
}

// HandleWebhook runs the full ingestion pipeline for one delivery: verify the
// signature over the raw bytes, deduplicate by provider event id, durably
// record the event, dispatch to the type handler, and stamp the processing
// outcome. Once the event is recorded the response is always 200 so the
// provider never retries a poison event; handler failures are preserved in
// the event row for operator follow-up.
func (p *Processor) HandleWebhook(raw []byte, signatureHeader string) (int, map[string]interface{}) {
	if p.secret == "" {
		p.log.Error("webhook secret is not configured")
		return http.StatusInternalServerError, map[string]interface{}{"error": "webhook not configured"}
	}

	if err := VerifySignature(raw, signatureHeader, p.secret, p.tolerance, p.now()); err != nil {
		p.log.Warn("webhook signature verification failed", zap.Error(err))
		prometheus.RecordWebhookEvent("unknown", "rejected")
		return http.StatusBadRequest, map[string]interface{}{"error": "invalid signature"}
	}

	evt, err := ParseEvent(raw)
	if err != nil || evt.ID == "" {
		p.log.Warn("malformed webhook payload", zap.Error(err))
		prometheus.RecordWebhookEvent("unknown", "rejected")
		return http.StatusBadRequest, map[string]interface{}{"error": "malformed event"}
	}

	// Idempotency check against at-least-once delivery.
	var existing model.PaymentEvent
	lookupErr := p.db.Where("provider = ? AND provider_event_id = ?", model.ProviderStripe, evt.ID).
		First(&existing).Error
	if lookupErr == nil {
		p.log.Info("duplicate webhook event ignored", zap.String("event_id", evt.ID))
		prometheus.RecordWebhookEvent(evt.Type, "duplicate")
		return http.StatusOK, map[string]interface{}{"received": true, "duplicate": true}
	}
	if !errors.Is(lookupErr, gorm.ErrRecordNotFound) {
		p.log.Error("webhook event lookup failed", zap.Error(lookupErr))
		return http.StatusInternalServerError, map[string]interface{}{"error": "event lookup failed"}
	}

	record := model.PaymentEvent{
		Provider:        model.ProviderStripe,
		ProviderEventID: evt.ID,
		EventType:       evt.Type,
		Payload:         string(raw),
		ReceivedAt:      p.now(),
	}
	if err := p.db.Create(&record).Error; err != nil {
		// A concurrent duplicate delivery raced past the lookup above; the
		// unique constraint is the final authority, and losing that race is
		// a success, not an error.
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			p.log.Info("concurrent duplicate webhook event ignored", zap.String("event_id", evt.ID))
			prometheus.RecordWebhookEvent(evt.Type, "duplicate")
			return http.StatusOK, map[string]interface{}{"received": true, "duplicate": true}
		}
		p.log.Error("failed to record webhook event", zap.Error(err))
		return http.StatusInternalServerError, map[string]interface{}{"error": "failed to record event"}
	}

	purchaseID, handleErr := p.dispatch(evt)

	processedAt := p.now()
	updates := map[string]interface{}{"processed_at": processedAt}
	if purchaseID != nil {
		updates["purchase_id"] = *purchaseID
	}
	if handleErr != nil {
		updates["processing_error"] = handleErr.Error()
		p.log.Error("webhook event handler failed",
			zap.String("event_id", evt.ID),
			zap.String("event_type", evt.Type),
			zap.Error(handleErr))
		prometheus.RecordWebhookEvent(evt.Type, "failed")
	} else {
		prometheus.RecordWebhookEvent(evt.Type, "processed")
	}

	if err := p.db.Model(&record).Updates(updates).Error; err != nil {
		p.log.Error("failed to stamp webhook event outcome", zap.Error(err))
	}

	return http.StatusOK, map[string]interface{}{"received": true}
}

// dispatch routes a verified, recorded event to its type handler. Unknown
// types are acknowledged without error so new provider event types never
// cause delivery failures.
func (p *Processor) dispatch(evt *Event) (*uint, error) {
	switch evt.Type {
	case EventCheckoutCompleted:
		return p.handleCheckoutCompleted(evt.Data.Object)
	case EventCheckoutExpired:
		return p.handleCheckoutExpired(evt.Data.Object)
	case EventChargeRefunded:
		return p.handleChargeRefunded(evt.Data.Object)
	default:
		p.log.Info("ignoring unhandled webhook event type",
			zap.String("event_id", evt.ID),
			zap.String("event_type", evt.Type))
		prometheus.RecordWebhookEvent(evt.Type, "ignored")
		return nil, nil
	}
}

// handleCheckoutCompleted marks the purchase paid and provisions group
// membership. A purchase already in a terminal state (expired, refunded) is
// never resurrected by a late completion event.
func (p *Processor) handleCheckoutCompleted(obj EventObject) (*uint, error) {
	if obj.ID == "" {
		return nil, errors.New("checkout session id missing from event")
	}

	var purchase model.Purchase
	err := p.db.Where("checkout_session_id = ?", obj.ID).First(&purchase).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return p.createPurchaseFromEvent(obj)
	}
	if err != nil {
		return nil, err
	}

	if purchase.Status == model.PurchaseStatusExpired || purchase.Status == model.PurchaseStatusRefunded {
		p.log.Warn("late checkout completion for terminal purchase ignored",
			zap.Uint("purchase_id", purchase.ID),
			zap.String("status", purchase.Status))
		return &purchase.ID, nil
	}

	updates := map[string]interface{}{
		"status":            model.PurchaseStatusPaid,
		"customer_id":       obj.Customer,
		"payment_intent_id": obj.PaymentIntent,
	}
	if purchase.PurchasedAt == nil {
		updates["purchased_at"] = p.now()
	}
	if err := p.db.Model(&purchase).Updates(updates).Error; err != nil {
		return &purchase.ID, err
	}
	if purchase.Status != model.PurchaseStatusPaid {
		prometheus.RecordPurchaseTransition(model.PurchaseStatusPaid)
	}

	if err := p.EnsureMembership(purchase.UserID, purchase.GroupID); err != nil {
		return &purchase.ID, err
	}
	return &purchase.ID, nil
}

// createPurchaseFromEvent is the fallback path for a completion event with no
// pre-created purchase row: the session metadata must name the user and
// group. A concurrent duplicate insert is treated as already-created.
func (p *Processor) createPurchaseFromEvent(obj EventObject) (*uint, error) {
	userID, err := metadataUint(obj.Metadata, "userId")
	if err != nil {
		return nil, fmt.Errorf("cannot create purchase from event: %w", err)
	}
	groupID, err := metadataUint(obj.Metadata, "groupId")
	if err != nil {
		return nil, fmt.Errorf("cannot create purchase from event: %w", err)
	}

	sessionID := obj.ID
	now := p.now()
	metadata, _ := json.Marshal(obj.Metadata)
	purchase := model.Purchase{
		UserID:            userID,
		GroupID:           groupID,
		Provider:          model.ProviderStripe,
		CheckoutSessionID: &sessionID,
		CustomerID:        obj.Customer,
		PaymentIntentID:   obj.PaymentIntent,
		AmountCents:       obj.AmountTotal,
		Currency:          obj.Currency,
		Status:            model.PurchaseStatusPaid,
		PurchasedAt:       &now,
		Metadata:          string(metadata),
	}

	if err := p.db.Create(&purchase).Error; err != nil {
		if !errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, err
		}
		// Lost the race against a duplicate delivery; the row exists now.
		if err := p.db.Where("checkout_session_id = ?", sessionID).First(&purchase).Error; err != nil {
			return nil, err
		}
	} else {
		prometheus.RecordPurchaseTransition(model.PurchaseStatusPaid)
	}

	if err := p.EnsureMembership(purchase.UserID, purchase.GroupID); err != nil {
		return &purchase.ID, err
	}
	return &purchase.ID, nil
}

// handleCheckoutExpired transitions a pending purchase to expired. The status
// guard in the WHERE clause makes a stale expiry after a race-won completion
// a no-op, so out-of-order delivery can never downgrade a paid purchase.
func (p *Processor) handleCheckoutExpired(obj EventObject) (*uint, error) {
	if obj.ID == "" {
		return nil, errors.New("checkout session id missing from event")
	}

	var purchase model.Purchase
	err := p.db.Where("checkout_session_id = ?", obj.ID).First(&purchase).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		p.log.Info("expiry event for unknown checkout session ignored", zap.String("session_id", obj.ID))
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	result := p.db.Model(&model.Purchase{}).
		Where("id = ? AND status = ?", purchase.ID, model.PurchaseStatusPending).
		Updates(map[string]interface{}{
			"status":     model.PurchaseStatusExpired,
			"expired_at": p.now(),
		})
	if result.Error != nil {
		return &purchase.ID, result.Error
	}
	if result.RowsAffected == 0 {
		p.log.Debug("expiry event ignored for non-pending purchase",
			zap.Uint("purchase_id", purchase.ID),
			zap.String("status", purchase.Status))
	} else {
		prometheus.RecordPurchaseTransition(model.PurchaseStatusExpired)
	}
	return &purchase.ID, nil
}

// handleChargeRefunded marks the purchase refunded, locating it by charge id
// with a payment-intent fallback since the charge id may not have been
// captured at checkout time.
func (p *Processor) handleChargeRefunded(obj EventObject) (*uint, error) {
	if obj.ID == "" {
		return nil, errors.New("charge id missing from event")
	}

	var purchase model.Purchase
	err := p.db.Where("charge_id = ?", obj.ID).First(&purchase).Error
	if errors.Is(err, gorm.ErrRecordNotFound) && obj.PaymentIntent != "" {
		err = p.db.Where("payment_intent_id = ?", obj.PaymentIntent).First(&purchase).Error
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("no purchase found for charge %s", obj.ID)
	}
	if err != nil {
		return nil, err
	}

	updates := map[string]interface{}{
		"status":    model.PurchaseStatusRefunded,
		"charge_id": obj.ID,
	}
	if purchase.RefundedAt == nil {
		updates["refunded_at"] = p.now()
	}
	if err := p.db.Model(&purchase).Updates(updates).Error; err != nil {
		return &purchase.ID, err
	}
	if purchase.Status != model.PurchaseStatusRefunded {
		prometheus.RecordPurchaseTransition(model.PurchaseStatusRefunded)
	}
	return &purchase.ID, nil
}

// EnsureMembership grants group access idempotently: an active membership is
// a no-op, a soft-deleted one is revived, and none at all creates a customer
// membership.
func (p *Processor) EnsureMembership(userID, groupID uint) error {
	var membership model.GroupMembership
	err := p.db.Unscoped().
		Where("user_id = ? AND group_id = ?", userID, groupID).
		Order("id DESC").
		First(&membership).Error
	if err == nil {
		if !membership.DeletedAt.Valid {
			return nil
		}
		return p.db.Unscoped().Model(&membership).Update("deleted_at", nil).Error
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}

	membership = model.GroupMembership{
		UserID:  userID,
		GroupID: groupID,
		Role:    model.MembershipRoleCustomer,
	}
	if err := p.db.Create(&membership).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil
		}
		return err
	}
	return nil
}

func metadataUint(metadata map[string]string, key string) (uint, error) {
	raw, ok := metadata[key]
	if !ok || raw == "" {
		return 0, fmt.Errorf("session metadata missing %q", key)
	}
	value, err := strconv.ParseUint(raw, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("session metadata %q is not a valid id: %w", key, err)
	}
	return uint(value), nil
}
