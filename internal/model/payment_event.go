package model

import "time"

// PaymentEvent stores provider webhook payloads with deduplication metadata
// for idempotent processing. Append-only except for ProcessedAt and
// ProcessingError, which are stamped exactly once after handling.
type PaymentEvent struct {
	ID              uint       `json:"id" gorm:"primaryKey"`
	Provider        string     `json:"provider" gorm:"type:varchar(20);not null;uniqueIndex:ux_payment_events_provider_event,priority:1"`
	ProviderEventID string     `json:"provider_event_id" gorm:"type:varchar(191);not null;uniqueIndex:ux_payment_events_provider_event,priority:2"`
	EventType       string     `json:"event_type" gorm:"type:varchar(100);not null;index"`
	Payload         string     `json:"payload" gorm:"type:text;not null"`
	ReceivedAt      time.Time  `json:"received_at"`
	ProcessedAt     *time.Time `json:"processed_at,omitempty"`
	ProcessingError string     `json:"processing_error,omitempty" gorm:"type:text"`
	PurchaseID      *uint      `json:"purchase_id,omitempty" gorm:"index"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}
