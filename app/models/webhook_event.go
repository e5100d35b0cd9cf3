package models

import (
	"time"

	"gorm.io/datatypes"
)

const (
	WebhookStatusPending   = "pending"
	WebhookStatusProcessed = "processed"
	WebhookStatusFailed    = "failed"
)

// WebhookEvent is a received upstream delivery. Rows are inserted as pending by
// the ingestion endpoint and resolved exactly once by the processor.
type WebhookEvent struct {
	ID           uint           `gorm:"primaryKey" json:"id"`
	DeliveryID   string         `gorm:"type:varchar(191);not null;uniqueIndex:ux_webhook_events_delivery_id" json:"delivery_id"`
	EventType    string         `gorm:"type:varchar(100);not null;index" json:"event_type"`
	Action       *string        `gorm:"type:varchar(100);default:null;index" json:"action"`
	Payload      datatypes.JSON `gorm:"type:json;not null" json:"payload"`
	Status       string         `gorm:"type:varchar(20);not null;default:'pending';index:idx_webhook_events_status_created,priority:1" json:"status"`
	ErrorMessage *string        `gorm:"type:text;default:null" json:"error_message"`
	ProcessedAt  *time.Time     `gorm:"type:timestamp;default:null" json:"processed_at"`
	CreatedAt    time.Time      `gorm:"autoCreateTime;index:idx_webhook_events_status_created,priority:2" json:"created_at"`
}

// ActionName returns the action or an empty string when the delivery had none.
func (e *WebhookEvent) ActionName() string {
	if e.Action == nil {
		return ""
	}
	return *e.Action
}

// IsValidWebhookStatus reports whether s is one of the known event states.
func IsValidWebhookStatus(s string) bool {
	switch s {
	case WebhookStatusPending, WebhookStatusProcessed, WebhookStatusFailed:
		return true
	default:
		return false
	}
}
