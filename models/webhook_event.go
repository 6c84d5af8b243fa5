package models

import (
	"gorm.io/gorm"
)

// WebhookEvent is an immutable record of one delivery-status notification from
// the provider. EmailLogID is nil when no log matched the message id; those
// rows stay processed=false for manual triage.
type WebhookEvent struct {
	gorm.Model
	EmailLogID *uint `gorm:"index" json:"email_log_id,omitempty"`

	EventType  string `gorm:"not null" json:"event_type"`
	RawPayload string `gorm:"type:text" json:"raw_payload"`
	Processed  bool   `gorm:"default:false" json:"processed"`

	// Relations
	EmailLog *EmailLog `gorm:"constraint:OnDelete:CASCADE" json:"-"`
}
