package models

import (
	"gorm.io/gorm"
)

// Email log status values
const (
	EmailStatusPending    = "pending"
	EmailStatusSent       = "sent"
	EmailStatusFailed     = "failed"
	EmailStatusDelivered  = "delivered"
	EmailStatusBounced    = "bounced"
	EmailStatusComplained = "complained"
)

// Attachment holds attachment metadata recorded with a send attempt. The
// decoded content is never persisted.
type Attachment struct {
	Filename    string `json:"filename"`
	ContentType string `json:"content_type,omitempty"`
	Size        int    `json:"size"`
}

// EmailLog is one row per send attempt. It is created by the send workflow and
// afterwards mutated only by the webhook ingester.
type EmailLog struct {
	gorm.Model
	APIKeyID *uint `gorm:"index" json:"api_key_id,omitempty"`
	DomainID uint  `gorm:"not null;index" json:"domain_id"`

	FromEmail string   `gorm:"not null" json:"from"`
	To        []string `gorm:"serializer:json" json:"to"`
	CC        []string `gorm:"serializer:json" json:"cc,omitempty"`
	BCC       []string `gorm:"serializer:json" json:"bcc,omitempty"`
	Subject   string   `json:"subject"`

	HTMLBody    string       `gorm:"type:text" json:"-"`
	TextBody    string       `gorm:"type:text" json:"-"`
	Attachments []Attachment `gorm:"serializer:json" json:"attachments,omitempty"`

	Status string `gorm:"not null;default:'pending';index" json:"status"`

	// SESMessageID is the delivery provider's message id, used to correlate
	// asynchronous delivery notifications back to this row.
	SESMessageID string `gorm:"index" json:"ses_message_id"`

	ErrorMessage       string `gorm:"type:text" json:"error_message,omitempty"`
	LastWebhookPayload string `gorm:"type:text" json:"-"`

	// Relations
	APIKey *APIKey `gorm:"constraint:OnDelete:SET NULL" json:"-"`
	Domain Domain  `gorm:"constraint:OnDelete:CASCADE" json:"-"`
}
