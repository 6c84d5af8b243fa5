package models

import (
	"gorm.io/gorm"
)

// Domain status values
const (
	DomainStatusPending  = "pending"
	DomainStatusVerified = "verified"
	DomainStatusFailed   = "failed"
)

// DNSRecord is one DNS record a sending domain needs. The full ordered set is
// persisted on the domain so it can be shown again for manual setup.
type DNSRecord struct {
	Type     string `json:"type"`    // TXT, MX, CNAME
	Name     string `json:"name"`    // fully qualified record name
	Value    string `json:"value"`   // record data, including MX priority prefix
	Priority int    `json:"priority,omitempty"`
	TTL      int    `json:"ttl"`
	Purpose  string `json:"purpose"` // verification, mx, spf, dmarc, dkim
}

// Domain represents a sending domain registered with the delivery provider.
// The name is unique across the whole system, not per user.
type Domain struct {
	gorm.Model
	UserID uint `gorm:"not null;index" json:"user_id"`

	Name   string `gorm:"uniqueIndex;not null" json:"name"`
	Status string `gorm:"not null;default:'pending';index" json:"status"` // pending, verified, failed

	// ========= Delivery provider (SES) =========
	SESIdentity         string `json:"ses_identity"`
	SESConfigurationSet string `json:"ses_configuration_set"`
	VerificationToken   string `json:"verification_token"`

	// ========= DNS provider (DigitalOcean) =========
	DOManaged    bool    `gorm:"default:false" json:"do_managed"`
	DODomainName *string `json:"do_domain_name,omitempty"`

	// Ordered record set generated at provisioning time
	DNSRecords []DNSRecord `gorm:"serializer:json" json:"dns_records"`

	// Relations
	User      User       `gorm:"constraint:OnDelete:CASCADE" json:"-"`
	APIKeys   []APIKey   `gorm:"foreignKey:DomainID" json:"api_keys,omitempty"`
	EmailLogs []EmailLog `gorm:"foreignKey:DomainID" json:"-"`
}
