package models

import (
	"time"

	"gorm.io/gorm"
)

// PermissionSend allows sending email through /api/emails.
const PermissionSend = "send"

// APIKey is a domain-scoped sending credential. Only the bcrypt hash and the
// lookup prefix persist; the plaintext secret is returned once at creation.
type APIKey struct {
	gorm.Model
	UserID   uint `gorm:"not null;index" json:"user_id"`
	DomainID uint `gorm:"not null;index" json:"domain_id"`

	Name string `gorm:"not null" json:"name"`

	// KeyPrefix is the non-secret "frs_<id>" portion, indexed because the
	// bcrypt hash itself cannot be looked up.
	KeyPrefix string `gorm:"not null;index" json:"key_prefix"`
	KeyHash   string `gorm:"not null" json:"-"`

	Permissions []string   `gorm:"serializer:json" json:"permissions"`
	LastUsedAt  *time.Time `json:"last_used_at"`

	// Relations
	User   User   `gorm:"constraint:OnDelete:CASCADE" json:"-"`
	Domain Domain `gorm:"constraint:OnDelete:CASCADE" json:"-"`
}

// HasPermission reports whether the key carries the given permission string.
func (k *APIKey) HasPermission(perm string) bool {
	for _, p := range k.Permissions {
		if p == perm {
			return true
		}
	}
	return false
}
