package models

import "time"

// Token is an organization-scoped API credential. Only the SHA-256 hash is
// stored; the full secret is shown once at creation.
type Token struct {
	ID             string     `json:"id"`
	OrganizationID string     `json:"organization_id"`
	Name           string     `json:"name"`
	TokenHash      string     `json:"-"`
	TokenPrefix    string     `json:"token_prefix"` // first 8 chars for display
	CreatedAt      time.Time  `json:"created_at"`
	LastUsedAt     *time.Time `json:"last_used_at,omitempty"`
	ExpiresAt      *time.Time `json:"expires_at,omitempty"`
	Active         bool       `json:"active"`
}

// Expired reports whether the token has passed its expiry
func (t *Token) Expired(now time.Time) bool {
	return t.ExpiresAt != nil && now.After(*t.ExpiresAt)
}
