package models

import "time"

// Organization is the tenant boundary. Every other entity is scoped to one
// organization and cross-tenant visibility is forbidden everywhere.
type Organization struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Slug      string    `json:"slug"`
	Plan      string    `json:"plan"`
	Settings  string    `json:"settings"` // JSON
	CreatedAt time.Time `json:"created_at"`
}
