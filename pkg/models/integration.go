package models

import "time"

// Integration is a provider configuration: credentials and endpoint for one
// CI provider installation. Consumed read-only by resolution and dispatch;
// a disabled or missing integration must never be used to dispatch.
type Integration struct {
	ID        string            `json:"id"`
	Name      string            `json:"name" validate:"required"`
	Type      ProviderType      `json:"type" validate:"required"`
	Enabled   bool              `json:"enabled"`
	IsDefault bool              `json:"is_default"`
	Config    map[string]string `json:"config,omitempty"`
	CreatedAt time.Time         `json:"created_at"`
	UpdatedAt time.Time         `json:"updated_at"`
}
