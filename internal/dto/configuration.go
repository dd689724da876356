package dto

import "time"

// ConfigurationItem represents a configuration entry exposed via API.
type ConfigurationItem struct {
	Key         string     `json:"key"`
	Value       string     `json:"value"`
	Type        string     `json:"type"`
	Multiplier  string     `json:"multiplier,omitempty"`
	Description string     `json:"description"`
	Default     bool       `json:"default"`
	UpdatedAt   *time.Time `json:"updated_at,omitempty"`
}

// UpdateConfigurationRequest describes payload for updating a single configuration.
type UpdateConfigurationRequest struct {
	Value      string `json:"value" validate:"required"`
	Multiplier string `json:"multiplier" validate:"omitempty,oneof=byte kilobyte megabyte gigabyte terabyte petabyte exabyte"`
}
