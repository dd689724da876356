package models

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ConfigurationType defines supported types for configuration values.
type ConfigurationType string

const (
	ConfigurationTypeString  ConfigurationType = "STRING"
	ConfigurationTypeBoolean ConfigurationType = "BOOLEAN"
	ConfigurationTypeNumeric ConfigurationType = "NUMERIC"
)

// Admin-editable configuration keys read by the service.
const (
	ConfigDailyDownloadQuota = "Daily User Download Quota"
)

// Configuration represents a persisted admin configuration entry.
type Configuration struct {
	Key         string            `db:"key" json:"key"`
	Value       string            `db:"value" json:"value"`
	Type        ConfigurationType `db:"type" json:"type"`
	Multiplier  *string           `db:"multiplier" json:"multiplier,omitempty"`
	Description *string           `db:"description" json:"description,omitempty"`
	UpdatedAt   time.Time         `db:"updated_at" json:"updated_at"`
}

var byteMultipliers = map[string]float64{
	"byte":     1,
	"kilobyte": 1 << 10,
	"megabyte": 1 << 20,
	"gigabyte": 1 << 30,
	"terabyte": 1 << 40,
	"petabyte": 1 << 50,
	"exabyte":  1 << 60,
}

// NumericValue converts a numeric entry into its base value, applying the
// byte-size multiplier when one is set.
func (c Configuration) NumericValue() (float64, error) {
	if c.Type != ConfigurationTypeNumeric {
		return 0, fmt.Errorf("configuration %q is %s, not numeric", c.Key, c.Type)
	}
	value, err := strconv.ParseFloat(strings.TrimSpace(c.Value), 64)
	if err != nil {
		return 0, fmt.Errorf("parse configuration %q: %w", c.Key, err)
	}
	if c.Multiplier == nil || *c.Multiplier == "" {
		return value, nil
	}
	factor, ok := byteMultipliers[strings.ToLower(*c.Multiplier)]
	if !ok {
		return 0, fmt.Errorf("configuration %q has unknown multiplier %q", c.Key, *c.Multiplier)
	}
	return value * factor, nil
}

// IsByteMultiplier reports whether name is a supported byte-size unit.
func IsByteMultiplier(name string) bool {
	_, ok := byteMultipliers[strings.ToLower(name)]
	return ok
}
