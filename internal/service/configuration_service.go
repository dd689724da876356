package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/scportal/search-api/internal/dto"
	"github.com/scportal/search-api/internal/models"
	appErrors "github.com/scportal/search-api/pkg/errors"
)

type configurationRepository interface {
	ListByKeys(ctx context.Context, keys []string) ([]models.Configuration, error)
	Get(ctx context.Context, key string) (*models.Configuration, error)
	Upsert(ctx context.Context, cfg *models.Configuration) error
}

type allowedConfiguration struct {
	Key         string
	Type        models.ConfigurationType
	Description string
	// ByteSized entries take a multiplier and must resolve to whole bytes.
	ByteSized bool
}

var allowedConfigurationKeys = []string{
	models.ConfigDailyDownloadQuota,
}

var allowedConfigurations = map[string]allowedConfiguration{
	models.ConfigDailyDownloadQuota: {
		Key:         models.ConfigDailyDownloadQuota,
		Type:        models.ConfigurationTypeNumeric,
		Description: "Maximum bytes a user may download through bulk download per day",
		ByteSized:   true,
	},
}

// ConfigurationServiceConfig tunes runtime behaviour.
type ConfigurationServiceConfig struct {
	// DailyQuotaBytes is reported while no admin entry is stored.
	DailyQuotaBytes int64
}

// ConfigurationService manages the admin-editable portal settings.
type ConfigurationService struct {
	repo      configurationRepository
	validator *validator.Validate
	logger    *zap.Logger
	defaults  map[string]models.Configuration
}

// NewConfigurationService constructs a ConfigurationService.
func NewConfigurationService(repo configurationRepository, validate *validator.Validate, logger *zap.Logger, cfg ConfigurationServiceConfig) *ConfigurationService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	defaults := map[string]models.Configuration{
		models.ConfigDailyDownloadQuota: {
			Key:        models.ConfigDailyDownloadQuota,
			Value:      strconv.FormatInt(cfg.DailyQuotaBytes, 10),
			Type:       models.ConfigurationTypeNumeric,
			Multiplier: strPtr("byte"),
		},
	}
	return &ConfigurationService{
		repo:      repo,
		validator: validate,
		logger:    logger,
		defaults:  defaults,
	}
}

// List returns every allowed entry, falling back to defaults for unset keys.
func (s *ConfigurationService) List(ctx context.Context) ([]dto.ConfigurationItem, error) {
	keys := allowedKeys()
	rows, err := s.repo.ListByKeys(ctx, keys)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list configurations")
	}
	existing := make(map[string]models.Configuration, len(rows))
	for _, row := range rows {
		existing[row.Key] = row
	}

	items := make([]dto.ConfigurationItem, 0, len(keys))
	for _, key := range keys {
		if row, ok := existing[key]; ok {
			items = append(items, toConfigurationItem(row, false))
			continue
		}
		items = append(items, toConfigurationItem(s.defaults[key], true))
	}
	return items, nil
}

// Get retrieves a single configuration.
func (s *ConfigurationService) Get(ctx context.Context, key string) (*dto.ConfigurationItem, error) {
	if _, err := s.requireAllowedKey(key); err != nil {
		return nil, err
	}
	cfg, err := s.repo.Get(ctx, key)
	if err != nil {
		if appErrors.Is(err, appErrors.ErrNotFound) {
			item := toConfigurationItem(s.defaults[key], true)
			return &item, nil
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to get configuration")
	}
	item := toConfigurationItem(*cfg, false)
	return &item, nil
}

// Update validates and stores a new value for key.
func (s *ConfigurationService) Update(ctx context.Context, key string, req dto.UpdateConfigurationRequest, actor *models.JWTClaims) (*dto.ConfigurationItem, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	meta, err := s.requireAllowedKey(key)
	if err != nil {
		return nil, err
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid configuration payload")
	}

	cfg := models.Configuration{
		Key:         key,
		Type:        meta.Type,
		Description: strPtr(meta.Description),
	}
	cfg.Value, err = validateConfigurationValue(meta, req.Value)
	if err != nil {
		return nil, err
	}
	if meta.ByteSized {
		multiplier := strings.ToLower(strings.TrimSpace(req.Multiplier))
		if multiplier == "" {
			multiplier = "byte"
		}
		if !models.IsByteMultiplier(multiplier) {
			return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown multiplier %q", req.Multiplier))
		}
		cfg.Multiplier = &multiplier
		if _, err := cfg.NumericValue(); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid configuration value")
		}
	}

	if err := s.repo.Upsert(ctx, &cfg); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update configuration")
	}
	s.logger.Info("configuration updated",
		zap.String("key", key),
		zap.String("value", cfg.Value),
		zap.String("actor_id", actor.UserID))

	item := toConfigurationItem(cfg, false)
	return &item, nil
}

func (s *ConfigurationService) requireAllowedKey(key string) (allowedConfiguration, error) {
	meta, ok := allowedConfigurations[key]
	if !ok {
		return allowedConfiguration{}, appErrors.Clone(appErrors.ErrNotFound, "unsupported configuration key")
	}
	return meta, nil
}

func validateConfigurationValue(meta allowedConfiguration, value string) (string, error) {
	value = strings.TrimSpace(value)
	switch meta.Type {
	case models.ConfigurationTypeBoolean:
		switch strings.ToLower(value) {
		case "true", "1":
			return "true", nil
		case "false", "0":
			return "false", nil
		}
		return "", appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("%s expects boolean value", meta.Key))
	case models.ConfigurationTypeNumeric:
		number, err := strconv.ParseFloat(value, 64)
		if err != nil || number < 0 {
			return "", appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("%s expects a non-negative number", meta.Key))
		}
		return value, nil
	case models.ConfigurationTypeString:
		return value, nil
	default:
		return "", appErrors.Clone(appErrors.ErrValidation, "unsupported configuration type")
	}
}

func toConfigurationItem(cfg models.Configuration, isDefault bool) dto.ConfigurationItem {
	item := dto.ConfigurationItem{
		Key:     cfg.Key,
		Value:   cfg.Value,
		Type:    string(cfg.Type),
		Default: isDefault,
	}
	if meta, ok := allowedConfigurations[cfg.Key]; ok {
		item.Description = meta.Description
	}
	if cfg.Description != nil && *cfg.Description != "" {
		item.Description = *cfg.Description
	}
	if cfg.Multiplier != nil {
		item.Multiplier = *cfg.Multiplier
	}
	if !cfg.UpdatedAt.IsZero() {
		updatedAt := cfg.UpdatedAt
		item.UpdatedAt = &updatedAt
	}
	return item
}

func allowedKeys() []string {
	keys := make([]string, len(allowedConfigurationKeys))
	copy(keys, allowedConfigurationKeys)
	return keys
}

func strPtr(value string) *string {
	if value == "" {
		return nil
	}
	result := value
	return &result
}
