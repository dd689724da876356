package service

import (
	"context"
	"errors"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scportal/search-api/internal/dto"
	"github.com/scportal/search-api/internal/models"
	appErrors "github.com/scportal/search-api/pkg/errors"
)

type configurationRepoStub struct {
	items map[string]models.Configuration
	err   error
}

func (s *configurationRepoStub) ListByKeys(ctx context.Context, keys []string) ([]models.Configuration, error) {
	if s.err != nil {
		return nil, s.err
	}
	result := []models.Configuration{}
	for _, key := range keys {
		if cfg, ok := s.items[key]; ok {
			result = append(result, cfg)
		}
	}
	return result, nil
}

func (s *configurationRepoStub) Get(ctx context.Context, key string) (*models.Configuration, error) {
	if s.err != nil {
		return nil, s.err
	}
	if cfg, ok := s.items[key]; ok {
		return &cfg, nil
	}
	return nil, appErrors.Clone(appErrors.ErrNotFound, "configuration not set")
}

func (s *configurationRepoStub) Upsert(ctx context.Context, cfg *models.Configuration) error {
	if s.err != nil {
		return s.err
	}
	if s.items == nil {
		s.items = make(map[string]models.Configuration)
	}
	s.items[cfg.Key] = *cfg
	return nil
}

var configAdmin = &models.JWTClaims{UserID: "admin-1", Admin: true}

func newConfigurationFixture() (*ConfigurationService, *configurationRepoStub) {
	repo := &configurationRepoStub{}
	svc := NewConfigurationService(repo, validator.New(), nil, ConfigurationServiceConfig{DailyQuotaBytes: 2 << 40})
	return svc, repo
}

func TestConfigurationListFallsBackToDefault(t *testing.T) {
	svc, _ := newConfigurationFixture()

	items, err := svc.List(context.Background())
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, models.ConfigDailyDownloadQuota, items[0].Key)
	assert.Equal(t, "2199023255552", items[0].Value)
	assert.Equal(t, "byte", items[0].Multiplier)
	assert.True(t, items[0].Default)
}

func TestConfigurationUpdateStoresByteSizedValue(t *testing.T) {
	svc, repo := newConfigurationFixture()

	item, err := svc.Update(context.Background(), models.ConfigDailyDownloadQuota, dto.UpdateConfigurationRequest{Value: " 500 ", Multiplier: "gigabyte"}, configAdmin)
	require.NoError(t, err)
	assert.Equal(t, "500", item.Value)
	assert.Equal(t, "gigabyte", item.Multiplier)
	assert.False(t, item.Default)

	stored := repo.items[models.ConfigDailyDownloadQuota]
	bytes, err := stored.NumericValue()
	require.NoError(t, err)
	assert.Equal(t, float64(500<<30), bytes)

	got, err := svc.Get(context.Background(), models.ConfigDailyDownloadQuota)
	require.NoError(t, err)
	assert.Equal(t, "500", got.Value)
}

func TestConfigurationUpdateDefaultsMultiplierToBytes(t *testing.T) {
	svc, repo := newConfigurationFixture()

	_, err := svc.Update(context.Background(), models.ConfigDailyDownloadQuota, dto.UpdateConfigurationRequest{Value: "1024"}, configAdmin)
	require.NoError(t, err)
	assert.Equal(t, "byte", *repo.items[models.ConfigDailyDownloadQuota].Multiplier)
}

func TestConfigurationUpdateValidation(t *testing.T) {
	svc, repo := newConfigurationFixture()

	cases := []dto.UpdateConfigurationRequest{
		{Value: ""},
		{Value: "lots"},
		{Value: "-5", Multiplier: "byte"},
		{Value: "5", Multiplier: "zettabyte"},
	}
	for _, req := range cases {
		_, err := svc.Update(context.Background(), models.ConfigDailyDownloadQuota, req, configAdmin)
		require.Error(t, err, req.Value)
		assert.True(t, appErrors.Is(err, appErrors.ErrValidation), req.Value)
	}
	assert.Empty(t, repo.items)

	_, err := svc.Update(context.Background(), "Portal Banner", dto.UpdateConfigurationRequest{Value: "hi"}, configAdmin)
	assert.True(t, appErrors.Is(err, appErrors.ErrNotFound))

	_, err = svc.Update(context.Background(), models.ConfigDailyDownloadQuota, dto.UpdateConfigurationRequest{Value: "1"}, nil)
	assert.True(t, appErrors.Is(err, appErrors.ErrUnauthorized))
}

func TestConfigurationRepositoryFailure(t *testing.T) {
	svc, repo := newConfigurationFixture()
	repo.err = errors.New("db down")

	_, err := svc.List(context.Background())
	assert.True(t, appErrors.Is(err, appErrors.ErrInternal))

	_, err = svc.Get(context.Background(), models.ConfigDailyDownloadQuota)
	assert.True(t, appErrors.Is(err, appErrors.ErrInternal))
}
