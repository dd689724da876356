package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scportal/search-api/internal/dto"
	"github.com/scportal/search-api/internal/middleware"
	"github.com/scportal/search-api/internal/models"
	appErrors "github.com/scportal/search-api/pkg/errors"
)

type configurationServiceMock struct {
	listResp  []dto.ConfigurationItem
	updateErr error
	actor     *models.JWTClaims
	key       string
	req       dto.UpdateConfigurationRequest
}

func (m *configurationServiceMock) List(ctx context.Context) ([]dto.ConfigurationItem, error) {
	return m.listResp, nil
}

func (m *configurationServiceMock) Get(ctx context.Context, key string) (*dto.ConfigurationItem, error) {
	if key != models.ConfigDailyDownloadQuota {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "unsupported configuration key")
	}
	return &dto.ConfigurationItem{Key: key, Value: "2", Type: "NUMERIC", Multiplier: "terabyte"}, nil
}

func (m *configurationServiceMock) Update(ctx context.Context, key string, req dto.UpdateConfigurationRequest, actor *models.JWTClaims) (*dto.ConfigurationItem, error) {
	m.key, m.req, m.actor = key, req, actor
	if m.updateErr != nil {
		return nil, m.updateErr
	}
	return &dto.ConfigurationItem{Key: key, Value: req.Value, Type: "NUMERIC", Multiplier: req.Multiplier}, nil
}

func newConfigurationRequest(method, body string) (*gin.Context, *httptest.ResponseRecorder) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(method, "/configuration/quota", bytes.NewReader([]byte(body)))
	req.Header.Set("Content-Type", "application/json")
	c.Request = req
	c.Params = gin.Params{{Key: "key", Value: models.ConfigDailyDownloadQuota}}
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "admin", Admin: true})
	return c, w
}

func TestConfigurationHandlerUpdatePassesActor(t *testing.T) {
	svc := &configurationServiceMock{}
	handler := NewConfigurationHandler(svc)
	c, w := newConfigurationRequest(http.MethodPut, `{"value":"500","multiplier":"gigabyte"}`)

	handler.Update(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, models.ConfigDailyDownloadQuota, svc.key)
	assert.Equal(t, "gigabyte", svc.req.Multiplier)
	require.NotNil(t, svc.actor)
	assert.Equal(t, "admin", svc.actor.UserID)

	var body struct {
		Data dto.ConfigurationItem `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "500", body.Data.Value)
}

func TestConfigurationHandlerUpdateInvalidBody(t *testing.T) {
	svc := &configurationServiceMock{}
	handler := NewConfigurationHandler(svc)
	c, w := newConfigurationRequest(http.MethodPut, `invalid`)

	handler.Update(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Empty(t, svc.key)
}

func TestConfigurationHandlerUpdateServiceError(t *testing.T) {
	handler := NewConfigurationHandler(&configurationServiceMock{updateErr: appErrors.Clone(appErrors.ErrValidation, "unknown multiplier")})
	c, w := newConfigurationRequest(http.MethodPut, `{"value":"5","multiplier":"zettabyte"}`)

	handler.Update(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestConfigurationHandlerGetUnknownKey(t *testing.T) {
	handler := NewConfigurationHandler(&configurationServiceMock{})
	c, w := newConfigurationRequest(http.MethodGet, "")
	c.Params = gin.Params{{Key: "key", Value: "Portal Banner"}}

	handler.Get(c)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestConfigurationHandlerList(t *testing.T) {
	handler := NewConfigurationHandler(&configurationServiceMock{listResp: []dto.ConfigurationItem{{Key: models.ConfigDailyDownloadQuota, Default: true}}})
	c, w := newConfigurationRequest(http.MethodGet, "")

	handler.List(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"default":true`)
}
