package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scportal/search-api/internal/dto"
	"github.com/scportal/search-api/internal/middleware"
	"github.com/scportal/search-api/internal/models"
	appErrors "github.com/scportal/search-api/pkg/errors"
)

type fakeAuthCodes struct {
	createdFor string
	owner      *models.User
}

func (f *fakeAuthCodes) Create(_ context.Context, userID string) (*models.AuthCode, error) {
	f.createdFor = userID
	return &models.AuthCode{Code: 123456, UserID: userID, TTL: 1800}, nil
}

func (f *fakeAuthCodes) Verify(_ context.Context, raw string) (*models.User, error) {
	if raw == "" {
		return nil, appErrors.ErrAuthCodeRequired
	}
	if raw != "123456" || f.owner == nil {
		return nil, appErrors.ErrInvalidAuthCode
	}
	return f.owner, nil
}

type fakeDownloads struct {
	user       *models.User
	fileTypes  []string
	accessions []string
	prepareErr error
	prepared   int
}

func (f *fakeDownloads) ValidateAccessions(_ context.Context, raw string) ([]string, error) {
	if raw != "SCP1,SCP2" {
		return nil, appErrors.Clone(appErrors.ErrInvalidAccessions, "invalid accessions: "+raw)
	}
	return []string{"SCP1", "SCP2"}, nil
}

func (f *fakeDownloads) GetRequestedFileSizesByType(_ context.Context, user *models.User, fileTypes, accessions []string) (dto.FileTypeSizes, error) {
	f.user, f.fileTypes, f.accessions = user, fileTypes, accessions
	return dto.FileTypeSizes{models.FileTypeMetadata: {TotalFiles: 2, TotalBytes: 300}}, nil
}

func (f *fakeDownloads) PrepareDownload(_ context.Context, user *models.User, fileTypes, accessions []string) (string, error) {
	f.user, f.fileTypes, f.accessions = user, fileTypes, accessions
	if f.prepareErr != nil {
		return "", f.prepareErr
	}
	f.prepared++
	return "--create-dirs\n\n--compressed", nil
}

func TestDownloadHandlerCreateAuthCode(t *testing.T) {
	codes := &fakeAuthCodes{}
	users := &fakeUsers{users: map[string]*models.User{"u1": {ID: "u1"}}}
	handler := NewDownloadHandler(codes, &fakeDownloads{}, users, nil)

	c, rec := newTestContext("/search/auth_code")
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "u1"})
	handler.CreateAuthCode(c)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "u1", codes.createdFor)
	var body struct {
		Data map[string]interface{} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, float64(123456), body.Data["auth_code"])
	assert.Equal(t, float64(1800), body.Data["time_interval"])

	c, rec = newTestContext("/search/auth_code")
	handler.CreateAuthCode(c)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestDownloadHandlerBulkDownloadSize(t *testing.T) {
	downloads := &fakeDownloads{}
	handler := NewDownloadHandler(&fakeAuthCodes{}, downloads, &fakeUsers{}, nil)

	c, rec := newTestContext("/search/bulk_download_size?accessions=SCP1,SCP2&file_types=Metadata")
	handler.BulkDownloadSize(c)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{"Metadata"}, downloads.fileTypes)
	assert.Nil(t, downloads.user)

	c, rec = newTestContext("/search/bulk_download_size?accessions=SCP1,SCP2&file_types=Spreadsheet")
	handler.BulkDownloadSize(c)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	c, rec = newTestContext("/search/bulk_download_size")
	handler.BulkDownloadSize(c)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDownloadHandlerBulkDownloadRequiresAuthCode(t *testing.T) {
	downloads := &fakeDownloads{}
	handler := NewDownloadHandler(&fakeAuthCodes{owner: &models.User{ID: "u1"}}, downloads, nil, nil)

	c, rec := newTestContext("/search/bulk_download?accessions=SCP1,SCP2")
	handler.BulkDownload(c)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	c, rec = newTestContext("/search/bulk_download?auth_code=999&accessions=SCP1,SCP2")
	handler.BulkDownload(c)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Zero(t, downloads.prepared)
}

func TestDownloadHandlerBulkDownloadReturnsManifest(t *testing.T) {
	owner := &models.User{ID: "u1"}
	downloads := &fakeDownloads{}
	handler := NewDownloadHandler(&fakeAuthCodes{owner: owner}, downloads, nil, nil)

	c, rec := newTestContext("/search/bulk_download?auth_code=123456&accessions=SCP1,SCP2")
	handler.BulkDownload(c)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/plain; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.Equal(t, `attachment; filename="cfg.txt"`, rec.Header().Get("Content-Disposition"))
	assert.Equal(t, "--create-dirs\n\n--compressed", rec.Body.String())
	assert.Same(t, owner, downloads.user)
	assert.Empty(t, downloads.fileTypes)
}

func TestDownloadHandlerBulkDownloadQuotaExceeded(t *testing.T) {
	downloads := &fakeDownloads{prepareErr: appErrors.Clone(appErrors.ErrQuotaExceeded, "total file size exceeds user download quota")}
	handler := NewDownloadHandler(&fakeAuthCodes{owner: &models.User{ID: "u1"}}, downloads, nil, nil)

	c, rec := newTestContext("/search/bulk_download?auth_code=123456&accessions=SCP1,SCP2")
	handler.BulkDownload(c)

	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Contains(t, rec.Body.String(), "download quota")
	assert.NotContains(t, rec.Body.String(), "--create-dirs")
}

func TestDownloadHandlerBulkDownloadInvalidAccessions(t *testing.T) {
	handler := NewDownloadHandler(&fakeAuthCodes{owner: &models.User{ID: "u1"}}, &fakeDownloads{}, nil, nil)

	c, rec := newTestContext("/search/bulk_download?auth_code=123456&accessions=SCP404")
	handler.BulkDownload(c)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	c, rec = newTestContext("/search/bulk_download?auth_code=123456")
	handler.BulkDownload(c)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
