package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"github.com/scportal/search-api/internal/dto"
	"github.com/scportal/search-api/internal/models"
	"github.com/scportal/search-api/internal/service"
	appErrors "github.com/scportal/search-api/pkg/errors"
	"github.com/scportal/search-api/pkg/response"
)

// ManifestFilename is the attachment name of a bulk download manifest.
const ManifestFilename = "cfg.txt"

type authCodeIssuer interface {
	Create(ctx context.Context, userID string) (*models.AuthCode, error)
	Verify(ctx context.Context, raw string) (*models.User, error)
}

type bulkDownloadService interface {
	ValidateAccessions(ctx context.Context, raw string) ([]string, error)
	GetRequestedFileSizesByType(ctx context.Context, user *models.User, fileTypes, accessions []string) (dto.FileTypeSizes, error)
	PrepareDownload(ctx context.Context, user *models.User, fileTypes, accessions []string) (string, error)
}

// DownloadHandler serves auth codes and bulk download manifests.
type DownloadHandler struct {
	codes     authCodeIssuer
	downloads bulkDownloadService
	users     userLoader
	validator *validator.Validate
}

// NewDownloadHandler constructs a DownloadHandler.
func NewDownloadHandler(codes authCodeIssuer, downloads bulkDownloadService, users userLoader, validate *validator.Validate) *DownloadHandler {
	if validate == nil {
		validate = validator.New()
	}
	return &DownloadHandler{codes: codes, downloads: downloads, users: users, validator: validate}
}

// CreateAuthCode godoc
// @Summary Create a bulk download auth code
// @Description Issues a one-time code valid for 30 minutes. Any earlier code of the caller stops working.
// @Tags Search
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Router /search/auth_code [post]
func (h *DownloadHandler) CreateAuthCode(c *gin.Context) {
	user, err := currentUser(c, h.users)
	if err != nil {
		response.Error(c, err)
		return
	}
	if user == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	code, err := h.codes.Create(c.Request.Context(), user.ID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, code, nil)
}

// BulkDownloadSize godoc
// @Summary Preview a bulk download
// @Description Number of files and bytes per file type. Does not consume download quota.
// @Tags Search
// @Produce json
// @Param accessions query string true "Comma delimited study accessions"
// @Param file_types query string false "Comma delimited file types; all when empty"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /search/bulk_download_size [get]
func (h *DownloadHandler) BulkDownloadSize(c *gin.Context) {
	query, ok := h.bindQuery(c)
	if !ok {
		return
	}
	user, err := currentUser(c, h.users)
	if err != nil {
		response.Error(c, err)
		return
	}
	accessions, fileTypes, err := h.parseSelection(c.Request.Context(), query)
	if err != nil {
		response.Error(c, err)
		return
	}
	sizes, err := h.downloads.GetRequestedFileSizesByType(c.Request.Context(), user, fileTypes, accessions)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, sizes, nil)
}

// BulkDownload godoc
// @Summary Download a curl manifest
// @Description Redeems the auth code, debits the caller's daily quota and returns a curl config of signed URLs
// @Tags Search
// @Produce plain
// @Param auth_code query string true "One-time auth code"
// @Param accessions query string true "Comma delimited study accessions"
// @Param file_types query string false "Comma delimited file types; all when empty"
// @Success 200 {string} string "curl config"
// @Failure 400 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /search/bulk_download [get]
func (h *DownloadHandler) BulkDownload(c *gin.Context) {
	var query dto.BulkDownloadQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid query parameters"))
		return
	}
	user, err := h.codes.Verify(c.Request.Context(), query.AuthCode)
	if err != nil {
		response.Error(c, err)
		return
	}
	if err := h.validator.Struct(query); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrInvalidAccessions, "accessions are required"))
		return
	}
	accessions, fileTypes, err := h.parseSelection(c.Request.Context(), query)
	if err != nil {
		response.Error(c, err)
		return
	}
	manifest, err := h.downloads.PrepareDownload(c.Request.Context(), user, fileTypes, accessions)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Attachment(c, ManifestFilename, []byte(manifest))
}

func (h *DownloadHandler) bindQuery(c *gin.Context) (dto.BulkDownloadQuery, bool) {
	var query dto.BulkDownloadQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid query parameters"))
		return query, false
	}
	if err := h.validator.Struct(query); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrInvalidAccessions, "accessions are required"))
		return query, false
	}
	return query, true
}

func (h *DownloadHandler) parseSelection(ctx context.Context, query dto.BulkDownloadQuery) ([]string, []string, error) {
	accessions, err := h.downloads.ValidateAccessions(ctx, query.Accessions)
	if err != nil {
		return nil, nil, err
	}
	fileTypes, err := service.SanitizeFileTypes(query.FileTypes)
	if err != nil {
		return nil, nil, err
	}
	return accessions, fileTypes, nil
}
