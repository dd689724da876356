package handler

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/scportal/search-api/internal/dto"
	"github.com/scportal/search-api/internal/middleware"
	"github.com/scportal/search-api/internal/models"
	appErrors "github.com/scportal/search-api/pkg/errors"
	"github.com/scportal/search-api/pkg/response"
)

type studySearchService interface {
	Search(ctx context.Context, req models.SearchRequest) (*dto.SearchResponse, error)
}

type facetCatalogueService interface {
	List(ctx context.Context) ([]models.SearchFacet, bool, error)
	SearchFilters(ctx context.Context, identifier, query string) (*dto.FacetFiltersResponse, error)
}

// SearchHandler exposes study search and the facet catalogue.
type SearchHandler struct {
	search studySearchService
	facets facetCatalogueService
	users  userLoader
}

// NewSearchHandler constructs a SearchHandler.
func NewSearchHandler(search studySearchService, facets facetCatalogueService, users userLoader) *SearchHandler {
	return &SearchHandler{search: search, facets: facets, users: users}
}

// Index godoc
// @Summary Search studies
// @Description Keyword, facet and gene search over the studies the caller can view
// @Tags Search
// @Produce json
// @Param type query string false "Result type (study or cell)" default(study)
// @Param terms query string false "Keywords; quote phrases"
// @Param facets query string false "Facet filters, e.g. species:NCBITaxon_9606+disease:MONDO_0000001"
// @Param genes query string false "Gene names, comma or space delimited"
// @Param preset_search query string false "Preset search identifier"
// @Param scpbr query string false "Branding group identifier"
// @Param order query string false "recent or popular"
// @Param page query int false "Page number" default(1)
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Failure 504 {object} response.Envelope
// @Router /search [get]
func (h *SearchHandler) Index(c *gin.Context) {
	if h.search == nil {
		response.Error(c, appErrors.ErrInternal)
		return
	}
	user, err := currentUser(c, h.users)
	if err != nil {
		response.Error(c, err)
		return
	}
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	req := models.SearchRequest{
		Type:          models.SearchType(strings.TrimSpace(c.DefaultQuery("type", string(models.SearchTypeStudy)))),
		Terms:         c.Query("terms"),
		Facets:        c.Query("facets"),
		Genes:         c.Query("genes"),
		PresetSearch:  strings.TrimSpace(c.Query("preset_search")),
		BrandingGroup: strings.TrimSpace(c.Query("scpbr")),
		Order:         models.SearchOrder(strings.TrimSpace(c.Query("order"))),
		Page:          page,
		User:          user,
	}

	result, err := h.search.Search(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetMeta(c, "sort_type", string(result.SortType))
	response.JSON(c, http.StatusOK, result, nil, middleware.ResponseMeta(c))
}

// Facets godoc
// @Summary List search facets
// @Description Every facet with its filter values
// @Tags Search
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /search/facets [get]
func (h *SearchHandler) Facets(c *gin.Context) {
	facets, cacheHit, err := h.facets.List(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetCacheHit(c, cacheHit)
	response.JSON(c, http.StatusOK, facets, nil, middleware.ResponseMeta(c))
}

// FacetFilters godoc
// @Summary Search within a facet
// @Description Facet filters whose name contains the query, ignoring case
// @Tags Search
// @Produce json
// @Param facet query string true "Facet identifier"
// @Param query query string true "Partial filter name"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /search/facet_filters [get]
func (h *SearchHandler) FacetFilters(c *gin.Context) {
	result, err := h.facets.SearchFilters(c.Request.Context(), c.Query("facet"), c.Query("query"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}
