package dto

import (
	"github.com/scportal/search-api/internal/models"
	"github.com/scportal/search-api/internal/search"
)

// DetachedStudyNotice replaces the file listing of studies whose workspace cannot be loaded.
const DetachedStudyNotice = "Unavailable (cannot load study workspace or bucket)"

// SearchResponse is the study search payload.
type SearchResponse struct {
	Type               models.SearchType       `json:"type"`
	Terms              string                  `json:"terms"`
	TermList           []string                `json:"term_list"`
	CurrentPage        int                     `json:"current_page"`
	TotalStudies       int                     `json:"total_studies"`
	TotalPages         int                     `json:"total_pages"`
	MatchingAccessions []string                `json:"matching_accessions"`
	PresetSearch       *string                 `json:"preset_search"`
	BrandingGroup      *string                 `json:"scpbr,omitempty"`
	SortType           search.SortType         `json:"-"`
	Facets             []models.FacetSelection `json:"facets"`
	Studies            []StudySummary          `json:"studies"`
}

// StudySummary is one study in a search response.
type StudySummary struct {
	Accession        string                     `json:"accession"`
	Name             string                     `json:"name"`
	Description      string                     `json:"description"`
	Public           bool                       `json:"public"`
	Detached         bool                       `json:"detached"`
	CellCount        int64                      `json:"cell_count"`
	GeneCount        int64                      `json:"gene_count"`
	StudyURL         string                     `json:"study_url"`
	FacetMatches     *search.StudyFacetMatches  `json:"facet_matches,omitempty"`
	TermMatches      []string                   `json:"term_matches,omitempty"`
	TermSearchWeight *float64                   `json:"term_search_weight,omitempty"`
	InferredMatch    bool                       `json:"inferred_match,omitempty"`
	PresetMatch      bool                       `json:"preset_match,omitempty"`
	GeneMatches      []string                   `json:"gene_matches,omitempty"`
	StudyFiles       map[string][]StudyFileInfo `json:"study_files,omitempty"`
	FilesNotice      string                     `json:"study_files_unavailable,omitempty"`
}

// StudyFileInfo describes a downloadable file in a study summary.
type StudyFileInfo struct {
	Name         string          `json:"name"`
	FileType     string          `json:"file_type"`
	Description  string          `json:"description"`
	Size         int64           `json:"upload_file_size"`
	DownloadURL  string          `json:"download_url"`
	BundledFiles []StudyFileInfo `json:"bundled_files,omitempty"`
}

// FacetFiltersResponse answers a substring lookup within one facet.
type FacetFiltersResponse struct {
	Facet   string               `json:"facet"`
	Query   string               `json:"query"`
	Filters []models.FacetFilter `json:"filters"`
}

// BulkDownloadQuery binds the bulk download query parameters.
type BulkDownloadQuery struct {
	AuthCode   string `form:"auth_code"`
	Accessions string `form:"accessions" validate:"required"`
	FileTypes  string `form:"file_types"`
}

// FileTypeSizes maps bulk download groups to their file counts and bytes.
type FileTypeSizes map[string]models.FileTypeSummary
