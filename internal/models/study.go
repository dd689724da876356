package models

import (
	"path"
	"strings"
	"time"
)

// Study is the portal record returned by search.
type Study struct {
	ID                string    `db:"id" json:"-"`
	Accession         string    `db:"accession" json:"accession"`
	Name              string    `db:"name" json:"name"`
	Description       string    `db:"description" json:"description"`
	Public            bool      `db:"public" json:"public"`
	Detached          bool      `db:"detached" json:"detached"`
	QueuedForDeletion bool      `db:"queued_for_deletion" json:"-"`
	UserID            string    `db:"user_id" json:"-"`
	BrandingGroupID   *string   `db:"branding_group_id" json:"-"`
	BucketID          string    `db:"bucket_id" json:"-"`
	ViewCount         int64     `db:"view_count" json:"view_count"`
	ViewOrder         float64   `db:"view_order" json:"-"`
	CellCount         int64     `db:"cell_count" json:"cell_count"`
	GeneCount         int64     `db:"gene_count" json:"gene_count"`
	CreatedAt         time.Time `db:"created_at" json:"created_at"`
}

// SearchWeight describes how often the search terms occur in a study's name and description.
type SearchWeight struct {
	Terms map[string]int
	Total float64
}

// MatchedTerms returns the matched terms in the order they were requested.
func (w SearchWeight) MatchedTerms(requested []string) []string {
	matched := make([]string, 0, len(w.Terms))
	for _, term := range requested {
		if _, ok := w.Terms[term]; ok {
			matched = append(matched, term)
		}
	}
	return matched
}

// SearchWeight counts case-insensitive, non-overlapping occurrences of each
// term in the study name and description. Terms that never occur are omitted.
func (s *Study) SearchWeight(terms []string) SearchWeight {
	weight := SearchWeight{Terms: make(map[string]int)}
	text := strings.ToLower(s.Name + " " + s.Description)
	for _, term := range terms {
		needle := strings.ToLower(strings.TrimSpace(term))
		if needle == "" {
			continue
		}
		if _, seen := weight.Terms[term]; seen {
			continue
		}
		count := strings.Count(text, needle)
		if count == 0 {
			continue
		}
		weight.Terms[term] = count
		weight.Total += float64(count)
	}
	return weight
}

// File types as stored on study_files.
const (
	FileTypeCluster            = "Cluster"
	FileTypeCoordinateLabels   = "Coordinate Labels"
	FileTypeExpressionMatrix   = "Expression Matrix"
	FileTypeMMCoordinateMatrix = "MM Coordinate Matrix"
	FileType10XGenes           = "10X Genes File"
	FileType10XBarcodes        = "10X Barcodes File"
	FileTypeGeneList           = "Gene List"
	FileTypeMetadata           = "Metadata"
	FileTypeFastq              = "Fastq"
	FileTypeBAM                = "BAM"
	FileTypeBAMIndex           = "BAM Index"
	FileTypeDocumentation      = "Documentation"
	FileTypeOther              = "Other"
	FileTypeAnalysisOutput     = "Analysis Output"
)

// FileTypeExpression groups dense and sparse expression matrices for bulk download.
const FileTypeExpression = "Expression"

// BulkDownloadTypes lists the file type groups a caller may request.
var BulkDownloadTypes = []string{
	FileTypeExpression,
	FileTypeMetadata,
	FileTypeCluster,
	FileTypeGeneList,
	FileTypeFastq,
	FileTypeBAM,
	FileTypeDocumentation,
	FileTypeOther,
	FileTypeAnalysisOutput,
}

// ExpandBulkDownloadTypes maps requested groups to stored file types.
func ExpandBulkDownloadTypes(groups []string) []string {
	expanded := make([]string, 0, len(groups)+1)
	for _, group := range groups {
		if group == FileTypeExpression {
			expanded = append(expanded, FileTypeExpressionMatrix, FileTypeMMCoordinateMatrix)
			continue
		}
		expanded = append(expanded, group)
	}
	return expanded
}

// StudyFile is a downloadable file belonging to a study.
type StudyFile struct {
	ID             string  `db:"id" json:"id"`
	StudyID        string  `db:"study_id" json:"-"`
	Accession      string  `db:"accession" json:"-"`
	BucketID       string  `db:"bucket_id" json:"-"`
	Name           string  `db:"name" json:"name"`
	UploadFileName string  `db:"upload_file_name" json:"upload_file_name"`
	FileType       string  `db:"file_type" json:"file_type"`
	Description    string  `db:"description" json:"description"`
	RemoteLocation *string `db:"remote_location" json:"-"`
	UploadFileSize int64   `db:"upload_file_size" json:"upload_file_size"`
	BundleParentID *string `db:"bundle_parent_id" json:"-"`

	BundledFiles []StudyFile `db:"-" json:"bundled_files,omitempty"`
}

// BucketLocation is the object key of the file inside its study bucket.
func (f *StudyFile) BucketLocation() string {
	if f.RemoteLocation != nil && *f.RemoteLocation != "" {
		return *f.RemoteLocation
	}
	return f.UploadFileName
}

// SimplifiedFileType returns the bulk download group for the file.
func (f *StudyFile) SimplifiedFileType() string {
	switch f.FileType {
	case FileTypeExpressionMatrix, FileTypeMMCoordinateMatrix:
		return FileTypeExpression
	default:
		return f.FileType
	}
}

// BulkDownloadPath is the relative output path written into download manifests.
func (f *StudyFile) BulkDownloadPath() string {
	dir := strings.ReplaceAll(strings.ToLower(f.SimplifiedFileType()), " ", "_")
	return path.Join(f.Accession, dir, path.Base(f.BucketLocation()))
}

// IsBundled reports whether the file only ships alongside a parent file.
func (f *StudyFile) IsBundled() bool {
	return f.BundleParentID != nil && *f.BundleParentID != ""
}

// FileTypeSummary aggregates requested files of one bulk download group.
type FileTypeSummary struct {
	TotalFiles int   `json:"total_files"`
	TotalBytes int64 `json:"total_bytes"`
}

// BrandingGroup scopes search to a curated collection of studies.
type BrandingGroup struct {
	ID       string `db:"id" json:"id"`
	Name     string `db:"name" json:"name"`
	NameAsID string `db:"name_as_id" json:"name_as_id"`
}

// Gene is an expressed gene matched by gene search.
type Gene struct {
	ID             string `db:"id" json:"id"`
	StudyID        string `db:"study_id" json:"-"`
	Name           string `db:"name" json:"name"`
	SearchableName string `db:"searchable_name" json:"-"`
	GeneID         string `db:"gene_id" json:"gene_id"`
}
