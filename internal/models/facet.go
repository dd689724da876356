package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// FacetKind tags how a facet's values are stored in the analytics table.
type FacetKind int

const (
	// KindCategorical is a flat column holding one filter id per row.
	KindCategorical FacetKind = iota
	// KindArrayCategorical is an array column holding many filter ids per row.
	KindArrayCategorical
	// KindNumeric is a numeric column queried by range.
	KindNumeric
)

func (k FacetKind) String() string {
	switch k {
	case KindCategorical:
		return "categorical"
	case KindArrayCategorical:
		return "array_categorical"
	case KindNumeric:
		return "numeric"
	default:
		return fmt.Sprintf("FacetKind(%d)", int(k))
	}
}

// FacetFilter is one selectable value within a categorical facet.
type FacetFilter struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// FacetFilters is stored as a JSONB array on search_facets.
type FacetFilters []FacetFilter

// Scan implements sql.Scanner.
func (f *FacetFilters) Scan(src interface{}) error {
	return scanJSON(src, f)
}

// Value implements driver.Valuer.
func (f FacetFilters) Value() (driver.Value, error) {
	if f == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(f)
}

// OntologyURL links a facet to the ontology its filter ids come from.
type OntologyURL struct {
	Name string `json:"name"`
	URL  string `json:"url"`
}

// OntologyURLs is stored as a JSONB array on search_facets.
type OntologyURLs []OntologyURL

// Scan implements sql.Scanner.
func (o *OntologyURLs) Scan(src interface{}) error {
	return scanJSON(src, o)
}

// Value implements driver.Valuer.
func (o OntologyURLs) Value() (driver.Value, error) {
	if o == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(o)
}

func scanJSON(src interface{}, dest interface{}) error {
	switch v := src.(type) {
	case nil:
		return nil
	case []byte:
		if len(v) == 0 {
			return nil
		}
		return json.Unmarshal(v, dest)
	case string:
		if v == "" {
			return nil
		}
		return json.Unmarshal([]byte(v), dest)
	default:
		return fmt.Errorf("unsupported json column type %T", src)
	}
}

// SearchFacet is a cached description of a convention metadata column in the analytics table.
type SearchFacet struct {
	ID                       string       `db:"id" json:"-"`
	Identifier               string       `db:"identifier" json:"id"`
	Name                     string       `db:"name" json:"name"`
	DataType                 string       `db:"data_type" json:"type"`
	IsArrayBased             bool         `db:"is_array_based" json:"is_array_based"`
	IsOntologyBased          bool         `db:"is_ontology_based" json:"-"`
	Unit                     *string      `db:"unit" json:"unit,omitempty"`
	Min                      *float64     `db:"min" json:"min,omitempty"`
	Max                      *float64     `db:"max" json:"max,omitempty"`
	BigQueryIDColumn         string       `db:"big_query_id_column" json:"-"`
	BigQueryNameColumn       string       `db:"big_query_name_column" json:"-"`
	BigQueryConversionColumn *string      `db:"big_query_conversion_column" json:"-"`
	Filters                  FacetFilters `db:"filters" json:"filters"`
	OntologyURLs             OntologyURLs `db:"ontology_urls" json:"links"`
	UpdatedAt                time.Time    `db:"updated_at" json:"-"`
}

// Kind classifies the facet for query building and filter matching.
func (f *SearchFacet) Kind() FacetKind {
	switch {
	case f.DataType == "number":
		return KindNumeric
	case f.IsArrayBased:
		return KindArrayCategorical
	default:
		return KindCategorical
	}
}

// IsNumeric reports whether the facet is range based.
func (f *SearchFacet) IsNumeric() bool {
	return f.Kind() == KindNumeric
}

// MustConvert reports whether range queries run against a unit-normalised column.
func (f *SearchFacet) MustConvert() bool {
	return f.BigQueryConversionColumn != nil && *f.BigQueryConversionColumn != ""
}

// UnitName returns the facet's stored unit or an empty string.
func (f *SearchFacet) UnitName() string {
	if f.Unit == nil {
		return ""
	}
	return *f.Unit
}

// Bounds returns the facet's min and max, defaulting missing values to zero.
func (f *SearchFacet) Bounds() (float64, float64) {
	var lo, hi float64
	if f.Min != nil {
		lo = *f.Min
	}
	if f.Max != nil {
		hi = *f.Max
	}
	return lo, hi
}

// FindFilter returns the filter with the given id.
func (f *SearchFacet) FindFilter(id string) (FacetFilter, bool) {
	for _, filter := range f.Filters {
		if filter.ID == id {
			return filter, true
		}
	}
	return FacetFilter{}, false
}

// NumericRange is a requested range for a numeric facet.
type NumericRange struct {
	Min  float64 `json:"min"`
	Max  float64 `json:"max"`
	Unit string  `json:"unit,omitempty"`
}

// FacetSelection is a facet resolved from the request. Exactly one of Filters or Range is set.
type FacetSelection struct {
	ID      string
	Facet   *SearchFacet
	Filters []FacetFilter
	Range   *NumericRange
}

// MarshalJSON renders filters as a list for categorical facets and as a range object for numeric ones.
func (s FacetSelection) MarshalJSON() ([]byte, error) {
	payload := struct {
		ID      string      `json:"id"`
		Filters interface{} `json:"filters"`
	}{ID: s.ID}
	if s.Range != nil {
		payload.Filters = s.Range
	} else {
		filters := s.Filters
		if filters == nil {
			filters = []FacetFilter{}
		}
		payload.Filters = filters
	}
	return json.Marshal(payload)
}

// FilterNames returns the display names of the selected categorical filters.
func (s FacetSelection) FilterNames() []string {
	names := make([]string, 0, len(s.Filters))
	for _, filter := range s.Filters {
		names = append(names, filter.Name)
	}
	return names
}

// FilterIDs returns the ids of the selected categorical filters.
func (s FacetSelection) FilterIDs() []string {
	ids := make([]string, 0, len(s.Filters))
	for _, filter := range s.Filters {
		ids = append(ids, filter.ID)
	}
	return ids
}
