package models

// SearchType is the kind of result requested from the search endpoint.
type SearchType string

const (
	SearchTypeStudy SearchType = "study"
	SearchTypeCell  SearchType = "cell"
)

// Valid reports whether the search type is supported.
func (t SearchType) Valid() bool {
	return t == SearchTypeStudy || t == SearchTypeCell
}

// SearchOrder is an explicit ordering requested by the caller.
type SearchOrder string

const (
	OrderRecent  SearchOrder = "recent"
	OrderPopular SearchOrder = "popular"
)

// SearchRequest is the immutable input to a study search.
type SearchRequest struct {
	Type          SearchType
	Terms         string
	Facets        string
	Genes         string
	PresetSearch  string
	BrandingGroup string
	Order         SearchOrder
	Page          int
	User          *User
}
