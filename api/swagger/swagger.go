package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "Single Cell Portal Search API",
        "description": "Study search, facet catalogue and bulk download manifests",
        "version": "1.0.0"
    },
    "basePath": "/api/v1",
    "schemes": [
        "http",
        "https"
    ],
    "securityDefinitions": {
        "BearerAuth": {"type": "apiKey", "in": "header", "name": "Authorization"}
    },
    "tags": [
        {"name": "Search", "description": "Keyword, facet and gene study search"},
        {"name": "Facets", "description": "Search facet catalogue"},
        {"name": "Bulk Download", "description": "Auth codes, size previews and curl manifests"},
        {"name": "Configuration", "description": "Admin-editable portal settings"}
    ],
    "paths": {
        "/search": {
            "get": {
                "tags": ["Search"],
                "summary": "Search studies",
                "produces": ["application/json"],
                "parameters": [
                    {"name": "type", "in": "query", "type": "string", "enum": ["study", "cell"], "default": "study"},
                    {"name": "terms", "in": "query", "type": "string"},
                    {"name": "facets", "in": "query", "type": "string", "description": "species:NCBITaxon_9606+disease:MONDO_0000001"},
                    {"name": "genes", "in": "query", "type": "string"},
                    {"name": "preset_search", "in": "query", "type": "string"},
                    {"name": "scpbr", "in": "query", "type": "string"},
                    {"name": "order", "in": "query", "type": "string", "enum": ["recent", "popular"]},
                    {"name": "page", "in": "query", "type": "integer", "default": 1}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/SearchEnvelope"}},
                    "400": {"description": "Bad request", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Unknown preset or branding group", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "406": {"description": "Not acceptable", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/search/facets": {
            "get": {
                "tags": ["Facets"],
                "summary": "List search facets",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/search/facet_filters": {
            "get": {
                "tags": ["Facets"],
                "summary": "Search a facet's filter values",
                "parameters": [
                    {"name": "facet", "in": "query", "type": "string", "required": true},
                    {"name": "query", "in": "query", "type": "string", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/FacetFiltersResponse"}},
                    "400": {"description": "Missing facet or query", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Unknown facet", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/search/auth_code": {
            "post": {
                "tags": ["Bulk Download"],
                "summary": "Issue a one-time download auth code",
                "security": [{"BearerAuth": []}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/AuthCode"}},
                    "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/search/bulk_download_size": {
            "get": {
                "tags": ["Bulk Download"],
                "summary": "Preview bulk download sizes by file type",
                "parameters": [
                    {"name": "accessions", "in": "query", "type": "string", "required": true},
                    {"name": "file_types", "in": "query", "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Invalid accessions or file types", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/search/bulk_download": {
            "get": {
                "tags": ["Bulk Download"],
                "summary": "Download a curl config manifest",
                "produces": ["text/plain"],
                "parameters": [
                    {"name": "auth_code", "in": "query", "type": "string", "required": true},
                    {"name": "accessions", "in": "query", "type": "string", "required": true},
                    {"name": "file_types", "in": "query", "type": "string"}
                ],
                "responses": {
                    "200": {"description": "cfg.txt attachment", "schema": {"type": "file"}},
                    "400": {"description": "Invalid accessions or file types", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "403": {"description": "Invalid auth code or quota exceeded", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/configuration": {
            "get": {
                "tags": ["Configuration"],
                "summary": "List admin configurations",
                "security": [{"BearerAuth": []}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/configuration/{key}": {
            "get": {
                "tags": ["Configuration"],
                "summary": "Get configuration by key",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "key", "in": "path", "type": "string", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Unsupported key", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "put": {
                "tags": ["Configuration"],
                "summary": "Update configuration",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "key", "in": "path", "type": "string", "required": true},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/UpdateConfigurationRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Invalid value", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/metrics/summary": {
            "get": {
                "tags": ["Metrics"],
                "summary": "Search and download counters",
                "security": [{"BearerAuth": []}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        }
    },
    "definitions": {
        "StudySummary": {
            "type": "object",
            "properties": {
                "accession": {"type": "string"},
                "name": {"type": "string"},
                "description": {"type": "string"},
                "public": {"type": "boolean"},
                "detached": {"type": "boolean"},
                "cell_count": {"type": "integer"},
                "gene_count": {"type": "integer"},
                "study_url": {"type": "string"},
                "facet_matches": {"type": "object"},
                "term_matches": {"type": "array", "items": {"type": "string"}},
                "term_search_weight": {"type": "number"},
                "inferred_match": {"type": "boolean"},
                "preset_match": {"type": "boolean"},
                "gene_matches": {"type": "array", "items": {"type": "string"}},
                "study_files": {"type": "object"}
            }
        },
        "SearchResponse": {
            "type": "object",
            "properties": {
                "type": {"type": "string"},
                "terms": {"type": "string"},
                "term_list": {"type": "array", "items": {"type": "string"}},
                "current_page": {"type": "integer"},
                "total_studies": {"type": "integer"},
                "total_pages": {"type": "integer"},
                "matching_accessions": {"type": "array", "items": {"type": "string"}},
                "preset_search": {"type": "string"},
                "facets": {"type": "array", "items": {"type": "object"}},
                "studies": {"type": "array", "items": {"$ref": "#/definitions/StudySummary"}}
            }
        },
        "SearchEnvelope": {
            "type": "object",
            "properties": {
                "data": {"$ref": "#/definitions/SearchResponse"},
                "meta": {"type": "object"}
            }
        },
        "FacetFiltersResponse": {
            "type": "object",
            "properties": {
                "facet": {"type": "string"},
                "query": {"type": "string"},
                "filters": {
                    "type": "array",
                    "items": {
                        "type": "object",
                        "properties": {"id": {"type": "string"}, "name": {"type": "string"}}
                    }
                }
            }
        },
        "AuthCode": {
            "type": "object",
            "properties": {
                "auth_code": {"type": "integer"},
                "time_interval": {"type": "integer"}
            }
        },
        "UpdateConfigurationRequest": {
            "type": "object",
            "properties": {
                "value": {"type": "string"},
                "multiplier": {"type": "string", "enum": ["byte", "kilobyte", "megabyte", "gigabyte", "terabyte", "petabyte", "exabyte"]}
            },
            "required": ["value"]
        },
        "APIError": {
            "type": "object",
            "properties": {
                "code": {"type": "string"},
                "message": {"type": "string"},
                "status": {"type": "integer"}
            }
        },
        "ResponseEnvelope": {
            "type": "object",
            "properties": {
                "data": {"type": "object"},
                "error": {"$ref": "#/definitions/APIError"},
                "meta": {"type": "object"}
            }
        }
    }
}`

type swaggerDoc struct{}

// ReadDoc returns the Swagger document.
func (s *swaggerDoc) ReadDoc() string {
	return docTemplate
}

func init() {
	swag.Register(swag.Name, &swaggerDoc{})
}
