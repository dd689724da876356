package service

import (
	"context"
	"errors"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/scportal/search-api/internal/dto"
	"github.com/scportal/search-api/internal/models"
	"github.com/scportal/search-api/internal/search"
	appErrors "github.com/scportal/search-api/pkg/errors"
)

type studySearchRepository interface {
	Viewable(ctx context.Context, user *models.User) ([]models.Study, error)
	FindByCriteria(ctx context.Context, criteria search.Criteria) ([]models.Study, error)
	ExistingAccessions(ctx context.Context, accessions []string) ([]string, error)
}

type presetSearchRepository interface {
	FindByIdentifier(ctx context.Context, identifier string) (*models.PresetSearch, error)
}

type brandingGroupRepository interface {
	FindByNameAsID(ctx context.Context, nameAsID string) (*models.BrandingGroup, error)
}

type facetCatalogue interface {
	Lookup(ctx context.Context) (search.FacetLookup, error)
}

type geneStudyFinder interface {
	FindStudiesByGenes(ctx context.Context, raw string, studyIDs []string) (*GeneSearchResult, error)
}

// SearchConfig tunes the search pipeline.
type SearchConfig struct {
	Table          string
	QueryTimeout   time.Duration
	PageSize       int
	EnableInferred bool
	PortalBaseURL  string
}

// SearchService answers study searches. Each stage narrows the candidate
// studies handed to the next: scope, text, facets, genes, then inferred
// matches are appended after ranking.
type SearchService struct {
	studies   studySearchRepository
	presets   presetSearchRepository
	branding  brandingGroupRepository
	facets    facetCatalogue
	analytics AnalyticsQuerier
	genes     geneStudyFinder
	files     studyFileRepository
	metrics   *MetricsService
	logger    *zap.Logger
	cfg       SearchConfig
}

// SearchDependencies groups the collaborators of SearchService.
type SearchDependencies struct {
	Studies   studySearchRepository
	Presets   presetSearchRepository
	Branding  brandingGroupRepository
	Facets    facetCatalogue
	Analytics AnalyticsQuerier
	Genes     geneStudyFinder
	Files     studyFileRepository
	Metrics   *MetricsService
	Logger    *zap.Logger
}

// NewSearchService constructs a SearchService.
func NewSearchService(deps SearchDependencies, cfg SearchConfig) *SearchService {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if cfg.PageSize <= 0 {
		cfg.PageSize = 25
	}
	if cfg.QueryTimeout <= 0 {
		cfg.QueryTimeout = 30 * time.Second
	}
	return &SearchService{
		studies:   deps.Studies,
		presets:   deps.Presets,
		branding:  deps.Branding,
		facets:    deps.Facets,
		analytics: deps.Analytics,
		genes:     deps.Genes,
		files:     deps.Files,
		metrics:   deps.Metrics,
		logger:    deps.Logger,
		cfg:       cfg,
	}
}

// searchScope is the candidate set before any matching.
type searchScope struct {
	terms    string
	facets   string
	preset   *models.PresetSearch
	branding *models.BrandingGroup
	studies  []models.Study
}

type textMatch struct {
	termList      []string
	accessions    []string
	allAccessions bool
	studies       []models.Study
}

type facetMatch struct {
	selections []models.FacetSelection
	matches    search.FacetMatches
	studies    []models.Study
}

type inferredMatch struct {
	terms   []string
	studies []models.Study
}

// Search runs the full pipeline for one request.
func (s *SearchService) Search(ctx context.Context, req models.SearchRequest) (*dto.SearchResponse, error) {
	if req.Type == "" {
		req.Type = models.SearchTypeStudy
	}
	if !req.Type.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "type must be study or cell")
	}
	if req.Page < 1 {
		req.Page = 1
	}

	scope, err := s.resolveScope(ctx, req)
	if err != nil {
		return nil, err
	}
	text, err := s.matchText(ctx, scope)
	if err != nil {
		return nil, err
	}
	facets, err := s.matchFacets(ctx, scope.facets, text.studies)
	if err != nil {
		return nil, err
	}
	genes, primary, err := s.filterGenes(ctx, req.Genes, facets.studies)
	if err != nil {
		return nil, err
	}
	inferred, err := s.matchInferred(ctx, scope, text, facets, genes != nil, primary)
	if err != nil {
		return nil, err
	}

	sortType := search.ChooseSortType(search.RankState{
		HasWhitelist:       scope.preset.HasWhitelist(),
		HasTerms:           len(text.termList) > 0,
		AllTermsAccessions: text.allAccessions,
		HasFacets:          len(facets.selections) > 0,
		HasCandidates:      len(primary) > 0,
		Order:              req.Order,
	})
	var whitelist []string
	if scope.preset != nil {
		whitelist = scope.preset.AccessionWhitelist
	}
	ranked := search.Rank(primary, search.RankInput{
		SortType:     sortType,
		TermList:     text.termList,
		Accessions:   text.accessions,
		Whitelist:    whitelist,
		FacetMatches: facets.matches,
	})
	all := search.DedupeByAccession(append(ranked, inferred.studies...))

	page, totalPages := search.Paginate(all, req.Page, s.cfg.PageSize)
	summaries, err := s.summarize(ctx, page, summaryInput{
		scope:    scope,
		text:     text,
		facets:   facets,
		genes:    genes,
		inferred: inferred,
	})
	if err != nil {
		return nil, err
	}

	matching := make([]string, 0, len(all))
	for _, study := range all {
		matching = append(matching, study.Accession)
	}
	termList := text.termList
	if termList == nil {
		termList = []string{}
	}
	selections := facets.selections
	if selections == nil {
		selections = []models.FacetSelection{}
	}

	resp := &dto.SearchResponse{
		Type:               req.Type,
		Terms:              scope.terms,
		TermList:           termList,
		CurrentPage:        req.Page,
		TotalStudies:       len(all),
		TotalPages:         totalPages,
		MatchingAccessions: matching,
		SortType:           sortType,
		Facets:             selections,
		Studies:            summaries,
	}
	if scope.preset != nil {
		identifier := scope.preset.Identifier
		resp.PresetSearch = &identifier
	}
	if scope.branding != nil {
		name := scope.branding.NameAsID
		resp.BrandingGroup = &name
	}

	if s.metrics != nil {
		s.metrics.RecordSearch(string(sortType))
	}
	s.logger.Debug("study search",
		zap.String("sort_type", string(sortType)),
		zap.Int("primary", len(primary)),
		zap.Int("inferred", len(inferred.studies)),
		zap.Int("total", len(all)))
	return resp, nil
}

// resolveScope loads the viewable studies and applies the preset search and
// branding group. Non-empty preset terms and facets replace the request's.
func (s *SearchService) resolveScope(ctx context.Context, req models.SearchRequest) (searchScope, error) {
	studies, err := s.studies.Viewable(ctx, req.User)
	if err != nil {
		return searchScope{}, err
	}
	scope := searchScope{terms: req.Terms, facets: req.Facets, studies: studies}

	if identifier := strings.TrimSpace(req.PresetSearch); identifier != "" {
		preset, err := s.presets.FindByIdentifier(ctx, identifier)
		if err != nil {
			return searchScope{}, err
		}
		scope.preset = preset
		if terms := preset.KeywordQueryString(); terms != "" {
			scope.terms = terms
		}
		if facets := preset.FacetQueryString(); facets != "" {
			scope.facets = facets
		}
		if preset.HasWhitelist() {
			scope.studies = filterStudies(scope.studies, func(study *models.Study) bool {
				return preset.WhitelistIndex(study.Accession) >= 0
			})
		}
	}

	if name := strings.TrimSpace(req.BrandingGroup); name != "" {
		group, err := s.branding.FindByNameAsID(ctx, name)
		if err != nil {
			return searchScope{}, err
		}
		scope.branding = group
		scope.studies = filterStudies(scope.studies, func(study *models.Study) bool {
			return study.BrandingGroupID != nil && *study.BrandingGroupID == group.ID
		})
	}
	return scope, nil
}

// matchText runs the keyword or phrase search. Terms that are existing
// accessions match their study directly.
func (s *SearchService) matchText(ctx context.Context, scope searchScope) (textMatch, error) {
	match := textMatch{termList: search.SplitTerms(scope.terms), studies: scope.studies}
	if len(match.termList) == 0 {
		return match, nil
	}

	if candidates := search.AccessionsFromTerms(match.termList); len(candidates) > 0 {
		existing, err := s.studies.ExistingAccessions(ctx, candidates)
		if err != nil {
			return textMatch{}, err
		}
		match.accessions = keepOrder(candidates, existing)
	}
	match.allAccessions = len(match.accessions) > 0 && len(match.accessions) == len(match.termList)

	criteria := search.GenerateCriteria(match.termList, studyIDs(scope.studies), match.accessions, search.DetectContext(scope.terms))
	start := time.Now()
	studies, err := s.studies.FindByCriteria(ctx, criteria)
	if err != nil {
		return textMatch{}, err
	}
	if s.metrics != nil {
		s.metrics.ObserveDBQuery("studies_by_"+string(criteria.Context), time.Since(start))
	}
	match.studies = studies
	return match, nil
}

// matchFacets keeps the studies matched by the analytics query for the
// requested facets. Unknown facets and facets matching no filter are ignored.
func (s *SearchService) matchFacets(ctx context.Context, raw string, studies []models.Study) (facetMatch, error) {
	match := facetMatch{studies: studies}
	if strings.TrimSpace(raw) == "" {
		return match, nil
	}
	lookup, err := s.facets.Lookup(ctx)
	if err != nil {
		return facetMatch{}, err
	}
	selections, err := search.ResolveFacets(raw, lookup)
	if err != nil {
		return facetMatch{}, err
	}
	match.selections = selections
	if len(selections) == 0 {
		return match, nil
	}

	query, err := search.BuildAnalyticsQuery(s.cfg.Table, selections)
	if err != nil {
		return facetMatch{}, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "build analytics query")
	}
	rows, err := s.queryAnalytics(ctx, query.String())
	if err != nil {
		return facetMatch{}, err
	}
	match.matches = search.TrackFacetMatches(rows, selections)
	match.studies = filterStudies(studies, func(study *models.Study) bool {
		_, ok := match.matches[study.Accession]
		return ok
	})
	return match, nil
}

// queryAnalytics makes a single bounded attempt. A deadline maps to a
// gateway timeout and any other failure to an upstream error.
func (s *SearchService) queryAnalytics(ctx context.Context, sql string) ([]search.Row, error) {
	queryCtx, cancel := context.WithTimeout(ctx, s.cfg.QueryTimeout)
	defer cancel()

	start := time.Now()
	rows, err := s.analytics.Query(queryCtx, sql)
	if s.metrics != nil {
		s.metrics.ObserveAnalyticsQuery(analyticsOutcome(err), time.Since(start))
	}
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(queryCtx.Err(), context.DeadlineExceeded) {
			return nil, appErrors.Wrap(err, appErrors.ErrUpstreamTimeout.Code, appErrors.ErrUpstreamTimeout.Status, appErrors.ErrUpstreamTimeout.Message)
		}
		return nil, appErrors.Wrap(err, appErrors.ErrUpstream.Code, appErrors.ErrUpstream.Status, appErrors.ErrUpstream.Message)
	}
	return rows, nil
}

func analyticsOutcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	default:
		return "error"
	}
}

// filterGenes keeps studies expressing a requested gene. A nil result means
// no gene search was requested.
func (s *SearchService) filterGenes(ctx context.Context, raw string, studies []models.Study) (*GeneSearchResult, []models.Study, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, studies, nil
	}
	result, err := s.genes.FindStudiesByGenes(ctx, raw, studyIDs(studies))
	if err != nil {
		return nil, nil, err
	}
	filtered := filterStudies(studies, func(study *models.Study) bool {
		_, ok := result.GenesByStudy[study.ID]
		return ok
	})
	return result, filtered, nil
}

// matchInferred finds studies whose text mentions every selected facet's
// filter names, excluding the primary results. It is skipped for whitelisted
// presets, gene searches, numeric facets and when disabled.
func (s *SearchService) matchInferred(ctx context.Context, scope searchScope, text textMatch, facets facetMatch, geneSearch bool, primary []models.Study) (inferredMatch, error) {
	if !s.cfg.EnableInferred || scope.preset.HasWhitelist() || geneSearch || len(facets.selections) == 0 {
		return inferredMatch{}, nil
	}
	termsByFacet := search.ConvertFiltersForInferredSearch(text.termList, facets.selections)
	if len(termsByFacet) == 0 {
		return inferredMatch{}, nil
	}

	exclude := make([]string, 0, len(primary))
	for _, study := range primary {
		exclude = append(exclude, study.Accession)
	}
	criteria := search.GenerateInferredCriteria(termsByFacet, studyIDs(scope.studies), exclude)
	if len(criteria) == 0 {
		return inferredMatch{}, nil
	}

	sets := make([][]string, 0, len(criteria))
	found := make(map[string]models.Study)
	for _, c := range criteria {
		studies, err := s.studies.FindByCriteria(ctx, c)
		if err != nil {
			return inferredMatch{}, err
		}
		accessions := make([]string, 0, len(studies))
		for _, study := range studies {
			accessions = append(accessions, study.Accession)
			found[study.Accession] = study
		}
		sets = append(sets, accessions)
	}

	var studies []models.Study
	for _, accession := range search.IntersectAccessions(sets) {
		studies = append(studies, found[accession])
	}
	terms := search.InferredTermList(termsByFacet)
	return inferredMatch{terms: terms, studies: search.RankInferred(studies, terms)}, nil
}

type summaryInput struct {
	scope    searchScope
	text     textMatch
	facets   facetMatch
	genes    *GeneSearchResult
	inferred inferredMatch
}

func (s *SearchService) summarize(ctx context.Context, studies []models.Study, in summaryInput) ([]dto.StudySummary, error) {
	attached := make([]string, 0, len(studies))
	for _, study := range studies {
		if !study.Detached {
			attached = append(attached, study.ID)
		}
	}
	filesByStudy := make(map[string][]models.StudyFile)
	if len(attached) > 0 && s.files != nil {
		files, err := s.files.FindByStudies(ctx, attached, nil)
		if err != nil {
			return nil, err
		}
		for _, file := range files {
			filesByStudy[file.StudyID] = append(filesByStudy[file.StudyID], file)
		}
	}

	inferred := make(map[string]struct{}, len(in.inferred.studies))
	for _, study := range in.inferred.studies {
		inferred[study.Accession] = struct{}{}
	}

	summaries := make([]dto.StudySummary, 0, len(studies))
	for i := range studies {
		study := &studies[i]
		summary := dto.StudySummary{
			Accession:   study.Accession,
			Name:        study.Name,
			Description: study.Description,
			Public:      study.Public,
			Detached:    study.Detached,
			CellCount:   study.CellCount,
			GeneCount:   study.GeneCount,
			StudyURL:    s.studyURL(study, in.scope.branding),
		}
		if matches, ok := in.facets.matches[study.Accession]; ok {
			summary.FacetMatches = matches
		}

		terms := in.text.termList
		if _, ok := inferred[study.Accession]; ok {
			summary.InferredMatch = true
			terms = in.inferred.terms
		}
		if len(terms) > 0 {
			weight := study.SearchWeight(terms)
			total := weight.Total
			summary.TermMatches = weight.MatchedTerms(terms)
			summary.TermSearchWeight = &total
		}

		if in.scope.preset.HasWhitelist() && in.scope.preset.WhitelistIndex(study.Accession) >= 0 {
			summary.PresetMatch = true
		}
		if in.genes != nil {
			summary.GeneMatches = in.genes.GenesByStudy[study.ID]
		}

		if study.Detached {
			summary.FilesNotice = dto.DetachedStudyNotice
		} else {
			summary.StudyFiles = s.groupFiles(study.Accession, filesByStudy[study.ID])
		}
		summaries = append(summaries, summary)
	}
	return summaries, nil
}

func (s *SearchService) studyURL(study *models.Study, branding *models.BrandingGroup) string {
	link := s.cfg.PortalBaseURL + "/study/" + study.Accession + "/" + models.URLSafeIdentifier(study.Name)
	if branding != nil {
		link += "?scpbr=" + url.QueryEscape(branding.NameAsID)
	}
	return link
}

func (s *SearchService) groupFiles(accession string, files []models.StudyFile) map[string][]dto.StudyFileInfo {
	grouped := make(map[string][]dto.StudyFileInfo, len(models.BulkDownloadTypes))
	for _, fileType := range models.BulkDownloadTypes {
		grouped[fileType] = []dto.StudyFileInfo{}
	}
	for i := range files {
		fileType := files[i].SimplifiedFileType()
		grouped[fileType] = append(grouped[fileType], s.fileInfo(accession, &files[i]))
	}
	return grouped
}

func (s *SearchService) fileInfo(accession string, file *models.StudyFile) dto.StudyFileInfo {
	info := dto.StudyFileInfo{
		Name:        file.Name,
		FileType:    file.FileType,
		Description: file.Description,
		Size:        file.UploadFileSize,
		DownloadURL: s.cfg.PortalBaseURL + "/api/v1/site/studies/" + accession + "/download?filename=" + url.QueryEscape(file.BucketLocation()),
	}
	for i := range file.BundledFiles {
		info.BundledFiles = append(info.BundledFiles, s.fileInfo(accession, &file.BundledFiles[i]))
	}
	return info
}

func studyIDs(studies []models.Study) []string {
	ids := make([]string, 0, len(studies))
	for _, study := range studies {
		ids = append(ids, study.ID)
	}
	return ids
}

func filterStudies(studies []models.Study, keep func(*models.Study) bool) []models.Study {
	filtered := make([]models.Study, 0, len(studies))
	for i := range studies {
		if keep(&studies[i]) {
			filtered = append(filtered, studies[i])
		}
	}
	return filtered
}

// keepOrder returns the members of present in the order of ordered.
func keepOrder(ordered, present []string) []string {
	set := make(map[string]struct{}, len(present))
	for _, value := range present {
		set[value] = struct{}{}
	}
	var kept []string
	for _, value := range ordered {
		if _, ok := set[value]; ok {
			kept = append(kept, value)
		}
	}
	return kept
}
