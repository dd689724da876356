package service

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/scportal/search-api/internal/models"
	"github.com/scportal/search-api/internal/search"
	appErrors "github.com/scportal/search-api/pkg/errors"
)

type memoryCacheRepo struct {
	store   map[string][]byte
	deleted []string
}

func (m *memoryCacheRepo) Get(_ context.Context, key string, dest interface{}) error {
	payload, ok := m.store[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	return json.Unmarshal(payload, dest)
}

func (m *memoryCacheRepo) Set(_ context.Context, key string, value interface{}, _ time.Duration) error {
	if m.store == nil {
		m.store = make(map[string][]byte)
	}
	payload, err := json.Marshal(value)
	if err != nil {
		return err
	}
	m.store[key] = payload
	return nil
}

func (m *memoryCacheRepo) DeleteByPattern(_ context.Context, pattern string) error {
	m.deleted = append(m.deleted, pattern)
	delete(m.store, pattern)
	return nil
}

type fakeStudyRepo struct {
	viewable   []models.Study
	existing   []string
	byCriteria func(criteria search.Criteria) []models.Study
	criteria   []search.Criteria
	err        error
}

func (f *fakeStudyRepo) Viewable(_ context.Context, _ *models.User) ([]models.Study, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.viewable, nil
}

func (f *fakeStudyRepo) FindByCriteria(_ context.Context, criteria search.Criteria) ([]models.Study, error) {
	f.criteria = append(f.criteria, criteria)
	if f.byCriteria == nil {
		return nil, nil
	}
	return f.byCriteria(criteria), nil
}

func (f *fakeStudyRepo) ExistingAccessions(_ context.Context, accessions []string) ([]string, error) {
	known := make(map[string]struct{}, len(f.existing))
	for _, accession := range f.existing {
		known[accession] = struct{}{}
	}
	var found []string
	for _, accession := range accessions {
		if _, ok := known[accession]; ok {
			found = append(found, accession)
		}
	}
	return found, nil
}

func (f *fakeStudyRepo) ViewableByAccessions(_ context.Context, _ *models.User, accessions []string) ([]models.Study, error) {
	wanted := make(map[string]struct{}, len(accessions))
	for _, accession := range accessions {
		wanted[accession] = struct{}{}
	}
	var studies []models.Study
	for _, study := range f.viewable {
		if _, ok := wanted[study.Accession]; ok {
			studies = append(studies, study)
		}
	}
	return studies, nil
}

type fakePresetRepo struct {
	presets map[string]*models.PresetSearch
}

func (f *fakePresetRepo) FindByIdentifier(_ context.Context, identifier string) (*models.PresetSearch, error) {
	if preset, ok := f.presets[identifier]; ok {
		return preset, nil
	}
	return nil, appErrors.Clone(appErrors.ErrNotFound, "preset search not found")
}

type fakeBrandingRepo struct {
	groups map[string]*models.BrandingGroup
}

func (f *fakeBrandingRepo) FindByNameAsID(_ context.Context, nameAsID string) (*models.BrandingGroup, error) {
	if group, ok := f.groups[nameAsID]; ok {
		return group, nil
	}
	return nil, appErrors.Clone(appErrors.ErrNotFound, "branding group not found")
}

type fakeFacetRepo struct {
	facets   []models.SearchFacet
	allCalls int
	updated  []models.SearchFacet
}

func (f *fakeFacetRepo) All(_ context.Context) ([]models.SearchFacet, error) {
	f.allCalls++
	facets := make([]models.SearchFacet, len(f.facets))
	copy(facets, f.facets)
	return facets, nil
}

func (f *fakeFacetRepo) UpdateFilters(_ context.Context, facet *models.SearchFacet) error {
	f.updated = append(f.updated, *facet)
	return nil
}

type fakeAnalytics struct {
	rows    []search.Row
	byQuery map[string][]search.Row
	err     error
	block   bool
	queries []string
}

func (f *fakeAnalytics) Query(ctx context.Context, sql string) ([]search.Row, error) {
	f.queries = append(f.queries, sql)
	if f.block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if f.err != nil {
		return nil, f.err
	}
	if f.byQuery != nil {
		rows, ok := f.byQuery[sql]
		if !ok {
			return nil, fmt.Errorf("unexpected query %s", sql)
		}
		return rows, nil
	}
	return f.rows, nil
}

type fakeGeneFinder struct {
	result *GeneSearchResult
	raw    string
}

func (f *fakeGeneFinder) FindStudiesByGenes(_ context.Context, raw string, _ []string) (*GeneSearchResult, error) {
	f.raw = raw
	return f.result, nil
}

type fakeFileRepo struct {
	files     []models.StudyFile
	fileTypes []string
}

func (f *fakeFileRepo) FindByStudies(_ context.Context, studyIDs []string, fileTypes []string) ([]models.StudyFile, error) {
	f.fileTypes = fileTypes
	wanted := make(map[string]struct{}, len(studyIDs))
	for _, id := range studyIDs {
		wanted[id] = struct{}{}
	}
	var files []models.StudyFile
	for _, file := range f.files {
		if _, ok := wanted[file.StudyID]; ok {
			files = append(files, file)
		}
	}
	return files, nil
}

type fakeQuotaRepo struct {
	mu     sync.Mutex
	totals map[string]int64
	calls  int
}

func (f *fakeQuotaRepo) AddDownloadBytes(_ context.Context, id string, bytes, ceiling int64) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.totals[id]+bytes > ceiling {
		return 0, appErrors.ErrQuotaExceeded
	}
	f.totals[id] += bytes
	return f.totals[id], nil
}

type fakeConfigReader struct {
	entry *models.Configuration
}

func (f *fakeConfigReader) Get(_ context.Context, key string) (*models.Configuration, error) {
	if f.entry == nil || f.entry.Key != key {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "configuration not found")
	}
	return f.entry, nil
}

type fakeSigner struct {
	fail map[string]bool
}

func (f *fakeSigner) SignURL(_ context.Context, bucket, key string) (string, error) {
	if f.fail[key] {
		return "", fmt.Errorf("object %s not found", key)
	}
	return "https://storage.example.com/" + bucket + "/" + key + "?sig=abc", nil
}

type memoryAuthCodes struct {
	mu    sync.Mutex
	codes map[int]string
}

func (m *memoryAuthCodes) Reserve(_ context.Context, code int, userID string, _ time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.codes == nil {
		m.codes = make(map[int]string)
	}
	if _, taken := m.codes[code]; taken {
		return false, nil
	}
	m.codes[code] = userID
	return true, nil
}

func (m *memoryAuthCodes) Consume(_ context.Context, code int) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	userID, ok := m.codes[code]
	if !ok {
		return "", appErrors.ErrInvalidAuthCode
	}
	delete(m.codes, code)
	return userID, nil
}

type fakeUserReader struct {
	users map[string]*models.User
}

func (f *fakeUserReader) FindByID(_ context.Context, id string) (*models.User, error) {
	if user, ok := f.users[id]; ok {
		return user, nil
	}
	return nil, appErrors.Clone(appErrors.ErrNotFound, "user not found")
}
