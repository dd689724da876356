package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/scportal/search-api/internal/dto"
	"github.com/scportal/search-api/internal/models"
	"github.com/scportal/search-api/internal/search"
	appErrors "github.com/scportal/search-api/pkg/errors"
	"github.com/scportal/search-api/pkg/storage"
)

// Curl options written at the top of every manifest.
var manifestHeader = []string{"--create-dirs", "--compressed"}

type bulkStudyRepository interface {
	ExistingAccessions(ctx context.Context, accessions []string) ([]string, error)
	ViewableByAccessions(ctx context.Context, user *models.User, accessions []string) ([]models.Study, error)
}

type studyFileRepository interface {
	FindByStudies(ctx context.Context, studyIDs []string, fileTypes []string) ([]models.StudyFile, error)
}

type downloadQuotaRepository interface {
	AddDownloadBytes(ctx context.Context, id string, bytes, ceiling int64) (int64, error)
}

type configurationReader interface {
	Get(ctx context.Context, key string) (*models.Configuration, error)
}

// BulkDownloadConfig tunes manifest generation and quota enforcement.
type BulkDownloadConfig struct {
	DailyQuotaBytes    int64
	SigningConcurrency int
}

// BulkDownloadService resolves requested study files, renders curl manifests
// of signed URLs and debits the requesting user's daily download quota.
type BulkDownloadService struct {
	studies bulkStudyRepository
	files   studyFileRepository
	quota   downloadQuotaRepository
	configs configurationReader
	signer  storage.URLSigner
	metrics *MetricsService
	logger  *zap.Logger
	cfg     BulkDownloadConfig
}

// NewBulkDownloadService constructs a BulkDownloadService.
func NewBulkDownloadService(studies bulkStudyRepository, files studyFileRepository, quota downloadQuotaRepository, configs configurationReader, signer storage.URLSigner, metrics *MetricsService, logger *zap.Logger, cfg BulkDownloadConfig) *BulkDownloadService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.SigningConcurrency <= 0 {
		cfg.SigningConcurrency = 16
	}
	return &BulkDownloadService{
		studies: studies,
		files:   files,
		quota:   quota,
		configs: configs,
		signer:  signer,
		metrics: metrics,
		logger:  logger,
		cfg:     cfg,
	}
}

// SanitizeFileTypes parses the comma separated file_types parameter. An empty
// parameter selects every type.
func SanitizeFileTypes(raw string) ([]string, error) {
	allowed := make(map[string]struct{}, len(models.BulkDownloadTypes))
	for _, fileType := range models.BulkDownloadTypes {
		allowed[fileType] = struct{}{}
	}
	var (
		fileTypes []string
		invalid   []string
	)
	seen := make(map[string]struct{})
	for _, token := range strings.Split(raw, ",") {
		token = strings.TrimSpace(token)
		if token == "" {
			continue
		}
		if _, ok := allowed[token]; !ok {
			invalid = append(invalid, token)
			continue
		}
		if _, dup := seen[token]; dup {
			continue
		}
		seen[token] = struct{}{}
		fileTypes = append(fileTypes, token)
	}
	if len(invalid) > 0 {
		return nil, appErrors.Clone(appErrors.ErrInvalidFileTypes,
			fmt.Sprintf("invalid file types: %s; allowed: %s", strings.Join(invalid, ", "), strings.Join(models.BulkDownloadTypes, ", ")))
	}
	return fileTypes, nil
}

// ValidateAccessions parses the accessions parameter and confirms every
// accession exists. Accessions keep their input order.
func (s *BulkDownloadService) ValidateAccessions(ctx context.Context, raw string) ([]string, error) {
	valid, invalid := search.ParseAccessionList(raw)
	if len(invalid) > 0 {
		return nil, appErrors.Clone(appErrors.ErrInvalidAccessions, "invalid accessions: "+strings.Join(invalid, ", "))
	}
	if len(valid) == 0 {
		return nil, appErrors.Clone(appErrors.ErrInvalidAccessions, "accessions are required")
	}
	existing, err := s.studies.ExistingAccessions(ctx, valid)
	if err != nil {
		return nil, err
	}
	found := make(map[string]struct{}, len(existing))
	for _, accession := range existing {
		found[accession] = struct{}{}
	}
	var missing []string
	for _, accession := range valid {
		if _, ok := found[accession]; !ok {
			missing = append(missing, accession)
		}
	}
	if len(missing) > 0 {
		return nil, appErrors.Clone(appErrors.ErrInvalidAccessions, "invalid accessions: "+strings.Join(missing, ", "))
	}
	return valid, nil
}

// GetRequestedFiles returns the top-level files of the requested studies the
// user may view, limited to fileTypes when given. Bundled files ride along on
// their parents.
func (s *BulkDownloadService) GetRequestedFiles(ctx context.Context, user *models.User, fileTypes, accessions []string) ([]models.StudyFile, error) {
	studies, err := s.studies.ViewableByAccessions(ctx, user, accessions)
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(studies))
	for _, study := range studies {
		ids = append(ids, study.ID)
	}
	if len(ids) == 0 {
		return []models.StudyFile{}, nil
	}
	start := time.Now()
	files, err := s.files.FindByStudies(ctx, ids, models.ExpandBulkDownloadTypes(fileTypes))
	if err != nil {
		return nil, err
	}
	if s.metrics != nil {
		s.metrics.ObserveDBQuery("study_files_by_studies", time.Since(start))
	}
	return files, nil
}

// GetRequestedFileSizesByType previews a download without touching the quota.
func (s *BulkDownloadService) GetRequestedFileSizesByType(ctx context.Context, user *models.User, fileTypes, accessions []string) (dto.FileTypeSizes, error) {
	files, err := s.GetRequestedFiles(ctx, user, fileTypes, accessions)
	if err != nil {
		return nil, err
	}
	sizes := make(dto.FileTypeSizes)
	for i := range files {
		fileType := files[i].SimplifiedFileType()
		summary := sizes[fileType]
		summary.TotalFiles++
		summary.TotalBytes += files[i].UploadFileSize
		sizes[fileType] = summary
	}
	return sizes, nil
}

// TotalBytes sums the sizes of top-level files.
func TotalBytes(files []models.StudyFile) int64 {
	var total int64
	for i := range files {
		total += files[i].UploadFileSize
	}
	return total
}

// DailyQuota returns the per-user daily byte ceiling, preferring the admin
// configuration entry over the configured default.
func (s *BulkDownloadService) DailyQuota(ctx context.Context) (int64, error) {
	if s.configs == nil {
		return s.cfg.DailyQuotaBytes, nil
	}
	entry, err := s.configs.Get(ctx, models.ConfigDailyDownloadQuota)
	if err != nil {
		if appErrors.Is(err, appErrors.ErrNotFound) {
			return s.cfg.DailyQuotaBytes, nil
		}
		return 0, err
	}
	value, err := entry.NumericValue()
	if err != nil {
		s.logger.Warn("ignoring malformed download quota configuration", zap.Error(err))
		return s.cfg.DailyQuotaBytes, nil
	}
	return int64(value), nil
}

// UpdateUserDownloadQuota adds the files' bytes to the user's daily total.
// The debit is all or nothing; when it would pass the ceiling nothing is
// written and ErrQuotaExceeded is returned, so a repeated request fails the
// same way.
func (s *BulkDownloadService) UpdateUserDownloadQuota(ctx context.Context, user *models.User, files []models.StudyFile) error {
	requested := TotalBytes(files)
	ceiling, err := s.DailyQuota(ctx)
	if err != nil {
		return err
	}
	total, err := s.quota.AddDownloadBytes(ctx, user.ID, requested, ceiling)
	if err != nil {
		if appErrors.Is(err, appErrors.ErrQuotaExceeded) {
			if s.metrics != nil {
				s.metrics.RecordQuotaRejection()
			}
			allowed := ceiling - user.DailyDownloadQuota
			if allowed < 0 {
				allowed = 0
			}
			s.logger.Info("download quota exceeded",
				zap.String("user_id", user.ID),
				zap.Int64("requested_bytes", requested),
				zap.Int64("ceiling_bytes", ceiling))
			return appErrors.Clone(appErrors.ErrQuotaExceeded,
				fmt.Sprintf("total file size exceeds user download quota: %d bytes requested, %d bytes allowed", requested, allowed))
		}
		return err
	}
	user.DailyDownloadQuota = total
	if s.metrics != nil {
		s.metrics.RecordDownloadBytes(requested)
	}
	s.logger.Info("download quota debited",
		zap.String("user_id", user.ID),
		zap.Int64("requested_bytes", requested),
		zap.Int64("daily_total_bytes", total))
	return nil
}

// GenerateManifest renders a curl config with one url/output pair per file
// and bundled file, in file order. URLs are signed concurrently. A file that
// cannot be signed becomes a comment so the rest of the download proceeds.
func (s *BulkDownloadService) GenerateManifest(ctx context.Context, files []models.StudyFile) (string, error) {
	var entries []models.StudyFile
	for _, file := range files {
		entries = append(entries, file)
		entries = append(entries, file.BundledFiles...)
	}

	blocks := make([]string, len(entries))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.SigningConcurrency)
	for i := range entries {
		i := i
		file := entries[i]
		g.Go(func() error {
			output := file.BulkDownloadPath()
			url, err := s.signer.SignURL(gctx, file.BucketID, file.BucketLocation())
			if err != nil {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				s.logger.Error("sign download url failed",
					zap.String("accession", file.Accession),
					zap.String("file", output),
					zap.Error(err))
				blocks[i] = "# Error downloading " + output + ".  Did you delete the file in the bucket and not sync it in Single Cell Portal?"
				return nil
			}
			blocks[i] = `url="` + url + `"` + "\n" + `output="` + output + `"`
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return "", err
	}
	return strings.Join(append(append([]string{}, manifestHeader...), blocks...), "\n\n"), nil
}

// PrepareDownload builds the manifest and then debits the quota. The
// manifest is only returned once the debit has been committed.
func (s *BulkDownloadService) PrepareDownload(ctx context.Context, user *models.User, fileTypes, accessions []string) (string, error) {
	if user == nil {
		return "", appErrors.ErrInvalidAuthCode
	}
	files, err := s.GetRequestedFiles(ctx, user, fileTypes, accessions)
	if err != nil {
		return "", err
	}
	manifest, err := s.GenerateManifest(ctx, files)
	if err != nil {
		return "", err
	}
	if err := s.UpdateUserDownloadQuota(ctx, user, files); err != nil {
		return "", err
	}
	return manifest, nil
}
