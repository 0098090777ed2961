package service

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/fieldset/cmms-api/internal/models"
	"github.com/fieldset/cmms-api/internal/report"
	"github.com/fieldset/cmms-api/internal/repository"
	appErrors "github.com/fieldset/cmms-api/pkg/errors"
	"github.com/fieldset/cmms-api/pkg/jobs"
	"github.com/fieldset/cmms-api/pkg/storage"
)

type reportJobRepository interface {
	Create(ctx context.Context, job *models.ReportJob) error
	GetByID(ctx context.Context, id string) (*models.ReportJob, error)
	Update(ctx context.Context, id string, params repository.UpdateReportJobParams) error
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

type artifactStore interface {
	Save(filename string, data []byte) (string, error)
	Open(filename string) (*os.File, error)
	CleanupOlderThan(ttl time.Duration) ([]string, error)
}

// ReportJobConfig tunes asynchronous report processing.
type ReportJobConfig struct {
	Workers         int
	CleanupInterval time.Duration
	RetentionTTL    time.Duration
	DownloadPrefix  string
}

// ReportJobService runs report generation in the background and hands
// out signed download links for finished artifacts.
type ReportJobService struct {
	repo      reportJobRepository
	engine    reportGenerator
	store     artifactStore
	signer    *storage.SignedURLSigner
	metrics   *MetricsService
	templates requestResolver
	validator *validator.Validate
	logger    *zap.Logger
	cfg       ReportJobConfig
	queue     *jobs.Queue
}

// NewReportJobService constructs the service and its worker queue.
func NewReportJobService(repo reportJobRepository, engine reportGenerator, store artifactStore,
	signer *storage.SignedURLSigner, metrics *MetricsService, logger *zap.Logger, cfg ReportJobConfig) *ReportJobService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.DownloadPrefix == "" {
		cfg.DownloadPrefix = "/api/v1/export/"
	}
	s := &ReportJobService{
		repo:      repo,
		engine:    engine,
		store:     store,
		signer:    signer,
		metrics:   metrics,
		validator: newReportValidator(),
		logger:    logger,
		cfg:       cfg,
	}
	s.queue = jobs.NewQueue("report-jobs", s.process, jobs.QueueConfig{
		Workers: cfg.Workers,
		// Generation failures are terminal; the row records the error.
		MaxRetries: 1,
		Logger:     logger,
	})
	return s
}

// WithTemplates enables saved-template resolution on queued requests.
func (s *ReportJobService) WithTemplates(templates requestResolver) *ReportJobService {
	s.templates = templates
	return s
}

// Start launches the worker pool and the retention sweeper.
func (s *ReportJobService) Start(ctx context.Context) {
	s.queue.Start(ctx)
	if s.cfg.CleanupInterval > 0 && s.cfg.RetentionTTL > 0 {
		go s.cleanupLoop(ctx)
	}
}

// Stop drains the worker pool.
func (s *ReportJobService) Stop() {
	s.queue.Stop()
}

// Enqueue persists a queued job row and schedules its processing.
func (s *ReportJobService) Enqueue(ctx context.Context, req report.Request, claims *models.JWTClaims) (*models.ReportJob, error) {
	if claims == nil || !claims.Role.CanGenerateReports() {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "role may not generate reports")
	}
	req, err := resolveTemplate(ctx, s.templates, req, claims)
	if err != nil {
		return nil, err
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Detail(appErrors.ErrValidation, err)
	}
	job := &models.ReportJob{
		Params:    models.ReportJobParams{Request: req},
		Status:    models.ReportStatusQueued,
		CreatedBy: claims.UserID,
	}
	if err := s.repo.Create(ctx, job); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to persist report job")
	}
	if err := s.queue.Enqueue(jobs.Job{ID: job.ID, Type: "report", Payload: job.ID}); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to enqueue report job")
	}
	s.logger.Info("report job queued", zap.String("job_id", job.ID), zap.String("user_id", claims.UserID))
	return job, nil
}

// GetJob returns a job row, restricted to its creator unless the
// caller is an admin.
func (s *ReportJobService) GetJob(ctx context.Context, id string, claims *models.JWTClaims) (*models.ReportJob, error) {
	job, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "report job not found")
	}
	if claims == nil || (claims.Role != models.RoleAdmin && job.CreatedBy != claims.UserID) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "not your report job")
	}
	return job, nil
}

// ResolveDownload validates a signed token and opens the stored file.
func (s *ReportJobService) ResolveDownload(token string) (*os.File, string, error) {
	_, relPath, _, err := s.signer.Parse(token, false)
	if err != nil {
		return nil, "", appErrors.Wrap(err, appErrors.ErrUnauthorized.Code, appErrors.ErrUnauthorized.Status, "invalid download token")
	}
	file, err := s.store.Open(relPath)
	if err != nil {
		return nil, "", appErrors.Clone(appErrors.ErrNotFound, "report file no longer available")
	}
	return file, filepath.Base(relPath), nil
}

// process generates the report for one queued job. Failures are
// terminal and recorded on the row; jobs are never retried since the
// offending request would fail identically.
func (s *ReportJobService) process(ctx context.Context, job jobs.Job) error {
	id, _ := job.Payload.(string)
	if id == "" {
		id = job.ID
	}
	row, err := s.repo.GetByID(ctx, id)
	if err != nil {
		s.logger.Error("report job disappeared", zap.String("job_id", id), zap.Error(err))
		return nil
	}

	processing := models.ReportStatusProcessing
	if err := s.repo.Update(ctx, id, repository.UpdateReportJobParams{Status: &processing}); err != nil {
		s.logger.Error("report job update failed", zap.String("job_id", id), zap.Error(err))
	}

	start := time.Now()
	artifact, err := s.engine.Generate(ctx, row.Params.Request)
	if err != nil {
		s.fail(ctx, id, err)
		return nil
	}

	relPath := filepath.Join(id, artifact.Filename)
	if _, err := s.store.Save(relPath, artifact.Content); err != nil {
		s.fail(ctx, id, fmt.Errorf("store artifact: %w", err))
		return nil
	}
	token, _, err := s.signer.Generate(id, relPath)
	if err != nil {
		s.fail(ctx, id, fmt.Errorf("sign download: %w", err))
		return nil
	}

	finished := models.ReportStatusFinished
	url := s.cfg.DownloadPrefix + token
	now := time.Now().UTC()
	if err := s.repo.Update(ctx, id, repository.UpdateReportJobParams{
		Status:     &finished,
		ResultURL:  &url,
		Filename:   &artifact.Filename,
		FinishedAt: &now,
	}); err != nil {
		s.logger.Error("report job update failed", zap.String("job_id", id), zap.Error(err))
		return nil
	}

	format := row.Params.Request.OutputFormat
	if format == "" {
		format = "xlsx"
	}
	s.metrics.ObserveReport(row.Params.Request.Entities, format, time.Since(start))
	s.logger.Info("report job finished",
		zap.String("job_id", id),
		zap.String("filename", artifact.Filename),
		zap.Duration("took", time.Since(start)))
	return nil
}

func (s *ReportJobService) fail(ctx context.Context, id string, cause error) {
	s.metrics.ObserveReportFailure(appErrors.FromError(cause).Code)
	failed := models.ReportStatusFailed
	msg := cause.Error()
	now := time.Now().UTC()
	if err := s.repo.Update(ctx, id, repository.UpdateReportJobParams{
		Status:       &failed,
		ErrorMessage: &msg,
		FinishedAt:   &now,
	}); err != nil {
		s.logger.Error("report job update failed", zap.String("job_id", id), zap.Error(err))
	}
	s.logger.Warn("report job failed", zap.String("job_id", id), zap.Error(cause))
}

func (s *ReportJobService) cleanupLoop(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.CleanupInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			deleted, err := s.store.CleanupOlderThan(s.cfg.RetentionTTL)
			if err != nil {
				s.logger.Warn("report cleanup failed", zap.Error(err))
				continue
			}
			if len(deleted) > 0 {
				s.logger.Info("expired report files removed", zap.Int("count", len(deleted)))
			}
			cutoff := time.Now().UTC().Add(-s.cfg.RetentionTTL)
			if n, err := s.repo.DeleteOlderThan(ctx, cutoff); err != nil {
				s.logger.Warn("report job row cleanup failed", zap.Error(err))
			} else if n > 0 {
				s.logger.Info("expired report jobs removed", zap.Int64("count", n))
			}
		}
	}
}
