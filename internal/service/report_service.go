package service

import (
	"context"
	"encoding/json"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/fieldset/cmms-api/internal/models"
	"github.com/fieldset/cmms-api/internal/report"
	appErrors "github.com/fieldset/cmms-api/pkg/errors"
	"github.com/fieldset/cmms-api/pkg/export"
)

const answerColumnsCacheKey = "catalog:answer_columns"

type reportGenerator interface {
	Generate(ctx context.Context, req report.Request) (export.Artifact, error)
}

type answerColumnSource interface {
	DistinctQuestionTexts(ctx context.Context) ([]string, error)
}

type requestResolver interface {
	ResolveRequest(ctx context.Context, req report.Request, claims *models.JWTClaims) (report.Request, error)
}

// ReportServiceConfig tunes catalog caching.
type ReportServiceConfig struct {
	CacheEnabled bool
	CacheTTL     time.Duration
}

// ReportService fronts the report engine with authorization, catalog
// discovery and metrics.
type ReportService struct {
	engine    reportGenerator
	registry  *report.Registry
	columns   answerColumnSource
	formats   *export.Registry
	redis     *redis.Client
	templates requestResolver
	cfg       ReportServiceConfig
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
}

// NewReportService constructs the service. The redis client may be
// nil, which disables catalog caching.
func NewReportService(engine reportGenerator, registry *report.Registry, columns answerColumnSource,
	formats *export.Registry, redisClient *redis.Client, cfg ReportServiceConfig,
	metrics *MetricsService, logger *zap.Logger) *ReportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = 5 * time.Minute
	}
	return &ReportService{
		engine:    engine,
		registry:  registry,
		columns:   columns,
		formats:   formats,
		redis:     redisClient,
		cfg:       cfg,
		metrics:   metrics,
		validator: newReportValidator(),
		logger:    logger,
	}
}

// WithTemplates enables saved-template resolution on generate requests.
func (s *ReportService) WithTemplates(templates requestResolver) *ReportService {
	s.templates = templates
	return s
}

// Generate runs one synchronous report for the authenticated user.
func (s *ReportService) Generate(ctx context.Context, req report.Request, claims *models.JWTClaims) (export.Artifact, error) {
	if claims == nil || !claims.Role.CanGenerateReports() {
		return export.Artifact{}, appErrors.Clone(appErrors.ErrForbidden, "role may not generate reports")
	}
	req, err := resolveTemplate(ctx, s.templates, req, claims)
	if err != nil {
		return export.Artifact{}, err
	}
	if err := s.validator.Struct(req); err != nil {
		return export.Artifact{}, appErrors.Detail(appErrors.ErrValidation, err)
	}
	start := time.Now()
	artifact, err := s.engine.Generate(ctx, req)
	if err != nil {
		s.metrics.ObserveReportFailure(appErrors.FromError(err).Code)
		return export.Artifact{}, err
	}
	format := req.OutputFormat
	if format == "" {
		format = string(export.FormatXLSX)
	}
	s.metrics.ObserveReport(req.Entities, format, time.Since(start))
	s.logger.Info("report generated",
		zap.Strings("entities", req.Entities),
		zap.String("format", format),
		zap.String("user_id", claims.UserID),
		zap.Int("bytes", len(artifact.Content)))
	return artifact, nil
}

// EntityDescriptor describes one reportable entity for the catalog.
type EntityDescriptor struct {
	Name             string   `json:"name"`
	DefaultColumns   []string `json:"default_columns"`
	AvailableColumns []string `json:"available_columns"`
	SupportsAnswers  bool     `json:"supports_answers"`
}

// ListEntities returns the reportable entity catalog along with the
// supported output formats.
func (s *ReportService) ListEntities(ctx context.Context) ([]EntityDescriptor, []string) {
	names := s.registry.Names()
	out := make([]EntityDescriptor, 0, len(names))
	for _, name := range names {
		entity, _ := s.registry.Entity(name)
		out = append(out, EntityDescriptor{
			Name:             entity.Name,
			DefaultColumns:   entity.DefaultColumns,
			AvailableColumns: entity.AvailableColumns,
			SupportsAnswers:  entity.HasAnswers,
		})
	}
	return out, s.formats.Formats()
}

// EntityColumns returns the selectable columns for one entity. For
// answer-bearing entities the dynamic answer columns discovered in
// the data are appended, cached in redis between calls.
func (s *ReportService) EntityColumns(ctx context.Context, name string) ([]string, error) {
	entity, ok := s.registry.Entity(name)
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "unknown entity "+name)
	}
	columns := append([]string{}, entity.AvailableColumns...)
	if !entity.HasAnswers {
		return columns, nil
	}

	texts, err := s.answerColumns(ctx)
	if err != nil {
		// The static catalog is still useful without the dynamic part.
		s.logger.Warn("answer column discovery failed", zap.Error(err))
		return columns, nil
	}
	for _, text := range texts {
		columns = append(columns, report.AnswersPrefix+text)
	}
	return columns, nil
}

func (s *ReportService) answerColumns(ctx context.Context) ([]string, error) {
	if s.redis != nil && s.cfg.CacheEnabled {
		cached, err := s.redis.Get(ctx, answerColumnsCacheKey).Bytes()
		if err == nil {
			s.metrics.RecordCacheLookup(true)
			var texts []string
			if jsonErr := json.Unmarshal(cached, &texts); jsonErr == nil {
				return texts, nil
			}
		}
		s.metrics.RecordCacheLookup(false)
	}

	texts, err := s.columns.DistinctQuestionTexts(ctx)
	if err != nil {
		return nil, err
	}

	if s.redis != nil && s.cfg.CacheEnabled {
		if data, err := json.Marshal(texts); err == nil {
			if err := s.redis.Set(ctx, answerColumnsCacheKey, data, s.cfg.CacheTTL).Err(); err != nil {
				s.logger.Warn("caching answer columns failed", zap.Error(err))
			}
		}
	}
	return texts, nil
}
