package service

import (
	"context"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/fieldset/cmms-api/internal/models"
	"github.com/fieldset/cmms-api/internal/report"
	"github.com/fieldset/cmms-api/internal/repository"
	appErrors "github.com/fieldset/cmms-api/pkg/errors"
)

type reportTemplateRepository interface {
	Create(ctx context.Context, tpl *models.ReportTemplate) error
	GetByID(ctx context.Context, id string) (*models.ReportTemplate, error)
	ListAccessible(ctx context.Context, userID string) ([]models.ReportTemplate, error)
	Update(ctx context.Context, id string, params repository.UpdateReportTemplateParams) error
	SoftDelete(ctx context.Context, id string) error
}

// TemplateInput carries the writable template fields.
type TemplateInput struct {
	Name          string         `json:"name" validate:"required"`
	Description   string         `json:"description,omitempty"`
	Configuration report.Request `json:"configuration"`
	IsPublic      bool           `json:"is_public"`
}

// ReportTemplateService manages saved report configurations. A
// template belongs to its creator; public templates are readable by
// anyone who can generate reports, and admins can touch everything.
type ReportTemplateService struct {
	repo      reportTemplateRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewReportTemplateService constructs the service.
func NewReportTemplateService(repo reportTemplateRepository, logger *zap.Logger) *ReportTemplateService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReportTemplateService{
		repo:      repo,
		validator: validator.New(),
		logger:    logger,
	}
}

// Create saves a new template owned by the caller. The configuration
// is stored as given; it is validated against the schema when a report
// actually uses it.
func (s *ReportTemplateService) Create(ctx context.Context, input TemplateInput, claims *models.JWTClaims) (*models.ReportTemplate, error) {
	if claims == nil || !claims.Role.CanGenerateReports() {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "role may not manage report templates")
	}
	if err := s.validator.Struct(input); err != nil {
		return nil, appErrors.Detail(appErrors.ErrValidation, err)
	}

	tpl := &models.ReportTemplate{
		Name:          strings.TrimSpace(input.Name),
		Configuration: models.TemplateConfiguration{Request: input.Configuration},
		IsPublic:      input.IsPublic,
		CreatedBy:     claims.UserID,
	}
	if desc := strings.TrimSpace(input.Description); desc != "" {
		tpl.Description = &desc
	}
	if err := s.repo.Create(ctx, tpl); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to persist report template")
	}
	s.logger.Info("report template created",
		zap.String("template_id", tpl.ID), zap.String("user_id", claims.UserID))
	return tpl, nil
}

// List returns the caller's templates plus public ones.
func (s *ReportTemplateService) List(ctx context.Context, claims *models.JWTClaims) ([]models.ReportTemplate, error) {
	if claims == nil || !claims.Role.CanGenerateReports() {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "role may not manage report templates")
	}
	templates, err := s.repo.ListAccessible(ctx, claims.UserID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list report templates")
	}
	return templates, nil
}

// Get returns one template if the caller may read it.
func (s *ReportTemplateService) Get(ctx context.Context, id string, claims *models.JWTClaims) (*models.ReportTemplate, error) {
	tpl, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !canReadTemplate(tpl, claims) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "not your report template")
	}
	return tpl, nil
}

// Update applies partial changes; only the owner or an admin may edit.
func (s *ReportTemplateService) Update(ctx context.Context, id string, input TemplateInput, claims *models.JWTClaims) (*models.ReportTemplate, error) {
	tpl, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !canEditTemplate(tpl, claims) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "not your report template")
	}

	params := repository.UpdateReportTemplateParams{}
	if name := strings.TrimSpace(input.Name); name != "" && name != tpl.Name {
		params.Name = &name
	}
	if desc := strings.TrimSpace(input.Description); desc != "" {
		params.Description = &desc
	}
	if len(input.Configuration.Entities) > 0 {
		cfg := models.TemplateConfiguration{Request: input.Configuration}
		params.Configuration = &cfg
	}
	if input.IsPublic != tpl.IsPublic {
		params.IsPublic = &input.IsPublic
	}
	if err := s.repo.Update(ctx, id, params); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update report template")
	}
	return s.load(ctx, id)
}

// Delete soft-deletes a template; only the owner or an admin may.
func (s *ReportTemplateService) Delete(ctx context.Context, id string, claims *models.JWTClaims) error {
	tpl, err := s.load(ctx, id)
	if err != nil {
		return err
	}
	if !canEditTemplate(tpl, claims) {
		return appErrors.Clone(appErrors.ErrForbidden, "not your report template")
	}
	if err := s.repo.SoftDelete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete report template")
	}
	s.logger.Info("report template deleted",
		zap.String("template_id", id), zap.String("user_id", claims.UserID))
	return nil
}

// ResolveRequest folds a referenced template's configuration under the
// request. Fields the request sets directly always win.
func (s *ReportTemplateService) ResolveRequest(ctx context.Context, req report.Request, claims *models.JWTClaims) (report.Request, error) {
	if req.TemplateID == "" {
		return req, nil
	}
	tpl, err := s.load(ctx, req.TemplateID)
	if err != nil {
		return report.Request{}, err
	}
	if !canReadTemplate(tpl, claims) {
		return report.Request{}, appErrors.Clone(appErrors.ErrForbidden, "not your report template")
	}
	return report.Overlay(tpl.Configuration.Request, req), nil
}

func (s *ReportTemplateService) load(ctx context.Context, id string) (*models.ReportTemplate, error) {
	tpl, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "report template not found")
	}
	return tpl, nil
}

func canReadTemplate(tpl *models.ReportTemplate, claims *models.JWTClaims) bool {
	if claims == nil {
		return false
	}
	return tpl.IsPublic || tpl.CreatedBy == claims.UserID || claims.Role == models.RoleAdmin
}

func canEditTemplate(tpl *models.ReportTemplate, claims *models.JWTClaims) bool {
	if claims == nil {
		return false
	}
	return tpl.CreatedBy == claims.UserID || claims.Role == models.RoleAdmin
}
