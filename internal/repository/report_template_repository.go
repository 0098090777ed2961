package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/fieldset/cmms-api/internal/models"
)

// ReportTemplateRepository persists saved report configurations.
type ReportTemplateRepository struct {
	db *sqlx.DB
}

// NewReportTemplateRepository constructs the repository.
func NewReportTemplateRepository(db *sqlx.DB) *ReportTemplateRepository {
	return &ReportTemplateRepository{db: db}
}

// Create inserts a template row with generated defaults.
func (r *ReportTemplateRepository) Create(ctx context.Context, tpl *models.ReportTemplate) error {
	if tpl.ID == "" {
		tpl.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if tpl.CreatedAt.IsZero() {
		tpl.CreatedAt = now
	}
	if tpl.UpdatedAt.IsZero() {
		tpl.UpdatedAt = now
	}
	const query = `INSERT INTO report_templates (id, name, description, configuration, is_public, created_by, created_at, updated_at)
VALUES (:id, :name, :description, :configuration, :is_public, :created_by, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, tpl); err != nil {
		return fmt.Errorf("create report template: %w", err)
	}
	return nil
}

// GetByID returns a template, skipping soft-deleted rows.
func (r *ReportTemplateRepository) GetByID(ctx context.Context, id string) (*models.ReportTemplate, error) {
	const query = `SELECT id, name, description, configuration, is_public, created_by, created_at, updated_at
FROM report_templates WHERE id = $1 AND is_deleted = FALSE`
	var tpl models.ReportTemplate
	if err := r.db.GetContext(ctx, &tpl, query, id); err != nil {
		return nil, fmt.Errorf("get report template: %w", err)
	}
	return &tpl, nil
}

// ListAccessible returns the caller's own templates plus public ones,
// ordered by name.
func (r *ReportTemplateRepository) ListAccessible(ctx context.Context, userID string) ([]models.ReportTemplate, error) {
	const query = `SELECT id, name, description, configuration, is_public, created_by, created_at, updated_at
FROM report_templates WHERE is_deleted = FALSE AND (created_by = $1 OR is_public = TRUE) ORDER BY name ASC`
	var out []models.ReportTemplate
	if err := r.db.SelectContext(ctx, &out, query, userID); err != nil {
		return nil, fmt.Errorf("list report templates: %w", err)
	}
	return out, nil
}

// UpdateReportTemplateParams defines the mutable fields.
type UpdateReportTemplateParams struct {
	Name          *string
	Description   *string
	Configuration *models.TemplateConfiguration
	IsPublic      *bool
}

// Update persists the provided changes and bumps updated_at.
func (r *ReportTemplateRepository) Update(ctx context.Context, id string, params UpdateReportTemplateParams) error {
	set := make([]string, 0, 5)
	args := make([]interface{}, 0, 6)
	argPos := 1

	if params.Name != nil {
		set = append(set, fmt.Sprintf("name = $%d", argPos))
		args = append(args, *params.Name)
		argPos++
	}
	if params.Description != nil {
		set = append(set, fmt.Sprintf("description = $%d", argPos))
		args = append(args, *params.Description)
		argPos++
	}
	if params.Configuration != nil {
		set = append(set, fmt.Sprintf("configuration = $%d", argPos))
		args = append(args, *params.Configuration)
		argPos++
	}
	if params.IsPublic != nil {
		set = append(set, fmt.Sprintf("is_public = $%d", argPos))
		args = append(args, *params.IsPublic)
		argPos++
	}
	if len(set) == 0 {
		return nil
	}
	set = append(set, fmt.Sprintf("updated_at = $%d", argPos))
	args = append(args, time.Now().UTC())
	argPos++

	query := fmt.Sprintf("UPDATE report_templates SET %s WHERE id = $%d AND is_deleted = FALSE",
		strings.Join(set, ", "), argPos)
	args = append(args, id)
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("update report template: %w", err)
	}
	return nil
}

// SoftDelete hides a template without destroying its row.
func (r *ReportTemplateRepository) SoftDelete(ctx context.Context, id string) error {
	const query = `UPDATE report_templates SET is_deleted = TRUE, deleted_at = $1 WHERE id = $2 AND is_deleted = FALSE`
	if _, err := r.db.ExecContext(ctx, query, time.Now().UTC(), id); err != nil {
		return fmt.Errorf("delete report template: %w", err)
	}
	return nil
}
