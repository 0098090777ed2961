package service

import (
	"context"

	"github.com/go-playground/validator/v10"

	"github.com/fieldset/cmms-api/internal/models"
	"github.com/fieldset/cmms-api/internal/report"
	appErrors "github.com/fieldset/cmms-api/pkg/errors"
	"github.com/fieldset/cmms-api/pkg/export"
)

// newReportValidator builds a validator aware of the report request's
// custom tags.
func newReportValidator() *validator.Validate {
	v := validator.New()
	_ = v.RegisterValidation("output_format", func(fl validator.FieldLevel) bool {
		_, err := export.ParseFormat(fl.Field().String())
		return err == nil
	})
	return v
}

// resolveTemplate folds a referenced template into the request before
// validation. Runs before Struct validation so a template can supply
// the required fields.
func resolveTemplate(ctx context.Context, templates requestResolver, req report.Request, claims *models.JWTClaims) (report.Request, error) {
	if req.TemplateID == "" {
		return req, nil
	}
	if templates == nil {
		return report.Request{}, appErrors.Clone(appErrors.ErrValidation, "report templates are not available")
	}
	return templates.ResolveRequest(ctx, req, claims)
}
