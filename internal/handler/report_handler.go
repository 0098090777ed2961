package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/fieldset/cmms-api/internal/report"
	"github.com/fieldset/cmms-api/internal/service"
	appErrors "github.com/fieldset/cmms-api/pkg/errors"
	"github.com/fieldset/cmms-api/pkg/response"
)

// ReportHandler exposes report generation and catalog endpoints.
type ReportHandler struct {
	reports *service.ReportService
	jobs    *service.ReportJobService
}

// NewReportHandler constructs handler.
func NewReportHandler(reports *service.ReportService, jobs *service.ReportJobService) *ReportHandler {
	return &ReportHandler{reports: reports, jobs: jobs}
}

// Generate godoc
// @Summary Generate a report synchronously
// @Tags Reports
// @Accept json
// @Produce octet-stream
// @Param request body report.Request true "Report request"
// @Success 200 {file} binary
// @Router /reports/generate [post]
func (h *ReportHandler) Generate(c *gin.Context) {
	var req report.Request
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid report request"))
		return
	}
	artifact, err := h.reports.Generate(c.Request.Context(), req, claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Attachment(c, artifact.Filename, artifact.ContentType, artifact.Content)
}

// CreateJob godoc
// @Summary Queue an asynchronous report
// @Tags Reports
// @Accept json
// @Produce json
// @Param request body report.Request true "Report request"
// @Success 201 {object} response.Envelope
// @Router /reports/jobs [post]
func (h *ReportHandler) CreateJob(c *gin.Context) {
	var req report.Request
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid report request"))
		return
	}
	job, err := h.jobs.Enqueue(c.Request.Context(), req, claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, job)
}

// GetJob godoc
// @Summary Report job status
// @Tags Reports
// @Produce json
// @Param id path string true "Job ID"
// @Success 200 {object} response.Envelope
// @Router /reports/jobs/{id} [get]
func (h *ReportHandler) GetJob(c *gin.Context) {
	job, err := h.jobs.GetJob(c.Request.Context(), c.Param("id"), claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, job, nil)
}

// Download godoc
// @Summary Download a finished report by signed token
// @Tags Reports
// @Produce octet-stream
// @Param token path string true "Signed download token"
// @Success 200 {file} binary
// @Router /export/{token} [get]
func (h *ReportHandler) Download(c *gin.Context) {
	file, filename, err := h.jobs.ResolveDownload(c.Param("token"))
	if err != nil {
		response.Error(c, err)
		return
	}
	defer file.Close()
	c.Header("Cache-Control", "no-store")
	c.Header("Content-Disposition", `attachment; filename="`+filename+`"`)
	c.File(file.Name())
}

// ListEntities godoc
// @Summary Reportable entity catalog
// @Tags Reports
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /reports/entities [get]
func (h *ReportHandler) ListEntities(c *gin.Context) {
	entities, formats := h.reports.ListEntities(c.Request.Context())
	response.JSON(c, http.StatusOK, gin.H{"entities": entities, "formats": formats}, nil)
}

// EntityColumns godoc
// @Summary Selectable columns for one entity
// @Tags Reports
// @Produce json
// @Param entity path string true "Entity name"
// @Success 200 {object} response.Envelope
// @Router /reports/entities/{entity}/columns [get]
func (h *ReportHandler) EntityColumns(c *gin.Context) {
	columns, err := h.reports.EntityColumns(c.Request.Context(), c.Param("entity"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"columns": columns}, nil)
}
