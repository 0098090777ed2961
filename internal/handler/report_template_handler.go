package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/fieldset/cmms-api/internal/service"
	appErrors "github.com/fieldset/cmms-api/pkg/errors"
	"github.com/fieldset/cmms-api/pkg/response"
)

// ReportTemplateHandler exposes saved report configuration CRUD.
type ReportTemplateHandler struct {
	templates *service.ReportTemplateService
}

// NewReportTemplateHandler constructs handler.
func NewReportTemplateHandler(templates *service.ReportTemplateService) *ReportTemplateHandler {
	return &ReportTemplateHandler{templates: templates}
}

// Create godoc
// @Summary Save a report template
// @Tags Templates
// @Accept json
// @Produce json
// @Param request body service.TemplateInput true "Template"
// @Success 201 {object} response.Envelope
// @Router /reports/templates [post]
func (h *ReportTemplateHandler) Create(c *gin.Context) {
	var input service.TemplateInput
	if err := c.ShouldBindJSON(&input); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid template payload"))
		return
	}
	tpl, err := h.templates.Create(c.Request.Context(), input, claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, tpl)
}

// List godoc
// @Summary List accessible report templates
// @Tags Templates
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /reports/templates [get]
func (h *ReportTemplateHandler) List(c *gin.Context) {
	templates, err := h.templates.List(c.Request.Context(), claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, templates, nil)
}

// Get godoc
// @Summary Fetch one report template
// @Tags Templates
// @Produce json
// @Param id path string true "Template ID"
// @Success 200 {object} response.Envelope
// @Router /reports/templates/{id} [get]
func (h *ReportTemplateHandler) Get(c *gin.Context) {
	tpl, err := h.templates.Get(c.Request.Context(), c.Param("id"), claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, tpl, nil)
}

// Update godoc
// @Summary Update a report template
// @Tags Templates
// @Accept json
// @Produce json
// @Param id path string true "Template ID"
// @Param request body service.TemplateInput true "Changed fields"
// @Success 200 {object} response.Envelope
// @Router /reports/templates/{id} [put]
func (h *ReportTemplateHandler) Update(c *gin.Context) {
	var input service.TemplateInput
	if err := c.ShouldBindJSON(&input); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid template payload"))
		return
	}
	tpl, err := h.templates.Update(c.Request.Context(), c.Param("id"), input, claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, tpl, nil)
}

// Delete godoc
// @Summary Delete a report template
// @Tags Templates
// @Param id path string true "Template ID"
// @Success 204
// @Router /reports/templates/{id} [delete]
func (h *ReportTemplateHandler) Delete(c *gin.Context) {
	if err := h.templates.Delete(c.Request.Context(), c.Param("id"), claimsFromContext(c)); err != nil {
		response.Error(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
