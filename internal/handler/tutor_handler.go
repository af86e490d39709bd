package handler

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/tutorlane/scheduling-api/internal/models"
	"github.com/tutorlane/scheduling-api/internal/service"
	appErrors "github.com/tutorlane/scheduling-api/pkg/errors"
	"github.com/tutorlane/scheduling-api/pkg/response"
)

// TutorHandler handles tutor directory, availability rule and schedule
// export endpoints.
type TutorHandler struct {
	service *service.TutorService
	export  *service.ExportService
}

// NewTutorHandler constructs a tutor handler.
func NewTutorHandler(svc *service.TutorService, export *service.ExportService) *TutorHandler {
	return &TutorHandler{service: svc, export: export}
}

// List godoc
// @Summary List tutors
// @Tags Tutors
// @Produce json
// @Param subjectId query string false "Filter by subject"
// @Param search query string false "Search keyword"
// @Param active query bool false "Filter by active flag"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /tutors [get]
func (h *TutorHandler) List(c *gin.Context) {
	var filter models.TutorFilter
	filter.SubjectID = c.Query("subjectId")
	filter.Search = strings.TrimSpace(c.Query("search"))
	if raw := c.Query("active"); raw != "" {
		if active, err := strconv.ParseBool(raw); err == nil {
			filter.Active = &active
		}
	}
	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		filter.Page = page
	}
	if limit, err := strconv.Atoi(c.DefaultQuery("limit", "20")); err == nil {
		filter.PageSize = limit
	}
	filter.SortBy = c.Query("sort")
	filter.SortOrder = c.Query("order")

	tutors, pagination, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, tutors, pagination)
}

// Get godoc
// @Summary Get tutor by id
// @Tags Tutors
// @Produce json
// @Param id path string true "Tutor ID"
// @Success 200 {object} response.Envelope
// @Router /tutors/{id} [get]
func (h *TutorHandler) Get(c *gin.Context) {
	tutor, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, tutor, nil)
}

// ListRules godoc
// @Summary List a tutor's weekly availability rules
// @Tags Tutors
// @Produce json
// @Param id path string true "Tutor ID"
// @Success 200 {object} response.Envelope
// @Router /tutors/{id}/rules [get]
func (h *TutorHandler) ListRules(c *gin.Context) {
	rules, err := h.service.ListRules(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, rules, nil)
}

// CreateRule godoc
// @Summary Create a weekly availability rule
// @Tags Tutors
// @Accept json
// @Produce json
// @Param id path string true "Tutor ID"
// @Param payload body service.CreateRuleRequest true "Rule payload"
// @Success 201 {object} response.Envelope
// @Router /tutors/{id}/rules [post]
func (h *TutorHandler) CreateRule(c *gin.Context) {
	var req service.CreateRuleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	rule, err := h.service.CreateRule(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, rule)
}

// DeleteRule godoc
// @Summary Delete a weekly availability rule
// @Tags Tutors
// @Produce json
// @Param id path string true "Tutor ID"
// @Param ruleId path string true "Rule ID"
// @Success 204
// @Router /tutors/{id}/rules/{ruleId} [delete]
func (h *TutorHandler) DeleteRule(c *gin.Context) {
	if err := h.service.DeleteRule(c.Request.Context(), c.Param("id"), c.Param("ruleId")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// ExportSchedule godoc
// @Summary Export a tutor's upcoming schedule
// @Tags Tutors
// @Produce text/csv
// @Produce application/pdf
// @Param id path string true "Tutor ID"
// @Param format query string false "csv or pdf (default csv)"
// @Success 200
// @Router /tutors/{id}/schedule/export [get]
func (h *TutorHandler) ExportSchedule(c *gin.Context) {
	result, err := h.export.ExportSchedule(c.Request.Context(), c.Param("id"), c.Query("format"))
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Header("Content-Disposition", "attachment; filename="+result.Filename)
	c.Data(http.StatusOK, result.ContentType, result.Content)
}
