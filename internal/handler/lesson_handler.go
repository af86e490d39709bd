package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tutorlane/scheduling-api/internal/service"
	appErrors "github.com/tutorlane/scheduling-api/pkg/errors"
	"github.com/tutorlane/scheduling-api/pkg/response"
)

// LessonHandler handles the lesson write path: booking, cancellation and
// recurring series management.
type LessonHandler struct {
	booking   *service.BookingService
	recurring *service.RecurringService
}

// NewLessonHandler constructs a lesson handler.
func NewLessonHandler(booking *service.BookingService, recurring *service.RecurringService) *LessonHandler {
	return &LessonHandler{booking: booking, recurring: recurring}
}

// Book godoc
// @Summary Book a lesson
// @Tags Lessons
// @Accept json
// @Produce json
// @Param payload body service.BookLessonRequest true "Booking payload"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope "Slot no longer available"
// @Router /lessons [post]
func (h *LessonHandler) Book(c *gin.Context) {
	var req service.BookLessonRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	lesson, err := h.booking.BookLesson(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, lesson)
}

// Cancel godoc
// @Summary Cancel a lesson
// @Tags Lessons
// @Produce json
// @Param id path string true "Lesson ID"
// @Success 204
// @Router /lessons/{id}/cancel [post]
func (h *LessonHandler) Cancel(c *gin.Context) {
	if err := h.booking.CancelLesson(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

type createSeriesRequest struct {
	Interval string `json:"interval" binding:"required"`
}

// CreateRecurring godoc
// @Summary Turn a lesson into a recurring series
// @Tags Lessons
// @Accept json
// @Produce json
// @Param id path string true "Origin lesson ID"
// @Param payload body createSeriesRequest true "Series payload"
// @Success 201 {object} response.Envelope
// @Router /lessons/{id}/recurring [post]
func (h *LessonHandler) CreateRecurring(c *gin.Context) {
	var req createSeriesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	lessons, err := h.recurring.CreateSeries(c.Request.Context(), c.Param("id"), req.Interval)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, lessons)
}

// ExtendRecurring godoc
// @Summary Extend every recurring series whose window is due
// @Tags Lessons
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /recurring/extend [post]
func (h *LessonHandler) ExtendRecurring(c *gin.Context) {
	extended, err := h.recurring.RunScheduledExtension(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"extended_groups": extended}, nil)
}
