package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tutorlane/scheduling-api/internal/service"
	"github.com/tutorlane/scheduling-api/pkg/response"
)

// AvailabilityHandler exposes the subject-level slot aggregation and the
// per-tutor ranking endpoints.
type AvailabilityHandler struct {
	availability *service.AvailabilityService
	ranker       *service.TutorRankerService
}

// NewAvailabilityHandler constructs an availability handler.
func NewAvailabilityHandler(availability *service.AvailabilityService, ranker *service.TutorRankerService) *AvailabilityHandler {
	return &AvailabilityHandler{availability: availability, ranker: ranker}
}

// Slots godoc
// @Summary List bookable slots for a subject on a date
// @Tags Availability
// @Produce json
// @Param subjectId query string true "Subject ID"
// @Param date query string true "Local date (YYYY-MM-DD)"
// @Success 200 {object} response.Envelope
// @Router /availability/slots [get]
func (h *AvailabilityHandler) Slots(c *gin.Context) {
	slots, err := h.availability.GetAvailableSlots(c.Request.Context(), c.Query("subjectId"), c.Query("date"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, slots, nil)
}

// Tutors godoc
// @Summary Rank tutors for one requested slot
// @Tags Availability
// @Produce json
// @Param subjectId query string true "Subject ID"
// @Param date query string true "Local date (YYYY-MM-DD)"
// @Param time query string true "Requested slot start (HH:MM)"
// @Success 200 {object} response.Envelope
// @Router /availability/tutors [get]
func (h *AvailabilityHandler) Tutors(c *gin.Context) {
	ranked, err := h.ranker.RankTutors(c.Request.Context(), c.Query("subjectId"), c.Query("date"), c.Query("time"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, ranked, nil)
}
