package api

import (
	"net/http"
	"strconv"
	"time"

	"alcyxob/runplan/internal/service"
	"alcyxob/runplan/internal/storage"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const dateLayout = "2006-01-02"

type TrainingDayHandler struct {
	dayService service.TrainingDayService
	now        func() time.Time
}

func NewTrainingDayHandler(dayService service.TrainingDayService, now func() time.Time) *TrainingDayHandler {
	if now == nil {
		now = time.Now
	}
	return &TrainingDayHandler{dayService: dayService, now: now}
}

// GetTodayWorkout godoc
// @Summary Get today's workout
// @Tags Training Days
// @Produce json
// @Security BearerAuth
// @Success 200 {object} TrainingDayResponse
// @Failure 404 {object} gin.H "Nothing planned today"
// @Router /days/today [get]
func (h *TrainingDayHandler) GetTodayWorkout(c *gin.Context) {
	ownerID, err := getOwnerIDFromContext(c)
	if err != nil {
		abortWithError(c, http.StatusUnauthorized, "Unable to identify user from token.")
		return
	}
	day, err := h.dayService.GetTodayWorkout(c.Request.Context(), ownerID)
	if err != nil {
		respondWithServiceError(c, err, "Failed to retrieve today's workout.")
		return
	}
	c.JSON(http.StatusOK, MapTrainingDayToResponse(day, h.now()))
}

// GetDayByDate godoc
// @Summary Get the training day on a date
// @Tags Training Days
// @Produce json
// @Security BearerAuth
// @Param date path string true "Calendar date, YYYY-MM-DD"
// @Success 200 {object} TrainingDayResponse
// @Failure 400 {object} gin.H "Invalid date"
// @Failure 404 {object} gin.H "Nothing planned on that date"
// @Router /days/date/{date} [get]
func (h *TrainingDayHandler) GetDayByDate(c *gin.Context) {
	ownerID, err := getOwnerIDFromContext(c)
	if err != nil {
		abortWithError(c, http.StatusUnauthorized, "Unable to identify user from token.")
		return
	}
	date, err := time.Parse(dateLayout, c.Param("date"))
	if err != nil {
		abortWithError(c, http.StatusBadRequest, "Invalid date, expected YYYY-MM-DD.")
		return
	}
	day, err := h.dayService.GetDayByDate(c.Request.Context(), ownerID, date)
	if err != nil {
		respondWithServiceError(c, err, "Failed to retrieve training day.")
		return
	}
	c.JSON(http.StatusOK, MapTrainingDayToResponse(day, h.now()))
}

// SubmitFeedback godoc
// @Summary Submit feedback for a day
// @Description Merges mood, effort (1-10), injury flag and notes into the day and recomputes its analysis.
// @Tags Training Days
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param dayId path string true "Training day's ObjectID Hex"
// @Param feedback body FeedbackRequest true "Feedback fields to update"
// @Success 200 {object} TrainingDayResponse
// @Failure 400 {object} gin.H "Invalid input"
// @Failure 403 {object} gin.H "Day belongs to another user"
// @Failure 404 {object} gin.H "Training day not found"
// @Failure 409 {object} gin.H "Day changed while the feedback was applied; retry"
// @Router /days/{dayId}/feedback [post]
func (h *TrainingDayHandler) SubmitFeedback(c *gin.Context) {
	ownerID, err := getOwnerIDFromContext(c)
	if err != nil {
		abortWithError(c, http.StatusUnauthorized, "Unable to identify user from token.")
		return
	}
	dayID, err := primitive.ObjectIDFromHex(c.Param("dayId"))
	if err != nil {
		abortWithError(c, http.StatusBadRequest, "Invalid day ID format in URL path.")
		return
	}
	var req FeedbackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}

	day, err := h.dayService.SubmitFeedback(c.Request.Context(), ownerID, dayID, service.FeedbackInput{
		Mood:       req.Mood,
		Effort:     req.Effort,
		InjuryFlag: req.InjuryFlag,
		Notes:      req.Notes,
	})
	if err != nil {
		respondWithServiceError(c, err, "Failed to submit feedback.")
		return
	}
	c.JSON(http.StatusOK, MapTrainingDayToResponse(day, h.now()))
}

// GetRawActivityURL godoc
// @Summary Get a download URL for the archived activity payload
// @Tags Training Days
// @Produce json
// @Security BearerAuth
// @Param dayId path string true "Training day's ObjectID Hex"
// @Success 200 {object} RawActivityURLResponse
// @Failure 404 {object} gin.H "No payload archived for this day"
// @Router /days/{dayId}/raw-activity [get]
func (h *TrainingDayHandler) GetRawActivityURL(c *gin.Context) {
	ownerID, err := getOwnerIDFromContext(c)
	if err != nil {
		abortWithError(c, http.StatusUnauthorized, "Unable to identify user from token.")
		return
	}
	dayID, err := primitive.ObjectIDFromHex(c.Param("dayId"))
	if err != nil {
		abortWithError(c, http.StatusBadRequest, "Invalid day ID format in URL path.")
		return
	}
	url, err := h.dayService.GetRawActivityURL(c.Request.Context(), ownerID, dayID)
	if err != nil {
		respondWithServiceError(c, err, "Failed to generate download URL.")
		return
	}
	c.JSON(http.StatusOK, RawActivityURLResponse{
		URL:       url,
		ExpiresIn: int(storage.DefaultPresignedURLExpiry.Seconds()),
	})
}

// GetWeekDays godoc
// @Summary List the days of a plan week
// @Tags Training Days
// @Produce json
// @Security BearerAuth
// @Param weekIndex path int true "0-based week index"
// @Success 200 {array} TrainingDayResponse
// @Failure 400 {object} gin.H "Week index outside the plan"
// @Failure 404 {object} gin.H "No plan"
// @Router /weeks/{weekIndex}/days [get]
func (h *TrainingDayHandler) GetWeekDays(c *gin.Context) {
	ownerID, weekIndex, ok := h.ownerAndWeek(c)
	if !ok {
		return
	}
	days, err := h.dayService.GetWeekDays(c.Request.Context(), ownerID, weekIndex)
	if err != nil {
		respondWithServiceError(c, err, "Failed to retrieve week.")
		return
	}
	c.JSON(http.StatusOK, MapTrainingDaysToResponse(days, h.now()))
}

// GetWeeklySummary godoc
// @Summary Summarize a plan week
// @Tags Training Days
// @Produce json
// @Security BearerAuth
// @Param weekIndex path int true "0-based week index"
// @Success 200 {object} domain.WeeklySummary
// @Failure 400 {object} gin.H "Week index outside the plan"
// @Failure 404 {object} gin.H "No plan"
// @Router /weeks/{weekIndex}/summary [get]
func (h *TrainingDayHandler) GetWeeklySummary(c *gin.Context) {
	ownerID, weekIndex, ok := h.ownerAndWeek(c)
	if !ok {
		return
	}
	summary, err := h.dayService.GetWeeklySummary(c.Request.Context(), ownerID, weekIndex)
	if err != nil {
		respondWithServiceError(c, err, "Failed to summarize week.")
		return
	}
	c.JSON(http.StatusOK, summary)
}

// GetTrainingProgress godoc
// @Summary Completion over the current plan
// @Tags Training Days
// @Produce json
// @Security BearerAuth
// @Success 200 {object} domain.TrainingProgress
// @Failure 404 {object} gin.H "No plan"
// @Router /progress [get]
func (h *TrainingDayHandler) GetTrainingProgress(c *gin.Context) {
	ownerID, err := getOwnerIDFromContext(c)
	if err != nil {
		abortWithError(c, http.StatusUnauthorized, "Unable to identify user from token.")
		return
	}
	progress, err := h.dayService.GetTrainingProgress(c.Request.Context(), ownerID)
	if err != nil {
		respondWithServiceError(c, err, "Failed to compute training progress.")
		return
	}
	c.JSON(http.StatusOK, progress)
}

func (h *TrainingDayHandler) ownerAndWeek(c *gin.Context) (primitive.ObjectID, int, bool) {
	ownerID, err := getOwnerIDFromContext(c)
	if err != nil {
		abortWithError(c, http.StatusUnauthorized, "Unable to identify user from token.")
		return primitive.NilObjectID, 0, false
	}
	weekIndex, err := strconv.Atoi(c.Param("weekIndex"))
	if err != nil {
		abortWithError(c, http.StatusBadRequest, "Week index must be an integer.")
		return primitive.NilObjectID, 0, false
	}
	return ownerID, weekIndex, true
}
