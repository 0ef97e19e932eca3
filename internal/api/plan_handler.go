package api

import (
	"net/http"

	"alcyxob/runplan/internal/service"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type PlanHandler struct {
	planService service.PlanService
}

func NewPlanHandler(planService service.PlanService) *PlanHandler {
	return &PlanHandler{planService: planService}
}

// GeneratePlan godoc
// @Summary Generate the training plan for a race
// @Description Builds the periodized schedule from today to race day and stores the plan with all its days as a draft.
// @Tags Plans
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param raceId path string true "Race's ObjectID Hex"
// @Param request body GeneratePlanRequest false "Optional athlete age"
// @Success 201 {object} TrainingPlanResponse "Plan generated"
// @Failure 400 {object} gin.H "Invalid input or race too close"
// @Failure 401 {object} gin.H "Unauthorized"
// @Failure 403 {object} gin.H "Race belongs to another user"
// @Failure 404 {object} gin.H "Race not found"
// @Failure 409 {object} gin.H "Plan already generated or generation in progress"
// @Failure 500 {object} gin.H "Internal Server Error"
// @Failure 503 {object} gin.H "Plan saved but its days are not yet visible; activate it"
// @Router /races/{raceId}/plan [post]
func (h *PlanHandler) GeneratePlan(c *gin.Context) {
	ownerID, err := getOwnerIDFromContext(c)
	if err != nil {
		abortWithError(c, http.StatusUnauthorized, "Unable to identify user from token.")
		return
	}
	raceID, err := primitive.ObjectIDFromHex(c.Param("raceId"))
	if err != nil {
		abortWithError(c, http.StatusBadRequest, "Invalid race ID format in URL path.")
		return
	}

	// The body is optional.
	var req GeneratePlanRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			abortWithError(c, http.StatusBadRequest, "Validation error: "+err.Error())
			return
		}
	}

	plan, err := h.planService.GeneratePlan(c.Request.Context(), ownerID, raceID, req.AthleteAge)
	if err != nil {
		respondWithServiceError(c, err, "Failed to generate training plan.")
		return
	}
	c.JSON(http.StatusCreated, MapTrainingPlanToResponse(plan))
}

// GetPlanForRace godoc
// @Summary Get the training plan of a race
// @Tags Plans
// @Produce json
// @Security BearerAuth
// @Param raceId path string true "Race's ObjectID Hex"
// @Success 200 {object} TrainingPlanResponse
// @Failure 400 {object} gin.H "Invalid race ID format"
// @Failure 403 {object} gin.H "Plan belongs to another user"
// @Failure 404 {object} gin.H "No plan for this race"
// @Router /races/{raceId}/plan [get]
func (h *PlanHandler) GetPlanForRace(c *gin.Context) {
	ownerID, err := getOwnerIDFromContext(c)
	if err != nil {
		abortWithError(c, http.StatusUnauthorized, "Unable to identify user from token.")
		return
	}
	raceID, err := primitive.ObjectIDFromHex(c.Param("raceId"))
	if err != nil {
		abortWithError(c, http.StatusBadRequest, "Invalid race ID format in URL path.")
		return
	}

	plan, err := h.planService.GetPlanForRace(c.Request.Context(), ownerID, raceID)
	if err != nil {
		respondWithServiceError(c, err, "Failed to retrieve training plan.")
		return
	}
	c.JSON(http.StatusOK, MapTrainingPlanToResponse(plan))
}

// ActivatePlan godoc
// @Summary Activate a draft plan
// @Description Activating an already active plan returns it unchanged.
// @Tags Plans
// @Produce json
// @Security BearerAuth
// @Param planId path string true "Plan's ObjectID Hex"
// @Success 200 {object} TrainingPlanResponse
// @Failure 400 {object} gin.H "Invalid plan ID format"
// @Failure 403 {object} gin.H "Plan belongs to another user"
// @Failure 404 {object} gin.H "Plan not found"
// @Failure 409 {object} gin.H "Plan is completed or archived"
// @Router /plans/{planId}/activate [post]
func (h *PlanHandler) ActivatePlan(c *gin.Context) {
	ownerID, err := getOwnerIDFromContext(c)
	if err != nil {
		abortWithError(c, http.StatusUnauthorized, "Unable to identify user from token.")
		return
	}
	planID, err := primitive.ObjectIDFromHex(c.Param("planId"))
	if err != nil {
		abortWithError(c, http.StatusBadRequest, "Invalid plan ID format in URL path.")
		return
	}

	plan, err := h.planService.ActivatePlan(c.Request.Context(), ownerID, planID)
	if err != nil {
		respondWithServiceError(c, err, "Failed to activate training plan.")
		return
	}
	c.JSON(http.StatusOK, MapTrainingPlanToResponse(plan))
}
