package api

import (
	"errors"
	"net/http"
	"time"

	"alcyxob/runplan/internal/service"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// TelemetryHandler receives normalized activities from the ingestion worker.
type TelemetryHandler struct {
	reconcileService service.ReconcileService
	now              func() time.Time
}

func NewTelemetryHandler(reconcileService service.ReconcileService, now func() time.Time) *TelemetryHandler {
	if now == nil {
		now = time.Now
	}
	return &TelemetryHandler{reconcileService: reconcileService, now: now}
}

// IngestActivity godoc
// @Summary Reconcile an activity with the planned day
// @Description Writes the actual block of the user's day on the activity date and recomputes the analysis. Replaying the same activity is safe. Responds 204 when nothing is planned on that date.
// @Tags Internal
// @Accept json
// @Produce json
// @Param X-Ingest-Key header string true "Shared ingest key"
// @Param activity body TelemetryRequest true "Normalized activity"
// @Success 200 {object} TrainingDayResponse
// @Success 204 "No training day planned on that date"
// @Failure 400 {object} gin.H "Invalid input"
// @Failure 401 {object} gin.H "Invalid ingest key"
// @Failure 422 {object} gin.H "Activity lacks distance or duration"
// @Failure 409 {object} gin.H "Day changed while the activity was applied; retry"
// @Router /internal/telemetry [post]
func (h *TelemetryHandler) IngestActivity(c *gin.Context) {
	var req TelemetryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}
	ownerID, err := primitive.ObjectIDFromHex(req.UserID)
	if err != nil {
		abortWithError(c, http.StatusBadRequest, "Invalid user ID format.")
		return
	}
	activity := req.toActivity()
	activity.UserID = ownerID

	day, err := h.reconcileService.Hydrate(c.Request.Context(), ownerID, req.ActivityDate, activity)
	if err != nil {
		if errors.Is(err, service.ErrNoPlannedDay) {
			c.Status(http.StatusNoContent)
			return
		}
		respondWithServiceError(c, err, "Failed to reconcile activity.")
		return
	}
	c.JSON(http.StatusOK, MapTrainingDayToResponse(day, h.now()))
}
