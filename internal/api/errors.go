package api

import (
	"errors"
	"log/slog"
	"net/http"

	"alcyxob/runplan/internal/planner"
	"alcyxob/runplan/internal/service"

	"github.com/gin-gonic/gin"
)

// statusFor maps service and planner errors onto HTTP status codes. The
// second result is false for errors the client should not see verbatim.
func statusFor(err error) (int, bool) {
	switch {
	case errors.Is(err, service.ErrRaceNotFound),
		errors.Is(err, service.ErrPlanNotFound),
		errors.Is(err, service.ErrTrainingDayNotFound),
		errors.Is(err, service.ErrRawPayloadMissing):
		return http.StatusNotFound, true
	case errors.Is(err, service.ErrAccessDenied):
		return http.StatusForbidden, true
	case errors.Is(err, service.ErrPlanAlreadyGenerated),
		errors.Is(err, service.ErrDuplicateTrainingDay),
		errors.Is(err, service.ErrGenerationInProgress),
		errors.Is(err, service.ErrPlanNotActivatable),
		errors.Is(err, service.ErrConcurrentUpdate):
		return http.StatusConflict, true
	case errors.Is(err, planner.ErrInsufficientLeadTime),
		errors.Is(err, planner.ErrInvalidDateRange),
		errors.Is(err, service.ErrInvalidBaseline),
		errors.Is(err, service.ErrMissingOwner),
		errors.Is(err, service.ErrInvalidFeedback),
		errors.Is(err, service.ErrInvalidWeekIndex):
		return http.StatusBadRequest, true
	case errors.Is(err, service.ErrMalformedActivity):
		return http.StatusUnprocessableEntity, true
	case errors.Is(err, service.ErrDaysNotPublished):
		return http.StatusServiceUnavailable, true
	case errors.Is(err, service.ErrArchiveFailed),
		errors.Is(err, service.ErrDownloadURLError):
		return http.StatusBadGateway, false
	default:
		return http.StatusInternalServerError, false
	}
}

// respondWithServiceError aborts the request with the mapped status.
// Unexpected errors are logged and replaced by fallback.
func respondWithServiceError(c *gin.Context, err error, fallback string) {
	code, public := statusFor(err)
	if !public {
		slog.Error(fallback,
			slog.String("path", c.FullPath()),
			slog.Int("status", code),
			slog.Any("error", err))
		abortWithError(c, code, fallback)
		return
	}
	abortWithError(c, code, err.Error())
}
