package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"reflect"
	"time"

	"alcyxob/runplan/internal/analysis"
	"alcyxob/runplan/internal/domain"
	"alcyxob/runplan/internal/metrics"
	"alcyxob/runplan/internal/pace"
	"alcyxob/runplan/internal/repository"
	"alcyxob/runplan/internal/storage"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

var (
	// ErrNoPlannedDay means telemetry arrived for a date outside any plan.
	// Callers should treat it as an empty result, not a failure.
	ErrNoPlannedDay      = errors.New("no training day planned for that date")
	ErrMalformedActivity = errors.New("malformed activity record")
	ErrArchiveFailed     = errors.New("failed to archive raw activity payload")
)

// ReconcileService merges external activity telemetry into planned days.
type ReconcileService interface {
	// Hydrate writes the actual block of the owner's day on activityDate and
	// recomputes its analysis. Re-running it with the same record leaves the
	// day unchanged.
	Hydrate(ctx context.Context, ownerID primitive.ObjectID, activityDate time.Time, activity domain.ExternalActivity) (*domain.TrainingDay, error)
}

type reconcileService struct {
	dayRepo repository.TrainingDayRepository
	archive storage.FileStorage // nil disables raw payload archiving
	logger  *slog.Logger
	metrics *metrics.Metrics
	now     func() time.Time
}

// NewReconcileService creates a new instance of reconcileService. archive may be nil.
func NewReconcileService(dayRepo repository.TrainingDayRepository, archive storage.FileStorage, logger *slog.Logger, m *metrics.Metrics, now func() time.Time) ReconcileService {
	if logger == nil {
		logger = slog.Default()
	}
	if now == nil {
		now = time.Now
	}
	return &reconcileService{dayRepo: dayRepo, archive: archive, logger: logger, metrics: m, now: now}
}

func (s *reconcileService) Hydrate(ctx context.Context, ownerID primitive.ObjectID, activityDate time.Time, activity domain.ExternalActivity) (day *domain.TrainingDay, err error) {
	defer func() {
		var score *int
		if day != nil && err == nil {
			score = day.Analysis.QualityScore
		}
		s.metrics.ObserveHydration(hydrationResult(err), score)
	}()

	// 1. Validate before touching anything
	if ownerID == primitive.NilObjectID {
		return nil, ErrMissingOwner
	}
	if activityDate.IsZero() {
		activityDate = activity.ActivityDate
	}
	if err = validateActivity(activity); err != nil {
		s.logger.Warn("skipping malformed activity",
			slog.String("userId", ownerID.Hex()),
			slog.String("activityId", activity.ProviderActivityID),
			slog.Any("error", err))
		return nil, err
	}

	// 2. Find the planned day
	day, err = s.dayRepo.GetByUserAndDate(ctx, ownerID, activityDate)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNoPlannedDay
		}
		return nil, err
	}

	// 3. Build the new actual block
	actual := actualFromActivity(activity, activityDate)
	if sameObservation(day.Actual, actual) {
		actual.SyncedAt = day.Actual.SyncedAt
	} else {
		synced := s.now().UTC().Truncate(time.Millisecond)
		actual.SyncedAt = &synced
	}

	// 4. Archive the raw payload under a deterministic key
	previousKey := day.Actual.RawPayloadKey
	if s.archive != nil && len(activity.Raw) > 0 {
		key := storage.TelemetryKey(ownerID.Hex(), activityDate, activity.ProviderActivityID, activity.Raw)
		if err = s.archive.PutObject(ctx, key, "application/json", activity.Raw); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrArchiveFailed, err)
		}
		actual.RawPayloadKey = key
	} else if sameObservation(day.Actual, actual) {
		actual.RawPayloadKey = previousKey
	}

	// 5. Analysis; rest days and incomplete days keep their existing block
	result, analysed := analysis.Compute(day.Planned, actual, day.Feedback)
	var analysisUpdate *domain.Analysis
	if analysed {
		analysisUpdate = &result
	}

	// Re-delivery of what is already stored is a no-op.
	if sameObservation(day.Actual, actual) && actual.RawPayloadKey == previousKey &&
		(!analysed || reflect.DeepEqual(day.Analysis, result)) {
		return day, nil
	}

	// 6. Single atomic write of actual (+ analysis), guarded by the version read in step 2
	// The archived key is deterministic, so a losing writer leaves it in
	// place: the winner may reference the same object.
	if err = s.dayRepo.UpdateActual(ctx, day.ID, day.Version, actual, analysisUpdate); err != nil {
		return nil, dayWriteError(err)
	}
	day.Version++
	day.Actual = actual
	if analysed {
		day.Analysis = result
	}

	if previousKey != "" && previousKey != actual.RawPayloadKey && s.archive != nil {
		if derr := s.archive.DeleteObject(context.WithoutCancel(ctx), previousKey); derr != nil {
			s.logger.Warn("failed to delete superseded payload", slog.String("key", previousKey), slog.Any("error", derr))
		}
	}

	s.logger.Info("activity reconciled",
		slog.String("userId", ownerID.Hex()),
		slog.String("dayId", day.ID.Hex()),
		slog.String("date", day.Date.Format("2006-01-02")),
		slog.Bool("analysed", analysed))
	return day, nil
}

func validateActivity(a domain.ExternalActivity) error {
	switch {
	case a.Mileage == nil:
		return fmt.Errorf("%w: activity %q has no distance", ErrMalformedActivity, a.ProviderActivityID)
	case *a.Mileage < 0:
		return fmt.Errorf("%w: activity %q has negative distance", ErrMalformedActivity, a.ProviderActivityID)
	case a.Duration == nil:
		return fmt.Errorf("%w: activity %q has no duration", ErrMalformedActivity, a.ProviderActivityID)
	case *a.Duration <= 0:
		return fmt.Errorf("%w: activity %q has non-positive duration", ErrMalformedActivity, a.ProviderActivityID)
	}
	return nil
}

// actualFromActivity maps the record onto an actual block. SyncedAt and
// RawPayloadKey are left to the caller.
func actualFromActivity(a domain.ExternalActivity, activityDate time.Time) domain.ActualWorkout {
	if !a.ActivityDate.IsZero() {
		activityDate = a.ActivityDate
	}
	completedAt := activityDate.UTC().Truncate(time.Millisecond)
	actual := domain.ActualWorkout{
		Completed:          true,
		Mileage:            *a.Mileage,
		Duration:           *a.Duration,
		AvgHR:              a.AvgHR,
		MaxHR:              a.MaxHR,
		HRZoneDistribution: a.HRZoneDistribution,
		Cadence:            a.Cadence,
		ElevationGain:      a.ElevationGain,
		Calories:           a.Calories,
		ActivityID:         a.ProviderActivityID,
		CompletedAt:        &completedAt,
	}
	if _, err := pace.ParseSeconds(a.Pace); err == nil {
		actual.Pace = a.Pace
	} else if secs, ok := pace.FromDuration(*a.Duration, *a.Mileage); ok {
		actual.Pace = pace.Format(secs)
	}
	return actual
}

// sameObservation reports whether two actual blocks describe the same
// activity, ignoring sync bookkeeping.
func sameObservation(prev, next domain.ActualWorkout) bool {
	if !prev.Completed || prev.ActivityID != next.ActivityID {
		return false
	}
	if prev.Mileage != next.Mileage || prev.Duration != next.Duration || prev.Pace != next.Pace ||
		prev.AvgHR != next.AvgHR || prev.MaxHR != next.MaxHR || prev.Cadence != next.Cadence ||
		prev.ElevationGain != next.ElevationGain || prev.Calories != next.Calories {
		return false
	}
	if (prev.HRZoneDistribution == nil) != (next.HRZoneDistribution == nil) ||
		(prev.HRZoneDistribution != nil && *prev.HRZoneDistribution != *next.HRZoneDistribution) {
		return false
	}
	if (prev.CompletedAt == nil) != (next.CompletedAt == nil) ||
		(prev.CompletedAt != nil && !prev.CompletedAt.Equal(*next.CompletedAt)) {
		return false
	}
	return true
}

func hydrationResult(err error) string {
	switch {
	case err == nil:
		return metrics.ResultSuccess
	case errors.Is(err, ErrNoPlannedDay):
		return metrics.ResultNotFound
	case errors.Is(err, ErrMalformedActivity), errors.Is(err, ErrMissingOwner):
		return metrics.ResultRejected
	case errors.Is(err, ErrConcurrentUpdate):
		return metrics.ResultConflict
	default:
		return metrics.ResultError
	}
}
