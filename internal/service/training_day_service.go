package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"alcyxob/runplan/internal/analysis"
	"alcyxob/runplan/internal/domain"
	"alcyxob/runplan/internal/metrics"
	"alcyxob/runplan/internal/repository"
	"alcyxob/runplan/internal/storage"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

var (
	ErrTrainingDayNotFound = errors.New("training day not found")
	ErrInvalidFeedback     = errors.New("invalid feedback")
	ErrInvalidWeekIndex    = errors.New("week index is outside the plan")
	ErrRawPayloadMissing   = errors.New("no raw activity payload archived for this day")
	ErrDownloadURLError    = errors.New("failed to generate download URL")
	// ErrConcurrentUpdate means another write landed on the day between our
	// read and our update. Nothing was written; the caller may retry.
	ErrConcurrentUpdate = errors.New("training day was modified concurrently")
)

// FeedbackInput is a partial feedback update; nil fields keep their value.
type FeedbackInput struct {
	Mood       *string
	Effort     *int
	InjuryFlag *bool
	Notes      *string
}

// TrainingDayService serves the read accessors over an owner's plan days
// and takes feedback submissions.
type TrainingDayService interface {
	GetDay(ctx context.Context, ownerID, dayID primitive.ObjectID) (*domain.TrainingDay, error)
	GetDayByDate(ctx context.Context, ownerID primitive.ObjectID, date time.Time) (*domain.TrainingDay, error)
	GetTodayWorkout(ctx context.Context, ownerID primitive.ObjectID) (*domain.TrainingDay, error)
	GetWeekDays(ctx context.Context, ownerID primitive.ObjectID, weekIndex int) ([]domain.TrainingDay, error)
	GetWeeklySummary(ctx context.Context, ownerID primitive.ObjectID, weekIndex int) (*domain.WeeklySummary, error)
	GetTrainingProgress(ctx context.Context, ownerID primitive.ObjectID) (*domain.TrainingProgress, error)
	// SubmitFeedback merges the input into the day's feedback and recomputes
	// the analysis, since an injury report changes the quality score.
	SubmitFeedback(ctx context.Context, ownerID, dayID primitive.ObjectID, input FeedbackInput) (*domain.TrainingDay, error)
	GetRawActivityURL(ctx context.Context, ownerID, dayID primitive.ObjectID) (string, error)
}

type trainingDayService struct {
	planRepo repository.TrainingPlanRepository
	dayRepo  repository.TrainingDayRepository
	archive  storage.FileStorage
	logger   *slog.Logger
	metrics  *metrics.Metrics
	now      func() time.Time
}

// NewTrainingDayService creates a new instance of trainingDayService. archive may be nil.
func NewTrainingDayService(
	planRepo repository.TrainingPlanRepository,
	dayRepo repository.TrainingDayRepository,
	archive storage.FileStorage,
	logger *slog.Logger,
	m *metrics.Metrics,
	now func() time.Time,
) TrainingDayService {
	if logger == nil {
		logger = slog.Default()
	}
	if now == nil {
		now = time.Now
	}
	return &trainingDayService{planRepo: planRepo, dayRepo: dayRepo, archive: archive, logger: logger, metrics: m, now: now}
}

// GetDay returns a day the owner has access to.
func (s *trainingDayService) GetDay(ctx context.Context, ownerID, dayID primitive.ObjectID) (*domain.TrainingDay, error) {
	day, err := s.dayRepo.GetByID(ctx, dayID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrTrainingDayNotFound
		}
		return nil, err
	}
	if day.UserID != ownerID {
		return nil, ErrAccessDenied
	}
	return day, nil
}

// GetDayByDate returns the owner's day on a calendar date.
func (s *trainingDayService) GetDayByDate(ctx context.Context, ownerID primitive.ObjectID, date time.Time) (*domain.TrainingDay, error) {
	day, err := s.dayRepo.GetByUserAndDate(ctx, ownerID, date)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrTrainingDayNotFound
		}
		return nil, err
	}
	return day, nil
}

func (s *trainingDayService) GetTodayWorkout(ctx context.Context, ownerID primitive.ObjectID) (*domain.TrainingDay, error) {
	return s.GetDayByDate(ctx, ownerID, s.now())
}

// currentPlan resolves the plan week accessors read from.
func (s *trainingDayService) currentPlan(ctx context.Context, ownerID primitive.ObjectID) (*domain.TrainingPlan, error) {
	plan, err := s.planRepo.GetLatestForUser(ctx, ownerID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrPlanNotFound
		}
		return nil, err
	}
	return plan, nil
}

func (s *trainingDayService) GetWeekDays(ctx context.Context, ownerID primitive.ObjectID, weekIndex int) ([]domain.TrainingDay, error) {
	plan, err := s.currentPlan(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	if weekIndex < 0 || weekIndex >= plan.TotalWeeks {
		return nil, fmt.Errorf("%w: %d (plan has %d weeks)", ErrInvalidWeekIndex, weekIndex, plan.TotalWeeks)
	}
	return s.dayRepo.GetByPlanAndWeek(ctx, plan.ID, weekIndex)
}

// GetWeeklySummary aggregates one week of the owner's current plan.
func (s *trainingDayService) GetWeeklySummary(ctx context.Context, ownerID primitive.ObjectID, weekIndex int) (*domain.WeeklySummary, error) {
	plan, err := s.currentPlan(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	if weekIndex < 0 || weekIndex >= plan.TotalWeeks {
		return nil, fmt.Errorf("%w: %d (plan has %d weeks)", ErrInvalidWeekIndex, weekIndex, plan.TotalWeeks)
	}
	days, err := s.dayRepo.GetByPlanAndWeek(ctx, plan.ID, weekIndex)
	if err != nil {
		return nil, err
	}

	summary := &domain.WeeklySummary{
		PlanID:    plan.ID.Hex(),
		WeekIndex: weekIndex,
		Days:      make([]domain.DaySummary, 0, len(days)),
	}
	if weekIndex < len(plan.Weeks) {
		w := plan.Weeks[weekIndex]
		summary.Phase = w.Phase
		summary.StartDate = w.StartDate
		summary.EndDate = w.EndDate
		summary.KeyWorkouts = w.KeyWorkouts
	}

	now := s.now()
	hrTotal, hrCount := 0, 0
	for i := range days {
		d := &days[i]
		status := domain.StatusAt(d, now)
		summary.Days = append(summary.Days, domain.DaySummary{
			DayID:          d.ID.Hex(),
			Date:           d.Date,
			DayName:        d.DayName,
			Type:           d.Planned.Type,
			Label:          d.Planned.Label,
			PlannedMileage: d.Planned.Mileage,
			ActualMileage:  d.Actual.Mileage,
			Status:         status,
			QualityScore:   d.Analysis.QualityScore,
		})
		summary.PlannedMileage += d.Planned.Mileage
		if d.Actual.Completed {
			summary.ActualMileage += d.Actual.Mileage
			if d.Actual.AvgHR > 0 {
				hrTotal += d.Actual.AvgHR
				hrCount++
			}
		}
		if d.Planned.Type == domain.WorkoutRest {
			continue
		}
		summary.TotalWorkouts++
		if status == domain.DayStatusCompleted {
			summary.CompletedWorkouts++
		}
	}
	if summary.StartDate.IsZero() && len(days) > 0 {
		summary.Phase = days[0].Phase
		summary.StartDate = days[0].Date
		summary.EndDate = days[len(days)-1].Date
	}
	summary.CompletionRate = percent(summary.CompletedWorkouts, summary.TotalWorkouts)
	summary.ActualMileage = round1(summary.ActualMileage)
	if hrCount > 0 {
		summary.AvgHR = int(math.Round(float64(hrTotal) / float64(hrCount)))
	}
	return summary, nil
}

// GetTrainingProgress reports completion over the owner's current plan.
func (s *trainingDayService) GetTrainingProgress(ctx context.Context, ownerID primitive.ObjectID) (*domain.TrainingProgress, error) {
	plan, err := s.currentPlan(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	progress, err := s.dayRepo.Progress(ctx, plan.ID)
	if err != nil {
		return nil, err
	}
	progress.PlanID = plan.ID.Hex()
	progress.CompletionRate = percent(progress.CompletedDays, progress.TotalDays)
	progress.ActualMileage = round1(progress.ActualMileage)
	return progress, nil
}

// SubmitFeedback merges feedback into a day.
func (s *trainingDayService) SubmitFeedback(ctx context.Context, ownerID, dayID primitive.ObjectID, input FeedbackInput) (day *domain.TrainingDay, err error) {
	defer func() {
		result := metrics.ResultSuccess
		switch {
		case err == nil:
		case errors.Is(err, ErrInvalidFeedback):
			result = metrics.ResultRejected
		case errors.Is(err, ErrConcurrentUpdate):
			result = metrics.ResultConflict
		default:
			result = metrics.ResultError
		}
		s.metrics.ObserveFeedback(result)
	}()

	// 1. Validate input
	if input.Effort != nil && (*input.Effort < 1 || *input.Effort > 10) {
		return nil, fmt.Errorf("%w: effort must be between 1 and 10", ErrInvalidFeedback)
	}

	// 2. Load the day and check ownership
	day, err = s.GetDay(ctx, ownerID, dayID)
	if err != nil {
		return nil, err
	}

	// 3. Merge
	fb := day.Feedback
	if input.Mood != nil {
		fb.Mood = *input.Mood
	}
	if input.Effort != nil {
		fb.Effort = *input.Effort
	}
	if input.InjuryFlag != nil {
		fb.InjuryFlag = *input.InjuryFlag
	}
	if input.Notes != nil {
		fb.Notes = *input.Notes
	}
	submitted := s.now().UTC().Truncate(time.Millisecond)
	fb.SubmittedAt = &submitted

	// 4. Recompute analysis with the new feedback and persist both together
	result, analysed := analysis.Compute(day.Planned, day.Actual, fb)
	var analysisUpdate *domain.Analysis
	if analysed {
		analysisUpdate = &result
	}
	if err = s.dayRepo.UpdateFeedback(ctx, day.ID, day.Version, fb, analysisUpdate); err != nil {
		return nil, dayWriteError(err)
	}
	day.Version++
	day.Feedback = fb
	if analysed {
		day.Analysis = result
	}

	s.logger.Info("feedback submitted",
		slog.String("dayId", day.ID.Hex()),
		slog.Bool("injury", fb.InjuryFlag),
		slog.Bool("analysed", analysed))
	return day, nil
}

// GetRawActivityURL returns a short-lived download URL for the archived
// provider payload of a day.
func (s *trainingDayService) GetRawActivityURL(ctx context.Context, ownerID, dayID primitive.ObjectID) (string, error) {
	day, err := s.GetDay(ctx, ownerID, dayID)
	if err != nil {
		return "", err
	}
	if s.archive == nil || day.Actual.RawPayloadKey == "" {
		return "", ErrRawPayloadMissing
	}
	url, err := s.archive.GeneratePresignedDownloadURL(ctx, day.Actual.RawPayloadKey, storage.DefaultPresignedURLExpiry)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrDownloadURLError, err)
	}
	return url, nil
}

// dayWriteError translates a lost version race into ErrConcurrentUpdate.
func dayWriteError(err error) error {
	switch {
	case errors.Is(err, repository.ErrVersionConflict):
		return ErrConcurrentUpdate
	case errors.Is(err, repository.ErrNotFound):
		return ErrTrainingDayNotFound
	default:
		return err
	}
}

func percent(part, total int) float64 {
	if total == 0 {
		return 0
	}
	return math.Round(float64(part)/float64(total)*1000) / 10
}

func round1(x float64) float64 {
	return math.Round(x*10) / 10
}
