package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"alcyxob/runplan/internal/domain"
	"alcyxob/runplan/internal/metrics"
	"alcyxob/runplan/internal/planner"
	"alcyxob/runplan/internal/repository"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// --- Error Definitions ---
var (
	ErrRaceNotFound         = errors.New("race not found")
	ErrPlanNotFound         = errors.New("training plan not found")
	ErrPlanAlreadyGenerated = errors.New("race already has a training plan")
	ErrDuplicateTrainingDay = errors.New("a training day already exists on one of the plan dates")
	ErrGenerationInProgress = errors.New("plan generation already in progress for this race")
	ErrPlanNotActivatable   = errors.New("plan can no longer be activated")
	ErrInvalidBaseline      = errors.New("race baseline 5k time is missing or invalid")
	ErrAccessDenied         = errors.New("access denied")
	ErrMissingOwner         = errors.New("owner reference is required")

	// ErrDaysNotPublished means the plan is linked to its race but its days
	// are still hidden. Activating the plan publishes them.
	ErrDaysNotPublished = errors.New("training plan saved but its days are not yet visible")
)

// PlanService generates, reads and activates training plans.
type PlanService interface {
	// GeneratePlan builds the schedule for a race and persists the plan and
	// its days. Either everything is written or nothing is.
	GeneratePlan(ctx context.Context, ownerID, raceID primitive.ObjectID, athleteAge int) (*domain.TrainingPlan, error)
	GetPlanForRace(ctx context.Context, ownerID, raceID primitive.ObjectID) (*domain.TrainingPlan, error)
	// ActivatePlan moves a draft plan to active. Activating an active plan is a no-op.
	ActivatePlan(ctx context.Context, ownerID, planID primitive.ObjectID) (*domain.TrainingPlan, error)
}

// PlanServiceConfig carries the generation policy.
type PlanServiceConfig struct {
	Distributor            *planner.Distributor
	DefaultAthleteAge      int
	DefaultBaselineMileage float64
	LockTTL                time.Duration
	Now                    func() time.Time
}

// planService implements the PlanService interface.
type planService struct {
	raceRepo repository.RaceRepository
	planRepo repository.TrainingPlanRepository
	dayRepo  repository.TrainingDayRepository
	lockRepo repository.PlanLockRepository
	cfg      PlanServiceConfig
	logger   *slog.Logger
	metrics  *metrics.Metrics
}

// NewPlanService creates a new instance of planService.
func NewPlanService(
	raceRepo repository.RaceRepository,
	planRepo repository.TrainingPlanRepository,
	dayRepo repository.TrainingDayRepository,
	lockRepo repository.PlanLockRepository,
	cfg PlanServiceConfig,
	logger *slog.Logger,
	m *metrics.Metrics,
) PlanService {
	if cfg.Distributor == nil {
		cfg.Distributor = planner.DefaultDistributor()
	}
	if cfg.DefaultAthleteAge <= 0 {
		cfg.DefaultAthleteAge = planner.DefaultAthleteAge
	}
	if cfg.LockTTL <= 0 {
		cfg.LockTTL = 2 * time.Minute
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &planService{
		raceRepo: raceRepo,
		planRepo: planRepo,
		dayRepo:  dayRepo,
		lockRepo: lockRepo,
		cfg:      cfg,
		logger:   logger,
		metrics:  m,
	}
}

// GeneratePlan creates the plan and all its days for a race.
func (s *planService) GeneratePlan(ctx context.Context, ownerID, raceID primitive.ObjectID, athleteAge int) (plan *domain.TrainingPlan, err error) {
	started := time.Now()
	days := 0
	defer func() {
		s.metrics.ObserveGeneration(generationResult(err), time.Since(started), days)
	}()

	// 1. Load and authorize the race
	race, err := s.loadOwnedRace(ctx, ownerID, raceID)
	if err != nil {
		return nil, err
	}
	if race.HasPlan() {
		return nil, ErrPlanAlreadyGenerated
	}

	// 2. Build the schedule in memory; nothing is written if this fails
	if athleteAge <= 0 {
		athleteAge = s.cfg.DefaultAthleteAge
	}
	athlete, err := planner.NewAthlete(race.Baseline5K, race.GoalTime, race.DistanceMiles, athleteAge)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidBaseline, err)
	}
	baseMileage := race.BaselineWeeklyMileage
	if baseMileage <= 0 {
		baseMileage = s.cfg.DefaultBaselineMileage
	}
	now := s.cfg.Now().UTC()
	schedule, err := s.cfg.Distributor.BuildSchedule(planner.ScheduleInput{
		Start:             now,
		RaceDate:          race.RaceDate,
		BaseWeeklyMileage: baseMileage,
		Athlete:           athlete,
	})
	if err != nil {
		return nil, err
	}

	// 3. One generation per race at a time
	lockKey := "plan:" + raceID.Hex()
	lockOwner := uuid.NewString()
	if err = s.lockRepo.Acquire(ctx, lockKey, lockOwner, s.cfg.LockTTL); err != nil {
		if errors.Is(err, repository.ErrLockHeld) {
			return nil, ErrGenerationInProgress
		}
		return nil, err
	}
	defer func() {
		if rerr := s.lockRepo.Release(context.WithoutCancel(ctx), lockKey, lockOwner); rerr != nil {
			s.logger.Warn("failed to release plan lock", slog.String("raceId", raceID.Hex()), slog.Any("error", rerr))
		}
	}()

	// Another generation may have finished between the first read and the lock.
	if race, err = s.loadOwnedRace(ctx, ownerID, raceID); err != nil {
		return nil, err
	}
	if race.HasPlan() {
		return nil, ErrPlanAlreadyGenerated
	}

	// 4. Materialize and persist: days, then plan, then the race link.
	// Days stay pending until the link commits the generation.
	plan, trainingDays := materialize(schedule, race, athleteAge, now)

	if err = s.dayRepo.CreateMany(ctx, trainingDays); err != nil {
		s.rollback(ctx, plan.ID, false)
		if errors.Is(err, repository.ErrDuplicateKey) {
			return nil, ErrDuplicateTrainingDay
		}
		return nil, fmt.Errorf("insert training days: %w", err)
	}
	if _, err = s.planRepo.Create(ctx, plan); err != nil {
		s.rollback(ctx, plan.ID, false)
		if errors.Is(err, repository.ErrDuplicateKey) {
			return nil, ErrPlanAlreadyGenerated
		}
		return nil, fmt.Errorf("insert training plan: %w", err)
	}
	if err = s.raceRepo.LinkPlan(ctx, raceID, plan.ID, domain.RaceStatusTraining); err != nil {
		s.rollback(ctx, plan.ID, true)
		if errors.Is(err, repository.ErrUpdateFailed) {
			return nil, ErrPlanAlreadyGenerated
		}
		return nil, fmt.Errorf("link plan to race: %w", err)
	}

	// 5. Publish the days
	if _, err = s.dayRepo.PublishByPlanID(ctx, plan.ID); err != nil {
		s.logger.Error("failed to publish training days",
			slog.String("planId", plan.ID.Hex()),
			slog.Any("error", err))
		return nil, ErrDaysNotPublished
	}

	days = len(trainingDays)
	s.logger.Info("training plan generated",
		slog.String("raceId", raceID.Hex()),
		slog.String("planId", plan.ID.Hex()),
		slog.Int("weeks", plan.TotalWeeks),
		slog.Int("days", days))
	return plan, nil
}

// rollback removes what a failed generation wrote. It runs even when the
// request context is already cancelled.
func (s *planService) rollback(ctx context.Context, planID primitive.ObjectID, deletePlan bool) {
	ctx = context.WithoutCancel(ctx)
	if deletePlan {
		if err := s.planRepo.Delete(ctx, planID); err != nil && !errors.Is(err, repository.ErrNotFound) {
			s.logger.Error("rollback: failed to delete plan", slog.String("planId", planID.Hex()), slog.Any("error", err))
		}
	}
	n, err := s.dayRepo.DeleteByPlanID(ctx, planID)
	if err != nil {
		s.logger.Error("rollback: failed to delete training days", slog.String("planId", planID.Hex()), slog.Any("error", err))
		return
	}
	s.logger.Warn("plan generation rolled back", slog.String("planId", planID.Hex()), slog.Int64("deletedDays", n))
}

func (s *planService) loadOwnedRace(ctx context.Context, ownerID, raceID primitive.ObjectID) (*domain.Race, error) {
	race, err := s.raceRepo.GetByID(ctx, raceID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrRaceNotFound
		}
		return nil, err
	}
	if race.UserID == primitive.NilObjectID {
		return nil, ErrMissingOwner
	}
	if race.UserID != ownerID {
		return nil, ErrAccessDenied
	}
	return race, nil
}

// materialize turns a schedule into the plan document and its day records.
// IDs are allocated here so the plan can list its days before either is written.
func materialize(s *planner.Schedule, race *domain.Race, athleteAge int, now time.Time) (*domain.TrainingPlan, []domain.TrainingDay) {
	plan := &domain.TrainingPlan{
		ID:            primitive.NewObjectID(),
		UserID:        race.UserID,
		RaceID:        race.ID,
		StartDate:     s.Start,
		RaceDate:      s.RaceDate,
		TotalWeeks:    s.TotalWeeks,
		AthleteAge:    athleteAge,
		PhaseOverview: planner.PhaseOverview(s.Phases),
		WeeklyMileage: make([]domain.WeekMileage, 0, len(s.Weeks)),
		Weeks:         make([]domain.WeekSummary, 0, len(s.Weeks)),
		Status:        domain.PlanStatusDraft,
		GeneratedAt:   now,
	}

	days := make([]domain.TrainingDay, 0, len(s.Weeks)*7)
	for _, w := range s.Weeks {
		summary := domain.WeekSummary{
			WeekIndex:     w.WeekIndex,
			StartDate:     w.StartDate(),
			EndDate:       w.EndDate(),
			Phase:         string(w.Phase),
			TargetMileage: w.TargetMileage,
			DayIDs:        make([]primitive.ObjectID, 0, len(w.Days)),
			WorkoutTypes:  w.WorkoutTypes(),
			KeyWorkouts:   w.KeyWorkouts(),
		}
		for _, d := range w.Days {
			day := domain.TrainingDay{
				ID:             primitive.NewObjectID(),
				UserID:         race.UserID,
				RaceID:         race.ID,
				TrainingPlanID: plan.ID,
				Date:           d.Date,
				WeekIndex:      d.WeekIndex,
				DayIndex:       d.DayIndex,
				DayName:        d.DayName,
				Phase:          string(d.Phase),
				Planned:        d.Workout,
				Pending:        true,
			}
			summary.DayIDs = append(summary.DayIDs, day.ID)
			days = append(days, day)
		}
		plan.Weeks = append(plan.Weeks, summary)
		plan.WeeklyMileage = append(plan.WeeklyMileage, domain.WeekMileage{
			WeekIndex:     w.WeekIndex,
			Progression:   w.Progression,
			TargetMileage: w.TargetMileage,
			Phase:         string(w.Phase),
		})
	}
	return plan, days
}

func generationResult(err error) string {
	switch {
	case err == nil:
		return metrics.ResultSuccess
	case errors.Is(err, planner.ErrInsufficientLeadTime), errors.Is(err, planner.ErrInvalidDateRange),
		errors.Is(err, ErrInvalidBaseline), errors.Is(err, ErrAccessDenied), errors.Is(err, ErrMissingOwner):
		return metrics.ResultRejected
	case errors.Is(err, ErrPlanAlreadyGenerated), errors.Is(err, ErrDuplicateTrainingDay), errors.Is(err, ErrGenerationInProgress):
		return metrics.ResultConflict
	case errors.Is(err, ErrRaceNotFound):
		return metrics.ResultNotFound
	default:
		return metrics.ResultError
	}
}

// GetPlanForRace returns the plan generated for a race.
func (s *planService) GetPlanForRace(ctx context.Context, ownerID, raceID primitive.ObjectID) (*domain.TrainingPlan, error) {
	plan, err := s.planRepo.GetByRaceID(ctx, raceID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrPlanNotFound
		}
		return nil, err
	}
	if plan.UserID != ownerID {
		return nil, ErrAccessDenied
	}
	return plan, nil
}

// ActivatePlan promotes a draft plan. Days left pending by an interrupted
// publish are made visible; their content is never touched.
func (s *planService) ActivatePlan(ctx context.Context, ownerID, planID primitive.ObjectID) (plan *domain.TrainingPlan, err error) {
	defer func() {
		result := metrics.ResultSuccess
		if err != nil {
			result = metrics.ResultError
		}
		s.metrics.ObserveActivation(result)
	}()

	plan, err = s.planRepo.GetByID(ctx, planID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrPlanNotFound
		}
		return nil, err
	}
	if plan.UserID != ownerID {
		return nil, ErrAccessDenied
	}

	switch plan.Status {
	case domain.PlanStatusActive, domain.PlanStatusDraft:
	default:
		return nil, fmt.Errorf("%w: status is %s", ErrPlanNotActivatable, plan.Status)
	}

	// A plan its race does not point at belongs to an unfinished generation.
	race, err := s.raceRepo.GetByID(ctx, plan.RaceID)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}
	if race == nil || race.TrainingPlanID == nil || *race.TrainingPlanID != plan.ID {
		return nil, fmt.Errorf("%w: generation has not finished", ErrPlanNotActivatable)
	}
	published, err := s.dayRepo.PublishByPlanID(ctx, planID)
	if err != nil {
		return nil, err
	}
	if published > 0 {
		s.logger.Info("published pending training days", slog.String("planId", planID.Hex()), slog.Int64("days", published))
	}

	if plan.Status == domain.PlanStatusActive {
		return plan, nil
	}

	if err = s.planRepo.UpdateStatus(ctx, planID, domain.PlanStatusActive); err != nil {
		return nil, err
	}
	if err = s.raceRepo.UpdateStatus(ctx, plan.RaceID, domain.RaceStatusTraining); err != nil && !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}
	plan.Status = domain.PlanStatusActive
	s.logger.Info("training plan activated", slog.String("planId", planID.Hex()))
	return plan, nil
}
