package repository

import (
	"context"
	"time"

	"alcyxob/runplan/internal/domain"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Error constants for the repository layer
var (
	ErrNotFound     = RepositoryError("not found")
	ErrUpdateFailed = RepositoryError("update failed")
	ErrDeleteFailed = RepositoryError("delete failed")
	ErrDuplicateKey = RepositoryError("duplicate key")
	ErrLockHeld     = RepositoryError("lock held by another owner")
	// ErrVersionConflict means the document changed since it was read.
	ErrVersionConflict = RepositoryError("version conflict")
)

// RepositoryError helps distinguish repository errors
type RepositoryError string

func (e RepositoryError) Error() string {
	return string(e)
}

// RaceRepository reads races created by the intake flow and records the plan
// link. Races are never created here.
type RaceRepository interface {
	GetByID(ctx context.Context, id primitive.ObjectID) (*domain.Race, error)
	// LinkPlan sets trainingPlanId and status, but only while the race has no
	// plan linked yet. ErrUpdateFailed when it already has one.
	LinkPlan(ctx context.Context, raceID, planID primitive.ObjectID, status domain.RaceStatus) error
	UpdateStatus(ctx context.Context, raceID primitive.ObjectID, status domain.RaceStatus) error
}

// TrainingPlanRepository defines the interface for interacting with training plan data.
type TrainingPlanRepository interface {
	// Create keeps a pre-allocated plan.ID when set.
	Create(ctx context.Context, plan *domain.TrainingPlan) (primitive.ObjectID, error)
	GetByID(ctx context.Context, id primitive.ObjectID) (*domain.TrainingPlan, error)
	GetByRaceID(ctx context.Context, raceID primitive.ObjectID) (*domain.TrainingPlan, error)
	// GetLatestForUser prefers the newest active plan, then the newest plan of any status.
	GetLatestForUser(ctx context.Context, userID primitive.ObjectID) (*domain.TrainingPlan, error)
	UpdateStatus(ctx context.Context, id primitive.ObjectID, status domain.PlanStatus) error
	Delete(ctx context.Context, id primitive.ObjectID) error
}

// TrainingDayRepository stores the per-day units of a plan. (userId, date)
// is unique.
type TrainingDayRepository interface {
	// CreateMany inserts all days in order. A (userId, date) collision
	// returns ErrDuplicateKey; days inserted before the collision stay and
	// are the caller's to clean up.
	CreateMany(ctx context.Context, days []domain.TrainingDay) error
	DeleteByPlanID(ctx context.Context, planID primitive.ObjectID) (int64, error)
	// PublishByPlanID clears Pending on every day of a plan. Reads never
	// return pending days. Publishing twice is harmless.
	PublishByPlanID(ctx context.Context, planID primitive.ObjectID) (int64, error)
	GetByID(ctx context.Context, id primitive.ObjectID) (*domain.TrainingDay, error)
	GetByUserAndDate(ctx context.Context, userID primitive.ObjectID, date time.Time) (*domain.TrainingDay, error)
	GetByPlanAndWeek(ctx context.Context, planID primitive.ObjectID, weekIndex int) ([]domain.TrainingDay, error)
	// UpdateActual writes the actual block, and the analysis block when
	// non-nil, in a single update. It applies only while the stored version
	// equals version and bumps it; otherwise ErrVersionConflict.
	UpdateActual(ctx context.Context, id primitive.ObjectID, version int64, actual domain.ActualWorkout, analysis *domain.Analysis) error
	// UpdateFeedback has the same version check as UpdateActual.
	UpdateFeedback(ctx context.Context, id primitive.ObjectID, version int64, feedback domain.Feedback, analysis *domain.Analysis) error
	// Progress aggregates the non-rest days of a plan.
	Progress(ctx context.Context, planID primitive.ObjectID) (*domain.TrainingProgress, error)
}

// PlanLockRepository is an advisory, expiring lock keyed by an arbitrary
// string. Holders identify themselves with an owner token.
type PlanLockRepository interface {
	Acquire(ctx context.Context, key, owner string, ttl time.Duration) error
	Release(ctx context.Context, key, owner string) error
}
