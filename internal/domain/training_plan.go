// internal/domain/training_plan.go
package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// PlanStatus is the lifecycle state of a generated plan.
type PlanStatus string

const (
	PlanStatusDraft     PlanStatus = "draft"
	PlanStatusActive    PlanStatus = "active"
	PlanStatusCompleted PlanStatus = "completed"
	PlanStatusArchived  PlanStatus = "archived"
)

// PhaseSpan is the week range a phase covers (1-based, inclusive).
type PhaseSpan struct {
	Weeks     int `bson:"weeks" json:"weeks"`
	StartWeek int `bson:"startWeek" json:"startWeek"`
	EndWeek   int `bson:"endWeek" json:"endWeek"`
}

// WeekMileage is one entry of the per-week mileage plan.
type WeekMileage struct {
	WeekIndex     int     `bson:"weekIndex" json:"weekIndex"`
	Progression   float64 `bson:"progression" json:"progression"`     // raw progression value
	TargetMileage float64 `bson:"targetMileage" json:"targetMileage"` // what the week was distributed with
	Phase         string  `bson:"phase" json:"phase"`
}

// WeekSummary is the lightweight per-week view kept on the plan. The detailed
// days live in the training_days collection.
type WeekSummary struct {
	WeekIndex     int                  `bson:"weekIndex" json:"weekIndex"`
	StartDate     time.Time            `bson:"startDate" json:"startDate"`
	EndDate       time.Time            `bson:"endDate" json:"endDate"`
	Phase         string               `bson:"phase" json:"phase"`
	TargetMileage float64              `bson:"targetMileage" json:"targetMileage"`
	DayIDs        []primitive.ObjectID `bson:"dayIds" json:"dayIds"`
	WorkoutTypes  []WorkoutType        `bson:"workoutTypes" json:"workoutTypes"`
	KeyWorkouts   []string             `bson:"keyWorkouts" json:"keyWorkouts"`
}

// TrainingPlan is the master record of one race attempt.
type TrainingPlan struct {
	ID            primitive.ObjectID   `bson:"_id,omitempty" json:"id"`
	UserID        primitive.ObjectID   `bson:"userId" json:"userId"`
	RaceID        primitive.ObjectID   `bson:"raceId" json:"raceId"`
	StartDate     time.Time            `bson:"startDate" json:"startDate"`
	RaceDate      time.Time            `bson:"raceDate" json:"raceDate"`
	TotalWeeks    int                  `bson:"totalWeeks" json:"totalWeeks"`
	AthleteAge    int                  `bson:"athleteAge" json:"athleteAge"`
	PhaseOverview map[string]PhaseSpan `bson:"phaseOverview" json:"phaseOverview"`
	WeeklyMileage []WeekMileage        `bson:"weeklyMileagePlan" json:"weeklyMileagePlan"`
	Weeks         []WeekSummary        `bson:"weeks" json:"weeks"`
	Status        PlanStatus           `bson:"status" json:"status"`
	GeneratedAt   time.Time            `bson:"generatedAt" json:"generatedAt"`
	CreatedAt     time.Time            `bson:"createdAt" json:"createdAt"`
	UpdatedAt     time.Time            `bson:"updatedAt" json:"updatedAt"`
}
