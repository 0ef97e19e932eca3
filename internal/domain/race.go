// internal/domain/race.go
package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// RaceStatus tracks where a race attempt is in its lifecycle.
type RaceStatus string

const (
	RaceStatusPlanning  RaceStatus = "planning"
	RaceStatusTraining  RaceStatus = "training"
	RaceStatusTaper     RaceStatus = "taper"
	RaceStatusRaceWeek  RaceStatus = "race_week"
	RaceStatusCompleted RaceStatus = "completed"
)

// Race is the goal a training plan is generated for. It is created by the
// intake flow; the engine only links the generated plan and moves the status.
type Race struct {
	ID                    primitive.ObjectID  `bson:"_id,omitempty" json:"id"`
	UserID                primitive.ObjectID  `bson:"userId" json:"userId"`
	Name                  string              `bson:"raceName" json:"raceName"`
	RaceType              string              `bson:"raceType,omitempty" json:"raceType,omitempty"` // "5k", "half", "marathon", ...
	RaceDate              time.Time           `bson:"raceDate" json:"raceDate"`
	GoalTime              string              `bson:"goalTime" json:"goalTime"`     // "1:45:00"
	Baseline5K            string              `bson:"baseline5k" json:"baseline5k"` // 5K finish time, "24:30"
	BaselineWeeklyMileage float64             `bson:"baselineWeeklyMileage,omitempty" json:"baselineWeeklyMileage,omitempty"`
	DistanceMiles         float64             `bson:"distanceMiles,omitempty" json:"distanceMiles,omitempty"`
	Status                RaceStatus          `bson:"status" json:"status"`
	TrainingPlanID        *primitive.ObjectID `bson:"trainingPlanId,omitempty" json:"trainingPlanId,omitempty"`
	CreatedAt             time.Time           `bson:"createdAt" json:"createdAt"`
	UpdatedAt             time.Time           `bson:"updatedAt" json:"updatedAt"`
}

// HasPlan reports whether a plan has already been linked to the race.
func (r *Race) HasPlan() bool {
	return r.TrainingPlanID != nil && *r.TrainingPlanID != primitive.NilObjectID
}
