// internal/domain/training_day.go
package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// WorkoutType is the intent of a planned day.
type WorkoutType string

const (
	WorkoutRest       WorkoutType = "rest"
	WorkoutEasy       WorkoutType = "easy"
	WorkoutTempo      WorkoutType = "tempo"
	WorkoutIntervals  WorkoutType = "intervals"
	WorkoutLongRun    WorkoutType = "long_run"
	WorkoutRacePace   WorkoutType = "race_pace"
	WorkoutHills      WorkoutType = "hills"
	WorkoutRecovery   WorkoutType = "recovery"
	WorkoutCrossTrain WorkoutType = "cross_train"
	WorkoutOverUnders WorkoutType = "over_unders"
	WorkoutSharpener  WorkoutType = "sharpener"
)

// IsQuality reports whether the type is an intensity-specific session.
func (t WorkoutType) IsQuality() bool {
	switch t {
	case WorkoutTempo, WorkoutIntervals, WorkoutRacePace, WorkoutHills, WorkoutOverUnders, WorkoutSharpener:
		return true
	}
	return false
}

// SegmentType names one block of a structured workout.
type SegmentType string

const (
	SegmentWarmup   SegmentType = "warmup"
	SegmentWork     SegmentType = "work"
	SegmentRecovery SegmentType = "recovery"
	SegmentCooldown SegmentType = "cooldown"
)

// Segment is a block of a structured workout. Duration is in minutes,
// Distance in miles.
type Segment struct {
	Type     SegmentType `bson:"type" json:"type"`
	Duration float64     `bson:"duration,omitempty" json:"duration,omitempty"`
	Distance float64     `bson:"distance,omitempty" json:"distance,omitempty"`
	Pace     string      `bson:"pace,omitempty" json:"pace,omitempty"`
	Reps     int         `bson:"reps,omitempty" json:"reps,omitempty"`
	Notes    string      `bson:"notes,omitempty" json:"notes,omitempty"`
}

// PlannedWorkout is written once at generation time.
type PlannedWorkout struct {
	Type        WorkoutType `bson:"type" json:"type"`
	Mileage     float64     `bson:"mileage" json:"mileage"`
	Duration    int         `bson:"duration,omitempty" json:"duration,omitempty"` // minutes
	PaceRange   string      `bson:"paceRange,omitempty" json:"paceRange,omitempty"`
	TargetPace  string      `bson:"targetPace,omitempty" json:"targetPace,omitempty"`
	HRZone      int         `bson:"hrZone,omitempty" json:"hrZone,omitempty"`
	HRRange     string      `bson:"hrRange,omitempty" json:"hrRange,omitempty"`
	HRMin       int         `bson:"hrMin,omitempty" json:"hrMin,omitempty"`
	HRMax       int         `bson:"hrMax,omitempty" json:"hrMax,omitempty"`
	Segments    []Segment   `bson:"segments,omitempty" json:"segments,omitempty"`
	Label       string      `bson:"label,omitempty" json:"label,omitempty"`
	Description string      `bson:"description,omitempty" json:"description,omitempty"`
}

// HRZoneDistribution holds minutes spent in each heart-rate zone.
type HRZoneDistribution struct {
	Z1 float64 `bson:"z1" json:"z1"`
	Z2 float64 `bson:"z2" json:"z2"`
	Z3 float64 `bson:"z3" json:"z3"`
	Z4 float64 `bson:"z4" json:"z4"`
	Z5 float64 `bson:"z5" json:"z5"`
}

// ActualWorkout is what the telemetry provider observed.
type ActualWorkout struct {
	Completed          bool                `bson:"completed" json:"completed"`
	Mileage            float64             `bson:"mileage,omitempty" json:"mileage,omitempty"`
	Duration           float64             `bson:"duration,omitempty" json:"duration,omitempty"` // minutes
	Pace               string              `bson:"pace,omitempty" json:"pace,omitempty"`
	AvgHR              int                 `bson:"avgHR,omitempty" json:"avgHR,omitempty"`
	MaxHR              int                 `bson:"maxHR,omitempty" json:"maxHR,omitempty"`
	HRZoneDistribution *HRZoneDistribution `bson:"hrZoneDistribution,omitempty" json:"hrZoneDistribution,omitempty"`
	Cadence            int                 `bson:"cadence,omitempty" json:"cadence,omitempty"`
	ElevationGain      float64             `bson:"elevationGain,omitempty" json:"elevationGain,omitempty"`
	Calories           int                 `bson:"calories,omitempty" json:"calories,omitempty"`
	ActivityID         string              `bson:"activityId,omitempty" json:"activityId,omitempty"`
	RawPayloadKey      string              `bson:"rawPayloadKey,omitempty" json:"-"`
	CompletedAt        *time.Time          `bson:"completedAt,omitempty" json:"completedAt,omitempty"`
	SyncedAt           *time.Time          `bson:"syncedAt,omitempty" json:"syncedAt,omitempty"`
}

// Analysis compares the actual block with the planned block. Pointer fields
// stay nil when the comparison could not be made.
type Analysis struct {
	WorkoutCompleted bool     `bson:"workoutCompleted" json:"workoutCompleted"`
	HitTargetMileage *bool    `bson:"hitTargetMileage,omitempty" json:"hitTargetMileage,omitempty"`
	HitTargetPace    *bool    `bson:"hitTargetPace,omitempty" json:"hitTargetPace,omitempty"`
	StayedInHRZone   *bool    `bson:"stayedInHRZone,omitempty" json:"stayedInHRZone,omitempty"`
	MileageVariance  *float64 `bson:"mileageVariance,omitempty" json:"mileageVariance,omitempty"`
	PaceVariance     *float64 `bson:"paceVariance,omitempty" json:"paceVariance,omitempty"` // seconds per mile
	QualityScore     *int     `bson:"qualityScore,omitempty" json:"qualityScore,omitempty"`
	PerformanceNotes string   `bson:"performanceNotes,omitempty" json:"performanceNotes,omitempty"`
}

// Feedback is the athlete's subjective report for a day.
type Feedback struct {
	Mood        string     `bson:"mood,omitempty" json:"mood,omitempty"`
	Effort      int        `bson:"effort,omitempty" json:"effort,omitempty"` // RPE 1-10
	InjuryFlag  bool       `bson:"injuryFlag" json:"injuryFlag"`
	Notes       string     `bson:"notes,omitempty" json:"notes,omitempty"`
	SubmittedAt *time.Time `bson:"submittedAt,omitempty" json:"submittedAt,omitempty"`
}

// TrainingDay is the atomic unit of a plan, unique per (userId, date).
type TrainingDay struct {
	ID             primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	UserID         primitive.ObjectID `bson:"userId" json:"userId"`
	RaceID         primitive.ObjectID `bson:"raceId" json:"raceId"`
	TrainingPlanID primitive.ObjectID `bson:"trainingPlanId" json:"trainingPlanId"`
	Date           time.Time          `bson:"date" json:"date"`           // UTC midnight
	WeekIndex      int                `bson:"weekIndex" json:"weekIndex"` // 0-based
	DayIndex       int                `bson:"dayIndex" json:"dayIndex"`   // 0-6 offset within the plan week
	DayName        string             `bson:"dayName" json:"dayName"`
	Phase          string             `bson:"phase" json:"phase"`

	Planned  PlannedWorkout `bson:"planned" json:"planned"`
	Actual   ActualWorkout  `bson:"actual" json:"actual"`
	Analysis Analysis       `bson:"analysis" json:"analysis"`
	Feedback Feedback       `bson:"feedback" json:"feedback"`

	// Pending hides the day from readers until the generation that wrote it
	// has linked its plan to the race.
	Pending bool `bson:"pending,omitempty" json:"-"`

	// Version increments on every update of the actual, analysis or
	// feedback blocks. Writers pass the version they read.
	Version int64 `bson:"version" json:"-"`

	CreatedAt time.Time `bson:"createdAt" json:"createdAt"`
	UpdatedAt time.Time `bson:"updatedAt" json:"updatedAt"`
}

// DayStatus is the derived state shown in summaries.
type DayStatus string

const (
	DayStatusRest      DayStatus = "rest"
	DayStatusCompleted DayStatus = "completed"
	DayStatusMissed    DayStatus = "missed"
	DayStatusPending   DayStatus = "pending"
)

// StatusAt derives the day status relative to now.
func StatusAt(day *TrainingDay, now time.Time) DayStatus {
	switch {
	case day.Planned.Type == WorkoutRest:
		return DayStatusRest
	case day.Actual.Completed:
		return DayStatusCompleted
	case now.After(day.Date.AddDate(0, 0, 1)):
		return DayStatusMissed
	default:
		return DayStatusPending
	}
}

// DateOnly truncates t to UTC midnight, the key training days are stored under.
func DateOnly(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
