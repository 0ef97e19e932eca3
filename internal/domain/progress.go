// internal/domain/progress.go
package domain

import "time"

// TrainingProgress is the completion view over the non-rest days of a plan.
type TrainingProgress struct {
	PlanID         string  `bson:"-" json:"planId"`
	TotalDays      int     `bson:"totalDays" json:"totalDays"`
	CompletedDays  int     `bson:"completedDays" json:"completedDays"`
	CompletionRate float64 `bson:"-" json:"completionRate"` // percent, 0-100
	PlannedMileage float64 `bson:"plannedMileage" json:"plannedMileage"`
	ActualMileage  float64 `bson:"actualMileage" json:"actualMileage"`
}

// DaySummary is one line of a weekly summary.
type DaySummary struct {
	DayID          string      `json:"dayId"`
	Date           time.Time   `json:"date"`
	DayName        string      `json:"dayName"`
	Type           WorkoutType `json:"type"`
	Label          string      `json:"label,omitempty"`
	PlannedMileage float64     `json:"plannedMileage"`
	ActualMileage  float64     `json:"actualMileage"`
	Status         DayStatus   `json:"status"`
	QualityScore   *int        `json:"qualityScore,omitempty"`
}

// WeeklySummary aggregates one plan week for reporting.
type WeeklySummary struct {
	PlanID            string       `json:"planId"`
	WeekIndex         int          `json:"weekIndex"`
	Phase             string       `json:"phase"`
	StartDate         time.Time    `json:"startDate"`
	EndDate           time.Time    `json:"endDate"`
	TotalWorkouts     int          `json:"totalWorkouts"`
	CompletedWorkouts int          `json:"completedWorkouts"`
	CompletionRate    float64      `json:"completionRate"` // percent, 0-100
	PlannedMileage    float64      `json:"plannedMileage"`
	ActualMileage     float64      `json:"actualMileage"`
	AvgHR             int          `json:"avgHR,omitempty"`
	KeyWorkouts       []string     `json:"keyWorkouts,omitempty"`
	Days              []DaySummary `json:"days"`
}
