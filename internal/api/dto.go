package api

import (
	"encoding/json"
	"time"

	"alcyxob/runplan/internal/domain"
)

// --- Plan DTOs ---

type GeneratePlanRequest struct {
	AthleteAge int `json:"athleteAge" binding:"omitempty,min=1,max=120"`
}

type WeekSummaryResponse struct {
	WeekIndex     int                  `json:"weekIndex"`
	StartDate     time.Time            `json:"startDate"`
	EndDate       time.Time            `json:"endDate"`
	Phase         string               `json:"phase"`
	TargetMileage float64              `json:"targetMileage"`
	DayIDs        []string             `json:"dayIds"`
	WorkoutTypes  []domain.WorkoutType `json:"workoutTypes"`
	KeyWorkouts   []string             `json:"keyWorkouts"`
}

type TrainingPlanResponse struct {
	ID                string                      `json:"id"`
	UserID            string                      `json:"userId"`
	RaceID            string                      `json:"raceId"`
	StartDate         time.Time                   `json:"startDate"`
	RaceDate          time.Time                   `json:"raceDate"`
	TotalWeeks        int                         `json:"totalWeeks"`
	AthleteAge        int                         `json:"athleteAge"`
	Status            domain.PlanStatus           `json:"status"`
	PhaseOverview     map[string]domain.PhaseSpan `json:"phaseOverview"`
	WeeklyMileagePlan []domain.WeekMileage        `json:"weeklyMileagePlan"`
	Weeks             []WeekSummaryResponse       `json:"weeks"`
	GeneratedAt       time.Time                   `json:"generatedAt"`
}

// MapTrainingPlanToResponse converts domain.TrainingPlan to DTO
func MapTrainingPlanToResponse(p *domain.TrainingPlan) TrainingPlanResponse {
	if p == nil {
		return TrainingPlanResponse{}
	}
	weeks := make([]WeekSummaryResponse, len(p.Weeks))
	for i, w := range p.Weeks {
		ids := make([]string, len(w.DayIDs))
		for j, id := range w.DayIDs {
			ids[j] = id.Hex()
		}
		weeks[i] = WeekSummaryResponse{
			WeekIndex:     w.WeekIndex,
			StartDate:     w.StartDate,
			EndDate:       w.EndDate,
			Phase:         w.Phase,
			TargetMileage: w.TargetMileage,
			DayIDs:        ids,
			WorkoutTypes:  w.WorkoutTypes,
			KeyWorkouts:   w.KeyWorkouts,
		}
	}
	return TrainingPlanResponse{
		ID:                p.ID.Hex(),
		UserID:            p.UserID.Hex(),
		RaceID:            p.RaceID.Hex(),
		StartDate:         p.StartDate,
		RaceDate:          p.RaceDate,
		TotalWeeks:        p.TotalWeeks,
		AthleteAge:        p.AthleteAge,
		Status:            p.Status,
		PhaseOverview:     p.PhaseOverview,
		WeeklyMileagePlan: p.WeeklyMileage,
		Weeks:             weeks,
		GeneratedAt:       p.GeneratedAt,
	}
}

// --- Training day DTOs ---

type TrainingDayResponse struct {
	ID             string                `json:"id"`
	TrainingPlanID string                `json:"trainingPlanId"`
	RaceID         string                `json:"raceId"`
	Date           string                `json:"date"` // YYYY-MM-DD
	WeekIndex      int                   `json:"weekIndex"`
	DayIndex       int                   `json:"dayIndex"`
	DayName        string                `json:"dayName"`
	Phase          string                `json:"phase"`
	Status         domain.DayStatus      `json:"status"`
	Planned        domain.PlannedWorkout `json:"planned"`
	Actual         domain.ActualWorkout  `json:"actual"`
	Analysis       domain.Analysis       `json:"analysis"`
	Feedback       domain.Feedback       `json:"feedback"`
	HasRawActivity bool                  `json:"hasRawActivity"`
}

// MapTrainingDayToResponse converts domain.TrainingDay to DTO. now is used to
// derive the day status.
func MapTrainingDayToResponse(d *domain.TrainingDay, now time.Time) TrainingDayResponse {
	if d == nil {
		return TrainingDayResponse{}
	}
	return TrainingDayResponse{
		ID:             d.ID.Hex(),
		TrainingPlanID: d.TrainingPlanID.Hex(),
		RaceID:         d.RaceID.Hex(),
		Date:           d.Date.Format(dateLayout),
		WeekIndex:      d.WeekIndex,
		DayIndex:       d.DayIndex,
		DayName:        d.DayName,
		Phase:          d.Phase,
		Status:         domain.StatusAt(d, now),
		Planned:        d.Planned,
		Actual:         d.Actual,
		Analysis:       d.Analysis,
		Feedback:       d.Feedback,
		HasRawActivity: d.Actual.RawPayloadKey != "",
	}
}

func MapTrainingDaysToResponse(days []domain.TrainingDay, now time.Time) []TrainingDayResponse {
	responses := make([]TrainingDayResponse, len(days))
	for i := range days {
		responses[i] = MapTrainingDayToResponse(&days[i], now)
	}
	return responses
}

// FeedbackRequest is a partial update; omitted fields keep their value.
type FeedbackRequest struct {
	Mood       *string `json:"mood"`
	Effort     *int    `json:"effort"`
	InjuryFlag *bool   `json:"injuryFlag"`
	Notes      *string `json:"notes"`
}

type RawActivityURLResponse struct {
	URL       string `json:"url"`
	ExpiresIn int    `json:"expiresInSeconds"`
}

// --- Telemetry DTOs ---

// TelemetryRequest is one normalized activity pushed by the ingestion worker.
type TelemetryRequest struct {
	UserID             string                     `json:"userId" binding:"required"`
	ActivityDate       time.Time                  `json:"activityDate" binding:"required"`
	ProviderActivityID string                     `json:"providerActivityId"`
	Mileage            *float64                   `json:"mileage"`
	Duration           *float64                   `json:"duration"`
	Pace               string                     `json:"pace"`
	AvgHR              int                        `json:"avgHR"`
	MaxHR              int                        `json:"maxHR"`
	HRZoneDistribution *domain.HRZoneDistribution `json:"hrZoneDistribution"`
	Cadence            int                        `json:"cadence"`
	ElevationGain      float64                    `json:"elevationGain"`
	Calories           int                        `json:"calories"`
	Raw                json.RawMessage            `json:"raw"`
}

func (r TelemetryRequest) toActivity() domain.ExternalActivity {
	return domain.ExternalActivity{
		ActivityDate:       r.ActivityDate,
		ProviderActivityID: r.ProviderActivityID,
		Mileage:            r.Mileage,
		Duration:           r.Duration,
		Pace:               r.Pace,
		AvgHR:              r.AvgHR,
		MaxHR:              r.MaxHR,
		HRZoneDistribution: r.HRZoneDistribution,
		Cadence:            r.Cadence,
		ElevationGain:      r.ElevationGain,
		Calories:           r.Calories,
		Raw:                r.Raw,
	}
}
