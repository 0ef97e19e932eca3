package planner

import (
	"fmt"
	"math"

	"alcyxob/runplan/internal/domain"
	"alcyxob/runplan/internal/pace"
)

// DefaultAthleteAge is used when the intake flow did not supply an age.
const DefaultAthleteAge = 30

// Athlete anchors absolute pace and heart-rate targets.
type Athlete struct {
	BaselinePace float64 // seconds per mile at 5K effort
	GoalPace     float64 // seconds per mile at race effort, 0 if unknown
	Age          int
}

// NewAthlete derives paces from a 5K time ("24:30") and an optional race goal
// ("1:45:00" over distanceMiles).
func NewAthlete(baseline5K string, goalTime string, distanceMiles float64, age int) (Athlete, error) {
	fiveK, err := pace.ParseSeconds(baseline5K)
	if err != nil {
		return Athlete{}, fmt.Errorf("baseline 5k: %w", err)
	}
	a := Athlete{BaselinePace: fiveK / pace.MilesPer5K, Age: age}
	if goalTime != "" && distanceMiles > 0 {
		if goal, err := pace.ParseSeconds(goalTime); err == nil && goal > 0 {
			a.GoalPace = goal / distanceMiles
		}
	}
	return a, nil
}

// ZonePolicy turns an athlete into pace and heart-rate bands. The
// coefficients are tunable; the mapping is monotonic in both baseline pace
// and age.
type ZonePolicy struct {
	AgeGradeFrom  int             // age at which paces start slowing
	AgeGradeSlope float64         // pace slowdown per year past AgeGradeFrom
	PaceOffsets   map[int]float64 // zone -> seconds added to the graded baseline
	PaceBand      float64         // half-width of a pace range, seconds
	RacePaceFall  float64         // offset used for race pace when no goal is known
	HRBands       map[int][2]float64
}

// DefaultZonePolicy follows the usual 5-zone model.
var DefaultZonePolicy = ZonePolicy{
	AgeGradeFrom:  35,
	AgeGradeSlope: 0.005,
	PaceOffsets:   map[int]float64{1: 135, 2: 90, 3: 30, 4: 0, 5: -20},
	PaceBand:      15,
	RacePaceFall:  30,
	HRBands: map[int][2]float64{
		1: {0.50, 0.60},
		2: {0.60, 0.70},
		3: {0.70, 0.80},
		4: {0.80, 0.90},
		5: {0.90, 1.00},
	},
}

func (z ZonePolicy) age(a Athlete) int {
	if a.Age <= 0 {
		return DefaultAthleteAge
	}
	return a.Age
}

// AgeFactor scales the baseline pace for the athlete's age.
func (z ZonePolicy) AgeFactor(age int) float64 {
	if age <= z.AgeGradeFrom {
		return 1
	}
	return 1 + z.AgeGradeSlope*float64(age-z.AgeGradeFrom)
}

// ZonePace returns the centre of the pace band for a zone, in s/mi.
func (z ZonePolicy) ZonePace(a Athlete, zone int) float64 {
	graded := a.BaselinePace * z.AgeFactor(z.age(a))
	return graded + z.PaceOffsets[zone]
}

// RacePace is the goal pace when known, otherwise a threshold-ish fallback.
func (z ZonePolicy) RacePace(a Athlete) float64 {
	if a.GoalPace > 0 {
		return a.GoalPace
	}
	return a.BaselinePace*z.AgeFactor(z.age(a)) + z.RacePaceFall
}

// MaxHR is the age-predicted maximum heart rate.
func (z ZonePolicy) MaxHR(a Athlete) int {
	return 220 - z.age(a)
}

// HRRange returns the bpm band for a zone.
func (z ZonePolicy) HRRange(a Athlete, zone int) (int, int) {
	band, ok := z.HRBands[zone]
	if !ok {
		return 0, 0
	}
	max := float64(z.MaxHR(a))
	return int(math.Round(max * band[0])), int(math.Round(max * band[1]))
}

// workoutZone maps a workout type to its heart-rate / pace zone.
func workoutZone(t domain.WorkoutType) int {
	switch t {
	case domain.WorkoutRest:
		return 0
	case domain.WorkoutRecovery, domain.WorkoutCrossTrain:
		return 1
	case domain.WorkoutEasy, domain.WorkoutLongRun:
		return 2
	case domain.WorkoutIntervals:
		return 4
	default:
		return 3
	}
}
