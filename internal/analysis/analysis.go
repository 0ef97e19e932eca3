// Package analysis compares what was planned for a day with what the
// telemetry provider observed.
package analysis

import (
	"fmt"
	"math"
	"strings"

	"alcyxob/runplan/internal/domain"
	"alcyxob/runplan/internal/pace"
)

const (
	MileageTolerance = 0.5 // miles
	PaceTolerance    = 15  // seconds per mile

	MileagePenalty = 20
	PacePenalty    = 30
	InjuryPenalty  = 25
	MaxScore       = 100
)

// Compute derives the analysis block. ok is false when the day is not
// analysed at all (rest days and days without a completed actual); callers
// keep whatever analysis the day already had in that case.
func Compute(planned domain.PlannedWorkout, actual domain.ActualWorkout, feedback domain.Feedback) (domain.Analysis, bool) {
	if !actual.Completed || planned.Type == domain.WorkoutRest {
		return domain.Analysis{}, false
	}

	a := domain.Analysis{WorkoutCompleted: true}
	var notes []string

	mileageVar := round2(actual.Mileage - planned.Mileage)
	hitMileage := math.Abs(mileageVar) <= MileageTolerance
	a.MileageVariance = &mileageVar
	a.HitTargetMileage = &hitMileage
	if hitMileage {
		notes = append(notes, "Mileage on target.")
	} else {
		notes = append(notes, fmt.Sprintf("Mileage off by %+.1f mi.", mileageVar))
	}

	hitPace := false
	if planned.TargetPace != "" {
		target, terr := pace.ParseSeconds(planned.TargetPace)
		got, aerr := pace.ParseSeconds(actual.Pace)
		if terr == nil && aerr == nil {
			paceVar := got - target
			hitPace = math.Abs(paceVar) <= PaceTolerance
			a.PaceVariance = &paceVar
			a.HitTargetPace = &hitPace
			switch {
			case hitPace:
				notes = append(notes, "Pace on target.")
			case paceVar > 0:
				notes = append(notes, fmt.Sprintf("Pace %.0fs/mi slower than target.", paceVar))
			default:
				notes = append(notes, fmt.Sprintf("Pace %.0fs/mi faster than target.", -paceVar))
			}
		} else {
			notes = append(notes, "Pace could not be compared.")
		}
	}

	if planned.HRZone > 0 && planned.HRMax > 0 && actual.AvgHR > 0 {
		inZone := actual.AvgHR >= planned.HRMin && actual.AvgHR <= planned.HRMax
		a.StayedInHRZone = &inZone
		if !inZone {
			notes = append(notes, fmt.Sprintf("Average HR %d outside zone %d (%d-%d).",
				actual.AvgHR, planned.HRZone, planned.HRMin, planned.HRMax))
		}
	}

	score := MaxScore
	if !hitMileage {
		score -= MileagePenalty
	}
	if planned.TargetPace != "" && !hitPace {
		score -= PacePenalty
	}
	if feedback.InjuryFlag {
		score -= InjuryPenalty
		notes = append(notes, "Injury reported.")
	}
	score = max(score, 0)
	a.QualityScore = &score
	a.PerformanceNotes = strings.Join(notes, " ")
	return a, true
}

func round2(x float64) float64 {
	return math.Round(x*100) / 100
}
