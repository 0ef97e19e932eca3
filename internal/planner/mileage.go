package planner

import "math"

const (
	// RampRate is the week-over-week growth outside deload weeks.
	RampRate = 0.06
	// DeloadFactor is applied instead of the ramp every DeloadEvery weeks.
	DeloadFactor = 0.85
	DeloadEvery  = 4
)

// taperVolume scales the progression inside the taper, by week-in-phase.
var taperVolume = []float64{0.8, 0.6}

// MileageProgression returns the per-week target mileage, rounded to whole
// miles. Week 0 is the base; zero-based indices that are multiples of
// DeloadEvery apply DeloadFactor, every other week applies the ramp. The
// unrounded value carries forward so rounding never compounds.
func MileageProgression(baseWeeklyMileage float64, totalWeeks int) []float64 {
	if totalWeeks <= 0 {
		return nil
	}
	mileage := math.Max(baseWeeklyMileage, 0)
	plan := make([]float64, totalWeeks)
	for i := range plan {
		switch {
		case i > 0 && i%DeloadEvery == 0:
			mileage *= DeloadFactor
		case i > 0:
			mileage *= 1 + RampRate
		}
		plan[i] = math.Round(mileage)
	}
	return plan
}

// IsDeloadWeek reports whether the 0-based week index is a recovery week.
func IsDeloadWeek(weekIndex int) bool {
	return weekIndex > 0 && weekIndex%DeloadEvery == 0
}

// PhaseVolume is the fraction of the progression mileage a week is
// distributed with. Only taper weeks are reduced.
func PhaseVolume(phase PhaseName, weekInPhase int) float64 {
	if phase != PhaseTaper {
		return 1
	}
	if weekInPhase < 0 {
		weekInPhase = 0
	}
	if weekInPhase >= len(taperVolume) {
		return taperVolume[len(taperVolume)-1]
	}
	return taperVolume[weekInPhase]
}
