// Package planner holds the pure periodization math: phase partitioning,
// weekly mileage progression, and the per-day workout distribution. Nothing
// in this package touches persistence or the clock.
package planner

// PhaseName identifies a training emphasis.
type PhaseName string

const (
	PhaseBuild PhaseName = "build"
	PhasePeak  PhaseName = "peak"
	PhaseTaper PhaseName = "taper"
)

const (
	TaperWeeks = 2
	PeakWeeks  = 4
)

// Phase is a contiguous span of 1-based week numbers.
type Phase struct {
	Name  PhaseName
	Weeks []int
}

// PlanPhases partitions totalWeeks into build, peak and taper, in that order.
// Taper and peak have fixed lengths; build takes what is left and is present
// with no weeks when nothing is left. Plans shorter than TaperWeeks+PeakWeeks
// drop the build phase and shrink peak first.
func PlanPhases(totalWeeks int) []Phase {
	if totalWeeks <= 0 {
		return nil
	}
	taper := min(TaperWeeks, totalWeeks)
	peak := min(PeakWeeks, totalWeeks-taper)
	build := totalWeeks - taper - peak
	short := totalWeeks < TaperWeeks+PeakWeeks

	phases := make([]Phase, 0, 3)
	week := 1
	for _, p := range []struct {
		name PhaseName
		n    int
	}{{PhaseBuild, build}, {PhasePeak, peak}, {PhaseTaper, taper}} {
		if p.n == 0 && short {
			continue
		}
		weeks := make([]int, p.n)
		for i := range weeks {
			weeks[i] = week
			week++
		}
		phases = append(phases, Phase{Name: p.name, Weeks: weeks})
	}
	return phases
}

// PhaseForWeek returns the phase that owns the 0-based week index.
func PhaseForWeek(phases []Phase, weekIndex int) PhaseName {
	week := weekIndex + 1
	for _, p := range phases {
		if len(p.Weeks) > 0 && week >= p.Weeks[0] && week <= p.Weeks[len(p.Weeks)-1] {
			return p.Name
		}
	}
	return PhaseBuild
}

// WeekInPhase returns the 0-based position of weekIndex inside its phase.
func WeekInPhase(phases []Phase, weekIndex int) int {
	week := weekIndex + 1
	for _, p := range phases {
		if len(p.Weeks) > 0 && week >= p.Weeks[0] && week <= p.Weeks[len(p.Weeks)-1] {
			return week - p.Weeks[0]
		}
	}
	return 0
}
