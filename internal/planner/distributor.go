package planner

import (
	"fmt"
	"math"

	"alcyxob/runplan/internal/domain"
	"alcyxob/runplan/internal/pace"
)

// DayPlan is one day of a distributed week.
type DayPlan struct {
	DayIndex int
	Role     DayRole
	Workout  domain.PlannedWorkout
}

// Distributor allocates a week's mileage across the pattern and elaborates
// each day into a full workout. It holds no mutable state; the same inputs
// always produce the same week.
type Distributor struct {
	Pattern WeeklyPattern
	LongRun LongRunPolicy
	Zones   ZonePolicy
}

// NewDistributor validates the pattern and long-run policy.
func NewDistributor(pattern WeeklyPattern, longRun LongRunPolicy, zones ZonePolicy) (*Distributor, error) {
	if err := pattern.Validate(); err != nil {
		return nil, err
	}
	if longRun.Share <= 0 || longRun.Share > 0.5 {
		return nil, fmt.Errorf("long run share must be in (0, 0.5], got %v", longRun.Share)
	}
	return &Distributor{Pattern: pattern, LongRun: longRun, Zones: zones}, nil
}

// DefaultDistributor uses the default pattern and policies.
func DefaultDistributor() *Distributor {
	return &Distributor{Pattern: DefaultPattern, LongRun: DefaultLongRunPolicy, Zones: DefaultZonePolicy}
}

// SplitMileage returns the raw per-day allocation: rest days get zero, the
// long-run day gets the long-run policy value, and the leftover is split
// evenly across the remaining days, each rounded to a whole mile.
func (d *Distributor) SplitMileage(weekTarget float64) [7]float64 {
	var out [7]float64
	if weekTarget <= 0 {
		return out
	}
	longRun := math.Min(d.LongRun.Mileage(weekTarget), weekTarget)
	perDay := 0.0
	if n := d.Pattern.SplitDays(); n > 0 {
		perDay = math.Round((weekTarget - longRun) / float64(n))
	}
	for i, role := range d.Pattern {
		switch role {
		case RoleLongRun:
			out[i] = longRun
		case RoleQuality, RoleEasy:
			out[i] = perDay
		}
	}
	return out
}

// DistributeWeek produces the 7 planned workouts for one week.
func (d *Distributor) DistributeWeek(weekIndex int, weekTarget float64, phase PhaseName, athlete Athlete) [7]DayPlan {
	mileage := d.SplitMileage(weekTarget)

	var week [7]DayPlan
	qualitySlot := 0
	for i, role := range d.Pattern {
		t := workoutType(role, qualitySlot, phase, weekIndex)
		if role == RoleQuality {
			qualitySlot++
		}
		if t != domain.WorkoutRest && mileage[i] <= 0 {
			t = domain.WorkoutCrossTrain
		}
		week[i] = DayPlan{
			DayIndex: i,
			Role:     role,
			Workout:  d.elaborate(t, mileage[i], phase, athlete),
		}
	}
	return week
}

func workoutType(role DayRole, qualitySlot int, phase PhaseName, weekIndex int) domain.WorkoutType {
	switch role {
	case RoleRest:
		return domain.WorkoutRest
	case RoleLongRun:
		return domain.WorkoutLongRun
	case RoleQuality:
		switch phase {
		case PhasePeak:
			if qualitySlot == 0 {
				return domain.WorkoutTempo
			}
			if weekIndex%2 == 1 {
				return domain.WorkoutIntervals
			}
			return domain.WorkoutOverUnders
		case PhaseTaper:
			if qualitySlot == 0 {
				return domain.WorkoutSharpener
			}
			return domain.WorkoutRacePace
		default:
			if qualitySlot == 0 {
				if weekIndex < 4 {
					return domain.WorkoutHills
				}
				return domain.WorkoutTempo
			}
			return domain.WorkoutEasy
		}
	}
	if phase == PhaseTaper {
		return domain.WorkoutRecovery
	}
	return domain.WorkoutEasy
}

var workoutLabels = map[domain.WorkoutType]string{
	domain.WorkoutRest:       "Rest Day",
	domain.WorkoutEasy:       "Easy – Aerobic Builder",
	domain.WorkoutTempo:      "Tempo – Sharpen",
	domain.WorkoutIntervals:  "Intervals – VO2 Max",
	domain.WorkoutLongRun:    "Long – Endurance",
	domain.WorkoutHills:      "Hills – Strength Builder",
	domain.WorkoutRacePace:   "Race Pace – Simulation",
	domain.WorkoutOverUnders: "Over/Under – Lactate Tolerance",
	domain.WorkoutSharpener:  "Sharpener – Race Ready",
	domain.WorkoutRecovery:   "Recovery – Flush",
	domain.WorkoutCrossTrain: "Cross-Train – Active Recovery",
}

// Label returns the display label of a workout type.
func Label(t domain.WorkoutType) string {
	if l, ok := workoutLabels[t]; ok {
		return l
	}
	return string(t)
}

func (d *Distributor) elaborate(t domain.WorkoutType, miles float64, phase PhaseName, a Athlete) domain.PlannedWorkout {
	w := domain.PlannedWorkout{Type: t, Mileage: miles, Label: Label(t)}
	switch t {
	case domain.WorkoutRest:
		w.Description = "Full rest. Sleep, hydrate, mobility if you feel like it."
		return w
	case domain.WorkoutCrossTrain:
		w.HRZone = 1
		w.HRMin, w.HRMax = d.Zones.HRRange(a, 1)
		w.HRRange = fmt.Sprintf("%d-%d", w.HRMin, w.HRMax)
		w.Duration = 30
		w.Description = "30 minutes of low-impact cross-training."
		return w
	}

	zone := workoutZone(t)
	centre := d.Zones.ZonePace(a, zone)
	if t == domain.WorkoutRacePace {
		centre = d.Zones.RacePace(a)
	}
	band := d.Zones.PaceBand
	w.TargetPace = pace.Format(centre)
	w.PaceRange = pace.FormatRange(centre-band, centre+band)
	w.HRZone = zone
	w.HRMin, w.HRMax = d.Zones.HRRange(a, zone)
	w.HRRange = fmt.Sprintf("%d-%d", w.HRMin, w.HRMax)
	w.Duration = int(math.Round(miles * centre / 60))
	w.Segments = d.segments(t, miles, phase, a)
	w.Description = fmt.Sprintf("%g mi %s at %s/mi (zone %d).", miles, Label(t), w.TargetPace, zone)
	return w
}

func round1(x float64) float64 {
	return math.Round(x*10) / 10
}

func (d *Distributor) segments(t domain.WorkoutType, miles float64, phase PhaseName, a Athlete) []domain.Segment {
	easy := pace.Format(d.Zones.ZonePace(a, 2))
	warm := round1(math.Min(1.5, miles*0.25))
	work := math.Max(round1(miles-2*warm), 0)
	warmup := domain.Segment{Type: domain.SegmentWarmup, Distance: warm, Pace: easy}
	cooldown := domain.Segment{Type: domain.SegmentCooldown, Distance: warm, Pace: easy}

	switch t {
	case domain.WorkoutTempo:
		return []domain.Segment{
			warmup,
			{Type: domain.SegmentWork, Reps: 3, Duration: 6, Pace: pace.Format(d.Zones.ZonePace(a, 3))},
			{Type: domain.SegmentRecovery, Reps: 2, Duration: 2, Notes: "easy jog"},
			cooldown,
		}
	case domain.WorkoutIntervals:
		reps := min(max(int(work/0.75), 3), 10)
		return []domain.Segment{
			warmup,
			{Type: domain.SegmentWork, Reps: reps, Distance: 0.5, Pace: pace.Format(d.Zones.ZonePace(a, 4))},
			{Type: domain.SegmentRecovery, Reps: reps - 1, Duration: 2, Notes: "jog"},
			cooldown,
		}
	case domain.WorkoutOverUnders:
		return []domain.Segment{
			warmup,
			{Type: domain.SegmentWork, Reps: 4, Duration: 5, Notes: "3 min zone 3 / 2 min zone 4"},
			{Type: domain.SegmentRecovery, Reps: 3, Duration: 1.5, Notes: "jog"},
			cooldown,
		}
	case domain.WorkoutHills:
		return []domain.Segment{
			warmup,
			{Type: domain.SegmentWork, Reps: 6, Duration: 1, Notes: "uphill at 5K effort"},
			{Type: domain.SegmentRecovery, Reps: 6, Duration: 2, Notes: "jog back down"},
			cooldown,
		}
	case domain.WorkoutSharpener:
		return []domain.Segment{
			warmup,
			{Type: domain.SegmentWork, Reps: 4, Distance: 0.25, Pace: pace.Format(d.Zones.ZonePace(a, 4))},
			{Type: domain.SegmentRecovery, Reps: 3, Duration: 1.5, Notes: "walk or jog"},
			cooldown,
		}
	case domain.WorkoutRacePace:
		return []domain.Segment{
			warmup,
			{Type: domain.SegmentWork, Reps: 1, Distance: work, Pace: pace.Format(d.Zones.RacePace(a))},
			cooldown,
		}
	case domain.WorkoutLongRun:
		if phase != PhasePeak {
			return nil
		}
		steady := round1(miles * 0.75)
		return []domain.Segment{
			{Type: domain.SegmentWork, Distance: steady, Pace: easy, Notes: "steady"},
			{Type: domain.SegmentWork, Distance: round1(miles - steady), Pace: pace.Format(d.Zones.RacePace(a)), Notes: "race-pace finish"},
		}
	}
	return nil
}
