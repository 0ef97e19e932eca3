package planner

import (
	"errors"
	"fmt"
	"math"
	"time"

	"alcyxob/runplan/internal/domain"
)

// MinPlanWeeks is the shortest lead time a plan can be generated for.
const MinPlanWeeks = 4

var (
	ErrInsufficientLeadTime = fmt.Errorf("race must be at least %d weeks out", MinPlanWeeks)
	ErrInvalidDateRange     = errors.New("race date must be after the plan start date")
)

// ScheduleInput is everything BuildSchedule needs. Start is normally "today";
// it is a parameter so the result never depends on the clock.
type ScheduleInput struct {
	Start             time.Time
	RaceDate          time.Time
	BaseWeeklyMileage float64
	Athlete           Athlete
}

// ScheduledDay is one materialized calendar day of a schedule.
type ScheduledDay struct {
	Date      time.Time
	WeekIndex int
	DayIndex  int
	DayName   string
	Phase     PhaseName
	Role      DayRole
	Workout   domain.PlannedWorkout
}

// ScheduledWeek groups the 7 days of a plan week.
type ScheduledWeek struct {
	WeekIndex     int
	Phase         PhaseName
	Progression   float64
	TargetMileage float64
	Days          [7]ScheduledDay
}

// StartDate is the date of the first day of the week.
func (w ScheduledWeek) StartDate() time.Time { return w.Days[0].Date }

// EndDate is the date of the last day of the week.
func (w ScheduledWeek) EndDate() time.Time { return w.Days[len(w.Days)-1].Date }

// PlannedMileage sums the planned mileage of the week's days.
func (w ScheduledWeek) PlannedMileage() float64 {
	total := 0.0
	for _, d := range w.Days {
		total += d.Workout.Mileage
	}
	return total
}

// WorkoutTypes lists the distinct workout types of the week in day order.
func (w ScheduledWeek) WorkoutTypes() []domain.WorkoutType {
	seen := make(map[domain.WorkoutType]bool, len(w.Days))
	var out []domain.WorkoutType
	for _, d := range w.Days {
		if !seen[d.Workout.Type] {
			seen[d.Workout.Type] = true
			out = append(out, d.Workout.Type)
		}
	}
	return out
}

// KeyWorkouts labels the quality sessions and the long run, e.g.
// "Tempo – Sharpen: 5mi".
func (w ScheduledWeek) KeyWorkouts() []string {
	var out []string
	for _, d := range w.Days {
		if d.Workout.Type.IsQuality() || d.Workout.Type == domain.WorkoutLongRun {
			out = append(out, fmt.Sprintf("%s: %gmi", d.Workout.Label, d.Workout.Mileage))
		}
	}
	return out
}

// Schedule is a fully distributed plan, not yet persisted.
type Schedule struct {
	Start      time.Time
	RaceDate   time.Time
	TotalWeeks int
	Phases     []Phase
	Weeks      []ScheduledWeek
}

// Days flattens the schedule in calendar order.
func (s *Schedule) Days() []ScheduledDay {
	out := make([]ScheduledDay, 0, len(s.Weeks)*7)
	for _, w := range s.Weeks {
		out = append(out, w.Days[:]...)
	}
	return out
}

// TotalWeeks returns ceil(days between start and race / 7), both truncated
// to UTC dates. Races fewer than MinPlanWeeks weeks away are rejected.
func TotalWeeks(start, raceDate time.Time) (int, error) {
	from, to := domain.DateOnly(start), domain.DateOnly(raceDate)
	if !to.After(from) {
		return 0, ErrInvalidDateRange
	}
	days := int(to.Sub(from).Hours() / 24)
	if days < MinPlanWeeks*7 {
		return 0, fmt.Errorf("%w: %d days to race", ErrInsufficientLeadTime, days)
	}
	return (days + 6) / 7, nil
}

// PhaseOverview summarizes phases as week spans keyed by phase name.
func PhaseOverview(phases []Phase) map[string]domain.PhaseSpan {
	out := make(map[string]domain.PhaseSpan, len(phases))
	for _, p := range phases {
		if len(p.Weeks) == 0 {
			continue
		}
		out[string(p.Name)] = domain.PhaseSpan{
			Weeks:     len(p.Weeks),
			StartWeek: p.Weeks[0],
			EndWeek:   p.Weeks[len(p.Weeks)-1],
		}
	}
	return out
}

// BuildSchedule runs the phase planner, the mileage progression and the
// distributor for every week and lays the days out on the calendar starting
// at in.Start.
func (d *Distributor) BuildSchedule(in ScheduleInput) (*Schedule, error) {
	total, err := TotalWeeks(in.Start, in.RaceDate)
	if err != nil {
		return nil, err
	}
	start := domain.DateOnly(in.Start)
	phases := PlanPhases(total)
	progression := MileageProgression(in.BaseWeeklyMileage, total)

	s := &Schedule{
		Start:      start,
		RaceDate:   domain.DateOnly(in.RaceDate),
		TotalWeeks: total,
		Phases:     phases,
		Weeks:      make([]ScheduledWeek, total),
	}
	for wk := 0; wk < total; wk++ {
		phase := PhaseForWeek(phases, wk)
		target := progression[wk]
		if v := PhaseVolume(phase, WeekInPhase(phases, wk)); v != 1 {
			target = math.Round(target * v)
		}

		week := ScheduledWeek{WeekIndex: wk, Phase: phase, Progression: progression[wk], TargetMileage: target}
		for i, day := range d.DistributeWeek(wk, target, phase, in.Athlete) {
			date := start.AddDate(0, 0, wk*7+i)
			week.Days[i] = ScheduledDay{
				Date:      date,
				WeekIndex: wk,
				DayIndex:  i,
				DayName:   date.Weekday().String(),
				Phase:     phase,
				Role:      day.Role,
				Workout:   day.Workout,
			}
		}
		s.Weeks[wk] = week
	}
	return s, nil
}
