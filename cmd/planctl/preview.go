package main

import (
	"fmt"
	"io"
	"strings"
	"time"

	"alcyxob/runplan/internal/domain"
	"alcyxob/runplan/internal/planner"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

const dateLayout = "2006-01-02"

type previewOptions struct {
	raceDate      string
	start         string
	baseline5K    string
	goalTime      string
	distance      float64
	weeklyMileage float64
	age           int
	patternPath   string
	showDays      bool
}

func newPreviewCmd() *cobra.Command {
	var opts previewOptions
	cmd := &cobra.Command{
		Use:   "preview",
		Short: "Build a schedule in memory and print it week by week",
		RunE: func(cmd *cobra.Command, args []string) error {
			schedule, err := buildPreview(opts, time.Now())
			if err != nil {
				return err
			}
			printSchedule(cmd.OutOrStdout(), schedule, opts.showDays)
			return nil
		},
	}

	f := cmd.Flags()
	f.StringVar(&opts.raceDate, "race-date", "", "race day, YYYY-MM-DD")
	f.StringVar(&opts.start, "start", "", "first plan day, YYYY-MM-DD (default today)")
	f.StringVar(&opts.baseline5K, "baseline-5k", "", "recent 5K time, mm:ss")
	f.StringVar(&opts.goalTime, "goal-time", "", "race goal time, h:mm:ss")
	f.Float64Var(&opts.distance, "distance", 0, "race distance in miles, used with --goal-time")
	f.Float64Var(&opts.weeklyMileage, "weekly-mileage", 20, "current weekly mileage")
	f.IntVar(&opts.age, "age", planner.DefaultAthleteAge, "athlete age")
	f.StringVar(&opts.patternPath, "pattern", "", "TOML file with a weekly pattern and long-run policy")
	f.BoolVar(&opts.showDays, "days", false, "print every day, not only the week summary")
	_ = cmd.MarkFlagRequired("race-date")
	_ = cmd.MarkFlagRequired("baseline-5k")
	return cmd
}

func buildPreview(opts previewOptions, now time.Time) (*planner.Schedule, error) {
	raceDate, err := time.Parse(dateLayout, opts.raceDate)
	if err != nil {
		return nil, fmt.Errorf("invalid --race-date: %w", err)
	}
	start := now.UTC()
	if opts.start != "" {
		if start, err = time.Parse(dateLayout, opts.start); err != nil {
			return nil, fmt.Errorf("invalid --start: %w", err)
		}
	}
	athlete, err := planner.NewAthlete(opts.baseline5K, opts.goalTime, opts.distance, opts.age)
	if err != nil {
		return nil, err
	}
	distributor, err := loadDistributor(opts.patternPath)
	if err != nil {
		return nil, err
	}
	return distributor.BuildSchedule(planner.ScheduleInput{
		Start:             start,
		RaceDate:          raceDate,
		BaseWeeklyMileage: opts.weeklyMileage,
		Athlete:           athlete,
	})
}

func printSchedule(w io.Writer, s *planner.Schedule, showDays bool) {
	bold := color.New(color.Bold).SprintFunc()
	faint := color.New(color.Faint).SprintFunc()

	fmt.Fprintf(w, "%s %s to %s, %d weeks\n", bold("Plan"),
		s.Start.Format(dateLayout), s.RaceDate.Format(dateLayout), s.TotalWeeks)
	printPhases(w, s.Phases)
	fmt.Fprintln(w, strings.Repeat("=", 60))

	for _, wk := range s.Weeks {
		fmt.Fprintf(w, "%s %2d  %s  %4.0f mi  %s\n",
			bold("Week"), wk.WeekIndex+1, phaseLabel(wk.Phase), wk.TargetMileage,
			faint(wk.StartDate().Format("Jan 02")+" - "+wk.EndDate().Format("Jan 02")))
		if key := wk.KeyWorkouts(); len(key) > 0 {
			fmt.Fprintf(w, "         %s\n", strings.Join(key, ", "))
		}
		if !showDays {
			continue
		}
		for _, d := range wk.Days {
			printDay(w, d)
		}
	}
}

func printDay(w io.Writer, d planner.ScheduledDay) {
	wo := d.Workout
	line := fmt.Sprintf("    %s %s  %-26s", d.Date.Format("Mon"), d.Date.Format("01-02"), wo.Label)
	if wo.Type != domain.WorkoutRest {
		line += fmt.Sprintf(" %4.1f mi", wo.Mileage)
		if wo.PaceRange != "" {
			line += "  @ " + wo.PaceRange
		}
		if wo.HRRange != "" {
			line += fmt.Sprintf("  Z%d %s bpm", wo.HRZone, wo.HRRange)
		}
	}
	fmt.Fprintln(w, line)
}
