package main

import (
	"fmt"
	"io"

	"alcyxob/runplan/internal/planner"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var phaseColors = map[planner.PhaseName]*color.Color{
	planner.PhaseBuild: color.New(color.FgGreen),
	planner.PhasePeak:  color.New(color.FgYellow, color.Bold),
	planner.PhaseTaper: color.New(color.FgCyan),
}

func phaseLabel(p planner.PhaseName) string {
	c, ok := phaseColors[p]
	if !ok {
		return string(p)
	}
	return c.Sprintf("%-5s", p)
}

func newPhasesCmd() *cobra.Command {
	var weeks int
	cmd := &cobra.Command{
		Use:   "phases",
		Short: "Show how a plan of N weeks is split into build, peak and taper",
		RunE: func(cmd *cobra.Command, args []string) error {
			if weeks <= 0 {
				return fmt.Errorf("--weeks must be positive, got %d", weeks)
			}
			printPhases(cmd.OutOrStdout(), planner.PlanPhases(weeks))
			return nil
		},
	}
	cmd.Flags().IntVarP(&weeks, "weeks", "w", 12, "total plan length in weeks")
	return cmd
}

func printPhases(w io.Writer, phases []planner.Phase) {
	for _, p := range phases {
		if len(p.Weeks) == 0 {
			continue
		}
		first, last := p.Weeks[0], p.Weeks[len(p.Weeks)-1]
		fmt.Fprintf(w, "%s  weeks %2d-%-2d  (%d)\n", phaseLabel(p.Name), first, last, len(p.Weeks))
	}
}
