// Command planctl previews training schedules offline, using the same
// planner the server generates plans with. Nothing is persisted.
package main

import (
	"os"

	"github.com/spf13/cobra"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "planctl",
		Short:        "Preview race training schedules",
		SilenceUsage: true,
	}
	root.AddCommand(newPhasesCmd(), newPreviewCmd())
	return root
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
