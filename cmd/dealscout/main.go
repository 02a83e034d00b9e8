package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Version info set via ldflags at build time.
var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "dealscout",
		Short: "DealScout: offline-first lead outreach for field acquisitions",
		Long: "DealScout tracks property leads through the outreach pipeline,\n" +
			"queues every change while offline, and syncs against the\n" +
			"authoritative service when connectivity returns.",
	}

	cmd.AddCommand(newVersionCmd())
	cmd.AddCommand(newInitCmd())
	cmd.AddCommand(newLeadCmd())
	cmd.AddCommand(newOutcomeCmd())
	cmd.AddCommand(newNoteCmd())
	cmd.AddCommand(newSkipTraceCmd())
	cmd.AddCommand(newQueueCmd())
	cmd.AddCommand(newDrainCmd())
	cmd.AddCommand(newStatusCmd())
	cmd.AddCommand(newDaemonCmd())
	cmd.AddCommand(newDashboardCmd())
	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "dealscout %s (commit: %s, built: %s)\n", Version, Commit, Date)
		},
	}
}

func execute(cmd *cobra.Command) int {
	if err := cmd.Execute(); err != nil {
		return 1
	}
	return 0
}

func main() {
	os.Exit(execute(newRootCmd()))
}
