package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/dealscout/dealscout/internal/dashboard"
	"github.com/dealscout/dealscout/internal/events"
	"github.com/dealscout/dealscout/internal/queue"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newStatusCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show device sync and pipeline status",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, gormDB, err := connectFromConfig(configPath)
			if err != nil {
				return err
			}
			summary, err := dashboard.StatusSummary(gormDB, queue.New(gormDB))
			if err != nil {
				return err
			}
			summary.Online = probeOnline(cmd.Context(), cfg)

			out := cmd.OutOrStdout()
			conn := "offline"
			if summary.Online {
				conn = "online"
			}
			fmt.Fprintf(out, "Connectivity: %s\n", conn)
			fmt.Fprintf(out, "Queued mutations: %d\n", summary.QueueDepth)
			if summary.Attention > 0 {
				fmt.Fprintf(out, "Needing review: %d (see: dealscout queue list)\n", summary.Attention)
			}
			if summary.Litigators > 0 {
				fmt.Fprintf(out, "Litigator-flagged leads: %d\n", summary.Litigators)
			}

			if len(summary.Pipeline) == 0 {
				fmt.Fprintln(out, "No active leads.")
				return nil
			}
			fmt.Fprintln(out, "\nPipeline:")
			w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			for _, status := range []string{"not_started", "in_progress", "contacted", "nurturing", "dead", "converted"} {
				if n, ok := summary.Pipeline[status]; ok {
					fmt.Fprintf(w, "%s\t%d\n", status, n)
				}
			}
			return w.Flush()
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "dealscout.yaml", "path to DealScout config file")
	return cmd
}

func newDrainCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "drain",
		Short: "Push queued mutations to the authoritative service now",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, gormDB, err := connectFromConfig(configPath)
			if err != nil {
				return err
			}
			engine, q, notifier, err := buildEngine(cfg, gormDB, events.NewBus(), zap.NewNop())
			if err != nil {
				return err
			}
			defer notifier.Close()

			out := cmd.OutOrStdout()
			depth, err := q.Depth()
			if err != nil {
				return err
			}
			if depth == 0 {
				fmt.Fprintln(out, "Queue is empty; nothing to drain.")
				return nil
			}

			stats, err := engine.Drain(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "Applied %d, rejected %d, stuck %d, deferred %d\n",
				stats.Applied, stats.Rejected, stats.Stuck, stats.Deferred)
			if stats.Rejected > 0 || stats.Stuck > 0 {
				fmt.Fprintln(out, "Some mutations need review: dealscout queue list")
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "dealscout.yaml", "path to DealScout config file")
	return cmd
}
