package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/dealscout/dealscout/internal/queue"
	"github.com/spf13/cobra"
)

func newQueueCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "queue",
		Short: "Inspect and manage the pending mutation queue",
	}

	cmd.AddCommand(newQueueListCmd())
	cmd.AddCommand(newQueueRetryCmd())
	cmd.AddCommand(newQueueDiscardCmd())
	return cmd
}

func newQueueListCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List queued mutations",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, gormDB, err := connectFromConfig(configPath)
			if err != nil {
				return err
			}
			muts, err := queue.New(gormDB).List()
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(muts) == 0 {
				fmt.Fprintln(out, "Queue is empty.")
				return nil
			}
			w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tLEAD\tKIND\tSTATUS\tATTEMPTS\tLAST ERROR")
			for _, m := range muts {
				lastErr := m.LastError
				if len(lastErr) > 60 {
					lastErr = lastErr[:57] + "..."
				}
				if lastErr == "" {
					lastErr = "-"
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\t%s\n",
					m.MutationID, m.LeadID, m.Kind, m.Status, m.AttemptCount, lastErr)
			}
			return w.Flush()
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "dealscout.yaml", "path to DealScout config file")
	return cmd
}

func newQueueRetryCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "retry <mutation-id>",
		Short: "Requeue a failed or stuck mutation",
		Long:  "Puts a mutation that failed or hit the retry ceiling back in the queue with a fresh attempt budget.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, gormDB, err := connectFromConfig(configPath)
			if err != nil {
				return err
			}
			if err := queue.New(gormDB).Retry(args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Requeued %s; it will go out on the next drain\n", args[0])
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "dealscout.yaml", "path to DealScout config file")
	return cmd
}

func newQueueDiscardCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "discard <mutation-id>",
		Short: "Discard a queued mutation",
		Long: "Removes a mutation from the queue. Note this does not undo the\n" +
			"optimistic local change, and a mutation already accepted by the\n" +
			"server stays applied there.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, gormDB, err := connectFromConfig(configPath)
			if err != nil {
				return err
			}
			if err := queue.New(gormDB).Discard(args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Discarded %s\n", args[0])
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "dealscout.yaml", "path to DealScout config file")
	return cmd
}
