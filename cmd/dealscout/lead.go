package main

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/dealscout/dealscout/internal/lead"
	"github.com/dealscout/dealscout/internal/reach"
	"github.com/spf13/cobra"
)

func newLeadCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "lead",
		Short: "Lead management commands",
	}

	cmd.AddCommand(newLeadAddCmd())
	cmd.AddCommand(newLeadListCmd())
	cmd.AddCommand(newLeadShowCmd())
	cmd.AddCommand(newLeadArchiveCmd())
	cmd.AddCommand(newLeadAckCmd())
	return cmd
}

func newLeadAddCmd() *cobra.Command {
	var (
		configPath string
		address    string
		owner      string
	)

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Capture a new lead",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, gormDB, err := connectFromConfig(configPath)
			if err != nil {
				return err
			}
			l, err := lead.Create(gormDB, lead.CreateOpts{Address: address, OwnerName: owner})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created lead %s\n", l.LeadID)
			fmt.Fprintf(cmd.OutOrStdout(), "Address: %s\n", l.Address)
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "dealscout.yaml", "path to DealScout config file")
	cmd.Flags().StringVar(&address, "address", "", "property address (required)")
	cmd.Flags().StringVar(&owner, "owner", "", "owner name, if known")
	cmd.MarkFlagRequired("address")
	return cmd
}

func newLeadListCmd() *cobra.Command {
	var (
		configPath string
		status     string
		archived   bool
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List leads",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, gormDB, err := connectFromConfig(configPath)
			if err != nil {
				return err
			}
			leads, err := lead.List(gormDB, lead.ListFilters{Status: status, Archived: archived})
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(leads) == 0 {
				fmt.Fprintln(out, "No leads found.")
				return nil
			}
			w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tADDRESS\tSTATUS\tFLAGS")
			for _, l := range leads {
				flags := "-"
				if l.IsLitigator {
					flags = "litigator"
					if l.LitigatorAckRequired {
						flags += " (ack required)"
					}
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", l.LeadID, l.Address, l.ReachStatus, flags)
			}
			return w.Flush()
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "dealscout.yaml", "path to DealScout config file")
	cmd.Flags().StringVar(&status, "status", "", "filter by reach status")
	cmd.Flags().BoolVar(&archived, "archived", false, "show archived leads instead of active ones")
	return cmd
}

func newLeadShowCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "show <lead-id>",
		Short: "Show a lead with its interaction history",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, gormDB, err := connectFromConfig(configPath)
			if err != nil {
				return err
			}
			l, err := lead.Get(gormDB, args[0])
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Lead:    %s\n", l.LeadID)
			fmt.Fprintf(out, "Address: %s\n", l.Address)
			if l.OwnerName != "" {
				fmt.Fprintf(out, "Owner:   %s\n", l.OwnerName)
			}
			fmt.Fprintf(out, "Status:  %s\n", l.ReachStatus)
			if l.SkipTracedAt != nil {
				fmt.Fprintf(out, "Traced:  %s\n", l.SkipTracedAt.Format(time.RFC3339))
			}
			if l.IsLitigator {
				fmt.Fprintf(out, "WARNING: flagged as litigator (score %.2f)\n", l.LitigatorScore)
				if l.LitigatorAckRequired {
					fmt.Fprintln(out, "Outreach is blocked until acknowledged: dealscout lead ack "+l.LeadID)
				}
			}

			if len(l.Interactions) == 0 {
				return nil
			}
			fmt.Fprintln(out, "\nInteractions:")
			w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "STARTED\tTYPE\tOUTCOME\tNOTES")
			for _, i := range l.Interactions {
				outcome := "(open)"
				if i.Outcome != nil {
					outcome = *i.Outcome
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\n",
					i.StartedAt.Format("2006-01-02 15:04"), i.Type, outcome, i.Notes)
			}
			return w.Flush()
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "dealscout.yaml", "path to DealScout config file")
	return cmd
}

func newLeadArchiveCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "archive <lead-id>",
		Short: "Archive a lead",
		Long:  "Soft-archives a lead. Leads are never deleted; archived leads drop out of listings.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, gormDB, err := connectFromConfig(configPath)
			if err != nil {
				return err
			}
			if err := reach.Archive(gormDB, args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Archived lead %s\n", args[0])
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "dealscout.yaml", "path to DealScout config file")
	return cmd
}

func newLeadAckCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "ack <lead-id>",
		Short: "Acknowledge a lead's litigator warning",
		Long:  "Clears the litigator gate so outreach to the lead can proceed.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, gormDB, err := connectFromConfig(configPath)
			if err != nil {
				return err
			}
			if err := reach.AcknowledgeLitigator(gormDB, args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Acknowledged litigator warning for %s\n", args[0])
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "dealscout.yaml", "path to DealScout config file")
	return cmd
}
