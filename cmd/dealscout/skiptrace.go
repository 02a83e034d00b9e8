package main

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/dealscout/dealscout/internal/events"
	"github.com/dealscout/dealscout/internal/models"
	"github.com/dealscout/dealscout/internal/remote"
	"github.com/dealscout/dealscout/internal/skiptrace"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newSkipTraceCmd() *cobra.Command {
	var (
		configPath string
		yes        bool
	)

	cmd := &cobra.Command{
		Use:   "skiptrace <lead-id>",
		Short: "Skip-trace a lead's contact information",
		Long: "Resolves owner contact info for a lead. Cached results are free and\n" +
			"returned immediately; a cache miss shows the provider cost and asks\n" +
			"for confirmation before any money is spent.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSkipTrace(cmd, configPath, args[0], yes)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "dealscout.yaml", "path to DealScout config file")
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "confirm the paid lookup without prompting")
	return cmd
}

func runSkipTrace(cmd *cobra.Command, configPath, leadID string, yes bool) error {
	cfg, gormDB, err := connectFromConfig(configPath)
	if err != nil {
		return err
	}
	bus := events.NewBus()
	notifier, err := buildNotifier(cfg, bus, zap.NewNop())
	if err != nil {
		return err
	}
	defer notifier.Close()

	client := remote.NewClient(cfg.Remote.BaseURL, cfg.Remote.APIKey, cfg.RemoteTimeout(), zap.NewNop())
	broker := skiptrace.New(gormDB, client, bus, zap.NewNop(), cfg.QuoteTTL())

	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	decision, err := broker.GetQuote(ctx, leadID)
	if err != nil {
		return err
	}

	if !decision.ConfirmationRequired() {
		fmt.Fprintf(out, "Resolved from %s cache (no charge)\n", tierLabel(decision.Result.CacheStatus))
		return printTrace(out, decision.Result)
	}

	quote := decision.Quote
	fmt.Fprintf(out, "No cached result for this address.\n")
	fmt.Fprintf(out, "Provider lookup: $%.2f (%d phones, %d emails on file)\n",
		quote.EstimatedCost, quote.PreviewPhones, quote.PreviewEmails)
	if quote.LitigatorHint {
		fmt.Fprintln(out, "Note: preliminary signals suggest the owner may be a litigator.")
	}

	if !yes {
		fmt.Fprint(out, "Proceed with paid lookup? [y/N]: ")
		reader := bufio.NewReader(cmd.InOrStdin())
		answer, _ := reader.ReadString('\n')
		if strings.ToLower(strings.TrimSpace(answer)) != "y" {
			if err := broker.Cancel(quote.QuoteID); err != nil {
				return err
			}
			fmt.Fprintln(out, "Cancelled; nothing was charged.")
			return nil
		}
	}

	result, err := broker.Confirm(ctx, quote.QuoteID)
	if errors.Is(err, remote.ErrQuoteExpired) {
		return fmt.Errorf("the quote expired; run skiptrace again for a fresh price")
	}
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "Traced (charged $%.2f)\n", result.Cost)
	return printTrace(out, result)
}

func tierLabel(cacheStatus string) string {
	switch cacheStatus {
	case models.CacheDevice:
		return "device"
	case models.CacheTenant:
		return "team"
	case models.CacheGlobal:
		return "global"
	default:
		return cacheStatus
	}
}

func printTrace(out io.Writer, r *models.SkipTraceResult) error {
	var phones, emails []string
	json.Unmarshal([]byte(r.Phones), &phones)
	json.Unmarshal([]byte(r.Emails), &emails)

	fmt.Fprintf(out, "Provider: %s\n", r.Provider)
	for _, p := range phones {
		fmt.Fprintf(out, "Phone: %s\n", p)
	}
	for _, e := range emails {
		fmt.Fprintf(out, "Email: %s\n", e)
	}
	if r.IsLitigator {
		fmt.Fprintf(out, "WARNING: owner flagged as litigator (score %.2f)\n", r.LitigatorScore)
		fmt.Fprintf(out, "Outreach is blocked until acknowledged: dealscout lead ack %s\n", r.LeadID)
	}
	return nil
}
