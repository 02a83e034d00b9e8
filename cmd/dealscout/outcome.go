package main

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dealscout/dealscout/internal/events"
	"github.com/dealscout/dealscout/internal/models"
	"github.com/dealscout/dealscout/internal/queue"
	"github.com/dealscout/dealscout/internal/reach"
	"github.com/dealscout/dealscout/internal/syncer"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newOutcomeCmd() *cobra.Command {
	var (
		configPath  string
		itype       string
		contactInfo string
		outcome     string
		notes       string
	)

	cmd := &cobra.Command{
		Use:   "outcome <lead-id>",
		Short: "Record an interaction outcome against a lead",
		Long: "Opens an interaction, records its outcome, and applies the reach\n" +
			"transition locally. The change syncs immediately when online and is\n" +
			"queued durably when not.\n\n" +
			"Outcomes: " + strings.Join(reach.Outcomes(), ", "),
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runOutcome(cmd, configPath, args[0], itype, contactInfo, outcome, notes)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "dealscout.yaml", "path to DealScout config file")
	cmd.Flags().StringVar(&itype, "type", "call", "interaction type (call, text, email)")
	cmd.Flags().StringVar(&contactInfo, "contact", "", "phone/email used")
	cmd.Flags().StringVar(&outcome, "outcome", "", "interaction outcome (required)")
	cmd.Flags().StringVar(&notes, "notes", "", "free-form notes")
	cmd.MarkFlagRequired("outcome")
	return cmd
}

func runOutcome(cmd *cobra.Command, configPath, leadID, itype, contactInfo, outcome, notes string) error {
	if !reach.KnownOutcome(outcome) {
		return fmt.Errorf("unknown outcome %q (valid: %s)", outcome, strings.Join(reach.Outcomes(), ", "))
	}

	cfg, gormDB, err := connectFromConfig(configPath)
	if err != nil {
		return err
	}
	bus := events.NewBus()
	engine, _, notifier, err := buildEngine(cfg, gormDB, bus, zap.NewNop())
	if err != nil {
		return err
	}
	defer notifier.Close()

	out := cmd.OutOrStdout()
	ctx := cmd.Context()

	interaction, err := reach.StartInteraction(gormDB, bus, leadID, itype, contactInfo)
	if errors.Is(err, reach.ErrLitigatorAckRequired) {
		return fmt.Errorf("lead %s is flagged as a litigator; acknowledge first: dealscout lead ack %s", leadID, leadID)
	}
	if err != nil {
		return err
	}

	res, err := reach.RecordOutcome(gormDB, bus, leadID, interaction.InteractionID, outcome, notes)
	if err != nil {
		return err
	}
	if res.StatusChanged {
		fmt.Fprintf(out, "Lead %s → %s\n", leadID, res.NewStatus)
	} else {
		fmt.Fprintf(out, "Recorded %s (status stays %s)\n", outcome, res.NewStatus)
	}

	kind := models.MutationInteractionOutcome
	if res.StatusChanged {
		kind = models.MutationReachTransition
	}
	payload := queue.OutcomePayload{
		LeadID:           leadID,
		InteractionID:    interaction.InteractionID,
		Outcome:          outcome,
		Notes:            notes,
		OptimisticStatus: res.NewStatus,
		RecordedAt:       time.Now(),
	}

	online := probeOnline(ctx, cfg)
	mutationID, err := engine.Submit(ctx, online, leadID, kind, payload)
	switch {
	case errors.Is(err, syncer.ErrPendingSync):
		fmt.Fprintf(out, "Offline; queued as %s, will sync when connectivity returns\n", mutationID)
		return nil
	case err != nil:
		return err
	default:
		fmt.Fprintln(out, "Synced")
		return nil
	}
}

func newNoteCmd() *cobra.Command {
	var (
		configPath string
		body       string
	)

	cmd := &cobra.Command{
		Use:   "note <lead-id>",
		Short: "Attach a note to a lead",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if strings.TrimSpace(body) == "" {
				return fmt.Errorf("note body is required")
			}
			cfg, gormDB, err := connectFromConfig(configPath)
			if err != nil {
				return err
			}
			engine, _, notifier, err := buildEngine(cfg, gormDB, events.NewBus(), zap.NewNop())
			if err != nil {
				return err
			}
			defer notifier.Close()

			ctx := cmd.Context()
			out := cmd.OutOrStdout()
			payload := queue.NotePayload{LeadID: args[0], Body: body, RecordedAt: time.Now()}

			online := probeOnline(ctx, cfg)
			mutationID, err := engine.Submit(ctx, online, args[0], models.MutationNoteCreate, payload)
			switch {
			case errors.Is(err, syncer.ErrPendingSync):
				fmt.Fprintf(out, "Offline; queued as %s\n", mutationID)
				return nil
			case err != nil:
				return err
			default:
				fmt.Fprintln(out, "Note synced")
				return nil
			}
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "dealscout.yaml", "path to DealScout config file")
	cmd.Flags().StringVar(&body, "body", "", "note text (required)")
	cmd.MarkFlagRequired("body")
	return cmd
}
