package main

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/dealscout/dealscout/internal/connectivity"
	"github.com/dealscout/dealscout/internal/dashboard"
	"github.com/dealscout/dealscout/internal/events"
	"github.com/dealscout/dealscout/internal/queue"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newDaemonCmd() *cobra.Command {
	var (
		configPath string
		verbose    bool
	)

	cmd := &cobra.Command{
		Use:   "daemon",
		Short: "Run the sync daemon with the local dashboard",
		Long: "Watches connectivity, drains the mutation queue whenever the device\n" +
			"comes online (plus a scheduled safety-net drain), delivers operator\n" +
			"alerts, and serves the local dashboard. Runs until interrupted.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDaemon(cmd, configPath, verbose)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "dealscout.yaml", "path to DealScout config file")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "verbose logging")
	return cmd
}

func runDaemon(cmd *cobra.Command, configPath string, verbose bool) error {
	logger, err := newLogger(verbose)
	if err != nil {
		return fmt.Errorf("build logger: %w", err)
	}
	defer logger.Sync()

	cfg, gormDB, err := connectFromConfig(configPath)
	if err != nil {
		return err
	}

	bus := events.NewBus()
	engine, q, notifier, err := buildEngine(cfg, gormDB, bus, logger)
	if err != nil {
		return err
	}
	defer notifier.Close()

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	monitor := connectivity.NewMonitor(
		connectivity.HTTPProbe(cfg.Connectivity.ProbeURL, cfg.RemoteTimeout()),
		cfg.PollInterval(), cfg.Dwell(), logger)
	go monitor.Run(ctx)

	errCh := make(chan error, 2)
	go func() {
		errCh <- engine.Run(ctx, monitor, cfg.Sync.DrainSchedule)
	}()
	go func() {
		errCh <- dashboard.Start(ctx, dashboard.StartOpts{
			DB:     gormDB,
			Queue:  q,
			Bus:    bus,
			Online: monitor,
			Port:   cfg.Dashboard.Port,
			Logger: logger,
		})
	}()

	logger.Info("daemon started",
		zap.String("device_id", cfg.DeviceID),
		zap.String("tenant", cfg.Tenant),
		zap.Int("dashboard_port", cfg.Dashboard.Port))

	select {
	case <-ctx.Done():
		logger.Info("shutting down")
		return nil
	case err := <-errCh:
		return err
	}
}

func newDashboardCmd() *cobra.Command {
	var (
		configPath string
		port       int
	)

	cmd := &cobra.Command{
		Use:   "dashboard",
		Short: "Serve the local dashboard without the sync daemon",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, gormDB, err := connectFromConfig(configPath)
			if err != nil {
				return err
			}
			if port == 0 {
				port = cfg.Dashboard.Port
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			monitor := connectivity.NewMonitor(
				connectivity.HTTPProbe(cfg.Connectivity.ProbeURL, cfg.RemoteTimeout()),
				cfg.PollInterval(), cfg.Dwell(), zap.NewNop())
			go monitor.Run(ctx)

			fmt.Fprintf(cmd.OutOrStdout(), "Dashboard running at http://localhost:%d\n", port)
			return dashboard.Start(ctx, dashboard.StartOpts{
				DB:     gormDB,
				Queue:  queue.New(gormDB),
				Bus:    events.NewBus(),
				Online: monitor,
				Port:   port,
			})
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "dealscout.yaml", "path to DealScout config file")
	cmd.Flags().IntVarP(&port, "port", "p", 0, "port to listen on (default from config)")
	return cmd
}
