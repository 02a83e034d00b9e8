package main

import (
	"fmt"

	"github.com/dealscout/dealscout/internal/config"
	"github.com/dealscout/dealscout/internal/db"
	"github.com/spf13/cobra"
)

func newInitCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Initialize the local DealScout store",
		Long:  "Opens the configured local store and migrates all tables.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInit(cmd, configPath)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "dealscout.yaml", "path to DealScout config file")
	return cmd
}

func runInit(cmd *cobra.Command, configPath string) error {
	out := cmd.OutOrStdout()

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	fmt.Fprintf(out, "Loaded config for device %q (tenant %q)\n", cfg.DeviceID, cfg.Tenant)

	gormDB, err := db.Open(cfg.Storage)
	if err != nil {
		return err
	}
	switch cfg.Storage.Driver {
	case "sqlite":
		fmt.Fprintf(out, "Opened local store at %s\n", cfg.Storage.Path)
	default:
		fmt.Fprintf(out, "Connected to shared store %s\n", cfg.Storage.MySQL.Database)
	}

	if err := db.AutoMigrate(gormDB); err != nil {
		return err
	}
	fmt.Fprintf(out, "Migrated %d tables\n", len(db.AllModels()))
	return nil
}
