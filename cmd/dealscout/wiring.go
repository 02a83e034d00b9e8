package main

import (
	"context"
	"fmt"

	"github.com/dealscout/dealscout/internal/config"
	"github.com/dealscout/dealscout/internal/connectivity"
	"github.com/dealscout/dealscout/internal/db"
	"github.com/dealscout/dealscout/internal/events"
	"github.com/dealscout/dealscout/internal/notify"
	"github.com/dealscout/dealscout/internal/notify/discord"
	"github.com/dealscout/dealscout/internal/notify/slack"
	"github.com/dealscout/dealscout/internal/queue"
	"github.com/dealscout/dealscout/internal/remote"
	"github.com/dealscout/dealscout/internal/syncer"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func connectFromConfig(configPath string) (*config.Config, *gorm.DB, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}

	gormDB, err := db.Open(cfg.Storage)
	if err != nil {
		return nil, nil, err
	}
	return cfg, gormDB, nil
}

// buildEngine wires the sync engine with a real remote client and whatever
// notify adapters the config enables.
func buildEngine(cfg *config.Config, gormDB *gorm.DB, bus *events.Bus, logger *zap.Logger) (*syncer.Engine, *queue.Store, *notify.Notifier, error) {
	notifier, err := buildNotifier(cfg, bus, logger)
	if err != nil {
		return nil, nil, nil, err
	}

	q := queue.New(gormDB)
	client := remote.NewClient(cfg.Remote.BaseURL, cfg.Remote.APIKey, cfg.RemoteTimeout(), logger)
	engine, err := syncer.New(syncer.Options{
		DB:          gormDB,
		Queue:       q,
		Remote:      client,
		Bus:         bus,
		Alerts:      notifier,
		Logger:      logger,
		BackoffBase: cfg.BackoffBase(),
		BackoffCap:  cfg.BackoffCap(),
		MaxAttempts: cfg.Sync.MaxAttempts,
	})
	if err != nil {
		notifier.Close()
		return nil, nil, nil, err
	}
	return engine, q, notifier, nil
}

// buildNotifier assembles the notifier from configured adapters and
// subscribes it to bus events.
func buildNotifier(cfg *config.Config, bus *events.Bus, logger *zap.Logger) (*notify.Notifier, error) {
	var adapters []notify.Adapter
	if cfg.Notify.Slack.Token != "" {
		a, err := slack.New(slack.AdapterOpts{
			BotToken:  cfg.Notify.Slack.Token,
			ChannelID: cfg.Notify.Slack.Channel,
		})
		if err != nil {
			return nil, err
		}
		adapters = append(adapters, a)
	}
	if cfg.Notify.Discord.Token != "" {
		a, err := discord.New(discord.AdapterOpts{
			BotToken:  cfg.Notify.Discord.Token,
			ChannelID: cfg.Notify.Discord.ChannelID,
		})
		if err != nil {
			return nil, err
		}
		adapters = append(adapters, a)
	}

	notifier := notify.New(logger, adapters...)
	if bus != nil {
		notifier.Attach(bus)
	}
	return notifier, nil
}

// probeOnline runs one connectivity check, for one-shot commands that
// don't keep a monitor around.
func probeOnline(ctx context.Context, cfg *config.Config) bool {
	probe := connectivity.HTTPProbe(cfg.Connectivity.ProbeURL, cfg.RemoteTimeout())
	return probe(ctx) == nil
}

func newLogger(verbose bool) (*zap.Logger, error) {
	if verbose {
		return zap.NewDevelopment()
	}
	cfg := zap.NewProductionConfig()
	cfg.DisableStacktrace = true
	return cfg.Build()
}
