package main

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/ayusetu/setu/internal/alert"
	"github.com/ayusetu/setu/internal/alert/discord"
	"github.com/ayusetu/setu/internal/alert/slack"
	"github.com/ayusetu/setu/internal/config"
	"github.com/ayusetu/setu/internal/db"
	"github.com/ayusetu/setu/internal/digest"
	"github.com/ayusetu/setu/internal/engine"
	"github.com/ayusetu/setu/internal/server"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newServeCmd() *cobra.Command {
	var (
		configPath string
		port       int
		singleHop  bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the AyuSetu API server",
		Long:  "Serves the cascade RPC, batch queries, the SSE change feed and Prometheus metrics.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, configPath, port, singleHop)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "setu.yaml", "path to AyuSetu config file")
	cmd.Flags().IntVarP(&port, "port", "p", 0, "port to listen on (overrides config)")
	cmd.Flags().BoolVar(&singleHop, "single-hop-recall", false, "restrict recall cascade to direct link neighbors (legacy behavior)")
	return cmd
}

// buildNotifier creates an alert notifier from the configured channels.
func buildNotifier(cfg *config.Config) (*alert.Notifier, error) {
	var adapters []alert.Adapter
	if cfg.Alerts.Slack.BotToken != "" {
		adapters = append(adapters, slack.New(cfg.Alerts.Slack.BotToken, cfg.Alerts.Slack.ChannelID))
	}
	if cfg.Alerts.Discord.BotToken != "" {
		a, err := discord.New(cfg.Alerts.Discord.BotToken, cfg.Alerts.Discord.ChannelID)
		if err != nil {
			return nil, err
		}
		adapters = append(adapters, a)
	}
	return alert.NewNotifier(adapters...), nil
}

func runServe(cmd *cobra.Command, configPath string, port int, singleHop bool) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if port == 0 {
		port = cfg.Server.Port
	}

	dc := cfg.Database
	gormDB, err := db.Connect(dc.User, dc.Password, dc.Host, dc.Port, dc.Name)
	if err != nil {
		return err
	}

	logger, err := zap.NewProduction()
	if err != nil {
		return fmt.Errorf("create logger: %w", err)
	}
	defer logger.Sync()

	notifier, err := buildNotifier(cfg)
	if err != nil {
		return err
	}

	eng := engine.New(gormDB, engine.Options{
		Alerter:   notifier,
		SingleHop: singleHop,
		Logger:    logger,
	})

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.Alerts.DigestCron != "" {
		go func() {
			if err := digest.Run(ctx, gormDB, notifier, cfg.Alerts.DigestCron); err != nil {
				logger.Error("recall digest stopped", zap.Error(err))
			}
		}()
	}

	return server.Start(ctx, server.StartOpts{
		DB:     gormDB,
		Engine: eng,
		Port:   port,
		Logger: logger,
		Out:    cmd.OutOrStdout(),
	})
}
