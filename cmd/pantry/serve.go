package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ellsworth/pantry/internal/api"
	"github.com/ellsworth/pantry/internal/config"
	"github.com/ellsworth/pantry/internal/notify"
	"github.com/ellsworth/pantry/internal/notify/discord"
	"github.com/ellsworth/pantry/internal/notify/slack"
	"github.com/ellsworth/pantry/internal/reminder"
	"github.com/spf13/cobra"
)

func newServeCmd() *cobra.Command {
	var (
		configPath string
		port       int
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the Pantry API server",
		Long:  "Launches the JSON API and the background reminder loop.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, configPath, port)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "pantry.yaml", "path to Pantry config file")
	cmd.Flags().IntVarP(&port, "port", "p", 0, "port to listen on (overrides config)")
	return cmd
}

func runServe(cmd *cobra.Command, configPath string, port int) error {
	out := cmd.OutOrStdout()

	cfg, gormDB, err := connectFromConfig(configPath)
	if err != nil {
		return err
	}
	if port == 0 {
		port = cfg.Server.Port
	}

	notifier, err := buildNotifier(cfg.Notify)
	if err != nil {
		return err
	}
	defer notifier.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		fmt.Fprintf(out, "\nReceived %s, shutting down...\n", sig)
		cancel()
	}()

	// Reminder loop runs alongside the API server; both stop on cancel.
	go func() {
		err := reminder.Run(ctx, reminder.Opts{
			DB:          gormDB,
			Notifier:    notifier,
			DigestCron:  cfg.Reminders.DigestCron,
			UrgencyCron: cfg.Reminders.UrgencyCron,
			Lookahead:   time.Duration(cfg.Reminders.LookaheadDays) * 24 * time.Hour,
			Out:         out,
		})
		if err != nil {
			fmt.Fprintf(out, "reminder loop: %v\n", err)
		}
	}()

	return api.Start(ctx, api.StartOpts{
		DB:   gormDB,
		Port: port,
		Out:  out,
	})
}

// buildNotifier assembles the chat fanout from whichever platforms are
// configured. With no tokens set it is an empty fanout that sends nowhere.
func buildNotifier(nc config.NotifyConfig) (*notify.Fanout, error) {
	var adapters []notify.Adapter

	if nc.SlackBotToken != "" {
		a, err := slack.New(slack.AdapterOpts{
			BotToken:  nc.SlackBotToken,
			ChannelID: nc.SlackChannel,
		})
		if err != nil {
			return nil, fmt.Errorf("slack adapter: %w", err)
		}
		adapters = append(adapters, a)
	}

	if nc.DiscordBotToken != "" {
		a, err := discord.New(discord.AdapterOpts{
			BotToken:  nc.DiscordBotToken,
			ChannelID: nc.DiscordChannelID,
		})
		if err != nil {
			return nil, fmt.Errorf("discord adapter: %w", err)
		}
		adapters = append(adapters, a)
	}

	return notify.NewFanout(adapters...), nil
}
