package main

import (
	"fmt"
	"time"

	"github.com/ellsworth/pantry/internal/reminder"
	"github.com/ellsworth/pantry/internal/urgency"
	"github.com/spf13/cobra"
)

func newRemindCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "remind",
		Short: "Run reminder passes on demand",
	}

	cmd.AddCommand(newRemindDigestCmd())
	cmd.AddCommand(newRemindUrgencyCmd())
	return cmd
}

func newRemindDigestCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "digest",
		Short: "Send the upcoming-events digest now",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRemindDigest(cmd, configPath)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "pantry.yaml", "path to Pantry config file")
	return cmd
}

func runRemindDigest(cmd *cobra.Command, configPath string) error {
	out := cmd.OutOrStdout()

	cfg, gormDB, err := connectFromConfig(configPath)
	if err != nil {
		return err
	}

	notifier, err := buildNotifier(cfg.Notify)
	if err != nil {
		return err
	}
	defer notifier.Close()

	lookahead := time.Duration(cfg.Reminders.LookaheadDays) * 24 * time.Hour
	if err := reminder.SendDigest(gormDB, notifier, time.Now(), lookahead); err != nil {
		return err
	}
	fmt.Fprintln(out, "Digest sent.")
	return nil
}

func newRemindUrgencyCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "urgency",
		Short: "Recompute cached urgency scores now",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRemindUrgency(cmd, configPath)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "pantry.yaml", "path to Pantry config file")
	return cmd
}

func runRemindUrgency(cmd *cobra.Command, configPath string) error {
	out := cmd.OutOrStdout()

	_, gormDB, err := connectFromConfig(configPath)
	if err != nil {
		return err
	}

	updated, err := urgency.Recompute(gormDB, time.Now())
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "Updated urgency scores for %d needs\n", updated)
	return nil
}
