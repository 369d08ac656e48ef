package main

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/ellsworth/pantry/internal/events"
	"github.com/ellsworth/pantry/internal/models"
	"github.com/spf13/cobra"
)

func newEventsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "events",
		Short: "Browse volunteer events",
	}

	cmd.AddCommand(newEventsListCmd())
	return cmd
}

func newEventsListCmd() *cobra.Command {
	var (
		configPath string
		needID     string
		upcoming   bool
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List volunteer events with slot usage",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEventsList(cmd, configPath, needID, upcoming)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "pantry.yaml", "path to Pantry config file")
	cmd.Flags().StringVar(&needID, "need", "", "filter by need ID")
	cmd.Flags().BoolVar(&upcoming, "upcoming", false, "only events starting within 7 days")
	return cmd
}

func runEventsList(cmd *cobra.Command, configPath, needID string, upcomingOnly bool) error {
	out := cmd.OutOrStdout()

	_, gormDB, err := connectFromConfig(configPath)
	if err != nil {
		return err
	}

	var list []models.Event
	if upcomingOnly {
		list, err = events.Upcoming(gormDB, time.Now(), 7*24*time.Hour)
	} else {
		list, err = events.List(gormDB, needID)
	}
	if err != nil {
		return err
	}
	if len(list) == 0 {
		fmt.Fprintln(out, "No events found.")
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tTYPE\tSTART\tLOCATION\tSLOTS")
	for _, e := range list {
		slots := fmt.Sprintf("%d/%d", e.ConfirmedCount, e.VolunteerSlots)
		if e.Unlimited() {
			slots = fmt.Sprintf("%d/unlimited", e.ConfirmedCount)
		}
		location := e.Location
		if location == "" {
			location = "-"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
			e.ID, e.EventType, e.EventStart.Format("2006-01-02 15:04"), location, slots)
	}
	return w.Flush()
}
