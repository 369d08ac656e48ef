package main

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/ellsworth/pantry/internal/needs"
	"github.com/spf13/cobra"
)

func newNeedsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "needs",
		Short: "Browse community needs",
	}

	cmd.AddCommand(newNeedsListCmd())
	return cmd
}

func newNeedsListCmd() *cobra.Command {
	var (
		configPath string
		priority   string
		bundleTag  string
		openOnly   bool
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List needs ranked by urgency",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runNeedsList(cmd, configPath, needs.ListFilters{
				Priority:  priority,
				BundleTag: bundleTag,
				OpenOnly:  openOnly,
			})
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "pantry.yaml", "path to Pantry config file")
	cmd.Flags().StringVar(&priority, "priority", "", "filter by priority (normal, high, urgent)")
	cmd.Flags().StringVar(&bundleTag, "bundle", "", "filter by bundle tag")
	cmd.Flags().BoolVar(&openOnly, "open", false, "exclude fully funded needs")
	return cmd
}

func runNeedsList(cmd *cobra.Command, configPath string, filters needs.ListFilters) error {
	out := cmd.OutOrStdout()

	_, gormDB, err := connectFromConfig(configPath)
	if err != nil {
		return err
	}

	list, err := needs.List(gormDB, filters, time.Now())
	if err != nil {
		return err
	}
	if len(list) == 0 {
		fmt.Fprintln(out, "No needs found.")
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tTITLE\tPRI\tCOST\tFULFILLED\tBUNDLE\tNEEDED BY")
	for _, n := range list {
		neededBy := "-"
		if n.NeededBy != nil {
			neededBy = n.NeededBy.Format("2006-01-02")
		}
		bundle := n.BundleTag
		if bundle == "" {
			bundle = "-"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d/%d\t%s\t%s\n",
			n.ID, n.Title, n.Priority, n.Cost.StringFixed(2),
			n.QuantityFulfilled, n.Quantity, bundle, neededBy)
	}
	return w.Flush()
}
