package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"makermate/internal/estimating"
	"makermate/internal/storage"
)

var (
	planCategory   string
	planSize       string
	planQty        int
	planNotes      string
	planComplexity string

	planLicensingVersion string
	planLicensingSource  string
)

var planCmd = &cobra.Command{
	Use:   "plan",
	Short: "Edit the estimating worksheet",
	Long: `The estimating worksheet lists the components of a solution with a
T-shirt size and a quantity. Hours use XS=4, S=8, M=16, L=32 and XL=64 per unit.

Examples:
  makermate plan show
  makermate plan add "Custom connector" --size L --qty 2
  makermate plan set pp-flow-complex --qty 3
  makermate plan export plan.csv`,
}

var planShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the worksheet, totals and hours",
	Args:  cobra.NoArgs,
	RunE:  runPlanShow,
}

var planAddCmd = &cobra.Command{
	Use:   "add <component>",
	Short: "Add a worksheet line",
	Args:  cobra.ExactArgs(1),
	RunE:  runPlanAdd,
}

var planSetCmd = &cobra.Command{
	Use:   "set <id>",
	Short: "Change the size, quantity or notes of a line",
	Args:  cobra.ExactArgs(1),
	RunE:  runPlanSet,
}

var planRemoveCmd = &cobra.Command{
	Use:   "remove <id>",
	Short: "Remove a worksheet line",
	Args:  cobra.ExactArgs(1),
	RunE:  runPlanRemove,
}

var planExportCmd = &cobra.Command{
	Use:   "export [file]",
	Short: "Export the worksheet as CSV (stdout when no file is given)",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runPlanExport,
}

var planLicensingCmd = &cobra.Command{
	Use:   "licensing <file.json>",
	Short: "Replace the stored licensing dataset",
	Args:  cobra.ExactArgs(1),
	RunE:  runPlanLicensing,
}

func init() {
	rootCmd.AddCommand(planCmd)
	planCmd.AddCommand(planShowCmd, planAddCmd, planSetCmd, planRemoveCmd, planExportCmd, planLicensingCmd)

	planAddCmd.Flags().StringVar(&planCategory, "category", estimating.CategoryOther, "category")
	for _, c := range []*cobra.Command{planAddCmd, planSetCmd} {
		c.Flags().StringVar(&planSize, "size", "", "T-shirt size (XS, S, M, L, XL)")
		c.Flags().IntVar(&planQty, "qty", 1, "quantity")
		c.Flags().StringVar(&planNotes, "notes", "", "notes")
		c.Flags().StringVar(&planComplexity, "complexity", "", "complexity")
	}

	planLicensingCmd.Flags().StringVar(&planLicensingVersion, "version", "", "version tag of the dataset")
	planLicensingCmd.Flags().StringVar(&planLicensingSource, "source", "", "URL the dataset came from")
}

func parseSize(s string) (estimating.Size, error) {
	size := estimating.Size(strings.ToUpper(strings.TrimSpace(s)))
	if !size.Valid() {
		return "", fmt.Errorf("invalid size %q (want XS, S, M, L or XL)", s)
	}
	return size, nil
}

func runPlanShow(cmd *cobra.Command, args []string) error {
	ctx := contextOf(cmd)
	out := cmd.OutOrStdout()
	return withStore(func(store storage.Store) error {
		st := estimating.NewStore(ctx, store).State()

		tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "ID\tCATEGORY\tCOMPONENT\tSIZE\tQTY\tNOTES")
		for _, it := range st.PlanningItems {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\t%s\n", it.ID, it.Category, it.Component, it.Size, it.Qty, it.Notes)
		}
		if err := tw.Flush(); err != nil {
			return err
		}

		fmt.Fprintln(out, "\nTotals:")
		for _, t := range estimating.Totals(st.PlanningItems) {
			if t.Qty == 0 {
				continue
			}
			fmt.Fprintf(out, "  %s (%s) x%d\n", t.Component, t.Size, t.Qty)
		}
		fmt.Fprintf(out, "\nEstimated hours: %g\n", estimating.TotalHours(st.PlanningItems, estimating.DefaultHours()))

		if l := st.Licensing; l != nil {
			fmt.Fprintf(out, "Licensing dataset: %s (%s, fetched %s)\n", l.VersionTag, l.SourceURL, l.FetchedAt)
		}
		return nil
	})
}

func runPlanAdd(cmd *cobra.Command, args []string) error {
	item := estimating.PlanItem{
		Category:   planCategory,
		Component:  args[0],
		Complexity: planComplexity,
		Qty:        planQty,
		Notes:      planNotes,
	}
	if planSize != "" {
		size, err := parseSize(planSize)
		if err != nil {
			return err
		}
		item.Size = size
	}

	ctx := contextOf(cmd)
	return withStore(func(store storage.Store) error {
		added := estimating.NewStore(ctx, store).AddItem(ctx, item)
		fmt.Fprintf(cmd.OutOrStdout(), "Added %s (%s x%d)\n", added.ID, added.Size, added.Qty)
		return nil
	})
}

func runPlanSet(cmd *cobra.Command, args []string) error {
	ctx := contextOf(cmd)
	return withStore(func(store storage.Store) error {
		es := estimating.NewStore(ctx, store)

		var item estimating.PlanItem
		found := false
		for _, it := range es.State().PlanningItems {
			if it.ID == args[0] {
				item, found = it, true
				break
			}
		}
		if !found {
			return fmt.Errorf("%w: %s", estimating.ErrItemNotFound, args[0])
		}

		flags := cmd.Flags()
		if flags.Changed("size") {
			size, err := parseSize(planSize)
			if err != nil {
				return err
			}
			item.Size = size
		}
		if flags.Changed("qty") {
			item.Qty = planQty
		}
		if flags.Changed("notes") {
			item.Notes = planNotes
		}
		if flags.Changed("complexity") {
			item.Complexity = planComplexity
		}

		if err := es.UpdateItem(ctx, item); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Updated %s (%s x%d)\n", item.ID, item.Size, item.Qty)
		return nil
	})
}

func runPlanRemove(cmd *cobra.Command, args []string) error {
	ctx := contextOf(cmd)
	return withStore(func(store storage.Store) error {
		if err := estimating.NewStore(ctx, store).RemoveItem(ctx, args[0]); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Removed %s\n", args[0])
		return nil
	})
}

func runPlanExport(cmd *cobra.Command, args []string) error {
	ctx := contextOf(cmd)
	return withStore(func(store storage.Store) error {
		items := estimating.NewStore(ctx, store).State().PlanningItems
		if len(args) == 0 {
			return estimating.ExportCSV(cmd.OutOrStdout(), items)
		}
		f, err := os.Create(args[0])
		if err != nil {
			return err
		}
		if err := estimating.ExportCSV(f, items); err != nil {
			f.Close()
			return err
		}
		if err := f.Close(); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Exported %d lines to %s\n", len(items), args[0])
		return nil
	})
}

func runPlanLicensing(cmd *cobra.Command, args []string) error {
	raw, err := os.ReadFile(args[0])
	if err != nil {
		return err
	}
	if !json.Valid(raw) {
		return fmt.Errorf("%s is not valid JSON", args[0])
	}

	ds := &estimating.LicensingDataset{
		VersionTag: planLicensingVersion,
		SourceURL:  planLicensingSource,
		FetchedAt:  time.Now().UTC().Format(time.RFC3339),
		Data:       json.RawMessage(raw),
	}
	ctx := contextOf(cmd)
	return withStore(func(store storage.Store) error {
		estimating.NewStore(ctx, store).SetLicensing(ctx, ds)
		fmt.Fprintf(cmd.OutOrStdout(), "Stored licensing dataset (%d bytes)\n", len(raw))
		return nil
	})
}
