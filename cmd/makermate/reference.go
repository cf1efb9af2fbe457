package main

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"makermate/internal/reference"
	"makermate/internal/storage"
)

var (
	roadmapQuery   string
	roadmapArea    string
	roadmapNotify  bool
	roadmapRefresh bool
)

var roadmapCmd = &cobra.Command{
	Use:   "roadmap",
	Short: "Browse the Power Platform roadmap",
	Long: `Show roadmap items with their due flags. Items due this month or in the
notify window before it are marked "!", items due in the notify window ahead
are marked "+".

Examples:
  makermate roadmap --area "Power Apps"
  makermate roadmap --query dataverse --notify
  makermate roadmap notify 3`,
	Args: cobra.NoArgs,
	RunE: runRoadmap,
}

var roadmapNotifyCmd = &cobra.Command{
	Use:   "notify [months]",
	Short: "Show or set the notify window in months",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runRoadmapNotify,
}

var roadmapAreasCmd = &cobra.Command{
	Use:   "areas",
	Short: "List roadmap areas",
	Args:  cobra.NoArgs,
	RunE:  runRoadmapAreas,
}

var snippetsCmd = &cobra.Command{
	Use:   "snippets [query]",
	Short: "Search Power Fx snippets",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runSnippets,
}

var resourcesCmd = &cobra.Command{
	Use:   "resources [query]",
	Short: "Search learning resources",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runResources,
}

func init() {
	rootCmd.AddCommand(roadmapCmd, snippetsCmd, resourcesCmd)
	roadmapCmd.AddCommand(roadmapNotifyCmd, roadmapAreasCmd)

	roadmapCmd.Flags().StringVar(&roadmapQuery, "query", "", "match title, area or status")
	roadmapCmd.Flags().StringVar(&roadmapArea, "area", "", "only this area")
	roadmapCmd.Flags().BoolVar(&roadmapNotify, "notify", false, "only items inside the notify window")
	roadmapCmd.PersistentFlags().BoolVar(&roadmapRefresh, "refresh", false, "ignore the cached roadmap")
}

func loadRoadmap(ctx context.Context, store storage.Store) ([]reference.RoadmapItem, string) {
	cache := reference.NewRoadmapCache(store, reference.RoadmapSourceFor(cfg.Reference.RoadmapURL))
	if roadmapRefresh {
		cache.Refresh(ctx)
		return cache.Items()
	}
	return cache.Load(ctx)
}

func runRoadmap(cmd *cobra.Command, args []string) error {
	ctx := contextOf(cmd)
	return withStore(func(store storage.Store) error {
		items, warning := loadRoadmap(ctx, store)
		if warning != "" {
			fmt.Fprintln(cmd.ErrOrStderr(), warning)
		}

		window := reference.NotifyWindow(ctx, store)
		annotated := reference.Annotate(reference.FilterRoadmap(items, roadmapQuery, roadmapArea), time.Now(), window)

		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "\tDUE\tAREA\tSTATUS\tTITLE")
		shown := 0
		for _, it := range annotated {
			flag := ""
			switch {
			case it.DueThisOrPrev:
				flag = "!"
			case it.DueSoon:
				flag = "+"
			}
			if roadmapNotify && flag == "" {
				continue
			}
			due := it.Due
			if t, ok := it.DueTime(); ok {
				due = t.Format("2006-01-02")
			}
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", flag, due, it.Area, it.Status, it.Title)
			shown++
		}
		if err := tw.Flush(); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "\n%d items (notify window: %d months)\n", shown, window)
		return nil
	})
}

func runRoadmapNotify(cmd *cobra.Command, args []string) error {
	ctx := contextOf(cmd)
	return withStore(func(store storage.Store) error {
		if len(args) == 0 {
			fmt.Fprintf(cmd.OutOrStdout(), "Notify window: %d months\n", reference.NotifyWindow(ctx, store))
			return nil
		}
		months, err := strconv.Atoi(args[0])
		if err != nil || months < 0 {
			return fmt.Errorf("invalid month count %q", args[0])
		}
		reference.SetNotifyWindow(ctx, store, months)
		fmt.Fprintf(cmd.OutOrStdout(), "Notify window: %d months\n", months)
		return nil
	})
}

func runRoadmapAreas(cmd *cobra.Command, args []string) error {
	ctx := contextOf(cmd)
	return withStore(func(store storage.Store) error {
		items, warning := loadRoadmap(ctx, store)
		if warning != "" {
			fmt.Fprintln(cmd.ErrOrStderr(), warning)
		}
		for _, a := range reference.Areas(items) {
			fmt.Fprintln(cmd.OutOrStdout(), a)
		}
		return nil
	})
}

func queryArg(args []string) string {
	if len(args) == 0 {
		return ""
	}
	return args[0]
}

func runSnippets(cmd *cobra.Command, args []string) error {
	list, warning := reference.DefaultFetcher().LoadSnippets(contextOf(cmd), cfg.Reference.SnippetsURL)
	if warning != "" {
		fmt.Fprintln(cmd.ErrOrStderr(), warning)
	}
	out := cmd.OutOrStdout()
	for _, s := range reference.SearchSnippets(list, queryArg(args)) {
		fmt.Fprintf(out, "## %s [%s]\n", s.Title, strings.Join(s.Tags, ", "))
		if s.Explanation != "" {
			fmt.Fprintln(out, s.Explanation)
		}
		fmt.Fprintf(out, "\n%s\n\n", strings.TrimRight(s.Code, "\n"))
	}
	return nil
}

func runResources(cmd *cobra.Command, args []string) error {
	list, warning := reference.DefaultFetcher().LoadResources(contextOf(cmd), cfg.Reference.ResourcesURL)
	if warning != "" {
		fmt.Fprintln(cmd.ErrOrStderr(), warning)
	}
	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "TYPE\tTITLE\tURL")
	for _, r := range reference.SearchResources(list, queryArg(args)) {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", r.Type, r.Title, r.URL)
	}
	return tw.Flush()
}
