package main

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"makermate/internal/aiclient"
	"makermate/internal/requirements"
	"makermate/internal/settings"
	"makermate/internal/solution"
	"makermate/internal/storage"
)

var (
	hldDocs []string

	templateURL         string
	templateDescription string
	templateTags        []string
	templateUploaded    bool
)

var saCmd = &cobra.Command{
	Use:   "sa",
	Short: "Solution architecture workspace: HLD, ERD, options and ARM catalog",
	Long: `Draft and keep the artifacts of a solution next to its requirements.
Drafts are requested from the makermate server (see --server) and stored
locally.

Examples:
  makermate sa hld "Expense approvals for 2,000 staff" --doc notes.md
  makermate sa erd "Customers place orders with line items"
  makermate sa options
  makermate sa catalog add "Key Vault" --url https://example.com/kv.json --tags security`,
}

var saHLDCmd = &cobra.Command{
	Use:   "hld <brief>",
	Short: "Draft and store a high-level design",
	Args:  cobra.ExactArgs(1),
	RunE:  runSAHLD,
}

var saERDCmd = &cobra.Command{
	Use:   "erd <description>",
	Short: "Draft and store an entity model",
	Args:  cobra.ExactArgs(1),
	RunE:  runSAERD,
}

var saOptionsCmd = &cobra.Command{
	Use:   "options",
	Short: "Draft Power Platform and Azure options for every stored requirement",
	Args:  cobra.NoArgs,
	RunE:  runSAOptions,
}

var saShowCmd = &cobra.Command{
	Use:       "show <hld|erd|options>",
	Short:     "Print a stored artifact",
	Args:      cobra.ExactArgs(1),
	ValidArgs: []string{"hld", "erd", "options"},
	RunE:      runSAShow,
}

var saCatalogCmd = &cobra.Command{
	Use:   "catalog",
	Short: "Manage the ARM template catalog",
	Args:  cobra.NoArgs,
	RunE:  runSACatalogList,
}

var saCatalogAddCmd = &cobra.Command{
	Use:   "add <title>",
	Short: "Add a template to the catalog",
	Args:  cobra.ExactArgs(1),
	RunE:  runSACatalogAdd,
}

var saCatalogRemoveCmd = &cobra.Command{
	Use:   "remove <id>",
	Short: "Remove a template from the catalog",
	Args:  cobra.ExactArgs(1),
	RunE:  runSACatalogRemove,
}

func init() {
	rootCmd.AddCommand(saCmd)
	saCmd.AddCommand(saHLDCmd, saERDCmd, saOptionsCmd, saShowCmd, saCatalogCmd)
	saCatalogCmd.AddCommand(saCatalogAddCmd, saCatalogRemoveCmd)

	saHLDCmd.Flags().StringSliceVar(&hldDocs, "doc", nil, "supporting document to send with the brief (repeatable)")

	saCatalogAddCmd.Flags().StringVar(&templateURL, "url", "", "template URL")
	saCatalogAddCmd.Flags().StringVar(&templateDescription, "description", "", "description")
	saCatalogAddCmd.Flags().StringSliceVar(&templateTags, "tags", nil, "comma-separated tags")
	saCatalogAddCmd.Flags().BoolVar(&templateUploaded, "uploaded", false, "mark as an uploaded template")
}

func runSAHLD(cmd *cobra.Command, args []string) error {
	req := solution.HLDRequest{Brief: args[0]}
	for _, path := range hldDocs {
		b, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		req.Docs = append(req.Docs, string(b))
	}

	ctx := contextOf(cmd)
	draft, err := newAIClient().HLDDraft(ctx, req)
	if err != nil {
		return fmt.Errorf("draft HLD: %w", err)
	}
	return withStore(func(store storage.Store) error {
		solution.NewWorkspace(store).SaveHLD(ctx, draft)
		printHLD(cmd, draft)
		return nil
	})
}

func runSAERD(cmd *cobra.Command, args []string) error {
	ctx := contextOf(cmd)
	draft, err := newAIClient().ERDDraft(ctx, solution.ERDRequest{Description: args[0]})
	if err != nil {
		return fmt.Errorf("draft ERD: %w", err)
	}
	return withStore(func(store storage.Store) error {
		solution.NewWorkspace(store).SaveERD(ctx, draft)
		printERD(cmd, draft)
		return nil
	})
}

func runSAOptions(cmd *cobra.Command, args []string) error {
	ctx := contextOf(cmd)
	return withStore(func(store storage.Store) error {
		reqs := requirements.NewRepository(store).List(ctx)
		if len(reqs) == 0 {
			return fmt.Errorf("no requirements stored; run 'makermate requirements import' first")
		}

		rc := settings.NewResolver(store).ResolveConfig(ctx, settings.ProcessRequirements)
		secrets, err := secretStore(ctx, store)
		if err != nil {
			return err
		}

		items, err := newAIClient().GenerateOptions(ctx, solution.GenerateRequest{
			Requirements: requirements.Inputs(reqs),
			Provider:     string(rc.Provider),
			Model:        rc.Model,
			SystemPrompt: rc.Prompt,
			APIKey:       secrets.Get(ctx, apiKeySecret(rc.Provider), ""),
		})
		var se *aiclient.StatusError
		if errors.As(err, &se) && se.StatusCode == http.StatusUnauthorized {
			return fmt.Errorf("no API key for %s; run 'makermate secrets set %s <key>'", rc.Provider, rc.Provider)
		}
		if err != nil {
			return fmt.Errorf("generate options: %w", err)
		}

		stored := solution.NewWorkspace(store).SaveOptions(ctx, items)
		fmt.Fprintf(cmd.OutOrStdout(), "Drafted options for %d requirements (%d stored)\n", len(items), len(stored))
		return nil
	})
}

func runSAShow(cmd *cobra.Command, args []string) error {
	ctx := contextOf(cmd)
	return withStore(func(store storage.Store) error {
		ws := solution.NewWorkspace(store)
		switch args[0] {
		case "hld":
			d, ok := ws.HLD(ctx)
			if !ok {
				return fmt.Errorf("no HLD stored; run 'makermate sa hld'")
			}
			printHLD(cmd, d)
		case "erd":
			d, ok := ws.ERD(ctx)
			if !ok {
				return fmt.Errorf("no ERD stored; run 'makermate sa erd'")
			}
			printERD(cmd, d)
		case "options":
			out := cmd.OutOrStdout()
			for _, it := range ws.Options(ctx) {
				fmt.Fprintf(out, "%s\n", it.RequirementID)
				for _, o := range it.Options {
					fmt.Fprintf(out, "  %-14s %s\n", o.OptionType, o.ArchitectureSummary)
				}
			}
		default:
			return fmt.Errorf("unknown artifact %q (want hld, erd or options)", args[0])
		}
		return nil
	})
}

func printHLD(cmd *cobra.Command, d solution.HLDDraft) {
	fmt.Fprintf(cmd.OutOrStdout(), "%s\n\n```mermaid\n%s\n```\n", d.Narrative, d.MermaidCode)
}

func printERD(cmd *cobra.Command, d solution.ERDDraft) {
	out := cmd.OutOrStdout()
	for _, e := range d.Entities {
		fmt.Fprintln(out, e.Name)
		for _, f := range d.Fields {
			if f.EntityID != e.ID {
				continue
			}
			req := ""
			if f.Required {
				req = " (required)"
			}
			fmt.Fprintf(out, "  %s %s%s\n", f.Name, f.Type, req)
		}
	}
	fmt.Fprintf(out, "\n```mermaid\n%s\n```\n", d.MermaidCode)
}

func runSACatalogList(cmd *cobra.Command, args []string) error {
	ctx := contextOf(cmd)
	return withStore(func(store storage.Store) error {
		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "ID\tTITLE\tSOURCE\tTAGS\tURL")
		for _, t := range solution.NewWorkspace(store).Catalog(ctx) {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", t.ID, t.Title, t.Source, strings.Join(t.Tags, ","), t.TemplateURL)
		}
		return tw.Flush()
	})
}

func runSACatalogAdd(cmd *cobra.Command, args []string) error {
	t := solution.ArmTemplate{
		Title:       args[0],
		Description: templateDescription,
		TemplateURL: templateURL,
		Tags:        templateTags,
	}
	if templateUploaded {
		t.Source = solution.TemplateFromUpload
	}
	ctx := contextOf(cmd)
	return withStore(func(store storage.Store) error {
		added := solution.NewWorkspace(store).AddTemplate(ctx, t)
		fmt.Fprintf(cmd.OutOrStdout(), "Added %s (%s)\n", added.Title, added.ID)
		return nil
	})
}

func runSACatalogRemove(cmd *cobra.Command, args []string) error {
	ctx := contextOf(cmd)
	return withStore(func(store storage.Store) error {
		if err := solution.NewWorkspace(store).RemoveTemplate(ctx, args[0]); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Removed %s\n", args[0])
		return nil
	})
}
