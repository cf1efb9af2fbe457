package main

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"makermate/internal/logging"
	"makermate/internal/requirements"
	"makermate/internal/settings"
	"makermate/internal/solution"
	"makermate/internal/storage"
)

var (
	reqSheet          string
	reqIDCol          string
	reqTitleCol       string
	reqDescriptionCol string
	reqDryRun         bool

	reqHideMethodology bool
	reqPage            int
	reqPageSize        int
)

var requirementsCmd = &cobra.Command{
	Use:     "requirements",
	Aliases: []string{"reqs"},
	Short:   "Import, list and export solution requirements",
}

var requirementsImportCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Import requirements from a CSV or XLSX file",
	Long: `Import requirements from a CSV or XLSX file. Columns are matched by
header name; override the guess with --id-col, --title-col and
--description-col. Rows without an id get a generated one; rows whose id
already exists replace the stored requirement.

Examples:
  makermate requirements import rfp.xlsx --sheet Functional
  makermate requirements import reqs.csv --title-col Summary --dry-run`,
	Args: cobra.ExactArgs(1),
	RunE: runRequirementsImport,
}

var requirementsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored requirements",
	Args:  cobra.NoArgs,
	RunE:  runRequirementsList,
}

var requirementsExportCmd = &cobra.Command{
	Use:   "export [file]",
	Short: "Export requirements as CSV (stdout when no file is given)",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runRequirementsExport,
}

var requirementsDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a requirement",
	Args:  cobra.ExactArgs(1),
	RunE:  runRequirementsDelete,
}

var requirementsOptionsCmd = &cobra.Command{
	Use:   "options",
	Short: "Draft Power Platform, hybrid and Azure options for every requirement",
	Long: `Send the stored requirements to the makermate server and store the three
drafted architecture summaries on each requirement. The provider, model and
prompt come from the "requirements" binding; the key comes from the stored
secret of that provider. Without a key the server answers with placeholders.`,
	Args: cobra.NoArgs,
	RunE: runRequirementsOptions,
}

func init() {
	rootCmd.AddCommand(requirementsCmd)
	requirementsCmd.AddCommand(requirementsImportCmd, requirementsListCmd, requirementsExportCmd,
		requirementsDeleteCmd, requirementsOptionsCmd)

	requirementsImportCmd.Flags().StringVar(&reqSheet, "sheet", "", "worksheet to import (default: first)")
	requirementsImportCmd.Flags().StringVar(&reqIDCol, "id-col", "", "column holding the id")
	requirementsImportCmd.Flags().StringVar(&reqTitleCol, "title-col", "", "column holding the title")
	requirementsImportCmd.Flags().StringVar(&reqDescriptionCol, "description-col", "", "column holding the description")
	requirementsImportCmd.Flags().BoolVar(&reqDryRun, "dry-run", false, "show the mapped rows without storing them")

	requirementsListCmd.Flags().BoolVar(&reqHideMethodology, "hide-methodology", false, "hide methodology requirements")
	requirementsListCmd.Flags().IntVar(&reqPage, "page", 1, "page number")
	requirementsListCmd.Flags().IntVar(&reqPageSize, "size", 25, "page size")
}

func runRequirementsImport(cmd *cobra.Command, args []string) error {
	f, err := os.Open(args[0])
	if err != nil {
		return err
	}
	defer f.Close()

	wb, err := requirements.ReadWorkbook(args[0], f)
	if err != nil {
		return err
	}
	session, err := requirements.NewSession(wb)
	if err != nil {
		return err
	}
	if reqSheet != "" {
		if err := session.SelectSheet(reqSheet); err != nil {
			return err
		}
	}

	m := session.Mapping()
	if reqIDCol != "" {
		m.ID = reqIDCol
	}
	if reqTitleCol != "" {
		m.Title = reqTitleCol
	}
	if reqDescriptionCol != "" {
		m.Description = reqDescriptionCol
	}
	session.SetMapping(m)

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Sheet %q: id=%q title=%q description=%q\n", session.SheetName(), m.ID, m.Title, m.Description)

	rows := session.Preview(uuid.NewString)
	if len(rows) == 0 {
		return fmt.Errorf("no requirements found in sheet %q", session.SheetName())
	}
	if reqDryRun {
		return printRequirements(out, rows)
	}

	ctx := contextOf(cmd)
	return withStore(func(store storage.Store) error {
		merged := requirements.NewRepository(store).Import(ctx, rows)
		fmt.Fprintf(out, "Imported %d requirements (%d stored)\n", len(rows), len(merged))
		return nil
	})
}

func runRequirementsList(cmd *cobra.Command, args []string) error {
	ctx := contextOf(cmd)
	return withStore(func(store storage.Store) error {
		all := requirements.Filter(requirements.NewRepository(store).List(ctx), reqHideMethodology)
		items, page, pages := requirements.Page(all, reqPage, reqPageSize)
		if err := printRequirements(cmd.OutOrStdout(), items); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "\nPage %d of %d (%d requirements)\n", page, pages, len(all))
		return nil
	})
}

func printRequirements(w io.Writer, reqs []requirements.Requirement) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tCATEGORY\tTITLE")
	for _, r := range reqs {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", r.ID, r.EffectiveCategory(), truncate(r.Title, 60))
	}
	return tw.Flush()
}

func runRequirementsExport(cmd *cobra.Command, args []string) error {
	ctx := contextOf(cmd)
	return withStore(func(store storage.Store) error {
		reqs := requirements.NewRepository(store).List(ctx)
		if len(args) == 0 {
			return requirements.ExportCSV(cmd.OutOrStdout(), reqs)
		}
		f, err := os.Create(args[0])
		if err != nil {
			return err
		}
		if err := requirements.ExportCSV(f, reqs); err != nil {
			f.Close()
			return err
		}
		if err := f.Close(); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Exported %d requirements to %s\n", len(reqs), args[0])
		return nil
	})
}

func runRequirementsDelete(cmd *cobra.Command, args []string) error {
	ctx := contextOf(cmd)
	return withStore(func(store storage.Store) error {
		if err := requirements.NewRepository(store).Delete(ctx, args[0]); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s\n", args[0])
		return nil
	})
}

func runRequirementsOptions(cmd *cobra.Command, args []string) error {
	ctx := contextOf(cmd)
	return withStore(func(store storage.Store) error {
		repo := requirements.NewRepository(store)
		reqs := repo.List(ctx)
		if len(reqs) == 0 {
			return fmt.Errorf("no requirements stored; run 'makermate requirements import' first")
		}

		rc := settings.NewResolver(store).ResolveConfig(ctx, settings.ProcessRequirements)
		secrets, err := secretStore(ctx, store)
		if err != nil {
			return err
		}

		items, err := newAIClient().GenerateTripleOptions(ctx, solution.GenerateRequest{
			Requirements: requirements.Inputs(reqs),
			Provider:     string(rc.Provider),
			Model:        rc.Model,
			SystemPrompt: rc.Prompt,
			APIKey:       secrets.Get(ctx, apiKeySecret(rc.Provider), ""),
		})
		if err != nil {
			return fmt.Errorf("generate options: %w", err)
		}

		updated := repo.ApplyTripleOptions(ctx, items)
		logging.Infof("Applied %d drafted options using %s / %s", updated, rc.Provider, rc.Model)
		fmt.Fprintf(cmd.OutOrStdout(), "Updated %d of %d requirements\n", updated, len(reqs))
		return nil
	})
}
