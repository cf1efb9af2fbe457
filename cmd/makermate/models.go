package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"makermate/internal/discovery"
	"makermate/internal/settings"
	"makermate/internal/storage"
)

var (
	modelsProvider string
	modelsAPIKey   string
)

var modelsCmd = &cobra.Command{
	Use:   "models",
	Short: "Discover and list AI models",
}

var modelsDiscoverCmd = &cobra.Command{
	Use:   "discover",
	Short: "Refresh the stored model lists from the server's discovery endpoint",
	Long: `Fetch the discovery catalog from the makermate server and merge it into
the stored model list of each provider. Providers missing from the catalog are
reset to their default models.

Examples:
  makermate models discover
  makermate models discover --provider anthropic`,
	Args: cobra.NoArgs,
	RunE: runModelsDiscover,
}

var modelsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List the models a provider offers",
	Args:  cobra.NoArgs,
	RunE:  runModelsList,
}

func init() {
	rootCmd.AddCommand(modelsCmd)
	modelsCmd.AddCommand(modelsDiscoverCmd, modelsListCmd)

	modelsDiscoverCmd.Flags().StringVar(&modelsProvider, "provider", "", "only sync this provider")
	modelsListCmd.Flags().StringVar(&modelsProvider, "provider", "openai", "provider to list")
	modelsListCmd.Flags().StringVar(&modelsAPIKey, "api-key", "", "API key (defaults to the stored secret)")
}

func apiKeySecret(provider settings.ProviderID) string {
	return "apikey." + string(provider)
}

func runModelsDiscover(cmd *cobra.Command, args []string) error {
	ctx := contextOf(cmd)
	out := cmd.OutOrStdout()

	resp, err := newAIClient().Discover(ctx)
	if err != nil {
		fmt.Fprintln(cmd.ErrOrStderr(), "Discovery failed. Using defaults.")
		resp = discovery.Fallback()
	}

	providers := []settings.ProviderID{settings.ProviderOpenAI, settings.ProviderAnthropic, settings.ProviderAzureOpenAI}
	if modelsProvider != "" {
		providers = []settings.ProviderID{settings.ProviderID(modelsProvider)}
	}

	return withStore(func(store storage.Store) error {
		r := settings.NewResolver(store)
		for _, p := range providers {
			res := discovery.Sync(ctx, r, resp, p)
			if res.Seeded {
				fmt.Fprintf(out, "%s: %d default models\n", p, len(res.Models))
				continue
			}
			fmt.Fprintf(out, "%s: %d models (%d discovered)\n", p, len(res.Models), res.Discovered)
		}
		return nil
	})
}

func runModelsList(cmd *cobra.Command, args []string) error {
	ctx := contextOf(cmd)
	provider := settings.ProviderID(modelsProvider)

	key := modelsAPIKey
	if key == "" {
		err := withStore(func(store storage.Store) error {
			secrets, err := secretStore(ctx, store)
			if err != nil {
				return err
			}
			key = secrets.Get(ctx, apiKeySecret(provider), "")
			return nil
		})
		if err != nil {
			return err
		}
	}

	models, err := newAIClient().ListModels(ctx, discovery.ListModelsRequest{Provider: string(provider), APIKey: key})
	if err != nil {
		return fmt.Errorf("list models: %w", err)
	}
	if len(models) == 0 {
		fmt.Fprintf(cmd.OutOrStdout(), "No models listed for %s\n", provider)
		return nil
	}

	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tLABEL\t")
	for _, m := range models {
		note := ""
		if m.Deprecated {
			note = "deprecated"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\n", m.ID, m.Label, note)
	}
	return tw.Flush()
}
