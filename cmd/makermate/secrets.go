package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"makermate/internal/settings"
	"makermate/internal/storage"
)

var secretsShow bool

var secretsCmd = &cobra.Command{
	Use:   "secrets",
	Short: "Manage provider API keys",
	Long: `Provider API keys are kept in the local store. When secrets.passphrase is
configured (or MAKERMATE_SECRET_PASSPHRASE is set) they are sealed at rest.

Examples:
  makermate secrets set openai sk-...
  makermate secrets get openai --show
  makermate secrets delete openai`,
}

var secretsSetCmd = &cobra.Command{
	Use:   "set <provider> <key>",
	Short: "Store the API key of a provider",
	Args:  cobra.ExactArgs(2),
	RunE:  runSecretsSet,
}

var secretsGetCmd = &cobra.Command{
	Use:   "get <provider>",
	Short: "Show the stored API key of a provider",
	Args:  cobra.ExactArgs(1),
	RunE:  runSecretsGet,
}

var secretsDeleteCmd = &cobra.Command{
	Use:   "delete <provider>",
	Short: "Remove the stored API key of a provider",
	Args:  cobra.ExactArgs(1),
	RunE:  runSecretsDelete,
}

func init() {
	rootCmd.AddCommand(secretsCmd)
	secretsCmd.AddCommand(secretsSetCmd, secretsGetCmd, secretsDeleteCmd)

	secretsGetCmd.Flags().BoolVar(&secretsShow, "show", false, "print the key unmasked")
}

func parseProvider(s string) (settings.ProviderID, error) {
	switch p := settings.ProviderID(strings.ToLower(strings.TrimSpace(s))); p {
	case settings.ProviderOpenAI, settings.ProviderAnthropic, settings.ProviderAzureOpenAI:
		return p, nil
	}
	return "", fmt.Errorf("unknown provider %q", s)
}

func runSecretsSet(cmd *cobra.Command, args []string) error {
	provider, err := parseProvider(args[0])
	if err != nil {
		return err
	}
	ctx := contextOf(cmd)
	return withStore(func(store storage.Store) error {
		secrets, err := secretStore(ctx, store)
		if err != nil {
			return err
		}
		secrets.Set(ctx, apiKeySecret(provider), strings.TrimSpace(args[1]))
		state := "clear text"
		if secrets.Sealed() {
			state = "sealed"
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Stored %s key (%s)\n", provider, state)
		return nil
	})
}

func runSecretsGet(cmd *cobra.Command, args []string) error {
	provider, err := parseProvider(args[0])
	if err != nil {
		return err
	}
	ctx := contextOf(cmd)
	return withStore(func(store storage.Store) error {
		secrets, err := secretStore(ctx, store)
		if err != nil {
			return err
		}
		key := secrets.Get(ctx, apiKeySecret(provider), "")
		if key == "" {
			return fmt.Errorf("no key stored for %s", provider)
		}
		if !secretsShow {
			key = maskSecret(key)
		}
		fmt.Fprintln(cmd.OutOrStdout(), key)
		return nil
	})
}

func runSecretsDelete(cmd *cobra.Command, args []string) error {
	provider, err := parseProvider(args[0])
	if err != nil {
		return err
	}
	ctx := contextOf(cmd)
	return withStore(func(store storage.Store) error {
		secrets, err := secretStore(ctx, store)
		if err != nil {
			return err
		}
		secrets.Delete(ctx, apiKeySecret(provider))
		fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s key\n", provider)
		return nil
	})
}

func maskSecret(s string) string {
	if len(s) <= 8 {
		return strings.Repeat("*", len(s))
	}
	return s[:4] + strings.Repeat("*", len(s)-8) + s[len(s)-4:]
}
