package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"makermate/internal/aiclient"
	"makermate/internal/config"
	"makermate/internal/logging"
	"makermate/internal/storage"
)

var (
	cfgFile   string
	serverURL string

	cfg *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "makermate",
	Short: "Power Platform maker toolkit",
	Long: `makermate bundles the tools a Power Platform maker reaches for daily:
  - snippet, resource and roadmap browsers
  - a delegation linter for Power Fx formulas
  - a JSON formatter and an SVG icon generator
  - a solution architecture workspace (requirements import, AI drafted
    options, estimating)

"makermate serve" runs the HTTP endpoints the AI features call.`,
	SilenceUsage:      true,
	PersistentPreRunE: initConfig,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		logging.Sync()
		os.Exit(1)
	}
	logging.Sync()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $XDG_CONFIG_HOME/makermate/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", "http://localhost:8080", "base URL of the makermate server used by AI commands")
}

func initConfig(cmd *cobra.Command, args []string) error {
	v, err := config.NewViper(cfgFile)
	if err != nil {
		return err
	}
	loaded, err := config.Load(v)
	if err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	cfg = loaded
	logging.SetLogLevel(logging.ParseLevel(cfg.LogLevel))
	return nil
}

// withStore opens the configured store for the duration of fn
func withStore(fn func(storage.Store) error) error {
	if cfg == nil {
		return fmt.Errorf("configuration not loaded")
	}
	store, err := cfg.OpenStore()
	if err != nil {
		return fmt.Errorf("failed to open %s store: %w", cfg.Storage.Driver, err)
	}
	defer store.Close()
	return fn(store)
}

// secretStore seals secrets when a passphrase is configured
func secretStore(ctx context.Context, store storage.Store) (*storage.SecretStore, error) {
	if cfg.Secrets.Passphrase == "" {
		return storage.NewSecretStore(store), nil
	}
	return storage.NewSealedSecretStore(ctx, store, cfg.Secrets.Passphrase)
}

func newAIClient() *aiclient.Client {
	timeout := 90 * time.Second
	if cfg != nil && cfg.Upstream.RequestTimeout > 0 {
		timeout = cfg.Upstream.RequestTimeout
	}
	return aiclient.New(aiclient.NewHTTPTransport(serverURL, timeout))
}

func contextOf(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
