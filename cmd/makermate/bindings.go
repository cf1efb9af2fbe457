package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"makermate/internal/settings"
	"makermate/internal/storage"
)

var (
	bindProvider string
	bindModel    string
	bindPrompt   string
)

var bindingsCmd = &cobra.Command{
	Use:   "bindings",
	Short: "Show and edit per-feature AI bindings",
	Long: `Every feature (process) can be bound to its own provider, model and
prompt. Unbound features use the active provider and model.

Examples:
  makermate bindings list
  makermate bindings use --provider anthropic --model claude-3-5-haiku-20241022
  makermate bindings set hld --provider openai --model gpt-4o --prompt "Be brief"
  makermate bindings clear hld`,
}

var bindingsListCmd = &cobra.Command{
	Use:   "list",
	Short: "Show the resolved configuration of every feature",
	Args:  cobra.NoArgs,
	RunE:  runBindingsList,
}

var bindingsSetCmd = &cobra.Command{
	Use:   "set <process>",
	Short: "Bind a feature to a provider and model",
	Args:  cobra.ExactArgs(1),
	RunE:  runBindingsSet,
}

var bindingsClearCmd = &cobra.Command{
	Use:   "clear <process>",
	Short: "Remove a feature binding",
	Args:  cobra.ExactArgs(1),
	RunE:  runBindingsClear,
}

var bindingsUseCmd = &cobra.Command{
	Use:   "use",
	Short: "Set the active provider, model or default prompt",
	Args:  cobra.NoArgs,
	RunE:  runBindingsUse,
}

func init() {
	rootCmd.AddCommand(bindingsCmd)
	bindingsCmd.AddCommand(bindingsListCmd, bindingsSetCmd, bindingsClearCmd, bindingsUseCmd)

	for _, c := range []*cobra.Command{bindingsSetCmd, bindingsUseCmd} {
		c.Flags().StringVar(&bindProvider, "provider", "", "provider (openai, anthropic, azure-openai)")
		c.Flags().StringVar(&bindModel, "model", "", "model id")
		c.Flags().StringVar(&bindPrompt, "prompt", "", "system prompt")
	}
}

func runBindingsList(cmd *cobra.Command, args []string) error {
	ctx := contextOf(cmd)
	return withStore(func(store storage.Store) error {
		r := settings.NewResolver(store)
		bound := r.Bindings(ctx)

		fmt.Fprintf(cmd.OutOrStdout(), "Active: %s / %s\n\n", r.ActiveProvider(ctx), r.ActiveModel(ctx))
		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "PROCESS\tPROVIDER\tMODEL\tSOURCE\tPROMPT")
		for _, p := range settings.AllProcesses() {
			rc := r.ResolveConfig(ctx, p.ID)
			source := "active"
			if _, ok := bound[p.ID]; ok {
				source = "bound"
			}
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", p.ID, rc.Provider, rc.Model, source, truncate(rc.Prompt, 40))
		}
		return tw.Flush()
	})
}

func runBindingsSet(cmd *cobra.Command, args []string) error {
	proc, err := settings.ParseProcess(args[0])
	if err != nil {
		return err
	}
	ctx := contextOf(cmd)
	return withStore(func(store storage.Store) error {
		b := &settings.Binding{
			Provider: settings.ProviderID(bindProvider),
			Model:    bindModel,
			Prompt:   bindPrompt,
		}
		if err := settings.NewResolver(store).SetBinding(ctx, proc, b); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Bound %s to %s / %s\n", proc, bindProvider, bindModel)
		return nil
	})
}

func runBindingsClear(cmd *cobra.Command, args []string) error {
	proc, err := settings.ParseProcess(args[0])
	if err != nil {
		return err
	}
	ctx := contextOf(cmd)
	return withStore(func(store storage.Store) error {
		if err := settings.NewResolver(store).SetBinding(ctx, proc, nil); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Cleared binding for %s\n", proc)
		return nil
	})
}

func runBindingsUse(cmd *cobra.Command, args []string) error {
	if bindProvider == "" && bindModel == "" && bindPrompt == "" {
		return fmt.Errorf("nothing to change; pass --provider, --model or --prompt")
	}
	ctx := contextOf(cmd)
	return withStore(func(store storage.Store) error {
		r := settings.NewResolver(store)
		if bindProvider != "" {
			r.SetActiveProvider(ctx, settings.ProviderID(bindProvider))
		}
		if bindModel != "" {
			r.SetActiveModel(ctx, bindModel)
		}
		if bindPrompt != "" {
			r.SetPrompt(ctx, r.ActiveProvider(ctx), r.ActiveModel(ctx), bindPrompt)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Active: %s / %s\n", r.ActiveProvider(ctx), r.ActiveModel(ctx))
		return nil
	})
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}
