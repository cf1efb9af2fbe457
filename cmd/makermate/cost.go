package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"makermate/internal/pricing"
)

var (
	costProvider       string
	costModel          string
	costInputTokens    int
	costOutputTokens   int
	costText           string
	costRequestsPerDay int
	costDays           int
)

var costCmd = &cobra.Command{
	Use:   "cost",
	Short: "Project the spend of an AI workload",
	Long: `Project per-request, daily and monthly spend from list prices. Input
tokens can be given directly or estimated from a sample prompt with --text.
Without --model the priced models are listed.

Examples:
  makermate cost --provider openai --model gpt-4o-mini --input-tokens 1200 --output-tokens 400
  makermate cost --provider anthropic --model claude-3-5-haiku-20241022 --text "Summarise this..."
  makermate cost --provider google`,
	Args: cobra.NoArgs,
	RunE: runCost,
}

func init() {
	rootCmd.AddCommand(costCmd)

	costCmd.Flags().StringVar(&costProvider, "provider", "openai", "provider")
	costCmd.Flags().StringVar(&costModel, "model", "", "model")
	costCmd.Flags().IntVar(&costInputTokens, "input-tokens", 0, "input tokens per request")
	costCmd.Flags().IntVar(&costOutputTokens, "output-tokens", 0, "output tokens per request")
	costCmd.Flags().StringVar(&costText, "text", "", "sample prompt to estimate input tokens from")
	costCmd.Flags().IntVar(&costRequestsPerDay, "requests-per-day", 100, "requests per day")
	costCmd.Flags().IntVar(&costDays, "days", 30, "days per month")
}

func runCost(cmd *cobra.Command, args []string) error {
	table := pricing.DefaultTable()
	out := cmd.OutOrStdout()

	if costModel == "" {
		if _, ok := table[costProvider]; !ok {
			return fmt.Errorf("%w: %q (known: %v)", pricing.ErrUnknownProvider, costProvider, table.Providers())
		}
		tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "MODEL\tINPUT $/1M\tOUTPUT $/1M")
		for _, m := range table.Models(costProvider) {
			r := table[costProvider][m]
			fmt.Fprintf(tw, "%s\t%.3f\t%.3f\n", m, r.Input, r.Output)
		}
		return tw.Flush()
	}

	input := costInputTokens
	if costText != "" {
		input = pricing.EstimateTokens(costText)
	}

	p, err := table.Estimate(costProvider, costModel, pricing.Usage{
		InputTokens:    input,
		OutputTokens:   costOutputTokens,
		RequestsPerDay: costRequestsPerDay,
		DaysPerMonth:   costDays,
	})
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "%s / %s: %d input + %d output tokens\n", costProvider, costModel, input, costOutputTokens)
	fmt.Fprintf(out, "Per request: $%.6f\n", p.PerRequest)
	fmt.Fprintf(out, "Per day:     $%.4f (%d requests)\n", p.PerDay, costRequestsPerDay)
	fmt.Fprintf(out, "Per month:   $%.2f (%d days)\n", p.PerMonth, costDays)
	return nil
}
