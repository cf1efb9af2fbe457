package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"makermate/internal/delegation"
	"makermate/internal/diagnostics"
	"makermate/internal/formatter"
)

var (
	delegationSource string
	formatCompact    bool
)

var delegationCmd = &cobra.Command{
	Use:   "delegation <formula>",
	Short: "Check a Power Fx formula for delegation problems",
	Long: `Check a Power Fx formula for functions and patterns that limit
delegation. Pass "-" to read the formula from stdin.

Examples:
  makermate delegation 'Filter(Accounts, StartsWith(Name, "Con"))' --source dataverse
  makermate delegation - < formula.txt`,
	Args: cobra.ExactArgs(1),
	RunE: runDelegation,
}

var diagnoseCmd = &cobra.Command{
	Use:   "diagnose <message>",
	Short: "Suggest next steps for an error message",
	Long: `Match an error message from Power Apps, Power Automate or a
connector against known patterns and list suggested next steps. Pass "-" to
read the message from stdin.

Examples:
  makermate diagnose "Delegation warning. The highlighted part of this formula might not work"
  makermate diagnose - < flow-error.txt`,
	Args: cobra.ExactArgs(1),
	RunE: runDiagnose,
}

var formatCmd = &cobra.Command{
	Use:   "format [file]",
	Short: "Pretty-print or compact JSON such as flow definitions",
	Long: `Pretty-print JSON with two-space indentation, or compact it with
--compact. Reads stdin when no file is given.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runFormat,
}

func init() {
	rootCmd.AddCommand(delegationCmd, diagnoseCmd, formatCmd)

	delegationCmd.Flags().StringVar(&delegationSource, "source", "", "data source hint (dataverse, sharepoint, sql, excel)")
	formatCmd.Flags().BoolVar(&formatCompact, "compact", false, "compact instead of pretty-print")
}

func readInput(cmd *cobra.Command, name string) (string, error) {
	var r io.Reader = cmd.InOrStdin()
	if name != "" && name != "-" {
		f, err := os.Open(name)
		if err != nil {
			return "", err
		}
		defer f.Close()
		r = f
	}
	b, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func runDelegation(cmd *cobra.Command, args []string) error {
	formula := args[0]
	if formula == "-" {
		in, err := readInput(cmd, "-")
		if err != nil {
			return err
		}
		formula = in
	}

	findings := delegation.Analyse(formula, delegationSource)
	out := cmd.OutOrStdout()
	if len(findings) == 0 {
		fmt.Fprintln(out, "No delegation issues found.")
		return nil
	}
	for _, f := range findings {
		fmt.Fprintf(out, "[%s] %s\n", strings.ToUpper(string(f.Level)), f.Message)
	}
	return nil
}

func runDiagnose(cmd *cobra.Command, args []string) error {
	message := args[0]
	if message == "-" {
		in, err := readInput(cmd, "-")
		if err != nil {
			return err
		}
		message = in
	}

	steps := diagnostics.Diagnose(message)
	if len(steps) == 0 {
		return fmt.Errorf("empty error message")
	}
	out := cmd.OutOrStdout()
	fmt.Fprintln(out, "Suggested next steps:")
	for i, s := range steps {
		fmt.Fprintf(out, "%d. %s\n", i+1, s.Message)
	}
	return nil
}

func runFormat(cmd *cobra.Command, args []string) error {
	in, err := readInput(cmd, queryArg(args))
	if err != nil {
		return err
	}

	format := formatter.Pretty
	if formatCompact {
		format = formatter.Compact
	}
	formatted, err := format(in)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), formatted)
	return nil
}
