package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jonathan/compulsa/internal/observability"
	"github.com/jonathan/compulsa/internal/prompts"
	"github.com/jonathan/compulsa/internal/provider"
)

func newInspectCmd() *cobra.Command {
	var (
		showPrompt bool
		listKnown  bool
	)

	cmd := &cobra.Command{
		Use:   "inspect [file name]...",
		Short: "Show the provider and prompt a file name would get",
		Long: `Prints the provider label derived from each file name and whether the
file has specific extraction rules. With --prompt the full prompt sent to the
model is printed as well. With --known the file names that have specific rules
are listed. No credential is needed.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 && !listKnown {
				return fmt.Errorf("at least one file name or --known is required")
			}

			printer := observability.NewPrinter(cmd.OutOrStdout())
			if listKnown {
				printer.PrintKnownFiles(prompts.KnownFiles())
			}
			for _, name := range args {
				label := provider.Derive(name)
				_, hasRules := prompts.Rules(name)
				printer.PrintInspection(name, label, hasRules)
				if showPrompt {
					printer.PrintPrompt(prompts.Render(name, label))
				}
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&showPrompt, "prompt", false, "Print the rendered prompt")
	cmd.Flags().BoolVar(&listKnown, "known", false, "List the file names with specific rules")
	return cmd
}
