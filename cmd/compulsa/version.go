package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jonathan/compulsa/internal/llm"
)

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "compulsa %s (%s), default model %s\n", version, commit, llm.DefaultModel)
		},
	}
}
