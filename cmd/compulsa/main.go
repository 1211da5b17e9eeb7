// Package main provides the compulsa command line: it reads a zip of supplier
// price lists and writes the extracted articles to a spreadsheet.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

// Set by the linker at release time.
var (
	version = "dev"
	commit  = "none"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "compulsa",
		Short: "Supplier price-list extraction",
		Long: `compulsa expands a zip of supplier price lists (PDF, spreadsheets, images),
normalizes every document into single-page units and asks Gemini to read the
articles and prices of each one. The results are written to one spreadsheet.`,
		SilenceUsage: true,
	}
	root.AddCommand(newExtractCmd(), newInspectCmd(), newVersionCmd())
	return root
}

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
