package main

import (
	"os"

	"github.com/spf13/cobra"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "progressctl",
		Short:         "Catalog and progress tooling for the learning engine",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().String("catalog", "", "Catalog directory (overrides LEARN_CATALOG_PATH)")

	root.AddCommand(newValidateCmd())
	root.AddCommand(newStagesCmd())
	root.AddCommand(newExportCmd())
	return root
}

// resolveCatalog returns the --catalog flag, then LEARN_CATALOG_PATH, then ./catalog.
func resolveCatalog(cmd *cobra.Command) string {
	if p, _ := cmd.Flags().GetString("catalog"); p != "" {
		return p
	}
	if p := os.Getenv("LEARN_CATALOG_PATH"); p != "" {
		return p
	}
	return "./catalog"
}
