package main

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/p-n-ai/pai-progress/internal/catalog"
)

func newValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Check every skill YAML file in the catalog",
		RunE: func(cmd *cobra.Command, args []string) error {
			root := resolveCatalog(cmd)
			out := cmd.OutOrStdout()

			var checked, failed int
			err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
				if err != nil {
					return err
				}
				if d.IsDir() || !(strings.HasSuffix(path, ".yaml") || strings.HasSuffix(path, ".yml")) {
					return nil
				}
				data, err := os.ReadFile(path)
				if err != nil {
					return err
				}
				checked++
				if err := catalog.Validate(data); err != nil {
					failed++
					fmt.Fprintf(out, "FAIL  %s: %v\n", path, err)
					return nil
				}
				fmt.Fprintf(out, "ok    %s\n", path)
				return nil
			})
			if err != nil {
				return fmt.Errorf("walk catalog: %w", err)
			}

			fmt.Fprintf(out, "%d file(s) checked, %d invalid\n", checked, failed)
			if failed > 0 {
				return fmt.Errorf("%d invalid skill file(s)", failed)
			}
			return nil
		},
	}
}
