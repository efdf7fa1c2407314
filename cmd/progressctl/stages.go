package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/p-n-ai/pai-progress/internal/catalog"
)

func newStagesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stages <skill-id>",
		Short: "List the ordered stages of a skill",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			loader, err := catalog.NewLoader(resolveCatalog(cmd))
			if err != nil {
				return err
			}
			skill, ok := loader.GetSkill(args[0])
			if !ok {
				return fmt.Errorf("%w: %s", catalog.ErrUnknownSkill, args[0])
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s (%s)\n", skill.Name, skill.ID)
			fmt.Fprintf(out, "%-3s  %-20s  %-8s  %-9s  %s\n", "#", "Stage", "Minutes", "Questions", "Title")
			fmt.Fprintln(out, strings.Repeat("─", 60))
			for _, st := range skill.Stages {
				fmt.Fprintf(out, "%-3d  %-20s  %-8g  %-9d  %s\n",
					st.SequenceIndex, st.ID, st.DurationMinutes, len(st.Quiz), st.Title)
			}
			return nil
		},
	}
}
