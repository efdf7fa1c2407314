package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/p-n-ai/pai-progress/internal/catalog"
	"github.com/p-n-ai/pai-progress/internal/platform/cache"
	"github.com/p-n-ai/pai-progress/internal/platform/database"
	"github.com/p-n-ai/pai-progress/internal/progress"
	"github.com/p-n-ai/pai-progress/internal/progression"
	"github.com/p-n-ai/pai-progress/internal/report"
	"github.com/p-n-ai/pai-progress/internal/streak"
)

func newExportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write a learner's progress on one skill to an .xlsx workbook",
		RunE: func(cmd *cobra.Command, args []string) error {
			learner, _ := cmd.Flags().GetString("learner")
			skill, _ := cmd.Flags().GetString("skill")
			out, _ := cmd.Flags().GetString("out")
			dbURL, _ := cmd.Flags().GetString("database-url")
			cacheURL, _ := cmd.Flags().GetString("cache-url")
			if learner == "" || skill == "" {
				return errors.New("--learner and --skill are required")
			}
			if dbURL == "" {
				dbURL = os.Getenv("LEARN_DATABASE_URL")
			}
			if dbURL == "" {
				return errors.New("--database-url or LEARN_DATABASE_URL is required")
			}
			if out == "" {
				out = fmt.Sprintf("%s-%s.xlsx", learner, skill)
			}

			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}

			loader, err := catalog.NewLoader(resolveCatalog(cmd))
			if err != nil {
				return err
			}

			db, err := database.New(ctx, dbURL, database.WithPoolSize(2, 0))
			if err != nil {
				return fmt.Errorf("open database: %w", err)
			}
			defer db.Close()

			repo, err := progress.NewPostgresRepository(db.Pool)
			if err != nil {
				return err
			}

			var streaks streak.Repository = streak.NewMemoryRepository()
			if cacheURL != "" {
				c, err := cache.New(ctx, cacheURL)
				if err != nil {
					return fmt.Errorf("open cache: %w", err)
				}
				defer c.Close()
				streaks = streak.NewRedisRepository(c.Client)
			}

			return writeExport(ctx, out, loader, repo, streaks, learner, skill)
		},
	}
	cmd.Flags().String("learner", "", "Learner ID")
	cmd.Flags().String("skill", "", "Skill ID")
	cmd.Flags().String("out", "", "Output path (default <learner>-<skill>.xlsx)")
	cmd.Flags().String("database-url", "", "PostgreSQL URL (overrides LEARN_DATABASE_URL)")
	cmd.Flags().String("cache-url", "", "Redis URL for streak data; streaks are omitted when empty")
	return cmd
}

// writeExport builds a read-only engine over the stored progress and writes
// the overview workbook to path.
func writeExport(ctx context.Context, path string, cat progression.Catalog, repo progress.Repository,
	streaks streak.Repository, learner, skill string) error {
	engine, err := progression.NewEngine(progression.EngineConfig{
		Catalog:    cat,
		Repository: repo,
		Streaks:    streak.NewNotifier(streak.NotifierConfig{Repository: streaks}),
	})
	if err != nil {
		return err
	}

	ov, err := engine.Overview(ctx, learner, skill)
	if err != nil {
		return err
	}
	s, err := engine.Streak(ctx, learner)
	if err != nil {
		return err
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := report.WriteWorkbook(f, ov, s); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
