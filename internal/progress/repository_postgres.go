package progress

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

const dbTimeout = 5 * time.Second

// PostgresRepository is a PostgreSQL-backed Repository. It expects the
// stage_progress table created by database.Migrate.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository creates a repository on top of an open pool.
func NewPostgresRepository(pool *pgxpool.Pool) (*PostgresRepository, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is nil")
	}
	return &PostgresRepository{pool: pool}, nil
}

func (r *PostgresRepository) Load(ctx context.Context, scope Scope) ([]StageProgress, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	rows, err := r.pool.Query(ctx,
		`SELECT stage_id, video_watch_minutes, quiz_completed, is_completed, completed_at, updated_at
		 FROM stage_progress
		 WHERE learner_id = $1 AND skill_id = $2
		 ORDER BY stage_id ASC`,
		scope.LearnerID,
		scope.SkillID,
	)
	if err != nil {
		return nil, fmt.Errorf("query stage progress: %w", err)
	}
	defer rows.Close()

	var out []StageProgress
	for rows.Next() {
		p := StageProgress{LearnerID: scope.LearnerID, SkillID: scope.SkillID}
		var completedAt *time.Time
		if err := rows.Scan(
			&p.StageID,
			&p.VideoWatchMinutes,
			&p.QuizCompleted,
			&p.IsCompleted,
			&completedAt,
			&p.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan stage progress: %w", err)
		}
		p.CompletedAt = completedAt
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate stage progress: %w", err)
	}
	return out, nil
}

// Save upserts a record. Signals never move backwards in the table even if
// writes arrive out of order.
func (r *PostgresRepository) Save(ctx context.Context, p StageProgress) error {
	if p.LearnerID == "" || p.SkillID == "" || p.StageID == "" {
		return fmt.Errorf("learner_id, skill_id and stage_id are required")
	}
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	updatedAt := p.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = time.Now()
	}

	_, err := r.pool.Exec(ctx,
		`INSERT INTO stage_progress
		   (learner_id, skill_id, stage_id, video_watch_minutes, quiz_completed, is_completed, completed_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 ON CONFLICT (learner_id, skill_id, stage_id) DO UPDATE SET
		   video_watch_minutes = GREATEST(stage_progress.video_watch_minutes, EXCLUDED.video_watch_minutes),
		   quiz_completed      = stage_progress.quiz_completed OR EXCLUDED.quiz_completed,
		   is_completed        = stage_progress.is_completed OR EXCLUDED.is_completed,
		   completed_at        = COALESCE(stage_progress.completed_at, EXCLUDED.completed_at),
		   updated_at          = GREATEST(stage_progress.updated_at, EXCLUDED.updated_at)`,
		p.LearnerID,
		p.SkillID,
		p.StageID,
		p.VideoWatchMinutes,
		p.QuizCompleted,
		p.IsCompleted,
		p.CompletedAt,
		updatedAt,
	)
	if err != nil {
		return fmt.Errorf("upsert stage progress: %w", err)
	}
	return nil
}
