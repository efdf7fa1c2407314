// Package notify carries the side-effect events the progression engine emits
// and the sinks that record them.
package notify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	TypeStageCompleted  = "stage_completed"
	TypeStreakMilestone = "streak_milestone"
)

const dbTimeout = 5 * time.Second

// Event is a notification emitted by the engine.
type Event struct {
	Type       string    `json:"type"`
	LearnerID  string    `json:"learner_id"`
	SkillID    string    `json:"skill_id,omitempty"`
	StageID    string    `json:"stage_id,omitempty"`
	StreakDays int       `json:"streak_days,omitempty"`
	Message    string    `json:"message,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

func (e Event) validate() error {
	if e.Type == "" {
		return fmt.Errorf("event type is required")
	}
	if e.LearnerID == "" {
		return fmt.Errorf("learner_id is required")
	}
	return nil
}

// Sink receives events. Implementations must not block the caller for long.
type Sink interface {
	Notify(ctx context.Context, event Event) error
}

// NopSink ignores all events.
type NopSink struct{}

func (NopSink) Notify(context.Context, Event) error { return nil }

// MemorySink stores events in memory for tests.
type MemorySink struct {
	mu     sync.Mutex
	events []Event
}

func NewMemorySink() *MemorySink {
	return &MemorySink{events: []Event{}}
}

func (s *MemorySink) Notify(_ context.Context, event Event) error {
	if err := event.validate(); err != nil {
		return err
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now()
	}

	s.mu.Lock()
	s.events = append(s.events, event)
	s.mu.Unlock()
	return nil
}

// Events returns a copy of everything received so far.
func (s *MemorySink) Events() []Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Event{}, s.events...)
}

// OfType returns received events with the given type.
func (s *MemorySink) OfType(eventType string) []Event {
	var out []Event
	for _, e := range s.Events() {
		if e.Type == eventType {
			out = append(out, e)
		}
	}
	return out
}

// LogSink writes events to a structured logger.
type LogSink struct {
	logger *slog.Logger
}

// NewLogSink logs through logger, or slog.Default when nil.
func NewLogSink(logger *slog.Logger) *LogSink {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogSink{logger: logger}
}

func (s *LogSink) Notify(ctx context.Context, event Event) error {
	if err := event.validate(); err != nil {
		return err
	}
	s.logger.InfoContext(ctx, "notification",
		"type", event.Type,
		"learner_id", event.LearnerID,
		"skill_id", event.SkillID,
		"stage_id", event.StageID,
		"streak_days", event.StreakDays,
		"message", event.Message,
	)
	return nil
}

// MultiSink fans an event out to several sinks. Every sink is tried; the
// joined error reports each failure.
type MultiSink []Sink

func (m MultiSink) Notify(ctx context.Context, event Event) error {
	var errs []error
	for _, s := range m {
		if err := s.Notify(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// PostgresSink inserts events into the notifications table.
type PostgresSink struct {
	pool *pgxpool.Pool
}

func NewPostgresSink(pool *pgxpool.Pool) *PostgresSink {
	return &PostgresSink{pool: pool}
}

func (s *PostgresSink) Notify(ctx context.Context, event Event) error {
	if s == nil || s.pool == nil {
		return fmt.Errorf("notification sink pool is nil")
	}
	if err := event.validate(); err != nil {
		return err
	}

	createdAt := event.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	_, err := s.pool.Exec(ctx,
		`INSERT INTO notifications (event_type, learner_id, skill_id, stage_id, streak_days, message, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		event.Type,
		event.LearnerID,
		nullIfEmpty(event.SkillID),
		nullIfEmpty(event.StageID),
		nullIfZero(event.StreakDays),
		event.Message,
		createdAt,
	)
	if err != nil {
		return fmt.Errorf("insert notification: %w", err)
	}

	slog.Debug("notification stored",
		"type", event.Type,
		"learner_id", event.LearnerID,
	)
	return nil
}

// List returns a learner's stored notifications, newest first.
func (s *PostgresSink) List(ctx context.Context, learnerID string, limit int) ([]Event, error) {
	if limit <= 0 {
		limit = 50
	}
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	rows, err := s.pool.Query(ctx,
		`SELECT event_type, learner_id, COALESCE(skill_id, ''), COALESCE(stage_id, ''),
		        COALESCE(streak_days, 0), message, created_at
		 FROM notifications
		 WHERE learner_id = $1
		 ORDER BY created_at DESC, id DESC
		 LIMIT $2`,
		learnerID,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query notifications: %w", err)
	}
	defer rows.Close()

	var out []Event
	for rows.Next() {
		var e Event
		if err := rows.Scan(&e.Type, &e.LearnerID, &e.SkillID, &e.StageID, &e.StreakDays, &e.Message, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan notification: %w", err)
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate notifications: %w", err)
	}
	return out, nil
}

func nullIfZero(v int) any {
	if v == 0 {
		return nil
	}
	return v
}

func nullIfEmpty(v string) any {
	if v == "" {
		return nil
	}
	return v
}
