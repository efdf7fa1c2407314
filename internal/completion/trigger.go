// Package completion applies progress signals and emits a stage_completed
// notification on the exact mutation that completes a stage.
package completion

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/p-n-ai/pai-progress/internal/notify"
	"github.com/p-n-ai/pai-progress/internal/progress"
)

// Result is the outcome of one recorded signal.
type Result struct {
	Progress progress.StageProgress
	// Completed is true only for the call that completed the stage.
	Completed bool
	// PersistErr and NotifyErr report side-effect failures. The in-memory
	// record is updated regardless.
	PersistErr error
	NotifyErr  error
}

// Trigger wraps a progress store with write-through persistence and
// completion notifications. Unlocking of the next stage is never pushed; it
// is derived on read by the gating resolver.
type Trigger struct {
	store    progress.Store
	repo     progress.Repository
	sink     notify.Sink
	language string
}

// Option configures a Trigger.
type Option func(*Trigger)

// WithRepository persists every changed record.
func WithRepository(r progress.Repository) Option {
	return func(t *Trigger) { t.repo = r }
}

// WithLanguage sets the language for notification messages.
func WithLanguage(lang string) Option {
	return func(t *Trigger) { t.language = lang }
}

func NewTrigger(store progress.Store, sink notify.Sink, opts ...Option) *Trigger {
	t := &Trigger{
		store:    store,
		repo:     progress.NopRepository{},
		sink:     sink,
		language: "en",
	}
	if t.sink == nil {
		t.sink = notify.NopSink{}
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// RecordVideoProgress records watched minutes for a stage.
func (t *Trigger) RecordVideoProgress(ctx context.Context, key progress.Key, minutes float64) (Result, error) {
	before := t.store.Get(key)
	u, err := t.store.RecordVideoProgress(key, minutes)
	if err != nil {
		return Result{}, err
	}
	return t.after(ctx, before, u), nil
}

// RecordQuizPass records a passed quiz for a stage.
func (t *Trigger) RecordQuizPass(ctx context.Context, key progress.Key) (Result, error) {
	before := t.store.Get(key)
	u, err := t.store.RecordQuizPass(key)
	if err != nil {
		return Result{}, err
	}
	return t.after(ctx, before, u), nil
}

func (t *Trigger) after(ctx context.Context, before progress.StageProgress, u progress.Update) Result {
	res := Result{Progress: u.Progress, Completed: u.Completed}
	p := u.Progress

	if changed(before, p) {
		if err := t.repo.Save(ctx, p); err != nil {
			res.PersistErr = fmt.Errorf("persist progress: %w", err)
			slog.Error("failed to persist stage progress",
				"learner_id", p.LearnerID,
				"skill_id", p.SkillID,
				"stage_id", p.StageID,
				"error", err,
			)
		}
	}

	if u.Completed {
		event := notify.Event{
			Type:      notify.TypeStageCompleted,
			LearnerID: p.LearnerID,
			SkillID:   p.SkillID,
			StageID:   p.StageID,
		}
		if p.CompletedAt != nil {
			event.CreatedAt = *p.CompletedAt
		}
		event.Message = notify.Describe(event, t.language)
		if err := t.sink.Notify(ctx, event); err != nil {
			res.NotifyErr = fmt.Errorf("notify completion: %w", err)
			slog.Warn("failed to emit stage completion",
				"learner_id", p.LearnerID,
				"stage_id", p.StageID,
				"error", err,
			)
		} else {
			slog.Info("stage completed",
				"learner_id", p.LearnerID,
				"skill_id", p.SkillID,
				"stage_id", p.StageID,
			)
		}
	}
	return res
}

func changed(a, b progress.StageProgress) bool {
	return a.VideoWatchMinutes != b.VideoWatchMinutes ||
		a.QuizCompleted != b.QuizCompleted ||
		a.IsCompleted != b.IsCompleted
}
