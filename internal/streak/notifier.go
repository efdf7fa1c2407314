package streak

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/p-n-ai/pai-progress/internal/notify"
)

// Notifier records daily activity and emits a streak_milestone event when a
// streak reaches a multiple of the milestone interval.
type Notifier struct {
	repo     Repository
	sink     notify.Sink
	loc      *time.Location
	interval int
	language string

	mu sync.Mutex
}

// NotifierConfig configures a Notifier. Zero values take defaults.
type NotifierConfig struct {
	Repository        Repository
	Sink              notify.Sink
	Location          *time.Location
	MilestoneInterval int
	Language          string
}

func NewNotifier(cfg NotifierConfig) *Notifier {
	n := &Notifier{
		repo:     cfg.Repository,
		sink:     cfg.Sink,
		loc:      cfg.Location,
		interval: cfg.MilestoneInterval,
		language: cfg.Language,
	}
	if n.repo == nil {
		n.repo = NewMemoryRepository()
	}
	if n.sink == nil {
		n.sink = notify.NopSink{}
	}
	if n.loc == nil {
		n.loc = time.UTC
	}
	if n.interval <= 0 {
		n.interval = DefaultMilestoneInterval
	}
	if n.language == "" {
		n.language = "en"
	}
	return n
}

// RecordActivity counts activity at t toward the learner's streak. A sink
// failure is logged and does not undo the saved streak.
func (n *Notifier) RecordActivity(ctx context.Context, learnerID string, t time.Time) (Outcome, error) {
	if learnerID == "" {
		return Outcome{}, fmt.Errorf("learner_id is required")
	}

	n.mu.Lock()
	defer n.mu.Unlock()

	current, err := n.repo.Load(ctx, learnerID)
	if err != nil {
		return Outcome{}, fmt.Errorf("load streak: %w", err)
	}

	next, out := current.Record(DayOf(t, n.loc), n.interval)
	if next == current {
		return out, nil
	}
	if err := n.repo.Save(ctx, learnerID, next); err != nil {
		return Outcome{}, fmt.Errorf("save streak: %w", err)
	}

	if out.Milestone {
		event := notify.Event{
			Type:       notify.TypeStreakMilestone,
			LearnerID:  learnerID,
			StreakDays: next.CurrentDays,
			CreatedAt:  t,
		}
		event.Message = notify.Describe(event, n.language)
		if err := n.sink.Notify(ctx, event); err != nil {
			slog.Warn("failed to emit streak milestone",
				"learner_id", learnerID,
				"streak_days", next.CurrentDays,
				"error", err,
			)
		}
	}
	return out, nil
}

// Current returns the learner's stored streak.
func (n *Notifier) Current(ctx context.Context, learnerID string) (State, error) {
	s, err := n.repo.Load(ctx, learnerID)
	if err != nil {
		return State{}, fmt.Errorf("load streak: %w", err)
	}
	return s, nil
}
