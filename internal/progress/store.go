package progress

import (
	"fmt"
	"math"
	"sort"
	"sync"
	"time"
)

// Store holds stage progress records. Implementations must isolate records
// by learner and apply mutations for one learner in the order issued.
type Store interface {
	Get(key Key) StageProgress
	RecordVideoProgress(key Key, watchedMinutes float64) (Update, error)
	RecordQuizPass(key Key) (Update, error)
	Recompute(key Key) (Update, error)
	Restore(records ...StageProgress) error
	Snapshot(scope Scope) []StageProgress
}

// MemoryStore is an in-memory implementation of Store.
type MemoryStore struct {
	stages  StageLookup
	records map[Key]*StageProgress
	now     func() time.Time
	mu      sync.Mutex
}

// StoreOption configures a MemoryStore.
type StoreOption func(*MemoryStore)

// WithClock sets the clock used for UpdatedAt and CompletedAt.
func WithClock(now func() time.Time) StoreOption {
	return func(s *MemoryStore) {
		if now != nil {
			s.now = now
		}
	}
}

// NewMemoryStore creates a new in-memory progress store. Stage durations
// are resolved through stages.
func NewMemoryStore(stages StageLookup, opts ...StoreOption) *MemoryStore {
	s := &MemoryStore{
		stages:  stages,
		records: make(map[Key]*StageProgress),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Get returns the current record, or a zero-valued one if the stage has
// never been touched. Get never fails.
func (s *MemoryStore) Get(key Key) StageProgress {
	s.mu.Lock()
	defer s.mu.Unlock()

	if p, ok := s.records[key]; ok {
		return *p
	}
	return *newRecord(key)
}

// RecordVideoProgress raises the watched minutes to watchedMinutes, clamped
// to the stage duration. Negative or NaN input is ignored.
func (s *MemoryStore) RecordVideoProgress(key Key, watchedMinutes float64) (Update, error) {
	duration, err := s.duration(key)
	if err != nil {
		return Update{}, fmt.Errorf("record video progress: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	p := s.record(key)
	if watchedMinutes >= 0 {
		clamped := math.Min(watchedMinutes, duration)
		if clamped > p.VideoWatchMinutes {
			p.VideoWatchMinutes = clamped
			p.UpdatedAt = s.now()
		}
	}
	return s.recomputeLocked(p, duration), nil
}

// RecordQuizPass marks the stage quiz as passed. It is idempotent.
func (s *MemoryStore) RecordQuizPass(key Key) (Update, error) {
	duration, err := s.duration(key)
	if err != nil {
		return Update{}, fmt.Errorf("record quiz pass: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	p := s.record(key)
	if !p.QuizCompleted {
		p.QuizCompleted = true
		p.UpdatedAt = s.now()
	}
	return s.recomputeLocked(p, duration), nil
}

// Recompute re-derives IsCompleted from the stored signals.
func (s *MemoryStore) Recompute(key Key) (Update, error) {
	duration, err := s.duration(key)
	if err != nil {
		return Update{}, fmt.Errorf("recompute: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	return s.recomputeLocked(s.record(key), duration), nil
}

// Restore seeds records loaded from persistence. Signals only move forward:
// a restored record never lowers watched minutes or clears a quiz pass
// already held in memory. A record stored as completed with a CompletedAt
// stays completed even if the stage has since grown longer; its minutes are
// raised to the current duration. Any other IsCompleted flag is re-derived.
func (s *MemoryStore) Restore(records ...StageProgress) error {
	for _, r := range records {
		key := r.Key()
		duration, err := s.duration(key)
		if err != nil {
			return fmt.Errorf("restore %s/%s/%s: %w", r.LearnerID, r.SkillID, r.StageID, err)
		}

		s.mu.Lock()
		p := s.record(key)
		watched := r.VideoWatchMinutes
		final := r.IsCompleted && r.CompletedAt != nil
		if final {
			watched = duration
			p.QuizCompleted = true
		}
		if v := math.Min(watched, duration); v > p.VideoWatchMinutes {
			p.VideoWatchMinutes = v
		}
		p.QuizCompleted = p.QuizCompleted || r.QuizCompleted
		if r.UpdatedAt.After(p.UpdatedAt) {
			p.UpdatedAt = r.UpdatedAt
		}
		if !p.IsCompleted && (final || p.QuizCompleted && p.VideoWatchMinutes >= duration) {
			p.IsCompleted = true
			completedAt := r.UpdatedAt
			if r.CompletedAt != nil {
				completedAt = *r.CompletedAt
			}
			p.CompletedAt = &completedAt
		}
		s.mu.Unlock()
	}
	return nil
}

// Snapshot returns copies of every record in scope, ordered by stage ID.
func (s *MemoryStore) Snapshot(scope Scope) []StageProgress {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []StageProgress
	for k, p := range s.records {
		if k.Scope == scope {
			out = append(out, *p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StageID < out[j].StageID })
	return out
}

func (s *MemoryStore) duration(key Key) (float64, error) {
	st, err := s.stages.Stage(key.SkillID, key.StageID)
	if err != nil {
		return 0, err
	}
	return st.DurationMinutes, nil
}

// record returns the live record for key, creating it on first access.
// Callers must hold s.mu.
func (s *MemoryStore) record(key Key) *StageProgress {
	p, ok := s.records[key]
	if !ok {
		p = newRecord(key)
		s.records[key] = p
	}
	return p
}

func (s *MemoryStore) recomputeLocked(p *StageProgress, duration float64) Update {
	completed := recompute(p, duration, s.now())
	return Update{Progress: *p, Completed: completed}
}
