package completion_test

import (
	"context"
	"errors"
	"testing"

	"github.com/p-n-ai/pai-progress/internal/catalog"
	"github.com/p-n-ai/pai-progress/internal/completion"
	"github.com/p-n-ai/pai-progress/internal/notify"
	"github.com/p-n-ai/pai-progress/internal/progress"
	"github.com/p-n-ai/pai-progress/internal/quiz"
)

var key = progress.Key{
	Scope:   progress.Scope{LearnerID: "learner-1", SkillID: "go-basics"},
	StageID: "intro",
}

func newStore(t *testing.T) *progress.MemoryStore {
	t.Helper()
	q := []quiz.Question{{ID: "q1", Prompt: "?", Options: []string{"a", "b"}, CorrectOption: 1}}
	loader, err := catalog.NewStatic(catalog.Skill{
		ID:   "go-basics",
		Name: "Go Basics",
		Stages: []catalog.Stage{
			{ID: "intro", Title: "Intro", DurationMinutes: 10, Quiz: q},
			{ID: "types", Title: "Types", DurationMinutes: 10, Quiz: q},
		},
	})
	if err != nil {
		t.Fatalf("NewStatic() error = %v", err)
	}
	return progress.NewMemoryStore(loader)
}

func TestTrigger_EmitsExactlyOnce(t *testing.T) {
	sink := notify.NewMemorySink()
	trig := completion.NewTrigger(newStore(t), sink)
	ctx := context.Background()

	r, err := trig.RecordVideoProgress(ctx, key, 10)
	if err != nil {
		t.Fatalf("RecordVideoProgress() error = %v", err)
	}
	if r.Completed {
		t.Error("video alone should not complete")
	}

	r, err = trig.RecordQuizPass(ctx, key)
	if err != nil {
		t.Fatalf("RecordQuizPass() error = %v", err)
	}
	if !r.Completed || !r.Progress.IsCompleted {
		t.Fatalf("RecordQuizPass() = %+v, want completion", r)
	}

	// Repeat signals after completion.
	trig.RecordQuizPass(ctx, key)
	trig.RecordVideoProgress(ctx, key, 10)

	events := sink.OfType(notify.TypeStageCompleted)
	if len(events) != 1 {
		t.Fatalf("stage_completed events = %d, want 1", len(events))
	}
	if events[0].StageID != "intro" || events[0].SkillID != "go-basics" {
		t.Errorf("event = %+v, want go-basics/intro", events[0])
	}
	if events[0].Message == "" {
		t.Error("event message should be rendered")
	}
}

func TestTrigger_DoesNotPushUnlock(t *testing.T) {
	store := newStore(t)
	trig := completion.NewTrigger(store, notify.NopSink{})
	ctx := context.Background()

	trig.RecordVideoProgress(ctx, key, 10)
	trig.RecordQuizPass(ctx, key)

	if n := len(store.Snapshot(key.Scope)); n != 1 {
		t.Errorf("Snapshot() = %d records, want only the completed stage", n)
	}
}

func TestTrigger_PersistsChanges(t *testing.T) {
	repo := progress.NewMemoryRepository()
	trig := completion.NewTrigger(newStore(t), nil, completion.WithRepository(repo))
	ctx := context.Background()

	trig.RecordVideoProgress(ctx, key, 4)
	trig.RecordQuizPass(ctx, key)

	saved, _ := repo.Load(ctx, key.Scope)
	if len(saved) != 1 {
		t.Fatalf("saved = %d records, want 1", len(saved))
	}
	if saved[0].VideoWatchMinutes != 4 || !saved[0].QuizCompleted {
		t.Errorf("saved = %+v, want 4 minutes with quiz passed", saved[0])
	}
}

type failingRepo struct{ progress.NopRepository }

func (failingRepo) Save(context.Context, progress.StageProgress) error { return errors.New("db down") }

type failingSink struct{}

func (failingSink) Notify(context.Context, notify.Event) error { return errors.New("sink down") }

func TestTrigger_SideEffectFailuresDoNotRollBack(t *testing.T) {
	store := newStore(t)
	trig := completion.NewTrigger(store, failingSink{}, completion.WithRepository(failingRepo{}))
	ctx := context.Background()

	trig.RecordVideoProgress(ctx, key, 10)
	r, err := trig.RecordQuizPass(ctx, key)
	if err != nil {
		t.Fatalf("RecordQuizPass() error = %v, want side-effect errors reported in Result", err)
	}
	if r.PersistErr == nil || r.NotifyErr == nil {
		t.Errorf("Result = %+v, want PersistErr and NotifyErr", r)
	}
	if !store.Get(key).IsCompleted {
		t.Error("in-memory completion should survive side-effect failures")
	}
}

func TestTrigger_UnknownStage(t *testing.T) {
	trig := completion.NewTrigger(newStore(t), nil)
	_, err := trig.RecordQuizPass(context.Background(), key.Scope.KeyFor("missing"))
	if !errors.Is(err, catalog.ErrUnknownStage) {
		t.Errorf("RecordQuizPass() error = %v, want ErrUnknownStage", err)
	}
}
