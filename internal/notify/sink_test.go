package notify_test

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"github.com/p-n-ai/pai-progress/internal/notify"
)

func TestMemorySink_Notify(t *testing.T) {
	sink := notify.NewMemorySink()

	err := sink.Notify(context.Background(), notify.Event{
		Type:      notify.TypeStageCompleted,
		LearnerID: "learner-1",
		SkillID:   "go-basics",
		StageID:   "intro",
	})
	if err != nil {
		t.Fatalf("Notify() error = %v", err)
	}

	events := sink.Events()
	if len(events) != 1 {
		t.Fatalf("len(events) = %d, want 1", len(events))
	}
	if events[0].StageID != "intro" {
		t.Errorf("StageID = %q, want intro", events[0].StageID)
	}
	if events[0].CreatedAt.IsZero() {
		t.Error("CreatedAt should be set")
	}
	if n := len(sink.OfType(notify.TypeStreakMilestone)); n != 0 {
		t.Errorf("OfType(streak_milestone) = %d, want 0", n)
	}
}

func TestMemorySink_RequiresTypeAndLearner(t *testing.T) {
	sink := notify.NewMemorySink()

	if err := sink.Notify(context.Background(), notify.Event{LearnerID: "l"}); err == nil {
		t.Error("expected error for missing type")
	}
	if err := sink.Notify(context.Background(), notify.Event{Type: notify.TypeStageCompleted}); err == nil {
		t.Error("expected error for missing learner")
	}
	if n := len(sink.Events()); n != 0 {
		t.Errorf("len(events) = %d, want 0", n)
	}
}

func TestLogSink_Notify(t *testing.T) {
	var buf bytes.Buffer
	sink := notify.NewLogSink(slog.New(slog.NewJSONHandler(&buf, nil)))

	err := sink.Notify(context.Background(), notify.Event{
		Type:       notify.TypeStreakMilestone,
		LearnerID:  "learner-1",
		StreakDays: 14,
	})
	if err != nil {
		t.Fatalf("Notify() error = %v", err)
	}
	out := buf.String()
	if !strings.Contains(out, `"type":"streak_milestone"`) || !strings.Contains(out, `"streak_days":14`) {
		t.Errorf("log output = %s, want type and streak_days", out)
	}
}

type failingSink struct{ err error }

func (f failingSink) Notify(context.Context, notify.Event) error { return f.err }

func TestMultiSink_TriesEverySink(t *testing.T) {
	boom := errors.New("boom")
	mem := notify.NewMemorySink()
	multi := notify.MultiSink{failingSink{err: boom}, mem}

	err := multi.Notify(context.Background(), notify.Event{Type: notify.TypeStageCompleted, LearnerID: "l"})
	if !errors.Is(err, boom) {
		t.Errorf("Notify() error = %v, want boom", err)
	}
	if len(mem.Events()) != 1 {
		t.Error("memory sink should still receive the event")
	}
}

func TestPostgresSink_Notify_NilPool(t *testing.T) {
	sink := notify.NewPostgresSink(nil)

	err := sink.Notify(context.Background(), notify.Event{
		Type:      notify.TypeStageCompleted,
		LearnerID: "learner-1",
	})
	if err == nil {
		t.Fatal("expected error for nil pool")
	}
}

func TestDescribe(t *testing.T) {
	tests := []struct {
		name  string
		event notify.Event
		lang  string
		want  string
	}{
		{"stage en", notify.Event{Type: notify.TypeStageCompleted, StageID: "intro"}, "en", "Stage complete: intro."},
		{"streak en", notify.Event{Type: notify.TypeStreakMilestone, StreakDays: 7}, "en", "7-day learning streak! Keep it going."},
		{"streak ms", notify.Event{Type: notify.TypeStreakMilestone, StreakDays: 21}, "ms", "Rentetan pembelajaran 21 hari! Teruskan."},
		{"stage ms", notify.Event{Type: notify.TypeStageCompleted, StageID: "intro"}, "ms", "Peringkat selesai: intro."},
		{"unknown language", notify.Event{Type: notify.TypeStreakMilestone, StreakDays: 7}, "xx-bogus", "7-day learning streak! Keep it going."},
		{"unknown type", notify.Event{Type: "other"}, "en", "other"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := notify.Describe(tt.event, tt.lang); got != tt.want {
				t.Errorf("Describe() = %q, want %q", got, tt.want)
			}
		})
	}
}
