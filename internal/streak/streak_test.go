package streak_test

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/p-n-ai/pai-progress/internal/streak"
)

func day(t *testing.T, s string) streak.Day {
	t.Helper()
	d, err := streak.ParseDay(s)
	if err != nil {
		t.Fatalf("ParseDay(%q) error = %v", s, err)
	}
	return d
}

func TestState_Record(t *testing.T) {
	tests := []struct {
		name        string
		days        []string
		wantCurrent int
		wantLongest int
	}{
		{"first activity", []string{"2026-03-01"}, 1, 1},
		{"same day twice", []string{"2026-03-01", "2026-03-01"}, 1, 1},
		{"consecutive", []string{"2026-03-01", "2026-03-02", "2026-03-03"}, 3, 3},
		{"gap resets", []string{"2026-03-01", "2026-03-02", "2026-03-04"}, 1, 2},
		{"earlier day ignored", []string{"2026-03-05", "2026-03-06", "2026-03-02"}, 2, 2},
		{"across month end", []string{"2026-02-28", "2026-03-01"}, 2, 2},
		{"across year end", []string{"2025-12-31", "2026-01-01"}, 2, 2},
		{"longest kept after reset", []string{"2026-03-01", "2026-03-02", "2026-03-03", "2026-03-10", "2026-03-11"}, 2, 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var s streak.State
			for _, d := range tt.days {
				s, _ = s.Record(day(t, d), 7)
			}
			if s.CurrentDays != tt.wantCurrent {
				t.Errorf("CurrentDays = %d, want %d", s.CurrentDays, tt.wantCurrent)
			}
			if s.LongestDays != tt.wantLongest {
				t.Errorf("LongestDays = %d, want %d", s.LongestDays, tt.wantLongest)
			}
			if s.LongestDays < s.CurrentDays {
				t.Error("LongestDays must never be below CurrentDays")
			}
		})
	}
}

func TestState_Record_Milestones(t *testing.T) {
	var s streak.State
	start := day(t, "2026-01-01")

	var milestones []int
	for i := 0; i < 21; i++ {
		var out streak.Outcome
		s, out = s.Record(start.AddDays(i), 7)
		if out.Milestone {
			milestones = append(milestones, out.State.CurrentDays)
		}
		// A second activity the same day never re-fires.
		if _, again := s.Record(start.AddDays(i), 7); again.Milestone || again.Changed {
			t.Fatalf("day %d: repeated activity reported %+v", i, again)
		}
	}

	want := []int{7, 14, 21}
	if len(milestones) != len(want) {
		t.Fatalf("milestones = %v, want %v", milestones, want)
	}
	for i := range want {
		if milestones[i] != want[i] {
			t.Errorf("milestones[%d] = %d, want %d", i, milestones[i], want[i])
		}
	}
}

func TestState_Record_MilestoneAfterReset(t *testing.T) {
	s := streak.State{CurrentDays: 1, LongestDays: 4, LastActivity: day(t, "2026-02-01")}

	// With a daily interval, a restarted streak of one is still a milestone.
	next, out := s.Record(day(t, "2026-02-05"), 1)
	if out.Changed {
		t.Errorf("Changed = true, want false for a 1 -> 1 reset")
	}
	if !out.Milestone || next.CurrentDays != 1 {
		t.Errorf("Record() = %+v, milestone %v; want current 1 with milestone", next, out.Milestone)
	}
	if next.LongestDays != 4 {
		t.Errorf("LongestDays = %d, want 4", next.LongestDays)
	}

	// Earlier days stay ignored.
	if _, out := next.Record(day(t, "2026-02-03"), 1); out.Milestone {
		t.Error("an earlier day must not fire a milestone")
	}
}

func TestDayOf_UsesLocation(t *testing.T) {
	kl := time.FixedZone("MYT", 8*60*60)
	// 20:00 UTC on March 1 is already March 2 in UTC+8.
	ts := time.Date(2026, 3, 1, 20, 0, 0, 0, time.UTC)

	if got := streak.DayOf(ts, time.UTC).String(); got != "2026-03-01" {
		t.Errorf("DayOf(UTC) = %s, want 2026-03-01", got)
	}
	if got := streak.DayOf(ts, kl).String(); got != "2026-03-02" {
		t.Errorf("DayOf(UTC+8) = %s, want 2026-03-02", got)
	}
}

func TestDay_JSON(t *testing.T) {
	s := streak.State{CurrentDays: 3, LongestDays: 5, LastActivity: day(t, "2026-03-04")}
	raw, err := json.Marshal(s)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	if want := `{"current_days":3,"longest_days":5,"last_activity":"2026-03-04"}`; string(raw) != want {
		t.Errorf("Marshal() = %s, want %s", raw, want)
	}

	var zero streak.State
	if err := json.Unmarshal([]byte(`{"last_activity":""}`), &zero); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if !zero.LastActivity.IsZero() {
		t.Errorf("LastActivity = %v, want zero", zero.LastActivity)
	}
}
