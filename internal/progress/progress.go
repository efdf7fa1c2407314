// Package progress holds per-learner stage progress records and the rules
// that derive stage completion from raw video and quiz signals.
package progress

import (
	"time"

	"github.com/p-n-ai/pai-progress/internal/catalog"
)

// Scope identifies one learner's progress through one skill.
type Scope struct {
	LearnerID string `json:"learner_id"`
	SkillID   string `json:"skill_id"`
}

// Key identifies a single stage progress record.
type Key struct {
	Scope
	StageID string `json:"stage_id"`
}

// KeyFor builds a record key for a stage within a scope.
func (s Scope) KeyFor(stageID string) Key {
	return Key{Scope: s, StageID: stageID}
}

// StageProgress is the mutable progress record for one learner and stage.
// VideoWatchMinutes and QuizCompleted are the only stored signals;
// IsCompleted is derived from them by recompute.
type StageProgress struct {
	LearnerID         string     `json:"learner_id"`
	SkillID           string     `json:"skill_id"`
	StageID           string     `json:"stage_id"`
	VideoWatchMinutes float64    `json:"video_watch_minutes"`
	QuizCompleted     bool       `json:"quiz_completed"`
	IsCompleted       bool       `json:"is_completed"`
	CompletedAt       *time.Time `json:"completed_at,omitempty"`
	UpdatedAt         time.Time  `json:"updated_at"`
}

// Key returns the record key.
func (p StageProgress) Key() Key {
	return Key{Scope: Scope{LearnerID: p.LearnerID, SkillID: p.SkillID}, StageID: p.StageID}
}

// Update is the result of a mutation.
type Update struct {
	Progress StageProgress
	// Completed is true only for the mutation that flipped IsCompleted from
	// false to true.
	Completed bool
}

// StageLookup resolves stage definitions. *catalog.Loader implements it.
type StageLookup interface {
	Stage(skillID, stageID string) (catalog.Stage, error)
}

func newRecord(key Key) *StageProgress {
	return &StageProgress{
		LearnerID: key.LearnerID,
		SkillID:   key.SkillID,
		StageID:   key.StageID,
	}
}

// recompute re-derives IsCompleted. It never clears a completed record.
func recompute(p *StageProgress, duration float64, now time.Time) bool {
	if p.IsCompleted {
		return false
	}
	if p.QuizCompleted && p.VideoWatchMinutes >= duration {
		p.IsCompleted = true
		t := now
		p.CompletedAt = &t
		return true
	}
	return false
}
