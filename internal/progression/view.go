package progression

import (
	"math"
	"time"

	"github.com/p-n-ai/pai-progress/internal/catalog"
	"github.com/p-n-ai/pai-progress/internal/completion"
	"github.com/p-n-ai/pai-progress/internal/gating"
	"github.com/p-n-ai/pai-progress/internal/progress"
	"github.com/p-n-ai/pai-progress/internal/quiz"
)

// StageView is one stage as a learner sees it.
type StageView struct {
	ID                string            `json:"id"`
	Title             string            `json:"title"`
	SequenceIndex     int               `json:"sequence_index"`
	DurationMinutes   float64           `json:"duration_minutes"`
	State             gating.StageState `json:"state"`
	PercentComplete   int               `json:"percent_complete"`
	VideoWatchMinutes float64           `json:"video_watch_minutes"`
	QuizCompleted     bool              `json:"quiz_completed"`
	IsCompleted       bool              `json:"is_completed"`
	CompletedAt       *time.Time        `json:"completed_at,omitempty"`
}

// SkillOverview is a learner's view of a whole skill.
type SkillOverview struct {
	LearnerID       string      `json:"learner_id"`
	SkillID         string      `json:"skill_id"`
	Name            string      `json:"name"`
	PercentComplete int         `json:"percent_complete"`
	NextStage       string      `json:"next_stage,omitempty"`
	Stages          []StageView `json:"stages"`
}

// StageResult reports a stage after a learner action.
type StageResult struct {
	Stage           StageView `json:"stage"`
	Completed       bool      `json:"completed"`
	StreakDays      int       `json:"streak_days,omitempty"`
	StreakMilestone bool      `json:"streak_milestone,omitempty"`
}

// QuestionView hides the correct answer.
type QuestionView struct {
	ID       string   `json:"id"`
	Prompt   string   `json:"prompt"`
	Options  []string `json:"options"`
	Selected *int     `json:"selected,omitempty"`
}

// QuizView is the state of a quiz attempt.
type QuizView struct {
	AttemptID string        `json:"attempt_id"`
	StageID   string        `json:"stage_id"`
	Index     int           `json:"index"`
	Total     int           `json:"total"`
	Threshold int           `json:"threshold"`
	Question  *QuestionView `json:"question,omitempty"`
	Finalized bool          `json:"finalized"`
	Score     int           `json:"score"`
	Passed    bool          `json:"passed"`
}

func newQuizView(stageID string, s *quiz.Session) QuizView {
	v := QuizView{
		AttemptID: s.ID(),
		StageID:   stageID,
		Index:     s.Index(),
		Total:     s.Len(),
		Threshold: s.Threshold(),
		Finalized: s.Finalized(),
		Score:     s.Score(),
		Passed:    s.Passed(),
	}
	if !s.Finalized() {
		q := s.Current()
		qv := &QuestionView{ID: q.ID, Prompt: q.Prompt, Options: append([]string(nil), q.Options...)}
		if sel, ok := s.Selected(s.Index()); ok {
			qv.Selected = &sel
		}
		v.Question = qv
	}
	return v
}

func (e *Engine) stageView(skill catalog.Skill, scope progress.Scope, idx int, p progress.StageProgress) StageView {
	st := skill.Stages[idx]
	state, _ := e.resolver.State(scope, skill.Stages, idx)
	return StageView{
		ID:                st.ID,
		Title:             st.Title,
		SequenceIndex:     st.SequenceIndex,
		DurationMinutes:   st.DurationMinutes,
		State:             state,
		PercentComplete:   e.aggregator.PercentComplete(p, st.DurationMinutes),
		VideoWatchMinutes: p.VideoWatchMinutes,
		QuizCompleted:     p.QuizCompleted,
		IsCompleted:       p.IsCompleted,
		CompletedAt:       p.CompletedAt,
	}
}

func (e *Engine) stageResult(skill catalog.Skill, scope progress.Scope, idx int, res completion.Result) StageResult {
	return StageResult{
		Stage:     e.stageView(skill, scope, idx, res.Progress),
		Completed: res.Completed,
	}
}

func (e *Engine) overview(skill catalog.Skill, scope progress.Scope) SkillOverview {
	out := SkillOverview{
		LearnerID: scope.LearnerID,
		SkillID:   skill.ID,
		Name:      skill.Name,
		Stages:    make([]StageView, len(skill.Stages)),
	}
	total := 0
	for i, st := range skill.Stages {
		out.Stages[i] = e.stageView(skill, scope, i, e.store.Get(scope.KeyFor(st.ID)))
		total += out.Stages[i].PercentComplete
	}
	if n := len(skill.Stages); n > 0 {
		out.PercentComplete = int(math.Round(float64(total) / float64(n)))
	}
	if next := e.resolver.NextAvailable(scope, skill.Stages); next >= 0 {
		out.NextStage = skill.Stages[next].ID
	}
	return out
}
