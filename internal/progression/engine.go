// Package progression is the learner-facing facade over the catalog,
// progress store, quiz engine, gating resolver, completion trigger and
// streak notifier.
package progression

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/p-n-ai/pai-progress/internal/catalog"
	"github.com/p-n-ai/pai-progress/internal/completion"
	"github.com/p-n-ai/pai-progress/internal/gating"
	"github.com/p-n-ai/pai-progress/internal/notify"
	"github.com/p-n-ai/pai-progress/internal/progress"
	"github.com/p-n-ai/pai-progress/internal/quiz"
	"github.com/p-n-ai/pai-progress/internal/streak"
)

var (
	ErrStageLocked  = errors.New("stage is locked")
	ErrNoActiveQuiz = errors.New("no active quiz attempt")
	ErrInvalidInput = errors.New("invalid input")
)

// DefaultSessionIdleTimeout is how long an untouched quiz attempt is kept.
const DefaultSessionIdleTimeout = 24 * time.Hour

// Catalog is the read side of the skill catalog. *catalog.Loader implements it.
type Catalog interface {
	AllSkills() []catalog.Skill
	GetSkill(id string) (catalog.Skill, bool)
	Stage(skillID, stageID string) (catalog.Stage, error)
}

// EngineConfig holds dependencies for the progression engine. Only Catalog
// is required.
type EngineConfig struct {
	Catalog       Catalog
	Store         progress.Store
	Repository    progress.Repository
	Sink          notify.Sink
	Streaks       *streak.Notifier
	Weights       progress.Weights
	PassThreshold int
	Language      string
	Now           func() time.Time
	// SessionIdleTimeout drops quiz attempts not touched for this long.
	SessionIdleTimeout time.Duration
}

type openSession struct {
	sess     *quiz.Session
	lastUsed time.Time
}

// Engine serves learner actions. Calls for the same learner are applied one
// at a time in the order they arrive.
type Engine struct {
	catalog    Catalog
	store      progress.Store
	repo       progress.Repository
	trigger    *completion.Trigger
	resolver   *gating.Resolver
	aggregator *progress.Aggregator
	quizzes    *quiz.Engine
	streaks    *streak.Notifier
	now        func() time.Time
	idle       time.Duration

	locks    sync.Map // learnerID -> *sync.Mutex
	mu       sync.Mutex
	hydrated map[progress.Scope]bool
	sessions map[progress.Key]*openSession
}

// NewEngine creates a progression engine. It fails if any catalog stage has
// fewer questions than the pass threshold, since such a stage could never
// be completed.
func NewEngine(cfg EngineConfig) (*Engine, error) {
	if cfg.Catalog == nil {
		return nil, fmt.Errorf("catalog is required")
	}
	quizzes := quiz.NewEngine(cfg.PassThreshold)
	if err := checkThreshold(cfg.Catalog, quizzes.PassThreshold()); err != nil {
		return nil, err
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	idle := cfg.SessionIdleTimeout
	if idle <= 0 {
		idle = DefaultSessionIdleTimeout
	}
	store := cfg.Store
	if store == nil {
		store = progress.NewMemoryStore(cfg.Catalog, progress.WithClock(now))
	}
	repo := cfg.Repository
	if repo == nil {
		repo = progress.NopRepository{}
	}
	sink := cfg.Sink
	if sink == nil {
		sink = notify.NopSink{}
	}
	weights := cfg.Weights
	if weights == (progress.Weights{}) {
		weights = progress.DefaultWeights()
	}
	aggregator, err := progress.NewAggregator(weights)
	if err != nil {
		return nil, err
	}
	lang := cfg.Language
	if lang == "" {
		lang = "en"
	}
	streaks := cfg.Streaks
	if streaks == nil {
		streaks = streak.NewNotifier(streak.NotifierConfig{Sink: sink, Language: lang})
	}
	return &Engine{
		catalog:    cfg.Catalog,
		store:      store,
		repo:       repo,
		trigger:    completion.NewTrigger(store, sink, completion.WithRepository(repo), completion.WithLanguage(lang)),
		resolver:   gating.NewResolver(store),
		aggregator: aggregator,
		quizzes:    quizzes,
		streaks:    streaks,
		now:        now,
		idle:       idle,
		hydrated:   make(map[progress.Scope]bool),
		sessions:   make(map[progress.Key]*openSession),
	}, nil
}

func checkThreshold(cat Catalog, threshold int) error {
	for _, skill := range cat.AllSkills() {
		for _, st := range skill.Stages {
			if len(st.Quiz) < threshold {
				return fmt.Errorf("%w: stage %s/%s has %d questions, pass threshold is %d",
					quiz.ErrUnreachableThreshold, skill.ID, st.ID, len(st.Quiz), threshold)
			}
		}
	}
	return nil
}

// Overview returns every stage of a skill with its derived state.
func (e *Engine) Overview(ctx context.Context, learnerID, skillID string) (SkillOverview, error) {
	defer e.lock(learnerID)()

	skill, scope, err := e.open(ctx, learnerID, skillID)
	if err != nil {
		return SkillOverview{}, err
	}
	return e.overview(skill, scope), nil
}

// WatchVideo records watched minutes for an unlocked stage.
func (e *Engine) WatchVideo(ctx context.Context, learnerID, skillID, stageID string, minutes float64) (StageResult, error) {
	defer e.lock(learnerID)()

	skill, idx, scope, err := e.openStage(ctx, learnerID, skillID, stageID)
	if err != nil {
		return StageResult{}, err
	}

	res, err := e.trigger.RecordVideoProgress(ctx, scope.KeyFor(stageID), minutes)
	if err != nil {
		return StageResult{}, fmt.Errorf("watch video: %w", err)
	}

	out := e.stageResult(skill, scope, idx, res)
	if minutes > 0 {
		e.recordActivity(ctx, learnerID, &out)
	}
	return out, nil
}

// StartQuiz opens a new quiz attempt for an unlocked stage, replacing any
// attempt already open for it.
func (e *Engine) StartQuiz(ctx context.Context, learnerID, skillID, stageID string) (QuizView, error) {
	defer e.lock(learnerID)()
	return e.startQuiz(ctx, learnerID, skillID, stageID, false)
}

// RetakeQuiz discards the current attempt and starts a fresh one.
func (e *Engine) RetakeQuiz(ctx context.Context, learnerID, skillID, stageID string) (QuizView, error) {
	defer e.lock(learnerID)()
	return e.startQuiz(ctx, learnerID, skillID, stageID, true)
}

// AnswerQuiz selects an option for the current question of the open attempt.
func (e *Engine) AnswerQuiz(ctx context.Context, learnerID, skillID, stageID string, option int) (QuizView, error) {
	defer e.lock(learnerID)()

	_, _, scope, err := e.openStage(ctx, learnerID, skillID, stageID)
	if err != nil {
		return QuizView{}, err
	}
	key := scope.KeyFor(stageID)
	sess, err := e.session(key)
	if err != nil {
		return QuizView{}, err
	}
	if err := sess.SelectAnswer(option); err != nil {
		return QuizView{}, err
	}
	return newQuizView(stageID, sess), nil
}

// AdvanceQuiz moves to the next question or scores the attempt. A passing
// score feeds the stage's quiz signal.
func (e *Engine) AdvanceQuiz(ctx context.Context, learnerID, skillID, stageID string) (QuizView, StageResult, error) {
	defer e.lock(learnerID)()

	skill, idx, scope, err := e.openStage(ctx, learnerID, skillID, stageID)
	if err != nil {
		return QuizView{}, StageResult{}, err
	}
	key := scope.KeyFor(stageID)
	sess, err := e.session(key)
	if err != nil {
		return QuizView{}, StageResult{}, err
	}

	verdict, err := sess.Advance()
	if err != nil {
		return QuizView{}, StageResult{}, err
	}
	view := newQuizView(stageID, sess)

	if !verdict.Finalized {
		return view, e.stageResult(skill, scope, idx, completion.Result{Progress: e.store.Get(key)}), nil
	}

	slog.Info("quiz attempt scored",
		"learner_id", learnerID,
		"stage_id", stageID,
		"attempt_id", sess.ID(),
		"score", verdict.Score,
		"total", verdict.Total,
		"passed", verdict.Passed,
	)

	res := completion.Result{Progress: e.store.Get(key)}
	if verdict.Passed {
		res, err = e.trigger.RecordQuizPass(ctx, key)
		if err != nil {
			return QuizView{}, StageResult{}, fmt.Errorf("record quiz pass: %w", err)
		}
	}
	out := e.stageResult(skill, scope, idx, res)
	e.recordActivity(ctx, learnerID, &out)
	return view, out, nil
}

// ReviewQuiz lists the incorrectly answered questions of a scored attempt.
func (e *Engine) ReviewQuiz(ctx context.Context, learnerID, skillID, stageID string) ([]quiz.ReviewItem, error) {
	defer e.lock(learnerID)()

	if _, _, err := e.open(ctx, learnerID, skillID); err != nil {
		return nil, err
	}
	if _, err := e.catalog.Stage(skillID, stageID); err != nil {
		return nil, err
	}
	sess, err := e.session(progress.Scope{LearnerID: learnerID, SkillID: skillID}.KeyFor(stageID))
	if err != nil {
		return nil, err
	}
	return sess.Review()
}

// Streak returns the learner's current streak.
func (e *Engine) Streak(ctx context.Context, learnerID string) (streak.State, error) {
	if learnerID == "" {
		return streak.State{}, fmt.Errorf("%w: learner id is required", ErrInvalidInput)
	}
	return e.streaks.Current(ctx, learnerID)
}

func (e *Engine) startQuiz(ctx context.Context, learnerID, skillID, stageID string, retake bool) (QuizView, error) {
	skill, idx, scope, err := e.openStage(ctx, learnerID, skillID, stageID)
	if err != nil {
		return QuizView{}, err
	}
	stage := skill.Stages[idx]
	key := scope.KeyFor(stageID)

	var sess *quiz.Session
	if retake {
		if _, err := e.session(key); err != nil {
			return QuizView{}, err
		}
		sess, err = e.quizzes.Retake(stage.Quiz)
	} else {
		sess, err = e.quizzes.Start(stage.Quiz)
	}
	if err != nil {
		return QuizView{}, fmt.Errorf("start quiz for %s: %w", stageID, err)
	}

	e.mu.Lock()
	e.pruneSessionsLocked()
	e.sessions[key] = &openSession{sess: sess, lastUsed: e.now()}
	e.mu.Unlock()

	slog.Debug("quiz attempt started",
		"learner_id", learnerID,
		"stage_id", stageID,
		"attempt_id", sess.ID(),
		"retake", retake,
	)
	return newQuizView(stageID, sess), nil
}

// lock serializes calls for one learner and returns the unlock func.
func (e *Engine) lock(learnerID string) func() {
	m, _ := e.locks.LoadOrStore(learnerID, &sync.Mutex{})
	mu := m.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock
}

// open resolves the skill and hydrates the learner's stored progress on
// first access.
func (e *Engine) open(ctx context.Context, learnerID, skillID string) (catalog.Skill, progress.Scope, error) {
	if learnerID == "" {
		return catalog.Skill{}, progress.Scope{}, fmt.Errorf("%w: learner id is required", ErrInvalidInput)
	}
	skill, ok := e.catalog.GetSkill(skillID)
	if !ok {
		return catalog.Skill{}, progress.Scope{}, fmt.Errorf("%w: %s", catalog.ErrUnknownSkill, skillID)
	}
	scope := progress.Scope{LearnerID: learnerID, SkillID: skillID}
	if err := e.hydrate(ctx, scope); err != nil {
		return catalog.Skill{}, progress.Scope{}, err
	}
	return skill, scope, nil
}

// openStage is open plus the unlock check for one stage.
func (e *Engine) openStage(ctx context.Context, learnerID, skillID, stageID string) (catalog.Skill, int, progress.Scope, error) {
	skill, scope, err := e.open(ctx, learnerID, skillID)
	if err != nil {
		return catalog.Skill{}, 0, progress.Scope{}, err
	}
	idx := skill.StageIndex(stageID)
	if idx < 0 {
		return catalog.Skill{}, 0, progress.Scope{}, fmt.Errorf("%w: %s/%s", catalog.ErrUnknownStage, skillID, stageID)
	}
	unlocked, err := e.resolver.IsUnlocked(scope, skill.Stages, idx)
	if err != nil {
		return catalog.Skill{}, 0, progress.Scope{}, err
	}
	if !unlocked {
		return catalog.Skill{}, 0, progress.Scope{}, fmt.Errorf("%w: %s requires %s", ErrStageLocked, stageID, skill.Stages[idx-1].ID)
	}
	return skill, idx, scope, nil
}

func (e *Engine) hydrate(ctx context.Context, scope progress.Scope) error {
	e.mu.Lock()
	done := e.hydrated[scope]
	e.mu.Unlock()
	if done {
		return nil
	}

	records, err := e.repo.Load(ctx, scope)
	if err != nil {
		return fmt.Errorf("load progress: %w", err)
	}
	for _, r := range records {
		if err := e.store.Restore(r); err != nil {
			slog.Warn("skipping stored progress",
				"learner_id", r.LearnerID,
				"skill_id", r.SkillID,
				"stage_id", r.StageID,
				"error", err,
			)
		}
	}

	e.mu.Lock()
	e.hydrated[scope] = true
	e.mu.Unlock()
	return nil
}

func (e *Engine) session(key progress.Key) (*quiz.Session, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	entry, ok := e.sessions[key]
	now := e.now()
	if !ok || now.Sub(entry.lastUsed) > e.idle {
		delete(e.sessions, key)
		return nil, fmt.Errorf("%w: %s", ErrNoActiveQuiz, key.StageID)
	}
	entry.lastUsed = now
	return entry.sess, nil
}

// pruneSessionsLocked drops attempts idle longer than e.idle. Callers must
// hold e.mu.
func (e *Engine) pruneSessionsLocked() {
	cutoff := e.now().Add(-e.idle)
	for key, entry := range e.sessions {
		if entry.lastUsed.Before(cutoff) {
			delete(e.sessions, key)
		}
	}
}

func (e *Engine) recordActivity(ctx context.Context, learnerID string, out *StageResult) {
	o, err := e.streaks.RecordActivity(ctx, learnerID, e.now())
	if err != nil {
		slog.Warn("failed to record streak activity", "learner_id", learnerID, "error", err)
		return
	}
	out.StreakDays = o.State.CurrentDays
	out.StreakMilestone = o.Milestone
}
