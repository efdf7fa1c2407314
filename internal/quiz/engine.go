package quiz

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// DefaultPassThreshold is the reference pass mark (2 of 3).
const DefaultPassThreshold = 2

// Engine creates quiz attempts with a fixed pass threshold.
type Engine struct {
	passThreshold int
}

// NewEngine creates a quiz engine. A non-positive threshold falls back to
// DefaultPassThreshold.
func NewEngine(passThreshold int) *Engine {
	if passThreshold <= 0 {
		passThreshold = DefaultPassThreshold
	}
	return &Engine{passThreshold: passThreshold}
}

// PassThreshold returns the configured pass mark.
func (e *Engine) PassThreshold() int {
	return e.passThreshold
}

// Start begins a new attempt over the given ordered questions.
func (e *Engine) Start(questions []Question) (*Session, error) {
	if len(questions) == 0 {
		return nil, ErrNoQuestions
	}
	for _, q := range questions {
		if err := q.Validate(); err != nil {
			return nil, err
		}
	}
	if e.passThreshold > len(questions) {
		return nil, fmt.Errorf("%w: need %d correct of %d", ErrUnreachableThreshold, e.passThreshold, len(questions))
	}

	qs := make([]Question, len(questions))
	copy(qs, questions)
	answers := make([]int, len(qs))
	for i := range answers {
		answers[i] = unanswered
	}

	return &Session{
		id:        uuid.NewString(),
		questions: qs,
		answers:   answers,
		threshold: e.passThreshold,
		startedAt: time.Now(),
	}, nil
}

// Retake discards any previous attempt and starts a fresh one. Scores from
// earlier attempts are not carried over.
func (e *Engine) Retake(questions []Question) (*Session, error) {
	return e.Start(questions)
}
