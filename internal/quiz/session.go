package quiz

import (
	"fmt"
	"time"
)

const unanswered = -1

// Verdict is the outcome of an Advance call.
type Verdict struct {
	// Finalized is true when this call scored the attempt.
	Finalized bool
	Index     int
	Score     int
	Total     int
	Passed    bool
}

// Session is one quiz attempt. It is mutable until finalized and rejects
// every mutation afterwards.
type Session struct {
	id          string
	questions   []Question
	answers     []int
	index       int
	threshold   int
	score       int
	passed      bool
	finalized   bool
	startedAt   time.Time
	finalizedAt time.Time
}

// ID returns the attempt ID.
func (s *Session) ID() string { return s.id }

// Len returns the number of questions in the attempt.
func (s *Session) Len() int { return len(s.questions) }

// Index returns the zero-based index of the current question.
func (s *Session) Index() int { return s.index }

// Threshold returns the minimum number of correct answers needed to pass.
func (s *Session) Threshold() int { return s.threshold }

// Current returns the question the learner is on.
func (s *Session) Current() Question { return s.questions[s.index] }

// Selected returns the selected option for question i, or false if unanswered.
func (s *Session) Selected(i int) (int, bool) {
	if i < 0 || i >= len(s.answers) || s.answers[i] == unanswered {
		return 0, false
	}
	return s.answers[i], true
}

// Score returns the correct-answer count. Zero until finalized.
func (s *Session) Score() int { return s.score }

// Passed reports the verdict. False until finalized.
func (s *Session) Passed() bool { return s.passed }

// Finalized reports whether the attempt has been scored.
func (s *Session) Finalized() bool { return s.finalized }

// StartedAt returns when the attempt was created.
func (s *Session) StartedAt() time.Time { return s.startedAt }

// FinalizedAt returns when the attempt was scored (zero if not yet).
func (s *Session) FinalizedAt() time.Time { return s.finalizedAt }

// SelectAnswer records the answer for the current question. Selecting again
// before advancing overwrites the previous choice.
func (s *Session) SelectAnswer(option int) error {
	if s.finalized {
		return ErrSessionFinalized
	}
	q := s.questions[s.index]
	if option < 0 || option >= len(q.Options) {
		return fmt.Errorf("%w: %d not in [0, %d)", ErrOptionOutOfRange, option, len(q.Options))
	}
	s.answers[s.index] = option
	return nil
}

// Advance moves to the next question, or scores the attempt when called on
// the last one. An unanswered current question leaves the session untouched.
func (s *Session) Advance() (Verdict, error) {
	if s.finalized {
		return Verdict{}, ErrSessionFinalized
	}
	if s.answers[s.index] == unanswered {
		return Verdict{}, &IncompleteAnswerError{Index: s.index, QuestionID: s.questions[s.index].ID}
	}

	if s.index < len(s.questions)-1 {
		s.index++
		return Verdict{Index: s.index, Total: len(s.questions)}, nil
	}

	s.finalize()
	return Verdict{
		Finalized: true,
		Index:     s.index,
		Score:     s.score,
		Total:     len(s.questions),
		Passed:    s.passed,
	}, nil
}

func (s *Session) finalize() {
	score := 0
	for i, q := range s.questions {
		if s.answers[i] == q.CorrectOption {
			score++
		}
	}
	s.score = score
	s.passed = score >= s.threshold
	s.finalized = true
	s.finalizedAt = time.Now()
}

// Review returns the questions answered incorrectly in a finalized attempt,
// in question order.
func (s *Session) Review() ([]ReviewItem, error) {
	if !s.finalized {
		return nil, ErrNotFinalized
	}
	var items []ReviewItem
	for i, q := range s.questions {
		if s.answers[i] == q.CorrectOption {
			continue
		}
		items = append(items, ReviewItem{
			QuestionID:     q.ID,
			Prompt:         q.Prompt,
			SelectedOption: s.answers[i],
			CorrectOption:  q.CorrectOption,
			CorrectText:    q.Options[q.CorrectOption],
			Explanation:    q.Explanation,
		})
	}
	return items, nil
}
