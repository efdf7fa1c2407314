package quiz

import (
	"errors"
	"fmt"
)

var (
	ErrNoQuestions          = errors.New("quiz has no questions")
	ErrInvalidQuestion      = errors.New("invalid question")
	ErrUnreachableThreshold = errors.New("pass threshold exceeds question count")
	ErrOptionOutOfRange     = errors.New("option out of range")
	ErrSessionFinalized     = errors.New("quiz session already finalized")
	ErrNotFinalized         = errors.New("quiz session not finalized")
	ErrIncompleteAnswer     = errors.New("current question has no answer")
)

// IncompleteAnswerError is returned by Advance when the current question
// has not been answered. It matches ErrIncompleteAnswer with errors.Is.
type IncompleteAnswerError struct {
	Index      int
	QuestionID string
}

func (e *IncompleteAnswerError) Error() string {
	return fmt.Sprintf("question %d (%s) must be answered before advancing", e.Index+1, e.QuestionID)
}

func (e *IncompleteAnswerError) Is(target error) bool {
	return target == ErrIncompleteAnswer
}
