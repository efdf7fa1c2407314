// Package quiz runs fixed, ordered question sets for a single stage and
// produces a pass/fail verdict per attempt.
package quiz

import "fmt"

// Question is a single multiple-choice question.
type Question struct {
	ID            string   `yaml:"id" json:"id"`
	Prompt        string   `yaml:"prompt" json:"prompt"`
	Options       []string `yaml:"options" json:"options"`
	CorrectOption int      `yaml:"correct_option" json:"correct_option"`
	Explanation   string   `yaml:"explanation" json:"explanation,omitempty"`
}

// Validate checks that the question can be answered.
func (q Question) Validate() error {
	if len(q.Options) < 2 {
		return fmt.Errorf("%w: question %q needs at least 2 options, got %d", ErrInvalidQuestion, q.ID, len(q.Options))
	}
	if q.CorrectOption < 0 || q.CorrectOption >= len(q.Options) {
		return fmt.Errorf("%w: question %q correct option %d out of range", ErrInvalidQuestion, q.ID, q.CorrectOption)
	}
	return nil
}

// ReviewItem is a read-only projection of an incorrectly answered question.
type ReviewItem struct {
	QuestionID     string `json:"question_id"`
	Prompt         string `json:"prompt"`
	SelectedOption int    `json:"selected_option"`
	CorrectOption  int    `json:"correct_option"`
	CorrectText    string `json:"correct_text"`
	Explanation    string `json:"explanation,omitempty"`
}
