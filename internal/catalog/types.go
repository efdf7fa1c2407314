package catalog

import "github.com/p-n-ai/pai-progress/internal/quiz"

// Skill is an ordered sequence of stages loaded from YAML.
type Skill struct {
	ID          string  `yaml:"id" json:"id"`
	Name        string  `yaml:"name" json:"name"`
	Description string  `yaml:"description" json:"description,omitempty"`
	Stages      []Stage `yaml:"stages" json:"stages"`
}

// Stage is one gated unit of content within a skill.
type Stage struct {
	ID string `yaml:"id" json:"id"`
	// SequenceIndex is the 0-based position within the skill, derived from
	// file order rather than read from YAML.
	SequenceIndex int    `yaml:"-" json:"sequence_index"`
	Title         string `yaml:"title" json:"title"`
	// DurationMinutes is the watch time that counts as 100% of the video.
	DurationMinutes float64         `yaml:"duration_minutes" json:"duration_minutes"`
	Quiz            []quiz.Question `yaml:"quiz" json:"quiz,omitempty"`
}

// StageIndex returns the position of stageID within the skill, or -1.
func (s Skill) StageIndex(stageID string) int {
	for i, st := range s.Stages {
		if st.ID == stageID {
			return i
		}
	}
	return -1
}
