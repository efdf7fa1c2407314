package gating_test

import "github.com/p-n-ai/pai-progress/internal/quiz"

var testQuiz = []quiz.Question{
	{ID: "q1", Prompt: "Ready?", Options: []string{"yes", "no"}, CorrectOption: 0},
}
