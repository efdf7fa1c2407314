package progress

import (
	"errors"
	"fmt"
	"math"
)

// Reference weights: video watching carries most of a stage, the quiz the rest.
const (
	DefaultVideoWeight = 0.7
	DefaultQuizWeight  = 0.3
)

var ErrInvalidWeights = errors.New("invalid progress weights")

// Weights splits a stage's percentage between its two signals.
type Weights struct {
	Video float64
	Quiz  float64
}

// DefaultWeights returns the 70/30 split.
func DefaultWeights() Weights {
	return Weights{Video: DefaultVideoWeight, Quiz: DefaultQuizWeight}
}

// Validate requires both weights in [0, 1] summing to 1.
func (w Weights) Validate() error {
	if !(w.Video >= 0 && w.Video <= 1) || !(w.Quiz >= 0 && w.Quiz <= 1) {
		return fmt.Errorf("%w: video=%v quiz=%v must be within [0, 1]", ErrInvalidWeights, w.Video, w.Quiz)
	}
	if math.Abs(w.Video+w.Quiz-1) > 1e-9 {
		return fmt.Errorf("%w: video=%v quiz=%v must sum to 1", ErrInvalidWeights, w.Video, w.Quiz)
	}
	return nil
}

// Aggregator computes a display percentage for a stage.
type Aggregator struct {
	weights Weights
}

// NewAggregator returns an aggregator using w.
func NewAggregator(w Weights) (*Aggregator, error) {
	if err := w.Validate(); err != nil {
		return nil, err
	}
	return &Aggregator{weights: w}, nil
}

// Weights returns the configured weights.
func (a *Aggregator) Weights() Weights { return a.weights }

// PercentComplete returns 0..100 for p given the stage duration in minutes.
// A completed stage is always 100.
func (a *Aggregator) PercentComplete(p StageProgress, duration float64) int {
	if p.IsCompleted {
		return 100
	}

	var score float64
	if duration > 0 {
		score += math.Min(math.Max(p.VideoWatchMinutes, 0), duration) / duration * a.weights.Video
	}
	if p.QuizCompleted {
		score += a.weights.Quiz
	}

	pct := int(math.Round(score * 100))
	return min(max(pct, 0), 100)
}
