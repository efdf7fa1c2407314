// Package gating decides which stages of a skill a learner may open.
// Locked is never stored; it is derived on every call from the completion of
// the preceding stage.
package gating

import (
	"errors"
	"fmt"

	"github.com/p-n-ai/pai-progress/internal/catalog"
	"github.com/p-n-ai/pai-progress/internal/progress"
)

var ErrIndexOutOfRange = errors.New("stage index out of range")

// StageState is the derived display state of a stage.
type StageState string

const (
	StateLocked     StageState = "locked"
	StateInProgress StageState = "in_progress"
	StateCompleted  StageState = "completed"
)

// ProgressReader is the read side of a progress store.
type ProgressReader interface {
	Get(key progress.Key) progress.StageProgress
}

// Resolver answers unlock questions against live progress.
type Resolver struct {
	progress ProgressReader
}

func NewResolver(r ProgressReader) *Resolver {
	return &Resolver{progress: r}
}

// IsUnlocked reports whether stages[index] is accessible. The first stage is
// always unlocked; any other stage unlocks once its predecessor is completed.
func (r *Resolver) IsUnlocked(scope progress.Scope, stages []catalog.Stage, index int) (bool, error) {
	if index < 0 || index >= len(stages) {
		return false, fmt.Errorf("%w: %d of %d", ErrIndexOutOfRange, index, len(stages))
	}
	if index == 0 {
		return true, nil
	}
	prev := r.progress.Get(scope.KeyFor(stages[index-1].ID))
	return prev.IsCompleted, nil
}

// State derives the display state of stages[index].
func (r *Resolver) State(scope progress.Scope, stages []catalog.Stage, index int) (StageState, error) {
	unlocked, err := r.IsUnlocked(scope, stages, index)
	if err != nil {
		return "", err
	}
	if r.progress.Get(scope.KeyFor(stages[index].ID)).IsCompleted {
		return StateCompleted, nil
	}
	if !unlocked {
		return StateLocked, nil
	}
	return StateInProgress, nil
}

// NextAvailable returns the index of the first unlocked stage that is not yet
// completed, or -1 when every stage is done.
func (r *Resolver) NextAvailable(scope progress.Scope, stages []catalog.Stage) int {
	for i, st := range stages {
		if r.progress.Get(scope.KeyFor(st.ID)).IsCompleted {
			continue
		}
		if unlocked, _ := r.IsUnlocked(scope, stages, i); unlocked {
			return i
		}
		return -1
	}
	return -1
}
