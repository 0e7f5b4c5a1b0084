// Package ordering keeps the steps of a scenario in a contiguous 1..N
// sequence. Every operation works on a copy: on error the input is returned
// to the caller untouched and no partial reorder is observable.
package ordering

import (
	"errors"
	"fmt"
	"sort"

	"github.com/blackcoderx/stepwise/pkg/model"
)

// ErrStepNotFound is returned when the step to move or remove is not in the
// scenario.
var ErrStepNotFound = errors.New("step not found in scenario")

// SequenceError rejects a target position.
type SequenceError struct {
	Target int
	Max    int
	Code   model.Status
}

func (e *SequenceError) Error() string {
	return fmt.Sprintf("sequence %d outside 1..%d: %s", e.Target, e.Max, e.Code)
}

// CorruptError reports steps whose sequences are not a permutation of 1..N.
type CorruptError struct {
	Sequences []int
}

func (e *CorruptError) Error() string {
	return fmt.Sprintf("step sequences %v are not a permutation of 1..%d", e.Sequences, len(e.Sequences))
}

// Normalize returns the steps sorted by sequence, after checking that the
// sequences form a permutation of 1..N.
func Normalize(steps []model.StepInfo) ([]model.StepInfo, error) {
	out := clone(steps)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Sequence < out[j].Sequence })
	for i, s := range out {
		if s.Sequence != i+1 {
			seqs := make([]int, len(steps))
			for k, st := range steps {
				seqs[k] = st.Sequence
			}
			return steps, &CorruptError{Sequences: seqs}
		}
	}
	return out, nil
}

// Move gives stepID the sequence target. Steps between the old and new
// position shift by one toward the vacated slot; everything else keeps its
// sequence.
func Move(steps []model.StepInfo, stepID string, target int) ([]model.StepInfo, error) {
	sorted, err := Normalize(steps)
	if err != nil {
		return steps, err
	}
	if err := checkTarget(target, len(sorted)); err != nil {
		return steps, err
	}
	from := indexOf(sorted, stepID)
	if from < 0 {
		return steps, fmt.Errorf("move %s: %w", stepID, ErrStepNotFound)
	}

	moved := sorted[from]
	rest := append(sorted[:from:from], sorted[from+1:]...)
	out := make([]model.StepInfo, 0, len(sorted))
	out = append(out, rest[:target-1]...)
	out = append(out, moved)
	out = append(out, rest[target-1:]...)
	renumber(out)
	return out, nil
}

// Insert places step at target, shifting later steps down. A nil target
// appends the step at N+1.
func Insert(steps []model.StepInfo, step model.StepInfo, target *int) ([]model.StepInfo, error) {
	sorted, err := Normalize(steps)
	if err != nil {
		return steps, err
	}
	pos := len(sorted) + 1
	if target != nil {
		pos = *target
	}
	if err := checkTarget(pos, len(sorted)+1); err != nil {
		return steps, err
	}

	out := make([]model.StepInfo, 0, len(sorted)+1)
	out = append(out, sorted[:pos-1]...)
	out = append(out, step)
	out = append(out, sorted[pos-1:]...)
	renumber(out)
	return out, nil
}

// Remove deletes stepID and renumbers the remaining steps.
func Remove(steps []model.StepInfo, stepID string) ([]model.StepInfo, error) {
	sorted, err := Normalize(steps)
	if err != nil {
		return steps, err
	}
	idx := indexOf(sorted, stepID)
	if idx < 0 {
		return steps, fmt.Errorf("remove %s: %w", stepID, ErrStepNotFound)
	}
	out := append(sorted[:idx:idx], sorted[idx+1:]...)
	renumber(out)
	return out, nil
}

// Sequences maps step IDs to their sequence.
func Sequences(steps []model.StepInfo) map[string]int {
	out := make(map[string]int, len(steps))
	for _, s := range steps {
		out[s.ID] = s.Sequence
	}
	return out
}

func checkTarget(target, max int) error {
	if target < 1 {
		return &SequenceError{Target: target, Max: max, Code: model.StatusSequenceLessThanOne}
	}
	if target > max {
		return &SequenceError{Target: target, Max: max, Code: model.StatusSequenceTooHigh}
	}
	return nil
}

func indexOf(steps []model.StepInfo, id string) int {
	for i, s := range steps {
		if s.ID == id {
			return i
		}
	}
	return -1
}

func renumber(steps []model.StepInfo) {
	for i := range steps {
		steps[i].Sequence = i + 1
	}
}

func clone(steps []model.StepInfo) []model.StepInfo {
	out := make([]model.StepInfo, len(steps))
	copy(out, steps)
	return out
}
