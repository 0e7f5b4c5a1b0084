package ordering

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blackcoderx/stepwise/pkg/model"
)

func steps(ids ...string) []model.StepInfo {
	out := make([]model.StepInfo, len(ids))
	for i, id := range ids {
		out[i] = model.StepInfo{ID: id, Title: id, Sequence: i + 1}
	}
	return out
}

func order(s []model.StepInfo) []string {
	ids := make([]string, len(s))
	for i, st := range s {
		ids[i] = st.ID
		if st.Sequence != i+1 {
			return nil
		}
	}
	return ids
}

func TestMove(t *testing.T) {
	tests := []struct {
		name   string
		stepID string
		target int
		want   []string
		code   model.Status
	}{
		{"down", "a", 3, []string{"b", "c", "a", "d"}, ""},
		{"up", "d", 2, []string{"a", "d", "b", "c"}, ""},
		{"same place", "b", 2, []string{"a", "b", "c", "d"}, ""},
		{"to last", "a", 4, []string{"b", "c", "d", "a"}, ""},
		{"to first", "c", 1, []string{"c", "a", "b", "d"}, ""},
		{"zero", "a", 0, nil, model.StatusSequenceLessThanOne},
		{"past end", "a", 5, nil, model.StatusSequenceTooHigh},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := steps("a", "b", "c", "d")
			got, err := Move(in, tt.stepID, tt.target)
			if tt.code != "" {
				var seqErr *SequenceError
				require.True(t, errors.As(err, &seqErr))
				assert.Equal(t, tt.code, seqErr.Code)
				assert.Equal(t, steps("a", "b", "c", "d"), got)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, order(got))
			assert.Equal(t, steps("a", "b", "c", "d"), in, "input must not be mutated")
		})
	}
}

func TestMovePreservesPermutation(t *testing.T) {
	in := steps("a", "b", "c", "d", "e")
	for _, s := range in {
		for target := 1; target <= len(in); target++ {
			got, err := Move(in, s.ID, target)
			require.NoError(t, err)
			require.NotNil(t, order(got), "sequences must stay 1..N after moving %s to %d", s.ID, target)
			assert.Equal(t, target, Sequences(got)[s.ID])
		}
	}
}

func TestMoveUnknownStep(t *testing.T) {
	_, err := Move(steps("a"), "zzz", 1)
	assert.ErrorIs(t, err, ErrStepNotFound)
}

func TestInsert(t *testing.T) {
	got, err := Insert(steps("a", "b"), model.StepInfo{ID: "n"}, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "n"}, order(got))

	at := 1
	got, err = Insert(steps("a", "b"), model.StepInfo{ID: "n"}, &at)
	require.NoError(t, err)
	assert.Equal(t, []string{"n", "a", "b"}, order(got))

	got, err = Insert(nil, model.StepInfo{ID: "first"}, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"first"}, order(got))

	tooHigh := 4
	_, err = Insert(steps("a", "b"), model.StepInfo{ID: "n"}, &tooHigh)
	var seqErr *SequenceError
	require.ErrorAs(t, err, &seqErr)
	assert.Equal(t, model.StatusSequenceTooHigh, seqErr.Code)
}

func TestRemove(t *testing.T) {
	got, err := Remove(steps("a", "b", "c"), "b")
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "c"}, order(got))

	_, err = Remove(steps("a"), "b")
	assert.ErrorIs(t, err, ErrStepNotFound)
}

func TestNormalize(t *testing.T) {
	in := []model.StepInfo{{ID: "c", Sequence: 3}, {ID: "a", Sequence: 1}, {ID: "b", Sequence: 2}}
	got, err := Normalize(in)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, order(got))

	_, err = Normalize([]model.StepInfo{{ID: "a", Sequence: 1}, {ID: "b", Sequence: 1}})
	var corrupt *CorruptError
	assert.ErrorAs(t, err, &corrupt)

	_, err = Move([]model.StepInfo{{ID: "a", Sequence: 2}}, "a", 1)
	assert.ErrorAs(t, err, &corrupt)
}
