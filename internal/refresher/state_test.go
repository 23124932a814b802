package refresher

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestState_CanTransitionTo(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		from State
		to   State
		ok   bool
	}{
		{"start to backed_up", StateStart, StateBackedUp, true},
		{"start to failed", StateStart, StateFailed, true},
		{"backed_up to store_removed", StateBackedUp, StateStoreRemoved, true},
		{"backed_up to failed", StateBackedUp, StateFailed, true},
		{"store_removed to reregistering", StateStoreRemoved, StateReregistering, true},
		{"reregistering to succeeded", StateReregistering, StateSucceeded, true},
		{"reregistering to rolled_back", StateReregistering, StateRolledBack, true},
		{"reregistering to failed", StateReregistering, StateFailed, true},
		{"start to store_removed skips backup", StateStart, StateStoreRemoved, false},
		{"start to succeeded", StateStart, StateSucceeded, false},
		{"backed_up to succeeded", StateBackedUp, StateSucceeded, false},
		{"succeeded is terminal", StateSucceeded, StateStart, false},
		{"rolled_back is terminal", StateRolledBack, StateReregistering, false},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.ok, tt.from.CanTransitionTo(tt.to))
		})
	}
}

func TestState_IsTerminal(t *testing.T) {
	t.Parallel()

	assert.False(t, StateStart.IsTerminal())
	assert.False(t, StateBackedUp.IsTerminal())
	assert.False(t, StateStoreRemoved.IsTerminal())
	assert.False(t, StateReregistering.IsTerminal())
	assert.True(t, StateSucceeded.IsTerminal())
	assert.True(t, StateRolledBack.IsTerminal())
	assert.True(t, StateFailed.IsTerminal())
}

func TestRun_RecordsTransitions(t *testing.T) {
	t.Parallel()

	r := newRun()
	r.to(StateBackedUp, "backed up")
	r.to(StateStoreRemoved, "removed")
	r.to(StateReregistering, "registering")
	r.to(StateSucceeded, "done")

	assert.Equal(t, StateSucceeded, r.current)
	assert.Len(t, r.transitions, 4)
	assert.Equal(t, StateStart, r.transitions[0].From)
	assert.Equal(t, "backed up", r.transitions[0].Reason)
}

func TestRun_PanicsOnInvalidTransition(t *testing.T) {
	t.Parallel()

	r := newRun()
	assert.Panics(t, func() {
		r.to(StateSucceeded, "skipping the whole machine")
	})
}
