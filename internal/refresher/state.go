package refresher

import "time"

// State tracks where a refresh is in its lifecycle. The live store file is
// only ever deleted from StateBackedUp, so a confirmed backup always exists
// before anything destructive happens.
type State string

const (
	// StateStart: nothing has been touched yet.
	StateStart State = "start"

	// StateBackedUp: the live store has a confirmed backup copy (or no
	// store existed and there is nothing to lose).
	StateBackedUp State = "backed_up"

	// StateStoreRemoved: the live store is gone; the next registration
	// runs against an empty store.
	StateStoreRemoved State = "store_removed"

	// StateReregistering: the registration call is in flight.
	StateReregistering State = "reregistering"

	// StateSucceeded: the store now holds freshly registered credentials
	// and the backup has been discarded.
	StateSucceeded State = "succeeded"

	// StateRolledBack: re-registration failed and the backup was copied
	// back; the store matches its pre-refresh content.
	StateRolledBack State = "rolled_back"

	// StateFailed: the refresh stopped before completing. Whether the
	// store is intact depends on where the failure happened and is
	// reported on the returned error.
	StateFailed State = "failed"
)

func (s State) String() string {
	return string(s)
}

// IsTerminal reports whether the refresh has finished, one way or another.
func (s State) IsTerminal() bool {
	return s == StateSucceeded || s == StateRolledBack || s == StateFailed
}

// validTransitions defines the allowed state transitions.
var validTransitions = map[State][]State{
	StateStart:         {StateBackedUp, StateFailed},
	StateBackedUp:      {StateStoreRemoved, StateFailed},
	StateStoreRemoved:  {StateReregistering},
	StateReregistering: {StateSucceeded, StateRolledBack, StateFailed},
}

// CanTransitionTo checks whether moving from s to next is allowed.
func (s State) CanTransitionTo(next State) bool {
	for _, valid := range validTransitions[s] {
		if valid == next {
			return true
		}
	}
	return false
}

// Transition is one recorded state change.
type Transition struct {
	From      State
	To        State
	Reason    string
	Timestamp time.Time
}

// run tracks a single refresh attempt. Refreshes are strictly sequential,
// one per deployment, so there is no locking here.
type run struct {
	current     State
	transitions []Transition
}

func newRun() *run {
	return &run{current: StateStart}
}

// to records a transition, panicking on an illegal one: an impossible state
// change in this machine is a programming error, not a runtime condition.
func (r *run) to(next State, reason string) {
	if !r.current.CanTransitionTo(next) {
		panic("refresher: invalid state transition " + string(r.current) + " -> " + string(next))
	}
	r.transitions = append(r.transitions, Transition{
		From:      r.current,
		To:        next,
		Reason:    reason,
		Timestamp: time.Now(),
	})
	r.current = next
}
