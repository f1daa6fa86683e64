package pipeline

// State is the lifecycle of one pipeline run.
type State string

const (
	StateInitializing State = "initializing"
	StateFetching     State = "fetching"
	StateGenerating   State = "generating"
	StateOrganizing   State = "organizing"
	StateSummarizing  State = "summarizing"
	StateDone         State = "done"
	StateCancelled    State = "cancelled"
)

type stateTransition struct {
	from State
	to   State
}

// legalTransitions is the forward path plus a cancellation edge from every
// active state. Cancelled and Done are terminal.
var legalTransitions = []stateTransition{
	{from: StateInitializing, to: StateFetching},
	{from: StateFetching, to: StateGenerating},
	{from: StateGenerating, to: StateOrganizing},
	{from: StateOrganizing, to: StateGenerating},
	{from: StateOrganizing, to: StateSummarizing},
	{from: StateGenerating, to: StateSummarizing},
	{from: StateFetching, to: StateSummarizing},
	{from: StateSummarizing, to: StateDone},
	{from: StateInitializing, to: StateCancelled},
	{from: StateFetching, to: StateCancelled},
	{from: StateGenerating, to: StateCancelled},
	{from: StateOrganizing, to: StateCancelled},
}

var transitionSet = func() map[stateTransition]struct{} {
	set := make(map[stateTransition]struct{}, len(legalTransitions))
	for _, t := range legalTransitions {
		set[t] = struct{}{}
	}
	return set
}()

// CanTransitionTo reports whether moving from s to next is legal.
func (s State) CanTransitionTo(next State) bool {
	_, ok := transitionSet[stateTransition{from: s, to: next}]
	return ok
}

// Terminal reports whether the run has finished, successfully or not.
func (s State) Terminal() bool {
	return s == StateDone || s == StateCancelled
}
