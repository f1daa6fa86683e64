package pipeline

import "testing"

func TestForwardPath(t *testing.T) {
	path := []State{StateInitializing, StateFetching, StateGenerating, StateOrganizing, StateSummarizing, StateDone}
	for i := 0; i < len(path)-1; i++ {
		if !path[i].CanTransitionTo(path[i+1]) {
			t.Errorf("expected %s -> %s to be legal", path[i], path[i+1])
		}
	}
}

func TestCancelledIsAbsorbing(t *testing.T) {
	for _, from := range []State{StateInitializing, StateFetching, StateGenerating, StateOrganizing} {
		if !from.CanTransitionTo(StateCancelled) {
			t.Errorf("expected %s -> cancelled to be legal", from)
		}
	}
	for _, to := range []State{StateInitializing, StateFetching, StateGenerating, StateOrganizing, StateSummarizing, StateDone} {
		if StateCancelled.CanTransitionTo(to) {
			t.Errorf("cancelled must not transition to %s", to)
		}
	}
}

func TestNoBackwardTransitions(t *testing.T) {
	if StateDone.CanTransitionTo(StateGenerating) {
		t.Error("done must be terminal")
	}
	if StateSummarizing.CanTransitionTo(StateFetching) {
		t.Error("summarizing must not return to fetching")
	}
	if StateGenerating.CanTransitionTo(StateInitializing) {
		t.Error("generating must not return to initializing")
	}
}

func TestTerminalStates(t *testing.T) {
	if !StateDone.Terminal() || !StateCancelled.Terminal() {
		t.Error("done and cancelled are terminal")
	}
	if StateGenerating.Terminal() {
		t.Error("generating is not terminal")
	}
}
