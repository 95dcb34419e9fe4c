package state

import (
	"errors"
	"testing"
)

// recorder tracks which hooks ran, in order.
type recorder struct {
	calls []string
}

func (r *recorder) enter(name string) func(string) {
	return func(from string) { r.calls = append(r.calls, "enter "+name+" from "+from) }
}

func (r *recorder) exit(name string) func(string) {
	return func(to string) { r.calls = append(r.calls, "exit "+name+" to "+to) }
}

func TestMachine_InitialState(t *testing.T) {
	sm := NewMachine("waiting")
	if sm.Current() != "waiting" {
		t.Errorf("Expected initial state waiting, got %s", sm.Current())
	}
}

func TestMachine_ChangeState(t *testing.T) {
	rec := &recorder{}
	sm := NewMachine("waiting")
	sm.AddTransition("waiting", "playing", nil)
	sm.OnExit("waiting", rec.exit("waiting"))
	sm.OnEnter("playing", rec.enter("playing"))

	if err := sm.ChangeState("playing"); err != nil {
		t.Fatalf("ChangeState should not return an error, but got: %v", err)
	}
	if sm.Current() != "playing" {
		t.Errorf("Expected current state playing, got %s", sm.Current())
	}

	want := []string{"exit waiting to playing", "enter playing from waiting"}
	if len(rec.calls) != len(want) {
		t.Fatalf("Expected hooks %v, got %v", want, rec.calls)
	}
	for i := range want {
		if rec.calls[i] != want[i] {
			t.Errorf("hook %d: expected %q, got %q", i, want[i], rec.calls[i])
		}
	}
}

func TestMachine_UnregisteredTransitionRejected(t *testing.T) {
	rec := &recorder{}
	sm := NewMachine("waiting")
	sm.AddTransition("waiting", "playing", nil)
	sm.OnExit("waiting", rec.exit("waiting"))

	err := sm.ChangeState("finished")
	if !errors.Is(err, ErrTransitionNotAllowed) {
		t.Errorf("Expected ErrTransitionNotAllowed, but got: %v", err)
	}
	if sm.Current() != "waiting" {
		t.Errorf("Expected state to remain waiting, got %s", sm.Current())
	}
	if len(rec.calls) != 0 {
		t.Error("OnExit should not be called if the transition is rejected")
	}
}

func TestMachine_GuardBlocksTransition(t *testing.T) {
	allowed := false
	sm := NewMachine("A")
	sm.AddTransition("A", "B", func() bool { return allowed })

	if sm.Can("B") {
		t.Error("Can should report false while the guard refuses")
	}
	if err := sm.ChangeState("B"); !errors.Is(err, ErrTransitionNotAllowed) {
		t.Errorf("Expected ErrTransitionNotAllowed, got %v", err)
	}

	allowed = true
	if err := sm.ChangeState("B"); err != nil {
		t.Errorf("Expected guarded transition to pass once allowed, got %v", err)
	}
}

func TestMachine_TerminalState(t *testing.T) {
	sm := NewMachine("waiting")
	sm.AddTransition("waiting", "in_progress", nil)
	sm.AddTransition("in_progress", "finished", nil)

	for _, s := range []string{"in_progress", "finished"} {
		if err := sm.ChangeState(s); err != nil {
			t.Fatalf("ChangeState(%s): %v", s, err)
		}
	}
	for _, s := range []string{"waiting", "in_progress", "finished"} {
		if sm.Can(s) {
			t.Errorf("finished must be terminal, but Can(%s) is true", s)
		}
	}
}
