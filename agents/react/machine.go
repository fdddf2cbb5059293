/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package react

import (
	"fmt"

	"github.com/felixgeelhaar/statekit"
)

// State is a node of the loop's state machine.
type State string

const (
	StateInit                State = "init"
	StateAwaitingModel       State = "awaiting_model"
	StateToolDispatch        State = "tool_dispatch"
	StateObservationAppended State = "observation_appended"
	StateTerminated          State = "terminated"
)

const (
	eventStart     statekit.EventType = "START"
	eventToolCalls statekit.EventType = "TOOL_CALLS"
	eventAnswer    statekit.EventType = "ANSWER"
	eventNudge     statekit.EventType = "NUDGE"
	eventObserved  statekit.EventType = "OBSERVED"
	eventNextCall  statekit.EventType = "NEXT_CALL"
	eventContinue  statekit.EventType = "CONTINUE"
	eventStop      statekit.EventType = "STOP"
)

// run is the machine context for one query.
type run struct {
	steps int
}

func countStep(c **run, _ statekit.Event) {
	if c != nil && *c != nil {
		(*c).steps++
	}
}

func sid(s State) statekit.StateID { return statekit.StateID(s) }

// newMachine builds the loop statechart. Every dispatched call and every
// corrective nudge counts as one step.
func newMachine() (*statekit.MachineConfig[*run], error) {
	m, err := statekit.NewMachine[*run]("react").
		WithInitial(sid(StateInit)).
		WithContext(&run{}).
		WithAction("countStep", countStep).
		State(sid(StateInit)).
		On(eventStart).Target(sid(StateAwaitingModel)).
		On(eventStop).Target(sid(StateTerminated)).
		Done().
		State(sid(StateAwaitingModel)).
		On(eventToolCalls).Target(sid(StateToolDispatch)).
		On(eventNudge).Target(sid(StateObservationAppended)).Do("countStep").
		On(eventAnswer).Target(sid(StateTerminated)).
		On(eventStop).Target(sid(StateTerminated)).
		Done().
		State(sid(StateToolDispatch)).
		On(eventObserved).Target(sid(StateObservationAppended)).Do("countStep").
		On(eventStop).Target(sid(StateTerminated)).
		Done().
		State(sid(StateObservationAppended)).
		On(eventNextCall).Target(sid(StateToolDispatch)).
		On(eventContinue).Target(sid(StateAwaitingModel)).
		On(eventStop).Target(sid(StateTerminated)).
		Done().
		State(sid(StateTerminated)).
		Final().
		Done().
		Build()
	if err != nil {
		return nil, fmt.Errorf("building loop state machine: %w", err)
	}
	return m, nil
}

// driver wraps an interpreter and records the visited states.
type driver struct {
	interp *statekit.Interpreter[*run]
	run    *run
	path   []State
}

func start(m *statekit.MachineConfig[*run]) *driver {
	r := &run{}
	interp := statekit.NewInterpreter(m)
	interp.UpdateContext(func(c **run) { *c = r })
	interp.Start()
	d := &driver{interp: interp, run: r}
	d.record()
	return d
}

func (d *driver) send(ev statekit.EventType) {
	d.interp.Send(statekit.Event{Type: ev})
	d.record()
}

func (d *driver) record() {
	s := State(d.interp.State().Value)
	// Every transition changes state, so a repeat means the event was ignored.
	if n := len(d.path); n == 0 || d.path[n-1] != s {
		d.path = append(d.path, s)
	}
}

func (d *driver) stop() { d.interp.Stop() }
