// Package hsm implements a hierarchical (nested) state machine engine for
// control software.
//
// States form a forest: every state may have a parent, and a state inherits
// the transition tables of all of its ancestors. Dispatching an event walks
// from the current state up the parent chain and fires the first transition
// row whose event matches and whose guard passes, similar in spirit to
// exception propagation up a call stack.
//
// # Building a graph
//
//	b := hsm.NewBuilder[appData]()
//	b.State("Off").OnEntry(enterOff)
//	b.State("On").OnEntry(enterOn)
//	b.State("On.Idle").Parent("On")
//	b.State("Off").On(evPower, "On")
//	g, err := b.Build()
//
// The graph is an immutable arena; states are addressed by StateID indices,
// so transition targets and parent links can never dangle.
//
// # Dispatching
//
//	m, err := hsm.New(g, "Off", hsm.WithContext(&data))
//	handled, err := m.Dispatch(hsm.Event{ID: evPower})
//
// Machine is not safe for concurrent use. The realtime package wraps a
// Machine with a mutex, a bounded event queue, and a dedicated worker so the
// same graph can be driven from multiple goroutines or posted to from other
// execution contexts.
package hsm
