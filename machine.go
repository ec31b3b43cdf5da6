package hsm

import (
	"fmt"

	"go.uber.org/zap"
)

const unknownStateName = "Unknown"

// Machine is the mutable dispatch-engine record for one Graph instance: the
// current state, the configured initial state, the typed user context, the
// unhandled-event hook, and the entry-path scratch buffer.
//
// Machine is not safe for concurrent use; wrap it in a realtime.Runtime when
// more than one execution context can touch it.
type Machine[C any] struct {
	graph     *Graph[C]
	initial   StateID
	current   StateID
	userCtx   *C
	unhandled Action[C]

	// entryPath is scratch space for one transition's entry chain. Its
	// capacity bounds the hierarchy depth a transition may span.
	entryPath []StateID

	// pending holds events posted by actions during a dispatch; they are
	// drained in FIFO order before Dispatch returns (run-to-completion).
	pending []Event

	transitions uint64
	log         *zap.Logger
}

// Option configures a Machine at construction time.
type Option[C any] func(*Machine[C])

// WithContext attaches the typed user context actions and guards read
// through Context.
func WithContext[C any](c *C) Option[C] {
	return func(m *Machine[C]) { m.userCtx = c }
}

// WithUnhandledHook installs a callback invoked once per event that no state
// in the ancestor chain handles.
func WithUnhandledHook[C any](h Action[C]) Option[C] {
	return func(m *Machine[C]) { m.unhandled = h }
}

// WithEntryPathBuffer supplies caller-owned scratch storage for transition
// entry paths. Its capacity must cover the deepest hierarchy level a
// transition can enter; by default the machine sizes the buffer from the
// graph's computed maximum depth.
func WithEntryPathBuffer[C any](buf []StateID) Option[C] {
	return func(m *Machine[C]) { m.entryPath = buf[:0] }
}

// WithLogger attaches a logger for dispatch diagnostics such as rejected
// guards. The default is a nop logger.
func WithLogger[C any](l *zap.Logger) Option[C] {
	return func(m *Machine[C]) { m.log = l }
}

// New creates a Machine over g and performs the full entry chain from the
// forest root down to the named initial state. Entry actions of the initial
// path run before New returns, with a zero Event.
func New[C any](g *Graph[C], initial string, opts ...Option[C]) (*Machine[C], error) {
	if g == nil {
		return nil, fmt.Errorf("%w: nil graph", ErrInvalidArgument)
	}
	init, ok := g.Lookup(initial)
	if !ok {
		return nil, fmt.Errorf("%w: unknown initial state %q", ErrInvalidArgument, initial)
	}

	m := &Machine[C]{
		graph:   g,
		initial: init,
		current: StateNone,
		log:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.entryPath == nil {
		m.entryPath = make([]StateID, 0, g.MaxDepth())
	}
	if cap(m.entryPath) == 0 {
		return nil, fmt.Errorf("%w: entry path buffer has zero capacity", ErrInvalidArgument)
	}
	if m.log == nil {
		m.log = zap.NewNop()
	}

	// current == StateNone has no ancestors, so this executes the entire
	// chain from the root down to the initial state.
	if err := m.performTransition(init, Event{}); err != nil {
		return nil, err
	}
	return m, nil
}

// Graph returns the immutable graph this machine runs on.
func (m *Machine[C]) Graph() *Graph[C] { return m.graph }

// Context returns the typed user context, which may be nil.
func (m *Machine[C]) Context() *C { return m.userCtx }

// CurrentState returns the current state id, or StateNone before the initial
// entry has completed.
func (m *Machine[C]) CurrentState() StateID { return m.current }

// CurrentStateName returns the current state's display name, or "Unknown"
// when the machine has no current state.
func (m *Machine[C]) CurrentStateName() string {
	if m.current == StateNone {
		return unknownStateName
	}
	return m.graph.Name(m.current)
}

// IsInState reports whether the machine is in the given state or any of its
// substates: a child state "is in" every one of its ancestors.
func (m *Machine[C]) IsInState(id StateID) bool {
	if m.current == StateNone || !m.graph.valid(id) {
		return false
	}
	return m.graph.isAncestorOrSelf(id, m.current)
}

// Transitions returns the number of external transitions performed since
// construction, counting every hop including self-transitions and resets.
func (m *Machine[C]) Transitions() uint64 { return m.transitions }

// Post queues an event to be dispatched after the one currently being
// processed. It is intended for use inside entry/exit/transition actions;
// Dispatch drains the queue in FIFO order before returning. Outside a
// dispatch, the posted event runs on the next Dispatch or Reset.
func (m *Machine[C]) Post(evt Event) {
	m.pending = append(m.pending, evt)
}

// Dispatch resolves evt against the state hierarchy. It walks from the
// current state up through the parent links, scanning each state's table in
// row order; the first row whose event matches and whose guard passes is
// executed and the walk stops. A matching row with a failing guard does not
// stop the scan: later rows at the same state are tried before bubbling to
// the parent.
//
// The returned flag reports whether evt itself was handled. If no state in
// the ancestor chain handles it, the unhandled hook (if any) runs exactly
// once and Dispatch returns false. Events posted by actions are dispatched
// before Dispatch returns; their handled results are reported only through
// the unhandled hook.
func (m *Machine[C]) Dispatch(evt Event) (bool, error) {
	handled, err := m.dispatchOne(evt)
	if err != nil {
		m.pending = m.pending[:0]
		return handled, err
	}
	for len(m.pending) > 0 {
		next := m.pending[0]
		m.pending = m.pending[1:]
		if _, err := m.dispatchOne(next); err != nil {
			m.pending = m.pending[:0]
			return handled, err
		}
	}
	return handled, nil
}

func (m *Machine[C]) dispatchOne(evt Event) (bool, error) {
	for s := m.current; s != StateNone; s = m.graph.states[s].Parent {
		st := &m.graph.states[s]
		for i := range st.Transitions {
			row := &st.Transitions[i]
			if row.Event != evt.ID {
				continue
			}
			if row.Guard != nil && !row.Guard(m, evt) {
				m.log.Debug("guard rejected transition",
					zap.Int32("event", int32(evt.ID)),
					zap.String("state", st.Name))
				continue
			}
			return m.executeRow(row, evt)
		}
	}
	if m.unhandled != nil {
		m.unhandled(m, evt)
	}
	return false, nil
}

// executeRow runs a matched transition row. For an external row the entry
// chain is validated before the row action, so an ErrPathTooDeep rejection
// reports the event as unhandled with nothing having run. The row action runs
// before the exit/entry traversal to keep action execution independent of it.
func (m *Machine[C]) executeRow(row *Transition[C], evt Event) (bool, error) {
	if row.Kind == TransitionInternal {
		if row.Action != nil {
			row.Action(m, evt)
		}
		return true, nil
	}
	src := m.current
	if src == row.Target && src != StateNone {
		if row.Action != nil {
			row.Action(m, evt)
		}
		m.selfTransition(src, evt)
		return true, nil
	}
	path, lca, err := m.entryChain(src, row.Target)
	if err != nil {
		return false, err
	}
	if row.Action != nil {
		row.Action(m, evt)
	}
	m.runTransition(src, row.Target, lca, path, evt)
	return true, nil
}

// performTransition moves the machine to target, running exit actions from
// the source up to (excluding) the LCA and entry actions from just below the
// LCA down to the target. The entry path is recorded and length-checked
// first, so an ErrPathTooDeep rejection leaves the machine untouched.
func (m *Machine[C]) performTransition(target StateID, evt Event) error {
	src := m.current
	if src == target && src != StateNone {
		m.selfTransition(src, evt)
		return nil
	}
	path, lca, err := m.entryChain(src, target)
	if err != nil {
		return err
	}
	m.runTransition(src, target, lca, path, evt)
	return nil
}

// selfTransition: exactly one exit and one entry on the same state, no
// parent walk.
func (m *Machine[C]) selfTransition(s StateID, evt Event) {
	st := &m.graph.states[s]
	if st.Exit != nil {
		st.Exit(m, evt)
	}
	if st.Entry != nil {
		st.Entry(m, evt)
	}
	m.transitions++
}

// entryChain records the target-to-just-below-LCA chain into the scratch
// buffer. No action has run yet when it fails.
func (m *Machine[C]) entryChain(src, target StateID) ([]StateID, StateID, error) {
	lca := m.graph.LCA(src, target)
	path := m.entryPath[:0]
	for s := target; s != StateNone && s != lca; s = m.graph.states[s].Parent {
		if len(path) == cap(m.entryPath) {
			return nil, StateNone, fmt.Errorf("%w: state %q needs depth > %d",
				ErrPathTooDeep, m.graph.Name(target), cap(m.entryPath))
		}
		path = append(path, s)
	}
	return path, lca, nil
}

func (m *Machine[C]) runTransition(src, target, lca StateID, path []StateID, evt Event) {
	for s := src; s != StateNone && s != lca; s = m.graph.states[s].Parent {
		if exit := m.graph.states[s].Exit; exit != nil {
			exit(m, evt)
		}
	}

	m.current = target

	// Root-most first: the highest ancestor below the LCA is entered first,
	// the target last.
	for i := len(path) - 1; i >= 0; i-- {
		if entry := m.graph.states[path[i]].Entry; entry != nil {
			entry(m, evt)
		}
	}
	m.transitions++
}

// Reset transitions back to the configured initial state from wherever the
// machine currently is. It behaves exactly like a normal external transition:
// exit path from the current state, entry path to the initial state.
func (m *Machine[C]) Reset() error {
	if err := m.performTransition(m.initial, Event{}); err != nil {
		return err
	}
	for len(m.pending) > 0 {
		next := m.pending[0]
		m.pending = m.pending[1:]
		if _, err := m.dispatchOne(next); err != nil {
			m.pending = m.pending[:0]
			return err
		}
	}
	return nil
}
