package hsm

import "fmt"

// Builder assembles an immutable Graph from string-named states. States are
// created on first mention, so parents and transition targets may be forward
// references; Build resolves every name to an arena index and validates the
// result.
type Builder[C any] struct {
	states []builderState[C]
	index  map[string]int
	err    error
}

type builderState[C any] struct {
	name      string
	parent    string
	hasParent bool
	entry     Action[C]
	exit      Action[C]
	rows      []builderRow[C]
}

type builderRow[C any] struct {
	event  EventID
	target string
	guard  Guard[C]
	action Action[C]
	kind   TransitionKind
}

// StateBuilder configures a single state.
type StateBuilder[C any] struct {
	b *Builder[C]
	i int
}

// TransitionBuilder configures the most recently added transition row.
type TransitionBuilder[C any] struct {
	b  *Builder[C]
	si int
	ri int
}

// NewBuilder creates an empty graph builder. C is the user-context type the
// resulting graph's guards and actions receive.
func NewBuilder[C any]() *Builder[C] {
	return &Builder[C]{index: make(map[string]int)}
}

// State creates or retrieves a state by name.
func (b *Builder[C]) State(name string) *StateBuilder[C] {
	return &StateBuilder[C]{b: b, i: b.ensure(name)}
}

func (b *Builder[C]) ensure(name string) int {
	if i, ok := b.index[name]; ok {
		return i
	}
	if name == "" && b.err == nil {
		b.err = fmt.Errorf("%w: empty state name", ErrInvalidArgument)
	}
	b.states = append(b.states, builderState[C]{name: name})
	b.index[name] = len(b.states) - 1
	return len(b.states) - 1
}

// Parent nests the state under the named parent. Reassigning a different
// parent is an error surfaced by Build.
func (s *StateBuilder[C]) Parent(name string) *StateBuilder[C] {
	st := &s.b.states[s.i]
	if st.hasParent && st.parent != name {
		if s.b.err == nil {
			s.b.err = fmt.Errorf("%w: state %q assigned two parents (%q, %q)",
				ErrInvalidArgument, st.name, st.parent, name)
		}
		return s
	}
	s.b.ensure(name)
	st = &s.b.states[s.i] // ensure may have grown the slice
	st.parent = name
	st.hasParent = true
	return s
}

// OnEntry sets the state's entry action.
func (s *StateBuilder[C]) OnEntry(a Action[C]) *StateBuilder[C] {
	s.b.states[s.i].entry = a
	return s
}

// OnExit sets the state's exit action.
func (s *StateBuilder[C]) OnExit(a Action[C]) *StateBuilder[C] {
	s.b.states[s.i].exit = a
	return s
}

// On appends an external transition row for event targeting the named state.
// Rows keep insertion order; the first matching row whose guard passes wins.
func (s *StateBuilder[C]) On(event EventID, target string) *TransitionBuilder[C] {
	s.b.ensure(target)
	st := &s.b.states[s.i]
	st.rows = append(st.rows, builderRow[C]{event: event, target: target, kind: TransitionExternal})
	return &TransitionBuilder[C]{b: s.b, si: s.i, ri: len(st.rows) - 1}
}

// Internal appends an internal transition row: the action runs without
// exit/entry actions and without changing the current state.
func (s *StateBuilder[C]) Internal(event EventID, a Action[C]) *StateBuilder[C] {
	st := &s.b.states[s.i]
	st.rows = append(st.rows, builderRow[C]{event: event, action: a, kind: TransitionInternal})
	return s
}

// When attaches a guard to the row.
func (t *TransitionBuilder[C]) When(g Guard[C]) *TransitionBuilder[C] {
	t.b.states[t.si].rows[t.ri].guard = g
	return t
}

// Do attaches a transition action to the row. The action runs before the
// exit/entry sequence of its transition.
func (t *TransitionBuilder[C]) Do(a Action[C]) *TransitionBuilder[C] {
	t.b.states[t.si].rows[t.ri].action = a
	return t
}

// On appends another external row to the same source state.
func (t *TransitionBuilder[C]) On(event EventID, target string) *TransitionBuilder[C] {
	return (&StateBuilder[C]{b: t.b, i: t.si}).On(event, target)
}

// Build resolves names to StateIDs and returns the immutable graph. It fails
// on an empty builder, a parent cycle, or any error recorded while chaining.
func (b *Builder[C]) Build() (*Graph[C], error) {
	if b.err != nil {
		return nil, b.err
	}
	if len(b.states) == 0 {
		return nil, fmt.Errorf("%w: no states defined", ErrInvalidArgument)
	}

	g := &Graph[C]{
		states: make([]State[C], len(b.states)),
		byName: make(map[string]StateID, len(b.states)),
	}
	for i, bs := range b.states {
		parent := StateNone
		if bs.hasParent {
			parent = StateID(b.index[bs.parent])
		}
		rows := make([]Transition[C], len(bs.rows))
		for j, r := range bs.rows {
			target := StateNone
			if r.kind == TransitionExternal {
				target = StateID(b.index[r.target])
			}
			rows[j] = Transition[C]{
				Event:  r.event,
				Target: target,
				Guard:  r.guard,
				Action: r.action,
				Kind:   r.kind,
			}
		}
		g.states[i] = State[C]{
			Name:        bs.name,
			Parent:      parent,
			Entry:       bs.entry,
			Exit:        bs.exit,
			Transitions: rows,
		}
		g.byName[bs.name] = StateID(i)
	}

	// The parent relation must form a forest.
	for i := range g.states {
		steps := 0
		for s := StateID(i); s != StateNone; s = g.states[s].Parent {
			steps++
			if steps > len(g.states) {
				return nil, fmt.Errorf("%w: parent cycle through state %q",
					ErrInvalidArgument, g.states[i].Name)
			}
		}
		if steps > g.maxDepth {
			g.maxDepth = steps
		}
	}
	return g, nil
}
