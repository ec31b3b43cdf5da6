package hsm

// StateID addresses a state inside a Graph's arena.
type StateID int

// StateNone is the "no state" sentinel: the current state of a machine before
// its initial entry, and the result of LCA for states in disjoint trees.
const StateNone StateID = -1

// EventID identifies an application-defined event.
type EventID int32

// Event pairs an event identifier with an opaque payload. Events are
// transient; callers create one per dispatch.
type Event struct {
	ID      EventID
	Payload any
}

// Action runs on state entry/exit, as a transition effect, or as the
// unhandled-event hook. The machine passes itself so actions can reach the
// typed user context and post follow-up events.
type Action[C any] func(m *Machine[C], evt Event)

// Guard gates whether a matched transition row actually fires.
type Guard[C any] func(m *Machine[C], evt Event) bool

// TransitionKind distinguishes external transitions, which run exit/entry
// actions and update the current state, from internal ones, which run only
// their action.
type TransitionKind uint8

const (
	TransitionExternal TransitionKind = iota
	TransitionInternal
)

// Transition is one row of a state's transition table. Row order matters:
// the first row whose event matches and whose guard passes (absent guard =
// always true) wins; rows after it are examined only while guards fail.
type Transition[C any] struct {
	Event  EventID
	Target StateID // ignored when Kind is TransitionInternal
	Guard  Guard[C]
	Action Action[C]
	Kind   TransitionKind
}

// State is one record of the immutable graph arena.
type State[C any] struct {
	Name        string
	Parent      StateID // StateNone for a forest root
	Entry       Action[C]
	Exit        Action[C]
	Transitions []Transition[C]
}
