package hsm

// Graph is an immutable arena of states. Parent and target references are
// StateID indices into the arena, so a valid Graph cannot contain dangling
// links. Build one with a Builder; a Graph may back any number of Machines.
type Graph[C any] struct {
	states   []State[C]
	byName   map[string]StateID
	maxDepth int
}

// Len returns the number of states in the arena.
func (g *Graph[C]) Len() int { return len(g.states) }

// MaxDepth returns the deepest hierarchy level in the graph. A root state has
// depth 1.
func (g *Graph[C]) MaxDepth() int { return g.maxDepth }

// Lookup resolves a state name to its StateID.
func (g *Graph[C]) Lookup(name string) (StateID, bool) {
	id, ok := g.byName[name]
	return id, ok
}

// Name returns the display name for id, or "Unknown" if id is out of range.
func (g *Graph[C]) Name(id StateID) string {
	if !g.valid(id) {
		return unknownStateName
	}
	return g.states[id].Name
}

// Parent returns the parent of id, or StateNone for roots and invalid ids.
func (g *Graph[C]) Parent(id StateID) StateID {
	if !g.valid(id) {
		return StateNone
	}
	return g.states[id].Parent
}

// LCA computes the lowest common ancestor of a and b by normalizing both to
// the same depth and walking the parent chains in lock-step. It returns
// StateNone when either side is StateNone or the two states live in disjoint
// trees; exit and entry traversals treat StateNone as "walk to the root".
func (g *Graph[C]) LCA(a, b StateID) StateID {
	if !g.valid(a) || !g.valid(b) {
		return StateNone
	}
	da, db := g.depth(a), g.depth(b)
	for da > db {
		a = g.states[a].Parent
		da--
	}
	for db > da {
		b = g.states[b].Parent
		db--
	}
	for a != b {
		if a == StateNone || b == StateNone {
			return StateNone
		}
		a = g.states[a].Parent
		b = g.states[b].Parent
	}
	return a
}

func (g *Graph[C]) valid(id StateID) bool {
	return id >= 0 && int(id) < len(g.states)
}

func (g *Graph[C]) depth(id StateID) int {
	d := 0
	for s := id; s != StateNone; s = g.states[s].Parent {
		d++
	}
	return d
}

// isAncestorOrSelf reports whether anc appears in the parent chain of id,
// including id itself.
func (g *Graph[C]) isAncestorOrSelf(anc, id StateID) bool {
	for s := id; s != StateNone; s = g.states[s].Parent {
		if s == anc {
			return true
		}
	}
	return false
}
