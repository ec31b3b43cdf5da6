package hsm

import (
	"bytes"
	"fmt"
)

// DOT renders the graph as Graphviz DOT source. Composite states become
// clusters, transition rows become labeled edges, and the state identified by
// current (StateNone for none) plus its ancestors are highlighted. Intended
// for debugging and documentation, not for hot paths.
func (g *Graph[C]) DOT(current StateID) string {
	var buf bytes.Buffer
	buf.WriteString("digraph hsm {\n")
	buf.WriteString("  rankdir=LR;\n")
	buf.WriteString("  node [shape=box, fontsize=10, style=rounded];\n")
	buf.WriteString("  edge [fontsize=9];\n")

	active := make(map[StateID]bool)
	for s := current; s != StateNone; s = g.Parent(s) {
		active[s] = true
	}

	children := make(map[StateID][]StateID)
	var roots []StateID
	for i := range g.states {
		id := StateID(i)
		p := g.states[i].Parent
		if p == StateNone {
			roots = append(roots, id)
			continue
		}
		children[p] = append(children[p], id)
	}

	for _, root := range roots {
		g.renderDOT(&buf, root, children, active, "  ")
	}

	// Edges last, in arena then row order so output is stable.
	for i := range g.states {
		for _, row := range g.states[i].Transitions {
			label := fmt.Sprintf("%d", row.Event)
			if row.Kind == TransitionInternal {
				fmt.Fprintf(&buf, "  %q -> %q [label=\"%s (internal)\" style=dashed];\n",
					g.states[i].Name, g.states[i].Name, label)
				continue
			}
			if row.Guard != nil {
				label += " [guard]"
			}
			fmt.Fprintf(&buf, "  %q -> %q [label=%q];\n",
				g.states[i].Name, g.states[row.Target].Name, label)
		}
	}

	buf.WriteString("}\n")
	return buf.String()
}

func (g *Graph[C]) renderDOT(buf *bytes.Buffer, id StateID, children map[StateID][]StateID, active map[StateID]bool, indent string) {
	name := g.states[id].Name
	style := ""
	if active[id] {
		style = " style=filled fillcolor=lightgreen"
	}
	kids := children[id]
	if len(kids) == 0 {
		fmt.Fprintf(buf, "%s%q [label=%q%s];\n", indent, name, name, style)
		return
	}
	fmt.Fprintf(buf, "%ssubgraph \"cluster_%s\" {\n", indent, name)
	fmt.Fprintf(buf, "%s  label=%q;\n", indent, name)
	fmt.Fprintf(buf, "%s  %q [label=%q shape=ellipse%s];\n", indent, name, name, style)
	for _, c := range kids {
		g.renderDOT(buf, c, children, active, indent+"  ")
	}
	fmt.Fprintf(buf, "%s}\n", indent)
}
