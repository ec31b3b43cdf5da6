// Package benchmarks provides shared helpers for benchmark tests.
package benchmarks

import (
	"fmt"

	"github.com/embeddedstate/hsm"
)

// GenFlatGraph creates a flat graph with n states cycling via a tick event.
func GenFlatGraph(n int, tick hsm.EventID) *hsm.Graph[struct{}] {
	if n < 1 {
		n = 1
	}
	b := hsm.NewBuilder[struct{}]()
	for i := 0; i < n; i++ {
		b.State(fmt.Sprintf("s%d", i)).On(tick, fmt.Sprintf("s%d", (i+1)%n))
	}
	g, err := b.Build()
	if err != nil {
		panic(err)
	}
	return g
}

// GenDeepGraph creates two branches of nested states, each depth levels deep
// under a shared root, with the bottom leaves flipping between branches via a
// tick event. Every tick exits one whole branch and enters the other, so the
// transition cost scales with depth.
func GenDeepGraph(depth int, tick hsm.EventID) *hsm.Graph[struct{}] {
	if depth < 1 {
		depth = 1
	}
	b := hsm.NewBuilder[struct{}]()
	b.State("root")
	for _, branch := range []string{"a", "b"} {
		parent := "root"
		for i := 0; i < depth; i++ {
			name := fmt.Sprintf("%s%d", branch, i)
			b.State(name).Parent(parent)
			parent = name
		}
	}
	leafA := fmt.Sprintf("a%d", depth-1)
	leafB := fmt.Sprintf("b%d", depth-1)
	b.State(leafA).On(tick, leafB)
	b.State(leafB).On(tick, leafA)
	g, err := b.Build()
	if err != nil {
		panic(err)
	}
	return g
}
