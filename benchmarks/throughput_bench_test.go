// Package benchmarks provides performance benchmarks for event throughput.
package benchmarks

import (
	"testing"

	"github.com/embeddedstate/hsm"
)

// BenchmarkEventThroughput measures raw dispatch throughput over flat graphs
// of increasing size. Lookup cost is per-state table scan, so graph size
// should not matter; this benchmark keeps that honest.
func BenchmarkEventThroughput(b *testing.B) {
	for _, n := range []int{1, 10, 100, 1000} {
		b.Run(benchName("states", n), func(b *testing.B) {
			g := GenFlatGraph(n, tick)
			m, err := hsm.New(g, "s0")
			if err != nil {
				b.Fatal(err)
			}
			e := hsm.Event{ID: tick}
			b.ResetTimer()
			b.ReportAllocs()
			for i := 0; i < b.N; i++ {
				if _, err := m.Dispatch(e); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}

// BenchmarkUnhandledEvent measures the cost of an event no state handles:
// a full bubble to the root plus the unhandled hook.
func BenchmarkUnhandledEvent(b *testing.B) {
	g := GenDeepGraph(8, tick)
	var unhandled int
	m, err := hsm.New(g, "a7",
		hsm.WithUnhandledHook(func(*hsm.Machine[struct{}], hsm.Event) { unhandled++ }))
	if err != nil {
		b.Fatal(err)
	}
	e := hsm.Event{ID: 999}
	b.ResetTimer()
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		if _, err := m.Dispatch(e); err != nil {
			b.Fatal(err)
		}
	}
	if unhandled != b.N {
		b.Fatalf("hook ran %d times, want %d", unhandled, b.N)
	}
}
