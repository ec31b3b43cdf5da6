// Package benchmarks provides performance benchmarks for the realtime
// wrapper: queued posting, synchronous dispatch under the mutex, and the
// producer-side cost at different queue capacities.
package benchmarks

import (
	"testing"
	"time"

	"github.com/embeddedstate/hsm"
	"github.com/embeddedstate/hsm/realtime"
)

func newBenchRuntime(b *testing.B, capacity int) *realtime.Runtime[struct{}] {
	b.Helper()
	g := GenFlatGraph(4, tick)
	rt, err := realtime.New(g, "s0",
		realtime.WithConfig[struct{}](realtime.Config{QueueCapacity: capacity}))
	if err != nil {
		b.Fatal(err)
	}
	return rt
}

// BenchmarkRealtimeThroughput measures end-to-end queued throughput: posts
// back off when the queue fills, so the number reflects the worker's
// consumption rate rather than raw enqueue speed.
func BenchmarkRealtimeThroughput(b *testing.B) {
	rt := newBenchRuntime(b, 1024)
	if err := rt.Start(); err != nil {
		b.Fatal(err)
	}
	defer rt.Stop()

	e := hsm.Event{ID: tick}
	b.ResetTimer()
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		for {
			err := rt.PostEvent(e)
			if err == nil {
				break
			}
			if err != realtime.ErrQueueFull {
				b.Fatal(err)
			}
			time.Sleep(time.Microsecond)
		}
	}
	b.StopTimer()
}

// BenchmarkRealtimeSyncDispatch measures DispatchSync while the runtime is
// started, so every call pays for the dispatch mutex.
func BenchmarkRealtimeSyncDispatch(b *testing.B) {
	rt := newBenchRuntime(b, 16)
	if err := rt.Start(); err != nil {
		b.Fatal(err)
	}
	defer rt.Stop()

	e := hsm.Event{ID: tick}
	b.ResetTimer()
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		if _, err := rt.DispatchSync(e); err != nil {
			b.Fatal(err)
		}
	}
}

// BenchmarkRealtimeQueueCapacity compares producer-side post cost across
// queue capacities.
func BenchmarkRealtimeQueueCapacity(b *testing.B) {
	for _, capacity := range []int{8, 64, 512} {
		b.Run(benchName("cap", capacity), func(b *testing.B) {
			rt := newBenchRuntime(b, capacity)
			if err := rt.Start(); err != nil {
				b.Fatal(err)
			}
			defer rt.Stop()

			e := hsm.Event{ID: tick}
			b.ResetTimer()
			b.ReportAllocs()
			for i := 0; i < b.N; i++ {
				for {
					err := rt.PostEvent(e)
					if err == nil {
						break
					}
					if err != realtime.ErrQueueFull {
						b.Fatal(err)
					}
					time.Sleep(time.Microsecond)
				}
			}
		})
	}
}

// BenchmarkRealtimeContention measures DispatchSync with concurrent
// producers posting through the queue at the same time.
func BenchmarkRealtimeContention(b *testing.B) {
	rt := newBenchRuntime(b, 256)
	if err := rt.Start(); err != nil {
		b.Fatal(err)
	}
	defer rt.Stop()

	stop := make(chan struct{})
	go func() {
		e := hsm.Event{ID: tick}
		for {
			select {
			case <-stop:
				return
			default:
				_ = rt.PostEvent(e)
			}
		}
	}()
	defer close(stop)

	e := hsm.Event{ID: tick}
	b.ResetTimer()
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		if _, err := rt.DispatchSync(e); err != nil {
			b.Fatal(err)
		}
	}
}
