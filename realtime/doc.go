// Package realtime wraps an hsm.Machine so one state machine can be driven
// synchronously (direct call) and asynchronously (queued event posted from
// another goroutine or execution context) at the same time.
//
// A Runtime owns one machine, one statistics record, and (between Start and
// Stop) one mutex, one bounded event queue, and one dedicated worker
// obtained from an osal.Port. The worker consumes the queue in FIFO order
// and enters the machine under the mutex; DispatchSync competes for the same
// mutex, so the engine is never entered concurrently.
//
//	rt, err := realtime.New(graph, "Off",
//		realtime.WithConfig(realtime.Config{QueueCapacity: 32}),
//		realtime.WithContext(&data),
//	)
//	rt.Start()
//	defer rt.Stop()
//	rt.PostEventID(evPowerOn, nil)
//
// # Lifecycle
//
// New yields an initialized runtime. Start and Stop may alternate any number
// of times; Close releases the machine for good. Every operation validates
// the lifecycle phase first and mutates nothing when the call is illegal.
//
// # Ordering and shutdown
//
// Events accepted by PostEvent are processed in FIFO order relative to each
// other. There is no ordering between a PostEvent and a concurrent
// DispatchSync; both interleave in mutex-acquisition order. Stop places a
// sentinel behind every accepted event and then drains whatever remains, so
// no accepted event is ever discarded; once Stop returns, no further events
// are processed and a later Start begins with an empty queue.
package realtime
