package realtime

// Statistics are the runtime's monotonic bookkeeping counters plus queue
// depth samples. All fields are mutated only under the runtime's bookkeeping
// lock; Stats returns a copy.
type Statistics struct {
	// EventsProcessed counts every event entered into the machine, whether
	// via the worker or DispatchSync.
	EventsProcessed uint64 `json:"events_processed" yaml:"events_processed"`

	// EventsUnhandled counts dispatched events no state in the ancestor
	// chain handled.
	EventsUnhandled uint64 `json:"events_unhandled" yaml:"events_unhandled"`

	// Transitions counts external transitions performed, every hop
	// included (run-to-completion cascades, self-transitions, resets).
	Transitions uint64 `json:"transitions" yaml:"transitions"`

	// QueueDepth is the depth sampled at the last enqueue or dequeue.
	QueueDepth uint32 `json:"queue_depth" yaml:"queue_depth"`

	// MaxQueueDepth is the highest depth ever sampled. It persists across
	// Stop/Start until ResetStatistics.
	MaxQueueDepth uint32 `json:"max_queue_depth" yaml:"max_queue_depth"`
}
