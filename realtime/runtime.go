package realtime

import (
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/embeddedstate/hsm"
	"github.com/embeddedstate/hsm/osal"
)

var (
	// ErrNotInitialized reports use of a runtime after Close.
	ErrNotInitialized = errors.New("runtime not initialized")
	// ErrNotStarted reports an operation that is legal only between Start
	// and Stop.
	ErrNotStarted = errors.New("runtime not started")
	// ErrAlreadyStarted reports a Start on a running runtime, or a Close
	// without a Stop.
	ErrAlreadyStarted = errors.New("runtime already started")
	// ErrQueueFull reports a PostEvent against a queue with no capacity
	// left. PostEvent never blocks.
	ErrQueueFull = errors.New("event queue full")
)

type phase int

const (
	phaseInitialized phase = iota
	phaseStarted
	phaseStopping
	phaseStopped
	phaseClosed
)

// envelope is the fixed-shape queue message. A stop envelope is the sentinel
// Stop enqueues to unblock and terminate the worker.
type envelope struct {
	evt  hsm.Event
	stop bool
}

// Runtime composes one hsm.Machine with one mutex, one bounded queue, and
// one worker task obtained from an osal.Port. See the package documentation
// for the concurrency contract.
type Runtime[C any] struct {
	id   string
	cfg  Config
	port osal.Port
	log  *zap.Logger

	// mu guards the lifecycle phase, the statistics record, and the OS
	// resource handles. The machine itself is guarded by dispatchMu while
	// one exists (Started/Stopping); never hold mu across a dispatch.
	mu      sync.Mutex
	ph      phase
	stats   Statistics
	machine *hsm.Machine[C]

	dispatchMu osal.Mutex
	queue      osal.Queue
	worker     osal.Worker

	// machine.Transitions() snapshot at the last statistics update, so the
	// per-hop counter can be folded into stats incrementally.
	seenTransitions uint64

	machineOpts []hsm.Option[C]
	explicitCfg bool
}

// Option configures a Runtime at construction time.
type Option[C any] func(*Runtime[C])

// WithConfig supplies an explicit runtime configuration. A zero or negative
// queue capacity is rejected by New.
func WithConfig[C any](cfg Config) Option[C] {
	return func(r *Runtime[C]) {
		r.cfg = cfg
		r.explicitCfg = true
	}
}

// WithPort injects the OS abstraction used for mutex, queue, and worker
// acquisition. Defaults to osal.Native().
func WithPort[C any](p osal.Port) Option[C] {
	return func(r *Runtime[C]) { r.port = p }
}

// WithLogger attaches a logger for lifecycle and worker diagnostics. The
// machine inherits it for dispatch diagnostics. Defaults to a nop logger.
func WithLogger[C any](l *zap.Logger) Option[C] {
	return func(r *Runtime[C]) { r.log = l }
}

// WithContext attaches the typed user context passed through to guards and
// actions.
func WithContext[C any](c *C) Option[C] {
	return func(r *Runtime[C]) { r.machineOpts = append(r.machineOpts, hsm.WithContext(c)) }
}

// WithUnhandledHook installs the machine's unhandled-event hook.
func WithUnhandledHook[C any](h hsm.Action[C]) Option[C] {
	return func(r *Runtime[C]) { r.machineOpts = append(r.machineOpts, hsm.WithUnhandledHook(h)) }
}

// WithEntryPathBuffer supplies caller-owned scratch storage for the
// machine's transition entry paths.
func WithEntryPathBuffer[C any](buf []hsm.StateID) Option[C] {
	return func(r *Runtime[C]) { r.machineOpts = append(r.machineOpts, hsm.WithEntryPathBuffer[C](buf)) }
}

// New builds the machine over g, zeroes the statistics, and returns an
// initialized (not yet started) runtime. The machine's initial entry chain
// runs before New returns.
func New[C any](g *hsm.Graph[C], initial string, opts ...Option[C]) (*Runtime[C], error) {
	r := &Runtime[C]{
		id:   uuid.NewString(),
		cfg:  Config{QueueCapacity: DefaultQueueCapacity},
		port: osal.Native(),
		log:  zap.NewNop(),
		ph:   phaseInitialized,
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.explicitCfg {
		if err := r.cfg.validate(); err != nil {
			return nil, err
		}
	}
	if r.port == nil || r.log == nil {
		return nil, fmt.Errorf("%w: nil port or logger", hsm.ErrInvalidArgument)
	}
	if r.cfg.WorkerName == "" {
		r.cfg.WorkerName = "hsm-worker-" + r.id[:8]
	}
	r.log = r.log.With(zap.String("runtime", r.id[:8]))

	m, err := hsm.New(g, initial, append(r.machineOpts, hsm.WithLogger[C](r.log))...)
	if err != nil {
		return nil, err
	}
	r.machine = m
	// Statistics start at zero; the initial entry chain is not counted.
	r.seenTransitions = m.Transitions()
	return r, nil
}

// ID returns the runtime's instance identifier.
func (r *Runtime[C]) ID() string { return r.id }

// Start acquires a mutex, a bounded queue, and a worker task from the port
// and launches the worker loop. It is legal from the initialized and stopped
// phases. Acquisition is all-or-nothing: if any resource fails, everything
// already acquired is released and the runtime phase is unchanged.
func (r *Runtime[C]) Start() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	switch r.ph {
	case phaseInitialized, phaseStopped:
	case phaseClosed:
		return ErrNotInitialized
	default:
		return ErrAlreadyStarted
	}

	dmu, err := r.port.NewMutex(r.cfg.WorkerName + "-mutex")
	if err != nil {
		return fmt.Errorf("acquire mutex: %w", err)
	}
	q, err := r.port.NewQueue(r.cfg.WorkerName+"-queue", r.cfg.QueueCapacity)
	if err != nil {
		_ = dmu.Close()
		return fmt.Errorf("acquire queue: %w", err)
	}
	wcfg := osal.WorkerConfig{
		StackSize: r.cfg.WorkerStackSize,
		Priority:  r.cfg.WorkerPriority,
		Timeslice: r.cfg.WorkerTimeslice,
	}
	w, err := r.port.NewWorker(r.cfg.WorkerName, wcfg, func() { r.workerLoop(q, dmu) })
	if err != nil {
		_ = q.Close()
		_ = dmu.Close()
		return fmt.Errorf("acquire worker: %w", err)
	}
	if err := w.Start(); err != nil {
		_ = q.Close()
		_ = dmu.Close()
		return fmt.Errorf("start worker: %w", err)
	}

	r.dispatchMu, r.queue, r.worker = dmu, q, w
	r.ph = phaseStarted
	r.log.Info("runtime started",
		zap.String("worker", r.cfg.WorkerName),
		zap.Int("queue_capacity", r.cfg.QueueCapacity))
	return nil
}

// Stop terminates the worker and releases the queue and mutex. It is legal
// only from the started phase and blocks until the worker has exited. Every
// event accepted before Stop is processed before teardown; nothing is
// discarded. Statistics persist until ResetStatistics.
func (r *Runtime[C]) Stop() error {
	r.mu.Lock()
	switch r.ph {
	case phaseStarted:
	case phaseClosed:
		r.mu.Unlock()
		return ErrNotInitialized
	default:
		r.mu.Unlock()
		return ErrNotStarted
	}
	r.ph = phaseStopping // rejects further posts
	q, w, dmu := r.queue, r.worker, r.dispatchMu
	r.mu.Unlock()

	// The sentinel lands behind every accepted event, so the worker drains
	// the queue before it sees the stop flag. The worker may be blocked on
	// an empty queue; the sentinel also serves as its wakeup.
	if err := q.Send(envelope{stop: true}, osal.Forever); err != nil {
		r.log.Error("enqueue stop sentinel", zap.Error(err))
	}
	if err := w.Join(); err != nil {
		r.log.Error("join worker", zap.Error(err))
	}
	_ = q.Close()
	_ = dmu.Close()

	r.mu.Lock()
	r.dispatchMu, r.queue, r.worker = nil, nil, nil
	r.stats.QueueDepth = 0
	r.ph = phaseStopped
	r.mu.Unlock()
	r.log.Info("runtime stopped")
	return nil
}

// Close releases the machine reference. It is legal from the initialized and
// stopped phases; a started runtime must be stopped first. The state graph
// outlives the runtime and is untouched.
func (r *Runtime[C]) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	switch r.ph {
	case phaseInitialized, phaseStopped:
	case phaseClosed:
		return ErrNotInitialized
	default:
		return ErrAlreadyStarted
	}
	r.machine = nil
	r.ph = phaseClosed
	return nil
}

// workerLoop is the dedicated consumer: wait for an envelope, terminate on
// the sentinel, otherwise dispatch under the mutex and update statistics. A
// failed dispatch is logged and the loop continues.
func (r *Runtime[C]) workerLoop(q osal.Queue, dmu osal.Mutex) {
	for {
		msg, err := q.Receive(osal.Forever)
		if err != nil {
			r.log.Warn("worker receive", zap.Error(err))
			return
		}
		env, ok := msg.(envelope)
		if !ok {
			r.log.Warn("worker received foreign message")
			continue
		}
		if env.stop {
			r.drainAfterStop(q, dmu)
			r.log.Debug("worker terminating")
			return
		}
		r.dispatchLocked(dmu, env.evt)
		r.sampleDepth(q)
	}
}

// drainAfterStop processes events that slipped in behind the sentinel, so an
// event accepted concurrently with Stop is still processed exactly once.
func (r *Runtime[C]) drainAfterStop(q osal.Queue, dmu osal.Mutex) {
	for {
		msg, err := q.Receive(osal.NoWait)
		if err != nil {
			return
		}
		if env, ok := msg.(envelope); ok && !env.stop {
			r.dispatchLocked(dmu, env.evt)
		}
	}
}

func (r *Runtime[C]) dispatchLocked(dmu osal.Mutex, evt hsm.Event) {
	dmu.Lock()
	defer dmu.Unlock()
	if _, err := r.dispatch(evt); err != nil {
		r.log.Warn("dispatch failed", zap.Int32("event", int32(evt.ID)), zap.Error(err))
	}
}

// dispatch enters the machine and folds the outcome into the statistics.
// The caller must hold the dispatch mutex whenever one exists.
func (r *Runtime[C]) dispatch(evt hsm.Event) (bool, error) {
	handled, err := r.machine.Dispatch(evt)
	cur := r.machine.Transitions()

	r.mu.Lock()
	r.stats.EventsProcessed++
	if !handled && err == nil {
		r.stats.EventsUnhandled++
	}
	r.stats.Transitions += cur - r.seenTransitions
	r.seenTransitions = cur
	r.mu.Unlock()
	return handled, err
}

func (r *Runtime[C]) sampleDepth(q osal.Queue) {
	d := uint32(q.Len())
	r.mu.Lock()
	r.stats.QueueDepth = d
	if d > r.stats.MaxQueueDepth {
		r.stats.MaxQueueDepth = d
	}
	r.mu.Unlock()
}

// DispatchSync drives the machine directly from the caller. It is legal in
// every phase except closed and does not require Start: before Start (and
// after Stop) no mutex exists and the call proceeds unguarded; while started
// it competes with the worker for the dispatch mutex.
func (r *Runtime[C]) DispatchSync(evt hsm.Event) (bool, error) {
	r.mu.Lock()
	if r.ph == phaseClosed {
		r.mu.Unlock()
		return false, ErrNotInitialized
	}
	dmu := r.dispatchMu
	r.mu.Unlock()

	if dmu != nil {
		dmu.Lock()
		defer dmu.Unlock()
	}
	return r.dispatch(evt)
}

// PostEvent enqueues evt for the worker without blocking. It is legal only
// while started; a full queue yields ErrQueueFull and the event is not
// accepted. The queue depth is sampled after a successful enqueue.
func (r *Runtime[C]) PostEvent(evt hsm.Event) error {
	r.mu.Lock()
	switch r.ph {
	case phaseStarted:
	case phaseClosed:
		r.mu.Unlock()
		return ErrNotInitialized
	default:
		r.mu.Unlock()
		return ErrNotStarted
	}
	q := r.queue
	r.mu.Unlock()

	if err := q.Send(envelope{evt: evt}, osal.NoWait); err != nil {
		if errors.Is(err, osal.ErrFull) {
			return ErrQueueFull
		}
		return err
	}
	r.sampleDepth(q)
	return nil
}

// PostEventID constructs an Event from id and payload and posts it.
func (r *Runtime[C]) PostEventID(id hsm.EventID, payload any) error {
	return r.PostEvent(hsm.Event{ID: id, Payload: payload})
}

// Reset transitions the machine back to its initial state under the dispatch
// mutex, exactly like a normal external transition.
func (r *Runtime[C]) Reset() error {
	r.mu.Lock()
	if r.ph == phaseClosed {
		r.mu.Unlock()
		return ErrNotInitialized
	}
	dmu := r.dispatchMu
	r.mu.Unlock()

	if dmu != nil {
		dmu.Lock()
		defer dmu.Unlock()
	}
	err := r.machine.Reset()
	cur := r.machine.Transitions()
	r.mu.Lock()
	r.stats.Transitions += cur - r.seenTransitions
	r.seenTransitions = cur
	r.mu.Unlock()
	return err
}

// Stats returns a copy of the statistics record. After Close it returns a
// zero record and ErrNotInitialized, never garbage.
func (r *Runtime[C]) Stats() (Statistics, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.ph == phaseClosed {
		return Statistics{}, ErrNotInitialized
	}
	return r.stats, nil
}

// ResetStatistics zeroes every counter and depth sample.
func (r *Runtime[C]) ResetStatistics() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.ph == phaseClosed {
		return ErrNotInitialized
	}
	r.stats = Statistics{}
	return nil
}

// IsInState reports whether the machine is in the named state or any of its
// substates. Unknown names and a closed runtime report false with an error.
func (r *Runtime[C]) IsInState(name string) (bool, error) {
	r.mu.Lock()
	if r.ph == phaseClosed {
		r.mu.Unlock()
		return false, ErrNotInitialized
	}
	m := r.machine
	dmu := r.dispatchMu
	r.mu.Unlock()

	id, ok := m.Graph().Lookup(name)
	if !ok {
		return false, fmt.Errorf("%w: unknown state %q", hsm.ErrInvalidArgument, name)
	}
	if dmu != nil {
		dmu.Lock()
		defer dmu.Unlock()
	}
	return m.IsInState(id), nil
}

// CurrentStateName returns the machine's current state name, or "Unknown"
// after Close.
func (r *Runtime[C]) CurrentStateName() string {
	r.mu.Lock()
	if r.ph == phaseClosed {
		r.mu.Unlock()
		return "Unknown"
	}
	m := r.machine
	dmu := r.dispatchMu
	r.mu.Unlock()

	if dmu != nil {
		dmu.Lock()
		defer dmu.Unlock()
	}
	return m.CurrentStateName()
}
