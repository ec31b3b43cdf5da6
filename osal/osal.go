// Package osal defines the minimal OS abstraction the realtime wrapper
// needs: a mutex, a bounded message queue, and a worker task. The dispatch
// engine itself requires none of this.
//
// Native returns the goroutine-based host used on POSIX-like systems. An
// RTOS target satisfies the same contract with its own primitives, and tests
// inject doubles to exercise failure paths.
package osal

import (
	"errors"
	"time"
)

// Timeout values for Queue.Send and Queue.Receive. Any positive duration is
// a bounded wait.
const (
	// Forever blocks until the operation completes or the queue closes.
	Forever time.Duration = -1
	// NoWait fails immediately when the operation cannot complete.
	NoWait time.Duration = 0
)

var (
	// ErrFull reports a send against a queue with no free capacity.
	ErrFull = errors.New("queue full")
	// ErrEmpty reports a non-blocking receive against an empty queue.
	ErrEmpty = errors.New("queue empty")
	// ErrTimeout reports that a bounded wait elapsed.
	ErrTimeout = errors.New("operation timed out")
	// ErrClosed reports use of a queue after Close.
	ErrClosed = errors.New("queue closed")
)

// Port creates the host primitives. Acquisition may fail on constrained
// hosts; callers must release everything already acquired when it does.
type Port interface {
	NewMutex(name string) (Mutex, error)
	NewQueue(name string, capacity int) (Queue, error)
	NewWorker(name string, cfg WorkerConfig, run func()) (Worker, error)
}

// Mutex is a host mutual-exclusion primitive. Close releases it; a closed
// mutex must not be locked again.
type Mutex interface {
	Lock()
	Unlock()
	Close() error
}

// Queue is a bounded FIFO of messages.
type Queue interface {
	// Send enqueues msg. With NoWait it returns ErrFull when at capacity;
	// with Forever it blocks until space frees or the queue closes.
	Send(msg any, timeout time.Duration) error
	// Receive dequeues the oldest message. With NoWait it returns ErrEmpty
	// on an empty queue; with Forever it blocks until a message arrives or
	// the queue closes.
	Receive(timeout time.Duration) (any, error)
	// Len samples the number of queued messages.
	Len() int
	// Close releases the queue and wakes blocked senders and receivers with
	// ErrClosed.
	Close() error
}

// Worker is a host task running a single entry function.
type Worker interface {
	// Start launches the entry function.
	Start() error
	// Join blocks until the entry function returns and releases the task.
	Join() error
}

// WorkerConfig carries task parameters honored by RTOS hosts. The native
// goroutine host ignores all of them.
type WorkerConfig struct {
	StackSize int
	Priority  int
	Timeslice time.Duration
}
