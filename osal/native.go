package osal

import (
	"errors"
	"fmt"
	"sync"
	"time"
)

// Native returns the goroutine-backed Port: sync.Mutex, buffered channels,
// and one goroutine per worker. Resource acquisition never fails on this
// host beyond argument validation.
func Native() Port { return nativePort{} }

type nativePort struct{}

func (nativePort) NewMutex(name string) (Mutex, error) {
	return &nativeMutex{}, nil
}

func (nativePort) NewQueue(name string, capacity int) (Queue, error) {
	if capacity <= 0 {
		return nil, fmt.Errorf("queue %q: capacity must be positive", name)
	}
	return &nativeQueue{
		ch:   make(chan any, capacity),
		done: make(chan struct{}),
	}, nil
}

func (nativePort) NewWorker(name string, cfg WorkerConfig, run func()) (Worker, error) {
	if run == nil {
		return nil, fmt.Errorf("worker %q: nil entry function", name)
	}
	return &nativeWorker{run: run, done: make(chan struct{})}, nil
}

type nativeMutex struct {
	mu sync.Mutex
}

func (m *nativeMutex) Lock()        { m.mu.Lock() }
func (m *nativeMutex) Unlock()      { m.mu.Unlock() }
func (m *nativeMutex) Close() error { return nil }

type nativeQueue struct {
	ch   chan any
	done chan struct{}
	once sync.Once
}

func (q *nativeQueue) Send(msg any, timeout time.Duration) error {
	switch timeout {
	case NoWait:
		select {
		case <-q.done:
			return ErrClosed
		default:
		}
		select {
		case q.ch <- msg:
			return nil
		default:
			return ErrFull
		}
	case Forever:
		select {
		case q.ch <- msg:
			return nil
		case <-q.done:
			return ErrClosed
		}
	default:
		t := time.NewTimer(timeout)
		defer t.Stop()
		select {
		case q.ch <- msg:
			return nil
		case <-q.done:
			return ErrClosed
		case <-t.C:
			return ErrTimeout
		}
	}
}

func (q *nativeQueue) Receive(timeout time.Duration) (any, error) {
	switch timeout {
	case NoWait:
		select {
		case msg := <-q.ch:
			return msg, nil
		default:
			select {
			case <-q.done:
				return nil, ErrClosed
			default:
				return nil, ErrEmpty
			}
		}
	case Forever:
		// Drain buffered messages even once the queue is closed.
		select {
		case msg := <-q.ch:
			return msg, nil
		default:
		}
		select {
		case msg := <-q.ch:
			return msg, nil
		case <-q.done:
			return nil, ErrClosed
		}
	default:
		t := time.NewTimer(timeout)
		defer t.Stop()
		select {
		case msg := <-q.ch:
			return msg, nil
		case <-q.done:
			return nil, ErrClosed
		case <-t.C:
			return nil, ErrTimeout
		}
	}
}

func (q *nativeQueue) Len() int { return len(q.ch) }

func (q *nativeQueue) Close() error {
	q.once.Do(func() { close(q.done) })
	return nil
}

type nativeWorker struct {
	run     func()
	done    chan struct{}
	started bool
	mu      sync.Mutex
}

func (w *nativeWorker) Start() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.started {
		return errors.New("worker already started")
	}
	w.started = true
	go func() {
		defer close(w.done)
		w.run()
	}()
	return nil
}

func (w *nativeWorker) Join() error {
	w.mu.Lock()
	started := w.started
	w.mu.Unlock()
	if !started {
		return errors.New("worker not started")
	}
	<-w.done
	return nil
}
