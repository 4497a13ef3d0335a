// worker.go implements the background delivery worker: a bounded queue
// drained by a single goroutine with adaptive throttling.

package errwatch

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

// WorkerState is the lifecycle state of a Worker.
type WorkerState int32

const (
	// StateRunning accepts and delivers notices.
	StateRunning WorkerState = iota
	// StateShuttingDown rejects new notices and drains queued ones.
	StateShuttingDown
	// StateStopped means the delivery goroutine has exited.
	StateStopped
)

func (s WorkerState) String() string {
	switch s {
	case StateRunning:
		return "running"
	case StateShuttingDown:
		return "shutting_down"
	case StateStopped:
		return "stopped"
	}
	return "unknown"
}

type entryKind int

const (
	entryNotice entryKind = iota
	entrySync
	entryStop
)

type entry struct {
	kind   entryKind
	notice *Notice
	done   chan struct{}
}

// WorkerOption configures a Worker.
type WorkerOption func(*Worker)

// WithMaxQueueSize bounds the number of queued notices (default: DefaultMaxQueueSize).
func WithMaxQueueSize(size int) WorkerOption {
	return func(w *Worker) {
		if size > 0 {
			w.maxSize = size
		}
	}
}

// WithSendTimeout bounds each Sender call (default: DefaultSendTimeout).
func WithSendTimeout(d time.Duration) WorkerOption {
	return func(w *Worker) {
		if d > 0 {
			w.sendTimeout = d
		}
	}
}

// WithEncoder sets how notices are serialized before sending.
// The default encodes without filter keys.
func WithEncoder(fn func(*Notice) ([]byte, error)) WorkerOption {
	return func(w *Worker) {
		if fn != nil {
			w.encode = fn
		}
	}
}

// WithWorkerLogger sets the logger for delivery failures.
func WithWorkerLogger(logger *slog.Logger) WorkerOption {
	return func(w *Worker) {
		if logger != nil {
			w.logger = logger
		}
	}
}

// WithObserver sets the observer notified of queue and delivery events.
func WithObserver(o WorkerObserver) WorkerOption {
	return func(w *Worker) {
		if o != nil {
			w.observer = o
		}
	}
}

// Worker owns a bounded queue of notices and one goroutine that sends them
// sequentially. Push never blocks; Flush and Shutdown block up to a timeout.
type Worker struct {
	sender      Sender
	encode      func(*Notice) ([]byte, error)
	maxSize     int
	sendTimeout time.Duration
	logger      *slog.Logger
	observer    WorkerObserver
	sleep       func(d time.Duration, stop <-chan struct{})

	mu      sync.Mutex
	entries []entry
	notices int
	state   atomic.Int32
	wake    chan struct{}

	throttle throttle

	stopping     chan struct{}
	done         chan struct{}
	ctx          context.Context
	cancel       context.CancelFunc
	shutdownOnce sync.Once
}

// NewWorker creates a Worker delivering through sender and starts its goroutine.
func NewWorker(sender Sender, opts ...WorkerOption) *Worker {
	if sender == nil {
		sender = noopSenderInternal{}
	}
	ctx, cancel := context.WithCancel(context.Background())
	w := &Worker{
		sender:      sender,
		encode:      func(n *Notice) ([]byte, error) { return n.Encode(nil) },
		maxSize:     DefaultMaxQueueSize,
		sendTimeout: DefaultSendTimeout,
		logger:      slog.Default(),
		observer:    nopObserver{},
		sleep:       sleepOrStop,
		wake:        make(chan struct{}, 1),
		stopping:    make(chan struct{}),
		done:        make(chan struct{}),
		ctx:         ctx,
		cancel:      cancel,
	}
	for _, opt := range opts {
		opt(w)
	}
	w.logger = w.logger.With("component", "errwatch.worker")

	go w.run()
	return w
}

// Push enqueues n for delivery. It returns false without side effects when
// the worker is not running or the queue is full.
func (w *Worker) Push(n *Notice) bool {
	if n == nil {
		return false
	}

	w.mu.Lock()
	if w.State() != StateRunning {
		w.mu.Unlock()
		w.observer.NoticeDropped(DropStopped)
		return false
	}
	if w.notices >= w.maxSize {
		w.mu.Unlock()
		w.observer.NoticeDropped(DropQueueFull)
		w.logger.Debug("queue full, dropping notice", "notice_id", n.ID, "max_queue_size", w.maxSize)
		return false
	}
	w.entries = append(w.entries, entry{kind: entryNotice, notice: n})
	w.notices++
	depth := w.notices
	w.mu.Unlock()

	w.signal()
	w.observer.NoticeQueued(depth)
	return true
}

// Flush waits up to timeout until every entry queued before the call has been
// processed. It reports whether that happened before the timeout.
func (w *Worker) Flush(timeout time.Duration) bool {
	marker := entry{kind: entrySync, done: make(chan struct{})}

	w.mu.Lock()
	if w.State() == StateStopped {
		w.mu.Unlock()
		return w.QueueSize() == 0
	}
	w.entries = append(w.entries, marker)
	w.mu.Unlock()
	w.signal()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-marker.done:
		return true
	case <-timer.C:
		w.logger.Warn("flush timed out", "timeout", timeout, "queue_size", w.QueueSize())
		return false
	}
}

// Shutdown stops accepting notices, asks the goroutine to drain and exit, and
// waits up to timeout for it. If it exited in time, notices still queued are
// sent synchronously before Shutdown returns. Only the first call has effect.
func (w *Worker) Shutdown(timeout time.Duration) {
	w.shutdownOnce.Do(func() {
		w.mu.Lock()
		w.state.CompareAndSwap(int32(StateRunning), int32(StateShuttingDown))
		w.entries = append(w.entries, entry{kind: entryStop})
		w.mu.Unlock()
		close(w.stopping)
		w.signal()

		timer := time.NewTimer(timeout)
		defer timer.Stop()

		select {
		case <-w.done:
		case <-timer.C:
			w.logger.Warn("shutdown timed out, abandoning queued notices",
				"timeout", timeout, "queue_size", w.QueueSize())
			w.cancel()
			return
		}

		for {
			e, ok := w.tryPop()
			if !ok {
				break
			}
			w.handleDrained(e)
		}
		w.cancel()
	})
}

// QueueSize returns the number of queued notices.
func (w *Worker) QueueSize() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.notices
}

// IsRunning reports whether the worker accepts notices.
func (w *Worker) IsRunning() bool {
	return w.State() == StateRunning
}

// State returns the lifecycle state.
func (w *Worker) State() WorkerState {
	return WorkerState(w.state.Load())
}

// ThrottleLevel returns the current adaptive throttle level.
func (w *Worker) ThrottleLevel() int {
	return w.throttle.Level()
}

// Done is closed when the delivery goroutine has exited.
func (w *Worker) Done() <-chan struct{} {
	return w.done
}

func (w *Worker) run() {
	defer close(w.done)
	defer w.finish()
	defer func() {
		if r := recover(); r != nil {
			w.logger.Error("delivery loop crashed, worker stopped", "panic", r)
		}
	}()

	for {
		e := w.next()
		switch e.kind {
		case entryStop:
			w.drain()
			return
		case entrySync:
			close(e.done)
		case entryNotice:
			w.deliverThrottled(e.notice)
		}
	}
}

// finish marks the worker stopped and releases pending Flush callers.
// Queued notices stay for Shutdown to send.
func (w *Worker) finish() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.state.Store(int32(StateStopped))

	kept := w.entries[:0]
	for _, e := range w.entries {
		if e.kind == entrySync {
			close(e.done)
			continue
		}
		if e.kind == entryNotice {
			kept = append(kept, e)
		}
	}
	w.entries = kept
}

// drain sends every queued notice once, without throttling.
func (w *Worker) drain() {
	for {
		e, ok := w.tryPop()
		if !ok {
			return
		}
		w.handleDrained(e)
	}
}

func (w *Worker) handleDrained(e entry) {
	switch e.kind {
	case entryNotice:
		w.deliver(e.notice)
	case entrySync:
		close(e.done)
	}
}

func (w *Worker) deliverThrottled(n *Notice) {
	if d := w.throttle.Delay(); d > 0 {
		w.sleep(d, w.stopping)
	}

	sent, attempted := w.deliver(n)
	if !attempted {
		return
	}
	var level int
	if sent {
		level = w.throttle.Succeed()
	} else {
		level = w.throttle.Fail()
	}
	w.observer.ThrottleChanged(level)
}

// deliver encodes and sends n once. attempted is false when the notice
// could not be encoded and the Sender was never called.
func (w *Worker) deliver(n *Notice) (sent, attempted bool) {
	payload, err := w.encode(n)
	if err != nil {
		w.logger.Error("failed to encode notice, dropping", "notice_id", n.ID, "error", err)
		return false, false
	}

	ctx, cancel := context.WithTimeout(w.ctx, w.sendTimeout)
	defer cancel()

	_, err = safeSend(ctx, w.sender, payload)
	depth := w.QueueSize()
	if err != nil {
		w.observer.NoticeFailed(depth)
		w.logger.Warn("failed to deliver notice",
			"notice_id", n.ID, "error_class", n.ErrorClass, "error", err,
			"throttle_level", w.throttle.Level())
		return false, true
	}
	w.observer.NoticeSent(depth)
	return true, true
}

// next blocks until an entry is available.
func (w *Worker) next() entry {
	for {
		if e, ok := w.tryPop(); ok {
			return e
		}
		<-w.wake
	}
}

func (w *Worker) tryPop() (entry, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if len(w.entries) == 0 {
		return entry{}, false
	}
	e := w.entries[0]
	w.entries[0] = entry{}
	w.entries = w.entries[1:]
	if e.kind == entryNotice {
		w.notices--
	}
	return e, true
}

func (w *Worker) signal() {
	select {
	case w.wake <- struct{}{}:
	default:
	}
}

// sleepOrStop sleeps for d or until stop is closed.
func sleepOrStop(d time.Duration, stop <-chan struct{}) {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
	case <-stop:
	}
}
