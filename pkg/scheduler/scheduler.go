// Package scheduler defines the cooperative-dispatch collaborator the
// never-die supervisor (pkg/neverdie) uses to run a refresh on behalf of a
// cooperative registration, plus one reference implementation.
//
// Grounded on the shutdown-channel shape described by
// other_examples/…joeycumines-go-utilpkg__eventloop's event loop doc
// (Submit(fn) enqueues external work; a loopDone channel, closed once, signals
// termination) — simplified down to a single FIFO queue, since this package
// has no I/O multiplexing or timer wheel to model.
package scheduler

// Scheduler is the cooperative-dispatch collaborator spec.md §6/§9 requires:
// something a registration captures at decoration time and the never-die
// supervisor later uses to run a refresh "on" the cooperative world that
// owns the call, instead of spawning a bare goroutine.
type Scheduler interface {
	// Submit enqueues fn for execution on this scheduler. It must not block
	// the caller waiting for fn to run.
	Submit(fn func())

	// Running reports whether the scheduler is still accepting work. Once
	// false, Submit is a no-op; the supervisor treats this as the
	// "captured scheduler is no longer running" condition (spec §7) and
	// skips the registration for the current tick.
	Running() bool
}

// Loop is a minimal single-goroutine FIFO scheduler: a reference Scheduler
// good enough for tests and for hosts with no event loop of their own.
type Loop struct {
	tasks    chan func()
	done     chan struct{}
	shutdown chan struct{}
}

// NewLoop starts a Loop and its single worker goroutine. Call Shutdown to
// stop it; a stopped Loop reports Running() == false and silently drops
// further Submit calls.
func NewLoop() *Loop {
	l := &Loop{
		tasks:    make(chan func(), 64),
		done:     make(chan struct{}),
		shutdown: make(chan struct{}),
	}
	go l.run()
	return l
}

func (l *Loop) run() {
	defer close(l.done)
	for {
		select {
		case fn := <-l.tasks:
			fn()
		case <-l.shutdown:
			return
		}
	}
}

// Submit enqueues fn. If the queue is full or the loop has been shut down,
// fn is dropped rather than blocking the caller.
func (l *Loop) Submit(fn func()) {
	select {
	case l.tasks <- fn:
	case <-l.shutdown:
	default:
	}
}

// Running reports whether Shutdown has been called.
func (l *Loop) Running() bool {
	select {
	case <-l.shutdown:
		return false
	default:
		return true
	}
}

// Shutdown stops accepting new work and waits for the worker goroutine to
// drain its current task and exit. Safe to call more than once.
func (l *Loop) Shutdown() {
	select {
	case <-l.shutdown:
	default:
		close(l.shutdown)
	}
	<-l.done
}
