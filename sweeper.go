package memoize

import (
	"sync"
	"time"

	"github.com/go-memoize/memoize/internal"
	"github.com/go-memoize/memoize/pkg/store"
)

// sweepPeriod is fixed per spec §9 and never exposed as configuration.
const sweepPeriod = 10 * time.Second

// Sweeper is spec.md component G: a daemon that periodically scans the
// store and drops expired, non-never-die entries. Never-die residents
// (TTLNano == 0) are untouched by construction — store.Store.Sweep skips
// them, see pkg/store/store.go.
//
// Directly adapted from HotCache.Janitor/StopJanitor (hot.go:537-666):
// the same ticker + stopJanitor channel + janitorDone channel + sync.Once
// shutdown discipline, generalized from "this cache's backing store" to
// "the process-wide pkg/store.Store for one result type".
type Sweeper[V any] struct {
	store *store.Store[V]

	mu       sync.Mutex
	ticker   *time.Ticker
	stopOnce *sync.Once
	stop     chan struct{}
	done     chan struct{}
	metrics  *Metrics
}

func newSweeper[V any](st *store.Store[V]) *Sweeper[V] {
	return &Sweeper[V]{store: st}
}

// setMetrics attaches m to the sweeper the first time a non-nil value is
// supplied — like engine.supervisor's logger, whichever wrapped function
// registers metrics first decides them for every sweep of this store.
func (s *Sweeper[V]) setMetrics(m *Metrics) {
	if m == nil {
		return
	}
	s.mu.Lock()
	if s.metrics == nil {
		s.metrics = m
	}
	s.mu.Unlock()
}

func (s *Sweeper[V]) recordSweep(removed int) {
	s.mu.Lock()
	m := s.metrics
	s.mu.Unlock()
	if m == nil {
		return
	}
	if removed > 0 {
		m.SweptEntries.Add(float64(removed))
	}
	m.StoredEntries.Set(float64(s.store.Len()))
	m.StoredBytes.Set(float64(s.store.SizeBytes()))
}

// Start launches the sweeper goroutine if it is not already running. Safe
// to call more than once, like the teacher's Janitor().
func (s *Sweeper[V]) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ticker != nil {
		return
	}

	s.ticker = time.NewTicker(sweepPeriod)
	s.stopOnce = &sync.Once{}
	s.stop = make(chan struct{})
	s.done = make(chan struct{})

	ticker := s.ticker
	stop := s.stop
	done := s.done

	go func() {
		defer func() {
			s.mu.Lock()
			s.ticker = nil
			s.mu.Unlock()
			close(done)
		}()

		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				removed := s.store.Sweep(internal.NowNano())
				s.recordSweep(removed)
			}
		}
	}()
}

// Stop halts the sweeper goroutine and waits for it to exit. Safe to call
// more than once, and safe to call even if Start was never called.
func (s *Sweeper[V]) Stop() {
	s.mu.Lock()
	if s.ticker == nil && s.stopOnce == nil {
		s.mu.Unlock()
		return
	}
	stopOnce := s.stopOnce
	stopCh := s.stop
	doneCh := s.done
	s.mu.Unlock()

	stopOnce.Do(func() {
		close(stopCh)
		<-doneCh

		s.mu.Lock()
		if s.ticker != nil {
			s.ticker.Stop()
		}
		s.mu.Unlock()
	})
}
