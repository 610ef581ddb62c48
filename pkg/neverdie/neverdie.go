// Package neverdie implements spec.md component F: the process-wide
// registry of refreshable entries and the single supervisor that keeps
// them fresh in the background with exponential back-off on failure.
//
// Grounded on two shapes from the pack: the ticker/stop/done/sync.Once
// background-goroutine discipline of the teacher's HotCache.Janitor
// (hot.go), and the periodic-refresh-with-panic-containment loop of
// other_examples/…nscaledev-uni-core__refresh_ahead.go's
// RefreshAheadCache.Run — generalized here from "refresh one shared
// dataset on a ticker" to "refresh N independently-scheduled
// registrations, each with its own back-off clock".
package neverdie

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/go-memoize/memoize/pkg/lockregistry"
	"github.com/go-memoize/memoize/pkg/merrors"
	"github.com/go-memoize/memoize/pkg/scheduler"
	"github.com/go-memoize/memoize/pkg/store"
)

// supervisorTick and the back-off constants are fixed per spec §9 and
// never exposed as configuration.
const (
	supervisorTick = 100 * time.Millisecond
	backoffFactor  = 1.25
	backoffCap     = 10.0
	initialBackoff = 1.0
)

// Logger is the minimal debug-logging collaborator the supervisor needs.
// Defined locally (rather than importing the root package's Logger) to
// keep this package free of an import cycle back into the root package,
// which imports pkg/neverdie; any type satisfying memoize.Logger's method
// set satisfies this one too.
type Logger interface {
	Debug(msg string, kv ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}

// Metrics is the subset of the root package's counters a Supervisor
// updates. Defined locally (not imported from the root package) for the
// same import-cycle reason as Logger; the root package builds one from
// its own *Metrics and passes it to New.
type Metrics struct {
	RefreshSuccess  prometheus.Counter
	RefreshFailure  prometheus.Counter
	BackoffExtended prometheus.Counter
}

// Registration is spec.md's NeverDieRegistration, restated in Go terms.
// captured_args/captured_kwargs are closed over inside Refresh by the
// caller (the root package's blocking.go/cooperative.go), rather than
// stored here, since Go closures make that the natural shape.
type Registration[V any] struct {
	Key     store.Key
	TTLNano int64

	// Refresh recomputes the value. Blocking registrations (Scheduler ==
	// nil) are invoked with context.Background(); cooperative
	// registrations are invoked on their captured Scheduler.
	Refresh func(ctx context.Context) (V, error)

	// Scheduler is the cooperative scheduler captured at registration
	// time, or nil for a blocking registration.
	Scheduler scheduler.Scheduler

	backoffMultiplier float64
	nextRefreshAt     int64
}

func (r *Registration[V]) reset(nowNano int64) {
	r.backoffMultiplier = initialBackoff
	r.nextRefreshAt = nowNano + r.TTLNano
}

func (r *Registration[V]) revive(nowNano int64) {
	r.backoffMultiplier *= backoffFactor
	if r.backoffMultiplier > backoffCap {
		r.backoffMultiplier = backoffCap
	}
	r.nextRefreshAt = nowNano + int64(float64(r.TTLNano)*r.backoffMultiplier)
}

// Supervisor is the single background dispatcher for one result type V.
// One Supervisor[V] is shared by every never-die registration sharing
// that result type, the same way pkg/store.Store[V] is.
type Supervisor[V any] struct {
	store    *store.Store[V]
	blocking *lockregistry.Blocking[V]
	coop     *lockregistry.Cooperative[V]
	logger   Logger
	metrics  *Metrics
	nowNano  func() int64

	mu            sync.Mutex
	registrations map[store.Key]*Registration[V]

	inflightMu sync.Mutex
	inflight   map[store.Key]struct{}

	startOnce sync.Once
	started   atomic.Bool
	stop      chan struct{}
	done      chan struct{}
}

// New creates a Supervisor. It does not start its goroutine until the
// first call to Register — spec §4.F: "start the supervisor if not
// running" happens on first registration, not at construction. metrics may
// be nil, in which case refresh outcomes are not counted.
func New[V any](st *store.Store[V], blocking *lockregistry.Blocking[V], coop *lockregistry.Cooperative[V], logger Logger, nowNano func() int64, metrics *Metrics) *Supervisor[V] {
	if logger == nil {
		logger = noopLogger{}
	}
	return &Supervisor[V]{
		store:         st,
		blocking:      blocking,
		coop:          coop,
		logger:        logger,
		metrics:       metrics,
		nowNano:       nowNano,
		registrations: make(map[store.Key]*Registration[V]),
		inflight:      make(map[store.Key]struct{}),
		stop:          make(chan struct{}),
		done:          make(chan struct{}),
	}
}

// Register adds reg unless a registration already exists for reg.Key —
// idempotent by (function_id, fingerprint), per spec §4.F. Starts the
// supervisor goroutine on the first call.
func (s *Supervisor[V]) Register(reg *Registration[V]) {
	s.mu.Lock()
	_, exists := s.registrations[reg.Key]
	if !exists {
		reg.reset(s.nowNano())
		s.registrations[reg.Key] = reg
	}
	s.mu.Unlock()

	s.startOnce.Do(func() {
		s.started.Store(true)
		go s.run()
	})
}

func (s *Supervisor[V]) run() {
	defer close(s.done)
	ticker := time.NewTicker(supervisorTick)
	defer ticker.Stop()

	for {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
			s.tick()
		}
	}
}

func (s *Supervisor[V]) snapshot() []*Registration[V] {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*Registration[V], 0, len(s.registrations))
	for _, r := range s.registrations {
		out = append(out, r)
	}
	return out
}

func (s *Supervisor[V]) tick() {
	now := s.nowNano()

	for _, r := range s.snapshot() {
		if now < r.nextRefreshAt {
			continue
		}

		if !s.markInFlight(r.Key) {
			continue
		}

		if r.Scheduler == nil {
			go s.runBlocking(r)
			continue
		}

		if !r.Scheduler.Running() {
			s.logger.Debug("never-die refresh skipped: scheduler closed", "function_id", r.Key.FunctionID, "err", merrors.ErrSchedulerClosed)
			s.clearInFlight(r.Key)
			continue
		}

		r.Scheduler.Submit(func() { s.runCooperative(r) })
	}
}

func (s *Supervisor[V]) markInFlight(key store.Key) bool {
	s.inflightMu.Lock()
	defer s.inflightMu.Unlock()
	if _, ok := s.inflight[key]; ok {
		return false
	}
	s.inflight[key] = struct{}{}
	return true
}

func (s *Supervisor[V]) clearInFlight(key store.Key) {
	s.inflightMu.Lock()
	delete(s.inflight, key)
	s.inflightMu.Unlock()
}

func (s *Supervisor[V]) runBlocking(r *Registration[V]) {
	defer s.clearInFlight(r.Key)
	defer s.recoverPanic(r)

	keyStr := r.Key.FunctionID + "\x00" + r.Key.Fingerprint
	result, _, err := s.blocking.Do(keyStr, func() (V, error) {
		return r.Refresh(context.Background())
	})
	s.finish(r, result, err)
}

func (s *Supervisor[V]) runCooperative(r *Registration[V]) {
	defer s.clearInFlight(r.Key)
	defer s.recoverPanic(r)

	keyStr := r.Key.FunctionID + "\x00" + r.Key.Fingerprint
	result, _, err := s.coop.Do(context.Background(), keyStr, r.Refresh)
	s.finish(r, result, err)
}

func (s *Supervisor[V]) finish(r *Registration[V], result V, err error) {
	now := s.nowNano()

	s.mu.Lock()
	defer s.mu.Unlock()

	if err != nil {
		r.revive(now)
		s.logger.Debug("never-die refresh failed, back-off extended", "function_id", r.Key.FunctionID, "err", &merrors.RefreshError{FunctionID: r.Key.FunctionID, Err: err})
		s.countFailure()
		return
	}

	s.store.Set(r.Key, result, 0)
	r.reset(now)
	s.countSuccess()
}

func (s *Supervisor[V]) countSuccess() {
	if s.metrics != nil {
		s.metrics.RefreshSuccess.Inc()
	}
}

func (s *Supervisor[V]) countFailure() {
	if s.metrics != nil {
		s.metrics.RefreshFailure.Inc()
		s.metrics.BackoffExtended.Inc()
	}
}

// recoverPanic keeps one registration's misbehaving callable from taking
// down the supervisor — mirrors nscaledev's doRefresh panic containment.
func (s *Supervisor[V]) recoverPanic(r *Registration[V]) {
	if rec := recover(); rec != nil {
		s.logger.Debug("never-die refresh panicked, back-off extended", "function_id", r.Key.FunctionID, "value", rec)
		s.mu.Lock()
		r.revive(s.nowNano())
		s.mu.Unlock()
		s.countFailure()
	}
}

// Stop halts the supervisor goroutine. Daemon-style in production (never
// called before process exit per spec §4.F's lifecycle note); exposed for
// tests and for memoize.ResetForTesting.
func (s *Supervisor[V]) Stop() {
	if !s.started.Load() {
		return
	}
	select {
	case <-s.stop:
	default:
		close(s.stop)
	}
	<-s.done
}
