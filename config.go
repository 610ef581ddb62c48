package memoize

import (
	"time"

	"github.com/go-memoize/memoize/pkg/fingerprint"
	"github.com/go-memoize/memoize/pkg/scheduler"
)

// Config is the builder-pattern decoration-time configuration spec §6
// describes (`ttl`, `never_die`, `key_function`, `ignore_fields`).
// Grounded directly on the teacher's HotCacheConfig (config.go): an
// immutable receiver, chained `With*` methods each returning a modified
// copy, and `assertValue` panics for caller-time invariant violations.
// NewBlocking/NewCooperative validate the finished configuration through
// build(), which returns an error rather than panicking.
type Config[V any] struct {
	ttl      time.Duration
	neverDie bool

	keyFunc      fingerprint.KeyFunc
	ignoreFields []string

	logger    Logger
	metrics   *Metrics
	scheduler scheduler.Scheduler
}

// NewConfig returns the default configuration: ttl of 300s, never_die
// disabled — spec §6's table of defaults.
func NewConfig[V any]() Config[V] {
	return Config[V]{ttl: 300 * time.Second}
}

// WithTTL sets the entry lifetime, and, for a never-die function, the
// nominal refresh period (scaled by back-off on failure) — spec §6.
func (cfg Config[V]) WithTTL(ttl time.Duration) Config[V] {
	assertValue(ttl > 0, "ttl must be a positive value")
	cfg.ttl = ttl
	return cfg
}

// WithNeverDie registers the wrapped function for background refresh —
// spec §4.D/§4.E step 3, §6.
func (cfg Config[V]) WithNeverDie() Config[V] {
	cfg.neverDie = true
	return cfg
}

// WithKeyFunction overrides the default signature-binding fingerprint with
// a user function. Mutually exclusive with WithIgnoreFields — spec §4.A;
// enforced by build() when NewBlocking/NewCooperative wraps the function
// (returning ErrBadConfig), not here, so the two can be set in either order.
func (cfg Config[V]) WithKeyFunction(fn fingerprint.KeyFunc) Config[V] {
	cfg.keyFunc = fn
	return cfg
}

// WithIgnoreFields drops the named parameters from the default
// fingerprint. Mutually exclusive with WithKeyFunction.
func (cfg Config[V]) WithIgnoreFields(fields ...string) Config[V] {
	cfg.ignoreFields = fields
	return cfg
}

// WithLogger overrides the debug logger used for swallowed refresh
// failures and skipped scheduler dispatches. Defaults to a no-op logger.
func (cfg Config[V]) WithLogger(logger Logger) Config[V] {
	cfg.logger = logger
	return cfg
}

// WithMetrics attaches a shared Metrics value so this wrapped function's
// hits/misses/refreshes are observable. Counting is skipped entirely if
// never set — there is no default Metrics value.
func (cfg Config[V]) WithMetrics(metrics *Metrics) Config[V] {
	cfg.metrics = metrics
	return cfg
}

// WithScheduler captures the cooperative scheduler a never-die refresh
// must be dispatched to — spec §4.F: "the registration captures the
// currently active cooperative scheduler if the callable is cooperative".
// Only meaningful together with WithNeverDie on a cooperative wrap
// (NewCooperative); ignored by NewBlocking.
func (cfg Config[V]) WithScheduler(s scheduler.Scheduler) Config[V] {
	cfg.scheduler = s
	return cfg
}

func (cfg Config[V]) fingerprintConfig() fingerprint.Config {
	return fingerprint.Config{
		KeyFunc:      cfg.keyFunc,
		IgnoreFields: cfg.ignoreFields,
	}
}

func (cfg Config[V]) build() (fingerprint.Config, error) {
	fpCfg := cfg.fingerprintConfig()
	if err := fpCfg.Validate(); err != nil {
		return fingerprint.Config{}, err
	}
	return fpCfg, nil
}

func (cfg Config[V]) ttlNano() int64 {
	return int64(cfg.ttl)
}

func (cfg Config[V]) loggerOrDefault() Logger {
	if cfg.logger != nil {
		return cfg.logger
	}
	return noopLogger{}
}

// assertValue panics with msg if ok is false — lifted from the teacher's
// utils.go, used the same way: validating configuration parameters at
// decoration time, not at call time.
func assertValue(ok bool, msg string) {
	if !ok {
		panic(msg)
	}
}
