package memoize

import (
	"context"

	"github.com/go-memoize/memoize/pkg/fingerprint"
	"github.com/go-memoize/memoize/pkg/neverdie"
	"github.com/go-memoize/memoize/pkg/signature"
	"github.com/go-memoize/memoize/pkg/store"
)

// CooperativeFunc is a memoized callable in the cooperative universe —
// spec §4.E. Identical in shape to BlockingFunc plus a leading
// context.Context, which both carries cancellation for the suspend point
// (spec §4.E: "a cooperative lock that suspends the calling task while
// waiting") and stands in for "the calling task" spec §5 refers to.
type CooperativeFunc[V any] func(ctx context.Context, args signature.Args) (V, error)

// NewCooperative wraps fn with cooperative memoization, per spec §4.E:
// identical algorithm to NewBlocking except steps 5-6 suspend on a
// cancellable lock instead of an OS mutex, and step 7 awaits the
// callable. WithScheduler on cfg, if set, is the scheduler a never-die
// registration captures for background refresh (spec §4.F).
func NewCooperative[V any](functionID string, sig *signature.Signature, fn CooperativeFunc[V], cfg Config[V]) (CooperativeFunc[V], error) {
	fpCfg, err := cfg.build()
	if err != nil {
		return nil, err
	}

	e := engineFor[V]()
	ttlNano := cfg.ttlNano()
	metrics := cfg.metrics
	logger := cfg.loggerOrDefault()
	sched := cfg.scheduler
	e.sweeper.setMetrics(metrics)

	wrapped := func(ctx context.Context, args signature.Args) (V, error) {
		skipCache := popSkipCache(&args)

		fp, err := fingerprint.Build(sig, fpCfg, args)
		if err != nil {
			var zero V
			return zero, err
		}

		key := store.Key{FunctionID: functionID, Fingerprint: fp}

		if cfg.neverDie {
			e.supervisor(logger, metrics).Register(&neverdie.Registration[V]{
				Key:       key,
				TTLNano:   ttlNano,
				Scheduler: sched,
				Refresh:   func(ctx context.Context) (V, error) { return fn(ctx, args) },
			})
		}

		if entry, ok := e.store.Get(key, skipCache); ok {
			countHit(metrics)
			return entry.Result, nil
		}
		countMiss(metrics)

		keyStr := key.FunctionID + "\x00" + key.Fingerprint
		result, shared, err := e.coop.Do(ctx, keyStr, func(ctx context.Context) (V, error) {
			if entry, ok := e.store.Get(key, skipCache); ok {
				return entry.Result, nil
			}

			countInvocation(metrics)
			v, err := fn(ctx, args)
			if err != nil {
				return v, err
			}

			e.store.Set(key, v, ttlNano)
			return v, nil
		})
		if shared {
			countJoin(metrics)
		}
		if err != nil && ctx.Err() == nil {
			logger.Debug("memoized call failed", "function_id", functionID, "err", err)
		}

		return result, err
	}

	return wrapped, nil
}
