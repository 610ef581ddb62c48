package memoize

import (
	"context"

	"github.com/go-memoize/memoize/pkg/fingerprint"
	"github.com/go-memoize/memoize/pkg/neverdie"
	"github.com/go-memoize/memoize/pkg/signature"
	"github.com/go-memoize/memoize/pkg/store"
)

// BlockingFunc is a memoized callable in the blocking (OS-thread)
// universe — spec §4.D's wrapped callable, restated per §1: the
// dynamically-shaped argument list becomes signature.Args.
type BlockingFunc[V any] func(args signature.Args) (V, error)

// NewBlocking wraps fn with blocking memoization, per spec §4.D.
// functionID is the caller-supplied stable identity for fn (the Go
// equivalent of the source's module-qualified function name — see
// spec §9's glossary entry for function_id); sig is the external
// signature-introspection collaborator spec §1 requires.
func NewBlocking[V any](functionID string, sig *signature.Signature, fn BlockingFunc[V], cfg Config[V]) (BlockingFunc[V], error) {
	fpCfg, err := cfg.build()
	if err != nil {
		return nil, err
	}

	e := engineFor[V]()
	ttlNano := cfg.ttlNano()
	metrics := cfg.metrics
	logger := cfg.loggerOrDefault()
	e.sweeper.setMetrics(metrics)

	wrapped := func(args signature.Args) (V, error) {
		skipCache := popSkipCache(&args)

		fp, err := fingerprint.Build(sig, fpCfg, args)
		if err != nil {
			var zero V
			return zero, err
		}

		key := store.Key{FunctionID: functionID, Fingerprint: fp}

		if cfg.neverDie {
			e.supervisor(logger, metrics).Register(&neverdie.Registration[V]{
				Key:     key,
				TTLNano: ttlNano,
				Refresh: func(context.Context) (V, error) { return fn(args) },
			})
		}

		if entry, ok := e.store.Get(key, skipCache); ok {
			countHit(metrics)
			return entry.Result, nil
		}
		countMiss(metrics)

		keyStr := key.FunctionID + "\x00" + key.Fingerprint
		result, shared, err := e.blocking.Do(keyStr, func() (V, error) {
			if entry, ok := e.store.Get(key, skipCache); ok {
				return entry.Result, nil
			}

			countInvocation(metrics)
			v, err := fn(args)
			if err != nil {
				return v, err
			}

			e.store.Set(key, v, ttlNano)
			return v, nil
		})
		if shared {
			countJoin(metrics)
		}
		if err != nil {
			logger.Debug("memoized call failed", "function_id", functionID, "err", err)
		}

		return result, err
	}

	return wrapped, nil
}

// popSkipCache removes the reserved "skip_cache" keyword from args and
// returns its value, defaulting to false — spec §4.D step 1. It rebuilds
// the keyword map rather than deleting in place, since the map in args is
// shared with the caller's own variable and must not be mutated out from
// under it.
func popSkipCache(args *signature.Args) bool {
	if args.Keyword == nil {
		return false
	}
	v, ok := args.Keyword["skip_cache"]
	if !ok {
		return false
	}

	rest := make(map[string]any, len(args.Keyword)-1)
	for k, val := range args.Keyword {
		if k != "skip_cache" {
			rest[k] = val
		}
	}
	args.Keyword = rest

	b, _ := v.(bool)
	return b
}

func countHit(m *Metrics) {
	if m != nil {
		m.Hits.Inc()
	}
}

func countMiss(m *Metrics) {
	if m != nil {
		m.Misses.Inc()
	}
}

func countInvocation(m *Metrics) {
	if m != nil {
		m.Invocations.Inc()
	}
}

func countJoin(m *Metrics) {
	if m != nil {
		m.SingleFlightJoins.Inc()
	}
}
