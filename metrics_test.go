package memoize

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"github.com/go-memoize/memoize/internal"
	"github.com/go-memoize/memoize/pkg/signature"
)

func TestMetrics_BlockingHitsMissesAndInvocations(t *testing.T) {
	defer ResetForTesting[int]()
	sig := signature.MustNew(signature.Param{Name: "a", Kind: signature.Ordinary})
	m := newMetrics()

	fn, err := NewBlocking[int]("metrics.counter", sig, func(args signature.Args) (int, error) {
		return args.Positional[0].(int), nil
	}, NewConfig[int]().WithTTL(time.Minute).WithMetrics(m))
	require.NoError(t, err)

	_, err = fn(signature.Args{Positional: []any{1}})
	require.NoError(t, err)
	_, err = fn(signature.Args{Positional: []any{1}})
	require.NoError(t, err)

	require.Equal(t, float64(1), testutil.ToFloat64(m.Misses))
	require.Equal(t, float64(1), testutil.ToFloat64(m.Hits))
	require.Equal(t, float64(1), testutil.ToFloat64(m.Invocations))
}

func TestMetrics_NeverDieRecordsRefreshSuccess(t *testing.T) {
	defer ResetForTesting[int]()
	sig := signature.MustNew(signature.Param{Name: "a", Kind: signature.Ordinary})
	m := newMetrics()

	var calls int32
	fn, err := NewBlocking[int]("metrics.neverdie", sig, func(args signature.Args) (int, error) {
		return int(atomic.AddInt32(&calls, 1)), nil
	}, NewConfig[int]().WithTTL(10*time.Millisecond).WithNeverDie().WithMetrics(m))
	require.NoError(t, err)

	_, err = fn(signature.Args{Positional: []any{1}})
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		return testutil.ToFloat64(m.RefreshSuccess) >= 2
	}, time.Second, 10*time.Millisecond)
}

func TestMetrics_SweeperRecordsSweptEntriesAndStoreSize(t *testing.T) {
	defer ResetForTesting[int]()
	sig := signature.MustNew(signature.Param{Name: "a", Kind: signature.Ordinary})
	m := newMetrics()

	fn, err := NewBlocking[int]("metrics.sweep", sig, func(args signature.Args) (int, error) {
		return args.Positional[0].(int), nil
	}, NewConfig[int]().WithTTL(time.Nanosecond).WithMetrics(m))
	require.NoError(t, err)

	_, err = fn(signature.Args{Positional: []any{1}})
	require.NoError(t, err)

	e := engineFor[int]()
	time.Sleep(5 * time.Millisecond)
	removed := e.store.Sweep(internal.NowNano())
	e.sweeper.recordSweep(removed)

	require.Equal(t, float64(1), testutil.ToFloat64(m.SweptEntries))
	require.Equal(t, float64(0), testutil.ToFloat64(m.StoredEntries))
}
