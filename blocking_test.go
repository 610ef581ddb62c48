package memoize

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/go-memoize/memoize/pkg/signature"
)

var errBoomBlocking = errors.New("boom")

func TestNewBlocking_CachesResultAcrossCalls(t *testing.T) {
	defer ResetForTesting[int]()
	sig := signature.MustNew(signature.Param{Name: "a", Kind: signature.Ordinary})

	var calls int32
	fn, err := NewBlocking[int]("blocking.counter", sig, func(args signature.Args) (int, error) {
		atomic.AddInt32(&calls, 1)
		return args.Positional[0].(int) * 2, nil
	}, NewConfig[int]().WithTTL(time.Minute))
	require.NoError(t, err)

	v1, err := fn(signature.Args{Positional: []any{21}})
	require.NoError(t, err)
	require.Equal(t, 42, v1)

	v2, err := fn(signature.Args{Positional: []any{21}})
	require.NoError(t, err)
	require.Equal(t, 42, v2)

	require.Equal(t, int32(1), atomic.LoadInt32(&calls), "second call must hit the cache")
}

func TestNewBlocking_DistinctArgumentsInvokeSeparately(t *testing.T) {
	defer ResetForTesting[int]()
	sig := signature.MustNew(signature.Param{Name: "a", Kind: signature.Ordinary})

	var calls int32
	fn, err := NewBlocking[int]("blocking.distinct", sig, func(args signature.Args) (int, error) {
		atomic.AddInt32(&calls, 1)
		return args.Positional[0].(int), nil
	}, NewConfig[int]().WithTTL(time.Minute))
	require.NoError(t, err)

	_, err = fn(signature.Args{Positional: []any{1}})
	require.NoError(t, err)
	_, err = fn(signature.Args{Positional: []any{2}})
	require.NoError(t, err)

	require.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestNewBlocking_ConcurrentCallsSingleFlight(t *testing.T) {
	defer ResetForTesting[int]()
	sig := signature.MustNew(signature.Param{Name: "a", Kind: signature.Ordinary})

	var calls int32
	release := make(chan struct{})
	fn, err := NewBlocking[int]("blocking.singleflight", sig, func(args signature.Args) (int, error) {
		atomic.AddInt32(&calls, 1)
		<-release
		return 7, nil
	}, NewConfig[int]().WithTTL(time.Minute))
	require.NoError(t, err)

	var wg sync.WaitGroup
	results := make([]int, 10)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			v, err := fn(signature.Args{Positional: []any{1}})
			require.NoError(t, err)
			results[i] = v
		}(i)
	}

	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	require.Equal(t, int32(1), atomic.LoadInt32(&calls))
	for _, v := range results {
		require.Equal(t, 7, v)
	}
}

func TestNewBlocking_TTLExpiryTriggersRecompute(t *testing.T) {
	defer ResetForTesting[int]()
	sig := signature.MustNew(signature.Param{Name: "a", Kind: signature.Ordinary})

	var calls int32
	fn, err := NewBlocking[int]("blocking.ttl", sig, func(args signature.Args) (int, error) {
		return int(atomic.AddInt32(&calls, 1)), nil
	}, NewConfig[int]().WithTTL(10*time.Millisecond))
	require.NoError(t, err)

	v1, err := fn(signature.Args{Positional: []any{1}})
	require.NoError(t, err)
	require.Equal(t, 1, v1)

	time.Sleep(30 * time.Millisecond)

	v2, err := fn(signature.Args{Positional: []any{1}})
	require.NoError(t, err)
	require.Equal(t, 2, v2)
}

func TestNewBlocking_SkipCacheForcesRecompute(t *testing.T) {
	defer ResetForTesting[int]()
	sig := signature.MustNew(signature.Param{Name: "a", Kind: signature.Ordinary})

	var calls int32
	fn, err := NewBlocking[int]("blocking.skip", sig, func(args signature.Args) (int, error) {
		return int(atomic.AddInt32(&calls, 1)), nil
	}, NewConfig[int]().WithTTL(time.Minute))
	require.NoError(t, err)

	_, err = fn(signature.Args{Positional: []any{1}})
	require.NoError(t, err)

	v2, err := fn(signature.Args{Positional: []any{1}, Keyword: map[string]any{"skip_cache": true}})
	require.NoError(t, err)
	require.Equal(t, 2, v2)

	require.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestNewBlocking_ErrorIsReraisedAndNotCached(t *testing.T) {
	defer ResetForTesting[int]()
	sig := signature.MustNew(signature.Param{Name: "a", Kind: signature.Ordinary})

	var calls int32
	fn, err := NewBlocking[int]("blocking.error", sig, func(args signature.Args) (int, error) {
		n := atomic.AddInt32(&calls, 1)
		if n == 1 {
			return 0, errBoomBlocking
		}
		return int(n), nil
	}, NewConfig[int]().WithTTL(time.Minute))
	require.NoError(t, err)

	_, err = fn(signature.Args{Positional: []any{1}})
	require.ErrorIs(t, err, errBoomBlocking)

	v, err := fn(signature.Args{Positional: []any{1}})
	require.NoError(t, err)
	require.Equal(t, 2, v)
}

func TestNewBlocking_NeverDieServesStaleValueAfterFailures(t *testing.T) {
	defer ResetForTesting[int]()
	sig := signature.MustNew(signature.Param{Name: "a", Kind: signature.Ordinary})

	var calls int32
	fn, err := NewBlocking[int]("blocking.neverdie", sig, func(args signature.Args) (int, error) {
		n := atomic.AddInt32(&calls, 1)
		if n <= 2 {
			return int(n), nil
		}
		return 0, errBoomBlocking
	}, NewConfig[int]().WithTTL(50*time.Millisecond).WithNeverDie())
	require.NoError(t, err)

	v, err := fn(signature.Args{Positional: []any{1}})
	require.NoError(t, err)
	require.Equal(t, 1, v)

	require.Eventually(t, func() bool {
		return atomic.LoadInt32(&calls) > 2
	}, 2*time.Second, 10*time.Millisecond)

	v, err = fn(signature.Args{Positional: []any{1}})
	require.NoError(t, err)
	require.Equal(t, 2, v, "last successful value must keep being served despite failures")
}
