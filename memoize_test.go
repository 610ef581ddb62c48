package memoize

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/go-memoize/memoize/pkg/signature"
)

func TestEngineFor_ReturnsSameInstanceForSameType(t *testing.T) {
	defer ResetForTesting[int]()
	require.Same(t, engineFor[int](), engineFor[int]())
}

func TestEngineFor_InitializesStoreForEachType(t *testing.T) {
	defer ResetForTesting[int]()
	defer ResetForTesting[string]()

	intEngine := engineFor[int]()
	stringEngine := engineFor[string]()

	require.NotNil(t, intEngine.store)
	require.NotNil(t, stringEngine.store)
}

func TestResetForTesting_ClearsStoreAndStopsBackgroundWork(t *testing.T) {
	sig := signature.MustNew(signature.Param{Name: "a", Kind: signature.Ordinary})

	var calls int32
	fn, err := NewBlocking[int]("reset.test", sig, func(args signature.Args) (int, error) {
		return int(atomic.AddInt32(&calls, 1)), nil
	}, NewConfig[int]().WithTTL(time.Minute).WithNeverDie())
	require.NoError(t, err)

	_, err = fn(signature.Args{Positional: []any{1}})
	require.NoError(t, err)
	require.Equal(t, int32(1), atomic.LoadInt32(&calls))

	ResetForTesting[int]()
	require.Nil(t, engineFor[int]().supervisorVal, "reset must stop and discard the never-die supervisor")

	_, err = fn(signature.Args{Positional: []any{1}})
	require.NoError(t, err)
	require.Equal(t, int32(2), atomic.LoadInt32(&calls), "reset must drop the cached entry")
}
