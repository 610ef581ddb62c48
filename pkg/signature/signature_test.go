package signature

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBindPartial_OrdinaryPositionalAndKeywordAreEquivalent(t *testing.T) {
	sig := MustNew(
		Param{Name: "a", Kind: Ordinary},
		Param{Name: "b", Kind: Ordinary},
	)

	byPosition, err := sig.BindPartial(Args{Positional: []any{1, 2}})
	require.NoError(t, err)

	byKeyword, err := sig.BindPartial(Args{Keyword: map[string]any{"a": 1, "b": 2}})
	require.NoError(t, err)

	require.Equal(t, byPosition, byKeyword)
	require.Equal(t, []Entry{{Name: "a", Value: 1}, {Name: "b", Value: 2}}, byPosition.Entries)
}

func TestBindPartial_DefaultsFillOmittedParameters(t *testing.T) {
	sig := MustNew(
		Param{Name: "a", Kind: Ordinary},
		Param{Name: "b", Kind: Ordinary, Default: 99, HasDefault: true},
	)

	got, err := sig.BindPartial(Args{Positional: []any{1}})
	require.NoError(t, err)
	require.Equal(t, []Entry{{Name: "a", Value: 1}, {Name: "b", Value: 99}}, got.Entries)
}

func TestBindPartial_MissingRequiredParameter(t *testing.T) {
	sig := MustNew(Param{Name: "a", Kind: Ordinary})

	_, err := sig.BindPartial(Args{})
	require.Error(t, err)
}

func TestBindPartial_VarPositionalCollectsUnnamed(t *testing.T) {
	sig := MustNew(
		Param{Name: "a", Kind: Ordinary},
		Param{Name: "rest", Kind: VarPositional},
	)

	got, err := sig.BindPartial(Args{Positional: []any{1, 2, 3}})
	require.NoError(t, err)
	require.Equal(t, []Entry{
		{Name: "a", Value: 1},
		{Value: 2},
		{Value: 3},
	}, got.Entries)
}

func TestBindPartial_VarKeywordCollectsNamedAndIsSortedStably(t *testing.T) {
	sig := MustNew(
		Param{Name: "a", Kind: Ordinary},
		Param{Name: "kwargs", Kind: VarKeyword},
	)

	got, err := sig.BindPartial(Args{
		Positional: []any{1},
		Keyword:    map[string]any{"z": 26, "a2": 1},
	})
	require.NoError(t, err)
	require.Equal(t, []Entry{
		{Name: "a", Value: 1},
		{Name: "a2", Value: 1},
		{Name: "z", Value: 26},
	}, got.Entries)
}

func TestBindPartial_ExtraPositionalWithoutVariadicIsError(t *testing.T) {
	sig := MustNew(Param{Name: "a", Kind: Ordinary})

	_, err := sig.BindPartial(Args{Positional: []any{1, 2}})
	require.Error(t, err)
}

func TestBindPartial_UnexpectedKeywordWithoutVariadicIsError(t *testing.T) {
	sig := MustNew(Param{Name: "a", Kind: Ordinary})

	_, err := sig.BindPartial(Args{Positional: []any{1}, Keyword: map[string]any{"b": 2}})
	require.Error(t, err)
}

func TestNew_RejectsMisplacedVariadicParameters(t *testing.T) {
	_, err := New(
		Param{Name: "kwargs", Kind: VarKeyword},
		Param{Name: "rest", Kind: VarPositional},
	)
	require.Error(t, err)

	_, err = New(
		Param{Name: "a", Kind: VarPositional},
		Param{Name: "b", Kind: VarPositional},
	)
	require.Error(t, err)
}
