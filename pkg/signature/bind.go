package signature

import (
	"fmt"
	"sort"
)

// Args is a bound invocation's raw inputs: positional values in call order,
// plus keyword values by parameter name — the Go rendition of a Python
// call's (*args, **kwargs).
type Args struct {
	Positional []any
	Keyword    map[string]any
}

// Entry is one resolved item out of a Binding: a named (name, value) pair
// for ordinary and variadic-keyword parameters, or an unnamed value for
// each element collected by the variadic positional parameter — exactly
// spec.md §4.A's enumeration.
type Entry struct {
	Name  string // empty for variadic-positional elements
	Value any
}

// Binding is the ordered result of Signature.BindPartial: one Entry per
// contributed value, in signature order, with declared defaults already
// substituted for parameters the caller omitted.
type Binding struct {
	Entries []Entry
}

// BindPartial partially binds args against the signature: ordinary
// parameters are matched positionally first, then by keyword; omitted
// ordinary parameters receive their declared default; the variadic
// positional parameter (if any) collects leftover positional arguments;
// the variadic keyword parameter (if any) collects leftover keyword
// arguments. Errors if a required parameter (no default, not variadic) is
// left unbound, or if a positional argument has nowhere to go.
func (s *Signature) BindPartial(args Args) (Binding, error) {
	var binding Binding

	positional := args.Positional
	keyword := make(map[string]any, len(args.Keyword))
	for k, v := range args.Keyword {
		keyword[k] = v
	}

	posIdx := 0
	for _, p := range s.Params {
		switch p.Kind {
		case Ordinary:
			if posIdx < len(positional) {
				binding.Entries = append(binding.Entries, Entry{Name: p.Name, Value: positional[posIdx]})
				posIdx++
				continue
			}
			if v, ok := keyword[p.Name]; ok {
				binding.Entries = append(binding.Entries, Entry{Name: p.Name, Value: v})
				delete(keyword, p.Name)
				continue
			}
			if p.HasDefault {
				binding.Entries = append(binding.Entries, Entry{Name: p.Name, Value: p.Default})
				continue
			}
			return Binding{}, fmt.Errorf("signature: missing value for required parameter %q", p.Name)

		case VarPositional:
			for ; posIdx < len(positional); posIdx++ {
				binding.Entries = append(binding.Entries, Entry{Value: positional[posIdx]})
			}

		case VarKeyword:
			// Map iteration order is randomized per Go process; the
			// variadic-keyword entries must come out in a stable order so
			// that the fingerprint builder (pkg/fingerprint) is
			// deterministic across calls within the same process. Sorting
			// by name is the binder-defined order referenced in spec §4.A.
			names := make([]string, 0, len(keyword))
			for k := range keyword {
				names = append(names, k)
			}
			sort.Strings(names)
			for _, k := range names {
				binding.Entries = append(binding.Entries, Entry{Name: k, Value: keyword[k]})
				delete(keyword, k)
			}
		}
	}

	if posIdx < len(positional) {
		return Binding{}, fmt.Errorf("signature: %d extra positional argument(s) with no variadic parameter to collect them", len(positional)-posIdx)
	}
	if len(keyword) > 0 {
		for k := range keyword {
			return Binding{}, fmt.Errorf("signature: unexpected keyword argument %q", k)
		}
	}

	return binding, nil
}
