// Package fingerprint implements spec.md component A: deriving a stable
// string key from a callable's signature, its positional/keyword
// arguments, an optional user key function, and an ignore-list.
//
// Grounded on osmike-fcache/internal/lib/keygen.BuildKey (canonicalize a
// value, hash if the canonical form is long), reworked to consume an
// ordered signature.Binding instead of reflecting over one arbitrary
// value, and hashed with xxhash (pkg/sharded's hash function) rather than
// SHA-256 — a fingerprint has no adversarial model, so a fast
// non-cryptographic hash is the right tool, and it is already in the
// module's dependency graph via the Prometheus client.
package fingerprint

import (
	"encoding/json"
	"fmt"
	"reflect"
	"strings"

	"github.com/cespare/xxhash/v2"

	"github.com/go-memoize/memoize/pkg/merrors"
	"github.com/go-memoize/memoize/pkg/signature"
)

// KeyFunc replaces the default signature-binding fingerprint. It receives
// the same arguments the wrapped callable would and must return a
// hashable value (anything whose Go representation is comparable, or that
// marshals deterministically to JSON — see isHashable).
type KeyFunc func(args signature.Args) (any, error)

// Config is the caller-time (decoration-time) configuration for Build. It
// is validated once, at decoration, by Validate — not on every call.
type Config struct {
	KeyFunc      KeyFunc
	IgnoreFields []string
}

// Validate enforces spec §4.A's decoration-time precondition: KeyFunc and
// IgnoreFields are mutually exclusive.
func (c Config) Validate() error {
	if c.KeyFunc != nil && len(c.IgnoreFields) > 0 {
		return fmt.Errorf("%w: key_function and ignore_fields are mutually exclusive", merrors.ErrBadConfig)
	}
	return nil
}

// Build computes the fingerprint for one invocation.
//
//   - If cfg.KeyFunc is set, it is called with args and its return value is
//     hashed; a non-hashable return value fails with ErrBadKeyFunction.
//   - Otherwise sig.BindPartial resolves args against the signature
//     (applying defaults for omitted parameters), entries named in
//     cfg.IgnoreFields are dropped, and the remaining ordered tuple is
//     hashed.
func Build(sig *signature.Signature, cfg Config, args signature.Args) (string, error) {
	if cfg.KeyFunc != nil {
		v, err := cfg.KeyFunc(args)
		if err != nil {
			return "", err
		}
		if !isHashable(v) {
			return "", fmt.Errorf("%w: %T", merrors.ErrBadKeyFunction, v)
		}
		return hashOne(v), nil
	}

	binding, err := sig.BindPartial(args)
	if err != nil {
		return "", err
	}

	ignore := make(map[string]struct{}, len(cfg.IgnoreFields))
	for _, name := range cfg.IgnoreFields {
		ignore[name] = struct{}{}
	}

	var b strings.Builder
	for _, entry := range binding.Entries {
		if entry.Name != "" {
			if _, skip := ignore[entry.Name]; skip {
				continue
			}
		}
		b.WriteString(entry.Name)
		b.WriteByte('\x00')
		b.WriteString(canonicalize(entry.Value))
		b.WriteByte('\x1f')
	}

	return hashString(b.String()), nil
}

// isHashable reports whether v can stand in as a cache key. Function and
// channel values are rejected, as are maps and slices that do not marshal
// to JSON (for example, a slice of functions). Every other value, including
// structs, arrays and pointers, is accepted without inspecting what it
// contains.
func isHashable(v any) bool {
	if v == nil {
		return true
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Func, reflect.Chan:
		return false
	case reflect.Map, reflect.Slice:
		_, err := json.Marshal(v)
		return err == nil
	default:
		return true
	}
}

func hashOne(v any) string {
	return canonicalHash(canonicalize(v))
}

func hashString(s string) string {
	return canonicalHash(s)
}

func canonicalHash(s string) string {
	return fmt.Sprintf("%016x", xxhash.Sum64String(s))
}

// canonicalize renders a value deterministically for hashing. Comparable
// scalars print directly; everything else goes through JSON (maps are
// marshaled with sorted keys by encoding/json already), matching
// osmike-fcache's keygen.encodeComplex strategy.
func canonicalize(v any) string {
	switch val := v.(type) {
	case nil:
		return "nil"
	case string:
		return "s:" + val
	case fmt.Stringer:
		return "s:" + val.String()
	default:
		rv := reflect.ValueOf(v)
		switch rv.Kind() {
		case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
			reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
			reflect.Float32, reflect.Float64, reflect.Bool:
			return fmt.Sprint(val)
		default:
			data, err := json.Marshal(val)
			if err != nil {
				return fmt.Sprintf("%#v", val)
			}
			return string(data)
		}
	}
}
