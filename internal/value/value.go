package value

import (
	"slices"
	"unicode/utf16"
)

// Value is a sealed interface over the payload value variants.
// Only Undefined, Null, Bool, Number, String, List, Object, Func and Opaque
// implement it.
type Value interface {
	value() // Sealed - only these types implement it
}

// Undefined represents a missing key. It is never written by decoders; the
// engine produces it when a field is absent from the payload.
type Undefined struct{}

func (Undefined) value() {}

// Null represents an explicit JSON null.
type Null struct{}

func (Null) value() {}

// Bool represents a boolean value.
type Bool bool

func (Bool) value() {}

// Number represents any numeric value. NaN and the infinities are allowed
// and encode as JSON null.
type Number float64

func (Number) value() {}

// String represents a text value.
type String string

func (String) value() {}

// List represents an ordered list of values.
type List []Value

func (List) value() {}

// Object represents a plain mapping of string keys to values.
// Use SortedKeys() for deterministic iteration.
type Object map[string]Value

func (Object) value() {}

// Func represents a callable carried inside a payload.
type Func func(args ...Value) Value

func (Func) value() {}

// Opaque wraps any Go value that has no dedicated variant (dates, byte
// slices, custom structs). It is passed through untouched.
type Opaque struct {
	V any
}

func (Opaque) value() {}

// Pair is a key-value pair for ordered Object construction in tests and
// builtins.
type Pair struct {
	Key   string
	Value Value
}

// P is a shorthand for Pair.
// Example: NewObject(P("name", String("Ann")), P("age", Number(31)))
func P(key string, v Value) Pair {
	return Pair{Key: key, Value: v}
}

// NewObject creates an Object from key-value pairs. Later pairs win.
func NewObject(pairs ...Pair) Object {
	obj := make(Object, len(pairs))
	for _, p := range pairs {
		obj[p.Key] = p.Value
	}
	return obj
}

// NewList creates a List from values.
func NewList(vals ...Value) List {
	return List(vals)
}

// Get returns the value stored under key, or Undefined when absent.
func (obj Object) Get(key string) Value {
	v, ok := obj[key]
	if !ok || v == nil {
		return Undefined{}
	}
	return v
}

// SortedKeys returns keys ordered by UTF-16 code units (RFC 8785).
// Go's default string ordering compares UTF-8 bytes, which differs for
// characters outside the BMP.
func (obj Object) SortedKeys() []string {
	keys := make([]string, 0, len(obj))
	for k := range obj {
		keys = append(keys, k)
	}
	slices.SortFunc(keys, compareKeysUTF16)
	return keys
}

// compareKeysUTF16 compares strings by UTF-16 code units.
func compareKeysUTF16(a, b string) int {
	a16 := utf16.Encode([]rune(a))
	b16 := utf16.Encode([]rune(b))

	n := min(len(a16), len(b16))
	for i := 0; i < n; i++ {
		if a16[i] != b16[i] {
			if a16[i] < b16[i] {
				return -1
			}
			return 1
		}
	}

	switch {
	case len(a16) < len(b16):
		return -1
	case len(a16) > len(b16):
		return 1
	default:
		return 0
	}
}

// Normalize maps a nil Value to Undefined and returns every other value as-is.
func Normalize(v Value) Value {
	if v == nil {
		return Undefined{}
	}
	return v
}
