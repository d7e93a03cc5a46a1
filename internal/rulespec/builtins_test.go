package rulespec

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/paramx/internal/value"
)

func applyReducer(t *testing.T, name string, in value.Value, args ...value.Value) value.Value {
	t.Helper()
	r, err := Builtin(name, args...)
	require.NoError(t, err)
	out, err := r(in, in)
	require.NoError(t, err)
	return out
}

func TestBuiltinReducers(t *testing.T) {
	tests := []struct {
		name string
		fn   string
		args []value.Value
		in   value.Value
		want value.Value
	}{
		{"trim", "trim", nil, value.String("  a b  "), value.String("a b")},
		{"trim passes numbers", "trim", nil, value.Number(3), value.Number(3)},
		{"lower", "lower", nil, value.String("ÀBC"), value.String("àbc")},
		{"upper", "upper", nil, value.String("straße"), value.String("STRASSE")},
		{"title", "title", nil, value.String("ann lee"), value.String("Ann Lee")},
		{"nfc", "nfc", nil, value.String("e\u0301"), value.String("\u00e9")},
		{"to_string integer", "to_string", nil, value.Number(42), value.String("42")},
		{"to_string fraction", "to_string", nil, value.Number(1.5), value.String("1.5")},
		{"to_string bool", "to_string", nil, value.Bool(true), value.String("true")},
		{"to_string leaves undefined", "to_string", nil, value.Undefined{}, value.Undefined{}},
		{"to_number", "to_number", nil, value.String(" 12.5 "), value.Number(12.5)},
		{"to_number empty", "to_number", nil, value.String(""), value.Number(0)},
		{"to_number bool", "to_number", nil, value.Bool(true), value.Number(1)},
		{"to_bool text", "to_bool", nil, value.String("false"), value.Bool(false)},
		{"to_bool truthy", "to_bool", nil, value.String("yes"), value.Bool(true)},
		{"to_bool zero", "to_bool", nil, value.Number(0), value.Bool(false)},
		{"to_bool keeps undefined", "to_bool", nil, value.Undefined{}, value.Undefined{}},
		{"compact list", "compact", nil,
			value.List{value.Number(1), value.Null{}, value.String(""), value.Undefined{}},
			value.List{value.Number(1), value.String("")}},
		{"compact object", "compact", nil,
			value.Object{"a": value.Null{}, "b": value.Number(0)},
			value.Object{"b": value.Number(0)}},
		{"default on undefined", "default", []value.Value{value.String("x")}, value.Undefined{}, value.String("x")},
		{"default on empty text", "default", []value.Value{value.Number(0)}, value.String(""), value.Number(0)},
		{"default keeps value", "default", []value.Value{value.String("x")}, value.String("y"), value.String("y")},
		{"split", "split", []value.Value{value.String(",")}, value.String("a,b"), value.List{value.String("a"), value.String("b")}},
		{"split empty", "split", []value.Value{value.String(",")}, value.String(""), value.List{}},
		{"join", "join", []value.Value{value.String("-")}, value.List{value.String("a"), value.Number(1), value.Bool(false)}, value.String("a-1-false")},
		{"truncate text", "truncate", []value.Value{value.Number(2)}, value.String("héllo"), value.String("hé")},
		{"truncate short text", "truncate", []value.Value{value.Number(9)}, value.String("hi"), value.String("hi")},
		{"truncate list", "truncate", []value.Value{value.Number(1)}, value.List{value.Number(1), value.Number(2)}, value.List{value.Number(1)}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := applyReducer(t, tt.fn, tt.in, tt.args...)
			assert.True(t, value.Equal(tt.want, got), "want %#v, got %#v", tt.want, got)
		})
	}
}

func TestToNumberUnparseableIsNaN(t *testing.T) {
	got := applyReducer(t, "to_number", value.String("twelve"))
	n, ok := got.(value.Number)
	require.True(t, ok)
	assert.True(t, math.IsNaN(float64(n)))
}

func TestOriginalReducerResetsAccumulator(t *testing.T) {
	r, err := Builtin("original")
	require.NoError(t, err)
	out, err := r(value.String("changed"), value.String("first"))
	require.NoError(t, err)
	assert.Equal(t, value.String("first"), out)
}

func TestJoinRejectsNestedElements(t *testing.T) {
	r, err := Builtin("join", value.String(","))
	require.NoError(t, err)
	_, err = r(value.List{value.Object{}}, nil)
	assert.Error(t, err)
}

func TestBuiltinArgumentErrors(t *testing.T) {
	_, err := Builtin("trim", value.String("x"))
	assert.ErrorContains(t, err, "takes no arguments")

	_, err = Builtin("default")
	assert.ErrorContains(t, err, "takes 1 argument")

	_, err = Builtin("split", value.Number(1))
	assert.ErrorContains(t, err, "must be a string")

	_, err = Builtin("truncate", value.Number(-1))
	assert.ErrorContains(t, err, "must be an integer from 0 to")

	for _, n := range []float64{1e19, math.Inf(1), math.NaN(), 1.5} {
		_, err = Builtin("truncate", value.Number(n))
		assert.ErrorContains(t, err, "must be an integer from 0 to", "truncate(%v)", n)

		_, err = BuiltinValidator("min_length", value.Number(n))
		assert.ErrorContains(t, err, "must be an integer from 0 to", "min_length(%v)", n)

		_, err = BuiltinValidator("max_length", value.Number(n))
		assert.ErrorContains(t, err, "must be an integer from 0 to", "max_length(%v)", n)
	}

	_, err = Builtin("nope")
	assert.ErrorContains(t, err, "unknown reducer")

	_, err = BuiltinValidator("range", value.Number(5), value.Number(1))
	assert.ErrorContains(t, err, "exceeds maximum")

	_, err = BuiltinValidator("pattern", value.String("("))
	assert.Error(t, err)

	_, err = BuiltinValidator("one_of")
	assert.Error(t, err)

	_, err = BuiltinValidator("nope")
	assert.ErrorContains(t, err, "unknown validator")
}

func TestBuiltinValidators(t *testing.T) {
	tests := []struct {
		name string
		fn   string
		args []value.Value
		in   value.Value
		want bool
	}{
		{"non_empty text", "non_empty", nil, value.String("a"), true},
		{"non_empty empty list", "non_empty", nil, value.List{}, false},
		{"is_string", "is_string", nil, value.String(""), true},
		{"is_string number", "is_string", nil, value.Number(1), false},
		{"is_number", "is_number", nil, value.Number(0), true},
		{"is_bool", "is_bool", nil, value.Bool(false), true},
		{"is_list", "is_list", nil, value.List{}, true},
		{"is_object", "is_object", nil, value.Object{}, true},
		{"is_object list", "is_object", nil, value.List{}, false},
		{"email", "email", nil, value.String("ann@example.com"), true},
		{"email display name", "email", nil, value.String("Ann <ann@example.com>"), false},
		{"email garbage", "email", nil, value.String("ann"), false},
		{"min_length", "min_length", []value.Value{value.Number(2)}, value.String("ab"), true},
		{"min_length short", "min_length", []value.Value{value.Number(2)}, value.String("é"), false},
		{"max_length list", "max_length", []value.Value{value.Number(1)}, value.List{value.Number(1), value.Number(2)}, false},
		{"max_length number", "max_length", []value.Value{value.Number(1)}, value.Number(1), false},
		{"one_of", "one_of", []value.Value{value.String("a"), value.Number(1)}, value.Number(1), true},
		{"one_of miss", "one_of", []value.Value{value.String("a")}, value.String("b"), false},
		{"pattern", "pattern", []value.Value{value.String(`^\d{3}$`)}, value.String("123"), true},
		{"pattern non-text", "pattern", []value.Value{value.String(`.*`)}, value.Number(1), false},
		{"range inside", "range", []value.Value{value.Number(1), value.Number(10)}, value.Number(10), true},
		{"range outside", "range", []value.Value{value.Number(1), value.Number(10)}, value.Number(11), false},
		{"range text", "range", []value.Value{value.Number(1), value.Number(10)}, value.String("5"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fn, err := BuiltinValidator(tt.fn, tt.args...)
			require.NoError(t, err)
			assert.Equal(t, tt.want, fn(tt.in))
		})
	}
}

func TestBuiltinNames(t *testing.T) {
	assert.Contains(t, ReducerNames(), "trim")
	assert.Contains(t, ReducerNames(), "truncate")
	assert.Contains(t, ValidatorNames(), "email")
	assert.IsIncreasing(t, ValidatorNames())
}
