package rulespec

import (
	"fmt"
	"math"
	"net/mail"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"

	"github.com/roach88/paramx/internal/transform"
	"github.com/roach88/paramx/internal/value"
)

type reducerFactory func(args []value.Value) (transform.Reducer, error)

type validatorFactory func(args []value.Value) (transform.Validator, error)

// Reducers that take no arguments map text to text and pass every other kind
// through untouched.
var reducers = map[string]reducerFactory{
	"trim":      textReducer(strings.TrimSpace),
	"lower":     textReducer(func(s string) string { return cases.Lower(language.Und).String(s) }),
	"upper":     textReducer(func(s string) string { return cases.Upper(language.Und).String(s) }),
	"title":     textReducer(func(s string) string { return cases.Title(language.Und).String(s) }),
	"nfc":       textReducer(norm.NFC.String),
	"to_string": noArgs(toStringReducer),
	"to_number": noArgs(toNumberReducer),
	"to_bool":   noArgs(toBoolReducer),
	"compact":   noArgs(compactReducer),
	"original":  noArgs(func(_, original value.Value) value.Value { return original }),
	"default":   defaultReducer,
	"split":     splitReducer,
	"join":      joinReducer,
	"truncate":  truncateReducer,
}

var validators = map[string]validatorFactory{
	"non_empty":  noArgsValidator(func(v value.Value) bool { return !value.IsEmpty(v) }),
	"is_string":  noArgsValidator(isKind[value.String]),
	"is_number":  noArgsValidator(isKind[value.Number]),
	"is_bool":    noArgsValidator(isKind[value.Bool]),
	"is_list":    noArgsValidator(isKind[value.List]),
	"is_object":  noArgsValidator(isKind[value.Object]),
	"email":      noArgsValidator(isEmail),
	"min_length": minLengthValidator,
	"max_length": maxLengthValidator,
	"one_of":     oneOfValidator,
	"pattern":    patternValidator,
	"range":      rangeValidator,
}

// ReducerNames returns the builtin reducer names in lexical order.
func ReducerNames() []string {
	return sortedNames(reducers)
}

// ValidatorNames returns the builtin validator names in lexical order.
func ValidatorNames() []string {
	return sortedNames(validators)
}

func sortedNames[F any](m map[string]F) []string {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Builtin returns the reducer registered under name, applied to args.
func Builtin(name string, args ...value.Value) (transform.Reducer, error) {
	f, ok := reducers[name]
	if !ok {
		return nil, fmt.Errorf("unknown reducer %q", name)
	}
	return f(args)
}

// BuiltinValidator returns the validator registered under name, applied to args.
func BuiltinValidator(name string, args ...value.Value) (transform.Validator, error) {
	f, ok := validators[name]
	if !ok {
		return nil, fmt.Errorf("unknown validator %q", name)
	}
	return f(args)
}

func noArgs(fn func(acc, original value.Value) value.Value) reducerFactory {
	return func(args []value.Value) (transform.Reducer, error) {
		if len(args) != 0 {
			return nil, fmt.Errorf("takes no arguments, got %d", len(args))
		}
		return transform.Pure(fn), nil
	}
}

func textReducer(fn func(string) string) reducerFactory {
	return noArgs(func(acc, _ value.Value) value.Value {
		if s, ok := acc.(value.String); ok {
			return value.String(fn(string(s)))
		}
		return acc
	})
}

func toStringReducer(acc, _ value.Value) value.Value {
	switch v := acc.(type) {
	case value.String:
		return v
	case value.Number:
		return value.String(formatNumber(float64(v)))
	case value.Bool:
		return value.String(strconv.FormatBool(bool(v)))
	default:
		return acc
	}
}

// formatNumber renders integral values without a fraction or exponent.
func formatNumber(f float64) string {
	if f == math.Trunc(f) && math.Abs(f) < 1e21 {
		return strconv.FormatFloat(f, 'f', -1, 64)
	}
	return strconv.FormatFloat(f, 'g', -1, 64)
}

// toNumberReducer parses text as a decimal number. Unparseable text becomes
// NaN, which is falsy and therefore pruned unless the rule keeps it. A kept
// NaN encodes as JSON null.
func toNumberReducer(acc, _ value.Value) value.Value {
	switch v := acc.(type) {
	case value.Number:
		return v
	case value.String:
		s := strings.TrimSpace(string(v))
		if s == "" {
			return value.Number(0)
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return value.Number(math.NaN())
		}
		return value.Number(f)
	case value.Bool:
		if v {
			return value.Number(1)
		}
		return value.Number(0)
	default:
		return acc
	}
}

func toBoolReducer(acc, _ value.Value) value.Value {
	switch v := acc.(type) {
	case value.Undefined:
		return v
	case value.String:
		if b, err := strconv.ParseBool(strings.TrimSpace(string(v))); err == nil {
			return value.Bool(b)
		}
	}
	return value.Bool(value.Truthy(acc))
}

// compactReducer drops null and undefined entries from lists and objects.
func compactReducer(acc, _ value.Value) value.Value {
	switch v := acc.(type) {
	case value.List:
		out := make(value.List, 0, len(v))
		for _, elem := range v {
			if !isNullish(elem) {
				out = append(out, elem)
			}
		}
		return out
	case value.Object:
		out := make(value.Object, len(v))
		for k, elem := range v {
			if !isNullish(elem) {
				out[k] = elem
			}
		}
		return out
	default:
		return acc
	}
}

func isNullish(v value.Value) bool {
	switch v.(type) {
	case nil, value.Undefined, value.Null:
		return true
	}
	return false
}

func defaultReducer(args []value.Value) (transform.Reducer, error) {
	if len(args) != 1 {
		return nil, fmt.Errorf("default takes 1 argument, got %d", len(args))
	}
	fallback := args[0]
	return transform.Pure(func(acc, _ value.Value) value.Value {
		if s, ok := acc.(value.String); ok && s == "" {
			return fallback
		}
		if isNullish(acc) {
			return fallback
		}
		return acc
	}), nil
}

func splitReducer(args []value.Value) (transform.Reducer, error) {
	sep, err := stringArg("split", args)
	if err != nil {
		return nil, err
	}
	return transform.Pure(func(acc, _ value.Value) value.Value {
		s, ok := acc.(value.String)
		if !ok {
			return acc
		}
		if s == "" {
			return value.List{}
		}
		parts := strings.Split(string(s), sep)
		out := make(value.List, len(parts))
		for i, p := range parts {
			out[i] = value.String(p)
		}
		return out
	}), nil
}

func joinReducer(args []value.Value) (transform.Reducer, error) {
	sep, err := stringArg("join", args)
	if err != nil {
		return nil, err
	}
	return func(acc, _ value.Value) (value.Value, error) {
		l, ok := acc.(value.List)
		if !ok {
			return acc, nil
		}
		parts := make([]string, len(l))
		for i, elem := range l {
			s, ok := toStringReducer(elem, elem).(value.String)
			if !ok {
				return nil, fmt.Errorf("join: element %d is %s, not a scalar", i, value.Classify(elem))
			}
			parts[i] = string(s)
		}
		return value.String(strings.Join(parts, sep)), nil
	}, nil
}

func truncateReducer(args []value.Value) (transform.Reducer, error) {
	n, err := lengthArg("truncate", args)
	if err != nil {
		return nil, err
	}
	return transform.Pure(func(acc, _ value.Value) value.Value {
		switch v := acc.(type) {
		case value.String:
			if utf8.RuneCountInString(string(v)) <= n {
				return v
			}
			return value.String([]rune(string(v))[:n])
		case value.List:
			if len(v) <= n {
				return v
			}
			return v[:n:n]
		default:
			return acc
		}
	}), nil
}

func noArgsValidator(fn transform.Validator) validatorFactory {
	return func(args []value.Value) (transform.Validator, error) {
		if len(args) != 0 {
			return nil, fmt.Errorf("takes no arguments, got %d", len(args))
		}
		return fn, nil
	}
}

func isKind[T value.Value](v value.Value) bool {
	_, ok := v.(T)
	return ok
}

// isEmail accepts a bare address. Display names ("Ann <a@b.c>") are rejected.
func isEmail(v value.Value) bool {
	s, ok := v.(value.String)
	if !ok {
		return false
	}
	addr, err := mail.ParseAddress(string(s))
	return err == nil && addr.Address == string(s)
}

// length returns the rune count of text or the size of a list or object.
func length(v value.Value) (int, bool) {
	switch val := v.(type) {
	case value.String:
		return utf8.RuneCountInString(string(val)), true
	case value.List:
		return len(val), true
	case value.Object:
		return len(val), true
	default:
		return 0, false
	}
}

func minLengthValidator(args []value.Value) (transform.Validator, error) {
	n, err := lengthArg("min_length", args)
	if err != nil {
		return nil, err
	}
	return func(v value.Value) bool {
		l, ok := length(v)
		return ok && l >= n
	}, nil
}

func maxLengthValidator(args []value.Value) (transform.Validator, error) {
	n, err := lengthArg("max_length", args)
	if err != nil {
		return nil, err
	}
	return func(v value.Value) bool {
		l, ok := length(v)
		return ok && l <= n
	}, nil
}

func oneOfValidator(args []value.Value) (transform.Validator, error) {
	if len(args) == 0 {
		return nil, fmt.Errorf("one_of takes at least 1 argument")
	}
	allowed := append([]value.Value(nil), args...)
	return func(v value.Value) bool {
		for _, a := range allowed {
			if value.Equal(a, v) {
				return true
			}
		}
		return false
	}, nil
}

func patternValidator(args []value.Value) (transform.Validator, error) {
	src, err := stringArg("pattern", args)
	if err != nil {
		return nil, err
	}
	re, err := regexp.Compile(src)
	if err != nil {
		return nil, fmt.Errorf("pattern: %w", err)
	}
	return func(v value.Value) bool {
		s, ok := v.(value.String)
		return ok && re.MatchString(string(s))
	}, nil
}

func rangeValidator(args []value.Value) (transform.Validator, error) {
	if len(args) != 2 {
		return nil, fmt.Errorf("range takes 2 arguments, got %d", len(args))
	}
	lo, okLo := args[0].(value.Number)
	hi, okHi := args[1].(value.Number)
	if !okLo || !okHi {
		return nil, fmt.Errorf("range bounds must be numbers")
	}
	if lo > hi {
		return nil, fmt.Errorf("range minimum %v exceeds maximum %v", lo, hi)
	}
	return func(v value.Value) bool {
		n, ok := v.(value.Number)
		return ok && n >= lo && n <= hi
	}, nil
}

func stringArg(name string, args []value.Value) (string, error) {
	if len(args) != 1 {
		return "", fmt.Errorf("%s takes 1 argument, got %d", name, len(args))
	}
	s, ok := args[0].(value.String)
	if !ok {
		return "", fmt.Errorf("%s argument must be a string, got %s", name, value.Classify(args[0]))
	}
	return string(s), nil
}

// maxLengthArg bounds length arguments so they convert to int on every
// platform.
const maxLengthArg = math.MaxInt32

func lengthArg(name string, args []value.Value) (int, error) {
	if len(args) != 1 {
		return 0, fmt.Errorf("%s takes 1 argument, got %d", name, len(args))
	}
	n, ok := args[0].(value.Number)
	if !ok || n < 0 || n > maxLengthArg || float64(n) != math.Trunc(float64(n)) {
		return 0, fmt.Errorf("%s argument must be an integer from 0 to %d", name, maxLengthArg)
	}
	return int(n), nil
}
