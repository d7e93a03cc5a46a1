package value

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"
)

// FromAny converts a decoded Go value (JSON, YAML or CEL native output) into a
// Value. Unknown Go types become Opaque rather than failing; the only error is
// a map with non-string keys.
func FromAny(v any) (Value, error) {
	switch val := v.(type) {
	case nil:
		return Null{}, nil
	case Value:
		return val, nil
	case bool:
		return Bool(val), nil
	case string:
		return String(val), nil
	case int:
		return Number(val), nil
	case int8:
		return Number(val), nil
	case int16:
		return Number(val), nil
	case int32:
		return Number(val), nil
	case int64:
		return Number(val), nil
	case uint:
		return Number(val), nil
	case uint8:
		return Number(val), nil
	case uint16:
		return Number(val), nil
	case uint32:
		return Number(val), nil
	case uint64:
		return Number(val), nil
	case float32:
		return Number(val), nil
	case float64:
		return Number(val), nil
	case json.Number:
		f, err := val.Float64()
		if err != nil {
			return nil, fmt.Errorf("number %q: %w", val.String(), err)
		}
		return Number(f), nil
	case []any:
		list := make(List, len(val))
		for i, elem := range val {
			item, err := FromAny(elem)
			if err != nil {
				return nil, fmt.Errorf("list[%d]: %w", i, err)
			}
			list[i] = item
		}
		return list, nil
	case map[string]any:
		obj := make(Object, len(val))
		for k, elem := range val {
			item, err := FromAny(elem)
			if err != nil {
				return nil, fmt.Errorf("object[%q]: %w", k, err)
			}
			obj[k] = item
		}
		return obj, nil
	case map[any]any:
		obj := make(Object, len(val))
		for k, elem := range val {
			key, ok := k.(string)
			if !ok {
				return nil, fmt.Errorf("object key %v: keys must be strings, got %T", k, k)
			}
			item, err := FromAny(elem)
			if err != nil {
				return nil, fmt.Errorf("object[%q]: %w", key, err)
			}
			obj[key] = item
		}
		return obj, nil
	case func(args ...Value) Value:
		return Func(val), nil
	default:
		return Opaque{V: v}, nil
	}
}

// ObjectFromMap converts a decoded map into an Object.
// A nil map yields a nil Object so callers can still detect a missing payload.
func ObjectFromMap(m map[string]any) (Object, error) {
	if m == nil {
		return nil, nil
	}
	v, err := FromAny(m)
	if err != nil {
		return nil, err
	}
	return v.(Object), nil
}

// ToNative converts a Value into plain Go values: nil, bool, int64 (integral
// numbers), float64, string, []any and map[string]any. Func and Opaque are
// returned as their underlying Go values.
func ToNative(v Value) any {
	switch val := v.(type) {
	case nil, Undefined, Null:
		return nil
	case Bool:
		return bool(val)
	case Number:
		f := float64(val)
		if f == math.Trunc(f) && !math.IsInf(f, 0) && math.Abs(f) <= 1<<53 {
			return int64(f)
		}
		return f
	case String:
		return string(val)
	case List:
		out := make([]any, len(val))
		for i, elem := range val {
			out[i] = ToNative(elem)
		}
		return out
	case Object:
		out := make(map[string]any, len(val))
		for k, elem := range val {
			if _, undefined := elem.(Undefined); undefined {
				continue
			}
			out[k] = ToNative(elem)
		}
		return out
	case Func:
		return val
	case Opaque:
		return val.V
	default:
		return nil
	}
}

// Equal reports deep equality between two values. Func values are never
// equal to anything; NaN is equal to NaN so idempotence checks hold.
func Equal(a, b Value) bool {
	a, b = Normalize(a), Normalize(b)
	switch av := a.(type) {
	case Undefined:
		_, ok := b.(Undefined)
		return ok
	case Null:
		_, ok := b.(Null)
		return ok
	case Bool:
		bv, ok := b.(Bool)
		return ok && av == bv
	case Number:
		bv, ok := b.(Number)
		if !ok {
			return false
		}
		if math.IsNaN(float64(av)) && math.IsNaN(float64(bv)) {
			return true
		}
		return av == bv
	case String:
		bv, ok := b.(String)
		return ok && av == bv
	case List:
		bv, ok := b.(List)
		if !ok || len(av) != len(bv) {
			return false
		}
		for i := range av {
			if !Equal(av[i], bv[i]) {
				return false
			}
		}
		return true
	case Object:
		bv, ok := b.(Object)
		if !ok || len(av) != len(bv) {
			return false
		}
		for k, elem := range av {
			other, exists := bv[k]
			if !exists || !Equal(elem, other) {
				return false
			}
		}
		return true
	case Opaque:
		bv, ok := b.(Opaque)
		return ok && fmt.Sprint(av.V) == fmt.Sprint(bv.V)
	default:
		return false
	}
}

// Keys returns the keys of obj in lexical order. Used where a stable,
// human-readable order is enough and canonical ordering is not required.
func (obj Object) Keys() []string {
	keys := make([]string, 0, len(obj))
	for k := range obj {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
