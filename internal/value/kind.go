package value

import "math"

// Kind is the coarse semantic category of a Value, used to decide emptiness.
type Kind int

const (
	// KindOther covers Undefined, Null, Bool and Opaque.
	KindOther Kind = iota
	KindPlainObject
	KindList
	KindText
	KindNumeric
	KindFunction
)

func (k Kind) String() string {
	switch k {
	case KindPlainObject:
		return "object"
	case KindList:
		return "list"
	case KindText:
		return "text"
	case KindNumeric:
		return "numeric"
	case KindFunction:
		return "function"
	default:
		return "other"
	}
}

// Classify reports the Kind of v. Every value classifies to exactly one Kind;
// a List is never a PlainObject.
func Classify(v Value) Kind {
	switch v.(type) {
	case Object:
		return KindPlainObject
	case List:
		return KindList
	case String:
		return KindText
	case Number:
		return KindNumeric
	case Func:
		return KindFunction
	default:
		return KindOther
	}
}

// Truthy reports JavaScript truthiness: Undefined, Null, false, 0, NaN and ""
// are falsy. Empty lists and objects are truthy, as is every Func, nil or not.
func Truthy(v Value) bool {
	switch val := v.(type) {
	case nil, Undefined, Null:
		return false
	case Bool:
		return bool(val)
	case Number:
		f := float64(val)
		return f != 0 && !math.IsNaN(f)
	case String:
		return val != ""
	default:
		return true
	}
}

// IsEmpty reports whether v should be pruned from an output payload.
// Objects are empty with zero keys, lists with zero length, text and numbers
// when falsy. Functions and Other kinds always count as empty.
func IsEmpty(v Value) bool {
	switch Classify(v) {
	case KindPlainObject:
		return len(v.(Object)) == 0
	case KindList:
		return len(v.(List)) == 0
	case KindText, KindNumeric:
		return !Truthy(v)
	default:
		return true
	}
}
