package transform

import (
	"fmt"
	"slices"

	"github.com/roach88/paramx/internal/value"
)

// Reducer derives a new value from the accumulator. The second argument is
// always the original, pre-reduction payload value.
type Reducer func(acc, original value.Value) (value.Value, error)

// Validator reports whether a reduced value is acceptable.
type Validator func(v value.Value) bool

// Pure adapts an infallible reducer function.
func Pure(fn func(acc, original value.Value) value.Value) Reducer {
	return func(acc, original value.Value) (value.Value, error) {
		return fn(acc, original), nil
	}
}

// FieldRule describes how one input field becomes one output field.
type FieldRule struct {
	// InputKey is the payload field read by this rule.
	InputKey string

	// OutputKey is the name written to the output payload.
	OutputKey string

	// Reducers run left to right. Empty means pass-through.
	Reducers []Reducer

	// Validator is checked after reduction. Optional.
	Validator Validator

	// ValidationFailureMessage is required when Validator is set.
	ValidationFailureMessage string

	// AlwaysInclude bypasses emptiness pruning.
	AlwaysInclude bool

	// Optional rescues falsy values that fail validation. A truthy value that
	// fails validation is rejected regardless.
	Optional bool
}

// RuleSet is an immutable, ordered set of field rules keyed by input field.
// It is safe to share across any number of Instances and goroutines.
type RuleSet struct {
	name   string
	fields []FieldRule
	index  map[string]int
}

// NewRuleSet validates and copies rules into a new RuleSet. Declaration order
// is kept and decides the insertion order of output keys.
func NewRuleSet(name string, rules ...FieldRule) (*RuleSet, error) {
	rs := &RuleSet{
		name:   name,
		fields: make([]FieldRule, 0, len(rules)),
		index:  make(map[string]int, len(rules)),
	}

	for i, rule := range rules {
		if rule.InputKey == "" {
			return nil, &Error{
				Code:    ErrCodeConfiguration,
				Message: fmt.Sprintf("rule %d: input key is required", i),
			}
		}
		if rule.OutputKey == "" {
			return nil, &Error{
				Code:    ErrCodeConfiguration,
				Message: "output key is required",
				Field:   rule.InputKey,
			}
		}
		if rule.Validator != nil && rule.ValidationFailureMessage == "" {
			return nil, &Error{
				Code:    ErrCodeConfiguration,
				Message: "validation failure message is required when a validator is set",
				Field:   rule.InputKey,
			}
		}
		if _, dup := rs.index[rule.InputKey]; dup {
			return nil, &Error{
				Code:    ErrCodeConfiguration,
				Message: "duplicate input key",
				Field:   rule.InputKey,
			}
		}
		for j, r := range rule.Reducers {
			if r == nil {
				return nil, &Error{
					Code:    ErrCodeConfiguration,
					Message: fmt.Sprintf("reducer %d is nil", j),
					Field:   rule.InputKey,
				}
			}
		}

		rule.Reducers = slices.Clone(rule.Reducers)
		rs.index[rule.InputKey] = len(rs.fields)
		rs.fields = append(rs.fields, rule)
	}

	return rs, nil
}

// MustRuleSet is like NewRuleSet but panics on error.
// Use only in tests or for rule sets defined in code.
func MustRuleSet(name string, rules ...FieldRule) *RuleSet {
	rs, err := NewRuleSet(name, rules...)
	if err != nil {
		panic(err)
	}
	return rs
}

// Name returns the rule set's name (usually the endpoint it serves).
func (rs *RuleSet) Name() string {
	if rs == nil {
		return ""
	}
	return rs.name
}

// Len returns the number of field rules.
func (rs *RuleSet) Len() int {
	if rs == nil {
		return 0
	}
	return len(rs.fields)
}

// Fields returns a copy of the rules in declaration order.
func (rs *RuleSet) Fields() []FieldRule {
	if rs == nil {
		return nil
	}
	out := make([]FieldRule, len(rs.fields))
	for i, f := range rs.fields {
		f.Reducers = slices.Clone(f.Reducers)
		out[i] = f
	}
	return out
}

// Field returns the rule for an input key.
func (rs *RuleSet) Field(inputKey string) (FieldRule, bool) {
	if rs == nil {
		return FieldRule{}, false
	}
	i, ok := rs.index[inputKey]
	if !ok {
		return FieldRule{}, false
	}
	f := rs.fields[i]
	f.Reducers = slices.Clone(f.Reducers)
	return f, true
}
