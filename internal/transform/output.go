package transform

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/roach88/paramx/internal/value"
)

// Output is the sanitized payload produced by Build. Keys records the order in
// which output keys were first written; Values holds the final values.
type Output struct {
	Keys   []string
	Values value.Object
}

func newOutput(capacity int) *Output {
	return &Output{
		Keys:   make([]string, 0, capacity),
		Values: make(value.Object, capacity),
	}
}

// set writes key. A key written twice keeps its first position.
func (o *Output) set(key string, v value.Value) {
	if _, exists := o.Values[key]; !exists {
		o.Keys = append(o.Keys, key)
	}
	o.Values[key] = v
}

// Len returns the number of output keys.
func (o *Output) Len() int {
	return len(o.Keys)
}

// Get returns the value for key and whether it was written.
func (o *Output) Get(key string) (value.Value, bool) {
	v, ok := o.Values[key]
	return v, ok
}

// Object returns the output as a plain value.Object.
func (o *Output) Object() value.Object {
	return o.Values
}

// MarshalJSON encodes the output with keys in insertion order.
func (o *Output) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')

	first := true
	for _, k := range o.Keys {
		v := o.Values[k]
		if _, undefined := v.(value.Undefined); undefined {
			continue
		}
		if !first {
			buf.WriteByte(',')
		}
		first = false

		keyBytes, err := json.Marshal(k)
		if err != nil {
			return nil, fmt.Errorf("marshal key %q: %w", k, err)
		}
		buf.Write(keyBytes)
		buf.WriteByte(':')

		valBytes, err := value.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("marshal value for key %q: %w", k, err)
		}
		buf.Write(valBytes)
	}

	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// Decision records what the inclusion step did with a field.
type Decision string

const (
	// DecisionIncluded means the value was non-empty and written.
	DecisionIncluded Decision = "included"

	// DecisionAlwaysIncluded means the rule bypassed emptiness pruning.
	DecisionAlwaysIncluded Decision = "always_included"

	// DecisionPrunedEmpty means the value was empty and omitted.
	DecisionPrunedEmpty Decision = "pruned_empty"
)

// FieldDecision describes how one rule was applied.
type FieldDecision struct {
	InputKey  string     `json:"input_key"`
	OutputKey string     `json:"output_key"`
	Kind      value.Kind `json:"-"`
	Decision  Decision   `json:"decision"`

	// Rescued is true when the validator failed on a falsy value and the
	// rule is optional.
	Rescued bool `json:"rescued,omitempty"`
}

// MarshalJSON adds the kind name to the encoded decision.
func (d FieldDecision) MarshalJSON() ([]byte, error) {
	type plain FieldDecision
	return json.Marshal(struct {
		plain
		Kind string `json:"kind"`
	}{plain(d), d.Kind.String()})
}

// Report is the result of Explain.
type Report struct {
	RuleSet string          `json:"rule_set"`
	Fields  []FieldDecision `json:"fields"`
	Output  *Output         `json:"output,omitempty"`
	Err     error           `json:"-"`
}

// Included returns the decisions that wrote a value, in rule order.
func (r *Report) Included() []FieldDecision {
	var out []FieldDecision
	for _, d := range r.Fields {
		if d.Decision != DecisionPrunedEmpty {
			out = append(out, d)
		}
	}
	return out
}
