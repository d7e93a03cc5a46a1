package rulespec

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/token"

	"github.com/roach88/paramx/internal/transform"
	"github.com/roach88/paramx/internal/value"
)

// Endpoint is a compiled endpoint definition.
type Endpoint struct {
	Name        string
	Description string

	// Fields holds the declarations in source order, as written.
	Fields []FieldSpec

	// Rules is the executable rule set built from Fields.
	Rules *transform.RuleSet

	// Hash identifies the endpoint's definition. Formatting and comments in
	// the source do not change it.
	Hash string

	Pos token.Pos
}

// FieldSpec is the declared form of one field rule.
type FieldSpec struct {
	InputKey      string   `json:"input_key"`
	OutputKey     string   `json:"output_key"`
	Reducers      []string `json:"reducers,omitempty"`
	Validator     string   `json:"validator,omitempty"`
	Message       string   `json:"message,omitempty"`
	Optional      bool     `json:"optional,omitempty"`
	AlwaysInclude bool     `json:"always_include,omitempty"`

	Pos token.Pos `json:"-"`
}

// CompileEndpoint parses a CUE value into an Endpoint.
//
// The CUE value should be the endpoint struct itself, e.g.:
//
//	ctx := cuecontext.New()
//	v := ctx.CompileString(`endpoint: createUser: { fields: { ... } }`)
//	ep, err := CompileEndpoint(v.LookupPath(cue.ParsePath("endpoint.createUser")))
func CompileEndpoint(v cue.Value) (*Endpoint, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	ep := &Endpoint{Pos: v.Pos()}

	labels := v.Path().Selectors()
	if len(labels) > 0 {
		ep.Name = unquoteLabel(labels[len(labels)-1].String())
	}

	descVal := v.LookupPath(cue.ParsePath("description"))
	if descVal.Exists() {
		desc, err := descVal.String()
		if err != nil {
			return nil, &CompileError{Field: "description", Message: "description must be a string", Pos: descVal.Pos()}
		}
		ep.Description = desc
	}

	fieldsVal := v.LookupPath(cue.ParsePath("fields"))
	if !fieldsVal.Exists() {
		return nil, &CompileError{
			Field:   "fields",
			Message: "fields are required",
			Pos:     v.Pos(),
		}
	}

	iter, err := fieldsVal.Fields()
	if err != nil {
		return nil, &CompileError{Field: "fields", Message: "fields must be a struct", Pos: fieldsVal.Pos()}
	}

	var rules []transform.FieldRule
	for iter.Next() {
		spec, rule, err := compileField(iter.Selector().Unquoted(), iter.Value())
		if err != nil {
			return nil, err
		}
		ep.Fields = append(ep.Fields, spec)
		rules = append(rules, rule)
	}

	if len(ep.Fields) == 0 {
		return nil, &CompileError{
			Field:   "fields.*",
			Message: "at least one field is required",
			Pos:     fieldsVal.Pos(),
		}
	}

	ep.Rules, err = transform.NewRuleSet(ep.Name, rules...)
	if err != nil {
		return nil, &CompileError{Field: "rules", Message: err.Error(), Pos: fieldsVal.Pos()}
	}

	ep.Hash, err = hashDefinition(v)
	if err != nil {
		return nil, err
	}

	return ep, nil
}

func compileField(inputKey string, v cue.Value) (FieldSpec, transform.FieldRule, error) {
	spec := FieldSpec{InputKey: inputKey, OutputKey: inputKey, Pos: v.Pos()}
	rule := transform.FieldRule{InputKey: inputKey, OutputKey: inputKey}

	if v.IncompleteKind() != cue.StructKind {
		return spec, rule, &CompileError{
			Field:   "fields",
			Message: fmt.Sprintf("field %q must be a struct", inputKey),
			Pos:     v.Pos(),
		}
	}

	if outVal := v.LookupPath(cue.ParsePath("output_key")); outVal.Exists() {
		out, err := outVal.String()
		if err != nil || out == "" {
			return spec, rule, &CompileError{
				Field:   "output_key",
				Message: fmt.Sprintf("field %q: output_key must be a non-empty string", inputKey),
				Pos:     outVal.Pos(),
			}
		}
		spec.OutputKey = out
		rule.OutputKey = out
	}

	if redVal := v.LookupPath(cue.ParsePath("reducers")); redVal.Exists() {
		it, err := redVal.List()
		if err != nil {
			return spec, rule, &CompileError{
				Field:   "reducers",
				Message: fmt.Sprintf("field %q: reducers must be a list", inputKey),
				Pos:     redVal.Pos(),
			}
		}
		for it.Next() {
			name, r, err := compileReducer(it.Value())
			if err != nil {
				return spec, rule, err
			}
			spec.Reducers = append(spec.Reducers, name)
			rule.Reducers = append(rule.Reducers, r)
		}
	}

	if valVal := v.LookupPath(cue.ParsePath("validator")); valVal.Exists() {
		name, fn, err := compileValidator(valVal)
		if err != nil {
			return spec, rule, err
		}
		spec.Validator = name
		rule.Validator = fn
	}

	var err error
	if spec.Message, err = optionalString(v, "message"); err != nil {
		return spec, rule, err
	}
	rule.ValidationFailureMessage = spec.Message
	if rule.Validator != nil && spec.Message == "" {
		return spec, rule, &CompileError{
			Field:   "validator.message",
			Message: fmt.Sprintf("field %q: a validator requires a message", inputKey),
			Pos:     v.Pos(),
		}
	}

	if spec.Optional, err = optionalBool(v, "optional"); err != nil {
		return spec, rule, err
	}
	rule.Optional = spec.Optional

	if spec.AlwaysInclude, err = optionalBool(v, "always_include"); err != nil {
		return spec, rule, err
	}
	rule.AlwaysInclude = spec.AlwaysInclude

	return spec, rule, nil
}

// entry is the decoded form of a reducer or validator declaration.
type entry struct {
	name string
	fn   string
	args []value.Value
	expr string
}

// parseEntry accepts "name", {fn: "name", args: [...]} or {expr: "..."}.
func parseEntry(v cue.Value, role string) (entry, error) {
	if s, err := v.String(); err == nil {
		return entry{name: s, fn: s}, nil
	}

	if exprVal := v.LookupPath(cue.ParsePath("expr")); exprVal.Exists() {
		src, err := exprVal.String()
		if err != nil {
			return entry{}, &CompileError{Field: "expr", Message: "expr must be a string", Pos: exprVal.Pos()}
		}
		return entry{name: "expr: " + src, expr: src}, nil
	}

	fnVal := v.LookupPath(cue.ParsePath("fn"))
	if !fnVal.Exists() {
		return entry{}, &CompileError{
			Field:   role,
			Message: fmt.Sprintf("%s must be a name, {fn, args} or {expr}", role),
			Pos:     v.Pos(),
		}
	}
	fn, err := fnVal.String()
	if err != nil {
		return entry{}, &CompileError{Field: role, Message: "fn must be a string", Pos: fnVal.Pos()}
	}

	e := entry{fn: fn}
	if argsVal := v.LookupPath(cue.ParsePath("args")); argsVal.Exists() {
		args, err := cueToValue(argsVal)
		if err != nil {
			return entry{}, &CompileError{Field: "args", Message: err.Error(), Pos: argsVal.Pos()}
		}
		list, ok := args.(value.List)
		if !ok {
			return entry{}, &CompileError{Field: "args", Message: "args must be a list", Pos: argsVal.Pos()}
		}
		e.args = list
	}
	e.name = describeCall(fn, e.args)
	return e, nil
}

func compileReducer(v cue.Value) (string, transform.Reducer, error) {
	e, err := parseEntry(v, "reducers")
	if err != nil {
		return "", nil, err
	}

	if e.expr != "" {
		r, err := ExprReducer(e.expr)
		if err != nil {
			return "", nil, &CompileError{Field: "expr", Message: err.Error(), Pos: v.Pos()}
		}
		return e.name, r, nil
	}

	f, ok := reducers[e.fn]
	if !ok {
		return "", nil, &CompileError{
			Field:   "reducers",
			Message: fmt.Sprintf("unknown reducer %q", e.fn),
			Pos:     v.Pos(),
		}
	}
	r, err := f(e.args)
	if err != nil {
		return "", nil, &CompileError{Field: "args", Message: fmt.Sprintf("%s: %v", e.fn, err), Pos: v.Pos()}
	}
	return e.name, r, nil
}

func compileValidator(v cue.Value) (string, transform.Validator, error) {
	e, err := parseEntry(v, "validator")
	if err != nil {
		return "", nil, err
	}

	if e.expr != "" {
		fn, err := ExprValidator(e.expr)
		if err != nil {
			return "", nil, &CompileError{Field: "expr", Message: err.Error(), Pos: v.Pos()}
		}
		return e.name, fn, nil
	}

	f, ok := validators[e.fn]
	if !ok {
		return "", nil, &CompileError{
			Field:   "validator",
			Message: fmt.Sprintf("unknown validator %q", e.fn),
			Pos:     v.Pos(),
		}
	}
	fn, err := f(e.args)
	if err != nil {
		return "", nil, &CompileError{Field: "args", Message: fmt.Sprintf("%s: %v", e.fn, err), Pos: v.Pos()}
	}
	return e.name, fn, nil
}

func describeCall(fn string, args []value.Value) string {
	if len(args) == 0 {
		return fn
	}
	parts := make([]string, len(args))
	for i, a := range args {
		b, err := value.Marshal(a)
		if err != nil {
			parts[i] = "?"
			continue
		}
		parts[i] = string(b)
	}
	return fn + "(" + strings.Join(parts, ", ") + ")"
}

func optionalString(v cue.Value, field string) (string, error) {
	fv := v.LookupPath(cue.ParsePath(field))
	if !fv.Exists() {
		return "", nil
	}
	s, err := fv.String()
	if err != nil {
		return "", &CompileError{Field: field, Message: field + " must be a string", Pos: fv.Pos()}
	}
	return s, nil
}

func optionalBool(v cue.Value, field string) (bool, error) {
	fv := v.LookupPath(cue.ParsePath(field))
	if !fv.Exists() {
		return false, nil
	}
	b, err := fv.Bool()
	if err != nil {
		return false, &CompileError{Field: field, Message: field + " must be a bool", Pos: fv.Pos()}
	}
	return b, nil
}

// cueToValue exports a concrete CUE value through JSON.
func cueToValue(v cue.Value) (value.Value, error) {
	data, err := v.MarshalJSON()
	if err != nil {
		return nil, formatCUEError(err)
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var raw any
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("decode exported value: %w", err)
	}
	return value.FromAny(raw)
}

// hashDefinition hashes the canonical form of the exported endpoint.
func hashDefinition(v cue.Value) (string, error) {
	exported, err := cueToValue(v)
	if err != nil {
		return "", err
	}
	return value.Hash(value.DomainRuleSet, exported)
}

func unquoteLabel(s string) string {
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		return s[1 : len(s)-1]
	}
	return s
}
