package transform

import (
	"log/slog"

	"github.com/roach88/paramx/internal/value"
)

// Option configures the Builder returned by DefineRules.
type Option func(*options)

type options struct {
	logger *slog.Logger
}

// WithLogger sets the logger used for per-field debug records.
// Defaults to slog.Default() at Build time.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// Builder binds a payload to the captured rule set.
// Every call returns a new, independent Instance.
type Builder func(payload value.Object) *Instance

// DefineRules captures a rule set and returns a reusable Builder.
// The rule set is retained by reference; it is never copied or mutated.
// A nil rule set is accepted here and reported by Build.
func DefineRules(rs *RuleSet, opts ...Option) Builder {
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}

	return func(payload value.Object) *Instance {
		return &Instance{
			rules:   rs,
			payload: payload,
			logger:  o.logger,
		}
	}
}

// Instance binds one RuleSet to one payload. It holds no other state, so
// Build may be called any number of times with identical results.
type Instance struct {
	rules   *RuleSet
	payload value.Object
	logger  *slog.Logger
}

// Build runs the field-by-field pipeline and returns the output payload.
//
// Preconditions are checked before any field is touched: a nil or empty rule
// set fails with a configuration error, a nil payload with an invalid payload
// error. The first field error aborts the call; no partial output is returned.
func (in *Instance) Build() (*Output, error) {
	return in.run(nil)
}

// Explain runs the same pipeline as Build and also reports the decision taken
// for each field. On error the report holds the fields processed before the
// failure.
func (in *Instance) Explain() (*Report, error) {
	report := &Report{RuleSet: in.rules.Name()}
	out, err := in.run(report)
	report.Output = out
	report.Err = err
	return report, err
}

func (in *Instance) log() *slog.Logger {
	if in.logger != nil {
		return in.logger
	}
	return slog.Default()
}

func (in *Instance) run(report *Report) (*Output, error) {
	if in.rules == nil {
		return nil, NewConfigurationError("transform rules should be provided")
	}
	if in.rules.Len() == 0 {
		return nil, NewConfigurationError("transform rules should define at least one field")
	}
	if in.payload == nil {
		return nil, NewInvalidPayloadError()
	}

	logger := in.log()
	out := newOutput(in.rules.Len())

	for _, rule := range in.rules.fields {
		decision, err := in.applyField(rule, out)
		if err != nil {
			logger.Debug("transform aborted",
				"rule_set", in.rules.name,
				"field", rule.InputKey,
				"error", err,
			)
			return nil, err
		}
		logger.Debug("field processed",
			"rule_set", in.rules.name,
			"field", decision.InputKey,
			"output_key", decision.OutputKey,
			"kind", decision.Kind.String(),
			"decision", string(decision.Decision),
		)
		if report != nil {
			report.Fields = append(report.Fields, decision)
		}
	}

	return out, nil
}

// applyField runs lookup, reduce, validate and inclusion for a single rule.
// It reads only the payload and its own rule; no field sees another's result.
func (in *Instance) applyField(rule FieldRule, out *Output) (FieldDecision, error) {
	original := in.payload.Get(rule.InputKey)

	reduced, err := reduce(rule, original)
	if err != nil {
		return FieldDecision{}, err
	}

	decision := FieldDecision{
		InputKey:  rule.InputKey,
		OutputKey: rule.OutputKey,
		Kind:      value.Classify(reduced),
	}

	if rule.Validator != nil && !rule.Validator(reduced) {
		// Optional only rescues falsy values; a present-but-invalid value
		// always fails.
		if value.Truthy(reduced) || !rule.Optional {
			return FieldDecision{}, NewValidationError(rule)
		}
		decision.Rescued = true
	}

	switch {
	case rule.AlwaysInclude:
		out.set(rule.OutputKey, reduced)
		decision.Decision = DecisionAlwaysIncluded
	case value.IsEmpty(reduced):
		decision.Decision = DecisionPrunedEmpty
	default:
		out.set(rule.OutputKey, reduced)
		decision.Decision = DecisionIncluded
	}

	return decision, nil
}

// reduce folds the rule's reducers over the original value. Every step
// receives the original value as its second argument.
func reduce(rule FieldRule, original value.Value) (value.Value, error) {
	acc := original
	for i, r := range rule.Reducers {
		next, err := r(acc, original)
		if err != nil {
			return nil, NewReducerError(rule, i, err)
		}
		acc = value.Normalize(next)
	}
	return acc, nil
}
