// Package transform implements the rule-driven transform/validate/prune
// engine.
//
// A RuleSet is defined once per remote endpoint and shared by every payload
// sent to it:
//
//	build := transform.DefineRules(rules)
//	out, err := build(payload).Build()
//
// For every rule, in declaration order, Build looks up the input field, folds
// the rule's reducers over it, checks the validator and decides whether the
// result is written. Each field is processed independently. The first error
// aborts the call and no partial output is returned.
//
// # Validation and optional fields
//
// A failed validation is fatal when the reduced value is truthy, whether or
// not the rule is optional. Optional only rescues falsy values (0, "", null,
// undefined, false, NaN), which then fall through to emptiness pruning.
//
// # Concurrency
//
// Instances share nothing but the read-only RuleSet, so any number of them may
// be built and run concurrently without locks.
package transform
