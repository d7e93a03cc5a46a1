// Package rulespec loads endpoint rule sets authored in CUE.
//
// A rules directory holds one CUE package. Every member of the top-level
// endpoint struct compiles into a transform.RuleSet:
//
//	endpoint: createUser: {
//	    description: "POST /users"
//	    fields: {
//	        name: {
//	            output_key: "n"
//	            reducers: ["trim", {fn: "default", args: ["anonymous"]}]
//	            validator: {expr: "size(value) > 0"}
//	            message: "required"
//	        }
//	    }
//	}
//
// Reducers and validators are either builtins, referenced by name or as
// {fn, args}, or CEL expressions. Reducer expressions see acc and original;
// validator expressions see value.
package rulespec
