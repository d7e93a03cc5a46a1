package rulespec

import (
	"fmt"
)

// ValidationError is a lint finding for a compiled endpoint.
type ValidationError struct {
	Endpoint string `json:"endpoint"`
	Field    string `json:"field"`
	Message  string `json:"message"`
	Code     string `json:"code"`
	Line     int    `json:"line,omitempty"`
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("[%s] line %d: %s.%s: %s", e.Code, e.Line, e.Endpoint, e.Field, e.Message)
	}
	return fmt.Sprintf("[%s] %s.%s: %s", e.Code, e.Endpoint, e.Field, e.Message)
}

// Validate lints an endpoint's field declarations.
// Returns all findings (does not fail-fast).
func Validate(ep *Endpoint) []ValidationError {
	if ep == nil {
		return nil
	}

	var errs []ValidationError
	writers := make(map[string]string, len(ep.Fields))

	for _, f := range ep.Fields {
		line := 0
		if f.Pos.IsValid() {
			line = f.Pos.Line()
		}

		// E120: a later field silently overwrites an earlier one
		if prev, dup := writers[f.OutputKey]; dup {
			errs = append(errs, ValidationError{
				Endpoint: ep.Name,
				Field:    f.InputKey,
				Message:  fmt.Sprintf("output key %q is also written by field %q", f.OutputKey, prev),
				Code:     ErrCodeDuplicateOutputKey,
				Line:     line,
			})
		} else {
			writers[f.OutputKey] = f.InputKey
		}

		// E121: validator needs a message
		if f.Validator != "" && f.Message == "" {
			errs = append(errs, ValidationError{
				Endpoint: ep.Name,
				Field:    f.InputKey,
				Message:  "validator is set but message is empty",
				Code:     ErrCodeValidatorNoMessage,
				Line:     line,
			})
		}

		// E122: optional has no effect on a field that is always kept
		if f.AlwaysInclude && f.Optional {
			errs = append(errs, ValidationError{
				Endpoint: ep.Name,
				Field:    f.InputKey,
				Message:  "always_include overrides optional; the falsy value will still be written",
				Code:     ErrCodeOptionalAlwaysKept,
				Line:     line,
			})
		}
	}

	return errs
}
