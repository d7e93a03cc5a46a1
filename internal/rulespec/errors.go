package rulespec

import (
	"fmt"

	"cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"
)

// Error code constants shared by the loader, compiler and linter.
const (
	ErrCodeGeneric     = "E001" // Generic/unknown error
	ErrCodeScanError   = "E002" // Directory scan error
	ErrCodeNoFiles     = "E003" // No CUE files found
	ErrCodeLoadFailed  = "E004" // CUE load failed
	ErrCodeNotFound    = "E005" // Path not found
	ErrCodeBuildFailed = "E006" // CUE build failed
	ErrCodeNoEndpoints = "E007" // No endpoint definitions found

	// Endpoint compile errors (E101-E109)
	ErrCodeFields         = "E101" // fields block missing or malformed
	ErrCodeNoFields       = "E102" // endpoint declares no fields
	ErrCodeFieldDecl      = "E103" // malformed field declaration
	ErrCodeUnknownBuiltin = "E104" // unknown reducer or validator name
	ErrCodeBuiltinArgs    = "E105" // bad arguments to a builtin
	ErrCodeExpr           = "E106" // CEL expression does not compile
	ErrCodeRuleSet        = "E107" // rules rejected by the engine

	// Lint findings (E120-E129)
	ErrCodeDuplicateOutputKey = "E120" // two fields write the same output key
	ErrCodeValidatorNoMessage = "E121" // validator without a failure message
	ErrCodeOptionalAlwaysKept = "E122" // always_include combined with optional
)

// CompileError represents a compilation error with source position.
type CompileError struct {
	Field   string
	Message string
	Pos     token.Pos
}

func (e *CompileError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s",
			e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(),
			e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// LoadError represents an error that occurred while loading a rules directory.
type LoadError struct {
	Code    string
	Message string
	Pos     token.Pos // CUE position if available
}

func (e *LoadError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s", e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(), e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// MapFieldToErrorCode maps a compile error field to an error code.
func MapFieldToErrorCode(field string) string {
	switch field {
	case "fields":
		return ErrCodeFields
	case "fields.*":
		return ErrCodeNoFields
	case "output_key", "message", "optional", "always_include", "description":
		return ErrCodeFieldDecl
	case "reducers", "validator":
		return ErrCodeUnknownBuiltin
	case "args":
		return ErrCodeBuiltinArgs
	case "expr":
		return ErrCodeExpr
	case "validator.message":
		return ErrCodeValidatorNoMessage
	case "rules":
		return ErrCodeRuleSet
	default:
		return ErrCodeGeneric
	}
}

// formatCUEError extracts position info from CUE errors.
func formatCUEError(err error) error {
	if err == nil {
		return nil
	}

	errs := errors.Errors(err)
	if len(errs) == 0 {
		return err
	}

	firstErr := errs[0]
	positions := errors.Positions(firstErr)
	if len(positions) > 0 {
		return &CompileError{
			Field:   "cue",
			Message: firstErr.Error(),
			Pos:     positions[0],
		}
	}

	return err
}
