package cli

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/paramx/internal/rulespec"
)

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid     bool                       `json:"valid"`
	Endpoints []string                   `json:"endpoints"`
	Errors    []rulespec.ValidationError `json:"errors,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <rules-dir>",
		Short: "Compile and lint endpoint rules",
		Long: `Compile every endpoint in a rules directory and lint its field declarations.

Reports every problem found rather than stopping at the first one.

Exit codes:
  0 - All endpoints valid
  1 - Compile errors or lint findings
  2 - Command error (directory not found, no CUE files, etc.)`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args[0], cmd)
		},
	}

	return cmd
}

func runValidate(opts *RootOptions, rulesDir string, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd)
	logger := opts.logger()

	loadResult, loadErrors := rulespec.LoadDir(rulesDir, rulespec.LoadModeCollectAll)

	// Nothing could be loaded at all: directory missing, no files, CUE errors
	if loadResult == nil {
		return failLoad(formatter, loadErrors)
	}

	formatter.VerboseLog("Found %d CUE file(s) in %s", loadResult.FileCount, rulesDir)
	logger.Debug("rules loaded", "dir", rulesDir, "files", loadResult.FileCount, "endpoints", len(loadResult.Endpoints))

	var findings []rulespec.ValidationError
	for _, err := range loadErrors {
		findings = append(findings, loadErrorFinding(err))
	}
	for _, ep := range loadResult.Endpoints {
		formatter.VerboseLog("Validating endpoint: %s", ep.Name)
		findings = append(findings, rulespec.Validate(ep)...)
	}

	if len(findings) > 0 {
		return outputValidationErrors(formatter, loadResult.Names(), findings)
	}
	return outputValidateSuccess(formatter, loadResult.Names())
}

// failLoad reports a load failure that left nothing to validate.
func failLoad(formatter *OutputFormatter, errs []error) error {
	if len(errs) == 0 {
		return formatter.fail(ExitCommandError, rulespec.ErrCodeGeneric, "failed to load rules", nil)
	}
	var loadErr *rulespec.LoadError
	if errors.As(errs[0], &loadErr) {
		return formatter.fail(ExitCommandError, loadErr.Code, loadErr.Message, nil)
	}
	return formatter.fail(ExitCommandError, rulespec.ErrCodeGeneric, errs[0].Error(), nil)
}

// loadErrorFinding turns a per-endpoint compile failure into a finding.
func loadErrorFinding(err error) rulespec.ValidationError {
	var loadErr *rulespec.LoadError
	if errors.As(err, &loadErr) {
		line := 0
		if loadErr.Pos.IsValid() {
			line = loadErr.Pos.Line()
		}
		return rulespec.ValidationError{
			Field:   "load",
			Message: loadErr.Message,
			Code:    loadErr.Code,
			Line:    line,
		}
	}
	return rulespec.ValidationError{
		Field:   "load",
		Message: err.Error(),
		Code:    rulespec.ErrCodeGeneric,
	}
}

// outputValidateSuccess outputs successful validation results.
func outputValidateSuccess(formatter *OutputFormatter, endpoints []string) error {
	return formatter.Respond(ValidationResult{Valid: true, Endpoints: endpoints}, func(w io.Writer) error {
		_, err := fmt.Fprintf(w, "✓ All rules valid (%d endpoint(s))\n", len(endpoints))
		return err
	})
}

// outputValidationErrors outputs every finding and returns exit code 1.
func outputValidationErrors(formatter *OutputFormatter, endpoints []string, errs []rulespec.ValidationError) error {
	summary := fmt.Sprintf("validation failed with %d error(s)", len(errs))

	if formatter.IsJSON() {
		return formatter.Report(ValidationResult{
			Valid:     false,
			Endpoints: endpoints,
			Errors:    errs,
		}, &CLIError{Code: errs[0].Code, Message: summary})
	}

	fmt.Fprintln(formatter.Writer, "✗ Validation failed")
	fmt.Fprintln(formatter.Writer)

	for _, err := range errs {
		if err.Line > 0 {
			fmt.Fprintf(formatter.Writer, "line %d\n", err.Line)
		}
		if err.Endpoint != "" {
			fmt.Fprintf(formatter.Writer, "  %s: %s.%s: %s\n\n", err.Code, err.Endpoint, err.Field, err.Message)
		} else {
			fmt.Fprintf(formatter.Writer, "  %s: %s\n\n", err.Code, err.Message)
		}
	}

	return NewExitError(ExitFailure, summary)
}
