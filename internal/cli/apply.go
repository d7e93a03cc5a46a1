package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/roach88/paramx/internal/rulespec"
	"github.com/roach88/paramx/internal/store"
	"github.com/roach88/paramx/internal/transform"
	"github.com/roach88/paramx/internal/value"
)

// ApplyOptions holds flags for the apply command.
type ApplyOptions struct {
	*RootOptions
	Endpoint string
	Payload  string // file path, or "-" for stdin
	Database string
	Explain  bool
}

// ApplyResult is the data written for a successful apply.
type ApplyResult struct {
	Endpoint    string                    `json:"endpoint"`
	RuleSetHash string                    `json:"rule_set_hash"`
	RunID       string                    `json:"run_id,omitempty"`
	Output      *transform.Output         `json:"output"`
	Decisions   []transform.FieldDecision `json:"decisions,omitempty"`
}

// NewApplyCommand creates the apply command.
func NewApplyCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ApplyOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "apply <rules-dir>",
		Short: "Shape one payload with an endpoint's rules",
		Long: `Apply an endpoint's field rules to a payload and print the output object.

The payload is read from a JSON or YAML file, or from stdin with --payload -.
With --db (or db in the config file) the run is recorded in the run log,
including rejected payloads.

Exit codes:
  0 - Output built
  1 - Payload rejected (VALIDATION, REDUCER_FAILED, INVALID_PAYLOAD)
  2 - Command error (rules, payload file, database)

Examples:
  paramx apply ./rules --endpoint createUser --payload user.json
  paramx apply ./rules --endpoint createUser --payload - --explain < user.yaml
  paramx apply ./rules --endpoint createUser --payload user.json --db ./runs.db`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runApply(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Endpoint, "endpoint", "", "endpoint to apply (required)")
	cmd.Flags().StringVar(&opts.Payload, "payload", "", "payload file (.json, .yaml) or - for stdin (required)")
	cmd.Flags().StringVar(&opts.Database, "db", "", "record the run in this SQLite database")
	cmd.Flags().BoolVar(&opts.Explain, "explain", false, "report the decision taken for each field")
	_ = cmd.MarkFlagRequired("endpoint")
	_ = cmd.MarkFlagRequired("payload")

	return cmd
}

func runApply(opts *ApplyOptions, rulesDir string, cmd *cobra.Command) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	formatter := newFormatter(opts.RootOptions, cmd)
	logger := opts.logger()

	ep, err := loadEndpoint(formatter, rulesDir, opts.Endpoint)
	if err != nil {
		return err
	}

	payload, err := readPayload(opts.Payload, cmd.InOrStdin())
	if err != nil {
		return formatter.fail(ExitCommandError, rulespec.ErrCodeGeneric, err.Error(), nil)
	}

	instance := transform.DefineRules(ep.Rules, transform.WithLogger(logger))(payload)

	var (
		out       *transform.Output
		decisions []transform.FieldDecision
		buildErr  error
	)
	if opts.Explain {
		var report *transform.Report
		report, buildErr = instance.Explain()
		out, decisions = report.Output, report.Fields
	} else {
		out, buildErr = instance.Build()
	}

	result := ApplyResult{
		Endpoint:    ep.Name,
		RuleSetHash: ep.Hash,
		Output:      out,
		Decisions:   decisions,
	}

	if dbPath := opts.database(opts.Database); dbPath != "" {
		runID, err := recordRun(ctx, dbPath, ep, payload, out, buildErr, logger)
		if err != nil {
			return formatter.fail(ExitCommandError, "E_STORE", err.Error(), nil)
		}
		result.RunID = runID
	}

	if buildErr != nil {
		return outputApplyError(formatter, result, buildErr)
	}
	return outputApplySuccess(formatter, result)
}

// recordRun writes the rule set and the run to the run log.
func recordRun(ctx context.Context, dbPath string, ep *rulespec.Endpoint, payload value.Object, out *transform.Output, buildErr error, logger *slog.Logger) (string, error) {
	st, err := store.Open(dbPath)
	if err != nil {
		return "", fmt.Errorf("failed to open database: %w", err)
	}
	defer func() {
		if closeErr := st.Close(); closeErr != nil {
			logger.Error("error closing database", "error", closeErr)
		}
	}()

	if err := st.WriteRuleSet(ctx, store.RuleSetRecord{
		Hash:       ep.Hash,
		Endpoint:   ep.Name,
		FieldCount: ep.Rules.Len(),
	}); err != nil {
		return "", err
	}

	seq, err := st.NextSeq(ctx)
	if err != nil {
		return "", err
	}

	run := store.Run{
		ID:          store.NewRunID(),
		Endpoint:    ep.Name,
		RuleSetHash: ep.Hash,
		Payload:     payload,
		Seq:         seq,
	}
	if run.Payload == nil {
		run.Payload = value.Object{}
	}
	if buildErr != nil {
		run.ErrorCode = string(transform.CodeOf(buildErr))
		run.ErrorMessage = buildErr.Error()
	} else {
		run.Output = out.Object()
	}

	if err := st.WriteRun(ctx, run); err != nil {
		return "", err
	}
	logger.Info("run recorded", "id", run.ID, "endpoint", run.Endpoint, "seq", run.Seq, "failed", run.Failed())
	return run.ID, nil
}

// outputApplySuccess prints the output object.
func outputApplySuccess(formatter *OutputFormatter, result ApplyResult) error {
	if result.RunID != "" {
		formatter.VerboseLog("Recorded run %s", result.RunID)
	}
	return formatter.Respond(result, func(w io.Writer) error {
		data, err := json.MarshalIndent(result.Output, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(w, string(data))

		if len(result.Decisions) > 0 {
			fmt.Fprintln(w)
			printDecisions(w, result.Decisions)
		}
		return nil
	})
}

// outputApplyError reports a rejected payload with exit code 1.
func outputApplyError(formatter *OutputFormatter, result ApplyResult, buildErr error) error {
	code := string(transform.CodeOf(buildErr))
	if code == "" {
		code = rulespec.ErrCodeGeneric
	}

	details := map[string]interface{}{"endpoint": result.Endpoint}
	var te *transform.Error
	if errors.As(buildErr, &te) && te.Field != "" {
		details["field"] = te.Field
		details["output_key"] = te.OutputKey
	}
	if result.RunID != "" {
		details["run_id"] = result.RunID
	}

	if !formatter.IsJSON() && len(result.Decisions) > 0 {
		printDecisions(formatter.Writer, result.Decisions)
		fmt.Fprintln(formatter.Writer)
	}
	return formatter.fail(ExitFailure, code, buildErr.Error(), details)
}

func printDecisions(w io.Writer, decisions []transform.FieldDecision) {
	for _, d := range decisions {
		line := fmt.Sprintf("  %s -> %s: %s (%s)", d.InputKey, d.OutputKey, d.Decision, d.Kind)
		if d.Rescued {
			line += " [optional]"
		}
		fmt.Fprintln(w, line)
	}
}
