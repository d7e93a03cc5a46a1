package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/paramx/internal/rulespec"
	"github.com/roach88/paramx/internal/store"
	"github.com/roach88/paramx/internal/transform"
	"github.com/roach88/paramx/internal/value"
)

// ReplayOptions holds flags for the replay command.
type ReplayOptions struct {
	*RootOptions
	Database string
	Endpoint string
	Limit    int
}

// Drift kinds reported by replay.
const (
	DriftNone          = ""
	DriftOutputChanged = "output_changed"
	DriftNowFails      = "now_fails"
	DriftNowSucceeds   = "now_succeeds"
	DriftErrorChanged  = "error_changed"
)

// ReplayRunResult compares one stored run with its replay.
type ReplayRunResult struct {
	RunID        string `json:"run_id"`
	Seq          int64  `json:"seq"`
	RulesChanged bool   `json:"rules_changed"`
	Drift        string `json:"drift,omitempty"`
	Before       string `json:"before"`
	After        string `json:"after"`
}

// ReplayResult holds the overall replay result.
type ReplayResult struct {
	Endpoint    string            `json:"endpoint"`
	RuleSetHash string            `json:"rule_set_hash"`
	Runs        []ReplayRunResult `json:"runs"`
	Total       int               `json:"total"`
	Drifted     int               `json:"drifted"`
}

// NewReplayCommand creates the replay command.
func NewReplayCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ReplayOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "replay <rules-dir>",
		Short: "Re-apply recorded payloads and report drift",
		Long: `Re-apply every recorded payload of an endpoint with the current rules.

Each run is compared with its recorded outcome. Replay reports runs whose
output changed, that now fail, that now succeed, or that fail differently.

Exit codes:
  0 - Every replayed run matches its recorded outcome
  1 - Drift detected
  2 - Command error (rules, database not found, etc.)

Examples:
  paramx replay ./rules --db ./runs.db --endpoint createUser
  paramx replay ./rules --db ./runs.db --endpoint createUser --limit 100 --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReplay(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database")
	cmd.Flags().StringVar(&opts.Endpoint, "endpoint", "", "endpoint to replay (required)")
	cmd.Flags().IntVar(&opts.Limit, "limit", 0, "replay only the most recent runs (0 for all)")
	_ = cmd.MarkFlagRequired("endpoint")

	return cmd
}

func runReplay(opts *ReplayOptions, rulesDir string, cmd *cobra.Command) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	formatter := newFormatter(opts.RootOptions, cmd)
	logger := opts.logger()

	dbPath := opts.database(opts.Database)
	if dbPath == "" {
		return formatter.fail(ExitCommandError, rulespec.ErrCodeGeneric, "--db is required (or set db in the config file)", nil)
	}

	ep, err := loadEndpoint(formatter, rulesDir, opts.Endpoint)
	if err != nil {
		return err
	}

	st, err := store.Open(dbPath)
	if err != nil {
		return formatter.fail(ExitCommandError, "E_STORE", fmt.Sprintf("failed to open database: %v", err), nil)
	}
	defer st.Close()

	runs, err := st.ReadRuns(ctx, ep.Name, opts.Limit)
	if err != nil {
		return formatter.fail(ExitCommandError, "E_STORE", err.Error(), nil)
	}

	result := ReplayResult{
		Endpoint:    ep.Name,
		RuleSetHash: ep.Hash,
		Runs:        make([]ReplayRunResult, 0, len(runs)),
		Total:       len(runs),
	}

	build := transform.DefineRules(ep.Rules, transform.WithLogger(logger))
	for _, run := range runs {
		rr, err := replayRun(build, ep, run)
		if err != nil {
			return formatter.fail(ExitCommandError, rulespec.ErrCodeGeneric, fmt.Sprintf("replay run %s: %v", run.ID, err), nil)
		}
		if rr.Drift != DriftNone {
			result.Drifted++
			logger.Debug("run drifted", "id", run.ID, "drift", rr.Drift)
		}
		result.Runs = append(result.Runs, rr)
	}

	if formatter.IsJSON() {
		return outputReplayJSON(formatter, result)
	}
	return outputReplayText(formatter, result)
}

// replayRun rebuilds one stored payload and classifies the difference.
func replayRun(build transform.Builder, ep *rulespec.Endpoint, run store.Run) (ReplayRunResult, error) {
	payload := run.Payload
	if run.ErrorCode == string(transform.ErrCodeInvalidPayload) {
		// Absent payloads are recorded as {}; replay them as absent.
		payload = nil
	}

	out, buildErr := build(payload).Build()

	rr := ReplayRunResult{
		RunID:        run.ID,
		Seq:          run.Seq,
		RulesChanged: run.RuleSetHash != ep.Hash,
	}

	before, err := describeOutcome(run.Output, run.ErrorCode)
	if err != nil {
		return rr, err
	}
	rr.Before = before

	var (
		newOutput value.Object
		newCode   string
	)
	if buildErr != nil {
		newCode = string(transform.CodeOf(buildErr))
		if newCode == "" {
			return rr, buildErr
		}
	} else {
		newOutput = out.Object()
	}
	after, err := describeOutcome(newOutput, newCode)
	if err != nil {
		return rr, err
	}
	rr.After = after

	switch {
	case run.Failed() && buildErr == nil:
		rr.Drift = DriftNowSucceeds
	case !run.Failed() && buildErr != nil:
		rr.Drift = DriftNowFails
	case run.Failed() && newCode != run.ErrorCode:
		rr.Drift = DriftErrorChanged
	case !run.Failed() && before != after:
		rr.Drift = DriftOutputChanged
	}
	return rr, nil
}

// describeOutcome renders an outcome for comparison: the output hash for
// successes, the error code for failures. Hashing the canonical form ignores
// key order and undefined members.
func describeOutcome(output value.Object, code string) (string, error) {
	if code != "" {
		return "error:" + code, nil
	}
	if output == nil {
		output = value.Object{}
	}
	hash, err := value.Hash(value.DomainOutput, output)
	if err != nil {
		return "", err
	}
	return "output:" + hash, nil
}

// outputReplayJSON outputs the replay result as JSON.
func outputReplayJSON(formatter *OutputFormatter, result ReplayResult) error {
	var failure *CLIError
	if result.Drifted > 0 {
		failure = &CLIError{
			Code:    "E_DRIFT",
			Message: fmt.Sprintf("%d of %d run(s) drifted", result.Drifted, result.Total),
		}
	}
	return formatter.Report(result, failure)
}

// outputReplayText outputs the replay result as text.
func outputReplayText(formatter *OutputFormatter, result ReplayResult) error {
	w := formatter.Writer

	if result.Total == 0 {
		fmt.Fprintf(w, "No runs found for endpoint %s.\n", result.Endpoint)
		return nil
	}

	fmt.Fprintf(w, "Replay Summary: %d run(s) of %s\n", result.Total, result.Endpoint)
	fmt.Fprintln(w)

	for _, r := range result.Runs {
		status := "✓"
		if r.Drift != DriftNone {
			status = "✗"
		}
		fmt.Fprintf(w, "%s #%d %s\n", status, r.Seq, r.RunID)

		if r.Drift != DriftNone {
			fmt.Fprintf(w, "  Drift: %s\n", r.Drift)
			fmt.Fprintf(w, "  Before: %s\n", r.Before)
			fmt.Fprintf(w, "  After: %s\n", r.After)
		}
		if r.RulesChanged {
			formatter.VerboseLog("  run %s was recorded with a different rule set", r.RunID)
		}
	}
	fmt.Fprintln(w)

	if result.Drifted == 0 {
		fmt.Fprintln(w, "✓ All runs replay identically")
		return nil
	}

	fmt.Fprintf(w, "✗ %d run(s) drifted\n", result.Drifted)
	return NewExitError(ExitFailure, "replay drift detected")
}
