package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/paramx/internal/rulespec"
	"github.com/roach88/paramx/internal/store"
	"github.com/roach88/paramx/internal/value"
)

// HistoryOptions holds flags for the history command.
type HistoryOptions struct {
	*RootOptions
	Database string
	Endpoint string
	Payload  string // payload file; lists runs of that exact payload
	Limit    int
}

// HistoryResult holds the listed runs, or the endpoint names when no filter
// was given.
type HistoryResult struct {
	Endpoints []string    `json:"endpoints,omitempty"`
	Runs      []store.Run `json:"runs"`
}

// NewHistoryCommand creates the history command.
func NewHistoryCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &HistoryOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recorded runs",
		Long: `List runs recorded by apply --db, oldest first.

Without --endpoint or --payload, lists the endpoints that have runs.

Examples:
  paramx history --db ./runs.db
  paramx history --db ./runs.db --endpoint createUser --limit 5
  paramx history --db ./runs.db --payload user.json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHistory(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database")
	cmd.Flags().StringVar(&opts.Endpoint, "endpoint", "", "list runs of this endpoint")
	cmd.Flags().StringVar(&opts.Payload, "payload", "", "list runs of this exact payload (file or -)")
	cmd.Flags().IntVar(&opts.Limit, "limit", 20, "most recent runs to list (0 for all)")

	return cmd
}

func runHistory(opts *HistoryOptions, cmd *cobra.Command) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	formatter := newFormatter(opts.RootOptions, cmd)

	dbPath := opts.database(opts.Database)
	if dbPath == "" {
		return formatter.fail(ExitCommandError, rulespec.ErrCodeGeneric, "--db is required (or set db in the config file)", nil)
	}

	st, err := store.Open(dbPath)
	if err != nil {
		return formatter.fail(ExitCommandError, "E_STORE", fmt.Sprintf("failed to open database: %v", err), nil)
	}
	defer st.Close()

	result, err := collectHistory(ctx, st, opts, cmd)
	if err != nil {
		return formatter.fail(ExitCommandError, "E_STORE", err.Error(), nil)
	}

	return formatter.Respond(result, func(w io.Writer) error {
		outputHistoryText(w, result)
		return nil
	})
}

func collectHistory(ctx context.Context, st *store.Store, opts *HistoryOptions, cmd *cobra.Command) (HistoryResult, error) {
	result := HistoryResult{Runs: []store.Run{}}

	switch {
	case opts.Payload != "":
		payload, err := readPayload(opts.Payload, cmd.InOrStdin())
		if err != nil {
			return result, err
		}
		if payload == nil {
			payload = value.Object{}
		}
		hash, err := value.Hash(value.DomainPayload, payload)
		if err != nil {
			return result, err
		}
		runs, err := st.ReadRunsByPayload(ctx, hash)
		if err != nil {
			return result, err
		}
		for _, r := range runs {
			if opts.Endpoint == "" || r.Endpoint == opts.Endpoint {
				result.Runs = append(result.Runs, r)
			}
		}
		if opts.Limit > 0 && len(result.Runs) > opts.Limit {
			result.Runs = result.Runs[len(result.Runs)-opts.Limit:]
		}

	case opts.Endpoint != "":
		runs, err := st.ReadRuns(ctx, opts.Endpoint, opts.Limit)
		if err != nil {
			return result, err
		}
		result.Runs = runs

	default:
		endpoints, err := st.ListEndpoints(ctx)
		if err != nil {
			return result, err
		}
		result.Endpoints = endpoints
	}

	return result, nil
}

func outputHistoryText(w io.Writer, result HistoryResult) {

	if len(result.Endpoints) == 0 && len(result.Runs) == 0 {
		fmt.Fprintln(w, "No runs found.")
		return
	}

	for _, ep := range result.Endpoints {
		fmt.Fprintln(w, ep)
	}

	for _, r := range result.Runs {
		status := "ok"
		if r.Failed() {
			status = r.ErrorCode
		}
		fmt.Fprintf(w, "#%d %s %s %s\n", r.Seq, r.ID, r.Endpoint, status)
		if r.Failed() {
			fmt.Fprintf(w, "  error: %s\n", r.ErrorMessage)
			continue
		}
		data, err := value.MarshalCanonical(r.Output)
		if err != nil {
			fmt.Fprintf(w, "  output: <%v>\n", err)
			continue
		}
		fmt.Fprintf(w, "  output: %s\n", data)
	}
}
