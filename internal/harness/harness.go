package harness

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/roach88/paramx/internal/rulespec"
	"github.com/roach88/paramx/internal/store"
	"github.com/roach88/paramx/internal/testutil"
	"github.com/roach88/paramx/internal/transform"
	"github.com/roach88/paramx/internal/value"
)

// Harness runs the cases of one scenario against one endpoint.
// Every case is recorded in an in-memory run log with deterministic run IDs
// and seq values; results are read back from that log.
type Harness struct {
	store    *store.Store
	endpoint *rulespec.Endpoint
	clock    *testutil.DeterministicClock
	ids      *testutil.SequentialIDs
	logger   *slog.Logger
}

// Option configures a Harness.
type Option func(*Harness)

// WithLogger routes engine debug records to logger. By default they are
// discarded.
func WithLogger(logger *slog.Logger) Option {
	return func(h *Harness) {
		h.logger = logger
	}
}

// Run loads the scenario's rules directory and executes every case.
//
// Execution flow:
// 1. Load and compile the rules directory
// 2. Look up the scenario's endpoint
// 3. Execute each case against a fresh in-memory run log
// 4. Return result with pass/fail, recorded cases, and mismatches
func Run(scenario *Scenario, opts ...Option) (*Result, error) {
	if scenario.Rules == "" {
		return nil, fmt.Errorf("scenario %q: rules directory is required", scenario.Name)
	}

	loaded, errs := rulespec.LoadDir(scenario.Rules, rulespec.LoadModeFailFast)
	if len(errs) > 0 {
		return nil, fmt.Errorf("scenario %q: load rules: %w", scenario.Name, errs[0])
	}

	ep, ok := loaded.Endpoint(scenario.Endpoint)
	if !ok {
		return nil, fmt.Errorf("scenario %q: endpoint %q not found in %s", scenario.Name, scenario.Endpoint, scenario.Rules)
	}

	return RunEndpoint(scenario, ep, opts...)
}

// RunEndpoint executes every case of the scenario against an already
// compiled endpoint.
func RunEndpoint(scenario *Scenario, ep *rulespec.Endpoint, opts ...Option) (*Result, error) {
	if ep == nil || ep.Rules == nil {
		return nil, fmt.Errorf("scenario %q: endpoint is required", scenario.Name)
	}

	st, err := store.Open(store.MemoryPath)
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	h := &Harness{
		store:    st,
		endpoint: ep,
		clock:    testutil.NewDeterministicClock(),
		ids:      testutil.NewSequentialIDs("run"),
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(h)
	}

	ctx := context.Background()
	if err := st.WriteRuleSet(ctx, store.RuleSetRecord{
		Hash:       ep.Hash,
		Endpoint:   ep.Name,
		FieldCount: ep.Rules.Len(),
	}); err != nil {
		return nil, err
	}

	result := NewResult()
	result.Endpoint = ep.Name
	result.RuleSetHash = ep.Hash

	for _, c := range scenario.Cases {
		cr, err := h.executeCase(ctx, c)
		if err != nil {
			return nil, fmt.Errorf("case %q: %w", c.Name, err)
		}

		mismatches := checkCase(c, cr.Output, cr.ErrorCode, cr.ErrorMessage)
		cr.Pass = len(mismatches) == 0
		for _, m := range mismatches {
			result.AddError(m.Error())
		}
		result.Cases = append(result.Cases, cr)
	}

	return result, nil
}

// executeCase builds one payload, records the run and reads it back.
func (h *Harness) executeCase(ctx context.Context, c Case) (CaseResult, error) {
	var payload value.Object
	if c.Payload != nil {
		var err error
		payload, err = value.ObjectFromMap(c.Payload)
		if err != nil {
			return CaseResult{}, fmt.Errorf("convert payload: %w", err)
		}
	}

	build := transform.DefineRules(h.endpoint.Rules, transform.WithLogger(h.logger))
	out, buildErr := build(payload).Build()

	run := store.Run{
		ID:          h.ids.Generate(),
		Endpoint:    h.endpoint.Name,
		RuleSetHash: h.endpoint.Hash,
		Payload:     payload,
		Seq:         h.clock.Next(),
	}
	if run.Payload == nil {
		// The run log needs an object; an absent payload is recorded as empty.
		run.Payload = value.Object{}
	}
	if buildErr != nil {
		run.ErrorCode = string(transform.CodeOf(buildErr))
		if run.ErrorCode == "" {
			return CaseResult{}, buildErr
		}
		run.ErrorMessage = buildErr.Error()
	} else {
		run.Output = out.Object()
	}

	if err := h.store.WriteRun(ctx, run); err != nil {
		return CaseResult{}, err
	}

	stored, err := h.store.ReadRun(ctx, run.ID)
	if err != nil {
		return CaseResult{}, fmt.Errorf("read back run: %w", err)
	}

	return CaseResult{
		Name:         c.Name,
		RunID:        stored.ID,
		Seq:          stored.Seq,
		Output:       stored.Output,
		ErrorCode:    stored.ErrorCode,
		ErrorMessage: stored.ErrorMessage,
	}, nil
}
