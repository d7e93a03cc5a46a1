package cli

import (
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/paramx/internal/rulespec"
	"github.com/roach88/paramx/internal/store"
	"github.com/roach88/paramx/internal/transform"
	"github.com/roach88/paramx/internal/value"
)

// recordRuns applies each payload to createUser with dbPath, ignoring
// engine failures so failed runs are recorded too.
func recordRuns(t *testing.T, rulesDir, dbPath string, payloads ...string) {
	t.Helper()
	payloadDir := t.TempDir()
	for i, p := range payloads {
		path := writeFile(t, payloadDir, "payload"+string(rune('a'+i))+".json", p)
		_, err := execute(t, NewApplyCommand, &RootOptions{Format: "text"}, rulesDir, "--endpoint", "createUser", "--payload", path, "--db", dbPath)
		if err != nil {
			require.Equal(t, ExitFailure, GetExitCode(err), "apply %s: %v", p, err)
		}
	}
}

func TestReplayMissingDatabase(t *testing.T) {
	dir := t.TempDir()
	writeRules(t, dir)

	out, err := execute(t, NewReplayCommand, &RootOptions{Format: "text"}, dir, "--endpoint", "createUser")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, out, "--db is required")
}

func TestReplayMissingEndpointFlag(t *testing.T) {
	dir := t.TempDir()
	writeRules(t, dir)

	_, err := execute(t, NewReplayCommand, &RootOptions{Format: "text"}, dir, "--db", filepath.Join(t.TempDir(), "runs.db"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "required flag")
}

func TestReplayEmptyDatabase(t *testing.T) {
	dir := t.TempDir()
	writeRules(t, dir)
	dbPath := filepath.Join(t.TempDir(), "runs.db")

	out, err := execute(t, NewReplayCommand, &RootOptions{Format: "text"}, dir, "--db", dbPath, "--endpoint", "createUser")
	require.NoError(t, err)
	assert.Contains(t, out, "No runs found for endpoint createUser.")
}

func TestReplayNoDrift(t *testing.T) {
	dir := t.TempDir()
	writeRules(t, dir)
	dbPath := filepath.Join(t.TempDir(), "runs.db")
	recordRuns(t, dir, dbPath,
		`{"name": " Ann ", "email": "ANN@example.com", "age": "3"}`,
		`{"name": "  "}`,
		`null`,
	)

	out, err := execute(t, NewReplayCommand, &RootOptions{Format: "text"}, dir, "--db", dbPath, "--endpoint", "createUser")
	require.NoError(t, err)
	assert.Contains(t, out, "Replay Summary: 3 run(s) of createUser")
	assert.Contains(t, out, "✓ All runs replay identically")
}

func TestReplayDrift(t *testing.T) {
	tests := []struct {
		name    string
		payload string
		old     string
		new     string
		drift   string
		before  string
		after   string
	}{
		{
			name:    "output changed",
			payload: `{"name": "Ann", "email": "A@B.co"}`,
			old:     `"lower"`,
			new:     `"upper"`,
			drift:   DriftOutputChanged,
			before:  "output:",
			after:   "output:",
		},
		{
			name:    "now fails",
			payload: `{"name": "Ann"}`,
			old:     `validator: "non_empty"`,
			new:     `validator: "email"`,
			drift:   DriftNowFails,
			before:  "output:",
			after:   "error:VALIDATION",
		},
		{
			name:    "now succeeds",
			payload: `{"name": "  "}`,
			old:     `message:   "name is required"`,
			new:     "message:   \"name is required\"\n\t\t\toptional:  true",
			drift:   DriftNowSucceeds,
			before:  "error:VALIDATION",
			after:   "output:",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			writeRules(t, dir)
			dbPath := filepath.Join(t.TempDir(), "runs.db")
			recordRuns(t, dir, dbPath, tt.payload)

			require.Contains(t, usersRules, tt.old)
			writeFile(t, dir, "users.cue", strings.Replace(usersRules, tt.old, tt.new, 1))

			out, err := execute(t, NewReplayCommand, &RootOptions{Format: "json"}, dir, "--db", dbPath, "--endpoint", "createUser")
			require.Error(t, err)
			assert.Equal(t, ExitFailure, GetExitCode(err))

			var resp struct {
				Status string       `json:"status"`
				Data   ReplayResult `json:"data"`
				Error  *CLIError    `json:"error"`
			}
			require.NoError(t, json.Unmarshal([]byte(out), &resp))
			assert.Equal(t, "error", resp.Status)
			require.NotNil(t, resp.Error)
			assert.Equal(t, "E_DRIFT", resp.Error.Code)
			assert.Equal(t, 1, resp.Data.Total)
			assert.Equal(t, 1, resp.Data.Drifted)

			require.Len(t, resp.Data.Runs, 1)
			run := resp.Data.Runs[0]
			assert.Equal(t, tt.drift, run.Drift)
			assert.True(t, run.RulesChanged)
			assert.True(t, strings.HasPrefix(run.Before, tt.before), run.Before)
			assert.True(t, strings.HasPrefix(run.After, tt.after), run.After)
			assert.NotEqual(t, run.Before, run.After)
		})
	}
}

func TestReplayDriftText(t *testing.T) {
	dir := t.TempDir()
	writeRules(t, dir)
	dbPath := filepath.Join(t.TempDir(), "runs.db")
	recordRuns(t, dir, dbPath, `{"name": "Ann"}`, `{"name": "Bo", "email": "B@C.io"}`)

	writeFile(t, dir, "users.cue", strings.Replace(usersRules, `"lower"`, `"upper"`, 1))

	out, err := execute(t, NewReplayCommand, &RootOptions{Format: "text"}, dir, "--db", dbPath, "--endpoint", "createUser")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "✓ #1 ")
	assert.Contains(t, out, "✗ #2 ")
	assert.Contains(t, out, "Drift: output_changed")
	assert.Contains(t, out, "✗ 1 run(s) drifted")
}

func TestReplayLimit(t *testing.T) {
	dir := t.TempDir()
	writeRules(t, dir)
	dbPath := filepath.Join(t.TempDir(), "runs.db")
	recordRuns(t, dir, dbPath, `{"name": "A"}`, `{"name": "B"}`, `{"name": "C"}`)

	out, err := execute(t, NewReplayCommand, &RootOptions{Format: "json"}, dir, "--db", dbPath, "--endpoint", "createUser", "--limit", "2")
	require.NoError(t, err)

	var resp struct {
		Data ReplayResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	require.Len(t, resp.Data.Runs, 2)
	assert.Equal(t, int64(2), resp.Data.Runs[0].Seq)
	assert.Equal(t, int64(3), resp.Data.Runs[1].Seq)
	assert.False(t, resp.Data.Runs[0].RulesChanged)
}

func TestReplayRunErrorChanged(t *testing.T) {
	dir := t.TempDir()
	writeRules(t, dir)
	rules, errs := rulespec.LoadDir(dir, rulespec.LoadModeFailFast)
	require.Empty(t, errs)
	ep, ok := rules.Endpoint("createUser")
	require.True(t, ok)

	run := store.Run{
		ID:           "run-1",
		Seq:          1,
		Endpoint:     "createUser",
		RuleSetHash:  ep.Hash,
		Payload:      value.Object{"name": value.String(" ")},
		ErrorCode:    string(transform.ErrCodeReducerFailed),
		ErrorMessage: "trim failed",
	}

	rr, err := replayRun(transform.DefineRules(ep.Rules), ep, run)
	require.NoError(t, err)
	assert.Equal(t, DriftErrorChanged, rr.Drift)
	assert.Equal(t, "error:REDUCER_FAILED", rr.Before)
	assert.Equal(t, "error:VALIDATION", rr.After)
	assert.False(t, rr.RulesChanged)
}

func TestReplayRunAbsentPayload(t *testing.T) {
	dir := t.TempDir()
	writeRules(t, dir)
	rules, errs := rulespec.LoadDir(dir, rulespec.LoadModeFailFast)
	require.Empty(t, errs)
	ep, _ := rules.Endpoint("createUser")

	run := store.Run{
		ID:          "run-1",
		Seq:         1,
		Endpoint:    "createUser",
		RuleSetHash: ep.Hash,
		Payload:     value.Object{},
		ErrorCode:   string(transform.ErrCodeInvalidPayload),
	}

	rr, err := replayRun(transform.DefineRules(ep.Rules), ep, run)
	require.NoError(t, err)
	assert.Equal(t, DriftNone, rr.Drift)
	assert.Equal(t, "error:INVALID_PAYLOAD", rr.After)
}

func TestDescribeOutcomeIgnoresKeyOrder(t *testing.T) {
	a, err := describeOutcome(value.Object{"a": value.Number(1), "b": value.String("x")}, "")
	require.NoError(t, err)
	b, err := describeOutcome(value.Object{"b": value.String("x"), "a": value.Number(1)}, "")
	require.NoError(t, err)
	assert.Equal(t, a, b)

	empty, err := describeOutcome(nil, "")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(empty, "output:"))

	failed, err := describeOutcome(nil, "VALIDATION")
	require.NoError(t, err)
	assert.Equal(t, "error:VALIDATION", failed)
}

func TestReplayHelpText(t *testing.T) {
	out, err := execute(t, NewReplayCommand, &RootOptions{Format: "text"}, "--help")
	require.NoError(t, err)
	assert.Contains(t, out, "drift")
	assert.Contains(t, out, "--endpoint")
	assert.Contains(t, out, "--limit")
}
