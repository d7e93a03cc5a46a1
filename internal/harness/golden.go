package harness

import (
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/paramx/internal/value"
)

// Snapshot converts a result into the value recorded in golden files.
// Pass/fail and mismatch text are left out; the snapshot records only what
// the engine produced.
func Snapshot(scenarioName string, result *Result) value.Object {
	cases := make(value.List, len(result.Cases))
	for i, c := range result.Cases {
		entry := value.Object{
			"name":   value.String(c.Name),
			"run_id": value.String(c.RunID),
			"seq":    value.Number(c.Seq),
		}
		if c.ErrorCode != "" {
			entry["error"] = value.Object{
				"code":    value.String(c.ErrorCode),
				"message": value.String(c.ErrorMessage),
			}
		} else {
			entry["output"] = c.Output
		}
		cases[i] = entry
	}

	return value.Object{
		"scenario": value.String(scenarioName),
		"endpoint": value.String(result.Endpoint),
		"cases":    cases,
	}
}

// RunWithGolden executes a scenario and compares its snapshot against a golden
// file stored in testdata/golden/{scenario.Name}.golden
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
//
// Returns error if scenario execution fails.
// Test failure (via goldie) occurs if the snapshot doesn't match the golden file.
func RunWithGolden(t *testing.T, scenario *Scenario) error {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return err
	}

	return AssertGolden(t, scenario.Name, result)
}

// AssertGolden compares an existing result against a golden file without
// re-running the scenario.
func AssertGolden(t *testing.T, scenarioName string, result *Result) error {
	t.Helper()

	data, err := value.MarshalCanonical(Snapshot(scenarioName, result))
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenarioName, data)

	return nil
}
