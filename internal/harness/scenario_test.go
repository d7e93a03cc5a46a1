package harness

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// createRulesDir creates an empty rules directory next to the scenario file.
func createRulesDir(t *testing.T, dir string) string {
	t.Helper()
	rulesDir := filepath.Join(dir, "rules")
	if err := os.MkdirAll(rulesDir, 0755); err != nil {
		t.Fatal(err)
	}
	return rulesDir
}

func writeScenario(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadScenario_ValidFile(t *testing.T) {
	dir := t.TempDir()
	rulesDir := createRulesDir(t, dir)

	path := writeScenario(t, dir, "test.yaml", `
name: test_scenario
description: "Test scenario for validation"
rules: rules
endpoint: createUser
cases:
  - name: trims
    payload:
      name: "  Ann "
      age: 3
    expect:
      output:
        n: Ann
`)

	scenario, err := LoadScenario(path)
	require.NoError(t, err)

	assert.Equal(t, "test_scenario", scenario.Name)
	assert.Equal(t, "Test scenario for validation", scenario.Description)
	assert.Equal(t, rulesDir, scenario.Rules, "rules path resolves against the scenario directory")
	assert.Equal(t, "createUser", scenario.Endpoint)
	require.Len(t, scenario.Cases, 1)
	assert.Equal(t, "  Ann ", scenario.Cases[0].Payload["name"])
	assert.Equal(t, 3, scenario.Cases[0].Payload["age"])
	assert.Equal(t, "Ann", scenario.Cases[0].Expect.Output["n"])
}

func TestLoadScenario_AbsoluteRulesPath(t *testing.T) {
	dir := t.TempDir()
	rulesDir := createRulesDir(t, dir)

	path := writeScenario(t, t.TempDir(), "test.yaml", `
name: abs
description: "absolute rules path"
rules: `+rulesDir+`
endpoint: createUser
cases:
  - name: c
    payload: {}
    expect:
      output: {}
`)

	scenario, err := LoadScenario(path)
	require.NoError(t, err)
	assert.Equal(t, rulesDir, scenario.Rules)
}

func TestLoadScenario_MissingFile(t *testing.T) {
	_, err := LoadScenario("/nonexistent/scenario.yaml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read scenario file")
}

func TestLoadScenario_MissingRulesDir(t *testing.T) {
	dir := t.TempDir()
	path := writeScenario(t, dir, "test.yaml", `
name: s
description: "rules directory does not exist"
rules: nowhere
endpoint: createUser
cases:
  - name: c
    payload: {}
    expect:
      output: {}
`)

	_, err := LoadScenario(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rules directory not found")
}

func TestParseScenario_MissingPayloadStaysNil(t *testing.T) {
	scenario, err := ParseScenario([]byte(`
name: s
description: d
endpoint: e
cases:
  - name: no payload
    expect:
      error:
        code: INVALID_PAYLOAD
  - name: empty payload
    payload: {}
    expect:
      output: {}
`))
	require.NoError(t, err)
	assert.Nil(t, scenario.Cases[0].Payload)
	assert.NotNil(t, scenario.Cases[1].Payload)
	assert.Empty(t, scenario.Cases[1].Payload)
}

func TestParseScenario_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{
			name: "missing name",
			content: `
description: d
endpoint: e
cases: [{name: c, payload: {}, expect: {output: {}}}]
`,
			wantErr: "name is required",
		},
		{
			name: "missing description",
			content: `
name: s
endpoint: e
cases: [{name: c, payload: {}, expect: {output: {}}}]
`,
			wantErr: "description is required",
		},
		{
			name: "missing endpoint",
			content: `
name: s
description: d
cases: [{name: c, payload: {}, expect: {output: {}}}]
`,
			wantErr: "endpoint is required",
		},
		{
			name: "no cases",
			content: `
name: s
description: d
endpoint: e
cases: []
`,
			wantErr: "cases list is required",
		},
		{
			name: "unnamed case",
			content: `
name: s
description: d
endpoint: e
cases: [{payload: {}, expect: {output: {}}}]
`,
			wantErr: "cases[0]: name is required",
		},
		{
			name: "duplicate case",
			content: `
name: s
description: d
endpoint: e
cases:
  - {name: c, payload: {}, expect: {output: {}}}
  - {name: c, payload: {}, expect: {output: {}}}
`,
			wantErr: `cases[1]: duplicate case name "c"`,
		},
		{
			name: "error combined with output",
			content: `
name: s
description: d
endpoint: e
cases:
  - name: c
    payload: {}
    expect:
      output: {}
      error: {code: VALIDATION}
`,
			wantErr: "error cannot be combined with output checks",
		},
		{
			name: "error without code",
			content: `
name: s
description: d
endpoint: e
cases:
  - name: c
    payload: {}
    expect:
      error: {message: boom}
`,
			wantErr: "code is required",
		},
		{
			name: "no expectation",
			content: `
name: s
description: d
endpoint: e
cases:
  - name: c
    payload: {}
    expect: {}
`,
			wantErr: "one of output, contains, absent or error is required",
		},
		{
			name: "unknown field",
			content: `
name: s
description: d
endpoint: e
cases:
  - name: c
    payload: {}
    expect:
      outptu: {}
`,
			wantErr: "failed to parse YAML",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseScenario([]byte(tt.content))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoadScenarios_SortedAndFiltered(t *testing.T) {
	dir := t.TempDir()
	body := func(name string) string {
		return `
name: ` + name + `
description: d
endpoint: e
cases: [{name: c, payload: {}, expect: {output: {}}}]
`
	}
	writeScenario(t, dir, "b.yaml", body("second"))
	writeScenario(t, dir, "a.yml", body("first"))
	writeScenario(t, dir, "notes.txt", "ignored")
	require.NoError(t, os.Mkdir(filepath.Join(dir, "nested.yaml"), 0755))

	scenarios, err := LoadScenarios(dir)
	require.NoError(t, err)
	require.Len(t, scenarios, 2)
	assert.Equal(t, "first", scenarios[0].Name)
	assert.Equal(t, "second", scenarios[1].Name)
}

func TestLoadScenarios_DuplicateNames(t *testing.T) {
	dir := t.TempDir()
	body := `
name: same
description: d
endpoint: e
cases: [{name: c, payload: {}, expect: {output: {}}}]
`
	writeScenario(t, dir, "a.yaml", body)
	writeScenario(t, dir, "b.yaml", body)

	_, err := LoadScenarios(dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `duplicate scenario name "same"`)
}

func TestLoadScenarios_Testdata(t *testing.T) {
	scenarios, err := LoadScenarios("testdata/scenarios")
	require.NoError(t, err)
	require.Len(t, scenarios, 1)
	assert.Equal(t, "create_user", scenarios[0].Name)
	assert.Equal(t, filepath.Join("testdata", "rules"), scenarios[0].Rules)
}
