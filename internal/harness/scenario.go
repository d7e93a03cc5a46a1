package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"gopkg.in/yaml.v3"
)

// Scenario defines a conformance scenario: a list of payloads sent to one
// endpoint and the outcome each must produce.
type Scenario struct {
	// Name uniquely identifies this scenario. Also names the golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Rules is the rules directory to load. Relative paths are resolved
	// against the scenario file's directory (or an explicit base path).
	// May be omitted when the caller supplies the endpoint directly.
	Rules string `yaml:"rules,omitempty"`

	// Endpoint names the endpoint under test.
	Endpoint string `yaml:"endpoint"`

	// Cases run in order against fresh instances of the same rule set.
	Cases []Case `yaml:"cases"`

	// path is the file this scenario was loaded from, if any.
	path string
}

// Case is one payload and its expected outcome.
type Case struct {
	Name string `yaml:"name"`

	// Payload is the input object. Omitting it sends no payload at all,
	// which must fail with INVALID_PAYLOAD.
	Payload map[string]interface{} `yaml:"payload"`

	Expect Expect `yaml:"expect"`
}

// Expect describes the outcome of a case. Error is exclusive with the
// output checks.
type Expect struct {
	// Output is matched exactly against the built output.
	Output map[string]interface{} `yaml:"output,omitempty"`

	// Contains is a subset match: each listed key must be present with an
	// equal value.
	Contains map[string]interface{} `yaml:"contains,omitempty"`

	// Absent lists output keys that must not be written.
	Absent []string `yaml:"absent,omitempty"`

	// Error expects Build to fail.
	Error *ExpectError `yaml:"error,omitempty"`
}

// ExpectError matches a failed Build.
type ExpectError struct {
	// Code is the engine error code, e.g. VALIDATION.
	Code string `yaml:"code"`

	// Message, when set, must equal the error text exactly.
	Message string `yaml:"message,omitempty"`
}

func (e Expect) hasOutputChecks() bool {
	return e.Output != nil || e.Contains != nil || len(e.Absent) > 0
}

// LoadScenario reads and parses a scenario YAML file.
// Rules paths are resolved relative to the scenario file's directory.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	return LoadScenarioWithBasePath(path, filepath.Dir(path))
}

// LoadScenarioWithBasePath reads and parses a scenario YAML file,
// resolving the rules path relative to the provided base path.
func LoadScenarioWithBasePath(path, basePath string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	scenario, err := ParseScenario(data)
	if err != nil {
		return nil, err
	}
	scenario.path = path

	if scenario.Rules != "" && !filepath.IsAbs(scenario.Rules) && basePath != "" {
		scenario.Rules = filepath.Join(basePath, scenario.Rules)
	}
	if scenario.Rules != "" {
		if _, err := os.Stat(scenario.Rules); os.IsNotExist(err) {
			return nil, fmt.Errorf("invalid scenario: rules directory not found: %s", scenario.Rules)
		}
	}

	return scenario, nil
}

// ParseScenario decodes and validates scenario YAML.
func ParseScenario(data []byte) (*Scenario, error) {
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true) // Reject unknown fields
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}

	return &scenario, nil
}

// LoadScenarios loads every .yaml and .yml file directly inside dir, sorted
// by file name.
func LoadScenarios(dir string) ([]*Scenario, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenarios directory: %w", err)
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		switch filepath.Ext(e.Name()) {
		case ".yaml", ".yml":
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	scenarios := make([]*Scenario, 0, len(names))
	seen := make(map[string]string, len(names))
	for _, name := range names {
		path := filepath.Join(dir, name)
		s, err := LoadScenario(path)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		if prev, dup := seen[s.Name]; dup {
			return nil, fmt.Errorf("%s: duplicate scenario name %q (also in %s)", path, s.Name, prev)
		}
		seen[s.Name] = path
		scenarios = append(scenarios, s)
	}
	return scenarios, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}

	if s.Description == "" {
		return fmt.Errorf("description is required")
	}

	if s.Endpoint == "" {
		return fmt.Errorf("endpoint is required")
	}

	if len(s.Cases) == 0 {
		return fmt.Errorf("cases list is required and must be non-empty")
	}

	names := make(map[string]bool, len(s.Cases))
	for i, c := range s.Cases {
		if c.Name == "" {
			return fmt.Errorf("cases[%d]: name is required", i)
		}
		if names[c.Name] {
			return fmt.Errorf("cases[%d]: duplicate case name %q", i, c.Name)
		}
		names[c.Name] = true

		if err := validateExpect(i, c.Expect); err != nil {
			return err
		}
	}

	return nil
}

func validateExpect(index int, e Expect) error {
	switch {
	case e.Error != nil && e.hasOutputChecks():
		return fmt.Errorf("cases[%d].expect: error cannot be combined with output checks", index)
	case e.Error != nil && e.Error.Code == "":
		return fmt.Errorf("cases[%d].expect.error: code is required", index)
	case e.Error == nil && !e.hasOutputChecks():
		return fmt.Errorf("cases[%d].expect: one of output, contains, absent or error is required", index)
	}
	return nil
}
