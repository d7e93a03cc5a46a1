package cli

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/roach88/paramx/internal/rulespec"
	"github.com/roach88/paramx/internal/value"
)

// loadRules loads a rules directory fail-fast and reports the first error
// through the formatter.
func loadRules(formatter *OutputFormatter, rulesDir string) (*rulespec.LoadResult, error) {
	result, errs := rulespec.LoadDir(rulesDir, rulespec.LoadModeFailFast)
	if len(errs) > 0 {
		var loadErr *rulespec.LoadError
		if errors.As(errs[0], &loadErr) {
			return nil, formatter.fail(ExitCommandError, loadErr.Code, loadErr.Error(), nil)
		}
		return nil, formatter.fail(ExitCommandError, rulespec.ErrCodeGeneric, errs[0].Error(), nil)
	}
	return result, nil
}

// loadEndpoint loads a rules directory and looks up one endpoint.
func loadEndpoint(formatter *OutputFormatter, rulesDir, name string) (*rulespec.Endpoint, error) {
	if name == "" {
		return nil, formatter.fail(ExitCommandError, rulespec.ErrCodeGeneric, "--endpoint is required", nil)
	}

	result, err := loadRules(formatter, rulesDir)
	if err != nil {
		return nil, err
	}

	ep, ok := result.Endpoint(name)
	if !ok {
		return nil, formatter.fail(ExitCommandError, rulespec.ErrCodeNotFound,
			fmt.Sprintf("endpoint %q not found in %s", name, rulesDir),
			map[string]interface{}{"available": result.Names()})
	}
	return ep, nil
}

// readPayload reads a payload document from path, or from stdin when path
// is "-". YAML is used for .yaml/.yml files; stdin is sniffed: a leading
// '{' means JSON, anything else is parsed as YAML.
//
// A document that is JSON or YAML null yields a nil Object, which the engine
// rejects as an invalid payload.
func readPayload(path string, stdin io.Reader) (value.Object, error) {
	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read payload: %w", err)
	}

	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || string(trimmed) == "null" {
		return nil, nil
	}

	if isYAMLPayload(path, trimmed) {
		var m map[string]interface{}
		if err := yaml.Unmarshal(trimmed, &m); err != nil {
			return nil, fmt.Errorf("failed to parse YAML payload: %w", err)
		}
		return value.ObjectFromMap(m)
	}

	obj, err := value.Unmarshal(trimmed)
	if err != nil {
		return nil, fmt.Errorf("failed to parse JSON payload: %w", err)
	}
	return obj, nil
}

func isYAMLPayload(path string, data []byte) bool {
	if path == "-" {
		return data[0] != '{'
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return true
	}
	return false
}
