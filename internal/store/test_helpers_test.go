package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/roach88/paramx/internal/value"
)

const testRuleSetHash = "rs-hash"

// createTestStore creates a new store in a temp dir with one rule set recorded.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })

	err = s.WriteRuleSet(context.Background(), RuleSetRecord{
		Hash:       testRuleSetHash,
		Endpoint:   "createUser",
		FieldCount: 2,
	})
	if err != nil {
		t.Fatalf("WriteRuleSet() failed: %v", err)
	}
	return s
}

// createTestRun creates a successful run with minimal required fields.
func createTestRun(id, endpoint string, seq int64) Run {
	return Run{
		ID:          id,
		Endpoint:    endpoint,
		RuleSetHash: testRuleSetHash,
		Payload:     value.Object{"name": value.String("Ann")},
		Output:      value.Object{"n": value.String("Ann")},
		Seq:         seq,
	}
}
