package testutil

import "fmt"

// SequentialIDs generates predictable run IDs ("run-0001", "run-0002", ...)
// in place of UUIDv7 so golden snapshots stay byte-identical.
type SequentialIDs struct {
	prefix string
	clock  DeterministicClock
}

// NewSequentialIDs creates a generator. An empty prefix defaults to "run".
func NewSequentialIDs(prefix string) *SequentialIDs {
	if prefix == "" {
		prefix = "run"
	}
	return &SequentialIDs{prefix: prefix}
}

// Generate returns the next ID. Safe for concurrent use.
func (g *SequentialIDs) Generate() string {
	return fmt.Sprintf("%s-%04d", g.prefix, g.clock.Next())
}
