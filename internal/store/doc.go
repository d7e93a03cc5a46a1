// Package store provides a SQLite-backed log of transform runs.
//
// Every apply records the rule set it used and one run row:
//   - Rule sets: endpoint name and field count, keyed by definition hash
//   - Runs: payload, output or error, keyed by a UUIDv7 run ID
//
// # Ordering
//
// Runs are ordered by seq, a logical clock assigned by the caller via
// NextSeq, never by timestamps. All multi-row queries use
// ORDER BY seq ASC, id COLLATE BINARY ASC so results are identical across
// machines.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
//
// Payloads and outputs are stored as canonical JSON (see value.MarshalCanonical)
// so identical values always produce identical rows and hashes.
package store
