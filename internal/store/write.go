package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/roach88/paramx/internal/value"
)

// WriteRuleSet records a rule set. Writing the same hash again is a no-op.
func (s *Store) WriteRuleSet(ctx context.Context, rs RuleSetRecord) error {
	if rs.Hash == "" {
		return errors.New("write rule set: hash is required")
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO rule_sets (hash, endpoint, field_count)
		VALUES (?, ?, ?)
		ON CONFLICT(hash) DO NOTHING
	`, rs.Hash, rs.Endpoint, rs.FieldCount)
	if err != nil {
		return fmt.Errorf("write rule set: %w", err)
	}
	return nil
}

// WriteRun inserts a run record.
// Uses ON CONFLICT(id) DO NOTHING for idempotency - duplicate IDs are silently ignored.
// Other constraint violations (unknown rule set, output and error both set)
// still return errors.
//
// PayloadHash is computed from Payload when empty.
func (s *Store) WriteRun(ctx context.Context, run Run) error {
	if run.ID == "" {
		return errors.New("write run: id is required")
	}
	if run.Payload == nil {
		return errors.New("write run: payload is required")
	}

	payloadJSON, err := marshalObject(run.Payload)
	if err != nil {
		return fmt.Errorf("write run: marshal payload: %w", err)
	}
	if run.PayloadHash == "" {
		run.PayloadHash = value.HashBytes(value.DomainPayload, []byte(payloadJSON))
	}

	outputJSON, err := marshalOutput(run.Output)
	if err != nil {
		return fmt.Errorf("write run: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO runs
		(id, endpoint, rule_set_hash, payload_hash, payload, output, error_code, error_message, seq)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`,
		run.ID,
		run.Endpoint,
		run.RuleSetHash,
		run.PayloadHash,
		payloadJSON,
		outputJSON,
		run.ErrorCode,
		run.ErrorMessage,
		run.Seq,
	)
	if err != nil {
		return fmt.Errorf("write run: %w", err)
	}

	return nil
}
