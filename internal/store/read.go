package store

import (
	"context"
	"database/sql"
	"fmt"
)

const runColumns = `id, endpoint, rule_set_hash, payload_hash, payload, output, error_code, error_message, seq`

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

// ReadRun retrieves a single run by ID.
// Returns sql.ErrNoRows if not found.
func (s *Store) ReadRun(ctx context.Context, id string) (Run, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+runColumns+`
		FROM runs
		WHERE id = ?
	`, id)

	return scanRun(row)
}

// ReadRuns returns runs for an endpoint, oldest first.
// Results are ordered deterministically: ORDER BY seq ASC, id ASC COLLATE BINARY.
// A limit of zero or less returns all runs; otherwise the most recent limit
// runs are returned, still oldest first.
//
// Returns an empty slice (not nil) if no runs exist for the endpoint.
func (s *Store) ReadRuns(ctx context.Context, endpoint string, limit int) ([]Run, error) {
	var (
		rows *sql.Rows
		err  error
	)
	if limit > 0 {
		rows, err = s.db.QueryContext(ctx, `
			SELECT `+runColumns+` FROM (
				SELECT `+runColumns+`
				FROM runs
				WHERE endpoint = ?
				ORDER BY seq DESC, id COLLATE BINARY DESC
				LIMIT ?
			)
			ORDER BY seq ASC, id COLLATE BINARY ASC
		`, endpoint, limit)
	} else {
		rows, err = s.db.QueryContext(ctx, `
			SELECT `+runColumns+`
			FROM runs
			WHERE endpoint = ?
			ORDER BY seq ASC, id COLLATE BINARY ASC
		`, endpoint)
	}
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}

	return collectRuns(rows)
}

// ReadRunsByPayload returns every run of a given payload, across endpoints.
func (s *Store) ReadRunsByPayload(ctx context.Context, payloadHash string) ([]Run, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+runColumns+`
		FROM runs
		WHERE payload_hash = ?
		ORDER BY seq ASC, id COLLATE BINARY ASC
	`, payloadHash)
	if err != nil {
		return nil, fmt.Errorf("query runs by payload: %w", err)
	}

	return collectRuns(rows)
}

// ReadRuleSet retrieves a rule set record by hash.
// Returns sql.ErrNoRows if not found.
func (s *Store) ReadRuleSet(ctx context.Context, hash string) (RuleSetRecord, error) {
	var rs RuleSetRecord
	err := s.db.QueryRowContext(ctx, `
		SELECT hash, endpoint, field_count
		FROM rule_sets
		WHERE hash = ?
	`, hash).Scan(&rs.Hash, &rs.Endpoint, &rs.FieldCount)
	if err != nil {
		return RuleSetRecord{}, err
	}
	return rs, nil
}

// ListEndpoints returns the distinct endpoints that have runs, sorted.
func (s *Store) ListEndpoints(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT DISTINCT endpoint
		FROM runs
		ORDER BY endpoint COLLATE BINARY ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query endpoints: %w", err)
	}
	defer rows.Close()

	endpoints := []string{}
	for rows.Next() {
		var ep string
		if err := rows.Scan(&ep); err != nil {
			return nil, fmt.Errorf("scan endpoint: %w", err)
		}
		endpoints = append(endpoints, ep)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate endpoints: %w", err)
	}
	return endpoints, nil
}

// LastSeq returns the highest seq in the run log, or 0 if it is empty.
func (s *Store) LastSeq(ctx context.Context) (int64, error) {
	var seq int64
	err := s.db.QueryRowContext(ctx, `SELECT COALESCE(MAX(seq), 0) FROM runs`).Scan(&seq)
	if err != nil {
		return 0, fmt.Errorf("query last seq: %w", err)
	}
	return seq, nil
}

// NextSeq returns the seq for the next run.
func (s *Store) NextSeq(ctx context.Context) (int64, error) {
	last, err := s.LastSeq(ctx)
	if err != nil {
		return 0, err
	}
	return last + 1, nil
}

func collectRuns(rows *sql.Rows) ([]Run, error) {
	defer rows.Close()

	runs := []Run{}
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return runs, nil
}

func scanRun(row rowScanner) (Run, error) {
	var (
		run         Run
		payloadJSON string
		outputJSON  sql.NullString
	)
	err := row.Scan(
		&run.ID,
		&run.Endpoint,
		&run.RuleSetHash,
		&run.PayloadHash,
		&payloadJSON,
		&outputJSON,
		&run.ErrorCode,
		&run.ErrorMessage,
		&run.Seq,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return Run{}, err
		}
		return Run{}, fmt.Errorf("scan run: %w", err)
	}

	run.Payload, err = unmarshalObject(payloadJSON)
	if err != nil {
		return Run{}, fmt.Errorf("unmarshal payload: %w", err)
	}
	run.Output, err = unmarshalOutput(outputJSON)
	if err != nil {
		return Run{}, err
	}
	return run, nil
}
