package store

import (
	"github.com/google/uuid"

	"github.com/roach88/paramx/internal/value"
)

// RuleSetRecord identifies a compiled rule set that runs refer to.
type RuleSetRecord struct {
	Hash       string `json:"hash"`
	Endpoint   string `json:"endpoint"`
	FieldCount int    `json:"field_count"`
}

// Run is one recorded Build call.
//
// Exactly one of Output and ErrorCode is set: a successful run has an output
// object (possibly empty) and no error code; a failed run has an error code
// and a nil output.
type Run struct {
	ID           string       `json:"id"`
	Endpoint     string       `json:"endpoint"`
	RuleSetHash  string       `json:"rule_set_hash"`
	PayloadHash  string       `json:"payload_hash"`
	Payload      value.Object `json:"payload"`
	Output       value.Object `json:"output,omitempty"`
	ErrorCode    string       `json:"error_code,omitempty"`
	ErrorMessage string       `json:"error_message,omitempty"`
	Seq          int64        `json:"seq"`
}

// Failed reports whether the run ended in an error.
func (r Run) Failed() bool {
	return r.ErrorCode != ""
}

// NewRunID returns a time-ordered UUIDv7 run identifier.
func NewRunID() string {
	return uuid.Must(uuid.NewV7()).String()
}
