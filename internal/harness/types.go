package harness

import (
	"github.com/roach88/paramx/internal/value"
)

// CaseResult records the outcome of one case as read back from the run log.
type CaseResult struct {
	Name         string       `json:"name"`
	RunID        string       `json:"run_id"`
	Seq          int64        `json:"seq"`
	Output       value.Object `json:"output,omitempty"`
	ErrorCode    string       `json:"error_code,omitempty"`
	ErrorMessage string       `json:"error_message,omitempty"`
	Pass         bool         `json:"pass"`
}

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass is true if every case matched its expectation.
	Pass bool `json:"pass"`

	// Endpoint and RuleSetHash identify the rules the scenario ran against.
	Endpoint    string `json:"endpoint"`
	RuleSetHash string `json:"rule_set_hash"`

	// Cases holds one entry per case, in scenario order.
	Cases []CaseResult `json:"cases"`

	// Errors contains mismatch descriptions.
	// Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Cases:  []CaseResult{},
		Errors: []string{},
	}
}

// AddError adds a mismatch description and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// Failed returns the cases that did not match.
func (r *Result) Failed() []CaseResult {
	var out []CaseResult
	for _, c := range r.Cases {
		if !c.Pass {
			out = append(out, c)
		}
	}
	return out
}
