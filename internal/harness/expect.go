package harness

import (
	"fmt"
	"strings"

	"github.com/davecgh/go-spew/spew"

	"github.com/roach88/paramx/internal/value"
)

// dumper renders values in mismatch messages. Keys are sorted so messages
// are stable across runs.
var dumper = spew.ConfigState{
	Indent:                  "  ",
	SortKeys:                true,
	DisablePointerAddresses: true,
	DisableCapacities:       true,
}

// MismatchError describes a case whose outcome differs from its expectation.
type MismatchError struct {
	Case     string
	Check    string // output, contains, absent or error
	Expected string
	Actual   string
}

// Error implements the error interface.
func (e *MismatchError) Error() string {
	var buf strings.Builder
	fmt.Fprintf(&buf, "case %q: %s mismatch\n", e.Case, e.Check)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s", e.Actual)
	return buf.String()
}

// checkCase compares a case outcome against its expectation.
// Returns every mismatch found.
func checkCase(c Case, out value.Object, code, message string) []error {
	var errs []error

	if c.Expect.Error != nil {
		want := c.Expect.Error
		switch {
		case code == "":
			errs = append(errs, &MismatchError{
				Case:     c.Name,
				Check:    "error",
				Expected: fmt.Sprintf("error %s", want.Code),
				Actual:   "success with output " + dumper.Sdump(out),
			})
		case code != want.Code:
			errs = append(errs, &MismatchError{
				Case:     c.Name,
				Check:    "error",
				Expected: fmt.Sprintf("error %s", want.Code),
				Actual:   fmt.Sprintf("error %s: %s", code, message),
			})
		case want.Message != "" && message != want.Message:
			errs = append(errs, &MismatchError{
				Case:     c.Name,
				Check:    "error",
				Expected: fmt.Sprintf("message %q", want.Message),
				Actual:   fmt.Sprintf("message %q", message),
			})
		}
		return errs
	}

	if code != "" {
		return []error{&MismatchError{
			Case:     c.Name,
			Check:    "output",
			Expected: "success",
			Actual:   fmt.Sprintf("error %s: %s", code, message),
		}}
	}

	if c.Expect.Output != nil {
		want, err := value.ObjectFromMap(c.Expect.Output)
		if err != nil {
			return []error{fmt.Errorf("case %q: expect.output: %w", c.Name, err)}
		}
		if !value.Equal(want, out) {
			errs = append(errs, &MismatchError{
				Case:     c.Name,
				Check:    "output",
				Expected: dumper.Sdump(want),
				Actual:   dumper.Sdump(out),
			})
		}
	}

	if c.Expect.Contains != nil {
		want, err := value.ObjectFromMap(c.Expect.Contains)
		if err != nil {
			return []error{fmt.Errorf("case %q: expect.contains: %w", c.Name, err)}
		}
		for _, k := range want.SortedKeys() {
			got, ok := out[k]
			if !ok || !value.Equal(want[k], got) {
				errs = append(errs, &MismatchError{
					Case:     c.Name,
					Check:    "contains",
					Expected: fmt.Sprintf("key %q = %s", k, dumper.Sdump(want[k])),
					Actual:   describeKey(out, k),
				})
			}
		}
	}

	for _, k := range c.Expect.Absent {
		if _, ok := out[k]; ok {
			errs = append(errs, &MismatchError{
				Case:     c.Name,
				Check:    "absent",
				Expected: fmt.Sprintf("key %q not written", k),
				Actual:   describeKey(out, k),
			})
		}
	}

	return errs
}

func describeKey(out value.Object, k string) string {
	v, ok := out[k]
	if !ok {
		return fmt.Sprintf("key %q missing", k)
	}
	return fmt.Sprintf("key %q = %s", k, dumper.Sdump(v))
}
