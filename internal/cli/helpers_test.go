package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"
)

const usersRules = `package rules

endpoint: createUser: {
	description: "POST /users"
	fields: {
		name: {
			output_key: "n"
			reducers: ["trim"]
			validator: "non_empty"
			message:   "name is required"
		}
		email: {
			reducers: ["trim", "lower"]
			validator: "email"
			message:   "email is invalid"
			optional:  true
		}
		age: {
			reducers: ["to_number"]
		}
	}
}
`

// writeRules writes the createUser endpoint into dir.
func writeRules(t *testing.T, dir string) {
	t.Helper()
	writeFile(t, dir, "users.cue", usersRules)
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

// execute runs a subcommand built by newCmd with args and returns stdout.
func execute(t *testing.T, newCmd func(*RootOptions) *cobra.Command, opts *RootOptions, args ...string) (string, error) {
	t.Helper()
	buf := &bytes.Buffer{}
	cmd := newCmd(opts)
	cmd.SetOut(buf)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}
