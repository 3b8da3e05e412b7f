package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const flowYAML = `
id: greet
states:
  - id: ask
    view: askName
    transitions:
      - on: submit
        to: done
  - id: done
`

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func TestCommands(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "greet.yaml")
	require.NoError(t, os.WriteFile(path, []byte(flowYAML), 0o644))

	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "webflow version")

	out, err = execute(t, "validate", dir)
	require.NoError(t, err)
	assert.Contains(t, out, "✓ greet")

	out, err = execute(t, "graph", path, "--current", "ask")
	require.NoError(t, err)
	assert.Contains(t, out, "graph TD")

	_, err = execute(t, "conversation", "ls")
	assert.ErrorContains(t, err, "memory store")

	store := t.TempDir()
	out, err = execute(t, "conversation", "ls", "--store", store)
	require.NoError(t, err)
	assert.Contains(t, out, "No conversations found.")
}
