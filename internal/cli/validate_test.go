package cli

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateDir(t *testing.T) {
	dir := flowsDir(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "main.yaml"), []byte(`
id: main
states:
  - id: call
    flow: greet
    transitions:
      - on: done
        to: finish
      - on: other
        to: nowhere
  - id: finish
  - id: orphan
`), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "broken.yml"), []byte("id: [\n"), 0o644))

	reports, err := ValidateDir(dir)
	require.NoError(t, err)
	require.Len(t, reports, 3)

	byFile := map[string]FlowReport{}
	for _, r := range reports {
		byFile[filepath.Base(r.Path)] = r
	}

	assert.True(t, byFile["greet.yaml"].OK())
	assert.Error(t, byFile["broken.yml"].Err)
	assert.False(t, byFile["broken.yml"].OK())

	main := byFile["main.yaml"]
	require.NoError(t, main.Err)
	assert.False(t, main.OK())
	assert.Contains(t, main.Report.Errors, "missing state 'nowhere' targeted by 'call' in flow 'main'")
	assert.Contains(t, main.Report.Warnings, "state 'orphan' is unreachable in flow 'main'")
}
