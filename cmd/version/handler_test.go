package version

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVersionCommand(t *testing.T) {
	var buf bytes.Buffer
	cmd := NewVersionCommand()
	cmd.SetOut(&buf)
	cmd.SetArgs([]string{})

	require.NoError(t, cmd.Execute())
	assert.Contains(t, buf.String(), "linotpadm version "+GetVersion())
	assert.Contains(t, buf.String(), "Git commit: "+GetGitCommit())
	assert.Contains(t, buf.String(), "Build time: "+GetBuildTime())
}
