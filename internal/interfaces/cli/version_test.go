package cli

import (
	"encoding/json"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVersionCommand_Text(t *testing.T) {
	out, err := runCommand(t, "version")
	require.NoError(t, err)

	want := fmt.Sprintf("appealctl %s (commit: %s, built: %s)\n", Version, GitCommit, BuildDate)
	assert.Equal(t, want, out)
}

func TestVersionCommand_JSON(t *testing.T) {
	out, err := runCommand(t, "version", "-o", "json")
	require.NoError(t, err)

	var info buildInfo
	require.NoError(t, json.Unmarshal([]byte(out), &info))
	assert.Equal(t, Version, info.Version)
	assert.Equal(t, GitCommit, info.GitCommit)
	assert.Equal(t, BuildDate, info.BuildDate)
}
