package cli

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/RandyVollrath/ticketlesschicago-sub000/pkg/errors"
)

func TestExportCommand_CSVToFile(t *testing.T) {
	target := filepath.Join(t.TempDir(), "analysis.csv")

	out, err := runCommand(t, "export", "-i", writeRequestFile(t), "-f", "csv", "--file", target)
	require.NoError(t, err)
	assert.Contains(t, out, "wrote")
	assert.Contains(t, out, target)

	data, err := os.ReadFile(target)
	require.NoError(t, err)

	content := string(data)
	assert.True(t, strings.HasPrefix(content, "field,value\n"), "CSV must open with the summary header")
	assert.Contains(t, content, "parcel_id,14-21-106-017-0000")
	assert.Contains(t, content, "comparable_parcel_id")
}

func TestExportCommand_JSONToStdout(t *testing.T) {
	out, err := runCommand(t, "export", "-i", writeRequestFile(t), "-f", "json")
	require.NoError(t, err)

	var doc map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &doc))
	assert.Equal(t, "14-21-106-017-0000", doc["parcel_id"])
	assert.Contains(t, doc, "analysis_id")
	assert.Contains(t, doc, "strategy_decision")
}

func TestExportCommand_DefaultFormatIsCSV(t *testing.T) {
	out, err := runCommand(t, "export", "-i", writeRequestFile(t))
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(out, "field,value\n"))
}

func TestExportCommand_RejectsUnknownFormat(t *testing.T) {
	_, err := runCommand(t, "export", "-i", writeRequestFile(t), "-f", "xml")

	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeExportFormatInvalid, errors.GetCode(err))
	assert.Contains(t, err.Error(), "unsupported export format")
}

func TestExportCommand_UnwritableTarget(t *testing.T) {
	target := filepath.Join(t.TempDir(), "no-such-dir", "analysis.csv")

	_, err := runCommand(t, "export", "-i", writeRequestFile(t), "--file", target)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "write export")
}
