package logger

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, DEBUG, ParseLevel("debug"))
	assert.Equal(t, WARN, ParseLevel("warn"))
	assert.Equal(t, WARN, ParseLevel("WARNING"))
	assert.Equal(t, ERROR, ParseLevel("error"))
	assert.Equal(t, INFO, ParseLevel(""))
	assert.Equal(t, INFO, ParseLevel("bogus"))
}

func TestSetLevelFilters(t *testing.T) {
	defer SetLevel(INFO)

	SetLevel(ERROR)
	assert.Equal(t, ERROR, GetLevel())
	SetLevel(DEBUG)
	assert.Equal(t, DEBUG, GetLevel())
}

func TestFileLoggingWritesJSONLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "clawgate.log")
	require.NoError(t, EnableFileLogging(path))
	defer DisableFileLogging()

	InfoCF("testcomp", "something happened", map[string]any{"key": "value"})

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(data, &entry))
	assert.Equal(t, "INFO", entry["level"])
	assert.Equal(t, "testcomp", entry["component"])
	assert.Equal(t, "something happened", entry["message"])
	fields := entry["fields"].(map[string]any)
	assert.Equal(t, "value", fields["key"])
}

func TestFormatFieldsSortedKeys(t *testing.T) {
	out := formatFields(map[string]any{"b": 2, "a": 1, "c": "x"})
	assert.Equal(t, "{a=1, b=2, c=x}", out)
}
