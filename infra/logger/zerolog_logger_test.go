package logger

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestZerologLoggerMethods(t *testing.T) {
	t.Setenv("APP_ENV", "dev")
	l := NewZerologLogger("test")
	if l == nil {
		t.Fatalf("nil logger")
	}
	l.Debugf("debug %d", 1)
	l.Debugw("debug", map[string]any{"k": 1})
	l.Infof("info %s", "test")
	l.Warnf("warn")
	l.Errorf("error")
}

func TestZerologLoggerComponentField(t *testing.T) {
	t.Setenv("LOG_LEVEL", "")
	var buf bytes.Buffer
	l := NewWithWriter("engine", &buf)
	l.Infof("run %s", "ok")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "engine", entry["component"])
	assert.Equal(t, "info", entry["level"])
	assert.Equal(t, "run ok", entry["message"])
}

func TestZerologLoggerLevelFromEnv(t *testing.T) {
	t.Setenv("LOG_LEVEL", "WARN")
	var buf bytes.Buffer
	l := NewWithWriter("engine", &buf)
	l.Infof("hidden")
	l.Debugw("hidden", map[string]any{"a": 1})
	assert.Empty(t, buf.String())
	l.Warnf("shown")
	assert.True(t, strings.Contains(buf.String(), "shown"))
}

func TestZerologLoggerDebugFields(t *testing.T) {
	t.Setenv("LOG_LEVEL", "debug")
	var buf bytes.Buffer
	l := NewWithWriter("engine", &buf)
	l.Debugw("allocated", map[string]any{"order_id": "O1"})

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "O1", entry["order_id"])
}
