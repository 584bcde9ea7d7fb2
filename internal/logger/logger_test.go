package logger

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLevels(t *testing.T) {
	assert.Equal(t, logrus.DebugLevel, New("", true, "").GetLevel())
	assert.Equal(t, logrus.InfoLevel, New("", false, "").GetLevel())
	assert.Equal(t, logrus.WarnLevel, New("WARN", false, "").GetLevel())
	assert.Equal(t, logrus.InfoLevel, New("loud", false, "").GetLevel())
}

func TestNewFormatter(t *testing.T) {
	assert.IsType(t, &logrus.JSONFormatter{}, New("info", false, "").Formatter)
	assert.IsType(t, &logrus.TextFormatter{}, New("info", true, "").Formatter)
	assert.IsType(t, &logrus.JSONFormatter{}, New("info", true, "json").Formatter)
}

func TestWithRun(t *testing.T) {
	var buf bytes.Buffer
	log := New("info", false, "")
	log.SetOutput(&buf)

	WithRun(log, "run-1", 42).Info("done")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "run-1", entry["run_id"])
	assert.Equal(t, float64(42), entry["seed"])
	assert.Equal(t, "done", entry["msg"])
}
