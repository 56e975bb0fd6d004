package logging

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewJSON(t *testing.T) {
	var buf bytes.Buffer
	log, err := New("debug", "json", &buf)
	require.NoError(t, err)
	assert.Equal(t, logrus.DebugLevel, log.GetLevel())

	log.WithField("lead_id", "l1").Info("qualified")

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "qualified", entry["msg"])
	assert.Equal(t, "l1", entry["lead_id"])
}

func TestNewLevelFilters(t *testing.T) {
	var buf bytes.Buffer
	log, err := New("warn", "text", &buf)
	require.NoError(t, err)

	log.Info("hidden")
	assert.Empty(t, buf.String())
	log.Warn("shown")
	assert.Contains(t, buf.String(), "shown")
}

func TestNewRejectsBadInput(t *testing.T) {
	_, err := New("loud", "text", nil)
	assert.Error(t, err)
	_, err = New("info", "xml", nil)
	assert.Error(t, err)
}
