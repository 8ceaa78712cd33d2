package logging

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewParsesLevel(t *testing.T) {
	logger := New("debug", "text")
	assert.Equal(t, logrus.DebugLevel, logger.GetLevel())
}

func TestNewFallsBackToInfo(t *testing.T) {
	logger := New("loud", "")
	assert.Equal(t, logrus.InfoLevel, logger.GetLevel())
}

func TestJSONFormat(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWithOutput(&buf, "info", "JSON")
	logger.WithField(FieldTable, "games").Info("ingested")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "games", entry[FieldTable])
	assert.Equal(t, "ingested", entry["msg"])
}

func TestDiscardWritesNothing(t *testing.T) {
	logger := Discard()
	logger.Info("nothing")
}
