package logger

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
	log := NewWithOutput("debug", "JSON", &buf)
	assert.Equal(t, logrus.DebugLevel, log.GetLevel())

	WithFields(log, logrus.Fields{"event_id": 7}).Info("rsvp saved")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "rsvp saved", line["msg"])
	assert.Equal(t, "residenthub", line["service"])
	assert.EqualValues(t, 7, line["event_id"])
}

func TestNewFallsBackToInfoText(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithOutput("chatty", "", &buf)
	assert.Equal(t, logrus.InfoLevel, log.GetLevel())

	log.Debug("hidden")
	log.Warn("visible")
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), `msg=visible`)
	assert.Contains(t, buf.String(), "service=residenthub")
}
